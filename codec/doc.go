// Package codec implements the write path of the colvals columnar
// doc-values format.
//
// A Writer is created once per segment over a data and a metadata stream,
// accepts one Add*Field call per field in caller-chosen order, and is then
// closed. Field values are pulled from caller-provided cursors; because the
// encoders gather global statistics before emitting any data bytes, every
// source is a factory that can produce a fresh cursor over identical
// content on each call.
//
// The writer is single-threaded: one field is fully written before the next
// begins, and bytes reach both streams in strict program order. A failed
// write invalidates the whole segment; there is no partial-field recovery.
package codec
