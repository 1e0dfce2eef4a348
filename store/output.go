// Package store provides the byte sinks the doc-values codec writes into:
// position-tracked, checksummed outputs over arbitrary io.Writers, in-memory
// staging buffers, and the index header/footer framing shared by the data
// and metadata streams.
//
// All multi-byte integers are big-endian; variable-length integers use 7-bit
// continuation groups (Go's uvarint layout). Offsets recorded by the codec
// are byte positions as reported by Position at the moment of recording, so
// implementations never buffer in a way that decouples the logical position
// from the bytes already accepted.
package store

import (
	"encoding/binary"
	"hash"
	"hash/crc32"
	"io"

	"github.com/arloliu/colvals/endian"
	"github.com/arloliu/colvals/internal/pool"
)

// Output is an append-only byte sink with explicit position tracking.
//
// Write errors are terminal: once a write fails, the stream is invalid and
// the segment being written must be discarded.
type Output interface {
	// Position returns the number of bytes written so far.
	Position() int64

	WriteByte(b byte) error
	WriteBytes(p []byte) error
	WriteInt16(v int16) error
	WriteInt32(v int32) error
	WriteInt64(v int64) error

	// WriteUvarint writes v using 7-bit continuation groups.
	WriteUvarint(v uint64) error
}

// StreamOutput is an Output over an io.Writer that maintains a running
// CRC32 (IEEE) of every byte written, for the stream footer.
type StreamOutput struct {
	w       io.Writer
	engine  endian.EndianEngine
	crc     hash.Hash32
	pos     int64
	scratch [10]byte
}

var _ Output = (*StreamOutput)(nil)

// NewStreamOutput creates a checksummed Output over w. The caller retains
// ownership of w; closing it after the footer is written is the caller's
// responsibility.
func NewStreamOutput(w io.Writer) *StreamOutput {
	return &StreamOutput{
		w:      w,
		engine: endian.GetBigEndianEngine(),
		crc:    crc32.NewIEEE(),
	}
}

// Position returns the number of bytes written so far.
func (o *StreamOutput) Position() int64 {
	return o.pos
}

// Checksum returns the CRC32 of all bytes written so far.
func (o *StreamOutput) Checksum() uint32 {
	return o.crc.Sum32()
}

func (o *StreamOutput) write(p []byte) error {
	n, err := o.w.Write(p)
	o.pos += int64(n)
	if err != nil {
		return err
	}
	_, _ = o.crc.Write(p) // hash.Hash never errors
	return nil
}

func (o *StreamOutput) WriteByte(b byte) error {
	o.scratch[0] = b
	return o.write(o.scratch[:1])
}

func (o *StreamOutput) WriteBytes(p []byte) error {
	return o.write(p)
}

func (o *StreamOutput) WriteInt16(v int16) error {
	o.engine.PutUint16(o.scratch[:2], uint16(v))
	return o.write(o.scratch[:2])
}

func (o *StreamOutput) WriteInt32(v int32) error {
	o.engine.PutUint32(o.scratch[:4], uint32(v))
	return o.write(o.scratch[:4])
}

func (o *StreamOutput) WriteInt64(v int64) error {
	o.engine.PutUint64(o.scratch[:8], uint64(v))
	return o.write(o.scratch[:8])
}

func (o *StreamOutput) WriteUvarint(v uint64) error {
	n := binary.PutUvarint(o.scratch[:], v)
	return o.write(o.scratch[:n])
}

// BufferOutput is an in-memory Output used to stage regions whose length
// must be known before they reach the data stream, such as monotonic
// address tables and packed numeric block payloads.
//
// The backing buffer comes from the scratch pool; call Release when done.
type BufferOutput struct {
	buf    *pool.ByteBuffer
	engine endian.EndianEngine
}

var _ Output = (*BufferOutput)(nil)

// NewBufferOutput creates an empty BufferOutput backed by a pooled buffer.
func NewBufferOutput() *BufferOutput {
	return &BufferOutput{
		buf:    pool.GetScratchBuffer(),
		engine: endian.GetBigEndianEngine(),
	}
}

// Position returns the number of bytes buffered so far.
func (o *BufferOutput) Position() int64 {
	return int64(o.buf.Len())
}

// Bytes returns the buffered bytes. The slice is invalidated by the next
// write or Reset.
func (o *BufferOutput) Bytes() []byte {
	return o.buf.Bytes()
}

// Reset discards the buffered bytes, retaining capacity.
func (o *BufferOutput) Reset() {
	o.buf.Reset()
}

// CopyTo appends the buffered bytes to dst.
func (o *BufferOutput) CopyTo(dst Output) error {
	return dst.WriteBytes(o.buf.Bytes())
}

// Release returns the backing buffer to the pool. The BufferOutput must not
// be used afterwards.
func (o *BufferOutput) Release() {
	pool.PutScratchBuffer(o.buf)
	o.buf = nil
}

func (o *BufferOutput) WriteByte(b byte) error {
	return o.buf.WriteByte(b)
}

func (o *BufferOutput) WriteBytes(p []byte) error {
	o.buf.MustWrite(p)
	return nil
}

func (o *BufferOutput) WriteInt16(v int16) error {
	o.buf.B = o.engine.AppendUint16(o.buf.B, uint16(v))
	return nil
}

func (o *BufferOutput) WriteInt32(v int32) error {
	o.buf.B = o.engine.AppendUint32(o.buf.B, uint32(v))
	return nil
}

func (o *BufferOutput) WriteInt64(v int64) error {
	o.buf.B = o.engine.AppendUint64(o.buf.B, uint64(v))
	return nil
}

func (o *BufferOutput) WriteUvarint(v uint64) error {
	o.buf.B = binary.AppendUvarint(o.buf.B, v)
	return nil
}
