// Package colvals implements the write path of a columnar doc-values
// format for search engine segments.
//
// Given per-field, per-document values, a Writer emits two byte streams —
// a bulk data stream and a small metadata stream — that together allow a
// companion reader to randomly access five families of typed columns:
// Numeric, Binary, Sorted, SortedNumeric, and SortedSet.
//
// # Core Features
//
//   - Statistics-driven numeric compression: constant, dictionary,
//     block-wise, or delta/GCD bit packing, chosen per field
//   - LZ4 front-coded term dictionaries with block address tables and a
//     sparse reverse sort-key index for seek-by-term
//   - Presence bitmaps with all/none sentinels for dense and empty fields
//   - Monotonic address tables for variable-length and multi-valued data
//   - Framed streams with CRC32 trailers
//
// # Basic Usage
//
//	var data, meta bytes.Buffer
//	w, _ := colvals.NewWriter(&data, &meta, colvals.Config{
//	    MaxDoc:      4,
//	    SegmentName: "_0",
//	})
//	w.AddNumericField(1, colvals.NewSliceNumeric(
//	    []int{0, 1, 2, 3}, []int64{10, 20, 30, 40}))
//	w.Close()
//
// This package re-exports the most common entry points of the codec
// package; advanced callers can use codec, store, and format directly.
package colvals

import "github.com/arloliu/colvals/codec"

// Writer emits the doc-values columns of one segment. See codec.Writer.
type Writer = codec.Writer

// Config carries the per-segment writer parameters. See codec.Config.
type Config = codec.Config

// Option configures a Writer.
type Option = codec.Option

// Cursor and source contracts, re-exported for callers that implement
// their own value producers.
type (
	NumericCursor       = codec.NumericCursor
	NumericSource       = codec.NumericSource
	BinaryCursor        = codec.BinaryCursor
	BinarySource        = codec.BinarySource
	SortedNumericCursor = codec.SortedNumericCursor
	SortedNumericSource = codec.SortedNumericSource
	TermCursor          = codec.TermCursor
	SortedValues        = codec.SortedValues
	SortedSetValues     = codec.SortedSetValues
)

// NoMoreDocs is returned by NextDoc when a cursor is exhausted.
const NoMoreDocs = codec.NoMoreDocs

// NewWriter creates a segment writer over the given data and metadata
// sinks and writes the framed stream headers.
var NewWriter = codec.NewWriter

// Slice-backed sources for in-memory values.
var (
	NewSliceNumeric       = codec.NewSliceNumeric
	NewSliceBinary        = codec.NewSliceBinary
	NewSliceSortedNumeric = codec.NewSliceSortedNumeric
	NewSliceSorted        = codec.NewSliceSorted
	NewSliceSortedSet     = codec.NewSliceSortedSet
)

// WithDenseRankPower and WithSegmentID configure a Writer.
var (
	WithDenseRankPower = codec.WithDenseRankPower
	WithSegmentID      = codec.WithSegmentID
)
