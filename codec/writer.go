package codec

import (
	"fmt"
	"io"

	"github.com/arloliu/colvals/compress"
	"github.com/arloliu/colvals/errs"
	"github.com/arloliu/colvals/format"
	"github.com/arloliu/colvals/internal/hash"
	"github.com/arloliu/colvals/internal/options"
	"github.com/arloliu/colvals/internal/pool"
	"github.com/arloliu/colvals/store"
)

// Config carries the per-segment parameters of a Writer.
type Config struct {
	// MaxDoc is the document count of the segment. Doc ids produced by
	// cursors must be in [0, MaxDoc).
	MaxDoc int

	// SegmentName identifies the segment; it seeds the stream headers'
	// segment id when none is supplied via WithSegmentID.
	SegmentName string

	// SegmentSuffix distinguishes multiple doc-values streams of the same
	// segment. Usually empty.
	SegmentSuffix string
}

// Option configures a Writer.
type Option = options.Option[*Writer]

// WithDenseRankPower overrides the rank-index granularity passed to the
// presence-bitmap writer. Valid values are in [7, 15], or -1 to disable
// rank indexing.
func WithDenseRankPower(power int8) Option {
	return options.New(func(w *Writer) error {
		if (power < 7 || power > 15) && power != -1 {
			return fmt.Errorf("%w: denseRankPower must be in [7, 15] or -1, got %d",
				errs.ErrInvalidConfig, power)
		}
		w.denseRankPower = power
		return nil
	})
}

// WithSegmentID supplies the 16-byte segment id stamped into both stream
// headers instead of the one derived from the segment name.
func WithSegmentID(id []byte) Option {
	return options.New(func(w *Writer) error {
		if len(id) != hash.SegmentIDLength {
			return fmt.Errorf("%w: segment id must be %d bytes, got %d",
				errs.ErrInvalidConfig, hash.SegmentIDLength, len(id))
		}
		w.segmentID = append([]byte(nil), id...)
		return nil
	})
}

// Writer emits the doc-values columns of one segment into a data stream and
// a metadata stream.
//
// The Writer is NOT thread-safe and NOT reusable: one field at a time, then
// Close. After a write error the segment is invalid and must be discarded
// by the caller.
type Writer struct {
	data *store.StreamOutput
	meta *store.StreamOutput

	maxDoc         int
	denseRankPower int8
	segmentID      []byte

	// termsDict is the scratch buffer holding one term-dictionary block
	// (dictionary term plus front-coded remainder) before compression. It
	// is reused across fields and grows monotonically.
	termsDict *pool.ByteBuffer
	lz4       compress.LZ4Compressor
	lz4Dst    []byte

	closed bool
}

// NewWriter creates a segment writer over the given data and metadata
// sinks and writes the framed stream headers. The caller owns the
// underlying files: on error from NewWriter or any later call, it must
// delete the partial outputs.
func NewWriter(dataW, metaW io.Writer, cfg Config, opts ...Option) (*Writer, error) {
	if cfg.MaxDoc <= 0 {
		return nil, fmt.Errorf("%w: maxDoc must be positive, got %d", errs.ErrInvalidConfig, cfg.MaxDoc)
	}

	w := &Writer{
		data:           store.NewStreamOutput(dataW),
		meta:           store.NewStreamOutput(metaW),
		maxDoc:         cfg.MaxDoc,
		denseRankPower: format.DefaultDenseRankPower,
		lz4:            compress.NewLZ4Compressor(),
	}

	if err := options.Apply(w, opts...); err != nil {
		return nil, err
	}

	if w.segmentID == nil {
		w.segmentID = hash.SegmentID(cfg.SegmentName+cfg.SegmentSuffix, uint64(cfg.MaxDoc))
	}

	err := store.WriteIndexHeader(w.data, format.DataCodecName, format.VersionCurrent, w.segmentID, cfg.SegmentSuffix)
	if err != nil {
		return nil, err
	}
	err = store.WriteIndexHeader(w.meta, format.MetaCodecName, format.VersionCurrent, w.segmentID, cfg.SegmentSuffix)
	if err != nil {
		return nil, err
	}

	w.termsDict = pool.GetScratchBuffer()

	return w, nil
}

// Close terminates the metadata stream with the end-of-fields sentinel and
// writes both stream trailers. The writer cannot be used afterwards.
//
// Close does not close the underlying io.Writers; flushing and closing the
// files stays with the caller, as does deleting them if Close fails.
func (w *Writer) Close() error {
	if w.closed {
		return errs.ErrClosed
	}
	w.closed = true

	pool.PutScratchBuffer(w.termsDict)
	w.termsDict = nil

	if err := w.meta.WriteInt32(-1); err != nil {
		return err
	}
	if err := store.WriteFooter(w.meta); err != nil {
		return err
	}

	return store.WriteFooter(w.data)
}

// fieldHeader writes the per-field metadata prefix shared by all field
// types.
func (w *Writer) fieldHeader(fieldNumber int32, t format.DocValuesType) error {
	if w.closed {
		return errs.ErrClosed
	}
	if err := w.meta.WriteInt32(fieldNumber); err != nil {
		return err
	}

	return w.meta.WriteByte(byte(t))
}

// AddNumericField writes a field holding at most one int64 per document.
func (w *Writer) AddNumericField(fieldNumber int32, src NumericSource) error {
	if err := w.fieldHeader(fieldNumber, format.Numeric); err != nil {
		return err
	}

	_, _, err := w.writeValues(singletonSource(src), false)

	return err
}

// AddBinaryField writes a field holding at most one byte string per
// document.
func (w *Writer) AddBinaryField(fieldNumber int32, src BinarySource) error {
	if err := w.fieldHeader(fieldNumber, format.Binary); err != nil {
		return err
	}

	return w.writeBinary(src)
}

// AddSortedField writes a field holding at most one term per document,
// stored as an ordinal into the field's term dictionary.
func (w *Writer) AddSortedField(fieldNumber int32, vals SortedValues) error {
	if err := w.fieldHeader(fieldNumber, format.Sorted); err != nil {
		return err
	}

	return w.addSortedField(vals)
}

// AddSortedNumericField writes a field holding one or more int64s per
// document.
func (w *Writer) AddSortedNumericField(fieldNumber int32, src SortedNumericSource) error {
	if err := w.fieldHeader(fieldNumber, format.SortedNumeric); err != nil {
		return err
	}

	return w.addSortedNumericField(src, false)
}

// AddSortedSetField writes a field holding one or more terms per document.
// Fields where no document has more than one term collapse to the Sorted
// layout.
func (w *Writer) AddSortedSetField(fieldNumber int32, vals SortedSetValues) error {
	if err := w.fieldHeader(fieldNumber, format.SortedSet); err != nil {
		return err
	}

	return w.addSortedSetField(vals)
}
