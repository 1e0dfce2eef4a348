package codec

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/arloliu/colvals/format"
)

// ==============================================================================
// Mode selection and metadata layout
// ==============================================================================

func TestNumeric_DeltaGCD(t *testing.T) {
	data, meta := encodeSegment(t, 4, func(w *Writer) {
		require.NoError(t, w.AddNumericField(1, NewSliceNumeric(
			seqDocs(4), []int64{10, 20, 30, 40})))
	})

	r := newMetaReader(t, meta)
	r.readFieldHeader(1, format.Numeric)
	e := r.readNumeric()

	// All docs have a value: the dense presence sentinel, no data bytes.
	require.Equal(t, int64(-1), e.presence.docsWithFieldOffset)
	require.Equal(t, int64(0), e.presence.docsWithFieldLength)
	require.Equal(t, int16(-1), e.presence.jumpTableEntryCount)
	require.Equal(t, byte(0xFF), e.presence.denseRankPower)

	require.Equal(t, int64(4), e.numValues)
	require.Equal(t, int32(-1), e.tableSize)
	require.Equal(t, byte(2), e.bitsPerValue)
	require.Equal(t, int64(10), e.min)
	require.Equal(t, int64(10), e.gcd)
	require.Equal(t, int64(-1), e.jumpTableOffset)

	// (v - 10) / 10 over the inputs is the sequence 0..3.
	stored := unpackDirect(data[e.valueOffset:e.valueOffset+e.valueLength], 4, 2)
	require.Equal(t, []int64{0, 1, 2, 3}, stored)
}

func TestNumeric_Constant(t *testing.T) {
	_, meta := encodeSegment(t, 3, func(w *Writer) {
		require.NoError(t, w.AddNumericField(2, NewSliceNumeric(
			seqDocs(3), []int64{42, 42, 42})))
	})

	r := newMetaReader(t, meta)
	r.readFieldHeader(2, format.Numeric)
	e := r.readNumeric()

	require.Equal(t, int64(3), e.numValues)
	require.Equal(t, int32(-1), e.tableSize)
	require.Equal(t, byte(0), e.bitsPerValue)
	require.Equal(t, int64(42), e.min)
	require.Equal(t, int64(0), e.valueLength)
}

func TestNumeric_GCDBeatsDictionaryAtEqualWidth(t *testing.T) {
	// {7, 100, 7, 7, 100}: offsets from the first value have gcd 93, so a
	// packed delta costs one bit, the same as a two-entry dictionary
	// ordinal. Dictionary encoding must only win strictly.
	data, meta := encodeSegment(t, 5, func(w *Writer) {
		require.NoError(t, w.AddNumericField(3, NewSliceNumeric(
			seqDocs(5), []int64{7, 100, 7, 7, 100})))
	})

	r := newMetaReader(t, meta)
	r.readFieldHeader(3, format.Numeric)
	e := r.readNumeric()

	require.Equal(t, int32(-1), e.tableSize)
	require.Equal(t, byte(1), e.bitsPerValue)
	require.Equal(t, int64(7), e.min)
	require.Equal(t, int64(93), e.gcd)

	stored := unpackDirect(data[e.valueOffset:e.valueOffset+e.valueLength], 5, 1)
	require.Equal(t, []int64{0, 1, 0, 0, 1}, stored)
}

func TestNumeric_Dictionary(t *testing.T) {
	// Three distinct values with gcd 1 spanning 94: two ordinal bits beat
	// eight delta bits.
	data, meta := encodeSegment(t, 5, func(w *Writer) {
		require.NoError(t, w.AddNumericField(4, NewSliceNumeric(
			seqDocs(5), []int64{7, 100, 7, 7, 101})))
	})

	r := newMetaReader(t, meta)
	r.readFieldHeader(4, format.Numeric)
	e := r.readNumeric()

	require.Equal(t, int32(3), e.tableSize)
	require.Equal(t, []int64{7, 100, 101}, e.table)
	require.Equal(t, byte(2), e.bitsPerValue)
	// Dictionary mode rewrites the reconstruction parameters.
	require.Equal(t, int64(0), e.min)
	require.Equal(t, int64(1), e.gcd)

	stored := unpackDirect(data[e.valueOffset:e.valueOffset+e.valueLength], 5, 2)
	require.Equal(t, []int64{0, 1, 0, 0, 2}, stored)
}

func TestNumeric_DictionaryCapBoundary(t *testing.T) {
	// 255 small values plus one distant outlier: 256 distinct values is
	// still within the dictionary cap.
	docs := seqDocs(256)
	values := make([]int64, 256)
	for i := 0; i < 255; i++ {
		values[i] = int64(i)
	}
	values[255] = 1 << 20

	t.Run("256 distinct values keep the dictionary", func(t *testing.T) {
		_, meta := encodeSegment(t, 256, func(w *Writer) {
			require.NoError(t, w.AddNumericField(1, NewSliceNumeric(docs, values)))
		})

		r := newMetaReader(t, meta)
		r.readFieldHeader(1, format.Numeric)
		e := r.readNumeric()
		require.Equal(t, int32(256), e.tableSize)
		require.Equal(t, byte(8), e.bitsPerValue)
	})

	t.Run("257th distinct value at the end drops the dictionary", func(t *testing.T) {
		docs257 := seqDocs(257)
		values257 := append(append([]int64(nil), values...), 1<<21)

		_, meta := encodeSegment(t, 257, func(w *Writer) {
			require.NoError(t, w.AddNumericField(1, NewSliceNumeric(docs257, values257)))
		})

		r := newMetaReader(t, meta)
		r.readFieldHeader(1, format.Numeric)
		e := r.readNumeric()
		require.Equal(t, int32(-1), e.tableSize)
		require.Equal(t, int64(0), e.min)
		require.Equal(t, int64(1), e.gcd)
	})
}

func TestNumeric_MinRebasing(t *testing.T) {
	t.Run("rebased when bit width is unchanged", func(t *testing.T) {
		// max 3 and max-min 2 both need two bits, so min drops to 0 and
		// values are stored raw.
		data, meta := encodeSegment(t, 3, func(w *Writer) {
			require.NoError(t, w.AddNumericField(1, NewSliceNumeric(
				seqDocs(3), []int64{1, 2, 3})))
		})

		r := newMetaReader(t, meta)
		r.readFieldHeader(1, format.Numeric)
		e := r.readNumeric()
		require.Equal(t, int64(0), e.min)
		require.Equal(t, int64(1), e.gcd)
		require.Equal(t, byte(2), e.bitsPerValue)

		stored := unpackDirect(data[e.valueOffset:e.valueOffset+e.valueLength], 3, 2)
		require.Equal(t, []int64{1, 2, 3}, stored)
	})

	t.Run("not rebased when width would grow", func(t *testing.T) {
		// max 7 needs four bits but max-min 2 only two: keep min.
		data, meta := encodeSegment(t, 3, func(w *Writer) {
			require.NoError(t, w.AddNumericField(1, NewSliceNumeric(
				seqDocs(3), []int64{5, 6, 7})))
		})

		r := newMetaReader(t, meta)
		r.readFieldHeader(1, format.Numeric)
		e := r.readNumeric()
		require.Equal(t, int64(5), e.min)
		require.Equal(t, byte(2), e.bitsPerValue)

		stored := unpackDirect(data[e.valueOffset:e.valueOffset+e.valueLength], 3, 2)
		require.Equal(t, []int64{0, 1, 2}, stored)
	})
}

// ==============================================================================
// Presence forms
// ==============================================================================

func TestNumeric_EmptyField(t *testing.T) {
	_, meta := encodeSegment(t, 8, func(w *Writer) {
		require.NoError(t, w.AddNumericField(1, NewSliceNumeric(nil, nil)))
	})

	r := newMetaReader(t, meta)
	r.readFieldHeader(1, format.Numeric)
	e := r.readNumeric()

	require.Equal(t, int64(-2), e.presence.docsWithFieldOffset)
	require.Equal(t, int64(0), e.presence.docsWithFieldLength)
	require.Equal(t, int16(-1), e.presence.jumpTableEntryCount)
	require.Equal(t, int64(0), e.numValues)
	require.Equal(t, byte(0), e.bitsPerValue)
	require.Equal(t, int64(0), e.valueLength)
}

func TestNumeric_SparsePresence(t *testing.T) {
	data, meta := encodeSegment(t, 10, func(w *Writer) {
		require.NoError(t, w.AddNumericField(1, NewSliceNumeric(
			[]int{1, 3}, []int64{100, 200})))
	})

	r := newMetaReader(t, meta)
	r.readFieldHeader(1, format.Numeric)
	e := r.readNumeric()

	require.Positive(t, e.presence.docsWithFieldOffset)
	require.Equal(t, byte(format.DefaultDenseRankPower), e.presence.denseRankPower)
	require.Equal(t, int16(2), e.presence.jumpTableEntryCount)

	// One sparse block (header + two shorts) plus two jump entries.
	require.Equal(t, int64(8+16), e.presence.docsWithFieldLength)
	region := data[e.presence.docsWithFieldOffset:]
	require.Equal(t, uint16(0), binary.BigEndian.Uint16(region[0:2]))
	require.Equal(t, uint16(1), binary.BigEndian.Uint16(region[2:4]))
	require.Equal(t, uint16(1), binary.BigEndian.Uint16(region[4:6]))
	require.Equal(t, uint16(3), binary.BigEndian.Uint16(region[6:8]))
}

// ==============================================================================
// Block-wise encoding
// ==============================================================================

func TestNumeric_BlockMode(t *testing.T) {
	// Two full blocks whose local ranges are small compared to the global
	// range: block-wise packing saves far more than 10%. The second block
	// holds 4096 distinct values, so the dictionary path is disabled.
	n := 2 * format.NumericBlockSize
	docs := seqDocs(n)
	values := make([]int64, n)
	for i := range values {
		values[i] = int64(i % 16)
		if i >= format.NumericBlockSize {
			values[i] = 1<<30 + int64(i%4096)
		}
	}

	data, meta := encodeSegment(t, n, func(w *Writer) {
		require.NoError(t, w.AddNumericField(1, NewSliceNumeric(docs, values)))
	})

	r := newMetaReader(t, meta)
	r.readFieldHeader(1, format.Numeric)
	e := r.readNumeric()

	require.Equal(t, int32(format.BlockTableSelector), e.tableSize)
	require.Equal(t, byte(format.BlockBitsSentinel), e.bitsPerValue)
	require.Equal(t, int64(1), e.gcd)
	require.NotEqual(t, int64(-1), e.jumpTableOffset)

	// The jump table lists both block offsets and terminates with its own
	// absolute offset.
	jump := data[e.jumpTableOffset:]
	block0 := int64(binary.BigEndian.Uint64(jump[0:8]))
	block1 := int64(binary.BigEndian.Uint64(jump[8:16]))
	self := int64(binary.BigEndian.Uint64(jump[16:24]))
	require.Equal(t, e.valueOffset, block0)
	require.Greater(t, block1, block0)
	require.Equal(t, e.jumpTableOffset, self)

	// Each block opens with its bit width and local minimum.
	require.Equal(t, byte(4), data[block0])
	require.Equal(t, int64(0), int64(binary.BigEndian.Uint64(data[block0+1:])))
	require.Equal(t, byte(12), data[block1])
	require.Equal(t, int64(1<<30), int64(binary.BigEndian.Uint64(data[block1+1:])))

	// First block payload: length-prefixed packed values (i % 16) at 4 bits.
	payloadLen := int32(binary.BigEndian.Uint32(data[block0+9:]))
	require.Equal(t, int32(format.NumericBlockSize/2+3), payloadLen)
	stored := unpackDirect(data[block0+13:], 8, 4)
	require.Equal(t, []int64{0, 1, 2, 3, 4, 5, 6, 7}, stored)
}

func TestNumeric_ConstantBlock(t *testing.T) {
	// A full constant block followed by a varied one: the constant block is
	// encoded as bit width 0 and its value, with no payload.
	n := format.NumericBlockSize + 64
	docs := seqDocs(n)
	values := make([]int64, n)
	for i := range values {
		if i < format.NumericBlockSize {
			values[i] = 7
		} else {
			values[i] = 7 + int64(i%32)*(1<<25)
		}
	}

	data, meta := encodeSegment(t, n, func(w *Writer) {
		require.NoError(t, w.AddNumericField(1, NewSliceNumeric(docs, values)))
	})

	r := newMetaReader(t, meta)
	r.readFieldHeader(1, format.Numeric)
	e := r.readNumeric()

	require.Equal(t, int32(format.BlockTableSelector), e.tableSize)

	jump := data[e.jumpTableOffset:]
	block0 := int64(binary.BigEndian.Uint64(jump[0:8]))
	require.Equal(t, byte(0), data[block0])
	require.Equal(t, int64(7), int64(binary.BigEndian.Uint64(data[block0+1:])))

	// The constant block is exactly 9 bytes: the next block starts there.
	block1 := int64(binary.BigEndian.Uint64(jump[8:16]))
	require.Equal(t, block0+9, block1)
}
