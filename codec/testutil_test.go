package codec

import (
	"bytes"
	"encoding/binary"
	"math"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/arloliu/colvals/format"
)

// encodeSegment runs fn against a fresh writer and returns the raw data and
// metadata streams.
func encodeSegment(t *testing.T, maxDoc int, fn func(w *Writer)) (data, meta []byte) {
	t.Helper()

	var dataBuf, metaBuf bytes.Buffer
	w, err := NewWriter(&dataBuf, &metaBuf, Config{MaxDoc: maxDoc, SegmentName: "_test"})
	require.NoError(t, err)

	fn(w)

	require.NoError(t, w.Close())

	return dataBuf.Bytes(), metaBuf.Bytes()
}

// metaReader decodes the big-endian metadata stream in tests.
type metaReader struct {
	t   *testing.T
	b   []byte
	pos int
}

func newMetaReader(t *testing.T, b []byte) *metaReader {
	t.Helper()

	r := &metaReader{t: t, b: b}
	r.skipHeader()

	return r
}

func (r *metaReader) skipHeader() {
	r.t.Helper()
	require.Equal(r.t, uint32(0x3fd76c17), binary.BigEndian.Uint32(r.b[:4]))
	r.pos = 4
	nameLen := r.Uvarint()
	r.pos += int(nameLen)
	r.pos += 4  // version
	r.pos += 16 // segment id
	suffixLen := r.Uvarint()
	r.pos += int(suffixLen)
}

func (r *metaReader) U8() byte {
	v := r.b[r.pos]
	r.pos++
	return v
}

func (r *metaReader) I16() int16 {
	v := int16(binary.BigEndian.Uint16(r.b[r.pos:]))
	r.pos += 2
	return v
}

func (r *metaReader) I32() int32 {
	v := int32(binary.BigEndian.Uint32(r.b[r.pos:]))
	r.pos += 4
	return v
}

func (r *metaReader) I64() int64 {
	v := int64(binary.BigEndian.Uint64(r.b[r.pos:]))
	r.pos += 8
	return v
}

func (r *metaReader) Uvarint() uint64 {
	r.t.Helper()
	v, n := binary.Uvarint(r.b[r.pos:])
	require.Positive(r.t, n, "bad uvarint at offset %d", r.pos)
	r.pos += n
	return v
}

// presenceEntry mirrors the four-field presence descriptor.
type presenceEntry struct {
	docsWithFieldOffset int64
	docsWithFieldLength int64
	jumpTableEntryCount int16
	denseRankPower      byte
}

func (r *metaReader) readPresence() presenceEntry {
	return presenceEntry{
		docsWithFieldOffset: r.I64(),
		docsWithFieldLength: r.I64(),
		jumpTableEntryCount: r.I16(),
		denseRankPower:      r.U8(),
	}
}

// numericEntry mirrors the numeric per-field metadata payload.
type numericEntry struct {
	presence        presenceEntry
	numValues       int64
	tableSize       int32
	table           []int64
	bitsPerValue    byte
	min, gcd        int64
	valueOffset     int64
	valueLength     int64
	jumpTableOffset int64
}

func (r *metaReader) readNumeric() numericEntry {
	e := numericEntry{}
	e.presence = r.readPresence()
	e.numValues = r.I64()
	e.tableSize = r.I32()
	for i := int32(0); i < e.tableSize; i++ {
		e.table = append(e.table, r.I64())
	}
	e.bitsPerValue = r.U8()
	e.min = r.I64()
	e.gcd = r.I64()
	e.valueOffset = r.I64()
	e.valueLength = r.I64()
	e.jumpTableOffset = r.I64()

	return e
}

// readFieldHeader reads and checks the shared per-field metadata prefix.
func (r *metaReader) readFieldHeader(wantField int32, wantType format.DocValuesType) {
	r.t.Helper()
	require.Equal(r.t, wantField, r.I32())
	require.Equal(r.t, byte(wantType), r.U8())
}

// monoBlock mirrors one DirectMonotonicWriter block metadata record.
type monoBlock struct {
	min    int64
	avgInc float32
	offset int64
	bits   int
}

// readMonoMeta consumes the block metadata records the monotonic writer
// emitted for numValues values at the given block shift.
func (r *metaReader) readMonoMeta(numValues int64, blockShift int) []monoBlock {
	if numValues == 0 {
		return nil
	}
	blockSize := int64(1) << blockShift
	if numValues < blockSize {
		blockSize = numValues
	}
	numBlocks := (numValues + blockSize - 1) / blockSize

	blocks := make([]monoBlock, numBlocks)
	for i := range blocks {
		blocks[i] = monoBlock{
			min:    r.I64(),
			avgInc: math.Float32frombits(uint32(r.I32())),
			offset: r.I64(),
			bits:   int(r.U8()),
		}
	}

	return blocks
}

// decodeMonotonic inverts the monotonic encoding over a data region whose
// start corresponds to the writer's base position.
func decodeMonotonic(blocks []monoBlock, region []byte, numValues int64, blockShift int) []int64 {
	if numValues == 0 {
		return nil
	}
	blockSize := int64(1) << blockShift
	if numValues < blockSize {
		blockSize = numValues
	}

	values := make([]int64, 0, numValues)
	for bi, block := range blocks {
		count := blockSize
		if remaining := numValues - int64(bi)*blockSize; remaining < count {
			count = remaining
		}
		var deltas []int64
		if block.bits > 0 {
			deltas = unpackDirect(region[block.offset:], count, block.bits)
		} else {
			deltas = make([]int64, count)
		}
		for i := int64(0); i < count; i++ {
			values = append(values, block.min+int64(block.avgInc*float32(i))+deltas[i])
		}
	}

	return values
}

// unpackDirect inverts DirectWriter's MSB-first packing.
func unpackDirect(b []byte, count int64, bits int) []int64 {
	values := make([]int64, count)
	bitPos := 0
	for i := range values {
		var v uint64
		for k := 0; k < bits; k++ {
			byteIdx := bitPos >> 3
			bit := (b[byteIdx] >> (7 - (bitPos & 7))) & 1
			v = v<<1 | uint64(bit)
			bitPos++
		}
		values[i] = int64(v)
	}

	return values
}

// seqDocs returns doc ids 0..n-1.
func seqDocs(n int) []int {
	docs := make([]int, n)
	for i := range docs {
		docs[i] = i
	}
	return docs
}
