package codec

import (
	"fmt"
	"math"
	"sort"

	"github.com/arloliu/colvals/errs"
	"github.com/arloliu/colvals/format"
	"github.com/arloliu/colvals/internal/disi"
	"github.com/arloliu/colvals/internal/packed"
	"github.com/arloliu/colvals/internal/pool"
	"github.com/arloliu/colvals/store"
)

// minMaxTracker accumulates min, max, and value count, and converts each
// finished window into the bit cost of packing it with a locally optimal
// width. One tracker spans the whole field, a second one is reset per
// NumericBlockSize window; comparing the two costs decides block mode.
type minMaxTracker struct {
	min, max    int64
	numValues   int64
	spaceInBits int64
}

func newMinMaxTracker() *minMaxTracker {
	t := &minMaxTracker{}
	t.reset()

	return t
}

func (t *minMaxTracker) reset() {
	t.min = math.MaxInt64
	t.max = math.MinInt64
	t.numValues = 0
}

// update accumulates a new value.
func (t *minMaxTracker) update(v int64) {
	t.min = min(t.min, v)
	t.max = max(t.max, v)
	t.numValues++
}

// updateTracker accumulates state from another tracker.
func (t *minMaxTracker) updateTracker(other *minMaxTracker) {
	t.min = min(t.min, other.min)
	t.max = max(t.max, other.max)
	t.numValues += other.numValues
}

// finish adds the bit cost of the current window.
func (t *minMaxTracker) finish() {
	if t.max > t.min {
		t.spaceInBits += int64(packed.UnsignedBitsRequired(t.max-t.min)) * t.numValues
	}
}

// nextBlock closes the current window and gets ready for the next one.
func (t *minMaxTracker) nextBlock() {
	t.finish()
	t.reset()
}

func gcdInt64(a, b int64) int64 {
	if a < 0 {
		a = -a
	}
	if b < 0 {
		b = -b
	}
	for b != 0 {
		a, b = b, a%b
	}

	return a
}

// writeValues encodes one numeric stream: statistics pass, presence
// descriptor, mode selection, then the data pass. It returns the number of
// documents with a value and the total value count for the SortedNumeric
// tail. When ords is true the stream carries dictionary ordinals, which
// disables the value-dictionary path and enforces the ordinal invariants.
func (w *Writer) writeValues(src SortedNumericSource, ords bool) (int, int64, error) {
	firstValue, err := readFirstValue(src)
	if err != nil {
		return 0, 0, err
	}

	values, err := src()
	if err != nil {
		return 0, 0, err
	}

	numDocsWithValue := 0
	minMax := newMinMaxTracker()
	blockMinMax := newMinMaxTracker()
	var gcd int64
	var uniqueValues map[int64]struct{}
	if !ords {
		uniqueValues = make(map[int64]struct{})
	}

	for {
		doc, err := values.NextDoc()
		if err != nil {
			return 0, 0, err
		}
		if doc == NoMoreDocs {
			break
		}

		for i, count := 0, values.ValueCount(); i < count; i++ {
			v, err := values.NextValue()
			if err != nil {
				return 0, 0, err
			}

			if gcd != 1 {
				if v < math.MinInt64/2 || v > math.MaxInt64/2 {
					// v - firstValue might overflow and make the GCD
					// computation return wrong results, so it is abandoned
					// for these extreme values.
					gcd = 1
				} else {
					gcd = gcdInt64(gcd, v-firstValue)
				}
			}

			blockMinMax.update(v)
			if blockMinMax.numValues == format.NumericBlockSize {
				minMax.updateTracker(blockMinMax)
				blockMinMax.nextBlock()
			}

			if uniqueValues != nil {
				uniqueValues[v] = struct{}{}
				if len(uniqueValues) > format.MaxUniqueValues {
					uniqueValues = nil
				}
			}
		}

		numDocsWithValue++
	}

	minMax.updateTracker(blockMinMax)
	minMax.finish()
	blockMinMax.finish()

	if ords && minMax.numValues > 0 {
		if minMax.min != 0 {
			return 0, 0, fmt.Errorf("%w: the min value for ordinals should always be 0, got %d",
				errs.ErrInvariant, minMax.min)
		}
		if minMax.max != 0 && gcd != 1 {
			return 0, 0, fmt.Errorf("%w: GCD compression should never be used on ordinals, found gcd=%d",
				errs.ErrInvariant, gcd)
		}
	}

	numValues := minMax.numValues
	minValue := minMax.min
	maxValue := minMax.max

	err = w.writePresence(numDocsWithValue, func() (disi.NextDocFunc, error) {
		cur, err := src()
		if err != nil {
			return nil, err
		}
		return docIDNexter(cur), nil
	})
	if err != nil {
		return 0, 0, err
	}

	if err := w.meta.WriteInt64(numValues); err != nil {
		return 0, 0, err
	}

	var numBitsPerValue int
	doBlocks := false
	var encode map[int64]int64
	if minValue >= maxValue {
		// All values are identical (or the field is empty): no data bytes.
		numBitsPerValue = 0
		if err := w.meta.WriteInt32(-1); err != nil {
			return 0, 0, err
		}
	} else if uniqueValues != nil &&
		len(uniqueValues) > 1 &&
		packed.UnsignedBitsRequired(int64(len(uniqueValues)-1)) < packed.UnsignedBitsRequired((maxValue-minValue)/gcd) {
		// Dictionary encoding: a packed ordinal per value beats a packed
		// delta-over-gcd.
		numBitsPerValue = packed.UnsignedBitsRequired(int64(len(uniqueValues) - 1))

		sortedUnique := make([]int64, 0, len(uniqueValues))
		for v := range uniqueValues {
			sortedUnique = append(sortedUnique, v)
		}
		sort.Slice(sortedUnique, func(i, j int) bool { return sortedUnique[i] < sortedUnique[j] })

		if err := w.meta.WriteInt32(int32(len(sortedUnique))); err != nil {
			return 0, 0, err
		}
		encode = make(map[int64]int64, len(sortedUnique))
		for i, v := range sortedUnique {
			if err := w.meta.WriteInt64(v); err != nil {
				return 0, 0, err
			}
			encode[v] = int64(i)
		}
		minValue = 0
		gcd = 1
	} else {
		uniqueValues = nil
		// Blocks are used if they appear to save 10+% storage.
		doBlocks = minMax.spaceInBits > 0 &&
			float64(blockMinMax.spaceInBits)/float64(minMax.spaceInBits) <= 0.9
		if doBlocks {
			numBitsPerValue = format.BlockBitsSentinel
			if err := w.meta.WriteInt32(format.BlockTableSelector); err != nil {
				return 0, 0, err
			}
		} else {
			numBitsPerValue = packed.UnsignedBitsRequired((maxValue - minValue) / gcd)
			if gcd == 1 && minValue > 0 &&
				packed.UnsignedBitsRequired(maxValue) == packed.UnsignedBitsRequired(maxValue-minValue) {
				// Rebasing to 0 saves a subtraction on decode at no cost in
				// bit width.
				minValue = 0
			}
			if err := w.meta.WriteInt32(-1); err != nil {
				return 0, 0, err
			}
		}
	}

	if err := w.meta.WriteByte(byte(numBitsPerValue)); err != nil {
		return 0, 0, err
	}
	if err := w.meta.WriteInt64(minValue); err != nil {
		return 0, 0, err
	}
	if err := w.meta.WriteInt64(gcd); err != nil {
		return 0, 0, err
	}

	startOffset := w.data.Position()
	if err := w.meta.WriteInt64(startOffset); err != nil {
		return 0, 0, err
	}

	jumpTableOffset := int64(-1)
	if doBlocks {
		jumpTableOffset, err = w.writeValuesMultipleBlocks(src, gcd)
		if err != nil {
			return 0, 0, err
		}
	} else if numBitsPerValue != 0 {
		err = w.writeValuesSingleBlock(src, numValues, numBitsPerValue, minValue, gcd, encode)
		if err != nil {
			return 0, 0, err
		}
	}

	if err := w.meta.WriteInt64(w.data.Position() - startOffset); err != nil {
		return 0, 0, err
	}
	if err := w.meta.WriteInt64(jumpTableOffset); err != nil {
		return 0, 0, err
	}

	return numDocsWithValue, numValues, nil
}

// readFirstValue returns the first value of the first document, or 0 for an
// empty stream. It anchors the GCD computation: gcd(v1-first, v2-first, ...)
// equals the GCD of all pairwise differences.
func readFirstValue(src SortedNumericSource) (int64, error) {
	cur, err := src()
	if err != nil {
		return 0, err
	}
	doc, err := cur.NextDoc()
	if err != nil {
		return 0, err
	}
	if doc == NoMoreDocs {
		return 0, nil
	}

	return cur.NextValue()
}

// docIDNexter adapts a value cursor to the doc-id stream consumed by the
// presence-bitmap writer.
func docIDNexter(cur SortedNumericCursor) disi.NextDocFunc {
	return func() (int, error) {
		doc, err := cur.NextDoc()
		if err != nil {
			return 0, err
		}
		if doc == NoMoreDocs {
			return -1, nil
		}
		return doc, nil
	}
}

// writePresence emits the four-field presence descriptor, delegating to the
// bitmap writer only when the field is neither empty nor fully dense.
func (w *Writer) writePresence(numDocsWithValue int, restart func() (disi.NextDocFunc, error)) error {
	switch numDocsWithValue {
	case 0:
		return w.writePresenceSentinel(-2)
	case w.maxDoc:
		return w.writePresenceSentinel(-1)
	}

	offset := w.data.Position()
	if err := w.meta.WriteInt64(offset); err != nil { // docsWithFieldOffset
		return err
	}

	next, err := restart()
	if err != nil {
		return err
	}
	jumpTableEntryCount, err := disi.WriteBitSet(next, w.data, w.denseRankPower)
	if err != nil {
		return err
	}

	if err := w.meta.WriteInt64(w.data.Position() - offset); err != nil { // docsWithFieldLength
		return err
	}
	if err := w.meta.WriteInt16(jumpTableEntryCount); err != nil {
		return err
	}

	return w.meta.WriteByte(byte(w.denseRankPower))
}

// writePresenceSentinel writes the no-data presence forms: -2 for an empty
// field, -1 for a fully dense one.
func (w *Writer) writePresenceSentinel(docsWithFieldOffset int64) error {
	if err := w.meta.WriteInt64(docsWithFieldOffset); err != nil {
		return err
	}
	if err := w.meta.WriteInt64(0); err != nil { // docsWithFieldLength
		return err
	}
	if err := w.meta.WriteInt16(-1); err != nil { // jumpTableEntryCount
		return err
	}

	return w.meta.WriteByte(0xFF) // denseRankPower -1
}

// writeValuesSingleBlock bit-packs the whole stream with one width,
// encoding each value as a dictionary ordinal or as (v - min) / gcd.
func (w *Writer) writeValuesSingleBlock(
	src SortedNumericSource,
	numValues int64,
	numBitsPerValue int,
	minValue, gcd int64,
	encode map[int64]int64,
) error {
	values, err := src()
	if err != nil {
		return err
	}

	writer, err := packed.NewDirectWriter(w.data, numValues, numBitsPerValue)
	if err != nil {
		return err
	}

	for {
		doc, err := values.NextDoc()
		if err != nil {
			return err
		}
		if doc == NoMoreDocs {
			break
		}
		for i, count := 0, values.ValueCount(); i < count; i++ {
			v, err := values.NextValue()
			if err != nil {
				return err
			}
			if encode == nil {
				err = writer.Add((v - minValue) / gcd)
			} else {
				err = writer.Add(encode[v])
			}
			if err != nil {
				return err
			}
		}
	}

	return writer.Finish()
}

// writeValuesMultipleBlocks encodes the stream in NumericBlockSize windows,
// each with its own min and bit width, and returns the offset of the
// trailing jump table.
func (w *Writer) writeValuesMultipleBlocks(src SortedNumericSource, gcd int64) (int64, error) {
	values, err := src()
	if err != nil {
		return 0, err
	}

	buffer, release := pool.GetInt64Slice(format.NumericBlockSize)
	defer release()

	staging := store.NewBufferOutput()
	defer staging.Release()

	var offsets []int64
	upTo := 0
	for {
		doc, err := values.NextDoc()
		if err != nil {
			return 0, err
		}
		if doc == NoMoreDocs {
			break
		}
		for i, count := 0, values.ValueCount(); i < count; i++ {
			v, err := values.NextValue()
			if err != nil {
				return 0, err
			}
			buffer[upTo] = v
			upTo++
			if upTo == format.NumericBlockSize {
				offsets = append(offsets, w.data.Position())
				if err := w.writeBlock(buffer, format.NumericBlockSize, gcd, staging); err != nil {
					return 0, err
				}
				upTo = 0
			}
		}
	}
	if upTo > 0 {
		offsets = append(offsets, w.data.Position())
		if err := w.writeBlock(buffer, upTo, gcd, staging); err != nil {
			return 0, err
		}
	}

	// All blocks are written; flush the jump table, terminated by its own
	// absolute offset so the reader can locate it from the region's tail.
	jumpTableOffset := w.data.Position()
	for _, offset := range offsets {
		if err := w.data.WriteInt64(offset); err != nil {
			return 0, err
		}
	}
	if err := w.data.WriteInt64(jumpTableOffset); err != nil {
		return 0, err
	}

	return jumpTableOffset, nil
}

// writeBlock emits one numeric block: bit width, block minimum, and, for
// non-constant blocks, the packed payload length and payload.
func (w *Writer) writeBlock(values []int64, length int, gcd int64, staging *store.BufferOutput) error {
	minValue, maxValue := values[0], values[0]
	for i := 1; i < length; i++ {
		minValue = min(minValue, values[i])
		maxValue = max(maxValue, values[i])
	}

	if minValue == maxValue {
		if err := w.data.WriteByte(0); err != nil {
			return err
		}
		return w.data.WriteInt64(minValue)
	}

	bitsPerValue := packed.UnsignedBitsRequired((maxValue - minValue) / gcd)
	staging.Reset()
	writer, err := packed.NewDirectWriter(staging, int64(length), bitsPerValue)
	if err != nil {
		return err
	}
	for i := 0; i < length; i++ {
		if err := writer.Add((values[i] - minValue) / gcd); err != nil {
			return err
		}
	}
	if err := writer.Finish(); err != nil {
		return err
	}

	if err := w.data.WriteByte(byte(bitsPerValue)); err != nil {
		return err
	}
	if err := w.data.WriteInt64(minValue); err != nil {
		return err
	}
	if err := w.data.WriteInt32(int32(staging.Position())); err != nil {
		return err
	}

	return staging.CopyTo(w.data)
}
