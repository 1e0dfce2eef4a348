// Package disi serializes the set of documents that carry a value for a
// field, block by block, with a trailing jump table for fast advance on the
// read side.
//
// Documents are grouped into blocks of 65536 ids sharing their upper 16
// bits. Each non-empty block opens with the block index (int16) and its
// cardinality minus one (int16), followed by one of three bodies:
//
//   - sparse (cardinality <= 256): the low 16 bits of every doc id
//   - all (cardinality == 65536): no body
//   - dense: an optional rank table, then the 8 KiB bitmap as big-endian
//     64-bit words
//
// The rank table, present when denseRankPower is in [7, 15], holds one
// uint16 per 1<<denseRankPower bits with the number of bits set before that
// chunk inside the block.
//
// After the last block, a jump table holds one (offset-from-origin int32,
// preceding-cardinality int32) pair per block index, closed by a
// terminating pair past the final block; empty blocks point at the next
// written block. The entry count is returned to the caller, which records
// it in field metadata. The table is omitted when it would hold a single
// entry, in which case WriteBitSet returns -1.
package disi

import (
	"fmt"
	"math/bits"

	"github.com/RoaringBitmap/roaring/v2"

	"github.com/arloliu/colvals/errs"
	"github.com/arloliu/colvals/store"
)

const (
	blockShift = 16
	blockSize  = 1 << blockShift
	blockMask  = blockSize - 1

	// maxSparseLength is the largest cardinality stored as an id list; past
	// it the block switches to the bitmap body.
	maxSparseLength = 256

	denseWords = blockSize / 64
)

// NextDocFunc yields strictly increasing doc ids and returns a negative
// value when exhausted.
type NextDocFunc func() (int, error)

// WriteBitSet serializes the doc-id set produced by next and returns the
// number of jump-table entries written, or -1 when the jump table was
// omitted.
func WriteBitSet(next NextDocFunc, out store.Output, denseRankPower int8) (int16, error) {
	if (denseRankPower < 7 || denseRankPower > 15) && denseRankPower != -1 {
		return 0, fmt.Errorf("%w: denseRankPower must be in [7, 15] or -1, got %d",
			errs.ErrInvalidConfig, denseRankPower)
	}

	origin := out.Position()

	// Jump table entries are accumulated in memory; each block contributes
	// one (offset, cardinality) pair per block index it covers.
	var jumpOffsets []int32
	var jumpCardinalities []int32
	totalCardinality := 0

	buffer := roaring.New()
	prevBlock := -1
	jumpFrom := 0
	prevDoc := -1

	// addJumps records one entry per block index in [jumpFrom, upTo), all
	// pointing at the current output position; empty blocks thus point at
	// the next written block.
	addJumps := func(upTo int) {
		offset := int32(out.Position() - origin)
		for b := jumpFrom; b < upTo; b++ {
			jumpOffsets = append(jumpOffsets, offset)
			jumpCardinalities = append(jumpCardinalities, int32(totalCardinality))
		}
		jumpFrom = upTo
	}

	for {
		doc, err := next()
		if err != nil {
			return 0, err
		}
		if doc < 0 {
			break
		}
		if doc <= prevDoc {
			return 0, fmt.Errorf("%w: doc %d after %d", errs.ErrDocOrder, doc, prevDoc)
		}
		prevDoc = doc

		block := doc >> blockShift
		if prevBlock != -1 && block != prevBlock {
			// Entries up to and including prevBlock point at prevBlock's
			// start, which is the current position since its bytes are
			// still buffered.
			addJumps(prevBlock + 1)
			card := int(buffer.GetCardinality())
			if err := flushBlock(out, prevBlock, buffer, denseRankPower); err != nil {
				return 0, err
			}
			totalCardinality += card
			buffer.Clear()
		}
		buffer.Add(uint32(doc & blockMask))
		prevBlock = block
	}

	if prevBlock != -1 {
		addJumps(prevBlock + 1)
		card := int(buffer.GetCardinality())
		if err := flushBlock(out, prevBlock, buffer, denseRankPower); err != nil {
			return 0, err
		}
		totalCardinality += card
		// Terminating entry so readers can bound the final block.
		addJumps(prevBlock + 2)
	}

	entryCount := len(jumpOffsets)
	if entryCount <= 1 {
		return -1, nil
	}

	for i := 0; i < entryCount; i++ {
		if err := out.WriteInt32(jumpOffsets[i]); err != nil {
			return 0, err
		}
		if err := out.WriteInt32(jumpCardinalities[i]); err != nil {
			return 0, err
		}
	}

	return int16(entryCount), nil
}

func flushBlock(out store.Output, block int, buffer *roaring.Bitmap, denseRankPower int8) error {
	cardinality := int(buffer.GetCardinality())
	if cardinality == 0 {
		return nil
	}

	if err := out.WriteInt16(int16(block)); err != nil {
		return err
	}
	if err := out.WriteInt16(int16(cardinality - 1)); err != nil {
		return err
	}

	switch {
	case cardinality == blockSize:
		// All docs present: the header alone encodes the block.
		return nil
	case cardinality <= maxSparseLength:
		it := buffer.Iterator()
		for it.HasNext() {
			if err := out.WriteInt16(int16(it.Next())); err != nil {
				return err
			}
		}
		return nil
	default:
		return flushDense(out, buffer, denseRankPower)
	}
}

func flushDense(out store.Output, buffer *roaring.Bitmap, denseRankPower int8) error {
	var words [denseWords]uint64
	it := buffer.Iterator()
	for it.HasNext() {
		bit := it.Next()
		words[bit>>6] |= 1 << (bit & 63)
	}

	if denseRankPower != -1 {
		// One rank entry per 1<<denseRankPower bits, i.e. per
		// 1<<(denseRankPower-6) words.
		wordsPerChunk := 1 << (denseRankPower - 6)
		rank := 0
		for w := 0; w < denseWords; w += wordsPerChunk {
			if err := out.WriteInt16(int16(rank)); err != nil {
				return err
			}
			for i := w; i < w+wordsPerChunk; i++ {
				rank += bits.OnesCount64(words[i])
			}
		}
	}

	for _, word := range words {
		if err := out.WriteInt64(int64(word)); err != nil {
			return err
		}
	}

	return nil
}
