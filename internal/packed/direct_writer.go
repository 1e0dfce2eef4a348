// Package packed implements the two bit-packing primitives of the codec:
// DirectWriter packs fixed-width unsigned values, and DirectMonotonicWriter
// encodes non-decreasing int64 sequences as a linear model plus packed
// deltas.
package packed

import (
	"fmt"
	"math/bits"

	"github.com/arloliu/colvals/errs"
	"github.com/arloliu/colvals/store"
)

// supportedBitsPerValue lists the widths DirectWriter can emit. Restricting
// widths to these values keeps decoded reads aligned enough for whole-byte
// or whole-word access.
var supportedBitsPerValue = []int{1, 2, 4, 8, 12, 16, 20, 24, 28, 32, 40, 48, 56, 64}

// IsSupportedBitsPerValue reports whether bitsPerValue is a width
// DirectWriter can emit.
func IsSupportedBitsPerValue(bitsPerValue int) bool {
	for _, bpv := range supportedBitsPerValue {
		if bpv == bitsPerValue {
			return true
		}
	}
	return false
}

// UnsignedBitsRequired returns the smallest supported bit width that can
// hold values in [0, maxValue]. maxValue must be non-negative; zero needs
// one bit.
func UnsignedBitsRequired(maxValue int64) int {
	exact := max(1, 64-bits.LeadingZeros64(uint64(maxValue)))
	for _, bpv := range supportedBitsPerValue {
		if bpv >= exact {
			return bpv
		}
	}
	return 64
}

// DirectWriter packs non-negative values of a fixed bit width into an
// output, most-significant bit first. The number of values must be declared
// up front; Finish pads the stream so readers may over-read a few bytes
// past the last value.
type DirectWriter struct {
	out          store.Output
	numValues    int64
	bitsPerValue int
	count        int64

	acc      uint64 // bits accumulated, right-aligned
	accBits  uint   // number of valid bits in acc, always < 8
	finished bool
}

// NewDirectWriter creates a writer for numValues values of the given
// supported bit width.
func NewDirectWriter(out store.Output, numValues int64, bitsPerValue int) (*DirectWriter, error) {
	if !IsSupportedBitsPerValue(bitsPerValue) {
		return nil, fmt.Errorf("%w: unsupported bitsPerValue %d", errs.ErrInvalidConfig, bitsPerValue)
	}
	if numValues < 0 {
		return nil, fmt.Errorf("%w: negative numValues %d", errs.ErrInvalidConfig, numValues)
	}

	return &DirectWriter{
		out:          out,
		numValues:    numValues,
		bitsPerValue: bitsPerValue,
	}, nil
}

// Add appends one value. The value must be non-negative and fit the
// declared bit width.
func (w *DirectWriter) Add(v int64) error {
	if w.finished {
		return fmt.Errorf("%w: writer already finished", errs.ErrTooManyValues)
	}
	if w.count >= w.numValues {
		return fmt.Errorf("%w: declared %d values", errs.ErrTooManyValues, w.numValues)
	}
	if w.bitsPerValue < 64 && (v < 0 || v >= int64(1)<<w.bitsPerValue) {
		return fmt.Errorf("%w: value %d does not fit in %d bits", errs.ErrValueOutOfRange, v, w.bitsPerValue)
	}

	u := uint64(v)
	remaining := uint(w.bitsPerValue)
	for remaining > 0 {
		take := 8 - w.accBits
		if take > remaining {
			take = remaining
		}
		chunk := (u >> (remaining - take)) & ((1 << take) - 1)
		w.acc = w.acc<<take | chunk
		w.accBits += take
		remaining -= take
		if w.accBits == 8 {
			if err := w.out.WriteByte(byte(w.acc)); err != nil {
				return err
			}
			w.acc = 0
			w.accBits = 0
		}
	}
	w.count++

	return nil
}

// Finish flushes the final partial byte and writes three zero padding bytes.
// All declared values must have been added.
func (w *DirectWriter) Finish() error {
	if w.finished {
		return nil
	}
	if w.count != w.numValues {
		return fmt.Errorf("%w: added %d of %d values", errs.ErrValueCountMismatch, w.count, w.numValues)
	}
	w.finished = true

	if w.accBits > 0 {
		if err := w.out.WriteByte(byte(w.acc << (8 - w.accBits))); err != nil {
			return err
		}
		w.acc = 0
		w.accBits = 0
	}
	// Padding lets readers fetch a full word at the last value's offset.
	for i := 0; i < 3; i++ {
		if err := w.out.WriteByte(0); err != nil {
			return err
		}
	}

	return nil
}
