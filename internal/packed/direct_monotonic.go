package packed

import (
	"fmt"
	"math"

	"github.com/arloliu/colvals/errs"
	"github.com/arloliu/colvals/store"
)

const (
	// MinMonotonicBlockShift and MaxMonotonicBlockShift bound the block
	// size of DirectMonotonicWriter.
	MinMonotonicBlockShift = 2
	MaxMonotonicBlockShift = 22
)

// DirectMonotonicWriter encodes a non-decreasing int64 sequence.
//
// Values are grouped into blocks of 1<<blockShift. Each block is modeled as
// min + i*avgInc; the residuals are rebased to zero and bit-packed with
// DirectWriter. Per block the writer emits to the metadata output: the
// rebased minimum (int64), the float32 bits of avgInc (int32), the block's
// data offset relative to the writer's creation position (int64), and the
// residual bit width (int8, 0 when the model is exact and no data bytes
// follow).
//
// The caller declares the value count up front and must add exactly that
// many values before Finish.
type DirectMonotonicWriter struct {
	meta      store.Output
	data      store.Output
	numValues int64
	base      int64

	buffer   []int64
	bufLen   int
	count    int64
	previous int64
	finished bool
}

// NewDirectMonotonicWriter creates a monotonic writer that sends block
// metadata to meta and packed residuals to data.
func NewDirectMonotonicWriter(meta, data store.Output, numValues int64, blockShift int) (*DirectMonotonicWriter, error) {
	if blockShift < MinMonotonicBlockShift || blockShift > MaxMonotonicBlockShift {
		return nil, fmt.Errorf("%w: blockShift must be in [%d, %d], got %d",
			errs.ErrInvalidConfig, MinMonotonicBlockShift, MaxMonotonicBlockShift, blockShift)
	}
	if numValues < 0 {
		return nil, fmt.Errorf("%w: negative numValues %d", errs.ErrInvalidConfig, numValues)
	}

	return &DirectMonotonicWriter{
		meta:      meta,
		data:      data,
		numValues: numValues,
		base:      data.Position(),
		buffer:    make([]int64, min(int64(1)<<blockShift, max(numValues, 1))),
		previous:  math.MinInt64,
	}, nil
}

// Add appends one value, which must be greater than or equal to the
// previous value.
func (w *DirectMonotonicWriter) Add(v int64) error {
	if w.finished {
		return fmt.Errorf("%w: writer already finished", errs.ErrTooManyValues)
	}
	if w.count >= w.numValues {
		return fmt.Errorf("%w: declared %d values", errs.ErrTooManyValues, w.numValues)
	}
	if v < w.previous {
		return fmt.Errorf("%w: %d after %d", errs.ErrNonMonotonic, v, w.previous)
	}
	w.previous = v

	w.buffer[w.bufLen] = v
	w.bufLen++
	w.count++
	if w.bufLen == len(w.buffer) {
		return w.flush()
	}

	return nil
}

// Finish flushes the tail block. Exactly the declared number of values must
// have been added.
func (w *DirectMonotonicWriter) Finish() error {
	if w.finished {
		return nil
	}
	if w.count != w.numValues {
		return fmt.Errorf("%w: added %d of %d values", errs.ErrValueCountMismatch, w.count, w.numValues)
	}
	w.finished = true
	if w.bufLen > 0 {
		return w.flush()
	}

	return nil
}

func (w *DirectMonotonicWriter) flush() error {
	n := w.bufLen
	w.bufLen = 0

	var avgInc float32
	if n > 1 {
		avgInc = float32(float64(w.buffer[n-1]-w.buffer[0]) / float64(n-1))
	}
	for i := 0; i < n; i++ {
		expected := int64(avgInc * float32(i))
		w.buffer[i] -= expected
	}

	minValue := w.buffer[0]
	for i := 1; i < n; i++ {
		if w.buffer[i] < minValue {
			minValue = w.buffer[i]
		}
	}

	var maxDelta int64
	for i := 0; i < n; i++ {
		w.buffer[i] -= minValue
		if w.buffer[i] > maxDelta {
			maxDelta = w.buffer[i]
		}
	}

	if err := w.meta.WriteInt64(minValue); err != nil {
		return err
	}
	if err := w.meta.WriteInt32(int32(math.Float32bits(avgInc))); err != nil {
		return err
	}
	if err := w.meta.WriteInt64(w.data.Position() - w.base); err != nil {
		return err
	}

	if maxDelta == 0 {
		return w.meta.WriteByte(0)
	}

	bitsRequired := UnsignedBitsRequired(maxDelta)
	dw, err := NewDirectWriter(w.data, int64(n), bitsRequired)
	if err != nil {
		return err
	}
	for i := 0; i < n; i++ {
		if err := dw.Add(w.buffer[i]); err != nil {
			return err
		}
	}
	if err := dw.Finish(); err != nil {
		return err
	}

	return w.meta.WriteByte(byte(bitsRequired))
}
