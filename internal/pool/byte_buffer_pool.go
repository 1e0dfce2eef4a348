package pool

import (
	"io"
	"sync"
)

const (
	// ScratchBufferDefaultSize is the initial capacity of pooled scratch
	// buffers. It matches the term-dictionary block buffer: one raw first
	// term plus 31 front-coded records fit comfortably in 16 KiB.
	ScratchBufferDefaultSize = 1024 * 16 // 16KiB

	// ScratchBufferMaxThreshold is the largest buffer the pool retains.
	// Buffers grown past this (a field with very long terms) are dropped
	// instead of being cached forever.
	ScratchBufferMaxThreshold = 1024 * 1024 // 1MiB
)

// ByteBuffer is a growable byte slice with explicit length control,
// designed for reuse through GetScratchBuffer/PutScratchBuffer.
type ByteBuffer struct {
	// B is the underlying byte slice.
	B []byte
}

// NewByteBuffer creates a new ByteBuffer with the specified initial capacity.
func NewByteBuffer(capacity int) *ByteBuffer {
	return &ByteBuffer{
		B: make([]byte, 0, capacity),
	}
}

// Bytes returns the underlying byte slice.
func (bb *ByteBuffer) Bytes() []byte {
	return bb.B
}

// Reset resets the buffer to be empty, retaining the allocated memory.
func (bb *ByteBuffer) Reset() {
	bb.B = bb.B[:0]
}

// Len returns the length of the buffer.
func (bb *ByteBuffer) Len() int {
	return len(bb.B)
}

// Cap returns the capacity of the buffer.
func (bb *ByteBuffer) Cap() int {
	return cap(bb.B)
}

// MustWrite appends data to the buffer, growing it if necessary.
func (bb *ByteBuffer) MustWrite(data []byte) {
	bb.B = append(bb.B, data...)
}

// WriteByte appends a single byte to the buffer.
func (bb *ByteBuffer) WriteByte(b byte) error {
	bb.B = append(bb.B, b)
	return nil
}

// Grow ensures the buffer can hold requiredBytes more bytes without
// reallocating. If the buffer already has sufficient spare capacity, Grow
// does nothing.
//
// Small buffers grow by ScratchBufferDefaultSize to minimize reallocations;
// larger buffers grow by 25% of current capacity to balance memory usage and
// reallocation cost.
func (bb *ByteBuffer) Grow(requiredBytes int) {
	available := cap(bb.B) - len(bb.B)
	if available >= requiredBytes {
		return
	}

	growBy := ScratchBufferDefaultSize
	if cap(bb.B) > 4*ScratchBufferDefaultSize {
		growBy = cap(bb.B) / 4
	}
	if growBy < requiredBytes {
		growBy = requiredBytes
	}

	newBuf := make([]byte, len(bb.B), len(bb.B)+growBy)
	copy(newBuf, bb.B)
	bb.B = newBuf
}

// Write appends the contents of data to the buffer, growing it as needed.
func (bb *ByteBuffer) Write(data []byte) (int, error) {
	bb.B = append(bb.B, data...)
	return len(data), nil
}

// WriteTo writes the contents of the buffer to w.
func (bb *ByteBuffer) WriteTo(w io.Writer) (int64, error) {
	n, err := w.Write(bb.B)
	return int64(n), err
}

var scratchBufferPool = sync.Pool{
	New: func() any {
		return NewByteBuffer(ScratchBufferDefaultSize)
	},
}

// GetScratchBuffer retrieves a reset ByteBuffer from the pool.
func GetScratchBuffer() *ByteBuffer {
	bb, _ := scratchBufferPool.Get().(*ByteBuffer)
	bb.Reset()

	return bb
}

// PutScratchBuffer returns a ByteBuffer to the pool. Buffers grown past
// ScratchBufferMaxThreshold are dropped to keep the pool footprint bounded.
func PutScratchBuffer(bb *ByteBuffer) {
	if bb == nil || cap(bb.B) > ScratchBufferMaxThreshold {
		return
	}
	scratchBufferPool.Put(bb)
}
