// Package compress wraps the LZ4 block codec used by the term dictionary.
//
// Term-dictionary blocks are compressed as raw LZ4 blocks whose leading
// bytes are the block's first term. The first term acts as the compression
// dictionary for the front-coded remainder: LZ4 matches may reference it,
// and the decompressor discards the leading bytes after inflating.
package compress

import (
	"errors"
	"sync"

	"github.com/pierrec/lz4/v4"
)

// lz4CompressorPool pools lz4.Compressor instances for reuse.
// The lz4.Compressor maintains an internal hash table that benefits from
// reuse across blocks.
var lz4CompressorPool = sync.Pool{
	New: func() any {
		return &lz4.Compressor{}
	},
}

// LZ4Compressor compresses and decompresses raw LZ4 blocks.
type LZ4Compressor struct{}

// NewLZ4Compressor creates a new LZ4 block compressor.
func NewLZ4Compressor() LZ4Compressor {
	return LZ4Compressor{}
}

// CompressBlock compresses data as a single LZ4 block into dst, growing dst
// as needed, and returns the compressed bytes.
//
// Incompressible input is encoded as a literal-only block rather than being
// passed through raw, so the output is always a valid LZ4 stream.
func (c LZ4Compressor) CompressBlock(data []byte, dst []byte) ([]byte, error) {
	if len(data) == 0 {
		return dst[:0], nil
	}

	bound := lz4.CompressBlockBound(len(data))
	if cap(dst) < bound {
		dst = make([]byte, bound)
	}
	dst = dst[:cap(dst)]

	lc, _ := lz4CompressorPool.Get().(*lz4.Compressor)
	defer lz4CompressorPool.Put(lc)

	n, err := lc.CompressBlock(data, dst)
	if err != nil {
		return nil, err
	}
	if n == 0 {
		// The block API signals incompressible input with a zero length.
		return appendLiteralBlock(dst[:0], data), nil
	}

	return dst[:n], nil
}

// DecompressBlock inflates a single LZ4 block of known uncompressed length.
// Within this module only the tests call it; the segment read path lives in
// the companion reader.
func (c LZ4Compressor) DecompressBlock(data []byte, uncompressedLen int) ([]byte, error) {
	if uncompressedLen == 0 {
		return nil, nil
	}

	buf := make([]byte, uncompressedLen)
	n, err := lz4.UncompressBlock(data, buf)
	if err != nil {
		return nil, err
	}
	if n != uncompressedLen {
		return nil, errors.New("lz4: unexpected decompressed length")
	}

	return buf, nil
}

// appendLiteralBlock encodes data as an LZ4 block holding a single
// literal-only sequence.
func appendLiteralBlock(dst, data []byte) []byte {
	length := len(data)
	if length < 15 {
		dst = append(dst, byte(length)<<4)
	} else {
		dst = append(dst, 0xF0)
		rest := length - 15
		for rest >= 255 {
			dst = append(dst, 255)
			rest -= 255
		}
		dst = append(dst, byte(rest))
	}

	return append(dst, data...)
}
