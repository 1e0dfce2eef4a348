package compress

import (
	"bytes"
	"testing"

	"github.com/pierrec/lz4/v4"
	"github.com/stretchr/testify/require"
)

func TestLZ4Compressor_RoundTrip(t *testing.T) {
	c := NewLZ4Compressor()

	data := bytes.Repeat([]byte("term-prefix-shared-"), 64)
	compressed, err := c.CompressBlock(data, nil)
	require.NoError(t, err)
	require.NotEmpty(t, compressed)
	require.Less(t, len(compressed), len(data))

	restored, err := c.DecompressBlock(compressed, len(data))
	require.NoError(t, err)
	require.Equal(t, data, restored)
}

func TestLZ4Compressor_DictionaryPrefixSharing(t *testing.T) {
	c := NewLZ4Compressor()

	// The block's first term followed by suffix records that repeat most of
	// it, mirroring a term-dictionary block. The dictionary prefix must be
	// recoverable from the stream head after decompression.
	dict := []byte("application-2024-01-01")
	var block bytes.Buffer
	block.Write(dict)
	for i := 0; i < 31; i++ {
		block.Write(dict[:20])
		block.WriteByte(byte('a' + i))
	}

	compressed, err := c.CompressBlock(block.Bytes(), nil)
	require.NoError(t, err)

	restored, err := c.DecompressBlock(compressed, block.Len())
	require.NoError(t, err)
	require.Equal(t, dict, restored[:len(dict)])
	require.Equal(t, block.Bytes(), restored)
}

func TestLZ4Compressor_EmptyInput(t *testing.T) {
	c := NewLZ4Compressor()

	compressed, err := c.CompressBlock(nil, nil)
	require.NoError(t, err)
	require.Empty(t, compressed)
}

func TestLZ4Compressor_ReusesDestination(t *testing.T) {
	c := NewLZ4Compressor()

	data := bytes.Repeat([]byte("abcd"), 256)
	first, err := c.CompressBlock(data, nil)
	require.NoError(t, err)

	second, err := c.CompressBlock(data, first[:0])
	require.NoError(t, err)
	require.Equal(t, first, second)
}

func TestAppendLiteralBlock_ProducesValidLZ4(t *testing.T) {
	t.Run("short literal run", func(t *testing.T) {
		data := []byte("abc")
		block := appendLiteralBlock(nil, data)

		out := make([]byte, len(data))
		n, err := lz4.UncompressBlock(block, out)
		require.NoError(t, err)
		require.Equal(t, data, out[:n])
	})

	t.Run("long literal run with length extension", func(t *testing.T) {
		data := make([]byte, 600)
		for i := range data {
			data[i] = byte(i * 7)
		}
		block := appendLiteralBlock(nil, data)

		out := make([]byte, len(data))
		n, err := lz4.UncompressBlock(block, out)
		require.NoError(t, err)
		require.Equal(t, data, out[:n])
	})
}

func TestCompressBlock_IncompressibleFallback(t *testing.T) {
	c := NewLZ4Compressor()

	// A short sequence with no repeats longer than the LZ4 minimum match
	// is incompressible; the literal-block fallback must still produce a
	// valid stream.
	data := make([]byte, 64)
	state := uint32(2463534242)
	for i := range data {
		state ^= state << 13
		state ^= state >> 17
		state ^= state << 5
		data[i] = byte(state)
	}

	compressed, err := c.CompressBlock(data, nil)
	require.NoError(t, err)

	restored, err := c.DecompressBlock(compressed, len(data))
	require.NoError(t, err)
	require.Equal(t, data, restored)
}
