// Package hash derives segment identifiers for stream framing.
package hash

import (
	"github.com/cespare/xxhash/v2"

	"github.com/arloliu/colvals/endian"
)

// SegmentIDLength is the fixed length of a segment identifier in bytes.
const SegmentIDLength = 16

// SegmentID derives a 16-byte segment identifier from a segment name and a
// caller-supplied counter (typically a creation timestamp or sequence
// number). The id only needs to be unique per segment within an index; two
// xxHash64 digests over the name and counter, taken in both orders, give
// 128 well-mixed bits without pulling in a randomness dependency.
func SegmentID(name string, counter uint64) []byte {
	engine := endian.GetBigEndianEngine()

	id := make([]byte, 0, SegmentIDLength)

	d := xxhash.New()
	_, _ = d.WriteString(name)
	var buf [8]byte
	engine.PutUint64(buf[:], counter)
	_, _ = d.Write(buf[:])
	id = engine.AppendUint64(id, d.Sum64())

	// Second half: re-hash with the halves swapped so the two words are
	// independent.
	d.Reset()
	_, _ = d.Write(buf[:])
	_, _ = d.WriteString(name)
	id = engine.AppendUint64(id, d.Sum64())

	return id
}
