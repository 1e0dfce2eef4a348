package store

import (
	"fmt"

	"github.com/arloliu/colvals/errs"
	"github.com/arloliu/colvals/internal/hash"
)

const (
	// HeaderMagic opens every framed stream.
	HeaderMagic = 0x3fd76c17

	// FooterMagic opens the trailer of every framed stream. It is the
	// bitwise complement of HeaderMagic (0xc02893e8 as an unsigned word).
	FooterMagic = ^HeaderMagic
)

// WriteIndexHeader frames the start of a stream with the codec name, format
// version, 16-byte segment id, and segment suffix. Both the data and the
// metadata stream of a segment carry this header so a reader can verify it
// opened a matching pair.
func WriteIndexHeader(out Output, codecName string, version int32, segmentID []byte, suffix string) error {
	if len(segmentID) != hash.SegmentIDLength {
		return fmt.Errorf("%w: segment id must be %d bytes, got %d",
			errs.ErrInvalidConfig, hash.SegmentIDLength, len(segmentID))
	}
	if err := out.WriteInt32(HeaderMagic); err != nil {
		return err
	}
	if err := writeString(out, codecName); err != nil {
		return err
	}
	if err := out.WriteInt32(version); err != nil {
		return err
	}
	if err := out.WriteBytes(segmentID); err != nil {
		return err
	}
	return writeString(out, suffix)
}

// WriteFooter closes a stream with the footer magic, a zero flags word, and
// the CRC32 of everything written before the checksum itself.
func WriteFooter(out *StreamOutput) error {
	if err := out.WriteInt32(FooterMagic); err != nil {
		return err
	}
	if err := out.WriteInt32(0); err != nil {
		return err
	}
	// The checksum covers the footer magic and flags as well, so read it
	// only after they are written.
	return out.WriteInt64(int64(out.Checksum()))
}

func writeString(out Output, s string) error {
	if err := out.WriteUvarint(uint64(len(s))); err != nil {
		return err
	}
	return out.WriteBytes([]byte(s))
}
