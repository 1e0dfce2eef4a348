// Package endian provides byte order utilities for binary encoding.
//
// It combines the ByteOrder and AppendByteOrder interfaces of the standard
// encoding/binary package into a single EndianEngine interface, so encoders
// can both overwrite fixed positions and append to growing buffers through
// one value.
//
// The colvals streams are canonically big-endian; most code obtains its
// engine from GetBigEndianEngine:
//
//	engine := endian.GetBigEndianEngine()
//	buf = engine.AppendUint64(buf, value)
//
// The returned engines are the stateless binary.BigEndian and
// binary.LittleEndian values and are safe for concurrent use.
package endian

import "encoding/binary"

// EndianEngine combines ByteOrder and AppendByteOrder from encoding/binary
// into a single interface for convenient byte order operations.
//
// It is satisfied by binary.BigEndian and binary.LittleEndian, keeping the
// package fully compatible with standard-library code.
type EndianEngine interface {
	binary.ByteOrder
	binary.AppendByteOrder
}

// GetBigEndianEngine returns the big-endian engine, the canonical byte order
// of the colvals data and metadata streams.
func GetBigEndianEngine() EndianEngine {
	return binary.BigEndian
}

// GetLittleEndianEngine returns the little-endian engine.
func GetLittleEndianEngine() EndianEngine {
	return binary.LittleEndian
}
