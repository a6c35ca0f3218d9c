/*
rollsum implements the weak rolling checksum used to scan seed files for
blocks that match the target file described by a zsync control file.

It is inspired by the rsync/zsync rolling checksum: two 16bit accumulators
a and b, updatable in O(1) per byte as the window slides forward one byte
at a time. Unlike a generic hash.Hash, Rsum exposes its two halves directly,
because the matcher (package comparer) needs to mask and compare them
independently, and needs to keep two windows (current and next block) alive
at once when sequential matching is in use.
*/
package rollsum

import "encoding/binary"

// Rsum is the pair (a, b) that makes up one weak checksum, matching the
// wire representation used by the zsync control file: two big-endian
// uint16 halves, only the low WeakBytes(width) bytes of which are
// significant.
type Rsum struct {
	A, B uint16
}

// Full computes the rsum of buf from scratch, matching calc_rsum_block in
// the original zsync source: a is the sum of the bytes, b is the sum of
// each byte weighted by its distance from the end of the window.
func Full(buf []byte) Rsum {
	var a, b uint16
	l := len(buf)
	for i, c := range buf {
		a += uint16(c)
		b += uint16(l-i) * uint16(c)
	}
	return Rsum{A: a, B: b}
}

// Roll advances the window by one byte: old leaves the window at its
// trailing edge, newb enters at its leading edge. blockShift is
// log2(blockSize); it stands in for a multiply by blockSize, since
// blockSize is always a power of two (spec.md §3).
//
// This is the UPDATE_RSUM macro from the original zsync source, applied
// with plain uint16 wraparound arithmetic (no widening) to match it
// exactly.
func (r *Rsum) Roll(old, newb byte, blockShift uint) {
	r.A += uint16(newb) - uint16(old)
	r.B += r.A - uint16(old)<<blockShift
}

// Width is the number of significant bytes of the combined checksum, as
// declared by the control file (weak_bytes, 1..4).
type Width uint8

// Mask returns the bitmask applied to A per spec.md §3 (ZsyncCoreJob_p.cc:95
// `weakCheckSumBytes < 3 ? 0 : weakCheckSumBytes == 3 ? 0xff : 0xffff`):
// widths 1 and 2 carry no bytes of a at all (mask 0, the checksum is
// entirely in b), width 3 keeps a's low byte, and width 4 keeps all of a.
func (w Width) Mask() uint16 {
	switch {
	case w < 3:
		return 0
	case w == 3:
		return 0xff
	default:
		return 0xffff
	}
}

// EncodeBigEndian is the inverse of DecodeBigEndian: it writes the low
// Width bytes of the combined big-endian (a, b) field, which is what a
// control file actually stores on the wire for narrower widths.
func EncodeBigEndian(rs Rsum, width Width) []byte {
	var buf [4]byte
	combined := uint32(rs.A)<<16 | uint32(rs.B)
	binary.BigEndian.PutUint32(buf[:], combined)
	return append([]byte(nil), buf[4-int(width):]...)
}

// DecodeBigEndian reads a Width-byte big-endian weak checksum aligned to
// the low bytes of a 4-byte field, per the control-file wire format
// (spec.md §4.2/§6): the bytes present fill the low-order end of a 4-byte
// buffer which is then split into two big-endian uint16 halves.
func DecodeBigEndian(wire []byte, width Width) Rsum {
	var buf [4]byte
	copy(buf[4-int(width):], wire)
	combined := binary.BigEndian.Uint32(buf[:])
	return Rsum{
		A: uint16(combined >> 16),
		B: uint16(combined),
	}
}
