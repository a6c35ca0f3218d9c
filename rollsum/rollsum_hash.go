package rollsum

import (
	"github.com/probonopd/zsyncjob/circularbuffer"
)

// Hash adapts Rsum to a hash.Hash-like, streaming interface. No other
// package in this module uses it: checksum generation (package
// filechecksum) and the core matcher both work directly on Rsum via
// Full/Roll.
//
// It is backed by circularbuffer.C2 so that writing one byte at a time
// (the common case once the initial block is full) never allocates.
func NewHash(blockSize uint, width Width) *Hash {
	return &Hash{
		blockSize: blockSize,
		width:     width,
		buffer:    circularbuffer.MakeC2Buffer(int(blockSize)),
	}
}

type Hash struct {
	blockSize uint
	width     Width
	rs        Rsum
	buffer    *circularbuffer.C2
}

// Write feeds bytes into the rolling window. If len(p) >= blockSize, the
// window is reset to the trailing blockSize bytes of p (matching a fresh
// block read); otherwise the bytes are rolled in one at a time.
func (h *Hash) Write(p []byte) (n int, err error) {
	ulenP := uint(len(p))

	if ulenP >= h.blockSize {
		block := p[ulenP-h.blockSize:]
		h.buffer.Write(block)
		h.rs = Full(block)
		return len(p), nil
	}

	h.buffer.Write(p)
	evicted := h.buffer.Evicted()

	for i, c := range p {
		var old byte
		if i < len(evicted) {
			old = evicted[i]
		}
		h.rs.Roll(old, c, log2(h.blockSize))
	}

	return len(p), nil
}

func (h *Hash) Reset() {
	h.rs = Rsum{}
	h.buffer.Reset()
}

// Size is the number of significant wire bytes for this checksum's width.
func (h *Hash) Size() int {
	return int(h.width)
}

// Sum appends the big-endian wire encoding (Size() bytes, masked per
// width) of the current rsum to b.
func (h *Hash) Sum(b []byte) []byte {
	masked := h.rs
	masked.A &= h.width.Mask()

	var wire [4]byte
	wire[0] = byte(masked.A >> 8)
	wire[1] = byte(masked.A)
	wire[2] = byte(masked.B >> 8)
	wire[3] = byte(masked.B)

	return append(b, wire[4-int(h.width):]...)
}

func (h *Hash) GetLastBlock() []byte {
	return h.buffer.GetBlock()
}

// log2 returns the bit shift corresponding to a power-of-two blockSize.
func log2(blockSize uint) uint {
	return Log2(blockSize)
}

// Log2 returns the bit shift corresponding to a power-of-two blockSize,
// standing in for a multiply/divide by blockSize in the rolling checksum
// update (spec.md §3's block_shift).
func Log2(blockSize uint) uint {
	shift := uint(0)
	for blockSize > 1 {
		blockSize >>= 1
		shift++
	}
	return shift
}
