package circularbuffer

import "io"

// SeedWindow manages the scratch buffer a seed-file scan reads through:
// 16 blocks at a time, with the trailing ctx bytes of each fill carried
// over to the front of the next so that a match spanning a fill boundary
// is never missed. This is submitSourceFile's buffer management, pulled
// out so the scanning loop itself doesn't have to juggle the carry-over.
type SeedWindow struct {
	buf      []byte
	ctx      int
	primed   bool
	atEOF    bool
	absolute int64 // absolute stream offset of buf[0] as of the last Fill
}

// NewSeedWindow allocates the scratch buffer: 16 blocks plus ctx bytes of
// carry-over room, where ctx = blockSize * seqMatches.
func NewSeedWindow(blockSize, ctx int) *SeedWindow {
	return &SeedWindow{
		buf: make([]byte, blockSize*16+ctx),
		ctx: ctx,
	}
}

// Fill reads the next chunk of the stream into the scratch buffer. On the
// first call it fills the whole buffer; afterward it preserves the
// trailing ctx bytes and reads fresh data into the rest. At EOF the tail is
// zero-padded by ctx bytes so the last block can still be evaluated.
//
// It returns the data to scan this round, and the absolute stream offset
// the first byte of that data corresponds to (0 on a fresh window, or
// carried forward otherwise) to pass to a matcher as its offset hint.
func (w *SeedWindow) Fill(r io.Reader) (data []byte, offset int64, err error) {
	if w.atEOF {
		return nil, 0, io.EOF
	}

	var n int
	startOffset := w.absolute

	if !w.primed {
		n, err = io.ReadFull(r, w.buf)
		w.primed = true
	} else {
		carry := len(w.buf) - w.ctx
		copy(w.buf, w.buf[carry:])
		w.absolute += int64(carry)
		startOffset = w.absolute

		var read int
		read, err = io.ReadFull(r, w.buf[w.ctx:])
		n = w.ctx + read
	}

	if err == io.ErrUnexpectedEOF || err == io.EOF {
		for i := n; i < n+w.ctx && i < len(w.buf); i++ {
			w.buf[i] = 0
		}
		n += w.ctx
		if n > len(w.buf) {
			n = len(w.buf)
		}
		w.atEOF = true
		err = nil
	} else if err != nil {
		return nil, 0, err
	}

	return w.buf[:n], startOffset, nil
}
