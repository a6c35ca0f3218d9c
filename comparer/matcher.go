/*
Package comparer implements the matching pass of a zsync job: scanning a
seed's bytes with the rolling checksum, confirming candidate hits against
the target's hash table with a truncated MD4, and writing the resolved
bytes to the target under construction. This is checkCheckSumsOnHashChain
and submitSourceData from the original zsync source, restated over the
index.Table/rangeset.Set pair instead of a single pointer-linked structure.
*/
package comparer

import (
	"hash"

	"golang.org/x/crypto/md4"

	"github.com/probonopd/zsyncjob/index"
	"github.com/probonopd/zsyncjob/rangeset"
	"github.com/probonopd/zsyncjob/rollsum"
)

// TargetWriter is the capability a Matcher needs from the file under
// construction: the ability to place resolved bytes at an arbitrary
// offset. A plain *os.File satisfies this.
type TargetWriter interface {
	WriteAt(p []byte, off int64) (n int, err error)
}

// Matcher holds the state of one in-progress matching pass: the built hash
// table for the target, the set of target blocks already resolved, and the
// scan-to-scan hints (a sequential-match prediction, a resume skip count)
// that let consecutive calls to Submit behave as a single continuous scan
// over a stream read in chunks.
type Matcher struct {
	table  *index.Table
	known  *rangeset.Set
	target TargetWriter

	blockSize     int64
	blockShift    uint
	seqMatches    int
	strongBytes   int
	blockIDOffset int64

	nextMatch int32 // entry index hinted by a prior sequential match, -1 if none
	skip      int64 // bytes to skip at the start of the next Submit call

	first, second rollsum.Rsum

	hasher hash.Hash
	md4    [2][16]byte

	err error
}

// New builds a Matcher over a built hash table. blockIDOffset shifts
// written block ids before they're translated to byte offsets in target,
// for jobs whose target window doesn't start at block 0.
func New(table *index.Table, known *rangeset.Set, target TargetWriter, blockSize int64, seqMatches, strongBytes int, blockIDOffset int64) *Matcher {
	return &Matcher{
		table:         table,
		known:         known,
		target:        target,
		blockSize:     blockSize,
		blockShift:    rollsum.Log2(uint(blockSize)),
		seqMatches:    seqMatches,
		strongBytes:   strongBytes,
		blockIDOffset: blockIDOffset,
		nextMatch:     -1,
		hasher:        md4.New(),
	}
}

// Err returns the first write error Submit encountered, if any.
func (m *Matcher) Err() error {
	return m.err
}

// context is the number of bytes a caller must keep available past the
// scan cursor: the widest window a full seqMatches probe can need.
func (m *Matcher) context() int64 {
	return m.blockSize * int64(m.seqMatches)
}

// Submit scans data, which should be offset bytes into the seed stream (or
// 0/fresh if offset is 0), locating and writing any target blocks it
// contains. It returns the number of target blocks obtained from this
// call. Submit returns once only context() bytes remain past the scan
// cursor (or fewer, after a match overshoots; the overshoot is kept as
// skip). The next call continues the scan: its data must begin with those
// last context() bytes, and a non-zero offset signals the continuation,
// resuming from the skip Submit leaves behind.
func (m *Matcher) Submit(data []byte, offset int64) (int64, error) {
	bs := m.blockSize
	var x int64
	var gotBlocks int64

	if offset != 0 {
		x = m.skip
	} else {
		m.nextMatch = -1
	}

	if x != 0 || offset == 0 {
		m.first = rollsum.Full(data[x : x+bs])
		if m.seqMatches > 1 {
			m.second = rollsum.Full(data[x+bs : x+2*bs])
		}
	}
	m.skip = 0

	for {
		if x+m.context() == int64(len(data)) {
			return gotBlocks, m.err
		}

		var thisMatch int64
		blocksMatched := 0

		if m.nextMatch != -1 && m.seqMatches > 1 {
			thisMatch = m.checkChain(m.nextMatch, data[x:], true)
			if thisMatch != 0 {
				blocksMatched = 1
			}
		}

		if thisMatch == 0 {
			if head, ok := m.table.Lookup(m.first, m.second); ok {
				thisMatch = m.checkChain(head, data[x:], false)
				if thisMatch != 0 {
					blocksMatched = m.seqMatches
				}
			}
		}

		gotBlocks += thisMatch
		if m.err != nil {
			return gotBlocks, m.err
		}

		if blocksMatched > 0 {
			x += bs
			if blocksMatched > 1 {
				x += bs
			}

			if x+m.context() > int64(len(data)) {
				m.skip = x + m.context() - int64(len(data))
				return gotBlocks, nil
			}

			if m.seqMatches > 1 && blocksMatched == 1 {
				m.first = m.second
			} else {
				m.first = rollsum.Full(data[x : x+bs])
			}
			if m.seqMatches > 1 {
				m.second = rollsum.Full(data[x+bs : x+2*bs])
			}
			continue
		}

		oc := data[x]
		nc := data[x+bs]
		var farc byte
		if m.seqMatches > 1 {
			farc = data[x+2*bs]
		}

		m.first.Roll(oc, nc, m.blockShift)
		if m.seqMatches > 1 {
			m.second.Roll(nc, farc, m.blockShift)
		}
		x++
	}
}

// checkChain walks e's hash chain (a single-entry probe when onlyOne is
// set, for the sequential-match hint path), confirming each candidate with
// up to seqMatches strong checksums, writing out any run that matches and
// returning the number of target blocks obtained.
func (m *Matcher) checkChain(e int32, window []byte, onlyOne bool) int64 {
	doneMD4 := -1
	var gotBlocks int64

	m.nextMatch = -1

	rover := e
	for rover != -1 {
		cur := rover
		if onlyOne {
			rover = -1
		} else {
			rover = m.table.Next(cur)
		}

		if !m.table.WeakMatch(cur, m.first) {
			continue
		}

		id := int64(cur)

		if !onlyOne && m.seqMatches > 1 && !m.table.WeakMatch(cur+1, m.second) {
			continue
		}

		ok := true
		checkMD4 := 0
		for {
			if checkMD4 > doneMD4 {
				m.computeMD4(checkMD4, window)
				doneMD4 = checkMD4
			}

			if !m.table.StrongMatch(cur+int32(checkMD4), m.md4[checkMD4][:m.strongBytes]) {
				ok = false
			}
			checkMD4++

			if !ok || onlyOne || checkMD4 >= m.seqMatches {
				break
			}
		}

		if !ok {
			continue
		}

		var numWrite int64
		nextKnown := m.known.NextKnown(id, m.table.NumBlocks())

		if nextKnown > id+int64(checkMD4) {
			numWrite = int64(checkMD4)
			m.nextMatch = cur + int32(checkMD4)
		} else {
			numWrite = nextKnown - id
		}

		if err := m.writeBlocks(window, id, id+numWrite-1, &rover); err != nil {
			m.err = err
			return gotBlocks
		}
		gotBlocks += numWrite
	}

	return gotBlocks
}

func (m *Matcher) computeMD4(slot int, window []byte) {
	m.hasher.Reset()
	start := int64(slot) * m.blockSize
	m.hasher.Write(window[start : start+m.blockSize])
	sum := m.hasher.Sum(nil)
	copy(m.md4[slot][:], sum)
}

// writeBlocks writes the resolved block range [bFrom, bTo] (inclusive),
// whose bytes are window[0 : (bTo-bFrom+1)*blockSize], to the target, then
// removes those blocks from the hash table (so they're never offered
// again) and marks them known. walkRover is the enclosing checkChain
// call's own chain-walk cursor: a block being removed here might be the
// very entry that walk is about to visit next, so the removal must be
// able to nudge it forward, the same way a single _pRover field protects
// a hash-chain walk against its own writes in the original source.
func (m *Matcher) writeBlocks(window []byte, bFrom, bTo int64, walkRover *int32) error {
	length := (bTo - bFrom + 1) * m.blockSize
	offset := (bFrom + m.blockIDOffset) * m.blockSize

	if _, err := m.target.WriteAt(window[:length], offset); err != nil {
		return err
	}

	for id := bFrom; id <= bTo; id++ {
		m.table.Remove(id, walkRover)
		m.known.Add(id)
	}

	return nil
}
