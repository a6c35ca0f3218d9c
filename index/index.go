/*
Package index builds the two-tier hash table that the comparer uses to turn
a rolling weak checksum hit into a set of candidate target blocks: a bitmap
for a fast negative check, and a chained hash table (keyed on a mix of the
weak checksum halves) for the positive case.

This is a direct port of buildHash/calcRHash/removeBlockFromHash from the
original zsync source. The original walks a singly linked list of
hash_entry structs addressed by pointer arithmetic off a single calloc'd
array, and removes entries from the list in place as blocks are resolved.
Go has no pointer arithmetic into a slice that survives a reslice, so chains
here are threaded through a parallel []int32 of "next" indices, with -1
standing in for the original's NULL.
*/
package index

import "github.com/probonopd/zsyncjob/rollsum"

// bitHashBits is BITHASHBITS from the original source: the bit table is
// sized a few bits larger than the rsum hash table itself, so that even
// with a saturated hash table the bitmap stays sparse enough to reject
// most negatives in one memory read.
const bitHashBits = 3

// BlockHash is one target-file block's pair of checksums, as parsed from
// the control file (package chunks). Weak is stored unmasked; the
// significant bytes are already zero-padded into Weak.A by the width-aware
// wire decoder, so masking on lookup is a no-op for narrower widths and
// exact for width 4.
type BlockHash struct {
	Weak   rollsum.Rsum
	Strong [16]byte
}

// Table is the built hash table over a target file's blocks. The zero
// value is not usable; construct with Build.
type Table struct {
	blockSize  int
	seqMatches int
	weakMask   uint16
	strongLen  int

	entries []BlockHash // length NumBlocks + seqMatches, trailing entries are zero sentinels

	hashMask    uint32
	bitHashMask uint32
	rsumHash    []int32 // bucket -> head entry index, -1 if empty
	next        []int32 // entry index -> next entry index in its chain, -1 if none
	bitHash     []byte
}

// Build constructs a Table over entries, which must be indexed by block id
// starting at 0. seqMatches is the number of consecutive blocks that must
// match before a hit is trusted (spec.md §4.1); weakMask is the mask for
// the declared weak-checksum width (rollsum.Width.Mask). strongLen is the
// number of significant strong-checksum bytes to compare on a weak hit.
//
// This is buildHash from the original source, sized the same way: the
// table is the smallest power of two above the block count, bottoming out
// at 2^5 entries for very small files and capped at 2^17 for very large
// ones.
func Build(entries []BlockHash, seqMatches int, weakMask uint16, strongLen int) *Table {
	numBlocks := len(entries)

	i := 16
	for (2<<(i-1)) > numBlocks && i > 4 {
		i--
	}

	t := &Table{
		seqMatches:  seqMatches,
		weakMask:    weakMask,
		strongLen:   strongLen,
		hashMask:    uint32(2<<i) - 1,
		bitHashMask: uint32(2<<(i+bitHashBits)) - 1,
	}

	// Pad with seqMatches zero sentinels so chain walks can always read
	// entries[id+1] without a bounds check, mirroring the original's
	// over-allocated hash_entry array.
	t.entries = make([]BlockHash, numBlocks+seqMatches)
	copy(t.entries, entries)

	t.rsumHash = make([]int32, t.hashMask+1)
	for i := range t.rsumHash {
		t.rsumHash[i] = -1
	}
	t.next = make([]int32, numBlocks)
	for i := range t.next {
		t.next[i] = -1
	}
	t.bitHash = make([]byte, t.bitHashMask+1)

	// Fill in reverse so that chains end up in ascending block order once
	// prepended, which keeps writeBlocks' I/O pattern sequential for runs
	// of identical blocks.
	for id := numBlocks - 1; id >= 0; id-- {
		h := t.calcRHash(id)
		bucket := h & t.hashMask
		t.next[id] = t.rsumHash[bucket]
		t.rsumHash[bucket] = int32(id)
		t.bitHash[(h&t.bitHashMask)>>3] |= 1 << (h & 7)
	}

	return t
}

// calcRHash is calcRHash from the original source: it folds the second
// block's b-half (sequential matching) or the first block's masked a-half
// (single-block matching) into the first block's b-half.
func (t *Table) calcRHash(id int) uint32 {
	h := uint32(t.entries[id].Weak.B)

	if t.seqMatches > 1 {
		h ^= uint32(t.entries[id+1].Weak.B) << bitHashBits
	} else {
		h ^= uint32(t.entries[id].Weak.A&t.weakMask) << bitHashBits
	}

	return h
}

// hashOf computes the same mix calcRHash does, but from a pair of rolling
// checksums observed while scanning a seed, rather than from stored block
// entries. first is the window's own rsum; second is the following
// window's rsum, only consulted when seqMatches > 1.
func (t *Table) hashOf(first, second rollsum.Rsum) uint32 {
	h := uint32(first.B)

	if t.seqMatches > 1 {
		h ^= uint32(second.B) << bitHashBits
	} else {
		h ^= uint32(first.A&t.weakMask) << bitHashBits
	}

	return h
}

// Lookup performs the bitmap-then-chain lookup from submitSourceData: given
// the rolling checksums of the window currently under the scan cursor, it
// reports the head of the hash chain that might contain a match, or ok=false
// if the bitmap already rules out every block.
func (t *Table) Lookup(first, second rollsum.Rsum) (head int32, ok bool) {
	h := t.hashOf(first, second)

	if t.bitHash[(h&t.bitHashMask)>>3]&(1<<(h&7)) == 0 {
		return -1, false
	}

	head = t.rsumHash[h&t.hashMask]
	return head, head != -1
}

// Next returns the next entry index in e's hash chain, or -1 at the end.
func (t *Table) Next(e int32) int32 {
	return t.next[e]
}

// Entry returns the stored checksums for block id.
func (t *Table) Entry(id int64) BlockHash {
	return t.entries[id]
}

// WeakMatch reports whether a rolling checksum matches the block at entry
// index e, masking rs.A to this table's declared width before comparing.
func (t *Table) WeakMatch(e int32, rs rollsum.Rsum) bool {
	entry := t.entries[e]
	return entry.Weak.A == rs.A&t.weakMask && entry.Weak.B == rs.B
}

// StrongMatch compares the first StrongLen bytes of a computed strong
// checksum against the block at entry index e.
func (t *Table) StrongMatch(e int32, strong []byte) bool {
	entry := t.entries[e]
	for i := 0; i < t.strongLen; i++ {
		if entry.Strong[i] != strong[i] {
			return false
		}
	}
	return true
}

// NumBlocks is the number of real (non-sentinel) blocks in the table.
func (t *Table) NumBlocks() int64 {
	return int64(len(t.next))
}

// SeqMatches is the seqMatches value the table was built with.
func (t *Table) SeqMatches() int {
	return t.seqMatches
}

// StrongLen is the number of significant strong-checksum bytes this table
// compares on a weak hit.
func (t *Table) StrongLen() int {
	return t.strongLen
}

// Remove deletes block id's entry from its hash chain, so that a future
// Lookup will never return it again, mirroring removeBlockFromHash. rover,
// if non-nil, is a cursor an in-progress chain walk is holding; if it
// currently points at the removed entry it is advanced past it, matching
// the original's _pRover safety against deleting the node a walk is
// standing on.
func (t *Table) Remove(id int64, rover *int32) {
	e := int32(id)
	bucket := t.calcRHash(int(id)) & t.hashMask

	prev := int32(-1)
	cur := t.rsumHash[bucket]
	for cur != -1 {
		if cur == e {
			if rover != nil && *rover == cur {
				*rover = t.next[cur]
			}
			if prev == -1 {
				t.rsumHash[bucket] = t.next[cur]
			} else {
				t.next[prev] = t.next[cur]
			}
			return
		}
		prev = cur
		cur = t.next[cur]
	}
}
