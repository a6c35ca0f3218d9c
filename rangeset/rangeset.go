/*
Package rangeset maintains the known-range set of a zsync matching job: the
sorted, disjoint set of target-file block ids that have already been
reconstructed from a seed. It answers three questions the matcher and the
required-ranges reporter need on every block: is this id already known,
what id starts the next known run at or after this one, and (destructively)
mark this id known, merging with any adjoining ranges.

The algorithm is the one from the original zsync source (rangeBeforeBlock /
addToRanges / nextKnownBlock): a block id falls either inside an existing
range, between two ranges (possibly closing the gap exactly, extending one
side, or neither), or past every range. Where the original keeps a flat
realloc'd array and does the bisection by hand, this implementation backs
the same disjoint-interval invariant with a left-leaning red-black tree
(github.com/petar/GoLLRB), which gives the same O(log n) lookup without
manual memmove bookkeeping.
*/
package rangeset

import (
	"sync"

	"github.com/petar/GoLLRB/llrb"
)

// Range is an inclusive [Lo, Hi] span of block ids.
type Range struct {
	Lo, Hi int64
}

type span Range

// Less orders spans by their low end; two spans are considered equal (not
// Less either way) if they overlap, which is what lets llrb.Get locate the
// range containing an arbitrary point.
func (s *span) Less(other llrb.Item) bool {
	o := other.(*span)
	return s.Hi < o.Lo
}

// Set is the known-range set for one job. The zero value is an empty set.
type Set struct {
	mu   sync.Mutex
	tree *llrb.LLRB
}

func New() *Set {
	return &Set{tree: llrb.New()}
}

func (s *Set) ensure() {
	if s.tree == nil {
		s.tree = llrb.New()
	}
}

// Contains reports whether block x already lies in some known range.
func (s *Set) Contains(x int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ensure()
	return s.tree.Get(&span{Lo: x, Hi: x}) != nil
}

// Add marks block x as known, merging it with adjoining or enclosing
// ranges. It is a no-op if x is already known. This implements the four
// cases of spec.md §4.3's add_to_ranges: exact gap fill (merge), extend
// below, extend above, or insert a new singleton range.
func (s *Set) Add(x int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ensure()

	if s.tree.Get(&span{Lo: x, Hi: x}) != nil {
		return
	}

	below, _ := s.tree.Get(&span{Lo: x - 1, Hi: x - 1}).(*span)
	above, _ := s.tree.Get(&span{Lo: x + 1, Hi: x + 1}).(*span)

	switch {
	case below != nil && above != nil:
		// x fills the gap exactly: merge the two neighbors into one.
		s.tree.Delete(below)
		s.tree.Delete(above)
		s.tree.ReplaceOrInsert(&span{Lo: below.Lo, Hi: above.Hi})
	case below != nil:
		s.tree.Delete(below)
		s.tree.ReplaceOrInsert(&span{Lo: below.Lo, Hi: x})
	case above != nil:
		s.tree.Delete(above)
		s.tree.ReplaceOrInsert(&span{Lo: x, Hi: above.Hi})
	default:
		s.tree.ReplaceOrInsert(&span{Lo: x, Hi: x})
	}
}

// NextKnown returns x if x is already known, or the first block id of the
// next known range at or after x, or limit if no later range exists
// (spec.md §4.3's next_known_block).
func (s *Set) NextKnown(x int64, limit int64) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ensure()

	if s.tree.Get(&span{Lo: x, Hi: x}) != nil {
		return x
	}

	next := limit
	s.tree.AscendGreaterOrEqual(&span{Lo: x, Hi: x}, func(item llrb.Item) bool {
		r := item.(*span)
		if r.Lo >= x {
			next = r.Lo
			return false
		}
		return true
	})

	return next
}

// Ranges returns the sorted, disjoint list of known ranges.
func (s *Set) Ranges() []Range {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ensure()

	out := make([]Range, 0, s.tree.Len())
	s.tree.AscendGreaterOrEqual(s.tree.Min(), func(item llrb.Item) bool {
		r := item.(*span)
		out = append(out, Range(*r))
		return true
	})
	return out
}

// Len reports the number of disjoint known ranges (not block count).
func (s *Set) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ensure()
	return s.tree.Len()
}
