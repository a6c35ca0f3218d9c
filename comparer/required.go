package comparer

import (
	"github.com/probonopd/zsyncjob/index"
	"github.com/probonopd/zsyncjob/rangeset"
)

// RequiredRange is one contiguous run of target blocks that a matching
// pass never resolved from any seed, along with the truncated strong
// checksum recorded for each block in the run (so a downstream fetch can
// verify what it downloads).
type RequiredRange struct {
	From, To  int64 // inclusive block ids, blockIDOffset already applied
	Checksums [][]byte
}

// RequiredRanges computes the complement of known (the set of blocks a
// matching pass has resolved) over [0, table.NumBlocks()), reporting it as
// a sorted list of contiguous gaps. This is getRequiredRanges from the
// original source, restated as an interval subtraction against
// rangeset.Set's already-sorted, already-disjoint range list instead of
// its bisection-and-splice array.
func RequiredRanges(table *index.Table, known *rangeset.Set, blockIDOffset int64) []RequiredRange {
	numBlocks := table.NumBlocks()
	if numBlocks == 0 {
		return nil
	}

	var required []RequiredRange
	cursor := int64(0)

	for _, r := range known.Ranges() {
		if r.Lo > cursor {
			required = append(required, rangeOf(table, cursor, r.Lo-1, blockIDOffset))
		}
		if r.Hi+1 > cursor {
			cursor = r.Hi + 1
		}
	}

	if cursor < numBlocks {
		required = append(required, rangeOf(table, cursor, numBlocks-1, blockIDOffset))
	}

	return required
}

func rangeOf(table *index.Table, from, to, blockIDOffset int64) RequiredRange {
	strongLen := table.StrongLen()
	checksums := make([][]byte, 0, to-from+1)

	for id := from; id <= to; id++ {
		entry := table.Entry(id)
		checksums = append(checksums, append([]byte(nil), entry.Strong[:strongLen]...))
	}

	return RequiredRange{
		From:      from + blockIDOffset,
		To:        to + blockIDOffset,
		Checksums: checksums,
	}
}
