package index

import (
	"testing"

	"github.com/probonopd/zsyncjob/rollsum"
)

func mkEntries(weaks ...rollsum.Rsum) []BlockHash {
	entries := make([]BlockHash, len(weaks))
	for i, w := range weaks {
		entries[i] = BlockHash{Weak: w}
		entries[i].Strong[0] = byte(i + 1)
	}
	return entries
}

func TestBuildAndLookupSingleBlock(t *testing.T) {
	entries := mkEntries(
		rollsum.Rsum{A: 1, B: 100},
		rollsum.Rsum{A: 2, B: 200},
		rollsum.Rsum{A: 3, B: 300},
	)

	table := Build(entries, 1, 0xffff, 16)

	head, ok := table.Lookup(rollsum.Rsum{A: 2, B: 200}, rollsum.Rsum{})
	if !ok {
		t.Fatal("expected a hit for block 1's checksum")
	}

	found := false
	for e := head; e != -1; e = table.Next(e) {
		if table.WeakMatch(e, rollsum.Rsum{A: 2, B: 200}) {
			found = true
		}
	}
	if !found {
		t.Error("expected to find block 1 by walking the chain")
	}
}

func TestLookupMissRejectedByBitmap(t *testing.T) {
	entries := mkEntries(rollsum.Rsum{A: 1, B: 100})
	table := Build(entries, 1, 0xffff, 16)

	if _, ok := table.Lookup(rollsum.Rsum{A: 99, B: 9999}, rollsum.Rsum{}); ok {
		t.Error("did not expect a hit for an unrelated checksum")
	}
}

func TestRemoveHidesEntryFromFutureLookups(t *testing.T) {
	entries := mkEntries(
		rollsum.Rsum{A: 1, B: 100},
		rollsum.Rsum{A: 1, B: 100}, // duplicate weak checksum, different block
	)
	table := Build(entries, 1, 0xffff, 16)

	table.Remove(0, nil)

	head, ok := table.Lookup(rollsum.Rsum{A: 1, B: 100}, rollsum.Rsum{})
	if !ok {
		t.Fatal("expected the duplicate's entry to remain")
	}

	for e := head; e != -1; e = table.Next(e) {
		if e == 0 {
			t.Error("removed entry should not appear in the chain")
		}
	}
}

func TestRemoveAdvancesRover(t *testing.T) {
	entries := mkEntries(rollsum.Rsum{A: 1, B: 100}, rollsum.Rsum{A: 1, B: 100})
	table := Build(entries, 1, 0xffff, 16)

	head, _ := table.Lookup(rollsum.Rsum{A: 1, B: 100}, rollsum.Rsum{})
	rover := head

	table.Remove(int64(head), &rover)

	if rover == head {
		t.Error("expected rover to advance past the removed entry")
	}
}

func TestSeqMatchesFoldsSecondBlock(t *testing.T) {
	entries := mkEntries(
		rollsum.Rsum{A: 1, B: 100},
		rollsum.Rsum{A: 2, B: 200},
	)
	table := Build(entries, 2, 0xffff, 16)

	head, ok := table.Lookup(rollsum.Rsum{A: 1, B: 100}, rollsum.Rsum{A: 2, B: 200})
	if !ok {
		t.Fatal("expected a hit when both windows match a sequential pair")
	}
	if head != 0 {
		t.Errorf("expected block 0, got %d", head)
	}
}
