package comparer

import (
	"bytes"
	"testing"

	"golang.org/x/crypto/md4"

	"github.com/probonopd/zsyncjob/index"
	"github.com/probonopd/zsyncjob/rangeset"
	"github.com/probonopd/zsyncjob/rollsum"
)

const testBlockSize = 16

// buildTable constructs an index.Table over target, cut into testBlockSize
// blocks, using full (unmasked) weak checksums and an 8-byte MD4 prefix —
// a "width 4" control file, for test simplicity.
func buildTable(t *testing.T, target []byte, seqMatches int) *index.Table {
	t.Helper()

	if len(target)%testBlockSize != 0 {
		t.Fatalf("target length %d must be a multiple of %d", len(target), testBlockSize)
	}

	numBlocks := len(target) / testBlockSize
	entries := make([]index.BlockHash, numBlocks)

	for i := 0; i < numBlocks; i++ {
		block := target[i*testBlockSize : (i+1)*testBlockSize]
		entries[i].Weak = rollsum.Full(block)

		h := md4.New()
		h.Write(block)
		copy(entries[i].Strong[:], h.Sum(nil))
	}

	return index.Build(entries, seqMatches, 0xffff, 8)
}

func TestMatcherIdenticalSeed(t *testing.T) {
	target := bytes.Repeat([]byte{0xAB}, testBlockSize*4)
	table := buildTable(t, target, 2)

	known := rangeset.New()
	out := make([]byte, len(target))
	m := New(table, known, &memTarget{buf: out}, testBlockSize, 2, 8, 0)

	ctx := int64(testBlockSize * 2)
	window := append(append([]byte(nil), target...), make([]byte, ctx)...)

	got, err := m.Submit(window, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != 4 {
		t.Errorf("expected 4 blocks matched, got %d", got)
	}

	if !bytes.Equal(out, target) {
		t.Errorf("written target does not match: got %x want %x", out, target)
	}

	if len(RequiredRanges(table, known, 0)) != 0 {
		t.Error("expected no required ranges after a full match")
	}
}

func TestMatcherPrefixShift(t *testing.T) {
	target := make([]byte, testBlockSize*8)
	for i := range target {
		target[i] = byte(i)
	}
	table := buildTable(t, target, 2)

	// seed is target shifted right by 3 bytes: seed[3:] == target[:len-3]
	seed := make([]byte, len(target)+3)
	copy(seed[3:], target)

	known := rangeset.New()
	out := make([]byte, len(target))
	m := New(table, known, &memTarget{buf: out}, testBlockSize, 2, 8, 0)

	ctx := int64(testBlockSize * 2)
	window := append(append([]byte(nil), seed...), make([]byte, ctx)...)

	_, err := m.Submit(window, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if known.Len() == 0 {
		t.Error("expected at least one known range from the shifted seed")
	}
}

func TestMatcherNoOverlapLeavesEverythingRequired(t *testing.T) {
	target := bytes.Repeat([]byte{0x01}, testBlockSize*4)
	table := buildTable(t, target, 1)

	seed := bytes.Repeat([]byte{0xFF}, testBlockSize*4)

	known := rangeset.New()
	out := make([]byte, len(target))
	m := New(table, known, &memTarget{buf: out}, testBlockSize, 1, 8, 0)

	ctx := int64(testBlockSize)
	window := append(append([]byte(nil), seed...), make([]byte, ctx)...)

	got, err := m.Submit(window, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != 0 {
		t.Errorf("expected no matches, got %d", got)
	}

	required := RequiredRanges(table, known, 0)
	if len(required) != 1 || required[0].From != 0 || required[0].To != 3 {
		t.Errorf("expected one required range covering all 4 blocks, got %+v", required)
	}
}

func TestMatcherDuplicateBlockInTarget(t *testing.T) {
	block := bytes.Repeat([]byte{0x42}, testBlockSize)
	target := append(append([]byte(nil), block...), block...)
	table := buildTable(t, target, 1)

	known := rangeset.New()
	out := make([]byte, len(target))
	m := New(table, known, &memTarget{buf: out}, testBlockSize, 1, 8, 0)

	ctx := int64(testBlockSize)
	window := append(append([]byte(nil), block...), make([]byte, ctx)...)

	got, err := m.Submit(window, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got == 0 {
		t.Fatal("expected the single seed block to match at least one target block")
	}
}

// memTarget is an in-memory TargetWriter for tests.
type memTarget struct {
	buf []byte
}

func (m *memTarget) WriteAt(p []byte, off int64) (int, error) {
	n := copy(m.buf[off:], p)
	return n, nil
}
