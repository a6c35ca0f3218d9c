package indexbuilder

import (
	"testing"

	"github.com/probonopd/zsyncjob/filechecksum"
	"github.com/probonopd/zsyncjob/rollsum"
)

func TestBuildIndexFromString(t *testing.T) {
	const blockSize = 4
	reference := "abcdefghijkl" // 3 blocks of 4 bytes

	gen := filechecksum.NewFileChecksumGenerator(blockSize, rollsum.Width(2), 8)

	fileChecksum, table, err := BuildIndexFromString(gen, reference, 1)
	if err != nil {
		t.Fatalf("BuildIndexFromString: %v", err)
	}
	if len(fileChecksum) == 0 {
		t.Error("expected a non-empty whole-file checksum")
	}
	if table == nil {
		t.Fatal("expected a non-nil table")
	}
	if table.NumBlocks() != 3 {
		t.Errorf("NumBlocks() = %d, want 3", table.NumBlocks())
	}
}
