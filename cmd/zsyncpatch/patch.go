package main

import (
	"context"
	"crypto/sha1"
	"fmt"
	"io"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/probonopd/zsyncjob/blocksources"
	"github.com/probonopd/zsyncjob/comparer"
	"github.com/probonopd/zsyncjob/filechecksum"
	"github.com/probonopd/zsyncjob/job"
	"github.com/probonopd/zsyncjob/patcher/sequential"
)

const patchUsage = "zsyncpatch patch <checksums-file> <seed-file> <target-url> <output-file>"

var patchCommand = &cli.Command{
	Name:      "patch",
	Usage:     patchUsage,
	ArgsUsage: "<checksums-file> <seed-file> <target-url> <output-file>",
	Description: `Recreate the target file at <output-file>, using a checksum stream and a
seed file believed to be similar. Ranges the seed can't supply are fetched
from <target-url> with HTTP range requests and verified against the block
checksums before being written.`,
	Flags: append(checksumFlags(),
		&cli.IntFlag{
			Name:  "concurrency",
			Value: 4,
			Usage: "number of concurrent HTTP range requests",
		},
		&cli.StringFlag{
			Name:  "sha1",
			Usage: "expected whole-file SHA-1 to verify the result against (optional)",
		},
	),
	Action: runPatch,
}

func runPatch(c *cli.Context) error {
	if c.Args().Len() != 4 {
		return fmt.Errorf("usage is %q", patchUsage)
	}

	checksumsPath := c.Args().Get(0)
	seedPath := c.Args().Get(1)
	targetURL := c.Args().Get(2)
	outputPath := c.Args().Get(3)

	blockSize := c.Int("blocksize")
	weakBytes := c.Int("weak-bytes")
	strongBytes := c.Int("strong-bytes")
	seqMatches := c.Int("seq-matches")

	fi, err := os.Stat(checksumsPath)
	if err != nil {
		return err
	}
	recordLen := weakBytes + strongBytes
	if recordLen <= 0 || fi.Size()%int64(recordLen) != 0 {
		return fmt.Errorf("checksum stream %v is not a multiple of the %v-byte record size", checksumsPath, recordLen)
	}
	blocks := fi.Size() / int64(recordLen)

	checksumsFile, err := os.Open(checksumsPath)
	if err != nil {
		return err
	}
	defer checksumsFile.Close()

	outFile, err := os.OpenFile(outputPath, os.O_CREATE|os.O_RDWR|os.O_TRUNC, 0644)
	if err != nil {
		return err
	}
	defer outFile.Close()

	j, err := job.New(job.Information{
		BlockSize:      uint32(blockSize),
		Blocks:         uint32(blocks),
		WeakBytes:      uint8(weakBytes),
		StrongBytes:    uint8(strongBytes),
		SeqMatches:     uint8(seqMatches),
		TargetFile:     outFile,
		ChecksumBlocks: checksumsFile,
		SeedFilePath:   seedPath,
	})
	if err != nil {
		return err
	}

	result := j.Run(context.Background())
	if result.ErrorCode != job.OK {
		return fmt.Errorf("scanning %v: %v", seedPath, result.ErrorCode)
	}

	fmt.Fprintf(os.Stderr, "recovered %v/%v blocks from %v, fetching %v required range(s) from %v\n",
		result.GotBlocks, blocks, seedPath, len(result.RequiredRanges), targetURL)

	if len(result.RequiredRanges) > 0 {
		spans := sequential.ToMissingBlockSpans(result.RequiredRanges, int64(blockSize))

		resolver := blocksources.MakeFileSizedBlockResolver(uint64(blockSize), blocks*int64(blockSize))
		verifier := &filechecksum.HashVerifier{
			Hash:                filechecksum.DefaultStrongHashGenerator(),
			BlockSize:           uint(blockSize),
			BlockChecksumGetter: &requiredRangeChecksums{ranges: result.RequiredRanges},
		}

		source := blocksources.NewHttpBlockSource(targetURL, c.Int("concurrency"), resolver, verifier)
		defer source.Close()

		if err := sequential.Fetch(spans, source, outFile); err != nil {
			return fmt.Errorf("fetching required ranges: %w", err)
		}
	}

	expectedSHA1 := c.String("sha1")
	if expectedSHA1 == "" {
		return nil
	}

	if _, err := outFile.Seek(0, io.SeekStart); err != nil {
		return err
	}
	h := sha1.New()
	if _, err := io.Copy(h, outFile); err != nil {
		return err
	}
	got := fmt.Sprintf("%x", h.Sum(nil))
	if got != expectedSHA1 {
		return fmt.Errorf("sha1 mismatch: got %v, want %v", got, expectedSHA1)
	}
	fmt.Fprintln(os.Stderr, "sha1 verified:", got)
	return nil
}

// requiredRangeChecksums answers GetStrongChecksumForBlock from the
// per-block checksums a required-ranges report already carries, so the
// HTTP block source can verify fetched blocks without re-reading the
// checksum stream.
type requiredRangeChecksums struct {
	ranges []comparer.RequiredRange
}

func (c *requiredRangeChecksums) GetStrongChecksumForBlock(blockID int) []byte {
	id := int64(blockID)
	for _, r := range c.ranges {
		if id < r.From || id > r.To {
			continue
		}
		return r.Checksums[id-r.From]
	}
	return nil
}
