package main

import (
	"context"
	"fmt"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/probonopd/zsyncjob/job"
)

const scanUsage = "zsyncpatch scan <checksums-file> <seed-file...>"

var scanCommand = &cli.Command{
	Name:      "scan",
	Usage:     scanUsage,
	ArgsUsage: "<checksums-file> <seed-file...>",
	Description: `Run a matching pass for each seed file against a single checksum
stream, and print how many blocks each seed recovered and what still needs
to be fetched. No network access is used; this demonstrates the matching
engine end to end against local files.`,
	Flags:  checksumFlags(),
	Action: runScan,
}

func runScan(c *cli.Context) error {
	if c.Args().Len() < 2 {
		return fmt.Errorf("usage is %q (need a checksum stream and at least one seed file)", scanUsage)
	}

	checksumsPath := c.Args().Get(0)
	seeds := c.Args().Slice()[1:]

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

	target := &discardTarget{}

	for _, seed := range seeds {
		checksumsFile, err := os.Open(checksumsPath)
		if err != nil {
			return err
		}

		j, err := job.New(job.Information{
			BlockSize:      uint32(blockSize),
			Blocks:         uint32(blocks),
			WeakBytes:      uint8(weakBytes),
			StrongBytes:    uint8(strongBytes),
			SeqMatches:     uint8(seqMatches),
			TargetFile:     target,
			ChecksumBlocks: checksumsFile,
			SeedFilePath:   seed,
		})
		if err != nil {
			checksumsFile.Close()
			return err
		}

		result := j.Run(context.Background())
		checksumsFile.Close()

		if result.ErrorCode != job.OK {
			fmt.Fprintf(os.Stderr, "%v: %v\n", seed, result.ErrorCode)
			continue
		}

		fmt.Fprintf(
			os.Stdout,
			"%v: recovered %v/%v blocks, %v required range(s)\n",
			seed, result.GotBlocks, blocks, len(result.RequiredRanges),
		)
		for _, r := range result.RequiredRanges {
			fmt.Fprintf(os.Stdout, "  blocks [%v,%v]\n", r.From, r.To)
		}
	}

	return nil
}

// discardTarget lets scan run a job without materializing an output file;
// scan only reports on what would be recovered.
type discardTarget struct{}

func (discardTarget) WriteAt(p []byte, off int64) (int, error) {
	return len(p), nil
}
