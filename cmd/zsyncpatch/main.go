/*
zsyncpatch is a command-line implementation of the zsyncjob package
functionality, primarily as a demonstration of usage but supposed to be
functional in itself.
*/
package main

import (
	"fmt"
	"os"

	"github.com/urfave/cli/v2"
)

const (
	defaultBlockSize   = 8192
	defaultWeakBytes   = 2
	defaultStrongBytes = 8
	defaultSeqMatches  = 2
)

var app = cli.NewApp()

func main() {
	app.Name = "zsyncpatch"
	app.Usage = "scan seed files against a checksum stream, patch a file from a remote source"
	app.Commands = []*cli.Command{
		scanCommand,
		patchCommand,
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "zsyncpatch:", err)
		os.Exit(1)
	}
}

func checksumFlags() []cli.Flag {
	return []cli.Flag{
		&cli.IntFlag{
			Name:  "blocksize",
			Value: defaultBlockSize,
			Usage: "block size the checksum stream was generated with",
		},
		&cli.IntFlag{
			Name:  "weak-bytes",
			Value: defaultWeakBytes,
			Usage: "significant bytes of the rolling checksum (1-4)",
		},
		&cli.IntFlag{
			Name:  "strong-bytes",
			Value: defaultStrongBytes,
			Usage: "truncated MD4 bytes per block (1-16)",
		},
		&cli.IntFlag{
			Name:  "seq-matches",
			Value: defaultSeqMatches,
			Usage: "consecutive weak+strong hits required before a match is trusted (1-2)",
		},
	}
}
