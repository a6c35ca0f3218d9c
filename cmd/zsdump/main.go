/*
zsdump writes the raw per-block checksum stream (spec.md §6's wire format)
for a target file, so scan/patch can be exercised without a real .zsync
control file. It is a fixture tool, not part of the delta-update pipeline
itself.
*/
package main

import (
	"fmt"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/probonopd/zsyncjob/filechecksum"
	"github.com/probonopd/zsyncjob/rollsum"
)

func main() {
	app := cli.NewApp()
	app.Name = "zsdump"
	app.Usage = "write the block-checksum stream for a target file"
	app.ArgsUsage = "<target-file> <checksums-file>"
	app.Flags = []cli.Flag{
		&cli.IntFlag{Name: "blocksize", Value: 8192},
		&cli.IntFlag{Name: "weak-bytes", Value: 2},
		&cli.IntFlag{Name: "strong-bytes", Value: 8},
	}
	app.Action = dump

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "zsdump:", err)
		os.Exit(1)
	}
}

func dump(c *cli.Context) error {
	if c.Args().Len() != 2 {
		return fmt.Errorf("usage is %q", "zsdump <target-file> <checksums-file>")
	}

	targetPath := c.Args().Get(0)
	outPath := c.Args().Get(1)

	target, err := os.Open(targetPath)
	if err != nil {
		return err
	}
	defer target.Close()

	out, err := os.Create(outPath)
	if err != nil {
		return err
	}
	defer out.Close()

	gen := filechecksum.NewFileChecksumGenerator(
		uint(c.Int("blocksize")),
		rollsum.Width(c.Int("weak-bytes")),
		c.Int("strong-bytes"),
	)

	fileChecksum, err := gen.GenerateChecksums(target, out)
	if err != nil {
		return err
	}

	fmt.Fprintf(os.Stderr, "wrote %v, whole-file checksum %x\n", outPath, fileChecksum)
	return nil
}
