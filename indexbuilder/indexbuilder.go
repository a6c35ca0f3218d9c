/*
Package indexbuilder provides a shortcut for building a hash table straight
from a reference reader, for callers (such as this package's tests) that
have a reference file in hand but no pre-built control file: it runs
the reference through filechecksum.FileChecksumGenerator, parses the result
back with chunks.ParseBlockChecksums, and hands the entries to index.Build.
*/
package indexbuilder

import (
	"bytes"
	"strings"

	"github.com/probonopd/zsyncjob/chunks"
	"github.com/probonopd/zsyncjob/filechecksum"
	"github.com/probonopd/zsyncjob/index"
	"io"
)

// BuildChecksumIndex generates block checksums for r using check, then
// builds a hash table over them. seqMatches is threaded straight through to
// index.Build. It returns the whole-file checksum alongside the table, for
// callers that also want to report it (e.g. a scan summary).
func BuildChecksumIndex(check *filechecksum.FileChecksumGenerator, r io.Reader, seqMatches int) (
	fileChecksum []byte,
	table *index.Table,
	err error,
) {
	b := bytes.NewBuffer(nil)
	fileChecksum, err = check.GenerateChecksums(r, b)
	if err != nil {
		return nil, nil, err
	}

	recordLen := int(check.WeakBytes) + check.StrongBytes
	blocks := 0
	if recordLen > 0 {
		blocks = b.Len() / recordLen
	}

	entries, err := chunks.ParseBlockChecksums(b, blocks, check.WeakBytes, check.StrongBytes)
	if err != nil {
		return nil, nil, err
	}

	table = index.Build(entries, seqMatches, check.WeakBytes.Mask(), check.StrongBytes)
	return fileChecksum, table, nil
}

// BuildIndexFromString is BuildChecksumIndex over an in-memory string, for
// tests that want a reference without a temp file.
func BuildIndexFromString(generator *filechecksum.FileChecksumGenerator, reference string, seqMatches int) (
	fileChecksum []byte,
	table *index.Table,
	err error,
) {
	return BuildChecksumIndex(generator, strings.NewReader(reference), seqMatches)
}
