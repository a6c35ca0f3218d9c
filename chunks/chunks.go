/*
Package chunks parses the per-block checksum records carried by a zsync
control file into the index package's BlockHash entries. This is
parse_target_checksums from the design: each record is weak_bytes of
big-endian rsum (aligned to the low bytes of a 4-byte field) immediately
followed by strong_bytes of truncated MD4, with no separators.
*/
package chunks

import (
	"bytes"
	"errors"
	"io"

	"github.com/probonopd/zsyncjob/filechecksum"
	"github.com/probonopd/zsyncjob/index"
	"github.com/probonopd/zsyncjob/rollsum"
)

// ErrInvalidChecksumBlocks is returned when the checksum stream is shorter
// than blocks*(weakBytes+strongBytes) or otherwise malformed.
var ErrInvalidChecksumBlocks = errors.New("chunks: checksum block stream is the wrong length")

// ErrChecksumBlocksIO wraps a read failure encountered partway through
// parsing the checksum stream.
var ErrChecksumBlocksIO = errors.New("chunks: io error reading checksum blocks")

// ParseBlockChecksums reads exactly blocks records of
// (weakBytes + strongBytes) bytes each from r and decodes them into
// index.BlockHash entries in block-id order. strongBytes must not exceed
// 16 (the width of an MD4 digest).
func ParseBlockChecksums(r io.Reader, blocks int, weakBytes rollsum.Width, strongBytes int) ([]index.BlockHash, error) {
	if strongBytes > 16 {
		return nil, ErrInvalidChecksumBlocks
	}

	recordLen := int(weakBytes) + strongBytes
	buf := make([]byte, recordLen)
	entries := make([]index.BlockHash, blocks)

	for i := 0; i < blocks; i++ {
		n, err := io.ReadFull(r, buf)
		if err == io.EOF || err == io.ErrUnexpectedEOF {
			return nil, ErrInvalidChecksumBlocks
		}
		if err != nil {
			return nil, ErrChecksumBlocksIO
		}
		if n != recordLen {
			return nil, ErrInvalidChecksumBlocks
		}

		entries[i].Weak = rollsum.DecodeBigEndian(buf[:weakBytes], weakBytes)
		copy(entries[i].Strong[:], buf[weakBytes:])
	}

	return entries, nil
}

// GenerateBlockChecksums reads r block by block and returns the
// index.BlockHash entries a checksum stream would decode to, without an
// intermediate wire file, for a file that has no real control file yet.
// Nothing else in this module calls it; the zsdump tool writes its stream
// with filechecksum.FileChecksumGenerator directly.
func GenerateBlockChecksums(r io.Reader, blockSize uint, weakBytes rollsum.Width, strongBytes int) ([]index.BlockHash, error) {
	gen := filechecksum.NewFileChecksumGenerator(blockSize, weakBytes, strongBytes)

	var buf bytes.Buffer
	if _, err := gen.GenerateChecksums(r, &buf); err != nil {
		return nil, err
	}

	blocks := buf.Len() / (int(weakBytes) + strongBytes)
	return ParseBlockChecksums(&buf, blocks, weakBytes, strongBytes)
}
