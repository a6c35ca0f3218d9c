/*
Package filechecksum provides the FileChecksumGenerator, whose main responsibility is to read a file,
and generate both weak and strong checksums for every block, and the HashVerifier, which checks
fetched blocks against expected strong checksums. The comparer does not use this package; it computes
its own rolling and MD4 checksums while scanning.
*/
package filechecksum

import (
	"hash"
	"io"

	"golang.org/x/crypto/md4"

	"github.com/probonopd/zsyncjob/rollsum"
)

// DefaultStrongHashGenerator matches the control file's strong checksum:
// MD4, truncated to strong_bytes on the wire (spec.md §3/§6).
var DefaultStrongHashGenerator = func() hash.Hash {
	return md4.New()
}

// DefaultFileHashGenerator is the overall-file digest reported alongside
// the per-block checksums; MD4 again, for consistency with the control
// file's strong checksum.
var DefaultFileHashGenerator = func() hash.Hash {
	return md4.New()
}

// NewFileChecksumGenerator builds a generator for the given block size,
// weak-checksum width and strong-checksum truncation length (spec.md §6's
// weak_bytes/strong_bytes).
func NewFileChecksumGenerator(blockSize uint, weakBytes rollsum.Width, strongBytes int) *FileChecksumGenerator {
	return &FileChecksumGenerator{
		BlockSize:        blockSize,
		WeakBytes:        weakBytes,
		StrongBytes:      strongBytes,
		StrongHash:       DefaultStrongHashGenerator(),
		FileChecksumHash: DefaultFileHashGenerator(),
	}
}

/*
FileChecksumGenerator provides a description of what hashing functions to use to
evaluate a file. Since the hashes store state, it is NOT safe to use a generator concurrently
for different things.
*/
type FileChecksumGenerator struct {
	BlockSize        uint
	WeakBytes        rollsum.Width
	StrongBytes      int
	StrongHash       hash.Hash
	FileChecksumHash hash.Hash
}

// Reset all hashes to initial state
func (check *FileChecksumGenerator) Reset() {
	check.StrongHash.Reset()
	check.FileChecksumHash.Reset()
}

func (check *FileChecksumGenerator) ChecksumSize() int {
	return int(check.WeakBytes) + check.StrongBytes
}

func (check *FileChecksumGenerator) GetChecksumSizes() (int, int) {
	return int(check.WeakBytes), check.StrongBytes
}

// Gets the Hash function for the overall file used on each block
func (check *FileChecksumGenerator) GetFileHash() hash.Hash {
	return check.FileChecksumHash
}

// Gets the Hash function for the strong hash used on each block
func (check *FileChecksumGenerator) GetStrongHash() hash.Hash {
	return check.StrongHash
}

// BlockChecksum is one block's weak and truncated strong checksum, plus
// its offset in the file (in block units).
type BlockChecksum struct {
	ChunkOffset uint
	Size        int64
	Weak        rollsum.Rsum
	Strong      []byte
}

// Match compares two block checksums by value, not offset.
func (c BlockChecksum) Match(other BlockChecksum) bool {
	if c.Weak != other.Weak {
		return false
	}
	if len(c.Strong) != len(other.Strong) {
		return false
	}
	for i := range c.Strong {
		if c.Strong[i] != other.Strong[i] {
			return false
		}
	}
	return true
}

// ChecksumResults batches generated block checksums for performance; the
// final value on the channel carries only Filechecksum.
type ChecksumResults struct {
	Checksums    []BlockChecksum
	Filechecksum []byte
	Err          error
}

// CompressionFunction compresses and writes out a block, returning the
// compressed size.
type CompressionFunction func([]byte) (compressedSize int64, err error)

// GenerateChecksums reads each block of the input file and writes the wire
// encoding (spec.md §6: weak_bytes of big-endian rsum, then strong_bytes of
// MD4) to output, returning the whole-file checksum.
func (check *FileChecksumGenerator) GenerateChecksums(inputFile io.Reader, output io.Writer) (fileChecksum []byte, err error) {
	for chunkResult := range check.StartChecksumGeneration(inputFile, 64, nil) {
		if chunkResult.Err != nil {
			return nil, chunkResult.Err
		} else if chunkResult.Filechecksum != nil {
			return chunkResult.Filechecksum, nil
		}

		for _, chunk := range chunkResult.Checksums {
			output.Write(rollsum.EncodeBigEndian(chunk.Weak, check.WeakBytes))
			output.Write(chunk.Strong)
		}
	}

	return nil, nil
}

func (check *FileChecksumGenerator) StartChecksumGeneration(
	inputFile io.Reader,
	blocksPerResult uint,
	compressionFunction CompressionFunction,
) <-chan ChecksumResults {
	resultChan := make(chan ChecksumResults)
	go check.generate(resultChan, blocksPerResult, compressionFunction, inputFile)
	return resultChan
}

func (check *FileChecksumGenerator) generate(
	resultChan chan ChecksumResults,
	blocksPerResult uint,
	compressionFunction CompressionFunction,
	inputFile io.Reader,
) {
	defer close(resultChan)

	fullChecksum := check.GetFileHash()
	strongHash := check.GetStrongHash()

	buffer := make([]byte, check.BlockSize)

	strongHash.Reset()
	fullChecksum.Reset()

	defer strongHash.Reset()
	defer fullChecksum.Reset()

	results := make([]BlockChecksum, 0, blocksPerResult)

	i := uint(0)
	for {
		n, err := io.ReadFull(inputFile, buffer)
		section := buffer[:n]

		if n == 0 {
			break
		}

		fullChecksum.Write(section)
		weak := rollsum.Full(section)
		strongHash.Write(section)

		strongSum := strongHash.Sum(nil)[:check.StrongBytes]

		blockSize := int64(check.BlockSize)

		if compressionFunction != nil {
			blockSize, err = compressionFunction(section)
		}

		results = append(
			results,
			BlockChecksum{
				ChunkOffset: i,
				Size:        blockSize,
				Weak:        weak,
				Strong:      append([]byte(nil), strongSum...),
			},
		)

		i++

		if len(results) == cap(results) {
			resultChan <- ChecksumResults{
				Checksums: results,
			}
			results = make([]BlockChecksum, 0, blocksPerResult)
		}

		strongHash.Reset()

		if n != len(buffer) || err == io.EOF {
			break
		}
	}

	if len(results) > 0 {
		resultChan <- ChecksumResults{
			Checksums: results,
		}
	}

	resultChan <- ChecksumResults{
		Filechecksum: fullChecksum.Sum(nil),
	}
}
