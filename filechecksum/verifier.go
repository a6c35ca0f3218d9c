package filechecksum

import (
	"bytes"
	"hash"
)

// ChecksumLookup answers the strong checksum a block was expected to have,
// as recorded by whatever built the control data (the local index, or a
// required-ranges report). A nil return means "no expectation", and a
// verification of that block always passes.
type ChecksumLookup interface {
	GetStrongChecksumForBlock(blockID int) []byte
}

// HashVerifier re-hashes delivered block data and compares it against the
// truncated strong checksums a ChecksumLookup already knows, catching a
// block source that served stale or corrupt data.
type HashVerifier struct {
	BlockSize           uint
	Hash                hash.Hash
	BlockChecksumGetter ChecksumLookup
}

// VerifyBlockRange checks each BlockSize-sized slice of data, starting at
// startBlockID, against its expected strong checksum. Since the control
// file's strong checksums are truncated to strong_bytes (spec.md §3),
// this compares against only the leading strong_bytes of the freshly
// computed digest, not the whole hash.
func (v *HashVerifier) VerifyBlockRange(startBlockID uint, data []byte) bool {
	for i := 0; i*int(v.BlockSize) < len(data); i++ {
		start := i * int(v.BlockSize)
		end := start + int(v.BlockSize)

		if end > len(data) {
			end = len(data)
		}

		blockData := data[start:end]

		expectedChecksum := v.BlockChecksumGetter.GetStrongChecksumForBlock(
			int(startBlockID) + i,
		)

		if expectedChecksum == nil {
			continue
		}

		v.Hash.Write(blockData)
		hashedData := v.Hash.Sum(nil)
		v.Hash.Reset()

		if len(expectedChecksum) > len(hashedData) {
			return false
		}
		if !bytes.Equal(expectedChecksum, hashedData[:len(expectedChecksum)]) {
			return false
		}
	}

	return true
}
