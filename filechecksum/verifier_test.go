package filechecksum

import (
	"crypto/md5"
	"testing"
)

type SingleBlockSource []byte

func (d SingleBlockSource) GetStrongChecksumForBlock(blockID int) []byte {
	m := md5.New()
	m.Write(d)
	return m.Sum(nil)
}

func TestBlockEqualsItself(t *testing.T) {
	data := []byte("fooooo")

	h := HashVerifier{
		Hash:                md5.New(),
		BlockSize:           uint(len(data)),
		BlockChecksumGetter: SingleBlockSource(data),
	}

	if !h.VerifyBlockRange(0, data) {
		t.Error("data did not verify")
	}
}

type FourByteBlockSource []byte

func (d FourByteBlockSource) GetStrongChecksumForBlock(blockID int) []byte {
	m := md5.New()
	m.Write(d[blockID*4 : (blockID+1)*4])
	return m.Sum(nil)
}

func TestSplitBlocksEqualThemselves(t *testing.T) {
	data := []byte("foooBaar")

	h := HashVerifier{
		Hash:                md5.New(),
		BlockSize:           uint(4),
		BlockChecksumGetter: FourByteBlockSource(data),
	}

	if !h.VerifyBlockRange(0, data) {
		t.Error("data did not verify")
	}
}

// TruncatedBlockSource returns only the first 8 bytes of the block's MD5,
// mirroring how the control file truncates the strong checksum to
// strong_bytes.
type TruncatedBlockSource []byte

func (d TruncatedBlockSource) GetStrongChecksumForBlock(blockID int) []byte {
	m := md5.New()
	m.Write(d)
	return m.Sum(nil)[:8]
}

func TestTruncatedChecksumStillVerifies(t *testing.T) {
	data := []byte("fooooo")

	h := HashVerifier{
		Hash:                md5.New(),
		BlockSize:           uint(len(data)),
		BlockChecksumGetter: TruncatedBlockSource(data),
	}

	if !h.VerifyBlockRange(0, data) {
		t.Error("truncated checksum should still verify")
	}
}

func TestMismatchedBlockFailsVerification(t *testing.T) {
	data := []byte("fooooo")
	other := []byte("barrrr")

	h := HashVerifier{
		Hash:                md5.New(),
		BlockSize:           uint(len(data)),
		BlockChecksumGetter: SingleBlockSource(other),
	}

	if h.VerifyBlockRange(0, data) {
		t.Error("mismatched data should not verify")
	}
}
