/*
Package job drives one matching pass end to end: it parses a target's block
checksums, builds the hash table, scans a seed file through it block by
block, and reports what got recovered and what still needs to be fetched.
This is submit_source_file plus the surrounding setup/teardown from the
original zsync source, restated over the chunks/index/comparer packages
this module splits that logic into.
*/
package job

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/probonopd/zsyncjob/chunks"
	"github.com/probonopd/zsyncjob/circularbuffer"
	"github.com/probonopd/zsyncjob/comparer"
	"github.com/probonopd/zsyncjob/index"
	"github.com/probonopd/zsyncjob/rangeset"
	"github.com/probonopd/zsyncjob/rollsum"
)

// ErrorCode identifies which of spec.md §4.7's failure conditions a job
// encountered.
type ErrorCode int

const (
	// OK indicates no error. It is the zero value, so a zero Result also
	// reads as success.
	OK ErrorCode = iota
	AllocationFailed
	HashTableNotAllocated
	InvalidChecksumBlocks
	ChecksumBlocksIoError
	SourceFileNotFound
	SourceFilePermissionDenied
	SourceFileOpenFailed
)

func (c ErrorCode) String() string {
	switch c {
	case OK:
		return "OK"
	case AllocationFailed:
		return "AllocationFailed"
	case HashTableNotAllocated:
		return "HashTableNotAllocated"
	case InvalidChecksumBlocks:
		return "InvalidChecksumBlocks"
	case ChecksumBlocksIoError:
		return "ChecksumBlocksIoError"
	case SourceFileNotFound:
		return "SourceFileNotFound"
	case SourceFilePermissionDenied:
		return "SourceFilePermissionDenied"
	case SourceFileOpenFailed:
		return "SourceFileOpenFailed"
	default:
		return fmt.Sprintf("ErrorCode(%d)", int(c))
	}
}

// Error wraps an ErrorCode with the underlying cause, where one exists, and
// unwraps to that cause, in the style of rsync.go's fileCloser.Close
// wrapping. Run reports only the Code, in Result.ErrorCode; the Error value
// and its cause are not returned to Run's caller.
type Error struct {
	Code ErrorCode
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("job: %s: %v", e.Code, e.Err)
	}
	return fmt.Sprintf("job: %s", e.Code)
}

func (e *Error) Unwrap() error { return e.Err }

func newError(code ErrorCode, err error) *Error {
	return &Error{Code: code, Err: err}
}

// ErrUnsupportedSeqMatches is returned by New when Information.SeqMatches
// exceeds the 2-slot MD4 memo's supported bound (spec.md §9).
var ErrUnsupportedSeqMatches = errors.New("job: seq_matches > 2 is not supported")

// TargetWriter is the shared, write-through capability every job in a
// window set writes its recovered blocks through. *os.File already
// satisfies it.
type TargetWriter interface {
	WriteAt(p []byte, off int64) (int, error)
}

// Information is the configuration of a single job (spec.md §6): the
// window of the target file it owns, the control-file checksums for that
// window, and the seed file it will scan.
type Information struct {
	BlockSize     uint32
	BlockIDOffset uint32
	Blocks        uint32

	WeakBytes   uint8 // 1..4
	StrongBytes uint8 // 1..16
	SeqMatches  uint8 // 1 or 2

	TargetFile     TargetWriter
	ChecksumBlocks io.Reader
	SeedFilePath   string
}

// Result is what Run reports back: how many blocks were recovered from the
// seed, and, for anything left over, the byte ranges (with verification
// checksums) that still need to come from elsewhere.
type Result struct {
	ErrorCode      ErrorCode
	GotBlocks      int64
	RequiredRanges []comparer.RequiredRange
}

// Job holds one window's state across the parse/build/scan/report
// pipeline. The zero value is not usable; construct with New.
type Job struct {
	info Information
}

// New validates Information and constructs a Job. It rejects
// seq_matches > 2 immediately, per spec.md §9, rather than building a
// table whose memo can't cover the requested width.
func New(info Information) (*Job, error) {
	if info.SeqMatches < 1 || info.SeqMatches > 2 {
		return nil, ErrUnsupportedSeqMatches
	}
	if info.StrongBytes < 1 || info.StrongBytes > 16 {
		return nil, errors.New("job: strong_bytes must be in [1,16]")
	}
	if info.WeakBytes < 1 || info.WeakBytes > 4 {
		return nil, errors.New("job: weak_bytes must be in {1,2,3,4}")
	}
	return &Job{info: info}, nil
}

// Run executes the job: parse checksums, build the hash table, scan the
// seed file, and report the outcome. It mirrors submit_source_file's five
// steps from the original source, restated over this module's packages.
// ctx is checked between buffer refills, per spec.md §5.
func (j *Job) Run(ctx context.Context) Result {
	info := j.info

	weakWidth := rollsum.Width(info.WeakBytes)
	entries, err := chunks.ParseBlockChecksums(info.ChecksumBlocks, int(info.Blocks), weakWidth, int(info.StrongBytes))
	if err != nil {
		if errors.Is(err, chunks.ErrChecksumBlocksIO) {
			return errResult(newError(ChecksumBlocksIoError, err))
		}
		return errResult(newError(InvalidChecksumBlocks, err))
	}

	table := index.Build(entries, int(info.SeqMatches), weakWidth.Mask(), int(info.StrongBytes))

	known := rangeset.New()

	gotBlocks, runErr := j.scanSeed(ctx, table, known)
	if runErr != nil {
		return errResult(runErr)
	}

	required := comparer.RequiredRanges(table, known, int64(info.BlockIDOffset))

	return Result{
		ErrorCode:      OK,
		GotBlocks:      gotBlocks,
		RequiredRanges: required,
	}
}

// scanSeed opens the seed file, checks it is actually readable (spec.md
// §4.7's SourceFilePermissionDenied case), and feeds it through a Matcher
// using a SeedWindow for the scratch-buffer refill.
func (j *Job) scanSeed(ctx context.Context, table *index.Table, known *rangeset.Set) (int64, *Error) {
	info := j.info

	fi, statErr := os.Stat(info.SeedFilePath)
	if statErr != nil {
		if os.IsNotExist(statErr) {
			return 0, newError(SourceFileNotFound, statErr)
		}
		return 0, newError(SourceFileOpenFailed, statErr)
	}
	if !readableByAnyClass(fi.Mode()) {
		return 0, newError(SourceFilePermissionDenied, nil)
	}

	f, err := os.Open(info.SeedFilePath)
	if err != nil {
		if os.IsPermission(err) {
			return 0, newError(SourceFilePermissionDenied, err)
		}
		if os.IsNotExist(err) {
			return 0, newError(SourceFileNotFound, err)
		}
		return 0, newError(SourceFileOpenFailed, err)
	}
	defer f.Close()

	m := comparer.New(table, known, info.TargetFile, int64(info.BlockSize), int(info.SeqMatches), int(info.StrongBytes), int64(info.BlockIDOffset))

	ctxBytes := int(info.BlockSize) * int(info.SeqMatches)
	window := circularbuffer.NewSeedWindow(int(info.BlockSize), ctxBytes)

	var gotBlocks int64
	first := true

	for {
		if err := ctx.Err(); err != nil {
			return gotBlocks, newError(AllocationFailed, err)
		}

		data, _, err := window.Fill(f)
		if err != nil {
			break
		}

		// Submit's offset parameter is a continuation flag, not an actual
		// byte position: 0 means "fresh scan", anything else means
		// "resume using the skip left behind by the previous call".
		submitOffset := int64(1)
		if first {
			submitOffset = 0
		}

		n, err := m.Submit(data, submitOffset)
		if err != nil {
			return gotBlocks, newError(AllocationFailed, err)
		}
		gotBlocks += n
		first = false
	}

	if err := m.Err(); err != nil {
		return gotBlocks, newError(AllocationFailed, err)
	}

	return gotBlocks, nil
}

// readableByAnyClass reports whether mode grants read permission to the
// owner, group, or other class, mirroring the original source's
// QFileDevice::ReadUser/ReadGroup/ReadOther check via the POSIX-equivalent
// Go stat bits.
func readableByAnyClass(mode os.FileMode) bool {
	const anyRead = 0444
	return mode.Perm()&anyRead != 0
}

func errResult(err *Error) Result {
	return Result{ErrorCode: err.Code}
}
