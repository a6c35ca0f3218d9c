/*
Package sequential turns the ranges a job.Job reports as required into
writes against the target file, fetching each one from a patcher.BlockSource
and placing the response at its correct absolute offset.

Unlike the teacher's original SequentialPatcher, which had to interleave
locally-salvaged and remotely-fetched spans into a single output stream (the
engine it drove reported matches and misses as parallel lists, neither of
which wrote through), this module's job.Job already writes every matched
block straight to the shared target via WriteAt as it finds it. What's left
once a job completes is strictly the gaps it reported, so this package's job
shrinks to: request each gap, write what comes back.
*/
package sequential

import (
	"fmt"
	"io"

	"github.com/probonopd/zsyncjob/comparer"
	"github.com/probonopd/zsyncjob/patcher"
)

// ToMissingBlockSpans converts comparer.RequiredRanges' output into the
// patcher.BlockSource request shape.
func ToMissingBlockSpans(ranges []comparer.RequiredRange, blockSize int64) []patcher.MissingBlockSpan {
	spans := make([]patcher.MissingBlockSpan, len(ranges))
	for i, r := range ranges {
		spans[i] = patcher.MissingBlockSpan{
			StartBlock:   uint(r.From),
			EndBlock:     uint(r.To),
			BlockSize:    blockSize,
			ExpectedSums: r.Checksums,
		}
	}
	return spans
}

// Fetch requests each span from source in order and writes the response
// bytes to target at the span's absolute byte offset, returning the first
// error encountered from either the source or the target write.
func Fetch(
	spans []patcher.MissingBlockSpan,
	source patcher.BlockSource,
	target io.WriterAt,
) error {
	if source == nil {
		return fmt.Errorf("sequential: no BlockSource set for obtaining required ranges")
	}

	for _, span := range spans {
		if err := source.RequestBlocks(span); err != nil {
			return err
		}

		select {
		case result := <-source.GetResultChannel():
			if result.StartBlock != span.StartBlock {
				return fmt.Errorf("sequential: received unexpected block %v, wanted %v", result.StartBlock, span.StartBlock)
			}

			offset := int64(span.StartBlock) * span.BlockSize
			if _, err := target.WriteAt(result.Data, offset); err != nil {
				return err
			}

		case err := <-source.EncounteredError():
			return err
		}
	}

	return nil
}
