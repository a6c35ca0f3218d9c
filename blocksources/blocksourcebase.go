package blocksources

import (
	"errors"
	"sort"

	"github.com/probonopd/zsyncjob/patcher"
)

type BlockSourceRequester interface {
	// This method is called on multiple goroutines, and must
	// support simultaneous requests
	DoRequest(startOffset int64, endOffset int64) (data []byte, err error)

	// If an error raised by DoRequest should cause BlockSourceBase
	// to give up, return true
	IsFatal(err error) bool
}

// ChecksumVerifier checks a delivered block range against the checksums
// the caller already knows it should have. filechecksum.HashVerifier
// satisfies this.
type ChecksumVerifier interface {
	VerifyBlockRange(startBlockID uint, data []byte) bool
}

// ErrChecksumVerificationFailed is raised when a block delivered by the
// source doesn't match the checksum the caller expected, e.g. the far end
// served a different (stale or corrupt) copy of the target file.
var ErrChecksumVerificationFailed = errors.New("blocksources: delivered block failed checksum verification")

func NewBlockSourceBase(
	requester BlockSourceRequester,
	resolver BlockSourceOffsetResolver,
	verifier ChecksumVerifier,
	concurrentRequestCount int,
	concurrentBytes int64,
) *BlockSourceBase {

	b := &BlockSourceBase{
		Requester:          requester,
		Resolver:           resolver,
		Verifier:           verifier,
		ConcurrentRequests: concurrentRequestCount,
		ConcurrentBytes:    concurrentBytes,
		exitChannel:        make(chan bool),
		errorChannel:       make(chan error),
		responseChannel:    make(chan patcher.BlockReponse),
		requestChannel:     make(chan patcher.MissingBlockSpan),
	}

	go b.loop()

	return b
}

// BlockSourceBase provides an implementation of blocksource
// that takes care of everything except for the actual asyncronous request
// this makes blocksources easier and faster to build reliably
// BlockSourceBase implements patcher.BlockSource, and if it's good enough,
// perhaps nobody else ever will have to.
type BlockSourceBase struct {
	Requester BlockSourceRequester
	Resolver  BlockSourceOffsetResolver
	Verifier  ChecksumVerifier

	// The number of requests that BlockSourceBase may service at once
	ConcurrentRequests int

	// A byte budget for in-flight data (requested + pending delivery).
	// It is stored but not enforced: the request loop limits only the
	// number of requests, by ConcurrentRequests.
	ConcurrentBytes int64

	hasQuit         bool
	exitChannel     chan bool
	errorChannel    chan error
	responseChannel chan patcher.BlockReponse
	requestChannel  chan patcher.MissingBlockSpan

	bytesRequested int64
}

const (
	STATE_RUNNING = iota
	STATE_EXITING
)

func (s *BlockSourceBase) ReadBytes() int64 {
	return s.bytesRequested
}

func (s *BlockSourceBase) RequestBlocks(block patcher.MissingBlockSpan) error {
	s.requestChannel <- block
	return nil
}

func (s *BlockSourceBase) GetResultChannel() <-chan patcher.BlockReponse {
	return s.responseChannel
}

// If the block source encounters an unsurmountable problem
func (s *BlockSourceBase) EncounteredError() <-chan error {
	return s.errorChannel
}

func (s *BlockSourceBase) Close() {
	// TODO: race condition
	if !s.hasQuit {
		s.exitChannel <- true
	}
}

func (s *BlockSourceBase) loop() {
	defer func() {
		s.hasQuit = true
		close(s.exitChannel)
		close(s.errorChannel)
		close(s.requestChannel)
		close(s.responseChannel)
	}()

	state := STATE_RUNNING
	inflightRequests := 0
	pendingErrors := &errorWatcher{errorChannel: s.errorChannel}
	pendingResponse := &pendingResponseHelper{responseChannel: s.responseChannel}
	resultChan := make(chan asyncResult)
	defer close(resultChan)

	requestQueue := make(queuedRequestList, 0, s.ConcurrentRequests*2)

	// enable us to order responses for the active requests, lowest to highest
	requestOrdering := make(UintSlice, 0, s.ConcurrentRequests)
	responseOrdering := make(PendingResponses, 0, s.ConcurrentRequests)

	for state == STATE_RUNNING || inflightRequests > 0 || pendingErrors.Err() != nil {

		// Start any pending work that we can
		for inflightRequests < s.ConcurrentRequests && len(requestQueue) > 0 {
			inflightRequests += 1

			nextRequest := requestQueue[len(requestQueue)-1]

			requestOrdering = append(requestOrdering, nextRequest.startBlockID)
			sort.Sort(sort.Reverse(requestOrdering))
			go func() {
				result, err := s.Requester.DoRequest(
					nextRequest.startOffset,
					nextRequest.endOffset,
				)

				resultChan <- asyncResult{
					blockID: nextRequest.startBlockID,
					data:    result,
					err:     err,
				}
			}()

			// remove dispatched request
			requestQueue = requestQueue[:len(requestQueue)-1]
		}

		select {
		case newRequest := <-s.requestChannel:
			// TODO: limit size of individual requests, so that we can
			// ensure that we use multiple concurrent connections, even when there
			// is only a single continuous missing block

			requestQueue = append(requestQueue, queuedRequest{
				startBlockID: newRequest.StartBlock,
				startOffset:  s.Resolver.GetBlockStartOffset(newRequest.StartBlock),
				endOffset:    s.Resolver.GetBlockEndOffset(newRequest.EndBlock),
			})

			sort.Sort(sort.Reverse(requestQueue))

		case result := <-resultChan:
			inflightRequests -= 1

			if result.err != nil {
				pendingErrors.setError(result.err)
				pendingResponse.clear()
				state = STATE_EXITING
				break
			}

			if s.Verifier != nil && !s.Verifier.VerifyBlockRange(result.blockID, result.data) {
				pendingErrors.setError(ErrChecksumVerificationFailed)
				pendingResponse.clear()
				state = STATE_EXITING
				break
			}

			s.bytesRequested += int64(len(result.data))

			responseOrdering = append(responseOrdering,
				patcher.BlockReponse{
					StartBlock: result.blockID,
					Data:       result.data,
				},
			)

			// sort high to low
			sort.Sort(sort.Reverse(responseOrdering))

			// if we just got the lowest requested block, we can set
			// the response. Otherwise, wait.
			lowestRequest := requestOrdering[len(requestOrdering)-1]

			if lowestRequest == result.blockID {
				lowestResponse := responseOrdering[len(responseOrdering)-1]
				pendingResponse.clear()
				pendingResponse.setResponse(&lowestResponse)
			}

		case pendingResponse.sendIfPending() <- pendingResponse.Response():
			pendingResponse.clear()
			responseOrdering = responseOrdering[:len(responseOrdering)-1]
			requestOrdering = requestOrdering[:len(requestOrdering)-1]

			// check if there's another response to enqueue
			if len(responseOrdering) > 0 {
				lowestResponse := responseOrdering[len(responseOrdering)-1]
				lowestRequest := requestOrdering[len(requestOrdering)-1]

				if lowestRequest == lowestResponse.StartBlock {
					pendingResponse.setResponse(&lowestResponse)

				}
			}

		case pendingErrors.sendIfSet() <- pendingErrors.Err():
			pendingErrors.clear()

		case <-s.exitChannel:
			state = STATE_EXITING
		}
	}
}
