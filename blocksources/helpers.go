package blocksources

import (
	"fmt"

	"github.com/probonopd/zsyncjob/patcher"
)

// errorWatcher is a small helper object
// sendIfSet will only return a channel if there is an error set
// so w.sendIfSet() <- w.Err() is always safe in a select statement
// even if there is no error set
type errorWatcher struct {
	errorChannel chan error
	lastError    error
}

func (w *errorWatcher) setError(e error) {
	if w.lastError != nil {
		panic("cannot set a new error when one is already set!")
	}
	w.lastError = e
}

func (w *errorWatcher) clear() {
	w.lastError = nil
}

func (w *errorWatcher) Err() error {
	return w.lastError
}

func (w *errorWatcher) sendIfSet() chan<- error {
	if w.lastError != nil {
		return w.errorChannel
	} else {
		return nil
	}
}

type pendingResponseHelper struct {
	responseChannel chan patcher.BlockReponse
	pendingResponse *patcher.BlockReponse
}

func (w *pendingResponseHelper) setResponse(r *patcher.BlockReponse) {
	if w.pendingResponse != nil {
		p := fmt.Sprintf("Setting a response when one is already set! Had startblock %v, got %v", r.StartBlock, w.pendingResponse.StartBlock)
		panic(p)
	}
	w.pendingResponse = r
}

func (w *pendingResponseHelper) clear() {
	w.pendingResponse = nil
}

func (w *pendingResponseHelper) Response() patcher.BlockReponse {
	if w.pendingResponse == nil {
		return patcher.BlockReponse{}
	}
	return *w.pendingResponse
}

func (w *pendingResponseHelper) sendIfPending() chan<- patcher.BlockReponse {
	if w.pendingResponse != nil {
		return w.responseChannel
	} else {
		return nil
	}

}

type UintSlice []uint

func (r UintSlice) Len() int {
	return len(r)
}

func (r UintSlice) Swap(i, j int) {
	r[i], r[j] = r[j], r[i]
}

func (r UintSlice) Less(i, j int) bool {
	return r[i] < r[j]
}

// PendingResponses orders completed-but-not-yet-delivered block responses by
// block id, so the loop can tell when the lowest outstanding request has
// been satisfied.
type PendingResponses []patcher.BlockReponse

func (r PendingResponses) Len() int {
	return len(r)
}

func (r PendingResponses) Swap(i, j int) {
	r[i], r[j] = r[j], r[i]
}

func (r PendingResponses) Less(i, j int) bool {
	return r[i].StartBlock < r[j].StartBlock
}

// asyncResult carries a DoRequest outcome back from its goroutine to the
// loop's select statement.
type asyncResult struct {
	blockID uint
	data    []byte
	err     error
}

// queuedRequest is a request waiting for a free request slot, with its
// block-id range already resolved to absolute byte offsets.
type queuedRequest struct {
	startBlockID uint
	startOffset  int64
	endOffset    int64
}

type queuedRequestList []queuedRequest

func (r queuedRequestList) Len() int {
	return len(r)
}

func (r queuedRequestList) Swap(i, j int) {
	r[i], r[j] = r[j], r[i]
}

func (r queuedRequestList) Less(i, j int) bool {
	return r[i].startBlockID < r[j].startBlockID
}

// QueuedRequest is one block-id range a BlockSourceOffsetResolver has
// decided to request as a single unit.
type QueuedRequest struct {
	startBlockID uint
	endBlockID   uint
}

// BlockSourceOffsetResolver translates block ids into the byte offsets a
// BlockSourceRequester understands, and may split a wide block-id range
// into several smaller requests (e.g. to keep individual HTTP range
// requests a reasonable size).
type BlockSourceOffsetResolver interface {
	GetBlockStartOffset(blockID uint) int64
	GetBlockEndOffset(blockID uint) int64
	SplitBlockRangeToDesiredSize(startBlockID, endBlockID uint) []QueuedRequest
}

func MakeNullFixedSizeResolver(blockSize uint64) BlockSourceOffsetResolver {
	return &FixedSizeBlockResolver{
		BlockSize: blockSize,
	}
}

func MakeFileSizedBlockResolver(blockSize uint64, filesize int64) BlockSourceOffsetResolver {
	return &FixedSizeBlockResolver{
		BlockSize: blockSize,
		FileSize:  filesize,
	}
}
