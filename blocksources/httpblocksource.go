package blocksources

import (
	"fmt"
	"io/ioutil"
	"net/http"
)

const MB = 1024 * 1024

// RangedRequestNotSupportedError is returned when the server doesn't
// honour a Range request (no 206 response).
type RangedRequestNotSupportedError struct {
	StatusCode int
}

func (e RangedRequestNotSupportedError) Error() string {
	return fmt.Sprintf("Ranged request not supported (server responded %v, not 206)", e.StatusCode)
}

// URLNotFoundError is returned when the remote responds 404 to a block
// request.
type URLNotFoundError struct {
	URL string
}

func (e URLNotFoundError) Error() string {
	return fmt.Sprintf("404 Error on URL %q", e.URL)
}

func NewHttpBlockSource(
	url string,
	concurrentRequests int,
	resolver BlockSourceOffsetResolver,
	verifier ChecksumVerifier,
) *BlockSourceBase {
	return NewBlockSourceBase(
		&HttpRequester{
			url:    url,
			client: http.DefaultClient,
		},
		resolver,
		verifier,
		concurrentRequests,
		4*MB,
	)
}

// This class provides the implementation of BlockSourceRequester for BlockSourceBase
// this simplifies creating new BlockSources that satisfy the requirements down to
// writing a request function
type HttpRequester struct {
	client *http.Client
	url    string
}

func (r *HttpRequester) DoRequest(startOffset int64, endOffset int64) (data []byte, err error) {
	rangedRequest, err := http.NewRequest("GET", r.url, nil)

	if err != nil {
		return nil, err
	}

	rangeSpecifier := fmt.Sprintf("bytes=%v-%v", startOffset, endOffset-1)
	rangedRequest.ProtoAtLeast(1, 1)
	rangedRequest.Header.Add("Range", rangeSpecifier)
	rangedResponse, err := r.client.Do(rangedRequest)

	if err != nil {
		return nil, err
	}

	defer rangedResponse.Body.Close()

	if rangedResponse.StatusCode == 404 {
		return nil, URLNotFoundError{URL: r.url}
	} else if rangedResponse.StatusCode != 206 {
		return nil, RangedRequestNotSupportedError{StatusCode: rangedResponse.StatusCode}
	} else {
		return ioutil.ReadAll(rangedResponse.Body)
	}
}

func (r *HttpRequester) IsFatal(err error) bool {
	return true
}
