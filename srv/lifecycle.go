package srv

import (
	"io"
	"net/http"
	"strconv"
	"sync"
	"time"
)

// Lifecycle states for body accumulation. The machine moves from reading to
// completed exactly once; every transition after that is ignored.
const (
	stateReading = iota
	stateCompleted
)

// bodyChunkSize is the read granularity for body accumulation.
const bodyChunkSize = 32 * 1024

// lifecycle is the per-request state machine governing body accumulation.
// Terminal events can race (overflow, timeout, end of stream); complete
// arbitrates so that exactly one of them produces the result.
type lifecycle struct {
	mu    sync.Mutex
	state int
}

// complete performs the single terminal transition. It reports false when
// the machine already completed, in which case the caller must discard its
// event.
func (l *lifecycle) complete() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.state == stateCompleted {
		return false
	}
	l.state = stateCompleted
	return true
}

// bodyResult is the outcome of the body read phase. destroy marks failures
// after which the transport must not be reused for further requests.
type bodyResult struct {
	body    []byte
	failure *Error
	destroy bool
}

// readRequestBody accumulates the request body under the configured size
// limit and read timeout.
//
// Entry guards, checked before any bytes are read: a request carrying both
// a chunked transfer coding and a Content-Length header is a 400; a
// malformed or negative Content-Length is a 400; a declared length above
// maxBytes is a 413 that destroys the transport without reading further.
//
// During the read, exceeding the declared length is a 400 and exceeding
// maxBytes is a 413, both destroying the transport. A timeout before
// natural completion is a 408. At end of stream, an accumulated size that
// does not match a declared length exactly is a 400.
func readRequestBody(r *http.Request, maxBytes int64, timeout time.Duration) bodyResult {
	chunked := len(r.TransferEncoding) > 0
	clHeader := r.Header.Get("Content-Length")

	if chunked && clHeader != "" {
		return bodyResult{failure: badRequest("both Transfer-Encoding and Content-Length present")}
	}

	declared := int64(-1)
	if clHeader != "" {
		n, err := strconv.ParseInt(clHeader, 10, 64)
		if err != nil || n < 0 {
			return bodyResult{failure: badRequest("malformed Content-Length header")}
		}
		declared = n
		if maxBytes > 0 && declared > maxBytes {
			return bodyResult{failure: newError(http.StatusRequestEntityTooLarge), destroy: true}
		}
	}

	if r.Body == nil {
		if declared > 0 {
			return bodyResult{failure: badRequest("request body shorter than Content-Length")}
		}
		return bodyResult{}
	}

	lc := &lifecycle{state: stateReading}
	results := make(chan bodyResult, 1)
	done := make(chan struct{})

	go func() {
		accumulate(lc, r.Body, declared, maxBytes, results)
		close(done)
	}()

	var timeoutC <-chan time.Time
	if timeout > 0 {
		timer := time.NewTimer(timeout)
		defer timer.Stop()
		timeoutC = timer.C
	}

	select {
	case res := <-results:
		return res
	case <-timeoutC:
		if !lc.complete() {
			// The accumulator won the race; its result is already buffered.
			return <-results
		}
		// Close the body to unblock the pending read and wait for the
		// accumulator to finish. The transport must not be read from again
		// once this request's response is written.
		r.Body.Close()
		<-done
		return bodyResult{failure: newError(http.StatusRequestTimeout)}
	}
}

// accumulate reads the body stream chunk by chunk, checking the size
// bounds after every chunk and reporting the terminal event through the
// lifecycle guard.
func accumulate(lc *lifecycle, body io.Reader, declared, maxBytes int64, results chan<- bodyResult) {
	var acc []byte
	if declared > 0 {
		acc = make([]byte, 0, declared)
	}

	buf := make([]byte, bodyChunkSize)
	for {
		n, err := body.Read(buf)
		if n > 0 {
			acc = append(acc, buf[:n]...)

			if declared >= 0 && int64(len(acc)) > declared {
				if lc.complete() {
					results <- bodyResult{failure: badRequest("request body exceeds Content-Length"), destroy: true}
				}
				return
			}
			if maxBytes > 0 && int64(len(acc)) > maxBytes {
				if lc.complete() {
					results <- bodyResult{failure: newError(http.StatusRequestEntityTooLarge), destroy: true}
				}
				return
			}
		}

		if err == io.EOF {
			if lc.complete() {
				if declared >= 0 && int64(len(acc)) != declared {
					results <- bodyResult{failure: badRequest("request body shorter than Content-Length")}
					return
				}
				results <- bodyResult{body: acc}
			}
			return
		}
		if err != nil {
			if lc.complete() {
				results <- bodyResult{failure: badRequest("error reading request body"), destroy: true}
			}
			return
		}
	}
}
