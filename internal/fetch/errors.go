package fetch

import (
	"fmt"
	"net/http"
	"time"

	"github.com/go-faster/errors"
)

// Kind identifies which of the four failure classes a fetch ended in.
type Kind string

const (
	KindInjectedFault Kind = "InjectedFault"
	KindHTTP          Kind = "HttpError"
	KindTimeout       Kind = "Timeout"
	KindNetwork       Kind = "NetworkError"
)

// Failure is the error returned by Client.Fetch. It is implemented only by
// the four error types in this file.
type Failure interface {
	error
	// Kind reports the failure class.
	Kind() Kind
	// Latency reports the latency attributed to the failed request, if any.
	Latency() (time.Duration, bool)

	failure()
}

// InjectedFaultError is returned for every fetch while chaos mode is on.
type InjectedFaultError struct{}

func (*InjectedFaultError) Error() string {
	return "Chaos Monkey: artificial failure injected into the marketplace integration."
}

func (*InjectedFaultError) Kind() Kind                     { return KindInjectedFault }
func (*InjectedFaultError) Latency() (time.Duration, bool) { return 0, false }
func (*InjectedFaultError) failure()                       {}

// HTTPError reports a non-2xx response from the search endpoint.
type HTTPError struct {
	Status  int
	Elapsed time.Duration // measured request time
}

func (e *HTTPError) Error() string {
	if e.Status == http.StatusNotFound {
		return "No products found (404)."
	}
	return fmt.Sprintf("Product API error (%d).", e.Status)
}

func (e *HTTPError) Kind() Kind                     { return KindHTTP }
func (e *HTTPError) Latency() (time.Duration, bool) { return e.Elapsed, true }
func (e *HTTPError) failure()                       {}

// NotFound reports whether the endpoint answered 404.
func (e *HTTPError) NotFound() bool { return e.Status == http.StatusNotFound }

// TimeoutError reports a request that did not complete within the timeout
// budget, or was cancelled by the caller while in flight.
//
// Estimate is the timeout budget plus the simulated delay. It is an upper
// bound, not the measured elapsed time.
type TimeoutError struct {
	Estimate time.Duration
	Err      error
}

func (e *TimeoutError) Error() string {
	return "Response timed out. Check your network connection."
}

func (e *TimeoutError) Unwrap() error                  { return e.Err }
func (e *TimeoutError) Kind() Kind                     { return KindTimeout }
func (e *TimeoutError) Latency() (time.Duration, bool) { return e.Estimate, true }
func (e *TimeoutError) failure()                       {}

// NetworkError wraps a transport-level failure (DNS, connection refused,
// truncated or malformed body).
type NetworkError struct {
	Err error
}

func (e *NetworkError) Error() string {
	if e.Err == nil {
		return "Network failure."
	}
	return "Network failure: " + e.Err.Error()
}

func (e *NetworkError) Unwrap() error                  { return e.Err }
func (e *NetworkError) Kind() Kind                     { return KindNetwork }
func (e *NetworkError) Latency() (time.Duration, bool) { return 0, false }
func (e *NetworkError) failure()                       {}

// AsFailure converts any error into a Failure. Errors that are not already a
// Failure are reported as a NetworkError. A nil error yields nil.
func AsFailure(err error) Failure {
	if err == nil {
		return nil
	}
	var f Failure
	if errors.As(err, &f) {
		return f
	}
	return &NetworkError{Err: err}
}

// StatusOf returns the HTTP status carried by err, or 0.
func StatusOf(err error) int {
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.Status
	}
	return 0
}
