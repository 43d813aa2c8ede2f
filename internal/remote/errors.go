package remote

import (
	"errors"
	"fmt"
)

// TransportError reports a failed exchange with the remote collection:
// the request could not be sent, the server answered with a non-2xx
// status, or the body could not be decoded.
type TransportError struct {
	Method     string
	Path       string
	StatusCode int // zero when no response was received
	Err        error
}

func (e *TransportError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("transport error on %s %s (status %d): %v", e.Method, e.Path, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("transport error on %s %s: %v", e.Method, e.Path, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// IsTransportError reports whether err (or any error in its chain) is a TransportError.
func IsTransportError(err error) bool {
	var te *TransportError
	return errors.As(err, &te)
}

// ErrInvalidRange is returned by FetchPage for a negative offset or a
// non-positive limit. No request is sent.
var ErrInvalidRange = errors.New("invalid page range")
