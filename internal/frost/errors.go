package frost

import (
	"errors"
	"fmt"
)

// ErrUnknownVersion is returned for API version tags other than v0 and v1.
var ErrUnknownVersion = errors.New("unknown API version")

// TransportError wraps network-level failures. The request is not retried.
type TransportError struct {
	URL string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("request %s: %v", e.URL, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// FetchError reports a non-success status from the observation API.
type FetchError struct {
	StatusCode int
	Message    string
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("observation API returned status %d: %s", e.StatusCode, e.Message)
}

// MalformedResponseError reports a payload that lacks the expected structure.
type MalformedResponseError struct {
	Version Version
	Reason  string
	Err     error
}

func (e *MalformedResponseError) Error() string {
	msg := fmt.Sprintf("malformed %s response: %s", e.Version, e.Reason)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *MalformedResponseError) Unwrap() error {
	return e.Err
}
