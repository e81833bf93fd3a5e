package api

import (
	"errors"
	"fmt"
	"strings"
)

// TransportError means no response arrived at all (backend down, DNS,
// connection reset mid-request). Never retried automatically.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("backend not reachable during %s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// ServerError is a non-2xx response. Detail carries the backend's own
// message verbatim, which is more specific than anything we could add.
type ServerError struct {
	Status int
	Detail string
}

func (e *ServerError) Error() string {
	if e.Detail != "" {
		return e.Detail
	}
	return fmt.Sprintf("request failed: %d", e.Status)
}

// BatchError reports a multi-file upload where some files were rejected
type BatchError struct {
	Errors []string
}

func (e *BatchError) Error() string {
	return fmt.Sprintf("%d file(s) rejected: %s", len(e.Errors), strings.Join(e.Errors, "; "))
}

// IsUnreachable reports whether err means the backend gave no response
func IsUnreachable(err error) bool {
	var te *TransportError
	return errors.As(err, &te)
}
