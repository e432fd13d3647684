package github

import (
	"errors"
	"fmt"
)

var (
	ErrTimeout  = errors.New("request timed out")
	ErrNotFound = errors.New("not found")
)

// QueryError is a failed round-trip to GitHub: transport, auth or a non-zero
// exit from gh.
type QueryError struct {
	Op  string
	Err error
}

func (e *QueryError) Error() string {
	return fmt.Sprintf("%s failed: %v", e.Op, e.Err)
}

func (e *QueryError) Unwrap() error {
	return e.Err
}

// FormatError is a response payload that could not be decoded.
type FormatError struct {
	Op  string
	Err error
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("failed to parse %s response: %v", e.Op, e.Err)
}

func (e *FormatError) Unwrap() error {
	return e.Err
}
