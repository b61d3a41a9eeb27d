package domain

import (
	"errors"
	"fmt"
)

// ErrorKind classifies fetch failures for diagnostics.
type ErrorKind string

const (
	// NetworkError covers transport failures, non-success statuses and an open circuit.
	NetworkError ErrorKind = "network_error"
	// ParseError covers response bodies that are not a list of users.
	ParseError ErrorKind = "parse_error"
)

var (
	ErrNetwork = errors.New("network error")
	ErrParse   = errors.New("parse error")
)

// FetchError is returned by a Fetcher when a page could not be loaded.
type FetchError struct {
	Kind       ErrorKind
	Cursor     int
	StatusCode int
	Err        error
}

func NewNetworkError(cursor, statusCode int, err error) *FetchError {
	return &FetchError{Kind: NetworkError, Cursor: cursor, StatusCode: statusCode, Err: err}
}

func NewParseError(cursor int, err error) *FetchError {
	return &FetchError{Kind: ParseError, Cursor: cursor, Err: err}
}

// Error implements the error interface
func (e *FetchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s fetching page %d (status %d): %v", e.Kind, e.Cursor, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s fetching page %d: %v", e.Kind, e.Cursor, e.Err)
}

// Unwrap returns the underlying error for errors.Is and errors.As
func (e *FetchError) Unwrap() error {
	return e.Err
}

// Is matches the ErrNetwork and ErrParse sentinels by kind.
func (e *FetchError) Is(target error) bool {
	switch target {
	case ErrNetwork:
		return e.Kind == NetworkError
	case ErrParse:
		return e.Kind == ParseError
	}
	return false
}

// KindOf returns the kind of a fetch failure, or "" if err is not one.
func KindOf(err error) ErrorKind {
	var fe *FetchError
	if errors.As(err, &fe) {
		return fe.Kind
	}
	return ""
}
