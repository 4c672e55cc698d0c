package geoapify

import (
	"errors"
	"fmt"
)

// Kind classifies a provider failure.
type Kind string

const (
	KindBadRequest     Kind = "bad_request"
	KindRequestFailed  Kind = "request_failed"
	KindDecodingFailed Kind = "decoding_failed"
	// KindEmpty means the request succeeded but nothing matched.
	KindEmpty Kind = "empty"
	// KindCancelled is internal: the caller gave up (context cancelled or a
	// debounced trigger was superseded). It is never shown to users.
	KindCancelled Kind = "cancelled"
)

// Sentinels for errors.Is matching on kind alone.
var (
	ErrBadRequest     = &Error{Kind: KindBadRequest}
	ErrRequestFailed  = &Error{Kind: KindRequestFailed}
	ErrDecodingFailed = &Error{Kind: KindDecodingFailed}
	ErrEmpty          = &Error{Kind: KindEmpty}
	ErrCancelled      = &Error{Kind: KindCancelled}
)

// Error is returned by every Client method.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	switch {
	case e.Op != "" && e.Err != nil:
		return fmt.Sprintf("geoapify %s: %s: %v", e.Op, e.Kind, e.Err)
	case e.Op != "":
		return fmt.Sprintf("geoapify %s: %s", e.Op, e.Kind)
	}
	return fmt.Sprintf("geoapify: %s", e.Kind)
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches any *Error of the same kind.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Kind == e.Kind
}

// UserMessage is the text shown for this failure.
func (e *Error) UserMessage() string {
	return MessageFor(e.Kind)
}

func MessageFor(k Kind) string {
	switch k {
	case KindBadRequest:
		return "Invalid request URL."
	case KindRequestFailed:
		return "Failed to fetch data. Please check your network connection."
	case KindDecodingFailed:
		return "Could not read data from the service."
	case KindEmpty:
		return "No results found."
	case KindCancelled:
		return "The request was cancelled."
	}
	return "Something went wrong while fetching places."
}

// KindOf returns the kind of err, or "" when err is not a provider error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

func newError(kind Kind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}
