package transport

import (
	"errors"
	"fmt"
	"strings"
)

// Kind classifies a failure so every layer can decide how to surface it.
type Kind string

const (
	// KindConnectivity means the request never completed (dial, timeout, broken body).
	KindConnectivity Kind = "connectivity"
	// KindServer means the API answered with a non-2xx status.
	KindServer Kind = "server"
	// KindDecode means a 2xx body did not match the expected schema.
	KindDecode Kind = "decode"
	// KindValidation means a local precondition failed before any request was made.
	KindValidation Kind = "validation"
)

// Error is the single error type produced by the adapter and shared by higher layers.
type Error struct {
	Kind    Kind
	Method  string
	Path    string
	Status  int
	Message string
	Err     error
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString("transport: ")
	if e.Method != "" {
		b.WriteString(e.Method)
		b.WriteString(" ")
		b.WriteString(e.Path)
		b.WriteString(": ")
	}
	b.WriteString(string(e.Kind))
	if e.Status != 0 {
		fmt.Fprintf(&b, " (%d)", e.Status)
	}
	if e.Message != "" {
		b.WriteString(": ")
		b.WriteString(e.Message)
	} else if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Invalid builds a validation error carrying a user-facing message. cause may be a sentinel
// so callers can still match it with errors.Is.
func Invalid(message string, cause error) error {
	return &Error{Kind: KindValidation, Message: message, Err: cause}
}

// KindOf reports the Kind of err, or an empty Kind when err is not a transport error.
func KindOf(err error) Kind {
	var tErr *Error
	if errors.As(err, &tErr) {
		return tErr.Kind
	}
	return ""
}

// MessageOf extracts the user-facing message from err.
func MessageOf(err error) string {
	if err == nil {
		return ""
	}
	var tErr *Error
	if errors.As(err, &tErr) {
		if tErr.Message != "" {
			return tErr.Message
		}
		if tErr.Err != nil {
			return tErr.Err.Error()
		}
		return string(tErr.Kind)
	}
	return err.Error()
}
