package model

import (
	"errors"
	"fmt"
)

// ErrorKind classifies a failure surfaced to the user.
type ErrorKind string

const (
	KindValidation ErrorKind = "validation"
	KindProducer   ErrorKind = "producer"
	KindClipboard  ErrorKind = "clipboard"
	KindDownload   ErrorKind = "download"
)

// Messages shown inline for failures that carry no message of their own.
const (
	MsgInvalidURL      = "Please enter a valid URL"
	MsgClipboardFailed = "Failed to copy to clipboard"
	MsgDownloadFailed  = "Failed to download results"
)

// Error is a user-facing failure. Message is what the page displays; Err is
// the wrapped cause, if any.
type Error struct {
	Kind    ErrorKind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func NewValidationError(msg string) *Error {
	return &Error{Kind: KindValidation, Message: msg}
}

func NewProducerError(msg string, err error) *Error {
	return &Error{Kind: KindProducer, Message: msg, Err: err}
}

func NewClipboardError(err error) *Error {
	return &Error{Kind: KindClipboard, Message: MsgClipboardFailed, Err: err}
}

func NewDownloadError(err error) *Error {
	return &Error{Kind: KindDownload, Message: MsgDownloadFailed, Err: err}
}

// IsKind reports whether err wraps an *Error of the given kind.
func IsKind(err error, kind ErrorKind) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == kind
}

// UserMessage returns the text to display for err.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	var e *Error
	if errors.As(err, &e) && e.Message != "" {
		return e.Message
	}
	return err.Error()
}
