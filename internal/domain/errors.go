// Package domain defines the error taxonomy shared by the API and CLI.
package domain

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorKind classifies a failure for transport mapping.
type ErrorKind string

const (
	KindValidation ErrorKind = "validation"
	KindNotFound   ErrorKind = "not_found"
	KindConfig     ErrorKind = "config"
	KindUpstream   ErrorKind = "upstream"
	KindIO         ErrorKind = "io"
)

// Error is a classified error with optional cause.
type Error struct {
	Kind    ErrorKind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// NewError creates a classified error.
func NewError(kind ErrorKind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

func ValidationError(message string) *Error {
	return NewError(KindValidation, message, nil)
}

func NotFoundError(message string) *Error {
	return NewError(KindNotFound, message, nil)
}

func ConfigError(message string, err error) *Error {
	return NewError(KindConfig, message, err)
}

func UpstreamError(message string, err error) *Error {
	return NewError(KindUpstream, message, err)
}

func IOError(message string, err error) *Error {
	return NewError(KindIO, message, err)
}

// KindOf returns the kind of the first *Error in err's chain, or "" if none.
func KindOf(err error) ErrorKind {
	var de *Error
	if errors.As(err, &de) {
		return de.Kind
	}
	return ""
}

// HTTPStatus maps an error to the status code the API answers with.
func HTTPStatus(err error) int {
	switch KindOf(err) {
	case KindValidation:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	case KindConfig:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
