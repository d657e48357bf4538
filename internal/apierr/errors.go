// Package apierr defines the error taxonomy shared by the proxy pipeline
// and the auxiliary episode/anime/search handlers, and the JSON envelope
// they are rendered into.
package apierr

import (
	"encoding/json"
	"errors"
	"net/http"
)

// Kind classifies a failure the way the request pipeline needs to map it
// to an HTTP status.
type Kind int

const (
	Internal Kind = iota
	BadRequest
	Forbidden
	NotFound
	Upstream
	BadGateway
	Timeout
	Unavailable
)

// Error is the error type every component in this module returns for
// failures that must reach an HTTP client. Status is only meaningful for
// Kind == Upstream, where it mirrors the origin's status code.
type Error struct {
	Kind    Kind
	Status  int
	Message string
	Err     error
}

// New returns an Error with the given kind and message.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Wrap returns an Error of the given kind wrapping err.
func Wrap(kind Kind, err error) *Error {
	if err == nil {
		return &Error{Kind: kind}
	}
	return &Error{Kind: kind, Message: err.Error(), Err: err}
}

// UpstreamStatus returns an Upstream error mirroring the origin's status.
func UpstreamStatus(status int) *Error {
	return &Error{Kind: Upstream, Status: status, Message: http.StatusText(status)}
}

func (e *Error) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return "error"
}

// Unwrap lets errors.Is/errors.As see through to the underlying cause.
func (e *Error) Unwrap() error {
	return e.Err
}

// HTTPStatus maps Kind to the status code the pipeline responds with.
func (e *Error) HTTPStatus() int {
	switch e.Kind {
	case BadRequest:
		return http.StatusBadRequest
	case Forbidden:
		return http.StatusForbidden
	case NotFound:
		return http.StatusNotFound
	case Upstream:
		if e.Status != 0 {
			return e.Status
		}
		return http.StatusBadGateway
	case BadGateway:
		return http.StatusBadGateway
	case Timeout:
		return http.StatusGatewayTimeout
	case Unavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// As reports whether err (or something it wraps) is an *Error, in which
// case it is returned; otherwise err is wrapped as Internal.
func As(err error) *Error {
	var ae *Error
	if errors.As(err, &ae) {
		return ae
	}
	return &Error{Kind: Internal, Err: err, Message: err.Error()}
}

// WriteJSON writes v as a JSON body with the given status.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// WriteError renders err as the {"error": "..."} envelope with the status
// its Kind maps to.
func WriteError(w http.ResponseWriter, err error) {
	ae := As(err)
	WriteJSON(w, ae.HTTPStatus(), map[string]string{"error": ae.Error()})
}
