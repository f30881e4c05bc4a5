// Package api provides a typed REST client for the Sage onboarding service.
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies a service error by its transport-level cause.
// The kind is decided once, here at the boundary, from the HTTP status code.
// Callers must never re-derive it from the error text.
type Kind int

const (
	// KindServer covers 5xx and anything else without a more specific kind.
	KindServer Kind = iota

	// KindUnauthorized indicates a rejected or missing session (401).
	KindUnauthorized

	// KindNotFound indicates the resource does not exist (404). For groups
	// and slots this is a normal empty state, not a failure.
	KindNotFound

	// KindValidation indicates the request was rejected as malformed (400, 422).
	KindValidation
)

// Error is a non-2xx response from the service.
type Error struct {
	Status  int
	Kind    Kind
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("sage: %s (HTTP %d)", e.Message, e.Status)
}

// IsNotFound reports whether err is a service 404.
func IsNotFound(err error) bool {
	var apiErr *Error
	return errors.As(err, &apiErr) && apiErr.Kind == KindNotFound
}

// IsUnauthorized reports whether err is a service 401.
func IsUnauthorized(err error) bool {
	var apiErr *Error
	return errors.As(err, &apiErr) && apiErr.Kind == KindUnauthorized
}

func kindForStatus(status int) Kind {
	switch status {
	case http.StatusUnauthorized:
		return KindUnauthorized
	case http.StatusNotFound:
		return KindNotFound
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		return KindValidation
	default:
		return KindServer
	}
}

// errorDetail mirrors the service's error body. The detail field is either a
// plain string or a list of field validation errors.
type errorDetail struct {
	Detail json.RawMessage `json:"detail"`
}

// messageFromBody extracts a human-readable message from an error response
// body, falling back to a generic message when the body is not parseable.
func messageFromBody(body []byte, status int) string {
	fallback := fmt.Sprintf("HTTP %d", status)
	if len(body) == 0 {
		return fallback
	}

	var envelope errorDetail
	if err := json.Unmarshal(body, &envelope); err != nil || len(envelope.Detail) == 0 {
		return fallback
	}

	var s string
	if err := json.Unmarshal(envelope.Detail, &s); err == nil && s != "" {
		return s
	}

	var fields []struct {
		Msg string `json:"msg"`
	}
	if err := json.Unmarshal(envelope.Detail, &fields); err == nil && len(fields) > 0 {
		msg := ""
		for i, f := range fields {
			if i > 0 {
				msg += ", "
			}
			msg += f.Msg
		}
		if msg != "" {
			return msg
		}
	}

	return fallback
}
