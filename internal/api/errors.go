package api

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrStatus marks a response with a non-success HTTP status.
	ErrStatus = errors.New("api: unsuccessful status")
	// ErrUnexpectedShape marks a response that could not be decoded or lacks a required field.
	ErrUnexpectedShape = errors.New("api: unexpected response shape")
	// ErrLoginFailed is returned when the login response carries no token.
	ErrLoginFailed = errors.New("api: login failed")
)

// Error carries the raw payload of a failed API call. Error() returns the
// payload verbatim so callers can surface it without translation.
type Error struct {
	Status  int
	Payload string
	Err     error
}

func (e *Error) Error() string {
	if e.Payload != "" {
		return e.Payload
	}
	if e.Status != 0 {
		return fmt.Sprintf("%d %s", e.Status, http.StatusText(e.Status))
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return "api error"
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Payload returns the raw server payload for API errors and the plain error
// text for everything else.
func Payload(err error) string {
	if err == nil {
		return ""
	}
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.Error()
	}
	return err.Error()
}
