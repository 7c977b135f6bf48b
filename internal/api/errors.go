package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrInvalidRequest is returned when a call is made with unusable arguments
	ErrInvalidRequest = errors.New("invalid request parameters")

	// ErrNetwork is returned when the API could not be reached
	ErrNetwork = errors.New("storefront api unreachable")

	// ErrInvalidResponse is returned when the API answered with an unreadable body
	ErrInvalidResponse = errors.New("invalid storefront api response")

	// ErrNotFound is returned for 404 answers
	ErrNotFound = errors.New("resource not found")
)

// StatusError is a non-2xx answer from the API
type StatusError struct {
	StatusCode int
	Message    string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("storefront api returned %d", e.StatusCode)
	}
	return fmt.Sprintf("storefront api returned %d: %s", e.StatusCode, e.Message)
}

// Is lets errors.Is(err, ErrNotFound) match 404 answers.
func (e *StatusError) Is(target error) bool {
	return target == ErrNotFound && e.StatusCode == http.StatusNotFound
}

func newStatusError(status int, body []byte) error {
	var parsed struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	msg := ""
	if err := json.Unmarshal(body, &parsed); err == nil {
		msg = parsed.Message
		if msg == "" {
			msg = parsed.Error
		}
	} else if len(body) > 0 && len(body) <= 256 {
		msg = string(body)
	}
	return &StatusError{StatusCode: status, Message: msg}
}

// IsStatus reports whether err is an API answer with the given status code
func IsStatus(err error, status int) bool {
	var statusErr *StatusError
	return errors.As(err, &statusErr) && statusErr.StatusCode == status
}
