package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/dmitrijs2005/diagnexus/internal/common"
)

// ErrUnavailable means the server could not be reached.
var ErrUnavailable = errors.New("server unavailable")

// Error is a non-2xx response. It unwraps to the matching sentinel from
// package common so callers can use errors.Is.
type Error struct {
	StatusCode int
	Message    string
}

func (e *Error) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("server returned %d", e.StatusCode)
	}
	return fmt.Sprintf("server returned %d: %s", e.StatusCode, e.Message)
}

func (e *Error) Unwrap() error {
	switch e.StatusCode {
	case http.StatusBadRequest:
		return common.ErrorInvalidInput
	case http.StatusUnauthorized:
		return common.ErrorUnauthorized
	case http.StatusForbidden:
		return common.ErrorForbidden
	case http.StatusNotFound:
		return common.ErrorNotFound
	case http.StatusConflict:
		return common.ErrorConflict
	case http.StatusServiceUnavailable:
		return common.ErrorServiceUnavailable
	default:
		return common.ErrorInternal
	}
}
