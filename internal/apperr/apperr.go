// Package apperr defines the error kinds shared by every engine component.
// Domain packages wrap one of these kinds in their own sentinels so callers
// can branch on the kind with errors.Is without knowing the specific cause.
package apperr

import (
	"errors"
	"net/http"
)

var (
	ErrNotFound      = errors.New("not found")
	ErrConflict      = errors.New("conflict")
	ErrInvalidState  = errors.New("invalid state")
	ErrForbidden     = errors.New("forbidden")
	ErrDependency    = errors.New("dependency failure")
	ErrInvalidConfig = errors.New("invalid config")
	ErrInvalidInput  = errors.New("invalid input")
)

// Kind returns a short machine readable code for err.
func Kind(err error) string {
	switch {
	case err == nil:
		return ""
	// A failed dependency may carry its own cause kind; the failure wins.
	case errors.Is(err, ErrDependency):
		return "dependency_failure"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrConflict):
		return "conflict"
	case errors.Is(err, ErrInvalidState):
		return "invalid_state"
	case errors.Is(err, ErrForbidden):
		return "forbidden"
	case errors.Is(err, ErrInvalidConfig):
		return "invalid_config"
	case errors.Is(err, ErrInvalidInput):
		return "invalid_input"
	default:
		return "internal_error"
	}
}

// HTTPStatus maps an error kind to the status code a request layer should return.
func HTTPStatus(err error) int {
	switch Kind(err) {
	case "":
		return http.StatusOK
	case "not_found":
		return http.StatusNotFound
	case "conflict":
		return http.StatusConflict
	case "invalid_state", "invalid_input":
		return http.StatusBadRequest
	case "forbidden":
		return http.StatusForbidden
	case "dependency_failure":
		return http.StatusBadGateway
	case "invalid_config":
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}
