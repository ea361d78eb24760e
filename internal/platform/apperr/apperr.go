package apperr

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/ehr/encounter/internal/platform/validate"
)

// Kinds group domain errors by how a client should react to them.
var (
	ErrNotFound  = errors.New("not found")
	ErrConflict  = errors.New("conflict")
	ErrInvalid   = errors.New("invalid")
	ErrForbidden = errors.New("forbidden")
)

// Error is a domain error with a stable code, e.g. "unsigned_components".
type Error struct {
	Kind    error
	Code    string
	Message string
}

func New(kind error, code, message string) *Error {
	return &Error{Kind: kind, Code: code, Message: message}
}

func (e *Error) Error() string { return e.Message }

func (e *Error) Is(target error) bool { return target == e.Kind }

var statusByKind = []struct {
	kind   error
	status int
}{
	{ErrNotFound, http.StatusNotFound},
	{ErrConflict, http.StatusConflict},
	{ErrInvalid, http.StatusUnprocessableEntity},
	{ErrForbidden, http.StatusForbidden},
}

// Status maps err to an HTTP status code.
func Status(err error) int {
	var verrs validate.Errors
	if errors.As(err, &verrs) {
		return http.StatusUnprocessableEntity
	}
	for _, s := range statusByKind {
		if errors.Is(err, s.kind) {
			return s.status
		}
	}
	return http.StatusInternalServerError
}

// HTTP converts a service error into an echo.HTTPError. Domain errors keep
// their code in the body; anything unclassified becomes a 500.
func HTTP(err error) error {
	if err == nil {
		return nil
	}
	status := Status(err)

	var verrs validate.Errors
	if errors.As(err, &verrs) {
		return echo.NewHTTPError(status, map[string]any{
			"message": "Invalid request data",
			"details": verrs,
		})
	}
	var de *Error
	if errors.As(err, &de) {
		return echo.NewHTTPError(status, map[string]any{
			"code":    de.Code,
			"message": err.Error(),
		})
	}
	if status == http.StatusInternalServerError {
		return echo.NewHTTPError(status, "internal server error").SetInternal(err)
	}
	return echo.NewHTTPError(status, err.Error())
}
