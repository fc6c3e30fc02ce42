package billing

import (
	"errors"
	"net/http"

	"github.com/dmitrymomot/intakebilling/handler"
	"github.com/dmitrymomot/intakebilling/svc/intake"
)

var (
	errInvalidInput     = handler.NewHTTPError(http.StatusBadRequest, "invalid_input")
	errInvalidSignature = handler.NewHTTPError(http.StatusBadRequest, "invalid_signature")
	errIntakeNotFound   = handler.NewHTTPError(http.StatusNotFound, "intake_not_found")
	errIntakeConflict   = handler.NewHTTPError(http.StatusConflict, "intake_conflict")
)

// httpError attaches the HTTP status for an intake error. The original error
// stays in the chain for logging; clients only see the key.
func httpError(err error) error {
	var status handler.HTTPError
	switch {
	case errors.Is(err, intake.ErrAuthentication):
		status = errInvalidSignature
	case errors.Is(err, intake.ErrValidation):
		status = errInvalidInput
	case errors.Is(err, intake.ErrNotFound):
		status = errIntakeNotFound
	case errors.Is(err, intake.ErrConflict):
		status = errIntakeConflict
	default:
		// Configuration, processor and persistence failures.
		status = handler.ErrInternalServerError
	}
	return errors.Join(status, err)
}
