package rest

import (
	"errors"
	"net/http"

	"github.com/mkovtun/storecore/internal/errs"
)

// statusFor maps service error kinds to HTTP status codes. Unknown errors
// are reported as internal without leaking their message.
func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, errs.ErrProductNotFound),
		errors.Is(err, errs.ErrOrderNotFound),
		errors.Is(err, errs.ErrReviewNotFound):
		return http.StatusNotFound, err.Error()
	case errors.Is(err, errs.ErrAccessDenied):
		return http.StatusForbidden, err.Error()
	case errors.Is(err, errs.ErrInvalidTransition),
		errors.Is(err, errs.ErrInsufficientStock),
		errors.Is(err, errs.ErrValidation):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, errs.ErrDuplicateReview),
		errors.Is(err, errs.ErrConflict):
		return http.StatusConflict, err.Error()
	case errors.Is(err, errs.ErrUnavailable):
		return http.StatusServiceUnavailable, "Service is temporarily unavailable"
	default:
		return http.StatusInternalServerError, "An unexpected error occurred"
	}
}
