// Package errs defines the error kinds surfaced by the order, inventory
// and review services. Every failure is returned synchronously to the
// caller; there are no internal retries.
package errs

import "errors"

var ErrProductNotFound = errors.New("product not found")
var ErrOrderNotFound = errors.New("order not found")
var ErrReviewNotFound = errors.New("review not found")

var ErrAccessDenied = errors.New("access denied")
var ErrInvalidTransition = errors.New("operation not permitted in current order status")
var ErrInsufficientStock = errors.New("insufficient stock")
var ErrDuplicateReview = errors.New("product already reviewed by this user")
var ErrValidation = errors.New("invalid input")

var ErrConflict = errors.New("the record has been modified by another transaction")
var ErrUnavailable = errors.New("store unavailable")
