package order

import (
	"fmt"

	"github.com/mkovtun/storecore/internal/errs"
)

// Order status lifecycle. Every order starts as StatusPending and moves
// through the lifecycle until a terminal status.
const (
	StatusPending    = "pending"
	StatusProcessing = "processing"
	StatusShipped    = "shipped"
	StatusDelivered  = "delivered"
	StatusCancelled  = "cancelled"
)

// Payment fields are recorded with the order but never reconciled here.
const (
	PaymentPending   = "pending"
	PaymentCompleted = "completed"
	PaymentFailed    = "failed"
)

const (
	PaymentMethodCOD    = "cod"
	PaymentMethodCard   = "card"
	PaymentMethodPayPal = "paypal"
	PaymentMethodBank   = "bank"
)

// ValidStatus reports whether s is a known order status.
func ValidStatus(s string) bool {
	switch s {
	case StatusPending, StatusProcessing, StatusShipped, StatusDelivered, StatusCancelled:
		return true
	}
	return false
}

// IsTerminal reports whether no further transition is defined from s.
func IsTerminal(s string) bool {
	return s == StatusDelivered || s == StatusCancelled
}

// Cancellable reports whether an order in status s may still be cancelled.
func Cancellable(s string) bool {
	return s == StatusPending || s == StatusProcessing
}

// Transition validates an administrative status change from one status to
// another. Any change between known statuses is currently permitted; all
// callers go through this hook so a stricter transition table can be
// substituted without touching them.
func Transition(from, to string) error {
	if !ValidStatus(to) {
		return fmt.Errorf("unknown status %q: %w", to, errs.ErrValidation)
	}
	_ = from
	return nil
}
