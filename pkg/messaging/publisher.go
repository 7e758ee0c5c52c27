// Package messaging defines the event publishing contracts used by the
// order lifecycle to notify downstream consumers.
package messaging

import (
	"context"
)

const (
	OrdersCreatedSubject   = "orders.created"
	OrdersCancelledSubject = "orders.cancelled"
)

type Event interface {
	Subject() string
	Payload() ([]byte, error)
}

type Publisher interface {
	Publish(ctx context.Context, event Event) error
}

// NoopPublisher discards events. Used when eventing is disabled and by tests.
type NoopPublisher struct{}

func (NoopPublisher) Publish(context.Context, Event) error { return nil }
