// Package inventory implements stock reservation for order placement and
// stock restoration for order cancellation.
package inventory

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/mkovtun/storecore/internal/errs"
	"github.com/mkovtun/storecore/internal/store"
)

// Reservation names a product and the quantity to hold against an order.
type Reservation struct {
	ProductID uuid.UUID
	Quantity  int32
}

// Service reserves and restores per-product stock counts.
type Service interface {
	// Reserve decrements stock for every reservation in the batch,
	// all-or-nothing. Returns ErrProductNotFound or ErrInsufficientStock
	// without applying any decrement; on success every named product's
	// stock has been reduced by exactly the requested quantity and the
	// reservation is durable. Concurrent reservations that jointly
	// oversell a product cannot both succeed.
	Reserve(ctx context.Context, reservations []Reservation) error

	// Restore reverses a prior reservation by incrementing each product's
	// stock. Callers must invoke it exactly once per cancelled order;
	// restoring never fails on a stock ceiling.
	Restore(ctx context.Context, reservations []Reservation) error
}

// StockService implements Service over a ProductStore whose batch stock
// operations are atomic.
type StockService struct {
	products store.ProductStore
	logger   *slog.Logger
}

// NewStockService creates a new inventory service.
func NewStockService(products store.ProductStore, logger *slog.Logger) *StockService {
	return &StockService{
		products: products,
		logger:   logger.With("component", "inventory"),
	}
}

func (s *StockService) Reserve(ctx context.Context, reservations []Reservation) error {
	changes, err := toChanges(reservations)
	if err != nil {
		return err
	}
	if err := s.products.ReserveStock(ctx, changes); err != nil {
		return err
	}
	s.logger.DebugContext(ctx, "Stock reserved", "items", len(changes))
	return nil
}

func (s *StockService) Restore(ctx context.Context, reservations []Reservation) error {
	changes, err := toChanges(reservations)
	if err != nil {
		return err
	}
	if err := s.products.RestoreStock(ctx, changes); err != nil {
		return err
	}
	s.logger.DebugContext(ctx, "Stock restored", "items", len(changes))
	return nil
}

// toChanges validates the batch and merges duplicate product entries so the
// store applies a single change per product record.
func toChanges(reservations []Reservation) ([]store.StockChange, error) {
	if len(reservations) == 0 {
		return nil, fmt.Errorf("empty reservation batch: %w", errs.ErrValidation)
	}
	index := make(map[uuid.UUID]int, len(reservations))
	changes := make([]store.StockChange, 0, len(reservations))
	for _, r := range reservations {
		if r.Quantity < 1 {
			return nil, fmt.Errorf("product %s: quantity must be at least 1: %w", r.ProductID, errs.ErrValidation)
		}
		if i, ok := index[r.ProductID]; ok {
			changes[i].Quantity += r.Quantity
			continue
		}
		index[r.ProductID] = len(changes)
		changes = append(changes, store.StockChange{ProductID: r.ProductID, Quantity: r.Quantity})
	}
	return changes, nil
}
