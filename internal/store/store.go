// Package store provides the persistence contracts for products, orders
// and reviews, and their PostgreSQL and in-memory implementations.
package store

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Product is the slice of the catalog record this core is allowed to
// mutate: stock and the derived rating aggregate. Title, price and image
// are read for order snapshots only. Version guards read-modify-write
// paths with optimistic concurrency.
type Product struct {
	ID            uuid.UUID
	Title         string
	Price         int64 // minor units
	Image         string
	Stock         int32
	RatingAverage float64
	RatingCount   int32
	Version       int32
	CreatedAt     time.Time
}

// ShippingAddress holds the structured postal/contact fields of an order.
type ShippingAddress struct {
	Street  string
	City    string
	State   string
	ZipCode string
	Country string
	Phone   string
}

// Order is the persisted order entity. Purchaser fields are denormalized
// snapshots taken at creation time.
type Order struct {
	ID            uuid.UUID
	UserID        string
	UserEmail     string
	UserName      string
	TotalAmount   int64
	Address       ShippingAddress
	Status        string
	PaymentStatus string
	PaymentMethod string
	Version       int32
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// OrderItem is a line item with title/price/image captured at order
// creation time; it is never re-derived from the live product record.
type OrderItem struct {
	ID        uuid.UUID
	OrderID   uuid.UUID
	ProductID uuid.UUID
	Title     string
	Price     int64
	Quantity  int32
	Image     string
}

// Review is a product review; at most one exists per (ProductID, UserID).
type Review struct {
	ID        uuid.UUID
	ProductID uuid.UUID
	UserID    string
	UserName  string
	UserPhoto string
	Rating    int32
	Comment   string
	CreatedAt time.Time
}

// StockChange names a product and the quantity to reserve or restore.
type StockChange struct {
	ProductID uuid.UUID
	Quantity  int32
}

// Ratings is the derived aggregate over a product's current review set.
type Ratings struct {
	Average float64
	Count   int32
}

// ProductStore is the contract for product stock and rating mutations.
// This core never creates or deletes products; the catalog owns them.
type ProductStore interface {
	// FindProductByID retrieves a single product.
	// Returns ErrProductNotFound if no product exists with the given ID.
	FindProductByID(ctx context.Context, id uuid.UUID) (*Product, error)

	// FindProductsByIDs retrieves the named products. The result may be
	// shorter than ids if some products do not exist.
	FindProductsByIDs(ctx context.Context, ids []uuid.UUID) ([]Product, error)

	// ReserveStock atomically decrements stock for every change in the
	// batch. The batch is all-or-nothing: a failure on any item leaves
	// every product untouched. Concurrent reservations for the same
	// product serialize; when combined demand exceeds stock, exactly one
	// fails with ErrInsufficientStock. Returns ErrProductNotFound if any
	// product is absent.
	ReserveStock(ctx context.Context, changes []StockChange) error

	// RestoreStock increments stock for every change in the batch.
	// Restoring never fails on a stock ceiling.
	RestoreStock(ctx context.Context, changes []StockChange) error

	// RecomputeRatings rereads the full review set for the product and
	// rewrites its rating aggregate. Recomputation is serialized per
	// product. An empty review set yields {0, 0}.
	RecomputeRatings(ctx context.Context, productID uuid.UUID) (*Ratings, error)
}

// UpdateOrderParams carries the customer-patchable order fields together
// with the version expected by the optimistic concurrency check.
type UpdateOrderParams struct {
	ID            uuid.UUID
	Address       ShippingAddress
	PaymentMethod string
	Version       int32
}

// OrderStore is the contract for order persistence.
// Orders are created once and then transition through statuses; they are
// never deleted.
type OrderStore interface {
	// CreateOrder persists the order together with its line items.
	CreateOrder(ctx context.Context, order *Order, items []OrderItem) error

	// FindOrderByID retrieves an order and its line items.
	// Returns ErrOrderNotFound if no order exists with the given ID.
	FindOrderByID(ctx context.Context, id uuid.UUID) (*Order, []OrderItem, error)

	// FindOrdersByUserID returns the user's orders, newest first.
	FindOrdersByUserID(ctx context.Context, userID string, offset, limit int32) ([]Order, error)

	// FindAllOrders returns all orders, newest first.
	FindAllOrders(ctx context.Context, offset, limit int32) ([]Order, error)

	// UpdateOrderDetails applies a customer patch guarded by the record
	// version. Returns ErrOrderNotFound or ErrConflict on a stale version.
	UpdateOrderDetails(ctx context.Context, params UpdateOrderParams) (*Order, error)

	// SetOrderStatus sets the status unconditionally (admin path).
	// Returns ErrOrderNotFound if no order exists with the given ID.
	SetOrderStatus(ctx context.Context, id uuid.UUID, status string) (*Order, error)

	// MarkOrderCancelled flips the order to cancelled if and only if its
	// version matches and its current status still permits cancellation.
	// Returns ErrOrderNotFound or ErrConflict; a raced second cancel gets
	// ErrConflict and must not restore stock again.
	MarkOrderCancelled(ctx context.Context, id uuid.UUID, version int32) (*Order, error)
}

// ReviewStore is the contract for review persistence. The uniqueness of
// (ProductID, UserID) is enforced here.
type ReviewStore interface {
	// CreateReview persists a new review.
	// Returns ErrDuplicateReview if the user already reviewed the product.
	CreateReview(ctx context.Context, review *Review) error

	// FindReviewByID retrieves a single review.
	// Returns ErrReviewNotFound if no review exists with the given ID.
	FindReviewByID(ctx context.Context, id uuid.UUID) (*Review, error)

	// FindReviewsByProductID returns all reviews for a product, newest first.
	FindReviewsByProductID(ctx context.Context, productID uuid.UUID) ([]Review, error)

	// FindRecentReviews returns the most recent reviews across products.
	FindRecentReviews(ctx context.Context, limit int32) ([]Review, error)

	// UpdateReview rewrites the rating and comment of an existing review.
	// Returns ErrReviewNotFound if no review exists with the given ID.
	UpdateReview(ctx context.Context, id uuid.UUID, rating int32, comment string) (*Review, error)

	// DeleteReview removes a review.
	// Returns ErrReviewNotFound if no review exists with the given ID.
	DeleteReview(ctx context.Context, id uuid.UUID) error
}
