package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/mkovtun/storecore/internal/errs"
)

func now() time.Time { return time.Now().UTC() }

// MemStore implements ProductStore, OrderStore and ReviewStore using
// in-memory maps. A single mutex serializes all mutations, which gives the
// same per-record atomicity guarantees the SQL implementation gets from
// row locks. Used by tests and local development.
type MemStore struct {
	mu       sync.RWMutex
	products map[uuid.UUID]Product
	orders   map[uuid.UUID]Order
	items    map[uuid.UUID][]OrderItem
	reviews  map[uuid.UUID]Review
}

// NewMemStore creates an empty in-memory store.
func NewMemStore() *MemStore {
	return &MemStore{
		products: make(map[uuid.UUID]Product),
		orders:   make(map[uuid.UUID]Order),
		items:    make(map[uuid.UUID][]OrderItem),
		reviews:  make(map[uuid.UUID]Review),
	}
}

// SeedProduct inserts a catalog record. Products are owned by the catalog;
// this entry point exists so tests can arrange state.
func (s *MemStore) SeedProduct(p Product) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p.Version == 0 {
		p.Version = 1
	}
	s.products[p.ID] = p
}

func (s *MemStore) FindProductByID(_ context.Context, id uuid.UUID) (*Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.products[id]
	if !ok {
		return nil, errs.ErrProductNotFound
	}
	return &p, nil
}

func (s *MemStore) FindProductsByIDs(_ context.Context, ids []uuid.UUID) ([]Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	products := make([]Product, 0, len(ids))
	for _, id := range ids {
		if p, ok := s.products[id]; ok {
			products = append(products, p)
		}
	}
	return products, nil
}

func (s *MemStore) ReserveStock(_ context.Context, changes []StockChange) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Validate the whole batch before touching any stock count.
	for _, c := range changes {
		p, ok := s.products[c.ProductID]
		if !ok {
			return fmt.Errorf("product %s: %w", c.ProductID, errs.ErrProductNotFound)
		}
		if p.Stock < c.Quantity {
			return fmt.Errorf("product %s: %w", c.ProductID, errs.ErrInsufficientStock)
		}
	}
	for _, c := range changes {
		p := s.products[c.ProductID]
		p.Stock -= c.Quantity
		p.Version++
		s.products[c.ProductID] = p
	}
	return nil
}

func (s *MemStore) RestoreStock(_ context.Context, changes []StockChange) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, c := range changes {
		p, ok := s.products[c.ProductID]
		if !ok {
			return fmt.Errorf("product %s: %w", c.ProductID, errs.ErrProductNotFound)
		}
		p.Stock += c.Quantity
		p.Version++
		s.products[c.ProductID] = p
	}
	return nil
}

func (s *MemStore) RecomputeRatings(_ context.Context, productID uuid.UUID) (*Ratings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.products[productID]
	if !ok {
		return nil, errs.ErrProductNotFound
	}

	var sum int64
	var count int32
	for _, r := range s.reviews {
		if r.ProductID == productID {
			sum += int64(r.Rating)
			count++
		}
	}
	ratings := Ratings{Count: count}
	if count > 0 {
		ratings.Average = float64(sum) / float64(count)
	}

	p.RatingAverage = ratings.Average
	p.RatingCount = ratings.Count
	p.Version++
	s.products[productID] = p
	return &ratings, nil
}

func (s *MemStore) CreateOrder(_ context.Context, order *Order, items []OrderItem) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.orders[order.ID] = *order
	s.items[order.ID] = append([]OrderItem(nil), items...)
	return nil
}

func (s *MemStore) FindOrderByID(_ context.Context, id uuid.UUID) (*Order, []OrderItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	o, ok := s.orders[id]
	if !ok {
		return nil, nil, errs.ErrOrderNotFound
	}
	return &o, append([]OrderItem(nil), s.items[id]...), nil
}

func (s *MemStore) FindOrdersByUserID(_ context.Context, userID string, offset, limit int32) ([]Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var orders []Order
	for _, o := range s.orders {
		if o.UserID == userID {
			orders = append(orders, o)
		}
	}
	return pageOrders(orders, offset, limit), nil
}

func (s *MemStore) FindAllOrders(_ context.Context, offset, limit int32) ([]Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	orders := make([]Order, 0, len(s.orders))
	for _, o := range s.orders {
		orders = append(orders, o)
	}
	return pageOrders(orders, offset, limit), nil
}

func pageOrders(orders []Order, offset, limit int32) []Order {
	sort.Slice(orders, func(i, j int) bool {
		return orders[i].CreatedAt.After(orders[j].CreatedAt)
	})
	if int(offset) >= len(orders) {
		return nil
	}
	orders = orders[offset:]
	if int(limit) < len(orders) {
		orders = orders[:limit]
	}
	return orders
}

func (s *MemStore) UpdateOrderDetails(_ context.Context, params UpdateOrderParams) (*Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	o, ok := s.orders[params.ID]
	if !ok {
		return nil, errs.ErrOrderNotFound
	}
	if o.Version != params.Version {
		return nil, errs.ErrConflict
	}
	o.Address = params.Address
	o.PaymentMethod = params.PaymentMethod
	o.Version++
	o.UpdatedAt = now()
	s.orders[params.ID] = o
	return &o, nil
}

func (s *MemStore) SetOrderStatus(_ context.Context, id uuid.UUID, status string) (*Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	o, ok := s.orders[id]
	if !ok {
		return nil, errs.ErrOrderNotFound
	}
	o.Status = status
	o.Version++
	o.UpdatedAt = now()
	s.orders[id] = o
	return &o, nil
}

func (s *MemStore) MarkOrderCancelled(_ context.Context, id uuid.UUID, version int32) (*Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	o, ok := s.orders[id]
	if !ok {
		return nil, errs.ErrOrderNotFound
	}
	if o.Version != version || (o.Status != "pending" && o.Status != "processing") {
		return nil, errs.ErrConflict
	}
	o.Status = "cancelled"
	o.Version++
	o.UpdatedAt = now()
	s.orders[id] = o
	return &o, nil
}

func (s *MemStore) CreateReview(_ context.Context, review *Review) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, r := range s.reviews {
		if r.ProductID == review.ProductID && r.UserID == review.UserID {
			return errs.ErrDuplicateReview
		}
	}
	s.reviews[review.ID] = *review
	return nil
}

func (s *MemStore) FindReviewByID(_ context.Context, id uuid.UUID) (*Review, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.reviews[id]
	if !ok {
		return nil, errs.ErrReviewNotFound
	}
	return &r, nil
}

func (s *MemStore) FindReviewsByProductID(_ context.Context, productID uuid.UUID) ([]Review, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var reviews []Review
	for _, r := range s.reviews {
		if r.ProductID == productID {
			reviews = append(reviews, r)
		}
	}
	sortReviews(reviews)
	return reviews, nil
}

func (s *MemStore) FindRecentReviews(_ context.Context, limit int32) ([]Review, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	reviews := make([]Review, 0, len(s.reviews))
	for _, r := range s.reviews {
		reviews = append(reviews, r)
	}
	sortReviews(reviews)
	if int(limit) < len(reviews) {
		reviews = reviews[:limit]
	}
	return reviews, nil
}

func sortReviews(reviews []Review) {
	sort.Slice(reviews, func(i, j int) bool {
		if reviews[i].CreatedAt.Equal(reviews[j].CreatedAt) {
			return reviews[i].ID.String() < reviews[j].ID.String()
		}
		return reviews[i].CreatedAt.After(reviews[j].CreatedAt)
	})
}

func (s *MemStore) UpdateReview(_ context.Context, id uuid.UUID, rating int32, comment string) (*Review, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.reviews[id]
	if !ok {
		return nil, errs.ErrReviewNotFound
	}
	r.Rating = rating
	r.Comment = comment
	s.reviews[id] = r
	return &r, nil
}

func (s *MemStore) DeleteReview(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.reviews[id]; !ok {
		return errs.ErrReviewNotFound
	}
	delete(s.reviews, id)
	return nil
}
