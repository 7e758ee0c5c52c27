// Package order implements the order lifecycle: placement with stock
// reservation and snapshot pricing, status management, and cancellation
// with stock restoration.
package order

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/mkovtun/storecore/internal/errs"
	"github.com/mkovtun/storecore/internal/inventory"
	"github.com/mkovtun/storecore/internal/store"
	"github.com/mkovtun/storecore/pkg/auth"
	"github.com/mkovtun/storecore/pkg/messaging"
	"github.com/mkovtun/storecore/pkg/messaging/events"
)

var (
	ordersCreated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "orders_created_total",
		Help: "Total number of created orders",
	})
	ordersCancelled = promauto.NewCounter(prometheus.CounterOpts{
		Name: "orders_cancelled_total",
		Help: "Total number of cancelled orders",
	})
)

// Service defines the order lifecycle operations.
type Service interface {
	// Place reserves stock for every line item and persists a new pending
	// order with prices snapshotted from the catalog. No order is created
	// when reservation fails.
	Place(ctx context.Context, actor auth.User, dto OrderCreateDto) (*OrderDto, error)

	// Get retrieves an order. Only the owner or an administrator may read it.
	Get(ctx context.Context, actor auth.User, id uuid.UUID) (*OrderDto, error)

	// ListMine returns the actor's own orders, newest first.
	ListMine(ctx context.Context, actor auth.User, offset, limit int32) ([]OrderDto, error)

	// ListAll returns all orders. Administrators only.
	ListAll(ctx context.Context, actor auth.User, offset, limit int32) ([]OrderDto, error)

	// Update applies a customer patch (shipping address, payment method).
	// Non-admin actors may only update orders still in pending.
	Update(ctx context.Context, actor auth.User, id uuid.UUID, dto OrderUpdateDto) (*OrderDto, error)

	// SetStatus sets the order status. Administrators only.
	SetStatus(ctx context.Context, actor auth.User, id uuid.UUID, status string) (*OrderDto, error)

	// Cancel cancels an order still in pending or processing and restores
	// the reserved stock exactly once.
	Cancel(ctx context.Context, actor auth.User, id uuid.UUID) (*OrderDto, error)
}

// OrderService implements Service.
type OrderService struct {
	orders    store.OrderStore
	products  store.ProductStore
	inventory inventory.Service
	publisher messaging.Publisher
	logger    *slog.Logger
}

// NewService creates a new order service.
func NewService(orders store.OrderStore, products store.ProductStore, inv inventory.Service, publisher messaging.Publisher, logger *slog.Logger) *OrderService {
	return &OrderService{
		orders:    orders,
		products:  products,
		inventory: inv,
		publisher: publisher,
		logger:    logger.With("component", "order"),
	}
}

// AddressDto carries the structured postal/contact fields of an order.
type AddressDto struct {
	Street  string `json:"street" validate:"required"`
	City    string `json:"city" validate:"required"`
	State   string `json:"state"`
	ZipCode string `json:"zip_code" validate:"required"`
	Country string `json:"country" validate:"required"`
	Phone   string `json:"phone"`
}

// OrderItemCreateDto names a product and quantity to order. Price, title
// and image are snapshotted from the catalog, never taken from the client.
type OrderItemCreateDto struct {
	ProductID uuid.UUID `json:"product_id" validate:"required"`
	Quantity  int32     `json:"quantity" validate:"required,min=1"`
}

// OrderCreateDto represents the data transfer object for creating a new order.
type OrderCreateDto struct {
	Items           []OrderItemCreateDto `json:"items" validate:"required,gt=0,dive"`
	ShippingAddress AddressDto           `json:"shipping_address" validate:"required"`
	PaymentMethod   string               `json:"payment_method" validate:"omitempty,oneof=cod card paypal bank"`
}

// OrderUpdateDto represents the customer-patchable order fields. Version is
// used for optimistic concurrency control.
type OrderUpdateDto struct {
	ShippingAddress AddressDto `json:"shipping_address" validate:"required"`
	PaymentMethod   string     `json:"payment_method" validate:"omitempty,oneof=cod card paypal bank"`
	Version         int32      `json:"version" validate:"required,min=1"`
}

type OrderItemDto struct {
	ProductID uuid.UUID `json:"product_id"`
	Title     string    `json:"title"`
	Price     int64     `json:"price"`
	Quantity  int32     `json:"quantity"`
	Image     string    `json:"image,omitempty"`
}

// OrderDto represents the data transfer object for an order.
type OrderDto struct {
	ID              uuid.UUID      `json:"id"`
	UserID          string         `json:"user_id"`
	UserEmail       string         `json:"user_email"`
	UserName        string         `json:"user_name"`
	Items           []OrderItemDto `json:"items,omitempty"`
	TotalAmount     int64          `json:"total_amount"`
	ShippingAddress AddressDto     `json:"shipping_address"`
	Status          string         `json:"status"`
	PaymentStatus   string         `json:"payment_status"`
	PaymentMethod   string         `json:"payment_method"`
	Version         int32          `json:"version"`
	CreatedAt       string         `json:"created_at"`
	UpdatedAt       string         `json:"updated_at"`
}

func (s *OrderService) Place(ctx context.Context, actor auth.User, dto OrderCreateDto) (*OrderDto, error) {
	ids := make([]uuid.UUID, 0, len(dto.Items))
	for _, item := range dto.Items {
		if item.Quantity < 1 {
			return nil, fmt.Errorf("product %s: quantity must be at least 1: %w", item.ProductID, errs.ErrValidation)
		}
		ids = append(ids, item.ProductID)
	}

	products, err := s.products.FindProductsByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	byID := make(map[uuid.UUID]store.Product, len(products))
	for _, p := range products {
		byID[p.ID] = p
	}

	reservations := make([]inventory.Reservation, 0, len(dto.Items))
	items := make([]store.OrderItem, 0, len(dto.Items))
	var totalAmount int64
	orderID := uuid.New()
	for _, item := range dto.Items {
		product, ok := byID[item.ProductID]
		if !ok {
			return nil, fmt.Errorf("product %s: %w", item.ProductID, errs.ErrProductNotFound)
		}
		reservations = append(reservations, inventory.Reservation{ProductID: item.ProductID, Quantity: item.Quantity})
		items = append(items, store.OrderItem{
			ID:        uuid.New(),
			OrderID:   orderID,
			ProductID: product.ID,
			Title:     product.Title,
			Price:     product.Price,
			Quantity:  item.Quantity,
			Image:     product.Image,
		})
		totalAmount += product.Price * int64(item.Quantity)
	}

	// The reservation is durable before the order exists; a persistence
	// failure below must hand the stock back.
	if err := s.inventory.Reserve(ctx, reservations); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	paymentMethod := dto.PaymentMethod
	if paymentMethod == "" {
		paymentMethod = PaymentMethodCOD
	}
	newOrder := store.Order{
		ID:            orderID,
		UserID:        actor.ID,
		UserEmail:     actor.Email,
		UserName:      actor.Name,
		TotalAmount:   totalAmount,
		Address:       toStoreAddress(dto.ShippingAddress),
		Status:        StatusPending,
		PaymentStatus: PaymentPending,
		PaymentMethod: paymentMethod,
		Version:       1,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := s.orders.CreateOrder(ctx, &newOrder, items); err != nil {
		if restoreErr := s.inventory.Restore(ctx, reservations); restoreErr != nil {
			s.logger.ErrorContext(ctx, "Failed to restore stock after order persistence failure",
				"order_id", orderID, "error", restoreErr)
		}
		return nil, err
	}

	event := events.OrderCreatedEvent{
		OrderID:     newOrder.ID,
		UserID:      newOrder.UserID,
		TotalAmount: newOrder.TotalAmount,
		CreatedAt:   newOrder.CreatedAt,
	}
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.logger.ErrorContext(ctx, "Failed to publish OrderCreatedEvent", "order_id", newOrder.ID, "error", err)
	}
	ordersCreated.Inc()

	return toDto(&newOrder, items), nil
}

func (s *OrderService) Get(ctx context.Context, actor auth.User, id uuid.UUID) (*OrderDto, error) {
	found, items, err := s.orders.FindOrderByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if found.UserID != actor.ID && !actor.IsAdmin() {
		return nil, errs.ErrAccessDenied
	}
	return toDto(found, items), nil
}

func (s *OrderService) ListMine(ctx context.Context, actor auth.User, offset, limit int32) ([]OrderDto, error) {
	orders, err := s.orders.FindOrdersByUserID(ctx, actor.ID, offset, limit)
	if err != nil {
		return nil, err
	}
	return toDtos(orders), nil
}

func (s *OrderService) ListAll(ctx context.Context, actor auth.User, offset, limit int32) ([]OrderDto, error) {
	if !actor.IsAdmin() {
		return nil, errs.ErrAccessDenied
	}
	orders, err := s.orders.FindAllOrders(ctx, offset, limit)
	if err != nil {
		return nil, err
	}
	return toDtos(orders), nil
}

func (s *OrderService) Update(ctx context.Context, actor auth.User, id uuid.UUID, dto OrderUpdateDto) (*OrderDto, error) {
	found, _, err := s.orders.FindOrderByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if found.UserID != actor.ID && !actor.IsAdmin() {
		return nil, errs.ErrAccessDenied
	}
	// Once processing starts the order is immutable to the customer;
	// administrators retain full mutation rights.
	if !actor.IsAdmin() && found.Status != StatusPending {
		return nil, errs.ErrInvalidTransition
	}

	paymentMethod := dto.PaymentMethod
	if paymentMethod == "" {
		paymentMethod = found.PaymentMethod
	}
	updated, err := s.orders.UpdateOrderDetails(ctx, store.UpdateOrderParams{
		ID:            id,
		Address:       toStoreAddress(dto.ShippingAddress),
		PaymentMethod: paymentMethod,
		Version:       dto.Version,
	})
	if err != nil {
		return nil, err
	}
	return toDto(updated, nil), nil
}

func (s *OrderService) SetStatus(ctx context.Context, actor auth.User, id uuid.UUID, status string) (*OrderDto, error) {
	if !actor.IsAdmin() {
		return nil, errs.ErrAccessDenied
	}
	found, _, err := s.orders.FindOrderByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := Transition(found.Status, status); err != nil {
		return nil, err
	}
	updated, err := s.orders.SetOrderStatus(ctx, id, status)
	if err != nil {
		return nil, err
	}
	s.logger.InfoContext(ctx, "Order status updated", "order_id", id, "from", found.Status, "to", status)
	return toDto(updated, nil), nil
}

func (s *OrderService) Cancel(ctx context.Context, actor auth.User, id uuid.UUID) (*OrderDto, error) {
	found, items, err := s.orders.FindOrderByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if found.UserID != actor.ID && !actor.IsAdmin() {
		return nil, errs.ErrAccessDenied
	}
	if !Cancellable(found.Status) {
		return nil, errs.ErrInvalidTransition
	}

	// Flip the status first, guarded by the record version. A raced second
	// cancel loses the guard and never reaches the stock restoration, so
	// stock is handed back exactly once.
	cancelled, err := s.orders.MarkOrderCancelled(ctx, id, found.Version)
	if err != nil {
		return nil, err
	}

	reservations := make([]inventory.Reservation, 0, len(items))
	for _, item := range items {
		reservations = append(reservations, inventory.Reservation{ProductID: item.ProductID, Quantity: item.Quantity})
	}
	if err := s.inventory.Restore(ctx, reservations); err != nil {
		s.logger.ErrorContext(ctx, "Failed to restore stock for cancelled order", "order_id", id, "error", err)
		return nil, err
	}

	event := events.OrderCancelledEvent{
		OrderID:     cancelled.ID,
		UserID:      cancelled.UserID,
		CancelledAt: cancelled.UpdatedAt,
	}
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.logger.ErrorContext(ctx, "Failed to publish OrderCancelledEvent", "order_id", id, "error", err)
	}
	ordersCancelled.Inc()

	return toDto(cancelled, items), nil
}

func toStoreAddress(a AddressDto) store.ShippingAddress {
	return store.ShippingAddress{
		Street:  a.Street,
		City:    a.City,
		State:   a.State,
		ZipCode: a.ZipCode,
		Country: a.Country,
		Phone:   a.Phone,
	}
}

func toDtos(orders []store.Order) []OrderDto {
	dtos := make([]OrderDto, len(orders))
	for i := range orders {
		dtos[i] = *toDto(&orders[i], nil)
	}
	return dtos
}

// toDto converts a store.Order to an OrderDto.
func toDto(o *store.Order, items []store.OrderItem) *OrderDto {
	if o == nil {
		return nil
	}

	var itemsDto []OrderItemDto
	for _, item := range items {
		itemsDto = append(itemsDto, OrderItemDto{
			ProductID: item.ProductID,
			Title:     item.Title,
			Price:     item.Price,
			Quantity:  item.Quantity,
			Image:     item.Image,
		})
	}

	return &OrderDto{
		ID:          o.ID,
		UserID:      o.UserID,
		UserEmail:   o.UserEmail,
		UserName:    o.UserName,
		Items:       itemsDto,
		TotalAmount: o.TotalAmount,
		ShippingAddress: AddressDto{
			Street:  o.Address.Street,
			City:    o.Address.City,
			State:   o.Address.State,
			ZipCode: o.Address.ZipCode,
			Country: o.Address.Country,
			Phone:   o.Address.Phone,
		},
		Status:        o.Status,
		PaymentStatus: o.PaymentStatus,
		PaymentMethod: o.PaymentMethod,
		Version:       o.Version,
		CreatedAt:     o.CreatedAt.Format(time.RFC3339),
		UpdatedAt:     o.UpdatedAt.Format(time.RFC3339),
	}
}
