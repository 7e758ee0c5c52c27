package store

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/mkovtun/storecore/internal/errs"
)

const orderColumns = `id, user_id, user_email, user_name, total_amount,
	street, city, state, zip_code, country, phone,
	status, payment_status, payment_method, version, created_at, updated_at`

func scanOrder(row pgx.Row) (*Order, error) {
	var o Order
	err := row.Scan(&o.ID, &o.UserID, &o.UserEmail, &o.UserName, &o.TotalAmount,
		&o.Address.Street, &o.Address.City, &o.Address.State, &o.Address.ZipCode, &o.Address.Country, &o.Address.Phone,
		&o.Status, &o.PaymentStatus, &o.PaymentMethod, &o.Version, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &o, nil
}

// CreateOrder persists an order and its line items in one transaction.
func (p *PgStore) CreateOrder(ctx context.Context, order *Order, items []OrderItem) error {
	return p.withTransaction(ctx, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx,
			`INSERT INTO orders (id, user_id, user_email, user_name, total_amount,
				street, city, state, zip_code, country, phone,
				status, payment_status, payment_method, version, created_at, updated_at)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)`,
			order.ID, order.UserID, order.UserEmail, order.UserName, order.TotalAmount,
			order.Address.Street, order.Address.City, order.Address.State, order.Address.ZipCode, order.Address.Country, order.Address.Phone,
			order.Status, order.PaymentStatus, order.PaymentMethod, order.Version, order.CreatedAt, order.UpdatedAt)
		if err != nil {
			return unavailable("create order", err)
		}
		for _, item := range items {
			_, err := tx.Exec(ctx,
				`INSERT INTO order_items (id, order_id, product_id, title, price, quantity, image)
				 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
				item.ID, item.OrderID, item.ProductID, item.Title, item.Price, item.Quantity, item.Image)
			if err != nil {
				return unavailable("create order item", err)
			}
		}
		return nil
	})
}

// FindOrderByID retrieves an order and its line items.
func (p *PgStore) FindOrderByID(ctx context.Context, id uuid.UUID) (*Order, []OrderItem, error) {
	row := p.db.QueryRow(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = $1`, id)
	order, err := scanOrder(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil, errs.ErrOrderNotFound
		}
		return nil, nil, unavailable("find order", err)
	}

	rows, err := p.db.Query(ctx,
		`SELECT id, order_id, product_id, title, price, quantity, image FROM order_items WHERE order_id = $1`, id)
	if err != nil {
		return nil, nil, unavailable("find order items", err)
	}
	defer rows.Close()

	var items []OrderItem
	for rows.Next() {
		var item OrderItem
		if err := rows.Scan(&item.ID, &item.OrderID, &item.ProductID, &item.Title, &item.Price, &item.Quantity, &item.Image); err != nil {
			return nil, nil, unavailable("scan order item", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, unavailable("find order items", err)
	}
	return order, items, nil
}

// FindOrdersByUserID returns the user's orders, newest first.
func (p *PgStore) FindOrdersByUserID(ctx context.Context, userID string, offset, limit int32) ([]Order, error) {
	rows, err := p.db.Query(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE user_id = $1 ORDER BY created_at DESC OFFSET $2 LIMIT $3`,
		userID, offset, limit)
	if err != nil {
		return nil, unavailable("find user orders", err)
	}
	defer rows.Close()
	return collectOrders(rows)
}

// FindAllOrders returns all orders, newest first.
func (p *PgStore) FindAllOrders(ctx context.Context, offset, limit int32) ([]Order, error) {
	rows, err := p.db.Query(ctx,
		`SELECT `+orderColumns+` FROM orders ORDER BY created_at DESC OFFSET $1 LIMIT $2`, offset, limit)
	if err != nil {
		return nil, unavailable("find orders", err)
	}
	defer rows.Close()
	return collectOrders(rows)
}

func collectOrders(rows pgx.Rows) ([]Order, error) {
	var orders []Order
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, unavailable("scan order", err)
		}
		orders = append(orders, *order)
	}
	if err := rows.Err(); err != nil {
		return nil, unavailable("collect orders", err)
	}
	return orders, nil
}

// UpdateOrderDetails applies a customer patch guarded by the record version.
func (p *PgStore) UpdateOrderDetails(ctx context.Context, params UpdateOrderParams) (*Order, error) {
	row := p.db.QueryRow(ctx,
		`UPDATE orders SET street = $3, city = $4, state = $5, zip_code = $6, country = $7, phone = $8,
			payment_method = $9, version = version + 1, updated_at = now()
		 WHERE id = $1 AND version = $2
		 RETURNING `+orderColumns,
		params.ID, params.Version,
		params.Address.Street, params.Address.City, params.Address.State, params.Address.ZipCode, params.Address.Country, params.Address.Phone,
		params.PaymentMethod)
	order, err := scanOrder(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, p.orderMissingOrStale(ctx, params.ID)
		}
		return nil, unavailable("update order", err)
	}
	return order, nil
}

// SetOrderStatus sets the status unconditionally.
func (p *PgStore) SetOrderStatus(ctx context.Context, id uuid.UUID, status string) (*Order, error) {
	row := p.db.QueryRow(ctx,
		`UPDATE orders SET status = $2, version = version + 1, updated_at = now() WHERE id = $1 RETURNING `+orderColumns,
		id, status)
	order, err := scanOrder(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, errs.ErrOrderNotFound
		}
		return nil, unavailable("set order status", err)
	}
	return order, nil
}

// MarkOrderCancelled flips the order to cancelled if its version matches and
// its status still permits cancellation. A raced second cancel loses the
// version check and gets ErrConflict, so stock is never restored twice.
func (p *PgStore) MarkOrderCancelled(ctx context.Context, id uuid.UUID, version int32) (*Order, error) {
	row := p.db.QueryRow(ctx,
		`UPDATE orders SET status = 'cancelled', version = version + 1, updated_at = now()
		 WHERE id = $1 AND version = $2 AND status IN ('pending', 'processing')
		 RETURNING `+orderColumns,
		id, version)
	order, err := scanOrder(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, p.orderMissingOrStale(ctx, id)
		}
		return nil, unavailable("cancel order", err)
	}
	return order, nil
}

// orderMissingOrStale decides whether a zero-row conditional update means the
// order is absent or was modified concurrently.
func (p *PgStore) orderMissingOrStale(ctx context.Context, id uuid.UUID) error {
	var exists bool
	if err := p.db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM orders WHERE id = $1)`, id).Scan(&exists); err != nil {
		return unavailable("find order", err)
	}
	if !exists {
		return errs.ErrOrderNotFound
	}
	return errs.ErrConflict
}
