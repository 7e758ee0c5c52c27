package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mkovtun/storecore/internal/errs"
)

// PgStore implements ProductStore, OrderStore and ReviewStore on top of a
// PostgreSQL connection pool. Stock and rating mutations rely on row-level
// locking and conditional updates so that concurrent requests serialize per
// product record.
type PgStore struct {
	db *pgxpool.Pool
}

// NewPgStore creates a new store backed by the given connection pool.
func NewPgStore(dbp *pgxpool.Pool) *PgStore {
	return &PgStore{db: dbp}
}

const productColumns = `id, title, price, image, stock, rating_average, rating_count, version, created_at`

func scanProduct(row pgx.Row) (*Product, error) {
	var p Product
	err := row.Scan(&p.ID, &p.Title, &p.Price, &p.Image, &p.Stock, &p.RatingAverage, &p.RatingCount, &p.Version, &p.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// FindProductByID retrieves a product by its unique identifier.
func (p *PgStore) FindProductByID(ctx context.Context, id uuid.UUID) (*Product, error) {
	row := p.db.QueryRow(ctx, `SELECT `+productColumns+` FROM products WHERE id = $1`, id)
	product, err := scanProduct(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, errs.ErrProductNotFound
		}
		return nil, unavailable("find product", err)
	}
	return product, nil
}

// FindProductsByIDs retrieves the named products.
func (p *PgStore) FindProductsByIDs(ctx context.Context, ids []uuid.UUID) ([]Product, error) {
	rows, err := p.db.Query(ctx, `SELECT `+productColumns+` FROM products WHERE id = ANY($1)`, ids)
	if err != nil {
		return nil, unavailable("find products", err)
	}
	defer rows.Close()

	var products []Product
	for rows.Next() {
		product, err := scanProduct(rows)
		if err != nil {
			return nil, unavailable("scan product", err)
		}
		products = append(products, *product)
	}
	if err := rows.Err(); err != nil {
		return nil, unavailable("find products", err)
	}
	return products, nil
}

// ReserveStock decrements stock for the whole batch inside a single
// transaction. Each decrement is conditional on sufficient stock, so the
// database serializes concurrent reservations per product row; any failure
// rolls back the decrements already applied.
func (p *PgStore) ReserveStock(ctx context.Context, changes []StockChange) error {
	return p.withTransaction(ctx, func(tx pgx.Tx) error {
		for _, c := range changes {
			tag, err := tx.Exec(ctx,
				`UPDATE products SET stock = stock - $2, version = version + 1 WHERE id = $1 AND stock >= $2`,
				c.ProductID, c.Quantity)
			if err != nil {
				return unavailable("reserve stock", err)
			}
			if tag.RowsAffected() == 0 {
				var exists bool
				if err := tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM products WHERE id = $1)`, c.ProductID).Scan(&exists); err != nil {
					return unavailable("reserve stock", err)
				}
				if !exists {
					return fmt.Errorf("product %s: %w", c.ProductID, errs.ErrProductNotFound)
				}
				return fmt.Errorf("product %s: %w", c.ProductID, errs.ErrInsufficientStock)
			}
		}
		return nil
	})
}

// RestoreStock increments stock for the whole batch inside a single
// transaction. No stock ceiling is enforced.
func (p *PgStore) RestoreStock(ctx context.Context, changes []StockChange) error {
	return p.withTransaction(ctx, func(tx pgx.Tx) error {
		for _, c := range changes {
			tag, err := tx.Exec(ctx,
				`UPDATE products SET stock = stock + $2, version = version + 1 WHERE id = $1`,
				c.ProductID, c.Quantity)
			if err != nil {
				return unavailable("restore stock", err)
			}
			if tag.RowsAffected() == 0 {
				return fmt.Errorf("product %s: %w", c.ProductID, errs.ErrProductNotFound)
			}
		}
		return nil
	})
}

// RecomputeRatings locks the product row, re-aggregates the full review set
// and rewrites the rating aggregate. The row lock serializes recomputations
// for the same product.
func (p *PgStore) RecomputeRatings(ctx context.Context, productID uuid.UUID) (*Ratings, error) {
	var ratings Ratings

	txErr := p.withTransaction(ctx, func(tx pgx.Tx) error {
		var version int32
		if err := tx.QueryRow(ctx, `SELECT version FROM products WHERE id = $1 FOR UPDATE`, productID).Scan(&version); err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return errs.ErrProductNotFound
			}
			return unavailable("lock product", err)
		}
		err := tx.QueryRow(ctx,
			`SELECT COALESCE(AVG(rating), 0), COUNT(*) FROM reviews WHERE product_id = $1`,
			productID).Scan(&ratings.Average, &ratings.Count)
		if err != nil {
			return unavailable("aggregate reviews", err)
		}
		_, err = tx.Exec(ctx,
			`UPDATE products SET rating_average = $2, rating_count = $3, version = version + 1 WHERE id = $1`,
			productID, ratings.Average, ratings.Count)
		if err != nil {
			return unavailable("update ratings", err)
		}
		return nil
	})
	if txErr != nil {
		return nil, txErr
	}
	return &ratings, nil
}

func (p *PgStore) withTransaction(ctx context.Context, fn func(tx pgx.Tx) error) error {
	tx, err := p.db.Begin(ctx)
	if err != nil {
		return unavailable("begin transaction", err)
	}

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(ctx); rbErr != nil && !errors.Is(rbErr, pgx.ErrTxClosed) {
			return unavailable("rollback transaction", rbErr)
		}
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return unavailable("commit transaction", err)
	}
	return nil
}

// unavailable tags infrastructure-level failures so callers can translate
// them uniformly, keeping the underlying cause in the message.
func unavailable(op string, err error) error {
	return fmt.Errorf("%s: %w: %v", op, errs.ErrUnavailable, err)
}
