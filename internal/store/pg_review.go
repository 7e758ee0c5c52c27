package store

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/mkovtun/storecore/internal/errs"
)

const reviewColumns = `id, product_id, user_id, user_name, user_photo, rating, comment, created_at`

// uniqueViolation is the PostgreSQL error code for unique constraint violations.
const uniqueViolation = "23505"

func scanReview(row pgx.Row) (*Review, error) {
	var r Review
	err := row.Scan(&r.ID, &r.ProductID, &r.UserID, &r.UserName, &r.UserPhoto, &r.Rating, &r.Comment, &r.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &r, nil
}

// CreateReview persists a new review. The unique index on
// (product_id, user_id) rejects a second review by the same user.
func (p *PgStore) CreateReview(ctx context.Context, review *Review) error {
	_, err := p.db.Exec(ctx,
		`INSERT INTO reviews (id, product_id, user_id, user_name, user_photo, rating, comment, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		review.ID, review.ProductID, review.UserID, review.UserName, review.UserPhoto, review.Rating, review.Comment, review.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return errs.ErrDuplicateReview
		}
		return unavailable("create review", err)
	}
	return nil
}

// FindReviewByID retrieves a review by its unique identifier.
func (p *PgStore) FindReviewByID(ctx context.Context, id uuid.UUID) (*Review, error) {
	row := p.db.QueryRow(ctx, `SELECT `+reviewColumns+` FROM reviews WHERE id = $1`, id)
	review, err := scanReview(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, errs.ErrReviewNotFound
		}
		return nil, unavailable("find review", err)
	}
	return review, nil
}

// FindReviewsByProductID returns all reviews for a product, newest first.
func (p *PgStore) FindReviewsByProductID(ctx context.Context, productID uuid.UUID) ([]Review, error) {
	rows, err := p.db.Query(ctx,
		`SELECT `+reviewColumns+` FROM reviews WHERE product_id = $1 ORDER BY created_at DESC`, productID)
	if err != nil {
		return nil, unavailable("find product reviews", err)
	}
	defer rows.Close()
	return collectReviews(rows)
}

// FindRecentReviews returns the most recent reviews across all products.
func (p *PgStore) FindRecentReviews(ctx context.Context, limit int32) ([]Review, error) {
	rows, err := p.db.Query(ctx,
		`SELECT `+reviewColumns+` FROM reviews ORDER BY created_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, unavailable("find recent reviews", err)
	}
	defer rows.Close()
	return collectReviews(rows)
}

func collectReviews(rows pgx.Rows) ([]Review, error) {
	var reviews []Review
	for rows.Next() {
		review, err := scanReview(rows)
		if err != nil {
			return nil, unavailable("scan review", err)
		}
		reviews = append(reviews, *review)
	}
	if err := rows.Err(); err != nil {
		return nil, unavailable("collect reviews", err)
	}
	return reviews, nil
}

// UpdateReview rewrites the rating and comment of an existing review.
func (p *PgStore) UpdateReview(ctx context.Context, id uuid.UUID, rating int32, comment string) (*Review, error) {
	row := p.db.QueryRow(ctx,
		`UPDATE reviews SET rating = $2, comment = $3 WHERE id = $1 RETURNING `+reviewColumns,
		id, rating, comment)
	review, err := scanReview(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, errs.ErrReviewNotFound
		}
		return nil, unavailable("update review", err)
	}
	return review, nil
}

// DeleteReview removes a review.
func (p *PgStore) DeleteReview(ctx context.Context, id uuid.UUID) error {
	tag, err := p.db.Exec(ctx, `DELETE FROM reviews WHERE id = $1`, id)
	if err != nil {
		return unavailable("delete review", err)
	}
	if tag.RowsAffected() == 0 {
		return errs.ErrReviewNotFound
	}
	return nil
}
