// Package review implements review submission, editing and deletion, and
// keeps each product's rating aggregate consistent with its review set.
package review

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/mkovtun/storecore/internal/errs"
	"github.com/mkovtun/storecore/internal/store"
	"github.com/mkovtun/storecore/pkg/auth"
)

var reviewsSubmitted = promauto.NewCounter(prometheus.CounterOpts{
	Name: "reviews_submitted_total",
	Help: "Total number of submitted reviews",
})

// Service defines the review operations. Every mutation triggers a full
// recomputation of the owning product's rating aggregate; incremental
// updates are deliberately avoided so rounding errors cannot compound.
type Service interface {
	// Submit persists a new review. A user may review a product at most
	// once; a second attempt fails with ErrDuplicateReview.
	Submit(ctx context.Context, actor auth.User, dto ReviewCreateDto) (*ReviewDto, error)

	// Edit rewrites the rating and comment of the actor's own review.
	Edit(ctx context.Context, actor auth.User, id uuid.UUID, dto ReviewUpdateDto) (*ReviewDto, error)

	// Delete removes the actor's own review. Deleting the last review
	// resets the product's ratings to {0, 0}.
	Delete(ctx context.Context, actor auth.User, id uuid.UUID) error

	// ListByProduct returns all reviews for a product, newest first.
	ListByProduct(ctx context.Context, productID uuid.UUID) ([]ReviewDto, error)

	// ListRecent returns the most recent reviews across all products.
	ListRecent(ctx context.Context, limit int32) ([]ReviewDto, error)
}

// ReviewService implements Service.
type ReviewService struct {
	reviews  store.ReviewStore
	products store.ProductStore
	logger   *slog.Logger
}

// NewService creates a new review service.
func NewService(reviews store.ReviewStore, products store.ProductStore, logger *slog.Logger) *ReviewService {
	return &ReviewService{
		reviews:  reviews,
		products: products,
		logger:   logger.With("component", "review"),
	}
}

// ReviewCreateDto represents the data transfer object for submitting a review.
type ReviewCreateDto struct {
	ProductID uuid.UUID `json:"product_id" validate:"required"`
	Rating    int32     `json:"rating" validate:"required,min=1,max=5"`
	Comment   string    `json:"comment" validate:"required"`
}

// ReviewUpdateDto represents the data transfer object for editing a review.
type ReviewUpdateDto struct {
	Rating  int32  `json:"rating" validate:"required,min=1,max=5"`
	Comment string `json:"comment" validate:"required"`
}

type ReviewDto struct {
	ID        uuid.UUID `json:"id"`
	ProductID uuid.UUID `json:"product_id"`
	UserID    string    `json:"user_id"`
	UserName  string    `json:"user_name"`
	UserPhoto string    `json:"user_photo,omitempty"`
	Rating    int32     `json:"rating"`
	Comment   string    `json:"comment"`
	CreatedAt string    `json:"created_at"`
}

func (s *ReviewService) Submit(ctx context.Context, actor auth.User, dto ReviewCreateDto) (*ReviewDto, error) {
	if err := validateRating(dto.Rating, dto.Comment); err != nil {
		return nil, err
	}
	if _, err := s.products.FindProductByID(ctx, dto.ProductID); err != nil {
		return nil, err
	}

	newReview := store.Review{
		ID:        uuid.New(),
		ProductID: dto.ProductID,
		UserID:    actor.ID,
		UserName:  actor.Name,
		UserPhoto: actor.Photo,
		Rating:    dto.Rating,
		Comment:   strings.TrimSpace(dto.Comment),
		CreatedAt: time.Now().UTC(),
	}
	if err := s.reviews.CreateReview(ctx, &newReview); err != nil {
		return nil, err
	}
	if err := s.recompute(ctx, dto.ProductID); err != nil {
		return nil, err
	}
	reviewsSubmitted.Inc()

	return toDto(&newReview), nil
}

func (s *ReviewService) Edit(ctx context.Context, actor auth.User, id uuid.UUID, dto ReviewUpdateDto) (*ReviewDto, error) {
	if err := validateRating(dto.Rating, dto.Comment); err != nil {
		return nil, err
	}
	found, err := s.reviews.FindReviewByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if found.UserID != actor.ID {
		return nil, errs.ErrAccessDenied
	}

	updated, err := s.reviews.UpdateReview(ctx, id, dto.Rating, strings.TrimSpace(dto.Comment))
	if err != nil {
		return nil, err
	}
	if err := s.recompute(ctx, found.ProductID); err != nil {
		return nil, err
	}
	return toDto(updated), nil
}

func (s *ReviewService) Delete(ctx context.Context, actor auth.User, id uuid.UUID) error {
	found, err := s.reviews.FindReviewByID(ctx, id)
	if err != nil {
		return err
	}
	if found.UserID != actor.ID {
		return errs.ErrAccessDenied
	}

	if err := s.reviews.DeleteReview(ctx, id); err != nil {
		return err
	}
	return s.recompute(ctx, found.ProductID)
}

func (s *ReviewService) ListByProduct(ctx context.Context, productID uuid.UUID) ([]ReviewDto, error) {
	reviews, err := s.reviews.FindReviewsByProductID(ctx, productID)
	if err != nil {
		return nil, err
	}
	return toDtos(reviews), nil
}

func (s *ReviewService) ListRecent(ctx context.Context, limit int32) ([]ReviewDto, error) {
	reviews, err := s.reviews.FindRecentReviews(ctx, limit)
	if err != nil {
		return nil, err
	}
	return toDtos(reviews), nil
}

// recompute rereads the full review set for the product and rewrites its
// rating aggregate.
func (s *ReviewService) recompute(ctx context.Context, productID uuid.UUID) error {
	ratings, err := s.products.RecomputeRatings(ctx, productID)
	if err != nil {
		return err
	}
	s.logger.DebugContext(ctx, "Product ratings recomputed",
		"product_id", productID, "average", ratings.Average, "count", ratings.Count)
	return nil
}

func validateRating(rating int32, comment string) error {
	if rating < 1 || rating > 5 {
		return fmt.Errorf("rating must be between 1 and 5: %w", errs.ErrValidation)
	}
	if strings.TrimSpace(comment) == "" {
		return fmt.Errorf("comment must not be empty: %w", errs.ErrValidation)
	}
	return nil
}

func toDtos(reviews []store.Review) []ReviewDto {
	dtos := make([]ReviewDto, len(reviews))
	for i := range reviews {
		dtos[i] = *toDto(&reviews[i])
	}
	return dtos
}

func toDto(r *store.Review) *ReviewDto {
	if r == nil {
		return nil
	}
	return &ReviewDto{
		ID:        r.ID,
		ProductID: r.ProductID,
		UserID:    r.UserID,
		UserName:  r.UserName,
		UserPhoto: r.UserPhoto,
		Rating:    r.Rating,
		Comment:   r.Comment,
		CreatedAt: r.CreatedAt.Format(time.RFC3339),
	}
}
