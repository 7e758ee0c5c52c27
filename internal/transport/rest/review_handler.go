package rest

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/mkovtun/storecore/internal/review"
	"github.com/mkovtun/storecore/pkg/auth"
	"github.com/mkovtun/storecore/pkg/web"
)

type ReviewHandler struct {
	service  review.Service
	validate *validator.Validate
	logger   *slog.Logger
}

// NewReviewHandler creates a new ReviewHandler with the provided service.
func NewReviewHandler(service review.Service, logger *slog.Logger) *ReviewHandler {
	return &ReviewHandler{
		service:  service,
		validate: validator.New(),
		logger:   logger.With("component", "rest"),
	}
}

// RegisterRoutes registers the review routes. Listing is public, writes
// require an authenticated caller.
func (h *ReviewHandler) RegisterRoutes(r chi.Router, verifier auth.Verifier) {
	r.Route("/api/v1/reviews", func(r chi.Router) {
		r.Get("/", h.ListRecent)
		r.Get("/product/{id}", h.ListByProduct)

		r.Group(func(r chi.Router) {
			r.Use(web.AuthMiddleware(verifier))
			r.Post("/", h.Submit)
			r.Put("/{id}", h.Edit)
			r.Delete("/{id}", h.Delete)
		})
	})
}

// ListRecent retrieves the most recent reviews across all products.
func (h *ReviewHandler) ListRecent(w http.ResponseWriter, r *http.Request) {
	mLogger := h.loggerWithReqID(r)
	limit, ok := web.ParseValidateGt(r, w, mLogger, "limit", 0)
	if !ok {
		return
	}

	list, err := h.service.ListRecent(r.Context(), limit)
	if err != nil {
		h.respondError(w, r, mLogger, err, "Error retrieving review list")
		return
	}
	web.RespondJSON(w, mLogger, http.StatusOK, list)
}

// ListByProduct retrieves all reviews for a product.
func (h *ReviewHandler) ListByProduct(w http.ResponseWriter, r *http.Request) {
	mLogger := h.loggerWithReqID(r)
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		web.RespondError(w, mLogger, http.StatusBadRequest, "Invalid product ID format")
		return
	}

	list, err := h.service.ListByProduct(r.Context(), id)
	if err != nil {
		h.respondError(w, r, mLogger, err, "Error retrieving product reviews")
		return
	}
	web.RespondJSON(w, mLogger, http.StatusOK, list)
}

// Submit handles the creation of a new review.
func (h *ReviewHandler) Submit(w http.ResponseWriter, r *http.Request) {
	mLogger := h.loggerWithReqID(r)
	actor, ok := web.CurrentUser(w, r, mLogger)
	if !ok {
		return
	}
	var dto review.ReviewCreateDto
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		mLogger.ErrorContext(r.Context(), "Error decoding request body", "error", err)
		web.RespondError(w, mLogger, http.StatusBadRequest, "Invalid request body")
		return
	}
	if !h.validateStruct(w, r, mLogger, dto) {
		return
	}

	created, err := h.service.Submit(r.Context(), actor, dto)
	if err != nil {
		h.respondError(w, r, mLogger, err, "Error submitting review")
		return
	}
	mLogger.InfoContext(r.Context(), "Review submitted successfully", slog.String("ID", created.ID.String()))
	web.RespondJSON(w, mLogger, http.StatusCreated, created)
}

// Edit rewrites the caller's own review.
func (h *ReviewHandler) Edit(w http.ResponseWriter, r *http.Request) {
	mLogger := h.loggerWithReqID(r)
	id, ok := web.ParseID(w, r, mLogger)
	if !ok {
		return
	}
	actor, ok := web.CurrentUser(w, r, mLogger)
	if !ok {
		return
	}
	var dto review.ReviewUpdateDto
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		mLogger.ErrorContext(r.Context(), "Error decoding request body", "error", err)
		web.RespondError(w, mLogger, http.StatusBadRequest, "Invalid request body")
		return
	}
	if !h.validateStruct(w, r, mLogger, dto) {
		return
	}

	updated, err := h.service.Edit(r.Context(), actor, id, dto)
	if err != nil {
		h.respondError(w, r, mLogger, err, "Error updating review")
		return
	}
	web.RespondJSON(w, mLogger, http.StatusOK, updated)
}

// Delete removes the caller's own review.
func (h *ReviewHandler) Delete(w http.ResponseWriter, r *http.Request) {
	mLogger := h.loggerWithReqID(r)
	id, ok := web.ParseID(w, r, mLogger)
	if !ok {
		return
	}
	actor, ok := web.CurrentUser(w, r, mLogger)
	if !ok {
		return
	}

	if err := h.service.Delete(r.Context(), actor, id); err != nil {
		h.respondError(w, r, mLogger, err, "Error deleting review")
		return
	}
	mLogger.InfoContext(r.Context(), "Review deleted successfully", slog.String("ID", id.String()))
	w.WriteHeader(http.StatusNoContent)
}

func (h *ReviewHandler) validateStruct(w http.ResponseWriter, r *http.Request, mLogger *slog.Logger, dto any) bool {
	if err := h.validate.Struct(dto); err != nil {
		var validationErrors validator.ValidationErrors
		if errors.As(err, &validationErrors) {
			errorResponse := make(map[string]string)
			for _, fieldErr := range validationErrors {
				errorResponse[fieldErr.Field()] = "failed on rule: " + fieldErr.Tag()
			}
			mLogger.WarnContext(r.Context(), "Validation errors occurred", "errors", errorResponse)
			web.RespondJSON(w, mLogger, http.StatusBadRequest, map[string]any{"validation_errors": errorResponse})
			return false
		}
		mLogger.ErrorContext(r.Context(), "Error validating request body", "error", err)
		web.RespondError(w, mLogger, http.StatusBadRequest, "Invalid request body")
		return false
	}
	return true
}

func (h *ReviewHandler) respondError(w http.ResponseWriter, r *http.Request, mLogger *slog.Logger, err error, logMessage string) {
	status, message := statusFor(err)
	if status == http.StatusInternalServerError || status == http.StatusServiceUnavailable {
		mLogger.ErrorContext(r.Context(), logMessage, "error", err)
	} else {
		mLogger.WarnContext(r.Context(), logMessage, "error", err)
	}
	web.RespondError(w, mLogger, status, message)
}

// loggerWithReqID creates a logger with the request ID from the context.
func (h *ReviewHandler) loggerWithReqID(r *http.Request) *slog.Logger {
	reqID := middleware.GetReqID(r.Context())
	return h.logger.With("request_id", reqID)
}
