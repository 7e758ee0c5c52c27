// Package rest provides the HTTP handlers for order and review operations.
package rest

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"

	"github.com/mkovtun/storecore/internal/order"
	"github.com/mkovtun/storecore/pkg/auth"
	"github.com/mkovtun/storecore/pkg/web"
)

type OrderHandler struct {
	service  order.Service
	validate *validator.Validate
	logger   *slog.Logger
}

// NewOrderHandler creates a new OrderHandler with the provided service.
func NewOrderHandler(service order.Service, logger *slog.Logger) *OrderHandler {
	return &OrderHandler{
		service:  service,
		validate: validator.New(),
		logger:   logger.With("component", "rest"),
	}
}

// RegisterRoutes registers the order routes. All of them require an
// authenticated caller.
func (h *OrderHandler) RegisterRoutes(r chi.Router, verifier auth.Verifier) {
	r.Group(func(r chi.Router) {
		r.Use(web.AuthMiddleware(verifier))
		r.Route("/api/v1/orders", func(r chi.Router) {
			r.Post("/", h.Place)
			r.Get("/", h.ListAll)
			r.Get("/my", h.ListMine)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", h.Get)
				r.Put("/", h.Update)
				r.Patch("/status", h.SetStatus)
				r.Delete("/", h.Cancel)
			})
		})
	})
}

// Place handles the creation of a new order.
func (h *OrderHandler) Place(w http.ResponseWriter, r *http.Request) {
	mLogger := h.loggerWithReqID(r)
	actor, ok := web.CurrentUser(w, r, mLogger)
	if !ok {
		return
	}
	var dto order.OrderCreateDto
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		mLogger.ErrorContext(r.Context(), "Error decoding request body", "error", err)
		web.RespondError(w, mLogger, http.StatusBadRequest, "Invalid request body")
		return
	}
	if !h.validateStruct(w, r, mLogger, dto) {
		return
	}

	newOrder, err := h.service.Place(r.Context(), actor, dto)
	if err != nil {
		status, message := statusFor(err)
		if status == http.StatusInternalServerError {
			mLogger.ErrorContext(r.Context(), "Error placing order", "error", err)
		} else {
			mLogger.WarnContext(r.Context(), "Order placement rejected", "error", err)
		}
		web.RespondError(w, mLogger, status, message)
		return
	}
	mLogger.InfoContext(r.Context(), "Order created successfully", slog.String("ID", newOrder.ID.String()))
	web.RespondJSON(w, mLogger, http.StatusCreated, newOrder)
}

// Get retrieves an order by its ID.
func (h *OrderHandler) Get(w http.ResponseWriter, r *http.Request) {
	mLogger := h.loggerWithReqID(r)
	id, ok := web.ParseID(w, r, mLogger)
	if !ok {
		return
	}
	actor, ok := web.CurrentUser(w, r, mLogger)
	if !ok {
		return
	}

	found, err := h.service.Get(r.Context(), actor, id)
	if err != nil {
		h.respondError(w, r, mLogger, err, "Error retrieving order")
		return
	}
	web.RespondJSON(w, mLogger, http.StatusOK, found)
}

// ListMine retrieves the caller's own orders.
func (h *OrderHandler) ListMine(w http.ResponseWriter, r *http.Request) {
	mLogger := h.loggerWithReqID(r)
	offset, limit, ok := parsePagination(w, r, mLogger)
	if !ok {
		return
	}
	actor, ok := web.CurrentUser(w, r, mLogger)
	if !ok {
		return
	}

	list, err := h.service.ListMine(r.Context(), actor, offset, limit)
	if err != nil {
		h.respondError(w, r, mLogger, err, "Error retrieving order list")
		return
	}
	web.RespondJSON(w, mLogger, http.StatusOK, list)
}

// ListAll retrieves all orders. Administrators only.
func (h *OrderHandler) ListAll(w http.ResponseWriter, r *http.Request) {
	mLogger := h.loggerWithReqID(r)
	offset, limit, ok := parsePagination(w, r, mLogger)
	if !ok {
		return
	}
	actor, ok := web.CurrentUser(w, r, mLogger)
	if !ok {
		return
	}

	list, err := h.service.ListAll(r.Context(), actor, offset, limit)
	if err != nil {
		h.respondError(w, r, mLogger, err, "Error retrieving order list")
		return
	}
	web.RespondJSON(w, mLogger, http.StatusOK, list)
}

// Update applies a customer patch to an order.
func (h *OrderHandler) Update(w http.ResponseWriter, r *http.Request) {
	mLogger := h.loggerWithReqID(r)
	id, ok := web.ParseID(w, r, mLogger)
	if !ok {
		return
	}
	actor, ok := web.CurrentUser(w, r, mLogger)
	if !ok {
		return
	}
	var dto order.OrderUpdateDto
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		mLogger.ErrorContext(r.Context(), "Error decoding request body", "error", err)
		web.RespondError(w, mLogger, http.StatusBadRequest, "Invalid request body")
		return
	}
	if !h.validateStruct(w, r, mLogger, dto) {
		return
	}

	updated, err := h.service.Update(r.Context(), actor, id, dto)
	if err != nil {
		h.respondError(w, r, mLogger, err, "Error updating order")
		return
	}
	mLogger.InfoContext(r.Context(), "Order updated successfully", slog.String("ID", updated.ID.String()))
	web.RespondJSON(w, mLogger, http.StatusOK, updated)
}

type orderStatusDto struct {
	Status string `json:"status" validate:"required"`
}

// SetStatus sets an order's status. Administrators only.
func (h *OrderHandler) SetStatus(w http.ResponseWriter, r *http.Request) {
	mLogger := h.loggerWithReqID(r)
	id, ok := web.ParseID(w, r, mLogger)
	if !ok {
		return
	}
	actor, ok := web.CurrentUser(w, r, mLogger)
	if !ok {
		return
	}
	var dto orderStatusDto
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		mLogger.ErrorContext(r.Context(), "Error decoding request body", "error", err)
		web.RespondError(w, mLogger, http.StatusBadRequest, "Invalid request body")
		return
	}
	if !h.validateStruct(w, r, mLogger, dto) {
		return
	}

	updated, err := h.service.SetStatus(r.Context(), actor, id, dto.Status)
	if err != nil {
		h.respondError(w, r, mLogger, err, "Error updating order status")
		return
	}
	web.RespondJSON(w, mLogger, http.StatusOK, updated)
}

// Cancel cancels an order and restores its reserved stock.
func (h *OrderHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	mLogger := h.loggerWithReqID(r)
	id, ok := web.ParseID(w, r, mLogger)
	if !ok {
		return
	}
	actor, ok := web.CurrentUser(w, r, mLogger)
	if !ok {
		return
	}

	cancelled, err := h.service.Cancel(r.Context(), actor, id)
	if err != nil {
		h.respondError(w, r, mLogger, err, "Error cancelling order")
		return
	}
	mLogger.InfoContext(r.Context(), "Order cancelled successfully", slog.String("ID", cancelled.ID.String()))
	web.RespondJSON(w, mLogger, http.StatusOK, cancelled)
}

// validateStruct runs struct validation and, on failure, responds with
// field-specific validation errors. Returns true when the DTO is valid.
func (h *OrderHandler) validateStruct(w http.ResponseWriter, r *http.Request, mLogger *slog.Logger, dto any) bool {
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

func (h *OrderHandler) respondError(w http.ResponseWriter, r *http.Request, mLogger *slog.Logger, err error, logMessage string) {
	status, message := statusFor(err)
	if status == http.StatusInternalServerError || status == http.StatusServiceUnavailable {
		mLogger.ErrorContext(r.Context(), logMessage, "error", err)
	} else {
		mLogger.WarnContext(r.Context(), logMessage, "error", err)
	}
	web.RespondError(w, mLogger, status, message)
}

func parsePagination(w http.ResponseWriter, r *http.Request, mLogger *slog.Logger) (offset, limit int32, ok bool) {
	limit, ok = web.ParseValidateGt(r, w, mLogger, "limit", 0)
	if !ok {
		return 0, 0, false
	}
	offset, ok = web.ParseValidateGte(r, w, mLogger, "offset", 0)
	if !ok {
		return 0, 0, false
	}
	return offset, limit, true
}

// loggerWithReqID creates a logger with the request ID from the context.
func (h *OrderHandler) loggerWithReqID(r *http.Request) *slog.Logger {
	reqID := middleware.GetReqID(r.Context())
	return h.logger.With("request_id", reqID)
}
