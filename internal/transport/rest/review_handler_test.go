package rest

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/mkovtun/storecore/internal/errs"
	"github.com/mkovtun/storecore/internal/review"
	"github.com/mkovtun/storecore/pkg/auth"
)

// mockReviewService is a mock implementation of the review.Service interface
type mockReviewService struct {
	review  *review.ReviewDto
	reviews []review.ReviewDto
	error   error
}

func (m *mockReviewService) Submit(_ context.Context, _ auth.User, _ review.ReviewCreateDto) (*review.ReviewDto, error) {
	if m.error != nil {
		return nil, m.error
	}
	return m.review, nil
}

func (m *mockReviewService) Edit(_ context.Context, _ auth.User, _ uuid.UUID, _ review.ReviewUpdateDto) (*review.ReviewDto, error) {
	if m.error != nil {
		return nil, m.error
	}
	return m.review, nil
}

func (m *mockReviewService) Delete(_ context.Context, _ auth.User, _ uuid.UUID) error {
	return m.error
}

func (m *mockReviewService) ListByProduct(_ context.Context, _ uuid.UUID) ([]review.ReviewDto, error) {
	if m.error != nil {
		return nil, m.error
	}
	return m.reviews, nil
}

func (m *mockReviewService) ListRecent(_ context.Context, _ int32) ([]review.ReviewDto, error) {
	if m.error != nil {
		return nil, m.error
	}
	return m.reviews, nil
}

func sampleReviewDto(id, productID uuid.UUID) *review.ReviewDto {
	return &review.ReviewDto{
		ID:        id,
		ProductID: productID,
		UserID:    testUser.ID,
		UserName:  testUser.Name,
		Rating:    5,
		Comment:   "great",
		CreatedAt: time.Now().UTC().Format(time.RFC3339),
	}
}

func Test_ReviewHandler_Submit(t *testing.T) {
	mockID, _ := uuid.Parse("123e4567-e89b-12d3-a456-426614174000")
	productID := uuid.New()
	dto := sampleReviewDto(mockID, productID)

	validBody := `{"product_id":"` + productID.String() + `","rating":5,"comment":"great"}`

	testCases := []struct {
		name          string
		mockService   mockReviewService
		body          string
		authenticated bool
		expectedCode  int
	}{
		{
			name:          "Success - review submitted",
			mockService:   mockReviewService{review: dto},
			body:          validBody,
			authenticated: true,
			expectedCode:  http.StatusCreated,
		},
		{
			name:          "Error - missing identity",
			mockService:   mockReviewService{review: dto},
			body:          validBody,
			authenticated: false,
			expectedCode:  http.StatusUnauthorized,
		},
		{
			name:          "Error - malformed json",
			mockService:   mockReviewService{},
			body:          "{not json",
			authenticated: true,
			expectedCode:  http.StatusBadRequest,
		},
		{
			name:          "Error - rating out of range",
			mockService:   mockReviewService{},
			body:          `{"product_id":"` + productID.String() + `","rating":6,"comment":"great"}`,
			authenticated: true,
			expectedCode:  http.StatusBadRequest,
		},
		{
			name:          "Error - missing comment",
			mockService:   mockReviewService{},
			body:          `{"product_id":"` + productID.String() + `","rating":4}`,
			authenticated: true,
			expectedCode:  http.StatusBadRequest,
		},
		{
			name:          "Error - duplicate review",
			mockService:   mockReviewService{error: errs.ErrDuplicateReview},
			body:          validBody,
			authenticated: true,
			expectedCode:  http.StatusConflict,
		},
		{
			name:          "Error - product not found",
			mockService:   mockReviewService{error: errs.ErrProductNotFound},
			body:          validBody,
			authenticated: true,
			expectedCode:  http.StatusNotFound,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			// given
			api := NewReviewHandler(&tc.mockService, discardLogger())
			req := httptest.NewRequest(http.MethodPost, "/api/v1/reviews", strings.NewReader(tc.body))
			if tc.authenticated {
				req = withUser(req, testUser)
			}
			rr := httptest.NewRecorder()
			// when
			api.Submit(rr, req)
			// then
			assert.Equal(t, tc.expectedCode, rr.Code, "status code should match")
		})
	}
}

func Test_ReviewHandler_Edit(t *testing.T) {
	mockID, _ := uuid.Parse("123e4567-e89b-12d3-a456-426614174000")
	dto := sampleReviewDto(mockID, uuid.New())

	testCases := []struct {
		name         string
		mockService  mockReviewService
		reviewID     string
		body         string
		expectedCode int
	}{
		{
			name:         "Success - review updated",
			mockService:  mockReviewService{review: dto},
			reviewID:     mockID.String(),
			body:         `{"rating":3,"comment":"changed my mind"}`,
			expectedCode: http.StatusOK,
		},
		{
			name:         "Error - invalid id",
			mockService:  mockReviewService{},
			reviewID:     "123-invalid-id",
			body:         `{"rating":3,"comment":"changed my mind"}`,
			expectedCode: http.StatusBadRequest,
		},
		{
			name:         "Error - not the author",
			mockService:  mockReviewService{error: errs.ErrAccessDenied},
			reviewID:     mockID.String(),
			body:         `{"rating":3,"comment":"changed my mind"}`,
			expectedCode: http.StatusForbidden,
		},
		{
			name:         "Error - review not found",
			mockService:  mockReviewService{error: errs.ErrReviewNotFound},
			reviewID:     mockID.String(),
			body:         `{"rating":3,"comment":"changed my mind"}`,
			expectedCode: http.StatusNotFound,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			// given
			api := NewReviewHandler(&tc.mockService, discardLogger())
			req := httptest.NewRequest(http.MethodPut, "/api/v1/reviews/"+tc.reviewID, strings.NewReader(tc.body))
			req.SetPathValue("id", tc.reviewID)
			req = withUser(req, testUser)
			rr := httptest.NewRecorder()
			// when
			api.Edit(rr, req)
			// then
			assert.Equal(t, tc.expectedCode, rr.Code, "status code should match")
		})
	}
}

func Test_ReviewHandler_Delete(t *testing.T) {
	mockID, _ := uuid.Parse("123e4567-e89b-12d3-a456-426614174000")

	testCases := []struct {
		name         string
		mockService  mockReviewService
		expectedCode int
	}{
		{
			name:         "Success - review deleted",
			mockService:  mockReviewService{},
			expectedCode: http.StatusNoContent,
		},
		{
			name:         "Error - not the author",
			mockService:  mockReviewService{error: errs.ErrAccessDenied},
			expectedCode: http.StatusForbidden,
		},
		{
			name:         "Error - review not found",
			mockService:  mockReviewService{error: errs.ErrReviewNotFound},
			expectedCode: http.StatusNotFound,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			// given
			api := NewReviewHandler(&tc.mockService, discardLogger())
			req := httptest.NewRequest(http.MethodDelete, "/api/v1/reviews/"+mockID.String(), nil)
			req.SetPathValue("id", mockID.String())
			req = withUser(req, testUser)
			rr := httptest.NewRecorder()
			// when
			api.Delete(rr, req)
			// then
			assert.Equal(t, tc.expectedCode, rr.Code, "status code should match")
		})
	}
}

func Test_ReviewHandler_ListRecent(t *testing.T) {
	dto := sampleReviewDto(uuid.New(), uuid.New())

	testCases := []struct {
		name         string
		mockService  mockReviewService
		target       string
		expectedCode int
		expectedBody string
	}{
		{
			name:         "Success - reviews listed",
			mockService:  mockReviewService{reviews: []review.ReviewDto{*dto}},
			target:       "/api/v1/reviews?limit=10",
			expectedCode: http.StatusOK,
			expectedBody: toJSON(t, []review.ReviewDto{*dto}),
		},
		{
			name:         "Error - missing limit",
			mockService:  mockReviewService{},
			target:       "/api/v1/reviews",
			expectedCode: http.StatusBadRequest,
			expectedBody: toJSON(t, map[string]string{"error": "limit url parameter is required"}),
		},
		{
			name:         "Error - service failure",
			mockService:  mockReviewService{error: errors.New("boom")},
			target:       "/api/v1/reviews?limit=10",
			expectedCode: http.StatusInternalServerError,
			expectedBody: toJSON(t, map[string]string{"error": "An unexpected error occurred"}),
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			// given
			api := NewReviewHandler(&tc.mockService, discardLogger())
			req := httptest.NewRequest(http.MethodGet, tc.target, nil)
			rr := httptest.NewRecorder()
			// when
			api.ListRecent(rr, req)
			// then
			assert.Equal(t, tc.expectedCode, rr.Code, "status code should match")
			assert.JSONEq(t, tc.expectedBody, rr.Body.String())
		})
	}
}

func Test_ReviewHandler_ListByProduct(t *testing.T) {
	productID := uuid.New()
	dto := sampleReviewDto(uuid.New(), productID)

	t.Run("Success - reviews listed", func(t *testing.T) {
		api := NewReviewHandler(&mockReviewService{reviews: []review.ReviewDto{*dto}}, discardLogger())
		req := httptest.NewRequest(http.MethodGet, "/api/v1/reviews/product/"+productID.String(), nil)
		req.SetPathValue("id", productID.String())
		rr := httptest.NewRecorder()

		api.ListByProduct(rr, req)

		assert.Equal(t, http.StatusOK, rr.Code)
		assert.JSONEq(t, toJSON(t, []review.ReviewDto{*dto}), rr.Body.String())
	})

	t.Run("Error - invalid product id", func(t *testing.T) {
		api := NewReviewHandler(&mockReviewService{}, discardLogger())
		req := httptest.NewRequest(http.MethodGet, "/api/v1/reviews/product/123-invalid-id", nil)
		req.SetPathValue("id", "123-invalid-id")
		rr := httptest.NewRecorder()

		api.ListByProduct(rr, req)

		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})
}
