package inventory

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mkovtun/storecore/internal/errs"
	"github.com/mkovtun/storecore/internal/store"
)

func newTestService(products store.ProductStore) *StockService {
	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))
	return NewStockService(products, logger)
}

func seededStore(t *testing.T, stocks map[uuid.UUID]int32) *store.MemStore {
	t.Helper()
	mem := store.NewMemStore()
	for id, stock := range stocks {
		mem.SeedProduct(store.Product{ID: id, Title: "product", Price: 100, Stock: stock})
	}
	return mem
}

func Test_StockService_Reserve(t *testing.T) {
	productA := uuid.New()
	productB := uuid.New()

	testCases := []struct {
		name          string
		stocks        map[uuid.UUID]int32
		reservations  []Reservation
		expectError   error
		expectedStock map[uuid.UUID]int32
	}{
		{
			name:          "Success - single product",
			stocks:        map[uuid.UUID]int32{productA: 5},
			reservations:  []Reservation{{ProductID: productA, Quantity: 3}},
			expectedStock: map[uuid.UUID]int32{productA: 2},
		},
		{
			name:   "Success - batch across products",
			stocks: map[uuid.UUID]int32{productA: 5, productB: 2},
			reservations: []Reservation{
				{ProductID: productA, Quantity: 4},
				{ProductID: productB, Quantity: 2},
			},
			expectedStock: map[uuid.UUID]int32{productA: 1, productB: 0},
		},
		{
			name:   "Success - duplicate product entries merged",
			stocks: map[uuid.UUID]int32{productA: 5},
			reservations: []Reservation{
				{ProductID: productA, Quantity: 2},
				{ProductID: productA, Quantity: 3},
			},
			expectedStock: map[uuid.UUID]int32{productA: 0},
		},
		{
			name:   "Error - merged quantity exceeds stock",
			stocks: map[uuid.UUID]int32{productA: 4},
			reservations: []Reservation{
				{ProductID: productA, Quantity: 2},
				{ProductID: productA, Quantity: 3},
			},
			expectError:   errs.ErrInsufficientStock,
			expectedStock: map[uuid.UUID]int32{productA: 4},
		},
		{
			name:   "Error - insufficient stock leaves batch untouched",
			stocks: map[uuid.UUID]int32{productA: 5, productB: 1},
			reservations: []Reservation{
				{ProductID: productA, Quantity: 3},
				{ProductID: productB, Quantity: 2},
			},
			expectError:   errs.ErrInsufficientStock,
			expectedStock: map[uuid.UUID]int32{productA: 5, productB: 1},
		},
		{
			name:   "Error - unknown product leaves batch untouched",
			stocks: map[uuid.UUID]int32{productA: 5},
			reservations: []Reservation{
				{ProductID: productA, Quantity: 3},
				{ProductID: uuid.New(), Quantity: 1},
			},
			expectError:   errs.ErrProductNotFound,
			expectedStock: map[uuid.UUID]int32{productA: 5},
		},
		{
			name:         "Error - empty batch",
			stocks:       map[uuid.UUID]int32{productA: 5},
			reservations: nil,
			expectError:  errs.ErrValidation,
		},
		{
			name:         "Error - non-positive quantity",
			stocks:       map[uuid.UUID]int32{productA: 5},
			reservations: []Reservation{{ProductID: productA, Quantity: 0}},
			expectError:  errs.ErrValidation,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			// given
			mem := seededStore(t, tc.stocks)
			service := newTestService(mem)
			// when
			err := service.Reserve(context.Background(), tc.reservations)
			// then
			if tc.expectError != nil {
				assert.ErrorIs(t, err, tc.expectError)
			} else {
				require.NoError(t, err)
			}
			for id, expected := range tc.expectedStock {
				p, findErr := mem.FindProductByID(context.Background(), id)
				require.NoError(t, findErr)
				assert.Equal(t, expected, p.Stock, "stock of product %s", id)
			}
		})
	}
}

func Test_StockService_Restore(t *testing.T) {
	productA := uuid.New()

	// given
	mem := seededStore(t, map[uuid.UUID]int32{productA: 0})
	service := newTestService(mem)
	// when
	err := service.Restore(context.Background(), []Reservation{{ProductID: productA, Quantity: 3}})
	// then
	require.NoError(t, err)
	p, err := mem.FindProductByID(context.Background(), productA)
	require.NoError(t, err)
	assert.Equal(t, int32(3), p.Stock)
}

func Test_StockService_Restore_UnknownProduct(t *testing.T) {
	mem := store.NewMemStore()
	service := newTestService(mem)

	err := service.Restore(context.Background(), []Reservation{{ProductID: uuid.New(), Quantity: 1}})
	assert.ErrorIs(t, err, errs.ErrProductNotFound)
}

// Two reservations racing for the last unit. Exactly one of them may win.
func Test_StockService_Reserve_Concurrent(t *testing.T) {
	productA := uuid.New()
	mem := seededStore(t, map[uuid.UUID]int32{productA: 1})
	service := newTestService(mem)

	var wg sync.WaitGroup
	results := make([]error, 2)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = service.Reserve(context.Background(), []Reservation{{ProductID: productA, Quantity: 1}})
		}(i)
	}
	wg.Wait()

	var succeeded, rejected int
	for _, err := range results {
		if err == nil {
			succeeded++
		} else {
			assert.ErrorIs(t, err, errs.ErrInsufficientStock)
			rejected++
		}
	}
	assert.Equal(t, 1, succeeded, "exactly one reservation must win")
	assert.Equal(t, 1, rejected, "the loser must see insufficient stock")

	p, err := mem.FindProductByID(context.Background(), productA)
	require.NoError(t, err)
	assert.Equal(t, int32(0), p.Stock)
}
