package store

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mkovtun/storecore/internal/errs"
)

func seedOrder(t *testing.T, mem *MemStore, userID string, createdAt time.Time) uuid.UUID {
	t.Helper()
	id := uuid.New()
	err := mem.CreateOrder(context.Background(), &Order{
		ID:        id,
		UserID:    userID,
		Status:    "pending",
		Version:   1,
		CreatedAt: createdAt,
		UpdatedAt: createdAt,
	}, nil)
	require.NoError(t, err)
	return id
}

func Test_MemStore_FindOrders_NewestFirst(t *testing.T) {
	mem := NewMemStore()
	base := time.Now().UTC()
	oldest := seedOrder(t, mem, "user-1", base.Add(-2*time.Hour))
	middle := seedOrder(t, mem, "user-1", base.Add(-time.Hour))
	newest := seedOrder(t, mem, "user-1", base)
	seedOrder(t, mem, "user-2", base.Add(-30*time.Minute))

	t.Run("by user, newest first", func(t *testing.T) {
		orders, err := mem.FindOrdersByUserID(context.Background(), "user-1", 0, 10)
		require.NoError(t, err)
		require.Len(t, orders, 3)
		assert.Equal(t, newest, orders[0].ID)
		assert.Equal(t, middle, orders[1].ID)
		assert.Equal(t, oldest, orders[2].ID)
	})

	t.Run("offset and limit", func(t *testing.T) {
		orders, err := mem.FindOrdersByUserID(context.Background(), "user-1", 1, 1)
		require.NoError(t, err)
		require.Len(t, orders, 1)
		assert.Equal(t, middle, orders[0].ID)
	})

	t.Run("offset past the end", func(t *testing.T) {
		orders, err := mem.FindOrdersByUserID(context.Background(), "user-1", 10, 5)
		require.NoError(t, err)
		assert.Empty(t, orders)
	})

	t.Run("all orders include every user", func(t *testing.T) {
		orders, err := mem.FindAllOrders(context.Background(), 0, 10)
		require.NoError(t, err)
		assert.Len(t, orders, 4)
	})
}

func Test_MemStore_MarkOrderCancelled(t *testing.T) {
	mem := NewMemStore()
	id := seedOrder(t, mem, "user-1", time.Now().UTC())

	t.Run("stale version rejected", func(t *testing.T) {
		_, err := mem.MarkOrderCancelled(context.Background(), id, 99)
		assert.ErrorIs(t, err, errs.ErrConflict)
	})

	t.Run("cancel bumps version", func(t *testing.T) {
		cancelled, err := mem.MarkOrderCancelled(context.Background(), id, 1)
		require.NoError(t, err)
		assert.Equal(t, "cancelled", cancelled.Status)
		assert.Equal(t, int32(2), cancelled.Version)
	})

	t.Run("second cancel rejected", func(t *testing.T) {
		_, err := mem.MarkOrderCancelled(context.Background(), id, 2)
		assert.ErrorIs(t, err, errs.ErrConflict)
	})
}

func Test_MemStore_FindRecentReviews(t *testing.T) {
	mem := NewMemStore()
	productID := uuid.New()
	base := time.Now().UTC()
	for i, rating := range []int32{5, 3, 1} {
		err := mem.CreateReview(context.Background(), &Review{
			ID:        uuid.New(),
			ProductID: productID,
			UserID:    uuid.NewString(),
			Rating:    rating,
			Comment:   "comment",
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		})
		require.NoError(t, err)
	}

	reviews, err := mem.FindRecentReviews(context.Background(), 2)
	require.NoError(t, err)
	require.Len(t, reviews, 2)
	// Newest first: the last created review has rating 1.
	assert.Equal(t, int32(1), reviews[0].Rating)
	assert.Equal(t, int32(3), reviews[1].Rating)
}
