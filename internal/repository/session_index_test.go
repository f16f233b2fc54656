package repository

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupSessionIndex(t *testing.T) (SessionIndex, *miniredis.Miniredis, func()) {
	mr := miniredis.RunT(t)

	client := redis.NewClient(&redis.Options{
		Addr: mr.Addr(),
	})

	index := NewRedisSessionIndex(client, 30*24*time.Hour)

	cleanup := func() {
		client.Close()
		mr.Close()
	}

	return index, mr, cleanup
}

func TestSessionIndex_StoreAndGet(t *testing.T) {
	index, mr, cleanup := setupSessionIndex(t)
	defer cleanup()
	ctx := context.Background()

	err := index.StoreCartID(ctx, "sess-1", "cart-1")
	require.NoError(t, err)

	cartID, err := index.GetCartID(ctx, "sess-1")
	require.NoError(t, err)
	assert.Equal(t, "cart-1", cartID)

	ttl := mr.TTL(indexKey("sess-1"))
	assert.Equal(t, 30*24*time.Hour, ttl)
}

func TestSessionIndex_NotIndexed(t *testing.T) {
	index, _, cleanup := setupSessionIndex(t)
	defer cleanup()

	_, err := index.GetCartID(context.Background(), "sess-unknown")

	assert.ErrorIs(t, err, ErrSessionNotIndexed)
}

func TestSessionIndex_Remove(t *testing.T) {
	index, _, cleanup := setupSessionIndex(t)
	defer cleanup()
	ctx := context.Background()

	require.NoError(t, index.StoreCartID(ctx, "sess-1", "cart-1"))
	require.NoError(t, index.RemoveCartID(ctx, "sess-1"))

	_, err := index.GetCartID(ctx, "sess-1")
	assert.ErrorIs(t, err, ErrSessionNotIndexed)

	// removing again is a no-op
	assert.NoError(t, index.RemoveCartID(ctx, "sess-1"))
}

func TestSessionIndex_ExpiredEntry(t *testing.T) {
	index, mr, cleanup := setupSessionIndex(t)
	defer cleanup()
	ctx := context.Background()

	require.NoError(t, index.StoreCartID(ctx, "sess-1", "cart-1"))
	mr.FastForward(31 * 24 * time.Hour)

	_, err := index.GetCartID(ctx, "sess-1")
	assert.ErrorIs(t, err, ErrSessionNotIndexed)
}
