package cartstore

import (
	"context"
	"testing"
	"time"

	"storefront/internal/domain"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupTestRedis creates a miniredis server and returns a RedisStore backed by it
func setupTestRedis(t *testing.T) (*RedisStore, *miniredis.Miniredis) {
	mr := miniredis.RunT(t)

	client := redis.NewClient(&redis.Options{
		Addr: mr.Addr(),
	})
	t.Cleanup(func() { _ = client.Close() })

	return NewRedisStore(client, time.Hour), mr
}

func sampleLines() []domain.CartLine {
	return []domain.CartLine{
		{
			ProductSnapshot: domain.ProductSnapshot{
				ID:       uuid.MustParse("0c3e5b1a-7d42-4f0e-8b8a-5e2d9a7c1001"),
				Name:     "Wireless Noise-Canceling Headphones",
				Slug:     "wireless-headphones",
				Price:    24999,
				Currency: "INR",
				Images:   []string{"/images/headphones-1.svg"},
				Features: []string{"Bluetooth 5.0"},
			},
			Quantity: 2,
		},
		{
			ProductSnapshot: domain.ProductSnapshot{
				ID:       uuid.MustParse("0c3e5b1a-7d42-4f0e-8b8a-5e2d9a7c1005"),
				Name:     "Modern Ceramic Vase",
				Slug:     "ceramic-vase",
				Price:    3999,
				Currency: "INR",
			},
			Quantity: 1,
		},
	}
}

func TestRedisStore_SaveAndLoad(t *testing.T) {
	store, mr := setupTestRedis(t)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, "session-1", sampleLines()))

	assert.True(t, mr.Exists("cart:session-1"))
	assert.Equal(t, time.Hour, mr.TTL("cart:session-1"))

	lines, err := store.Load(ctx, "session-1")
	require.NoError(t, err)
	assert.Equal(t, sampleLines(), lines)
}

func TestRedisStore_LoadMissingIsEmpty(t *testing.T) {
	store, _ := setupTestRedis(t)

	lines, err := store.Load(context.Background(), "nobody")
	require.NoError(t, err)
	assert.NotNil(t, lines)
	assert.Empty(t, lines)
}

func TestRedisStore_LoadCorrupt(t *testing.T) {
	store, mr := setupTestRedis(t)
	require.NoError(t, mr.Set("cart:broken", "{not json"))

	lines, err := store.Load(context.Background(), "broken")
	assert.ErrorIs(t, err, ErrCorrupt)
	assert.Nil(t, lines)
}

func TestRedisStore_SaveRefreshesTTL(t *testing.T) {
	store, mr := setupTestRedis(t)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, "s", sampleLines()))
	mr.FastForward(50 * time.Minute)
	require.NoError(t, store.Save(ctx, "s", sampleLines()[:1]))
	mr.FastForward(50 * time.Minute)

	lines, err := store.Load(ctx, "s")
	require.NoError(t, err)
	assert.Len(t, lines, 1)

	mr.FastForward(time.Hour)
	lines, err = store.Load(ctx, "s")
	require.NoError(t, err)
	assert.Empty(t, lines)
}

func TestRedisStore_Delete(t *testing.T) {
	store, mr := setupTestRedis(t)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, "s", sampleLines()))
	require.NoError(t, store.Delete(ctx, "s"))
	assert.False(t, mr.Exists("cart:s"))
}

func TestRedisStore_ServerDown(t *testing.T) {
	store, mr := setupTestRedis(t)
	mr.Close()

	_, err := store.Load(context.Background(), "s")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrCorrupt)
}
