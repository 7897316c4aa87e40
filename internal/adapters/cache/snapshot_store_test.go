package cache

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestRedis(t *testing.T) *redis.Client {
	_ = godotenv.Load("../../../.env")

	host := os.Getenv("REDIS_HOST")
	if host == "" {
		host = "localhost"
	}
	port := os.Getenv("REDIS_PORT")
	if port == "" {
		port = "6379"
	}
	rdb := redis.NewClient(&redis.Options{
		Addr:     host + ":" + port,
		Password: os.Getenv("REDIS_PASSWORD"),
		DB:       1,
	})

	ctx := context.Background()
	if err := rdb.Ping(ctx).Err(); err != nil {
		t.Skipf("Skipping integration test (Redis down): %v", err)
	}

	rdb.FlushDB(ctx)
	return rdb
}

func staticFetcher(payload string, calls *int) Fetcher {
	return func(ctx context.Context) (json.RawMessage, error) {
		*calls++
		return json.RawMessage(payload), nil
	}
}

func TestSnapshotStore_GetOrFetch(t *testing.T) {
	rdb := setupTestRedis(t)
	defer rdb.Close()

	ctx := context.Background()
	store := NewSnapshotStore(rdb, time.Minute)

	t.Run("Miss fetches and caches", func(t *testing.T) {
		calls := 0
		fetch := staticFetcher(`{"cards":[]}`, &calls)

		payload, version, err := store.GetOrFetch(ctx, "owner-a", "due_queue", 0, fetch)
		require.NoError(t, err)
		assert.JSONEq(t, `{"cards":[]}`, string(payload))
		assert.Equal(t, int64(1), version)
		assert.Equal(t, 1, calls)

		// Second read is served from cache.
		payload, version, err = store.GetOrFetch(ctx, "owner-a", "due_queue", 0, fetch)
		require.NoError(t, err)
		assert.JSONEq(t, `{"cards":[]}`, string(payload))
		assert.Equal(t, int64(1), version)
		assert.Equal(t, 1, calls, "cache hit must not invoke the fetcher")
	})

	t.Run("Kinds and owners are isolated", func(t *testing.T) {
		calls := 0
		_, v1, err := store.GetOrFetch(ctx, "owner-b", "streak", 0, staticFetcher(`{"current_streak":3}`, &calls))
		require.NoError(t, err)

		_, v2, err := store.GetOrFetch(ctx, "owner-b", "flashcards", 0, staticFetcher(`{"cards":[1]}`, &calls))
		require.NoError(t, err)

		assert.Equal(t, int64(1), v1)
		assert.Equal(t, int64(1), v2, "each owner/kind pair has its own counter")
		assert.Equal(t, 2, calls)
	})

	t.Run("Fetch error propagates on a miss", func(t *testing.T) {
		boom := errors.New("storage down")
		_, _, err := store.GetOrFetch(ctx, "owner-c", "due_queue", 0, func(ctx context.Context) (json.RawMessage, error) {
			return nil, boom
		})
		assert.ErrorIs(t, err, boom)
	})
}

func TestSnapshotStore_InvalidateBumpsVersion(t *testing.T) {
	rdb := setupTestRedis(t)
	defer rdb.Close()

	ctx := context.Background()
	store := NewSnapshotStore(rdb, time.Minute)

	calls := 0
	_, v1, err := store.GetOrFetch(ctx, "owner-a", "streak", 0, staticFetcher(`{"n":1}`, &calls))
	require.NoError(t, err)

	require.NoError(t, store.Invalidate(ctx, "owner-a", "streak"))

	payload, v2, err := store.GetOrFetch(ctx, "owner-a", "streak", 0, staticFetcher(`{"n":2}`, &calls))
	require.NoError(t, err)

	assert.JSONEq(t, `{"n":2}`, string(payload))
	assert.Greater(t, v2, v1, "versions keep increasing across invalidations")
	assert.Equal(t, 2, calls)

	current, err := store.Version(ctx, "owner-a", "streak")
	require.NoError(t, err)
	assert.Equal(t, v2, current)
}

func TestSnapshotStore_MinVersion(t *testing.T) {
	rdb := setupTestRedis(t)
	defer rdb.Close()

	ctx := context.Background()
	store := NewSnapshotStore(rdb, time.Minute)

	calls := 0
	_, v1, err := store.GetOrFetch(ctx, "owner-a", "due_queue", 0, staticFetcher(`{"n":1}`, &calls))
	require.NoError(t, err)
	require.Equal(t, int64(1), v1)

	t.Run("Older snapshot is refreshed", func(t *testing.T) {
		payload, version, err := store.GetOrFetch(ctx, "owner-a", "due_queue", v1+1, staticFetcher(`{"n":2}`, &calls))
		require.NoError(t, err)
		assert.JSONEq(t, `{"n":2}`, string(payload))
		assert.GreaterOrEqual(t, version, v1+1)
	})

	t.Run("Refresh failure reports staleness", func(t *testing.T) {
		_, _, err := store.GetOrFetch(ctx, "owner-a", "due_queue", 100, func(ctx context.Context) (json.RawMessage, error) {
			return nil, errors.New("storage down")
		})
		assert.ErrorIs(t, err, ErrSnapshotStale)
	})
}

func TestSnapshotStore_VersionUnknownKind(t *testing.T) {
	rdb := setupTestRedis(t)
	defer rdb.Close()

	v, err := NewSnapshotStore(rdb, time.Minute).Version(context.Background(), "nobody", "due_queue")
	require.NoError(t, err)
	assert.Equal(t, int64(0), v)
}
