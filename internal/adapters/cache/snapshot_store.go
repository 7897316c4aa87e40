package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrSnapshotStale is returned when the caller demands a version newer
// than the held snapshot and the fetcher cannot produce one. The
// caller falls back to a direct read.
var ErrSnapshotStale = errors.New("cached snapshot is older than the requested version")

// Entry is the stored form of one per-owner, per-data-kind snapshot.
// Version strictly increases across refreshes; the version counter
// lives under its own key so it survives invalidation.
type Entry struct {
	OwnerID      string          `json:"owner_id"`
	DataKind     string          `json:"data_kind"`
	Payload      json.RawMessage `json:"payload"`
	Version      int64           `json:"version"`
	LastSyncedAt time.Time       `json:"last_synced_at"`
	ValidUntil   time.Time       `json:"valid_until"`
}

// Fetcher produces a fresh payload on cache miss or expiry.
type Fetcher func(ctx context.Context) (json.RawMessage, error)

// SnapshotStore is the versioned, expiry-bound read cache in front of
// the engine's query paths. Redis being unreachable degrades to
// fetch-through: reads still work, they just stop being cached.
type SnapshotStore struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewSnapshotStore(rdb *redis.Client, ttl time.Duration) *SnapshotStore {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &SnapshotStore{rdb: rdb, ttl: ttl}
}

func (s *SnapshotStore) entryKey(ownerID, kind string) string {
	return fmt.Sprintf("snapshot:%s:%s", ownerID, kind)
}

func (s *SnapshotStore) versionKey(ownerID, kind string) string {
	return fmt.Sprintf("snapshot_ver:%s:%s", ownerID, kind)
}

// GetOrFetch returns the cached payload while it is valid, otherwise
// invokes fetch and stores the result under the next version.
// minVersion > 0 asks for at least that version: an older snapshot is
// refreshed, and if the fetch then fails, ErrSnapshotStale is
// returned instead of the fetch error.
func (s *SnapshotStore) GetOrFetch(ctx context.Context, ownerID, kind string, minVersion int64, fetch Fetcher) (json.RawMessage, int64, error) {
	key := s.entryKey(ownerID, kind)

	val, err := s.rdb.Get(ctx, key).Result()
	if err == nil {
		var entry Entry
		if jsonErr := json.Unmarshal([]byte(val), &entry); jsonErr == nil {
			if entry.Version >= minVersion {
				return entry.Payload, entry.Version, nil
			}
		} else {
			log.Printf("[CACHE] Corrupted snapshot for %s/%s, cleaning up key", ownerID, kind)
			s.rdb.Del(ctx, key)
		}
	} else if err != redis.Nil {
		log.Printf("[CACHE] Redis read error: %v", err)
	}

	payload, fetchErr := fetch(ctx)
	if fetchErr != nil {
		if minVersion > 0 {
			return nil, 0, fmt.Errorf("%w: %v", ErrSnapshotStale, fetchErr)
		}
		return nil, 0, fetchErr
	}

	version := s.store(ctx, ownerID, kind, payload)
	return payload, version, nil
}

// store writes a fresh entry and returns its version. Failures only
// cost caching, never the read itself.
func (s *SnapshotStore) store(ctx context.Context, ownerID, kind string, payload json.RawMessage) int64 {
	version, err := s.rdb.Incr(ctx, s.versionKey(ownerID, kind)).Result()
	if err != nil {
		log.Printf("[CACHE] Redis version counter error: %v", err)
		return 0
	}

	now := time.Now().UTC()
	entry := Entry{
		OwnerID:      ownerID,
		DataKind:     kind,
		Payload:      payload,
		Version:      version,
		LastSyncedAt: now,
		ValidUntil:   now.Add(s.ttl),
	}

	data, err := json.Marshal(entry)
	if err != nil {
		log.Printf("[CACHE] Failed to marshal snapshot for %s/%s: %v", ownerID, kind, err)
		return version
	}

	if err := s.rdb.Set(ctx, s.entryKey(ownerID, kind), data, s.ttl).Err(); err != nil {
		log.Printf("[CACHE] Redis set error: %v", err)
	}

	return version
}

// Invalidate revokes the snapshot. The version counter is kept, so
// the next refresh still gets a strictly higher version.
func (s *SnapshotStore) Invalidate(ctx context.Context, ownerID, kind string) error {
	if err := s.rdb.Del(ctx, s.entryKey(ownerID, kind)).Err(); err != nil {
		return fmt.Errorf("failed to invalidate snapshot %s/%s: %w", ownerID, kind, err)
	}
	return nil
}

// Version reports the current version counter for a data kind, 0 when
// nothing was ever cached.
func (s *SnapshotStore) Version(ctx context.Context, ownerID, kind string) (int64, error) {
	v, err := s.rdb.Get(ctx, s.versionKey(ownerID, kind)).Int64()
	if err == redis.Nil {
		return 0, nil
	}
	return v, err
}
