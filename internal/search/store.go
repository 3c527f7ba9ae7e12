package search

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Tombstones record product removals for a while after the document is
// gone, so a late, older update cannot resurrect a deleted product. The
// prefix differs from KeyPrefix so markers never enter the search index.
const (
	tombstonePrefix = "removed:product:"
	tombstoneTTL    = 24 * time.Hour
)

func tombstoneKey(guid string) string { return tombstonePrefix + guid }

// Store is the JSON document gateway the projection worker writes through.
// Only workers mutate documents; the api process reads via Service.
type Store struct {
	redis  *redis.Client
	logger *zap.Logger
}

// NewStore wraps a connected Redis client.
func NewStore(r *redis.Client, l *zap.Logger) *Store {
	return &Store{redis: r, logger: l}
}

// PutProduct replaces the whole document for doc.GUID. There are no partial
// merges; every write carries the complete snapshot.
func (s *Store) PutProduct(ctx context.Context, doc *ProductDocument) error {
	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("marshal product document: %w", err)
	}
	if err := s.redis.JSONSet(ctx, Key(doc.GUID), "$", string(data)).Err(); err != nil {
		return fmt.Errorf("JSON.SET %s: %w", Key(doc.GUID), err)
	}
	return nil
}

// DeleteProduct removes the document. Deleting a missing key is a success,
// which is what makes removal events safely re-deliverable.
func (s *Store) DeleteProduct(ctx context.Context, guid string) error {
	if err := s.redis.JSONDel(ctx, Key(guid), "$").Err(); err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("JSON.DEL %s: %w", Key(guid), err)
	}
	return nil
}

// PutTombstone marks guid as removed at removedAt. The marker expires on
// its own; it only needs to outlive broker redelivery of older updates.
func (s *Store) PutTombstone(ctx context.Context, guid string, removedAt time.Time) error {
	value := removedAt.UTC().Format(time.RFC3339Nano)
	if err := s.redis.Set(ctx, tombstoneKey(guid), value, tombstoneTTL).Err(); err != nil {
		return fmt.Errorf("SET %s: %w", tombstoneKey(guid), err)
	}
	return nil
}

// GetTombstone reports when guid was removed, found=false when no marker
// exists. A marker that fails to parse counts as absent.
func (s *Store) GetTombstone(ctx context.Context, guid string) (time.Time, bool, error) {
	raw, err := s.redis.Get(ctx, tombstoneKey(guid)).Result()
	if errors.Is(err, redis.Nil) {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, fmt.Errorf("GET %s: %w", tombstoneKey(guid), err)
	}
	removedAt, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		s.logger.Warn("discarding unparsable removal marker",
			zap.String("key", tombstoneKey(guid)), zap.Error(err))
		return time.Time{}, false, nil
	}
	return removedAt, true, nil
}

// GetProduct loads the current document, reporting found=false on a missing
// key. The projector uses this for its stale-write check.
func (s *Store) GetProduct(ctx context.Context, guid string) (*ProductDocument, bool, error) {
	raw, err := s.redis.JSONGet(ctx, Key(guid), "$").Result()
	if errors.Is(err, redis.Nil) || raw == "" {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("JSON.GET %s: %w", Key(guid), err)
	}

	// A "$" path query returns a single-element array.
	var docs []ProductDocument
	if err := json.Unmarshal([]byte(raw), &docs); err != nil {
		return nil, false, fmt.Errorf("decode product document %s: %w", Key(guid), err)
	}
	if len(docs) == 0 {
		return nil, false, nil
	}
	return &docs[0], true, nil
}
