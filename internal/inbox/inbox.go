// Package inbox implements the transactional inbox: an append-only table of
// pending projection events that commits atomically with the business write.
//
// Appends are only legal on a transaction opened by the write-side
// orchestrator; loading and marking happen later, from the projection
// worker, on the pool.
package inbox

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
)

// EventType tags the payload shape of an inbox event.
type EventType string

const (
	EventProductUpdated  EventType = "PRODUCT_UPDATED"
	EventProductRemoved  EventType = "PRODUCT_REMOVED"
	EventCategoryUpdated EventType = "CATEGORY_UPDATED"
	EventCategoryRemoved EventType = "CATEGORY_REMOVED"
	EventTagRemoved      EventType = "TAG_REMOVED"
)

// Event is a single inbox record. Data is the opaque JSON payload written
// by the producer; the projection worker decodes it per Type.
type Event struct {
	GUID      string
	Type      EventType
	Data      []byte
	CreatedAt time.Time
}

// PendingEvent is the sweep view of an unprocessed event.
type PendingEvent struct {
	GUID      string
	Type      EventType
	CreatedAt time.Time
}

// DBTX is satisfied by both *pgxpool.Pool and pgx.Tx.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Repository reads and writes store.inbox_events.
type Repository struct {
	db DBTX
}

// New wraps a pool or an open transaction.
func New(db DBTX) *Repository {
	return &Repository{db: db}
}

// Append inserts a pending event and returns its guid. The payload is
// marshalled to JSON. Call this on a transaction so the event commits with
// the business write; never on the bare pool.
func (r *Repository) Append(ctx context.Context, eventType EventType, payload any, at time.Time) (string, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshal inbox payload: %w", err)
	}

	id, err := uuid.NewV7()
	if err != nil {
		return "", fmt.Errorf("mint event guid: %w", err)
	}

	_, err = r.db.Exec(ctx,
		`INSERT INTO store.inbox_events (guid, event_type, data, created_at)
		 VALUES ($1, $2, $3, $4)`,
		id.String(), string(eventType), data, at,
	)
	if err != nil {
		return "", fmt.Errorf("append inbox event: %w", err)
	}
	return id.String(), nil
}

// LoadPending returns the event with the given guid, or nil when the event
// does not exist or has already been processed. Reprocessing an acknowledged
// delivery therefore degrades to a no-op.
func (r *Repository) LoadPending(ctx context.Context, guid string) (*Event, error) {
	var (
		id        pgtype.UUID
		eventType string
		data      []byte
		createdAt time.Time
	)
	err := r.db.QueryRow(ctx,
		`SELECT guid, event_type, data, created_at
		 FROM store.inbox_events
		 WHERE guid = $1 AND processed_at IS NULL`,
		guid,
	).Scan(&id, &eventType, &data, &createdAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load pending inbox event: %w", err)
	}
	return &Event{
		GUID:      id.String(),
		Type:      EventType(eventType),
		Data:      data,
		CreatedAt: createdAt,
	}, nil
}

// MarkProcessed stamps processed_at exactly once. A second call for the
// same guid affects zero rows and is not an error.
func (r *Repository) MarkProcessed(ctx context.Context, guid string, at time.Time) error {
	_, err := r.db.Exec(ctx,
		`UPDATE store.inbox_events
		 SET processed_at = $2
		 WHERE guid = $1 AND processed_at IS NULL`,
		guid, at,
	)
	if err != nil {
		return fmt.Errorf("mark inbox event processed: %w", err)
	}
	return nil
}

// ListPendingOlderThan returns pending events created before the cutoff,
// oldest first. Used by the sweeper to re-enqueue work the dispatcher lost.
func (r *Repository) ListPendingOlderThan(ctx context.Context, cutoff time.Time) ([]PendingEvent, error) {
	rows, err := r.db.Query(ctx,
		`SELECT guid, event_type, created_at
		 FROM store.inbox_events
		 WHERE processed_at IS NULL AND created_at < $1
		 ORDER BY created_at`,
		cutoff,
	)
	if err != nil {
		return nil, fmt.Errorf("list pending inbox events: %w", err)
	}
	defer rows.Close()

	var pending []PendingEvent
	for rows.Next() {
		var (
			id        pgtype.UUID
			eventType string
			createdAt time.Time
		)
		if err := rows.Scan(&id, &eventType, &createdAt); err != nil {
			return nil, fmt.Errorf("scan pending inbox event: %w", err)
		}
		pending = append(pending, PendingEvent{
			GUID:      id.String(),
			Type:      EventType(eventType),
			CreatedAt: createdAt,
		})
	}
	return pending, rows.Err()
}
