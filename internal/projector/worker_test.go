package projector

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/mzsawicki/shopery-backend/internal/catalog"
	"github.com/mzsawicki/shopery-backend/internal/clock"
	"github.com/mzsawicki/shopery-backend/internal/dispatch"
	"github.com/mzsawicki/shopery-backend/internal/inbox"
	"github.com/mzsawicki/shopery-backend/internal/search"
)

// ── fakes ─────────────────────────────────────────────────────────────────

type fakeInbox struct {
	events    map[string]*inbox.Event
	processed map[string]time.Time
	loadErr   error
	markErr   error
}

func newFakeInbox() *fakeInbox {
	return &fakeInbox{
		events:    make(map[string]*inbox.Event),
		processed: make(map[string]time.Time),
	}
}

func (f *fakeInbox) LoadPending(_ context.Context, guid string) (*inbox.Event, error) {
	if f.loadErr != nil {
		return nil, f.loadErr
	}
	if _, done := f.processed[guid]; done {
		return nil, nil
	}
	return f.events[guid], nil
}

func (f *fakeInbox) MarkProcessed(_ context.Context, guid string, at time.Time) error {
	if f.markErr != nil {
		return f.markErr
	}
	if _, done := f.processed[guid]; !done {
		f.processed[guid] = at
	}
	return nil
}

type fakeStore struct {
	docs       map[string]*search.ProductDocument
	tombstones map[string]time.Time
	puts       int
	deletes    int
	putErr     error
	deleteErr  error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		docs:       make(map[string]*search.ProductDocument),
		tombstones: make(map[string]time.Time),
	}
}

func (f *fakeStore) PutProduct(_ context.Context, doc *search.ProductDocument) error {
	if f.putErr != nil {
		return f.putErr
	}
	f.puts++
	copied := *doc
	f.docs[doc.GUID] = &copied
	return nil
}

func (f *fakeStore) DeleteProduct(_ context.Context, guid string) error {
	if f.deleteErr != nil {
		return f.deleteErr
	}
	f.deletes++
	delete(f.docs, guid)
	return nil
}

func (f *fakeStore) GetProduct(_ context.Context, guid string) (*search.ProductDocument, bool, error) {
	doc, ok := f.docs[guid]
	return doc, ok, nil
}

func (f *fakeStore) PutTombstone(_ context.Context, guid string, removedAt time.Time) error {
	f.tombstones[guid] = removedAt
	return nil
}

func (f *fakeStore) GetTombstone(_ context.Context, guid string) (time.Time, bool, error) {
	removedAt, ok := f.tombstones[guid]
	return removedAt, ok, nil
}

// ── helpers ───────────────────────────────────────────────────────────────

const (
	eventGUID   = "018f6f00-0000-7000-8000-000000000001"
	productGUID = "018f6f00-0000-7000-8000-000000000002"
)

var baseTime = time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)

func newWorker(t *testing.T, repo *fakeInbox, store *fakeStore) *Worker {
	t.Helper()
	return NewWorker(nil, repo, store, clock.Fixed{Instant: baseTime}, zaptest.NewLogger(t))
}

func updatedEvent(t *testing.T, guid string, updatedAt time.Time) *inbox.Event {
	t.Helper()
	payload := catalog.ProductUpdatedPayload{
		ProductDocument: search.ProductDocument{
			GUID:      productGUID,
			SKU:       "2,51,594",
			NameEN:    "Chinese Cabbage",
			UpdatedAt: updatedAt,
		},
	}
	data, err := json.Marshal(payload)
	require.NoError(t, err)
	return &inbox.Event{GUID: guid, Type: inbox.EventProductUpdated, Data: data, CreatedAt: updatedAt}
}

func removedEvent(t *testing.T, guid string, removedAt time.Time) *inbox.Event {
	t.Helper()
	payload := catalog.ProductRemovedPayload{GUID: productGUID, UpdatedAt: removedAt}
	data, err := json.Marshal(payload)
	require.NoError(t, err)
	return &inbox.Event{GUID: guid, Type: inbox.EventProductRemoved, Data: data, CreatedAt: removedAt}
}

// ── tests ─────────────────────────────────────────────────────────────────

func TestProcessEvent_AppliesUpdateAndMarksProcessed(t *testing.T) {
	repo := newFakeInbox()
	store := newFakeStore()
	repo.events[eventGUID] = updatedEvent(t, eventGUID, baseTime)

	w := newWorker(t, repo, store)
	err := w.ProcessEvent(context.Background(), dispatch.KindProductUpdated, eventGUID)
	require.NoError(t, err)

	doc, ok := store.docs[productGUID]
	require.True(t, ok)
	assert.Equal(t, "Chinese Cabbage", doc.NameEN)
	assert.Contains(t, repo.processed, eventGUID)
}

func TestProcessEvent_SecondDeliveryIsNoOp(t *testing.T) {
	repo := newFakeInbox()
	store := newFakeStore()
	repo.events[eventGUID] = updatedEvent(t, eventGUID, baseTime)

	w := newWorker(t, repo, store)
	require.NoError(t, w.ProcessEvent(context.Background(), dispatch.KindProductUpdated, eventGUID))
	require.NoError(t, w.ProcessEvent(context.Background(), dispatch.KindProductUpdated, eventGUID))

	assert.Equal(t, 1, store.puts, "the second delivery must not re-apply")
}

func TestProcessEvent_AbsentEventIsNoOp(t *testing.T) {
	repo := newFakeInbox()
	store := newFakeStore()

	w := newWorker(t, repo, store)
	err := w.ProcessEvent(context.Background(), dispatch.KindProductUpdated, eventGUID)
	require.NoError(t, err)
	assert.Zero(t, store.puts)
	assert.Empty(t, repo.processed)
}

func TestProcessEvent_StaleUpdateSkipped(t *testing.T) {
	repo := newFakeInbox()
	store := newFakeStore()

	// Document already carries a newer state.
	store.docs[productGUID] = &search.ProductDocument{
		GUID:      productGUID,
		NameEN:    "Chinese Cabbage v2",
		UpdatedAt: baseTime.Add(time.Minute),
	}
	repo.events[eventGUID] = updatedEvent(t, eventGUID, baseTime)

	w := newWorker(t, repo, store)
	err := w.ProcessEvent(context.Background(), dispatch.KindProductUpdated, eventGUID)
	require.NoError(t, err)

	assert.Zero(t, store.puts, "stale snapshot must not overwrite newer document")
	assert.Equal(t, "Chinese Cabbage v2", store.docs[productGUID].NameEN)
	assert.Contains(t, repo.processed, eventGUID, "skipped event is still marked processed")
}

func TestProcessEvent_ZeroUpdatedAtAlwaysApplies(t *testing.T) {
	repo := newFakeInbox()
	store := newFakeStore()

	store.docs[productGUID] = &search.ProductDocument{
		GUID:      productGUID,
		UpdatedAt: baseTime.Add(time.Hour),
	}
	repo.events[eventGUID] = updatedEvent(t, eventGUID, time.Time{})

	w := newWorker(t, repo, store)
	require.NoError(t, w.ProcessEvent(context.Background(), dispatch.KindProductUpdated, eventGUID))
	assert.Equal(t, 1, store.puts)
}

func TestProcessEvent_RemovalDeletesDocument(t *testing.T) {
	repo := newFakeInbox()
	store := newFakeStore()

	store.docs[productGUID] = &search.ProductDocument{GUID: productGUID, UpdatedAt: baseTime}
	repo.events[eventGUID] = removedEvent(t, eventGUID, baseTime.Add(time.Second))

	w := newWorker(t, repo, store)
	require.NoError(t, w.ProcessEvent(context.Background(), dispatch.KindProductRemoved, eventGUID))

	assert.NotContains(t, store.docs, productGUID)
	assert.Contains(t, repo.processed, eventGUID)
}

func TestProcessEvent_RemovalLosesToNewerUpdate(t *testing.T) {
	repo := newFakeInbox()
	store := newFakeStore()

	store.docs[productGUID] = &search.ProductDocument{
		GUID:      productGUID,
		UpdatedAt: baseTime.Add(time.Minute),
	}
	repo.events[eventGUID] = removedEvent(t, eventGUID, baseTime)

	w := newWorker(t, repo, store)
	require.NoError(t, w.ProcessEvent(context.Background(), dispatch.KindProductRemoved, eventGUID))

	assert.Contains(t, store.docs, productGUID, "newer document survives an older removal")
	assert.Zero(t, store.deletes)
	assert.Contains(t, repo.processed, eventGUID)
}

func TestProcessEvent_RemovalWinsTie(t *testing.T) {
	repo := newFakeInbox()
	store := newFakeStore()

	store.docs[productGUID] = &search.ProductDocument{GUID: productGUID, UpdatedAt: baseTime}
	repo.events[eventGUID] = removedEvent(t, eventGUID, baseTime)

	w := newWorker(t, repo, store)
	require.NoError(t, w.ProcessEvent(context.Background(), dispatch.KindProductRemoved, eventGUID))
	assert.NotContains(t, store.docs, productGUID)
}

func TestProcessEvent_UpdateAfterRemovalNotResurrected(t *testing.T) {
	repo := newFakeInbox()
	store := newFakeStore()

	removalGUID := eventGUID
	updateGUID := "018f6f00-0000-7000-8000-000000000003"

	store.docs[productGUID] = &search.ProductDocument{GUID: productGUID, UpdatedAt: baseTime}
	repo.events[removalGUID] = removedEvent(t, removalGUID, baseTime.Add(time.Second))
	repo.events[updateGUID] = updatedEvent(t, updateGUID, baseTime)

	w := newWorker(t, repo, store)
	require.NoError(t, w.ProcessEvent(context.Background(), dispatch.KindProductRemoved, removalGUID))
	// The older update arrives after the delete took the document away.
	require.NoError(t, w.ProcessEvent(context.Background(), dispatch.KindProductUpdated, updateGUID))

	assert.NotContains(t, store.docs, productGUID, "stale update must not re-create a removed product")
	assert.Zero(t, store.puts)
	assert.Contains(t, repo.processed, updateGUID)
}

func TestProcessEvent_NewerUpdateAfterRemovalApplies(t *testing.T) {
	repo := newFakeInbox()
	store := newFakeStore()

	removalGUID := eventGUID
	updateGUID := "018f6f00-0000-7000-8000-000000000003"

	store.docs[productGUID] = &search.ProductDocument{GUID: productGUID, UpdatedAt: baseTime}
	repo.events[removalGUID] = removedEvent(t, removalGUID, baseTime)
	repo.events[updateGUID] = updatedEvent(t, updateGUID, baseTime.Add(time.Minute))

	w := newWorker(t, repo, store)
	require.NoError(t, w.ProcessEvent(context.Background(), dispatch.KindProductRemoved, removalGUID))
	require.NoError(t, w.ProcessEvent(context.Background(), dispatch.KindProductUpdated, updateGUID))

	assert.Contains(t, store.docs, productGUID, "an update newer than the removal is a legitimate re-add")
	assert.Equal(t, 1, store.puts)
}

func TestProcessEvent_RemovalWritesTombstone(t *testing.T) {
	repo := newFakeInbox()
	store := newFakeStore()

	removedAt := baseTime.Add(time.Second)
	store.docs[productGUID] = &search.ProductDocument{GUID: productGUID, UpdatedAt: baseTime}
	repo.events[eventGUID] = removedEvent(t, eventGUID, removedAt)

	w := newWorker(t, repo, store)
	require.NoError(t, w.ProcessEvent(context.Background(), dispatch.KindProductRemoved, eventGUID))

	assert.Equal(t, removedAt, store.tombstones[productGUID])
}

func TestProcessEvent_DeletingMissingDocumentSucceeds(t *testing.T) {
	repo := newFakeInbox()
	store := newFakeStore()
	repo.events[eventGUID] = removedEvent(t, eventGUID, baseTime)

	w := newWorker(t, repo, store)
	require.NoError(t, w.ProcessEvent(context.Background(), dispatch.KindProductRemoved, eventGUID))
	assert.Contains(t, repo.processed, eventGUID)
}

func TestProcessEvent_InvalidGUID_PoisonPill(t *testing.T) {
	w := newWorker(t, newFakeInbox(), newFakeStore())
	err := w.ProcessEvent(context.Background(), dispatch.KindProductUpdated, "not-a-uuid")
	require.Error(t, err)
	var ppe *poisonPillError
	assert.True(t, errors.As(err, &ppe))
}

func TestProcessEvent_MalformedPayload_PoisonPill(t *testing.T) {
	repo := newFakeInbox()
	repo.events[eventGUID] = &inbox.Event{
		GUID: eventGUID, Type: inbox.EventProductUpdated, Data: []byte(`{invalid`),
	}

	w := newWorker(t, repo, newFakeStore())
	err := w.ProcessEvent(context.Background(), dispatch.KindProductUpdated, eventGUID)
	require.Error(t, err)
	var ppe *poisonPillError
	assert.True(t, errors.As(err, &ppe))
}

func TestProcessEvent_KindMismatch_PoisonPill(t *testing.T) {
	repo := newFakeInbox()
	repo.events[eventGUID] = updatedEvent(t, eventGUID, baseTime)

	w := newWorker(t, repo, newFakeStore())
	err := w.ProcessEvent(context.Background(), dispatch.KindProductRemoved, eventGUID)
	require.Error(t, err)
	var ppe *poisonPillError
	assert.True(t, errors.As(err, &ppe))
}

func TestProcessEvent_StoreError_IsTransient(t *testing.T) {
	repo := newFakeInbox()
	store := newFakeStore()
	store.putErr = errors.New("connection refused")
	repo.events[eventGUID] = updatedEvent(t, eventGUID, baseTime)

	w := newWorker(t, repo, store)
	err := w.ProcessEvent(context.Background(), dispatch.KindProductUpdated, eventGUID)
	require.Error(t, err)
	// Must NOT be a poison pill — should NAK for retry.
	var ppe *poisonPillError
	assert.False(t, errors.As(err, &ppe))
	assert.Empty(t, repo.processed, "failed apply must leave the event pending")
}
