package sweeper

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/mzsawicki/shopery-backend/internal/clock"
	"github.com/mzsawicki/shopery-backend/internal/dispatch"
	"github.com/mzsawicki/shopery-backend/internal/inbox"
)

type fakeLister struct {
	pending    []inbox.PendingEvent
	err        error
	lastCutoff time.Time
}

func (f *fakeLister) ListPendingOlderThan(_ context.Context, cutoff time.Time) ([]inbox.PendingEvent, error) {
	f.lastCutoff = cutoff
	return f.pending, f.err
}

type enqueued struct {
	kind dispatch.Kind
	guid string
}

type fakeDispatcher struct {
	calls   []enqueued
	failFor map[string]error
}

func (f *fakeDispatcher) Enqueue(_ context.Context, kind dispatch.Kind, guid string) error {
	if err, ok := f.failFor[guid]; ok {
		return err
	}
	f.calls = append(f.calls, enqueued{kind: kind, guid: guid})
	return nil
}

var sweepTime = time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)

func newSweeper(t *testing.T, lister *fakeLister, d *fakeDispatcher) *Sweeper {
	t.Helper()
	return New(lister, d, clock.Fixed{Instant: sweepTime}, 5*time.Minute, zaptest.NewLogger(t))
}

func TestSweep_RequeuesStaleProductEvents(t *testing.T) {
	lister := &fakeLister{pending: []inbox.PendingEvent{
		{GUID: "e1", Type: inbox.EventProductUpdated},
		{GUID: "e2", Type: inbox.EventProductRemoved},
	}}
	d := &fakeDispatcher{}

	newSweeper(t, lister, d).Sweep(context.Background())

	require.Len(t, d.calls, 2)
	assert.Equal(t, enqueued{dispatch.KindProductUpdated, "e1"}, d.calls[0])
	assert.Equal(t, enqueued{dispatch.KindProductRemoved, "e2"}, d.calls[1])
}

func TestSweep_CutoffIsNowMinusGrace(t *testing.T) {
	lister := &fakeLister{}
	newSweeper(t, lister, &fakeDispatcher{}).Sweep(context.Background())
	assert.Equal(t, sweepTime.Add(-5*time.Minute), lister.lastCutoff)
}

func TestSweep_SkipsEventsWithoutConsumer(t *testing.T) {
	lister := &fakeLister{pending: []inbox.PendingEvent{
		{GUID: "e1", Type: inbox.EventCategoryUpdated},
		{GUID: "e2", Type: inbox.EventCategoryRemoved},
		{GUID: "e3", Type: inbox.EventTagRemoved},
		{GUID: "e4", Type: inbox.EventProductUpdated},
	}}
	d := &fakeDispatcher{}

	newSweeper(t, lister, d).Sweep(context.Background())

	require.Len(t, d.calls, 1)
	assert.Equal(t, "e4", d.calls[0].guid)
}

func TestSweep_OneFailureDoesNotAbortTheRest(t *testing.T) {
	lister := &fakeLister{pending: []inbox.PendingEvent{
		{GUID: "e1", Type: inbox.EventProductUpdated},
		{GUID: "e2", Type: inbox.EventProductUpdated},
		{GUID: "e3", Type: inbox.EventProductRemoved},
	}}
	d := &fakeDispatcher{failFor: map[string]error{"e2": errors.New("broker down")}}

	newSweeper(t, lister, d).Sweep(context.Background())

	require.Len(t, d.calls, 2)
	assert.Equal(t, "e1", d.calls[0].guid)
	assert.Equal(t, "e3", d.calls[1].guid)
}

func TestSweep_ListFailureIsLoggedAndDropped(t *testing.T) {
	lister := &fakeLister{err: errors.New("connection refused")}
	d := &fakeDispatcher{}

	newSweeper(t, lister, d).Sweep(context.Background())
	assert.Empty(t, d.calls)
}

func TestKindFor(t *testing.T) {
	kind, ok := kindFor(inbox.EventProductUpdated)
	assert.True(t, ok)
	assert.Equal(t, dispatch.KindProductUpdated, kind)

	_, ok = kindFor(inbox.EventTagRemoved)
	assert.False(t, ok)
}
