// Package sweeper re-enqueues inbox events that stayed pending past a grace
// period. It is the safety net for every failure mode between commit and
// projection: a dispatcher outage, a crashed worker, a termed poison pill.
package sweeper

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/mzsawicki/shopery-backend/internal/clock"
	"github.com/mzsawicki/shopery-backend/internal/dispatch"
	"github.com/mzsawicki/shopery-backend/internal/inbox"
)

const schedule = "@every 1m"

// pendingLister is the slice of the inbox repository the sweeper needs.
type pendingLister interface {
	ListPendingOlderThan(ctx context.Context, cutoff time.Time) ([]inbox.PendingEvent, error)
}

// Sweeper periodically scans for stale pending events and re-enqueues them.
type Sweeper struct {
	cron       *cron.Cron
	inbox      pendingLister
	dispatcher dispatch.Dispatcher
	clock      clock.Clock
	logger     *zap.Logger

	// grace is how long an event may stay pending before it counts as
	// stuck. It must exceed the normal dispatch-to-ack latency, or the
	// sweeper would race healthy in-flight jobs.
	grace time.Duration
}

// New constructs a Sweeper.
func New(repo pendingLister, d dispatch.Dispatcher, c clock.Clock, grace time.Duration, l *zap.Logger) *Sweeper {
	return &Sweeper{
		cron:       cron.New(),
		inbox:      repo,
		dispatcher: d,
		clock:      c,
		logger:     l,
		grace:      grace,
	}
}

// Start registers the sweep job and starts the scheduler.
func (s *Sweeper) Start(ctx context.Context) error {
	if _, err := s.cron.AddFunc(schedule, func() { s.Sweep(ctx) }); err != nil {
		return err
	}
	s.cron.Start()
	s.logger.Info("sweeper started",
		zap.String("schedule", schedule), zap.Duration("grace", s.grace))
	return nil
}

// Stop gracefully stops the scheduler, waiting for a running sweep.
func (s *Sweeper) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.logger.Info("sweeper stopped")
}

// Sweep re-enqueues every stale pending event that has a consumer. The
// reserved category and tag event types have none, so re-enqueueing them
// would just cycle through the broker forever.
func (s *Sweeper) Sweep(ctx context.Context) {
	cutoff := s.clock.Now().Add(-s.grace)

	pending, err := s.inbox.ListPendingOlderThan(ctx, cutoff)
	if err != nil {
		s.logger.Error("sweep: listing pending events failed", zap.Error(err))
		return
	}

	requeued := 0
	for _, event := range pending {
		kind, ok := kindFor(event.Type)
		if !ok {
			continue
		}
		if err := s.dispatcher.Enqueue(ctx, kind, event.GUID); err != nil {
			s.logger.Error("sweep: re-enqueue failed",
				zap.String("event_guid", event.GUID),
				zap.String("kind", string(kind)),
				zap.Error(err),
			)
			continue
		}
		requeued++
	}

	if requeued > 0 {
		s.logger.Info("sweep re-enqueued stale events",
			zap.Int("requeued", requeued), zap.Int("pending", len(pending)))
	}
}

// kindFor maps an event type to its task kind; false for the reserved types
// without a consumer.
func kindFor(t inbox.EventType) (dispatch.Kind, bool) {
	switch t {
	case inbox.EventProductUpdated:
		return dispatch.KindProductUpdated, true
	case inbox.EventProductRemoved:
		return dispatch.KindProductRemoved, true
	default:
		return "", false
	}
}
