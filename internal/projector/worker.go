// Package projector contains the NATS JetStream pull consumers that apply
// committed inbox events to the search read model.
//
// Design principles:
//   - Pull-based subscription (not push) for backpressure control.
//   - msg.Ack() is called ONLY after the document apply and the inbox
//     mark-processed both succeed.
//   - msg.Nak() requeues transient failures; msg.Term() discards poison
//     pills. A termed message leaves its inbox event pending, so the
//     sweeper resurrects it for inspection rather than losing it.
//   - ProcessEvent carries no NATS dependency so unit tests can drive it
//     with fakes.
package projector

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/mzsawicki/shopery-backend/internal/catalog"
	"github.com/mzsawicki/shopery-backend/internal/clock"
	"github.com/mzsawicki/shopery-backend/internal/dispatch"
	"github.com/mzsawicki/shopery-backend/internal/inbox"
	"github.com/mzsawicki/shopery-backend/internal/search"
)

// All worker replicas share these durable names so each job is processed by
// exactly one instance (competing consumers).
const (
	durableUpdated = "projector-product-updated"
	durableRemoved = "projector-product-removed"

	fetchBatch = 10
	ackWait    = 30 * time.Second
	maxDeliver = 10
)

// inboxRepo is the slice of the inbox repository the worker needs.
type inboxRepo interface {
	LoadPending(ctx context.Context, guid string) (*inbox.Event, error)
	MarkProcessed(ctx context.Context, guid string, at time.Time) error
}

// documentStore is the slice of the search store the worker needs.
type documentStore interface {
	PutProduct(ctx context.Context, doc *search.ProductDocument) error
	DeleteProduct(ctx context.Context, guid string) error
	GetProduct(ctx context.Context, guid string) (*search.ProductDocument, bool, error)
	PutTombstone(ctx context.Context, guid string, removedAt time.Time) error
	GetTombstone(ctx context.Context, guid string) (time.Time, bool, error)
}

// Worker consumes projection jobs and materializes product documents.
type Worker struct {
	client *dispatch.Client
	inbox  inboxRepo
	store  documentStore
	clock  clock.Clock
	logger *zap.Logger
	tracer trace.Tracer
}

// NewWorker constructs a Worker. client may be nil when jobs arrive through
// the in-memory dispatcher instead of JetStream.
func NewWorker(client *dispatch.Client, repo inboxRepo, store documentStore, c clock.Clock, l *zap.Logger) *Worker {
	return &Worker{
		client: client,
		inbox:  repo,
		store:  store,
		clock:  c,
		logger: l,
		tracer: otel.Tracer("projector"),
	}
}

// Handle adapts the worker to the in-memory dispatcher.
func (w *Worker) Handle(ctx context.Context, kind dispatch.Kind, eventGUID string) error {
	return w.ProcessEvent(ctx, kind, eventGUID)
}

// Start creates one durable pull subscription per task kind and launches
// their processing loops. It returns immediately.
func (w *Worker) Start(ctx context.Context) error {
	for _, sub := range []struct {
		kind    dispatch.Kind
		durable string
	}{
		{dispatch.KindProductUpdated, durableUpdated},
		{dispatch.KindProductRemoved, durableRemoved},
	} {
		if err := w.consume(ctx, sub.kind, sub.durable); err != nil {
			return err
		}
	}
	return nil
}

func (w *Worker) consume(ctx context.Context, kind dispatch.Kind, durable string) error {
	sub, err := w.client.JS.PullSubscribe(
		dispatch.Subject(kind),
		durable,
		nats.BindStream(dispatch.StreamTasks),
		nats.AckWait(ackWait),
		nats.MaxDeliver(maxDeliver),
	)
	if err != nil {
		return fmt.Errorf("projector: PullSubscribe %s: %w", dispatch.Subject(kind), err)
	}

	w.logger.Info("projector consumer initialised",
		zap.String("stream", dispatch.StreamTasks),
		zap.String("durable", durable),
		zap.String("subject", dispatch.Subject(kind)),
	)

	go func() {
		for {
			select {
			case <-ctx.Done():
				w.logger.Info("projector consumer stopping", zap.String("durable", durable))
				return
			default:
				msgs, err := sub.Fetch(fetchBatch, nats.Context(ctx))
				if err != nil {
					// Fetch returns nats.ErrTimeout on empty queue — not an error.
					continue
				}
				for _, msg := range msgs {
					w.processMessage(ctx, kind, msg)
				}
			}
		}
	}()

	return nil
}

// processMessage handles ACK/NAK/Term around ProcessEvent.
func (w *Worker) processMessage(ctx context.Context, kind dispatch.Kind, msg *nats.Msg) {
	err := w.ProcessEvent(ctx, kind, string(msg.Data))
	if err != nil {
		switch err.(type) {
		case *poisonPillError:
			// Malformed — terminate so it is never redelivered. The inbox
			// row stays pending for the sweeper.
			w.logger.Warn("terminating poison-pill projection job", zap.Error(err))
			msg.Term()
		default:
			w.logger.Error("NAK projection job (transient error)", zap.Error(err))
			msg.Nak()
		}
		return
	}
	msg.Ack()
}

// ProcessEvent loads the inbox event named by the job and applies it to the
// document store. An absent or already-processed event is a successful
// no-op, which is what makes at-least-once delivery safe.
func (w *Worker) ProcessEvent(ctx context.Context, kind dispatch.Kind, eventGUID string) error {
	if _, err := uuid.Parse(eventGUID); err != nil {
		return &poisonPillError{msg: fmt.Sprintf("invalid event guid %q: %v", eventGUID, err)}
	}

	event, err := w.inbox.LoadPending(ctx, eventGUID)
	if err != nil {
		return fmt.Errorf("load inbox event %s: %w", eventGUID, err)
	}
	if event == nil {
		w.logger.Debug("inbox event absent or already processed, skipping",
			zap.String("event_guid", eventGUID))
		return nil
	}

	switch kind {
	case dispatch.KindProductUpdated:
		err = w.applyUpdated(ctx, event)
	case dispatch.KindProductRemoved:
		err = w.applyRemoved(ctx, event)
	default:
		return &poisonPillError{msg: fmt.Sprintf("unknown task kind %q", kind)}
	}
	if err != nil {
		return err
	}

	// Apply-then-mark: a crash between the two produces a redundant
	// re-apply on retry, which is safe because apply is whole-document
	// replace and delete.
	if err := w.inbox.MarkProcessed(ctx, eventGUID, w.clock.Now()); err != nil {
		return fmt.Errorf("mark event %s processed: %w", eventGUID, err)
	}
	return nil
}

func (w *Worker) applyUpdated(ctx context.Context, event *inbox.Event) error {
	if event.Type != inbox.EventProductUpdated {
		return &poisonPillError{msg: fmt.Sprintf("event %s has type %s, expected %s",
			event.GUID, event.Type, inbox.EventProductUpdated)}
	}

	var payload catalog.ProductUpdatedPayload
	if err := json.Unmarshal(event.Data, &payload); err != nil {
		return &poisonPillError{msg: fmt.Sprintf("unmarshal PRODUCT_UPDATED payload: %v", err)}
	}
	if payload.GUID == "" {
		return &poisonPillError{msg: "PRODUCT_UPDATED payload has no guid"}
	}

	ctx = extractTraceContext(ctx, payload.TraceID, payload.SpanID)
	ctx, span := w.tracer.Start(ctx, "projector.apply_updated")
	defer span.End()

	// Stale-write guard: an older snapshot must never overwrite a newer
	// document. Events with a zero updated_at predate the guard and apply
	// unconditionally.
	current, found, err := w.store.GetProduct(ctx, payload.GUID)
	if err != nil {
		return fmt.Errorf("read current document %s: %w", payload.GUID, err)
	}
	if found && !payload.UpdatedAt.IsZero() && payload.UpdatedAt.Before(current.UpdatedAt) {
		w.logger.Info("skipping stale product update",
			zap.String("guid", payload.GUID),
			zap.Time("incoming", payload.UpdatedAt),
			zap.Time("current", current.UpdatedAt),
		)
		return nil
	}
	// With no document to compare against, a removal tombstone decides: an
	// update at or before the removal time must not resurrect the product.
	if !found && !payload.UpdatedAt.IsZero() {
		removedAt, removed, err := w.store.GetTombstone(ctx, payload.GUID)
		if err != nil {
			return fmt.Errorf("read removal marker %s: %w", payload.GUID, err)
		}
		if removed && !payload.UpdatedAt.After(removedAt) {
			w.logger.Info("skipping update for removed product",
				zap.String("guid", payload.GUID),
				zap.Time("incoming", payload.UpdatedAt),
				zap.Time("removed", removedAt),
			)
			return nil
		}
	}

	if err := w.store.PutProduct(ctx, &payload.ProductDocument); err != nil {
		span.RecordError(err)
		return fmt.Errorf("put document %s: %w", payload.GUID, err)
	}

	w.logger.Info("projected product update",
		zap.String("guid", payload.GUID), zap.String("event_guid", event.GUID))
	return nil
}

func (w *Worker) applyRemoved(ctx context.Context, event *inbox.Event) error {
	if event.Type != inbox.EventProductRemoved {
		return &poisonPillError{msg: fmt.Sprintf("event %s has type %s, expected %s",
			event.GUID, event.Type, inbox.EventProductRemoved)}
	}

	var payload catalog.ProductRemovedPayload
	if err := json.Unmarshal(event.Data, &payload); err != nil {
		return &poisonPillError{msg: fmt.Sprintf("unmarshal PRODUCT_REMOVED payload: %v", err)}
	}
	if payload.GUID == "" {
		return &poisonPillError{msg: "PRODUCT_REMOVED payload has no guid"}
	}

	ctx = extractTraceContext(ctx, payload.TraceID, payload.SpanID)
	ctx, span := w.tracer.Start(ctx, "projector.apply_removed")
	defer span.End()

	// A delete loses to a strictly newer update and wins ties.
	current, found, err := w.store.GetProduct(ctx, payload.GUID)
	if err != nil {
		return fmt.Errorf("read current document %s: %w", payload.GUID, err)
	}
	if found && !payload.UpdatedAt.IsZero() && current.UpdatedAt.After(payload.UpdatedAt) {
		w.logger.Info("skipping stale product removal",
			zap.String("guid", payload.GUID),
			zap.Time("incoming", payload.UpdatedAt),
			zap.Time("current", current.UpdatedAt),
		)
		return nil
	}

	if err := w.store.DeleteProduct(ctx, payload.GUID); err != nil {
		span.RecordError(err)
		return fmt.Errorf("delete document %s: %w", payload.GUID, err)
	}

	removedAt := payload.UpdatedAt
	if removedAt.IsZero() {
		removedAt = w.clock.Now()
	}
	if err := w.store.PutTombstone(ctx, payload.GUID, removedAt); err != nil {
		return fmt.Errorf("write removal marker %s: %w", payload.GUID, err)
	}

	w.logger.Info("projected product removal",
		zap.String("guid", payload.GUID), zap.String("event_guid", event.GUID))
	return nil
}

// poisonPillError wraps structural failures. processMessage terminates
// (rather than NAKs) messages wrapped in this type.
type poisonPillError struct{ msg string }

func (e *poisonPillError) Error() string { return "poison pill: " + e.msg }

// extractTraceContext reconstructs a remote span context from the trace ids
// embedded in the payload, linking the async span back to the originating
// request trace.
func extractTraceContext(ctx context.Context, traceIDStr, spanIDStr string) context.Context {
	if traceIDStr == "" || spanIDStr == "" {
		return ctx
	}
	traceID, err := trace.TraceIDFromHex(traceIDStr)
	if err != nil {
		return ctx
	}
	spanID, err := trace.SpanIDFromHex(spanIDStr)
	if err != nil {
		return ctx
	}
	remoteSpanCtx := trace.NewSpanContext(trace.SpanContextConfig{
		TraceID:    traceID,
		SpanID:     spanID,
		TraceFlags: trace.FlagsSampled,
		Remote:     true,
	})
	return trace.ContextWithRemoteSpanContext(ctx, remoteSpanCtx)
}
