// Package dispatch bridges committed inbox events to the projection worker
// through NATS JetStream. The message body is just the inbox-event guid;
// the worker re-reads the authoritative payload from Postgres, so losing a
// message costs latency (the sweeper re-enqueues), never data.
package dispatch

import (
	"context"
	"fmt"
	"sync"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"
)

// Kind names a projection task queue.
type Kind string

const (
	KindProductUpdated Kind = "consume_product_updated_event"
	KindProductRemoved Kind = "consume_product_removed_event"
)

// StreamTasks is the JetStream stream holding projection jobs.
const StreamTasks = "STORE_TASKS"

// Subject renders the JetStream subject for a task kind.
func Subject(kind Kind) string {
	return fmt.Sprintf("%s.%s", StreamTasks, kind)
}

// Dispatcher enqueues a projection job for a committed inbox event.
// Implementations return only after the job is durably accepted.
type Dispatcher interface {
	Enqueue(ctx context.Context, kind Kind, eventGUID string) error
}

// Client wraps a NATS connection and its JetStream context.
type Client struct {
	Conn *nats.Conn
	JS   nats.JetStreamContext
	Log  *zap.Logger
}

// NewClient connects to NATS and initialises a JetStream context.
func NewClient(url string, logger *zap.Logger) (*Client, error) {
	nc, err := nats.Connect(url, nats.RetryOnFailedConnect(true), nats.MaxReconnects(-1))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	js, err := nc.JetStream()
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("failed to initialize JetStream: %w", err)
	}

	logger.Info("NATS JetStream connected", zap.String("url", url))
	return &Client{Conn: nc, JS: js, Log: logger}, nil
}

// ProvisionStream idempotently creates the STORE_TASKS stream with file
// persistence. An existing stream is left as is.
func (c *Client) ProvisionStream() error {
	_, err := c.JS.StreamInfo(StreamTasks)
	if err == nil {
		return nil
	}
	if err != nats.ErrStreamNotFound {
		return fmt.Errorf("stream info %s: %w", StreamTasks, err)
	}

	_, err = c.JS.AddStream(&nats.StreamConfig{
		Name:      StreamTasks,
		Subjects:  []string{StreamTasks + ".>"},
		Storage:   nats.FileStorage,
		Retention: nats.LimitsPolicy,
	})
	if err != nil {
		return fmt.Errorf("add stream %s: %w", StreamTasks, err)
	}
	c.Log.Info("provisioned JetStream stream", zap.String("stream", StreamTasks))
	return nil
}

// Close drains the connection so in-flight publish acks are not dropped.
func (c *Client) Close() {
	if c.Conn != nil {
		if err := c.Conn.Drain(); err != nil {
			c.Conn.Close()
		}
	}
}

// JetStreamDispatcher publishes jobs to STORE_TASKS and waits for the
// broker's durable ack before reporting success.
type JetStreamDispatcher struct {
	client *Client
}

// NewJetStreamDispatcher wraps a connected Client.
func NewJetStreamDispatcher(c *Client) *JetStreamDispatcher {
	return &JetStreamDispatcher{client: c}
}

// Enqueue publishes the event guid to the kind's subject.
func (d *JetStreamDispatcher) Enqueue(ctx context.Context, kind Kind, eventGUID string) error {
	if _, err := d.client.JS.Publish(Subject(kind), []byte(eventGUID), nats.Context(ctx)); err != nil {
		return fmt.Errorf("publish %s: %w", Subject(kind), err)
	}
	return nil
}

// Handler consumes one enqueued job.
type Handler func(ctx context.Context, kind Kind, eventGUID string) error

// MemoryDispatcher delivers jobs synchronously to a registered handler.
// Development and test toggle; failures surface directly to the caller,
// which the orchestrator already tolerates (the sweeper is the safety net).
type MemoryDispatcher struct {
	mu      sync.RWMutex
	handler Handler
	logger  *zap.Logger
}

// NewMemoryDispatcher constructs an empty in-process dispatcher.
func NewMemoryDispatcher(l *zap.Logger) *MemoryDispatcher {
	return &MemoryDispatcher{logger: l}
}

// Register installs the consuming handler. Jobs enqueued before any handler
// is registered are dropped with a warning; the sweeper replays them.
func (d *MemoryDispatcher) Register(h Handler) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.handler = h
}

// Enqueue runs the handler inline.
func (d *MemoryDispatcher) Enqueue(ctx context.Context, kind Kind, eventGUID string) error {
	d.mu.RLock()
	handler := d.handler
	d.mu.RUnlock()

	if handler == nil {
		d.logger.Warn("no handler registered, dropping job",
			zap.String("kind", string(kind)), zap.String("event_guid", eventGUID))
		return nil
	}
	return handler(ctx, kind, eventGUID)
}
