package audit

import (
	"context"
	"log/slog"
	"time"

	"github.com/panjf2000/ants/v2"
)

// Publisher is the sink the dispatcher drains events into.
type Publisher interface {
	Publish(ctx context.Context, event Event) error
}

// Dispatcher implements Recorder on top of a bounded worker pool so that
// audit publication never runs on the request path. Events that cannot be
// submitted or published are logged and dropped.
type Dispatcher struct {
	logger    *slog.Logger
	publisher Publisher
	pool      *ants.Pool
	timeout   time.Duration
}

// NewDispatcher creates a dispatcher backed by an ants pool of the given size.
func NewDispatcher(logger *slog.Logger, publisher Publisher, poolSize int, publishTimeout time.Duration) (*Dispatcher, error) {
	pool, err := ants.NewPool(poolSize)
	if err != nil {
		return nil, err
	}

	return &Dispatcher{
		logger:    logger,
		publisher: publisher,
		pool:      pool,
		timeout:   publishTimeout,
	}, nil
}

// Record submits the event for asynchronous publication.
func (d *Dispatcher) Record(event Event) {
	err := d.pool.Submit(func() {
		ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
		defer cancel()

		if err := d.publisher.Publish(ctx, event); err != nil {
			d.logger.Error("Failed to publish audit event", "kind", event.Kind, "error", err)
		}
	})
	if err != nil {
		d.logger.Error("Failed to submit audit event to worker pool", "kind", event.Kind, "error", err)
	}
}

// Close releases the worker pool.
func (d *Dispatcher) Close() {
	d.pool.Release()
}
