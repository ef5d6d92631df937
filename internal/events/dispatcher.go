package events

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Dispatcher publishes in the background so that request handlers never
// wait on the broker. Events that do not fit in the queue are dropped
// with a warning; the results themselves are already stored.
type Dispatcher struct {
	pub     Publisher
	logger  *slog.Logger
	pending chan job
	done    chan struct{}

	mu     sync.RWMutex
	closed bool
}

type job struct {
	key   string
	event any
}

var _ Publisher = (*Dispatcher)(nil)

// NewDispatcher starts a worker that drains up to size queued events.
func NewDispatcher(pub Publisher, size int, logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	if size < 1 {
		size = 64
	}
	d := &Dispatcher{
		pub:     pub,
		logger:  logger,
		pending: make(chan job, size),
		done:    make(chan struct{}),
	}
	go d.processLoop()
	return d
}

// Publish enqueues the event and returns immediately. Events published
// after Close are dropped.
func (d *Dispatcher) Publish(_ context.Context, routingKey string, event any) error {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		return nil
	}
	select {
	case d.pending <- job{key: routingKey, event: event}:
	default:
		d.logger.Warn("event queue full, dropping event", "key", routingKey)
	}
	return nil
}

func (d *Dispatcher) processLoop() {
	defer close(d.done)
	for j := range d.pending {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		if err := d.pub.Publish(ctx, j.key, j.event); err != nil {
			d.logger.Warn("failed to publish event", "key", j.key, "err", err)
		}
		cancel()
	}
}

// Close stops accepting events and waits for the queue to drain.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	if !d.closed {
		d.closed = true
		close(d.pending)
	}
	d.mu.Unlock()
	<-d.done
}
