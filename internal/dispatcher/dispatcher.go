// Package dispatcher routes stream messages to handlers by message type and
// counts what passes through each route.
package dispatcher

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// ErrUnrouted is returned by Dispatch for a message type without a handler.
var ErrUnrouted = errors.New("no handler for message type")

// Event is one routed message.
type Event struct {
	Type    string
	Payload any
}

// HandlerFunc processes an event. The result is returned from Dispatch for
// synchronous routes and discarded for buffered ones.
type HandlerFunc func(Event) (any, error)

// Logger is satisfied by *slog.Logger and by the zerolog key/value adapter.
type Logger interface {
	Debug(msg string, keysAndValues ...any)
	Info(msg string, keysAndValues ...any)
	Error(msg string, keysAndValues ...any)
}

// Option configures a route.
type Option func(*route)

// Buffered moves the handler onto its own goroutine behind a queue of size
// events. Dispatch blocks while the queue is full, so a slow handler slows
// the producer down instead of losing messages.
func Buffered(size int) Option {
	return func(r *route) {
		r.size = size
	}
}

// Logged logs every message of the route at debug level and failures at
// error level.
func Logged() Option {
	return func(r *route) {
		r.logged = true
	}
}

type route struct {
	typ    string
	handle HandlerFunc
	size   int
	logged bool
	queue  chan Event
	attrs  metric.MeasurementOption

	handled atomic.Uint64
	failed  atomic.Uint64
}

// Dispatcher routes events to the handler registered for their type. All
// routes must be registered before the first Dispatch.
type Dispatcher struct {
	logger   Logger
	routes   map[string]*route
	unrouted atomic.Uint64

	messages metric.Int64Counter
	failures metric.Int64Counter
	queued   metric.Int64ObservableGauge

	mu      sync.RWMutex
	wg      sync.WaitGroup
	drained bool
}

// New creates a Dispatcher. Metrics go to the global OTel meter, which is a
// no-op until a provider is installed.
func New(logger Logger) (*Dispatcher, error) {
	d := &Dispatcher{
		logger: logger,
		routes: make(map[string]*route),
	}

	m := meter()
	var err error

	d.messages, err = m.Int64Counter(
		"dispatcher.messages",
		metric.WithDescription("Messages routed, by message type"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating messages counter: %w", err)
	}

	d.failures, err = m.Int64Counter(
		"dispatcher.failures",
		metric.WithDescription("Handler errors, by message type"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating failures counter: %w", err)
	}

	d.queued, err = m.Int64ObservableGauge(
		"dispatcher.queue.size",
		metric.WithDescription("Messages waiting on buffered routes"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating queue size gauge: %w", err)
	}
	_, err = m.RegisterCallback(func(_ context.Context, o metric.Observer) error {
		d.mu.RLock()
		defer d.mu.RUnlock()
		for _, r := range d.routes {
			if r.queue != nil {
				o.ObserveInt64(d.queued, int64(len(r.queue)), r.attrs)
			}
		}
		return nil
	}, d.queued)
	if err != nil {
		return nil, fmt.Errorf("registering queue callback: %w", err)
	}

	return d, nil
}

// Register installs the handler for typ. A buffered route it replaces is
// closed after its queued events are handled.
func (d *Dispatcher) Register(typ string, h HandlerFunc, opts ...Option) {
	r := &route{
		typ:    typ,
		handle: h,
		attrs:  metric.WithAttributes(attribute.String("type", typ)),
	}
	for _, opt := range opts {
		opt(r)
	}

	if r.size > 0 {
		r.queue = make(chan Event, r.size)
		d.wg.Add(1)
		go d.consume(r)
	}

	d.mu.Lock()
	if old, ok := d.routes[typ]; ok && old.queue != nil {
		close(old.queue)
	}
	d.routes[typ] = r
	d.mu.Unlock()
}

// Dispatch routes e. Synchronous routes return the handler's result;
// buffered routes return once the event is queued.
func (d *Dispatcher) Dispatch(e Event) (any, error) {
	r, ok := d.routes[e.Type]
	if !ok {
		d.unrouted.Add(1)
		return nil, fmt.Errorf("%w: %q", ErrUnrouted, e.Type)
	}
	d.messages.Add(context.Background(), 1, r.attrs)

	if r.queue != nil {
		r.queue <- e
		return nil, nil
	}
	return d.call(r, e)
}

func (d *Dispatcher) consume(r *route) {
	defer d.wg.Done()
	for e := range r.queue {
		if _, err := d.call(r, e); err != nil && !r.logged {
			d.logger.Error("Buffered message failed", "type", r.typ, "error", err)
		}
	}
}

func (d *Dispatcher) call(r *route, e Event) (any, error) {
	var start time.Time
	if r.logged {
		start = time.Now()
		d.logger.Debug("Handling message", "type", r.typ, "payload", fmt.Sprintf("%T", e.Payload))
	}

	result, err := r.handle(e)
	r.handled.Add(1)
	if err != nil {
		r.failed.Add(1)
		d.failures.Add(context.Background(), 1, r.attrs)
	}

	if r.logged {
		if err != nil {
			d.logger.Error("Message failed", "type", r.typ, "duration", time.Since(start), "error", err)
		} else {
			d.logger.Debug("Message handled", "type", r.typ, "duration", time.Since(start))
		}
	}
	return result, err
}

// Counts returns how many messages each registered route has handled.
func (d *Dispatcher) Counts() map[string]uint64 {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make(map[string]uint64, len(d.routes))
	for typ, r := range d.routes {
		out[typ] = r.handled.Load()
	}
	return out
}

// Failed returns the handler errors per route, leaving out routes without any.
func (d *Dispatcher) Failed() map[string]uint64 {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make(map[string]uint64)
	for typ, r := range d.routes {
		if n := r.failed.Load(); n > 0 {
			out[typ] = n
		}
	}
	return out
}

// Unrouted returns the number of messages rejected for want of a handler.
func (d *Dispatcher) Unrouted() uint64 {
	return d.unrouted.Load()
}

// Drain closes every buffered queue and waits for the queued events to be
// handled. Dispatching to a buffered route after Drain panics.
func (d *Dispatcher) Drain() {
	d.mu.Lock()
	if d.drained {
		d.mu.Unlock()
		return
	}
	d.drained = true
	for _, r := range d.routes {
		if r.queue != nil {
			close(r.queue)
		}
	}
	d.mu.Unlock()
	d.wg.Wait()
}
