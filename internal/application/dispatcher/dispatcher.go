package dispatcher

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/civicdesk/caseflow/internal/domain/event"
)

// Handler processes one dispatched event.
type Handler func(ctx context.Context, evt *event.Event) error

// Logger is the minimal logging surface the dispatcher needs.
type Logger interface {
	Info(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
}

// Dispatcher routes domain events to registered handlers.
type Dispatcher interface {
	// Subscribe registers a named handler for an event type.
	Subscribe(eventType event.Type, name string, handler Handler)

	// Dispatch runs handlers synchronously in registration order and
	// returns the first error.
	Dispatch(ctx context.Context, evt *event.Event) error

	// DispatchAsync runs handlers without waiting for them.
	DispatchAsync(ctx context.Context, evt *event.Event)

	// Close stops accepting events and waits for async handlers.
	Close() error
}

type namedHandler struct {
	name    string
	handler Handler
}

type eventDispatcher struct {
	mu       sync.RWMutex
	handlers map[event.Type][]namedHandler
	logger   Logger

	wg     sync.WaitGroup
	closed atomic.Bool
}

// New creates an in-process dispatcher.
func New(logger Logger) Dispatcher {
	return &eventDispatcher{
		handlers: make(map[event.Type][]namedHandler),
		logger:   logger,
	}
}

func (d *eventDispatcher) Subscribe(eventType event.Type, name string, handler Handler) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.handlers[eventType] = append(d.handlers[eventType], namedHandler{name: name, handler: handler})
	if d.logger != nil {
		d.logger.Info("event handler registered", "event_type", eventType, "handler", name)
	}
}

func (d *eventDispatcher) Dispatch(ctx context.Context, evt *event.Event) error {
	if d.closed.Load() {
		return fmt.Errorf("dispatcher is closed")
	}

	d.mu.RLock()
	handlers := d.handlers[evt.Type]
	d.mu.RUnlock()

	for _, h := range handlers {
		if err := d.run(ctx, evt, h); err != nil {
			return fmt.Errorf("handler %s failed: %w", h.name, err)
		}
	}
	return nil
}

func (d *eventDispatcher) DispatchAsync(ctx context.Context, evt *event.Event) {
	if d.closed.Load() {
		if d.logger != nil {
			d.logger.Error("dropping event, dispatcher closed", "event_type", evt.Type, "event_id", evt.ID)
		}
		return
	}

	d.mu.RLock()
	handlers := d.handlers[evt.Type]
	d.mu.RUnlock()

	for _, h := range handlers {
		d.wg.Add(1)
		go func(h namedHandler) {
			defer d.wg.Done()
			if err := d.run(ctx, evt, h); err != nil && d.logger != nil {
				d.logger.Error("async event handler failed",
					"event_type", evt.Type,
					"event_id", evt.ID,
					"handler", h.name,
					"error", err,
				)
			}
		}(h)
	}
}

func (d *eventDispatcher) Close() error {
	if !d.closed.CompareAndSwap(false, true) {
		return fmt.Errorf("dispatcher already closed")
	}
	d.wg.Wait()
	return nil
}

// run executes a handler with panic recovery so one misbehaving subscriber
// cannot take down the engine.
func (d *eventDispatcher) run(ctx context.Context, evt *event.Event, h namedHandler) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("handler panic: %v", r)
		}
	}()
	return h.handler(ctx, evt)
}
