package worker

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk/internal/events"
)

const defaultQueueSize = 256

// EventHandler consumes one event.
type EventHandler interface {
	Handle(ctx context.Context, event events.Event) error
}

// NotificationWorker moves notification delivery off the request path. Events are queued by
// dispatcher subscriptions and handled by a single goroutine.
type NotificationWorker struct {
	handler EventHandler
	logger  *zap.Logger
	queue   chan events.Event
	wg      sync.WaitGroup
	once    sync.Once
}

// NewNotificationWorker builds a worker with a bounded queue.
func NewNotificationWorker(handler EventHandler, logger *zap.Logger, queueSize int) *NotificationWorker {
	if logger == nil {
		logger = zap.NewNop()
	}
	if queueSize <= 0 {
		queueSize = defaultQueueSize
	}
	return &NotificationWorker{
		handler: handler,
		logger:  logger,
		queue:   make(chan events.Event, queueSize),
	}
}

// Subscribe registers the worker for every published event type.
func (w *NotificationWorker) Subscribe(dispatcher events.Dispatcher) {
	for _, eventType := range events.AllTypes {
		dispatcher.Subscribe(eventType, w.enqueue)
	}
}

// enqueue never blocks the publisher; a full queue drops the event.
func (w *NotificationWorker) enqueue(_ context.Context, event events.Event) error {
	select {
	case w.queue <- event:
	default:
		w.logger.Warn("notification queue full, dropping event",
			zap.String("event_type", string(event.Type)),
			zap.String("event_id", event.ID))
	}
	return nil
}

// Start consumes the queue until ctx is cancelled.
func (w *NotificationWorker) Start(ctx context.Context) {
	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		for {
			select {
			case <-ctx.Done():
				w.drain()
				return
			case event := <-w.queue:
				w.handle(event)
			}
		}
	}()
}

// Wait blocks until the consumer goroutine has exited.
func (w *NotificationWorker) Wait() {
	w.wg.Wait()
}

func (w *NotificationWorker) drain() {
	w.once.Do(func() {
		for {
			select {
			case event := <-w.queue:
				w.handle(event)
			default:
				return
			}
		}
	})
}

func (w *NotificationWorker) handle(event events.Event) {
	if err := w.handler.Handle(context.Background(), event); err != nil {
		w.logger.Warn("notification failed", zap.String("event_id", event.ID), zap.Error(err))
	}
}
