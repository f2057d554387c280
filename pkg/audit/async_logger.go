package audit

import (
	"context"
	"sync"
	"time"

	"github.com/iLink-CyberShARE/swim-api/pkg/observability"
)

const defaultWriteTimeout = 5 * time.Second

type queuedEvent struct {
	ctx   context.Context
	event *Event
}

// AsyncLogger hands events to a background worker so callers never wait on the
// event store. When the buffer is full the event is dropped and counted.
type AsyncLogger struct {
	next         Logger
	events       chan queuedEvent
	logger       *observability.Logger
	metrics      *observability.Metrics
	writeTimeout time.Duration

	mu     sync.RWMutex
	closed bool
	done   chan struct{}
}

// NewAsyncLogger starts a worker that forwards events to next
func NewAsyncLogger(next Logger, bufferSize int, logger *observability.Logger, metrics *observability.Metrics) *AsyncLogger {
	if bufferSize <= 0 {
		bufferSize = 1
	}
	a := &AsyncLogger{
		next:         next,
		events:       make(chan queuedEvent, bufferSize),
		logger:       logger,
		metrics:      metrics,
		writeTimeout: defaultWriteTimeout,
		done:         make(chan struct{}),
	}
	go a.run()
	return a
}

// Log enqueues a copy of the event without blocking, so the sink never
// writes to a value the caller still holds.
// The request context is detached from cancellation so the write outlives the response.
func (a *AsyncLogger) Log(ctx context.Context, event *Event) error {
	a.mu.RLock()
	defer a.mu.RUnlock()

	if a.closed {
		return ErrClosed
	}

	queued := *event
	select {
	case a.events <- queuedEvent{ctx: context.WithoutCancel(ctx), event: &queued}:
		if a.metrics != nil {
			a.metrics.AuditEventsTotal.WithLabelValues(event.Level.String()).Inc()
		}
	default:
		if a.metrics != nil {
			a.metrics.AuditEventsDropped.Inc()
		}
		a.logger.WithField("message", event.Message).Warn("audit buffer full, event dropped")
	}
	return nil
}

func (a *AsyncLogger) run() {
	defer close(a.done)
	for q := range a.events {
		a.write(q)
	}
}

func (a *AsyncLogger) write(q queuedEvent) {
	defer observability.RecoverPanic(a.logger, "audit writer")

	ctx, cancel := context.WithTimeout(q.ctx, a.writeTimeout)
	defer cancel()

	if err := a.next.Log(ctx, q.event); err != nil {
		a.logger.WithError(err).
			WithField("level", q.event.Level.String()).
			Error("failed to write audit event")
	}
}

// Close stops accepting events, drains the buffer and closes the wrapped logger
func (a *AsyncLogger) Close() error {
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return nil
	}
	a.closed = true
	close(a.events)
	a.mu.Unlock()

	<-a.done
	return a.next.Close()
}
