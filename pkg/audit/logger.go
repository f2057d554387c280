package audit

import (
	"context"
	"errors"
)

// ErrClosed is returned when logging to a logger that has been closed
var ErrClosed = errors.New("audit logger closed")

// Logger is the interface for the append-only event log
type Logger interface {
	// Log records an event
	Log(ctx context.Context, event *Event) error

	// Close flushes buffered events and releases resources
	Close() error
}

// NopLogger discards every event
type NopLogger struct{}

func (NopLogger) Log(ctx context.Context, event *Event) error { return nil }

func (NopLogger) Close() error { return nil }
