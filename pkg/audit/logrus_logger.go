package audit

import (
	"context"

	"github.com/iLink-CyberShARE/swim-api/pkg/observability"
)

// LogrusLogger mirrors events into the structured application log
type LogrusLogger struct {
	logger *observability.Logger
}

// NewLogrusLogger creates a mirror logger
func NewLogrusLogger(logger *observability.Logger) *LogrusLogger {
	return &LogrusLogger{logger: logger.WithField("component", "audit")}
}

func (l *LogrusLogger) Log(ctx context.Context, event *Event) error {
	entry := observability.UpdateLoggerWithTraceContext(ctx, l.logger).WithFields(map[string]interface{}{
		"category": event.Category.String(),
		"level_id": int(event.Level),
	})
	if event.UserID != nil {
		entry = entry.WithField("user_id", *event.UserID)
	}

	switch event.Level {
	case LevelTrace, LevelDebug:
		entry.Debug(event.Message)
	case LevelInfo:
		entry.Info(event.Message)
	case LevelWarning:
		entry.Warn(event.Message)
	default:
		entry.Error(event.Message)
	}
	return nil
}

func (l *LogrusLogger) Close() error { return nil }
