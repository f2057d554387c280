package audit

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// DBLogger writes events to the event_log table
type DBLogger struct {
	db *sql.DB
}

// NewDBLogger creates a new database-backed event logger
func NewDBLogger(db *sql.DB) (*DBLogger, error) {
	if db == nil {
		return nil, fmt.Errorf("database connection is required")
	}
	return &DBLogger{db: db}, nil
}

// Log inserts the event and stores the generated id on it
func (l *DBLogger) Log(ctx context.Context, event *Event) error {
	return insertEvent(ctx, l.db, event)
}

func insertEvent(ctx context.Context, db *sql.DB, event *Event) error {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}

	query := `
		INSERT INTO event_log (level_id, event_category_id, message, user_id, created_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`

	err := db.QueryRowContext(ctx, query,
		int(event.Level), int(event.Category), event.Message, event.UserID, event.Timestamp,
	).Scan(&event.ID)
	if err != nil {
		return fmt.Errorf("failed to insert event log: %w", err)
	}

	return nil
}

// Purge deletes events recorded before cutoff and reports how many were removed
func (l *DBLogger) Purge(ctx context.Context, cutoff time.Time) (int64, error) {
	result, err := l.db.ExecContext(ctx, `DELETE FROM event_log WHERE created_at < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to purge event log: %w", err)
	}
	return result.RowsAffected()
}

// Close is a no-op; the database handle is owned by the caller
func (l *DBLogger) Close() error {
	return nil
}
