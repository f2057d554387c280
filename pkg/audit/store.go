package audit

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

// RunTimeLayout is the dotted layout clients use for run start and end times
const RunTimeLayout = "2006.1.2.15.4.5"

var (
	// ErrInvalidName is returned when a lookup entry name is empty
	ErrInvalidName = errors.New("name is required")

	// ErrExecutionNotFound is returned when a run status update matches no execution
	ErrExecutionNotFound = errors.New("execution not found")

	// ErrInvalidRunTime is returned when a run time does not match RunTimeLayout
	ErrInvalidRunTime = errors.New("invalid run time")
)

// Store manages the level and category lookup tables and the execution log
type Store struct {
	db *sql.DB
}

// NewStore creates a new audit store
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// CreateLevel adds a severity level and returns the stored row
func (s *Store) CreateLevel(ctx context.Context, name string) (*NamedEntry, error) {
	return s.createNamed(ctx, "level", name)
}

// CreateCategory adds an event category and returns the stored row
func (s *Store) CreateCategory(ctx context.Context, name string) (*NamedEntry, error) {
	return s.createNamed(ctx, "event_category", name)
}

func (s *Store) createNamed(ctx context.Context, table, name string) (*NamedEntry, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrInvalidName
	}

	entry := &NamedEntry{Name: name}
	query := fmt.Sprintf(`INSERT INTO %s (name) VALUES ($1) RETURNING id`, table)
	if err := s.db.QueryRowContext(ctx, query, name).Scan(&entry.ID); err != nil {
		return nil, fmt.Errorf("failed to insert %s: %w", table, err)
	}
	return entry, nil
}

// CreateEvent inserts a client-reported event and waits for the generated id
func (s *Store) CreateEvent(ctx context.Context, event *Event) error {
	return insertEvent(ctx, s.db, event)
}

// CreateExecution records the start of a model run
func (s *Store) CreateExecution(ctx context.Context, exec *ExecutionLog) error {
	query := `
		INSERT INTO execution_log (model_id, userscenario_id, status, start_time)
		VALUES ($1, $2, $3, $4)
		RETURNING id
	`
	err := s.db.QueryRowContext(ctx, query,
		exec.ModelID, exec.UserScenarioID, exec.Status, exec.StartTime,
	).Scan(&exec.ID)
	if err != nil {
		return fmt.Errorf("failed to insert execution log: %w", err)
	}
	return nil
}

// UpdateRunStatus updates the status, timing and error details of a run
// identified by its user scenario id
func (s *Store) UpdateRunStatus(ctx context.Context, exec *ExecutionLog) error {
	query := `
		UPDATE execution_log
		SET status = $1, start_time = COALESCE($2, start_time), end_time = COALESCE($3, end_time),
		    error_msg = $4, error_trace = $5, error_service_id = $6
		WHERE userscenario_id = $7
	`
	result, err := s.db.ExecContext(ctx, query,
		exec.Status, exec.StartTime, exec.EndTime,
		exec.ErrorMsg, exec.ErrorTrace, exec.ErrorServiceID,
		exec.UserScenarioID,
	)
	if err != nil {
		return fmt.Errorf("failed to update execution log: %w", err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to update execution log: %w", err)
	}
	if n == 0 {
		return ErrExecutionNotFound
	}
	return nil
}

// ParseRunTime parses a dotted run time such as 2021.3.14.15.9.26 as UTC.
// An empty string yields nil.
func ParseRunTime(value string) (*time.Time, error) {
	if value == "" {
		return nil, nil
	}
	t, err := time.ParseInLocation(RunTimeLayout, value, time.UTC)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", ErrInvalidRunTime, value)
	}
	return &t, nil
}
