package audit

import (
	"fmt"
	"time"
)

// Level is the severity of an event, matching the ids seeded in the level table
type Level int

const (
	LevelTrace   Level = 1
	LevelDebug   Level = 2
	LevelInfo    Level = 3
	LevelWarning Level = 4
	LevelError   Level = 5
)

func (l Level) String() string {
	switch l {
	case LevelTrace:
		return "trace"
	case LevelDebug:
		return "debug"
	case LevelInfo:
		return "info"
	case LevelWarning:
		return "warning"
	case LevelError:
		return "error"
	default:
		return fmt.Sprintf("level(%d)", int(l))
	}
}

// Category groups events by subsystem, matching the ids seeded in event_category
type Category int

const (
	CategoryAuth     Category = 1
	CategoryData     Category = 2
	CategoryServer   Category = 3
	CategoryClient   Category = 4
	CategoryExternal Category = 5
)

func (c Category) String() string {
	switch c {
	case CategoryAuth:
		return "auth"
	case CategoryData:
		return "data"
	case CategoryServer:
		return "server"
	case CategoryClient:
		return "client"
	case CategoryExternal:
		return "external"
	default:
		return fmt.Sprintf("category(%d)", int(c))
	}
}

// Event is one append-only record of the event log
type Event struct {
	ID        int64     `json:"id,omitempty"`
	Level     Level     `json:"level_id"`
	Category  Category  `json:"event_category_id"`
	Message   string    `json:"message"`
	UserID    *int64    `json:"user_id"`
	Timestamp time.Time `json:"timestamp"`
}

// NewEvent builds an event stamped with the current UTC time
func NewEvent(level Level, category Category, message string, userID *int64) *Event {
	return &Event{
		Level:     level,
		Category:  category,
		Message:   message,
		UserID:    userID,
		Timestamp: time.Now().UTC(),
	}
}

// UserID returns a pointer to id for use as an event actor
func UserID(id int64) *int64 {
	return &id
}

// NamedEntry is a row of the level or event_category lookup tables
type NamedEntry struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// ExecutionLog tracks the lifecycle of one model run
type ExecutionLog struct {
	ID             int64      `json:"id,omitempty"`
	ModelID        int64      `json:"model_id"`
	UserScenarioID string     `json:"userscenario_id"`
	StartTime      *time.Time `json:"start_time,omitempty"`
	EndTime        *time.Time `json:"end_time,omitempty"`
	Status         string     `json:"status"`
	ErrorMsg       string     `json:"error_msg,omitempty"`
	ErrorTrace     string     `json:"error_trace,omitempty"`
	ErrorServiceID string     `json:"error_service_id,omitempty"`
}
