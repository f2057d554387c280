package observability

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"time"

	"github.com/go-redis/redis/v8"
)

// HealthChecker reports liveness and readiness of the service dependencies
type HealthChecker struct {
	databases map[string]*sql.DB
	redis     *redis.Client
	version   string
}

// NewHealthChecker creates a new health checker. Nil databases are skipped.
func NewHealthChecker(databases map[string]*sql.DB, redis *redis.Client, version string) *HealthChecker {
	dbs := make(map[string]*sql.DB, len(databases))
	for name, db := range databases {
		if db != nil {
			dbs[name] = db
		}
	}
	return &HealthChecker{
		databases: dbs,
		redis:     redis,
		version:   version,
	}
}

// HealthStatus represents the overall health status
type HealthStatus struct {
	Status       string                      `json:"status"`
	Timestamp    time.Time                   `json:"timestamp"`
	Version      string                      `json:"version,omitempty"`
	Dependencies map[string]DependencyStatus `json:"dependencies,omitempty"`
}

// DependencyStatus represents the health of a single dependency
type DependencyStatus struct {
	Status    string        `json:"status"`
	Message   string        `json:"message,omitempty"`
	Latency   time.Duration `json:"latency_ms,omitempty"`
	Timestamp time.Time     `json:"timestamp"`
}

const (
	StatusHealthy   = "healthy"
	StatusDegraded  = "degraded"
	StatusUnhealthy = "unhealthy"
)

// Liveness always answers 200 while the process is serving
func (h *HealthChecker) Liveness(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"status":    StatusHealthy,
		"timestamp": time.Now(),
	})
}

// Readiness checks every dependency and answers 503 when unhealthy
func (h *HealthChecker) Readiness(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	status := h.Check(ctx)

	w.Header().Set("Content-Type", "application/json")
	if status.Status == StatusUnhealthy {
		w.WriteHeader(http.StatusServiceUnavailable)
	} else {
		w.WriteHeader(http.StatusOK)
	}
	json.NewEncoder(w).Encode(status)
}

// Check performs a health check of all dependencies.
// A failing database makes the service unhealthy; a failing Redis only degrades it.
func (h *HealthChecker) Check(ctx context.Context) HealthStatus {
	status := HealthStatus{
		Status:       StatusHealthy,
		Timestamp:    time.Now(),
		Version:      h.version,
		Dependencies: make(map[string]DependencyStatus),
	}

	names := make([]string, 0, len(h.databases))
	for name := range h.databases {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		dbStatus := checkDatabase(ctx, h.databases[name])
		status.Dependencies["database:"+name] = dbStatus
		switch dbStatus.Status {
		case StatusUnhealthy:
			status.Status = StatusUnhealthy
		case StatusDegraded:
			if status.Status != StatusUnhealthy {
				status.Status = StatusDegraded
			}
		}
	}

	if h.redis != nil {
		redisStatus := h.checkRedis(ctx)
		status.Dependencies["redis"] = redisStatus
		if redisStatus.Status == StatusUnhealthy && status.Status != StatusUnhealthy {
			status.Status = StatusDegraded
		}
	}

	return status
}

// timedCheck runs check and converts its error into a dependency status
func timedCheck(check func() (string, error)) DependencyStatus {
	start := time.Now()
	degraded, err := check()

	status := DependencyStatus{Status: StatusHealthy, Latency: time.Since(start), Timestamp: start}
	switch {
	case err != nil:
		status.Status = StatusUnhealthy
		status.Message = err.Error()
	case degraded != "":
		status.Status = StatusDegraded
		status.Message = degraded
	}
	return status
}

func checkDatabase(ctx context.Context, db *sql.DB) DependencyStatus {
	return timedCheck(func() (string, error) {
		if err := db.PingContext(ctx); err != nil {
			return "", err
		}
		var one int
		if err := db.QueryRowContext(ctx, "SELECT 1").Scan(&one); err != nil {
			return "", fmt.Errorf("query failed: %w", err)
		}
		if stats := db.Stats(); stats.MaxOpenConnections > 0 && stats.InUse >= stats.MaxOpenConnections {
			return "connection pool exhausted", nil
		}
		return "", nil
	})
}

func (h *HealthChecker) checkRedis(ctx context.Context) DependencyStatus {
	return timedCheck(func() (string, error) {
		return "", h.redis.Ping(ctx).Err()
	})
}
