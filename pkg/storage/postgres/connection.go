package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // pgx driver
	_ "github.com/lib/pq"              // PostgreSQL driver
	_ "github.com/mattn/go-sqlite3"    // SQLite driver for local development
)

// Supported database/sql driver names
const (
	DriverPostgres = "postgres"
	DriverPgx      = "pgx"
	DriverSQLite   = "sqlite3"
)

// ConnectionConfig holds database connection configuration
type ConnectionConfig struct {
	Driver      string
	MaxConns    int
	MinConns    int
	Timeout     time.Duration
	MaxLifetime time.Duration
	MaxIdleTime time.Duration
}

// Open opens and pings a connection pool for url
func Open(ctx context.Context, config ConnectionConfig, url string) (*sql.DB, error) {
	driver := config.Driver
	if driver == "" {
		driver = DriverPostgres
	}

	db, err := sql.Open(driver, url)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s connection: %w", driver, err)
	}

	if config.MaxConns > 0 {
		db.SetMaxOpenConns(config.MaxConns)
	}
	if config.MinConns > 0 {
		db.SetMaxIdleConns(config.MinConns)
	}
	db.SetConnMaxLifetime(config.MaxLifetime)
	db.SetConnMaxIdleTime(config.MaxIdleTime)

	// every connection to an in-memory sqlite database sees its own empty
	// database, so pin a single connection that is never recycled
	if driver == DriverSQLite && strings.Contains(url, ":memory:") {
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
		db.SetConnMaxLifetime(0)
		db.SetConnMaxIdleTime(0)
	}

	timeout := config.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	pingCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping %s: %w", driver, err)
	}

	return db, nil
}

// ConnectionManager hands out named connection pools. Names configured with the
// same URL share one pool, so a single database can serve the credential, log
// and scenario stores.
type ConnectionManager struct {
	mu     sync.RWMutex
	config ConnectionConfig
	byName map[string]*sql.DB
	byURL  map[string]*sql.DB
	open   func(ctx context.Context, config ConnectionConfig, url string) (*sql.DB, error)
}

// NewConnectionManager creates a connection manager; pools are opened by Connect
func NewConnectionManager(config ConnectionConfig) *ConnectionManager {
	return &ConnectionManager{
		config: config,
		byName: make(map[string]*sql.DB),
		byURL:  make(map[string]*sql.DB),
		open:   Open,
	}
}

// Driver returns the configured driver name
func (cm *ConnectionManager) Driver() string {
	if cm.config.Driver == "" {
		return DriverPostgres
	}
	return cm.config.Driver
}

// Connect opens url under name, reusing an existing pool for the same url
func (cm *ConnectionManager) Connect(ctx context.Context, name, url string) (*sql.DB, error) {
	if url == "" {
		return nil, fmt.Errorf("database url for %s is required", name)
	}

	cm.mu.Lock()
	defer cm.mu.Unlock()

	if db, ok := cm.byName[name]; ok {
		return db, nil
	}
	if db, ok := cm.byURL[url]; ok {
		cm.byName[name] = db
		return db, nil
	}

	db, err := cm.open(ctx, cm.config, url)
	if err != nil {
		return nil, fmt.Errorf("%s database: %w", name, err)
	}
	cm.byName[name] = db
	cm.byURL[url] = db
	return db, nil
}

// Get returns the pool registered under name, or nil
func (cm *ConnectionManager) Get(name string) *sql.DB {
	cm.mu.RLock()
	defer cm.mu.RUnlock()
	return cm.byName[name]
}

// Databases returns the registered pools by name
func (cm *ConnectionManager) Databases() map[string]*sql.DB {
	cm.mu.RLock()
	defer cm.mu.RUnlock()

	out := make(map[string]*sql.DB, len(cm.byName))
	for name, db := range cm.byName {
		out[name] = db
	}
	return out
}

// HealthCheck pings every distinct pool
func (cm *ConnectionManager) HealthCheck(ctx context.Context) error {
	var unhealthy []string
	for _, name := range cm.names() {
		if err := cm.Get(name).PingContext(ctx); err != nil {
			unhealthy = append(unhealthy, name)
		}
	}
	if len(unhealthy) > 0 {
		return fmt.Errorf("unhealthy databases: %s", strings.Join(unhealthy, ", "))
	}
	return nil
}

// Stats returns pool statistics by name
func (cm *ConnectionManager) Stats() map[string]sql.DBStats {
	stats := make(map[string]sql.DBStats)
	for name, db := range cm.Databases() {
		stats[name] = db.Stats()
	}
	return stats
}

// Close closes every distinct pool
func (cm *ConnectionManager) Close() error {
	cm.mu.Lock()
	pools := cm.byURL
	cm.byURL = make(map[string]*sql.DB)
	cm.byName = make(map[string]*sql.DB)
	cm.mu.Unlock()

	var errs []error
	for url, db := range pools {
		if err := db.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close %s: %w", redactURL(url), err))
		}
	}
	return errors.Join(errs...)
}

func (cm *ConnectionManager) names() []string {
	cm.mu.RLock()
	defer cm.mu.RUnlock()

	seen := make(map[*sql.DB]bool)
	var names []string
	for name, db := range cm.byName {
		if seen[db] {
			continue
		}
		seen[db] = true
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// redactURL drops credentials from a connection url for error messages
func redactURL(url string) string {
	at := strings.LastIndex(url, "@")
	scheme := strings.Index(url, "://")
	if at < 0 || scheme < 0 || at < scheme {
		return url
	}
	return url[:scheme+3] + "***" + url[at:]
}
