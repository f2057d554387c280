// Package config provides application configuration management.
//
// # Overview
//
// Configuration starts from built-in defaults, is overlaid by an optional YAML
// file (SWIM_CONFIG_FILE) and finally by environment variables. A .env file
// (SWIM_ENV_FILE, default ".env") is loaded first when present.
//
// # Configuration Structure
//
// Server settings:
//
//	SWIM_HOST="0.0.0.0"
//	SWIM_PORT="8080"
//	SWIM_CORS_ORIGINS="*"
//	SWIM_CONTEXT="https://..."   # "@context" of scenario responses
//
// Auth settings:
//
//	SWIM_TOKEN_TTL="90m"
//	SWIM_BCRYPT_COST="10"
//	SWIM_ADMIN_EMAIL / SWIM_ADMIN_PASSWORD   # or AUSER / APASSWORD
//	SWIM_GUEST_EMAIL / SWIM_GUEST_PASSWORD   # or GUSER / GPASSWORD
//	SWIM_AUTH_ATTEMPT_LIMIT="20"
//	SWIM_AUTH_ATTEMPT_WINDOW="1m"
//
// Storage settings:
//
//	SWIM_DB_DRIVER="postgres"   # postgres, pgx, sqlite3
//	SWIM_AUTH_DATABASE_URL="postgres://..."
//	SWIM_LOG_DATABASE_URL, SWIM_SCENARIO_DATABASE_URL   # default to the auth database
//	SWIM_REDIS_URL="redis://localhost:6379/0"
//	SWIM_CACHE_TTL="5m"
//
// Audit settings:
//
//	SWIM_AUDIT_BUFFER_SIZE="256"
//	SWIM_AUDIT_RETENTION_DAYS="0"      # 0 keeps events forever
//	SWIM_AUDIT_RETENTION_SCHEDULE="@daily"
//
// Observability settings:
//
//	SWIM_LOG_LEVEL="info"
//	SWIM_LOG_FORMAT="json"
//	SWIM_OTEL_ENABLED="false"
//	SWIM_OTEL_ENDPOINT="localhost:4317"
//
// # Usage
//
//	cfg, err := config.LoadConfig()
//	if err != nil {
//		log.Fatal(err)
//	}
package config
