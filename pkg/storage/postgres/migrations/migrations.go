// Package migrations embeds the schema for each supported SQL dialect.
package migrations

import "embed"

// FS holds one directory of goose migrations per dialect: postgres and sqlite3
//
//go:embed postgres/*.sql sqlite3/*.sql
var FS embed.FS
