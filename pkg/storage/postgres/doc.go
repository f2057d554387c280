// Package postgres provides the SQL and Redis backed stores behind the SWIM API.
//
// # Databases
//
// Three logical databases are used: auth (users and the signing secret in
// hush), log (event_log, execution_log and their lookup tables) and scenario
// (public_scenarios and private_scenarios as JSONB documents). A
// ConnectionManager opens one pool per distinct URL, so all three may point at
// the same server:
//
//	cm := postgres.NewConnectionManager(postgres.ConnectionConfig{Driver: "pgx", MaxConns: 25})
//	authDB, err := cm.Connect(ctx, "auth", cfg.AuthDatabaseURL)
//
// The postgres, pgx and sqlite3 drivers are registered. SQLite is meant for
// local development; it hosts the auth and log schemas but not the JSONB
// scenario tables.
//
// # Migrations
//
// RunMigrations applies the goose migrations embedded for the driver's dialect:
//
//	if err := postgres.RunMigrations(ctx, authDB, cm.Driver()); err != nil {
//		return err
//	}
//
// # Stores
//
//   - CredentialStore implements auth.CredentialStore over users
//   - SecretSource reads the token signing secret from hush
//   - ScenarioStore implements scenarios.Store with JSONB operators
//   - ScenarioCache keeps public scenario listings in Redis
//
// Store errors are translated to the sentinel errors of the auth and
// scenarios packages so callers never inspect driver errors.
package postgres
