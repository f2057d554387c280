// Package audit records the append-only event log used by the credential
// controller, the access layer and the logger endpoints.
//
// # Events
//
// An Event carries a severity Level, a Category, a message and an optional
// acting user id. Level and category ids match the rows seeded in the level
// and event_category tables:
//
//	Levels:     1 trace, 2 debug, 3 info, 4 warning, 5 error
//	Categories: 1 auth, 2 data, 3 server, 4 client, 5 external
//
// # Loggers
//
// DBLogger inserts into event_log. LogrusLogger mirrors events into the
// structured application log. MultiLogger fans out to several loggers and
// AsyncLogger decouples callers from the sinks with a bounded buffer:
//
//	dbLogger, _ := audit.NewDBLogger(db)
//	sink := audit.NewMultiLogger(dbLogger, audit.NewLogrusLogger(logger))
//	auditLogger := audit.NewAsyncLogger(sink, 1024, logger, metrics)
//	defer auditLogger.Close()
//
//	auditLogger.Log(ctx, audit.NewEvent(audit.LevelWarning, audit.CategoryAuth,
//		"user not found: a@b.org", nil))
//
// Events are dropped, never blocked on, when the buffer is full. Close drains
// whatever is already queued.
//
// # Execution log
//
// Store manages the lookup tables and the execution_log rows that track model
// runs. Run times arrive in the dotted RunTimeLayout and are parsed as UTC.
//
// # Retention
//
// Retention purges events older than a configured number of days on a cron
// schedule.
package audit
