/*
Package log provides structured logging for Paddock using zerolog.

The log package wraps the zerolog library to provide JSON-structured
logging with component-specific loggers, configurable log levels, and
helper functions for common logging patterns. All logs include
timestamps and support filtering by severity for production debugging.

# Usage

Initialize once at startup:

	log.Init(log.Config{
		Level:      log.InfoLevel,
		JSONOutput: true,
	})

Component loggers carry a component field on every line:

	logger := log.WithComponent("ledger")
	logger.Info().
		Str("domain_id", domainID).
		Str("server_id", serverID).
		Msg("domain assigned")

Entity-scoped helpers (WithServer, WithDomain, WithActor) exist for
call sites that log repeatedly about one record.

Console output (JSONOutput: false) renders human-readable lines with
RFC3339 timestamps for local development; JSON output is for shipping
to log collectors.
*/
package log
