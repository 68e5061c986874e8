/*
Package log provides structured logging built on zerolog.

A single global logger is configured once at startup via Init and consumed
through small helpers or component-scoped child loggers:

	log.Init(log.Config{Level: log.InfoLevel, JSONOutput: true})

	logger := log.WithComponent("ingest")
	logger.Warn().Int("line", n).Msg("skipping malformed record")

Console output (the default) is human-readable; --log-json switches to
line-delimited JSON for machine consumption. All logging goes to stderr so
that views writing to stdout are never corrupted.
*/
package log
