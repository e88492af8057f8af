// Package logging builds the shared slog loggers used across crosspost.
//
// Two output formats are supported: a compact console format intended for
// interactive use and cron mail, and structured JSON for log shippers. The
// package also defines the standardized attribute keys components use so log
// lines stay greppable across the pipeline.
package logging
