// Package logging assembles structured slog loggers and formatting helpers used
// across cgex.
//
// It owns the console/JSON handlers, the per-run JSON log file, retention of
// old run logs, and context-aware helpers so stage code automatically tags log
// lines with run ids, jobs, stages, and asset names. The package also provides
// a no-op logger for tests and wiring code that cannot fail.
package logging
