// Package logging provides subtitlegen's structured logging setup: a
// slog.Logger backed by either a colorized console handler or a JSON
// handler, plus helpers for attaching job/stage/segment context to log
// lines.
package logging
