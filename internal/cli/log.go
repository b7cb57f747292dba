// Package cli implements the stridegraph command-line interface.
//
// The CLI reads a threat model configuration, a threat catalog and a
// directory of data-flow diagrams, then writes a Threat Dragon document
// plus optional report tables and Graphviz previews. The CLI is built
// using cobra and logs through charmbracelet/log.
//
// # Commands
//
// The main commands are:
//   - generate: Build the Threat Dragon document and optional reports/previews
//   - report: Print the report tables of every diagram
//   - preview: Render one diagram to SVG, PNG or DOT
//   - serve: Expose generation and previews over HTTP
//   - cache: Manage the preview cache
//
// # Configuration
//
// Input and output paths fall back to the CONFIG_PATH, THREAT_PATH,
// DIAGRAM_PATH and OUTPUT_PATH environment variables. A .env file in the
// working directory is loaded first.
//
// # Logging
//
// All commands support --verbose (-v) for debug-level logging. The HTTP
// server passes a request-scoped logger through context.Context.
package cli

import (
	"context"
	"io"
	"time"

	"github.com/charmbracelet/log"
)

// newLogger creates a new logger with timestamp formatting.
// Timestamps are formatted as "HH:MM:SS.ms" (e.g., "14:32:01.45").
func newLogger(w io.Writer, level log.Level) *log.Logger {
	return log.NewWithOptions(w, log.Options{
		ReportTimestamp: true,
		TimeFormat:      "15:04:05.00",
		Level:           level,
	})
}

// progress tracks the start time of an operation and logs completion with elapsed duration.
// It is safe for sequential use by a single goroutine.
type progress struct {
	logger *log.Logger
	start  time.Time
}

func newProgress(l *log.Logger) *progress {
	return &progress{logger: l, start: time.Now()}
}

// done logs msg along with the elapsed time, e.g. "Built 3 diagrams (12ms)".
func (p *progress) done(msg string) {
	p.logger.Infof("%s (%s)", msg, time.Since(p.start).Round(time.Millisecond))
}

type ctxKey int

const loggerKey ctxKey = 0

// withLogger returns a new context with the given logger attached.
func withLogger(ctx context.Context, l *log.Logger) context.Context {
	return context.WithValue(ctx, loggerKey, l)
}

// loggerFromContext retrieves the logger from ctx, or log.Default() when
// none is attached.
func loggerFromContext(ctx context.Context) *log.Logger {
	if l, ok := ctx.Value(loggerKey).(*log.Logger); ok {
		return l
	}
	return log.Default()
}
