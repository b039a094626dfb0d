package cli

import (
	"context"
	"io"
	"time"

	"github.com/charmbracelet/log"
)

// newLogger creates the CLI logger. Timestamps read "HH:MM:SS.ms".
func newLogger(w io.Writer, level log.Level) *log.Logger {
	return log.NewWithOptions(w, log.Options{
		ReportTimestamp: true,
		TimeFormat:      "15:04:05.00",
		Level:           level,
	})
}

// logLevel maps the --verbose flag to a level. Verbose output includes the
// per-unit resolution and cache lines the pipeline logs at debug.
func logLevel(verbose bool) log.Level {
	if verbose {
		return LogDebug
	}
	return LogInfo
}

// progress times one command over a batch of units.
type progress struct {
	logger *log.Logger
	verb   string
	start  time.Time
}

func newProgress(l *log.Logger, verb string) *progress {
	return &progress{logger: l, verb: verb, start: time.Now()}
}

// done logs the unit totals with the elapsed time, e.g.
// "Packaged 12 unit(s) (1.234s)". Failures raise the line to a warning.
func (p *progress) done(units, failed int64) {
	elapsed := time.Since(p.start).Round(time.Millisecond)
	if failed > 0 {
		p.logger.Warnf("%s %d unit(s), %d failed (%s)", p.verb, units, failed, elapsed)
		return
	}
	p.logger.Infof("%s %d unit(s) (%s)", p.verb, units, elapsed)
}

type ctxKey int

const loggerKey ctxKey = 0

func withLogger(ctx context.Context, l *log.Logger) context.Context {
	return context.WithValue(ctx, loggerKey, l)
}

// loggerFromContext returns the command logger attached by the root
// command. Commands invoked without it, as in tests calling run* directly,
// get a logger that discards everything.
func loggerFromContext(ctx context.Context) *log.Logger {
	if l, ok := ctx.Value(loggerKey).(*log.Logger); ok {
		return l
	}
	return log.New(io.Discard)
}
