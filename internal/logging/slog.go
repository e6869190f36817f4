package logging

import (
	"context"
	"io"
	"log/slog"
	"os"
	"time"

	"go.opentelemetry.io/contrib/bridges/otelslog"
	sdklog "go.opentelemetry.io/otel/sdk/log"
)

// swapped in tests
var (
	osStdout = os.Stdout
	osPipe   = os.Pipe
)

// SlogManager owns the process logger. Records are written as text to the
// session log file, or to stdout without one, and copied to the OTel bridge
// and any extra handlers.
type SlogManager struct {
	logger *slog.Logger
	logs   *sdklog.LoggerProvider
	pos    *Position
}

func NewSlogManager() *SlogManager {
	return &SlogManager{}
}

// Level parses a level name such as "debug" or "WARN". Unknown names give
// info.
func Level(name string) slog.Level {
	var l slog.Level
	if err := l.UnmarshalText([]byte(name)); err != nil {
		return slog.LevelInfo
	}
	return l
}

// SetPosition tags every record with the stream position of the running
// job. It takes effect on the next Setup.
func (m *SlogManager) SetPosition(p *Position) {
	m.pos = p
}

// Setup replaces the logger. A nil file means stdout; a nil provider skips
// the OTel bridge.
func (m *SlogManager) Setup(file io.Writer, level string, provider *sdklog.LoggerProvider, extra ...slog.Handler) {
	if file == nil {
		file = osStdout
	}
	m.logs = provider

	sinks := []slog.Handler{textHandler(file, Level(level))}
	if provider != nil {
		sinks = append(sinks, otelslog.NewHandler("tickstate", otelslog.WithLoggerProvider(provider)))
	}
	sinks = append(sinks, extra...)

	m.logger = slog.New(newFanout(m.pos, sinks...))
	m.logger.Info("Logging initialized", "level", level)
}

func textHandler(w io.Writer, level slog.Level) slog.Handler {
	return slog.NewTextHandler(w, &slog.HandlerOptions{Level: level, ReplaceAttr: utcTime})
}

// utcTime writes record times as RFC3339 in UTC.
func utcTime(_ []string, a slog.Attr) slog.Attr {
	if a.Key != slog.TimeKey {
		return a
	}
	if t, ok := a.Value.Any().(time.Time); ok {
		a.Value = slog.StringValue(t.UTC().Format(time.RFC3339))
	}
	return a
}

// Logger returns the configured logger, or slog.Default before Setup.
func (m *SlogManager) Logger() *slog.Logger {
	if m.logger == nil {
		return slog.Default()
	}
	return m.logger
}

// Flush exports the OTel records still pending.
func (m *SlogManager) Flush(ctx context.Context) error {
	if m.logs == nil {
		return nil
	}
	return m.logs.ForceFlush(ctx)
}
