package logging

import (
	"time"

	"github.com/demolens/tickstate/pkg/core"
	"github.com/rs/zerolog"
)

// KeyValueLogger gives a zerolog.Logger the slog style Debug/Info/Error
// methods that take alternating keys and values.
type KeyValueLogger struct {
	logger zerolog.Logger
}

func NewKeyValueLogger(logger zerolog.Logger) *KeyValueLogger {
	return &KeyValueLogger{logger: logger}
}

func (l *KeyValueLogger) Debug(msg string, keysAndValues ...any) {
	withFields(l.logger.Debug(), keysAndValues).Msg(msg)
}

func (l *KeyValueLogger) Info(msg string, keysAndValues ...any) {
	withFields(l.logger.Info(), keysAndValues).Msg(msg)
}

func (l *KeyValueLogger) Error(msg string, keysAndValues ...any) {
	withFields(l.logger.Error(), keysAndValues).Msg(msg)
}

// withFields adds typed fields for the kinds the pipeline logs most. Pairs
// with a non string key and a trailing key without value are skipped.
func withFields(e *zerolog.Event, keysAndValues []any) *zerolog.Event {
	if e == nil {
		return nil
	}
	for i := 0; i+1 < len(keysAndValues); i += 2 {
		key, ok := keysAndValues[i].(string)
		if !ok {
			continue
		}
		switch v := keysAndValues[i+1].(type) {
		case error:
			e = e.AnErr(key, v)
		case string:
			e = e.Str(key, v)
		case time.Duration:
			e = e.Dur(key, v)
		case core.Tick:
			e = e.Uint32(key, uint32(v))
		case core.EntityID:
			e = e.Uint32(key, uint32(v))
		case int:
			e = e.Int(key, v)
		default:
			e = e.Interface(key, v)
		}
	}
	return e
}
