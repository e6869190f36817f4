package logging

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/Graylog2/go-gelf/gelf"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSyslogLevel(t *testing.T) {
	assert.Equal(t, int32(7), syslogLevel(slog.LevelDebug))
	assert.Equal(t, int32(6), syslogLevel(slog.LevelInfo))
	assert.Equal(t, int32(4), syslogLevel(slog.LevelWarn))
	assert.Equal(t, int32(3), syslogLevel(slog.LevelError))
}

func TestAddExtra(t *testing.T) {
	extra := map[string]any{}
	addExtra(extra, "", slog.String("map", "cp_badlands"))
	addExtra(extra, "", slog.Int("tick", 12))
	addExtra(extra, "job.", slog.Bool("done", true))
	addExtra(extra, "", slog.Group("player", slog.Uint64("steamid", 76561198000000001), slog.Float64("health", 0.5)))
	addExtra(extra, "", slog.Duration("took", time.Second))

	assert.Equal(t, map[string]any{
		"_map":            "cp_badlands",
		"_tick":           int64(12),
		"_job.done":       true,
		"_player.steamid": uint64(76561198000000001),
		"_player.health":  0.5,
		"_took":           "1s",
	}, extra)
}

func TestGelfHandler_SendsMessage(t *testing.T) {
	r, err := gelf.NewReader("127.0.0.1:0")
	require.NoError(t, err)

	h, err := NewGelfHandler(r.Addr(), "tickstate", slog.LevelInfo)
	require.NoError(t, err)
	defer h.Close()

	assert.False(t, h.Enabled(context.Background(), slog.LevelDebug))
	assert.True(t, h.Enabled(context.Background(), slog.LevelWarn))

	logger := slog.New(h).With("demo", "final.dem").WithGroup("tick")
	logger.Warn("Dropping snapshot", "number", 99)

	msg, err := r.ReadMessage()
	require.NoError(t, err)
	assert.Equal(t, "Dropping snapshot", msg.Short)
	assert.Equal(t, int32(4), msg.Level)
	assert.Equal(t, "final.dem", msg.Extra["_demo"])
	assert.Contains(t, msg.Extra, "_tick.number")
}

func TestGelfHandler_WithGroupEmpty(t *testing.T) {
	h := &GelfHandler{level: slog.LevelInfo}
	assert.Same(t, h, h.WithGroup(""))
}
