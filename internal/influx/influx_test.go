package influx

import (
	"bufio"
	"compress/gzip"
	"context"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/demolens/tickstate/internal/config"
	"github.com/demolens/tickstate/internal/storage"
	"github.com/demolens/tickstate/pkg/core"
	influxdb2_write "github.com/influxdata/influxdb-client-go/v2/api/write"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var _ storage.Backend = (*Backend)(nil)

// unreachable points at a closed port so Connect falls back to the backup file
func unreachable() config.InfluxConfig {
	return config.InfluxConfig{
		Enabled:  true,
		Host:     "127.0.0.1",
		Port:     "1",
		Protocol: "http",
		Org:      "tickstate",
		Bucket:   "ticks",
	}
}

func readBackup(t *testing.T, path string) []string {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	zr, err := gzip.NewReader(f)
	require.NoError(t, err)
	defer zr.Close()

	var lines []string
	sc := bufio.NewScanner(zr)
	for sc.Scan() {
		lines = append(lines, sc.Text())
	}
	require.NoError(t, sc.Err())
	return lines
}

func TestServerURL(t *testing.T) {
	assert.Equal(t, "https://influx.local:8086", ServerURL(config.InfluxConfig{Protocol: "https", Host: "influx.local", Port: "8086"}))
}

func TestConnect_Disabled(t *testing.T) {
	c := NewConn(zerolog.Nop(), filepath.Join(t.TempDir(), "backup.lp.gz"))
	assert.Error(t, c.Connect(context.Background(), config.InfluxConfig{}))
	assert.False(t, c.Online())
	assert.NoError(t, c.Close())
}

func TestWritePoint_NoWriter(t *testing.T) {
	c := NewConn(zerolog.Nop(), "")
	err := c.WritePoint("ticks", influxdb2_write.NewPointWithMeasurement("tick"))
	assert.ErrorIs(t, err, errNotConnected)
}

func TestTickPoint(t *testing.T) {
	header := &core.DemoHeader{MapName: "cp_snakewater_final1", Filename: "match.dem"}
	snap := &core.Snapshot{
		Tick: 500,
		Players: []core.Player{
			{Entity: 1, Team: core.TeamRed, State: core.LifeAlive},
			{Entity: 2, Team: core.TeamRed, State: core.LifeDeath},
			{Entity: 3, Team: core.TeamBlue, State: core.LifeAlive},
			{Entity: 4, Team: core.TeamSpectator, State: core.LifeAlive},
		},
		Projectiles: map[core.EntityID]core.Projectile{70: {Entity: 70}},
		Kills:       []core.Kill{{Tick: 500}},
	}
	ts := time.Unix(1700000000, 0)

	line := influxdb2_write.PointToLineProtocol(TickPoint(header, snap, ts), time.Nanosecond)

	assert.True(t, strings.HasPrefix(line, "tick,demo=match.dem,map=cp_snakewater_final1 "), line)
	for _, field := range []string{
		"tick=500u",
		"players=4i",
		"players_alive=3i",
		"red_alive=1i",
		"blue_alive=1i",
		"projectiles=1i",
		"kills=1i",
		"ubercharges=0i",
	} {
		assert.Contains(t, line, field)
	}
	assert.True(t, strings.HasSuffix(line, " 1700000000000000000\n"))
}

func TestBackend_WritesBackupFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ticks.lp.gz")
	b := New(unreachable(), path, zerolog.Nop())
	require.NoError(t, b.Init())
	assert.False(t, b.Conn().Online())

	start := time.Date(2026, 3, 1, 20, 0, 0, 0, time.UTC)
	require.NoError(t, b.StartDemo(&core.DemoHeader{MapName: "koth_clearcut_b15d", Filename: "a.dem", Ticks: 200, StartTime: start}))
	for tick := core.Tick(1); tick <= 3; tick++ {
		require.NoError(t, b.RecordSnapshot(&core.Snapshot{Tick: tick}))
	}
	require.NoError(t, b.EndDemo([]core.Round{{Start: 1, End: 100, Winner: core.TeamBlue}}, &core.DrawInfo{MaxPlayers: 18}))
	require.NoError(t, b.Close())

	lines := readBackup(t, path)
	require.Len(t, lines, 5)
	assert.True(t, strings.HasPrefix(lines[0], "tick,"))
	assert.True(t, strings.HasSuffix(lines[0], " "+strconv.FormatInt(start.Add(15*time.Millisecond).UnixNano(), 10)))
	assert.True(t, strings.HasPrefix(lines[3], "round,"))
	assert.Contains(t, lines[3], "winner=blue")
	assert.True(t, strings.HasPrefix(lines[4], "demo,"))
	assert.Contains(t, lines[4], "max_players=18u")
}
