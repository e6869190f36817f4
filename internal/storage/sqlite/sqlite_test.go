package sqlitestorage

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/demolens/tickstate/internal/config"
	"github.com/demolens/tickstate/internal/database"
	"github.com/demolens/tickstate/internal/model"
	"github.com/demolens/tickstate/internal/storage"
	"github.com/demolens/tickstate/pkg/core"
	"github.com/golang/geo/r3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Compile-time interface check
var _ storage.Backend = (*Backend)(nil)

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func snapshot(tick core.Tick) *core.Snapshot {
	return &core.Snapshot{
		Tick: tick,
		Players: []core.Player{
			{Entity: 2, Position: r3.Vector{X: 1, Y: 2, Z: 3}, Class: core.ClassScout, Team: core.TeamBlue},
		},
		Projectiles: map[core.EntityID]core.Projectile{
			60: {Entity: 60, Kind: core.ProjectileGrenadePipe, Position: r3.Vector{X: float64(tick)}},
		},
		Kills: []core.Kill{{Tick: tick, DeadID: 3, AttackerID: 2, Weapon: "scattergun"}},
	}
}

func TestNew_SeparateDatabases(t *testing.T) {
	a, err := New(config.SQLiteConfig{}, discard())
	require.NoError(t, err)
	b, err := New(config.SQLiteConfig{}, discard())
	require.NoError(t, err)

	require.NoError(t, a.Init())
	defer func() { require.NoError(t, a.Close()) }()
	require.NoError(t, a.StartDemo(&core.DemoHeader{MapName: "cp_metalworks"}))

	require.NoError(t, b.Init())
	defer func() { require.NoError(t, b.Close()) }()

	var count int64
	require.NoError(t, b.db.Model(&model.Demo{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestClose_BeforeInit(t *testing.T) {
	b, err := New(config.SQLiteConfig{}, discard())
	require.NoError(t, err)
	assert.NoError(t, b.Close())
	assert.NoError(t, b.Close())
}

func TestEndDemo_DumpsToDisk(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tickstate.db")
	b, err := New(config.SQLiteConfig{DumpPath: path}, discard())
	require.NoError(t, err)
	require.NoError(t, b.Init())
	defer func() { require.NoError(t, b.Close()) }()

	assert.False(t, b.db.Migrator().HasTable(&model.ProjectileTrail{}), "no geometry trails in SQLite")

	require.NoError(t, b.StartDemo(&core.DemoHeader{MapName: "cp_reckoner_rc6"}))
	for tick := core.Tick(1); tick <= 3; tick++ {
		require.NoError(t, b.RecordSnapshot(snapshot(tick)))
	}
	require.NoError(t, b.EndDemo([]core.Round{{Start: 1, End: 3, Winner: core.TeamBlue}}, &core.DrawInfo{MaxPlayers: 1}))

	_, err = os.Stat(path)
	require.NoError(t, err)

	disk, err := database.OpenSQLite(path)
	require.NoError(t, err)
	sqlDB, err := disk.DB()
	require.NoError(t, err)
	defer sqlDB.Close()

	var players, kills, rounds int64
	require.NoError(t, disk.Model(&model.PlayerState{}).Count(&players).Error)
	require.NoError(t, disk.Model(&model.KillEvent{}).Count(&kills).Error)
	require.NoError(t, disk.Model(&model.Round{}).Count(&rounds).Error)
	assert.Equal(t, int64(3), players)
	assert.Equal(t, int64(3), kills)
	assert.Equal(t, int64(1), rounds)
}

func TestDumpLoop(t *testing.T) {
	path := filepath.Join(t.TempDir(), "periodic.db")
	b, err := New(config.SQLiteConfig{DumpPath: path, DumpInterval: 20 * time.Millisecond}, discard())
	require.NoError(t, err)
	require.NoError(t, b.Init())
	defer func() { require.NoError(t, b.Close()) }()

	require.Eventually(t, func() bool {
		_, err := os.Stat(path)
		return err == nil
	}, 5*time.Second, 10*time.Millisecond)
}
