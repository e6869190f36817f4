// Package postgres implements the storage.Backend interface using GORM/PostgreSQL
// with internal queues and a background DB writer goroutine.
package postgres

import (
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/demolens/tickstate/internal/config"
	"github.com/demolens/tickstate/internal/database"
	"github.com/demolens/tickstate/internal/model"
	"github.com/demolens/tickstate/internal/model/convert"
	"github.com/demolens/tickstate/internal/queue"
	"github.com/demolens/tickstate/pkg/core"
	"github.com/rs/zerolog"

	"gorm.io/gorm"
)

const defaultWriteInterval = 2 * time.Second

// Dependencies holds all dependencies for the GORM storage backend.
type Dependencies struct {
	DB       *gorm.DB // connected from Config on Init when nil
	Config   config.DBConfig
	Logger   *slog.Logger
	DBLogger zerolog.Logger // connection logger

	// Local selects the SQLite schema, which has no projectile trails.
	Local bool
	// FallbackDumpPath is where a local fallback DB is written on Close.
	FallbackDumpPath string
	WriteInterval    time.Duration
}

// queues holds all the write queues for batch DB insertion.
type queues struct {
	PlayerStates     *queue.Queue[model.PlayerState]
	BuildingStates   *queue.Queue[model.BuildingState]
	KillEvents       *queue.Queue[model.KillEvent]
	CaptureEvents    *queue.Queue[model.CaptureEvent]
	UberchargeEvents *queue.Queue[model.UberchargeEvent]
}

func newQueues() *queues {
	return &queues{
		PlayerStates:     queue.New[model.PlayerState](),
		BuildingStates:   queue.New[model.BuildingState](),
		KillEvents:       queue.New[model.KillEvent](),
		CaptureEvents:    queue.New[model.CaptureEvent](),
		UberchargeEvents: queue.New[model.UberchargeEvent](),
	}
}

func (q *queues) lengths() model.WriteQueueLengths {
	return model.WriteQueueLengths{
		PlayerStates:     uint32(q.PlayerStates.Len()),
		BuildingStates:   uint32(q.BuildingStates.Len()),
		KillEvents:       uint32(q.KillEvents.Len()),
		CaptureEvents:    uint32(q.CaptureEvents.Len()),
		UberchargeEvents: uint32(q.UberchargeEvents.Len()),
	}
}

// trail accumulates the positions of one projectile until the demo ends
type trail struct {
	projectile core.Projectile
	points     []convert.TrailPoint
}

// Backend implements storage.Backend using GORM/PostgreSQL with queue-based batch writes.
type Backend struct {
	deps   Dependencies
	queues *queues
	// fallback is set when Init fell back to in-memory SQLite
	fallback bool

	demoID    atomic.Uint64
	firstTick atomic.Uint32
	lastTick  atomic.Uint32

	trailsMu sync.Mutex
	trails   map[core.EntityID]*trail

	writeMu       sync.Mutex
	lastWriteNano atomic.Int64

	stopChan  chan struct{}
	done      chan struct{}
	closeOnce sync.Once
	dbReady   bool
}

// New creates a new GORM storage backend.
func New(deps Dependencies) *Backend {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.WriteInterval <= 0 {
		deps.WriteInterval = defaultWriteInterval
	}
	return &Backend{
		deps:   deps,
		queues: newQueues(),
		trails: make(map[core.EntityID]*trail),
	}
}

// Init runs schema migration and starts the DB writer goroutine.
// If no DB was injected via Dependencies it connects from Config, falling
// back to an in-memory SQLite DB when Postgres is unreachable.
func (b *Backend) Init() error {
	b.stopChan = make(chan struct{})
	b.done = make(chan struct{})

	if b.deps.DB == nil {
		conn, err := database.Open(b.deps.Config, b.deps.DBLogger)
		if err != nil {
			close(b.done)
			return fmt.Errorf("failed to connect to database: %w", err)
		}
		b.deps.DB = conn.DB
		b.fallback = conn.Local
		b.deps.Local = b.deps.Local || conn.Local
	}

	if err := b.setupDB(); err != nil {
		close(b.done)
		return fmt.Errorf("failed to setup DB: %w", err)
	}
	b.dbReady = true

	b.startDBWriters()
	return nil
}

func (b *Backend) setupDB() error {
	b.deps.Logger.Info("Migrating schema", "dialect", b.deps.DB.Name(), "local", b.deps.Local)
	if err := database.Migrate(b.deps.DB, b.deps.Local); err != nil {
		return err
	}
	b.deps.Logger.Info("Database setup complete")
	return nil
}

// Close stops the DB writer goroutine and writes whatever is still queued.
func (b *Backend) Close() error {
	var err error
	b.closeOnce.Do(func() {
		if b.stopChan == nil {
			return
		}
		close(b.stopChan)
		<-b.done

		if b.dbReady {
			b.writeCycle()
		}
		if b.fallback && b.deps.FallbackDumpPath != "" {
			err = database.VacuumInto(b.deps.DB, b.deps.FallbackDumpPath)
		}
	})
	return err
}

// StartDemo inserts the demo row and stamps subsequent rows with its ID.
func (b *Backend) StartDemo(header *core.DemoHeader) error {
	b.trailsMu.Lock()
	b.trails = make(map[core.EntityID]*trail)
	b.trailsMu.Unlock()
	b.firstTick.Store(0)
	b.lastTick.Store(0)

	if b.deps.DB == nil {
		return nil
	}

	demo := convert.CoreToDemo(*header)
	if err := b.deps.DB.Create(&demo).Error; err != nil {
		return fmt.Errorf("failed to insert new demo: %w", err)
	}
	b.demoID.Store(uint64(demo.ID))
	b.deps.Logger.Info("Demo started", "demoId", demo.ID, "map", demo.MapName)
	return nil
}

// SetDemoID sets the current demo ID for the DB writer.
func (b *Backend) SetDemoID(id uint) {
	b.demoID.Store(uint64(id))
}

// DemoID returns the ID of the current demo row, 0 before StartDemo.
func (b *Backend) DemoID() uint {
	return uint(b.demoID.Load())
}

// RecordSnapshot converts one tick and pushes its rows to the write queues.
func (b *Backend) RecordSnapshot(s *core.Snapshot) error {
	demoID := uint(b.demoID.Load())

	b.firstTick.CompareAndSwap(0, uint32(s.Tick))
	b.lastTick.Store(uint32(s.Tick))

	players := make([]model.PlayerState, 0, len(s.Players))
	for _, p := range s.Players {
		players = append(players, convert.CoreToPlayerState(demoID, s.Tick, p))
	}
	b.queues.PlayerStates.Push(players...)

	buildings := make([]model.BuildingState, 0, len(s.Buildings))
	for _, bld := range s.Buildings {
		buildings = append(buildings, convert.CoreToBuildingState(demoID, s.Tick, bld))
	}
	b.queues.BuildingStates.Push(buildings...)

	for _, k := range s.Kills {
		b.queues.KillEvents.Push(convert.CoreToKillEvent(demoID, k))
	}
	for _, c := range s.Captures {
		b.queues.CaptureEvents.Push(convert.CoreToCaptureEvent(demoID, c))
	}
	for _, u := range s.Ubercharges {
		b.queues.UberchargeEvents.Push(convert.CoreToUberchargeEvent(demoID, u))
	}

	if !b.deps.Local {
		b.recordTrails(s)
	}
	return nil
}

// recordTrails appends moved projectile positions; resting projectiles add nothing.
func (b *Backend) recordTrails(s *core.Snapshot) {
	b.trailsMu.Lock()
	defer b.trailsMu.Unlock()

	for id, p := range s.Projectiles {
		tr, ok := b.trails[id]
		if !ok {
			tr = &trail{}
			b.trails[id] = tr
		}
		tr.projectile = p
		if n := len(tr.points); n > 0 && tr.points[n-1].Position == p.Position {
			continue
		}
		tr.points = append(tr.points, convert.TrailPoint{Tick: s.Tick, Position: p.Position})
	}
}

// EndDemo flushes the queues and writes trails, rounds and render extents.
func (b *Backend) EndDemo(rounds []core.Round, draw *core.DrawInfo) error {
	if b.deps.DB == nil {
		return nil
	}
	db := b.deps.DB
	demoID := uint(b.demoID.Load())

	b.writeCycle()

	if !b.deps.Local {
		b.trailsMu.Lock()
		rows := make([]model.ProjectileTrail, 0, len(b.trails))
		for _, tr := range b.trails {
			rows = append(rows, convert.CoreToProjectileTrail(demoID, tr.projectile, tr.points))
		}
		b.trails = make(map[core.EntityID]*trail)
		b.trailsMu.Unlock()

		if len(rows) > 0 {
			if err := db.CreateInBatches(&rows, 500).Error; err != nil {
				return fmt.Errorf("failed to insert projectile trails: %w", err)
			}
		}
	}

	if gormRounds := convert.CoreToRounds(demoID, rounds); len(gormRounds) > 0 {
		if err := db.Create(&gormRounds).Error; err != nil {
			return fmt.Errorf("failed to insert rounds: %w", err)
		}
	}

	updates := map[string]any{
		"start_tick": b.firstTick.Load(),
		"end_tick":   b.lastTick.Load(),
	}
	if draw != nil {
		d := convert.CoreToDrawInfo(*draw)
		updates["draw_max_players"] = d.MaxPlayers
		updates["draw_max_projectiles"] = d.MaxProjectiles
		updates["draw_world_min"] = d.WorldMin
		updates["draw_world_max"] = d.WorldMax
		updates["draw_player_min"] = d.PlayerMin
		updates["draw_player_max"] = d.PlayerMax
	}
	if err := db.Model(&model.Demo{}).Where("id = ?", demoID).Updates(updates).Error; err != nil {
		return fmt.Errorf("failed to finalize demo: %w", err)
	}

	b.deps.Logger.Info("Demo finalized", "demoId", demoID, "rounds", len(rounds))
	return nil
}

// LoadDemo reads a stored demo back: header, rounds, kills and render extents.
func (b *Backend) LoadDemo(id uint) (*core.Demo, *core.DrawInfo, error) {
	if b.deps.DB == nil {
		return nil, nil, fmt.Errorf("db not connected")
	}
	db := b.deps.DB

	var demo model.Demo
	err := db.Preload("Rounds", func(tx *gorm.DB) *gorm.DB {
		return tx.Order("number")
	}).First(&demo, id).Error
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load demo %d: %w", id, err)
	}

	var kills []model.KillEvent
	if err := db.Where("demo_id = ?", id).Order("tick, id").Find(&kills).Error; err != nil {
		return nil, nil, fmt.Errorf("failed to load kills: %w", err)
	}

	result := &core.Demo{Header: convert.DemoToCore(demo)}
	for _, r := range demo.Rounds {
		result.Rounds = append(result.Rounds, convert.RoundToCore(r))
	}
	for _, k := range kills {
		result.Kills = append(result.Kills, convert.KillEventToCore(k))
	}
	draw := convert.DrawInfoToCore(demo.Draw)
	return result, &draw, nil
}

// GetLastDBWriteDuration returns the duration of the last DB write cycle.
func (b *Backend) GetLastDBWriteDuration() time.Duration {
	return time.Duration(b.lastWriteNano.Load())
}

// writeQueue writes all items from a queue to the database in a transaction.
// Returns the number of rows written; failed batches are requeued in order.
func writeQueue[T any](db *gorm.DB, q *queue.Queue[T], name string, log *slog.Logger) int {
	if q.Empty() {
		return 0
	}

	tx := db.Begin()
	items := q.Drain()
	if err := tx.CreateInBatches(&items, 2000).Error; err != nil {
		log.Error("Error creating rows", "table", name, "error", err)
		tx.Rollback()
		q.Requeue(items)
		return 0
	}

	if err := tx.Commit().Error; err != nil {
		log.Error("Error committing rows", "table", name, "error", err)
		q.Requeue(items)
		return 0
	}
	return len(items)
}

// writeCycle drains every queue once. Cycles never overlap.
func (b *Backend) writeCycle() {
	b.writeMu.Lock()
	defer b.writeMu.Unlock()

	db := b.deps.DB
	log := b.deps.Logger
	lengths := b.queues.lengths()
	start := time.Now()

	written := writeQueue(db, b.queues.PlayerStates, "player states", log)
	written += writeQueue(db, b.queues.BuildingStates, "building states", log)
	written += writeQueue(db, b.queues.KillEvents, "kill events", log)
	written += writeQueue(db, b.queues.CaptureEvents, "capture events", log)
	written += writeQueue(db, b.queues.UberchargeEvents, "ubercharge events", log)

	if written == 0 {
		return
	}
	elapsed := time.Since(start)
	b.lastWriteNano.Store(int64(elapsed))

	demoID := uint(b.demoID.Load())
	if demoID == 0 {
		return
	}
	perf := model.IngestPerformance{
		Time:                time.Now(),
		DemoID:              demoID,
		WriteQueueLengths:   lengths,
		LastWriteDurationMs: float32(elapsed.Microseconds()) / 1000,
	}
	if err := db.Create(&perf).Error; err != nil {
		log.Error("Error creating ingest performance", "error", err)
	}
}

// startDBWriters starts the background goroutine that periodically drains queues into the DB.
func (b *Backend) startDBWriters() {
	go func() {
		defer close(b.done)
		ticker := time.NewTicker(b.deps.WriteInterval)
		defer ticker.Stop()

		for {
			select {
			case <-b.stopChan:
				return
			case <-ticker.C:
				b.writeCycle()
			}
		}
	}()
}
