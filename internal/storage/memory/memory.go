// internal/storage/memory/memory.go
package memory

import (
	"sync"

	"github.com/demolens/tickstate/internal/config"
	"github.com/demolens/tickstate/pkg/core"
)

// PlayerRecord groups a player entity with its per tick states
type PlayerRecord struct {
	Entity core.EntityID
	Info   *core.UserInfo // latest identity seen
	States []PlayerState
}

// PlayerState is the subset of a player kept per tick
type PlayerState struct {
	Tick     core.Tick
	Position [3]float64
	View     float32
	Health   uint16
	Class    core.Class
	Team     core.Team
	State    core.LifeState
	Charge   uint8
}

// BuildingRecord groups a building with its per tick states
type BuildingRecord struct {
	Entity    core.EntityID
	Kind      core.BuildingKind
	Builder   core.UserID
	Team      core.Team
	FirstTick core.Tick
	LastTick  core.Tick
	States    []BuildingState
}

// BuildingState is the subset of a building kept per tick
type BuildingState struct {
	Tick     core.Tick
	Position [3]float64
	Level    uint8
	Health   uint16
	Sapped   bool
}

// ProjectileRecord groups a projectile with its trail
type ProjectileRecord struct {
	Entity  core.EntityID
	Kind    core.ProjectileType
	Shooter core.UserID
	Team    core.Team
	Trail   []TrailPoint
}

// TrailPoint is one projectile position
type TrailPoint struct {
	Tick     core.Tick
	Position [3]float64
}

// Backend keeps the demo in memory and exports it to JSON on EndDemo
type Backend struct {
	cfg    config.MemoryConfig
	header *core.DemoHeader

	players     map[core.EntityID]*PlayerRecord
	playerOrder []core.EntityID
	buildings   map[core.EntityID]*BuildingRecord
	projectiles map[core.EntityID]*ProjectileRecord

	kills       []core.Kill
	captures    []core.Capture
	ubercharges []core.Ubercharge
	rounds      []core.Round
	draw        *core.DrawInfo

	firstTick core.Tick
	lastTick  core.Tick
	ticks     int

	lastExportPath string
	mu             sync.RWMutex
}

// New creates a new memory backend
func New(cfg config.MemoryConfig) *Backend {
	b := &Backend{cfg: cfg}
	b.reset()
	return b
}

func (b *Backend) reset() {
	b.players = make(map[core.EntityID]*PlayerRecord)
	b.playerOrder = nil
	b.buildings = make(map[core.EntityID]*BuildingRecord)
	b.projectiles = make(map[core.EntityID]*ProjectileRecord)
	b.kills = nil
	b.captures = nil
	b.ubercharges = nil
	b.rounds = nil
	b.draw = nil
	b.firstTick = 0
	b.lastTick = 0
	b.ticks = 0
}

// Init initializes the backend
func (b *Backend) Init() error {
	return nil
}

// Close cleans up resources
func (b *Backend) Close() error {
	return nil
}

// StartDemo begins recording a new demo and drops anything kept before
func (b *Backend) StartDemo(header *core.DemoHeader) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	h := *header
	b.header = &h
	b.reset()
	return nil
}

// EndDemo finalizes and exports the demo
func (b *Backend) EndDemo(rounds []core.Round, draw *core.DrawInfo) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.rounds = rounds
	b.draw = draw
	return b.exportJSON()
}

// RecordSnapshot folds one tick into the per entity records
func (b *Backend) RecordSnapshot(s *core.Snapshot) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.ticks == 0 {
		b.firstTick = s.Tick
	}
	b.lastTick = s.Tick
	b.ticks++

	for i := range s.Players {
		p := &s.Players[i]
		rec, ok := b.players[p.Entity]
		if !ok {
			rec = &PlayerRecord{Entity: p.Entity}
			b.players[p.Entity] = rec
			b.playerOrder = append(b.playerOrder, p.Entity)
		}
		if p.Info != nil {
			info := *p.Info
			rec.Info = &info
		}
		rec.States = append(rec.States, PlayerState{
			Tick:     s.Tick,
			Position: [3]float64{p.Position.X, p.Position.Y, p.Position.Z},
			View:     p.ViewAngle,
			Health:   p.Health,
			Class:    p.Class,
			Team:     p.Team,
			State:    p.State,
			Charge:   p.Charge,
		})
	}

	for id, bld := range s.Buildings {
		rec, ok := b.buildings[id]
		if !ok || rec.Kind != bld.Kind {
			rec = &BuildingRecord{Entity: id, Kind: bld.Kind, FirstTick: s.Tick}
			b.buildings[id] = rec
		}
		rec.Builder = bld.Builder
		rec.Team = bld.Team
		rec.LastTick = s.Tick
		rec.States = append(rec.States, BuildingState{
			Tick:     s.Tick,
			Position: [3]float64{bld.Position.X, bld.Position.Y, bld.Position.Z},
			Level:    bld.Level,
			Health:   bld.Health,
			Sapped:   bld.Sapped,
		})
	}

	for id, proj := range s.Projectiles {
		rec, ok := b.projectiles[id]
		if !ok {
			rec = &ProjectileRecord{Entity: id}
			b.projectiles[id] = rec
		}
		rec.Kind = proj.Kind
		rec.Shooter = proj.Shooter
		rec.Team = proj.Team
		pos := [3]float64{proj.Position.X, proj.Position.Y, proj.Position.Z}
		// projectiles are never removed, only record movement
		if n := len(rec.Trail); n > 0 && rec.Trail[n-1].Position == pos {
			continue
		}
		rec.Trail = append(rec.Trail, TrailPoint{Tick: s.Tick, Position: pos})
	}

	b.kills = append(b.kills, s.Kills...)
	b.captures = append(b.captures, s.Captures...)
	b.ubercharges = append(b.ubercharges, s.Ubercharges...)
	b.rounds = s.Rounds
	return nil
}

// GetPlayer returns the record of a player entity
func (b *Backend) GetPlayer(id core.EntityID) (*PlayerRecord, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	rec, ok := b.players[id]
	return rec, ok
}

// GetBuilding returns the record of a building entity
func (b *Backend) GetBuilding(id core.EntityID) (*BuildingRecord, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	rec, ok := b.buildings[id]
	return rec, ok
}

// GetProjectile returns the record of a projectile entity
func (b *Backend) GetProjectile(id core.EntityID) (*ProjectileRecord, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	rec, ok := b.projectiles[id]
	return rec, ok
}

// TickCount returns the number of snapshots recorded
func (b *Backend) TickCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.ticks
}
