// Package state holds the mutable world state that decoders write into and
// that is copied out once per tick.
package state

import (
	"github.com/demolens/tickstate/pkg/core"
)

// Store is the per-recording aggregate. It is owned by a single worker.
type Store struct {
	snap core.Snapshot
	open bool
}

func NewStore() *Store {
	return &Store{
		snap: core.Snapshot{
			Buildings:   make(map[core.EntityID]core.Building),
			Projectiles: make(map[core.EntityID]core.Projectile),
			Mediguns:    make(map[core.EntityID]core.Medigun),
			Weapons:     make(map[core.EntityID]core.Weapon),
		},
	}
}

// Tick returns the tick currently being assembled.
func (s *Store) Tick() core.Tick { return s.snap.Tick }

// Open reports whether a tick has been started.
func (s *Store) Open() bool { return s.open }

// BeginTick stamps the store with a new tick and clears the transient lists.
func (s *Store) BeginTick(t core.Tick, delta float32) {
	s.snap.Tick = t
	s.snap.TickDelta = delta
	s.snap.Kills = s.snap.Kills[:0]
	s.snap.Captures = s.snap.Captures[:0]
	s.snap.Ubercharges = s.snap.Ubercharges[:0]
	s.open = true
}

// Snapshot returns an independent copy of the current state.
func (s *Store) Snapshot() core.Snapshot {
	return s.snap.Clone()
}

// Peek exposes the live state for read-only inspection.
func (s *Store) Peek() *core.Snapshot {
	return &s.snap
}

// Player returns the player with the given entity id, creating it on first
// reference.
func (s *Store) Player(id core.EntityID) *core.Player {
	if p, ok := s.snap.PlayerByEntity(id); ok {
		return p
	}
	s.snap.Players = append(s.snap.Players, core.Player{Entity: id})
	return &s.snap.Players[len(s.snap.Players)-1]
}

// FindPlayer returns an existing player without creating one.
func (s *Store) FindPlayer(id core.EntityID) (*core.Player, bool) {
	return s.snap.PlayerByEntity(id)
}

// PlayerByUserID finds a player through its identity block.
func (s *Store) PlayerByUserID(id core.UserID) (*core.Player, bool) {
	return s.snap.PlayerByUserID(id)
}

// PlayerByInfoEntity finds a player whose identity block names the entity.
func (s *Store) PlayerByInfoEntity(id core.EntityID) (*core.Player, bool) {
	for i := range s.snap.Players {
		if info := s.snap.Players[i].Info; info != nil && info.EntityID == id {
			return &s.snap.Players[i], true
		}
	}
	return nil, false
}

// EachPlayer calls fn for every player in order of first appearance.
func (s *Store) EachPlayer(fn func(p *core.Player)) {
	for i := range s.snap.Players {
		fn(&s.snap.Players[i])
	}
}

// UpdateBuilding applies fn to the building with the given id, creating it
// with the given kind on first reference. A building that changed kind is
// recreated.
func (s *Store) UpdateBuilding(id core.EntityID, kind core.BuildingKind, fn func(b *core.Building)) {
	b, ok := s.snap.Buildings[id]
	if !ok || b.Kind != kind {
		b = *core.NewBuilding(id, kind)
	}
	fn(&b)
	s.snap.Buildings[id] = b
}

// RemoveBuilding deletes a building. Unknown ids are ignored.
func (s *Store) RemoveBuilding(id core.EntityID) {
	delete(s.snap.Buildings, id)
}

// ClearBuildings removes every building.
func (s *Store) ClearBuildings() {
	clear(s.snap.Buildings)
}

// UpdateProjectile applies fn to the projectile, creating it on first
// reference.
func (s *Store) UpdateProjectile(id core.EntityID, kind core.ProjectileType, fn func(p *core.Projectile)) {
	p, ok := s.snap.Projectiles[id]
	if !ok {
		p = core.Projectile{Entity: id, Kind: kind}
	}
	fn(&p)
	s.snap.Projectiles[id] = p
}

// UpdateMedigun applies fn to the medigun, creating it on first reference.
func (s *Store) UpdateMedigun(id core.EntityID, fn func(m *core.Medigun)) {
	m, ok := s.snap.Mediguns[id]
	if !ok {
		m = core.Medigun{Entity: id}
	}
	fn(&m)
	s.snap.Mediguns[id] = m
}

// RemoveMedigun deletes a medigun. Unknown ids are ignored.
func (s *Store) RemoveMedigun(id core.EntityID) {
	delete(s.snap.Mediguns, id)
}

// UpdateWeapon applies fn to the weapon, creating it on first reference.
func (s *Store) UpdateWeapon(id core.EntityID, class core.Class, slot core.WeaponSlot, fn func(w *core.Weapon)) {
	w, ok := s.snap.Weapons[id]
	if !ok {
		w = core.Weapon{Entity: id, Class: class, Slot: slot}
	}
	fn(&w)
	s.snap.Weapons[id] = w
}

// RemoveWeapon deletes a weapon. Unknown ids are ignored.
func (s *Store) RemoveWeapon(id core.EntityID) {
	delete(s.snap.Weapons, id)
}

// SetWorld records the world bounds.
func (s *Store) SetWorld(w core.World) {
	s.snap.World = &w
}

// StartRound opens a new round at the current tick.
func (s *Store) StartRound() {
	s.snap.Rounds = append(s.snap.Rounds, core.Round{Start: s.snap.Tick, Winner: core.TeamOther})
}

// EndRound closes the most recent round at the current tick. Without any
// round it does nothing.
func (s *Store) EndRound(winner core.Team) {
	if len(s.snap.Rounds) == 0 {
		return
	}
	last := &s.snap.Rounds[len(s.snap.Rounds)-1]
	last.End = s.snap.Tick
	last.Winner = winner
}

func (s *Store) AddKill(k core.Kill) {
	s.snap.Kills = append(s.snap.Kills, k)
}

func (s *Store) AddCapture(c core.Capture) {
	s.snap.Captures = append(s.snap.Captures, c)
}

func (s *Store) AddUbercharge(u core.Ubercharge) {
	s.snap.Ubercharges = append(s.snap.Ubercharges, u)
}

// AgePlayers adds dt seconds to every player's time since last hurt.
func (s *Store) AgePlayers(dt float32) {
	for i := range s.snap.Players {
		s.snap.Players[i].TimeSinceLastHurt += dt
	}
}
