// pkg/core/snapshot.go
package core

import (
	"maps"
	"slices"
)

// Snapshot is the complete world state at one tick. Snapshots handed to
// consumers are independent values and must not be mutated.
type Snapshot struct {
	Tick      Tick
	TickDelta float32 // seconds since the previous tick

	Players     []Player // ordered by first appearance
	Buildings   map[EntityID]Building
	Projectiles map[EntityID]Projectile
	Mediguns    map[EntityID]Medigun
	Weapons     map[EntityID]Weapon
	World       *World

	Rounds []Round

	// Transient, only the events of this tick.
	Kills       []Kill
	Captures    []Capture
	Ubercharges []Ubercharge
}

// PlayerByEntity returns the player with the given entity id.
func (s *Snapshot) PlayerByEntity(id EntityID) (*Player, bool) {
	for i := range s.Players {
		if s.Players[i].Entity == id {
			return &s.Players[i], true
		}
	}
	return nil, false
}

// PlayerByUserID returns the player whose identity block carries the user id.
func (s *Snapshot) PlayerByUserID(id UserID) (*Player, bool) {
	for i := range s.Players {
		if info := s.Players[i].Info; info != nil && info.UserID == id {
			return &s.Players[i], true
		}
	}
	return nil, false
}

// Clone returns a deep copy sharing no memory with s.
func (s *Snapshot) Clone() Snapshot {
	out := Snapshot{
		Tick:        s.Tick,
		TickDelta:   s.TickDelta,
		Players:     make([]Player, len(s.Players)),
		Buildings:   make(map[EntityID]Building, len(s.Buildings)),
		Projectiles: maps.Clone(s.Projectiles),
		Mediguns:    maps.Clone(s.Mediguns),
		Weapons:     maps.Clone(s.Weapons),
		Rounds:      slices.Clone(s.Rounds),
		Captures:    make([]Capture, len(s.Captures)),
		Ubercharges: slices.Clone(s.Ubercharges),
		Kills:       make([]Kill, len(s.Kills)),
	}
	for i, p := range s.Players {
		out.Players[i] = p.Clone()
	}
	for id, b := range s.Buildings {
		out.Buildings[id] = b.Clone()
	}
	if s.World != nil {
		w := *s.World
		out.World = &w
	}
	for i, c := range s.Captures {
		c.Cappers = slices.Clone(c.Cappers)
		out.Captures[i] = c
	}
	for i, k := range s.Kills {
		if k.AssisterID != nil {
			a := *k.AssisterID
			k.AssisterID = &a
		}
		out.Kills[i] = k
	}
	if out.Projectiles == nil {
		out.Projectiles = map[EntityID]Projectile{}
	}
	if out.Mediguns == nil {
		out.Mediguns = map[EntityID]Medigun{}
	}
	if out.Weapons == nil {
		out.Weapons = map[EntityID]Weapon{}
	}
	return out
}
