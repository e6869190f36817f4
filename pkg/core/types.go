// pkg/core/types.go
package core

import "github.com/golang/geo/r3"

// EntityID identifies one networked object for the lifetime of a recording.
type EntityID uint32

// UserID identifies a participant slot. It survives respawns.
type UserID uint16

// Tick is one simulation step of the recorded session.
type Tick uint32

// Team is the side a player or object belongs to.
type Team uint8

const (
	TeamOther Team = iota
	TeamSpectator
	TeamRed
	TeamBlue
)

// TeamFromInt converts a raw protocol team number. Unknown values map to TeamOther.
func TeamFromInt(v int64) Team {
	switch v {
	case 1:
		return TeamSpectator
	case 2:
		return TeamRed
	case 3:
		return TeamBlue
	default:
		return TeamOther
	}
}

// IsPlayer reports whether the team is one of the two playing sides.
func (t Team) IsPlayer() bool {
	return t == TeamRed || t == TeamBlue
}

func (t Team) String() string {
	switch t {
	case TeamSpectator:
		return "spectator"
	case TeamRed:
		return "red"
	case TeamBlue:
		return "blue"
	default:
		return "other"
	}
}

// Class is a player class. The numeric values match the game's own.
type Class uint8

const (
	ClassOther Class = iota
	ClassScout
	ClassSniper
	ClassSoldier
	ClassDemoman
	ClassMedic
	ClassHeavy
	ClassPyro
	ClassSpy
	ClassEngineer
)

// NumClasses is the number of Class values including ClassOther.
const NumClasses = 10

// ClassFromInt converts a raw protocol class number. Unknown values map to ClassOther.
func ClassFromInt(v int64) Class {
	if v < 0 || v >= NumClasses {
		return ClassOther
	}
	return Class(v)
}

var classNames = [NumClasses]string{
	"other", "scout", "sniper", "soldier", "demoman",
	"medic", "heavy", "pyro", "spy", "engineer",
}

func (c Class) String() string {
	if int(c) >= len(classNames) {
		return classNames[0]
	}
	return classNames[c]
}

// ClassList counts how often each class was played, indexed by Class.
type ClassList [NumClasses]uint8

// Get returns the count for a class.
func (l ClassList) Get(c Class) uint8 {
	if int(c) >= len(l) {
		return 0
	}
	return l[c]
}

// LifeState is the life cycle state of a player.
type LifeState uint8

const (
	LifeAlive LifeState = iota
	LifeDying
	LifeDeath
	LifeRespawnable
)

// LifeStateFromInt converts the raw m_lifeState value.
func LifeStateFromInt(v int64) LifeState {
	switch v {
	case 1:
		return LifeDying
	case 2:
		return LifeDeath
	case 3:
		return LifeRespawnable
	default:
		return LifeAlive
	}
}

func (s LifeState) String() string {
	switch s {
	case LifeDying:
		return "dying"
	case LifeDeath:
		return "death"
	case LifeRespawnable:
		return "respawnable"
	default:
		return "alive"
	}
}

// WeaponSlot is the loadout slot a weapon occupies.
type WeaponSlot uint8

const (
	SlotPrimary   WeaponSlot = iota
	SlotSecondary            // includes sappers and mediguns
	SlotMelee
	SlotPDA1 // build PDA, invisibility watch
	SlotPDA2 // destroy PDA, disguise kit
)

// World holds the map boundaries announced by the world entity.
// BoundMin is component-wise less than or equal to BoundMax.
type World struct {
	BoundMin r3.Vector
	BoundMax r3.Vector
}

// AdjoinBounds returns the smallest box containing both w and other.
func (w World) AdjoinBounds(other World) World {
	return World{
		BoundMin: r3.Vector{
			X: min(w.BoundMin.X, other.BoundMin.X),
			Y: min(w.BoundMin.Y, other.BoundMin.Y),
			Z: min(w.BoundMin.Z, other.BoundMin.Z),
		},
		BoundMax: r3.Vector{
			X: max(w.BoundMax.X, other.BoundMax.X),
			Y: max(w.BoundMax.Y, other.BoundMax.Y),
			Z: max(w.BoundMax.Z, other.BoundMax.Z),
		},
	}
}

// StretchToInclude grows the bounds so that p lies inside them.
func (w *World) StretchToInclude(p r3.Vector) {
	*w = w.AdjoinBounds(World{BoundMin: p, BoundMax: p})
}
