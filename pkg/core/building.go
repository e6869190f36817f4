// pkg/core/building.go
package core

import (
	"slices"

	"github.com/golang/geo/r3"
)

// BuildingKind tags the Building variant.
type BuildingKind uint8

const (
	BuildingSentry BuildingKind = iota
	BuildingDispenser
	BuildingTeleporter
)

func (k BuildingKind) String() string {
	switch k {
	case BuildingSentry:
		return "sentry"
	case BuildingDispenser:
		return "dispenser"
	case BuildingTeleporter:
		return "teleporter"
	default:
		return "unknown"
	}
}

// Building is an engineer structure. Exactly one of Sentry, Dispenser and
// Teleporter is set, matching Kind.
type Building struct {
	Kind      BuildingKind
	Entity    EntityID
	Builder   UserID
	Position  r3.Vector
	Level     uint8
	MaxHealth uint16
	Health    uint16
	Building  bool // under construction
	Sapped    bool
	Team      Team
	Angle     float32

	Sentry     *Sentry
	Dispenser  *Dispenser
	Teleporter *Teleporter
}

// Sentry holds sentry gun specific state.
type Sentry struct {
	IsMini           bool
	PlayerControlled bool
	AutoAimTarget    UserID
	Shells           uint16
	Rockets          uint16
}

// Dispenser holds dispenser specific state.
type Dispenser struct {
	Metal   uint16
	Healing []UserID
}

// Teleporter holds teleporter specific state.
type Teleporter struct {
	IsEntrance       bool
	OtherEnd         EntityID
	RechargeTime     float32
	RechargeDuration float32
	TimesUsed        uint16
	YawToExit        float32
}

// NewBuilding returns an empty building of the given kind.
func NewBuilding(entity EntityID, kind BuildingKind) *Building {
	b := &Building{Kind: kind, Entity: entity}
	switch kind {
	case BuildingSentry:
		b.Sentry = &Sentry{}
	case BuildingDispenser:
		b.Dispenser = &Dispenser{}
	case BuildingTeleporter:
		b.Teleporter = &Teleporter{}
	}
	return b
}

// Clone returns a deep copy.
func (b Building) Clone() Building {
	if b.Sentry != nil {
		s := *b.Sentry
		b.Sentry = &s
	}
	if b.Dispenser != nil {
		d := *b.Dispenser
		d.Healing = slices.Clone(d.Healing)
		b.Dispenser = &d
	}
	if b.Teleporter != nil {
		t := *b.Teleporter
		b.Teleporter = &t
	}
	return b
}
