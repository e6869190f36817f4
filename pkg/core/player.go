// pkg/core/player.go
package core

import "github.com/golang/geo/r3"

// UserInfo is the identity block of a player, taken from the userinfo string table.
type UserInfo struct {
	Name      string
	UserID    UserID
	SteamID   string // as announced, e.g. "[U:1:22202]"
	SteamID64 uint64 // 0 when SteamID could not be parsed
	EntityID  EntityID
	Team      Team
	Classes   ClassList
}

// MedicInfo is mirrored from the medic's medigun.
type MedicInfo struct {
	IsHealing      bool
	HealTarget     EntityID
	LastHealTarget EntityID
}

// ClassInfo carries class specific state. Only the case matching Class is set;
// classes without extra state carry no payload.
type ClassInfo struct {
	Class Class
	Medic *MedicInfo
}

// NewClassInfo returns the empty info for a class, or nil for ClassOther.
func NewClassInfo(c Class) *ClassInfo {
	switch c {
	case ClassOther:
		return nil
	case ClassMedic:
		return &ClassInfo{Class: c, Medic: &MedicInfo{}}
	default:
		return &ClassInfo{Class: c}
	}
}

// Player is the reconstructed state of one player entity.
type Player struct {
	Entity     EntityID
	Position   r3.Vector
	Health     uint16
	MaxHealth  uint16
	Class      Class
	Team       Team
	ViewAngle  float32
	PitchAngle float32
	State      LifeState

	// TimeSinceLastHurt is in seconds and aged every tick.
	TimeSinceLastHurt float32

	ClassInfo *ClassInfo
	Info      *UserInfo

	Charge  uint8 // roster charge level, 0..100
	SimTime uint16
	Ping    uint16
	InPVS   bool
}

// IsAlive reports whether the player is in the alive life state.
func (p *Player) IsAlive() bool {
	return p.State == LifeAlive
}

// CritHealPercent is the fraction of the critical heal bonus the player would
// receive: zero for 10 seconds after damage, ramping to one over the next 5.
func (p *Player) CritHealPercent() float32 {
	v := (p.TimeSinceLastHurt - 10) / 5
	return min(max(v, 0), 1)
}

// UserID returns the player's user id, if the identity block is known.
func (p *Player) UserID() (UserID, bool) {
	if p.Info == nil {
		return 0, false
	}
	return p.Info.UserID, true
}

// SetClass updates the class and resets the class info when it changes.
func (p *Player) SetClass(c Class) {
	if p.Class == c && (p.ClassInfo != nil || c == ClassOther) {
		return
	}
	p.Class = c
	p.ClassInfo = NewClassInfo(c)
}

// Clone returns a deep copy.
func (p Player) Clone() Player {
	if p.Info != nil {
		info := *p.Info
		p.Info = &info
	}
	if p.ClassInfo != nil {
		ci := *p.ClassInfo
		if ci.Medic != nil {
			m := *ci.Medic
			ci.Medic = &m
		}
		p.ClassInfo = &ci
	}
	return p
}
