package parser

import (
	"strconv"

	"github.com/demolens/tickstate/pkg/core"
	"github.com/demolens/tickstate/pkg/streaming"
)

var (
	playerHealth    = propID{"DT_BasePlayer", "m_iHealth"}
	playerMaxHealth = propID{"DT_BasePlayer", "m_iMaxHealth"}
	playerLifeState = propID{"DT_BasePlayer", "m_lifeState"}
	playerClass     = propID{"DT_TFPlayerClassShared", "m_iClass"}
	playerSimTime   = propID{"DT_BaseEntity", "m_flSimulationTime"}

	// the local player is sent through a different table
	localOrigin         = propID{"DT_TFLocalPlayerExclusive", "m_vecOrigin"}
	nonLocalOrigin      = propID{"DT_TFNonLocalPlayerExclusive", "m_vecOrigin"}
	localOriginZ        = propID{"DT_TFLocalPlayerExclusive", "m_vecOrigin[2]"}
	nonLocalOriginZ     = propID{"DT_TFNonLocalPlayerExclusive", "m_vecOrigin[2]"}
	localEyeAngles      = propID{"DT_TFLocalPlayerExclusive", "m_angEyeAngles[1]"}
	nonLocalEyeAngles   = propID{"DT_TFNonLocalPlayerExclusive", "m_angEyeAngles[1]"}
	localPitchAngles    = propID{"DT_TFLocalPlayerExclusive", "m_angEyeAngles[0]"}
	nonLocalPitchAngles = propID{"DT_TFNonLocalPlayerExclusive", "m_angEyeAngles[0]"}
)

// ParsePlayer applies a player entity update. Players are never removed.
func (p *Parser) ParsePlayer(u streaming.EntityUpdate) {
	if u.Kind == streaming.UpdateDelete {
		return
	}
	player := p.store.Player(u.Entity)
	player.InPVS = u.InPVS

	for _, prop := range u.Props {
		switch idOf(prop) {
		case playerHealth:
			player.Health = uint16(prop.Value.AsInt())
		case playerMaxHealth:
			player.MaxHealth = uint16(prop.Value.AsInt())
		case playerLifeState:
			player.State = core.LifeStateFromInt(prop.Value.AsInt())
		case playerClass:
			p.setPlayerClass(player, core.ClassFromInt(prop.Value.AsInt()))
		case baseTeam:
			player.Team = core.TeamFromInt(prop.Value.AsInt())
		case localOrigin, nonLocalOrigin:
			pos := prop.Value.AsVector()
			player.Position.X = pos.X
			player.Position.Y = pos.Y
		case localOriginZ, nonLocalOriginZ:
			player.Position.Z = float64(prop.Value.AsFloat())
		case localEyeAngles, nonLocalEyeAngles:
			player.ViewAngle = prop.Value.AsFloat()
		case localPitchAngles, nonLocalPitchAngles:
			player.PitchAngle = prop.Value.AsFloat()
		case playerSimTime:
			player.SimTime = uint16(prop.Value.AsInt())
		}
	}
}

// setPlayerClass changes the class and counts it in the identity block.
func (p *Parser) setPlayerClass(player *core.Player, c core.Class) {
	if c != player.Class && c != core.ClassOther && player.Info != nil {
		if player.Info.Classes[c] < 255 {
			player.Info.Classes[c]++
		}
	}
	player.SetClass(c)
}

// Roster fields of the player resource. The field name is the table and the
// player's entity index is the property name.
const (
	resourceTeam      = "m_iTeam"
	resourceMaxHealth = "m_iMaxHealth"
	resourceClass     = "m_iPlayerClass"
	resourceCharge    = "m_iChargeLevel"
	resourcePing      = "m_iPing"
)

// ParsePlayerResource applies the roster arrays to players whose identity
// block is known.
func (p *Parser) ParsePlayerResource(u streaming.EntityUpdate) {
	for _, prop := range u.Props {
		index, err := strconv.ParseUint(prop.Name, 10, 32)
		if err != nil {
			continue
		}
		player, ok := p.store.PlayerByInfoEntity(core.EntityID(index))
		if !ok {
			continue
		}
		switch prop.Table {
		case resourceTeam:
			player.Team = core.TeamFromInt(prop.Value.AsInt())
			player.Info.Team = player.Team
		case resourceMaxHealth:
			player.MaxHealth = uint16(prop.Value.AsInt())
		case resourceClass:
			p.setPlayerClass(player, core.ClassFromInt(prop.Value.AsInt()))
		case resourceCharge:
			player.Charge = uint8(prop.Value.AsInt())
		case resourcePing:
			player.Ping = uint16(prop.Value.AsInt())
		}
	}
}
