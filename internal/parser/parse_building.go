package parser

import (
	"github.com/demolens/tickstate/internal/handles"
	"github.com/demolens/tickstate/pkg/core"
	"github.com/demolens/tickstate/pkg/streaming"
)

var (
	worldMins = propID{"DT_WORLD", "m_WorldMins"}
	worldMaxs = propID{"DT_WORLD", "m_WorldMaxs"}
)

// ParseWorld records the map bounds once both are present in one update.
func (p *Parser) ParseWorld(u streaming.EntityUpdate) {
	var (
		world          core.World
		hasMin, hasMax bool
	)
	for _, prop := range u.Props {
		if prop.Value.Kind != streaming.KindVector {
			continue
		}
		switch idOf(prop) {
		case worldMins:
			world.BoundMin, hasMin = prop.Value.AsVector(), true
		case worldMaxs:
			world.BoundMax, hasMax = prop.Value.AsVector(), true
		}
	}
	if hasMin && hasMax {
		p.store.SetWorld(world)
	}
}

var (
	objectSapped    = propID{"DT_BaseObject", "m_bHasSapper"}
	objectBuilding  = propID{"DT_BaseObject", "m_bBuilding"}
	objectLevel     = propID{"DT_BaseObject", "m_iUpgradeLevel"}
	objectBuilder   = propID{"DT_BaseObject", "m_hBuilder"}
	objectMaxHealth = propID{"DT_BaseObject", "m_iMaxHealth"}
	objectHealth    = propID{"DT_BaseObject", "m_iHealth"}
	objectMini      = propID{"DT_BaseObject", "m_bMiniBuilding"}
	objectMode      = propID{"DT_BaseObject", "m_iObjectMode"}

	sentryAngle      = propID{"DT_TFNonLocalPlayerExclusive", "m_angEyeAngles[1]"}
	sentryControlled = propID{"DT_ObjectSentrygun", "m_bPlayerControlled"}
	sentryTarget     = propID{"DT_ObjectSentrygun", "m_hAutoAimTarget"}
	sentryShells     = propID{"DT_ObjectSentrygun", "m_iAmmoShells"}
	sentryRockets    = propID{"DT_ObjectSentrygun", "m_iAmmoRockets"}

	dispenserMetal   = propID{"DT_ObjectDispenser", "m_iAmmoMetal"}
	dispenserHealing = propID{"DT_ObjectDispenser", "healing_array"}

	teleRechargeTime     = propID{"DT_ObjectTeleporter", "m_flRechargeTime"}
	teleRechargeDuration = propID{"DT_ObjectTeleporter", "m_flCurrentRechargeDuration"}
	teleTimesUsed        = propID{"DT_ObjectTeleporter", "m_iTimesUsed"}
	teleOtherEnd         = propID{"DT_ObjectTeleporter", "m_bMatchBuilding"}
	teleYawToExit        = propID{"DT_ObjectTeleporter", "m_flYawToExit"}
)

// buildingHandles are the raw player handles a building carries. They are
// resolved again on every update of the building.
type buildingHandles struct {
	builder handles.Handle
	target  handles.Handle
}

// ParseBuilding applies a sentry, dispenser or teleporter update. A delete
// removes the building before any property is looked at.
func (p *Parser) ParseBuilding(u streaming.EntityUpdate, kind core.BuildingKind) {
	switch u.Kind {
	case streaming.UpdateDelete:
		p.store.RemoveBuilding(u.Entity)
		delete(p.buildingRefs, u.Entity)
		return
	case streaming.UpdateEnter:
		delete(p.buildingRefs, u.Entity)
	}

	refs := p.buildingRefs[u.Entity]
	p.store.UpdateBuilding(u.Entity, kind, func(b *core.Building) {
		for _, prop := range u.Props {
			switch idOf(prop) {
			case objectBuilder:
				refs.builder = handleOf(prop.Value)
				continue
			case sentryTarget:
				refs.target = handleOf(prop.Value)
				continue
			}
			if applyBuildingCommon(b, prop) {
				continue
			}
			switch kind {
			case core.BuildingSentry:
				applySentry(b, prop)
			case core.BuildingDispenser:
				applyDispenser(b.Dispenser, prop)
			case core.BuildingTeleporter:
				applyTeleporter(b.Teleporter, prop)
			}
		}

		b.Builder = p.userIDOfHandle(refs.builder)
		if b.Sentry != nil {
			b.Sentry.AutoAimTarget = p.userIDOfHandle(refs.target)
		}
	})
	p.buildingRefs[u.Entity] = refs
}

// applyBuildingCommon handles the properties every building shares and
// reports whether prop was one of them.
func applyBuildingCommon(b *core.Building, prop streaming.Property) bool {
	switch idOf(prop) {
	case baseOrigin:
		b.Position = prop.Value.AsVector()
	case baseTeam:
		b.Team = core.TeamFromInt(prop.Value.AsInt())
	case baseRotation:
		b.Angle = yawOf(prop.Value)
	case objectSapped:
		b.Sapped = prop.Value.AsBool()
	case objectBuilding:
		b.Building = prop.Value.AsBool()
	case objectLevel:
		b.Level = uint8(prop.Value.AsInt())
	case objectMaxHealth:
		b.MaxHealth = uint16(prop.Value.AsInt())
	case objectHealth:
		b.Health = uint16(prop.Value.AsInt())
	default:
		return false
	}
	return true
}

func applySentry(b *core.Building, prop streaming.Property) {
	s := b.Sentry
	switch idOf(prop) {
	case sentryAngle:
		b.Angle = prop.Value.AsFloat()
	case objectMini:
		s.IsMini = prop.Value.AsBool()
	case sentryControlled:
		s.PlayerControlled = prop.Value.AsBool()
	case sentryShells:
		s.Shells = uint16(prop.Value.AsInt())
	case sentryRockets:
		s.Rockets = uint16(prop.Value.AsInt())
	}
}

func applyDispenser(d *core.Dispenser, prop streaming.Property) {
	switch idOf(prop) {
	case dispenserMetal:
		d.Metal = uint16(prop.Value.AsInt())
	case dispenserHealing:
		values := prop.Value.AsArray()
		healing := make([]core.UserID, 0, len(values))
		for _, v := range values {
			healing = append(healing, core.UserID(v.AsInt()))
		}
		d.Healing = healing
	}
}

func applyTeleporter(t *core.Teleporter, prop streaming.Property) {
	switch idOf(prop) {
	case teleRechargeTime:
		t.RechargeTime = prop.Value.AsFloat()
	case teleRechargeDuration:
		t.RechargeDuration = prop.Value.AsFloat()
	case teleTimesUsed:
		t.TimesUsed = uint16(prop.Value.AsInt())
	case teleOtherEnd:
		t.OtherEnd = core.EntityID(prop.Value.AsInt())
	case teleYawToExit:
		t.YawToExit = prop.Value.AsFloat()
	case objectMode:
		t.IsEntrance = prop.Value.AsInt() == 0
	}
}
