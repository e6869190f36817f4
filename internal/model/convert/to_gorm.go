// Package convert provides functions to convert between GORM models and core models
package convert

import (
	"database/sql"
	"encoding/json"

	"github.com/demolens/tickstate/internal/geo"
	"github.com/demolens/tickstate/internal/model"
	"github.com/demolens/tickstate/pkg/core"
	"gorm.io/datatypes"
)

// userIDsToJSON converts a []core.UserID to datatypes.JSON for DB storage.
func userIDsToJSON(ids []core.UserID) datatypes.JSON {
	if len(ids) == 0 {
		return datatypes.JSON("[]")
	}
	data, _ := json.Marshal(ids)
	return datatypes.JSON(data)
}

// CoreToDemo converts a demo header to a GORM model.Demo.
func CoreToDemo(h core.DemoHeader) model.Demo {
	return model.Demo{
		Filename:        h.Filename,
		MapName:         h.MapName,
		Server:          h.Server,
		Duration:        h.Duration,
		Ticks:           h.Ticks,
		IntervalPerTick: h.IntervalPerTick,
		StartTime:       h.StartTime,
		Tag:             h.Tag,
	}
}

// CoreToDrawInfo converts the render extents of a demo.
func CoreToDrawInfo(d core.DrawInfo) model.DrawInfo {
	return model.DrawInfo{
		MaxPlayers:     d.MaxPlayers,
		MaxProjectiles: d.MaxProjectiles,
		WorldMin:       geo.PointFromVector(d.WorldMax.BoundMin),
		WorldMax:       geo.PointFromVector(d.WorldMax.BoundMax),
		PlayerMin:      geo.PointFromVector(d.PlayerAtMax.BoundMin),
		PlayerMax:      geo.PointFromVector(d.PlayerAtMax.BoundMax),
	}
}

// CoreToRounds converts rounds, numbered from 1 in order.
func CoreToRounds(demoID uint, rounds []core.Round) []model.Round {
	result := make([]model.Round, 0, len(rounds))
	for i, r := range rounds {
		result = append(result, model.Round{
			DemoID:    demoID,
			Number:    uint16(i + 1),
			StartTick: uint32(r.Start),
			EndTick:   uint32(r.End),
			Winner:    r.Winner.String(),
		})
	}
	return result
}

// CoreToPlayerState converts one player at one tick.
func CoreToPlayerState(demoID uint, tick core.Tick, p core.Player) model.PlayerState {
	result := model.PlayerState{
		DemoID:     demoID,
		Tick:       uint32(tick),
		Entity:     uint32(p.Entity),
		Position:   geo.PointFromVector(p.Position),
		ViewAngle:  p.ViewAngle,
		PitchAngle: p.PitchAngle,
		Health:     p.Health,
		MaxHealth:  p.MaxHealth,
		Class:      p.Class.String(),
		Team:       p.Team.String(),
		LifeState:  uint8(p.State),
		Charge:     p.Charge,
		Ping:       p.Ping,
		InPVS:      p.InPVS,
	}

	if p.Info != nil {
		result.UserID = uint16(p.Info.UserID)
		result.Name = p.Info.Name
		result.SteamID64 = int64(p.Info.SteamID64)
	}

	if p.ClassInfo != nil && p.ClassInfo.Medic != nil {
		result.IsHealing = p.ClassInfo.Medic.IsHealing
		result.HealTarget = uint32(p.ClassInfo.Medic.HealTarget)
	}

	return result
}

// CoreToBuildingState converts one building at one tick, flattening the variant.
func CoreToBuildingState(demoID uint, tick core.Tick, b core.Building) model.BuildingState {
	result := model.BuildingState{
		DemoID:       demoID,
		Tick:         uint32(tick),
		Entity:       uint32(b.Entity),
		Kind:         b.Kind.String(),
		Builder:      uint16(b.Builder),
		Team:         b.Team.String(),
		Position:     geo.PointFromVector(b.Position),
		Angle:        b.Angle,
		Level:        b.Level,
		Health:       b.Health,
		MaxHealth:    b.MaxHealth,
		Constructing: b.Building,
		Sapped:       b.Sapped,
		Healing:      datatypes.JSON("[]"),
	}

	switch {
	case b.Sentry != nil:
		result.IsMini = b.Sentry.IsMini
		result.Shells = b.Sentry.Shells
		result.Rockets = b.Sentry.Rockets
	case b.Dispenser != nil:
		result.Metal = b.Dispenser.Metal
		result.Healing = userIDsToJSON(b.Dispenser.Healing)
	case b.Teleporter != nil:
		result.IsEntrance = b.Teleporter.IsEntrance
		result.TimesUsed = b.Teleporter.TimesUsed
	}

	return result
}

// TrailPoint is one projectile position.
type TrailPoint = geo.TrailPoint

// CoreToProjectileTrail converts a projectile and its positions to a LineStringZM.
// A trail needs two points to form a line; shorter trails carry an empty geometry.
func CoreToProjectileTrail(demoID uint, p core.Projectile, trail []TrailPoint) model.ProjectileTrail {
	result := model.ProjectileTrail{
		DemoID:  demoID,
		Entity:  uint32(p.Entity),
		Kind:    p.Kind.String(),
		Shooter: uint16(p.Shooter),
		Team:    p.Team.String(),
	}
	if len(trail) > 0 {
		result.FirstTick = uint32(trail[0].Tick)
		result.LastTick = uint32(trail[len(trail)-1].Tick)
	}

	if ls, err := geo.Polyline(trail); err == nil {
		result.Positions = ls.AsGeometry()
	}

	return result
}

// CoreToKillEvent converts a kill. A missing assister is stored as NULL.
func CoreToKillEvent(demoID uint, k core.Kill) model.KillEvent {
	result := model.KillEvent{
		DemoID:            demoID,
		Tick:              uint32(k.Tick),
		DeadID:            uint16(k.DeadID),
		DeadEntity:        uint32(k.DeadEntity),
		AttackerID:        uint16(k.AttackerID),
		InflictorID:       uint32(k.InflictorID),
		Weapon:            k.Weapon,
		WeaponID:          k.WeaponID,
		DeadRocketJumping: k.DeadRocketJumping,
	}
	if k.AssisterID != nil {
		result.AssisterID = sql.NullInt32{Int32: int32(*k.AssisterID), Valid: true}
	}
	return result
}

// CoreToCaptureEvent converts a control point capture.
func CoreToCaptureEvent(demoID uint, c core.Capture) model.CaptureEvent {
	return model.CaptureEvent{
		DemoID:  demoID,
		Tick:    uint32(c.Tick),
		CPIndex: c.CPIndex,
		CPName:  c.CPName,
		Team:    c.Team.String(),
		Cappers: userIDsToJSON(c.Cappers),
	}
}

// CoreToUberchargeEvent converts a deployed charge.
func CoreToUberchargeEvent(demoID uint, u core.Ubercharge) model.UberchargeEvent {
	return model.UberchargeEvent{
		DemoID:   demoID,
		Tick:     uint32(u.Tick),
		MedicID:  uint16(u.MedicID),
		UberedID: uint16(u.UberedID),
	}
}
