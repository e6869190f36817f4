package convert

import (
	"encoding/json"

	"github.com/demolens/tickstate/internal/geo"
	"github.com/demolens/tickstate/internal/model"
	"github.com/demolens/tickstate/pkg/core"
	"github.com/golang/geo/r3"
	"gorm.io/datatypes"
)

// jsonToUserIDs converts a stored id list, nil when empty or malformed
func jsonToUserIDs(data datatypes.JSON) []core.UserID {
	var ids []core.UserID
	if len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, &ids); err != nil || len(ids) == 0 {
		return nil
	}
	return ids
}

// teamFromString is the inverse of core.Team.String
func teamFromString(s string) core.Team {
	switch s {
	case "spectator":
		return core.TeamSpectator
	case "red":
		return core.TeamRed
	case "blue":
		return core.TeamBlue
	default:
		return core.TeamOther
	}
}

// DemoToCore converts a GORM model.Demo to a core.DemoHeader.
func DemoToCore(d model.Demo) core.DemoHeader {
	return core.DemoHeader{
		Filename:        d.Filename,
		MapName:         d.MapName,
		Server:          d.Server,
		Duration:        d.Duration,
		Ticks:           d.Ticks,
		IntervalPerTick: d.IntervalPerTick,
		StartTime:       d.StartTime,
		Tag:             d.Tag,
	}
}

// DrawInfoToCore converts stored render extents.
func DrawInfoToCore(d model.DrawInfo) core.DrawInfo {
	return core.DrawInfo{
		MaxPlayers:     d.MaxPlayers,
		MaxProjectiles: d.MaxProjectiles,
		WorldMax: core.World{
			BoundMin: geo.VectorFromPoint(d.WorldMin),
			BoundMax: geo.VectorFromPoint(d.WorldMax),
		},
		PlayerAtMax: core.World{
			BoundMin: geo.VectorFromPoint(d.PlayerMin),
			BoundMax: geo.VectorFromPoint(d.PlayerMax),
		},
	}
}

// RoundToCore converts a GORM model.Round to a core.Round.
func RoundToCore(r model.Round) core.Round {
	return core.Round{
		Start:  core.Tick(r.StartTick),
		End:    core.Tick(r.EndTick),
		Winner: teamFromString(r.Winner),
	}
}

// KillEventToCore converts a GORM model.KillEvent to a core.Kill.
func KillEventToCore(e model.KillEvent) core.Kill {
	result := core.Kill{
		Tick:              core.Tick(e.Tick),
		DeadID:            core.UserID(e.DeadID),
		DeadEntity:        core.EntityID(e.DeadEntity),
		AttackerID:        core.UserID(e.AttackerID),
		InflictorID:       core.EntityID(e.InflictorID),
		Weapon:            e.Weapon,
		WeaponID:          e.WeaponID,
		DeadRocketJumping: e.DeadRocketJumping,
	}
	if e.AssisterID.Valid {
		id := core.UserID(e.AssisterID.Int32)
		result.AssisterID = &id
	}
	return result
}

// CaptureEventToCore converts a GORM model.CaptureEvent to a core.Capture.
func CaptureEventToCore(e model.CaptureEvent) core.Capture {
	return core.Capture{
		Tick:    core.Tick(e.Tick),
		CPIndex: e.CPIndex,
		CPName:  e.CPName,
		Team:    teamFromString(e.Team),
		Cappers: jsonToUserIDs(e.Cappers),
	}
}

// UberchargeEventToCore converts a GORM model.UberchargeEvent to a core.Ubercharge.
func UberchargeEventToCore(e model.UberchargeEvent) core.Ubercharge {
	return core.Ubercharge{
		Tick:     core.Tick(e.Tick),
		MedicID:  core.UserID(e.MedicID),
		UberedID: core.UserID(e.UberedID),
	}
}

// PlayerStateToPosition extracts the tick and position of a stored player state.
func PlayerStateToPosition(s model.PlayerState) (core.Tick, r3.Vector) {
	return core.Tick(s.Tick), geo.VectorFromPoint(s.Position)
}

// ProjectileTrailToPoints reads the positions back out of a stored LineStringZM.
func ProjectileTrailToPoints(p model.ProjectileTrail) []TrailPoint {
	return geo.PolylinePoints(p.Positions)
}
