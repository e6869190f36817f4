// Package events applies discrete game events to the world state: round
// bookkeeping and the per tick kill, capture and charge lists.
package events

import (
	"github.com/demolens/tickstate/internal/state"
	"github.com/demolens/tickstate/pkg/core"
	"github.com/demolens/tickstate/pkg/streaming"
)

// WinReasonTimeLimit is the win reason of a round decided by the clock.
const WinReasonTimeLimit = 6

// assisterLimit marks raw assister values that encode "no assister".
const assisterLimit = 16 * 1024

// Classifier routes game events into a Store.
type Classifier struct {
	store *state.Store
}

func NewClassifier(store *state.Store) *Classifier {
	return &Classifier{store: store}
}

// Apply interprets one event at the store's current tick and reports whether
// the event kind is one the classifier handles.
func (c *Classifier) Apply(ev streaming.GameEvent) bool {
	tick := c.store.Tick()

	switch e := ev.(type) {
	case streaming.RoundStart:
		c.store.ClearBuildings()
	case streaming.TeamPlayRoundStart:
		c.store.ClearBuildings()
		c.store.StartRound()
	case streaming.TeamPlayRoundWin:
		winner := core.TeamFromInt(int64(e.Team))
		if e.WinReason == WinReasonTimeLimit {
			winner = core.TeamOther
		}
		c.store.EndRound(winner)
	case streaming.RoundStalemate:
		c.store.EndRound(core.TeamOther)
	case streaming.PlayerDeath:
		c.store.AddKill(KillFromEvent(tick, e))
	case streaming.PointCaptured:
		c.store.AddCapture(CaptureFromEvent(tick, e))
	case streaming.ChargeDeployed:
		c.store.AddUbercharge(core.Ubercharge{
			Tick:     tick,
			MedicID:  core.UserID(e.UserID),
			UberedID: core.UserID(e.TargetID),
		})
	case streaming.PlayerHurt:
		if p, ok := c.store.PlayerByUserID(core.UserID(e.UserID)); ok {
			p.TimeSinceLastHurt = 0
		}
	case streaming.ObjectDestroyed:
		c.store.RemoveBuilding(core.EntityID(e.Index))
	default:
		return false
	}
	return true
}

// KillFromEvent builds the kill record of a death event.
func KillFromEvent(tick core.Tick, e streaming.PlayerDeath) core.Kill {
	k := core.Kill{
		Tick:              tick,
		DeadID:            core.UserID(e.UserID),
		DeadEntity:        core.EntityID(e.VictimEntIndex),
		AttackerID:        core.UserID(e.Attacker),
		InflictorID:       core.EntityID(e.InflictorEntIndex),
		Weapon:            e.Weapon,
		WeaponID:          e.WeaponID,
		DeadRocketJumping: e.RocketJump,
	}
	if e.Assister < assisterLimit {
		a := core.UserID(e.Assister)
		k.AssisterID = &a
	}
	return k
}

// CaptureFromEvent builds the capture record of a point captured event.
func CaptureFromEvent(tick core.Tick, e streaming.PointCaptured) core.Capture {
	ids := e.CapperIDs()
	cappers := make([]core.UserID, len(ids))
	for i, id := range ids {
		cappers[i] = core.UserID(id)
	}
	return core.Capture{
		Tick:    tick,
		CPIndex: e.CP,
		CPName:  e.CPName,
		Team:    core.TeamFromInt(int64(e.Team)),
		Cappers: cappers,
	}
}
