package parser

import (
	"log/slog"

	"github.com/demolens/tickstate/internal/handles"
	"github.com/demolens/tickstate/internal/state"
	"github.com/demolens/tickstate/pkg/core"
	"github.com/demolens/tickstate/pkg/streaming"
)

// propID is a (table, field) property identifier.
type propID struct {
	table string
	name  string
}

func idOf(p streaming.Property) propID {
	return propID{table: p.Table, name: p.Name}
}

// Properties shared by several entity kinds.
var (
	baseOrigin      = propID{"DT_BaseEntity", "m_vecOrigin"}
	baseTeam        = propID{"DT_BaseEntity", "m_iTeamNum"}
	baseRotation    = propID{"DT_BaseEntity", "m_angRotation"}
	baseOwnerEntity = propID{"DT_BaseEntity", "m_hOwnerEntity"}
	weaponOwner     = propID{"DT_BaseCombatWeapon", "m_hOwner"}
)

// Parser holds the per-class decoders. Each decoder writes resolved values
// into the Store; owner bearing classes go through the handle map first.
// A Parser belongs to one worker and is not safe for concurrent use.
type Parser struct {
	logger  *slog.Logger
	store   *state.Store
	handles *handles.Map

	// last seen heal target handle per medigun, re-resolved on every update
	healTargets map[core.EntityID]handles.Handle
	// builder and sentry target handles per building
	buildingRefs map[core.EntityID]buildingHandles
}

// NewParser creates a parser writing into store.
func NewParser(logger *slog.Logger, store *state.Store, hm *handles.Map) *Parser {
	return &Parser{
		logger:       logger,
		store:        store,
		handles:      hm,
		healTargets:  make(map[core.EntityID]handles.Handle),
		buildingRefs: make(map[core.EntityID]buildingHandles),
	}
}

// userIDOfEntity returns the user id of the player entity, or 0.
func (p *Parser) userIDOfEntity(id core.EntityID) core.UserID {
	if id == 0 {
		return 0
	}
	player, ok := p.store.FindPlayer(id)
	if !ok {
		return 0
	}
	uid, _ := player.UserID()
	return uid
}

// userIDOfHandle resolves a handle to the user id of a player, or 0.
func (p *Parser) userIDOfHandle(h handles.Handle) core.UserID {
	id, ok := p.handles.ResolveHandle(h)
	if !ok {
		return 0
	}
	return p.userIDOfEntity(id)
}

func handleOf(v streaming.Value) handles.Handle {
	return handles.Handle(uint32(v.AsInt()))
}

// yawOf reads an angle property that may be sent as a single float or as a
// full rotation vector.
func yawOf(v streaming.Value) float32 {
	if v.Kind == streaming.KindVector {
		return float32(v.AsVector().Y)
	}
	return v.AsFloat()
}
