package streaming

import (
	"encoding/json"
	"fmt"
)

// Game event kinds consumed by the engine. Any other kind decodes to Unknown.
const (
	EventRoundStart         = "round_start"
	EventTeamPlayRoundStart = "teamplay_round_start"
	EventTeamPlayRoundWin   = "teamplay_round_win"
	EventRoundStalemate     = "teamplay_round_stalemate"
	EventPlayerDeath        = "player_death"
	EventPointCaptured      = "teamplay_point_captured"
	EventChargeDeployed     = "player_chargedeployed"
	EventPlayerHurt         = "player_hurt"
	EventObjectDestroyed    = "object_destroyed"
)

// GameEvent is a discrete event decoded from the stream.
type GameEvent interface {
	Kind() string
}

type RoundStart struct {
	TimeLimit uint32 `json:"timelimit"`
	FragLimit uint32 `json:"fraglimit"`
	Objective string `json:"objective"`
}

type TeamPlayRoundStart struct {
	FullReset bool `json:"full_reset"`
}

type TeamPlayRoundWin struct {
	Team      uint8   `json:"team"`
	WinReason uint8   `json:"winreason"`
	RoundTime float32 `json:"round_time"`
}

type RoundStalemate struct {
	Reason uint8 `json:"reason"`
}

type PlayerDeath struct {
	UserID            uint16 `json:"userid"`
	VictimEntIndex    uint32 `json:"victim_entindex"`
	InflictorEntIndex uint32 `json:"inflictor_entindex"`
	Attacker          uint16 `json:"attacker"`
	Weapon            string `json:"weapon"`
	WeaponID          uint16 `json:"weaponid"`
	Assister          uint16 `json:"assister"`
	RocketJump        bool   `json:"rocket_jump"`
}

// PointCaptured lists the capping players as one byte per user id.
type PointCaptured struct {
	CP      uint8  `json:"cp"`
	CPName  string `json:"cpname"`
	Team    uint8  `json:"team"`
	Cappers string `json:"cappers"`
}

type ChargeDeployed struct {
	UserID   uint16 `json:"userid"`
	TargetID uint16 `json:"targetid"`
}

type PlayerHurt struct {
	UserID       uint16 `json:"userid"`
	Health       uint16 `json:"health"`
	Attacker     uint16 `json:"attacker"`
	DamageAmount uint16 `json:"damageamount"`
	Crit         bool   `json:"crit"`
}

type ObjectDestroyed struct {
	UserID     uint16 `json:"userid"`
	Attacker   uint16 `json:"attacker"`
	Weapon     string `json:"weapon"`
	ObjectType uint16 `json:"objecttype"`
	Index      uint32 `json:"index"`
}

// Unknown is any event the engine does not interpret.
type Unknown struct {
	Name string `json:"-"`
}

func (RoundStart) Kind() string         { return EventRoundStart }
func (TeamPlayRoundStart) Kind() string { return EventTeamPlayRoundStart }
func (TeamPlayRoundWin) Kind() string   { return EventTeamPlayRoundWin }
func (RoundStalemate) Kind() string     { return EventRoundStalemate }
func (PlayerDeath) Kind() string        { return EventPlayerDeath }
func (PointCaptured) Kind() string      { return EventPointCaptured }
func (ChargeDeployed) Kind() string     { return EventChargeDeployed }
func (PlayerHurt) Kind() string         { return EventPlayerHurt }
func (ObjectDestroyed) Kind() string    { return EventObjectDestroyed }
func (u Unknown) Kind() string          { return u.Name }

// CapperIDs returns the user ids of the capping players.
func (e PointCaptured) CapperIDs() []uint16 {
	ids := make([]uint16, 0, len(e.Cappers))
	for _, b := range []byte(e.Cappers) {
		ids = append(ids, uint16(b))
	}
	return ids
}

func decodeInto[T GameEvent](raw json.RawMessage) (GameEvent, error) {
	var ev T
	if len(raw) == 0 {
		return ev, nil
	}
	if err := json.Unmarshal(raw, &ev); err != nil {
		return nil, err
	}
	return ev, nil
}

var eventDecoders = map[string]func(json.RawMessage) (GameEvent, error){
	EventRoundStart:         decodeInto[RoundStart],
	EventTeamPlayRoundStart: decodeInto[TeamPlayRoundStart],
	EventTeamPlayRoundWin:   decodeInto[TeamPlayRoundWin],
	EventRoundStalemate:     decodeInto[RoundStalemate],
	EventPlayerDeath:        decodeInto[PlayerDeath],
	EventPointCaptured:      decodeInto[PointCaptured],
	EventChargeDeployed:     decodeInto[ChargeDeployed],
	EventPlayerHurt:         decodeInto[PlayerHurt],
	EventObjectDestroyed:    decodeInto[ObjectDestroyed],
}

// DecodeGameEvent decodes the fields of an event of the given kind.
func DecodeGameEvent(kind string, fields json.RawMessage) (GameEvent, error) {
	decode, ok := eventDecoders[kind]
	if !ok {
		return Unknown{Name: kind}, nil
	}
	ev, err := decode(fields)
	if err != nil {
		return nil, fmt.Errorf("error decoding %s event: %w", kind, err)
	}
	return ev, nil
}

type gameEventJSON struct {
	Kind   string          `json:"kind"`
	Fields json.RawMessage `json:"fields,omitempty"`
}

func (m GameEventMessage) MarshalJSON() ([]byte, error) {
	if m.Event == nil {
		return nil, fmt.Errorf("game event message without event")
	}
	var fields json.RawMessage
	if _, unknown := m.Event.(Unknown); !unknown {
		b, err := json.Marshal(m.Event)
		if err != nil {
			return nil, err
		}
		fields = b
	}
	return json.Marshal(gameEventJSON{Kind: m.Event.Kind(), Fields: fields})
}

func (m *GameEventMessage) UnmarshalJSON(data []byte) error {
	var w gameEventJSON
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	if w.Kind == "" {
		return fmt.Errorf("game event without kind")
	}
	ev, err := DecodeGameEvent(w.Kind, w.Fields)
	if err != nil {
		return err
	}
	m.Event = ev
	return nil
}
