package model

import (
	"database/sql"
	"time"

	geom "github.com/peterstace/simplefeatures/geom"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

////////////////////////
// DATABASE STRUCTURES //
////////////////////////

// DatabaseModels is a list of all the structs exported here which represent tables in the database schema
var DatabaseModels = []interface{}{
	&Demo{},
	&Round{},
	&PlayerState{},
	&BuildingState{},
	&ProjectileTrail{},
	&KillEvent{},
	&CaptureEvent{},
	&UberchargeEvent{},
	&IngestPerformance{},
}

// DatabaseModelsSQLite leaves out the tables that need PostGIS geometry types
var DatabaseModelsSQLite = []interface{}{
	&Demo{},
	&Round{},
	&PlayerState{},
	&BuildingState{},
	&KillEvent{},
	&CaptureEvent{},
	&UberchargeEvent{},
	&IngestPerformance{},
}

////////////////////////
// SYSTEM MODELS
////////////////////////

// IngestPerformance is written once per DB writer cycle
type IngestPerformance struct {
	Time                time.Time         `json:"time" gorm:"type:timestamptz;index:idx_time"`
	DemoID              uint              `json:"demoId" gorm:"index:idx_ingestperformance_demo_id"`
	Demo                Demo              `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;foreignkey:DemoID;"`
	WriteQueueLengths   WriteQueueLengths `json:"writeQueueLengths" gorm:"embedded;embeddedPrefix:writequeue_"`
	LastWriteDurationMs float32           `json:"lastWriteDurationMs"`
}

func (*IngestPerformance) TableName() string {
	return "ingest_performances"
}

// WriteQueueLengths is the model for the write queue lengths
type WriteQueueLengths struct {
	PlayerStates     uint32 `json:"playerStates"`
	BuildingStates   uint32 `json:"buildingStates"`
	KillEvents       uint32 `json:"killEvents"`
	CaptureEvents    uint32 `json:"captureEvents"`
	UberchargeEvents uint32 `json:"uberchargeEvents"`
}

////////////////////////
// DEMO
////////////////////////

// Demo is one reconstructed recording
type Demo struct {
	gorm.Model
	Filename        string    `json:"filename" gorm:"size:255"`
	MapName         string    `json:"mapName" gorm:"size:127;index:idx_demo_map_name"`
	Server          string    `json:"server" gorm:"size:255"`
	Duration        float32   `json:"duration"`
	Ticks           uint32    `json:"ticks"`
	IntervalPerTick float32   `json:"intervalPerTick"`
	StartTime       time.Time `json:"startTime" gorm:"type:timestamptz;index:idx_demo_start"`
	Tag             string    `json:"tag" gorm:"size:127"`
	StartTick       uint32    `json:"startTick"`
	EndTick         uint32    `json:"endTick"`

	Draw DrawInfo `json:"draw" gorm:"embedded;embeddedPrefix:draw_"`

	Rounds []Round
}

func (*Demo) TableName() string {
	return "demos"
}

// DrawInfo holds the render extents; points carry Z
type DrawInfo struct {
	MaxPlayers     uint32     `json:"maxPlayers"`
	MaxProjectiles uint32     `json:"maxProjectiles"`
	WorldMin       geom.Point `json:"worldMin"`
	WorldMax       geom.Point `json:"worldMax"`
	PlayerMin      geom.Point `json:"playerMin"`
	PlayerMax      geom.Point `json:"playerMax"`
}

// Round is a competitive segment of a demo
type Round struct {
	ID        uint   `json:"id" gorm:"primarykey;autoIncrement;"`
	DemoID    uint   `json:"demoId" gorm:"index:idx_round_demo_id"`
	Demo      Demo   `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;foreignkey:DemoID;"`
	Number    uint16 `json:"number"`
	StartTick uint32 `json:"startTick"`
	EndTick   uint32 `json:"endTick"` // 0 while the round is open
	Winner    string `json:"winner" gorm:"size:16"`
}

func (*Round) TableName() string {
	return "rounds"
}

////////////////////////
// STATES
////////////////////////

// PlayerState is one player at one tick
type PlayerState struct {
	ID     uint   `json:"id" gorm:"primarykey;autoIncrement;"`
	DemoID uint   `json:"demoId" gorm:"index:idx_playerstate_demo_id"`
	Demo   Demo   `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;foreignkey:DemoID;"`
	Tick   uint32 `json:"tick" gorm:"index:idx_playerstate_tick"`
	Entity uint32 `json:"entity" gorm:"index:idx_playerstate_entity"`

	UserID    uint16 `json:"userId"`
	Name      string `json:"name" gorm:"size:64"`
	SteamID64 int64  `json:"steamId64" gorm:"index:idx_playerstate_steam_id"` // 0 when unknown

	Position   geom.Point `json:"position"` // engine units, Z set
	ViewAngle  float32    `json:"viewAngle"`
	PitchAngle float32    `json:"pitchAngle"`
	Health     uint16     `json:"health"`
	MaxHealth  uint16     `json:"maxHealth"`
	Class      string     `json:"class" gorm:"size:16"`
	Team       string     `json:"team" gorm:"size:16"`
	LifeState  uint8      `json:"lifeState" gorm:"default:0"`
	Charge     uint8      `json:"charge" gorm:"default:0"`
	Ping       uint16     `json:"ping"`
	InPVS      bool       `json:"inPvs" gorm:"default:false"`

	// Medic only
	IsHealing  bool   `json:"isHealing" gorm:"default:false"`
	HealTarget uint32 `json:"healTarget"`
}

func (*PlayerState) TableName() string {
	return "player_states"
}

// BuildingState is one engineer building at one tick
type BuildingState struct {
	ID     uint   `json:"id" gorm:"primarykey;autoIncrement;"`
	DemoID uint   `json:"demoId" gorm:"index:idx_buildingstate_demo_id"`
	Demo   Demo   `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;foreignkey:DemoID;"`
	Tick   uint32 `json:"tick" gorm:"index:idx_buildingstate_tick"`
	Entity uint32 `json:"entity"`

	Kind         string     `json:"kind" gorm:"size:16"`
	Builder      uint16     `json:"builder"`
	Team         string     `json:"team" gorm:"size:16"`
	Position     geom.Point `json:"position"`
	Angle        float32    `json:"angle"`
	Level        uint8      `json:"level"`
	Health       uint16     `json:"health"`
	MaxHealth    uint16     `json:"maxHealth"`
	Constructing bool       `json:"constructing" gorm:"default:false"`
	Sapped       bool       `json:"sapped" gorm:"default:false"`

	// Sentry
	IsMini  bool   `json:"isMini" gorm:"default:false"`
	Shells  uint16 `json:"shells"`
	Rockets uint16 `json:"rockets"`

	// Dispenser
	Metal   uint16         `json:"metal"`
	Healing datatypes.JSON `json:"healing"` // user ids

	// Teleporter
	IsEntrance bool   `json:"isEntrance" gorm:"default:false"`
	TimesUsed  uint16 `json:"timesUsed"`
}

func (*BuildingState) TableName() string {
	return "building_states"
}

// ProjectileTrail is the full flight of one projectile entity
type ProjectileTrail struct {
	ID        uint   `json:"id" gorm:"primarykey;autoIncrement;"`
	DemoID    uint   `json:"demoId" gorm:"index:idx_projectile_demo_id"`
	Demo      Demo   `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;foreignkey:DemoID;"`
	Entity    uint32 `json:"entity"`
	Kind      string `json:"kind" gorm:"size:32"`
	Shooter   uint16 `json:"shooter" gorm:"index:idx_projectile_shooter"`
	Team      string `json:"team" gorm:"size:16"`
	FirstTick uint32 `json:"firstTick"`
	LastTick  uint32 `json:"lastTick"`

	Positions geom.Geometry `json:"-"` // LineStringZM of positions over time [x,y,z,tick]
}

func (*ProjectileTrail) TableName() string {
	return "projectile_trails"
}

////////////////////////
// EVENTS
////////////////////////

// KillEvent is one player death
type KillEvent struct {
	ID                uint          `json:"id" gorm:"primarykey;autoIncrement;"`
	DemoID            uint          `json:"demoId" gorm:"index:idx_kill_demo_id"`
	Demo              Demo          `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;foreignkey:DemoID;"`
	Tick              uint32        `json:"tick" gorm:"index:idx_kill_tick"`
	DeadID            uint16        `json:"deadId"`
	DeadEntity        uint32        `json:"deadEntity"`
	AttackerID        uint16        `json:"attackerId"`
	InflictorID       uint32        `json:"inflictorId"`
	AssisterID        sql.NullInt32 `json:"assisterId" gorm:"default:NULL"`
	Weapon            string        `json:"weapon" gorm:"size:64"`
	WeaponID          uint16        `json:"weaponId"`
	DeadRocketJumping bool          `json:"deadRocketJumping" gorm:"default:false"`
}

func (*KillEvent) TableName() string {
	return "kill_events"
}

// CaptureEvent is one control point capture
type CaptureEvent struct {
	ID      uint           `json:"id" gorm:"primarykey;autoIncrement;"`
	DemoID  uint           `json:"demoId" gorm:"index:idx_capture_demo_id"`
	Demo    Demo           `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;foreignkey:DemoID;"`
	Tick    uint32         `json:"tick"`
	CPIndex uint8          `json:"cpIndex"`
	CPName  string         `json:"cpName" gorm:"size:64"`
	Team    string         `json:"team" gorm:"size:16"`
	Cappers datatypes.JSON `json:"cappers"`
}

func (*CaptureEvent) TableName() string {
	return "capture_events"
}

// UberchargeEvent is one deployed charge
type UberchargeEvent struct {
	ID       uint   `json:"id" gorm:"primarykey;autoIncrement;"`
	DemoID   uint   `json:"demoId" gorm:"index:idx_ubercharge_demo_id"`
	Demo     Demo   `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;foreignkey:DemoID;"`
	Tick     uint32 `json:"tick"`
	MedicID  uint16 `json:"medicId"`
	UberedID uint16 `json:"uberedId"`
}

func (*UberchargeEvent) TableName() string {
	return "ubercharge_events"
}
