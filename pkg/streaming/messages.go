package streaming

import (
	"encoding/json"

	"github.com/demolens/tickstate/pkg/core"
)

// Input message types, in the order a decoder emits them.
const (
	TypeHeader         = "header"
	TypeClassTable     = "class_table"
	TypeStringEntry    = "string_entry"
	TypeEntityUpdate   = "entity_update"
	TypeGameEvent      = "game_event"
	TypePacketBoundary = "packet_boundary"
)

// Output message types sent to snapshot consumers.
const (
	TypeStartDemo = "start_demo"
	TypeSnapshot  = "snapshot"
	TypeEndDemo   = "end_demo"
)

// Envelope wraps every message, on input and on output.
type Envelope struct {
	Type    string          `json:"type" jsonschema:"required"`
	Payload json.RawMessage `json:"payload"`
}

// AckMessage is the consumer's acknowledgement response.
type AckMessage struct {
	Type string `json:"type"` // always "ack"
	For  string `json:"for"`  // the message type being acknowledged
}

// Message is implemented by every decoded input payload.
type Message interface {
	MessageType() string
}

// Header describes the recording. It is optional and precedes everything else.
type Header struct {
	Filename        string  `json:"filename"`
	MapName         string  `json:"map"`
	Server          string  `json:"server,omitempty"`
	Duration        float32 `json:"duration"`
	Ticks           uint32  `json:"ticks"`
	IntervalPerTick float32 `json:"intervalPerTick,omitempty"`
}

func (Header) MessageType() string { return TypeHeader }

// ToCore converts the header to its domain form.
func (h Header) ToCore() core.DemoHeader {
	return core.DemoHeader{
		Filename:        h.Filename,
		MapName:         h.MapName,
		Server:          h.Server,
		Duration:        h.Duration,
		Ticks:           h.Ticks,
		IntervalPerTick: h.IntervalPerTick,
	}
}

// ClassTable announces the server class names, indexed by class id.
type ClassTable struct {
	Classes []string `json:"classes" jsonschema:"required"`
}

func (ClassTable) MessageType() string { return TypeClassTable }

// StringEntry is one string table entry update.
type StringEntry struct {
	Table string `json:"table" jsonschema:"required"`
	Index int    `json:"index"`
	Text  string `json:"text,omitempty"`
	Extra []byte `json:"extra,omitempty"` // base64 in JSON
}

func (StringEntry) MessageType() string { return TypeStringEntry }

// EntityUpdate carries the changed properties of one entity.
type EntityUpdate struct {
	Entity      core.EntityID `json:"entity" jsonschema:"required"`
	ServerClass int           `json:"class"`
	Kind        UpdateKind    `json:"kind" jsonschema:"enum=enter,enum=update,enum=preserve,enum=delete"`
	InPVS       bool          `json:"inPvs,omitempty"`
	Props       []Property    `json:"props,omitempty"`
}

func (EntityUpdate) MessageType() string { return TypeEntityUpdate }

// GameEventMessage carries one discrete game event.
type GameEventMessage struct {
	Event GameEvent
}

func (GameEventMessage) MessageType() string { return TypeGameEvent }

// PacketBoundary marks the start of a new packet at the given tick.
type PacketBoundary struct {
	Tick            core.Tick `json:"tick" jsonschema:"required"`
	IntervalPerTick float32   `json:"intervalPerTick"`
}

func (PacketBoundary) MessageType() string { return TypePacketBoundary }

// StartDemoPayload opens an output stream.
type StartDemoPayload struct {
	Header *core.DemoHeader `json:"header"`
}

// EndDemoPayload closes an output stream.
type EndDemoPayload struct {
	Rounds []core.Round   `json:"rounds"`
	Draw   *core.DrawInfo `json:"draw,omitempty"`
}
