// Package engine folds an ordered stream of decoded demo messages into one
// snapshot per tick.
package engine

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/demolens/tickstate/internal/classes"
	"github.com/demolens/tickstate/internal/dispatcher"
	"github.com/demolens/tickstate/internal/events"
	"github.com/demolens/tickstate/internal/handles"
	"github.com/demolens/tickstate/internal/parser"
	"github.com/demolens/tickstate/internal/state"
	"github.com/demolens/tickstate/pkg/core"
	"github.com/demolens/tickstate/pkg/streaming"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// DefaultIntervalPerTick is used when neither the boundary nor the header
// carries an interval.
const DefaultIntervalPerTick = 0.015

// Engine is the tick state reconstruction engine. It is a strictly
// sequential fold and must be fed from a single goroutine.
type Engine struct {
	logger     *slog.Logger
	dispatcher *dispatcher.Dispatcher

	// session scoped
	header  *core.DemoHeader
	router  *classes.Router
	handles *handles.Map

	// per tick
	store *state.Store

	parser     *parser.Parser
	classifier *events.Classifier
	finished   bool

	updates metric.Int64Counter
	ticks   metric.Int64Counter
	events  metric.Int64Counter
}

// New creates an engine and registers its message handlers.
func New(logger *slog.Logger) (*Engine, error) {
	d, err := dispatcher.New(logger)
	if err != nil {
		return nil, fmt.Errorf("creating dispatcher: %w", err)
	}

	store := state.NewStore()
	hm := handles.New()
	e := &Engine{
		logger:     logger,
		dispatcher: d,
		router:     classes.NewRouter(),
		handles:    hm,
		store:      store,
		parser:     parser.NewParser(logger, store, hm),
		classifier: events.NewClassifier(store),
	}
	if err := e.initMetrics(); err != nil {
		return nil, err
	}

	d.Register(streaming.TypeHeader, e.handleHeader)
	d.Register(streaming.TypeClassTable, e.handleClassTable, dispatcher.Logged())
	d.Register(streaming.TypeStringEntry, e.handleStringEntry)
	d.Register(streaming.TypeEntityUpdate, e.handleEntityUpdate)
	d.Register(streaming.TypeGameEvent, e.handleGameEvent)
	d.Register(streaming.TypePacketBoundary, e.handlePacketBoundary)

	return e, nil
}

func (e *Engine) initMetrics() error {
	m := meter()
	var err error

	e.updates, err = m.Int64Counter(
		"engine.entity.updates",
		metric.WithDescription("Entity updates routed to a decoder"),
	)
	if err != nil {
		return fmt.Errorf("creating updates counter: %w", err)
	}

	e.ticks, err = m.Int64Counter(
		"engine.ticks",
		metric.WithDescription("Tick snapshots emitted"),
	)
	if err != nil {
		return fmt.Errorf("creating ticks counter: %w", err)
	}

	e.events, err = m.Int64Counter(
		"engine.game.events",
		metric.WithDescription("Game events applied to the world state"),
	)
	if err != nil {
		return fmt.Errorf("creating events counter: %w", err)
	}
	return nil
}

// Feed applies one message. When the message closes a tick, the snapshot of
// that tick is returned.
func (e *Engine) Feed(msg streaming.Message) (*core.Snapshot, error) {
	if e.finished {
		return nil, fmt.Errorf("engine already finished")
	}
	result, err := e.dispatcher.Dispatch(dispatcher.Event{
		Type:    msg.MessageType(),
		Payload: msg,
	})
	if err != nil {
		return nil, err
	}
	snap, _ := result.(*core.Snapshot)
	return snap, nil
}

// Finish closes the tick in progress and returns its snapshot, if any tick
// was started. The engine accepts no further messages.
func (e *Engine) Finish() *core.Snapshot {
	if e.finished {
		return nil
	}
	e.finished = true
	if !e.store.Open() {
		return nil
	}
	return e.emit()
}

// MessageCounts returns how many messages of each type have been applied.
func (e *Engine) MessageCounts() map[string]uint64 {
	return e.dispatcher.Counts()
}

// Header returns the recording header, or nil if none was announced.
func (e *Engine) Header() *core.DemoHeader {
	return e.header
}

// State exposes the state being assembled. Callers must not modify it.
func (e *Engine) State() *core.Snapshot {
	return e.store.Peek()
}

// ClassName returns the name of a server class, or "".
func (e *Engine) ClassName(index int) string {
	return e.router.ClassName(index)
}

func (e *Engine) emit() *core.Snapshot {
	snap := e.store.Snapshot()
	e.ticks.Add(context.Background(), 1)
	return &snap
}

func (e *Engine) handleHeader(ev dispatcher.Event) (any, error) {
	h := ev.Payload.(streaming.Header).ToCore()
	e.header = &h
	return nil, nil
}

func (e *Engine) handleClassTable(ev dispatcher.Event) (any, error) {
	ct := ev.Payload.(streaming.ClassTable)
	e.router.SetClassTable(ct.Classes)
	return nil, nil
}

func (e *Engine) handleStringEntry(ev dispatcher.Event) (any, error) {
	entry := ev.Payload.(streaming.StringEntry)
	if err := e.parser.ParseUserInfo(entry); err != nil {
		// malformed entries are skipped, the player stays unidentified
		e.logger.Debug("Skipping string table entry", "table", entry.Table, "index", entry.Index, "error", err)
	}
	return nil, nil
}

// Properties through which an entity announces its own handle.
var outerHandles = [...]struct{ table, name string }{
	{"DT_AttributeContainer", "m_hOuter"},
	{"DT_AttributeManager", "m_hOuter"},
}

func (e *Engine) handleEntityUpdate(ev dispatcher.Event) (any, error) {
	u := ev.Payload.(streaming.EntityUpdate)

	if u.Kind != streaming.UpdateDelete {
		for _, prop := range u.Props {
			for _, outer := range outerHandles {
				if prop.Is(outer.table, outer.name) {
					if h := handles.Handle(uint32(prop.Value.AsInt())); h != 0 {
						e.handles.RegisterAlias(u.Entity, h)
					}
				}
			}
		}
	}

	route := e.router.Route(u.ServerClass)
	switch route.Kind {
	case classes.KindPlayer:
		e.parser.ParsePlayer(u)
	case classes.KindPlayerResource:
		e.parser.ParsePlayerResource(u)
	case classes.KindWorld:
		e.parser.ParseWorld(u)
	case classes.KindSentry:
		e.parser.ParseBuilding(u, core.BuildingSentry)
	case classes.KindDispenser:
		e.parser.ParseBuilding(u, core.BuildingDispenser)
	case classes.KindTeleporter:
		e.parser.ParseBuilding(u, core.BuildingTeleporter)
	case classes.KindMedigun:
		e.parser.ParseMedigun(u)
	case classes.KindWeapon:
		e.parser.ParseWeapon(u, route.Class, route.Slot)
	case classes.KindProjectile:
		e.parser.ParseProjectile(u, route.Projectile)
	default:
		return nil, nil
	}
	e.updates.Add(context.Background(), 1, metric.WithAttributes(attribute.String("kind", route.Kind.String())))
	return nil, nil
}

func (e *Engine) handleGameEvent(ev dispatcher.Event) (any, error) {
	ge := ev.Payload.(streaming.GameEventMessage)
	if ge.Event == nil {
		return nil, nil
	}
	if e.classifier.Apply(ge.Event) {
		e.events.Add(context.Background(), 1, metric.WithAttributes(attribute.String("kind", ge.Event.Kind())))
	}
	return nil, nil
}

// handlePacketBoundary closes the open tick and starts the next one. A
// boundary repeating the open tick changes nothing.
func (e *Engine) handlePacketBoundary(ev dispatcher.Event) (any, error) {
	pb := ev.Payload.(streaming.PacketBoundary)
	if e.store.Open() && pb.Tick == e.store.Tick() {
		return nil, nil
	}

	var out *core.Snapshot
	if e.store.Open() {
		out = e.emit()
	}

	dt := e.intervalPerTick(pb)
	e.store.AgePlayers(dt)
	e.store.BeginTick(pb.Tick, dt)

	if out == nil {
		return nil, nil
	}
	return out, nil
}

func (e *Engine) intervalPerTick(pb streaming.PacketBoundary) float32 {
	if pb.IntervalPerTick > 0 {
		return pb.IntervalPerTick
	}
	if e.header != nil && e.header.IntervalPerTick > 0 {
		return e.header.IntervalPerTick
	}
	return DefaultIntervalPerTick
}
