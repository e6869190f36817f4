package logging

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"

	"github.com/demolens/tickstate/pkg/core"
)

// Position is where in the stream the running job is. While a job is
// active every record is tagged with it.
type Position struct {
	active atomic.Bool
	demo   atomic.Pointer[string]
	tick   atomic.Uint32
	entity atomic.Uint32
}

// SetDemo starts tagging records. name may be empty until the header arrives.
func (p *Position) SetDemo(name string) {
	p.demo.Store(&name)
	p.active.Store(true)
}

// SetTick records the last tick boundary passed and forgets the entity.
func (p *Position) SetTick(t core.Tick) {
	p.tick.Store(uint32(t))
	p.entity.Store(0)
}

// SetEntity records the entity being decoded. Zero means none.
func (p *Position) SetEntity(id core.EntityID) {
	p.entity.Store(uint32(id))
}

// Clear stops tagging records.
func (p *Position) Clear() {
	p.active.Store(false)
	p.demo.Store(nil)
	p.tick.Store(0)
	p.entity.Store(0)
}

func (p *Position) attrs() []slog.Attr {
	if p == nil || !p.active.Load() {
		return nil
	}
	attrs := make([]slog.Attr, 0, 3)
	if d := p.demo.Load(); d != nil && *d != "" {
		attrs = append(attrs, slog.String("demo", *d))
	}
	attrs = append(attrs, slog.Uint64("tick", uint64(p.tick.Load())))
	if e := p.entity.Load(); e != 0 {
		attrs = append(attrs, slog.Uint64("entity", uint64(e)))
	}
	return attrs
}

// fanout hands each record to every sink that accepts its level, tagged
// with the current stream position.
type fanout struct {
	sinks []slog.Handler
	pos   *Position
}

func newFanout(pos *Position, sinks ...slog.Handler) *fanout {
	h := &fanout{pos: pos}
	for _, s := range sinks {
		if s != nil {
			h.sinks = append(h.sinks, s)
		}
	}
	return h
}

func (h *fanout) Enabled(ctx context.Context, level slog.Level) bool {
	for _, s := range h.sinks {
		if s.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

// Handle keeps going when a sink fails and returns every sink error joined.
func (h *fanout) Handle(ctx context.Context, r slog.Record) error {
	if attrs := h.pos.attrs(); len(attrs) > 0 {
		r = r.Clone()
		r.AddAttrs(attrs...)
	}
	var errs []error
	for _, s := range h.sinks {
		if !s.Enabled(ctx, r.Level) {
			continue
		}
		if err := s.Handle(ctx, r.Clone()); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (h *fanout) WithAttrs(attrs []slog.Attr) slog.Handler {
	return h.derive(func(s slog.Handler) slog.Handler { return s.WithAttrs(attrs) })
}

func (h *fanout) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	return h.derive(func(s slog.Handler) slog.Handler { return s.WithGroup(name) })
}

func (h *fanout) derive(f func(slog.Handler) slog.Handler) *fanout {
	sinks := make([]slog.Handler, len(h.sinks))
	for i, s := range h.sinks {
		sinks[i] = f(s)
	}
	return &fanout{sinks: sinks, pos: h.pos}
}
