package storage

import (
	"errors"
	"time"

	"github.com/demolens/tickstate/pkg/core"
)

// Multi fans every call out to a list of backends in order. A failing
// backend does not stop the others; the errors are joined.
type Multi struct {
	backends []Backend
}

// NewMulti wraps the given backends. Nil entries are skipped.
func NewMulti(backends ...Backend) *Multi {
	m := &Multi{}
	for _, b := range backends {
		if b != nil {
			m.backends = append(m.backends, b)
		}
	}
	return m
}

// Backends returns the wrapped backends.
func (m *Multi) Backends() []Backend {
	return m.backends
}

func (m *Multi) each(fn func(Backend) error) error {
	var errs []error
	for _, b := range m.backends {
		if err := fn(b); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (m *Multi) Init() error {
	return m.each(Backend.Init)
}

// Close closes the backends in reverse order.
func (m *Multi) Close() error {
	var errs []error
	for i := len(m.backends) - 1; i >= 0; i-- {
		if err := m.backends[i].Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (m *Multi) StartDemo(header *core.DemoHeader) error {
	return m.each(func(b Backend) error { return b.StartDemo(header) })
}

func (m *Multi) EndDemo(rounds []core.Round, draw *core.DrawInfo) error {
	return m.each(func(b Backend) error { return b.EndDemo(rounds, draw) })
}

func (m *Multi) RecordSnapshot(snap *core.Snapshot) error {
	return m.each(func(b Backend) error { return b.RecordSnapshot(snap) })
}

// Uploadable returns the first wrapped backend that produces an upload file.
func (m *Multi) Uploadable() (Uploadable, bool) {
	for _, b := range m.backends {
		if u, ok := b.(Uploadable); ok {
			return u, true
		}
	}
	return nil, false
}

// GetLastDBWriteDuration reports the write duration of the first wrapped
// backend that tracks one.
func (m *Multi) GetLastDBWriteDuration() time.Duration {
	for _, b := range m.backends {
		if p, ok := b.(interface{ GetLastDBWriteDuration() time.Duration }); ok {
			return p.GetLastDBWriteDuration()
		}
	}
	return 0
}
