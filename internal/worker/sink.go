package worker

import (
	"fmt"
	"sync"

	"github.com/demolens/tickstate/internal/dispatcher"
	"github.com/demolens/tickstate/internal/storage"
	"github.com/demolens/tickstate/pkg/core"
)

const cmdSnapshot = "snapshot"

// sink hands snapshots to the storage backend on a separate goroutine. The
// engine never waits for storage unless the queue is full.
type sink struct {
	backend    storage.Backend
	dispatcher *dispatcher.Dispatcher

	mu      sync.Mutex
	queue   int
	started bool
	drained bool
}

func newSink(logger dispatcher.Logger, backend storage.Backend, size int) (*sink, error) {
	d, err := dispatcher.New(logger)
	if err != nil {
		return nil, err
	}
	s := &sink{backend: backend, dispatcher: d}
	d.Register(cmdSnapshot, s.handleSnapshot, dispatcher.Buffered(size))
	return s, nil
}

func (s *sink) handleSnapshot(e dispatcher.Event) (any, error) {
	defer s.dequeue()
	snap := e.Payload.(*core.Snapshot)
	if err := s.backend.RecordSnapshot(snap); err != nil {
		return nil, fmt.Errorf("recording tick %d: %w", snap.Tick, err)
	}
	return nil, nil
}

// start announces the demo to the backend once. A nil header announces an
// empty one.
func (s *sink) start(h *core.DemoHeader) error {
	if s.backend == nil || s.started {
		return nil
	}
	if h == nil {
		h = &core.DemoHeader{}
	}
	s.started = true
	if err := s.backend.StartDemo(h); err != nil {
		return fmt.Errorf("starting demo: %w", err)
	}
	return nil
}

func (s *sink) record(snap *core.Snapshot) {
	if s.backend == nil {
		return
	}
	s.mu.Lock()
	s.queue++
	s.mu.Unlock()
	// buffered routes only fail on an unregistered type
	_, _ = s.dispatcher.Dispatch(dispatcher.Event{Type: cmdSnapshot, Payload: snap})
}

func (s *sink) dequeue() {
	s.mu.Lock()
	s.queue--
	s.mu.Unlock()
}

func (s *sink) queued() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.queue
}

// failed returns how many snapshots the backend rejected.
func (s *sink) failed() uint64 {
	return s.dispatcher.Failed()[cmdSnapshot]
}

// drain waits until every queued snapshot reached the backend.
func (s *sink) drain() {
	s.mu.Lock()
	if s.drained {
		s.mu.Unlock()
		return
	}
	s.drained = true
	s.mu.Unlock()
	s.dispatcher.Drain()
}

// end closes the demo. It must follow drain.
func (s *sink) end(rounds []core.Round, draw *core.DrawInfo) error {
	if s.backend == nil {
		return nil
	}
	if err := s.backend.EndDemo(rounds, draw); err != nil {
		return fmt.Errorf("ending demo: %w", err)
	}
	return nil
}
