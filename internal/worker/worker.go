package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/demolens/tickstate/internal/config"
	"github.com/demolens/tickstate/internal/dispatcher"
	"github.com/demolens/tickstate/internal/storage"
	"github.com/demolens/tickstate/internal/streamio"
	"github.com/demolens/tickstate/pkg/core"
)

// ErrCancelled is wrapped into the error report of a cancelled job.
var ErrCancelled = errors.New("reconstruction cancelled")

// Tracker follows the stream position of the running job, for log context.
type Tracker interface {
	SetDemo(name string)
	SetTick(t core.Tick)
	SetEntity(id core.EntityID)
	Clear()
}

type noTracker struct{}

func (noTracker) SetDemo(string)          {}
func (noTracker) SetTick(core.Tick)       {}
func (noTracker) SetEntity(core.EntityID) {}
func (noTracker) Clear()                  {}

// Dependencies holds all dependencies for the worker manager
type Dependencies struct {
	Logger     *slog.Logger
	SinkLogger dispatcher.Logger // defaults to Logger
	Tracker    Tracker           // may be nil
	Backend    storage.Backend   // may be nil
	Config     config.WorkerConfig
}

// Manager starts reconstruction jobs and keeps track of the running one.
type Manager struct {
	deps Dependencies

	mu      sync.RWMutex
	current *Job
}

// NewManager creates a new worker manager
func NewManager(deps Dependencies) *Manager {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.Tracker == nil {
		deps.Tracker = noTracker{}
	}
	if deps.Config.ProgressBuffer <= 0 {
		deps.Config.ProgressBuffer = 64
	}
	if deps.Config.SinkBuffer <= 0 {
		deps.Config.SinkBuffer = 1024
	}
	return &Manager{deps: deps}
}

// Start runs the engine over src in a new goroutine.
func (m *Manager) Start(ctx context.Context, src streamio.Source) (*Job, error) {
	if src == nil {
		return nil, fmt.Errorf("stream source must be provided")
	}
	job := newJob(m.deps, src)

	m.mu.Lock()
	m.current = job
	m.mu.Unlock()

	go job.run(ctx)
	return job, nil
}

// Current returns the most recently started job, or nil.
func (m *Manager) Current() *Job {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.current
}

// DBWriteDurationProvider is an optional interface that backends can implement
// to expose their last DB write duration for monitoring.
type DBWriteDurationProvider interface {
	GetLastDBWriteDuration() time.Duration
}

// GetLastDBWriteDuration returns the duration of the last DB write cycle.
// Returns 0 if the backend doesn't support this metric.
func (m *Manager) GetLastDBWriteDuration() time.Duration {
	if p, ok := m.deps.Backend.(DBWriteDurationProvider); ok {
		return p.GetLastDBWriteDuration()
	}
	return 0
}
