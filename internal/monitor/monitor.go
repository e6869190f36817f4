package monitor

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/demolens/tickstate/internal/influx"
	"github.com/demolens/tickstate/internal/worker"
	influxdb2_write "github.com/influxdata/influxdb-client-go/v2/api/write"
)

// Dependencies holds all dependencies for the monitor service
type Dependencies struct {
	Logger        *slog.Logger
	WorkerManager *worker.Manager
	Influx        *influx.Conn // optional
	StatusPath    string       // optional status file, rewritten every interval
	Interval      time.Duration
}

// Status is one sample of the running job.
type Status struct {
	Time                time.Time `json:"time"`
	Tick                uint32    `json:"tick"`
	Snapshots           int64     `json:"snapshots"`
	SinkQueue           int       `json:"sinkQueue"`
	TicksPerSecond      float64   `json:"ticksPerSecond"`
	LastWriteDurationMs float32   `json:"lastWriteDurationMs"`
}

// Service manages status monitoring
type Service struct {
	deps      Dependencies
	isRunning bool
	mu        sync.RWMutex
	stopChan  chan struct{}
	done      chan struct{}

	// previous sample, for the tick rate
	last Status
}

// NewService creates a new monitor service
func NewService(deps Dependencies) *Service {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.Interval <= 0 {
		deps.Interval = time.Second
	}
	return &Service{
		deps:     deps,
		stopChan: make(chan struct{}),
	}
}

// IsRunning returns whether the status monitor is running
func (s *Service) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}

// GetProgramStatus samples the current job. It reports false when no job
// has been started.
func (s *Service) GetProgramStatus(now time.Time) (Status, bool) {
	job := s.deps.WorkerManager.Current()
	if job == nil {
		return Status{}, false
	}

	st := Status{
		Time:                now,
		Tick:                uint32(job.CurrentTick()),
		Snapshots:           job.Snapshots(),
		SinkQueue:           job.SinkQueueLen(),
		LastWriteDurationMs: float32(s.deps.WorkerManager.GetLastDBWriteDuration().Milliseconds()),
	}
	if !s.last.Time.IsZero() && st.Tick >= s.last.Tick {
		if elapsed := now.Sub(s.last.Time).Seconds(); elapsed > 0 {
			st.TicksPerSecond = float64(st.Tick-s.last.Tick) / elapsed
		}
	}
	s.last = st
	return st, true
}

// Point converts a status sample into an influx point.
func (st Status) Point() *influxdb2_write.Point {
	return influxdb2_write.NewPointWithMeasurement("ingest").
		AddField("tick", st.Tick).
		AddField("snapshots", st.Snapshots).
		AddField("sink_queue", st.SinkQueue).
		AddField("ticks_per_second", st.TicksPerSecond).
		AddField("last_write_ms", st.LastWriteDurationMs).
		SetTime(st.Time)
}

func (s *Service) writeStatusFile(st Status) error {
	data, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return fmt.Errorf("error encoding status: %w", err)
	}
	return os.WriteFile(s.deps.StatusPath, append(data, '\n'), 0644)
}

func (s *Service) sample() {
	logger := s.deps.Logger
	st, ok := s.GetProgramStatus(time.Now())
	if !ok {
		return
	}

	logger.Debug("Reconstruction status",
		"tick", st.Tick,
		"snapshots", st.Snapshots,
		"sinkQueue", st.SinkQueue,
		"ticksPerSecond", st.TicksPerSecond,
		"lastWriteMs", st.LastWriteDurationMs)

	if s.deps.StatusPath != "" {
		if err := s.writeStatusFile(st); err != nil {
			logger.Error("Error writing status file", "error", err)
		}
	}
	if s.deps.Influx != nil {
		if err := s.deps.Influx.WritePoint(influx.PerformanceBucket, st.Point()); err != nil {
			logger.Error("Error writing status point to influx", "error", err)
		}
	}
}

// Start starts the status monitor goroutine
func (s *Service) Start() error {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return nil
	}
	s.isRunning = true
	s.stopChan = make(chan struct{})
	s.done = make(chan struct{})
	stop, done := s.stopChan, s.done
	s.mu.Unlock()

	go func() {
		defer func() {
			s.mu.Lock()
			s.isRunning = false
			s.mu.Unlock()
			close(done)
		}()

		s.deps.Logger.Debug("Starting status monitor goroutine", "interval", s.deps.Interval)
		ticker := time.NewTicker(s.deps.Interval)
		defer ticker.Stop()

		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				s.sample()
			}
		}
	}()

	return nil
}

// Stop stops the status monitor and waits for the goroutine to exit.
func (s *Service) Stop() {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return
	}
	close(s.stopChan)
	done := s.done
	s.isRunning = false
	s.mu.Unlock()
	<-done
}
