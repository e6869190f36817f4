package worker

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/demolens/tickstate/internal/channel"
	"github.com/demolens/tickstate/internal/config"
	"github.com/demolens/tickstate/internal/dispatcher"
	"github.com/demolens/tickstate/internal/engine"
	"github.com/demolens/tickstate/internal/storage"
	"github.com/demolens/tickstate/internal/streamio"
	"github.com/demolens/tickstate/pkg/core"
	"github.com/demolens/tickstate/pkg/streaming"
)

// ReportKind tags a progress report.
type ReportKind uint8

const (
	ReportWaiting ReportKind = iota
	ReportInfo
	ReportWorking
	ReportDone
	ReportError
)

func (k ReportKind) String() string {
	switch k {
	case ReportWaiting:
		return "waiting"
	case ReportInfo:
		return "info"
	case ReportWorking:
		return "working"
	case ReportDone:
		return "done"
	case ReportError:
		return "error"
	default:
		return "unknown"
	}
}

// Report is one progress message of a job.
type Report struct {
	Kind ReportKind

	// Info: total ticks announced by the header. Working: tick just completed.
	Ticks uint32

	// Done only.
	Demo *core.Demo
	Draw *core.DrawInfo

	// Error only.
	Err error
}

// progressStartTick delays Working reports until the stream has reached the
// start of the recording; earlier ticks belong to the connection preamble.
const progressStartTick = 10

// Job is one running reconstruction.
type Job struct {
	logger  *slog.Logger
	sinkLog dispatcher.Logger
	tracker Tracker
	backend storage.Backend
	cfg     config.WorkerConfig
	src     streamio.Source
	sink    atomic.Pointer[sink]

	reports *channel.Lossy[Report]
	done    chan struct{}

	mu    sync.Mutex
	final Report

	tick      atomic.Uint32
	snapshots atomic.Int64
}

func newJob(deps Dependencies, src streamio.Source) *Job {
	sinkLog := deps.SinkLogger
	if sinkLog == nil {
		sinkLog = deps.Logger
	}
	return &Job{
		logger:  deps.Logger,
		sinkLog: sinkLog,
		tracker: deps.Tracker,
		backend: deps.Backend,
		cfg:     deps.Config,
		src:     src,
		reports: channel.NewLossy[Report](deps.Config.ProgressBuffer),
		done:    make(chan struct{}),
	}
}

// Reports returns the report channel. It is closed after the terminal
// Done or Error report.
func (j *Job) Reports() <-chan Report {
	return j.reports.Receive()
}

// MostRecent drains every pending report and returns the last one. It never
// blocks and reports false when nothing was pending.
func (j *Job) MostRecent() (Report, bool) {
	var (
		last Report
		got  bool
	)
	for {
		select {
		case r, ok := <-j.reports.Receive():
			if !ok {
				return last, got
			}
			last, got = r, true
		default:
			return last, got
		}
	}
}

// Done is closed when the job has finished, successfully or not.
func (j *Job) Done() <-chan struct{} {
	return j.done
}

// Wait blocks until the job finishes and returns its result.
func (j *Job) Wait() (*core.Demo, *core.DrawInfo, error) {
	<-j.done
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.final.Demo, j.final.Draw, j.final.Err
}

// CurrentTick returns the last completed tick.
func (j *Job) CurrentTick() core.Tick {
	return core.Tick(j.tick.Load())
}

// Snapshots returns the number of snapshots produced so far.
func (j *Job) Snapshots() int64 {
	return j.snapshots.Load()
}

// SinkQueueLen returns the number of snapshots waiting for the storage backend.
func (j *Job) SinkQueueLen() int {
	s := j.sink.Load()
	if s == nil {
		return 0
	}
	return s.queued()
}

func (j *Job) run(ctx context.Context) {
	defer close(j.done)
	j.tracker.SetDemo("")
	defer j.tracker.Clear()
	j.reports.TrySend(Report{Kind: ReportWaiting})

	demo, draw, err := j.reconstruct(ctx)
	if err != nil {
		j.logger.Error("Reconstruction failed", "error", err, "tick", j.CurrentTick())
		j.finish(Report{Kind: ReportError, Err: err})
		return
	}
	j.logger.Info("Reconstruction finished",
		"ticks", j.Snapshots(),
		"rounds", len(demo.Rounds),
		"kills", len(demo.Kills),
	)
	j.finish(Report{Kind: ReportDone, Demo: demo, Draw: draw})
}

func (j *Job) reconstruct(ctx context.Context) (*core.Demo, *core.DrawInfo, error) {
	eng, err := engine.New(j.logger)
	if err != nil {
		return nil, nil, fmt.Errorf("creating engine: %w", err)
	}
	s, err := newSink(j.sinkLog, j.backend, j.cfg.SinkBuffer)
	if err != nil {
		return nil, nil, fmt.Errorf("creating sink: %w", err)
	}
	j.sink.Store(s)
	defer s.drain()

	agg := newAggregator(j.cfg.KeepTicks)
	seenStart := false

	emit := func(snap *core.Snapshot) error {
		if err := s.start(eng.Header()); err != nil {
			return err
		}
		agg.add(snap)
		s.record(snap)

		j.tick.Store(uint32(snap.Tick))
		j.snapshots.Add(1)
		if snap.Tick <= progressStartTick {
			seenStart = true
		}
		if seenStart {
			j.reports.TrySend(Report{Kind: ReportWorking, Ticks: uint32(snap.Tick)})
		}
		return nil
	}

	for {
		msg, err := j.src.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, nil, fmt.Errorf("reading stream: %w", err)
		}

		switch m := msg.(type) {
		case streaming.PacketBoundary:
			if err := ctx.Err(); err != nil {
				return nil, nil, fmt.Errorf("%w: %w", ErrCancelled, err)
			}
			j.tracker.SetTick(m.Tick)
		case streaming.EntityUpdate:
			j.tracker.SetEntity(m.Entity)
		default:
			j.tracker.SetEntity(0)
		}

		snap, err := eng.Feed(msg)
		if err != nil {
			return nil, nil, err
		}

		if h, ok := msg.(streaming.Header); ok {
			j.tracker.SetDemo(demoName(h))
			j.logger.Info("Demo announced", "map", h.MapName, "file", h.Filename, "ticks", h.Ticks)
			j.reports.TrySend(Report{Kind: ReportInfo, Ticks: h.Ticks})
			if err := s.start(eng.Header()); err != nil {
				return nil, nil, err
			}
		}

		if snap != nil {
			if err := emit(snap); err != nil {
				return nil, nil, err
			}
		}
	}

	if err := ctx.Err(); err != nil {
		return nil, nil, fmt.Errorf("%w: %w", ErrCancelled, err)
	}
	if snap := eng.Finish(); snap != nil {
		if err := emit(snap); err != nil {
			return nil, nil, err
		}
	}
	if err := s.start(eng.Header()); err != nil {
		return nil, nil, err
	}

	j.tracker.SetEntity(0)
	j.logger.Debug("Stream consumed", "messages", eng.MessageCounts())

	demo := agg.demo(eng.Header())
	draw := agg.drawInfo()
	s.drain()
	if n := s.failed(); n > 0 {
		j.logger.Warn("Snapshots not stored", "count", n)
	}
	if err := s.end(demo.Rounds, &draw); err != nil {
		return nil, nil, err
	}
	return demo, &draw, nil
}

// finish records the terminal report and publishes it. If the report buffer
// is full the oldest pending reports make room.
func (j *Job) finish(r Report) {
	j.mu.Lock()
	j.final = r
	j.mu.Unlock()

	j.reports.Put(r)
	j.reports.Close()
	if n := j.reports.Dropped(); n > 0 {
		j.logger.Debug("Progress reports dropped", "count", n)
	}
}

// demoName picks the file name of the recording, or its map when the
// header has no file name.
func demoName(h streaming.Header) string {
	if h.Filename != "" {
		return h.Filename
	}
	return h.MapName
}
