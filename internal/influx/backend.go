package influx

import (
	"context"
	"math"
	"time"

	"github.com/demolens/tickstate/internal/config"
	"github.com/demolens/tickstate/pkg/core"
	influxdb2_write "github.com/influxdata/influxdb-client-go/v2/api/write"
	"github.com/rs/zerolog"
)

const defaultIntervalPerTick = 0.015

// Backend writes one metrics point per snapshot. It implements
// storage.Backend and is usually combined with a primary sink.
type Backend struct {
	conn *Conn
	cfg  config.InfluxConfig

	header   core.DemoHeader
	base     time.Time
	interval time.Duration
}

// New creates a tick metrics backend. backupPath receives gzip line protocol
// when the server is unreachable.
func New(cfg config.InfluxConfig, backupPath string, log zerolog.Logger) *Backend {
	return &Backend{
		conn: NewConn(log, backupPath),
		cfg:  cfg,
	}
}

// Conn exposes the connection so the monitor can write to it.
func (b *Backend) Conn() *Conn {
	return b.conn
}

func (b *Backend) Init() error {
	return b.conn.Connect(context.Background(), b.cfg)
}

func (b *Backend) Close() error {
	return b.conn.Close()
}

// StartDemo anchors point timestamps at the demo start time, or now.
func (b *Backend) StartDemo(header *core.DemoHeader) error {
	b.header = core.DemoHeader{}
	if header != nil {
		b.header = *header
	}
	b.base = b.header.StartTime
	if b.base.IsZero() {
		b.base = time.Now().UTC()
	}
	ipt := b.header.IntervalPerTick
	if ipt <= 0 {
		ipt = defaultIntervalPerTick
	}
	b.interval = time.Duration(math.Round(float64(ipt)*1e6)) * time.Microsecond
	return nil
}

func (b *Backend) RecordSnapshot(snap *core.Snapshot) error {
	ts := b.base.Add(time.Duration(snap.Tick) * b.interval)
	return b.conn.WritePoint(b.cfg.Bucket, TickPoint(&b.header, snap, ts))
}

// EndDemo writes one point per round and a closing summary.
func (b *Backend) EndDemo(rounds []core.Round, draw *core.DrawInfo) error {
	for i, r := range rounds {
		ts := b.base.Add(time.Duration(r.End) * b.interval)
		p := influxdb2_write.NewPointWithMeasurement("round").
			AddTag("map", b.header.MapName).
			AddTag("demo", b.header.Filename).
			AddTag("winner", r.Winner.String()).
			AddField("number", i+1).
			AddField("start_tick", uint32(r.Start)).
			AddField("end_tick", uint32(r.End)).
			SetTime(ts)
		if err := b.conn.WritePoint(b.cfg.Bucket, p); err != nil {
			return err
		}
	}

	summary := influxdb2_write.NewPointWithMeasurement("demo").
		AddTag("map", b.header.MapName).
		AddTag("demo", b.header.Filename).
		AddField("rounds", len(rounds)).
		AddField("ticks", b.header.Ticks).
		SetTime(b.base.Add(time.Duration(b.header.Ticks) * b.interval))
	if draw != nil {
		summary.AddField("max_players", draw.MaxPlayers).
			AddField("max_projectiles", draw.MaxProjectiles)
	}
	return b.conn.WritePoint(b.cfg.Bucket, summary)
}

// TickPoint summarizes one snapshot as a "tick" point.
func TickPoint(header *core.DemoHeader, snap *core.Snapshot, ts time.Time) *influxdb2_write.Point {
	var red, blue, alive int
	for i := range snap.Players {
		p := &snap.Players[i]
		if !p.IsAlive() {
			continue
		}
		alive++
		switch p.Team {
		case core.TeamRed:
			red++
		case core.TeamBlue:
			blue++
		}
	}

	return influxdb2_write.NewPoint(
		"tick",
		map[string]string{
			"map":  header.MapName,
			"demo": header.Filename,
		},
		map[string]any{
			"tick":          uint32(snap.Tick),
			"players":       len(snap.Players),
			"players_alive": alive,
			"red_alive":     red,
			"blue_alive":    blue,
			"buildings":     len(snap.Buildings),
			"projectiles":   len(snap.Projectiles),
			"kills":         len(snap.Kills),
			"captures":      len(snap.Captures),
			"ubercharges":   len(snap.Ubercharges),
		},
		ts,
	)
}
