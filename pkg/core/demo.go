// pkg/core/demo.go
package core

import (
	"sort"
	"time"
)

// DemoHeader describes a recording as announced at the start of the stream.
type DemoHeader struct {
	Filename        string
	MapName         string
	Server          string
	Duration        float32 // seconds
	Ticks           uint32
	IntervalPerTick float32
	StartTime       time.Time
	Tag             string
}

// DrawInfo summarises a recording for rendering: sizes and extents.
type DrawInfo struct {
	MaxPlayers     uint32
	MaxProjectiles uint32
	WorldMax       World // union of every announced world bound
	PlayerAtMax    World // extent of every observed player position
}

// Demo is the aggregated result of reconstructing one recording.
type Demo struct {
	Header DemoHeader
	Rounds []Round
	Kills  []Kill
	Ticks  map[Tick]*Snapshot // nil when ticks were not retained
}

// RoundOf returns the round containing t, if any.
func (d *Demo) RoundOf(t Tick) (Round, bool) {
	for i := len(d.Rounds) - 1; i >= 0; i-- {
		if d.Rounds[i].Contains(t) {
			return d.Rounds[i], true
		}
	}
	return Round{}, false
}

// SortedTicks returns the retained ticks in ascending order.
func (d *Demo) SortedTicks() []Tick {
	ticks := make([]Tick, 0, len(d.Ticks))
	for t := range d.Ticks {
		ticks = append(ticks, t)
	}
	sort.Slice(ticks, func(i, j int) bool { return ticks[i] < ticks[j] })
	return ticks
}

// UploadMetadata is sent along with an exported recording.
type UploadMetadata struct {
	MapName  string
	Filename string
	Duration float32
	Tag      string
}
