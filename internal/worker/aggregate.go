package worker

import "github.com/demolens/tickstate/pkg/core"

// aggregator folds emitted snapshots into the demo summary.
type aggregator struct {
	keepTicks bool

	rounds []core.Round
	kills  []core.Kill
	ticks  map[core.Tick]*core.Snapshot
	draw   core.DrawInfo
}

func newAggregator(keepTicks bool) *aggregator {
	a := &aggregator{keepTicks: keepTicks}
	if keepTicks {
		a.ticks = make(map[core.Tick]*core.Snapshot)
	}
	return a
}

func (a *aggregator) add(snap *core.Snapshot) {
	// rounds are cumulative, the latest copy is complete
	a.rounds = snap.Rounds
	a.kills = append(a.kills, snap.Kills...)
	if a.keepTicks {
		a.ticks[snap.Tick] = snap
	}

	a.draw.MaxPlayers = max(a.draw.MaxPlayers, uint32(len(snap.Players)))
	a.draw.MaxProjectiles = max(a.draw.MaxProjectiles, uint32(len(snap.Projectiles)))
	if snap.World != nil {
		a.draw.WorldMax = a.draw.WorldMax.AdjoinBounds(*snap.World)
	}
	for i := range snap.Players {
		a.draw.PlayerAtMax.StretchToInclude(snap.Players[i].Position)
	}
}

func (a *aggregator) demo(h *core.DemoHeader) *core.Demo {
	d := &core.Demo{
		Rounds: a.rounds,
		Kills:  a.kills,
		Ticks:  a.ticks,
	}
	if h != nil {
		d.Header = *h
	}
	return d
}

func (a *aggregator) drawInfo() core.DrawInfo {
	return a.draw
}
