// internal/storage/memory/export.go
package memory

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"

	"github.com/demolens/tickstate/internal/util"
	"github.com/demolens/tickstate/pkg/core"

	"github.com/klauspost/compress/zstd"
)

// ExportVersion identifies the layout of the exported document
const ExportVersion = "export/v1"

// Export is the root JSON structure
type Export struct {
	Version         string           `json:"version"`
	Filename        string           `json:"filename"`
	MapName         string           `json:"map"`
	Server          string           `json:"server,omitempty"`
	Duration        float32          `json:"duration"`
	IntervalPerTick float32          `json:"intervalPerTick"`
	StartTick       core.Tick        `json:"startTick"`
	EndTick         core.Tick        `json:"endTick"`
	Rounds          []RoundJSON      `json:"rounds"`
	Draw            *DrawJSON        `json:"draw,omitempty"`
	Players         []PlayerJSON     `json:"players"`
	Buildings       []BuildingJSON   `json:"buildings"`
	Projectiles     []ProjectileJSON `json:"projectiles"`
	Events          [][]any          `json:"events"`
}

// RoundJSON is one round; winner is the team name
type RoundJSON struct {
	Start  core.Tick `json:"start"`
	End    core.Tick `json:"end"`
	Winner string    `json:"winner"`
}

// DrawJSON carries the render extents as [x, y, z] triples
type DrawJSON struct {
	MaxPlayers     uint32        `json:"maxPlayers"`
	MaxProjectiles uint32        `json:"maxProjectiles"`
	WorldMax       [2][3]float64 `json:"worldMax"`
	PlayerAtMax    [2][3]float64 `json:"playerAtMax"`
}

// PlayerJSON represents a player entity.
// States rows are [tick, [x, y, z], view, health, class, team, lifeState, charge].
type PlayerJSON struct {
	Entity    core.EntityID `json:"entity"`
	Name      string        `json:"name,omitempty"`
	UserID    core.UserID   `json:"userId,omitempty"`
	SteamID   string        `json:"steamId,omitempty"`
	SteamID64 uint64        `json:"steamId64,omitempty"`
	States    [][]any       `json:"states"`
}

// BuildingJSON represents a building entity.
// States rows are [tick, [x, y, z], level, health, sapped].
type BuildingJSON struct {
	Entity    core.EntityID `json:"entity"`
	Kind      string        `json:"kind"`
	Builder   core.UserID   `json:"builder"`
	Team      string        `json:"team"`
	FirstTick core.Tick     `json:"firstTick"`
	LastTick  core.Tick     `json:"lastTick"`
	States    [][]any       `json:"states"`
}

// ProjectileJSON represents a projectile and its trail of [tick, [x, y, z]] rows
type ProjectileJSON struct {
	Entity  core.EntityID `json:"entity"`
	Kind    string        `json:"kind"`
	Shooter core.UserID   `json:"shooter"`
	Team    string        `json:"team"`
	Trail   [][]any       `json:"trail"`
}

func vec3(v [3]float64) []float64 {
	return []float64{v[0], v[1], v[2]}
}

func bounds(w core.World) [2][3]float64 {
	return [2][3]float64{
		{w.BoundMin.X, w.BoundMin.Y, w.BoundMin.Z},
		{w.BoundMax.X, w.BoundMax.Y, w.BoundMax.Z},
	}
}

// exportFilename derives the output name from the demo file, falling back to the map
func (b *Backend) exportFilename() string {
	name := ""
	if b.header != nil {
		name = util.DemoBaseName(b.header.Filename)
		if name == "" {
			name = b.header.MapName
		}
		if !b.header.StartTime.IsZero() {
			name = fmt.Sprintf("%s_%s", name, b.header.StartTime.Format("20060102_150405"))
		}
	}
	name = util.SanitizeFilename(name)
	if b.cfg.CompressOutput {
		return name + ".json.zst"
	}
	return name + ".json"
}

// exportJSON writes the demo data to a JSON file, zstd compressed when configured
func (b *Backend) exportJSON() error {
	export := b.buildExport()
	outputPath := filepath.Join(b.cfg.OutputDir, b.exportFilename())

	// Ensure output directory exists
	if err := os.MkdirAll(b.cfg.OutputDir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	if b.cfg.CompressOutput {
		if err := b.writeZstdJSON(outputPath, export); err != nil {
			return err
		}
	} else {
		if err := b.writeJSON(outputPath, export); err != nil {
			return err
		}
	}

	b.lastExportPath = outputPath
	return nil
}

func (b *Backend) buildExport() Export {
	export := Export{
		Version:     ExportVersion,
		StartTick:   b.firstTick,
		EndTick:     b.lastTick,
		Rounds:      make([]RoundJSON, 0, len(b.rounds)),
		Players:     make([]PlayerJSON, 0, len(b.players)),
		Buildings:   make([]BuildingJSON, 0, len(b.buildings)),
		Projectiles: make([]ProjectileJSON, 0, len(b.projectiles)),
		Events:      make([][]any, 0, len(b.kills)+len(b.captures)+len(b.ubercharges)),
	}
	if b.header != nil {
		export.Filename = b.header.Filename
		export.MapName = b.header.MapName
		export.Server = b.header.Server
		export.Duration = b.header.Duration
		export.IntervalPerTick = b.header.IntervalPerTick
	}

	for _, r := range b.rounds {
		export.Rounds = append(export.Rounds, RoundJSON{Start: r.Start, End: r.End, Winner: r.Winner.String()})
	}

	if b.draw != nil {
		export.Draw = &DrawJSON{
			MaxPlayers:     b.draw.MaxPlayers,
			MaxProjectiles: b.draw.MaxProjectiles,
			WorldMax:       bounds(b.draw.WorldMax),
			PlayerAtMax:    bounds(b.draw.PlayerAtMax),
		}
	}

	// Convert players, in order of first appearance
	for _, id := range b.playerOrder {
		record := b.players[id]
		player := PlayerJSON{
			Entity: record.Entity,
			States: make([][]any, 0, len(record.States)),
		}
		if info := record.Info; info != nil {
			player.Name = info.Name
			player.UserID = info.UserID
			player.SteamID = info.SteamID
			player.SteamID64 = info.SteamID64
		}
		for _, st := range record.States {
			player.States = append(player.States, []any{
				st.Tick,
				vec3(st.Position),
				st.View,
				st.Health,
				st.Class,
				st.Team,
				st.State,
				st.Charge,
			})
		}
		export.Players = append(export.Players, player)
	}

	// Convert buildings
	for _, id := range sortedKeys(b.buildings) {
		record := b.buildings[id]
		building := BuildingJSON{
			Entity:    record.Entity,
			Kind:      record.Kind.String(),
			Builder:   record.Builder,
			Team:      record.Team.String(),
			FirstTick: record.FirstTick,
			LastTick:  record.LastTick,
			States:    make([][]any, 0, len(record.States)),
		}
		for _, st := range record.States {
			building.States = append(building.States, []any{
				st.Tick,
				vec3(st.Position),
				st.Level,
				st.Health,
				util.BoolToInt(st.Sapped),
			})
		}
		export.Buildings = append(export.Buildings, building)
	}

	// Convert projectiles
	for _, id := range sortedKeys(b.projectiles) {
		record := b.projectiles[id]
		projectile := ProjectileJSON{
			Entity:  record.Entity,
			Kind:    record.Kind.String(),
			Shooter: record.Shooter,
			Team:    record.Team.String(),
			Trail:   make([][]any, 0, len(record.Trail)),
		}
		for _, p := range record.Trail {
			projectile.Trail = append(projectile.Trail, []any{p.Tick, vec3(p.Position)})
		}
		export.Projectiles = append(export.Projectiles, projectile)
	}

	// Convert kill events
	// Format: [tick, "killed", deadId, [attackerId, weapon], assisterId]
	for _, k := range b.kills {
		var assister any = -1
		if k.AssisterID != nil {
			assister = *k.AssisterID
		}
		export.Events = append(export.Events, []any{
			k.Tick,
			"killed",
			k.DeadID,
			[]any{k.AttackerID, k.Weapon},
			assister,
		})
	}

	// Convert capture events
	// Format: [tick, "captured", cpIndex, cpName, team, [cappers]]
	for _, c := range b.captures {
		cappers := c.Cappers
		if cappers == nil {
			cappers = []core.UserID{}
		}
		export.Events = append(export.Events, []any{
			c.Tick,
			"captured",
			c.CPIndex,
			c.CPName,
			c.Team.String(),
			cappers,
		})
	}

	// Convert ubercharge events
	// Format: [tick, "ubercharge", medicId, uberedId]
	for _, u := range b.ubercharges {
		export.Events = append(export.Events, []any{
			u.Tick,
			"ubercharge",
			u.MedicID,
			u.UberedID,
		})
	}

	// events of one tick stay in kill, capture, ubercharge order
	sort.SliceStable(export.Events, func(i, j int) bool {
		return export.Events[i][0].(core.Tick) < export.Events[j][0].(core.Tick)
	})

	return export
}

func sortedKeys[V any](m map[core.EntityID]V) []core.EntityID {
	keys := make([]core.EntityID, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}

func (b *Backend) writeJSON(path string, data Export) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer f.Close()

	return encode(f, data)
}

func (b *Backend) writeZstdJSON(path string, data Export) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer f.Close()

	zw, err := zstd.NewWriter(f)
	if err != nil {
		return fmt.Errorf("failed to create zstd writer: %w", err)
	}
	if err := encode(zw, data); err != nil {
		zw.Close()
		return err
	}
	return zw.Close()
}

func encode(w io.Writer, data Export) error {
	encoder := json.NewEncoder(w)
	return encoder.Encode(data)
}

// ReadExport loads an exported file, plain or zstd compressed.
func ReadExport(path string) (*Export, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var r io.Reader = f
	if filepath.Ext(path) == ".zst" {
		zr, err := zstd.NewReader(f)
		if err != nil {
			return nil, fmt.Errorf("failed to create zstd reader: %w", err)
		}
		defer zr.Close()
		r = zr
	}

	var export Export
	if err := json.NewDecoder(r).Decode(&export); err != nil {
		return nil, fmt.Errorf("failed to decode export: %w", err)
	}
	return &export, nil
}

// GetExportedFilePath returns the path of the last export
func (b *Backend) GetExportedFilePath() string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.lastExportPath
}

// GetExportMetadata returns what the web viewer needs next to the file
func (b *Backend) GetExportMetadata() core.UploadMetadata {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.header == nil {
		return core.UploadMetadata{}
	}
	return core.UploadMetadata{
		MapName:  b.header.MapName,
		Filename: b.header.Filename,
		Duration: b.header.Duration,
		Tag:      b.header.Tag,
	}
}
