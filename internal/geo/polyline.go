package geo

import (
	"fmt"

	"github.com/demolens/tickstate/pkg/core"
	"github.com/golang/geo/r3"
	geom "github.com/peterstace/simplefeatures/geom"
)

// TrailPoint is one timed position of a moving entity.
type TrailPoint struct {
	Tick     core.Tick
	Position r3.Vector
}

// Polyline builds a LineStringZM from a trail, M holding the tick.
func Polyline(trail []TrailPoint) (geom.LineString, error) {
	if len(trail) < 2 {
		return geom.LineString{}, fmt.Errorf("polyline must have at least 2 points, got %d", len(trail))
	}

	flatCoords := make([]float64, 0, len(trail)*4)
	for _, tp := range trail {
		flatCoords = append(flatCoords, tp.Position.X, tp.Position.Y, tp.Position.Z, float64(tp.Tick))
	}

	seq := geom.NewSequence(flatCoords, geom.DimXYZM)
	return geom.NewLineString(seq), nil
}

// PolylinePoints reads a trail back out of a LineStringZM geometry. Empty
// or non-line geometries yield nil.
func PolylinePoints(g geom.Geometry) []TrailPoint {
	if g.IsEmpty() {
		return nil
	}
	ls, ok := g.AsLineString()
	if !ok {
		return nil
	}
	seq := ls.Coordinates()
	points := make([]TrailPoint, 0, seq.Length())
	for i := 0; i < seq.Length(); i++ {
		c := seq.Get(i)
		points = append(points, TrailPoint{
			Tick:     core.Tick(c.M),
			Position: r3.Vector{X: c.X, Y: c.Y, Z: c.Z},
		})
	}
	return points
}
