// Package geo converts engine positions to and from simplefeatures geometry.
// Everything stays in engine units; the database has no spatial reference
// for a map, so no SRID is attached.
package geo

import (
	"github.com/golang/geo/r3"
	geom "github.com/peterstace/simplefeatures/geom"
)

// PointFromVector converts an engine position to a point carrying Z.
func PointFromVector(v r3.Vector) geom.Point {
	return geom.NewPoint(geom.Coordinates{
		XY:   geom.XY{X: v.X, Y: v.Y},
		Z:    v.Z,
		Type: geom.DimXYZ,
	})
}

// VectorFromPoint converts a point back to an engine position. An empty
// point yields the origin.
func VectorFromPoint(p geom.Point) r3.Vector {
	coord, ok := p.Coordinates()
	if !ok {
		return r3.Vector{}
	}
	return r3.Vector{X: coord.XY.X, Y: coord.XY.Y, Z: coord.Z}
}
