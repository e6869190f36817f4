package geo

import (
	"testing"

	"github.com/golang/geo/r3"
	geom "github.com/peterstace/simplefeatures/geom"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPointFromVector(t *testing.T) {
	pt := PointFromVector(r3.Vector{X: 100.5, Y: 200.5, Z: 50.0})

	coord, ok := pt.Coordinates()
	require.True(t, ok)
	assert.Equal(t, 100.5, coord.XY.X)
	assert.Equal(t, 200.5, coord.XY.Y)
	assert.Equal(t, 50.0, coord.Z)
	assert.Equal(t, geom.DimXYZ, coord.Type)

	assert.Equal(t, r3.Vector{X: 100.5, Y: 200.5, Z: 50.0}, VectorFromPoint(pt))
}

func TestVectorFromPoint_Empty(t *testing.T) {
	assert.Equal(t, r3.Vector{}, VectorFromPoint(geom.NewEmptyPoint(geom.DimXYZ)))
}

func TestPolyline(t *testing.T) {
	tests := []struct {
		name  string
		trail []TrailPoint
		check func(t *testing.T, ls geom.LineString, err error)
	}{
		{
			name: "round trip",
			trail: []TrailPoint{
				{Tick: 100, Position: r3.Vector{X: -1200, Y: 340.5, Z: 96}},
				{Tick: 101, Position: r3.Vector{X: -1180, Y: 342, Z: 110}},
				{Tick: 104, Position: r3.Vector{X: -1100, Y: 350, Z: 80}},
			},
			check: func(t *testing.T, ls geom.LineString, err error) {
				require.NoError(t, err)
				assert.Equal(t, geom.DimXYZM, ls.CoordinatesType())
				assert.Equal(t, 3, ls.Coordinates().Length())
				assert.Equal(t, []TrailPoint{
					{Tick: 100, Position: r3.Vector{X: -1200, Y: 340.5, Z: 96}},
					{Tick: 101, Position: r3.Vector{X: -1180, Y: 342, Z: 110}},
					{Tick: 104, Position: r3.Vector{X: -1100, Y: 350, Z: 80}},
				}, PolylinePoints(ls.AsGeometry()))
			},
		},
		{
			name:  "single point",
			trail: []TrailPoint{{Tick: 7}},
			check: func(t *testing.T, ls geom.LineString, err error) {
				require.Error(t, err)
				assert.Contains(t, err.Error(), "at least 2 points")
			},
		},
		{
			name: "empty",
			check: func(t *testing.T, ls geom.LineString, err error) {
				require.Error(t, err)
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ls, err := Polyline(tt.trail)
			tt.check(t, ls, err)
		})
	}
}

func TestPolylinePoints_NotALine(t *testing.T) {
	assert.Nil(t, PolylinePoints(geom.Geometry{}))
	assert.Nil(t, PolylinePoints(PointFromVector(r3.Vector{X: 1}).AsGeometry()))
}
