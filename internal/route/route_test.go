package route

import (
	"testing"

	"ride-dispatch-engine/internal/geo"

	"github.com/stretchr/testify/assert"
)

func TestSequence_ShortInputUnchanged(t *testing.T) {
	one := []geo.Point{{Lat: 0, Lon: 0}}
	assert.Equal(t, one, Sequence(one))

	two := []geo.Point{{Lat: 0, Lon: 0}, {Lat: 1, Lon: 1}}
	assert.Equal(t, two, Sequence(two))
}

func TestSequence_StartsAtInputZeroAndIsPermutation(t *testing.T) {
	points := []geo.Point{
		{Lat: 0, Lon: 0},
		{Lat: 0, Lon: 1},
		{Lat: 1, Lon: 0},
		{Lat: 1, Lon: 1},
	}

	out := Sequence(points)

	assert.Len(t, out, len(points))
	assert.Equal(t, points[0], out[0])
	assert.ElementsMatch(t, points, out)
}

func TestSequence_Deterministic(t *testing.T) {
	points := []geo.Point{
		{Lat: 0, Lon: 0},
		{Lat: 0, Lon: 1},
		{Lat: 1, Lon: 0},
		{Lat: 1, Lon: 1},
	}

	a := Sequence(points)
	b := Sequence(points)
	assert.Equal(t, a, b)
}

func TestSequence_UnitSquareNearestNeighborOrder(t *testing.T) {
	points := []geo.Point{
		{Lat: 0, Lon: 0},
		{Lat: 0, Lon: 1},
		{Lat: 1, Lon: 0},
		{Lat: 1, Lon: 1},
	}

	out := Sequence(points)

	// From (0,0), (0,1) and (1,0) are equidistant and the earlier index,
	// (0,1), wins the tie; from there (1,1) is closer than (1,0), leaving
	// (1,0) last.
	assert.Equal(t, geo.Point{Lat: 0, Lon: 0}, out[0])
	assert.Equal(t, geo.Point{Lat: 0, Lon: 1}, out[1])
	assert.Equal(t, geo.Point{Lat: 1, Lon: 1}, out[2])
	assert.Equal(t, geo.Point{Lat: 1, Lon: 0}, out[3])
}
