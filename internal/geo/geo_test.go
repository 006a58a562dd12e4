package geo

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParse_Valid(t *testing.T) {
	p, ok := Parse(" 24.71, 46.67 ")
	assert.True(t, ok)
	assert.InDelta(t, 24.71, p.Lat, 1e-9)
	assert.InDelta(t, 46.67, p.Lon, 1e-9)
}

func TestParse_Invalid(t *testing.T) {
	cases := []string{"", "24.71", "24.71,46.67,1", "91,10", "10,181", "abc,def"}
	for _, c := range cases {
		_, ok := Parse(c)
		assert.False(t, ok, "expected %q to be invalid", c)
	}
}

func TestHaversine_SelfDistanceIsZero(t *testing.T) {
	a := Point{Lat: 24.71, Lon: 46.67}
	assert.InDelta(t, 0, Haversine(a, a), 1e-9)
}

func TestHaversine_Symmetric(t *testing.T) {
	a := Point{Lat: 24.71, Lon: 46.67}
	b := Point{Lat: 24.80, Lon: 46.70}
	assert.InDelta(t, Haversine(a, b), Haversine(b, a), 1e-9)
}

func TestHaversine_TriangleInequality(t *testing.T) {
	a := Point{Lat: 24.71, Lon: 46.67}
	b := Point{Lat: 24.80, Lon: 46.70}
	c := Point{Lat: 24.90, Lon: 46.50}

	ab := Haversine(a, b)
	bc := Haversine(b, c)
	ac := Haversine(a, c)

	assert.LessOrEqual(t, ac, ab+bc+1e-9)
}

func TestCentroid(t *testing.T) {
	points := []Point{{Lat: 0, Lon: 0}, {Lat: 2, Lon: 2}}
	c := Centroid(points)
	assert.InDelta(t, 1, c.Lat, 1e-9)
	assert.InDelta(t, 1, c.Lon, 1e-9)
}

func TestFrechetDistance_IdenticalPolylinesIsZero(t *testing.T) {
	line := []Point{{Lat: 0, Lon: 0}, {Lat: 0, Lon: 1}}
	assert.InDelta(t, 0, FrechetDistance(line, line), 1e-9)
}

func TestFrechetDistance_MonotoneUnderOffset(t *testing.T) {
	p := []Point{{Lat: 0, Lon: 0}, {Lat: 0, Lon: 1}}
	q := []Point{{Lat: 0.01, Lon: 0}, {Lat: 0.01, Lon: 1}}
	d := FrechetDistance(p, q)
	assert.Greater(t, d, 0.0)
	assert.Less(t, d, math.Max(Haversine(p[0], q[0]), Haversine(p[1], q[1]))+1e-9)
}
