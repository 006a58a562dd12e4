// Package geo provides the coordinate parsing and distance primitives the
// dispatch engine builds on: haversine distance, centroid, and discrete
// Fréchet route similarity. Nothing here touches the store or the clock.
package geo

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// earthRadiusKm is the mean earth radius used by the haversine formula.
const earthRadiusKm = 6371.0

// Point is a parsed latitude/longitude pair.
type Point struct {
	Lat float64
	Lon float64
}

// Parse reads the wire form "lat,lon" (optionally padded with whitespace)
// and validates both components are in their legal ranges.
func Parse(s string) (Point, bool) {
	parts := strings.Split(strings.TrimSpace(s), ",")
	if len(parts) != 2 {
		return Point{}, false
	}

	lat, err := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	if err != nil {
		return Point{}, false
	}
	lon, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err != nil {
		return Point{}, false
	}

	if math.IsNaN(lat) || math.IsNaN(lon) || lat < -90 || lat > 90 || lon < -180 || lon > 180 {
		return Point{}, false
	}

	return Point{Lat: lat, Lon: lon}, true
}

// String renders a point back to its wire form.
func (p Point) String() string {
	return fmt.Sprintf("%f,%f", p.Lat, p.Lon)
}

// Haversine returns the great-circle distance between a and b in kilometers.
func Haversine(a, b Point) float64 {
	lat1 := toRadians(a.Lat)
	lat2 := toRadians(b.Lat)
	dLat := toRadians(b.Lat - a.Lat)
	dLon := toRadians(b.Lon - a.Lon)

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))

	return earthRadiusKm * c
}

func toRadians(deg float64) float64 {
	return deg * math.Pi / 180
}

// Centroid returns the arithmetic mean of the given points' latitudes and
// longitudes independently. Valid only for points clustered at urban scale;
// it does not correct for spherical distortion.
func Centroid(points []Point) Point {
	if len(points) == 0 {
		return Point{}
	}

	var sumLat, sumLon float64
	for _, p := range points {
		sumLat += p.Lat
		sumLon += p.Lon
	}

	n := float64(len(points))
	return Point{Lat: sumLat / n, Lon: sumLon / n}
}

// FrechetDistance computes the discrete Fréchet distance between two
// polylines using Haversine as the point-to-point metric. Used to decide
// whether two trips' routes are similar enough to merge.
func FrechetDistance(p, q []Point) float64 {
	if len(p) == 0 || len(q) == 0 {
		return 0
	}

	ca := make([][]float64, len(p))
	for i := range ca {
		ca[i] = make([]float64, len(q))
		for j := range ca[i] {
			ca[i][j] = -1
		}
	}

	var recurse func(i, j int) float64
	recurse = func(i, j int) float64 {
		if ca[i][j] > -1 {
			return ca[i][j]
		}

		d := Haversine(p[i], q[j])

		switch {
		case i == 0 && j == 0:
			ca[i][j] = d
		case i > 0 && j == 0:
			ca[i][j] = math.Max(recurse(i-1, 0), d)
		case i == 0 && j > 0:
			ca[i][j] = math.Max(recurse(0, j-1), d)
		default:
			ca[i][j] = math.Max(
				math.Min(recurse(i-1, j), math.Min(recurse(i-1, j-1), recurse(i, j-1))),
				d,
			)
		}
		return ca[i][j]
	}

	return recurse(len(p)-1, len(q)-1)
}
