// Package route sequences a set of geo points into a visiting order using a
// nearest-neighbor heuristic. It is deliberately not an optimal TSP solver:
// urban-scale clusters rarely exceed ten points and a greedy tour is good
// enough without pulling in an external solver.
package route

import "ride-dispatch-engine/internal/geo"

// Sequence returns a permutation of points that visits every point exactly
// once, starting at points[0]. Ties in nearest-neighbor distance are broken
// by the lowest original index, which makes the result deterministic for a
// fixed input order.
//
// Inputs of length 0, 1 or 2 are returned unchanged: there is exactly one
// tour in those cases.
func Sequence(points []geo.Point) []geo.Point {
	if len(points) <= 2 {
		out := make([]geo.Point, len(points))
		copy(out, points)
		return out
	}

	visited := make([]bool, len(points))
	order := make([]geo.Point, 0, len(points))

	current := 0
	visited[current] = true
	order = append(order, points[current])

	for len(order) < len(points) {
		best := -1
		bestDist := 0.0

		for i, p := range points {
			if visited[i] {
				continue
			}
			d := geo.Haversine(points[current], p)
			if best == -1 || d < bestDist {
				best = i
				bestDist = d
			}
		}

		visited[best] = true
		order = append(order, points[best])
		current = best
	}

	return order
}
