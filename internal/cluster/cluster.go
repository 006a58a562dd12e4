// Package cluster groups pending requests by spatial (and, optionally,
// temporal) proximity so the assembler can consider them together for a
// single trip (spec §4.E). Feature scaling is a separate concern from the
// density scan itself so tests can substitute a deterministic scaler.
package cluster

import (
	"math"
	"sort"
	"time"

	"ride-dispatch-engine/internal/geo"
	"ride-dispatch-engine/internal/models"

	"gonum.org/v1/gonum/stat"
)

// Item pairs a pending request with its parsed endpoints, the unit the
// clusterer and the rest of the engine actually operate on.
type Item struct {
	Request       models.PendingRequest
	From          geo.Point
	To            geo.Point
	DepartureTime time.Time
}

// Group is a set of items the engine considers together for one trip.
// NotifyWaiting marks a singleton produced because the whole round fell
// below MinClusterSize (spec §4.E step 4) — this is the only singleton
// case that fires a RETRY_WAITING-style notice even on success.
type Group struct {
	Label         int
	Items         []Item
	NotifyWaiting bool
}

// Scaler standardizes feature columns ahead of the density scan. A real
// Scaler removes the arbitrary-units bias of mixing latitude/longitude
// degrees across rows of very different scale; an identity Scaler lets
// tests assert on raw, human-readable coordinates (spec §9).
type Scaler interface {
	Standardize(features [][]float64) [][]float64
}

// StandardScaler performs per-column zero-mean, unit-variance scaling via
// gonum's streaming mean/stddev, matching spec §4.E step 2.
type StandardScaler struct{}

// Standardize implements Scaler.
func (StandardScaler) Standardize(features [][]float64) [][]float64 {
	if len(features) == 0 {
		return features
	}
	cols := len(features[0])
	means := make([]float64, cols)
	stddevs := make([]float64, cols)

	col := make([]float64, len(features))
	for c := 0; c < cols; c++ {
		for i, row := range features {
			col[i] = row[c]
		}
		mean, std := stat.MeanStdDev(col, nil)
		means[c] = mean
		if std == 0 {
			std = 1 // degenerate column: every row identical, leave it at zero after centering
		}
		stddevs[c] = std
	}

	out := make([][]float64, len(features))
	for i, row := range features {
		scaled := make([]float64, cols)
		for c := 0; c < cols; c++ {
			scaled[c] = (row[c] - means[c]) / stddevs[c]
		}
		out[i] = scaled
	}
	return out
}

// IdentityScaler passes features through unchanged.
type IdentityScaler struct{}

// Standardize implements Scaler.
func (IdentityScaler) Standardize(features [][]float64) [][]float64 { return features }

// Config carries the tunables spec §6 enumerates for this component.
type Config struct {
	MinClusterSize int
	Eps            float64
	MinSamples     int
	Scaler         Scaler
}

// features builds the spec §4.E step 1 feature vector for each item.
func features(items []Item) [][]float64 {
	out := make([][]float64, len(items))
	for i, it := range items {
		out[i] = []float64{it.From.Lat, it.From.Lon, it.To.Lat, it.To.Lon}
	}
	return out
}

// Cluster groups items per spec §4.E steps 2–4. The time-bucketing second
// pass (step 5) is applied by the caller via Bucket, kept separate so a
// single spatial cluster can be split into independent time windows without
// re-running the density scan.
func Cluster(items []Item, cfg Config) []Group {
	if len(items) == 0 {
		return nil
	}

	scaler := cfg.Scaler
	if scaler == nil {
		scaler = StandardScaler{}
	}

	if len(items) < cfg.MinClusterSize {
		groups := make([]Group, len(items))
		for i, it := range items {
			groups[i] = Group{Label: i, Items: []Item{it}, NotifyWaiting: true}
		}
		return groups
	}

	scaled := scaler.Standardize(features(items))
	labels := dbscan(scaled, cfg.Eps, cfg.MinSamples)

	byLabel := make(map[int][]Item)
	nextNoiseLabel := 0
	maxLabel := -1
	for _, l := range labels {
		if l > maxLabel {
			maxLabel = l
		}
	}
	nextNoiseLabel = maxLabel + 1

	groups := make([]Group, 0, len(items))
	order := make([]int, 0, len(items))
	seen := make(map[int]bool)
	for i, l := range labels {
		if l == -1 {
			// Each noise point becomes its own singleton with no waiting
			// notice: enough requests existed to attempt clustering.
			groups = append(groups, Group{Label: nextNoiseLabel, Items: []Item{items[i]}})
			nextNoiseLabel++
			continue
		}
		if !seen[l] {
			seen[l] = true
			order = append(order, l)
		}
		byLabel[l] = append(byLabel[l], items[i])
	}

	sort.Ints(order)
	labeled := make([]Group, 0, len(order))
	for _, l := range order {
		labeled = append(labeled, Group{Label: l, Items: byLabel[l]})
	}

	return append(labeled, groups...)
}

// dbscan is a minimal density-based scan over pre-scaled feature rows.
// Labels are cluster ids starting at 0, or -1 for noise. No third-party
// Go implementation of DBSCAN/HDBSCAN was found anywhere in the retrieval
// pack or wider search, so this core loop is hand-rolled standard library
// (documented in DESIGN.md as the one ungrounded algorithmic piece).
func dbscan(points [][]float64, eps float64, minSamples int) []int {
	n := len(points)
	labels := make([]int, n)
	for i := range labels {
		labels[i] = -2 // unvisited
	}

	neighbors := func(i int) []int {
		var out []int
		for j := 0; j < n; j++ {
			if j == i {
				continue
			}
			if euclidean(points[i], points[j]) <= eps {
				out = append(out, j)
			}
		}
		return out
	}

	clusterID := 0
	for i := 0; i < n; i++ {
		if labels[i] != -2 {
			continue
		}
		ns := neighbors(i)
		if len(ns) < minSamples {
			labels[i] = -1
			continue
		}

		labels[i] = clusterID
		queue := append([]int{}, ns...)
		for len(queue) > 0 {
			j := queue[0]
			queue = queue[1:]

			if labels[j] == -1 {
				labels[j] = clusterID
			}
			if labels[j] != -2 {
				continue
			}
			labels[j] = clusterID

			jns := neighbors(j)
			if len(jns) >= minSamples {
				queue = append(queue, jns...)
			}
		}
		clusterID++
	}

	return labels
}

func euclidean(a, b []float64) float64 {
	sum := 0.0
	for i := range a {
		d := a[i] - b[i]
		sum += d * d
	}
	return math.Sqrt(sum)
}

// Bucket applies spec §4.E step 5's optional second pass: split a group
// into k time buckets over minutes-to-departure, k = max(1, ceil(n/3)).
// A group below 2 items is returned unsplit, since bucketing a singleton
// or pair carries no information.
func Bucket(g Group, now time.Time) []Group {
	n := len(g.Items)
	if n < 2 {
		return []Group{g}
	}

	k := int(math.Ceil(float64(n) / 3.0))
	if k < 1 {
		k = 1
	}
	if k == 1 {
		return []Group{g}
	}

	minutesUntil := make([]float64, n)
	for i, it := range g.Items {
		minutesUntil[i] = it.DepartureTime.Sub(now).Minutes()
	}

	assignments := kMeans1D(minutesUntil, k)

	byBucket := make(map[int][]Item)
	for i, b := range assignments {
		byBucket[b] = append(byBucket[b], g.Items[i])
	}

	buckets := make([]int, 0, len(byBucket))
	for b := range byBucket {
		buckets = append(buckets, b)
	}
	sort.Ints(buckets)

	out := make([]Group, 0, len(buckets))
	for _, b := range buckets {
		out = append(out, Group{Label: g.Label, Items: byBucket[b], NotifyWaiting: g.NotifyWaiting})
	}
	return out
}

// kMeans1D runs a minimal fixed-iteration 1-D k-means, seeding centroids
// from evenly spaced order statistics rather than randomly so results are
// deterministic across runs (the scheduler never re-requests a specific
// assignment, so exact cluster identity doesn't matter, only stability
// within one call).
func kMeans1D(values []float64, k int) []int {
	n := len(values)
	sortedIdx := make([]int, n)
	for i := range sortedIdx {
		sortedIdx[i] = i
	}
	sort.Slice(sortedIdx, func(i, j int) bool { return values[sortedIdx[i]] < values[sortedIdx[j]] })

	centroids := make([]float64, k)
	for c := 0; c < k; c++ {
		pos := (c * n) / k
		centroids[c] = values[sortedIdx[pos]]
	}

	assignments := make([]int, n)
	for iter := 0; iter < 10; iter++ {
		changed := false
		for i, v := range values {
			best, bestDist := 0, math.Abs(v-centroids[0])
			for c := 1; c < k; c++ {
				d := math.Abs(v - centroids[c])
				if d < bestDist {
					best, bestDist = c, d
				}
			}
			if assignments[i] != best {
				assignments[i] = best
				changed = true
			}
		}

		sums := make([]float64, k)
		counts := make([]int, k)
		for i, v := range values {
			c := assignments[i]
			sums[c] += v
			counts[c]++
		}
		for c := 0; c < k; c++ {
			if counts[c] > 0 {
				centroids[c] = sums[c] / float64(counts[c])
			}
		}

		if !changed {
			break
		}
	}

	return assignments
}
