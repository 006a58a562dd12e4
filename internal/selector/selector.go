// Package selector ranks available drivers for a cluster's representative
// pickup point and walks down the ranking until one is actually reservable
// (spec §4.F). The ranking itself is pure and side-effect free; reservation
// belongs to driverregistry.
package selector

import (
	"context"
	"sort"

	"ride-dispatch-engine/internal/driverregistry"
	"ride-dispatch-engine/internal/geo"
	"ride-dispatch-engine/internal/models"

	"github.com/jmoiron/sqlx"
)

// Ranked pairs a driver with its distance from the cluster's pickup point.
type Ranked struct {
	Driver     *models.Driver
	DistanceKm float64
}

// Rank orders candidates by the lexicographic tuple (distanceKm ascending,
// rating descending, totalTrips ascending), the scoring rule spec §4.F
// specifies to prefer nearer, then better-rated, then less-used drivers, in
// that priority order.
func Rank(pickup geo.Point, candidates []*models.Driver) []Ranked {
	ranked := make([]Ranked, 0, len(candidates))
	for _, d := range candidates {
		loc, ok := geo.Parse(d.CurrentLocation)
		if !ok {
			continue
		}
		ranked = append(ranked, Ranked{Driver: d, DistanceKm: geo.Haversine(pickup, loc)})
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		a, b := ranked[i], ranked[j]
		if a.DistanceKm != b.DistanceKm {
			return a.DistanceKm < b.DistanceKm
		}
		if a.Driver.Rating != b.Driver.Rating {
			return a.Driver.Rating > b.Driver.Rating
		}
		return a.Driver.TotalTrips < b.Driver.TotalTrips
	})

	return ranked
}

// Assign walks the ranked list in order and reserves the first driver the
// registry actually lets through, skipping any that lost the race to a
// concurrent reservation. It returns ok=false, with no error, if every
// candidate was unreservable — the caller enqueues the whole cluster for
// retry in that case (spec §4.F's "none available" outcome).
func Assign(ctx context.Context, tx *sqlx.Tx, registry *driverregistry.Registry, ranked []Ranked) (*models.Driver, bool, error) {
	for _, candidate := range ranked {
		ok, err := registry.Reserve(ctx, tx, candidate.Driver.ID)
		if err != nil {
			return nil, false, err
		}
		if ok {
			return candidate.Driver, true, nil
		}
	}
	return nil, false, nil
}
