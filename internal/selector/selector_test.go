package selector

import (
	"testing"

	"ride-dispatch-engine/internal/geo"
	"ride-dispatch-engine/internal/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func driverAt(lat, lon, rating float64, trips int) *models.Driver {
	return &models.Driver{
		ID:              uuid.New(),
		UserRef:         "u",
		LicenseNumber:   "lic",
		CurrentLocation: geo.Point{Lat: lat, Lon: lon}.String(),
		Rating:          rating,
		TotalTrips:      trips,
		IsAvailable:     true,
	}
}

func TestRank_OrdersByDistanceFirst(t *testing.T) {
	pickup := geo.Point{Lat: 0, Lon: 0}
	near := driverAt(0, 0.01, 3.0, 10)
	far := driverAt(0, 1.0, 5.0, 100)

	ranked := Rank(pickup, []*models.Driver{far, near})

	assert.Equal(t, near.ID, ranked[0].Driver.ID)
	assert.Equal(t, far.ID, ranked[1].Driver.ID)
}

func TestRank_TiesBrokenByRatingThenTrips(t *testing.T) {
	pickup := geo.Point{Lat: 0, Lon: 0}
	lowRating := driverAt(0, 0.01, 3.0, 50)
	highRating := driverAt(0, 0.01, 4.5, 10)

	ranked := Rank(pickup, []*models.Driver{lowRating, highRating})

	assert.Equal(t, highRating.ID, ranked[0].Driver.ID)

	sameRatingFewerTrips := driverAt(0, 0.01, 4.5, 5)
	ranked = Rank(pickup, []*models.Driver{highRating, sameRatingFewerTrips})
	assert.Equal(t, sameRatingFewerTrips.ID, ranked[0].Driver.ID)
}

func TestRank_SkipsUnparseableLocation(t *testing.T) {
	pickup := geo.Point{Lat: 0, Lon: 0}
	broken := driverAt(0, 0, 5, 1)
	broken.CurrentLocation = "not-a-location"

	ranked := Rank(pickup, []*models.Driver{broken})

	assert.Empty(t, ranked)
}
