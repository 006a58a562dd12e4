package cluster

import (
	"testing"
	"time"

	"ride-dispatch-engine/internal/geo"
	"ride-dispatch-engine/internal/models"

	"github.com/stretchr/testify/assert"
)

func passengerItem(id string, from, to geo.Point) Item {
	return Item{
		Request: &models.PassengerRequest{ID: id, PassengerCount: 1, Status: models.RequestStatusPending},
		From:    from,
		To:      to,
	}
}

func TestCluster_BelowMinSizeAllSingletonsNotifyWaiting(t *testing.T) {
	items := []Item{
		passengerItem("r1", geo.Point{Lat: 24.71, Lon: 46.67}, geo.Point{Lat: 24.80, Lon: 46.70}),
	}

	groups := Cluster(items, Config{MinClusterSize: 3, Eps: 0.5, MinSamples: 2, Scaler: IdentityScaler{}})

	assert.Len(t, groups, 1)
	assert.True(t, groups[0].NotifyWaiting)
	assert.Len(t, groups[0].Items, 1)
}

func TestCluster_DenseGroupFormsOneCluster(t *testing.T) {
	items := []Item{
		passengerItem("r1", geo.Point{Lat: 24.71, Lon: 46.67}, geo.Point{Lat: 24.80, Lon: 46.70}),
		passengerItem("r2", geo.Point{Lat: 24.712, Lon: 46.671}, geo.Point{Lat: 24.801, Lon: 46.701}),
		passengerItem("r3", geo.Point{Lat: 24.709, Lon: 46.672}, geo.Point{Lat: 24.799, Lon: 46.699}),
	}

	groups := Cluster(items, Config{MinClusterSize: 3, Eps: 4.0, MinSamples: 2, Scaler: StandardScaler{}})

	assert.Len(t, groups, 1)
	total := 0
	for _, g := range groups {
		total += len(g.Items)
		assert.False(t, g.NotifyWaiting)
	}
	assert.Equal(t, 3, total)
}

func TestCluster_FarApartPointsAreNoiseSingletonsWithoutWaiting(t *testing.T) {
	items := []Item{
		passengerItem("r1", geo.Point{Lat: 24.71, Lon: 46.67}, geo.Point{Lat: 24.80, Lon: 46.70}),
		passengerItem("r2", geo.Point{Lat: 1.0, Lon: 1.0}, geo.Point{Lat: 2.0, Lon: 2.0}),
		passengerItem("r3", geo.Point{Lat: -10.0, Lon: -10.0}, geo.Point{Lat: -11.0, Lon: -11.0}),
	}

	groups := Cluster(items, Config{MinClusterSize: 3, Eps: 0.01, MinSamples: 3, Scaler: IdentityScaler{}})

	for _, g := range groups {
		assert.False(t, g.NotifyWaiting)
		assert.Len(t, g.Items, 1)
	}
}

func TestBucket_SmallGroupUnsplit(t *testing.T) {
	g := Group{Items: []Item{{DepartureTime: time.Now()}}}
	out := Bucket(g, time.Now())
	assert.Len(t, out, 1)
}

func TestBucket_SplitsByDepartureTime(t *testing.T) {
	now := time.Now()
	g := Group{Items: []Item{
		{DepartureTime: now.Add(5 * time.Minute)},
		{DepartureTime: now.Add(6 * time.Minute)},
		{DepartureTime: now.Add(120 * time.Minute)},
		{DepartureTime: now.Add(121 * time.Minute)},
	}}

	out := Bucket(g, now)

	total := 0
	for _, b := range out {
		total += len(b.Items)
	}
	assert.Equal(t, 4, total)
	assert.GreaterOrEqual(t, len(out), 2)
}
