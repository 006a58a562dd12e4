package assembler

import (
	"testing"
	"time"

	"ride-dispatch-engine/internal/cluster"
	"ride-dispatch-engine/internal/config"
	"ride-dispatch-engine/internal/models"

	"github.com/stretchr/testify/assert"
)

type fixedClock struct{ t time.Time }

func (f fixedClock) Now() time.Time { return f.t }

func TestPricePerSeat_FixedWhenDynamicDisabled(t *testing.T) {
	a := New(nil, nil, config.DispatchConfig{DynamicPricingEnabled: false, DefaultPricePerSeat: 25.0}, fixedClock{t: time.Date(2026, 1, 1, 8, 0, 0, 0, time.UTC)})
	assert.Equal(t, 25.0, a.pricePerSeat(5))
}

func TestPricePerSeat_DynamicPeakVsOffPeak(t *testing.T) {
	peak := New(nil, nil, config.DispatchConfig{DynamicPricingEnabled: true}, fixedClock{t: time.Date(2026, 1, 1, 8, 0, 0, 0, time.UTC)})
	offPeak := New(nil, nil, config.DispatchConfig{DynamicPricingEnabled: true}, fixedClock{t: time.Date(2026, 1, 1, 13, 0, 0, 0, time.UTC)})

	assert.InDelta(t, 60.0, peak.pricePerSeat(10), 0.001)
	assert.InDelta(t, 45.0, offPeak.pricePerSeat(10), 0.001)
}

func TestMinSeatsFor_DeliveryOnlyGroupFloorsAtOne(t *testing.T) {
	group := cluster.Group{Items: []cluster.Item{
		{Request: &models.DeliveryRequest{ID: "d1"}},
	}}

	minSeats, total := minSeatsFor(group)
	assert.Equal(t, 1, minSeats)
	assert.Equal(t, 0, total)
}

func TestMinSeatsFor_SumsPassengerCounts(t *testing.T) {
	group := cluster.Group{Items: []cluster.Item{
		{Request: &models.PassengerRequest{ID: "p1", PassengerCount: 2}},
		{Request: &models.PassengerRequest{ID: "p2", PassengerCount: 1}},
	}}

	minSeats, total := minSeatsFor(group)
	assert.Equal(t, 3, minSeats)
	assert.Equal(t, 3, total)
}
