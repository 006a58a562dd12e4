// Package assembler is the transactional heart of a dispatch round: given
// one cluster.Group it finds-or-creates a Trip, reserves a driver, attaches
// bookings and deliveries under the vehicle's seat capacity, and flips every
// affected status, all inside a single serializable transaction (spec
// §4.G). Every public entry point takes one Group and returns either a
// Result or a sentinel error from internal/models classifying the failure
// for the caller's retry/notify decision.
package assembler

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"time"

	"ride-dispatch-engine/internal/cluster"
	"ride-dispatch-engine/internal/config"
	"ride-dispatch-engine/internal/driverregistry"
	"ride-dispatch-engine/internal/geo"
	"ride-dispatch-engine/internal/models"
	"ride-dispatch-engine/internal/notifier"
	"ride-dispatch-engine/internal/requeststore"
	"ride-dispatch-engine/internal/route"
	"ride-dispatch-engine/internal/selector"

	"github.com/google/uuid"
)

// Clock is the injectable time source (spec §9) shared with the scheduler.
type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

// RealClock is the production Clock implementation.
var RealClock Clock = realClock{}

// Assembler wires the store, driver registry and pricing/clustering config
// together to run one cluster through spec §4.G's six steps.
type Assembler struct {
	store   *requeststore.Store
	drivers *driverregistry.Registry
	cfg     config.DispatchConfig
	clock   Clock
}

// New builds an Assembler.
func New(store *requeststore.Store, drivers *driverregistry.Registry, cfg config.DispatchConfig, clock Clock) *Assembler {
	if clock == nil {
		clock = RealClock
	}
	return &Assembler{store: store, drivers: drivers, cfg: cfg, clock: clock}
}

// Clock returns the Assembler's time source, so callers that need to share
// it (the round's time-bucketing pass) don't have to thread a second one
// through separately.
func (a *Assembler) Clock() Clock {
	return a.clock
}

// Result summarizes what one Assemble call actually did, for the round's
// metrics and logging.
type Result struct {
	TripID   uuid.UUID
	Reused   bool
	Attached []string // request ids attached this round
	Skipped  []string // request ids left PENDING (capacity exceeded)
}

// routeCoordinates is the serialized form stored on Trip.RouteCoordinates.
type routeCoordinates struct {
	Pickup  []geo.Point `json:"pickup"`
	Dropoff []geo.Point `json:"dropoff"`
}

// Assemble runs spec §4.G's six steps for one group inside a single
// serializable transaction. A nil error and non-nil Result means the
// transaction committed; any error means it rolled back in full — no
// Trip/Booking/Delivery row from this group survives (invariant 10).
func (a *Assembler) Assemble(ctx context.Context, group cluster.Group) (*Result, error) {
	if len(group.Items) == 0 {
		return &Result{}, nil
	}

	rep := group.Items[0]
	minSeats, totalPassengers := minSeatsFor(group)

	var result Result

	err := a.store.WithTransaction(ctx, func(ctx context.Context, tx *requeststore.Tx) error {
		trip, reused, err := a.findOrCreateTrip(ctx, tx, group, rep, minSeats, totalPassengers)
		if err != nil {
			return err
		}

		capacityTotal, err := a.capacityOf(ctx, tx, trip, reused)
		if err != nil {
			return err
		}
		seatsUsed := capacityTotal - trip.AvailableSeats

		anyAttached := false

		for _, item := range group.Items {
			if item.Request.Kind() != models.RequestKindPassenger {
				continue
			}
			pr := item.Request.(*models.PassengerRequest)

			if seatsUsed+pr.PassengerCount > capacityTotal {
				result.Skipped = append(result.Skipped, pr.ID)
				continue
			}

			ok, err := tx.UpdateRequestStatus(ctx, pr.ID, models.RequestKindPassenger, models.RequestStatusAccepted)
			if err != nil {
				return err
			}
			if !ok {
				continue // already transitioned by a concurrent worker this tick
			}

			seats := make([]string, pr.PassengerCount)
			for i := 0; i < pr.PassengerCount; i++ {
				seats[i] = fmt.Sprintf("%d", seatsUsed+i+1)
			}

			booking := &models.Booking{
				TripRef:     trip.ID,
				CustomerRef: pr.RequesterRef,
				Seats:       seats,
				TotalPrice:  float64(pr.PassengerCount) * trip.PricePerSeat,
				Status:      models.BookingStatusConfirmed,
			}
			if err := tx.CreateBooking(ctx, booking); err != nil {
				return err
			}

			seatsUsed += pr.PassengerCount
			anyAttached = true
			result.Attached = append(result.Attached, pr.ID)

			tx.NotifyAfterCommit(pr.RequesterRef, notifier.KindBookingConfirmed, map[string]interface{}{
				"trip_id": trip.ID.String(),
				"seats":   seats,
			})
		}

		for _, item := range group.Items {
			if item.Request.Kind() != models.RequestKindDelivery {
				continue
			}
			dr := item.Request.(*models.DeliveryRequest)

			ok, err := tx.UpdateRequestStatus(ctx, dr.ID, models.RequestKindDelivery, models.RequestStatusAccepted)
			if err != nil {
				return err
			}
			if !ok {
				continue
			}

			delivery := &models.Delivery{
				TripRef:         trip.ID,
				SenderRef:       dr.SenderRef,
				ReceiverName:    dr.ReceiverName,
				ReceiverPhone:   dr.ReceiverPhone,
				ItemDescription: dr.ItemDescription,
				Weight:          dr.Weight,
				InsuranceAmount: dr.InsuranceAmount,
				DeliveryCode:    models.NewDeliveryCode(dr.CodeSeq),
				Status:          models.DeliveryStatusInTransit,
			}
			if err := tx.CreateDelivery(ctx, delivery); err != nil {
				return err
			}

			anyAttached = true
			result.Attached = append(result.Attached, dr.ID)

			tx.NotifyAfterCommit(dr.SenderRef, notifier.KindDeliveryConfirmed, map[string]interface{}{
				"trip_id":       trip.ID.String(),
				"delivery_code": delivery.DeliveryCode,
			})
		}

		trip.ApplySeatUsage(capacityTotal, seatsUsed, anyAttached)
		if err := tx.UpdateTripSeats(ctx, trip.ID, trip.AvailableSeats, trip.Status); err != nil {
			return err
		}

		userRefOf := func(r models.PendingRequest) string {
			switch v := r.(type) {
			case *models.PassengerRequest:
				return v.RequesterRef
			case *models.DeliveryRequest:
				return v.SenderRef
			}
			return r.RequestID()
		}

		if !reused && anyAttached {
			tx.NotifyAfterCommit(userRefOf(rep.Request), notifier.KindTripAssigned, map[string]interface{}{
				"trip_id": trip.ID.String(),
			})
		}

		if group.NotifyWaiting {
			for _, item := range group.Items {
				tx.NotifyAfterCommit(userRefOf(item.Request), notifier.KindRetryWaiting, map[string]interface{}{
					"reason": "below minimum cluster size this round",
				})
			}
		}

		result.TripID = trip.ID
		result.Reused = reused
		return nil
	})

	if err != nil {
		return nil, err
	}
	return &result, nil
}

// minSeatsFor returns the seat floor the existing-trip lookup requires: the
// cluster's total passenger count, or 1 when the group carries deliveries
// only (spec §4.G step 1).
func minSeatsFor(group cluster.Group) (minSeats int, totalPassengers int) {
	for _, item := range group.Items {
		if pr, ok := item.Request.(*models.PassengerRequest); ok {
			totalPassengers += pr.PassengerCount
		}
	}
	if totalPassengers == 0 {
		return 1, 0
	}
	return totalPassengers, totalPassengers
}

// capacityOf returns the vehicle's total seat capacity for trip. A freshly
// created trip's AvailableSeats already equals the full capacity; a reused
// trip requires a lookup since Trip does not itself store capacity.
func (a *Assembler) capacityOf(ctx context.Context, tx *requeststore.Tx, trip *models.Trip, reused bool) (int, error) {
	if !reused {
		return trip.AvailableSeats, nil
	}
	return tx.VehicleCapacity(ctx, trip.VehicleRef)
}

// findOrCreateTrip implements spec §4.G steps 1–3.
func (a *Assembler) findOrCreateTrip(ctx context.Context, tx *requeststore.Tx, group cluster.Group, rep cluster.Item, minSeats, totalPassengers int) (*models.Trip, bool, error) {
	proximityKm := a.cfg.ProximityThresholdM / 1000.0

	candidates, err := tx.CandidateTrips(ctx, minSeats)
	if err != nil {
		return nil, false, err
	}

	pickup := make([]geo.Point, len(group.Items))
	dropoff := make([]geo.Point, len(group.Items))
	for i, item := range group.Items {
		pickup[i] = item.From
		dropoff[i] = item.To
	}
	groupRoute := append(append([]geo.Point{}, pickup...), dropoff...)

	for _, t := range candidates {
		from, ok1 := geo.Parse(t.From)
		to, ok2 := geo.Parse(t.To)
		if !ok1 || !ok2 {
			continue
		}
		if geo.Haversine(from, rep.From) <= proximityKm && geo.Haversine(to, rep.To) <= proximityKm {
			return t, true, nil
		}
	}

	// Endpoints didn't line up closely enough, but the candidate's whole
	// route might still be an acceptable detour to merge into: compare the
	// discrete Fréchet distance between polylines (spec §4.A routeSimilarity)
	// against the configured merge threshold.
	if merged := a.findMergeableTrip(candidates, groupRoute); merged != nil {
		return merged, true, nil
	}

	driver, vehicle, err := a.acquireDriver(ctx, tx, rep, minSeats)
	if err != nil {
		return nil, false, err
	}

	coords := routeCoordinates{Pickup: route.Sequence(pickup), Dropoff: route.Sequence(dropoff)}
	coordsJSON, err := json.Marshal(coords)
	if err != nil {
		return nil, false, err
	}

	fromStr, toStr := rep.Request.Endpoints()
	trip := &models.Trip{
		From:             fromStr,
		To:               toStr,
		DepartureTime:    a.clock.Now(),
		AvailableSeats:   vehicle.Capacity,
		PricePerSeat:     a.pricePerSeat(len(group.Items)),
		DriverRef:        driver.ID,
		VehicleRef:       vehicle.ID,
		RouteCoordinates: string(coordsJSON),
		Status:           models.TripStatusPending,
	}
	if err := tx.CreateTrip(ctx, trip); err != nil {
		return nil, false, err
	}

	return trip, false, nil
}

// findMergeableTrip looks for a candidate trip whose stored route polyline
// is within the configured merge threshold of groupRoute's discrete Fréchet
// distance, so a cluster that doesn't line up on endpoints alone can still
// extend a trip that's already heading the same way.
func (a *Assembler) findMergeableTrip(candidates []*models.Trip, groupRoute []geo.Point) *models.Trip {
	for _, t := range candidates {
		var coords routeCoordinates
		if err := json.Unmarshal([]byte(t.RouteCoordinates), &coords); err != nil {
			continue
		}
		tripRoute := append(append([]geo.Point{}, coords.Pickup...), coords.Dropoff...)
		if geo.FrechetDistance(tripRoute, groupRoute) <= a.cfg.RouteMergeThresholdKM {
			return t
		}
	}
	return nil
}

// acquireDriver implements spec §4.F + §4.D's reservation: drop candidates
// whose vehicle can't seat minSeats, rank what's left by the lexicographic
// tuple, and hand the ranking to selector.Assign to reserve the first
// candidate the registry actually lets through.
func (a *Assembler) acquireDriver(ctx context.Context, tx *requeststore.Tx, rep cluster.Item, minSeats int) (*models.Driver, models.Vehicle, error) {
	candidates, err := a.drivers.ListAvailable(ctx, minSeats)
	if err != nil {
		return nil, models.Vehicle{}, err
	}
	if len(candidates) == 0 {
		return nil, models.Vehicle{}, models.ErrNoAvailableDriver
	}

	capable := make([]*models.Driver, 0, len(candidates))
	vehicles := make(map[uuid.UUID]models.Vehicle, len(candidates))
	for _, d := range candidates {
		vehicle, hasVehicle := d.PrimaryVehicle()
		if !hasVehicle || vehicle.Capacity < minSeats {
			continue
		}
		capable = append(capable, d)
		vehicles[d.ID] = vehicle
	}
	if len(capable) == 0 {
		return nil, models.Vehicle{}, models.ErrNoAvailableDriver
	}

	ranked := selector.Rank(rep.From, capable)
	driver, ok, err := selector.Assign(ctx, tx.Raw(), a.drivers, ranked)
	if err != nil {
		return nil, models.Vehicle{}, err
	}
	if !ok {
		return nil, models.Vehicle{}, models.ErrNoAvailableDriver
	}

	return driver, vehicles[driver.ID], nil
}

// pricePerSeat implements spec §4.G step 3's pricing rule.
func (a *Assembler) pricePerSeat(clusterSize int) float64 {
	if !a.cfg.DynamicPricingEnabled {
		return a.cfg.DefaultPricePerSeat
	}

	hour := a.clock.Now().Hour()
	peak := (hour >= 7 && hour <= 9) || (hour >= 17 && hour <= 19)
	multiplier := 0.9
	if peak {
		multiplier = 1.2
	}

	price := 50.0 * (float64(clusterSize) / 10.0) * multiplier
	return math.Round(price*100) / 100
}
