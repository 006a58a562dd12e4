package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// TripStatus is the lifecycle state of a dispatch-engine trip.
type TripStatus string

const (
	TripStatusPending    TripStatus = "PENDING"
	TripStatusInProgress TripStatus = "IN_PROGRESS"
	TripStatusFull       TripStatus = "FULL"
	TripStatusCompleted  TripStatus = "COMPLETED"
	TripStatusCancelled  TripStatus = "CANCELLED"
)

// Trip is the committed artifact the assembler creates or extends: it binds
// a driver and vehicle to an ordered set of bookings and deliveries. From
// and To are kept verbatim in the wire string form of the seed request; once
// a trip reaches IN_PROGRESS, only seat count and status may change (see
// CanMutateSeats).
type Trip struct {
	ID                uuid.UUID  `json:"id" db:"id"`
	From              string     `json:"from" db:"from_location"`
	To                string     `json:"to" db:"to_location"`
	DepartureTime     time.Time  `json:"departure_time" db:"departure_time"`
	AvailableSeats    int        `json:"available_seats" db:"available_seats"`
	PricePerSeat      float64    `json:"price_per_seat" db:"price_per_seat"`
	DriverRef         uuid.UUID  `json:"driver_ref" db:"driver_ref"`
	VehicleRef        uuid.UUID  `json:"vehicle_ref" db:"vehicle_ref"`
	RouteCoordinates  string     `json:"route_coordinates" db:"route_coordinates"` // serialized {pickup, dropoff} sequences
	Status            TripStatus `json:"status" db:"status"`
	CreatedAt         time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at" db:"updated_at"`
}

// IsActive reports whether the trip is PENDING, IN_PROGRESS or FULL, i.e.
// still holds its driver and vehicle.
func (t *Trip) IsActive() bool {
	return t.Status == TripStatusPending || t.Status == TripStatusInProgress || t.Status == TripStatusFull
}

// CanMutateSeats reports whether the trip's seat accounting is still open
// to change. Once a trip completes or cancels, only external systems outside
// the engine's scope touch it further.
func (t *Trip) CanMutateSeats() bool {
	return t.Status != TripStatusCompleted && t.Status != TripStatusCancelled
}

// ApplySeatUsage recomputes status from the remaining seat count, per
// invariant 2/3: availableSeats = capacity - used, FULL iff zero.
func (t *Trip) ApplySeatUsage(capacity, used int, anyAttached bool) {
	t.AvailableSeats = capacity - used
	switch {
	case t.AvailableSeats <= 0:
		t.Status = TripStatusFull
	case anyAttached:
		t.Status = TripStatusInProgress
	}
}

// Validate checks trip invariants.
func (t *Trip) Validate() error {
	if t.From == "" || t.To == "" {
		return ErrInvalidPickupLocation
	}
	if t.AvailableSeats < 0 {
		return ErrInvalidSeatCount
	}
	if t.PricePerSeat < 0 {
		return ErrInvalidFareAmount
	}
	return nil
}

// BookingStatus is the lifecycle state of a passenger's seat reservation.
type BookingStatus string

const (
	BookingStatusPending   BookingStatus = "PENDING"
	BookingStatusConfirmed BookingStatus = "CONFIRMED"
	BookingStatusCompleted BookingStatus = "COMPLETED"
	BookingStatusCancelled BookingStatus = "CANCELLED"
)

// Booking links a Trip to the PassengerRequest it was created from.
type Booking struct {
	ID          uuid.UUID     `json:"id" db:"id"`
	TripRef     uuid.UUID     `json:"trip_ref" db:"trip_ref"`
	CustomerRef string        `json:"customer_ref" db:"customer_ref"`
	Seats       []string      `json:"seats" db:"-"`
	TotalPrice  float64       `json:"total_price" db:"total_price"`
	Status      BookingStatus `json:"status" db:"status"`
	CreatedAt   time.Time     `json:"created_at" db:"created_at"`
}

// Validate checks booking invariants: the total price must match the seats
// actually reserved at the trip's per-seat price (invariant 6).
func (b *Booking) Validate(pricePerSeat float64) error {
	if len(b.Seats) == 0 {
		return ErrInvalidSeatCount
	}
	expected := float64(len(b.Seats)) * pricePerSeat
	if !almostEqual(expected, b.TotalPrice) {
		return ErrInvalidFareAmount
	}
	return nil
}

func almostEqual(a, b float64) bool {
	const epsilon = 1e-6
	diff := a - b
	if diff < 0 {
		diff = -diff
	}
	return diff < epsilon
}

// DeliveryStatus is the lifecycle state of a parcel attached to a trip.
type DeliveryStatus string

const (
	DeliveryStatusPending   DeliveryStatus = "PENDING"
	DeliveryStatusInTransit DeliveryStatus = "IN_TRANSIT"
	DeliveryStatusDelivered DeliveryStatus = "DELIVERED"
	DeliveryStatusCancelled DeliveryStatus = "CANCELLED"
)

// Delivery links a Trip to the DeliveryRequest it was created from.
// Deliveries do not consume trip seats.
type Delivery struct {
	ID              uuid.UUID      `json:"id" db:"id"`
	TripRef         uuid.UUID      `json:"trip_ref" db:"trip_ref"`
	SenderRef       string         `json:"sender_ref" db:"sender_ref"`
	ReceiverName    string         `json:"receiver_name" db:"receiver_name"`
	ReceiverPhone   string         `json:"receiver_phone" db:"receiver_phone"`
	ItemDescription string         `json:"item_description" db:"item_description"`
	Weight          float64        `json:"weight" db:"weight"`
	InsuranceAmount *float64       `json:"insurance_amount,omitempty" db:"insurance_amount"`
	DeliveryCode    string         `json:"delivery_code" db:"delivery_code"`
	Status          DeliveryStatus `json:"status" db:"status"`
	CreatedAt       time.Time      `json:"created_at" db:"created_at"`
}

// deliveryCodePrefix documents invariant 7: D followed by at least six
// digits. Grounded on the original's apis/management/commands/
// dbscan_clustering.py, which formats delivery_code from the request's
// integer primary key (f"D{d.id:06d}"), not from any opaque string id.
const deliveryCodePrefix = "D"

// NewDeliveryCode formats a delivery code from a delivery request's numeric
// sequence number, zero-padded to six digits, so it always matches D\d{6,}
// regardless of how large the sequence grows.
func NewDeliveryCode(seq int64) string {
	return fmt.Sprintf("%s%06d", deliveryCodePrefix, seq)
}
