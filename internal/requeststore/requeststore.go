// Package requeststore is the Postgres-backed adapter for pending request
// reads and the assembler's transactional writes (spec §4.C, §6's Store
// interface). Reads use sqlx's struct scanning; the transactional surface
// buffers notifications and only flushes them after a successful commit.
package requeststore

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"ride-dispatch-engine/internal/database"
	"ride-dispatch-engine/internal/models"
	"ride-dispatch-engine/internal/notifier"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

// Store is the non-transactional, read side of the adapter plus the
// transaction factory.
type Store struct {
	db       *database.PostgresDB
	notifier *notifier.Notifier
}

// New builds a Store.
func New(db *database.PostgresDB, n *notifier.Notifier) *Store {
	return &Store{db: db, notifier: n}
}

// ListPendingPassengers returns every PassengerRequest in PENDING status.
func (s *Store) ListPendingPassengers(ctx context.Context) ([]*models.PassengerRequest, error) {
	var rows []*models.PassengerRequest
	query := `SELECT id, requester_ref, from_location, to_location, departure_time, passenger_count, status, created_at
	          FROM passenger_requests WHERE status = $1 ORDER BY created_at ASC`
	if err := s.db.SelectContext(ctx, &rows, query, models.RequestStatusPending); err != nil {
		return nil, classify(err)
	}
	return rows, nil
}

// ListPendingDeliveries returns every DeliveryRequest in PENDING status.
func (s *Store) ListPendingDeliveries(ctx context.Context) ([]*models.DeliveryRequest, error) {
	var rows []*models.DeliveryRequest
	query := `SELECT id, code_seq, sender_ref, from_location, to_location, item_description, weight, insurance_amount,
	                 receiver_name, receiver_phone, status, created_at
	          FROM delivery_requests WHERE status = $1 ORDER BY created_at ASC`
	if err := s.db.SelectContext(ctx, &rows, query, models.RequestStatusPending); err != nil {
		return nil, classify(err)
	}
	return rows, nil
}

// Tx is the transactional surface the assembler drives one cluster through.
// Every method here runs against the same *sqlx.Tx and the same
// notification buffer, flushed only by WithTransaction on commit.
type Tx struct {
	tx    *sqlx.Tx
	notes *[]bufferedNotification
}

type bufferedNotification struct {
	userRef string
	kind    notifier.Kind
	payload map[string]interface{}
}

// Raw exposes the underlying *sqlx.Tx so the driver registry can reserve a
// driver inside the same transaction (spec §4.D requires the reservation to
// share the assembler's transaction scope).
func (t *Tx) Raw() *sqlx.Tx { return t.tx }

// NotifyAfterCommit buffers a notification to fire only once the enclosing
// transaction commits; it is discarded entirely on rollback.
func (t *Tx) NotifyAfterCommit(userRef string, kind notifier.Kind, payload map[string]interface{}) {
	*t.notes = append(*t.notes, bufferedNotification{userRef: userRef, kind: kind, payload: payload})
}

// CandidateTrips returns every open trip with at least minSeats available,
// for the assembler to filter by endpoint proximity itself.
func (t *Tx) CandidateTrips(ctx context.Context, minSeats int) ([]*models.Trip, error) {
	var trips []*models.Trip
	query := `SELECT id, from_location, to_location, departure_time, available_seats, price_per_seat,
	                 driver_ref, vehicle_ref, route_coordinates, status, created_at, updated_at
	          FROM trips
	          WHERE status IN ($1, $2) AND available_seats >= $3
	          FOR UPDATE`
	if err := t.tx.SelectContext(ctx, &trips, query, models.TripStatusPending, models.TripStatusInProgress, minSeats); err != nil {
		return nil, classify(err)
	}
	return trips, nil
}

// VehicleCapacity looks up a vehicle's seat capacity, needed to back-derive
// seatsUsed when the assembler reuses an existing trip (its AvailableSeats
// column alone doesn't carry the original capacity).
func (t *Tx) VehicleCapacity(ctx context.Context, vehicleID uuid.UUID) (int, error) {
	var capacity int
	err := t.tx.GetContext(ctx, &capacity, `SELECT capacity FROM vehicles WHERE id = $1`, vehicleID)
	return capacity, classify(err)
}

// CreateTrip inserts a new trip.
func (t *Tx) CreateTrip(ctx context.Context, trip *models.Trip) error {
	if trip.ID == uuid.Nil {
		trip.ID = uuid.New()
	}
	now := time.Now()
	trip.CreatedAt, trip.UpdatedAt = now, now

	query := `INSERT INTO trips (id, from_location, to_location, departure_time, available_seats,
	                 price_per_seat, driver_ref, vehicle_ref, route_coordinates, status, created_at, updated_at)
	          VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)`
	_, err := t.tx.ExecContext(ctx, query, trip.ID, trip.From, trip.To, trip.DepartureTime, trip.AvailableSeats,
		trip.PricePerSeat, trip.DriverRef, trip.VehicleRef, trip.RouteCoordinates, trip.Status, trip.CreatedAt, trip.UpdatedAt)
	return classify(err)
}

// UpdateTripSeats implements Step 6: set availableSeats and status.
func (t *Tx) UpdateTripSeats(ctx context.Context, tripID uuid.UUID, seats int, status models.TripStatus) error {
	query := `UPDATE trips SET available_seats = $1, status = $2, updated_at = $3 WHERE id = $4`
	_, err := t.tx.ExecContext(ctx, query, seats, status, time.Now(), tripID)
	return classify(err)
}

// CreateBooking inserts a CONFIRMED booking row.
func (t *Tx) CreateBooking(ctx context.Context, booking *models.Booking) error {
	if booking.ID == uuid.Nil {
		booking.ID = uuid.New()
	}
	booking.CreatedAt = time.Now()

	query := `INSERT INTO bookings (id, trip_ref, customer_ref, seats, total_price, status, created_at)
	          VALUES ($1,$2,$3,$4,$5,$6,$7)`
	_, err := t.tx.ExecContext(ctx, query, booking.ID, booking.TripRef, booking.CustomerRef,
		pq.Array(booking.Seats), booking.TotalPrice, booking.Status, booking.CreatedAt)
	return classify(err)
}

// CreateDelivery inserts an IN_TRANSIT delivery row.
func (t *Tx) CreateDelivery(ctx context.Context, delivery *models.Delivery) error {
	if delivery.ID == uuid.Nil {
		delivery.ID = uuid.New()
	}
	delivery.CreatedAt = time.Now()

	query := `INSERT INTO deliveries (id, trip_ref, sender_ref, receiver_name, receiver_phone,
	                 item_description, weight, insurance_amount, delivery_code, status, created_at)
	          VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)`
	_, err := t.tx.ExecContext(ctx, query, delivery.ID, delivery.TripRef, delivery.SenderRef, delivery.ReceiverName,
		delivery.ReceiverPhone, delivery.ItemDescription, delivery.Weight, delivery.InsuranceAmount,
		delivery.DeliveryCode, delivery.Status, delivery.CreatedAt)
	return classify(err)
}

// UpdateRequestStatus performs the idempotent `UPDATE ... WHERE status =
// PENDING` transition invariant 1 relies on. ok is false if the row was not
// in PENDING (already transitioned by a concurrent worker, or never
// existed), which the caller treats as "nothing to do", not an error.
func (t *Tx) UpdateRequestStatus(ctx context.Context, id string, kind models.RequestKind, newStatus models.RequestStatus) (bool, error) {
	table := "passenger_requests"
	if kind == models.RequestKindDelivery {
		table = "delivery_requests"
	}

	query := fmt.Sprintf(`UPDATE %s SET status = $1 WHERE id = $2 AND status = $3`, table)
	result, err := t.tx.ExecContext(ctx, query, newStatus, id, models.RequestStatusPending)
	if err != nil {
		return false, classify(err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, classify(err)
	}
	return affected == 1, nil
}

// WithTransaction runs fn inside a serializable transaction. On success the
// transaction commits and buffered notifications flush; on any error
// (including a panic, which is re-raised after rollback) it rolls back and
// the buffer is discarded untouched.
func (s *Store) WithTransaction(ctx context.Context, fn func(ctx context.Context, tx *Tx) error) error {
	sqlTx, err := s.db.BeginSerializable(ctx)
	if err != nil {
		return classify(err)
	}

	notes := make([]bufferedNotification, 0, 4)
	txHandle := &Tx{tx: sqlTx, notes: &notes}

	defer func() {
		if p := recover(); p != nil {
			_ = sqlTx.Rollback()
			panic(p)
		}
	}()

	if err := fn(ctx, txHandle); err != nil {
		_ = sqlTx.Rollback()
		return err
	}

	if err := sqlTx.Commit(); err != nil {
		return classify(err)
	}

	if s.notifier != nil {
		for _, n := range notes {
			_ = s.notifier.Enqueue(ctx, n.userRef, n.kind, n.payload)
		}
	}

	return nil
}

// classify maps low-level driver errors onto the engine's STORE_TRANSIENT /
// STORE_PERMANENT distinction (spec §7).
func classify(err error) error {
	if err == nil {
		return nil
	}
	if err == sql.ErrNoRows {
		return err
	}
	if pqErr, ok := err.(*pq.Error); ok {
		switch pqErr.Code.Class() {
		case "08": // connection exception
			return fmt.Errorf("%w: %v", models.ErrStoreTransient, err)
		case "23": // integrity constraint violation
			return fmt.Errorf("%w: %v", models.ErrStorePermanent, err)
		}
	}
	return fmt.Errorf("%w: %v", models.ErrStoreTransient, err)
}
