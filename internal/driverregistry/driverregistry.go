// Package driverregistry resolves available drivers and reserves them for
// the assembler's in-flight transaction (spec §4.D). Reservation is
// two-layered: a fast Redis SETNX lock guards against two concurrent rounds
// racing the same driver, and the authoritative `SELECT ... FOR UPDATE` row
// lock inside the assembler's own Postgres transaction is what actually
// decides the winner, since only the transaction's commit is durable.
package driverregistry

import (
	"context"
	"fmt"
	"time"

	"ride-dispatch-engine/internal/database"
	"ride-dispatch-engine/internal/models"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

// reservationTTL bounds how long a Redis lock survives a crashed round that
// never releases it.
const reservationTTL = 2 * time.Minute

// Registry reads driver candidates and brokers reservation.
type Registry struct {
	db    *database.PostgresDB
	redis *database.RedisClient
}

// New builds a Registry.
func New(db *database.PostgresDB, redis *database.RedisClient) *Registry {
	return &Registry{db: db, redis: redis}
}

// ListAvailable returns every driver with IsAvailable set and at least one
// vehicle of capacity >= minCapacity, ordered by rating descending so the
// selector sees its best candidates first (it still re-sorts by the full
// lexicographic key itself).
func (r *Registry) ListAvailable(ctx context.Context, minCapacity int) ([]*models.Driver, error) {
	var drivers []*models.Driver
	query := `SELECT id, user_ref, license_number, current_location, rating, total_trips, is_available, updated_at
	          FROM drivers WHERE is_available = true ORDER BY rating DESC`
	if err := r.db.SelectContext(ctx, &drivers, query); err != nil {
		return nil, err
	}

	ids := make([]uuid.UUID, len(drivers))
	for i, d := range drivers {
		ids[i] = d.ID
	}
	if len(ids) == 0 {
		return nil, nil
	}

	vehiclesByDriver, err := r.vehiclesFor(ctx, ids)
	if err != nil {
		return nil, err
	}

	result := make([]*models.Driver, 0, len(drivers))
	for _, d := range drivers {
		d.Vehicles = vehiclesByDriver[d.ID]
		if best, ok := d.PrimaryVehicle(); ok && best.Capacity >= minCapacity {
			result = append(result, d)
		}
	}
	return result, nil
}

func (r *Registry) vehiclesFor(ctx context.Context, driverIDs []uuid.UUID) (map[uuid.UUID][]models.Vehicle, error) {
	type row struct {
		DriverID uuid.UUID `db:"driver_id"`
		models.Vehicle
	}
	var rows []row
	query, args, err := sqlx.In(
		`SELECT dv.driver_id AS driver_id, v.id, v.capacity, v.vehicle_type, v.plate
		 FROM vehicles v JOIN driver_vehicles dv ON dv.vehicle_id = v.id
		 WHERE dv.driver_id IN (?) ORDER BY v.capacity DESC`, driverIDs)
	if err != nil {
		return nil, err
	}
	query = r.db.Rebind(query)
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, err
	}

	out := make(map[uuid.UUID][]models.Vehicle, len(driverIDs))
	for _, row := range rows {
		out[row.DriverID] = append(out[row.DriverID], row.Vehicle)
	}
	return out, nil
}

// Reserve marks driver as unavailable inside the caller's transaction,
// requiring it to still be available at lock time. ok is false if another
// round (or a concurrent reservation) already claimed it, never an error:
// the assembler treats that as "try the next candidate".
func (r *Registry) Reserve(ctx context.Context, tx *sqlx.Tx, driverID uuid.UUID) (bool, error) {
	lockKey := fmt.Sprintf("driver:reserved:%s", driverID)
	locked, err := r.redis.SetNX(ctx, lockKey, "1", reservationTTL)
	if err != nil {
		return false, err
	}
	if !locked {
		return false, nil
	}

	var current bool
	query := `SELECT is_available FROM drivers WHERE id = $1 FOR UPDATE`
	if err := tx.GetContext(ctx, &current, query, driverID); err != nil {
		_ = r.redis.Del(ctx, lockKey)
		return false, err
	}
	if !current {
		_ = r.redis.Del(ctx, lockKey)
		return false, nil
	}

	_, err = tx.ExecContext(ctx, `UPDATE drivers SET is_available = false, updated_at = $1 WHERE id = $2`, time.Now(), driverID)
	if err != nil {
		_ = r.redis.Del(ctx, lockKey)
		return false, err
	}
	return true, nil
}

// Release flips a driver back to available and drops its Redis lock. The
// assembler does not call it: when a cluster fails after Reserve, the
// transaction rollback undoes the row update and the Redis lock expires
// after reservationTTL.
func (r *Registry) Release(ctx context.Context, tx *sqlx.Tx, driverID uuid.UUID) error {
	_, err := tx.ExecContext(ctx, `UPDATE drivers SET is_available = true, updated_at = $1 WHERE id = $2`, time.Now(), driverID)
	lockKey := fmt.Sprintf("driver:reserved:%s", driverID)
	_ = r.redis.Del(ctx, lockKey)
	return err
}
