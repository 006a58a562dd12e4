// Command populate seeds a freshly migrated database with a handful of
// drivers, vehicles, and pending passenger/delivery requests so a local
// dispatch round has something to cluster and assemble. Grounded on the
// teacher's own populate tool: same connect-then-insert shape, rewritten
// against the drivers/vehicles/passenger_requests/delivery_requests schema.
package main

import (
	"fmt"
	"log"
	"math/rand"
	"time"

	"ride-dispatch-engine/internal/config"
	"ride-dispatch-engine/internal/database"
	"ride-dispatch-engine/internal/logging"

	"github.com/google/uuid"
)

var jakartaAreas = [][2]float64{
	{-6.2088, 106.8456}, // central
	{-6.1944, 106.8229}, // north
	{-6.2297, 106.8261}, // south
	{-6.2615, 106.7810}, // west
	{-6.2250, 106.9004}, // east
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := logging.NewLogger(&cfg.Logging)
	if err != nil {
		log.Fatalf("failed to initialize logger: %v", err)
	}

	db, err := database.NewPostgresConnection(&cfg.Database, logger)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}
	defer db.Close()

	if err := populate(db); err != nil {
		log.Fatalf("failed to populate data: %v", err)
	}

	fmt.Println("successfully populated database with sample data")
}

func populate(db *database.PostgresDB) error {
	if _, err := db.Exec(`DELETE FROM bookings`); err != nil {
		return fmt.Errorf("clear bookings: %w", err)
	}
	if _, err := db.Exec(`DELETE FROM deliveries`); err != nil {
		return fmt.Errorf("clear deliveries: %w", err)
	}
	if _, err := db.Exec(`DELETE FROM trips`); err != nil {
		return fmt.Errorf("clear trips: %w", err)
	}
	if _, err := db.Exec(`DELETE FROM driver_vehicles`); err != nil {
		return fmt.Errorf("clear driver_vehicles: %w", err)
	}
	if _, err := db.Exec(`DELETE FROM vehicles`); err != nil {
		return fmt.Errorf("clear vehicles: %w", err)
	}
	if _, err := db.Exec(`DELETE FROM drivers`); err != nil {
		return fmt.Errorf("clear drivers: %w", err)
	}
	if _, err := db.Exec(`DELETE FROM passenger_requests`); err != nil {
		return fmt.Errorf("clear passenger_requests: %w", err)
	}
	if _, err := db.Exec(`DELETE FROM delivery_requests`); err != nil {
		return fmt.Errorf("clear delivery_requests: %w", err)
	}

	driverIDs, err := seedDrivers(db, 12)
	if err != nil {
		return fmt.Errorf("seed drivers: %w", err)
	}
	fmt.Printf("inserted %d drivers with vehicles\n", len(driverIDs))

	passengers, err := seedPassengerRequests(db, 40)
	if err != nil {
		return fmt.Errorf("seed passenger requests: %w", err)
	}
	fmt.Printf("inserted %d passenger requests\n", passengers)

	deliveries, err := seedDeliveryRequests(db, 15)
	if err != nil {
		return fmt.Errorf("seed delivery requests: %w", err)
	}
	fmt.Printf("inserted %d delivery requests\n", deliveries)

	return nil
}

// seedDrivers inserts n available drivers, one vehicle each, and the
// driver_vehicles join row tying them together.
func seedDrivers(db *database.PostgresDB, n int) ([]uuid.UUID, error) {
	vehicleTypes := []string{"sedan", "van", "motorcycle"}
	ids := make([]uuid.UUID, 0, n)

	for i := 0; i < n; i++ {
		driverID := uuid.New()
		vehicleID := uuid.New()
		area := jakartaAreas[i%len(jakartaAreas)]
		location := fmt.Sprintf("%.6f,%.6f", area[0]+rand.Float64()*0.02-0.01, area[1]+rand.Float64()*0.02-0.01)

		_, err := db.Exec(
			`INSERT INTO drivers (id, user_ref, license_number, current_location, rating, total_trips, is_available, updated_at)
			 VALUES ($1,$2,$3,$4,$5,$6,true,$7)`,
			driverID, fmt.Sprintf("driver-%d", i+1), fmt.Sprintf("LIC-%06d", i+1), location,
			3.5+rand.Float64()*1.5, rand.Intn(500), time.Now())
		if err != nil {
			return nil, err
		}

		vType := vehicleTypes[i%len(vehicleTypes)]
		capacity := 4
		if vType == "van" {
			capacity = 8
		} else if vType == "motorcycle" {
			capacity = 1
		}

		if _, err := db.Exec(
			`INSERT INTO vehicles (id, capacity, vehicle_type, plate) VALUES ($1,$2,$3,$4)`,
			vehicleID, capacity, vType, fmt.Sprintf("B %04d XY", i+1),
		); err != nil {
			return nil, err
		}

		if _, err := db.Exec(
			`INSERT INTO driver_vehicles (driver_id, vehicle_id) VALUES ($1,$2)`,
			driverID, vehicleID,
		); err != nil {
			return nil, err
		}

		ids = append(ids, driverID)
	}
	return ids, nil
}

// seedPassengerRequests inserts n pending passenger requests clustered
// around jakartaAreas so a dispatch round's DBSCAN pass finds real density.
func seedPassengerRequests(db *database.PostgresDB, n int) (int, error) {
	count := 0
	for i := 0; i < n; i++ {
		from := jakartaAreas[i%len(jakartaAreas)]
		to := jakartaAreas[(i+1)%len(jakartaAreas)]

		_, err := db.Exec(
			`INSERT INTO passenger_requests (id, requester_ref, from_location, to_location, departure_time, passenger_count, status, created_at)
			 VALUES ($1,$2,$3,$4,$5,$6,'PENDING',$7)`,
			uuid.New().String(), fmt.Sprintf("rider-%d", i+1),
			fmt.Sprintf("%.6f,%.6f", from[0]+rand.Float64()*0.02-0.01, from[1]+rand.Float64()*0.02-0.01),
			fmt.Sprintf("%.6f,%.6f", to[0]+rand.Float64()*0.02-0.01, to[1]+rand.Float64()*0.02-0.01),
			time.Now().Add(time.Duration(rand.Intn(30))*time.Minute), 1+rand.Intn(3), time.Now(),
		)
		if err != nil {
			return count, err
		}
		count++
	}
	return count, nil
}

// seedDeliveryRequests inserts n pending delivery requests, same clustering
// strategy as seedPassengerRequests.
func seedDeliveryRequests(db *database.PostgresDB, n int) (int, error) {
	count := 0
	for i := 0; i < n; i++ {
		from := jakartaAreas[i%len(jakartaAreas)]
		to := jakartaAreas[(i+2)%len(jakartaAreas)]

		_, err := db.Exec(
			`INSERT INTO delivery_requests (id, sender_ref, from_location, to_location, item_description, weight, receiver_name, receiver_phone, status, created_at)
			 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,'PENDING',$9)`,
			uuid.New().String(), fmt.Sprintf("sender-%d", i+1),
			fmt.Sprintf("%.6f,%.6f", from[0]+rand.Float64()*0.02-0.01, from[1]+rand.Float64()*0.02-0.01),
			fmt.Sprintf("%.6f,%.6f", to[0]+rand.Float64()*0.02-0.01, to[1]+rand.Float64()*0.02-0.01),
			fmt.Sprintf("parcel #%d", i+1), rand.Float64()*15,
			fmt.Sprintf("receiver-%d", i+1), "021-555-0100", time.Now(),
		)
		if err != nil {
			return count, err
		}
		count++
	}
	return count, nil
}
