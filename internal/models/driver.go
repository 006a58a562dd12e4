package models

import (
	"time"

	"github.com/google/uuid"
)

// Vehicle is a seat-carrying asset owned by one or more drivers.
type Vehicle struct {
	ID          uuid.UUID `json:"id" db:"id"`
	Capacity    int       `json:"capacity" db:"capacity"`
	VehicleType string    `json:"vehicle_type" db:"vehicle_type"`
	Plate       string    `json:"plate" db:"plate"`
}

// Validate checks vehicle invariants required by the assembler.
func (v *Vehicle) Validate() error {
	if v.Capacity < 1 {
		return ErrInvalidVehicleCapacity
	}
	if v.VehicleType == "" {
		return ErrInvalidVehicleType
	}
	return nil
}

// Driver is a candidate for trip assignment. Availability is a semaphore:
// the engine never flips it directly, only through DriverRegistry's
// Reserve/Release (see internal/driverregistry), which is the sole legal
// mutator of IsAvailable.
type Driver struct {
	ID              uuid.UUID `json:"id" db:"id"`
	UserRef         string    `json:"user_ref" db:"user_ref"`
	LicenseNumber   string    `json:"license_number" db:"license_number"`
	CurrentLocation string    `json:"current_location" db:"current_location"` // "lat,lon" wire form
	Rating          float64   `json:"rating" db:"rating"`
	TotalTrips      int       `json:"total_trips" db:"total_trips"`
	IsAvailable     bool      `json:"is_available" db:"is_available"`
	Vehicles        []Vehicle `json:"vehicles" db:"-"`
	UpdatedAt       time.Time `json:"updated_at" db:"updated_at"`
}

// PrimaryVehicle returns the first vehicle of the driver's ordered set, the
// one the assembler attaches trips to. ok is false for a driver with no
// vehicle, which listAvailable's capacity filter is expected to exclude.
func (d *Driver) PrimaryVehicle() (Vehicle, bool) {
	if len(d.Vehicles) == 0 {
		return Vehicle{}, false
	}
	return d.Vehicles[0], true
}

// Validate checks driver invariants.
func (d *Driver) Validate() error {
	if d.UserRef == "" {
		return ErrInvalidUserID
	}
	if d.LicenseNumber == "" {
		return ErrInvalidLicenseNumber
	}
	if d.Rating < 0 || d.Rating > 5 {
		return ErrInvalidRating
	}
	if d.TotalTrips < 0 {
		return ErrInvalidRating
	}
	return nil
}
