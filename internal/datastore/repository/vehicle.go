package repository

import (
	"context"
	"time"

	"github.com/fleetpredict/fleetpredict-go/internal/datastore/entities"
)

// VehicleRef identifies a vehicle by any of its external identifiers.
// Exactly one field should be set; ID wins when several are.
type VehicleRef struct {
	ID           uint
	LicensePlate string
	VIN          string
}

// VehicleFilter controls vehicle listing queries.
type VehicleFilter struct {
	Status         string
	VehicleTypeID  uint
	IncludeDeleted bool
}

// VehicleRepository handles the vehicle registry.
type VehicleRepository interface {
	ListVehicles(ctx context.Context, filter VehicleFilter) ([]entities.Vehicle, error)
	GetVehicle(ctx context.Context, id uint) (*entities.Vehicle, error)
	// FindVehicle resolves a ref against non-deleted vehicles.
	// Returns ErrVehicleNotFound when nothing matches.
	FindVehicle(ctx context.Context, ref VehicleRef) (*entities.Vehicle, error)
	CreateVehicle(ctx context.Context, v *entities.Vehicle) error
	UpdateVehicle(ctx context.Context, v *entities.Vehicle) error
	// SoftDeleteVehicle marks the vehicle deleted and retired.
	SoftDeleteVehicle(ctx context.Context, id uint) error
	// RecordTelemetry bumps last_telemetry_at and, when mileage advances,
	// current_mileage. Mileage never moves backwards.
	RecordTelemetry(ctx context.Context, id uint, mileage *int, ts time.Time) error

	ListVehicleTypes(ctx context.Context) ([]entities.VehicleType, error)
	CreateVehicleType(ctx context.Context, vt *entities.VehicleType) error
}
