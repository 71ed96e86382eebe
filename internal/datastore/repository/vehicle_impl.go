package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/fleetpredict/fleetpredict-go/internal/datastore/entities"
	"github.com/fleetpredict/fleetpredict-go/internal/errors"
	"gorm.io/gorm"
)

type vehicleRepository struct {
	db *gorm.DB
}

// NewVehicleRepository creates a VehicleRepository backed by GORM.
func NewVehicleRepository(db *gorm.DB) VehicleRepository {
	return &vehicleRepository{db: db}
}

func (r *vehicleRepository) ListVehicles(ctx context.Context, filter VehicleFilter) ([]entities.Vehicle, error) {
	var vehicles []entities.Vehicle
	query := r.db.WithContext(ctx).Preload("VehicleType")

	if !filter.IncludeDeleted {
		query = query.Where("is_deleted = ?", false)
	}
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.VehicleTypeID > 0 {
		query = query.Where("vehicle_type_id = ?", filter.VehicleTypeID)
	}

	if err := query.Order("id ASC").Find(&vehicles).Error; err != nil {
		return nil, fmt.Errorf("failed to list vehicles: %w", err)
	}
	return vehicles, nil
}

func (r *vehicleRepository) GetVehicle(ctx context.Context, id uint) (*entities.Vehicle, error) {
	var vehicle entities.Vehicle
	if err := r.db.WithContext(ctx).Preload("VehicleType").First(&vehicle, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrVehicleNotFound
		}
		return nil, fmt.Errorf("failed to get vehicle %d: %w", id, err)
	}
	return &vehicle, nil
}

func (r *vehicleRepository) FindVehicle(ctx context.Context, ref VehicleRef) (*entities.Vehicle, error) {
	query := r.db.WithContext(ctx).Preload("VehicleType").Where("is_deleted = ?", false)
	switch {
	case ref.ID > 0:
		query = query.Where("id = ?", ref.ID)
	case ref.LicensePlate != "":
		query = query.Where("license_plate = ?", ref.LicensePlate)
	case ref.VIN != "":
		query = query.Where("vin = ?", ref.VIN)
	default:
		return nil, ErrVehicleNotFound
	}

	var vehicle entities.Vehicle
	if err := query.First(&vehicle).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrVehicleNotFound
		}
		return nil, fmt.Errorf("failed to find vehicle: %w", err)
	}
	return &vehicle, nil
}

func (r *vehicleRepository) CreateVehicle(ctx context.Context, v *entities.Vehicle) error {
	if err := r.db.WithContext(ctx).Create(v).Error; err != nil {
		return fmt.Errorf("failed to create vehicle: %w", err)
	}
	return nil
}

func (r *vehicleRepository) UpdateVehicle(ctx context.Context, v *entities.Vehicle) error {
	if v.ID == 0 {
		return fmt.Errorf("failed to update vehicle: missing vehicle ID")
	}
	if err := r.db.WithContext(ctx).Save(v).Error; err != nil {
		return fmt.Errorf("failed to update vehicle %d: %w", v.ID, err)
	}
	return nil
}

func (r *vehicleRepository) SoftDeleteVehicle(ctx context.Context, id uint) error {
	now := time.Now()
	result := r.db.WithContext(ctx).Model(&entities.Vehicle{}).
		Where("id = ? AND is_deleted = ?", id, false).
		Updates(map[string]any{
			"is_deleted": true,
			"deleted_at": now,
			"status":     entities.VehicleStatusRetired,
		})
	if result.Error != nil {
		return fmt.Errorf("failed to delete vehicle %d: %w", id, result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrVehicleNotFound
	}
	return nil
}

func (r *vehicleRepository) RecordTelemetry(ctx context.Context, id uint, mileage *int, ts time.Time) error {
	updates := map[string]any{"last_telemetry_at": ts}
	query := r.db.WithContext(ctx).Model(&entities.Vehicle{}).Where("id = ?", id)
	if mileage != nil {
		// Guard in SQL so concurrent writers cannot roll the odometer back.
		updates["current_mileage"] = gorm.Expr("CASE WHEN current_mileage < ? THEN ? ELSE current_mileage END", *mileage, *mileage)
	}
	result := query.Updates(updates)
	if result.Error != nil {
		return fmt.Errorf("failed to record telemetry for vehicle %d: %w", id, result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrVehicleNotFound
	}
	return nil
}

func (r *vehicleRepository) ListVehicleTypes(ctx context.Context) ([]entities.VehicleType, error) {
	var types []entities.VehicleType
	if err := r.db.WithContext(ctx).Order("name ASC").Find(&types).Error; err != nil {
		return nil, fmt.Errorf("failed to list vehicle types: %w", err)
	}
	return types, nil
}

func (r *vehicleRepository) CreateVehicleType(ctx context.Context, vt *entities.VehicleType) error {
	if err := r.db.WithContext(ctx).Create(vt).Error; err != nil {
		return fmt.Errorf("failed to create vehicle type: %w", err)
	}
	return nil
}
