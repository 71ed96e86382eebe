package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/fleetpredict/fleetpredict-go/internal/datastore/entities"
	"gorm.io/gorm"
)

type telemetryRepository struct {
	db *gorm.DB
}

// NewTelemetryRepository creates a TelemetryRepository backed by GORM.
func NewTelemetryRepository(db *gorm.DB) TelemetryRepository {
	return &telemetryRepository{db: db}
}

func (r *telemetryRepository) InsertReading(ctx context.Context, reading *entities.TelemetryReading) error {
	if err := r.db.WithContext(ctx).Create(reading).Error; err != nil {
		return fmt.Errorf("failed to insert telemetry reading: %w", err)
	}
	return nil
}

func (r *telemetryRepository) RecentReadings(ctx context.Context, vehicleID uint, limit int) ([]entities.TelemetryReading, error) {
	if limit <= 0 {
		limit = 30
	}
	var readings []entities.TelemetryReading
	err := r.db.WithContext(ctx).
		Where("vehicle_id = ?", vehicleID).
		Order("timestamp DESC, id DESC").
		Limit(limit).
		Find(&readings).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load recent readings for vehicle %d: %w", vehicleID, err)
	}
	return readings, nil
}

func (r *telemetryRepository) HasHighTempSince(ctx context.Context, vehicleID uint, threshold float64, since time.Time) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&entities.TelemetryReading{}).
		Where("vehicle_id = ? AND engine_temperature_c >= ? AND timestamp >= ?",
			vehicleID, threshold, since).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("failed to query high temperature readings for vehicle %d: %w", vehicleID, err)
	}
	return count > 0, nil
}

func (r *telemetryRepository) DeleteReadingsBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("timestamp < ?", cutoff).
		Delete(&entities.TelemetryReading{})
	if result.Error != nil {
		return 0, fmt.Errorf("failed to delete old telemetry readings: %w", result.Error)
	}
	return result.RowsAffected, nil
}
