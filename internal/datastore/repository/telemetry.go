package repository

import (
	"context"
	"time"

	"github.com/fleetpredict/fleetpredict-go/internal/datastore/entities"
)

// TelemetryRepository stores raw sensor readings.
type TelemetryRepository interface {
	InsertReading(ctx context.Context, reading *entities.TelemetryReading) error
	// RecentReadings returns up to limit readings for the vehicle,
	// newest first.
	RecentReadings(ctx context.Context, vehicleID uint, limit int) ([]entities.TelemetryReading, error)
	// HasHighTempSince reports whether any reading at or after since
	// recorded an engine temperature at or above threshold.
	HasHighTempSince(ctx context.Context, vehicleID uint, threshold float64, since time.Time) (bool, error)
	// DeleteReadingsBefore removes readings older than cutoff and returns
	// the number deleted.
	DeleteReadingsBefore(ctx context.Context, cutoff time.Time) (int64, error)
}
