package repository

import (
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gorm_logger "gorm.io/gorm/logger"

	"github.com/fleetpredict/fleetpredict-go/internal/datastore/entities"
)

// setupTestDB creates an in-memory SQLite database with every entity
// migrated. Uses shared-cache mode with a single connection so all
// operations see the same in-memory database.
func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared&_foreign_keys=ON"), &gorm.Config{
		Logger: gorm_logger.Default.LogMode(gorm_logger.Silent),
	})
	require.NoError(t, err, "failed to open in-memory database")

	sqlDB, err := db.DB()
	require.NoError(t, err, "failed to get sql.DB")
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	err = db.AutoMigrate(
		&entities.VehicleType{},
		&entities.Vehicle{},
		&entities.TelemetryReading{},
		&entities.VehicleAlert{},
		&entities.MaintenanceTask{},
		&entities.Playbook{},
		&entities.Runbook{},
	)
	require.NoError(t, err, "failed to migrate tables")
	return db
}

// createTestVehicle persists a minimal active vehicle.
func createTestVehicle(t *testing.T, db *gorm.DB, plate, vin string) *entities.Vehicle {
	t.Helper()
	vehicle := &entities.Vehicle{
		LicensePlate: plate,
		VIN:          vin,
		Make:         "Toyota",
		Model:        "Camry",
		Year:         2022,
		Status:       entities.VehicleStatusActive,
	}
	require.NoError(t, db.Create(vehicle).Error)
	return vehicle
}

func f64(v float64) *float64 { return &v }
func iptr(v int) *int        { return &v }
