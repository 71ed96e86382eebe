package soc

import (
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gorm_logger "gorm.io/gorm/logger"

	"github.com/fleetpredict/fleetpredict-go/internal/datastore/entities"
	"github.com/fleetpredict/fleetpredict-go/internal/datastore/repository"
	"github.com/fleetpredict/fleetpredict-go/internal/logger"
)

func setupSOCDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared&_foreign_keys=ON"), &gorm.Config{
		Logger: gorm_logger.Default.LogMode(gorm_logger.Silent),
	})
	require.NoError(t, err, "failed to open in-memory database")

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	err = db.AutoMigrate(
		&entities.Vehicle{},
		&entities.VehicleAlert{},
		&entities.MaintenanceTask{},
		&entities.Playbook{},
		&entities.Runbook{},
	)
	require.NoError(t, err, "failed to migrate tables")
	return db
}

func newTestExecutor(db *gorm.DB) *Executor {
	return NewExecutor(
		repository.NewAlertRepository(db),
		repository.NewRunbookRepository(db),
		repository.NewMaintenanceRepository(db),
		logger.NewSlogLogger(nil, logger.LogLevelError, nil),
	)
}

func createSOCVehicle(t *testing.T, db *gorm.DB) *entities.Vehicle {
	t.Helper()
	vehicle := &entities.Vehicle{
		LicensePlate: "SIM-001",
		VIN:          "1HGBH41JXMN109001",
		Status:       entities.VehicleStatusActive,
	}
	require.NoError(t, db.Create(vehicle).Error)
	return vehicle
}

func createSOCAlert(t *testing.T, db *gorm.DB, vehicleID uint, alertType, severity string, suggestion *string) *entities.VehicleAlert {
	t.Helper()
	alert := &entities.VehicleAlert{
		VehicleID:        vehicleID,
		AlertType:        alertType,
		Severity:         severity,
		Message:          "test alert",
		SuggestionStatus: suggestion,
	}
	require.NoError(t, db.Create(alert).Error)
	return alert
}

func createSOCRunbook(t *testing.T, db *gorm.DB, rb *entities.Runbook) *entities.Runbook {
	t.Helper()
	require.NoError(t, db.Create(rb).Error)
	return rb
}
