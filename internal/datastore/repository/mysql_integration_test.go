//go:build integration

package repository

import (
	"context"
	"log"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	gorm_mysql "gorm.io/driver/mysql"
	"gorm.io/gorm"
	gorm_logger "gorm.io/gorm/logger"

	"github.com/fleetpredict/fleetpredict-go/internal/datastore/entities"
	"github.com/fleetpredict/fleetpredict-go/internal/testutil/containers"
)

var mysqlContainer *containers.MySQLContainer

func TestMain(m *testing.M) {
	var err error
	mysqlContainer, err = containers.NewMySQLContainer(context.Background(), nil)
	if err != nil {
		log.Fatalf("failed to start MySQL container: %v", err)
	}
	code := m.Run()
	_ = mysqlContainer.Terminate(context.Background())
	os.Exit(code)
}

// setupMySQLDB opens a fresh GORM session against the shared container,
// migrates the schema, and truncates everything when the test finishes.
func setupMySQLDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(gorm_mysql.Open(mysqlContainer.GetDSN()), &gorm.Config{
		Logger: gorm_logger.Default.LogMode(gorm_logger.Silent),
	})
	require.NoError(t, err)

	require.NoError(t, db.AutoMigrate(
		&entities.VehicleType{},
		&entities.Vehicle{},
		&entities.TelemetryReading{},
		&entities.VehicleAlert{},
		&entities.MaintenanceTask{},
		&entities.Playbook{},
		&entities.Runbook{},
	))

	t.Cleanup(func() {
		require.NoError(t, mysqlContainer.Reset(context.Background(), containers.FleetTables))
		sqlDB, err := db.DB()
		require.NoError(t, err)
		_ = sqlDB.Close()
	})
	return db
}

func TestMySQLVehicleLifecycle(t *testing.T) {
	db := setupMySQLDB(t)
	repo := NewVehicleRepository(db)
	ctx := t.Context()

	v := &entities.Vehicle{
		LicensePlate: "MYSQL-001",
		VIN:          "1HGCM82633A004352",
		Make:         "Volvo",
		Model:        "FH16",
		Year:         2022,
		Status:       entities.VehicleStatusActive,
	}
	require.NoError(t, repo.CreateVehicle(ctx, v))
	require.NotZero(t, v.ID)

	t.Run("find by plate and vin", func(t *testing.T) {
		byPlate, err := repo.FindVehicle(ctx, VehicleRef{LicensePlate: "MYSQL-001"})
		require.NoError(t, err)
		assert.Equal(t, v.ID, byPlate.ID)

		byVIN, err := repo.FindVehicle(ctx, VehicleRef{VIN: "1HGCM82633A004352"})
		require.NoError(t, err)
		assert.Equal(t, v.ID, byVIN.ID)
	})

	t.Run("record telemetry advances mileage", func(t *testing.T) {
		mileage := 12500
		ts := time.Now().UTC().Truncate(time.Second)
		require.NoError(t, repo.RecordTelemetry(ctx, v.ID, &mileage, ts))

		got, err := repo.GetVehicle(ctx, v.ID)
		require.NoError(t, err)
		assert.Equal(t, 12500, got.CurrentMileage)
		require.NotNil(t, got.LastTelemetryAt)

		// Mileage never moves backwards.
		lower := 9000
		require.NoError(t, repo.RecordTelemetry(ctx, v.ID, &lower, ts.Add(time.Minute)))
		got, err = repo.GetVehicle(ctx, v.ID)
		require.NoError(t, err)
		assert.Equal(t, 12500, got.CurrentMileage)
	})

	t.Run("soft delete hides from find", func(t *testing.T) {
		require.NoError(t, repo.SoftDeleteVehicle(ctx, v.ID))

		_, err := repo.FindVehicle(ctx, VehicleRef{LicensePlate: "MYSQL-001"})
		assert.ErrorIs(t, err, ErrVehicleNotFound)

		got, err := repo.GetVehicle(ctx, v.ID)
		require.NoError(t, err)
		assert.True(t, got.IsDeleted)
		assert.Equal(t, entities.VehicleStatusRetired, got.Status)
	})
}

func TestMySQLTelemetryQueries(t *testing.T) {
	db := setupMySQLDB(t)
	vehicles := NewVehicleRepository(db)
	readings := NewTelemetryRepository(db)
	ctx := t.Context()

	v := &entities.Vehicle{
		LicensePlate: "MYSQL-002",
		VIN:          "1HGCM82633A004353",
		Make:         "Scania",
		Model:        "R500",
		Year:         2021,
		Status:       entities.VehicleStatusActive,
	}
	require.NoError(t, vehicles.CreateVehicle(ctx, v))

	now := time.Now().UTC().Truncate(time.Second)
	temps := []float64{92, 108, 95}
	for i, temp := range temps {
		tc := temp
		require.NoError(t, readings.InsertReading(ctx, &entities.TelemetryReading{
			VehicleID:          v.ID,
			Timestamp:          now.Add(time.Duration(i) * time.Minute),
			EngineTemperatureC: &tc,
		}))
	}

	t.Run("recent readings newest first", func(t *testing.T) {
		got, err := readings.RecentReadings(ctx, v.ID, 10)
		require.NoError(t, err)
		require.Len(t, got, 3)
		assert.InDelta(t, 95, *got[0].EngineTemperatureC, 0.01)
		assert.InDelta(t, 92, *got[2].EngineTemperatureC, 0.01)
	})

	t.Run("high temp lookback", func(t *testing.T) {
		hot, err := readings.HasHighTempSince(ctx, v.ID, 105, now.Add(-time.Hour))
		require.NoError(t, err)
		assert.True(t, hot)

		hot, err = readings.HasHighTempSince(ctx, v.ID, 120, now.Add(-time.Hour))
		require.NoError(t, err)
		assert.False(t, hot)
	})

	t.Run("retention delete", func(t *testing.T) {
		deleted, err := readings.DeleteReadingsBefore(ctx, now.Add(90*time.Second))
		require.NoError(t, err)
		assert.EqualValues(t, 2, deleted)
	})
}

func TestMySQLAlertPagination(t *testing.T) {
	db := setupMySQLDB(t)
	vehicles := NewVehicleRepository(db)
	alerts := NewAlertRepository(db)
	ctx := t.Context()

	v := &entities.Vehicle{
		LicensePlate: "MYSQL-003",
		VIN:          "1HGCM82633A004354",
		Make:         "MAN",
		Model:        "TGX",
		Year:         2023,
		Status:       entities.VehicleStatusActive,
	}
	require.NoError(t, vehicles.CreateVehicle(ctx, v))

	for range 5 {
		require.NoError(t, alerts.CreateAlert(ctx, &entities.VehicleAlert{
			VehicleID: v.ID,
			AlertType: entities.AlertTypeHarshDriving,
			Severity:  entities.SeverityMedium,
			Message:   "4 harsh events in the last 30 readings",
		}))
	}

	page, total, err := alerts.ListAlerts(ctx, AlertFilter{VehicleID: v.ID, Limit: 2})
	require.NoError(t, err)
	assert.EqualValues(t, 5, total)
	assert.Len(t, page, 2)

	rest, _, err := alerts.ListAlerts(ctx, AlertFilter{VehicleID: v.ID, Limit: 2, Offset: 4})
	require.NoError(t, err)
	assert.Len(t, rest, 1)

	t.Run("mark read and unread filter", func(t *testing.T) {
		require.NoError(t, alerts.MarkAlertRead(ctx, page[0].ID))

		unread, total, err := alerts.ListAlerts(ctx, AlertFilter{VehicleID: v.ID, UnreadOnly: true})
		require.NoError(t, err)
		assert.EqualValues(t, 4, total)
		assert.Len(t, unread, 4)
	})

	t.Run("recent alert types for dedup", func(t *testing.T) {
		types, err := alerts.RecentAlertTypes(ctx, v.ID, time.Now().UTC().Add(-time.Hour))
		require.NoError(t, err)
		assert.Contains(t, types, entities.AlertTypeHarshDriving)
	})
}

func TestMySQLRunbookUpserts(t *testing.T) {
	db := setupMySQLDB(t)
	repo := NewRunbookRepository(db)
	ctx := t.Context()

	pb := &entities.Playbook{
		AlertType: entities.AlertTypeHighEngineTemp,
		Name:      "Engine overheating response",
		Steps:     []string{"Contact driver", "Schedule inspection"},
	}
	require.NoError(t, repo.UpsertPlaybook(ctx, pb))
	firstID := pb.ID

	pb2 := &entities.Playbook{
		AlertType: entities.AlertTypeHighEngineTemp,
		Name:      "Engine overheating response v2",
		Steps:     []string{"Contact driver", "Stop vehicle", "Schedule inspection"},
	}
	require.NoError(t, repo.UpsertPlaybook(ctx, pb2))
	assert.Equal(t, firstID, pb2.ID, "upsert keyed by alert type keeps the row")

	got, err := repo.GetPlaybookByAlertType(ctx, entities.AlertTypeHighEngineTemp)
	require.NoError(t, err)
	assert.Equal(t, "Engine overheating response v2", got.Name)
	assert.Len(t, got.Steps, 3)
}
