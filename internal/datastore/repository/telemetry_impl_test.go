package repository

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/fleetpredict/fleetpredict-go/internal/datastore/entities"
)

func createTestReading(t *testing.T, db *gorm.DB, vehicleID uint, ts time.Time, temp float64) *entities.TelemetryReading {
	t.Helper()
	reading := &entities.TelemetryReading{
		VehicleID:          vehicleID,
		Timestamp:          ts,
		EngineTemperatureC: f64(temp),
		SpeedKmh:           f64(60),
		FuelLevelPct:       f64(75),
	}
	require.NoError(t, db.Create(reading).Error)
	return reading
}

func TestTelemetryRepository_InsertReading(t *testing.T) {
	db := setupTestDB(t)
	repo := NewTelemetryRepository(db)
	ctx := t.Context()

	vehicle := createTestVehicle(t, db, "SIM-001", "1HGBH41JXMN109001")

	reading := &entities.TelemetryReading{
		VehicleID:          vehicle.ID,
		Timestamp:          time.Now().UTC(),
		SpeedKmh:           f64(82.5),
		EngineTemperatureC: f64(91.2),
		RPM:                iptr(2400),
	}
	require.NoError(t, repo.InsertReading(ctx, reading))
	require.NotZero(t, reading.ID)

	got, err := repo.RecentReadings(ctx, vehicle.ID, 1)
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.NotNil(t, got[0].RPM)
	assert.Equal(t, 2400, *got[0].RPM)
	assert.Nil(t, got[0].FuelLevelPct, "unreported sensors stay nil")
}

func TestTelemetryRepository_RecentReadings(t *testing.T) {
	db := setupTestDB(t)
	repo := NewTelemetryRepository(db)
	ctx := t.Context()

	vehicle := createTestVehicle(t, db, "SIM-001", "1HGBH41JXMN109001")
	other := createTestVehicle(t, db, "SIM-002", "2HGBH41JXMN109002")

	base := time.Now().UTC().Add(-time.Hour)
	for i := range 40 {
		createTestReading(t, db, vehicle.ID, base.Add(time.Duration(i)*time.Minute), 90)
	}
	createTestReading(t, db, other.ID, base, 85)

	t.Run("newest first with explicit limit", func(t *testing.T) {
		readings, err := repo.RecentReadings(ctx, vehicle.ID, 5)
		require.NoError(t, err)
		require.Len(t, readings, 5)
		for i := 1; i < len(readings); i++ {
			assert.False(t, readings[i].Timestamp.After(readings[i-1].Timestamp),
				fmt.Sprintf("reading %d is newer than reading %d", i, i-1))
		}
	})

	t.Run("default limit is 30", func(t *testing.T) {
		readings, err := repo.RecentReadings(ctx, vehicle.ID, 0)
		require.NoError(t, err)
		assert.Len(t, readings, 30)
	})

	t.Run("scoped to the vehicle", func(t *testing.T) {
		readings, err := repo.RecentReadings(ctx, other.ID, 10)
		require.NoError(t, err)
		assert.Len(t, readings, 1)
	})
}

func TestTelemetryRepository_HasHighTempSince(t *testing.T) {
	db := setupTestDB(t)
	repo := NewTelemetryRepository(db)
	ctx := t.Context()

	vehicle := createTestVehicle(t, db, "SIM-001", "1HGBH41JXMN109001")
	since := time.Now().Add(-24 * time.Hour)

	createTestReading(t, db, vehicle.ID, time.Now().Add(-2*time.Hour), 95)

	has, err := repo.HasHighTempSince(ctx, vehicle.ID, 105, since)
	require.NoError(t, err)
	assert.False(t, has)

	createTestReading(t, db, vehicle.ID, time.Now().Add(-time.Hour), 108)
	has, err = repo.HasHighTempSince(ctx, vehicle.ID, 105, since)
	require.NoError(t, err)
	assert.True(t, has)

	t.Run("old readings are outside the window", func(t *testing.T) {
		createTestReading(t, db, vehicle.ID, time.Now().Add(-48*time.Hour), 120)
		has, err := repo.HasHighTempSince(ctx, vehicle.ID, 110, since)
		require.NoError(t, err)
		assert.False(t, has)
	})
}

func TestTelemetryRepository_DeleteReadingsBefore(t *testing.T) {
	db := setupTestDB(t)
	repo := NewTelemetryRepository(db)
	ctx := t.Context()

	vehicle := createTestVehicle(t, db, "SIM-001", "1HGBH41JXMN109001")

	createTestReading(t, db, vehicle.ID, time.Now().Add(-96*time.Hour), 90)
	createTestReading(t, db, vehicle.ID, time.Now().Add(-72*time.Hour), 90)
	keep := createTestReading(t, db, vehicle.ID, time.Now().Add(-time.Hour), 90)

	deleted, err := repo.DeleteReadingsBefore(ctx, time.Now().Add(-48*time.Hour))
	require.NoError(t, err)
	assert.EqualValues(t, 2, deleted)

	remaining, err := repo.RecentReadings(ctx, vehicle.ID, 10)
	require.NoError(t, err)
	require.Len(t, remaining, 1)
	assert.Equal(t, keep.ID, remaining[0].ID)
}
