package repository

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/fleetpredict/fleetpredict-go/internal/datastore/entities"
)

func createTestAlert(t *testing.T, db *gorm.DB, vehicleID uint, alertType, severity string) *entities.VehicleAlert {
	t.Helper()
	alert := &entities.VehicleAlert{
		VehicleID: vehicleID,
		AlertType: alertType,
		Severity:  severity,
		Message:   "test alert",
	}
	require.NoError(t, db.Create(alert).Error)
	return alert
}

func TestAlertRepository_ListAlerts(t *testing.T) {
	db := setupTestDB(t)
	repo := NewAlertRepository(db)
	ctx := t.Context()

	vehicle := createTestVehicle(t, db, "SIM-001", "1HGBH41JXMN109001")
	other := createTestVehicle(t, db, "SIM-002", "2HGBH41JXMN109002")

	createTestAlert(t, db, vehicle.ID, entities.AlertTypeHighEngineTemp, entities.SeverityCritical)
	createTestAlert(t, db, vehicle.ID, entities.AlertTypeAnomalousFuel, entities.SeverityHigh)
	createTestAlert(t, db, other.ID, entities.AlertTypeProlongedIdle, entities.SeverityLow)

	t.Run("all alerts newest first", func(t *testing.T) {
		alerts, total, err := repo.ListAlerts(ctx, AlertFilter{})
		require.NoError(t, err)
		assert.EqualValues(t, 3, total)
		require.Len(t, alerts, 3)
		assert.Equal(t, entities.AlertTypeProlongedIdle, alerts[0].AlertType)
	})

	t.Run("filter by vehicle", func(t *testing.T) {
		alerts, total, err := repo.ListAlerts(ctx, AlertFilter{VehicleID: vehicle.ID})
		require.NoError(t, err)
		assert.EqualValues(t, 2, total)
		assert.Len(t, alerts, 2)
	})

	t.Run("filter by severity", func(t *testing.T) {
		alerts, total, err := repo.ListAlerts(ctx, AlertFilter{Severity: entities.SeverityCritical})
		require.NoError(t, err)
		assert.EqualValues(t, 1, total)
		require.Len(t, alerts, 1)
		assert.Equal(t, entities.AlertTypeHighEngineTemp, alerts[0].AlertType)
	})

	t.Run("pagination keeps the full total", func(t *testing.T) {
		alerts, total, err := repo.ListAlerts(ctx, AlertFilter{Limit: 1, Offset: 1})
		require.NoError(t, err)
		assert.EqualValues(t, 3, total)
		assert.Len(t, alerts, 1)
	})

	t.Run("vehicle is preloaded", func(t *testing.T) {
		alerts, _, err := repo.ListAlerts(ctx, AlertFilter{VehicleID: other.ID})
		require.NoError(t, err)
		require.Len(t, alerts, 1)
		require.NotNil(t, alerts[0].Vehicle)
		assert.Equal(t, "SIM-002", alerts[0].Vehicle.LicensePlate)
	})

	t.Run("limit is clamped to the page cap", func(t *testing.T) {
		_, _, err := repo.ListAlerts(ctx, AlertFilter{Limit: 100000})
		require.NoError(t, err)
	})
}

func TestAlertRepository_MarkAlertRead(t *testing.T) {
	db := setupTestDB(t)
	repo := NewAlertRepository(db)
	ctx := t.Context()

	vehicle := createTestVehicle(t, db, "SIM-001", "1HGBH41JXMN109001")
	alert := createTestAlert(t, db, vehicle.ID, entities.AlertTypeHighEngineTemp, entities.SeverityHigh)

	require.NoError(t, repo.MarkAlertRead(ctx, alert.ID))

	got, err := repo.GetAlert(ctx, alert.ID)
	require.NoError(t, err)
	require.NotNil(t, got.ReadAt)
	firstReadAt := *got.ReadAt

	// Marking again is a no-op and keeps the original timestamp.
	require.NoError(t, repo.MarkAlertRead(ctx, alert.ID))
	got, err = repo.GetAlert(ctx, alert.ID)
	require.NoError(t, err)
	assert.True(t, got.ReadAt.Equal(firstReadAt))

	assert.ErrorIs(t, repo.MarkAlertRead(ctx, 9999), ErrAlertNotFound)
}

func TestAlertRepository_SuggestionStatus(t *testing.T) {
	db := setupTestDB(t)
	repo := NewAlertRepository(db)
	ctx := t.Context()

	vehicle := createTestVehicle(t, db, "SIM-001", "1HGBH41JXMN109001")
	pending := entities.SuggestionPending
	alert := &entities.VehicleAlert{
		VehicleID:        vehicle.ID,
		AlertType:        entities.AlertTypeMaintenanceMileage,
		Severity:         entities.SeverityMedium,
		Message:          "maintenance due",
		SuggestionStatus: &pending,
	}
	require.NoError(t, repo.CreateAlert(ctx, alert))

	require.NoError(t, repo.SetSuggestionStatus(ctx, alert.ID, entities.SuggestionAccepted))

	got, err := repo.GetAlert(ctx, alert.ID)
	require.NoError(t, err)
	require.NotNil(t, got.SuggestionStatus)
	assert.Equal(t, entities.SuggestionAccepted, *got.SuggestionStatus)

	assert.ErrorIs(t, repo.SetSuggestionStatus(ctx, 9999, entities.SuggestionDismissed), ErrAlertNotFound)
}

func TestAlertRepository_RecentAlertTypes(t *testing.T) {
	db := setupTestDB(t)
	repo := NewAlertRepository(db)
	ctx := t.Context()

	vehicle := createTestVehicle(t, db, "SIM-001", "1HGBH41JXMN109001")

	createTestAlert(t, db, vehicle.ID, entities.AlertTypeHighEngineTemp, entities.SeverityHigh)
	createTestAlert(t, db, vehicle.ID, entities.AlertTypeHighEngineTemp, entities.SeverityHigh)
	createTestAlert(t, db, vehicle.ID, entities.AlertTypeAnomalousFuel, entities.SeverityHigh)

	stale := &entities.VehicleAlert{
		VehicleID: vehicle.ID,
		AlertType: entities.AlertTypeProlongedIdle,
		Severity:  entities.SeverityLow,
		Message:   "old",
		CreatedAt: time.Now().Add(-2 * time.Hour),
	}
	require.NoError(t, db.Create(stale).Error)

	types, err := repo.RecentAlertTypes(ctx, vehicle.ID, time.Now().Add(-time.Hour))
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{
		entities.AlertTypeHighEngineTemp,
		entities.AlertTypeAnomalousFuel,
	}, types)
}

func TestAlertRepository_HasUnreadAlertSince(t *testing.T) {
	db := setupTestDB(t)
	repo := NewAlertRepository(db)
	ctx := t.Context()

	vehicle := createTestVehicle(t, db, "SIM-001", "1HGBH41JXMN109001")
	since := time.Now().Add(-time.Hour)

	has, err := repo.HasUnreadAlertSince(ctx, vehicle.ID, entities.SeverityCritical, since)
	require.NoError(t, err)
	assert.False(t, has)

	alert := createTestAlert(t, db, vehicle.ID, entities.AlertTypeHighEngineTemp, entities.SeverityCritical)

	has, err = repo.HasUnreadAlertSince(ctx, vehicle.ID, entities.SeverityCritical, since)
	require.NoError(t, err)
	assert.True(t, has)

	require.NoError(t, repo.MarkAlertRead(ctx, alert.ID))
	has, err = repo.HasUnreadAlertSince(ctx, vehicle.ID, entities.SeverityCritical, since)
	require.NoError(t, err)
	assert.False(t, has, "read alerts no longer count")
}

func TestAlertRepository_DeleteReadAlertsBefore(t *testing.T) {
	db := setupTestDB(t)
	repo := NewAlertRepository(db)
	ctx := t.Context()

	vehicle := createTestVehicle(t, db, "SIM-001", "1HGBH41JXMN109001")

	readAt := time.Now().Add(-48 * time.Hour)
	oldRead := &entities.VehicleAlert{
		VehicleID: vehicle.ID,
		AlertType: entities.AlertTypeHighEngineTemp,
		Severity:  entities.SeverityHigh,
		Message:   "old read",
		CreatedAt: time.Now().Add(-72 * time.Hour),
		ReadAt:    &readAt,
	}
	require.NoError(t, db.Create(oldRead).Error)

	oldUnread := &entities.VehicleAlert{
		VehicleID: vehicle.ID,
		AlertType: entities.AlertTypeAnomalousFuel,
		Severity:  entities.SeverityHigh,
		Message:   "old unread",
		CreatedAt: time.Now().Add(-72 * time.Hour),
	}
	require.NoError(t, db.Create(oldUnread).Error)

	recent := createTestAlert(t, db, vehicle.ID, entities.AlertTypeProlongedIdle, entities.SeverityLow)
	require.NoError(t, repo.MarkAlertRead(ctx, recent.ID))

	deleted, err := repo.DeleteReadAlertsBefore(ctx, time.Now().Add(-24*time.Hour))
	require.NoError(t, err)
	assert.EqualValues(t, 1, deleted, "only old read alerts are removed")

	_, total, err := repo.ListAlerts(ctx, AlertFilter{})
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)
}
