package repository

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/fleetpredict/fleetpredict-go/internal/datastore/entities"
)

func createTestTask(t *testing.T, db *gorm.DB, task *entities.MaintenanceTask) *entities.MaintenanceTask {
	t.Helper()
	if task.Title == "" {
		task.Title = "Oil change"
	}
	if task.Status == "" {
		task.Status = entities.TaskStatusScheduled
	}
	require.NoError(t, db.Create(task).Error)
	return task
}

func TestMaintenanceRepository_LastCompletedTask(t *testing.T) {
	db := setupTestDB(t)
	repo := NewMaintenanceRepository(db)
	ctx := t.Context()

	vehicle := createTestVehicle(t, db, "SIM-001", "1HGBH41JXMN109001")

	t.Run("no completed tasks", func(t *testing.T) {
		_, err := repo.LastCompletedTask(ctx, vehicle.ID)
		assert.ErrorIs(t, err, ErrTaskNotFound)
	})

	older := time.Now().AddDate(0, 0, -60)
	newer := time.Now().AddDate(0, 0, -10)

	createTestTask(t, db, &entities.MaintenanceTask{
		VehicleID:            vehicle.ID,
		Title:                "Old service",
		Status:               entities.TaskStatusCompleted,
		CompletionDate:       &older,
		MileageAtMaintenance: iptr(8000),
	})
	latest := createTestTask(t, db, &entities.MaintenanceTask{
		VehicleID:            vehicle.ID,
		Title:                "Recent service",
		Status:               entities.TaskStatusCompleted,
		CompletionDate:       &newer,
		MileageAtMaintenance: iptr(11000),
	})
	// Scheduled work never counts as a completion anchor.
	createTestTask(t, db, &entities.MaintenanceTask{
		VehicleID: vehicle.ID,
		Title:     "Upcoming service",
		Status:    entities.TaskStatusScheduled,
	})

	t.Run("most recent completion wins", func(t *testing.T) {
		got, err := repo.LastCompletedTask(ctx, vehicle.ID)
		require.NoError(t, err)
		assert.Equal(t, latest.ID, got.ID)
		require.NotNil(t, got.MileageAtMaintenance)
		assert.Equal(t, 11000, *got.MileageAtMaintenance)
	})

	t.Run("scoped to the vehicle", func(t *testing.T) {
		other := createTestVehicle(t, db, "SIM-002", "2HGBH41JXMN109002")
		_, err := repo.LastCompletedTask(ctx, other.ID)
		assert.ErrorIs(t, err, ErrTaskNotFound)
	})
}

func TestMaintenanceRepository_HasOverdueTask(t *testing.T) {
	db := setupTestDB(t)
	repo := NewMaintenanceRepository(db)
	ctx := t.Context()
	now := time.Now()

	vehicle := createTestVehicle(t, db, "SIM-001", "1HGBH41JXMN109001")

	t.Run("no tasks", func(t *testing.T) {
		has, err := repo.HasOverdueTask(ctx, vehicle.ID, now)
		require.NoError(t, err)
		assert.False(t, has)
	})

	t.Run("scheduled in the past", func(t *testing.T) {
		past := now.AddDate(0, 0, -2)
		task := createTestTask(t, db, &entities.MaintenanceTask{
			VehicleID:     vehicle.ID,
			Status:        entities.TaskStatusScheduled,
			ScheduledDate: &past,
		})
		has, err := repo.HasOverdueTask(ctx, vehicle.ID, now)
		require.NoError(t, err)
		assert.True(t, has)
		require.NoError(t, db.Delete(task).Error)
	})

	t.Run("marked overdue", func(t *testing.T) {
		past := now.AddDate(0, 0, -5)
		task := createTestTask(t, db, &entities.MaintenanceTask{
			VehicleID:     vehicle.ID,
			Status:        entities.TaskStatusOverdue,
			ScheduledDate: &past,
		})
		has, err := repo.HasOverdueTask(ctx, vehicle.ID, now)
		require.NoError(t, err)
		assert.True(t, has)
		require.NoError(t, db.Delete(task).Error)
	})

	t.Run("completed in the past does not count", func(t *testing.T) {
		past := now.AddDate(0, 0, -5)
		createTestTask(t, db, &entities.MaintenanceTask{
			VehicleID:      vehicle.ID,
			Status:         entities.TaskStatusCompleted,
			ScheduledDate:  &past,
			CompletionDate: &past,
		})
		has, err := repo.HasOverdueTask(ctx, vehicle.ID, now)
		require.NoError(t, err)
		assert.False(t, has)
	})

	t.Run("scheduled in the future does not count", func(t *testing.T) {
		future := now.AddDate(0, 0, 3)
		createTestTask(t, db, &entities.MaintenanceTask{
			VehicleID:     vehicle.ID,
			Status:        entities.TaskStatusScheduled,
			ScheduledDate: &future,
		})
		has, err := repo.HasOverdueTask(ctx, vehicle.ID, now)
		require.NoError(t, err)
		assert.False(t, has)
	})
}

func TestMaintenanceRepository_HasTaskDueWithin(t *testing.T) {
	db := setupTestDB(t)
	repo := NewMaintenanceRepository(db)
	ctx := t.Context()
	now := time.Now()

	vehicle := createTestVehicle(t, db, "SIM-001", "1HGBH41JXMN109001")

	soon := now.AddDate(0, 0, 10)
	createTestTask(t, db, &entities.MaintenanceTask{
		VehicleID:     vehicle.ID,
		Status:        entities.TaskStatusScheduled,
		ScheduledDate: &soon,
	})

	has, err := repo.HasTaskDueWithin(ctx, vehicle.ID, now, 14*24*time.Hour)
	require.NoError(t, err)
	assert.True(t, has)

	has, err = repo.HasTaskDueWithin(ctx, vehicle.ID, now, 7*24*time.Hour)
	require.NoError(t, err)
	assert.False(t, has, "task is outside the window")

	other := createTestVehicle(t, db, "SIM-002", "2HGBH41JXMN109002")
	has, err = repo.HasTaskDueWithin(ctx, other.ID, now, 14*24*time.Hour)
	require.NoError(t, err)
	assert.False(t, has)
}

func TestMaintenanceRepository_ListTasks(t *testing.T) {
	db := setupTestDB(t)
	repo := NewMaintenanceRepository(db)
	ctx := t.Context()

	vehicle := createTestVehicle(t, db, "SIM-001", "1HGBH41JXMN109001")
	other := createTestVehicle(t, db, "SIM-002", "2HGBH41JXMN109002")

	early := time.Now().AddDate(0, 0, 2)
	late := time.Now().AddDate(0, 0, 9)

	createTestTask(t, db, &entities.MaintenanceTask{
		VehicleID: vehicle.ID, Title: "Later", Status: entities.TaskStatusScheduled, ScheduledDate: &late,
	})
	createTestTask(t, db, &entities.MaintenanceTask{
		VehicleID: vehicle.ID, Title: "Earlier", Status: entities.TaskStatusScheduled, ScheduledDate: &early,
	})
	createTestTask(t, db, &entities.MaintenanceTask{
		VehicleID: other.ID, Title: "Other vehicle", Status: entities.TaskStatusCompleted,
	})

	t.Run("ordered by scheduled date", func(t *testing.T) {
		tasks, err := repo.ListTasks(ctx, TaskFilter{VehicleID: vehicle.ID})
		require.NoError(t, err)
		require.Len(t, tasks, 2)
		assert.Equal(t, "Earlier", tasks[0].Title)
		assert.Equal(t, "Later", tasks[1].Title)
	})

	t.Run("filter by status", func(t *testing.T) {
		tasks, err := repo.ListTasks(ctx, TaskFilter{Status: entities.TaskStatusCompleted})
		require.NoError(t, err)
		require.Len(t, tasks, 1)
		assert.Equal(t, other.ID, tasks[0].VehicleID)
	})

	t.Run("limit", func(t *testing.T) {
		tasks, err := repo.ListTasks(ctx, TaskFilter{Limit: 1})
		require.NoError(t, err)
		assert.Len(t, tasks, 1)
	})
}

func TestMaintenanceRepository_CreateAndUpdateTask(t *testing.T) {
	db := setupTestDB(t)
	repo := NewMaintenanceRepository(db)
	ctx := t.Context()

	vehicle := createTestVehicle(t, db, "SIM-001", "1HGBH41JXMN109001")

	task := &entities.MaintenanceTask{
		VehicleID:       vehicle.ID,
		Title:           "Brake inspection",
		MaintenanceType: entities.MaintenancePreventive,
		Status:          entities.TaskStatusScheduled,
		Priority:        entities.PriorityMedium,
	}
	require.NoError(t, repo.CreateTask(ctx, task))
	require.NotZero(t, task.ID)

	now := time.Now()
	task.Status = entities.TaskStatusCompleted
	task.CompletionDate = &now
	require.NoError(t, repo.UpdateTask(ctx, task))

	got, err := repo.GetTask(ctx, task.ID)
	require.NoError(t, err)
	assert.Equal(t, entities.TaskStatusCompleted, got.Status)
	require.NotNil(t, got.Vehicle)
	assert.Equal(t, vehicle.ID, got.Vehicle.ID)

	t.Run("update without an ID fails", func(t *testing.T) {
		err := repo.UpdateTask(ctx, &entities.MaintenanceTask{Title: "orphan"})
		assert.Error(t, err)
	})

	t.Run("get unknown task", func(t *testing.T) {
		_, err := repo.GetTask(ctx, 9999)
		assert.ErrorIs(t, err, ErrTaskNotFound)
	})
}
