package repository

import (
	"context"
	"time"

	"github.com/fleetpredict/fleetpredict-go/internal/datastore/entities"
)

// TaskFilter controls maintenance task listings.
type TaskFilter struct {
	VehicleID uint
	Status    string
	Limit     int
}

// MaintenanceRepository handles scheduled and completed service jobs.
type MaintenanceRepository interface {
	CreateTask(ctx context.Context, task *entities.MaintenanceTask) error
	GetTask(ctx context.Context, id uint) (*entities.MaintenanceTask, error)
	UpdateTask(ctx context.Context, task *entities.MaintenanceTask) error
	ListTasks(ctx context.Context, filter TaskFilter) ([]entities.MaintenanceTask, error)

	// LastCompletedTask returns the most recently completed task for the
	// vehicle, by completion date, or ErrTaskNotFound.
	LastCompletedTask(ctx context.Context, vehicleID uint) (*entities.MaintenanceTask, error)
	// HasOverdueTask reports whether the vehicle has an open task whose
	// scheduled date is in the past.
	HasOverdueTask(ctx context.Context, vehicleID uint, now time.Time) (bool, error)
	// HasTaskDueWithin reports whether the vehicle has an open task
	// scheduled at or before now+window.
	HasTaskDueWithin(ctx context.Context, vehicleID uint, now time.Time, window time.Duration) (bool, error)
}
