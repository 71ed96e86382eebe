package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/fleetpredict/fleetpredict-go/internal/datastore/entities"
	"github.com/fleetpredict/fleetpredict-go/internal/errors"
	"gorm.io/gorm"
)

type maintenanceRepository struct {
	db *gorm.DB
}

// NewMaintenanceRepository creates a MaintenanceRepository backed by GORM.
func NewMaintenanceRepository(db *gorm.DB) MaintenanceRepository {
	return &maintenanceRepository{db: db}
}

func (r *maintenanceRepository) CreateTask(ctx context.Context, task *entities.MaintenanceTask) error {
	if err := r.db.WithContext(ctx).Create(task).Error; err != nil {
		return fmt.Errorf("failed to create maintenance task: %w", err)
	}
	return nil
}

func (r *maintenanceRepository) GetTask(ctx context.Context, id uint) (*entities.MaintenanceTask, error) {
	var task entities.MaintenanceTask
	if err := r.db.WithContext(ctx).Preload("Vehicle").First(&task, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTaskNotFound
		}
		return nil, fmt.Errorf("failed to get maintenance task %d: %w", id, err)
	}
	return &task, nil
}

func (r *maintenanceRepository) UpdateTask(ctx context.Context, task *entities.MaintenanceTask) error {
	if task.ID == 0 {
		return fmt.Errorf("failed to update maintenance task: missing task ID")
	}
	if err := r.db.WithContext(ctx).Save(task).Error; err != nil {
		return fmt.Errorf("failed to update maintenance task %d: %w", task.ID, err)
	}
	return nil
}

func (r *maintenanceRepository) ListTasks(ctx context.Context, filter TaskFilter) ([]entities.MaintenanceTask, error) {
	query := r.db.WithContext(ctx).Model(&entities.MaintenanceTask{})
	if filter.VehicleID > 0 {
		query = query.Where("vehicle_id = ?", filter.VehicleID)
	}
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}

	var tasks []entities.MaintenanceTask
	if err := query.Order("scheduled_date ASC, id ASC").Find(&tasks).Error; err != nil {
		return nil, fmt.Errorf("failed to list maintenance tasks: %w", err)
	}
	return tasks, nil
}

func (r *maintenanceRepository) LastCompletedTask(ctx context.Context, vehicleID uint) (*entities.MaintenanceTask, error) {
	var task entities.MaintenanceTask
	err := r.db.WithContext(ctx).
		Where("vehicle_id = ? AND status = ? AND completion_date IS NOT NULL",
			vehicleID, entities.TaskStatusCompleted).
		Order("completion_date DESC, id DESC").
		First(&task).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTaskNotFound
		}
		return nil, fmt.Errorf("failed to get last completed task for vehicle %d: %w", vehicleID, err)
	}
	return &task, nil
}

func (r *maintenanceRepository) HasOverdueTask(ctx context.Context, vehicleID uint, now time.Time) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&entities.MaintenanceTask{}).
		Where("vehicle_id = ?", vehicleID).
		Where("status IN ? AND scheduled_date IS NOT NULL AND scheduled_date < ?",
			[]string{entities.TaskStatusScheduled, entities.TaskStatusOverdue},
			now).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("failed to query overdue tasks for vehicle %d: %w", vehicleID, err)
	}
	return count > 0, nil
}

func (r *maintenanceRepository) HasTaskDueWithin(ctx context.Context, vehicleID uint, now time.Time, window time.Duration) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&entities.MaintenanceTask{}).
		Where("vehicle_id = ? AND status IN ? AND scheduled_date IS NOT NULL AND scheduled_date <= ?",
			vehicleID,
			[]string{entities.TaskStatusScheduled, entities.TaskStatusOverdue},
			now.Add(window)).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("failed to query upcoming tasks for vehicle %d: %w", vehicleID, err)
	}
	return count > 0, nil
}
