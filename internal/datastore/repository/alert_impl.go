package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/fleetpredict/fleetpredict-go/internal/datastore/entities"
	"github.com/fleetpredict/fleetpredict-go/internal/errors"
	"gorm.io/gorm"
)

type alertRepository struct {
	db *gorm.DB
}

// NewAlertRepository creates an AlertRepository backed by GORM.
func NewAlertRepository(db *gorm.DB) AlertRepository {
	return &alertRepository{db: db}
}

func (r *alertRepository) CreateAlert(ctx context.Context, alert *entities.VehicleAlert) error {
	if err := r.db.WithContext(ctx).Create(alert).Error; err != nil {
		return fmt.Errorf("failed to create alert: %w", err)
	}
	return nil
}

func (r *alertRepository) applyFilter(query *gorm.DB, filter AlertFilter) *gorm.DB {
	if filter.VehicleID > 0 {
		query = query.Where("vehicle_id = ?", filter.VehicleID)
	}
	if filter.AlertType != "" {
		query = query.Where("alert_type = ?", filter.AlertType)
	}
	if filter.Severity != "" {
		query = query.Where("severity = ?", filter.Severity)
	}
	if filter.UnreadOnly {
		query = query.Where("read_at IS NULL")
	}
	if !filter.Since.IsZero() {
		query = query.Where("created_at >= ?", filter.Since)
	}
	return query
}

func (r *alertRepository) ListAlerts(ctx context.Context, filter AlertFilter) ([]entities.VehicleAlert, int64, error) {
	var total int64
	countQuery := r.applyFilter(r.db.WithContext(ctx).Model(&entities.VehicleAlert{}), filter)
	if err := countQuery.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count alerts: %w", err)
	}

	limit := filter.Limit
	if limit <= 0 || limit > MaxAlertPageSize {
		limit = MaxAlertPageSize
	}

	var alerts []entities.VehicleAlert
	listQuery := r.applyFilter(r.db.WithContext(ctx).Model(&entities.VehicleAlert{}), filter)
	err := listQuery.Preload("Vehicle").
		Order("created_at DESC, id DESC").
		Limit(limit).
		Offset(filter.Offset).
		Find(&alerts).Error
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list alerts: %w", err)
	}
	return alerts, total, nil
}

func (r *alertRepository) GetAlert(ctx context.Context, id uint) (*entities.VehicleAlert, error) {
	var alert entities.VehicleAlert
	if err := r.db.WithContext(ctx).Preload("Vehicle").First(&alert, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrAlertNotFound
		}
		return nil, fmt.Errorf("failed to get alert %d: %w", id, err)
	}
	return &alert, nil
}

func (r *alertRepository) MarkAlertRead(ctx context.Context, id uint) error {
	result := r.db.WithContext(ctx).Model(&entities.VehicleAlert{}).
		Where("id = ? AND read_at IS NULL", id).
		Update("read_at", time.Now())
	if result.Error != nil {
		return fmt.Errorf("failed to mark alert %d read: %w", id, result.Error)
	}
	if result.RowsAffected == 0 {
		// Either missing or already read; distinguish so callers can
		// treat a repeat mark as a no-op.
		var count int64
		if err := r.db.WithContext(ctx).Model(&entities.VehicleAlert{}).
			Where("id = ?", id).Count(&count).Error; err != nil {
			return fmt.Errorf("failed to mark alert %d read: %w", id, err)
		}
		if count == 0 {
			return ErrAlertNotFound
		}
	}
	return nil
}

func (r *alertRepository) SetSuggestionStatus(ctx context.Context, id uint, status string) error {
	result := r.db.WithContext(ctx).Model(&entities.VehicleAlert{}).
		Where("id = ?", id).
		Update("suggestion_status", status)
	if result.Error != nil {
		return fmt.Errorf("failed to set suggestion status on alert %d: %w", id, result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrAlertNotFound
	}
	return nil
}

func (r *alertRepository) RecentAlertTypes(ctx context.Context, vehicleID uint, since time.Time) ([]string, error) {
	var types []string
	err := r.db.WithContext(ctx).Model(&entities.VehicleAlert{}).
		Where("vehicle_id = ? AND created_at >= ?", vehicleID, since).
		Distinct("alert_type").
		Pluck("alert_type", &types).Error
	if err != nil {
		return nil, fmt.Errorf("failed to query recent alert types for vehicle %d: %w", vehicleID, err)
	}
	return types, nil
}

func (r *alertRepository) HasUnreadAlertSince(ctx context.Context, vehicleID uint, severity string, since time.Time) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&entities.VehicleAlert{}).
		Where("vehicle_id = ? AND severity = ? AND read_at IS NULL AND created_at >= ?",
			vehicleID, severity, since).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("failed to query unread alerts for vehicle %d: %w", vehicleID, err)
	}
	return count > 0, nil
}

func (r *alertRepository) DeleteReadAlertsBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("read_at IS NOT NULL AND created_at < ?", cutoff).
		Delete(&entities.VehicleAlert{})
	if result.Error != nil {
		return 0, fmt.Errorf("failed to delete old alerts: %w", result.Error)
	}
	return result.RowsAffected, nil
}
