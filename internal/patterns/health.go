package patterns

import (
	"context"
	"time"

	"github.com/fleetpredict/fleetpredict-go/internal/conf"
	"github.com/fleetpredict/fleetpredict-go/internal/datastore/entities"
	"github.com/fleetpredict/fleetpredict-go/internal/datastore/repository"
)

// Health statuses.
const (
	HealthRed    = "red"
	HealthYellow = "yellow"
	HealthGreen  = "green"
)

const (
	// healthAlertWindow bounds how far back unread alerts count against
	// health.
	healthAlertWindow = 7 * 24 * time.Hour
	// healthMaintenanceWindow is the due-soon horizon for yellow.
	healthMaintenanceWindow = 14 * 24 * time.Hour
	// healthTempWindow is the recent high-temperature horizon for yellow.
	healthTempWindow = 24 * time.Hour
)

// Health is the traffic-light status of one vehicle plus the reasons
// behind it.
type Health struct {
	Status  string   `json:"status"`
	Reasons []string `json:"reasons"`
}

// HealthEvaluator derives a vehicle's traffic-light status from unread
// alerts, maintenance schedule, and recent telemetry.
type HealthEvaluator struct {
	alerts     repository.AlertRepository
	tasks      repository.MaintenanceRepository
	telemetry  repository.TelemetryRepository
	thresholds conf.Thresholds
}

// NewHealthEvaluator creates a health evaluator.
func NewHealthEvaluator(
	alerts repository.AlertRepository,
	tasks repository.MaintenanceRepository,
	telemetry repository.TelemetryRepository,
	thresholds conf.Thresholds,
) *HealthEvaluator {
	return &HealthEvaluator{
		alerts:     alerts,
		tasks:      tasks,
		telemetry:  telemetry,
		thresholds: thresholds,
	}
}

// Evaluate returns the vehicle's health status with reasons.
//
// Red: an unread critical alert in the last seven days, or overdue
// maintenance. Yellow: an unread high alert, maintenance due within two
// weeks, or a high engine temperature in the last 24 hours. Green
// otherwise.
func (h *HealthEvaluator) Evaluate(ctx context.Context, vehicle *entities.Vehicle) (Health, error) {
	now := time.Now()
	since := now.Add(-healthAlertWindow)
	var reasons []string

	critical, err := h.alerts.HasUnreadAlertSince(ctx, vehicle.ID, entities.SeverityCritical, since)
	if err != nil {
		return Health{}, err
	}
	if critical {
		reasons = append(reasons, "Unread critical alert")
	}
	overdue, err := h.tasks.HasOverdueTask(ctx, vehicle.ID, now)
	if err != nil {
		return Health{}, err
	}
	if overdue {
		reasons = append(reasons, "Maintenance overdue")
	}
	if len(reasons) > 0 {
		return Health{Status: HealthRed, Reasons: reasons}, nil
	}

	high, err := h.alerts.HasUnreadAlertSince(ctx, vehicle.ID, entities.SeverityHigh, since)
	if err != nil {
		return Health{}, err
	}
	if high {
		reasons = append(reasons, "Unread high alert")
	}
	dueSoon, err := h.tasks.HasTaskDueWithin(ctx, vehicle.ID, now, healthMaintenanceWindow)
	if err != nil {
		return Health{}, err
	}
	if dueSoon {
		reasons = append(reasons, "Maintenance due within 14 days")
	}
	hotRecently, err := h.telemetry.HasHighTempSince(ctx, vehicle.ID, h.thresholds.EngineTempHighC, now.Add(-healthTempWindow))
	if err != nil {
		return Health{}, err
	}
	if hotRecently {
		reasons = append(reasons, "Recent high engine temperature")
	}
	if len(reasons) > 0 {
		return Health{Status: HealthYellow, Reasons: reasons}, nil
	}

	return Health{Status: HealthGreen, Reasons: []string{"No issues detected."}}, nil
}
