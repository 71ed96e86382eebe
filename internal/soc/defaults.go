// Package soc builds the operations summary (unresolved alerts decorated
// with playbooks and runbooks) and executes runbook actions against alerts.
package soc

import (
	"context"
	"fmt"

	"github.com/fleetpredict/fleetpredict-go/internal/datastore/entities"
	"github.com/fleetpredict/fleetpredict-go/internal/datastore/repository"
)

// DefaultPlaybooks returns the built-in playbook per alert type. Seeded on
// startup; reseeding restores steps while preserving database IDs.
func DefaultPlaybooks() []entities.Playbook {
	return []entities.Playbook{
		{
			AlertType:   entities.AlertTypeHighEngineTemp,
			Name:        "High engine temperature",
			Description: "Recommended steps when engine temperature is above normal.",
			Steps: []string{
				"Stop the vehicle in a safe place and allow engine to cool.",
				"Check coolant level and condition.",
				"Inspect for leaks in cooling system.",
				"Schedule inspection at workshop.",
			},
		},
		{
			AlertType:   entities.AlertTypeAnomalousFuel,
			Name:        "Anomalous fuel consumption",
			Description: "Steps when rapid fuel drop or anomaly is detected.",
			Steps: []string{
				"Verify fuel gauge and sensor readings.",
				"Check for visible fuel leaks.",
				"Review recent driving conditions and load.",
				"Schedule diagnostic at workshop if needed.",
			},
		},
		{
			AlertType:   entities.AlertTypeHarshDriving,
			Name:        "Harsh driving event",
			Description: "Follow-up after harsh acceleration or braking.",
			Steps: []string{
				"Review driving behavior with driver.",
				"Check brake and tire condition.",
				"Document if recurring for training.",
			},
		},
		{
			AlertType:   entities.AlertTypeProlongedIdle,
			Name:        "Prolonged idling",
			Description: "Reduce unnecessary engine idling.",
			Steps: []string{
				"Remind driver to avoid prolonged idling.",
				"Review operational procedures.",
			},
		},
		{
			AlertType:   entities.AlertTypeMaintenanceMileage,
			Name:        "Maintenance due by mileage",
			Description: "Preventive maintenance approaching.",
			Steps: []string{
				"Schedule preventive maintenance before interval.",
				"Prepare parts and labor estimate.",
				"Assign to workshop.",
			},
		},
		{
			AlertType:   entities.AlertTypeMaintenanceTime,
			Name:        "Maintenance due by time",
			Description: "Preventive maintenance by calendar.",
			Steps: []string{
				"Schedule preventive maintenance.",
				"Confirm vehicle availability.",
				"Assign to workshop.",
			},
		},
		{
			AlertType:   entities.AlertTypeStatisticalAnomaly,
			Name:        "Statistical anomaly",
			Description: "Unusual reading vs recent baseline.",
			Steps: []string{
				"Verify sensor and telemetry consistency.",
				"Check for environmental or load factors.",
				"Schedule inspection if anomaly persists.",
			},
		},
	}
}

// DefaultRunbooks returns the built-in runbooks. Untyped runbooks apply to
// every alert type.
func DefaultRunbooks() []entities.Runbook {
	return []entities.Runbook{
		{
			Name:       "Mark as read",
			ActionType: entities.RunbookMarkAlertRead,
			IsActive:   true,
		},
		{
			Name:       "Dismiss alert",
			ActionType: entities.RunbookDismissAlert,
			IsActive:   true,
		},
		{
			Name:       "Create preventive task",
			ActionType: entities.RunbookCreateMaintenanceTask,
			Params: entities.RunbookParams{
				Title:           "Preventive maintenance (SOC)",
				MaintenanceType: entities.MaintenancePreventive,
				DaysAhead:       3,
				Priority:        entities.PriorityMedium,
			},
			IsActive: true,
		},
		{
			Name:       "Create corrective task",
			ActionType: entities.RunbookCreateMaintenanceTask,
			Params: entities.RunbookParams{
				Title:           "Corrective maintenance (SOC)",
				MaintenanceType: entities.MaintenanceCorrective,
				DaysAhead:       1,
				Priority:        entities.PriorityHigh,
			},
			IsActive: true,
		},
	}
}

// SeedDefaults upserts the built-in playbooks and runbooks. Safe to call on
// every startup.
func SeedDefaults(ctx context.Context, repo repository.RunbookRepository) error {
	playbooks := DefaultPlaybooks()
	for i := range playbooks {
		if err := repo.UpsertPlaybook(ctx, &playbooks[i]); err != nil {
			return fmt.Errorf("seeding playbook %q: %w", playbooks[i].Name, err)
		}
	}
	runbooks := DefaultRunbooks()
	for i := range runbooks {
		if err := repo.UpsertRunbook(ctx, &runbooks[i]); err != nil {
			return fmt.Errorf("seeding runbook %q: %w", runbooks[i].Name, err)
		}
	}
	return nil
}
