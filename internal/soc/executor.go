package soc

import (
	"context"
	"fmt"
	"time"

	"github.com/fleetpredict/fleetpredict-go/internal/datastore/entities"
	"github.com/fleetpredict/fleetpredict-go/internal/datastore/repository"
	"github.com/fleetpredict/fleetpredict-go/internal/errors"
	"github.com/fleetpredict/fleetpredict-go/internal/logger"
)

// ErrRunbookNotApplicable is returned when an inactive runbook, or one
// scoped to a different alert type, is executed against an alert.
var ErrRunbookNotApplicable = errors.NewStd("runbook not applicable to alert")

// ExecutionResult reports what a runbook execution did.
type ExecutionResult struct {
	Runbook   string `json:"runbook"`
	Action    string `json:"action"`
	AlertID   uint   `json:"alert_id"`
	TaskID    uint   `json:"task_id,omitempty"`
	TaskTitle string `json:"task_title,omitempty"`
}

// Executor applies runbook actions to alerts.
type Executor struct {
	alerts   repository.AlertRepository
	runbooks repository.RunbookRepository
	tasks    repository.MaintenanceRepository
	log      logger.Logger
}

// NewExecutor creates a runbook executor.
func NewExecutor(
	alerts repository.AlertRepository,
	runbooks repository.RunbookRepository,
	tasks repository.MaintenanceRepository,
	log logger.Logger,
) *Executor {
	return &Executor{alerts: alerts, runbooks: runbooks, tasks: tasks, log: log}
}

// Execute runs the runbook against the alert.
func (e *Executor) Execute(ctx context.Context, runbookID, alertID uint) (*ExecutionResult, error) {
	runbook, err := e.runbooks.GetRunbook(ctx, runbookID)
	if err != nil {
		return nil, err
	}
	alert, err := e.alerts.GetAlert(ctx, alertID)
	if err != nil {
		return nil, err
	}
	if !runbook.AppliesTo(alert.AlertType) {
		return nil, ErrRunbookNotApplicable
	}

	result := &ExecutionResult{
		Runbook: runbook.Name,
		Action:  runbook.ActionType,
		AlertID: alert.ID,
	}

	switch runbook.ActionType {
	case entities.RunbookMarkAlertRead:
		if err := e.alerts.MarkAlertRead(ctx, alert.ID); err != nil {
			return nil, err
		}
	case entities.RunbookDismissAlert:
		if err := e.alerts.MarkAlertRead(ctx, alert.ID); err != nil {
			return nil, err
		}
		if alert.SuggestionStatus != nil {
			if err := e.alerts.SetSuggestionStatus(ctx, alert.ID, entities.SuggestionDismissed); err != nil {
				return nil, err
			}
		}
	case entities.RunbookCreateMaintenanceTask:
		task, err := e.createTask(ctx, alert, runbook.Params)
		if err != nil {
			return nil, err
		}
		result.TaskID = task.ID
		result.TaskTitle = task.Title
	default:
		return nil, fmt.Errorf("unknown runbook action %q", runbook.ActionType)
	}

	e.log.Info("runbook executed",
		logger.String("runbook", runbook.Name),
		logger.String("action", runbook.ActionType),
		logger.Uint64("alert_id", uint64(alert.ID)))
	return result, nil
}

func (e *Executor) createTask(ctx context.Context, alert *entities.VehicleAlert, params entities.RunbookParams) (*entities.MaintenanceTask, error) {
	title := params.Title
	if title == "" {
		title = fmt.Sprintf("Maintenance for alert #%d", alert.ID)
	}
	maintenanceType := params.MaintenanceType
	if maintenanceType == "" {
		maintenanceType = entities.MaintenancePreventive
	}
	priority := params.Priority
	if priority == "" {
		priority = entities.PriorityMedium
	}
	daysAhead := params.DaysAhead
	if daysAhead <= 0 {
		daysAhead = 1
	}
	description := params.Description
	if description == "" {
		description = fmt.Sprintf("Created from alert: %s", alert.Message)
	}

	scheduled := time.Now().AddDate(0, 0, daysAhead)
	task := &entities.MaintenanceTask{
		VehicleID:       alert.VehicleID,
		Title:           title,
		Description:     description,
		MaintenanceType: maintenanceType,
		Status:          entities.TaskStatusScheduled,
		Priority:        priority,
		ScheduledDate:   &scheduled,
	}
	if err := e.tasks.CreateTask(ctx, task); err != nil {
		return nil, err
	}

	// Accepting a maintenance suggestion via a task runbook also resolves
	// the alert.
	if err := e.alerts.MarkAlertRead(ctx, alert.ID); err != nil {
		return nil, err
	}
	if alert.SuggestionStatus != nil {
		if err := e.alerts.SetSuggestionStatus(ctx, alert.ID, entities.SuggestionAccepted); err != nil {
			return nil, err
		}
	}
	return task, nil
}

// ResolveSuggestion applies the accept/dismiss workflow to a maintenance
// suggestion alert. Accepting creates a preventive task three days out.
func (e *Executor) ResolveSuggestion(ctx context.Context, alertID uint, accept bool) (*ExecutionResult, error) {
	alert, err := e.alerts.GetAlert(ctx, alertID)
	if err != nil {
		return nil, err
	}
	if alert.SuggestionStatus == nil {
		return nil, errors.Newf("alert %d carries no suggestion", alertID).
			Component("soc").
			Category(errors.CategoryValidation).
			Build()
	}

	if !accept {
		if err := e.alerts.SetSuggestionStatus(ctx, alertID, entities.SuggestionDismissed); err != nil {
			return nil, err
		}
		if err := e.alerts.MarkAlertRead(ctx, alertID); err != nil {
			return nil, err
		}
		return &ExecutionResult{Action: "suggestion_dismissed", AlertID: alertID}, nil
	}

	task, err := e.createTask(ctx, alert, entities.RunbookParams{
		Title:           "Preventive maintenance (suggested)",
		MaintenanceType: entities.MaintenancePreventive,
		DaysAhead:       3,
		Priority:        entities.PriorityMedium,
	})
	if err != nil {
		return nil, err
	}
	return &ExecutionResult{
		Action:    "suggestion_accepted",
		AlertID:   alertID,
		TaskID:    task.ID,
		TaskTitle: task.Title,
	}, nil
}
