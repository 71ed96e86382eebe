package repository

import "github.com/fleetpredict/fleetpredict-go/internal/errors"

// Sentinel errors returned by repositories when a record does not exist.
var (
	ErrVehicleNotFound  = errors.NewStd("vehicle not found")
	ErrAlertNotFound    = errors.NewStd("alert not found")
	ErrRunbookNotFound  = errors.NewStd("runbook not found")
	ErrPlaybookNotFound = errors.NewStd("playbook not found")
	ErrTaskNotFound     = errors.NewStd("maintenance task not found")
)
