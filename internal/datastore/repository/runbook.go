package repository

import (
	"context"

	"github.com/fleetpredict/fleetpredict-go/internal/datastore/entities"
)

// RunbookRepository stores SOC playbooks and executable runbooks.
type RunbookRepository interface {
	ListPlaybooks(ctx context.Context) ([]entities.Playbook, error)
	// GetPlaybookByAlertType returns the playbook for the alert type or
	// ErrPlaybookNotFound.
	GetPlaybookByAlertType(ctx context.Context, alertType string) (*entities.Playbook, error)
	// UpsertPlaybook creates the playbook or updates the existing one
	// keyed by alert type.
	UpsertPlaybook(ctx context.Context, pb *entities.Playbook) error

	// ListRunbooks returns runbooks, optionally only active ones.
	ListRunbooks(ctx context.Context, onlyActive bool) ([]entities.Runbook, error)
	GetRunbook(ctx context.Context, id uint) (*entities.Runbook, error)
	// UpsertRunbook creates the runbook or updates the existing one keyed
	// by name.
	UpsertRunbook(ctx context.Context, rb *entities.Runbook) error
}
