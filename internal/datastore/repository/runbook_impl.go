package repository

import (
	"context"
	"fmt"

	"github.com/fleetpredict/fleetpredict-go/internal/datastore/entities"
	"github.com/fleetpredict/fleetpredict-go/internal/errors"
	"gorm.io/gorm"
)

type runbookRepository struct {
	db *gorm.DB
}

// NewRunbookRepository creates a RunbookRepository backed by GORM.
func NewRunbookRepository(db *gorm.DB) RunbookRepository {
	return &runbookRepository{db: db}
}

func (r *runbookRepository) ListPlaybooks(ctx context.Context) ([]entities.Playbook, error) {
	var playbooks []entities.Playbook
	if err := r.db.WithContext(ctx).Order("alert_type ASC").Find(&playbooks).Error; err != nil {
		return nil, fmt.Errorf("failed to list playbooks: %w", err)
	}
	return playbooks, nil
}

func (r *runbookRepository) GetPlaybookByAlertType(ctx context.Context, alertType string) (*entities.Playbook, error) {
	var playbook entities.Playbook
	err := r.db.WithContext(ctx).Where("alert_type = ?", alertType).First(&playbook).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPlaybookNotFound
		}
		return nil, fmt.Errorf("failed to get playbook for %q: %w", alertType, err)
	}
	return &playbook, nil
}

func (r *runbookRepository) UpsertPlaybook(ctx context.Context, pb *entities.Playbook) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing entities.Playbook
		err := tx.Where("alert_type = ?", pb.AlertType).First(&existing).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			return tx.Create(pb).Error
		case err != nil:
			return err
		default:
			pb.ID = existing.ID
			pb.CreatedAt = existing.CreatedAt
			return tx.Save(pb).Error
		}
	})
	if err != nil {
		return fmt.Errorf("failed to upsert playbook for %q: %w", pb.AlertType, err)
	}
	return nil
}

func (r *runbookRepository) ListRunbooks(ctx context.Context, onlyActive bool) ([]entities.Runbook, error) {
	query := r.db.WithContext(ctx)
	if onlyActive {
		query = query.Where("is_active = ?", true)
	}
	var runbooks []entities.Runbook
	if err := query.Order("id ASC").Find(&runbooks).Error; err != nil {
		return nil, fmt.Errorf("failed to list runbooks: %w", err)
	}
	return runbooks, nil
}

func (r *runbookRepository) GetRunbook(ctx context.Context, id uint) (*entities.Runbook, error) {
	var runbook entities.Runbook
	if err := r.db.WithContext(ctx).First(&runbook, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRunbookNotFound
		}
		return nil, fmt.Errorf("failed to get runbook %d: %w", id, err)
	}
	return &runbook, nil
}

func (r *runbookRepository) UpsertRunbook(ctx context.Context, rb *entities.Runbook) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing entities.Runbook
		err := tx.Where("name = ?", rb.Name).First(&existing).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			return tx.Create(rb).Error
		case err != nil:
			return err
		default:
			rb.ID = existing.ID
			rb.CreatedAt = existing.CreatedAt
			return tx.Save(rb).Error
		}
	})
	if err != nil {
		return fmt.Errorf("failed to upsert runbook %q: %w", rb.Name, err)
	}
	return nil
}
