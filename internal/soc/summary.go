package soc

import (
	"context"
	"fmt"

	"github.com/fleetpredict/fleetpredict-go/internal/datastore/entities"
	"github.com/fleetpredict/fleetpredict-go/internal/datastore/repository"
)

// SummaryEntry is one unresolved alert decorated with its playbook and the
// runbooks an operator can execute against it.
type SummaryEntry struct {
	Alert    entities.VehicleAlert `json:"alert"`
	Playbook *entities.Playbook    `json:"playbook,omitempty"`
	Runbooks []entities.Runbook    `json:"runbooks"`
}

// Summary is the SOC overview: unresolved high and critical alerts,
// newest first.
type Summary struct {
	Entries []SummaryEntry `json:"entries"`
	Total   int64          `json:"total"`
}

// BuildSummary assembles the SOC view. Limit caps the number of decorated
// alerts; Total still reflects every unresolved high/critical alert.
func BuildSummary(
	ctx context.Context,
	alerts repository.AlertRepository,
	runbooks repository.RunbookRepository,
	limit int,
) (*Summary, error) {
	playbooks, err := runbooks.ListPlaybooks(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading playbooks: %w", err)
	}
	playbookByType := make(map[string]*entities.Playbook, len(playbooks))
	for i := range playbooks {
		playbookByType[playbooks[i].AlertType] = &playbooks[i]
	}

	active, err := runbooks.ListRunbooks(ctx, true)
	if err != nil {
		return nil, fmt.Errorf("loading runbooks: %w", err)
	}

	summary := &Summary{Entries: []SummaryEntry{}}
	for _, severity := range []string{entities.SeverityCritical, entities.SeverityHigh} {
		list, total, err := alerts.ListAlerts(ctx, repository.AlertFilter{
			Severity:   severity,
			UnreadOnly: true,
			Limit:      limit,
		})
		if err != nil {
			return nil, fmt.Errorf("loading %s alerts: %w", severity, err)
		}
		summary.Total += total
		for i := range list {
			alert := list[i]
			entry := SummaryEntry{
				Alert:    alert,
				Playbook: playbookByType[alert.AlertType],
				Runbooks: []entities.Runbook{},
			}
			for j := range active {
				if active[j].AppliesTo(alert.AlertType) {
					entry.Runbooks = append(entry.Runbooks, active[j])
				}
			}
			summary.Entries = append(summary.Entries, entry)
		}
	}
	return summary, nil
}
