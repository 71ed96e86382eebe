package soc

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fleetpredict/fleetpredict-go/internal/datastore/entities"
	"github.com/fleetpredict/fleetpredict-go/internal/datastore/repository"
)

func TestDefaultPlaybooksCoverEveryAlertType(t *testing.T) {
	playbooks := DefaultPlaybooks()
	require.Len(t, playbooks, 7)

	byType := make(map[string]entities.Playbook, len(playbooks))
	for _, pb := range playbooks {
		byType[pb.AlertType] = pb
	}
	for _, alertType := range []string{
		entities.AlertTypeHighEngineTemp,
		entities.AlertTypeAnomalousFuel,
		entities.AlertTypeHarshDriving,
		entities.AlertTypeProlongedIdle,
		entities.AlertTypeMaintenanceMileage,
		entities.AlertTypeMaintenanceTime,
		entities.AlertTypeStatisticalAnomaly,
	} {
		pb, ok := byType[alertType]
		require.True(t, ok, "missing playbook for %s", alertType)
		assert.NotEmpty(t, pb.Name)
		assert.NotEmpty(t, pb.Steps)
	}
}

func TestDefaultRunbooksAreGlobalAndActive(t *testing.T) {
	runbooks := DefaultRunbooks()
	require.Len(t, runbooks, 4)

	for _, rb := range runbooks {
		assert.True(t, rb.IsActive)
		assert.Empty(t, rb.AlertType, "built-in runbooks apply to every alert type")
	}
}

func TestSeedDefaultsIsIdempotent(t *testing.T) {
	db := setupSOCDB(t)
	repo := repository.NewRunbookRepository(db)

	require.NoError(t, SeedDefaults(t.Context(), repo))

	playbooks, err := repo.ListPlaybooks(t.Context())
	require.NoError(t, err)
	require.Len(t, playbooks, 7)
	firstID := playbooks[0].ID

	// Reseeding rewrites in place instead of duplicating.
	require.NoError(t, SeedDefaults(t.Context(), repo))

	playbooks, err = repo.ListPlaybooks(t.Context())
	require.NoError(t, err)
	assert.Len(t, playbooks, 7)
	assert.Equal(t, firstID, playbooks[0].ID)

	runbooks, err := repo.ListRunbooks(t.Context(), false)
	require.NoError(t, err)
	assert.Len(t, runbooks, 4)
}
