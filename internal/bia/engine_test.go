package bia

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/veridianhq/veridian/internal/apperr"
	"github.com/veridianhq/veridian/internal/models"
)

type fakeStore struct {
	processes map[uuid.UUID]*models.BIAProcess
	assets    map[uuid.UUID]*models.BIAAsset
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		processes: make(map[uuid.UUID]*models.BIAProcess),
		assets:    make(map[uuid.UUID]*models.BIAAsset),
	}
}

func (s *fakeStore) CreateBIAProcess(_ context.Context, proc *models.BIAProcess, _ *models.HistoryEntry) error {
	s.processes[proc.ID] = proc
	return nil
}

func (s *fakeStore) GetBIAProcess(_ context.Context, orgID, processID uuid.UUID) (*models.BIAProcess, error) {
	proc, ok := s.processes[processID]
	if !ok || proc.OrgID != orgID {
		return nil, apperr.NotFoundf("process %s", processID)
	}
	return proc, nil
}

func (s *fakeStore) ListBIAProcesses(_ context.Context, orgID uuid.UUID) ([]*models.BIAProcess, error) {
	var out []*models.BIAProcess
	for _, p := range s.processes {
		if p.OrgID == orgID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (s *fakeStore) UpdateBIAProcess(_ context.Context, orgID, processID uuid.UUID, name, tier string, rto time.Duration, actor models.Actor) (*models.BIAProcess, *models.HistoryEntry, error) {
	proc, ok := s.processes[processID]
	if !ok || proc.OrgID != orgID {
		return nil, nil, apperr.NotFoundf("process %s", processID)
	}
	proc.Name = name
	proc.CriticalityTier = tier
	proc.RecoveryTimeObjective = rto
	entry := models.NewHistoryEntry(orgID, models.EntityBIAProcess, processID.String(),
		models.ActionUpdate, actor, nil)
	return proc, entry, nil
}

func (s *fakeStore) DeleteBIAProcess(_ context.Context, orgID, processID uuid.UUID, actor models.Actor) (*models.HistoryEntry, error) {
	proc, ok := s.processes[processID]
	if !ok || proc.OrgID != orgID {
		return nil, apperr.NotFoundf("process %s", processID)
	}
	delete(s.processes, processID)
	for id, a := range s.assets {
		if a.ProcessID == processID {
			delete(s.assets, id)
		}
	}
	return models.NewHistoryEntry(orgID, models.EntityBIAProcess, processID.String(),
		models.ActionDelete, actor, nil), nil
}

func (s *fakeStore) CreateBIAAsset(_ context.Context, asset *models.BIAAsset, _ *models.HistoryEntry) error {
	proc, ok := s.processes[asset.ProcessID]
	if !ok || proc.OrgID != asset.OrgID {
		return apperr.NotFoundf("process %s", asset.ProcessID)
	}
	s.assets[asset.ID] = asset
	return nil
}

func (s *fakeStore) ListBIAAssets(_ context.Context, orgID uuid.UUID) ([]*models.BIAAsset, error) {
	var out []*models.BIAAsset
	for _, a := range s.assets {
		if a.OrgID == orgID {
			out = append(out, a)
		}
	}
	return out, nil
}

func (s *fakeStore) UpdateBIAAsset(_ context.Context, orgID, assetID uuid.UUID, name, tier string, actor models.Actor) (*models.BIAAsset, *models.HistoryEntry, error) {
	asset, ok := s.assets[assetID]
	if !ok || asset.OrgID != orgID {
		return nil, nil, apperr.NotFoundf("asset %s", assetID)
	}
	asset.Name = name
	asset.CriticalityTier = tier
	entry := models.NewHistoryEntry(orgID, models.EntityBIAAsset, assetID.String(),
		models.ActionUpdate, actor, nil)
	return asset, entry, nil
}

func (s *fakeStore) DeleteBIAAsset(_ context.Context, orgID, assetID uuid.UUID, actor models.Actor) (*models.HistoryEntry, error) {
	asset, ok := s.assets[assetID]
	if !ok || asset.OrgID != orgID {
		return nil, apperr.NotFoundf("asset %s", assetID)
	}
	delete(s.assets, assetID)
	return models.NewHistoryEntry(orgID, models.EntityBIAAsset, assetID.String(),
		models.ActionDelete, actor, nil), nil
}

func newTestEngine(store Store) *Engine {
	return NewEngine(store, DefaultTierPolicy(), nil, nil, zerolog.Nop())
}

func TestEngine_ProcessValidation(t *testing.T) {
	eng := newTestEngine(newFakeStore())
	orgID := uuid.New()
	actor := models.Actor{OrgID: orgID, ID: uuid.New(), Name: "alice"}

	t.Run("EmptyName", func(t *testing.T) {
		_, err := eng.CreateProcess(context.Background(), orgID, "  ", "high", time.Hour, actor)
		assert.ErrorIs(t, err, apperr.ErrValidation)
	})

	t.Run("UnknownTier", func(t *testing.T) {
		_, err := eng.CreateProcess(context.Background(), orgID, "Payments", "critical", time.Hour, actor)
		assert.ErrorIs(t, err, apperr.ErrValidation)
	})

	t.Run("NegativeRTO", func(t *testing.T) {
		_, err := eng.CreateProcess(context.Background(), orgID, "Payments", "high", -time.Hour, actor)
		assert.ErrorIs(t, err, apperr.ErrValidation)
	})
}

func TestEngine_ComplianceLevel(t *testing.T) {
	store := newFakeStore()
	eng := newTestEngine(store)
	orgID := uuid.New()
	actor := models.Actor{OrgID: orgID, ID: uuid.New(), Name: "bob"}
	ctx := context.Background()

	t.Run("NoProcessesIsUndetermined", func(t *testing.T) {
		level, err := eng.ComplianceLevel(ctx, orgID)
		require.NoError(t, err)
		assert.Equal(t, models.TierUndetermined, level.Tier)
		assert.False(t, level.IsAssessed)
		assert.Empty(t, level.Baseline)
	})

	var proc *models.BIAProcess
	t.Run("HighProcessMapsToItsBaseline", func(t *testing.T) {
		var err error
		proc, err = eng.CreateProcess(ctx, orgID, "Payments", "high", 4*time.Hour, actor)
		require.NoError(t, err)

		level, err := eng.ComplianceLevel(ctx, orgID)
		require.NoError(t, err)
		assert.Equal(t, "high", level.Tier)
		assert.Equal(t, "Baseline C", level.Baseline)
		assert.True(t, level.IsAssessed)
	})

	t.Run("LowAssetCannotLowerLevel", func(t *testing.T) {
		_, err := eng.CreateAsset(ctx, orgID, proc.ID, "Static Assets", "low", actor)
		require.NoError(t, err)

		level, err := eng.ComplianceLevel(ctx, orgID)
		require.NoError(t, err)
		assert.Equal(t, "high", level.Tier)
	})

	t.Run("HigherAssetRaisesLevel", func(t *testing.T) {
		low, err := eng.CreateProcess(ctx, orgID, "Newsletter", "low", 24*time.Hour, actor)
		require.NoError(t, err)

		// Drop the high process so only the low one remains.
		require.NoError(t, eng.DeleteProcess(ctx, orgID, proc.ID, actor))

		level, err := eng.ComplianceLevel(ctx, orgID)
		require.NoError(t, err)
		assert.Equal(t, "low", level.Tier)

		_, err = eng.CreateAsset(ctx, orgID, low.ID, "Subscriber DB", "moderate", actor)
		require.NoError(t, err)

		level, err = eng.ComplianceLevel(ctx, orgID)
		require.NoError(t, err)
		assert.Equal(t, "moderate", level.Tier)
		assert.Equal(t, "Baseline B", level.Baseline)
	})

	t.Run("Deterministic", func(t *testing.T) {
		first, err := eng.ComplianceLevel(ctx, orgID)
		require.NoError(t, err)
		for i := 0; i < 5; i++ {
			again, err := eng.ComplianceLevel(ctx, orgID)
			require.NoError(t, err)
			assert.Equal(t, first, again)
		}
	})

	t.Run("OrgsIndependent", func(t *testing.T) {
		level, err := eng.ComplianceLevel(ctx, uuid.New())
		require.NoError(t, err)
		assert.Equal(t, models.TierUndetermined, level.Tier)
	})
}

func TestEngine_AssetValidation(t *testing.T) {
	store := newFakeStore()
	eng := newTestEngine(store)
	orgID := uuid.New()
	actor := models.Actor{OrgID: orgID, ID: uuid.New(), Name: "carol"}
	ctx := context.Background()

	proc, err := eng.CreateProcess(ctx, orgID, "Billing", "moderate", time.Hour, actor)
	require.NoError(t, err)

	t.Run("UnknownTier", func(t *testing.T) {
		_, err := eng.CreateAsset(ctx, orgID, proc.ID, "Invoices", "extreme", actor)
		assert.ErrorIs(t, err, apperr.ErrValidation)
	})

	t.Run("UnknownProcess", func(t *testing.T) {
		_, err := eng.CreateAsset(ctx, orgID, uuid.New(), "Invoices", "low", actor)
		assert.ErrorIs(t, err, apperr.ErrNotFound)
	})

	t.Run("UpdateTier", func(t *testing.T) {
		asset, err := eng.CreateAsset(ctx, orgID, proc.ID, "Invoices", "low", actor)
		require.NoError(t, err)

		updated, err := eng.UpdateAsset(ctx, orgID, asset.ID, "Invoices", "high", actor)
		require.NoError(t, err)
		assert.Equal(t, "high", updated.CriticalityTier)

		level, err := eng.ComplianceLevel(ctx, orgID)
		require.NoError(t, err)
		assert.Equal(t, "high", level.Tier)
	})
}
