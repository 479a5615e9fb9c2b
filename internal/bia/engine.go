package bia

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/veridianhq/veridian/internal/apperr"
	"github.com/veridianhq/veridian/internal/metrics"
	"github.com/veridianhq/veridian/internal/models"
)

// Store defines the persistence operations the engine needs.
type Store interface {
	CreateBIAProcess(ctx context.Context, proc *models.BIAProcess, entry *models.HistoryEntry) error
	GetBIAProcess(ctx context.Context, orgID, processID uuid.UUID) (*models.BIAProcess, error)
	ListBIAProcesses(ctx context.Context, orgID uuid.UUID) ([]*models.BIAProcess, error)
	UpdateBIAProcess(ctx context.Context, orgID, processID uuid.UUID, name, tier string, rto time.Duration, actor models.Actor) (*models.BIAProcess, *models.HistoryEntry, error)
	DeleteBIAProcess(ctx context.Context, orgID, processID uuid.UUID, actor models.Actor) (*models.HistoryEntry, error)
	CreateBIAAsset(ctx context.Context, asset *models.BIAAsset, entry *models.HistoryEntry) error
	ListBIAAssets(ctx context.Context, orgID uuid.UUID) ([]*models.BIAAsset, error)
	UpdateBIAAsset(ctx context.Context, orgID, assetID uuid.UUID, name, tier string, actor models.Actor) (*models.BIAAsset, *models.HistoryEntry, error)
	DeleteBIAAsset(ctx context.Context, orgID, assetID uuid.UUID, actor models.Actor) (*models.HistoryEntry, error)
}

// Publisher fans out committed history entries to live subscribers.
type Publisher interface {
	Publish(entry *models.HistoryEntry)
}

// Engine owns BIA declarations and derives the organization-wide
// compliance level from them.
type Engine struct {
	store  Store
	policy *TierPolicy
	cache  *LevelCache
	feed   Publisher
	logger zerolog.Logger
}

// NewEngine creates a BIA engine. cache and feed may be nil.
func NewEngine(store Store, policy *TierPolicy, cache *LevelCache, feed Publisher, logger zerolog.Logger) *Engine {
	return &Engine{
		store:  store,
		policy: policy,
		cache:  cache,
		feed:   feed,
		logger: logger.With().Str("component", "bia").Logger(),
	}
}

// Policy returns the active tier policy.
func (e *Engine) Policy() *TierPolicy {
	return e.policy
}

// CreateProcess declares a business process.
func (e *Engine) CreateProcess(ctx context.Context, orgID uuid.UUID, name, tier string, rto time.Duration, actor models.Actor) (*models.BIAProcess, error) {
	if strings.TrimSpace(name) == "" {
		return nil, apperr.Validationf("process name is empty")
	}
	if !e.policy.Known(tier) {
		return nil, apperr.Validationf("unknown criticality tier %q", tier)
	}
	if rto < 0 {
		return nil, apperr.Validationf("recovery time objective is negative")
	}

	proc := models.NewBIAProcess(orgID, name, tier, rto)
	entry := models.NewHistoryEntry(orgID, models.EntityBIAProcess, proc.ID.String(),
		models.ActionCreate, actor, map[string]any{
			"name": name,
			"tier": tier,
		})

	if err := e.store.CreateBIAProcess(ctx, proc, entry); err != nil {
		return nil, err
	}
	e.afterMutation(ctx, orgID, entry)
	return proc, nil
}

// GetProcess returns one process scoped to the organization.
func (e *Engine) GetProcess(ctx context.Context, orgID, processID uuid.UUID) (*models.BIAProcess, error) {
	return e.store.GetBIAProcess(ctx, orgID, processID)
}

// ListProcesses returns the organization's processes ordered by name.
func (e *Engine) ListProcesses(ctx context.Context, orgID uuid.UUID) ([]*models.BIAProcess, error) {
	return e.store.ListBIAProcesses(ctx, orgID)
}

// UpdateProcess replaces the mutable fields of a process.
func (e *Engine) UpdateProcess(ctx context.Context, orgID, processID uuid.UUID, name, tier string, rto time.Duration, actor models.Actor) (*models.BIAProcess, error) {
	if strings.TrimSpace(name) == "" {
		return nil, apperr.Validationf("process name is empty")
	}
	if !e.policy.Known(tier) {
		return nil, apperr.Validationf("unknown criticality tier %q", tier)
	}
	if rto < 0 {
		return nil, apperr.Validationf("recovery time objective is negative")
	}

	updated, entry, err := e.store.UpdateBIAProcess(ctx, orgID, processID, name, tier, rto, actor)
	if err != nil {
		return nil, err
	}
	e.afterMutation(ctx, orgID, entry)
	return updated, nil
}

// DeleteProcess removes a process and, by cascade, its assets.
func (e *Engine) DeleteProcess(ctx context.Context, orgID, processID uuid.UUID, actor models.Actor) error {
	entry, err := e.store.DeleteBIAProcess(ctx, orgID, processID, actor)
	if err != nil {
		return err
	}
	e.afterMutation(ctx, orgID, entry)
	return nil
}

// CreateAsset declares an information asset under a process. The process
// must belong to the same organization.
func (e *Engine) CreateAsset(ctx context.Context, orgID, processID uuid.UUID, name, tier string, actor models.Actor) (*models.BIAAsset, error) {
	if strings.TrimSpace(name) == "" {
		return nil, apperr.Validationf("asset name is empty")
	}
	if !e.policy.Known(tier) {
		return nil, apperr.Validationf("unknown criticality tier %q", tier)
	}

	asset := models.NewBIAAsset(orgID, processID, name, tier)
	entry := models.NewHistoryEntry(orgID, models.EntityBIAAsset, asset.ID.String(),
		models.ActionCreate, actor, map[string]any{
			"name":       name,
			"tier":       tier,
			"process_id": processID.String(),
		})

	if err := e.store.CreateBIAAsset(ctx, asset, entry); err != nil {
		return nil, err
	}
	e.afterMutation(ctx, orgID, entry)
	return asset, nil
}

// ListAssets returns the organization's assets ordered by name.
func (e *Engine) ListAssets(ctx context.Context, orgID uuid.UUID) ([]*models.BIAAsset, error) {
	return e.store.ListBIAAssets(ctx, orgID)
}

// UpdateAsset replaces the mutable fields of an asset.
func (e *Engine) UpdateAsset(ctx context.Context, orgID, assetID uuid.UUID, name, tier string, actor models.Actor) (*models.BIAAsset, error) {
	if strings.TrimSpace(name) == "" {
		return nil, apperr.Validationf("asset name is empty")
	}
	if !e.policy.Known(tier) {
		return nil, apperr.Validationf("unknown criticality tier %q", tier)
	}

	updated, entry, err := e.store.UpdateBIAAsset(ctx, orgID, assetID, name, tier, actor)
	if err != nil {
		return nil, err
	}
	e.afterMutation(ctx, orgID, entry)
	return updated, nil
}

// DeleteAsset removes one asset.
func (e *Engine) DeleteAsset(ctx context.Context, orgID, assetID uuid.UUID, actor models.Actor) error {
	entry, err := e.store.DeleteBIAAsset(ctx, orgID, assetID, actor)
	if err != nil {
		return err
	}
	e.afterMutation(ctx, orgID, entry)
	return nil
}

// ComplianceLevel derives the organization-wide level: the pointwise
// maximum over the union of process and asset tiers. An asset can raise
// the level above its process tier, never lower it. An organization with
// no declared processes is undetermined regardless of assets.
func (e *Engine) ComplianceLevel(ctx context.Context, orgID uuid.UUID) (*models.ComplianceLevel, error) {
	start := time.Now()

	if cached, err := e.cache.Get(ctx, orgID); err != nil {
		e.logger.Warn().Err(err).Msg("compliance level cache read failed")
	} else if cached != nil {
		metrics.ComplianceComputations.WithLabelValues("cache").Observe(time.Since(start).Seconds())
		return cached, nil
	}

	procs, err := e.store.ListBIAProcesses(ctx, orgID)
	if err != nil {
		return nil, err
	}

	level := &models.ComplianceLevel{Tier: models.TierUndetermined}
	if len(procs) > 0 {
		assets, err := e.store.ListBIAAssets(ctx, orgID)
		if err != nil {
			return nil, err
		}

		max := e.policy.Lowest()
		for _, p := range procs {
			if e.policy.Known(p.CriticalityTier) {
				max = e.policy.Max(max, p.CriticalityTier)
			}
		}
		for _, a := range assets {
			if e.policy.Known(a.CriticalityTier) {
				max = e.policy.Max(max, a.CriticalityTier)
			}
		}

		level = &models.ComplianceLevel{
			Tier:       max,
			Baseline:   e.policy.Baseline(max),
			IsAssessed: true,
		}
	}

	if err := e.cache.Set(ctx, orgID, level); err != nil {
		e.logger.Warn().Err(err).Msg("compliance level cache write failed")
	}

	metrics.ComplianceComputations.WithLabelValues("computed").Observe(time.Since(start).Seconds())
	return level, nil
}

// InvalidateLevel drops the cached compliance level for an organization.
// Used when BIA rows change outside the engine, such as the cascade of an
// organization deletion.
func (e *Engine) InvalidateLevel(ctx context.Context, orgID uuid.UUID) {
	if err := e.cache.Invalidate(ctx, orgID); err != nil {
		e.logger.Warn().Err(err).
			Str("org_id", orgID.String()).
			Msg("compliance level cache invalidation failed")
	}
}

// afterMutation invalidates the cached level and publishes the entry.
func (e *Engine) afterMutation(ctx context.Context, orgID uuid.UUID, entry *models.HistoryEntry) {
	if err := e.cache.Invalidate(ctx, orgID); err != nil {
		e.logger.Warn().Err(err).
			Str("org_id", orgID.String()).
			Msg("compliance level cache invalidation failed")
	}
	if entry != nil {
		metrics.HistoryEntriesWritten.WithLabelValues(string(entry.EntityType)).Inc()
		if e.feed != nil {
			e.feed.Publish(entry)
		}
	}
}
