// Package history exposes the append-only audit log: reads over the
// persisted entries plus real-time fan-out of new ones. Entries are written
// by the stores inside the transactions that perform the mutations they
// describe; this package never writes.
package history

import (
	"context"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/veridianhq/veridian/internal/apperr"
	"github.com/veridianhq/veridian/internal/models"
)

const (
	// DefaultLimit applies when a listing does not request a page size.
	DefaultLimit = 100
	// MaxLimit caps the page size regardless of what was requested.
	MaxLimit = 500
)

// Store defines the persistence operations the service needs.
type Store interface {
	ListHistory(ctx context.Context, orgID uuid.UUID, filter models.HistoryFilter) ([]*models.HistoryEntry, error)
	CountHistory(ctx context.Context, orgID uuid.UUID, filter models.HistoryFilter) (int64, error)
}

// Service answers history queries for one organization at a time.
type Service struct {
	store  Store
	logger zerolog.Logger
}

// NewService creates a history service.
func NewService(store Store, logger zerolog.Logger) *Service {
	return &Service{
		store:  store,
		logger: logger.With().Str("component", "history").Logger(),
	}
}

// List returns history entries for an organization, most recent first. A
// zero or negative limit falls back to DefaultLimit; anything above
// MaxLimit is clamped.
func (s *Service) List(ctx context.Context, orgID uuid.UUID, filter models.HistoryFilter) ([]*models.HistoryEntry, error) {
	if filter.EntityType != "" && !filter.EntityType.IsValid() {
		return nil, apperr.Validationf("unknown entity type %q", filter.EntityType)
	}
	if filter.Limit <= 0 {
		filter.Limit = DefaultLimit
	}
	if filter.Limit > MaxLimit {
		filter.Limit = MaxLimit
	}
	return s.store.ListHistory(ctx, orgID, filter)
}

// Count returns the total number of entries matching the filter,
// independent of any limit.
func (s *Service) Count(ctx context.Context, orgID uuid.UUID, filter models.HistoryFilter) (int64, error) {
	if filter.EntityType != "" && !filter.EntityType.IsValid() {
		return 0, apperr.Validationf("unknown entity type %q", filter.EntityType)
	}
	return s.store.CountHistory(ctx, orgID, filter)
}
