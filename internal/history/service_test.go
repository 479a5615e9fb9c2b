package history

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/veridianhq/veridian/internal/apperr"
	"github.com/veridianhq/veridian/internal/models"
)

type fakeStore struct {
	lastFilter models.HistoryFilter
	entries    []*models.HistoryEntry
	count      int64
}

func (s *fakeStore) ListHistory(_ context.Context, _ uuid.UUID, filter models.HistoryFilter) ([]*models.HistoryEntry, error) {
	s.lastFilter = filter
	return s.entries, nil
}

func (s *fakeStore) CountHistory(_ context.Context, _ uuid.UUID, filter models.HistoryFilter) (int64, error) {
	s.lastFilter = filter
	return s.count, nil
}

func TestService_ListLimits(t *testing.T) {
	tests := []struct {
		name      string
		requested int
		want      int
	}{
		{"ZeroFallsBackToDefault", 0, DefaultLimit},
		{"NegativeFallsBackToDefault", -5, DefaultLimit},
		{"WithinRangeKept", 42, 42},
		{"AboveCapClamped", 10_000, MaxLimit},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := &fakeStore{}
			svc := NewService(store, zerolog.Nop())

			_, err := svc.List(context.Background(), uuid.New(), models.HistoryFilter{Limit: tt.requested})
			require.NoError(t, err)
			assert.Equal(t, tt.want, store.lastFilter.Limit)
		})
	}
}

func TestService_ListRejectsUnknownEntityType(t *testing.T) {
	svc := NewService(&fakeStore{}, zerolog.Nop())

	_, err := svc.List(context.Background(), uuid.New(), models.HistoryFilter{
		EntityType: models.HistoryEntityType("sandwich"),
	})
	assert.ErrorIs(t, err, apperr.ErrValidation)

	_, err = svc.Count(context.Background(), uuid.New(), models.HistoryFilter{
		EntityType: models.HistoryEntityType("sandwich"),
	})
	assert.ErrorIs(t, err, apperr.ErrValidation)
}

func TestService_CountPassesFilterThrough(t *testing.T) {
	store := &fakeStore{count: 7}
	svc := NewService(store, zerolog.Nop())

	count, err := svc.Count(context.Background(), uuid.New(), models.HistoryFilter{
		EntityType: models.EntityEvidence,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(7), count)
	assert.Equal(t, models.EntityEvidence, store.lastFilter.EntityType)
}

func TestClientFilter_Matches(t *testing.T) {
	actor := models.Actor{OrgID: uuid.New(), ID: uuid.New(), Name: "alice"}
	entry := models.NewHistoryEntry(actor.OrgID, models.EntityEvaluation, "AC-1",
		models.ActionUpdate, actor, nil)

	t.Run("NilFilterMatchesAll", func(t *testing.T) {
		var f *ClientFilter
		assert.True(t, f.Matches(entry))
	})

	t.Run("EmptyFilterMatchesAll", func(t *testing.T) {
		assert.True(t, (&ClientFilter{}).Matches(entry))
	})

	t.Run("EntityTypeFilter", func(t *testing.T) {
		f := &ClientFilter{EntityTypes: []models.HistoryEntityType{models.EntityEvaluation}}
		assert.True(t, f.Matches(entry))

		f = &ClientFilter{EntityTypes: []models.HistoryEntityType{models.EntityComment}}
		assert.False(t, f.Matches(entry))
	})

	t.Run("ActionFilter", func(t *testing.T) {
		f := &ClientFilter{Actions: []models.HistoryAction{models.ActionDelete}}
		assert.False(t, f.Matches(entry))

		f = &ClientFilter{
			EntityTypes: []models.HistoryEntityType{models.EntityEvaluation},
			Actions:     []models.HistoryAction{models.ActionUpdate},
		}
		assert.True(t, f.Matches(entry))
	})
}
