package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/veridianhq/veridian/internal/apperr"
	"github.com/veridianhq/veridian/internal/models"
)

type mockOrgStore struct {
	orgs map[uuid.UUID]*models.Organization
}

func newMockOrgStore() *mockOrgStore {
	return &mockOrgStore{orgs: make(map[uuid.UUID]*models.Organization)}
}

func (s *mockOrgStore) CreateOrganization(_ context.Context, org *models.Organization) error {
	s.orgs[org.ID] = org
	return nil
}

func (s *mockOrgStore) GetOrganizationByID(_ context.Context, id uuid.UUID) (*models.Organization, error) {
	org, ok := s.orgs[id]
	if !ok {
		return nil, apperr.NotFoundf("organization %s", id)
	}
	return org, nil
}

func (s *mockOrgStore) ListOrganizations(_ context.Context) ([]*models.Organization, error) {
	var out []*models.Organization
	for _, org := range s.orgs {
		out = append(out, org)
	}
	return out, nil
}

func (s *mockOrgStore) DeleteOrganization(_ context.Context, id uuid.UUID) error {
	if _, ok := s.orgs[id]; !ok {
		return apperr.NotFoundf("organization %s", id)
	}
	delete(s.orgs, id)
	return nil
}

type recordingInvalidator struct {
	invalidated []uuid.UUID
}

func (r *recordingInvalidator) InvalidateLevel(_ context.Context, orgID uuid.UUID) {
	r.invalidated = append(r.invalidated, orgID)
}

func newOrgTestEngine(store OrganizationStore, levels LevelInvalidator) *gin.Engine {
	gin.SetMode(gin.TestMode)
	engine := gin.New()
	group := engine.Group("/api/v1")
	NewOrganizationsHandler(store, levels, zerolog.Nop()).RegisterRoutes(group)
	return engine
}

func TestOrganizationsHandler_Delete(t *testing.T) {
	t.Run("InvalidatesDerivedLevel", func(t *testing.T) {
		store := newMockOrgStore()
		org := models.NewOrganization("Acme", "acme")
		require.NoError(t, store.CreateOrganization(context.Background(), org))

		levels := &recordingInvalidator{}
		engine := newOrgTestEngine(store, levels)

		r := httptest.NewRequest(http.MethodDelete, "/api/v1/organizations/"+org.ID.String(), nil)
		w := httptest.NewRecorder()
		engine.ServeHTTP(w, r)

		require.Equal(t, http.StatusNoContent, w.Code)
		require.Len(t, levels.invalidated, 1)
		assert.Equal(t, org.ID, levels.invalidated[0])
	})

	t.Run("MissingOrgDoesNotInvalidate", func(t *testing.T) {
		levels := &recordingInvalidator{}
		engine := newOrgTestEngine(newMockOrgStore(), levels)

		r := httptest.NewRequest(http.MethodDelete, "/api/v1/organizations/"+uuid.New().String(), nil)
		w := httptest.NewRecorder()
		engine.ServeHTTP(w, r)

		assert.Equal(t, http.StatusNotFound, w.Code)
		assert.Empty(t, levels.invalidated)
	})

	t.Run("NilInvalidator", func(t *testing.T) {
		store := newMockOrgStore()
		org := models.NewOrganization("Beta", "beta")
		require.NoError(t, store.CreateOrganization(context.Background(), org))

		engine := newOrgTestEngine(store, nil)

		r := httptest.NewRequest(http.MethodDelete, "/api/v1/organizations/"+org.ID.String(), nil)
		w := httptest.NewRecorder()
		engine.ServeHTTP(w, r)

		assert.Equal(t, http.StatusNoContent, w.Code)
	})
}
