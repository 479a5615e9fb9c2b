package evidence

import (
	"bytes"
	"context"
	"io"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/veridianhq/veridian/internal/apperr"
	"github.com/veridianhq/veridian/internal/catalog"
	"github.com/veridianhq/veridian/internal/models"
)

const testCatalogYAML = `
controls:
  - code: AC-1
    domain: access_control
    requirement: Limit system access to authorized users.
`

type fakeBlobStore struct {
	objects   map[string][]byte
	putErr    error
	deleteErr error
	deleted   []string
}

func newFakeBlobStore() *fakeBlobStore {
	return &fakeBlobStore{objects: make(map[string][]byte)}
}

func (s *fakeBlobStore) Put(_ context.Context, key string, r io.Reader, _ int64, _ string) error {
	if s.putErr != nil {
		return s.putErr
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	s.objects[key] = data
	return nil
}

func (s *fakeBlobStore) Get(_ context.Context, key string) (io.ReadCloser, error) {
	data, ok := s.objects[key]
	if !ok {
		return nil, apperr.NotFoundf("blob %s", key)
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (s *fakeBlobStore) Delete(_ context.Context, key string) error {
	if s.deleteErr != nil {
		return s.deleteErr
	}
	s.deleted = append(s.deleted, key)
	delete(s.objects, key)
	return nil
}

type fakeStore struct {
	records   map[uuid.UUID]*models.Evidence
	createErr error
}

func newFakeStore() *fakeStore {
	return &fakeStore{records: make(map[uuid.UUID]*models.Evidence)}
}

func (s *fakeStore) CreateEvidence(_ context.Context, ev *models.Evidence, _ *models.HistoryEntry) error {
	if s.createErr != nil {
		return s.createErr
	}
	s.records[ev.ID] = ev
	return nil
}

func (s *fakeStore) GetEvidence(_ context.Context, evidenceID uuid.UUID) (*models.Evidence, error) {
	ev, ok := s.records[evidenceID]
	if !ok {
		return nil, apperr.NotFoundf("evidence %s", evidenceID)
	}
	return ev, nil
}

func (s *fakeStore) ListEvidence(_ context.Context, orgID uuid.UUID, code string) ([]*models.Evidence, error) {
	var out []*models.Evidence
	for _, ev := range s.records {
		if ev.OrgID == orgID && ev.ControlCode == code {
			out = append(out, ev)
		}
	}
	return out, nil
}

func (s *fakeStore) DeleteEvidence(_ context.Context, orgID uuid.UUID, code string, evidenceID uuid.UUID, actor models.Actor) (*models.Evidence, *models.HistoryEntry, error) {
	ev, ok := s.records[evidenceID]
	if !ok || ev.OrgID != orgID || ev.ControlCode != code {
		return nil, nil, apperr.NotFoundf("evidence %s", evidenceID)
	}
	delete(s.records, evidenceID)
	entry := models.NewHistoryEntry(orgID, models.EntityEvidence, evidenceID.String(),
		models.ActionDelete, actor, nil)
	return ev, entry, nil
}

func newTestService(t *testing.T, store Store, blobs *fakeBlobStore) *Service {
	t.Helper()
	cat, err := catalog.Parse([]byte(testCatalogYAML))
	require.NoError(t, err)
	return NewService(store, blobs, cat, nil, 1024, zerolog.Nop())
}

func TestService_Upload(t *testing.T) {
	orgID := uuid.New()
	actor := models.Actor{OrgID: orgID, ID: uuid.New(), Name: "alice"}

	t.Run("StoresBlobAndMetadata", func(t *testing.T) {
		store := newFakeStore()
		blobs := newFakeBlobStore()
		svc := newTestService(t, store, blobs)

		ev, err := svc.Upload(context.Background(), orgID, "AC-1", actor,
			"policy.pdf", "application/pdf", 4, strings.NewReader("data"))
		require.NoError(t, err)

		assert.True(t, strings.HasPrefix(ev.BlobKey, orgID.String()+"/"))
		assert.NotContains(t, ev.BlobKey, "policy")
		assert.Contains(t, blobs.objects, ev.BlobKey)
		assert.Contains(t, store.records, ev.ID)
	})

	t.Run("RejectsDisallowedContentType", func(t *testing.T) {
		svc := newTestService(t, newFakeStore(), newFakeBlobStore())
		_, err := svc.Upload(context.Background(), orgID, "AC-1", actor,
			"run.exe", "application/octet-stream", 4, strings.NewReader("data"))
		assert.ErrorIs(t, err, apperr.ErrValidation)
	})

	t.Run("RejectsOversizedFile", func(t *testing.T) {
		svc := newTestService(t, newFakeStore(), newFakeBlobStore())
		_, err := svc.Upload(context.Background(), orgID, "AC-1", actor,
			"big.pdf", "application/pdf", 2048, strings.NewReader("data"))
		assert.ErrorIs(t, err, apperr.ErrValidation)
	})

	t.Run("RejectsUnknownControl", func(t *testing.T) {
		svc := newTestService(t, newFakeStore(), newFakeBlobStore())
		_, err := svc.Upload(context.Background(), orgID, "XX-99", actor,
			"policy.pdf", "application/pdf", 4, strings.NewReader("data"))
		assert.ErrorIs(t, err, apperr.ErrControlNotFound)
	})

	t.Run("CleansUpBlobWhenMetadataFails", func(t *testing.T) {
		store := newFakeStore()
		store.createErr = apperr.Storagef(assert.AnError, "insert failed")
		blobs := newFakeBlobStore()
		svc := newTestService(t, store, blobs)

		_, err := svc.Upload(context.Background(), orgID, "AC-1", actor,
			"policy.pdf", "application/pdf", 4, strings.NewReader("data"))
		assert.ErrorIs(t, err, apperr.ErrStorage)
		assert.Empty(t, blobs.objects)
		require.Len(t, blobs.deleted, 1)
	})
}

func TestService_Resolve(t *testing.T) {
	orgID := uuid.New()
	actor := models.Actor{OrgID: orgID, ID: uuid.New(), Name: "bob"}

	store := newFakeStore()
	blobs := newFakeBlobStore()
	svc := newTestService(t, store, blobs)

	ev, err := svc.Upload(context.Background(), orgID, "AC-1", actor,
		"scan.png", "image/png", 5, strings.NewReader("bytes"))
	require.NoError(t, err)

	t.Run("ReturnsBytes", func(t *testing.T) {
		content, err := svc.Resolve(context.Background(), orgID, ev.ID)
		require.NoError(t, err)
		defer content.Reader.Close()

		data, err := io.ReadAll(content.Reader)
		require.NoError(t, err)
		assert.Equal(t, "bytes", string(data))
		assert.Equal(t, "image/png", content.Evidence.ContentType)
	})

	t.Run("OtherOrgDeniedNotHidden", func(t *testing.T) {
		_, err := svc.Resolve(context.Background(), uuid.New(), ev.ID)
		assert.ErrorIs(t, err, apperr.ErrPathSecurity)
		assert.NotErrorIs(t, err, apperr.ErrNotFound)
	})

	t.Run("MissingEvidence", func(t *testing.T) {
		_, err := svc.Resolve(context.Background(), orgID, uuid.New())
		assert.ErrorIs(t, err, apperr.ErrNotFound)
	})

	t.Run("RejectsKeyOutsideNamespace", func(t *testing.T) {
		rogue := models.NewEvidence(orgID, "AC-1", "x.pdf",
			uuid.New().String()+"/"+uuid.New().String()+".pdf", "application/pdf", 1, actor.ID)
		store.records[rogue.ID] = rogue

		_, err := svc.Resolve(context.Background(), orgID, rogue.ID)
		assert.ErrorIs(t, err, apperr.ErrPathSecurity)
	})
}

func TestService_Delete(t *testing.T) {
	orgID := uuid.New()
	actor := models.Actor{OrgID: orgID, ID: uuid.New(), Name: "carol"}

	t.Run("RemovesMetadataAndBlob", func(t *testing.T) {
		store := newFakeStore()
		blobs := newFakeBlobStore()
		svc := newTestService(t, store, blobs)

		ev, err := svc.Upload(context.Background(), orgID, "AC-1", actor,
			"scan.jpg", "image/jpeg", 3, strings.NewReader("jpg"))
		require.NoError(t, err)

		require.NoError(t, svc.Delete(context.Background(), orgID, "AC-1", ev.ID, actor))
		assert.Empty(t, store.records)
		assert.Empty(t, blobs.objects)
	})

	t.Run("MetadataDeleteSurvivesBlobFailure", func(t *testing.T) {
		store := newFakeStore()
		blobs := newFakeBlobStore()
		svc := newTestService(t, store, blobs)

		ev, err := svc.Upload(context.Background(), orgID, "AC-1", actor,
			"scan.jpg", "image/jpeg", 3, strings.NewReader("jpg"))
		require.NoError(t, err)

		blobs.deleteErr = apperr.Storagef(assert.AnError, "backend down")
		require.NoError(t, svc.Delete(context.Background(), orgID, "AC-1", ev.ID, actor))
		assert.Empty(t, store.records)
	})

	t.Run("UnknownEvidence", func(t *testing.T) {
		svc := newTestService(t, newFakeStore(), newFakeBlobStore())
		err := svc.Delete(context.Background(), orgID, "AC-1", uuid.New(), actor)
		assert.ErrorIs(t, err, apperr.ErrNotFound)
	})
}
