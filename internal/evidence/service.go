// Package evidence implements evidence upload, retrieval, and deletion.
// Metadata lives in the relational store; bytes live in the blob
// collaborator under server-generated, organization-namespaced keys.
package evidence

import (
	"context"
	"io"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/veridianhq/veridian/internal/apperr"
	"github.com/veridianhq/veridian/internal/blob"
	"github.com/veridianhq/veridian/internal/catalog"
	"github.com/veridianhq/veridian/internal/metrics"
	"github.com/veridianhq/veridian/internal/models"
)

// allowedContentTypes is the upload allow-list. Anything else is rejected
// before any bytes are stored.
var allowedContentTypes = map[string]bool{
	"image/jpeg":      true,
	"image/png":       true,
	"application/pdf": true,
}

// DefaultMaxUploadBytes caps evidence uploads when no limit is configured.
const DefaultMaxUploadBytes int64 = 25 << 20

// Store defines the persistence operations the service needs.
type Store interface {
	CreateEvidence(ctx context.Context, ev *models.Evidence, entry *models.HistoryEntry) error
	GetEvidence(ctx context.Context, evidenceID uuid.UUID) (*models.Evidence, error)
	ListEvidence(ctx context.Context, orgID uuid.UUID, controlCode string) ([]*models.Evidence, error)
	DeleteEvidence(ctx context.Context, orgID uuid.UUID, controlCode string, evidenceID uuid.UUID, actor models.Actor) (*models.Evidence, *models.HistoryEntry, error)
}

// Publisher fans out committed history entries to live subscribers.
type Publisher interface {
	Publish(entry *models.HistoryEntry)
}

// Content is an open evidence payload handed back to the transport layer.
// The caller owns closing the reader.
type Content struct {
	Evidence *models.Evidence
	Reader   io.ReadCloser
}

// Service coordinates evidence metadata and the blob collaborator.
type Service struct {
	store    Store
	blobs    blob.Store
	catalog  *catalog.Catalog
	feed     Publisher
	maxBytes int64
	logger   zerolog.Logger
}

// NewService creates an evidence service. feed may be nil; maxBytes <= 0
// falls back to DefaultMaxUploadBytes.
func NewService(store Store, blobs blob.Store, cat *catalog.Catalog, feed Publisher, maxBytes int64, logger zerolog.Logger) *Service {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxUploadBytes
	}
	return &Service{
		store:    store,
		blobs:    blobs,
		catalog:  cat,
		feed:     feed,
		maxBytes: maxBytes,
		logger:   logger.With().Str("component", "evidence").Logger(),
	}
}

// Upload validates and stores one evidence file. The blob is written
// first; if the metadata transaction then fails the blob is removed on a
// best-effort basis so no record ever points at missing bytes.
func (s *Service) Upload(ctx context.Context, orgID uuid.UUID, controlCode string, actor models.Actor, fileName, contentType string, size int64, r io.Reader) (*models.Evidence, error) {
	if _, err := s.catalog.Get(controlCode); err != nil {
		return nil, err
	}
	if strings.TrimSpace(fileName) == "" {
		return nil, apperr.Validationf("file name is empty")
	}
	if !allowedContentTypes[contentType] {
		return nil, apperr.Validationf("content type %q not allowed", contentType)
	}
	if size <= 0 {
		return nil, apperr.Validationf("file is empty")
	}
	if size > s.maxBytes {
		return nil, apperr.Validationf("file exceeds %d byte limit", s.maxBytes)
	}

	key := blob.NewKey(orgID, fileName)
	if err := s.blobs.Put(ctx, key, io.LimitReader(r, size), size, contentType); err != nil {
		metrics.BlobOperationErrors.WithLabelValues("put").Inc()
		return nil, err
	}

	ev := models.NewEvidence(orgID, controlCode, fileName, key, contentType, size, actor.ID)
	entry := models.NewHistoryEntry(orgID, models.EntityEvidence, ev.ID.String(),
		models.ActionUpload, actor, map[string]any{
			"control_code": controlCode,
			"file_name":    fileName,
			"size_bytes":   size,
		})

	if err := s.store.CreateEvidence(ctx, ev, entry); err != nil {
		if delErr := s.blobs.Delete(context.WithoutCancel(ctx), key); delErr != nil {
			s.logger.Error().Err(delErr).
				Str("blob_key", key).
				Msg("failed to clean up blob after metadata failure")
		}
		return nil, err
	}

	metrics.EvidenceUploads.WithLabelValues(contentType).Inc()
	metrics.EvidenceUploadBytes.Observe(float64(size))
	metrics.HistoryEntriesWritten.WithLabelValues(string(models.EntityEvidence)).Inc()
	s.publish(entry)

	s.logger.Info().
		Str("org_id", orgID.String()).
		Str("control_code", controlCode).
		Str("evidence_id", ev.ID.String()).
		Int64("size_bytes", size).
		Msg("evidence uploaded")

	return ev, nil
}

// List returns evidence metadata for one control, newest first.
func (s *Service) List(ctx context.Context, orgID uuid.UUID, controlCode string) ([]*models.Evidence, error) {
	if _, err := s.catalog.Get(controlCode); err != nil {
		return nil, err
	}
	return s.store.ListEvidence(ctx, orgID, controlCode)
}

// Resolve opens the bytes of one evidence record. The record is fetched
// by ID alone and the stored key is then verified against the caller's
// organization namespace before any backend access. A record owned by
// another organization fails that check and surfaces as ErrPathSecurity,
// distinct from a missing record.
func (s *Service) Resolve(ctx context.Context, orgID, evidenceID uuid.UUID) (*Content, error) {
	ev, err := s.store.GetEvidence(ctx, evidenceID)
	if err != nil {
		return nil, err
	}
	if err := blob.VerifyNamespace(orgID, ev.BlobKey); err != nil {
		s.logger.Warn().
			Str("org_id", orgID.String()).
			Str("evidence_id", evidenceID.String()).
			Msg("evidence blob key outside caller namespace")
		return nil, err
	}

	r, err := s.blobs.Get(ctx, ev.BlobKey)
	if err != nil {
		metrics.BlobOperationErrors.WithLabelValues("get").Inc()
		return nil, err
	}
	return &Content{Evidence: ev, Reader: r}, nil
}

// Delete removes one evidence record and its bytes. The metadata
// transaction commits first; a failure removing the blob afterwards leaves
// an orphaned object, never a dangling record.
func (s *Service) Delete(ctx context.Context, orgID uuid.UUID, controlCode string, evidenceID uuid.UUID, actor models.Actor) error {
	deleted, entry, err := s.store.DeleteEvidence(ctx, orgID, controlCode, evidenceID, actor)
	if err != nil {
		return err
	}

	metrics.HistoryEntriesWritten.WithLabelValues(string(models.EntityEvidence)).Inc()
	s.publish(entry)

	if err := blob.VerifyNamespace(orgID, deleted.BlobKey); err != nil {
		s.logger.Error().
			Str("org_id", orgID.String()).
			Str("evidence_id", evidenceID.String()).
			Msg("stored blob key failed namespace check, blob left in place")
		return nil
	}
	if err := s.blobs.Delete(context.WithoutCancel(ctx), deleted.BlobKey); err != nil {
		metrics.BlobOperationErrors.WithLabelValues("delete").Inc()
		s.logger.Warn().Err(err).
			Str("blob_key", deleted.BlobKey).
			Msg("evidence record deleted but blob removal failed")
	}

	return nil
}

func (s *Service) publish(entry *models.HistoryEntry) {
	if s.feed != nil && entry != nil {
		s.feed.Publish(entry)
	}
}
