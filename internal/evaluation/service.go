// Package evaluation implements the per-control assessment workflow: the
// merged catalog view, status updates, and reviewer comments.
package evaluation

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/veridianhq/veridian/internal/apperr"
	"github.com/veridianhq/veridian/internal/catalog"
	"github.com/veridianhq/veridian/internal/metrics"
	"github.com/veridianhq/veridian/internal/models"
)

// Store defines the persistence operations the service needs.
type Store interface {
	GetEvaluation(ctx context.Context, orgID uuid.UUID, controlCode string) (*models.Evaluation, error)
	ListEvaluations(ctx context.Context, orgID uuid.UUID) ([]*models.Evaluation, error)
	UpdateEvaluation(ctx context.Context, orgID uuid.UUID, controlCode string, update models.EvaluationUpdate, actor models.Actor) (*models.Evaluation, *models.HistoryEntry, error)
	CreateComment(ctx context.Context, comment *models.Comment, entry *models.HistoryEntry) error
	ListComments(ctx context.Context, orgID uuid.UUID, controlCode string) ([]*models.Comment, error)
}

// Publisher fans out committed history entries to live subscribers.
type Publisher interface {
	Publish(entry *models.HistoryEntry)
}

// ControlEvaluation pairs a catalog control with its current evaluation.
// Controls that have never been touched carry the default not_assessed
// record.
type ControlEvaluation struct {
	Control    models.Control     `json:"control"`
	Evaluation *models.Evaluation `json:"evaluation"`
}

// Service coordinates evaluations against the immutable control catalog.
type Service struct {
	store   Store
	catalog *catalog.Catalog
	feed    Publisher
	logger  zerolog.Logger
}

// NewService creates an evaluation service. feed may be nil when no live
// subscribers exist.
func NewService(store Store, cat *catalog.Catalog, feed Publisher, logger zerolog.Logger) *Service {
	return &Service{
		store:   store,
		catalog: cat,
		feed:    feed,
		logger:  logger.With().Str("component", "evaluation").Logger(),
	}
}

// Get returns the evaluation for one control. Controls never evaluated
// yield the default not_assessed record; the read does not create a row.
func (s *Service) Get(ctx context.Context, orgID uuid.UUID, controlCode string) (*ControlEvaluation, error) {
	ctrl, err := s.catalog.Get(controlCode)
	if err != nil {
		return nil, err
	}

	eval, err := s.store.GetEvaluation(ctx, orgID, controlCode)
	if err != nil {
		if !errors.Is(err, apperr.ErrNotFound) {
			return nil, err
		}
		eval = models.NewEvaluation(orgID, controlCode)
	}

	return &ControlEvaluation{Control: ctrl, Evaluation: eval}, nil
}

// List returns every catalog control paired with its evaluation, ordered
// by control code. Stored rows overlay the default; the filter narrows by
// domain and status after the merge so never-evaluated controls still
// match status "not_assessed".
func (s *Service) List(ctx context.Context, orgID uuid.UUID, filter models.EvaluationFilter) ([]*ControlEvaluation, error) {
	if filter.Status != "" && !filter.Status.IsValid() {
		return nil, apperr.Validationf("unknown status %q", filter.Status)
	}

	stored, err := s.store.ListEvaluations(ctx, orgID)
	if err != nil {
		return nil, err
	}
	byCode := make(map[string]*models.Evaluation, len(stored))
	for _, eval := range stored {
		byCode[eval.ControlCode] = eval
	}

	var out []*ControlEvaluation
	for _, ctrl := range s.catalog.List() {
		if filter.Domain != "" && ctrl.Domain != filter.Domain {
			continue
		}
		eval, ok := byCode[ctrl.Code]
		if !ok {
			eval = models.NewEvaluation(orgID, ctrl.Code)
		}
		if filter.Status != "" && eval.Status != filter.Status {
			continue
		}
		out = append(out, &ControlEvaluation{Control: ctrl, Evaluation: eval})
	}

	return out, nil
}

// Update applies a status change to one control. Any status may follow
// any other; the transition itself is recorded in the history log.
func (s *Service) Update(ctx context.Context, orgID uuid.UUID, controlCode string, update models.EvaluationUpdate, actor models.Actor) (*models.Evaluation, error) {
	if _, err := s.catalog.Get(controlCode); err != nil {
		return nil, err
	}
	if !update.Status.IsValid() {
		return nil, apperr.Validationf("unknown status %q", update.Status)
	}

	updated, entry, err := s.store.UpdateEvaluation(ctx, orgID, controlCode, update, actor)
	if err != nil {
		return nil, err
	}

	metrics.EvaluationUpdates.WithLabelValues(string(updated.Status)).Inc()
	metrics.HistoryEntriesWritten.WithLabelValues(string(models.EntityEvaluation)).Inc()
	s.publish(entry)

	s.logger.Info().
		Str("org_id", orgID.String()).
		Str("control_code", controlCode).
		Str("status", string(updated.Status)).
		Msg("evaluation updated")

	return updated, nil
}

// AddComment appends a reviewer comment to one control's evaluation.
func (s *Service) AddComment(ctx context.Context, orgID uuid.UUID, controlCode string, actor models.Actor, content string) (*models.Comment, error) {
	if _, err := s.catalog.Get(controlCode); err != nil {
		return nil, err
	}
	if strings.TrimSpace(content) == "" {
		return nil, apperr.Validationf("comment content is empty")
	}

	comment := models.NewComment(orgID, controlCode, actor, content)
	entry := models.NewHistoryEntry(orgID, models.EntityComment, comment.ID.String(),
		models.ActionCreate, actor, map[string]any{
			"control_code": controlCode,
		})

	if err := s.store.CreateComment(ctx, comment, entry); err != nil {
		return nil, err
	}

	metrics.HistoryEntriesWritten.WithLabelValues(string(models.EntityComment)).Inc()
	s.publish(entry)

	return comment, nil
}

// ListComments returns the comments on one control, newest first.
func (s *Service) ListComments(ctx context.Context, orgID uuid.UUID, controlCode string) ([]*models.Comment, error) {
	if _, err := s.catalog.Get(controlCode); err != nil {
		return nil, err
	}
	return s.store.ListComments(ctx, orgID, controlCode)
}

func (s *Service) publish(entry *models.HistoryEntry) {
	if s.feed != nil && entry != nil {
		s.feed.Publish(entry)
	}
}
