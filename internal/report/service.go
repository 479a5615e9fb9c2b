// Package report derives compliance dashboard figures from the current
// evaluation state. Scores are computed on demand, never stored.
package report

import (
	"context"
	"math"
	"sort"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/veridianhq/veridian/internal/apperr"
	"github.com/veridianhq/veridian/internal/evaluation"
	"github.com/veridianhq/veridian/internal/models"
)

// Weighted credit per evaluation status. A compliant control earns full
// credit, an in-progress control half credit; everything else earns none.
// Not-applicable controls are excluded from the denominator entirely.
const (
	weightCompliant  = 1.0
	weightInProgress = 0.5
)

// StatusColor is the traffic-light rating of a score.
type StatusColor string

const (
	ColorGreen StatusColor = "green"
	ColorAmber StatusColor = "amber"
	ColorRed   StatusColor = "red"
)

// StatusTally counts evaluations per status.
type StatusTally struct {
	Total         int `json:"total_controls"`
	Compliant     int `json:"compliant"`
	InProgress    int `json:"in_progress"`
	NonCompliant  int `json:"non_compliant"`
	NotApplicable int `json:"not_applicable"`
	NotAssessed   int `json:"not_assessed"`
}

func (t *StatusTally) add(status models.EvaluationStatus) {
	t.Total++
	switch status {
	case models.StatusCompliant:
		t.Compliant++
	case models.StatusInProgress:
		t.InProgress++
	case models.StatusNonCompliant:
		t.NonCompliant++
	case models.StatusNotApplicable:
		t.NotApplicable++
	default:
		t.NotAssessed++
	}
}

func (t *StatusTally) score() float64 {
	return Score(t.Compliant, t.InProgress, t.Total-t.NotApplicable)
}

// Score computes the weighted compliance percentage over applicable
// controls, rounded to one decimal place. Zero applicable controls score
// zero rather than dividing.
func Score(compliant, inProgress, applicable int) float64 {
	if applicable <= 0 {
		return 0
	}
	raw := (weightCompliant*float64(compliant) + weightInProgress*float64(inProgress)) / float64(applicable) * 100
	return math.Round(raw*10) / 10
}

// ColorFor rates a score: green at 80 and above, amber at 50 and above,
// red below that.
func ColorFor(score float64) StatusColor {
	switch {
	case score >= 80:
		return ColorGreen
	case score >= 50:
		return ColorAmber
	default:
		return ColorRed
	}
}

// DomainScore is the per-domain slice of the overview.
type DomainScore struct {
	Domain string `json:"domain"`
	StatusTally
	Score  float64     `json:"score"`
	Status StatusColor `json:"status"`
}

// Overview is the organization-wide compliance dashboard.
type Overview struct {
	OverallScore float64     `json:"overall_score"`
	Status       StatusColor `json:"status"`
	StatusTally
	ComplianceLevel *models.ComplianceLevel `json:"compliance_level"`
	DomainScores    []DomainScore           `json:"domain_scores"`
	// CriticalDomains lists the worst red domains, lowest score first,
	// capped at five.
	CriticalDomains []DomainScore `json:"critical_domains"`
}

// DomainReport is the drill-down view for one control domain.
type DomainReport struct {
	Domain   string                          `json:"domain"`
	Score    float64                         `json:"score"`
	Status   StatusColor                     `json:"status"`
	Controls []*evaluation.ControlEvaluation `json:"controls"`
}

const maxCriticalDomains = 5

// EvaluationLister supplies the merged catalog/evaluation view.
type EvaluationLister interface {
	List(ctx context.Context, orgID uuid.UUID, filter models.EvaluationFilter) ([]*evaluation.ControlEvaluation, error)
}

// LevelReader supplies the derived BIA compliance level.
type LevelReader interface {
	ComplianceLevel(ctx context.Context, orgID uuid.UUID) (*models.ComplianceLevel, error)
}

// Service computes dashboard reports.
type Service struct {
	evals  EvaluationLister
	levels LevelReader
	logger zerolog.Logger
}

// NewService creates a report service.
func NewService(evals EvaluationLister, levels LevelReader, logger zerolog.Logger) *Service {
	return &Service{
		evals:  evals,
		levels: levels,
		logger: logger.With().Str("component", "report").Logger(),
	}
}

// Overview aggregates the organization's evaluations into overall and
// per-domain weighted scores, alongside the BIA compliance level.
func (s *Service) Overview(ctx context.Context, orgID uuid.UUID) (*Overview, error) {
	evals, err := s.evals.List(ctx, orgID, models.EvaluationFilter{})
	if err != nil {
		return nil, err
	}
	level, err := s.levels.ComplianceLevel(ctx, orgID)
	if err != nil {
		return nil, err
	}

	overall := &Overview{ComplianceLevel: level}
	byDomain := make(map[string]*StatusTally)
	for _, ce := range evals {
		overall.add(ce.Evaluation.Status)
		tally := byDomain[ce.Control.Domain]
		if tally == nil {
			tally = &StatusTally{}
			byDomain[ce.Control.Domain] = tally
		}
		tally.add(ce.Evaluation.Status)
	}

	overall.OverallScore = overall.score()
	overall.Status = ColorFor(overall.OverallScore)

	overall.DomainScores = make([]DomainScore, 0, len(byDomain))
	for domain, tally := range byDomain {
		score := tally.score()
		overall.DomainScores = append(overall.DomainScores, DomainScore{
			Domain:      domain,
			StatusTally: *tally,
			Score:       score,
			Status:      ColorFor(score),
		})
	}
	sort.Slice(overall.DomainScores, func(i, j int) bool {
		return overall.DomainScores[i].Domain < overall.DomainScores[j].Domain
	})

	for _, ds := range overall.DomainScores {
		if ds.Status == ColorRed {
			overall.CriticalDomains = append(overall.CriticalDomains, ds)
		}
	}
	sort.Slice(overall.CriticalDomains, func(i, j int) bool {
		return overall.CriticalDomains[i].Score < overall.CriticalDomains[j].Score
	})
	if len(overall.CriticalDomains) > maxCriticalDomains {
		overall.CriticalDomains = overall.CriticalDomains[:maxCriticalDomains]
	}

	return overall, nil
}

// Domain returns the drill-down report for one control domain, or
// apperr.ErrNotFound when the catalog has no controls in it.
func (s *Service) Domain(ctx context.Context, orgID uuid.UUID, domain string) (*DomainReport, error) {
	evals, err := s.evals.List(ctx, orgID, models.EvaluationFilter{Domain: domain})
	if err != nil {
		return nil, err
	}
	if len(evals) == 0 {
		return nil, apperr.NotFoundf("domain %s", domain)
	}

	var tally StatusTally
	for _, ce := range evals {
		tally.add(ce.Evaluation.Status)
	}
	score := tally.score()

	return &DomainReport{
		Domain:   domain,
		Score:    score,
		Status:   ColorFor(score),
		Controls: evals,
	}, nil
}
