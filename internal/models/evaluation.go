package models

import (
	"time"

	"github.com/google/uuid"
)

// EvaluationStatus represents an organization's current judgment of its
// compliance with one control.
type EvaluationStatus string

const (
	// StatusNotAssessed is the implicit initial status of every control.
	StatusNotAssessed EvaluationStatus = "not_assessed"
	// StatusInProgress indicates an assessment is underway.
	StatusInProgress EvaluationStatus = "in_progress"
	// StatusCompliant indicates the control is fully satisfied.
	StatusCompliant EvaluationStatus = "compliant"
	// StatusNonCompliant indicates the control is not satisfied.
	StatusNonCompliant EvaluationStatus = "non_compliant"
	// StatusNotApplicable indicates the control does not apply to the
	// organization.
	StatusNotApplicable EvaluationStatus = "not_applicable"
)

// AllEvaluationStatuses returns every valid evaluation status.
func AllEvaluationStatuses() []EvaluationStatus {
	return []EvaluationStatus{
		StatusNotAssessed,
		StatusInProgress,
		StatusCompliant,
		StatusNonCompliant,
		StatusNotApplicable,
	}
}

// IsValid reports whether the status is one of the enumerated values.
// Any status may transition to any other; reviewers revise judgments in
// both directions and every transition is recorded in the history log.
func (s EvaluationStatus) IsValid() bool {
	switch s {
	case StatusNotAssessed, StatusInProgress, StatusCompliant, StatusNonCompliant, StatusNotApplicable:
		return true
	}
	return false
}

// Evaluation holds an organization's judgment of one control. There is at
// most one row per (org, control code); rows are created lazily the first
// time a control is touched.
type Evaluation struct {
	OrgID       uuid.UUID        `json:"org_id"`
	ControlCode string           `json:"control_code"`
	Status      EvaluationStatus `json:"status"`
	Assignee    string           `json:"assignee,omitempty"`
	Notes       string           `json:"notes,omitempty"`
	UpdatedBy   *uuid.UUID       `json:"updated_by,omitempty"`
	UpdatedAt   *time.Time       `json:"updated_at,omitempty"`
}

// NewEvaluation returns the default not_assessed evaluation for a control.
// Used to synthesize read results before any write has happened.
func NewEvaluation(orgID uuid.UUID, controlCode string) *Evaluation {
	return &Evaluation{
		OrgID:       orgID,
		ControlCode: controlCode,
		Status:      StatusNotAssessed,
	}
}

// EvaluationUpdate carries the mutable evaluation fields for an update.
type EvaluationUpdate struct {
	Status   EvaluationStatus `json:"status"`
	Assignee *string          `json:"assignee,omitempty"`
	Notes    *string          `json:"notes,omitempty"`
}

// EvaluationFilter narrows an evaluation listing.
type EvaluationFilter struct {
	Domain string
	Status EvaluationStatus
}
