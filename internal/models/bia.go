package models

import (
	"time"

	"github.com/google/uuid"
)

// BIAProcess is a declared business process with a criticality tier. The
// tier values and their ordering come from the configured tier policy, not
// from this package.
type BIAProcess struct {
	ID                    uuid.UUID     `json:"id"`
	OrgID                 uuid.UUID     `json:"org_id"`
	Name                  string        `json:"name"`
	CriticalityTier       string        `json:"criticality_tier"`
	RecoveryTimeObjective time.Duration `json:"recovery_time_objective"`
	CreatedAt             time.Time     `json:"created_at"`
	UpdatedAt             time.Time     `json:"updated_at"`
}

// NewBIAProcess creates a new BIAProcess.
func NewBIAProcess(orgID uuid.UUID, name, tier string, rto time.Duration) *BIAProcess {
	now := time.Now().UTC()
	return &BIAProcess{
		ID:                    uuid.New(),
		OrgID:                 orgID,
		Name:                  name,
		CriticalityTier:       tier,
		RecoveryTimeObjective: rto,
		CreatedAt:             now,
		UpdatedAt:             now,
	}
}

// BIAAsset is an information asset owned by exactly one process. Deleting
// the process cascades to its assets.
type BIAAsset struct {
	ID              uuid.UUID `json:"id"`
	OrgID           uuid.UUID `json:"org_id"`
	ProcessID       uuid.UUID `json:"process_id"`
	Name            string    `json:"name"`
	CriticalityTier string    `json:"criticality_tier"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// NewBIAAsset creates a new BIAAsset under the given process.
func NewBIAAsset(orgID, processID uuid.UUID, name, tier string) *BIAAsset {
	now := time.Now().UTC()
	return &BIAAsset{
		ID:              uuid.New(),
		OrgID:           orgID,
		ProcessID:       processID,
		Name:            name,
		CriticalityTier: tier,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
}

// ComplianceLevel is the derived organization-wide requirement. It is
// computed on demand from the current BIA rows, never stored.
type ComplianceLevel struct {
	Tier       string `json:"tier"`
	Baseline   string `json:"baseline,omitempty"`
	IsAssessed bool   `json:"is_assessed"`
}

// TierUndetermined is the derived tier when an organization has declared
// no business processes. It is distinct from the lowest policy tier:
// absence of data must not understate risk.
const TierUndetermined = "undetermined"
