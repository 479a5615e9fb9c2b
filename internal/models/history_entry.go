package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// HistoryEntityType identifies the kind of entity a history entry tracks.
type HistoryEntityType string

const (
	// EntityEvaluation tracks evaluation status/field changes.
	EntityEvaluation HistoryEntityType = "evaluation"
	// EntityEvidence tracks evidence uploads and deletions.
	EntityEvidence HistoryEntityType = "evidence"
	// EntityComment tracks comment additions.
	EntityComment HistoryEntityType = "comment"
	// EntityBIAProcess tracks BIA process mutations.
	EntityBIAProcess HistoryEntityType = "bia_process"
	// EntityBIAAsset tracks BIA asset mutations.
	EntityBIAAsset HistoryEntityType = "bia_asset"
)

// IsValid reports whether the entity type is known.
func (t HistoryEntityType) IsValid() bool {
	switch t {
	case EntityEvaluation, EntityEvidence, EntityComment, EntityBIAProcess, EntityBIAAsset:
		return true
	}
	return false
}

// HistoryAction identifies what happened to the entity.
type HistoryAction string

const (
	// ActionCreate records an entity creation.
	ActionCreate HistoryAction = "create"
	// ActionUpdate records an entity update.
	ActionUpdate HistoryAction = "update"
	// ActionDelete records an entity deletion.
	ActionDelete HistoryAction = "delete"
	// ActionUpload records an evidence upload.
	ActionUpload HistoryAction = "upload"
)

// HistoryEntry is an immutable audit record of one mutation. Seq is a
// database-assigned monotonic sequence that tie-breaks entries sharing a
// timestamp, so read-back preserves write order.
type HistoryEntry struct {
	ID         uuid.UUID         `json:"id"`
	Seq        int64             `json:"seq"`
	OrgID      uuid.UUID         `json:"org_id"`
	EntityType HistoryEntityType `json:"entity_type"`
	EntityID   string            `json:"entity_id"`
	Action     HistoryAction     `json:"action"`
	ActorID    uuid.UUID         `json:"actor_id"`
	ActorName  string            `json:"actor_name"`
	Detail     json.RawMessage   `json:"detail,omitempty"`
	CreatedAt  time.Time         `json:"created_at"`
}

// NewHistoryEntry creates a history entry for one mutation. The detail map
// is marshaled to JSON; a nil map produces an empty detail.
func NewHistoryEntry(orgID uuid.UUID, entityType HistoryEntityType, entityID string, action HistoryAction, actor Actor, detail map[string]any) *HistoryEntry {
	var raw json.RawMessage
	if detail != nil {
		raw, _ = json.Marshal(detail)
	}
	return &HistoryEntry{
		ID:         uuid.New(),
		OrgID:      orgID,
		EntityType: entityType,
		EntityID:   entityID,
		Action:     action,
		ActorID:    actor.ID,
		ActorName:  actor.Name,
		Detail:     raw,
		CreatedAt:  time.Now().UTC(),
	}
}

// DetailMap unmarshals the detail payload into a map. Returns an empty map
// when no detail was recorded.
func (e *HistoryEntry) DetailMap() map[string]any {
	out := map[string]any{}
	if len(e.Detail) > 0 {
		_ = json.Unmarshal(e.Detail, &out)
	}
	return out
}

// HistoryFilter narrows a history listing.
type HistoryFilter struct {
	EntityType HistoryEntityType
	Limit      int
}
