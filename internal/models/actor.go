package models

import "github.com/google/uuid"

// Actor is the already-authenticated caller identity threaded into every
// core operation. Authentication happens upstream; the core only enforces
// that each read and write stays inside the actor's organization.
type Actor struct {
	OrgID uuid.UUID `json:"org_id"`
	ID    uuid.UUID `json:"id"`
	Name  string    `json:"name"`
}

// IsZero reports whether the actor carries no identity.
func (a Actor) IsZero() bool {
	return a.OrgID == uuid.Nil && a.ID == uuid.Nil
}
