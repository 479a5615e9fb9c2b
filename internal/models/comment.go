package models

import (
	"time"

	"github.com/google/uuid"
)

// Comment is a reviewer note on an evaluation. Comments are append-only:
// they are never edited, only added.
type Comment struct {
	ID          uuid.UUID `json:"id"`
	OrgID       uuid.UUID `json:"org_id"`
	ControlCode string    `json:"control_code"`
	AuthorID    uuid.UUID `json:"author_id"`
	AuthorName  string    `json:"author_name"`
	Content     string    `json:"content"`
	CreatedAt   time.Time `json:"created_at"`
}

// NewComment creates a new Comment.
func NewComment(orgID uuid.UUID, controlCode string, author Actor, content string) *Comment {
	return &Comment{
		ID:          uuid.New(),
		OrgID:       orgID,
		ControlCode: controlCode,
		AuthorID:    author.ID,
		AuthorName:  author.Name,
		Content:     content,
		CreatedAt:   time.Now().UTC(),
	}
}
