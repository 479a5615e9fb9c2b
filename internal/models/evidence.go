package models

import (
	"time"

	"github.com/google/uuid"
)

// Evidence is the metadata record for one uploaded artifact supporting an
// evaluation. BlobKey is the server-generated address inside the blob
// collaborator; it is always namespaced by the owning organization and is
// never derived from the client-supplied filename.
type Evidence struct {
	ID          uuid.UUID `json:"id"`
	OrgID       uuid.UUID `json:"org_id"`
	ControlCode string    `json:"control_code"`
	FileName    string    `json:"file_name"`
	BlobKey     string    `json:"-"`
	ContentType string    `json:"content_type"`
	SizeBytes   int64     `json:"size_bytes"`
	UploadedBy  uuid.UUID `json:"uploaded_by"`
	UploadedAt  time.Time `json:"uploaded_at"`
}

// NewEvidence creates a new Evidence record.
func NewEvidence(orgID uuid.UUID, controlCode, fileName, blobKey, contentType string, sizeBytes int64, uploadedBy uuid.UUID) *Evidence {
	return &Evidence{
		ID:          uuid.New(),
		OrgID:       orgID,
		ControlCode: controlCode,
		FileName:    fileName,
		BlobKey:     blobKey,
		ContentType: contentType,
		SizeBytes:   sizeBytes,
		UploadedBy:  uploadedBy,
		UploadedAt:  time.Now().UTC(),
	}
}
