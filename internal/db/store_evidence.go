package db

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/veridianhq/veridian/internal/models"
)

// Evidence metadata methods. Byte storage lives in the blob collaborator;
// these rows only map evaluations to blob keys.

// CreateEvidence inserts an evidence record and its history entry in one
// transaction, lazily creating the parent evaluation row.
func (db *DB) CreateEvidence(ctx context.Context, ev *models.Evidence, entry *models.HistoryEntry) error {
	ctx, cancel := db.opCtx(ctx)
	defer cancel()

	return db.ExecTx(ctx, func(tx pgx.Tx) error {
		if err := ensureEvaluationTx(ctx, tx, ev.OrgID, ev.ControlCode); err != nil {
			return err
		}

		if _, err := tx.Exec(ctx, `
			INSERT INTO evidence (id, org_id, control_code, file_name, blob_key,
			                      content_type, size_bytes, uploaded_by, uploaded_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		`, ev.ID, ev.OrgID, ev.ControlCode, ev.FileName, ev.BlobKey,
			ev.ContentType, ev.SizeBytes, ev.UploadedBy, ev.UploadedAt); err != nil {
			return storeErr(ctx, "create evidence", err)
		}

		if err := insertHistoryTx(ctx, tx, entry); err != nil {
			return storeErr(ctx, "append evidence history", err)
		}

		return nil
	})
}

// GetEvidence returns one evidence record by ID regardless of owning
// organization. Callers must verify the blob key against the caller's
// namespace before exposing the record; ownership violations are access
// denials, not missing records.
func (db *DB) GetEvidence(ctx context.Context, evidenceID uuid.UUID) (*models.Evidence, error) {
	ctx, cancel := db.opCtx(ctx)
	defer cancel()

	var ev models.Evidence
	err := db.Pool.QueryRow(ctx, `
		SELECT id, org_id, control_code, file_name, blob_key,
		       content_type, size_bytes, uploaded_by, uploaded_at
		FROM evidence
		WHERE id = $1
	`, evidenceID).Scan(&ev.ID, &ev.OrgID, &ev.ControlCode, &ev.FileName, &ev.BlobKey,
		&ev.ContentType, &ev.SizeBytes, &ev.UploadedBy, &ev.UploadedAt)
	if err != nil {
		return nil, storeErr(ctx, "get evidence", err)
	}
	return &ev, nil
}

// ListEvidence returns evidence metadata for one (org, control), newest
// first. Raw bytes are never returned here.
func (db *DB) ListEvidence(ctx context.Context, orgID uuid.UUID, controlCode string) ([]*models.Evidence, error) {
	ctx, cancel := db.opCtx(ctx)
	defer cancel()

	rows, err := db.Pool.Query(ctx, `
		SELECT id, org_id, control_code, file_name, blob_key,
		       content_type, size_bytes, uploaded_by, uploaded_at
		FROM evidence
		WHERE org_id = $1 AND control_code = $2
		ORDER BY uploaded_at DESC
	`, orgID, controlCode)
	if err != nil {
		return nil, storeErr(ctx, "list evidence", err)
	}
	defer rows.Close()

	var evs []*models.Evidence
	for rows.Next() {
		var ev models.Evidence
		if err := rows.Scan(&ev.ID, &ev.OrgID, &ev.ControlCode, &ev.FileName, &ev.BlobKey,
			&ev.ContentType, &ev.SizeBytes, &ev.UploadedBy, &ev.UploadedAt); err != nil {
			return nil, storeErr(ctx, "scan evidence", err)
		}
		evs = append(evs, &ev)
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr(ctx, "iterate evidence", err)
	}

	return evs, nil
}

// DeleteEvidence removes one evidence record and appends the history entry
// in one transaction. Returns the deleted record so the caller can remove
// the blob afterwards; apperr.ErrNotFound when the record does not belong
// to that organization and control.
func (db *DB) DeleteEvidence(ctx context.Context, orgID uuid.UUID, controlCode string, evidenceID uuid.UUID, actor models.Actor) (*models.Evidence, *models.HistoryEntry, error) {
	ctx, cancel := db.opCtx(ctx)
	defer cancel()

	var deleted models.Evidence
	var entry *models.HistoryEntry

	err := db.ExecTx(ctx, func(tx pgx.Tx) error {
		if err := tx.QueryRow(ctx, `
			SELECT id, org_id, control_code, file_name, blob_key,
			       content_type, size_bytes, uploaded_by, uploaded_at
			FROM evidence
			WHERE id = $1 AND org_id = $2 AND control_code = $3
			FOR UPDATE
		`, evidenceID, orgID, controlCode).Scan(&deleted.ID, &deleted.OrgID, &deleted.ControlCode,
			&deleted.FileName, &deleted.BlobKey, &deleted.ContentType, &deleted.SizeBytes,
			&deleted.UploadedBy, &deleted.UploadedAt); err != nil {
			return storeErr(ctx, "find evidence for delete", err)
		}

		if _, err := tx.Exec(ctx, `DELETE FROM evidence WHERE id = $1`, evidenceID); err != nil {
			return storeErr(ctx, "delete evidence", err)
		}

		entry = models.NewHistoryEntry(orgID, models.EntityEvidence, evidenceID.String(),
			models.ActionDelete, actor, map[string]any{
				"control_code": controlCode,
				"file_name":    deleted.FileName,
			})
		if err := insertHistoryTx(ctx, tx, entry); err != nil {
			return storeErr(ctx, "append evidence history", err)
		}

		return nil
	})
	if err != nil {
		return nil, nil, err
	}

	return &deleted, entry, nil
}
