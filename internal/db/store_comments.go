package db

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/veridianhq/veridian/internal/models"
)

// Comment methods. Comments are append-only, so this file carries no
// update or delete statement.

// CreateComment inserts a comment and its history entry in one
// transaction, lazily creating the parent evaluation row.
func (db *DB) CreateComment(ctx context.Context, comment *models.Comment, entry *models.HistoryEntry) error {
	ctx, cancel := db.opCtx(ctx)
	defer cancel()

	return db.ExecTx(ctx, func(tx pgx.Tx) error {
		if err := ensureEvaluationTx(ctx, tx, comment.OrgID, comment.ControlCode); err != nil {
			return err
		}

		if _, err := tx.Exec(ctx, `
			INSERT INTO comments (id, org_id, control_code, author_id, author_name, content, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
		`, comment.ID, comment.OrgID, comment.ControlCode, comment.AuthorID,
			comment.AuthorName, comment.Content, comment.CreatedAt); err != nil {
			return storeErr(ctx, "create comment", err)
		}

		if err := insertHistoryTx(ctx, tx, entry); err != nil {
			return storeErr(ctx, "append comment history", err)
		}

		return nil
	})
}

// ListComments returns comments for one (org, control), newest first.
func (db *DB) ListComments(ctx context.Context, orgID uuid.UUID, controlCode string) ([]*models.Comment, error) {
	ctx, cancel := db.opCtx(ctx)
	defer cancel()

	rows, err := db.Pool.Query(ctx, `
		SELECT id, org_id, control_code, author_id, author_name, content, created_at
		FROM comments
		WHERE org_id = $1 AND control_code = $2
		ORDER BY created_at DESC
	`, orgID, controlCode)
	if err != nil {
		return nil, storeErr(ctx, "list comments", err)
	}
	defer rows.Close()

	var comments []*models.Comment
	for rows.Next() {
		var c models.Comment
		if err := rows.Scan(&c.ID, &c.OrgID, &c.ControlCode, &c.AuthorID,
			&c.AuthorName, &c.Content, &c.CreatedAt); err != nil {
			return nil, storeErr(ctx, "scan comment", err)
		}
		comments = append(comments, &c)
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr(ctx, "iterate comments", err)
	}

	return comments, nil
}
