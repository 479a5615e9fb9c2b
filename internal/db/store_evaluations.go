package db

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/veridianhq/veridian/internal/models"
)

// Evaluation methods

// GetEvaluation returns the stored evaluation for (org, control code).
// Returns apperr.ErrNotFound when no row exists yet; callers synthesize
// the default not_assessed record. Reads never write.
func (db *DB) GetEvaluation(ctx context.Context, orgID uuid.UUID, controlCode string) (*models.Evaluation, error) {
	ctx, cancel := db.opCtx(ctx)
	defer cancel()

	var eval models.Evaluation
	var status string
	err := db.Pool.QueryRow(ctx, `
		SELECT org_id, control_code, status, assignee, notes, updated_by, updated_at
		FROM evaluations
		WHERE org_id = $1 AND control_code = $2
	`, orgID, controlCode).Scan(&eval.OrgID, &eval.ControlCode, &status,
		&eval.Assignee, &eval.Notes, &eval.UpdatedBy, &eval.UpdatedAt)
	if err != nil {
		return nil, storeErr(ctx, "get evaluation", err)
	}
	eval.Status = models.EvaluationStatus(status)
	return &eval, nil
}

// ListEvaluations returns all stored evaluations for an organization,
// ordered by control code ascending.
func (db *DB) ListEvaluations(ctx context.Context, orgID uuid.UUID) ([]*models.Evaluation, error) {
	ctx, cancel := db.opCtx(ctx)
	defer cancel()

	rows, err := db.Pool.Query(ctx, `
		SELECT org_id, control_code, status, assignee, notes, updated_by, updated_at
		FROM evaluations
		WHERE org_id = $1
		ORDER BY control_code ASC
	`, orgID)
	if err != nil {
		return nil, storeErr(ctx, "list evaluations", err)
	}
	defer rows.Close()

	var evals []*models.Evaluation
	for rows.Next() {
		var eval models.Evaluation
		var status string
		if err := rows.Scan(&eval.OrgID, &eval.ControlCode, &status,
			&eval.Assignee, &eval.Notes, &eval.UpdatedBy, &eval.UpdatedAt); err != nil {
			return nil, storeErr(ctx, "scan evaluation", err)
		}
		eval.Status = models.EvaluationStatus(status)
		evals = append(evals, &eval)
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr(ctx, "iterate evaluations", err)
	}

	return evals, nil
}

// UpdateEvaluation applies an update to one evaluation and appends the
// matching history entry in the same transaction. The row is created
// lazily if absent and locked with FOR UPDATE, so concurrent updates to
// the same (org, control) serialize: two concurrent calls always produce
// two sequential history entries and never a lost write.
func (db *DB) UpdateEvaluation(ctx context.Context, orgID uuid.UUID, controlCode string, update models.EvaluationUpdate, actor models.Actor) (*models.Evaluation, *models.HistoryEntry, error) {
	ctx, cancel := db.opCtx(ctx)
	defer cancel()

	var updated models.Evaluation
	var entry *models.HistoryEntry

	err := db.ExecTx(ctx, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `
			INSERT INTO evaluations (org_id, control_code)
			VALUES ($1, $2)
			ON CONFLICT (org_id, control_code) DO NOTHING
		`, orgID, controlCode); err != nil {
			return storeErr(ctx, "ensure evaluation row", err)
		}

		var prior models.Evaluation
		var priorStatus string
		if err := tx.QueryRow(ctx, `
			SELECT org_id, control_code, status, assignee, notes, updated_by, updated_at
			FROM evaluations
			WHERE org_id = $1 AND control_code = $2
			FOR UPDATE
		`, orgID, controlCode).Scan(&prior.OrgID, &prior.ControlCode, &priorStatus,
			&prior.Assignee, &prior.Notes, &prior.UpdatedBy, &prior.UpdatedAt); err != nil {
			return storeErr(ctx, "lock evaluation row", err)
		}
		prior.Status = models.EvaluationStatus(priorStatus)

		updated = prior
		updated.Status = update.Status
		if update.Assignee != nil {
			updated.Assignee = *update.Assignee
		}
		if update.Notes != nil {
			updated.Notes = *update.Notes
		}
		now := time.Now().UTC()
		updated.UpdatedBy = &actor.ID
		updated.UpdatedAt = &now

		if _, err := tx.Exec(ctx, `
			UPDATE evaluations
			SET status = $3, assignee = $4, notes = $5, updated_by = $6, updated_at = $7
			WHERE org_id = $1 AND control_code = $2
		`, orgID, controlCode, string(updated.Status), updated.Assignee,
			updated.Notes, updated.UpdatedBy, updated.UpdatedAt); err != nil {
			return storeErr(ctx, "update evaluation", err)
		}

		entry = models.NewHistoryEntry(orgID, models.EntityEvaluation, controlCode,
			models.ActionUpdate, actor, map[string]any{
				"control_code": controlCode,
				"old_status":   string(prior.Status),
				"new_status":   string(updated.Status),
				"old_notes":    prior.Notes,
				"new_notes":    updated.Notes,
			})
		if err := insertHistoryTx(ctx, tx, entry); err != nil {
			return storeErr(ctx, "append evaluation history", err)
		}

		return nil
	})
	if err != nil {
		return nil, nil, err
	}

	return &updated, entry, nil
}

// ensureEvaluationTx lazily creates the evaluation row inside an open
// transaction so evidence and comments have a parent to reference.
func ensureEvaluationTx(ctx context.Context, tx pgx.Tx, orgID uuid.UUID, controlCode string) error {
	_, err := tx.Exec(ctx, `
		INSERT INTO evaluations (org_id, control_code)
		VALUES ($1, $2)
		ON CONFLICT (org_id, control_code) DO NOTHING
	`, orgID, controlCode)
	if err != nil {
		return storeErr(ctx, "ensure evaluation row", err)
	}
	return nil
}
