package db

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/veridianhq/veridian/internal/models"
)

// History log methods. Entries are written only through insertHistoryTx
// inside the transaction that performs the mutation they describe; there
// is no update or delete path.

// insertHistoryTx appends a history entry within an open transaction and
// fills in the database-assigned sequence number.
func insertHistoryTx(ctx context.Context, tx pgx.Tx, entry *models.HistoryEntry) error {
	return tx.QueryRow(ctx, `
		INSERT INTO history_entries (id, org_id, entity_type, entity_id, action,
		                             actor_id, actor_name, detail, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING seq
	`, entry.ID, entry.OrgID, string(entry.EntityType), entry.EntityID, string(entry.Action),
		entry.ActorID, entry.ActorName, entry.Detail, entry.CreatedAt).Scan(&entry.Seq)
}

// ListHistory returns history entries for an organization, most recent
// first. The limit must already be clamped by the caller.
func (db *DB) ListHistory(ctx context.Context, orgID uuid.UUID, filter models.HistoryFilter) ([]*models.HistoryEntry, error) {
	ctx, cancel := db.opCtx(ctx)
	defer cancel()

	query := `
		SELECT seq, id, org_id, entity_type, entity_id, action,
		       actor_id, actor_name, detail, created_at
		FROM history_entries
		WHERE org_id = $1
	`
	args := []any{orgID}
	argIdx := 2

	if filter.EntityType != "" {
		query += ` AND entity_type = $2`
		args = append(args, string(filter.EntityType))
		argIdx++
	}

	query += ` ORDER BY created_at DESC, seq DESC`

	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", argIdx)
		args = append(args, filter.Limit)
	}

	rows, err := db.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, storeErr(ctx, "list history", err)
	}
	defer rows.Close()

	var entries []*models.HistoryEntry
	for rows.Next() {
		entry, err := scanHistoryEntry(rows)
		if err != nil {
			return nil, storeErr(ctx, "scan history entry", err)
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr(ctx, "iterate history", err)
	}

	return entries, nil
}

// CountHistory returns the number of history entries for an organization.
func (db *DB) CountHistory(ctx context.Context, orgID uuid.UUID, filter models.HistoryFilter) (int64, error) {
	ctx, cancel := db.opCtx(ctx)
	defer cancel()

	query := `SELECT COUNT(*) FROM history_entries WHERE org_id = $1`
	args := []any{orgID}
	if filter.EntityType != "" {
		query += ` AND entity_type = $2`
		args = append(args, string(filter.EntityType))
	}

	var count int64
	if err := db.Pool.QueryRow(ctx, query, args...).Scan(&count); err != nil {
		return 0, storeErr(ctx, "count history", err)
	}
	return count, nil
}

func scanHistoryEntry(rows pgx.Rows) (*models.HistoryEntry, error) {
	var entry models.HistoryEntry
	var entityType, action string
	if err := rows.Scan(&entry.Seq, &entry.ID, &entry.OrgID, &entityType, &entry.EntityID,
		&action, &entry.ActorID, &entry.ActorName, &entry.Detail, &entry.CreatedAt); err != nil {
		return nil, err
	}
	entry.EntityType = models.HistoryEntityType(entityType)
	entry.Action = models.HistoryAction(action)
	return &entry, nil
}
