package db

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/veridianhq/veridian/internal/models"
)

// BIA methods. Processes and assets are plain CRUD rows; the derived
// compliance level is computed by the bia package from the List results.
// Every mutation appends its history entry in the same transaction.

// CreateBIAProcess inserts a process and its history entry.
func (db *DB) CreateBIAProcess(ctx context.Context, proc *models.BIAProcess, entry *models.HistoryEntry) error {
	ctx, cancel := db.opCtx(ctx)
	defer cancel()

	return db.ExecTx(ctx, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `
			INSERT INTO bia_processes (id, org_id, name, criticality_tier, rto_seconds, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
		`, proc.ID, proc.OrgID, proc.Name, proc.CriticalityTier,
			int64(proc.RecoveryTimeObjective/time.Second), proc.CreatedAt, proc.UpdatedAt); err != nil {
			return storeErr(ctx, "create bia process", err)
		}
		if err := insertHistoryTx(ctx, tx, entry); err != nil {
			return storeErr(ctx, "append bia history", err)
		}
		return nil
	})
}

// GetBIAProcess returns one process scoped to the organization.
func (db *DB) GetBIAProcess(ctx context.Context, orgID, processID uuid.UUID) (*models.BIAProcess, error) {
	ctx, cancel := db.opCtx(ctx)
	defer cancel()

	proc, err := scanBIAProcessRow(db.Pool.QueryRow(ctx, `
		SELECT id, org_id, name, criticality_tier, rto_seconds, created_at, updated_at
		FROM bia_processes
		WHERE id = $1 AND org_id = $2
	`, processID, orgID))
	if err != nil {
		return nil, storeErr(ctx, "get bia process", err)
	}
	return proc, nil
}

// ListBIAProcesses returns all processes for an organization ordered by name.
func (db *DB) ListBIAProcesses(ctx context.Context, orgID uuid.UUID) ([]*models.BIAProcess, error) {
	ctx, cancel := db.opCtx(ctx)
	defer cancel()

	rows, err := db.Pool.Query(ctx, `
		SELECT id, org_id, name, criticality_tier, rto_seconds, created_at, updated_at
		FROM bia_processes
		WHERE org_id = $1
		ORDER BY name
	`, orgID)
	if err != nil {
		return nil, storeErr(ctx, "list bia processes", err)
	}
	defer rows.Close()

	var procs []*models.BIAProcess
	for rows.Next() {
		proc, err := scanBIAProcessRow(rows)
		if err != nil {
			return nil, storeErr(ctx, "scan bia process", err)
		}
		procs = append(procs, proc)
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr(ctx, "iterate bia processes", err)
	}

	return procs, nil
}

// UpdateBIAProcess replaces the mutable fields of a process and appends
// the history entry in the same transaction. Returns the updated record.
func (db *DB) UpdateBIAProcess(ctx context.Context, orgID, processID uuid.UUID, name, tier string, rto time.Duration, actor models.Actor) (*models.BIAProcess, *models.HistoryEntry, error) {
	ctx, cancel := db.opCtx(ctx)
	defer cancel()

	var updated *models.BIAProcess
	var entry *models.HistoryEntry

	err := db.ExecTx(ctx, func(tx pgx.Tx) error {
		prior, err := scanBIAProcessRow(tx.QueryRow(ctx, `
			SELECT id, org_id, name, criticality_tier, rto_seconds, created_at, updated_at
			FROM bia_processes
			WHERE id = $1 AND org_id = $2
			FOR UPDATE
		`, processID, orgID))
		if err != nil {
			return storeErr(ctx, "lock bia process", err)
		}

		now := time.Now().UTC()
		if _, err := tx.Exec(ctx, `
			UPDATE bia_processes
			SET name = $2, criticality_tier = $3, rto_seconds = $4, updated_at = $5
			WHERE id = $1
		`, processID, name, tier, int64(rto/time.Second), now); err != nil {
			return storeErr(ctx, "update bia process", err)
		}

		updated = &models.BIAProcess{
			ID:                    prior.ID,
			OrgID:                 prior.OrgID,
			Name:                  name,
			CriticalityTier:       tier,
			RecoveryTimeObjective: rto,
			CreatedAt:             prior.CreatedAt,
			UpdatedAt:             now,
		}

		entry = models.NewHistoryEntry(orgID, models.EntityBIAProcess, processID.String(),
			models.ActionUpdate, actor, map[string]any{
				"name":     name,
				"old_tier": prior.CriticalityTier,
				"new_tier": tier,
			})
		if err := insertHistoryTx(ctx, tx, entry); err != nil {
			return storeErr(ctx, "append bia history", err)
		}

		return nil
	})
	if err != nil {
		return nil, nil, err
	}

	return updated, entry, nil
}

// DeleteBIAProcess removes a process, cascading to its assets, and appends
// the history entry in the same transaction.
func (db *DB) DeleteBIAProcess(ctx context.Context, orgID, processID uuid.UUID, actor models.Actor) (*models.HistoryEntry, error) {
	ctx, cancel := db.opCtx(ctx)
	defer cancel()

	var entry *models.HistoryEntry

	err := db.ExecTx(ctx, func(tx pgx.Tx) error {
		prior, err := scanBIAProcessRow(tx.QueryRow(ctx, `
			SELECT id, org_id, name, criticality_tier, rto_seconds, created_at, updated_at
			FROM bia_processes
			WHERE id = $1 AND org_id = $2
			FOR UPDATE
		`, processID, orgID))
		if err != nil {
			return storeErr(ctx, "find bia process for delete", err)
		}

		if _, err := tx.Exec(ctx, `DELETE FROM bia_processes WHERE id = $1`, processID); err != nil {
			return storeErr(ctx, "delete bia process", err)
		}

		entry = models.NewHistoryEntry(orgID, models.EntityBIAProcess, processID.String(),
			models.ActionDelete, actor, map[string]any{
				"name": prior.Name,
				"tier": prior.CriticalityTier,
			})
		if err := insertHistoryTx(ctx, tx, entry); err != nil {
			return storeErr(ctx, "append bia history", err)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	return entry, nil
}

// CreateBIAAsset inserts an asset and its history entry. The parent
// process must belong to the same organization; the row is locked so a
// concurrent process delete cannot orphan the new asset.
func (db *DB) CreateBIAAsset(ctx context.Context, asset *models.BIAAsset, entry *models.HistoryEntry) error {
	ctx, cancel := db.opCtx(ctx)
	defer cancel()

	return db.ExecTx(ctx, func(tx pgx.Tx) error {
		var ownerOrg uuid.UUID
		if err := tx.QueryRow(ctx, `
			SELECT org_id FROM bia_processes WHERE id = $1 AND org_id = $2 FOR UPDATE
		`, asset.ProcessID, asset.OrgID).Scan(&ownerOrg); err != nil {
			return storeErr(ctx, "find parent bia process", err)
		}

		if _, err := tx.Exec(ctx, `
			INSERT INTO bia_assets (id, org_id, process_id, name, criticality_tier, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
		`, asset.ID, asset.OrgID, asset.ProcessID, asset.Name,
			asset.CriticalityTier, asset.CreatedAt, asset.UpdatedAt); err != nil {
			return storeErr(ctx, "create bia asset", err)
		}

		if err := insertHistoryTx(ctx, tx, entry); err != nil {
			return storeErr(ctx, "append bia history", err)
		}

		return nil
	})
}

// ListBIAAssets returns all assets for an organization ordered by name.
func (db *DB) ListBIAAssets(ctx context.Context, orgID uuid.UUID) ([]*models.BIAAsset, error) {
	ctx, cancel := db.opCtx(ctx)
	defer cancel()

	rows, err := db.Pool.Query(ctx, `
		SELECT id, org_id, process_id, name, criticality_tier, created_at, updated_at
		FROM bia_assets
		WHERE org_id = $1
		ORDER BY name
	`, orgID)
	if err != nil {
		return nil, storeErr(ctx, "list bia assets", err)
	}
	defer rows.Close()

	var assets []*models.BIAAsset
	for rows.Next() {
		var a models.BIAAsset
		if err := rows.Scan(&a.ID, &a.OrgID, &a.ProcessID, &a.Name,
			&a.CriticalityTier, &a.CreatedAt, &a.UpdatedAt); err != nil {
			return nil, storeErr(ctx, "scan bia asset", err)
		}
		assets = append(assets, &a)
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr(ctx, "iterate bia assets", err)
	}

	return assets, nil
}

// UpdateBIAAsset replaces the mutable fields of an asset and appends the
// history entry in the same transaction. Returns the updated record.
func (db *DB) UpdateBIAAsset(ctx context.Context, orgID, assetID uuid.UUID, name, tier string, actor models.Actor) (*models.BIAAsset, *models.HistoryEntry, error) {
	ctx, cancel := db.opCtx(ctx)
	defer cancel()

	var updated models.BIAAsset
	var entry *models.HistoryEntry

	err := db.ExecTx(ctx, func(tx pgx.Tx) error {
		var prior models.BIAAsset
		if err := tx.QueryRow(ctx, `
			SELECT id, org_id, process_id, name, criticality_tier, created_at, updated_at
			FROM bia_assets
			WHERE id = $1 AND org_id = $2
			FOR UPDATE
		`, assetID, orgID).Scan(&prior.ID, &prior.OrgID, &prior.ProcessID, &prior.Name,
			&prior.CriticalityTier, &prior.CreatedAt, &prior.UpdatedAt); err != nil {
			return storeErr(ctx, "lock bia asset", err)
		}

		now := time.Now().UTC()
		if _, err := tx.Exec(ctx, `
			UPDATE bia_assets
			SET name = $2, criticality_tier = $3, updated_at = $4
			WHERE id = $1
		`, assetID, name, tier, now); err != nil {
			return storeErr(ctx, "update bia asset", err)
		}

		updated = prior
		updated.Name = name
		updated.CriticalityTier = tier
		updated.UpdatedAt = now

		entry = models.NewHistoryEntry(orgID, models.EntityBIAAsset, assetID.String(),
			models.ActionUpdate, actor, map[string]any{
				"name":     name,
				"old_tier": prior.CriticalityTier,
				"new_tier": tier,
			})
		if err := insertHistoryTx(ctx, tx, entry); err != nil {
			return storeErr(ctx, "append bia history", err)
		}

		return nil
	})
	if err != nil {
		return nil, nil, err
	}

	return &updated, entry, nil
}

// DeleteBIAAsset removes one asset and appends the history entry in the
// same transaction.
func (db *DB) DeleteBIAAsset(ctx context.Context, orgID, assetID uuid.UUID, actor models.Actor) (*models.HistoryEntry, error) {
	ctx, cancel := db.opCtx(ctx)
	defer cancel()

	var entry *models.HistoryEntry

	err := db.ExecTx(ctx, func(tx pgx.Tx) error {
		var name, tier string
		if err := tx.QueryRow(ctx, `
			SELECT name, criticality_tier FROM bia_assets
			WHERE id = $1 AND org_id = $2
			FOR UPDATE
		`, assetID, orgID).Scan(&name, &tier); err != nil {
			return storeErr(ctx, "find bia asset for delete", err)
		}

		if _, err := tx.Exec(ctx, `DELETE FROM bia_assets WHERE id = $1`, assetID); err != nil {
			return storeErr(ctx, "delete bia asset", err)
		}

		entry = models.NewHistoryEntry(orgID, models.EntityBIAAsset, assetID.String(),
			models.ActionDelete, actor, map[string]any{
				"name": name,
				"tier": tier,
			})
		if err := insertHistoryTx(ctx, tx, entry); err != nil {
			return storeErr(ctx, "append bia history", err)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	return entry, nil
}

func scanBIAProcessRow(row pgx.Row) (*models.BIAProcess, error) {
	var proc models.BIAProcess
	var rtoSeconds int64
	if err := row.Scan(&proc.ID, &proc.OrgID, &proc.Name, &proc.CriticalityTier,
		&rtoSeconds, &proc.CreatedAt, &proc.UpdatedAt); err != nil {
		return nil, err
	}
	proc.RecoveryTimeObjective = time.Duration(rtoSeconds) * time.Second
	return &proc, nil
}
