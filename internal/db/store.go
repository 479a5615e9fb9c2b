package db

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/veridianhq/veridian/internal/apperr"
	"github.com/veridianhq/veridian/internal/models"
)

// Organization methods

// CreateOrganization creates a new organization.
func (db *DB) CreateOrganization(ctx context.Context, org *models.Organization) error {
	ctx, cancel := db.opCtx(ctx)
	defer cancel()

	_, err := db.Pool.Exec(ctx, `
		INSERT INTO organizations (id, name, slug, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)
	`, org.ID, org.Name, org.Slug, org.CreatedAt, org.UpdatedAt)
	if err != nil {
		return storeErr(ctx, "create organization", err)
	}
	return nil
}

// GetOrganizationByID returns an organization by ID.
func (db *DB) GetOrganizationByID(ctx context.Context, id uuid.UUID) (*models.Organization, error) {
	ctx, cancel := db.opCtx(ctx)
	defer cancel()

	var org models.Organization
	err := db.Pool.QueryRow(ctx, `
		SELECT id, name, slug, created_at, updated_at
		FROM organizations
		WHERE id = $1
	`, id).Scan(&org.ID, &org.Name, &org.Slug, &org.CreatedAt, &org.UpdatedAt)
	if err != nil {
		return nil, storeErr(ctx, "get organization", err)
	}
	return &org, nil
}

// GetOrganizationBySlug returns an organization by slug.
func (db *DB) GetOrganizationBySlug(ctx context.Context, slug string) (*models.Organization, error) {
	ctx, cancel := db.opCtx(ctx)
	defer cancel()

	var org models.Organization
	err := db.Pool.QueryRow(ctx, `
		SELECT id, name, slug, created_at, updated_at
		FROM organizations
		WHERE slug = $1
	`, slug).Scan(&org.ID, &org.Name, &org.Slug, &org.CreatedAt, &org.UpdatedAt)
	if err != nil {
		return nil, storeErr(ctx, "get organization by slug", err)
	}
	return &org, nil
}

// ListOrganizations returns all organizations ordered by name.
func (db *DB) ListOrganizations(ctx context.Context) ([]*models.Organization, error) {
	ctx, cancel := db.opCtx(ctx)
	defer cancel()

	rows, err := db.Pool.Query(ctx, `
		SELECT id, name, slug, created_at, updated_at
		FROM organizations
		ORDER BY name
	`)
	if err != nil {
		return nil, storeErr(ctx, "list organizations", err)
	}
	defer rows.Close()

	var orgs []*models.Organization
	for rows.Next() {
		var org models.Organization
		if err := rows.Scan(&org.ID, &org.Name, &org.Slug, &org.CreatedAt, &org.UpdatedAt); err != nil {
			return nil, storeErr(ctx, "scan organization", err)
		}
		orgs = append(orgs, &org)
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr(ctx, "iterate organizations", err)
	}

	return orgs, nil
}

// DeleteOrganization deletes an organization. Evaluations, evidence
// metadata, comments, and BIA rows cascade; history entries are retained.
func (db *DB) DeleteOrganization(ctx context.Context, id uuid.UUID) error {
	ctx, cancel := db.opCtx(ctx)
	defer cancel()

	tag, err := db.Pool.Exec(ctx, `DELETE FROM organizations WHERE id = $1`, id)
	if err != nil {
		return storeErr(ctx, "delete organization", err)
	}
	if tag.RowsAffected() == 0 {
		return storeErr(ctx, "delete organization", pgx.ErrNoRows)
	}

	db.logger.Info().Str("org_id", id.String()).Msg("organization deleted")
	return nil
}

// GetOrCreateOrganization returns the organization with the given slug,
// creating it if necessary.
func (db *DB) GetOrCreateOrganization(ctx context.Context, name, slug string) (*models.Organization, error) {
	org, err := db.GetOrganizationBySlug(ctx, slug)
	if err == nil {
		return org, nil
	}
	if !errors.Is(err, apperr.ErrNotFound) {
		return nil, err
	}

	org = models.NewOrganization(name, slug)
	if err := db.CreateOrganization(ctx, org); err != nil {
		return nil, err
	}
	db.logger.Info().Str("org_id", org.ID.String()).Str("slug", slug).Msg("organization created")
	return org, nil
}
