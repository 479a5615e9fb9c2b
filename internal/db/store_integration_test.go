//go:build integration

package db

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/exec"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/veridianhq/veridian/internal/apperr"
	"github.com/veridianhq/veridian/internal/models"
)

var testDB *DB

func TestMain(m *testing.M) {
	if !dockerAvailable() {
		fmt.Println("Docker is not available, skipping integration tests")
		os.Exit(0)
	}

	ctx := context.Background()

	pgContainer, err := postgres.Run(ctx,
		"postgres:15-alpine",
		postgres.WithDatabase("veridian_test"),
		postgres.WithUsername("test"),
		postgres.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	if err != nil {
		log.Fatalf("failed to start postgres container: %v", err)
	}

	connStr, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		pgContainer.Terminate(ctx)
		log.Fatalf("failed to get connection string: %v", err)
	}

	logger := zerolog.New(zerolog.NewConsoleWriter())
	cfg := DefaultConfig(connStr)
	cfg.MaxConns = 5
	cfg.MinConns = 1

	testDB, err = New(ctx, cfg, logger)
	if err != nil {
		pgContainer.Terminate(ctx)
		log.Fatalf("failed to connect to database: %v", err)
	}

	if err := testDB.Migrate(ctx); err != nil {
		testDB.Close()
		pgContainer.Terminate(ctx)
		log.Fatalf("failed to run migrations: %v", err)
	}

	code := m.Run()

	testDB.Close()
	pgContainer.Terminate(ctx)

	os.Exit(code)
}

// dockerAvailable returns true if a Docker daemon is reachable.
func dockerAvailable() bool {
	cmd := exec.Command("docker", "info")
	return cmd.Run() == nil
}

// setupTestDB returns the shared test database after cleaning all tables.
func setupTestDB(t *testing.T) *DB {
	t.Helper()
	cleanTables(t, testDB)
	return testDB
}

// cleanTables truncates all user tables between tests for isolation.
func cleanTables(t *testing.T, db *DB) {
	t.Helper()
	ctx := context.Background()
	_, err := db.Pool.Exec(ctx, `
		DO $$ DECLARE r RECORD;
		BEGIN
			FOR r IN (SELECT tablename FROM pg_tables WHERE schemaname = 'public' AND tablename != 'schema_migrations') LOOP
				EXECUTE 'TRUNCATE TABLE ' || quote_ident(r.tablename) || ' CASCADE';
			END LOOP;
		END $$;
	`)
	require.NoError(t, err)
}

// createTestOrg creates and persists a test organization.
func createTestOrg(t *testing.T, db *DB, name, slug string) *models.Organization {
	t.Helper()
	org := models.NewOrganization(name, slug)
	err := db.CreateOrganization(context.Background(), org)
	require.NoError(t, err)
	return org
}

// testActor returns an actor scoped to the given org.
func testActor(orgID uuid.UUID, name string) models.Actor {
	return models.Actor{OrgID: orgID, ID: uuid.New(), Name: name}
}

func TestStore_Organizations(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	t.Run("CreateAndGet", func(t *testing.T) {
		org := models.NewOrganization("Acme Corp", "acme")
		err := db.CreateOrganization(ctx, org)
		require.NoError(t, err)

		got, err := db.GetOrganizationByID(ctx, org.ID)
		require.NoError(t, err)
		assert.Equal(t, org.ID, got.ID)
		assert.Equal(t, "Acme Corp", got.Name)

		bySlug, err := db.GetOrganizationBySlug(ctx, "acme")
		require.NoError(t, err)
		assert.Equal(t, org.ID, bySlug.ID)
	})

	t.Run("GetMissing", func(t *testing.T) {
		_, err := db.GetOrganizationByID(ctx, uuid.New())
		assert.ErrorIs(t, err, apperr.ErrNotFound)
	})

	t.Run("GetOrCreate", func(t *testing.T) {
		first, err := db.GetOrCreateOrganization(ctx, "Globex", "globex")
		require.NoError(t, err)
		second, err := db.GetOrCreateOrganization(ctx, "Globex", "globex")
		require.NoError(t, err)
		assert.Equal(t, first.ID, second.ID)
	})

	t.Run("DeleteMissing", func(t *testing.T) {
		err := db.DeleteOrganization(ctx, uuid.New())
		assert.ErrorIs(t, err, apperr.ErrNotFound)
	})
}

func TestStore_Evaluations(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	org := createTestOrg(t, db, "Eval Org", "eval-org")
	actor := testActor(org.ID, "alice")

	t.Run("GetBeforeAnyWrite", func(t *testing.T) {
		_, err := db.GetEvaluation(ctx, org.ID, "AC-1")
		assert.ErrorIs(t, err, apperr.ErrNotFound)

		// Reads never create rows.
		evals, err := db.ListEvaluations(ctx, org.ID)
		require.NoError(t, err)
		assert.Empty(t, evals)
	})

	t.Run("UpdateCreatesRowAndHistory", func(t *testing.T) {
		notes := "firewall rules reviewed"
		updated, entry, err := db.UpdateEvaluation(ctx, org.ID, "AC-1", models.EvaluationUpdate{
			Status: models.StatusCompliant,
			Notes:  &notes,
		}, actor)
		require.NoError(t, err)
		assert.Equal(t, models.StatusCompliant, updated.Status)
		assert.Equal(t, notes, updated.Notes)
		require.NotNil(t, updated.UpdatedBy)
		assert.Equal(t, actor.ID, *updated.UpdatedBy)

		require.NotNil(t, entry)
		assert.Equal(t, models.EntityEvaluation, entry.EntityType)
		assert.Equal(t, models.ActionUpdate, entry.Action)
		detail := entry.DetailMap()
		assert.Equal(t, string(models.StatusNotAssessed), detail["old_status"])
		assert.Equal(t, string(models.StatusCompliant), detail["new_status"])

		got, err := db.GetEvaluation(ctx, org.ID, "AC-1")
		require.NoError(t, err)
		assert.Equal(t, models.StatusCompliant, got.Status)

		entries, err := db.ListHistory(ctx, org.ID, models.HistoryFilter{})
		require.NoError(t, err)
		require.Len(t, entries, 1)
		assert.Equal(t, entry.ID, entries[0].ID)
	})

	t.Run("PartialUpdatePreservesFields", func(t *testing.T) {
		_, _, err := db.UpdateEvaluation(ctx, org.ID, "AC-1", models.EvaluationUpdate{
			Status: models.StatusInProgress,
		}, actor)
		require.NoError(t, err)

		got, err := db.GetEvaluation(ctx, org.ID, "AC-1")
		require.NoError(t, err)
		assert.Equal(t, models.StatusInProgress, got.Status)
		assert.Equal(t, "firewall rules reviewed", got.Notes)
	})

	t.Run("OrgIsolation", func(t *testing.T) {
		other := createTestOrg(t, db, "Other Org", "other-org")
		_, err := db.GetEvaluation(ctx, other.ID, "AC-1")
		assert.ErrorIs(t, err, apperr.ErrNotFound)
	})
}

func TestStore_ConcurrentEvaluationUpdates(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	org := createTestOrg(t, db, "Race Org", "race-org")

	actorA := testActor(org.ID, "alice")
	actorB := testActor(org.ID, "bob")

	var wg sync.WaitGroup
	errs := make([]error, 2)
	wg.Add(2)
	go func() {
		defer wg.Done()
		_, _, errs[0] = db.UpdateEvaluation(ctx, org.ID, "AC-2", models.EvaluationUpdate{
			Status: models.StatusCompliant,
		}, actorA)
	}()
	go func() {
		defer wg.Done()
		_, _, errs[1] = db.UpdateEvaluation(ctx, org.ID, "AC-2", models.EvaluationUpdate{
			Status: models.StatusNonCompliant,
		}, actorB)
	}()
	wg.Wait()

	require.NoError(t, errs[0])
	require.NoError(t, errs[1])

	// Both writes serialized: two history entries, and the stored row
	// matches one of them.
	entries, err := db.ListHistory(ctx, org.ID, models.HistoryFilter{})
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Greater(t, entries[0].Seq, entries[1].Seq)

	got, err := db.GetEvaluation(ctx, org.ID, "AC-2")
	require.NoError(t, err)
	assert.Contains(t, []models.EvaluationStatus{models.StatusCompliant, models.StatusNonCompliant}, got.Status)
}

func TestStore_Evidence(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	org := createTestOrg(t, db, "Evidence Org", "evidence-org")
	actor := testActor(org.ID, "carol")

	ev := models.NewEvidence(org.ID, "AU-1", "scan.pdf", org.ID.String()+"/"+uuid.New().String()+".pdf",
		"application/pdf", 2048, actor.ID)
	entry := models.NewHistoryEntry(org.ID, models.EntityEvidence, ev.ID.String(),
		models.ActionUpload, actor, map[string]any{"control_code": "AU-1", "file_name": "scan.pdf"})

	t.Run("CreateAndGet", func(t *testing.T) {
		require.NoError(t, db.CreateEvidence(ctx, ev, entry))

		got, err := db.GetEvidence(ctx, ev.ID)
		require.NoError(t, err)
		assert.Equal(t, ev.BlobKey, got.BlobKey)
		assert.Equal(t, int64(2048), got.SizeBytes)

		list, err := db.ListEvidence(ctx, org.ID, "AU-1")
		require.NoError(t, err)
		require.Len(t, list, 1)
	})

	t.Run("GetIsUnscopedDeleteIsNot", func(t *testing.T) {
		other := createTestOrg(t, db, "Intruder Org", "intruder-org")

		// Reads return the record for any caller; ownership is enforced
		// by the namespace check in the evidence service.
		got, err := db.GetEvidence(ctx, ev.ID)
		require.NoError(t, err)
		assert.Equal(t, org.ID, got.OrgID)

		_, _, err = db.DeleteEvidence(ctx, other.ID, "AU-1", ev.ID, testActor(other.ID, "mallory"))
		assert.ErrorIs(t, err, apperr.ErrNotFound)
	})

	t.Run("DeleteReturnsRecord", func(t *testing.T) {
		deleted, delEntry, err := db.DeleteEvidence(ctx, org.ID, "AU-1", ev.ID, actor)
		require.NoError(t, err)
		assert.Equal(t, ev.BlobKey, deleted.BlobKey)
		assert.Equal(t, models.ActionDelete, delEntry.Action)

		_, err = db.GetEvidence(ctx, ev.ID)
		assert.ErrorIs(t, err, apperr.ErrNotFound)
	})
}

func TestStore_Comments(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	org := createTestOrg(t, db, "Comment Org", "comment-org")
	actor := testActor(org.ID, "dave")

	first := models.NewComment(org.ID, "CM-1", actor, "initial review done")
	entry := models.NewHistoryEntry(org.ID, models.EntityComment, first.ID.String(),
		models.ActionCreate, actor, map[string]any{"control_code": "CM-1"})
	require.NoError(t, db.CreateComment(ctx, first, entry))

	second := models.NewComment(org.ID, "CM-1", actor, "follow-up scheduled")
	second.CreatedAt = second.CreatedAt.Add(time.Second)
	entry2 := models.NewHistoryEntry(org.ID, models.EntityComment, second.ID.String(),
		models.ActionCreate, actor, map[string]any{"control_code": "CM-1"})
	require.NoError(t, db.CreateComment(ctx, second, entry2))

	comments, err := db.ListComments(ctx, org.ID, "CM-1")
	require.NoError(t, err)
	require.Len(t, comments, 2)
	assert.Equal(t, second.ID, comments[0].ID)
	assert.Equal(t, first.ID, comments[1].ID)

	// Commenting lazily created the evaluation row.
	eval, err := db.GetEvaluation(ctx, org.ID, "CM-1")
	require.NoError(t, err)
	assert.Equal(t, models.StatusNotAssessed, eval.Status)
}

func TestStore_History(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	org := createTestOrg(t, db, "History Org", "history-org")
	actor := testActor(org.ID, "erin")

	for i := 0; i < 5; i++ {
		_, _, err := db.UpdateEvaluation(ctx, org.ID, fmt.Sprintf("AC-%d", i+1), models.EvaluationUpdate{
			Status: models.StatusInProgress,
		}, actor)
		require.NoError(t, err)
	}
	comment := models.NewComment(org.ID, "AC-1", actor, "note")
	require.NoError(t, db.CreateComment(ctx, comment,
		models.NewHistoryEntry(org.ID, models.EntityComment, comment.ID.String(),
			models.ActionCreate, actor, nil)))

	t.Run("OrderAndLimit", func(t *testing.T) {
		entries, err := db.ListHistory(ctx, org.ID, models.HistoryFilter{Limit: 3})
		require.NoError(t, err)
		require.Len(t, entries, 3)
		for i := 1; i < len(entries); i++ {
			assert.Greater(t, entries[i-1].Seq, entries[i].Seq)
		}
	})

	t.Run("EntityTypeFilter", func(t *testing.T) {
		entries, err := db.ListHistory(ctx, org.ID, models.HistoryFilter{EntityType: models.EntityComment})
		require.NoError(t, err)
		require.Len(t, entries, 1)
		assert.Equal(t, models.EntityComment, entries[0].EntityType)

		count, err := db.CountHistory(ctx, org.ID, models.HistoryFilter{EntityType: models.EntityEvaluation})
		require.NoError(t, err)
		assert.Equal(t, int64(5), count)
	})

	t.Run("SurvivesOrgDeletion", func(t *testing.T) {
		require.NoError(t, db.DeleteOrganization(ctx, org.ID))

		evals, err := db.ListEvaluations(ctx, org.ID)
		require.NoError(t, err)
		assert.Empty(t, evals)

		comments, err := db.ListComments(ctx, org.ID, "AC-1")
		require.NoError(t, err)
		assert.Empty(t, comments)

		entries, err := db.ListHistory(ctx, org.ID, models.HistoryFilter{})
		require.NoError(t, err)
		assert.Len(t, entries, 6)
	})
}

func TestStore_BIA(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	org := createTestOrg(t, db, "BIA Org", "bia-org")
	actor := testActor(org.ID, "frank")

	proc := models.NewBIAProcess(org.ID, "Payments", "high", 4*time.Hour)
	entry := models.NewHistoryEntry(org.ID, models.EntityBIAProcess, proc.ID.String(),
		models.ActionCreate, actor, map[string]any{"name": proc.Name, "tier": proc.CriticalityTier})

	t.Run("CreateProcess", func(t *testing.T) {
		require.NoError(t, db.CreateBIAProcess(ctx, proc, entry))

		got, err := db.GetBIAProcess(ctx, org.ID, proc.ID)
		require.NoError(t, err)
		assert.Equal(t, "high", got.CriticalityTier)
		assert.Equal(t, 4*time.Hour, got.RecoveryTimeObjective)
	})

	t.Run("CreateAssetUnderProcess", func(t *testing.T) {
		asset := models.NewBIAAsset(org.ID, proc.ID, "Ledger DB", "moderate")
		aEntry := models.NewHistoryEntry(org.ID, models.EntityBIAAsset, asset.ID.String(),
			models.ActionCreate, actor, map[string]any{"name": asset.Name})
		require.NoError(t, db.CreateBIAAsset(ctx, asset, aEntry))

		assets, err := db.ListBIAAssets(ctx, org.ID)
		require.NoError(t, err)
		require.Len(t, assets, 1)
		assert.Equal(t, proc.ID, assets[0].ProcessID)
	})

	t.Run("AssetRequiresOwnOrgProcess", func(t *testing.T) {
		other := createTestOrg(t, db, "Other BIA Org", "other-bia-org")
		asset := models.NewBIAAsset(other.ID, proc.ID, "Stolen Asset", "low")
		aEntry := models.NewHistoryEntry(other.ID, models.EntityBIAAsset, asset.ID.String(),
			models.ActionCreate, testActor(other.ID, "mallory"), nil)
		err := db.CreateBIAAsset(ctx, asset, aEntry)
		assert.ErrorIs(t, err, apperr.ErrNotFound)
	})

	t.Run("UpdateProcess", func(t *testing.T) {
		updated, uEntry, err := db.UpdateBIAProcess(ctx, org.ID, proc.ID, "Payments", "moderate", 8*time.Hour, actor)
		require.NoError(t, err)
		assert.Equal(t, "moderate", updated.CriticalityTier)
		assert.Equal(t, 8*time.Hour, updated.RecoveryTimeObjective)

		detail := uEntry.DetailMap()
		assert.Equal(t, "high", detail["old_tier"])
		assert.Equal(t, "moderate", detail["new_tier"])
	})

	t.Run("DeleteProcessCascadesAssets", func(t *testing.T) {
		_, err := db.DeleteBIAProcess(ctx, org.ID, proc.ID, actor)
		require.NoError(t, err)

		assets, err := db.ListBIAAssets(ctx, org.ID)
		require.NoError(t, err)
		assert.Empty(t, assets)

		_, err = db.GetBIAProcess(ctx, org.ID, proc.ID)
		assert.True(t, errors.Is(err, apperr.ErrNotFound))
	})
}
