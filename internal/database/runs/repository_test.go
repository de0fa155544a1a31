package runs

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm/logger"

	"github.com/mrlokans/savepoint/internal/database"
	"github.com/mrlokans/savepoint/internal/entities"
)

func setupTestDB(t *testing.T) *Repository {
	t.Helper()
	db, err := database.Open(filepath.Join(t.TempDir(), "runs.db"), logger.Silent)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewRepository(db.DB)
}

func newRun(userID uint, startedAt time.Time, status entities.ImportRunStatus) *entities.ImportRun {
	return &entities.ImportRun{
		ID:         uuid.NewString(),
		UserID:     userID,
		Storefront: entities.StorefrontSteam,
		AccountRef: "76561197960287930",
		Status:     status,
		StartedAt:  startedAt,
	}
}

func TestRepository_CreateAndFinish(t *testing.T) {
	repo := setupTestDB(t)
	ctx := context.Background()

	run := newRun(1, time.Now(), entities.ImportRunStatusRunning)
	require.NoError(t, repo.Create(ctx, run))

	run.Status = entities.ImportRunStatusCompleted
	run.Total = 3
	run.Imported = 1
	run.SkippedOwned = 1
	run.SkippedIgnored = 1
	require.NoError(t, repo.Finish(ctx, run))

	stored, err := repo.Get(ctx, 1, run.ID)
	require.NoError(t, err)
	assert.Equal(t, entities.ImportRunStatusCompleted, stored.Status)
	assert.Equal(t, 3, stored.Total)
	assert.Equal(t, 1, stored.Imported)
	assert.NotNil(t, stored.CompletedAt)

	_, err = repo.Get(ctx, 2, run.ID)
	assert.ErrorIs(t, err, ErrRunNotFound)
}

func TestRepository_FinishUnknownRun(t *testing.T) {
	repo := setupTestDB(t)

	err := repo.Finish(context.Background(), newRun(1, time.Now(), entities.ImportRunStatusFailed))
	assert.ErrorIs(t, err, ErrRunNotFound)
}

func TestRepository_ListRecent(t *testing.T) {
	repo := setupTestDB(t)
	ctx := context.Background()
	base := time.Now().Add(-time.Hour)

	for i := 0; i < 3; i++ {
		require.NoError(t, repo.Create(ctx, newRun(1, base.Add(time.Duration(i)*time.Minute), entities.ImportRunStatusCompleted)))
	}
	require.NoError(t, repo.Create(ctx, newRun(2, base, entities.ImportRunStatusCompleted)))

	runs, err := repo.ListRecent(ctx, 1, 2)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.True(t, runs[0].StartedAt.After(runs[1].StartedAt))
}

func TestRepository_DeleteOlderThan(t *testing.T) {
	repo := setupTestDB(t)
	ctx := context.Background()
	old := time.Now().AddDate(0, 0, -40)

	require.NoError(t, repo.Create(ctx, newRun(1, old, entities.ImportRunStatusCompleted)))
	require.NoError(t, repo.Create(ctx, newRun(1, old, entities.ImportRunStatusRunning)))
	require.NoError(t, repo.Create(ctx, newRun(1, time.Now(), entities.ImportRunStatusCompleted)))

	deleted, err := repo.DeleteOlderThan(ctx, time.Now().AddDate(0, 0, -30))
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)

	runs, err := repo.ListRecent(ctx, 1, 10)
	require.NoError(t, err)
	assert.Len(t, runs, 2)
}
