package games

import (
	"context"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm/logger"

	"github.com/mrlokans/savepoint/internal/database"
	"github.com/mrlokans/savepoint/internal/entities"
)

func setupTestDB(t *testing.T) *Repository {
	t.Helper()
	db, err := database.Open(filepath.Join(t.TempDir(), "games.db"), logger.Silent)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewRepository(db.DB)
}

func TestRepository_FindByCatalogID_Missing(t *testing.T) {
	repo := setupTestDB(t)

	game, err := repo.FindByCatalogID(context.Background(), 42)
	require.NoError(t, err)
	assert.Nil(t, game)
}

func TestRepository_CreateIfAbsent(t *testing.T) {
	repo := setupTestDB(t)
	ctx := context.Background()

	created, err := repo.CreateIfAbsent(ctx, &entities.Game{CatalogID: 1942, Title: "The Witcher 3: Wild Hunt"})
	require.NoError(t, err)
	assert.NotZero(t, created.ID)

	again, err := repo.CreateIfAbsent(ctx, &entities.Game{CatalogID: 1942, Title: "Witcher 3"})
	require.NoError(t, err)
	assert.Equal(t, created.ID, again.ID)
	assert.Equal(t, "The Witcher 3: Wild Hunt", again.Title)

	found, err := repo.FindByCatalogID(ctx, 1942)
	require.NoError(t, err)
	assert.Equal(t, created.ID, found.ID)
}

func TestRepository_CreateIfAbsent_Concurrent(t *testing.T) {
	repo := setupTestDB(t)
	ctx := context.Background()

	const writers = 8
	ids := make([]uint, writers)
	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			game, err := repo.CreateIfAbsent(ctx, &entities.Game{CatalogID: 119133, Title: "Elden Ring"})
			if assert.NoError(t, err) {
				ids[i] = game.ID
			}
		}(i)
	}
	wg.Wait()

	for _, id := range ids {
		assert.Equal(t, ids[0], id)
	}
}
