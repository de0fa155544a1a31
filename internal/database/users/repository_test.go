package users

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/mrlokans/savepoint/internal/entities"
)

func setupTestDB(t *testing.T) (*Repository, *gorm.DB) {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "users.db")), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&entities.User{}))
	t.Cleanup(func() {
		sqlDB, _ := db.DB()
		sqlDB.Close()
	})
	return NewRepository(db), db
}

func TestRepository_GetUserByID(t *testing.T) {
	repo, db := setupTestDB(t)
	ctx := context.Background()

	created := &entities.User{Username: "testuser", Email: "test@example.com"}
	require.NoError(t, db.Create(created).Error)

	user, err := repo.GetUserByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "testuser", user.Username)

	_, err = repo.GetUserByID(ctx, 9999)
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestRepository_GetUserByUsername(t *testing.T) {
	repo, db := setupTestDB(t)
	ctx := context.Background()

	require.NoError(t, db.Create(&entities.User{Username: "player", Email: "player@example.com"}).Error)

	user, err := repo.GetUserByUsername(ctx, "player")
	require.NoError(t, err)
	assert.Equal(t, "player@example.com", user.Email)

	_, err = repo.GetUserByUsername(ctx, "nobody")
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestRepository_LinkSteamAccount(t *testing.T) {
	repo, db := setupTestDB(t)
	ctx := context.Background()

	created := &entities.User{Username: "player", Email: "player@example.com"}
	require.NoError(t, db.Create(created).Error)

	require.NoError(t, repo.LinkSteamAccount(ctx, created.ID, "76561197960287930"))

	user, err := repo.GetUserByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "76561197960287930", user.SteamID64)

	err = repo.LinkSteamAccount(ctx, 9999, "76561197960287930")
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestRepository_EnsureDefaultUser(t *testing.T) {
	repo, _ := setupTestDB(t)
	ctx := context.Background()

	first, err := repo.EnsureDefaultUser(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, uint(1), first.ID)

	second, err := repo.EnsureDefaultUser(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, first.Username, second.Username)
}
