// Package games stores the shared catalog records. A record is created
// lazily the first time any user's import resolves its catalog id.
package games

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/mrlokans/savepoint/internal/database"
	"github.com/mrlokans/savepoint/internal/entities"
)

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// FindByCatalogID returns the record for catalogID, or (nil, nil) when none exists.
func (r *Repository) FindByCatalogID(ctx context.Context, catalogID int64) (*entities.Game, error) {
	var game entities.Game
	err := r.db.WithContext(ctx).Where("catalog_id = ?", catalogID).First(&game).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find game %d: %w", catalogID, err)
	}
	return &game, nil
}

// CreateIfAbsent inserts game unless a record with the same catalog id
// already exists. A concurrent insert that wins the unique constraint is
// returned in place of ours.
func (r *Repository) CreateIfAbsent(ctx context.Context, game *entities.Game) (*entities.Game, error) {
	err := r.db.WithContext(ctx).Create(game).Error
	if err == nil {
		return game, nil
	}
	if !database.IsUniqueViolation(err) {
		return nil, fmt.Errorf("failed to create game %d: %w", game.CatalogID, err)
	}

	existing, err := r.FindByCatalogID(ctx, game.CatalogID)
	if err != nil {
		return nil, err
	}
	if existing == nil {
		return nil, fmt.Errorf("game %d vanished after duplicate insert", game.CatalogID)
	}
	return existing, nil
}

// GetByID retrieves a game by its local primary key.
func (r *Repository) GetByID(ctx context.Context, id uint) (*entities.Game, error) {
	var game entities.Game
	if err := r.db.WithContext(ctx).First(&game, id).Error; err != nil {
		return nil, err
	}
	return &game, nil
}
