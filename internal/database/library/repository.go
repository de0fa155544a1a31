// Package library provides database operations for per-user library items.
package library

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/mrlokans/savepoint/internal/database"
	"github.com/mrlokans/savepoint/internal/entities"
)

// OwnedGame is the catalog identity of one item in a user's library.
type OwnedGame struct {
	CatalogID int64
	Title     string
}

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// CreateIfAbsent inserts item and reports whether it was created. An item
// for the same (user, game) pair that already exists is not an error.
func (r *Repository) CreateIfAbsent(ctx context.Context, item *entities.LibraryItem) (bool, error) {
	err := r.db.WithContext(ctx).Omit("Game").Create(item).Error
	if err == nil {
		return true, nil
	}
	if database.IsUniqueViolation(err) {
		return false, nil
	}
	return false, fmt.Errorf("failed to create library item: %w", err)
}

// ListOwned returns the catalog identity of every game in the user's library.
func (r *Repository) ListOwned(ctx context.Context, userID uint) ([]OwnedGame, error) {
	var owned []OwnedGame
	err := r.db.WithContext(ctx).
		Table("library_items").
		Select("games.catalog_id AS catalog_id, games.title AS title").
		Joins("JOIN games ON games.id = library_items.game_id").
		Where("library_items.user_id = ?", userID).
		Scan(&owned).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list owned games: %w", err)
	}
	return owned, nil
}

// CountForUser returns how many items are in the user's library.
func (r *Repository) CountForUser(ctx context.Context, userID uint) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&entities.LibraryItem{}).Where("user_id = ?", userID).Count(&count).Error
	return count, err
}
