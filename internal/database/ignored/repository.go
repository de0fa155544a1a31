// Package ignored provides database operations for the per-user ignore list.
// Entries are keyed by normalized title so that spelling variants of the
// same game collapse onto one entry.
package ignored

import (
	"context"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/mrlokans/savepoint/internal/entities"
)

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Add records an ignore entry. Adding an already ignored title is a no-op.
func (r *Repository) Add(ctx context.Context, userID uint, normalizedTitle, rawTitle string) error {
	entry := &entities.IgnoredEntry{
		UserID:          userID,
		NormalizedTitle: normalizedTitle,
		Title:           rawTitle,
	}
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(entry).Error
	if err != nil {
		return fmt.Errorf("failed to add ignored entry: %w", err)
	}
	return nil
}

// Remove deletes the ignore entry for normalizedTitle and reports whether one existed.
func (r *Repository) Remove(ctx context.Context, userID uint, normalizedTitle string) (bool, error) {
	result := r.db.WithContext(ctx).
		Where("user_id = ? AND normalized_title = ?", userID, normalizedTitle).
		Delete(&entities.IgnoredEntry{})
	if result.Error != nil {
		return false, fmt.Errorf("failed to remove ignored entry: %w", result.Error)
	}
	return result.RowsAffected > 0, nil
}

// List returns the user's ignore list, oldest first.
func (r *Repository) List(ctx context.Context, userID uint) ([]entities.IgnoredEntry, error) {
	var entries []entities.IgnoredEntry
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at ASC, id ASC").
		Find(&entries).Error
	return entries, err
}

// NormalizedTitles returns the set of ignored normalized titles for the user.
func (r *Repository) NormalizedTitles(ctx context.Context, userID uint) (map[string]struct{}, error) {
	var titles []string
	err := r.db.WithContext(ctx).
		Model(&entities.IgnoredEntry{}).
		Where("user_id = ?", userID).
		Pluck("normalized_title", &titles).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load ignored titles: %w", err)
	}

	set := make(map[string]struct{}, len(titles))
	for _, t := range titles {
		set[t] = struct{}{}
	}
	return set, nil
}
