// Package imported persists the outcome of every imported external library
// entry and serves the filtered, sorted, paginated view over it.
package imported

import (
	"context"
	"fmt"
	"strings"
	"time"

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

// Upsert writes game keyed by (user, storefront, storefront game id). An
// existing row, including a soft-deleted one, is overwritten with the
// latest import result.
func (r *Repository) Upsert(ctx context.Context, game *entities.ImportedGame) error {
	if game.MatchStatus == "" {
		game.MatchStatus = entities.MatchStatusPending
	}
	// Timestamps are compared as text by SQLite, so keep them in one zone.
	if game.LastPlayedAt != nil {
		utc := game.LastPlayedAt.UTC()
		game.LastPlayedAt = &utc
	}
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "user_id"}, {Name: "storefront"}, {Name: "storefront_game_id"}},
		DoUpdates: clause.Assignments(map[string]any{
			"name":             game.Name,
			"playtime":         game.Playtime,
			"playtime_windows": game.PlaytimeWindows,
			"playtime_mac":     game.PlaytimeMac,
			"playtime_linux":   game.PlaytimeLinux,
			"platform":         game.Platform,
			"last_played_at":   game.LastPlayedAt,
			"match_status":     game.MatchStatus,
			"catalog_id":       game.CatalogID,
			"failure_reason":   game.FailureReason,
			"updated_at":       time.Now(),
			"deleted_at":       nil,
		}),
	}).Create(game).Error
	if err != nil {
		return fmt.Errorf("failed to upsert imported game %s/%s: %w", game.Storefront, game.StorefrontGameID, err)
	}
	return nil
}

// KnownCatalogIDs maps storefront game ids to the catalog ids that earlier
// runs resolved them to.
func (r *Repository) KnownCatalogIDs(ctx context.Context, userID uint, storefront entities.Storefront) (map[string]int64, error) {
	var rows []struct {
		StorefrontGameID string
		CatalogID        int64
	}
	err := r.db.WithContext(ctx).
		Model(&entities.ImportedGame{}).
		Select("storefront_game_id, catalog_id").
		Where("user_id = ? AND storefront = ? AND catalog_id IS NOT NULL", userID, storefront).
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load known catalog ids: %w", err)
	}

	known := make(map[string]int64, len(rows))
	for _, row := range rows {
		known[row.StorefrontGameID] = row.CatalogID
	}
	return known, nil
}

// List returns one page of the user's imported games.
func (r *Repository) List(ctx context.Context, userID uint, q Query) (Page, error) {
	q = q.normalized()
	if err := q.validate(); err != nil {
		return Page{}, err
	}

	base := r.db.WithContext(ctx).Model(&entities.ImportedGame{}).Where("user_id = ?", userID)
	base = applyFilters(base, q)

	var total int64
	if err := base.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return Page{}, fmt.Errorf("failed to count imported games: %w", err)
	}

	page := Page{
		Items: []entities.ImportedGame{},
		Pagination: Pagination{
			Page:       q.Page,
			PageSize:   q.PageSize,
			Total:      total,
			TotalPages: int((total + int64(q.PageSize) - 1) / int64(q.PageSize)),
		},
	}

	// Compare page indexes rather than offsets so a huge page cannot overflow.
	if total == 0 || int64(q.Page-1) > (total-1)/int64(q.PageSize) {
		return page, nil
	}
	offset := (q.Page - 1) * q.PageSize

	err := base.Session(&gorm.Session{}).
		Order(orderClause(q)).
		Order("id ASC").
		Limit(q.PageSize).
		Offset(offset).
		Find(&page.Items).Error
	if err != nil {
		return Page{}, fmt.Errorf("failed to list imported games: %w", err)
	}
	return page, nil
}

// SoftDelete hides an imported game from the list until the next import
// brings it back.
func (r *Repository) SoftDelete(ctx context.Context, userID, id uint) (bool, error) {
	result := r.db.WithContext(ctx).Where("id = ? AND user_id = ?", id, userID).Delete(&entities.ImportedGame{})
	if result.Error != nil {
		return false, fmt.Errorf("failed to delete imported game: %w", result.Error)
	}
	return result.RowsAffected > 0, nil
}

func applyFilters(db *gorm.DB, q Query) *gorm.DB {
	if search := strings.TrimSpace(q.Search); search != "" {
		db = db.Where("LOWER(name) LIKE ? ESCAPE '\\'", "%"+escapeLike(strings.ToLower(search))+"%")
	}

	switch q.Platform {
	case "windows":
		db = db.Where("playtime_windows > 0")
	case "mac":
		db = db.Where("playtime_mac > 0")
	case "linux":
		db = db.Where("playtime_linux > 0")
	}

	if q.LastPlayed.Never {
		db = db.Where("last_played_at IS NULL")
	} else {
		if q.LastPlayed.After != nil {
			db = db.Where("last_played_at >= ?", q.LastPlayed.After.UTC())
		}
		if q.LastPlayed.Before != nil {
			db = db.Where("last_played_at < ?", q.LastPlayed.Before.UTC())
		}
	}

	if q.Playtime.Min != nil {
		db = db.Where("playtime >= ?", *q.Playtime.Min)
	}
	if q.Playtime.Max != nil {
		db = db.Where("playtime < ?", *q.Playtime.Max)
	}

	if q.MatchStatus != "" {
		db = db.Where("match_status = ?", q.MatchStatus)
	}
	return db
}

func orderClause(q Query) string {
	dir := "ASC"
	if q.SortOrder == SortDesc {
		dir = "DESC"
	}
	switch q.SortBy {
	case SortByTitle:
		return "LOWER(name) " + dir
	case SortByPlaytime:
		return "playtime " + dir
	case SortByPlatform:
		return "platform " + dir
	case SortByLastPlayed:
		// Never-played entries sort last in both directions.
		return "last_played_at IS NULL, last_played_at " + dir
	default:
		return "created_at " + dir
	}
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
