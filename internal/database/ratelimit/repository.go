// Package ratelimit is the shared counter store behind the request limiter.
// Every process pointed at the same database sees the same windows.
package ratelimit

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/mrlokans/savepoint/internal/entities"
)

// hitSQL increments the window for a key, starting a fresh window when the
// stored one has elapsed, in a single statement.
const hitSQL = `
INSERT INTO rate_limit_windows (bucket_key, hits, reset_at_ms) VALUES (?, 1, ?)
ON CONFLICT(bucket_key) DO UPDATE SET
	hits = CASE WHEN rate_limit_windows.reset_at_ms <= ? THEN 1 ELSE rate_limit_windows.hits + 1 END,
	reset_at_ms = CASE WHEN rate_limit_windows.reset_at_ms <= ? THEN excluded.reset_at_ms ELSE rate_limit_windows.reset_at_ms END
RETURNING hits, reset_at_ms`

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Hit records one request against key and returns the count in the current
// window together with the window's reset time.
func (r *Repository) Hit(ctx context.Context, key string, window time.Duration, now time.Time) (int, time.Time, error) {
	nowMs := now.UnixMilli()
	resetMs := now.Add(window).UnixMilli()

	var row entities.RateLimitWindow
	err := r.db.WithContext(ctx).Raw(hitSQL, key, resetMs, nowMs, nowMs).Scan(&row).Error
	if err != nil {
		return 0, time.Time{}, fmt.Errorf("rate limit hit for %q: %w", key, err)
	}
	return row.Hits, time.UnixMilli(row.ResetAtMs), nil
}

// DeleteExpired removes windows that elapsed before now.
func (r *Repository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("reset_at_ms <= ?", now.UnixMilli()).
		Delete(&entities.RateLimitWindow{})
	return result.RowsAffected, result.Error
}
