// Package runs keeps the history of library import runs.
package runs

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/mrlokans/savepoint/internal/entities"
)

var ErrRunNotFound = errors.New("import run not found")

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Create saves a new run row.
func (r *Repository) Create(ctx context.Context, run *entities.ImportRun) error {
	now := time.Now()
	if run.StartedAt.IsZero() {
		run.StartedAt = now
	}
	run.UpdatedAt = now
	if err := r.db.WithContext(ctx).Create(run).Error; err != nil {
		return fmt.Errorf("failed to create import run: %w", err)
	}
	return nil
}

// MarkRunning flips a queued run to running.
func (r *Repository) MarkRunning(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Model(&entities.ImportRun{}).Where("id = ?", id).Updates(map[string]any{
		"status":     entities.ImportRunStatusRunning,
		"updated_at": time.Now(),
	}).Error
}

// Finish stores the final counts and status of a run.
func (r *Repository) Finish(ctx context.Context, run *entities.ImportRun) error {
	now := time.Now()
	run.UpdatedAt = now
	run.CompletedAt = &now
	result := r.db.WithContext(ctx).Model(&entities.ImportRun{}).Where("id = ?", run.ID).Updates(map[string]any{
		"status":          run.Status,
		"total":           run.Total,
		"imported":        run.Imported,
		"skipped_owned":   run.SkippedOwned,
		"skipped_ignored": run.SkippedIgnored,
		"failed":          run.Failed,
		"unprocessed":     run.Unprocessed,
		"error":           run.Error,
		"updated_at":      now,
		"completed_at":    now,
	})
	if result.Error != nil {
		return fmt.Errorf("failed to finish import run: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrRunNotFound
	}
	return nil
}

// Get retrieves a run owned by userID.
func (r *Repository) Get(ctx context.Context, userID uint, id string) (*entities.ImportRun, error) {
	var run entities.ImportRun
	err := r.db.WithContext(ctx).Where("id = ? AND user_id = ?", id, userID).First(&run).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrRunNotFound
	}
	if err != nil {
		return nil, err
	}
	return &run, nil
}

// ListRecent returns the user's runs, most recent first.
func (r *Repository) ListRecent(ctx context.Context, userID uint, limit int) ([]entities.ImportRun, error) {
	if limit <= 0 {
		limit = 20
	}
	var runs []entities.ImportRun
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("started_at DESC").
		Limit(limit).
		Find(&runs).Error
	return runs, err
}

// DeleteOlderThan removes finished runs that started before cutoff.
// Returns the number of deleted runs.
func (r *Repository) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("started_at < ? AND status NOT IN ?", cutoff, []entities.ImportRunStatus{entities.ImportRunStatusQueued, entities.ImportRunStatusRunning}).
		Delete(&entities.ImportRun{})
	return result.RowsAffected, result.Error
}
