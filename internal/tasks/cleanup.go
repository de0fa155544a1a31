package tasks

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/mikestefanello/backlite"
)

// Retention used when a cleanup task carries none.
const (
	DefaultRunRetentionDays   = 30
	DefaultAuditRetentionDays = 90
)

type RateLimitCleaner interface {
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

type ImportRunCleaner interface {
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

type AuditEventCleaner interface {
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

type SessionCleaner interface {
	DeleteExpired(ctx context.Context) (int64, error)
}

func cleanupQueueConfig(name string) backlite.QueueConfig {
	return backlite.QueueConfig{
		Name:        name,
		MaxAttempts: 3,
		Backoff:     5 * time.Minute,
		Timeout:     2 * time.Minute,
		Retention: &backlite.Retention{
			Duration:   24 * time.Hour,
			OnlyFailed: false,
			Data:       &backlite.RetainData{OnlyFailed: true},
		},
	}
}

// CleanupRateLimitWindowsTask deletes shared rate limit counters whose
// window has ended.
type CleanupRateLimitWindowsTask struct{}

func (t CleanupRateLimitWindowsTask) Config() backlite.QueueConfig {
	return cleanupQueueConfig("cleanup_rate_limit_windows")
}

func CleanupRateLimitWindowsProcessor(cleaner RateLimitCleaner) backlite.QueueProcessor[CleanupRateLimitWindowsTask] {
	return func(ctx context.Context, _ CleanupRateLimitWindowsTask) error {
		if cleaner == nil {
			return errors.New("rate limit cleaner not configured")
		}
		deleted, err := cleaner.DeleteExpired(ctx, time.Now())
		if err != nil {
			return fmt.Errorf("cleanup rate limit windows: %w", err)
		}
		slog.Info("expired rate limit windows removed", "deleted", deleted)
		return nil
	}
}

func NewCleanupRateLimitWindowsQueue(cleaner RateLimitCleaner) backlite.Queue {
	return backlite.NewQueue(CleanupRateLimitWindowsProcessor(cleaner))
}

// CleanupImportRunsTask deletes finished import runs older than the
// retention period.
type CleanupImportRunsTask struct {
	RetentionDays int `json:"retention_days"`
}

func (t CleanupImportRunsTask) Config() backlite.QueueConfig {
	return cleanupQueueConfig("cleanup_import_runs")
}

func CleanupImportRunsProcessor(cleaner ImportRunCleaner) backlite.QueueProcessor[CleanupImportRunsTask] {
	return func(ctx context.Context, task CleanupImportRunsTask) error {
		if cleaner == nil {
			return errors.New("import run cleaner not configured")
		}

		days := task.RetentionDays
		if days <= 0 {
			days = DefaultRunRetentionDays
		}
		cutoff := time.Now().AddDate(0, 0, -days)

		deleted, err := cleaner.DeleteOlderThan(ctx, cutoff)
		if err != nil {
			return fmt.Errorf("cleanup import runs: %w", err)
		}
		slog.Info("old import runs removed", "deleted", deleted, "retention_days", days)
		return nil
	}
}

func NewCleanupImportRunsQueue(cleaner ImportRunCleaner) backlite.Queue {
	return backlite.NewQueue(CleanupImportRunsProcessor(cleaner))
}

// CleanupAuditEventsTask deletes audit events older than the retention
// period.
type CleanupAuditEventsTask struct {
	RetentionDays int `json:"retention_days"`
}

func (t CleanupAuditEventsTask) Config() backlite.QueueConfig {
	return cleanupQueueConfig("cleanup_audit_events")
}

func CleanupAuditEventsProcessor(cleaner AuditEventCleaner) backlite.QueueProcessor[CleanupAuditEventsTask] {
	return func(ctx context.Context, task CleanupAuditEventsTask) error {
		if cleaner == nil {
			return errors.New("audit event cleaner not configured")
		}

		days := task.RetentionDays
		if days <= 0 {
			days = DefaultAuditRetentionDays
		}

		deleted, err := cleaner.DeleteOlderThan(ctx, time.Now().AddDate(0, 0, -days))
		if err != nil {
			return fmt.Errorf("cleanup audit events: %w", err)
		}
		slog.Info("old audit events removed", "deleted", deleted, "retention_days", days)
		return nil
	}
}

func NewCleanupAuditEventsQueue(cleaner AuditEventCleaner) backlite.Queue {
	return backlite.NewQueue(CleanupAuditEventsProcessor(cleaner))
}

// CleanupSessionsTask deletes expired login sessions.
type CleanupSessionsTask struct{}

func (t CleanupSessionsTask) Config() backlite.QueueConfig {
	return cleanupQueueConfig("cleanup_sessions")
}

func CleanupSessionsProcessor(cleaner SessionCleaner) backlite.QueueProcessor[CleanupSessionsTask] {
	return func(ctx context.Context, _ CleanupSessionsTask) error {
		if cleaner == nil {
			return errors.New("session cleaner not configured")
		}
		deleted, err := cleaner.DeleteExpired(ctx)
		if err != nil {
			return fmt.Errorf("cleanup sessions: %w", err)
		}
		slog.Debug("expired sessions removed", "deleted", deleted)
		return nil
	}
}

func NewCleanupSessionsQueue(cleaner SessionCleaner) backlite.Queue {
	return backlite.NewQueue(CleanupSessionsProcessor(cleaner))
}
