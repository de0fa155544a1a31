// Package scheduler enqueues periodic maintenance tasks on a cron schedule.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/mikestefanello/backlite"
	"github.com/robfig/cron/v3"

	"github.com/mrlokans/savepoint/internal/config"
	"github.com/mrlokans/savepoint/internal/tasks"
)

var parser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)

// Enqueuer is satisfied by tasks.Client.
type Enqueuer interface {
	Enqueue(ctx context.Context, task backlite.Task) error
}

// MaintenanceScheduler periodically enqueues cleanup of expired rate limit
// windows and sessions, and retention of import runs and audit events.
type MaintenanceScheduler struct {
	queue    Enqueuer
	cfg      config.Scheduler
	sessions bool

	cron      *cron.Cron
	entries   map[string]cron.EntryID
	mu        sync.RWMutex
	isRunning bool
}

func NewMaintenanceScheduler(queue Enqueuer, cfg config.Scheduler) *MaintenanceScheduler {
	return &MaintenanceScheduler{
		queue:   queue,
		cfg:     cfg,
		cron:    cron.New(cron.WithParser(parser)),
		entries: make(map[string]cron.EntryID),
	}
}

// EnableSessionCleanup adds expired session cleanup to the jobs. Only call
// it when a session queue is registered. Must be called before Start.
func (s *MaintenanceScheduler) EnableSessionCleanup() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions = true
}

// ValidateCronSchedule checks a five-field cron expression.
func ValidateCronSchedule(schedule string) error {
	_, err := parser.Parse(schedule)
	return err
}

// NextRunTime returns the first activation of schedule after from.
func NextRunTime(schedule string, from time.Time) (time.Time, error) {
	sched, err := parser.Parse(schedule)
	if err != nil {
		return time.Time{}, err
	}
	return sched.Next(from), nil
}

// Start registers the jobs and starts the cron loop. It stops the loop when
// ctx is cancelled.
func (s *MaintenanceScheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isRunning {
		return nil
	}
	if !s.cfg.Enabled {
		slog.Info("maintenance scheduler disabled")
		return nil
	}

	type job struct {
		name     string
		schedule string
		task     func() backlite.Task
	}
	jobs := []job{
		{"rate_limit_cleanup", s.cfg.RateLimitCleanup, func() backlite.Task { return tasks.CleanupRateLimitWindowsTask{} }},
		{"import_run_retention", s.cfg.ImportRunRetention, func() backlite.Task {
			return tasks.CleanupImportRunsTask{RetentionDays: s.cfg.RunRetentionDays}
		}},
		{"audit_retention", s.cfg.ImportRunRetention, func() backlite.Task {
			return tasks.CleanupAuditEventsTask{RetentionDays: s.cfg.AuditRetentionDays}
		}},
	}
	if s.sessions {
		jobs = append(jobs, job{"session_cleanup", s.cfg.RateLimitCleanup, func() backlite.Task { return tasks.CleanupSessionsTask{} }})
	}

	for _, job := range jobs {
		if err := ValidateCronSchedule(job.schedule); err != nil {
			return fmt.Errorf("invalid cron schedule '%s' for %s: %w", job.schedule, job.name, err)
		}
	}

	for _, job := range jobs {
		name, newTask := job.name, job.task
		id, err := s.cron.AddFunc(job.schedule, func() { s.enqueue(ctx, name, newTask()) })
		if err != nil {
			return fmt.Errorf("failed to schedule %s: %w", name, err)
		}
		s.entries[name] = id
	}

	s.cron.Start()
	s.isRunning = true
	slog.Info("maintenance scheduler started",
		"rate_limit_cleanup", s.cfg.RateLimitCleanup,
		"import_run_retention", s.cfg.ImportRunRetention)

	go func() {
		<-ctx.Done()
		s.Stop()
	}()

	return nil
}

// Stop waits for any running job and stops the cron loop.
func (s *MaintenanceScheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.isRunning {
		return
	}

	<-s.cron.Stop().Done()
	for name, id := range s.entries {
		s.cron.Remove(id)
		delete(s.entries, name)
	}
	s.isRunning = false
	slog.Info("maintenance scheduler stopped")
}

// RunNow enqueues every maintenance task immediately.
func (s *MaintenanceScheduler) RunNow(ctx context.Context) error {
	all := []backlite.Task{
		tasks.CleanupRateLimitWindowsTask{},
		tasks.CleanupImportRunsTask{RetentionDays: s.cfg.RunRetentionDays},
		tasks.CleanupAuditEventsTask{RetentionDays: s.cfg.AuditRetentionDays},
	}
	s.mu.RLock()
	if s.sessions {
		all = append(all, tasks.CleanupSessionsTask{})
	}
	s.mu.RUnlock()

	for _, task := range all {
		if err := s.queue.Enqueue(ctx, task); err != nil {
			return err
		}
	}
	return nil
}

func (s *MaintenanceScheduler) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}

// NextRun returns when the named job fires next, or nil if it is not scheduled.
func (s *MaintenanceScheduler) NextRun(name string) *time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.entries[name]
	if !ok || !s.isRunning {
		return nil
	}
	next := s.cron.Entry(id).Next
	return &next
}

func (s *MaintenanceScheduler) enqueue(ctx context.Context, name string, task backlite.Task) {
	if err := s.queue.Enqueue(ctx, task); err != nil {
		slog.Error("failed to enqueue maintenance task", "job", name, "error", err)
		return
	}
	slog.Debug("maintenance task enqueued", "job", name)
}
