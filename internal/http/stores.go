package http

import (
	"context"

	"github.com/mikestefanello/backlite"

	"github.com/mrlokans/savepoint/internal/auth"
	"github.com/mrlokans/savepoint/internal/database/imported"
	"github.com/mrlokans/savepoint/internal/entities"
	"github.com/mrlokans/savepoint/internal/services"
)

// ImportAPI is the part of services.LibraryImportService the controllers use.
type ImportAPI interface {
	StartImport(ctx context.Context, userID uint, accountRef string) (*services.ImportReport, error)
	QueueImport(ctx context.Context, userID uint, accountRef string) (*entities.ImportRun, error)
	ListRuns(ctx context.Context, userID uint, limit int) ([]entities.ImportRun, error)
	GetRun(ctx context.Context, userID uint, runID string) (*entities.ImportRun, error)

	ListImported(ctx context.Context, userID uint, q imported.Query) (imported.Page, error)
	IgnoreCandidate(ctx context.Context, userID uint, rawTitle string) error
	UnignoreCandidate(ctx context.Context, userID uint, rawTitle string) error
	ListIgnored(ctx context.Context, userID uint) ([]entities.IgnoredEntry, error)
}

// TaskStatusReader is satisfied by tasks.Client.
type TaskStatusReader interface {
	Status(ctx context.Context, taskID string) (backlite.TaskStatus, error)
}

// MaintenanceRunner is satisfied by scheduler.MaintenanceScheduler.
type MaintenanceRunner interface {
	RunNow(ctx context.Context) error
}

// AuditLog is satisfied by audit.Service.
type AuditLog interface {
	auth.EventLogger
	Events(ctx context.Context, userID uint, eventType entities.AuditEventType, limit, offset int) ([]entities.AuditEvent, int64, error)
}
