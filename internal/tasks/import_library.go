package tasks

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/mikestefanello/backlite"

	"github.com/mrlokans/savepoint/internal/services"
)

// RunExecutor executes a queued import run.
type RunExecutor interface {
	ExecuteRun(ctx context.Context, userID uint, runID string) (*services.ImportReport, error)
}

// ImportLibraryTask runs one queued library import in the background.
type ImportLibraryTask struct {
	UserID uint   `json:"user_id"`
	RunID  string `json:"run_id"`
}

// Config allows a single attempt: a failed run is recorded on the run row
// and the user decides when to start another one.
func (t ImportLibraryTask) Config() backlite.QueueConfig {
	return backlite.QueueConfig{
		Name:        "import_library",
		MaxAttempts: 1,
		Backoff:     time.Minute,
		Timeout:     30 * time.Minute,
		Retention: &backlite.Retention{
			Duration:   24 * time.Hour,
			OnlyFailed: false,
			Data:       &backlite.RetainData{OnlyFailed: true},
		},
	}
}

func ImportLibraryProcessor(executor RunExecutor) backlite.QueueProcessor[ImportLibraryTask] {
	return func(ctx context.Context, task ImportLibraryTask) error {
		if executor == nil {
			return errors.New("import executor not configured")
		}

		report, err := executor.ExecuteRun(ctx, task.UserID, task.RunID)
		if err != nil {
			return fmt.Errorf("import run %s: %w", task.RunID, err)
		}
		if report != nil {
			slog.Info("background import finished",
				"run_id", task.RunID, "user_id", task.UserID,
				"imported", report.Imported, "failed", report.Failed)
		}
		return nil
	}
}

func NewImportLibraryQueue(executor RunExecutor) backlite.Queue {
	return backlite.NewQueue(ImportLibraryProcessor(executor))
}
