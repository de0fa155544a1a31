// Package services holds the application operations behind the HTTP API,
// the CLI and background tasks.
package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/google/uuid"

	"github.com/mrlokans/savepoint/internal/database/imported"
	"github.com/mrlokans/savepoint/internal/database/users"
	"github.com/mrlokans/savepoint/internal/entities"
	"github.com/mrlokans/savepoint/internal/importers"
	"github.com/mrlokans/savepoint/internal/steam"
	"github.com/mrlokans/savepoint/internal/titles"
)

var (
	ErrUnauthenticated = errors.New("unauthenticated")
	ErrEmptyTitle      = errors.New("title is empty after normalization")
	ErrNotIgnored      = errors.New("title is not on the ignore list")
	ErrQueueDisabled   = errors.New("background imports are disabled")
)

type RunErrorKind string

const (
	RunFetchUnauthorized RunErrorKind = "fetch_unauthorized"
	RunFetchUnavailable  RunErrorKind = "fetch_unavailable"
	RunInvalidAccount    RunErrorKind = "invalid_account"
)

// RunError aborts a whole import run before any candidate is processed.
type RunError struct {
	Kind RunErrorKind
	Err  error
}

func (e *RunError) Error() string {
	return fmt.Sprintf("import run failed (%s): %v", e.Kind, e.Err)
}

func (e *RunError) Unwrap() error {
	return e.Err
}

// ImportReport is the outcome of one import run.
type ImportReport struct {
	RunID     string `json:"run_id"`
	SteamID64 string `json:"steam_id"`
	importers.Summary
}

type LibraryImportService struct {
	fetcher  LibraryFetcher
	importer Importer
	users    UserStore
	runs     RunStore
	imported ImportedReader
	ignored  IgnoreStore
	queue    ImportQueue
	audit    Auditor
}

func NewLibraryImportService(fetcher LibraryFetcher, importer Importer, users UserStore, runs RunStore, imported ImportedReader, ignored IgnoreStore) *LibraryImportService {
	return &LibraryImportService{
		fetcher:  fetcher,
		importer: importer,
		users:    users,
		runs:     runs,
		imported: imported,
		ignored:  ignored,
	}
}

// SetAuditor enables the activity trail.
func (s *LibraryImportService) SetAuditor(a Auditor) {
	s.audit = a
}

// SetQueue enables QueueImport.
func (s *LibraryImportService) SetQueue(q ImportQueue) {
	s.queue = q
}

// StartImport fetches the user's Steam library and imports it. accountRef
// may be a Steam ID64 or a vanity name; when empty the user's linked Steam
// account is used. Calling it again for the same library is safe: entries
// already imported are reported as skippedOwned.
func (s *LibraryImportService) StartImport(ctx context.Context, userID uint, accountRef string) (*ImportReport, error) {
	if userID == 0 {
		return nil, ErrUnauthenticated
	}

	run := newRun(userID, accountRef, entities.ImportRunStatusRunning)
	if err := s.runs.Create(ctx, run); err != nil {
		return nil, err
	}
	return s.execute(ctx, run)
}

// QueueImport records a queued run and hands it to the background queue.
func (s *LibraryImportService) QueueImport(ctx context.Context, userID uint, accountRef string) (*entities.ImportRun, error) {
	if userID == 0 {
		return nil, ErrUnauthenticated
	}
	if s.queue == nil {
		return nil, ErrQueueDisabled
	}

	run := newRun(userID, accountRef, entities.ImportRunStatusQueued)
	if err := s.runs.Create(ctx, run); err != nil {
		return nil, err
	}
	if err := s.queue.EnqueueImport(ctx, userID, run.ID); err != nil {
		run.Status = entities.ImportRunStatusFailed
		run.Error = err.Error()
		if finishErr := s.runs.Finish(context.WithoutCancel(ctx), run); finishErr != nil {
			slog.Error("failed to mark unqueued run as failed", "run_id", run.ID, "error", finishErr)
		}
		return nil, fmt.Errorf("failed to enqueue import: %w", err)
	}

	slog.Info("import run queued", "run_id", run.ID, "user_id", userID)
	return run, nil
}

// ExecuteRun runs a previously queued import. Runs that already finished
// are left alone and return a nil report.
func (s *LibraryImportService) ExecuteRun(ctx context.Context, userID uint, runID string) (*ImportReport, error) {
	run, err := s.runs.Get(ctx, userID, runID)
	if err != nil {
		return nil, err
	}
	switch run.Status {
	case entities.ImportRunStatusQueued, entities.ImportRunStatusRunning:
	default:
		slog.Info("import run already finished, skipping", "run_id", run.ID, "status", run.Status)
		return nil, nil
	}

	if err := s.runs.MarkRunning(ctx, run.ID); err != nil {
		return nil, fmt.Errorf("failed to start import run: %w", err)
	}
	run.Status = entities.ImportRunStatusRunning
	return s.execute(ctx, run)
}

func (s *LibraryImportService) execute(ctx context.Context, run *entities.ImportRun) (*ImportReport, error) {
	logger := slog.With("run_id", run.ID, "user_id", run.UserID)

	steamID, err := s.resolveAccount(ctx, run.UserID, run.AccountRef)
	if err != nil {
		s.finish(ctx, run, importers.Summary{}, err)
		return nil, err
	}

	library, err := s.fetcher.Fetch(ctx, steamID)
	if err != nil {
		err = fetchError(ctx, err)
		s.finish(ctx, run, importers.Summary{}, err)
		return nil, err
	}
	logger.Info("steam library fetched",
		"steam_id", steamID, "candidates", len(library.Candidates), "rejected", len(library.Rejected))

	if run.AccountRef != "" {
		if err := s.users.LinkSteamAccount(ctx, run.UserID, steamID); err != nil {
			logger.Warn("failed to link steam account", "steam_id", steamID, "error", err)
		}
	}

	rejected := make([]importers.Rejected, len(library.Rejected))
	for i, r := range library.Rejected {
		rejected[i] = importers.Rejected{Title: r.Name, Reason: r.Reason}
		if r.AppID > 0 {
			rejected[i].ExternalID = strconv.FormatInt(r.AppID, 10)
		}
	}

	summary, err := s.importer.ImportAll(ctx, run.UserID, library.Candidates, rejected)
	s.finish(ctx, run, summary, err)

	report := &ImportReport{RunID: run.ID, SteamID64: steamID, Summary: summary}
	if err != nil {
		return report, err
	}
	return report, nil
}

func (s *LibraryImportService) resolveAccount(ctx context.Context, userID uint, accountRef string) (string, error) {
	if accountRef == "" {
		user, err := s.users.GetUserByID(ctx, userID)
		if errors.Is(err, users.ErrUserNotFound) {
			return "", ErrUnauthenticated
		}
		if err != nil {
			return "", err
		}
		if user.SteamID64 == "" {
			return "", &RunError{Kind: RunInvalidAccount, Err: errors.New("no steam account linked")}
		}
		return user.SteamID64, nil
	}

	steamID, err := s.fetcher.ResolveAccount(ctx, accountRef)
	if err != nil {
		return "", fetchError(ctx, err)
	}
	return steamID, nil
}

// finish records the run outcome. It runs even when ctx is cancelled so a
// cancelled run is not left in the running state.
func (s *LibraryImportService) finish(ctx context.Context, run *entities.ImportRun, summary importers.Summary, runErr error) {
	run.Total = summary.Total
	run.Imported = summary.Imported
	run.SkippedOwned = summary.SkippedOwned
	run.SkippedIgnored = summary.SkippedIgnored
	run.Failed = summary.Failed
	run.Unprocessed = summary.Unprocessed

	switch {
	case runErr == nil:
		run.Status = entities.ImportRunStatusCompleted
	case errors.Is(runErr, context.Canceled), errors.Is(runErr, context.DeadlineExceeded):
		run.Status = entities.ImportRunStatusCancelled
		run.Error = runErr.Error()
	default:
		run.Status = entities.ImportRunStatusFailed
		run.Error = runErr.Error()
	}

	if err := s.runs.Finish(context.WithoutCancel(ctx), run); err != nil {
		slog.Error("failed to record import run", "run_id", run.ID, "error", err)
	}
	if s.audit != nil {
		s.audit.LogImport(run.UserID, run.ID, summary, runErr)
	}
}

func fetchError(ctx context.Context, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	switch {
	case errors.Is(err, steam.ErrInvalidAccount):
		return &RunError{Kind: RunInvalidAccount, Err: err}
	case errors.Is(err, steam.ErrUnauthorized):
		return &RunError{Kind: RunFetchUnauthorized, Err: err}
	default:
		return &RunError{Kind: RunFetchUnavailable, Err: err}
	}
}

func newRun(userID uint, accountRef string, status entities.ImportRunStatus) *entities.ImportRun {
	return &entities.ImportRun{
		ID:         uuid.NewString(),
		UserID:     userID,
		Storefront: entities.StorefrontSteam,
		AccountRef: accountRef,
		Status:     status,
	}
}

// ListImported returns one page of the user's imported library.
func (s *LibraryImportService) ListImported(ctx context.Context, userID uint, q imported.Query) (imported.Page, error) {
	if userID == 0 {
		return imported.Page{}, ErrUnauthenticated
	}
	return s.imported.List(ctx, userID, q)
}

// IgnoreCandidate hides a title from future imports. Ignoring an already
// ignored title is a no-op.
func (s *LibraryImportService) IgnoreCandidate(ctx context.Context, userID uint, rawTitle string) error {
	if userID == 0 {
		return ErrUnauthenticated
	}
	normalized := titles.Normalize(rawTitle)
	if normalized == "" {
		return ErrEmptyTitle
	}
	if err := s.ignored.Add(ctx, userID, normalized, rawTitle); err != nil {
		return err
	}
	if s.audit != nil {
		s.audit.LogIgnore(userID, "ignore_add", rawTitle)
	}
	return nil
}

func (s *LibraryImportService) UnignoreCandidate(ctx context.Context, userID uint, rawTitle string) error {
	if userID == 0 {
		return ErrUnauthenticated
	}
	normalized := titles.Normalize(rawTitle)
	if normalized == "" {
		return ErrEmptyTitle
	}
	removed, err := s.ignored.Remove(ctx, userID, normalized)
	if err != nil {
		return err
	}
	if !removed {
		return ErrNotIgnored
	}
	if s.audit != nil {
		s.audit.LogIgnore(userID, "ignore_remove", rawTitle)
	}
	return nil
}

func (s *LibraryImportService) ListIgnored(ctx context.Context, userID uint) ([]entities.IgnoredEntry, error) {
	if userID == 0 {
		return nil, ErrUnauthenticated
	}
	return s.ignored.List(ctx, userID)
}

// ListRuns returns the user's most recent import runs.
func (s *LibraryImportService) ListRuns(ctx context.Context, userID uint, limit int) ([]entities.ImportRun, error) {
	if userID == 0 {
		return nil, ErrUnauthenticated
	}
	return s.runs.ListRecent(ctx, userID, limit)
}

func (s *LibraryImportService) GetRun(ctx context.Context, userID uint, runID string) (*entities.ImportRun, error) {
	if userID == 0 {
		return nil, ErrUnauthenticated
	}
	return s.runs.Get(ctx, userID, runID)
}
