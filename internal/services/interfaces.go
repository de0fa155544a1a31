package services

import (
	"context"

	"github.com/mrlokans/savepoint/internal/database/imported"
	"github.com/mrlokans/savepoint/internal/entities"
	"github.com/mrlokans/savepoint/internal/importers"
	"github.com/mrlokans/savepoint/internal/steam"
)

// LibraryFetcher reads a user's owned games from the external storefront.
type LibraryFetcher interface {
	ResolveAccount(ctx context.Context, input string) (string, error)
	Fetch(ctx context.Context, steamID64 string) (*steam.Library, error)
}

// Importer reconciles fetched candidates with the user's library.
type Importer interface {
	ImportAll(ctx context.Context, userID uint, candidates []entities.ImportCandidate, rejected []importers.Rejected) (importers.Summary, error)
}

type UserStore interface {
	GetUserByID(ctx context.Context, id uint) (*entities.User, error)
	LinkSteamAccount(ctx context.Context, userID uint, steamID64 string) error
}

// RunStore keeps the import run history.
type RunStore interface {
	Create(ctx context.Context, run *entities.ImportRun) error
	MarkRunning(ctx context.Context, id string) error
	Finish(ctx context.Context, run *entities.ImportRun) error
	Get(ctx context.Context, userID uint, id string) (*entities.ImportRun, error)
	ListRecent(ctx context.Context, userID uint, limit int) ([]entities.ImportRun, error)
}

type ImportedReader interface {
	List(ctx context.Context, userID uint, q imported.Query) (imported.Page, error)
}

// IgnoreStore manages the per-user list of titles hidden from imports.
type IgnoreStore interface {
	Add(ctx context.Context, userID uint, normalizedTitle, rawTitle string) error
	Remove(ctx context.Context, userID uint, normalizedTitle string) (bool, error)
	List(ctx context.Context, userID uint) ([]entities.IgnoredEntry, error)
}

// ImportQueue schedules a queued run for background execution.
type ImportQueue interface {
	EnqueueImport(ctx context.Context, userID uint, runID string) error
}

// Auditor records import and ignore list activity. Satisfied by audit.Service.
type Auditor interface {
	LogImport(userID uint, runID string, summary importers.Summary, err error)
	LogIgnore(userID uint, action, rawTitle string)
}
