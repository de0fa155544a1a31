package importers

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/mrlokans/savepoint/internal/catalog"
	"github.com/mrlokans/savepoint/internal/database/library"
	"github.com/mrlokans/savepoint/internal/dedup"
	"github.com/mrlokans/savepoint/internal/entities"
)

const DefaultWorkers = 4

// LibraryPlatform is recorded on library items created by an import.
const LibraryPlatform = "PC"

type FailureKind string

const (
	FailureRateLimited        FailureKind = "rate_limited"
	FailureCatalogUnavailable FailureKind = "catalog_unavailable"
	FailureNoCatalogMatch     FailureKind = "no_catalog_match"
	FailureFetchUnavailable   FailureKind = "fetch_unavailable"
	FailureStorage            FailureKind = "storage"
)

// Failure describes why one candidate was not imported.
type Failure struct {
	ExternalID string        `json:"external_id,omitempty"`
	Title      string        `json:"title,omitempty"`
	Kind       FailureKind   `json:"kind"`
	Message    string        `json:"message"`
	Remaining  *int          `json:"remaining,omitempty"`   // Catalog quota left, for rate_limited
	RetryAfter time.Duration `json:"-"`
	// RetryAfterSeconds is RetryAfter rounded up to whole seconds, for rate_limited.
	RetryAfterSeconds int `json:"retry_after_seconds,omitempty"`
}

// Summary counts every candidate of a run exactly once.
type Summary struct {
	Total          int       `json:"total"`
	Imported       int       `json:"imported"`
	SkippedOwned   int       `json:"skipped_owned"`
	SkippedIgnored int       `json:"skipped_ignored"`
	Failed         int       `json:"failed"`
	Unprocessed    int       `json:"unprocessed"`
	Failures       []Failure `json:"failures"`
}

// Rejected is a source entry that failed strict parsing at the fetcher.
type Rejected struct {
	ExternalID string
	Title      string
	Reason     string
}

// Resolver maps a title to its shared catalog record.
type Resolver interface {
	Resolve(ctx context.Context, req catalog.Request) (*entities.Game, error)
}

type LibraryStore interface {
	ListOwned(ctx context.Context, userID uint) ([]library.OwnedGame, error)
	CreateIfAbsent(ctx context.Context, item *entities.LibraryItem) (bool, error)
}

type IgnoreList interface {
	NormalizedTitles(ctx context.Context, userID uint) (map[string]struct{}, error)
}

type ImportedStore interface {
	Upsert(ctx context.Context, game *entities.ImportedGame) error
	KnownCatalogIDs(ctx context.Context, userID uint, storefront entities.Storefront) (map[string]int64, error)
}

type Config struct {
	Workers    int
	Storefront entities.Storefront
}

type Orchestrator struct {
	resolver Resolver
	library  LibraryStore
	ignored  IgnoreList
	imported ImportedStore
	cfg      Config
}

func NewOrchestrator(resolver Resolver, lib LibraryStore, ignored IgnoreList, imported ImportedStore, cfg Config) *Orchestrator {
	if cfg.Workers <= 0 {
		cfg.Workers = DefaultWorkers
	}
	if cfg.Storefront == "" {
		cfg.Storefront = entities.StorefrontSteam
	}
	return &Orchestrator{
		resolver: resolver,
		library:  lib,
		ignored:  ignored,
		imported: imported,
		cfg:      cfg,
	}
}

// CatalogRateKey is the limiter key charged for a user's catalog searches.
func CatalogRateKey(userID uint) string {
	return fmt.Sprintf("catalog:user:%d", userID)
}

// Snapshot reads the user's library, ignore list and earlier matches.
func (o *Orchestrator) Snapshot(ctx context.Context, userID uint) (dedup.Snapshot, error) {
	owned, err := o.library.ListOwned(ctx, userID)
	if err != nil {
		return dedup.Snapshot{}, err
	}
	ignored, err := o.ignored.NormalizedTitles(ctx, userID)
	if err != nil {
		return dedup.Snapshot{}, err
	}
	known, err := o.imported.KnownCatalogIDs(ctx, userID, o.cfg.Storefront)
	if err != nil {
		return dedup.Snapshot{}, err
	}

	games := make([]dedup.OwnedGame, len(owned))
	for i, g := range owned {
		games[i] = dedup.OwnedGame{CatalogID: g.CatalogID, Title: g.Title}
	}
	return dedup.NewSnapshot(games, ignored, known), nil
}

// ImportAll reconciles candidates with the user's library. Per-candidate
// failures are collected in the summary and never abort the run. When ctx
// is cancelled, work already committed is kept, candidates not yet started
// are counted as Unprocessed and ctx.Err() is returned with the partial
// summary.
func (o *Orchestrator) ImportAll(ctx context.Context, userID uint, candidates []entities.ImportCandidate, rejected []Rejected) (Summary, error) {
	acc := &accumulator{summary: Summary{
		Total:    len(candidates) + len(rejected),
		Failures: []Failure{},
	}}

	for _, r := range rejected {
		acc.reject(Failure{ExternalID: r.ExternalID, Title: r.Title, Kind: FailureFetchUnavailable, Message: r.Reason})
	}

	snapshot, err := o.Snapshot(ctx, userID)
	if err != nil {
		return acc.result(len(candidates)), fmt.Errorf("failed to load dedup snapshot: %w", err)
	}

	jobs := make(chan entities.ImportCandidate)
	var wg sync.WaitGroup
	for w := 0; w < o.cfg.Workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for c := range jobs {
				o.process(ctx, userID, snapshot, c, acc)
			}
		}()
	}

dispatch:
	for _, c := range candidates {
		if ctx.Err() != nil {
			break
		}
		select {
		case jobs <- c:
		case <-ctx.Done():
			break dispatch
		}
	}
	close(jobs)
	wg.Wait()

	summary := acc.result(len(candidates))
	slog.Info("import run finished",
		"user_id", userID,
		"storefront", o.cfg.Storefront,
		"total", summary.Total,
		"imported", summary.Imported,
		"skipped_owned", summary.SkippedOwned,
		"skipped_ignored", summary.SkippedIgnored,
		"failed", summary.Failed,
		"unprocessed", summary.Unprocessed,
	)

	if err := ctx.Err(); err != nil {
		return summary, err
	}
	return summary, nil
}

func (o *Orchestrator) process(ctx context.Context, userID uint, snapshot dedup.Snapshot, c entities.ImportCandidate, acc *accumulator) {
	if ctx.Err() != nil {
		return
	}

	record := &entities.ImportedGame{
		UserID:           userID,
		Storefront:       o.cfg.Storefront,
		StorefrontGameID: c.ExternalID,
		Name:             c.Title,
		Playtime:         c.Playtime,
		PlaytimeWindows:  c.PlaytimeWindows,
		PlaytimeMac:      c.PlaytimeMac,
		PlaytimeLinux:    c.PlaytimeLinux,
		Platform:         c.DominantPlatform(),
		LastPlayedAt:     c.LastPlayedAt,
	}
	if id, ok := snapshot.CatalogIDFor(c); ok {
		record.CatalogID = &id
	}

	switch dedup.Classify(snapshot, c) {
	case dedup.Ignored:
		record.MatchStatus = entities.MatchStatusIgnored
		acc.skipIgnored()
	case dedup.AlreadyOwned:
		record.MatchStatus = entities.MatchStatusOwned
		acc.skipOwned()
	default:
		if !o.importNew(ctx, userID, c, record, acc) {
			return
		}
	}

	// The outcome is final; record it even if the run is being cancelled.
	if err := o.imported.Upsert(context.WithoutCancel(ctx), record); err != nil {
		slog.Error("failed to record import outcome",
			"user_id", userID, "external_id", c.ExternalID, "status", record.MatchStatus, "error", err)
	}
}

// importNew resolves and adds a new candidate. It returns false when the
// candidate was abandoned because the run was cancelled.
func (o *Orchestrator) importNew(ctx context.Context, userID uint, c entities.ImportCandidate, record *entities.ImportedGame, acc *accumulator) bool {
	game, err := o.resolver.Resolve(ctx, catalog.Request{
		RateKey:    CatalogRateKey(userID),
		Title:      c.Title,
		ExternalID: c.ExternalID,
	})
	if err != nil {
		if ctx.Err() != nil {
			return false
		}
		failure := resolutionFailure(c, err)
		record.MatchStatus = entities.MatchStatusFailed
		if failure.Kind == FailureNoCatalogMatch {
			record.MatchStatus = entities.MatchStatusUnmatched
		}
		record.FailureReason = failure.Message
		acc.fail(failure)
		return true
	}

	catalogID := game.CatalogID
	record.CatalogID = &catalogID

	status := entities.LibraryItemStatusWantToPlay
	if c.Playtime > 0 {
		status = entities.LibraryItemStatusPlayed
	}
	created, err := o.library.CreateIfAbsent(ctx, &entities.LibraryItem{
		UserID:          userID,
		GameID:          game.ID,
		Status:          status,
		Platform:        LibraryPlatform,
		AcquisitionType: entities.AcquisitionTypeDigital,
	})
	switch {
	case err != nil:
		if ctx.Err() != nil {
			return false
		}
		record.MatchStatus = entities.MatchStatusFailed
		record.FailureReason = err.Error()
		acc.fail(Failure{ExternalID: c.ExternalID, Title: c.Title, Kind: FailureStorage, Message: err.Error()})
	case created:
		record.MatchStatus = entities.MatchStatusMatched
		acc.imported()
	default:
		record.MatchStatus = entities.MatchStatusOwned
		acc.skipOwned()
	}
	return true
}

func resolutionFailure(c entities.ImportCandidate, err error) Failure {
	f := Failure{ExternalID: c.ExternalID, Title: c.Title, Kind: FailureStorage, Message: err.Error()}

	var resErr *catalog.ResolutionError
	if !errors.As(err, &resErr) {
		return f
	}
	switch resErr.Kind {
	case catalog.KindRateLimited:
		remaining := resErr.Remaining
		f.Kind = FailureRateLimited
		f.Remaining = &remaining
		f.RetryAfter = resErr.RetryAfter
		f.RetryAfterSeconds = int(math.Ceil(resErr.RetryAfter.Seconds()))
	case catalog.KindNoCatalogMatch:
		f.Kind = FailureNoCatalogMatch
	default:
		f.Kind = FailureCatalogUnavailable
	}
	return f
}

// accumulator collects outcomes from concurrent workers.
type accumulator struct {
	mu        sync.Mutex
	summary   Summary
	completed int
}

func (a *accumulator) imported() {
	a.mu.Lock()
	a.summary.Imported++
	a.completed++
	a.mu.Unlock()
}

func (a *accumulator) skipOwned() {
	a.mu.Lock()
	a.summary.SkippedOwned++
	a.completed++
	a.mu.Unlock()
}

func (a *accumulator) skipIgnored() {
	a.mu.Lock()
	a.summary.SkippedIgnored++
	a.completed++
	a.mu.Unlock()
}

func (a *accumulator) fail(f Failure) {
	a.mu.Lock()
	a.summary.Failed++
	a.summary.Failures = append(a.summary.Failures, f)
	a.completed++
	a.mu.Unlock()
}

// reject counts an entry that never became a candidate.
func (a *accumulator) reject(f Failure) {
	a.mu.Lock()
	a.summary.Failed++
	a.summary.Failures = append(a.summary.Failures, f)
	a.mu.Unlock()
}

// result returns the summary, counting candidates that never completed as
// unprocessed.
func (a *accumulator) result(candidates int) Summary {
	a.mu.Lock()
	defer a.mu.Unlock()
	s := a.summary
	s.Failures = append([]Failure{}, a.summary.Failures...)
	s.Unprocessed = candidates - a.completed
	return s
}
