// Package catalog resolves imported titles to shared catalog records.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/mrlokans/savepoint/internal/entities"
	"github.com/mrlokans/savepoint/internal/igdb"
	"github.com/mrlokans/savepoint/internal/ratelimit"
	"github.com/mrlokans/savepoint/internal/titles"
)

type ErrorKind string

const (
	KindRateLimited        ErrorKind = "rate_limited"
	KindCatalogUnavailable ErrorKind = "catalog_unavailable"
	KindNoCatalogMatch     ErrorKind = "no_catalog_match"
)

// ResolutionError is returned when a title cannot be resolved. RateLimited
// carries the remaining quota and how long to wait; it is never retried
// automatically. NoCatalogMatch is terminal and needs a manual match.
type ResolutionError struct {
	Kind       ErrorKind
	Title      string
	Remaining  int
	RetryAfter time.Duration
	Err        error
}

func (e *ResolutionError) Error() string {
	switch e.Kind {
	case KindRateLimited:
		return fmt.Sprintf("catalog lookup for %q rate limited, retry after %s", e.Title, e.RetryAfter.Round(time.Second))
	case KindNoCatalogMatch:
		return fmt.Sprintf("no catalog match for %q", e.Title)
	default:
		if e.Err != nil {
			return fmt.Sprintf("catalog unavailable for %q: %v", e.Title, e.Err)
		}
		return fmt.Sprintf("catalog unavailable for %q", e.Title)
	}
}

func (e *ResolutionError) Unwrap() error {
	return e.Err
}

// Catalog is the external catalog lookup service.
type Catalog interface {
	Search(ctx context.Context, title string) ([]igdb.Game, error)
	FetchByID(ctx context.Context, id int64) (*igdb.Game, error)
}

// GameStore persists catalog records under a unique catalog id.
type GameStore interface {
	FindByCatalogID(ctx context.Context, catalogID int64) (*entities.Game, error)
	CreateIfAbsent(ctx context.Context, game *entities.Game) (*entities.Game, error)
}

// Admitter gates catalog searches.
type Admitter interface {
	Allow(ctx context.Context, key string) ratelimit.Decision
}

// Request identifies what to resolve and whose budget pays for it.
type Request struct {
	RateKey    string
	Title      string
	ExternalID string
}

type Resolver struct {
	catalog Catalog
	store   GameStore
	limiter Admitter
	now     func() time.Time
}

func NewResolver(catalog Catalog, store GameStore, limiter Admitter) *Resolver {
	return &Resolver{
		catalog: catalog,
		store:   store,
		limiter: limiter,
		now:     time.Now,
	}
}

// Resolve returns the catalog record for req.Title, creating it on first use.
// Errors are either a *ResolutionError, a context error, or a storage error.
func (r *Resolver) Resolve(ctx context.Context, req Request) (*entities.Game, error) {
	decision := r.limiter.Allow(ctx, req.RateKey)
	if !decision.Allowed {
		return nil, &ResolutionError{
			Kind:       KindRateLimited,
			Title:      req.Title,
			Remaining:  decision.Remaining,
			RetryAfter: decision.RetryAfter(r.now()),
		}
	}

	results, err := r.catalog.Search(ctx, req.Title)
	if err != nil {
		return nil, r.catalogError(ctx, req, err)
	}

	match, ok := firstMatch(req, results)
	if !ok {
		return nil, &ResolutionError{Kind: KindNoCatalogMatch, Title: req.Title, Remaining: decision.Remaining}
	}

	existing, err := r.store.FindByCatalogID(ctx, match.ID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return existing, nil
	}

	details, err := r.catalog.FetchByID(ctx, match.ID)
	switch {
	case err == nil:
		match = *details
	case errors.Is(err, igdb.ErrNotFound):
		slog.Debug("catalog fetch found nothing, using search result", "catalog_id", match.ID)
	default:
		return nil, r.catalogError(ctx, req, err)
	}

	return r.store.CreateIfAbsent(ctx, &entities.Game{
		CatalogID:      match.ID,
		Title:          match.Name,
		Slug:           match.Slug,
		Summary:        match.Summary,
		CoverImageID:   match.CoverImageID,
		FirstReleaseAt: match.FirstReleaseAt,
	})
}

// firstMatch picks the first result loosely equivalent to the requested
// title. Several equivalent results (remasters, editions sharing a stripped
// title) are logged as ambiguous and the first still wins.
func firstMatch(req Request, results []igdb.Game) (igdb.Game, bool) {
	want := titles.Normalize(req.Title)

	var matches []igdb.Game
	for _, g := range results {
		if titles.Normalize(g.Name) == want {
			matches = append(matches, g)
		}
	}
	if len(matches) == 0 {
		return igdb.Game{}, false
	}

	if len(matches) > 1 {
		ids := make([]int64, len(matches))
		for i, m := range matches {
			ids[i] = m.ID
		}
		slog.Warn("ambiguous catalog match, using first result",
			"title", req.Title, "external_id", req.ExternalID, "chosen", matches[0].ID, "candidates", ids)
	}
	return matches[0], true
}

func (r *Resolver) catalogError(ctx context.Context, req Request, err error) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}
	if errors.Is(err, igdb.ErrRateLimited) {
		return &ResolutionError{Kind: KindRateLimited, Title: req.Title, Err: err}
	}
	return &ResolutionError{Kind: KindCatalogUnavailable, Title: req.Title, Err: err}
}
