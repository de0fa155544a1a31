package importers

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/mrlokans/savepoint/internal/catalog"
	"github.com/mrlokans/savepoint/internal/database"
	"github.com/mrlokans/savepoint/internal/database/games"
	"github.com/mrlokans/savepoint/internal/database/ignored"
	"github.com/mrlokans/savepoint/internal/database/imported"
	"github.com/mrlokans/savepoint/internal/database/library"
	"github.com/mrlokans/savepoint/internal/entities"
	"github.com/mrlokans/savepoint/internal/igdb"
	"github.com/mrlokans/savepoint/internal/ratelimit"
	"github.com/mrlokans/savepoint/internal/titles"
)

// mockCatalog answers searches from a fixed list of games.
type mockCatalog struct {
	games []igdb.Game
}

func (m *mockCatalog) Search(_ context.Context, title string) ([]igdb.Game, error) {
	var out []igdb.Game
	for _, g := range m.games {
		if titles.LooselyEquivalent(g.Name, title) {
			out = append(out, g)
		}
	}
	return out, nil
}

func (m *mockCatalog) FetchByID(_ context.Context, id int64) (*igdb.Game, error) {
	for _, g := range m.games {
		if g.ID == id {
			return &g, nil
		}
	}
	return nil, igdb.ErrNotFound
}

type testEnv struct {
	db           *gorm.DB
	orchestrator *Orchestrator
	library      *library.Repository
	ignored      *ignored.Repository
	imported     *imported.Repository
	limiter      *ratelimit.Limiter
}

func setupEnv(t *testing.T, workers int, catalogGames []igdb.Game, limit int) *testEnv {
	t.Helper()
	db, err := database.Open(filepath.Join(t.TempDir(), "import.db"), logger.Silent)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	if limit == 0 {
		limit = 10_000
	}
	limiter := ratelimit.New(nil, nil, ratelimit.Config{Limit: limit, Window: time.Hour})
	t.Cleanup(limiter.Stop)

	env := &testEnv{
		db:       db.DB,
		library:  library.NewRepository(db.DB),
		ignored:  ignored.NewRepository(db.DB),
		imported: imported.NewRepository(db.DB),
		limiter:  limiter,
	}
	resolver := catalog.NewResolver(&mockCatalog{games: catalogGames}, games.NewRepository(db.DB), limiter)
	env.orchestrator = NewOrchestrator(resolver, env.library, env.ignored, env.imported, Config{Workers: workers})
	return env
}

func (e *testEnv) libraryCount(t *testing.T, userID uint) int64 {
	t.Helper()
	count, err := e.library.CountForUser(context.Background(), userID)
	require.NoError(t, err)
	return count
}

func TestImportAll_EldenRingScenarioTwice(t *testing.T) {
	env := setupEnv(t, 4, []igdb.Game{{ID: 17, Name: "Elden Ring"}}, 0)
	ctx := context.Background()
	candidates := []entities.ImportCandidate{{ExternalID: "1245620", Title: "Elden Ring", Playtime: 4200}}

	first, err := env.orchestrator.ImportAll(ctx, 1, candidates, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, first.Imported)
	assert.Equal(t, 0, first.SkippedOwned)
	assert.Equal(t, 0, first.SkippedIgnored)
	assert.Equal(t, 0, first.Failed)
	assert.Equal(t, int64(1), env.libraryCount(t, 1))

	owned, err := env.library.ListOwned(ctx, 1)
	require.NoError(t, err)
	require.Len(t, owned, 1)
	assert.Equal(t, int64(17), owned[0].CatalogID)

	second, err := env.orchestrator.ImportAll(ctx, 1, candidates, nil)
	require.NoError(t, err)
	assert.Equal(t, 0, second.Imported)
	assert.Equal(t, 1, second.SkippedOwned)
	assert.Equal(t, 0, second.Failed)
	assert.Equal(t, int64(1), env.libraryCount(t, 1))
}

func TestImportAll_ClassifiesEveryCandidate(t *testing.T) {
	catalogGames := []igdb.Game{
		{ID: 1942, Name: "The Witcher 3: Wild Hunt"},
		{ID: 113112, Name: "Hades"},
	}
	env := setupEnv(t, 3, catalogGames, 0)
	ctx := context.Background()
	require.NoError(t, env.ignored.Add(ctx, 1, titles.Normalize("Celeste"), "Celeste"))

	candidates := []entities.ImportCandidate{
		{ExternalID: "292030", Title: "Witcher 3 Wild Hunt", Playtime: 100, PlaytimeWindows: 100},
		{ExternalID: "1145360", Title: "Hades"},
		{ExternalID: "504230", Title: "Celeste", Playtime: 30},
		{ExternalID: "1", Title: "Unknown Indie Game"},
	}
	rejected := []Rejected{{ExternalID: "70", Title: "Half-Life", Reason: "missing or negative playtime"}}

	summary, err := env.orchestrator.ImportAll(ctx, 1, candidates, rejected)
	require.NoError(t, err)
	assert.Equal(t, 5, summary.Total)
	assert.Equal(t, 2, summary.Imported)
	assert.Equal(t, 1, summary.SkippedIgnored)
	assert.Equal(t, 2, summary.Failed)
	assert.Equal(t, 0, summary.Unprocessed)

	kinds := map[FailureKind]int{}
	for _, f := range summary.Failures {
		kinds[f.Kind]++
	}
	assert.Equal(t, map[FailureKind]int{FailureNoCatalogMatch: 1, FailureFetchUnavailable: 1}, kinds)

	page, err := env.imported.List(ctx, 1, imported.Query{SortBy: imported.SortByTitle})
	require.NoError(t, err)
	statuses := map[string]entities.MatchStatus{}
	for _, item := range page.Items {
		statuses[item.Name] = item.MatchStatus
	}
	assert.Equal(t, map[string]entities.MatchStatus{
		"Witcher 3 Wild Hunt": entities.MatchStatusMatched,
		"Hades":               entities.MatchStatusMatched,
		"Celeste":             entities.MatchStatusIgnored,
		"Unknown Indie Game":  entities.MatchStatusUnmatched,
	}, statuses)

	for _, item := range page.Items {
		if item.Name == "Witcher 3 Wild Hunt" {
			assert.Equal(t, "windows", item.Platform)
			require.NotNil(t, item.CatalogID)
			assert.Equal(t, int64(1942), *item.CatalogID)
		}
	}
}

func TestImportAll_LibraryItemStatusFollowsPlaytime(t *testing.T) {
	env := setupEnv(t, 1, []igdb.Game{{ID: 1, Name: "Played"}, {ID: 2, Name: "Backlog"}}, 0)
	ctx := context.Background()

	_, err := env.orchestrator.ImportAll(ctx, 1, []entities.ImportCandidate{
		{ExternalID: "1", Title: "Played", Playtime: 10},
		{ExternalID: "2", Title: "Backlog"},
	}, nil)
	require.NoError(t, err)

	var items []entities.LibraryItem
	require.NoError(t, env.db.Preload("Game").Order("id").Find(&items).Error)
	require.Len(t, items, 2)
	statuses := map[string]entities.LibraryItemStatus{}
	for _, item := range items {
		statuses[item.Game.Title] = item.Status
		assert.Equal(t, LibraryPlatform, item.Platform)
		assert.Equal(t, entities.AcquisitionTypeDigital, item.AcquisitionType)
	}
	assert.Equal(t, entities.LibraryItemStatusPlayed, statuses["Played"])
	assert.Equal(t, entities.LibraryItemStatusWantToPlay, statuses["Backlog"])
}

func TestImportAll_OwnedByEarlierMatchAfterRename(t *testing.T) {
	env := setupEnv(t, 2, []igdb.Game{{ID: 17, Name: "Elden Ring"}}, 0)
	ctx := context.Background()

	_, err := env.orchestrator.ImportAll(ctx, 1, []entities.ImportCandidate{{ExternalID: "1245620", Title: "Elden Ring"}}, nil)
	require.NoError(t, err)

	// The storefront renamed the entry; the earlier external id mapping still identifies it.
	summary, err := env.orchestrator.ImportAll(ctx, 1, []entities.ImportCandidate{{ExternalID: "1245620", Title: "ELDEN RING: Nightreign Edition"}}, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.SkippedOwned)
}

func TestImportAll_PoolMatchesSequential(t *testing.T) {
	var catalogGames []igdb.Game
	var candidates []entities.ImportCandidate
	for i := 1; i <= 40; i++ {
		title := fmt.Sprintf("Game %d", i)
		if i%5 != 0 {
			catalogGames = append(catalogGames, igdb.Game{ID: int64(i), Name: title})
		}
		candidates = append(candidates, entities.ImportCandidate{ExternalID: fmt.Sprint(i), Title: title, Playtime: i})
	}
	// Duplicate entries with the same catalog title race on the same library item.
	candidates = append(candidates,
		entities.ImportCandidate{ExternalID: "dup-1", Title: "Game 1"},
		entities.ImportCandidate{ExternalID: "dup-2", Title: "game 2"},
	)

	run := func(workers int) Summary {
		env := setupEnv(t, workers, catalogGames, 0)
		ctx := context.Background()
		require.NoError(t, env.ignored.Add(ctx, 1, titles.Normalize("Game 3"), "Game 3"))
		summary, err := env.orchestrator.ImportAll(ctx, 1, candidates, nil)
		require.NoError(t, err)
		return summary
	}

	sequential := run(1)
	pooled := run(8)

	assert.Equal(t, sequential.Total, pooled.Total)
	assert.Equal(t, sequential.Imported, pooled.Imported)
	assert.Equal(t, sequential.SkippedOwned, pooled.SkippedOwned)
	assert.Equal(t, sequential.SkippedIgnored, pooled.SkippedIgnored)
	assert.Equal(t, sequential.Failed, pooled.Failed)
	assert.Equal(t, 31, sequential.Imported)
	assert.Equal(t, 2, sequential.SkippedOwned)
	assert.Equal(t, 1, sequential.SkippedIgnored)
	assert.Equal(t, 8, sequential.Failed)
}

func TestImportAll_ConcurrentRunsConverge(t *testing.T) {
	env := setupEnv(t, 4, []igdb.Game{{ID: 17, Name: "Elden Ring"}, {ID: 18, Name: "Hades"}}, 0)
	candidates := []entities.ImportCandidate{
		{ExternalID: "1", Title: "Elden Ring"},
		{ExternalID: "2", Title: "Hades"},
	}

	var wg sync.WaitGroup
	summaries := make([]Summary, 3)
	for i := range summaries {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			s, err := env.orchestrator.ImportAll(context.Background(), 1, candidates, nil)
			assert.NoError(t, err)
			summaries[i] = s
		}(i)
	}
	wg.Wait()

	created := 0
	for _, s := range summaries {
		created += s.Imported
		assert.Equal(t, 0, s.Failed)
		assert.Equal(t, 2, s.Imported+s.SkippedOwned)
	}
	assert.Equal(t, 2, created)
	assert.Equal(t, int64(2), env.libraryCount(t, 1))
}

func TestImportAll_RateLimitedCandidatesFail(t *testing.T) {
	env := setupEnv(t, 1, []igdb.Game{{ID: 1, Name: "A"}, {ID: 2, Name: "B"}, {ID: 3, Name: "C"}}, 1)

	summary, err := env.orchestrator.ImportAll(context.Background(), 1, []entities.ImportCandidate{
		{ExternalID: "1", Title: "A"},
		{ExternalID: "2", Title: "B"},
		{ExternalID: "3", Title: "C"},
	}, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Imported)
	assert.Equal(t, 2, summary.Failed)
	for _, f := range summary.Failures {
		assert.Equal(t, FailureRateLimited, f.Kind)
		require.NotNil(t, f.Remaining)
		assert.Equal(t, 0, *f.Remaining)
		assert.Greater(t, f.RetryAfter, time.Duration(0))
		assert.Equal(t, int(math.Ceil(f.RetryAfter.Seconds())), f.RetryAfterSeconds)
	}

	page, err := env.imported.List(context.Background(), 1, imported.Query{MatchStatus: entities.MatchStatusFailed})
	require.NoError(t, err)
	assert.Len(t, page.Items, 2)
}

func TestFailure_JSONReportsRetryAfterInSeconds(t *testing.T) {
	f := resolutionFailure(entities.ImportCandidate{ExternalID: "1145360", Title: "Hades"}, &catalog.ResolutionError{
		Kind:       catalog.KindRateLimited,
		Title:      "Hades",
		RetryAfter: 89500 * time.Millisecond,
	})

	data, err := json.Marshal(f)
	require.NoError(t, err)

	var out map[string]any
	require.NoError(t, json.Unmarshal(data, &out))
	assert.Equal(t, float64(90), out["retry_after_seconds"])
	assert.NotContains(t, out, "retry_after")
	assert.Equal(t, string(FailureRateLimited), out["kind"])
}

// cancellingResolver cancels the run on its second call.
type cancellingResolver struct {
	inner  Resolver
	cancel context.CancelFunc
	mu     sync.Mutex
	calls  int
}

func (r *cancellingResolver) Resolve(ctx context.Context, req catalog.Request) (*entities.Game, error) {
	r.mu.Lock()
	r.calls++
	calls := r.calls
	r.mu.Unlock()

	if calls == 2 {
		r.cancel()
		return nil, ctx.Err()
	}
	return r.inner.Resolve(ctx, req)
}

func TestImportAll_CancellationKeepsCommittedWork(t *testing.T) {
	var catalogGames []igdb.Game
	var candidates []entities.ImportCandidate
	for i := 1; i <= 20; i++ {
		title := fmt.Sprintf("Game %d", i)
		catalogGames = append(catalogGames, igdb.Game{ID: int64(i), Name: title})
		candidates = append(candidates, entities.ImportCandidate{ExternalID: fmt.Sprint(i), Title: title})
	}
	env := setupEnv(t, 1, catalogGames, 0)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	env.orchestrator.resolver = &cancellingResolver{inner: env.orchestrator.resolver, cancel: cancel}

	summary, err := env.orchestrator.ImportAll(ctx, 1, candidates, nil)
	assert.ErrorIs(t, err, context.Canceled)

	assert.Equal(t, 20, summary.Total)
	assert.Equal(t, 1, summary.Imported)
	assert.Equal(t, 19, summary.Unprocessed)
	assert.Equal(t, summary.Total, summary.Imported+summary.SkippedOwned+summary.SkippedIgnored+summary.Failed+summary.Unprocessed)
	assert.Equal(t, int64(1), env.libraryCount(t, 1))
}

func TestImportAll_Empty(t *testing.T) {
	env := setupEnv(t, 4, nil, 0)

	summary, err := env.orchestrator.ImportAll(context.Background(), 1, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, Summary{Failures: []Failure{}}, summary)
}

func TestCatalogRateKey(t *testing.T) {
	assert.Equal(t, "catalog:user:42", CatalogRateKey(42))
}
