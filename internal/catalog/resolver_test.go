package catalog

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm/logger"

	"github.com/mrlokans/savepoint/internal/database"
	"github.com/mrlokans/savepoint/internal/database/games"
	"github.com/mrlokans/savepoint/internal/igdb"
	"github.com/mrlokans/savepoint/internal/ratelimit"
)

type mockCatalog struct {
	mu          sync.Mutex
	results     map[string][]igdb.Game
	details     map[int64]*igdb.Game
	searchErr   error
	fetchErr    error
	searchCalls int
	fetchCalls  int
}

func (m *mockCatalog) Search(_ context.Context, title string) ([]igdb.Game, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.searchCalls++
	if m.searchErr != nil {
		return nil, m.searchErr
	}
	return m.results[title], nil
}

func (m *mockCatalog) FetchByID(_ context.Context, id int64) (*igdb.Game, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fetchCalls++
	if m.fetchErr != nil {
		return nil, m.fetchErr
	}
	if g, ok := m.details[id]; ok {
		return g, nil
	}
	return nil, igdb.ErrNotFound
}

type mockAdmitter struct {
	mu       sync.Mutex
	decision ratelimit.Decision
	keys     []string
}

func (m *mockAdmitter) Allow(_ context.Context, key string) ratelimit.Decision {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.keys = append(m.keys, key)
	return m.decision
}

func allowAll() *mockAdmitter {
	return &mockAdmitter{decision: ratelimit.Decision{Allowed: true, Remaining: 99}}
}

func setupStore(t *testing.T) *games.Repository {
	t.Helper()
	db, err := database.Open(filepath.Join(t.TempDir(), "catalog.db"), logger.Silent)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return games.NewRepository(db.DB)
}

func TestResolver_CreatesRecordOnFirstUse(t *testing.T) {
	cat := &mockCatalog{
		results: map[string][]igdb.Game{
			"ELDEN RING": {{ID: 17, Name: "Elden Ring"}},
		},
		details: map[int64]*igdb.Game{
			17: {ID: 17, Name: "Elden Ring", Summary: "Rise, Tarnished.", CoverImageID: "co4jni"},
		},
	}
	store := setupStore(t)
	admitter := allowAll()
	r := NewResolver(cat, store, admitter)

	game, err := r.Resolve(context.Background(), Request{RateKey: "catalog:user:1", Title: "ELDEN RING", ExternalID: "1245620"})
	require.NoError(t, err)
	assert.Equal(t, int64(17), game.CatalogID)
	assert.Equal(t, "Rise, Tarnished.", game.Summary)
	assert.Equal(t, []string{"catalog:user:1"}, admitter.keys)

	// Second resolution reuses the stored record without fetching details.
	again, err := r.Resolve(context.Background(), Request{RateKey: "catalog:user:2", Title: "ELDEN RING"})
	require.NoError(t, err)
	assert.Equal(t, game.ID, again.ID)
	assert.Equal(t, 1, cat.fetchCalls)
}

func TestResolver_FirstLooseMatchWins(t *testing.T) {
	cat := &mockCatalog{
		results: map[string][]igdb.Game{
			"Witcher 3 Wild Hunt": {
				{ID: 5, Name: "The Witcher 2"},
				{ID: 1942, Name: "The Witcher 3: Wild Hunt"},
				{ID: 22439, Name: "The Witcher 3 - Wild Hunt"},
			},
		},
	}
	r := NewResolver(cat, setupStore(t), allowAll())

	game, err := r.Resolve(context.Background(), Request{Title: "Witcher 3 Wild Hunt"})
	require.NoError(t, err)
	assert.Equal(t, int64(1942), game.CatalogID)
	// Fetch returned NotFound, so the search payload was used.
	assert.Equal(t, "The Witcher 3: Wild Hunt", game.Title)
}

func TestResolver_NoCatalogMatch(t *testing.T) {
	cat := &mockCatalog{
		results: map[string][]igdb.Game{
			"Hades": {{ID: 1, Name: "Hades II"}},
		},
	}
	r := NewResolver(cat, setupStore(t), allowAll())

	_, err := r.Resolve(context.Background(), Request{Title: "Hades"})

	var resErr *ResolutionError
	require.ErrorAs(t, err, &resErr)
	assert.Equal(t, KindNoCatalogMatch, resErr.Kind)
}

func TestResolver_RateLimited(t *testing.T) {
	cat := &mockCatalog{}
	resetAt := time.Now().Add(30 * time.Minute)
	admitter := &mockAdmitter{decision: ratelimit.Decision{Allowed: false, Remaining: 0, ResetAt: resetAt}}
	r := NewResolver(cat, setupStore(t), admitter)

	_, err := r.Resolve(context.Background(), Request{RateKey: "k", Title: "Hades"})

	var resErr *ResolutionError
	require.ErrorAs(t, err, &resErr)
	assert.Equal(t, KindRateLimited, resErr.Kind)
	assert.Equal(t, 0, resErr.Remaining)
	assert.InDelta(t, (30 * time.Minute).Seconds(), resErr.RetryAfter.Seconds(), 5)
	assert.Equal(t, 0, cat.searchCalls)
}

func TestResolver_UpstreamErrors(t *testing.T) {
	tests := []struct {
		name      string
		searchErr error
		fetchErr  error
		expected  ErrorKind
	}{
		{"search unavailable", igdb.ErrUnavailable, nil, KindCatalogUnavailable},
		{"search rate limited upstream", igdb.ErrRateLimited, nil, KindRateLimited},
		{"fetch unavailable", nil, igdb.ErrUnavailable, KindCatalogUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cat := &mockCatalog{
				results:   map[string][]igdb.Game{"Hades": {{ID: 113112, Name: "Hades"}}},
				searchErr: tt.searchErr,
				fetchErr:  tt.fetchErr,
			}
			r := NewResolver(cat, setupStore(t), allowAll())

			_, err := r.Resolve(context.Background(), Request{Title: "Hades"})

			var resErr *ResolutionError
			require.ErrorAs(t, err, &resErr)
			assert.Equal(t, tt.expected, resErr.Kind)
		})
	}
}

func TestResolver_CancelledContext(t *testing.T) {
	cat := &mockCatalog{searchErr: errors.New("request canceled")}
	r := NewResolver(cat, setupStore(t), allowAll())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := r.Resolve(ctx, Request{Title: "Hades"})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestResolver_ConcurrentUsersCreateOneRecord(t *testing.T) {
	cat := &mockCatalog{
		results: map[string][]igdb.Game{"Hades": {{ID: 113112, Name: "Hades"}}},
		details: map[int64]*igdb.Game{113112: {ID: 113112, Name: "Hades"}},
	}
	store := setupStore(t)
	r := NewResolver(cat, store, allowAll())

	const users = 6
	ids := make([]uint, users)
	var wg sync.WaitGroup
	for i := 0; i < users; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			game, err := r.Resolve(context.Background(), Request{Title: "Hades"})
			if assert.NoError(t, err) {
				ids[i] = game.ID
			}
		}(i)
	}
	wg.Wait()

	for _, id := range ids {
		assert.Equal(t, ids[0], id)
	}
	stored, err := store.FindByCatalogID(context.Background(), 113112)
	require.NoError(t, err)
	assert.Equal(t, ids[0], stored.ID)
}

func TestResolutionError_Message(t *testing.T) {
	err := &ResolutionError{Kind: KindRateLimited, Title: "Hades", RetryAfter: 90 * time.Second}
	assert.Contains(t, err.Error(), "rate limited")

	err = &ResolutionError{Kind: KindCatalogUnavailable, Title: "Hades", Err: igdb.ErrUnavailable}
	assert.ErrorIs(t, err, igdb.ErrUnavailable)
}
