package http

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrlokans/savepoint/internal/database/imported"
	"github.com/mrlokans/savepoint/internal/database/runs"
	"github.com/mrlokans/savepoint/internal/entities"
	"github.com/mrlokans/savepoint/internal/services"
)

func runsNotFound() error { return runs.ErrRunNotFound }

func get(t *testing.T, api ImportAPI, target string) *httptest.ResponseRecorder {
	t.Helper()
	w := httptest.NewRecorder()
	newTestRouter(api).ServeHTTP(w, httptest.NewRequest(http.MethodGet, target, nil))
	return w
}

func TestListImported_ParsesFilters(t *testing.T) {
	api := &fakeImportAPI{page: imported.Page{
		Items:      []entities.ImportedGame{{Name: "Hades"}},
		Pagination: imported.Pagination{Page: 2, PageSize: 10, Total: 11, TotalPages: 2},
	}}

	w := get(t, api, "/api/imported?search=had&platform=windows&playtime=1_to_10h&last_played=never&match_status=matched&sort_by=playtime&sort_order=desc&page=2&page_size=10")

	require.Equal(t, http.StatusOK, w.Code)

	q := api.lastQuery
	assert.Equal(t, "had", q.Search)
	assert.Equal(t, "windows", q.Platform)
	require.NotNil(t, q.Playtime.Min)
	require.NotNil(t, q.Playtime.Max)
	assert.Equal(t, 60, *q.Playtime.Min)
	assert.Equal(t, 600, *q.Playtime.Max)
	assert.True(t, q.LastPlayed.Never)
	assert.Equal(t, entities.MatchStatusMatched, q.MatchStatus)
	assert.Equal(t, imported.SortByPlaytime, q.SortBy)
	assert.Equal(t, imported.SortDesc, q.SortOrder)
	assert.Equal(t, 2, q.Page)
	assert.Equal(t, 10, q.PageSize)

	var page imported.Page
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &page))
	assert.Len(t, page.Items, 1)
	assert.Equal(t, int64(11), page.Pagination.Total)
}

func TestListImported_Defaults(t *testing.T) {
	api := &fakeImportAPI{}

	w := get(t, api, "/api/imported?platform=all&last_played=all")

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "", api.lastQuery.Platform)
	assert.Equal(t, 1, api.lastQuery.Page)
	assert.Equal(t, imported.DefaultPageSize, api.lastQuery.PageSize)
	assert.Nil(t, api.lastQuery.LastPlayed.After)
}

func TestListImported_RecentPresetIsRelativeToNow(t *testing.T) {
	api := &fakeImportAPI{}

	w := get(t, api, "/api/imported?last_played=30_days")

	require.Equal(t, http.StatusOK, w.Code)
	require.NotNil(t, api.lastQuery.LastPlayed.After)
	assert.Nil(t, api.lastQuery.LastPlayed.Before)
}

func TestListImported_InvalidFilters(t *testing.T) {
	for _, target := range []string{
		"/api/imported?last_played=yesterday",
		"/api/imported?playtime=lots",
		"/api/imported?page=0",
		"/api/imported?page_size=x",
	} {
		t.Run(target, func(t *testing.T) {
			w := get(t, &fakeImportAPI{}, target)
			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Contains(t, w.Body.String(), "INVALID_FILTER")
		})
	}
}

func TestListImported_ServiceRejectsFilter(t *testing.T) {
	api := &fakeImportAPI{err: imported.ErrInvalidFilter}

	w := get(t, api, "/api/imported?platform=amiga")

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func sendIgnore(t *testing.T, api ImportAPI, method, body string) *httptest.ResponseRecorder {
	t.Helper()
	w := httptest.NewRecorder()
	req := httptest.NewRequest(method, "/api/imported/ignore", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	newTestRouter(api).ServeHTTP(w, req)
	return w
}

func TestIgnore(t *testing.T) {
	api := &fakeImportAPI{}

	w := sendIgnore(t, api, http.MethodPost, `{"title":"Celeste"}`)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "Celeste", api.lastTitle)
}

func TestIgnore_MissingTitle(t *testing.T) {
	w := sendIgnore(t, &fakeImportAPI{}, http.MethodPost, `{}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestIgnore_EmptyAfterNormalization(t *testing.T) {
	w := sendIgnore(t, &fakeImportAPI{err: services.ErrEmptyTitle}, http.MethodPost, `{"title":"™"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "EMPTY_TITLE")
}

func TestUnignore(t *testing.T) {
	api := &fakeImportAPI{}
	w := sendIgnore(t, api, http.MethodDelete, `{"title":"Celeste"}`)
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = sendIgnore(t, &fakeImportAPI{err: services.ErrNotIgnored}, http.MethodDelete, `{"title":"Hades"}`)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestListIgnored(t *testing.T) {
	api := &fakeImportAPI{ignored: []entities.IgnoredEntry{{Title: "Celeste", NormalizedTitle: "celeste"}}}

	w := get(t, api, "/api/imported/ignored")

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"normalized_title":"celeste"`)
}
