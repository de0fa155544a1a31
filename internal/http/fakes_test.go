package http

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/savepoint/internal/auth"
	"github.com/mrlokans/savepoint/internal/config"
	"github.com/mrlokans/savepoint/internal/database/imported"
	"github.com/mrlokans/savepoint/internal/entities"
	"github.com/mrlokans/savepoint/internal/services"
)

type fakeImportAPI struct {
	report    *services.ImportReport
	run       *entities.ImportRun
	runs      []entities.ImportRun
	page      imported.Page
	ignored   []entities.IgnoredEntry
	err       error
	lastUser  uint
	lastRef   string
	lastQuery imported.Query
	lastTitle string
	lastLimit int
	queued    bool
}

func (f *fakeImportAPI) StartImport(_ context.Context, userID uint, accountRef string) (*services.ImportReport, error) {
	f.lastUser, f.lastRef = userID, accountRef
	return f.report, f.err
}

func (f *fakeImportAPI) QueueImport(_ context.Context, userID uint, accountRef string) (*entities.ImportRun, error) {
	f.lastUser, f.lastRef, f.queued = userID, accountRef, true
	return f.run, f.err
}

func (f *fakeImportAPI) ListRuns(_ context.Context, userID uint, limit int) ([]entities.ImportRun, error) {
	f.lastUser, f.lastLimit = userID, limit
	return f.runs, f.err
}

func (f *fakeImportAPI) GetRun(_ context.Context, userID uint, _ string) (*entities.ImportRun, error) {
	f.lastUser = userID
	return f.run, f.err
}

func (f *fakeImportAPI) ListImported(_ context.Context, userID uint, q imported.Query) (imported.Page, error) {
	f.lastUser, f.lastQuery = userID, q
	return f.page, f.err
}

func (f *fakeImportAPI) IgnoreCandidate(_ context.Context, userID uint, rawTitle string) error {
	f.lastUser, f.lastTitle = userID, rawTitle
	return f.err
}

func (f *fakeImportAPI) UnignoreCandidate(_ context.Context, userID uint, rawTitle string) error {
	f.lastUser, f.lastTitle = userID, rawTitle
	return f.err
}

func (f *fakeImportAPI) ListIgnored(_ context.Context, userID uint) ([]entities.IgnoredEntry, error) {
	f.lastUser = userID
	return f.ignored, f.err
}

// newTestRouter builds the full router in single-user mode around api.
func newTestRouter(api ImportAPI) *gin.Engine {
	return NewRouter(RouterConfig{
		ImportService:  api,
		AuthMiddleware: auth.NewMiddleware(nil, nil, config.Auth{Mode: config.AuthModeNone}),
	})
}
