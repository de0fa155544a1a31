package entrypoint

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/lepinkainen/humanlog"

	"github.com/mrlokans/savepoint/internal/audit"
	"github.com/mrlokans/savepoint/internal/auth"
	"github.com/mrlokans/savepoint/internal/catalog"
	"github.com/mrlokans/savepoint/internal/config"
	"github.com/mrlokans/savepoint/internal/database"
	auditstore "github.com/mrlokans/savepoint/internal/database/audit"
	"github.com/mrlokans/savepoint/internal/database/games"
	"github.com/mrlokans/savepoint/internal/database/ignored"
	"github.com/mrlokans/savepoint/internal/database/imported"
	"github.com/mrlokans/savepoint/internal/database/library"
	ratelimitstore "github.com/mrlokans/savepoint/internal/database/ratelimit"
	"github.com/mrlokans/savepoint/internal/database/runs"
	"github.com/mrlokans/savepoint/internal/database/users"
	"github.com/mrlokans/savepoint/internal/entities"
	"github.com/mrlokans/savepoint/internal/igdb"
	"github.com/mrlokans/savepoint/internal/importers"
	"github.com/mrlokans/savepoint/internal/ratelimit"
	"github.com/mrlokans/savepoint/internal/services"
	"github.com/mrlokans/savepoint/internal/steam"
)

// App holds the wired application shared by the server and CLI commands.
type App struct {
	Config *config.Config
	DB     *database.Database

	Users       *users.Repository
	Runs        *runs.Repository
	RateWindow  *ratelimitstore.Repository
	AuditEvents *auditstore.Repository

	RequestLimiter *ratelimit.Limiter
	CatalogLimiter *ratelimit.Limiter

	Imports *services.LibraryImportService
	Auth    *auth.Service
	Audit   *audit.Service
}

// InitLogging installs a human-readable slog handler as the default logger.
func InitLogging(level string) {
	handler := humanlog.NewHandler(os.Stdout, &humanlog.Options{
		Level: parseLevel(level),
	})
	slog.SetDefault(slog.New(handler))
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// NewApp opens the database and wires the import pipeline. In single-user
// mode it also creates the default user.
func NewApp(ctx context.Context, cfg *config.Config) (*App, error) {
	db, err := database.NewDatabase(cfg.Database.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	app := &App{
		Config:      cfg,
		DB:          db,
		Users:       users.NewRepository(db.DB),
		Runs:        runs.NewRepository(db.DB),
		RateWindow:  ratelimitstore.NewRepository(db.DB),
		AuditEvents: auditstore.NewRepository(db.DB),
		Auth:        auth.NewService(db.DB, cfg.Auth),
	}
	app.Audit = audit.NewService(app.AuditEvents)

	app.RequestLimiter = ratelimit.New(app.RateWindow, nil, ratelimit.Config{
		Limit:         cfg.RateLimit.RequestLimit,
		Window:        cfg.RateLimit.RequestWindow,
		SweepInterval: cfg.RateLimit.SweepInterval,
		ProbeInterval: cfg.RateLimit.ProbeInterval,
	})
	app.CatalogLimiter = ratelimit.New(app.RateWindow, nil, ratelimit.Config{
		Limit:         cfg.RateLimit.CatalogLimit,
		Window:        cfg.RateLimit.CatalogWindow,
		SweepInterval: cfg.RateLimit.SweepInterval,
		ProbeInterval: cfg.RateLimit.ProbeInterval,
	})

	if cfg.Steam.APIKey == "" {
		slog.Warn("STEAM_API_KEY is not set, steam imports will fail")
	}
	if cfg.IGDB.ClientID == "" || cfg.IGDB.ClientSecret == "" {
		slog.Warn("IGDB_CLIENT_ID or IGDB_CLIENT_SECRET is not set, catalog matching will fail")
	}

	steamClient := steam.NewClient(steam.Config{
		APIKey:  cfg.Steam.APIKey,
		BaseURL: cfg.Steam.BaseURL,
		Timeout: cfg.Steam.Timeout,
	})
	igdbClient := igdb.NewClient(igdb.Config{
		ClientID:       cfg.IGDB.ClientID,
		ClientSecret:   cfg.IGDB.ClientSecret,
		BaseURL:        cfg.IGDB.BaseURL,
		TokenURL:       cfg.IGDB.TokenURL,
		RequestsPerSec: cfg.IGDB.RequestsPerSec,
		SearchLimit:    cfg.IGDB.SearchLimit,
		Timeout:        cfg.IGDB.Timeout,
	})

	ignoredRepo := ignored.NewRepository(db.DB)
	importedRepo := imported.NewRepository(db.DB)

	resolver := catalog.NewResolver(igdbClient, games.NewRepository(db.DB), app.CatalogLimiter)
	orchestrator := importers.NewOrchestrator(resolver, library.NewRepository(db.DB), ignoredRepo, importedRepo, importers.Config{
		Workers:    cfg.Import.Workers,
		Storefront: entities.StorefrontSteam,
	})

	app.Imports = services.NewLibraryImportService(steamClient, orchestrator, app.Users, app.Runs, importedRepo, ignoredRepo)
	app.Imports.SetAuditor(app.Audit)

	if cfg.Auth.Mode != config.AuthModeLocal {
		if _, err := app.Users.EnsureDefaultUser(ctx, auth.DefaultUserID); err != nil {
			app.Close()
			return nil, err
		}
	}

	return app, nil
}

// ResolveUser maps a username to its id. An empty username means the
// default user and is only accepted when authentication is disabled.
func (a *App) ResolveUser(ctx context.Context, username string) (uint, error) {
	if username == "" {
		if a.Config.Auth.Mode == config.AuthModeLocal {
			return 0, fmt.Errorf("a username is required when AUTH_MODE=local")
		}
		return auth.DefaultUserID, nil
	}
	user, err := a.Users.GetUserByUsername(ctx, username)
	if err != nil {
		return 0, fmt.Errorf("user %q: %w", username, err)
	}
	return user.ID, nil
}

// Close flushes pending audit writes, stops the limiters and closes the
// database.
func (a *App) Close() error {
	a.Audit.Wait()
	a.RequestLimiter.Stop()
	a.CatalogLimiter.Stop()
	return a.DB.Close()
}
