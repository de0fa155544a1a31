package entrypoint

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/savepoint/internal/auth"
	"github.com/mrlokans/savepoint/internal/config"
	http_controllers "github.com/mrlokans/savepoint/internal/http"
	"github.com/mrlokans/savepoint/internal/scheduler"
	"github.com/mrlokans/savepoint/internal/tasks"
)

// ShutdownFunc is called during graceful shutdown to clean up resources.
type ShutdownFunc func(ctx context.Context)

func Serve(router *gin.Engine, cfg *config.Config, onShutdown ShutdownFunc) {
	timeout := time.Duration(cfg.Global.ShutdownTimeoutInSeconds) * time.Second

	srv := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.HTTP.Host, cfg.HTTP.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		slog.Info("starting server", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("listen failed", "error", err)
			os.Exit(1)
		}
	}()

	// kill (no param) sends SIGTERM, kill -2 is SIGINT
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	slog.Info("shutting down server", "timeout", timeout)

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	// Call shutdown callback first (e.g., to stop task queue)
	if onShutdown != nil {
		onShutdown(ctx)
	}

	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("server shutdown failed", "error", err)
	}

	slog.Info("server exiting")
}

func Run(cfg *config.Config, version string) {
	InitLogging(cfg.Log.Level)
	slog.Info("starting savepoint", "version", version)

	app, err := NewApp(context.Background(), cfg)
	if err != nil {
		slog.Error("failed to initialize application", "error", err)
		os.Exit(1)
	}
	defer func() {
		if err := app.Close(); err != nil {
			slog.Error("error closing database", "error", err)
		}
	}()

	// Initialize authentication if enabled
	var sessionManager *auth.SessionManager
	var csrfSecret []byte

	if cfg.Auth.Mode == config.AuthModeLocal {
		slog.Info("authentication mode: local")

		sqlDB, err := app.DB.DB.DB()
		if err != nil {
			slog.Error("failed to get SQL DB for sessions", "error", err)
			os.Exit(1)
		}
		sessionManager, err = auth.NewSessionManager(sqlDB, cfg.Auth)
		if err != nil {
			slog.Error("failed to initialize session manager", "error", err)
			os.Exit(1)
		}

		csrfSecret, err = loadCSRFSecret(cfg.Auth.CSRFSecret)
		if err != nil {
			slog.Error("failed to generate CSRF secret", "error", err)
			os.Exit(1)
		}

		hasUsers, _ := app.Auth.HasUsers(context.Background())
		if !hasUsers {
			slog.Warn("no users found, create one with the create-user command")
		}
	} else {
		slog.Info("authentication mode: none (all requests act as the default user)")
	}

	routerCfg := http_controllers.RouterConfig{
		ImportService:  app.Imports,
		Database:       app.DB,
		AuthMiddleware: auth.NewMiddleware(app.Auth, sessionManager, cfg.Auth),
		AuthService:    app.Auth,
		SessionManager: sessionManager,
		CSRFSecret:     csrfSecret,
		SecureCookies:  cfg.Auth.SecureCookies,
		LoginLimiter:   app.RequestLimiter,
		RequestLimiter: app.RequestLimiter,
		AuditLog:       app.Audit,
		Version:        version,
	}

	// Initialize task queue if enabled
	var taskClient *tasks.Client
	var maintenance *scheduler.MaintenanceScheduler
	var taskCtxCancel context.CancelFunc
	if cfg.Tasks.Enabled {
		taskClient, err = tasks.NewClient(cfg.Database.Path, tasks.ConfigFrom(cfg.Tasks))
		if err != nil {
			slog.Error("failed to initialize task queue", "error", err)
			os.Exit(1)
		}
		defer func() {
			if err := taskClient.Close(); err != nil {
				slog.Error("error closing task client", "error", err)
			}
		}()

		taskClient.Register(
			tasks.NewImportLibraryQueue(app.Imports),
			tasks.NewCleanupRateLimitWindowsQueue(app.RateWindow),
			tasks.NewCleanupImportRunsQueue(app.Runs),
			tasks.NewCleanupAuditEventsQueue(app.AuditEvents),
		)
		if sessionManager != nil {
			taskClient.Register(tasks.NewCleanupSessionsQueue(sessionManager))
		}
		app.Imports.SetQueue(taskClient)

		var taskCtx context.Context
		taskCtx, taskCtxCancel = context.WithCancel(context.Background())
		taskClient.Start(taskCtx)

		maintenance = scheduler.NewMaintenanceScheduler(taskClient, cfg.Scheduler)
		if sessionManager != nil {
			maintenance.EnableSessionCleanup()
		}
		if err := maintenance.Start(taskCtx); err != nil {
			slog.Error("failed to start maintenance scheduler", "error", err)
			os.Exit(1)
		}

		routerCfg.TaskClient = taskClient
		routerCfg.Maintenance = maintenance
	}

	router := http_controllers.NewRouter(routerCfg)

	// Shutdown callback for graceful cleanup
	onShutdown := func(ctx context.Context) {
		if maintenance != nil {
			maintenance.Stop()
		}
		if taskClient != nil && taskCtxCancel != nil {
			taskClient.Stop(ctx)
			taskCtxCancel()
		}
	}

	Serve(router, cfg, onShutdown)
}

// loadCSRFSecret decodes a configured hex secret, falls back to the raw
// bytes, or generates a random one when nothing is configured.
func loadCSRFSecret(configured string) ([]byte, error) {
	if configured != "" {
		if secret, err := hex.DecodeString(configured); err == nil {
			return secret, nil
		}
		return []byte(configured), nil
	}

	secret, err := auth.GenerateSecret()
	if err != nil {
		return nil, err
	}
	slog.Info("generated CSRF secret (set AUTH_CSRF_SECRET to persist)")
	return hex.DecodeString(secret)
}
