package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/savepoint/internal/auth"
	"github.com/mrlokans/savepoint/internal/entities"
	"github.com/mrlokans/savepoint/internal/ratelimit"
)

// NewRouter creates and configures the HTTP router with all endpoints.
func NewRouter(cfg RouterConfig) *gin.Engine {
	router := gin.New()
	router.Use(gin.Logger())
	router.Use(gin.Recovery())

	// Apply security headers to all responses
	router.Use(auth.SecurityHeadersMiddleware())
	if cfg.SecureCookies {
		router.Use(auth.StrictTransportSecurityMiddleware())
	}

	// CSRF must run before session so that session context is preserved
	if len(cfg.CSRFSecret) > 0 {
		router.Use(auth.CSRFMiddleware(cfg.CSRFSecret, cfg.SecureCookies, cfg.AuthService))
	}

	// Session runs after CSRF so session context isn't overwritten by CSRF's request replacement
	if cfg.SessionManager != nil {
		router.Use(cfg.SessionManager.SessionLoadSave())
	}

	router.Use(cfg.AuthMiddleware.Handler())

	var limiterState LimiterState
	if cfg.RequestLimiter != nil {
		limiterState = cfg.RequestLimiter
	}
	health := NewHealthController(cfg.Database, limiterState, cfg.Version)
	router.GET("/health", health.Status)
	router.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"message": "pong",
		})
	})

	api := router.Group("/api")

	if cfg.AuthService != nil && cfg.SessionManager != nil {
		authController := auth.NewController(cfg.AuthService, cfg.SessionManager, cfg.LoginLimiter)
		if cfg.AuditLog != nil {
			authController.SetEventLogger(cfg.AuditLog)
		}
		authController.RegisterRoutes(api)
	}

	importController := NewImportController(cfg.ImportService)
	importedController := NewImportedController(cfg.ImportService)

	importGroup := api.Group("/import")
	if cfg.RequestLimiter != nil {
		importGroup.POST("/steam", cfg.RequestLimiter.Middleware(ratelimit.ClientIPKey("import")), importController.ImportSteam)
	} else {
		importGroup.POST("/steam", importController.ImportSteam)
	}
	importGroup.GET("/runs", importController.ListRuns)
	importGroup.GET("/runs/:id", importController.GetRun)

	api.GET("/imported", importedController.List)
	api.GET("/imported/ignored", importedController.ListIgnored)
	api.POST("/imported/ignore", importedController.Ignore)
	api.DELETE("/imported/ignore", importedController.Unignore)

	if cfg.AuditLog != nil {
		api.GET("/audit", NewAuditController(cfg.AuditLog).List)
	}

	if cfg.TaskClient != nil {
		tasksController := NewTasksController(cfg.TaskClient, cfg.Maintenance)
		api.GET("/tasks/:id", tasksController.GetTaskStatus)
		api.POST("/tasks/maintenance/run", cfg.AuthMiddleware.RequireRole(entities.UserRoleAdmin), tasksController.RunMaintenance)
	}

	return router
}
