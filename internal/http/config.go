package http

import (
	"github.com/mrlokans/savepoint/internal/auth"
	"github.com/mrlokans/savepoint/internal/database"
	"github.com/mrlokans/savepoint/internal/ratelimit"
)

// RouterConfig contains all dependencies and configuration needed
// to create the HTTP router.
type RouterConfig struct {
	// Core dependencies
	ImportService ImportAPI
	Database      *database.Database

	// Authentication. AuthMiddleware is required; the rest only apply in
	// local mode.
	AuthMiddleware *auth.Middleware
	AuthService    *auth.Service
	SessionManager *auth.SessionManager
	CSRFSecret     []byte
	SecureCookies  bool
	LoginLimiter   auth.LoginLimiter

	// Per-client admission control for the import endpoints (optional)
	RequestLimiter *ratelimit.Limiter

	// Activity trail (optional)
	AuditLog AuditLog

	// Task queue (optional)
	TaskClient  TaskStatusReader
	Maintenance MaintenanceRunner

	// Application info
	Version string
}
