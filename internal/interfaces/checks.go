package interfaces

// This file contains compile-time interface implementation checks.
// These ensure that concrete types satisfy their interfaces at compile time,
// catching missing methods before runtime.
//
// To verify all checks pass: go build ./internal/interfaces/...

import (
	"github.com/mrlokans/savepoint/internal/audit"
	"github.com/mrlokans/savepoint/internal/auth"
	"github.com/mrlokans/savepoint/internal/catalog"
	auditstore "github.com/mrlokans/savepoint/internal/database/audit"
	"github.com/mrlokans/savepoint/internal/database/games"
	"github.com/mrlokans/savepoint/internal/database/ignored"
	"github.com/mrlokans/savepoint/internal/database/imported"
	"github.com/mrlokans/savepoint/internal/database/library"
	ratelimitstore "github.com/mrlokans/savepoint/internal/database/ratelimit"
	"github.com/mrlokans/savepoint/internal/database/runs"
	"github.com/mrlokans/savepoint/internal/database/users"
	"github.com/mrlokans/savepoint/internal/http"
	"github.com/mrlokans/savepoint/internal/igdb"
	"github.com/mrlokans/savepoint/internal/importers"
	"github.com/mrlokans/savepoint/internal/ratelimit"
	"github.com/mrlokans/savepoint/internal/scheduler"
	"github.com/mrlokans/savepoint/internal/services"
	"github.com/mrlokans/savepoint/internal/steam"
	"github.com/mrlokans/savepoint/internal/tasks"
)

// =============================================================================
// Data Access Layer
// =============================================================================

var _ ratelimit.Store = (*ratelimitstore.Repository)(nil)
var _ catalog.GameStore = (*games.Repository)(nil)
var _ importers.LibraryStore = (*library.Repository)(nil)
var _ importers.IgnoreList = (*ignored.Repository)(nil)
var _ importers.ImportedStore = (*imported.Repository)(nil)

var _ services.UserStore = (*users.Repository)(nil)
var _ services.RunStore = (*runs.Repository)(nil)
var _ services.ImportedReader = (*imported.Repository)(nil)
var _ services.IgnoreStore = (*ignored.Repository)(nil)
var _ audit.Store = (*auditstore.Repository)(nil)

// =============================================================================
// External Services
// =============================================================================

var _ catalog.Catalog = (*igdb.Client)(nil)
var _ services.LibraryFetcher = (*steam.Client)(nil)

// =============================================================================
// Import Pipeline
// =============================================================================

var _ catalog.Admitter = (*ratelimit.Limiter)(nil)
var _ importers.Resolver = (*catalog.Resolver)(nil)
var _ services.Importer = (*importers.Orchestrator)(nil)
var _ services.Auditor = (*audit.Service)(nil)
var _ http.ImportAPI = (*services.LibraryImportService)(nil)

// =============================================================================
// Authentication & Audit
// =============================================================================

var _ auth.LoginLimiter = (*ratelimit.Limiter)(nil)
var _ auth.EventLogger = (*audit.Service)(nil)
var _ http.AuditLog = (*audit.Service)(nil)
var _ http.LimiterState = (*ratelimit.Limiter)(nil)

// =============================================================================
// Background Tasks
// =============================================================================

var _ services.ImportQueue = (*tasks.Client)(nil)
var _ scheduler.Enqueuer = (*tasks.Client)(nil)
var _ http.TaskStatusReader = (*tasks.Client)(nil)
var _ http.MaintenanceRunner = (*scheduler.MaintenanceScheduler)(nil)
var _ tasks.RunExecutor = (*services.LibraryImportService)(nil)
var _ tasks.RateLimitCleaner = (*ratelimitstore.Repository)(nil)
var _ tasks.ImportRunCleaner = (*runs.Repository)(nil)
var _ tasks.AuditEventCleaner = (*auditstore.Repository)(nil)
var _ tasks.SessionCleaner = (*auth.SessionManager)(nil)
