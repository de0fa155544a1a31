// Package interfaces documents the core abstractions used throughout the application.
//
// It holds no runtime code. checks.go asserts at compile time that each
// concrete type satisfies the interfaces it is wired into.
//
// # Interface Categories
//
// ## Data Access Interfaces
//
//   - ratelimit.Store: shared fixed-window counters (internal/database/ratelimit)
//   - catalog.GameStore: catalog records keyed by IGDB id (internal/database/games)
//   - importers.LibraryStore: owned games and idempotent library inserts (internal/database/library)
//   - importers.IgnoreList / services.IgnoreStore: per-user ignore list (internal/database/ignored)
//   - importers.ImportedStore / services.ImportedReader: imported game rows and queries (internal/database/imported)
//   - services.RunStore: import run history (internal/database/runs)
//   - audit.Store: activity trail (internal/database/audit)
//
// ## External Service Interfaces
//
//   - services.LibraryFetcher: owned games from Steam (internal/steam)
//   - catalog.Catalog: game search and lookup on IGDB (internal/igdb)
//
// ## Pipeline Interfaces
//
//   - catalog.Admitter: catalog search budget (ratelimit.Limiter)
//   - importers.Resolver: title to catalog record (catalog.Resolver)
//   - services.Importer: candidate reconciliation (importers.Orchestrator)
//   - services.Auditor and auth.EventLogger: activity trail (audit.Service)
//
// ## Background Task Interfaces
//
//   - services.ImportQueue, scheduler.Enqueuer, http.TaskStatusReader: backlite queue (tasks.Client)
//   - tasks.*Cleaner: retention and expiry of stored rows
//
// # Adding a New Storefront
//
// To import from another storefront:
//
//  1. Add a client that returns entities.ImportCandidate values and
//     importers.Rejected entries for rows that fail strict parsing.
//
//  2. Add an entities.Storefront constant and build an importers.Orchestrator
//     with it, so imported_games rows stay unique per storefront.
//
//  3. Expose a service method next to LibraryImportService.StartImport and
//     add the compile-time check here:
//
//     var _ services.LibraryFetcher = (*gog.Client)(nil)
//
// # Testing
//
// Tests use hand-written fakes of these interfaces (see fakes_test.go in
// internal/http and the mocks in internal/services) and real SQLite
// databases under t.TempDir() for repositories.
package interfaces
