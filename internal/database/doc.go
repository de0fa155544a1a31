// Package database provides the data access layer for the application.
//
// # Architecture
//
// The database layer is organized into domain-specific sub-packages:
//
//	database/
//	├── database.go      # Connection setup, migrations, unique-violation detection
//	├── games/           # Shared catalog records
//	├── library/         # Per-user library items and dedup snapshots
//	├── ignored/         # Per-user ignore list
//	├── imported/        # Persisted import results and the query engine
//	├── ratelimit/       # Shared fixed-window counters for the limiter
//	├── runs/            # Import run history
//	└── users/           # User management
//
// # Using Sub-packages
//
// Each sub-package provides a Repository type with domain-specific operations:
//
//	db, err := database.NewDatabase("./savepoint.db")
//
//	gamesRepo := games.NewRepository(db.DB)
//	importedRepo := imported.NewRepository(db.DB)
//
//	game, err := gamesRepo.FindByCatalogID(ctx, 1942)
//	page, err := importedRepo.List(ctx, userID, imported.Query{Search: "witcher"})
//
// # Uniqueness
//
// Concurrent writers converge through unique constraints rather than
// client-side locking. The connection is opened with TranslateError so a
// constraint hit surfaces as gorm.ErrDuplicatedKey; repositories turn it
// into "already exists" results instead of errors.
//
// # Adding a New Domain
//
//  1. Create a new sub-package: internal/database/<domain>/
//  2. Define a Repository struct with a *gorm.DB field
//  3. Add NewRepository(db *gorm.DB) constructor
//  4. Add the entity to Models in database.go
//  5. Add compile-time interface check: var _ SomeInterface = (*Repository)(nil)
package database
