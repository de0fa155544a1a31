package database

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/mattn/go-sqlite3"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/mrlokans/savepoint/internal/entities"
)

type Database struct {
	DB *gorm.DB
}

// Models lists every entity migrated by NewDatabase.
var Models = []any{
	&entities.User{},
	&entities.Game{},
	&entities.LibraryItem{},
	&entities.IgnoredEntry{},
	&entities.ImportedGame{},
	&entities.ImportRun{},
	&entities.RateLimitWindow{},
	&entities.AuditEvent{},
}

func NewDatabase(dbPath string) (*Database, error) {
	return Open(dbPath, logger.Warn)
}

// Open connects to the SQLite file at dbPath with the given GORM log level
// and migrates the schema.
func Open(dbPath string, level logger.LogLevel) (*Database, error) {
	db, err := gorm.Open(sqlite.Open(dbPath+"?_busy_timeout=5000&_journal=WAL&_foreign_keys=on&_txlock=immediate"), &gorm.Config{
		Logger:         logger.Default.LogMode(level),
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := db.AutoMigrate(Models...); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	slog.Info("database initialized", "path", dbPath)

	return &Database{DB: db}, nil
}

func (d *Database) Close() error {
	sqlDB, err := d.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// IsUniqueViolation reports whether err came from a unique or primary key
// constraint, whether or not GORM translated it.
func IsUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique ||
			sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
	}
	return false
}
