package auth

import (
	"context"
	"database/sql"
	"encoding/gob"
	"fmt"
	"net/http"
	"time"

	"github.com/alexedwards/scs/sqlite3store"
	"github.com/alexedwards/scs/v2"

	"github.com/mrlokans/savepoint/internal/config"
	"github.com/mrlokans/savepoint/internal/entities"
)

const (
	SessionCookieName = "savepoint_session"

	sessionKeyUserID  = "user_id"
	sessionKeyRole    = "role"
	sessionKeyLoginAt = "login_at"
)

func init() {
	gob.Register(entities.UserRole(""))
	gob.Register(time.Time{})
}

// SessionManager stores login sessions in the application database.
type SessionManager struct {
	*scs.SessionManager
	db *sql.DB
}

// NewSessionManager creates the sessions table if needed and returns a
// manager backed by it. sqlDB is the connection pool underneath GORM.
func NewSessionManager(sqlDB *sql.DB, cfg config.Auth) (*SessionManager, error) {
	_, err := sqlDB.Exec(`CREATE TABLE IF NOT EXISTS sessions (
		token TEXT PRIMARY KEY,
		data BLOB NOT NULL,
		expiry REAL NOT NULL
	);
	CREATE INDEX IF NOT EXISTS sessions_expiry_idx ON sessions(expiry);`)
	if err != nil {
		return nil, fmt.Errorf("failed to create sessions table: %w", err)
	}

	lifetime := cfg.SessionLifetime
	if lifetime <= 0 {
		lifetime = 24 * time.Hour
	}

	// A zero cleanup interval leaves expired rows to the scheduler's sweep.
	sm := scs.New()
	sm.Store = sqlite3store.NewWithCleanupInterval(sqlDB, 0)
	sm.Lifetime = lifetime
	sm.IdleTimeout = lifetime / 2
	sm.Cookie.Name = SessionCookieName
	sm.Cookie.HttpOnly = true
	sm.Cookie.Secure = cfg.SecureCookies
	sm.Cookie.SameSite = http.SameSiteStrictMode
	sm.Cookie.Path = "/"

	return &SessionManager{SessionManager: sm, db: sqlDB}, nil
}

// CreateSession logs user in on the request's session. The token is renewed
// first so a pre-login session id cannot be reused.
func (sm *SessionManager) CreateSession(ctx context.Context, user *entities.User) error {
	if err := sm.RenewToken(ctx); err != nil {
		return err
	}
	sm.Put(ctx, sessionKeyUserID, int(user.ID))
	sm.Put(ctx, sessionKeyRole, user.Role)
	sm.Put(ctx, sessionKeyLoginAt, time.Now())
	return nil
}

func (sm *SessionManager) DestroySession(ctx context.Context) error {
	return sm.Destroy(ctx)
}

// UserID returns the logged in user, or 0.
func (sm *SessionManager) UserID(ctx context.Context) uint {
	return uint(sm.GetInt(ctx, sessionKeyUserID))
}

func (sm *SessionManager) Role(ctx context.Context) entities.UserRole {
	role, _ := sm.Get(ctx, sessionKeyRole).(entities.UserRole)
	return role
}

// DeleteExpired removes expired session rows and returns how many went.
func (sm *SessionManager) DeleteExpired(ctx context.Context) (int64, error) {
	result, err := sm.db.ExecContext(ctx, `DELETE FROM sessions WHERE julianday('now') > expiry`)
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired sessions: %w", err)
	}
	return result.RowsAffected()
}
