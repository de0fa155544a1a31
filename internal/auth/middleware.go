package auth

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/savepoint/internal/config"
	"github.com/mrlokans/savepoint/internal/entities"
)

const (
	ContextKeyUserID   = "auth_user_id"
	ContextKeyRole     = "auth_role"
	ContextKeyAuthType = "auth_type"
)

type AuthType string

const (
	AuthTypeNone    AuthType = "none"
	AuthTypeSession AuthType = "session"
	AuthTypeBearer  AuthType = "bearer"
)

// DefaultUserID owns all data when authentication is disabled. The
// entrypoint makes sure this user exists.
const DefaultUserID = uint(1)

type Middleware struct {
	service  *Service
	sessions *SessionManager
	config   config.Auth
	public   map[string]bool
}

func NewMiddleware(service *Service, sessions *SessionManager, cfg config.Auth) *Middleware {
	return &Middleware{
		service:  service,
		sessions: sessions,
		config:   cfg,
		public: map[string]bool{
			"/health":         true,
			"/ping":           true,
			"/api/auth/login": true,
		},
	}
}

// Handler identifies the caller. In "none" mode every request acts as
// DefaultUserID. In "local" mode a Bearer token is tried before the session
// cookie, and anonymous requests to non-public paths get 401.
func (m *Middleware) Handler() gin.HandlerFunc {
	if m.config.Mode != config.AuthModeLocal {
		return func(c *gin.Context) {
			c.Set(ContextKeyUserID, DefaultUserID)
			c.Set(ContextKeyRole, entities.UserRoleAdmin)
			c.Set(ContextKeyAuthType, AuthTypeNone)
			c.Next()
		}
	}

	return func(c *gin.Context) {
		if user := m.bearerUser(c); user != nil {
			setUser(c, user.ID, user.Role, AuthTypeBearer)
			c.Next()
			return
		}
		if id, role := m.sessionUser(c); id != 0 {
			setUser(c, id, role, AuthTypeSession)
			c.Next()
			return
		}

		if m.public[c.Request.URL.Path] {
			c.Next()
			return
		}
		abortUnauthenticated(c)
	}
}

func (m *Middleware) bearerUser(c *gin.Context) *entities.User {
	token, ok := bearerToken(c)
	if !ok {
		return nil
	}
	user, err := m.service.ValidateToken(c.Request.Context(), token)
	if err != nil {
		return nil
	}
	return user
}

// sessionUser re-reads the user so that deleted accounts lose access even
// while their session cookie is still valid.
func (m *Middleware) sessionUser(c *gin.Context) (uint, entities.UserRole) {
	if m.sessions == nil {
		return 0, ""
	}
	id := m.sessions.UserID(c.Request.Context())
	if id == 0 {
		return 0, ""
	}
	user, err := m.service.GetUserByID(c.Request.Context(), id)
	if err != nil {
		return 0, ""
	}
	return user.ID, user.Role
}

func setUser(c *gin.Context, id uint, role entities.UserRole, authType AuthType) {
	c.Set(ContextKeyUserID, id)
	c.Set(ContextKeyRole, role)
	c.Set(ContextKeyAuthType, authType)
}

func abortUnauthenticated(c *gin.Context) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
		"error": "authentication required",
		"code":  "UNAUTHENTICATED",
	})
}

// RequireRole rejects callers whose role is not listed.
func (m *Middleware) RequireRole(roles ...entities.UserRole) gin.HandlerFunc {
	allowed := make(map[entities.UserRole]bool, len(roles))
	for _, r := range roles {
		allowed[r] = true
	}
	return func(c *gin.Context) {
		if GetUserID(c) == 0 {
			abortUnauthenticated(c)
			return
		}
		if !allowed[GetUserRole(c)] {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"error": "insufficient permissions",
				"code":  "FORBIDDEN",
			})
			return
		}
		c.Next()
	}
}

// GetUserID returns the authenticated user, or 0 for anonymous requests.
func GetUserID(c *gin.Context) uint {
	if id, ok := c.Get(ContextKeyUserID); ok {
		if userID, ok := id.(uint); ok {
			return userID
		}
	}
	return 0
}

func GetUserRole(c *gin.Context) entities.UserRole {
	if r, ok := c.Get(ContextKeyRole); ok {
		if role, ok := r.(entities.UserRole); ok {
			return role
		}
	}
	return ""
}

func GetAuthType(c *gin.Context) AuthType {
	if t, ok := c.Get(ContextKeyAuthType); ok {
		if authType, ok := t.(AuthType); ok {
			return authType
		}
	}
	return AuthTypeNone
}
