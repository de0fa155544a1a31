package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/savepoint/internal/ratelimit"
)

// LoginLimiter throttles login attempts per client.
type LoginLimiter interface {
	Allow(ctx context.Context, key string) ratelimit.Decision
}

// EventLogger records authentication events. Satisfied by audit.Service.
type EventLogger interface {
	LogAuth(userID uint, action, login, ipAddr, userAgent string, success bool)
}

// Controller serves the /api/auth endpoints.
type Controller struct {
	service  *Service
	sessions *SessionManager
	limiter  LoginLimiter
	events   EventLogger
}

// NewController wires the auth endpoints. sessions and limiter may be nil.
func NewController(service *Service, sessions *SessionManager, limiter LoginLimiter) *Controller {
	return &Controller{service: service, sessions: sessions, limiter: limiter}
}

// SetEventLogger enables the authentication audit trail.
func (ac *Controller) SetEventLogger(events EventLogger) {
	ac.events = events
}

func (ac *Controller) logEvent(c *gin.Context, userID uint, action, login string, success bool) {
	if ac.events != nil {
		ac.events.LogAuth(userID, action, login, c.ClientIP(), c.Request.UserAgent(), success)
	}
}

func (ac *Controller) RegisterRoutes(api *gin.RouterGroup) {
	group := api.Group("/auth")
	group.POST("/login", ac.Login)
	group.POST("/logout", ac.Logout)
	group.GET("/me", ac.Me)
	group.POST("/token", ac.GenerateToken)
	group.DELETE("/token", ac.RevokeToken)
}

type loginRequest struct {
	Login    string `json:"login" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type userResponse struct {
	ID       uint   `json:"id"`
	Username string `json:"username"`
	Role     string `json:"role"`
}

// Login checks credentials and starts a session.
func (ac *Controller) Login(c *gin.Context) {
	if ac.limiter != nil {
		d := ac.limiter.Allow(c.Request.Context(), LoginRateKey(c.ClientIP()))
		if !d.Allowed {
			retryAfter := d.RetryAfter(time.Now())
			c.Header("Retry-After", strconv.Itoa(int(math.Ceil(retryAfter.Seconds()))))
			c.JSON(http.StatusTooManyRequests, gin.H{
				"error": "too many login attempts, try again later",
				"code":  "RATE_LIMITED",
			})
			return
		}
	}

	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "login and password are required", "code": "BAD_REQUEST"})
		return
	}

	user, err := ac.service.Authenticate(c.Request.Context(), req.Login, req.Password)
	switch {
	case errors.Is(err, ErrAccountLocked):
		ac.logEvent(c, 0, "login", req.Login, false)
		c.JSON(http.StatusForbidden, gin.H{"error": "account is locked, try again later", "code": "ACCOUNT_LOCKED"})
		return
	case errors.Is(err, ErrUserNotFound), errors.Is(err, ErrInvalidPassword):
		slog.Info("failed login", "login", req.Login, "client_ip", c.ClientIP())
		ac.logEvent(c, 0, "login", req.Login, false)
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid username or password", "code": "INVALID_CREDENTIALS"})
		return
	case err != nil:
		slog.Error("login failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "login failed", "code": "INTERNAL_ERROR"})
		return
	}

	if ac.sessions != nil {
		if err := ac.sessions.CreateSession(c.Request.Context(), user); err != nil {
			slog.Error("failed to create session", "user_id", user.ID, "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create session", "code": "INTERNAL_ERROR"})
			return
		}
	}

	ac.logEvent(c, user.ID, "login", req.Login, true)
	c.JSON(http.StatusOK, gin.H{
		"user": userResponse{ID: user.ID, Username: user.Username, Role: string(user.Role)},
	})
}

func (ac *Controller) Logout(c *gin.Context) {
	if ac.sessions != nil {
		if err := ac.sessions.DestroySession(c.Request.Context()); err != nil {
			slog.Warn("failed to destroy session", "error", err)
		}
	}
	c.Status(http.StatusNoContent)
}

func (ac *Controller) Me(c *gin.Context) {
	userID := GetUserID(c)
	if userID == 0 {
		abortUnauthenticated(c)
		return
	}
	user, err := ac.service.GetUserByID(c.Request.Context(), userID)
	if err != nil {
		abortUnauthenticated(c)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"user":      userResponse{ID: user.ID, Username: user.Username, Role: string(user.Role)},
		"auth_type": GetAuthType(c),
		"steam_id":  user.SteamID64,
	})
}

// GenerateToken issues a new API token, replacing any previous one. The
// plaintext is returned only here.
func (ac *Controller) GenerateToken(c *gin.Context) {
	userID := GetUserID(c)
	if userID == 0 {
		abortUnauthenticated(c)
		return
	}

	token, err := ac.service.GenerateToken(c.Request.Context(), userID)
	if err != nil {
		slog.Error("failed to generate token", "user_id", userID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to generate token", "code": "INTERNAL_ERROR"})
		return
	}

	ac.logEvent(c, userID, "token_generate", "", true)
	c.JSON(http.StatusOK, gin.H{
		"token":   token,
		"message": "Store this token securely - it will not be shown again",
	})
}

func (ac *Controller) RevokeToken(c *gin.Context) {
	userID := GetUserID(c)
	if userID == 0 {
		abortUnauthenticated(c)
		return
	}
	if err := ac.service.RevokeToken(c.Request.Context(), userID); err != nil {
		slog.Error("failed to revoke token", "user_id", userID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to revoke token", "code": "INTERNAL_ERROR"})
		return
	}
	ac.logEvent(c, userID, "token_revoke", "", true)
	c.Status(http.StatusNoContent)
}

// LoginRateKey is the limiter key for login attempts from one client.
func LoginRateKey(clientIP string) string {
	return fmt.Sprintf("login:ip:%s", clientIP)
}
