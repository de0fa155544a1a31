// Package auth authenticates API requests.
//
// Two modes are supported:
//   - "none": every request acts as the single default user (DefaultUserID)
//   - "local": users log in with a password and receive a session cookie, or
//     call the API with a Bearer token issued by POST /api/auth/token
//
// # Configuration
//
//	AUTH_MODE=none|local
//	AUTH_SESSION_LIFETIME=24h
//	AUTH_TOKEN_EXPIRY=720h
//	AUTH_BCRYPT_COST=12
//	AUTH_LOCKOUT_DURATION=30m
//	AUTH_SECURE_COOKIES=true
//	AUTH_CSRF_SECRET=<hex-32-bytes>  # Generated at startup if empty
//
// # Usage
//
//	authService := auth.NewService(db, cfg.Auth)
//	sessions, _ := auth.NewSessionManager(sqlDB, cfg.Auth)
//	mw := auth.NewMiddleware(authService, sessions, cfg.Auth)
//	router.Use(sessions.SessionLoadSave(), mw.Handler())
//
// Handlers read the caller with auth.GetUserID(c).
package auth
