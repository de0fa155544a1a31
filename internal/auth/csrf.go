package auth

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/csrf"
)

// CSRFTokenHeader carries the token on session-authenticated writes.
const CSRFTokenHeader = "X-CSRF-Token"

const csrfTokenContextKey = "csrf_token"

// CSRFMiddleware protects cookie-authenticated requests. Requests carrying
// a valid Bearer token are exempt because browsers never attach one on
// their own. The current token is echoed back in the X-CSRF-Token response
// header.
func CSRFMiddleware(secret []byte, secure bool, service *Service) gin.HandlerFunc {
	protect := csrf.Protect(
		secret,
		csrf.Secure(secure),
		csrf.HttpOnly(true),
		csrf.SameSite(csrf.SameSiteStrictMode),
		csrf.Path("/"),
		csrf.RequestHeader(CSRFTokenHeader),
		csrf.ErrorHandler(http.HandlerFunc(csrfFailed)),
	)

	return func(c *gin.Context) {
		if hasValidBearer(c, service) {
			c.Next()
			return
		}

		if !secure {
			c.Request = csrf.PlaintextHTTPRequest(c.Request)
		}

		passed := false
		protect(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			passed = true
			token := csrf.Token(r)
			c.Set(csrfTokenContextKey, token)
			c.Header(CSRFTokenHeader, token)
			c.Request = r
			c.Next()
		})).ServeHTTP(c.Writer, c.Request)

		if !passed {
			c.Abort()
		}
	}
}

func csrfFailed(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(http.StatusForbidden)
	_, _ = w.Write([]byte(`{"error":"CSRF token invalid or missing","code":"CSRF_FAILED"}`))
}

func hasValidBearer(c *gin.Context, service *Service) bool {
	token, ok := bearerToken(c)
	if !ok || service == nil {
		return false
	}
	_, err := service.ValidateToken(c.Request.Context(), token)
	return err == nil
}

func bearerToken(c *gin.Context) (string, bool) {
	header := c.GetHeader("Authorization")
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "bearer") || token == "" {
		return "", false
	}
	return strings.TrimSpace(token), true
}

// GetCSRFToken returns the token issued for this request, if any.
func GetCSRFToken(c *gin.Context) string {
	return c.GetString(csrfTokenContextKey)
}
