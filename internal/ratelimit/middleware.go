package ratelimit

import (
	"math"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
)

// KeyFunc derives the limiter key for a request.
type KeyFunc func(c *gin.Context) string

// ClientIPKey keys requests by client IP.
func ClientIPKey(prefix string) KeyFunc {
	return func(c *gin.Context) string {
		return prefix + ":ip:" + c.ClientIP()
	}
}

// Middleware rejects requests over the limit with 429 and reports the
// remaining quota on every response.
func (l *Limiter) Middleware(keyFunc KeyFunc) gin.HandlerFunc {
	return func(c *gin.Context) {
		decision := l.Allow(c.Request.Context(), keyFunc(c))

		c.Header("X-RateLimit-Limit", strconv.Itoa(l.cfg.Limit))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(decision.Remaining))

		if !decision.Allowed {
			retryAfter := int(math.Ceil(decision.RetryAfter(l.clock.Now()).Seconds()))
			c.Header("Retry-After", strconv.Itoa(retryAfter))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error":               "rate limit exceeded",
				"code":                "RATE_LIMITED",
				"remaining":           decision.Remaining,
				"retry_after_seconds": retryAfter,
			})
			return
		}

		c.Next()
	}
}
