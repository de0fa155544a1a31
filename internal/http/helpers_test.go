package http

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/mrlokans/savepoint/internal/database/imported"
	"github.com/mrlokans/savepoint/internal/database/runs"
	"github.com/mrlokans/savepoint/internal/services"
	"github.com/mrlokans/savepoint/internal/steam"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestParseIntQuery(t *testing.T) {
	tests := []struct {
		name   string
		query  string
		want   int
		wantOK bool
	}{
		{"missing uses default", "/", 20, true},
		{"valid", "/?limit=5", 5, true},
		{"zero", "/?limit=0", 0, false},
		{"negative", "/?limit=-3", 0, false},
		{"not a number", "/?limit=abc", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)
			c.Request = httptest.NewRequest("GET", tt.query, nil)

			n, ok := parseIntQuery(c, "limit", 20)

			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, n)
			if !tt.wantOK {
				assert.Equal(t, http.StatusBadRequest, w.Code)
				assert.Contains(t, w.Body.String(), "invalid limit")
			}
		})
	}
}

func TestRequireUser(t *testing.T) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	_, ok := requireUser(c)
	assert.False(t, ok)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = httptest.NewRecorder()
	c, _ = gin.CreateTestContext(w)
	c.Set("auth_user_id", uint(9))
	id, ok := requireUser(c)
	assert.True(t, ok)
	assert.Equal(t, uint(9), id)
}

func TestRespondServiceError(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"unauthenticated", services.ErrUnauthenticated, http.StatusUnauthorized, "UNAUTHENTICATED"},
		{"invalid account", &services.RunError{Kind: services.RunInvalidAccount, Err: steam.ErrInvalidAccount}, http.StatusBadRequest, "INVALID_ACCOUNT"},
		{"fetch unavailable", &services.RunError{Kind: services.RunFetchUnavailable, Err: steam.ErrUnavailable}, http.StatusBadGateway, "FETCH_UNAVAILABLE"},
		{"fetch unauthorized", &services.RunError{Kind: services.RunFetchUnauthorized, Err: steam.ErrUnauthorized}, http.StatusBadGateway, "FETCH_UNAUTHORIZED"},
		{"invalid filter", fmt.Errorf("%w: unknown platform", imported.ErrInvalidFilter), http.StatusBadRequest, "INVALID_FILTER"},
		{"empty title", services.ErrEmptyTitle, http.StatusBadRequest, "EMPTY_TITLE"},
		{"not ignored", services.ErrNotIgnored, http.StatusNotFound, "NOT_IGNORED"},
		{"run not found", runs.ErrRunNotFound, http.StatusNotFound, "NOT_FOUND"},
		{"queue disabled", services.ErrQueueDisabled, http.StatusServiceUnavailable, "QUEUE_DISABLED"},
		{"timeout", context.DeadlineExceeded, http.StatusGatewayTimeout, "TIMEOUT"},
		{"wrapped timeout", fmt.Errorf("fetch library: %w", context.DeadlineExceeded), http.StatusGatewayTimeout, "TIMEOUT"},
		{"cancelled", context.Canceled, StatusClientClosedRequest, "CANCELLED"},
		{"unknown", errors.New("boom"), http.StatusInternalServerError, "INTERNAL"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)

			respondServiceError(c, tt.err, "test")

			assert.Equal(t, tt.status, w.Code)
			assert.Contains(t, w.Body.String(), `"code":"`+tt.code+`"`)
		})
	}
}

func TestRespondInternalError_HidesDetails(t *testing.T) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	respondInternalError(c, errors.New("database file is locked"), "test")

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.NotContains(t, w.Body.String(), "locked")
}
