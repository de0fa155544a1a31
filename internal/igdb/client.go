// Package igdb is a client for the IGDB v4 game catalog.
//
// Requests are authenticated with a Twitch client-credentials token, which
// is cached until shortly before it expires, and paced with a token bucket
// so the client never exceeds the catalog's request rate.
package igdb

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

var (
	ErrRateLimited = errors.New("igdb rate limit exceeded")
	ErrUnavailable = errors.New("igdb unavailable")
	ErrNotFound    = errors.New("igdb game not found")
)

// tokenRefreshMargin is how long before expiry a cached token is replaced.
const tokenRefreshMargin = 60 * time.Second

const gameFields = "fields id, name, slug, summary, cover.image_id, first_release_date;"

// Game is one catalog entry.
type Game struct {
	ID             int64
	Name           string
	Slug           string
	Summary        string
	CoverImageID   string
	FirstReleaseAt *time.Time
}

type Config struct {
	ClientID       string
	ClientSecret   string
	BaseURL        string
	TokenURL       string
	RequestsPerSec int
	SearchLimit    int
	Timeout        time.Duration
}

type Client struct {
	httpClient *http.Client
	cfg        Config
	limiter    *rate.Limiter

	mu          sync.Mutex
	token       string
	tokenExpiry time.Time
	now         func() time.Time
}

func NewClient(cfg Config) *Client {
	if cfg.RequestsPerSec <= 0 {
		cfg.RequestsPerSec = 4
	}
	if cfg.SearchLimit <= 0 {
		cfg.SearchLimit = 10
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")

	return &Client{
		httpClient: &http.Client{Timeout: cfg.Timeout},
		cfg:        cfg,
		limiter:    rate.NewLimiter(rate.Limit(cfg.RequestsPerSec), cfg.RequestsPerSec),
		now:        time.Now,
	}
}

// Search returns catalog entries matching title, in the catalog's relevance order.
func (c *Client) Search(ctx context.Context, title string) ([]Game, error) {
	body := fmt.Sprintf(`search "%s"; %s limit %d;`, escapeQuery(title), gameFields, c.cfg.SearchLimit)
	return c.query(ctx, "games", body)
}

// FetchByID returns the full catalog entry for id.
func (c *Client) FetchByID(ctx context.Context, id int64) (*Game, error) {
	body := fmt.Sprintf(`%s where id = %d; limit 1;`, gameFields, id)
	games, err := c.query(ctx, "games", body)
	if err != nil {
		return nil, err
	}
	if len(games) == 0 {
		return nil, fmt.Errorf("%w: %d", ErrNotFound, id)
	}
	return &games[0], nil
}

func (c *Client) query(ctx context.Context, endpoint, body string) ([]Game, error) {
	token, err := c.accessToken(ctx)
	if err != nil {
		return nil, err
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+"/"+endpoint, strings.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Client-ID", c.cfg.ClientID)
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "text/plain")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		slog.Warn("igdb rate limit hit", "endpoint", endpoint)
		return nil, ErrRateLimited
	case resp.StatusCode == http.StatusUnauthorized:
		c.invalidateToken()
		return nil, fmt.Errorf("%w: token rejected", ErrUnavailable)
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("%w: unexpected status %d", ErrUnavailable, resp.StatusCode)
	}

	var raw []apiGame
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, fmt.Errorf("%w: decode response: %v", ErrUnavailable, err)
	}

	games := make([]Game, 0, len(raw))
	for _, g := range raw {
		games = append(games, g.toGame())
	}
	return games, nil
}

type apiGame struct {
	ID               int64  `json:"id"`
	Name             string `json:"name"`
	Slug             string `json:"slug"`
	Summary          string `json:"summary"`
	FirstReleaseDate int64  `json:"first_release_date"`
	Cover            *struct {
		ImageID string `json:"image_id"`
	} `json:"cover"`
}

func (g apiGame) toGame() Game {
	game := Game{
		ID:      g.ID,
		Name:    g.Name,
		Slug:    g.Slug,
		Summary: g.Summary,
	}
	if g.Cover != nil {
		game.CoverImageID = g.Cover.ImageID
	}
	if g.FirstReleaseDate > 0 {
		released := time.Unix(g.FirstReleaseDate, 0).UTC()
		game.FirstReleaseAt = &released
	}
	return game
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int64  `json:"expires_in"`
	TokenType   string `json:"token_type"`
}

// accessToken returns the cached token or fetches a new one. Concurrent
// callers share a single refresh.
func (c *Client) accessToken(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.token != "" && c.now().Before(c.tokenExpiry.Add(-tokenRefreshMargin)) {
		return c.token, nil
	}

	form := url.Values{
		"client_id":     {c.cfg.ClientID},
		"client_secret": {c.cfg.ClientSecret},
		"grant_type":    {"client_credentials"},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.TokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("create token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", fmt.Errorf("%w: token request: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("%w: token request status %d: %s", ErrUnavailable, resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	var tok tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tok); err != nil || tok.AccessToken == "" {
		return "", fmt.Errorf("%w: invalid token response", ErrUnavailable)
	}

	c.token = tok.AccessToken
	c.tokenExpiry = c.now().Add(time.Duration(tok.ExpiresIn) * time.Second)
	slog.Info("igdb token acquired", "expires_in", tok.ExpiresIn)

	return c.token, nil
}

func (c *Client) invalidateToken() {
	c.mu.Lock()
	c.token = ""
	c.mu.Unlock()
}

func escapeQuery(s string) string {
	return strings.NewReplacer(`\`, `\\`, `"`, `\"`).Replace(s)
}
