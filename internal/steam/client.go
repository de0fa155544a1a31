// Package steam fetches a user's owned games from the Steam Web API and
// parses them strictly into import candidates.
package steam

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/mrlokans/savepoint/internal/entities"
)

var (
	ErrInvalidAccount = errors.New("invalid steam account")
	ErrUnauthorized   = errors.New("steam rejected the request")
	ErrUnavailable    = errors.New("steam unavailable")
	// ErrPrivateProfile is returned when the profile hides its game details.
	ErrPrivateProfile = fmt.Errorf("%w: profile game details are private", ErrUnauthorized)
)

var steamID64Pattern = regexp.MustCompile(`^\d{17}$`)

// Rejected is an owned-games entry that failed strict parsing.
type Rejected struct {
	Index  int    `json:"index"`
	AppID  int64  `json:"app_id,omitempty"`
	Name   string `json:"name,omitempty"`
	Reason string `json:"reason"`
}

// Library is the parsed result of one owned-games fetch.
type Library struct {
	SteamID64  string
	Candidates []entities.ImportCandidate
	Rejected   []Rejected
}

type Config struct {
	APIKey  string
	BaseURL string
	Timeout time.Duration
}

type Client struct {
	httpClient *http.Client
	apiKey     string
	baseURL    string
}

func NewClient(cfg Config) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	return &Client{
		httpClient: &http.Client{Timeout: cfg.Timeout},
		apiKey:     cfg.APIKey,
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
	}
}

// IsSteamID64 reports whether s has the shape of a 64-bit Steam ID.
func IsSteamID64(s string) bool {
	return steamID64Pattern.MatchString(s)
}

// ResolveAccount turns a Steam ID64 or a profile vanity name into a Steam ID64.
func (c *Client) ResolveAccount(ctx context.Context, input string) (string, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return "", fmt.Errorf("%w: empty account reference", ErrInvalidAccount)
	}
	if IsSteamID64(input) {
		return input, nil
	}

	params := url.Values{"key": {c.apiKey}, "vanityurl": {input}}
	var payload struct {
		Response struct {
			Success int    `json:"success"`
			SteamID string `json:"steamid"`
			Message string `json:"message"`
		} `json:"response"`
	}
	if err := c.get(ctx, "/ISteamUser/ResolveVanityURL/v1/", params, &payload); err != nil {
		return "", err
	}

	if payload.Response.Success != 1 || !IsSteamID64(payload.Response.SteamID) {
		return "", fmt.Errorf("%w: %q is neither a Steam ID64 nor a known profile name", ErrInvalidAccount, input)
	}
	slog.Info("resolved steam vanity name", "vanity", input, "steam_id", payload.Response.SteamID)
	return payload.Response.SteamID, nil
}

// Fetch returns the owned games of steamID64. Entries that fail strict
// parsing are returned in Library.Rejected and never as candidates.
func (c *Client) Fetch(ctx context.Context, steamID64 string) (*Library, error) {
	if !IsSteamID64(steamID64) {
		return nil, fmt.Errorf("%w: %q is not a 17-digit Steam ID64", ErrInvalidAccount, steamID64)
	}

	params := url.Values{
		"key":                       {c.apiKey},
		"steamid":                   {steamID64},
		"include_appinfo":           {"1"},
		"include_played_free_games": {"1"},
		"include_extended_appinfo":  {"1"},
		"format":                    {"json"},
	}
	var payload struct {
		Response struct {
			GameCount int                `json:"game_count"`
			Games     *[]json.RawMessage `json:"games"`
		} `json:"response"`
	}
	if err := c.get(ctx, "/IPlayerService/GetOwnedGames/v1/", params, &payload); err != nil {
		return nil, err
	}

	library := &Library{SteamID64: steamID64, Candidates: []entities.ImportCandidate{}}
	if payload.Response.Games == nil {
		if payload.Response.GameCount > 0 {
			return nil, ErrPrivateProfile
		}
		return library, nil
	}

	for i, raw := range *payload.Response.Games {
		candidate, rejected := parseOwnedGame(i, raw)
		if rejected != nil {
			library.Rejected = append(library.Rejected, *rejected)
			continue
		}
		library.Candidates = append(library.Candidates, candidate)
	}

	slog.Info("fetched steam library",
		"steam_id", steamID64, "games", len(library.Candidates), "rejected", len(library.Rejected))
	return library, nil
}

func (c *Client) get(ctx context.Context, path string, params url.Values, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path+"?"+params.Encode(), nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("%w: %v", ErrUnavailable, redactKey(err.Error(), c.apiKey))
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return fmt.Errorf("%w: status %d", ErrUnauthorized, resp.StatusCode)
	case resp.StatusCode == http.StatusTooManyRequests:
		return fmt.Errorf("%w: rate limited by steam", ErrUnavailable)
	case resp.StatusCode >= 500:
		return fmt.Errorf("%w: status %d", ErrUnavailable, resp.StatusCode)
	case resp.StatusCode != http.StatusOK:
		return fmt.Errorf("%w: unexpected status %d", ErrUnavailable, resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: decode response: %v", ErrUnavailable, err)
	}
	return nil
}

// ownedGame mirrors one GetOwnedGames entry. Pointers distinguish missing
// fields from zero values.
type ownedGame struct {
	AppID           *int64  `json:"appid"`
	Name            *string `json:"name"`
	PlaytimeForever *int    `json:"playtime_forever"`
	PlaytimeWindows *int    `json:"playtime_windows_forever"`
	PlaytimeMac     *int    `json:"playtime_mac_forever"`
	PlaytimeLinux   *int    `json:"playtime_linux_forever"`
	RTimeLastPlayed *int64  `json:"rtime_last_played"`
}

func parseOwnedGame(index int, raw json.RawMessage) (entities.ImportCandidate, *Rejected) {
	reject := func(g ownedGame, reason string) (entities.ImportCandidate, *Rejected) {
		r := &Rejected{Index: index, Reason: reason}
		if g.AppID != nil {
			r.AppID = *g.AppID
		}
		if g.Name != nil {
			r.Name = *g.Name
		}
		return entities.ImportCandidate{}, r
	}

	var g ownedGame
	if err := json.Unmarshal(raw, &g); err != nil {
		return reject(g, "malformed entry: "+err.Error())
	}
	if g.AppID == nil || *g.AppID <= 0 {
		return reject(g, "missing or invalid appid")
	}
	if g.Name == nil || strings.TrimSpace(*g.Name) == "" {
		return reject(g, "missing name")
	}
	if g.PlaytimeForever == nil || *g.PlaytimeForever < 0 {
		return reject(g, "missing or negative playtime")
	}

	perOS := [3]int{}
	for i, p := range []*int{g.PlaytimeWindows, g.PlaytimeMac, g.PlaytimeLinux} {
		if p == nil {
			continue
		}
		if *p < 0 {
			return reject(g, "negative platform playtime")
		}
		perOS[i] = *p
	}

	candidate := entities.ImportCandidate{
		ExternalID:      strconv.FormatInt(*g.AppID, 10),
		Title:           strings.TrimSpace(*g.Name),
		Playtime:        *g.PlaytimeForever,
		PlaytimeWindows: perOS[0],
		PlaytimeMac:     perOS[1],
		PlaytimeLinux:   perOS[2],
	}
	if g.RTimeLastPlayed != nil && *g.RTimeLastPlayed > 0 {
		lastPlayed := time.Unix(*g.RTimeLastPlayed, 0).UTC()
		candidate.LastPlayedAt = &lastPlayed
	}
	return candidate, nil
}

func redactKey(s, key string) string {
	if key == "" {
		return s
	}
	return strings.ReplaceAll(s, key, "REDACTED")
}
