package imported

import (
	"errors"
	"fmt"
	"time"

	"github.com/mrlokans/savepoint/internal/entities"
)

const (
	DefaultPageSize = 25
	MaxPageSize     = 100
)

var ErrInvalidFilter = errors.New("invalid filter")

type SortField string

const (
	SortByTitle      SortField = "title"
	SortByPlaytime   SortField = "playtime"
	SortByPlatform   SortField = "platform"
	SortByLastPlayed SortField = "last_played"
	SortByAdded      SortField = "added"
)

type SortOrder string

const (
	SortAsc  SortOrder = "asc"
	SortDesc SortOrder = "desc"
)

// LastPlayedRange bounds last_played_at. After is inclusive, Before is
// exclusive. Never selects entries that were never played and excludes the
// bounds.
type LastPlayedRange struct {
	After  *time.Time
	Before *time.Time
	Never  bool
}

// PlaytimeRange bounds total playtime in minutes. Min is inclusive, Max is exclusive.
type PlaytimeRange struct {
	Min *int
	Max *int
}

// Query describes one page of a user's imported games. All filters are
// conjunctive; zero values disable a filter.
type Query struct {
	Search      string
	Platform    string // windows, mac or linux
	LastPlayed  LastPlayedRange
	Playtime    PlaytimeRange
	MatchStatus entities.MatchStatus
	SortBy      SortField
	SortOrder   SortOrder
	Page        int
	PageSize    int
}

type Pagination struct {
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"total_pages"`
}

type Page struct {
	Items      []entities.ImportedGame `json:"items"`
	Pagination Pagination              `json:"pagination"`
}

func (q Query) normalized() Query {
	if q.Page < 1 {
		q.Page = 1
	}
	if q.PageSize <= 0 {
		q.PageSize = DefaultPageSize
	}
	if q.PageSize > MaxPageSize {
		q.PageSize = MaxPageSize
	}
	if q.SortBy == "" {
		q.SortBy = SortByAdded
	}
	if q.SortOrder == "" {
		if q.SortBy == SortByAdded {
			q.SortOrder = SortDesc
		} else {
			q.SortOrder = SortAsc
		}
	}
	return q
}

func (q Query) validate() error {
	switch q.Platform {
	case "", "windows", "mac", "linux":
	default:
		return fmt.Errorf("%w: unknown platform %q", ErrInvalidFilter, q.Platform)
	}
	switch q.SortBy {
	case SortByTitle, SortByPlaytime, SortByPlatform, SortByLastPlayed, SortByAdded:
	default:
		return fmt.Errorf("%w: unknown sort field %q", ErrInvalidFilter, q.SortBy)
	}
	switch q.SortOrder {
	case SortAsc, SortDesc:
	default:
		return fmt.Errorf("%w: unknown sort order %q", ErrInvalidFilter, q.SortOrder)
	}
	switch q.MatchStatus {
	case "", entities.MatchStatusPending, entities.MatchStatusMatched, entities.MatchStatusOwned,
		entities.MatchStatusIgnored, entities.MatchStatusUnmatched, entities.MatchStatusFailed:
	default:
		return fmt.Errorf("%w: unknown match status %q", ErrInvalidFilter, q.MatchStatus)
	}
	return nil
}

// LastPlayedPreset converts a named range into absolute bounds relative to now.
// "all" and "" return an empty range.
func LastPlayedPreset(name string, now time.Time) (LastPlayedRange, error) {
	monthAgo := now.AddDate(0, 0, -30)
	yearAgo := now.AddDate(0, 0, -365)
	switch name {
	case "", "all":
		return LastPlayedRange{}, nil
	case "30_days":
		return LastPlayedRange{After: &monthAgo}, nil
	case "1_year":
		return LastPlayedRange{After: &yearAgo}, nil
	case "over_1_year":
		return LastPlayedRange{Before: &yearAgo}, nil
	case "never":
		return LastPlayedRange{Never: true}, nil
	}
	return LastPlayedRange{}, fmt.Errorf("%w: unknown last played range %q", ErrInvalidFilter, name)
}

// PlaytimePreset converts a named playtime bucket into minute bounds.
func PlaytimePreset(name string) (PlaytimeRange, error) {
	between := func(lo, hi int) PlaytimeRange {
		r := PlaytimeRange{}
		if lo > 0 {
			r.Min = &lo
		}
		if hi > 0 {
			r.Max = &hi
		}
		return r
	}
	switch name {
	case "", "all":
		return PlaytimeRange{}, nil
	case "never_played":
		return between(0, 1), nil
	case "played":
		return between(1, 0), nil
	case "under_1h":
		return between(0, 60), nil
	case "1_to_10h":
		return between(60, 600), nil
	case "10_to_50h":
		return between(600, 3000), nil
	case "over_50h":
		return between(3000, 0), nil
	}
	return PlaytimeRange{}, fmt.Errorf("%w: unknown playtime range %q", ErrInvalidFilter, name)
}
