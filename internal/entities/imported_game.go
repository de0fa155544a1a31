package entities

import (
	"time"

	"gorm.io/gorm"
)

type Storefront string

const (
	StorefrontSteam Storefront = "steam"
)

// MatchStatus records what the last import run concluded about an entry.
type MatchStatus string

const (
	MatchStatusPending   MatchStatus = "pending"
	MatchStatusMatched   MatchStatus = "matched"   // Resolved and added to the library
	MatchStatusOwned     MatchStatus = "owned"     // Already in the library
	MatchStatusIgnored   MatchStatus = "ignored"   // Hidden by the user's ignore list
	MatchStatusUnmatched MatchStatus = "unmatched" // No catalog entry, needs a manual match
	MatchStatusFailed    MatchStatus = "failed"    // Transient failure, safe to retry
)

// ImportCandidate is one entry of an external library after strict parsing.
// It is never persisted as-is.
type ImportCandidate struct {
	ExternalID      string
	Title           string
	Playtime        int // minutes, total across platforms
	PlaytimeWindows int
	PlaytimeMac     int
	PlaytimeLinux   int
	LastPlayedAt    *time.Time
	CatalogID       *int64 // Set when an earlier run already matched this entry
}

// ImportedGame is the persisted result of importing one external library entry.
type ImportedGame struct {
	ID               uint           `gorm:"primaryKey" json:"id"`
	UserID           uint           `gorm:"not null;uniqueIndex:ux_imported_user_store_game,priority:1" json:"user_id"`
	Storefront       Storefront     `gorm:"not null;size:32;uniqueIndex:ux_imported_user_store_game,priority:2" json:"storefront"`
	StorefrontGameID string         `gorm:"not null;size:64;uniqueIndex:ux_imported_user_store_game,priority:3" json:"storefront_game_id"`
	Name             string         `gorm:"not null;size:512;index" json:"name"`
	Playtime         int            `gorm:"default:0" json:"playtime"`
	PlaytimeWindows  int            `gorm:"default:0" json:"playtime_windows"`
	PlaytimeMac      int            `gorm:"default:0" json:"playtime_mac"`
	PlaytimeLinux    int            `gorm:"default:0" json:"playtime_linux"`
	Platform         string         `gorm:"size:16" json:"platform,omitempty"` // OS with the most playtime
	LastPlayedAt     *time.Time     `json:"last_played_at,omitempty"`
	MatchStatus      MatchStatus    `gorm:"size:16;index;default:'pending'" json:"match_status"`
	CatalogID        *int64         `gorm:"index" json:"catalog_id,omitempty"`
	FailureReason    string         `gorm:"size:500" json:"failure_reason,omitempty"`
	CreatedAt        time.Time      `json:"created_at"`
	UpdatedAt        time.Time      `json:"updated_at"`
	DeletedAt        gorm.DeletedAt `gorm:"index" json:"-"`
}

// DominantPlatform returns the OS with the highest playtime, or "" when unplayed.
func (c ImportCandidate) DominantPlatform() string {
	best, platform := 0, ""
	for _, p := range []struct {
		name    string
		minutes int
	}{
		{"windows", c.PlaytimeWindows},
		{"mac", c.PlaytimeMac},
		{"linux", c.PlaytimeLinux},
	} {
		if p.minutes > best {
			best, platform = p.minutes, p.name
		}
	}
	return platform
}
