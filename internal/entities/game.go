package entities

import "time"

// Game is the canonical catalog identity shared by every user.
// CatalogID is the upstream catalog (IGDB) identifier.
type Game struct {
	ID             uint       `gorm:"primaryKey" json:"id"`
	CatalogID      int64      `gorm:"uniqueIndex;not null" json:"catalog_id"`
	Title          string     `gorm:"index;size:512;not null" json:"title"`
	Slug           string     `gorm:"size:512" json:"slug,omitempty"`
	Summary        string     `gorm:"type:text" json:"summary,omitempty"`
	CoverImageID   string     `gorm:"size:64" json:"cover_image_id,omitempty"`
	FirstReleaseAt *time.Time `json:"first_release_at,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

type LibraryItemStatus string

const (
	LibraryItemStatusCuriousAbout LibraryItemStatus = "curious_about"
	LibraryItemStatusWantToPlay   LibraryItemStatus = "want_to_play"
	LibraryItemStatusPlaying      LibraryItemStatus = "playing"
	LibraryItemStatusPlayed       LibraryItemStatus = "played"
	LibraryItemStatusWishlist     LibraryItemStatus = "wishlist"
)

type AcquisitionType string

const (
	AcquisitionTypeDigital      AcquisitionType = "digital"
	AcquisitionTypePhysical     AcquisitionType = "physical"
	AcquisitionTypeSubscription AcquisitionType = "subscription"
)

// LibraryItem records that a user owns (or tracks) a catalog game.
// A user holds at most one item per game.
type LibraryItem struct {
	ID              uint              `gorm:"primaryKey" json:"id"`
	UserID          uint              `gorm:"not null;uniqueIndex:ux_library_user_game,priority:1" json:"user_id"`
	GameID          uint              `gorm:"not null;uniqueIndex:ux_library_user_game,priority:2;index" json:"game_id"`
	Status          LibraryItemStatus `gorm:"size:32;default:'curious_about'" json:"status"`
	Platform        string            `gorm:"size:64" json:"platform,omitempty"`
	AcquisitionType AcquisitionType   `gorm:"size:32;default:'digital'" json:"acquisition_type"`
	StartedAt       *time.Time        `json:"started_at,omitempty"`
	CompletedAt     *time.Time        `json:"completed_at,omitempty"`
	Game            *Game             `gorm:"foreignKey:GameID" json:"game,omitempty"`
	CreatedAt       time.Time         `json:"created_at"`
	UpdatedAt       time.Time         `json:"updated_at"`
}

// IgnoredEntry hides a title from future imports for one user.
type IgnoredEntry struct {
	ID              uint      `gorm:"primaryKey" json:"id"`
	UserID          uint      `gorm:"not null;uniqueIndex:ux_ignored_user_title,priority:1" json:"user_id"`
	NormalizedTitle string    `gorm:"not null;size:512;uniqueIndex:ux_ignored_user_title,priority:2" json:"normalized_title"`
	Title           string    `gorm:"size:512" json:"title"`
	CreatedAt       time.Time `json:"created_at"`
}
