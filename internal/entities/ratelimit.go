package entities

// RateLimitWindow is the shared fixed-window counter for one limiter key.
type RateLimitWindow struct {
	BucketKey string `gorm:"primaryKey;size:255"`
	Hits      int    `gorm:"not null;default:0"`
	ResetAtMs int64  `gorm:"not null;index"`
}

func (RateLimitWindow) TableName() string {
	return "rate_limit_windows"
}
