package entities

import "time"

type ImportRunStatus string

const (
	ImportRunStatusQueued    ImportRunStatus = "queued"
	ImportRunStatusRunning   ImportRunStatus = "running"
	ImportRunStatusCompleted ImportRunStatus = "completed"
	ImportRunStatusFailed    ImportRunStatus = "failed"
	ImportRunStatusCancelled ImportRunStatus = "cancelled"
)

// ImportRun is the history row for one library import invocation.
type ImportRun struct {
	ID             string          `gorm:"primaryKey;size:36" json:"id"`
	UserID         uint            `gorm:"index" json:"user_id"`
	Storefront     Storefront      `gorm:"size:32" json:"storefront"`
	AccountRef     string          `gorm:"size:64" json:"account_ref"`
	Status         ImportRunStatus `gorm:"size:20;index" json:"status"`
	Total          int             `json:"total"`
	Imported       int             `json:"imported"`
	SkippedOwned   int             `json:"skipped_owned"`
	SkippedIgnored int             `json:"skipped_ignored"`
	Failed         int             `json:"failed"`
	Unprocessed    int             `json:"unprocessed"`
	Error          string          `gorm:"type:text" json:"error,omitempty"`
	StartedAt      time.Time       `gorm:"index" json:"started_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
	CompletedAt    *time.Time      `json:"completed_at,omitempty"`
}

func (ImportRun) TableName() string {
	return "import_runs"
}
