package entities

import "time"

type AuditEventType string

const (
	AuditEventImport AuditEventType = "import"
	AuditEventIgnore AuditEventType = "ignore"
	AuditEventAuth   AuditEventType = "auth"
)

// ValidAuditEventType reports whether t is a known event type.
func ValidAuditEventType(t AuditEventType) bool {
	switch t {
	case AuditEventImport, AuditEventIgnore, AuditEventAuth:
		return true
	}
	return false
}

type AuditStatus string

const (
	AuditStatusSuccess AuditStatus = "success"
	AuditStatusFailed  AuditStatus = "failed"
)

// AuditEvent is one entry of a user's activity trail.
type AuditEvent struct {
	ID          uint           `gorm:"primaryKey" json:"id"`
	UserID      uint           `gorm:"index" json:"user_id"`
	EventType   AuditEventType `gorm:"index;size:50" json:"event_type"`
	Action      string         `gorm:"size:100" json:"action"`               // e.g., "steam_import", "ignore_add", "login"
	Description string         `gorm:"size:500" json:"description"`          // Human-readable summary
	EntityRef   string         `gorm:"size:512" json:"entity_ref,omitempty"` // Run id or normalized title
	Metadata    string         `gorm:"type:text" json:"metadata,omitempty"`  // JSON for extra data
	IPAddress   string         `gorm:"size:45" json:"ip_address,omitempty"`
	UserAgent   string         `gorm:"size:500" json:"user_agent,omitempty"`
	Status      AuditStatus    `gorm:"size:20" json:"status"`
	ErrorMsg    string         `gorm:"size:500" json:"error_msg,omitempty"`
	CreatedAt   time.Time      `gorm:"index" json:"created_at"`
}

func (AuditEvent) TableName() string {
	return "audit_events"
}
