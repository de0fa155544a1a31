// Package audit records a per-user activity trail: import runs, ignore list
// changes and authentication events.
package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"github.com/mrlokans/savepoint/internal/entities"
	"github.com/mrlokans/savepoint/internal/importers"
	"github.com/mrlokans/savepoint/internal/titles"
)

const (
	ActionSteamImport   = "steam_import"
	ActionIgnoreAdd     = "ignore_add"
	ActionIgnoreRemove  = "ignore_remove"
	ActionLogin         = "login"
	ActionTokenGenerate = "token_generate"
	ActionTokenRevoke   = "token_revoke"
)

// Store persists and lists events. Satisfied by database/audit.Repository.
type Store interface {
	LogEvent(ctx context.Context, event *entities.AuditEvent) error
	List(ctx context.Context, userID uint, eventType entities.AuditEventType, limit, offset int) ([]entities.AuditEvent, int64, error)
}

// Service provides high-level audit logging functionality.
type Service struct {
	repo Store
	wg   sync.WaitGroup
}

func NewService(repo Store) *Service {
	return &Service{repo: repo}
}

// Log records an event synchronously.
func (s *Service) Log(ctx context.Context, event *entities.AuditEvent) error {
	return s.repo.LogEvent(ctx, event)
}

// LogAsync records an event in the background. Failures are only logged.
func (s *Service) LogAsync(event *entities.AuditEvent) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		if err := s.repo.LogEvent(context.Background(), event); err != nil {
			slog.Warn("failed to log audit event", "action", event.Action, "error", err)
		}
	}()
}

// Wait blocks until every pending LogAsync write is done.
func (s *Service) Wait() {
	s.wg.Wait()
}

// LogImport records the outcome of one import run.
func (s *Service) LogImport(userID uint, runID string, summary importers.Summary, err error) {
	event := &entities.AuditEvent{
		UserID:    userID,
		EventType: entities.AuditEventImport,
		Action:    ActionSteamImport,
		Description: fmt.Sprintf("Imported %d of %d games (%d owned, %d ignored, %d failed)",
			summary.Imported, summary.Total, summary.SkippedOwned, summary.SkippedIgnored, summary.Failed),
		EntityRef: runID,
		Status:    entities.AuditStatusSuccess,
	}

	metadata := map[string]int{
		"total":           summary.Total,
		"imported":        summary.Imported,
		"skipped_owned":   summary.SkippedOwned,
		"skipped_ignored": summary.SkippedIgnored,
		"failed":          summary.Failed,
		"unprocessed":     summary.Unprocessed,
	}
	if b, e := json.Marshal(metadata); e == nil {
		event.Metadata = string(b)
	}

	if err != nil {
		event.Status = entities.AuditStatusFailed
		event.ErrorMsg = truncate(err.Error(), 500)
	}

	s.LogAsync(event)
}

// LogIgnore records an ignore list change.
func (s *Service) LogIgnore(userID uint, action, rawTitle string) {
	verb := "Ignored"
	if action == ActionIgnoreRemove {
		verb = "Stopped ignoring"
	}
	s.LogAsync(&entities.AuditEvent{
		UserID:      userID,
		EventType:   entities.AuditEventIgnore,
		Action:      action,
		Description: truncate(verb+" "+rawTitle, 500),
		EntityRef:   truncate(titles.Normalize(rawTitle), 512),
		Status:      entities.AuditStatusSuccess,
	})
}

// LogAuth records an authentication event. userID is 0 when the login name
// did not resolve to an account.
func (s *Service) LogAuth(userID uint, action, login, ipAddr, userAgent string, success bool) {
	event := &entities.AuditEvent{
		UserID:    userID,
		EventType: entities.AuditEventAuth,
		Action:    action,
		IPAddress: ipAddr,
		UserAgent: truncate(userAgent, 500),
		Status:    entities.AuditStatusSuccess,
	}
	if login != "" {
		event.Description = truncate("as "+login, 500)
	}
	if !success {
		event.Status = entities.AuditStatusFailed
	}

	s.LogAsync(event)
}

// Events returns a page of the user's events, most recent first.
func (s *Service) Events(ctx context.Context, userID uint, eventType entities.AuditEventType, limit, offset int) ([]entities.AuditEvent, int64, error) {
	return s.repo.List(ctx, userID, eventType, limit, offset)
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}
