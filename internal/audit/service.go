package audit

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/choplife/choplifeib/internal/database/audit"
	"github.com/choplife/choplifeib/internal/entities"
	"github.com/choplife/choplifeib/internal/logging"
)

// Action describes one back-office change to be recorded.
type Action struct {
	ActorID     uint
	EventType   entities.AuditEventType
	Action      string
	EntityType  string
	EntityID    uint
	Description string
	Metadata    map[string]any
	IPAddress   string
	UserAgent   string
	Err         error
}

// Service provides high-level audit logging functionality.
type Service struct {
	repo *audit.Repository
}

// NewService creates a new audit service.
func NewService(repo *audit.Repository) *Service {
	return &Service{repo: repo}
}

// Log records a generic audit event.
func (s *Service) Log(event *entities.AuditEvent) error {
	return s.repo.LogEvent(event)
}

// LogAsync records an audit event in the background (non-blocking).
func (s *Service) LogAsync(event *entities.AuditEvent) {
	go func() {
		if err := s.repo.LogEvent(event); err != nil {
			logging.Component("audit").Error().Err(err).Str("action", event.Action).Msg("failed to log audit event")
		}
	}()
}

// Record converts an Action into an audit event and stores it in the background.
func (s *Service) Record(a Action) {
	s.LogAsync(s.toEvent(a))
}

func (s *Service) toEvent(a Action) *entities.AuditEvent {
	event := &entities.AuditEvent{
		UserID:      a.ActorID,
		EventType:   a.EventType,
		Action:      a.Action,
		Description: truncate(a.Description, 500),
		EntityType:  a.EntityType,
		IPAddress:   a.IPAddress,
		UserAgent:   truncate(a.UserAgent, 500),
		Status:      entities.AuditStatusSuccess,
	}
	if a.EntityID > 0 {
		id := a.EntityID
		event.EntityID = &id
	}
	if len(a.Metadata) > 0 {
		if md, err := json.Marshal(a.Metadata); err == nil {
			event.Metadata = string(md)
		}
	}
	if a.Err != nil {
		event.Status = entities.AuditStatusFailed
		event.ErrorMsg = truncate(a.Err.Error(), 500)
	}
	return event
}

// LogListing records a create, update or delete of a place or event.
func (s *Service) LogListing(actorID uint, ref entities.ListingRef, verb, name string, err error) {
	s.Record(Action{
		ActorID:     actorID,
		EventType:   entities.AuditEventListing,
		Action:      fmt.Sprintf("%s_%s", ref.Type, verb),
		EntityType:  string(ref.Type),
		EntityID:    ref.ID,
		Description: fmt.Sprintf("%s %s %q", capitalize(verb), ref.Type, name),
		Err:         err,
	})
}

// LogRoleChange records an admin changing another account's role.
func (s *Service) LogRoleChange(actorID, targetID uint, username string, from, to entities.UserRole) {
	s.Record(Action{
		ActorID:     actorID,
		EventType:   entities.AuditEventRole,
		Action:      "role_change",
		EntityType:  "user",
		EntityID:    targetID,
		Description: fmt.Sprintf("Changed role of %s from %s to %s", username, from, to),
		Metadata:    map[string]any{"from": from, "to": to},
	})
}

// LogReviewModeration records hiding, publishing or deleting a review.
func (s *Service) LogReviewModeration(actorID, reviewID uint, action string) {
	s.Record(Action{
		ActorID:     actorID,
		EventType:   entities.AuditEventReview,
		Action:      "review_" + action,
		EntityType:  "review",
		EntityID:    reviewID,
		Description: fmt.Sprintf("Review #%d: %s", reviewID, action),
	})
}

// LogAuth records an authentication event.
func (s *Service) LogAuth(userID uint, action string, ipAddr, userAgent string, success bool) {
	event := &entities.AuditEvent{
		UserID:    userID,
		EventType: entities.AuditEventAuth,
		Action:    action,
		IPAddress: ipAddr,
		UserAgent: truncate(userAgent, 500),
		Status:    entities.AuditStatusSuccess,
	}
	if !success {
		event.Status = entities.AuditStatusFailed
	}
	s.LogAsync(event)
}

// List retrieves paginated audit events.
func (s *Service) List(filter audit.Filter) ([]entities.AuditEvent, int64, error) {
	return s.repo.List(filter)
}

// DeleteOldEvents removes events older than the specified duration.
func (s *Service) DeleteOldEvents(retention time.Duration) (int64, error) {
	cutoff := time.Now().Add(-retention)
	return s.repo.DeleteOldEvents(cutoff)
}

// truncate shortens a string to max length.
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return string(s[0]-'a'+'A') + s[1:]
}
