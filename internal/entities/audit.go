package entities

import "time"

type AuditEventType string

const (
	AuditEventListing     AuditEventType = "listing"
	AuditEventReview      AuditEventType = "review"
	AuditEventRole        AuditEventType = "role"
	AuditEventGallery     AuditEventType = "gallery"
	AuditEventSpotlight   AuditEventType = "spotlight"
	AuditEventOrganizer   AuditEventType = "organizer"
	AuditEventAuth        AuditEventType = "auth"
	AuditEventMaintenance AuditEventType = "maintenance"
)

type AuditStatus string

const (
	AuditStatusSuccess AuditStatus = "success"
	AuditStatusFailed  AuditStatus = "failed"
)

// AuditEvent records one back-office action.
type AuditEvent struct {
	ID          uint           `gorm:"primaryKey" json:"id"`
	UserID      uint           `gorm:"index" json:"user_id"` // acting admin, 0 for system jobs
	EventType   AuditEventType `gorm:"index;size:50" json:"event_type"`
	Action      string         `gorm:"size:100" json:"action"` // e.g. "place_create", "review_hide"
	Description string         `gorm:"size:500" json:"description"`
	EntityType  string         `gorm:"size:50" json:"entity_type"` // "place", "event", "review", "user"
	EntityID    *uint          `gorm:"index" json:"entity_id,omitempty"`
	Metadata    string         `gorm:"type:text" json:"metadata,omitempty"` // JSON
	IPAddress   string         `gorm:"size:45" json:"ip_address,omitempty"`
	UserAgent   string         `gorm:"size:500" json:"user_agent,omitempty"`
	Status      AuditStatus    `gorm:"size:20" json:"status"`
	ErrorMsg    string         `gorm:"size:500" json:"error_msg,omitempty"`
	CreatedAt   time.Time      `gorm:"index" json:"created_at"`
}

func (AuditEvent) TableName() string {
	return "audit_events"
}
