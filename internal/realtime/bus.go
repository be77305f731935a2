// Package realtime delivers profile changes to the owning user's open
// sessions. Redis Pub/Sub is used when configured so every app instance
// sees the update; otherwise delivery stays in-process.
package realtime

import (
	"context"
	"time"

	"github.com/choplife/choplifeib/internal/entities"
)

// subscriberBuffer bounds per-subscriber backlog; slow readers drop updates.
const subscriberBuffer = 16

// ProfileUpdate is the payload pushed to a user's stream.
type ProfileUpdate struct {
	UserID    uint              `json:"user_id"`
	Username  string            `json:"username"`
	FullName  string            `json:"full_name,omitempty"`
	AvatarURL string            `json:"avatar_url,omitempty"`
	Role      entities.UserRole `json:"role"`
	RoleLabel string            `json:"role_label"`
	IsAdmin   bool              `json:"is_admin"`
	UpdatedAt time.Time         `json:"updated_at"`
}

// UpdateFromUser builds the payload for a user row.
func UpdateFromUser(u *entities.User) ProfileUpdate {
	return ProfileUpdate{
		UserID:    u.ID,
		Username:  u.Username,
		FullName:  u.FullName,
		AvatarURL: u.AvatarURL,
		Role:      u.Role,
		RoleLabel: u.Role.Label(),
		IsAdmin:   u.IsAdmin(),
		UpdatedAt: u.UpdatedAt,
	}
}

// Bus publishes and subscribes to per-user profile updates.
// The channel returned by Subscribe is closed when ctx is done.
type Bus interface {
	Publish(ctx context.Context, update ProfileUpdate) error
	Subscribe(ctx context.Context, userID uint) (<-chan ProfileUpdate, error)
	Close() error
}
