package entities

import (
	"time"

	"gorm.io/gorm"
)

type UserRole string

const (
	UserRoleAdmin            UserRole = "admin"
	UserRoleVerifiedReviewer UserRole = "verified_reviewer"
	UserRoleUser             UserRole = "user"
)

// Roles lists every role a profile can carry.
var Roles = []UserRole{UserRoleAdmin, UserRoleVerifiedReviewer, UserRoleUser}

// IsValid reports whether r is a known role.
func (r UserRole) IsValid() bool {
	switch r {
	case UserRoleAdmin, UserRoleVerifiedReviewer, UserRoleUser:
		return true
	}
	return false
}

// Label is the human-readable role name.
func (r UserRole) Label() string {
	switch r {
	case UserRoleAdmin:
		return "Admin"
	case UserRoleVerifiedReviewer:
		return "Verified reviewer"
	default:
		return "Member"
	}
}

// User is the authenticated account and its public profile.
type User struct {
	ID           uint     `gorm:"primaryKey" json:"id"`
	Username     string   `gorm:"uniqueIndex;size:64" json:"username"`
	Email        string   `gorm:"uniqueIndex;size:255" json:"email"`
	FullName     string   `gorm:"size:128" json:"full_name,omitempty"`
	AvatarURL    string   `gorm:"size:2048" json:"avatar_url,omitempty"`
	PasswordHash string   `gorm:"size:255" json:"-"`
	Role         UserRole `gorm:"size:32;index;default:'user'" json:"role"`

	// API token (only the SHA-256 hash is stored)
	TokenHash      string     `gorm:"index;size:64" json:"-"`
	TokenCreatedAt *time.Time `json:"-"`

	// Login lockout
	FailedLoginCount int        `gorm:"default:0" json:"-"`
	LockedUntil      *time.Time `json:"-"`
	LastLoginAt      *time.Time `json:"last_login_at,omitempty"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

func (User) TableName() string {
	return "users"
}

// DisplayName prefers the full name and falls back to the username.
func (u *User) DisplayName() string {
	if u.FullName != "" {
		return u.FullName
	}
	return u.Username
}

// IsAdmin reports whether the user may use the back-office.
func (u *User) IsAdmin() bool {
	return u.Role == UserRoleAdmin
}
