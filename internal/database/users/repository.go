// Package users provides database operations for profiles and roles.
//
// # Usage
//
//	repo := users.NewRepository(db)
//	user, err := repo.SetRole(adminID, targetID, entities.UserRoleVerifiedReviewer)
package users

import (
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/choplife/choplifeib/internal/database"
	"github.com/choplife/choplifeib/internal/entities"
)

var (
	ErrNotFound      = errors.New("user not found")
	ErrInvalidRole   = errors.New("invalid role")
	ErrSelfDemote    = errors.New("admins cannot remove their own admin role")
	ErrNameTooLong   = errors.New("full name must be at most 128 characters")
	ErrInvalidAvatar = errors.New("avatar URL must start with http:// or https://")
)

type Filter struct {
	Query  string // matches username, email or full name
	Role   entities.UserRole
	Limit  int
	Offset int
}

// Repository handles all user database operations.
type Repository struct {
	db *gorm.DB
}

// NewRepository creates a new users repository.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// List returns one page of users, newest accounts first.
func (r *Repository) List(filter Filter) ([]entities.User, int64, error) {
	query := r.db.Model(&entities.User{})
	if filter.Role != "" {
		query = query.Where("role = ?", filter.Role)
	}
	if q := strings.TrimSpace(filter.Query); q != "" {
		like := database.ContainsPattern(q)
		query = query.Where("LOWER(username) LIKE ? ESCAPE '\\' OR LOWER(email) LIKE ? ESCAPE '\\' OR LOWER(full_name) LIKE ? ESCAPE '\\'", like, like, like)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count users: %w", err)
	}

	query = query.Order("created_at DESC").Order("id DESC")
	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}
	if filter.Offset > 0 {
		query = query.Offset(filter.Offset)
	}

	var users []entities.User
	if err := query.Find(&users).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to list users: %w", err)
	}
	return users, total, nil
}

// GetByID retrieves a user by ID.
func (r *Repository) GetByID(id uint) (*entities.User, error) {
	var user entities.User
	if err := r.db.First(&user, id).Error; err != nil {
		return nil, translate(err)
	}
	return &user, nil
}

// GetByUsername retrieves a user by username.
func (r *Repository) GetByUsername(username string) (*entities.User, error) {
	var user entities.User
	if err := r.db.Where("username = ?", username).First(&user).Error; err != nil {
		return nil, translate(err)
	}
	return &user, nil
}

// SetRole changes a user's role on behalf of actorID. Pass actorID 0 for
// system callers such as the CLI.
func (r *Repository) SetRole(actorID, id uint, role entities.UserRole) (*entities.User, error) {
	if !role.IsValid() {
		return nil, ErrInvalidRole
	}
	if actorID != 0 && actorID == id && role != entities.UserRoleAdmin {
		return nil, ErrSelfDemote
	}

	user, err := r.GetByID(id)
	if err != nil {
		return nil, err
	}
	if err := r.db.Model(user).Update("role", role).Error; err != nil {
		return nil, fmt.Errorf("failed to set role: %w", err)
	}
	user.Role = role
	return user, nil
}

// UpdateProfile sets the editable profile fields.
func (r *Repository) UpdateProfile(id uint, fullName, avatarURL string) (*entities.User, error) {
	fullName = strings.TrimSpace(fullName)
	avatarURL = strings.TrimSpace(avatarURL)
	if len([]rune(fullName)) > 128 {
		return nil, ErrNameTooLong
	}
	if avatarURL != "" && !strings.HasPrefix(avatarURL, "https://") && !strings.HasPrefix(avatarURL, "http://") {
		return nil, ErrInvalidAvatar
	}

	user, err := r.GetByID(id)
	if err != nil {
		return nil, err
	}
	err = r.db.Model(user).Updates(map[string]any{
		"full_name":  fullName,
		"avatar_url": avatarURL,
	}).Error
	if err != nil {
		return nil, fmt.Errorf("failed to update profile: %w", err)
	}
	user.FullName = fullName
	user.AvatarURL = avatarURL
	return user, nil
}

// Count returns the number of accounts.
func (r *Repository) Count() (int64, error) {
	var count int64
	err := r.db.Model(&entities.User{}).Count(&count).Error
	return count, err
}

func translate(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}
