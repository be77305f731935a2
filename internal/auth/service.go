package auth

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/choplife/choplifeib/internal/config"
	"github.com/choplife/choplifeib/internal/entities"
	"github.com/choplife/choplifeib/internal/logging"
)

var (
	usernamePattern = regexp.MustCompile(`^[a-zA-Z0-9_-]{3,64}$`)
	emailPattern    = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)
)

var (
	ErrUserNotFound     = errors.New("user not found")
	ErrUserExists       = errors.New("username or email is already registered")
	ErrInvalidToken     = errors.New("invalid token")
	ErrTokenExpired     = errors.New("token expired")
	ErrAuthRequired     = errors.New("authentication required")
	ErrInvalidRole      = errors.New("invalid role")
	ErrUsernameRequired = errors.New("username is required")
	ErrEmailRequired    = errors.New("email is required")
	ErrPasswordRequired = errors.New("password is required")
	ErrAccountLocked    = errors.New("account is locked due to too many failed login attempts")
	ErrUsernameInvalid  = errors.New("username must be 3-64 characters, alphanumeric and underscore/hyphen only")
	ErrEmailInvalid     = errors.New("invalid email format")
	ErrSignupDisabled   = errors.New("sign-up is disabled")
	ErrFullNameTooLong  = errors.New("full name must be at most 128 characters")
)

// Service handles authentication and account management.
type Service struct {
	db     *gorm.DB
	config config.Auth
	now    func() time.Time
}

func NewService(db *gorm.DB, cfg config.Auth) *Service {
	return &Service{
		db:     db,
		config: cfg,
		now:    time.Now,
	}
}

// CreateUser creates an account with password authentication.
func (s *Service) CreateUser(username, email, password string, role entities.UserRole) (*entities.User, error) {
	return s.createUser(username, email, password, "", role)
}

// Signup registers a member account from the public sign-up form.
func (s *Service) Signup(username, email, password, fullName string) (*entities.User, error) {
	if !s.config.AllowSignup {
		return nil, ErrSignupDisabled
	}
	return s.createUser(username, email, password, fullName, entities.UserRoleUser)
}

func (s *Service) createUser(username, email, password, fullName string, role entities.UserRole) (*entities.User, error) {
	username = strings.TrimSpace(username)
	email = strings.ToLower(strings.TrimSpace(email))
	fullName = strings.TrimSpace(fullName)

	if username == "" {
		return nil, ErrUsernameRequired
	}
	if email == "" {
		return nil, ErrEmailRequired
	}
	if password == "" {
		return nil, ErrPasswordRequired
	}
	if !usernamePattern.MatchString(username) {
		return nil, ErrUsernameInvalid
	}
	// RFC 5321 caps addresses at 254 characters
	if len(email) > 254 || !emailPattern.MatchString(email) {
		return nil, ErrEmailInvalid
	}
	if len(fullName) > 128 {
		return nil, ErrFullNameTooLong
	}
	if !role.IsValid() {
		return nil, ErrInvalidRole
	}

	var existing entities.User
	err := s.db.Unscoped().Where("username = ? OR email = ?", username, email).First(&existing).Error
	if err == nil {
		return nil, ErrUserExists
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("failed to check existing user: %w", err)
	}

	passwordHash, err := HashPassword(password, s.config.BcryptCost)
	if err != nil {
		return nil, err
	}

	user := &entities.User{
		Username:     username,
		Email:        email,
		FullName:     fullName,
		PasswordHash: passwordHash,
		Role:         role,
	}
	if err := s.db.Create(user).Error; err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	logging.Component("auth").Info().Uint("user_id", user.ID).Str("role", string(role)).Msg("account created")
	return user, nil
}

// Authenticate validates credentials given a username or email. Accounts
// are locked after MaxLoginAttempts consecutive failures.
func (s *Service) Authenticate(login, password string) (*entities.User, error) {
	login = strings.TrimSpace(login)
	var user entities.User
	err := s.db.Where("username = ? OR email = ?", login, strings.ToLower(login)).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to find user: %w", err)
	}

	if user.LockedUntil != nil && s.now().Before(*user.LockedUntil) {
		return nil, ErrAccountLocked
	}

	if err := CheckPassword(password, user.PasswordHash); err != nil {
		s.recordFailedLogin(&user)
		return nil, err
	}

	now := s.now()
	s.db.Model(&user).Updates(map[string]any{
		"last_login_at":      now,
		"failed_login_count": 0,
		"locked_until":       nil,
	})
	user.LastLoginAt = &now
	user.FailedLoginCount = 0
	user.LockedUntil = nil

	return &user, nil
}

func (s *Service) recordFailedLogin(user *entities.User) {
	user.FailedLoginCount++
	updates := map[string]any{
		"failed_login_count": user.FailedLoginCount,
	}

	maxAttempts := s.config.MaxLoginAttempts
	if maxAttempts <= 0 {
		maxAttempts = 5
	}
	if user.FailedLoginCount >= maxAttempts {
		lockout := s.config.LockoutDuration
		if lockout == 0 {
			lockout = 30 * time.Minute
		}
		lockedUntil := s.now().Add(lockout)
		updates["locked_until"] = lockedUntil
		logging.Component("auth").Warn().Uint("user_id", user.ID).Time("locked_until", lockedUntil).Msg("account locked")
	}

	s.db.Model(user).Updates(updates)
}

func (s *Service) GetUserByID(id uint) (*entities.User, error) {
	var user entities.User
	if err := s.db.First(&user, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &user, nil
}

func (s *Service) GetUserByUsername(username string) (*entities.User, error) {
	var user entities.User
	if err := s.db.Where("username = ?", username).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &user, nil
}

func (s *Service) getUserByTokenHash(tokenHash string) (*entities.User, error) {
	var user entities.User
	if err := s.db.Where("token_hash = ?", tokenHash).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidToken
		}
		return nil, err
	}
	return &user, nil
}

// ValidateToken checks a plaintext API token and returns its owner.
func (s *Service) ValidateToken(token string) (*entities.User, error) {
	if token == "" {
		return nil, ErrInvalidToken
	}
	user, err := s.getUserByTokenHash(HashToken(token))
	if err != nil {
		return nil, err
	}

	if s.config.TokenExpiry > 0 && user.TokenCreatedAt != nil {
		if s.now().Sub(*user.TokenCreatedAt) > s.config.TokenExpiry {
			return nil, ErrTokenExpired
		}
	}
	return user, nil
}

// GenerateToken creates a new API token for a user. The plaintext is
// returned once; only its hash is stored.
func (s *Service) GenerateToken(userID uint) (string, error) {
	plaintext, hash, err := GenerateAPIToken()
	if err != nil {
		return "", fmt.Errorf("failed to generate token: %w", err)
	}

	result := s.db.Model(&entities.User{}).Where("id = ?", userID).Updates(map[string]any{
		"token_hash":       hash,
		"token_created_at": s.now(),
	})
	if result.Error != nil {
		return "", fmt.Errorf("failed to save token: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return "", ErrUserNotFound
	}
	return plaintext, nil
}

func (s *Service) RevokeToken(userID uint) error {
	result := s.db.Model(&entities.User{}).Where("id = ?", userID).Updates(map[string]any{
		"token_hash":       "",
		"token_created_at": nil,
	})
	if result.Error != nil {
		return fmt.Errorf("failed to revoke token: %w", result.Error)
	}
	return nil
}

func (s *Service) ChangePassword(userID uint, oldPassword, newPassword string) error {
	user, err := s.GetUserByID(userID)
	if err != nil {
		return err
	}
	if err := CheckPassword(oldPassword, user.PasswordHash); err != nil {
		return err
	}
	return s.SetPassword(userID, newPassword)
}

// SetPassword replaces a password without checking the old one. Used by
// the CLI.
func (s *Service) SetPassword(userID uint, password string) error {
	hash, err := HashPassword(password, s.config.BcryptCost)
	if err != nil {
		return err
	}
	result := s.db.Model(&entities.User{}).Where("id = ?", userID).Updates(map[string]any{
		"password_hash":      hash,
		"failed_login_count": 0,
		"locked_until":       nil,
	})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrUserNotFound
	}
	return nil
}

func (s *Service) HasUsers() (bool, error) {
	count, err := s.GetUserCount()
	return count > 0, err
}

func (s *Service) GetUserCount() (int64, error) {
	var count int64
	err := s.db.Model(&entities.User{}).Count(&count).Error
	return count, err
}

// IsAuthEnabled reports whether logins are required for protected routes.
func (s *Service) IsAuthEnabled() bool {
	return s.config.Mode == config.AuthModeLocal
}

func (s *Service) AllowSignup() bool {
	return s.config.AllowSignup
}

func (s *Service) GetAuthMode() config.AuthMode {
	return s.config.Mode
}
