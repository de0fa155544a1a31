package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"time"

	"gorm.io/gorm"

	"github.com/mrlokans/savepoint/internal/config"
	"github.com/mrlokans/savepoint/internal/database"
	"github.com/mrlokans/savepoint/internal/entities"
)

// MaxFailedLogins locks an account once reached.
const MaxFailedLogins = 5

var (
	usernamePattern = regexp.MustCompile(`^[a-zA-Z0-9_-]{3,64}$`)
	emailPattern    = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)
)

var (
	ErrUserNotFound     = errors.New("user not found")
	ErrUserExists       = errors.New("user already exists")
	ErrInvalidToken     = errors.New("invalid token")
	ErrTokenExpired     = errors.New("token expired")
	ErrInvalidRole      = errors.New("invalid role")
	ErrUsernameRequired = errors.New("username is required")
	ErrEmailRequired    = errors.New("email is required")
	ErrPasswordRequired = errors.New("password is required")
	ErrAccountLocked    = errors.New("account is locked due to too many failed login attempts")
	ErrUsernameInvalid  = errors.New("username must be 3-64 characters, alphanumeric and underscore/hyphen only")
	ErrEmailInvalid     = errors.New("invalid email format")
)

type Service struct {
	db     *gorm.DB
	config config.Auth
	now    func() time.Time
}

func NewService(db *gorm.DB, cfg config.Auth) *Service {
	if cfg.LockoutDuration <= 0 {
		cfg.LockoutDuration = 30 * time.Minute
	}
	return &Service{
		db:     db,
		config: cfg,
		now:    time.Now,
	}
}

// CreateUser validates the input and stores a new password user.
func (s *Service) CreateUser(ctx context.Context, username, email, password string, role entities.UserRole) (*entities.User, error) {
	switch {
	case username == "":
		return nil, ErrUsernameRequired
	case email == "":
		return nil, ErrEmailRequired
	case password == "":
		return nil, ErrPasswordRequired
	case !usernamePattern.MatchString(username):
		return nil, ErrUsernameInvalid
	case len(email) > 254 || !emailPattern.MatchString(email):
		return nil, ErrEmailInvalid
	}
	if role != entities.UserRoleAdmin && role != entities.UserRoleMember {
		return nil, ErrInvalidRole
	}

	passwordHash, err := HashPassword(password, s.config.BcryptCost)
	if err != nil {
		return nil, err
	}

	user := &entities.User{
		Username:     username,
		Email:        email,
		PasswordHash: passwordHash,
		Role:         role,
	}
	if err := s.db.WithContext(ctx).Create(user).Error; err != nil {
		if database.IsUniqueViolation(err) {
			return nil, ErrUserExists
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	slog.Info("user created", "user_id", user.ID, "username", user.Username, "role", user.Role)
	return user, nil
}

// Authenticate checks a username (or email) and password. After
// MaxFailedLogins consecutive failures the account is locked for the
// configured lockout duration.
func (s *Service) Authenticate(ctx context.Context, login, password string) (*entities.User, error) {
	var user entities.User
	err := s.db.WithContext(ctx).Where("username = ? OR email = ?", login, login).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}

	now := s.now()
	if user.LockedUntil != nil && now.Before(*user.LockedUntil) {
		return nil, ErrAccountLocked
	}

	if err := CheckPassword(password, user.PasswordHash); err != nil {
		s.recordFailedLogin(ctx, &user, now)
		return nil, err
	}

	err = s.db.WithContext(ctx).Model(&user).Updates(map[string]any{
		"last_login_at":      now,
		"failed_login_count": 0,
		"locked_until":       nil,
	}).Error
	if err != nil {
		slog.Warn("failed to record login", "user_id", user.ID, "error", err)
	}
	return &user, nil
}

func (s *Service) recordFailedLogin(ctx context.Context, user *entities.User, now time.Time) {
	user.FailedLoginCount++
	updates := map[string]any{"failed_login_count": user.FailedLoginCount}
	if user.FailedLoginCount >= MaxFailedLogins {
		updates["locked_until"] = now.Add(s.config.LockoutDuration)
		slog.Warn("account locked", "user_id", user.ID, "until", updates["locked_until"])
	}
	if err := s.db.WithContext(ctx).Model(user).Updates(updates).Error; err != nil {
		slog.Error("failed to record failed login", "user_id", user.ID, "error", err)
	}
}

func (s *Service) GetUserByID(ctx context.Context, id uint) (*entities.User, error) {
	var user entities.User
	err := s.db.WithContext(ctx).First(&user, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// ValidateToken returns the owner of a plaintext API token.
func (s *Service) ValidateToken(ctx context.Context, token string) (*entities.User, error) {
	if token == "" {
		return nil, ErrInvalidToken
	}

	var user entities.User
	err := s.db.WithContext(ctx).Where("token_hash = ?", HashToken(token)).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrInvalidToken
	}
	if err != nil {
		return nil, err
	}

	if s.config.TokenExpiry > 0 && user.TokenCreatedAt != nil &&
		s.now().Sub(*user.TokenCreatedAt) > s.config.TokenExpiry {
		return nil, ErrTokenExpired
	}
	return &user, nil
}

// GenerateToken replaces the user's API token and returns the new plaintext.
func (s *Service) GenerateToken(ctx context.Context, userID uint) (string, error) {
	plaintext, hash, err := GenerateAPIToken()
	if err != nil {
		return "", fmt.Errorf("failed to generate token: %w", err)
	}

	result := s.db.WithContext(ctx).Model(&entities.User{}).Where("id = ?", userID).Updates(map[string]any{
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

func (s *Service) RevokeToken(ctx context.Context, userID uint) error {
	err := s.db.WithContext(ctx).Model(&entities.User{}).Where("id = ?", userID).Updates(map[string]any{
		"token_hash":       "",
		"token_created_at": nil,
	}).Error
	if err != nil {
		return fmt.Errorf("failed to revoke token: %w", err)
	}
	return nil
}

func (s *Service) HasUsers(ctx context.Context) (bool, error) {
	var count int64
	if err := s.db.WithContext(ctx).Model(&entities.User{}).Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func (s *Service) Mode() config.AuthMode {
	return s.config.Mode
}
