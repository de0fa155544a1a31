// Package users provides database operations for user management.
//
// # Usage
//
//	repo := users.NewRepository(db)
//	user, err := repo.GetUserByID(ctx, userID)
package users

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/mrlokans/savepoint/internal/entities"
)

var ErrUserNotFound = errors.New("user not found")

// Repository handles all user database operations.
type Repository struct {
	db *gorm.DB
}

// NewRepository creates a new users repository.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// GetUserByID retrieves a user by ID.
func (r *Repository) GetUserByID(ctx context.Context, id uint) (*entities.User, error) {
	var user entities.User
	err := r.db.WithContext(ctx).First(&user, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// GetUserByUsername retrieves a user by username.
func (r *Repository) GetUserByUsername(ctx context.Context, username string) (*entities.User, error) {
	var user entities.User
	err := r.db.WithContext(ctx).Where("username = ?", username).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// LinkSteamAccount stores the Steam ID used by default for library imports.
func (r *Repository) LinkSteamAccount(ctx context.Context, userID uint, steamID64 string) error {
	result := r.db.WithContext(ctx).Model(&entities.User{}).Where("id = ?", userID).Update("steam_id", steamID64)
	if result.Error != nil {
		return fmt.Errorf("failed to link steam account: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrUserNotFound
	}
	return nil
}

// EnsureDefaultUser makes sure the single-user account exists when
// authentication is disabled.
func (r *Repository) EnsureDefaultUser(ctx context.Context, id uint) (*entities.User, error) {
	user := entities.User{ID: id, Username: "default", Email: "default@localhost", Role: entities.UserRoleAdmin}
	err := r.db.WithContext(ctx).Where(entities.User{ID: id}).FirstOrCreate(&user).Error
	if err != nil {
		return nil, fmt.Errorf("failed to ensure default user: %w", err)
	}
	return &user, nil
}
