// Package repository implements the data access layer for the application.
package repository

import (
	"context"
	"errors"
	"strings"

	"inkwell/internal/middleware"
	"inkwell/internal/models"
	"inkwell/internal/observability"

	"gorm.io/gorm"
)

// UserRepository defines persistence operations for users.
type UserRepository interface {
	GetByID(ctx context.Context, id uint) (*models.User, error)
	// GetByEmail returns (nil, nil) when no user has email.
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	Create(ctx context.Context, user *models.User) error
	// CreateWithin inserts user and runs then in the same transaction.
	// An error from then rolls the insert back and is returned unchanged.
	CreateWithin(ctx context.Context, user *models.User, then func(*models.User) error) error
}

type userRepository struct {
	db *gorm.DB
}

// NewUserRepository returns a new UserRepository implementation.
func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

func (r *userRepository) GetByID(ctx context.Context, id uint) (*models.User, error) {
	ctx, span := observability.StartRepositorySpan(ctx, "GetByID", "users")
	defer span.End()
	defer observability.TrackQuery("select", "users")()

	var user models.User
	if err := r.db.WithContext(ctx).First(&user, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError("User")
		}
		return nil, internal(ctx, "get user by id", err)
	}
	return &user, nil
}

func (r *userRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	ctx, span := observability.StartRepositorySpan(ctx, "GetByEmail", "users")
	defer span.End()
	defer observability.TrackQuery("select", "users")()

	var user models.User
	if err := r.db.WithContext(ctx).Where("email = ?", email).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, internal(ctx, "get user by email", err)
	}
	return &user, nil
}

func (r *userRepository) Create(ctx context.Context, user *models.User) error {
	ctx, span := observability.StartRepositorySpan(ctx, "Create", "users")
	defer span.End()
	defer observability.TrackQuery("insert", "users")()

	return r.create(ctx, r.db.WithContext(ctx), user)
}

func (r *userRepository) CreateWithin(ctx context.Context, user *models.User, then func(*models.User) error) error {
	ctx, span := observability.StartRepositorySpan(ctx, "CreateWithin", "users")
	defer span.End()
	defer observability.TrackQuery("insert", "users")()

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := r.create(ctx, tx, user); err != nil {
			return err
		}
		return then(user)
	})
}

func (r *userRepository) create(ctx context.Context, db *gorm.DB, user *models.User) error {
	if err := db.Create(user).Error; err != nil {
		if isUniqueConstraintError(err) {
			return models.NewConflictError("User with this email already exists")
		}
		return internal(ctx, "create user", err)
	}
	return nil
}

// isUniqueConstraintError checks if a DB error is a unique constraint violation.
func isUniqueConstraintError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := strings.ToLower(err.Error())
	// PostgreSQL unique violation SQLSTATE 23505
	return strings.Contains(msg, "duplicate key") ||
		strings.Contains(msg, "unique constraint") ||
		strings.Contains(msg, "23505")
}

// internal logs a store failure with its cause and returns the generic error shown to clients.
func internal(ctx context.Context, op string, err error) error {
	middleware.Logger.ErrorContext(ctx, "database operation failed", "op", op, "error", err)
	return models.NewInternalError(err)
}
