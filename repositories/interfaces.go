package repositories

import (
	"context"
	"errors"

	"github.com/docsmith/backend/models"
	"github.com/google/uuid"
)

var (
	// ErrNotFound is returned when no record matches the lookup key
	ErrNotFound = errors.New("record not found")

	// ErrConflict is returned when a write violates a uniqueness constraint.
	// The reconciliation path treats it as a lost create race and retries
	// through the update path.
	ErrConflict = errors.New("uniqueness conflict")
)

// UserRepository handles user record persistence.
// Uniqueness of username and of non-empty national ids is enforced by the
// storage layer; callers may rely on Create returning ErrConflict when a
// concurrent writer got there first.
type UserRepository interface {
	// Create inserts a new user record
	Create(ctx context.Context, user *models.User) error

	// GetByID retrieves a user by ID
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)

	// GetByUsername retrieves a user by username
	GetByUsername(ctx context.Context, username string) (*models.User, error)

	// GetByNationalID retrieves a user by normalized (digits-only) national ID
	GetByNationalID(ctx context.Context, nationalID string) (*models.User, error)

	// Update persists the mutable profile fields of an existing record.
	// The role column is never written by this method.
	Update(ctx context.Context, user *models.User) error

	// List retrieves all user records ordered by creation time
	List(ctx context.Context) ([]*models.User, error)
}
