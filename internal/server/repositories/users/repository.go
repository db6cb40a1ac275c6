// Package users declares the repository contract for durable user identity
// records, the source of truth for credentials.
package users

import (
	"context"

	"github.com/comfort-stereo/gatekeeper/internal/server/models"
)

// Repository defines operations over the users relation. Uniqueness of
// username and email is enforced by the store itself; violations surface as
// common.ErrorUsernameTaken / common.ErrorEmailTaken.
type Repository interface {
	// Create persists a new user and returns it with timestamps filled in.
	Create(ctx context.Context, user *models.User) (*models.User, error)

	// GetByID returns a user by ID or common.ErrorNotFound.
	GetByID(ctx context.Context, id string) (*models.User, error)

	// GetByUsername returns a user by exact username or common.ErrorNotFound.
	GetByUsername(ctx context.Context, username string) (*models.User, error)

	// List returns all users ordered by creation time.
	List(ctx context.Context) ([]*models.User, error)

	// MarkEmailVerified sets email_verified_at for an unverified user and
	// reports whether a change occurred. Verifying an already verified user
	// is a no-op returning false.
	MarkEmailVerified(ctx context.Context, id string) (bool, error)
}
