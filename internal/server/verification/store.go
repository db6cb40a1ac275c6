// Package verification declares the ephemeral store for single-use
// email-verification codes and its Redis implementation.
package verification

import (
	"context"
	"time"
)

// Store maps each user to at most one pending verification code with a
// short expiry. Codes are single-use: consumption atomically checks and
// deletes in one step.
type Store interface {
	// Issue creates a fresh code for userID, valid for ttl from now,
	// replacing any code issued earlier.
	Issue(ctx context.Context, userID string, ttl time.Duration) (string, error)

	// Consume atomically checks that code is the pending code for userID
	// and deletes it. Returns false on mismatch, expiry, or absence without
	// revealing which.
	Consume(ctx context.Context, userID string, code string) (bool, error)
}
