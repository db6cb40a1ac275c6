// Package sessions declares the ephemeral session-token store contract and
// its Redis implementation.
//
// A session token is an opaque random string with no decodable structure;
// validity is determined solely by store lookup. A token that exists in the
// store is valid until its expiry or until explicitly invalidated.
package sessions

import (
	"context"
	"time"
)

// Store maps active session tokens to user IDs with an absolute expiry.
//
// Implementations must make Rotate a single indivisible operation so that of
// two concurrent rotations of the same token exactly one succeeds, and must
// report expired and absent tokens identically (common.ErrorNotFound) so
// callers cannot distinguish the two.
type Store interface {
	// Issue generates a fresh token for userID, valid for ttl from now.
	Issue(ctx context.Context, userID string, ttl time.Duration) (string, error)

	// Resolve returns the user ID a live token belongs to, or
	// common.ErrorNotFound for an absent, expired, rotated-away, or revoked
	// token.
	Resolve(ctx context.Context, token string) (string, error)

	// Rotate atomically invalidates token and issues a replacement for the
	// same user with a fresh ttl. Returns common.ErrorNotFound if the token
	// is not live; in that case nothing is invalidated or issued.
	Rotate(ctx context.Context, token string, ttl time.Duration) (string, error)

	// Revoke deletes the token and reports whether it existed.
	Revoke(ctx context.Context, token string) (bool, error)
}
