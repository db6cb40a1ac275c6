// Package models holds the server-side domain entities.
package models

import "time"

// User is the durable identity record. PasswordHash is never exposed
// outside the service layer; transport adapters must serialize users
// through a representation that omits it.
type User struct {
	ID              string
	Username        string
	Email           string
	PasswordHash    string
	CreatedAt       time.Time
	UpdatedAt       time.Time
	EmailVerifiedAt *time.Time
}

// Verified reports whether the user's email address has been verified.
func (u *User) Verified() bool {
	return u.EmailVerifiedAt != nil
}
