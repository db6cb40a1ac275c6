// Package email delivers verification codes to users. Delivery is
// best-effort: the orchestrator logs failures and moves on, it never rolls
// back user creation because a message could not be sent.
package email

// Notifier is the outbound mail contract consumed by the service layer.
type Notifier interface {
	// SendVerificationCode emails code to recipient, addressed to username.
	SendVerificationCode(recipient string, username string, code string) error
}
