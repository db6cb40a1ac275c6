// Package services contains server-side business logic. This file implements
// AuthService, the orchestrator for account creation, login, session
// refresh, logout, and email verification.
package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	passwordvalidator "github.com/wagslane/go-password-validator"

	"github.com/comfort-stereo/gatekeeper/internal/common"
	"github.com/comfort-stereo/gatekeeper/internal/logging"
	"github.com/comfort-stereo/gatekeeper/internal/server/config"
	"github.com/comfort-stereo/gatekeeper/internal/server/credentials"
	"github.com/comfort-stereo/gatekeeper/internal/server/email"
	"github.com/comfort-stereo/gatekeeper/internal/server/models"
	"github.com/comfort-stereo/gatekeeper/internal/server/repositories/users"
	"github.com/comfort-stereo/gatekeeper/internal/server/sessions"
	"github.com/comfort-stereo/gatekeeper/internal/server/verification"
)

// Password length bounds checked before the entropy estimate.
const (
	minPasswordLength = 6
	maxPasswordLength = 255
)

// dummyPasswordHash is compared against when login hits an unknown
// username, so that path costs the same as a real bcrypt comparison and
// response timing does not reveal whether the account exists.
const dummyPasswordHash = "$2a$10$N9qo8uLOickgx2ZMRZoMyeIjZAgcfl7p92ldGxad68LJZdL17lhWy"

// AuthService provides the authentication operations:
//   - CreateUser: create an account and send a verification code
//   - Login: verify credentials and issue a session token
//   - Refresh: rotate a session token
//   - Logout: revoke a session token
//   - VerifyEmail: consume a verification code and mark the user verified
//
// plus the read surface (GetUser, GetUserByUsername, ListUsers).
//
// The service holds no mutable state of its own; all shared state lives in
// the backing stores, and all mutual exclusion (rotation, single-use code
// consumption) is pushed into their atomic primitives.
type AuthService struct {
	users    users.Repository
	sessions sessions.Store
	codes    verification.Store
	hasher   *credentials.Hasher
	notifier email.Notifier
	logger   logging.Logger

	sessionTokenValidity     time.Duration
	verificationCodeValidity time.Duration
	storeCallTimeout         time.Duration
	minPasswordEntropy       float64
}

// NewAuthService constructs an AuthService from its collaborators and the
// server config.
func NewAuthService(
	userRepo users.Repository,
	sessionStore sessions.Store,
	codeStore verification.Store,
	hasher *credentials.Hasher,
	notifier email.Notifier,
	cfg *config.Config,
	logger logging.Logger,
) *AuthService {
	return &AuthService{
		users:                    userRepo,
		sessions:                 sessionStore,
		codes:                    codeStore,
		hasher:                   hasher,
		notifier:                 notifier,
		logger:                   logger.With("module", "auth_service"),
		sessionTokenValidity:     cfg.SessionTokenValidityDuration,
		verificationCodeValidity: cfg.VerificationCodeValidityDuration,
		storeCallTimeout:         cfg.StoreCallTimeout,
		minPasswordEntropy:       cfg.PasswordMinEntropyBits,
	}
}

// storeCtx bounds a single store call with the configured timeout.
func (s *AuthService) storeCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.storeCallTimeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, s.storeCallTimeout)
}

// translateStoreError maps a failed store call onto the service error
// taxonomy. Typed sentinels pass through; timeouts and cancellations become
// ErrorStoreUnavailable; anything else becomes ErrorInternal so store
// diagnostics never reach callers.
func (s *AuthService) translateStoreError(ctx context.Context, op string, err error) error {
	for _, sentinel := range []error{
		common.ErrorNotFound,
		common.ErrorUsernameTaken,
		common.ErrorEmailTaken,
	} {
		if errors.Is(err, sentinel) {
			return sentinel
		}
	}

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		s.logger.Warn(ctx, "store call timed out", "op", op, "error", err.Error())
		return common.ErrorStoreUnavailable
	}

	s.logger.Error(ctx, "store call failed", "op", op, "error", err.Error())
	return common.ErrorInternal
}

// CreateUser creates an account, then issues a verification code and hands
// it to the email notifier. The code is issued only after the user is
// confirmed persisted, so a durable-store failure can never leave a code
// for a user that does not exist. Notifier failure is logged and swallowed:
// verification can be retried, user creation cannot be un-announced.
func (s *AuthService) CreateUser(ctx context.Context, username, email, password string) (*models.User, error) {
	if strings.TrimSpace(username) == "" {
		return nil, fmt.Errorf("%w: username must not be empty", common.ErrorInvalidInput)
	}
	if strings.TrimSpace(email) == "" {
		return nil, fmt.Errorf("%w: email must not be empty", common.ErrorInvalidInput)
	}
	if len(password) > maxPasswordLength {
		return nil, fmt.Errorf("%w: password must not exceed %d characters", common.ErrorInvalidInput, maxPasswordLength)
	}
	if len(password) < minPasswordLength {
		return nil, common.ErrorWeakPassword
	}
	if err := passwordvalidator.Validate(password, s.minPasswordEntropy); err != nil {
		return nil, common.ErrorWeakPassword
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		s.logger.Error(ctx, "password hashing failed", "error", err.Error())
		return nil, common.ErrorInternal
	}

	user := &models.User{
		ID:           uuid.NewString(),
		Username:     username,
		Email:        email,
		PasswordHash: hash,
	}

	createCtx, cancel := s.storeCtx(ctx)
	defer cancel()

	user, err = s.users.Create(createCtx, user)
	if err != nil {
		return nil, s.translateStoreError(ctx, "users.create", err)
	}

	// The account exists from here on. The remaining steps run detached
	// from the caller's cancellation: an abandoned request must not stop
	// mutations already owed to the created account.
	tailCtx := context.WithoutCancel(ctx)

	codeCtx, cancelCode := s.storeCtx(tailCtx)
	defer cancelCode()

	code, err := s.codes.Issue(codeCtx, user.ID, s.verificationCodeValidity)
	if err != nil {
		s.logger.Error(ctx, "verification code issuance failed", "user_id", user.ID, "error", err.Error())
		return user, nil
	}

	if err := s.notifier.SendVerificationCode(user.Email, user.Username, code); err != nil {
		s.logger.Error(ctx, "verification email delivery failed", "user_id", user.ID, "error", err.Error())
	}

	return user, nil
}

// Login verifies the credentials and issues a session token. Unknown
// username and wrong password produce the same ErrorInvalidCredentials.
func (s *AuthService) Login(ctx context.Context, username, password string) (string, error) {
	getCtx, cancel := s.storeCtx(ctx)
	defer cancel()

	user, err := s.users.GetByUsername(getCtx, username)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			s.hasher.Verify(password, dummyPasswordHash)
			return "", common.ErrorInvalidCredentials
		}
		return "", s.translateStoreError(ctx, "users.get_by_username", err)
	}

	if !s.hasher.Verify(password, user.PasswordHash) {
		return "", common.ErrorInvalidCredentials
	}

	issueCtx, cancelIssue := s.storeCtx(ctx)
	defer cancelIssue()

	token, err := s.sessions.Issue(issueCtx, user.ID, s.sessionTokenValidity)
	if err != nil {
		return "", s.translateStoreError(ctx, "sessions.issue", err)
	}

	return token, nil
}

// Refresh rotates a session token. The rotation inside the session store is
// the commit point: once it happens the old token never resolves again,
// whether or not the caller receives the new one. Missing, expired, and
// already-rotated tokens all yield ErrorInvalidSession.
func (s *AuthService) Refresh(ctx context.Context, token string) (string, error) {
	rotateCtx, cancel := s.storeCtx(ctx)
	defer cancel()

	newToken, err := s.sessions.Rotate(rotateCtx, token, s.sessionTokenValidity)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return "", common.ErrorInvalidSession
		}
		return "", s.translateStoreError(ctx, "sessions.rotate", err)
	}

	return newToken, nil
}

// Logout revokes a session token and reports whether a session existed.
// Idempotent; never fails on an already-absent token.
func (s *AuthService) Logout(ctx context.Context, token string) (bool, error) {
	revokeCtx, cancel := s.storeCtx(ctx)
	defer cancel()

	existed, err := s.sessions.Revoke(revokeCtx, token)
	if err != nil {
		return false, s.translateStoreError(ctx, "sessions.revoke", err)
	}

	return existed, nil
}

// VerifyEmail consumes a verification code and marks the user's email
// verified. Consume runs first: if marking fails afterwards the code is
// lost but the user stays unverified, which is the only tolerated
// inconsistency, and a retry with the consumed code fails cleanly.
func (s *AuthService) VerifyEmail(ctx context.Context, userID, code string) (bool, error) {
	getCtx, cancel := s.storeCtx(ctx)
	defer cancel()

	user, err := s.users.GetByID(getCtx, userID)
	if err != nil {
		return false, s.translateStoreError(ctx, "users.get_by_id", err)
	}

	consumeCtx, cancelConsume := s.storeCtx(ctx)
	defer cancelConsume()

	ok, err := s.codes.Consume(consumeCtx, user.ID, code)
	if err != nil {
		return false, s.translateStoreError(ctx, "codes.consume", err)
	}
	if !ok {
		return false, nil
	}

	// The code is spent; finish the mark even if the caller walks away.
	markCtx, cancelMark := s.storeCtx(context.WithoutCancel(ctx))
	defer cancelMark()

	changed, err := s.users.MarkEmailVerified(markCtx, user.ID)
	if err != nil {
		return false, s.translateStoreError(ctx, "users.mark_email_verified", err)
	}
	if !changed {
		s.logger.Warn(ctx, "verification code consumed for already verified user", "user_id", user.ID)
	}

	return true, nil
}

// GetUser returns a user by ID or common.ErrorNotFound.
// Authenticate resolves a session token to its owning user. Every dead
// token, whatever the cause, is reported as ErrorInvalidSession.
func (s *AuthService) Authenticate(ctx context.Context, token string) (*models.User, error) {
	resolveCtx, cancel := s.storeCtx(ctx)
	defer cancel()

	userID, err := s.sessions.Resolve(resolveCtx, token)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrorInvalidSession
		}
		return nil, s.translateStoreError(ctx, "sessions.resolve", err)
	}

	getCtx, cancelGet := s.storeCtx(ctx)
	defer cancelGet()

	user, err := s.users.GetByID(getCtx, userID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			// A session pointing at a missing user row is a dead session.
			return nil, common.ErrorInvalidSession
		}
		return nil, s.translateStoreError(ctx, "users.get_by_id", err)
	}

	return user, nil
}

func (s *AuthService) GetUser(ctx context.Context, id string) (*models.User, error) {
	getCtx, cancel := s.storeCtx(ctx)
	defer cancel()

	user, err := s.users.GetByID(getCtx, id)
	if err != nil {
		return nil, s.translateStoreError(ctx, "users.get_by_id", err)
	}
	return user, nil
}

// GetUserByUsername returns a user by exact username or common.ErrorNotFound.
func (s *AuthService) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	getCtx, cancel := s.storeCtx(ctx)
	defer cancel()

	user, err := s.users.GetByUsername(getCtx, username)
	if err != nil {
		return nil, s.translateStoreError(ctx, "users.get_by_username", err)
	}
	return user, nil
}

// ListUsers returns all users ordered by creation time.
func (s *AuthService) ListUsers(ctx context.Context) ([]*models.User, error) {
	listCtx, cancel := s.storeCtx(ctx)
	defer cancel()

	list, err := s.users.List(listCtx)
	if err != nil {
		return nil, s.translateStoreError(ctx, "users.list", err)
	}
	return list, nil
}
