// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package service holds the application logic behind the HTTP handlers:
// access control, content administration, public intake, lead triage and
// the dashboard.
package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/olegiv/bkconstruct/internal/auth"
	"github.com/olegiv/bkconstruct/internal/model"
	"github.com/olegiv/bkconstruct/internal/notify"
	"github.com/olegiv/bkconstruct/internal/session"
	"github.com/olegiv/bkconstruct/internal/store"
)

// Login lockout: an email is refused after this many failures within the window.
const (
	MaxFailedLogins    = 5
	FailedLoginWindow  = 15 * time.Minute
	verifyEmailPath    = "/email/verify"
	recentAuthLogLimit = 20
)

// Notifier queues outgoing notifications.
type Notifier interface {
	Enqueue(msg notify.Message) bool
}

// Credentials is a login attempt.
type Credentials struct {
	Email     string
	Password  string
	IP        string
	UserAgent string
}

// AuthEvent is an authentication outcome to be written to the audit log.
type AuthEvent struct {
	Type      string
	UserID    int64 // zero when unknown
	Email     string
	IP        string
	UserAgent string
	At        time.Time
}

// LoginResult is returned by Authenticate. Event is set on failure too.
type LoginResult struct {
	User  *model.User
	Event AuthEvent
}

// AccessConfig holds the optional collaborators of AccessService.
type AccessConfig struct {
	Verifier *auth.EmailVerifier
	Notifier Notifier
	BaseURL  string
	Logger   *slog.Logger
}

// AccessService authenticates users and manages their sessions, password,
// email address and API tokens.
type AccessService struct {
	db       *sql.DB
	queries  *store.Queries
	tracker  *session.Tracker
	verifier *auth.EmailVerifier
	notifier Notifier
	baseURL  string
	logger   *slog.Logger
	now      func() time.Time
}

// NewAccessService creates an AccessService.
func NewAccessService(db *sql.DB, tracker *session.Tracker, cfg AccessConfig) *AccessService {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &AccessService{
		db:       db,
		queries:  store.New(db),
		tracker:  tracker,
		verifier: cfg.Verifier,
		notifier: cfg.Notifier,
		baseURL:  strings.TrimRight(cfg.BaseURL, "/"),
		logger:   cfg.Logger,
		now:      time.Now,
	}
}

// Authenticate verifies credentials. Unknown emails and wrong passwords
// both yield model.ErrInvalidCredentials; the returned result always
// carries the AuthEvent to record.
func (s *AccessService) Authenticate(ctx context.Context, c Credentials) (*LoginResult, error) {
	email := normalizeEmail(c.Email)
	failed := &LoginResult{Event: AuthEvent{
		Type:      model.AuthEventLoginFailed,
		Email:     email,
		IP:        c.IP,
		UserAgent: c.UserAgent,
		At:        s.now(),
	}}

	if email == "" || c.Password == "" {
		auth.BurnPasswordCheck(c.Password)
		return failed, model.ErrInvalidCredentials
	}

	n, err := s.queries.CountRecentFailedLogins(ctx, email, s.now().Add(-FailedLoginWindow))
	if err != nil {
		return failed, fmt.Errorf("counting failed logins: %w", err)
	}
	if n >= MaxFailedLogins {
		return failed, model.ErrTooManyAttempts
	}

	user, err := s.queries.GetUserByEmail(ctx, email)
	if errors.Is(err, model.ErrNotFound) {
		auth.BurnPasswordCheck(c.Password)
		return failed, model.ErrInvalidCredentials
	}
	if err != nil {
		return failed, fmt.Errorf("loading user: %w", err)
	}

	ok, err := auth.CheckPassword(c.Password, user.PasswordHash)
	if err != nil || !ok {
		return failed, model.ErrInvalidCredentials
	}

	if auth.NeedsRehash(user.PasswordHash) {
		if hash, err := auth.HashPassword(c.Password); err == nil {
			if err := s.queries.UpdateUserPassword(ctx, user.ID, hash, s.now()); err != nil {
				s.logger.Warn("failed to upgrade password hash", "user_id", user.ID, "error", err)
			}
		}
	}

	if err := s.LoadAccess(ctx, &user); err != nil {
		return failed, err
	}

	ev := failed.Event
	ev.Type = model.AuthEventLoginSuccess
	ev.UserID = user.ID
	return &LoginResult{User: &user, Event: ev}, nil
}

// RecordLogin stamps the user's last login and starts tracking the session.
func (s *AccessService) RecordLogin(ctx context.Context, user *model.User, token, ip, userAgent string) error {
	now := s.now()
	if err := s.queries.UpdateLastLogin(ctx, user.ID, ip, now); err != nil {
		return fmt.Errorf("updating last login: %w", err)
	}
	user.LastLoginAt = sql.NullTime{Time: now, Valid: true}
	user.LastLoginIP = ip
	return s.tracker.Start(ctx, token, user.ID, ip, userAgent)
}

// Logout forgets the tracked session and returns the event to record.
// Destroying the cookie session is left to the caller.
func (s *AccessService) Logout(ctx context.Context, user *model.User, token, ip, userAgent string) AuthEvent {
	if err := s.tracker.End(ctx, token); err != nil && !errors.Is(err, model.ErrNotFound) {
		s.logger.Warn("failed to end tracked session", "user_id", user.ID, "error", err)
	}
	return AuthEvent{
		Type:      model.AuthEventLogout,
		UserID:    user.ID,
		Email:     user.Email,
		IP:        ip,
		UserAgent: userAgent,
		At:        s.now(),
	}
}

// UserByID loads a user with roles, permissions and tokens.
func (s *AccessService) UserByID(ctx context.Context, id int64) (*model.User, error) {
	user, err := s.queries.GetUserByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.LoadAccess(ctx, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// UserByAPIToken resolves a plaintext bearer token to its owner.
func (s *AccessService) UserByAPIToken(ctx context.Context, plain string) (*model.User, error) {
	tok, err := s.queries.GetAPITokenByHash(ctx, auth.HashToken(plain))
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return nil, model.ErrInvalidCredentials
		}
		return nil, err
	}
	if err := s.queries.TouchAPIToken(ctx, tok.ID, s.now()); err != nil {
		s.logger.Warn("failed to touch api token", "token_id", tok.ID, "error", err)
	}
	return s.UserByID(ctx, tok.UserID)
}

// LoadAccess fills the user's roles, permissions and tokens.
func (s *AccessService) LoadAccess(ctx context.Context, user *model.User) error {
	roles, err := s.queries.UserRoleNames(ctx, user.ID)
	if err != nil {
		return fmt.Errorf("loading roles: %w", err)
	}
	perms, err := s.queries.UserPermissionNames(ctx, user.ID)
	if err != nil {
		return fmt.Errorf("loading permissions: %w", err)
	}
	tokens, err := s.queries.ListAPITokens(ctx, user.ID)
	if err != nil {
		return fmt.Errorf("loading tokens: %w", err)
	}
	user.SetAccess(roles, perms)
	user.SetTokens(tokens)
	return nil
}

// Authorize reports whether any role of user grants any of permissions.
func Authorize(user *model.User, permissions ...string) bool {
	return user != nil && user.Can(permissions...)
}

// ListSessions returns the user's sessions, most recently active first.
func (s *AccessService) ListSessions(ctx context.Context, userID int64, current string) ([]session.Info, error) {
	return s.tracker.List(ctx, userID, current)
}

// RevokeSession logs out one of the user's other sessions.
// The current session is refused with model.ErrCurrentSession.
func (s *AccessService) RevokeSession(ctx context.Context, userID int64, sessionID, current string) error {
	return s.tracker.Revoke(ctx, userID, sessionID, current)
}

// LogoutOthers re-verifies password, then ends every other session of the
// user and deletes all their API tokens.
func (s *AccessService) LogoutOthers(ctx context.Context, user *model.User, password, current string) (int, error) {
	if err := s.reverify(ctx, user, password, "password"); err != nil {
		return 0, err
	}
	return s.dropOtherAccess(ctx, user.ID, current)
}

// PasswordChange is the account security password form.
type PasswordChange struct {
	Current      string `form:"current_password" validate:"required"`
	New          string `form:"password" validate:"required,min=8,max=255"`
	Confirmation string `form:"password_confirmation" validate:"required,eqfield=New"`
}

// UpdatePassword re-verifies the current password, stores the new hash and
// ends every other session and API token. The caller must then renew the
// current session token and re-key its tracking row.
func (s *AccessService) UpdatePassword(ctx context.Context, user *model.User, in PasswordChange, current string) error {
	if err := check(in, nil); err != nil {
		return err
	}
	if err := s.reverify(ctx, user, in.Current, "current_password"); err != nil {
		return err
	}
	hash, err := auth.HashPassword(in.New)
	if err != nil {
		return fmt.Errorf("hashing password: %w", err)
	}
	if err := s.queries.UpdateUserPassword(ctx, user.ID, hash, s.now()); err != nil {
		return fmt.Errorf("storing password: %w", err)
	}
	user.PasswordHash = hash

	if _, err := s.dropOtherAccess(ctx, user.ID, current); err != nil {
		return err
	}
	s.logger.Info("password updated", "user_id", user.ID)
	return nil
}

// EmailChange is the account security email form.
type EmailChange struct {
	Current string `form:"current_password" validate:"required"`
	Email   string `form:"email" validate:"required,email,max=255"`
}

// UpdateEmail re-verifies the password, changes the address, clears its
// verified state and queues a verification link.
func (s *AccessService) UpdateEmail(ctx context.Context, user *model.User, in EmailChange) error {
	in.Email = normalizeEmail(in.Email)
	if err := check(in, nil); err != nil {
		return err
	}
	if err := s.reverify(ctx, user, in.Current, "current_password"); err != nil {
		return err
	}
	if in.Email == normalizeEmail(user.Email) {
		return model.ErrEmailUnchanged
	}

	taken, err := s.queries.EmailTaken(ctx, in.Email, user.ID)
	if err != nil {
		return fmt.Errorf("checking email: %w", err)
	}
	if taken {
		return model.NewValidationError("email", "This email address is already in use.")
	}

	if err := s.queries.UpdateUserEmail(ctx, user.ID, in.Email, s.now()); err != nil {
		if store.IsUniqueViolation(err, "users.email") {
			return model.NewValidationError("email", "This email address is already in use.")
		}
		return fmt.Errorf("storing email: %w", err)
	}
	user.Email = in.Email
	user.EmailVerifiedAt = sql.NullTime{}

	s.SendVerification(user)
	return nil
}

// SendVerification queues a signed verification link for the user's
// current address. It is a no-op without a verifier or notifier.
func (s *AccessService) SendVerification(user *model.User) {
	if s.verifier == nil || s.notifier == nil {
		return
	}
	token, err := s.verifier.Sign(user.ID, user.Email)
	if err != nil {
		s.logger.Error("failed to sign verification token", "user_id", user.ID, "error", err)
		return
	}
	link := s.baseURL + verifyEmailPath + "?token=" + url.QueryEscape(token)
	s.notifier.Enqueue(notify.VerifyEmail(user.Email, user.Name, link))
}

// VerifyEmail marks the address carried by token as verified, provided it
// is still the user's address.
func (s *AccessService) VerifyEmail(ctx context.Context, token string) (int64, error) {
	if s.verifier == nil {
		return 0, auth.ErrInvalidVerification
	}
	id, email, err := s.verifier.Parse(token)
	if err != nil {
		return 0, err
	}
	if err := s.queries.MarkEmailVerified(ctx, id, email, s.now()); err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return 0, auth.ErrInvalidVerification
		}
		return 0, err
	}
	return id, nil
}

// NewAPIToken is a freshly created token; Plain is only available once.
type NewAPIToken struct {
	Token model.APIToken
	Plain string
}

// CreateAPIToken issues a personal access token for user.
func (s *AccessService) CreateAPIToken(ctx context.Context, userID int64, name string) (*NewAPIToken, error) {
	name = strings.TrimSpace(name)
	if err := check(struct {
		Name string `form:"name" validate:"required,max=100"`
	}{name}, nil); err != nil {
		return nil, err
	}
	plain, hash, err := auth.GenerateToken()
	if err != nil {
		return nil, err
	}
	tok, err := s.queries.CreateAPIToken(ctx, userID, name, hash, s.now())
	if err != nil {
		return nil, fmt.Errorf("creating api token: %w", err)
	}
	return &NewAPIToken{Token: tok, Plain: plain}, nil
}

// ListAPITokens returns the user's tokens.
func (s *AccessService) ListAPITokens(ctx context.Context, userID int64) ([]model.APIToken, error) {
	return s.queries.ListAPITokens(ctx, userID)
}

// DeleteAPIToken deletes one of the user's tokens.
func (s *AccessService) DeleteAPIToken(ctx context.Context, userID, id int64) error {
	return s.queries.DeleteAPIToken(ctx, userID, id)
}

// RecentAuthLogs returns the user's latest authentication events.
func (s *AccessService) RecentAuthLogs(ctx context.Context, userID int64) ([]model.AuthLog, error) {
	return s.queries.ListAuthLogs(ctx, userID, recentAuthLogLimit)
}

func (s *AccessService) reverify(ctx context.Context, user *model.User, password, field string) error {
	fresh, err := s.queries.GetUserByID(ctx, user.ID)
	if err != nil {
		return err
	}
	ok, err := auth.CheckPassword(password, fresh.PasswordHash)
	if err != nil || !ok {
		return errors.Join(model.ErrInvalidCredentials,
			model.NewValidationError(field, "The password is incorrect."))
	}
	return nil
}

func (s *AccessService) dropOtherAccess(ctx context.Context, userID int64, current string) (int, error) {
	n, err := s.tracker.RevokeOthers(ctx, userID, current)
	if err != nil {
		return 0, err
	}
	if _, err := s.queries.DeleteUserAPITokens(ctx, userID); err != nil {
		return n, fmt.Errorf("deleting api tokens: %w", err)
	}
	return n, nil
}

// AuditLog writes authentication events.
type AuditLog struct {
	queries *store.Queries
	logger  *slog.Logger
}

// NewAuditLog creates an AuditLog.
func NewAuditLog(db store.DBTX, logger *slog.Logger) *AuditLog {
	if logger == nil {
		logger = slog.Default()
	}
	return &AuditLog{queries: store.New(db), logger: logger}
}

// Record appends ev to the audit log.
func (a *AuditLog) Record(ctx context.Context, ev AuthEvent) error {
	at := ev.At
	if at.IsZero() {
		at = time.Now()
	}
	err := a.queries.CreateAuthLog(ctx, store.CreateAuthLogParams{
		UserID:    sql.NullInt64{Int64: ev.UserID, Valid: ev.UserID != 0},
		Email:     ev.Email,
		Event:     ev.Type,
		IPAddress: ev.IP,
		UserAgent: truncate(ev.UserAgent, 512),
		CreatedAt: at,
	})
	if err != nil {
		a.logger.Error("failed to record auth event", "event", ev.Type, "error", err)
		return err
	}
	return nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
