package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/example/rental-booking/internal/persistence"
)

// Lockout thresholds for repeated failed logins.
const (
	maxFailedAttempts    = 5
	failedAttemptsWindow = 15 * time.Minute
)

// CredentialStore exposes the operator lookups required by the auth service.
type CredentialStore interface {
	GetOperatorCredentialsByEmail(ctx context.Context, email string) (OperatorCredentials, error)
	GetOperator(ctx context.Context, id string) (Operator, error)
	RecordAuthAttempt(ctx context.Context, operatorID string, failedAttempts int, lastFailedAt *time.Time) error
	CountOperators(ctx context.Context) (int, error)
	CreateOperator(ctx context.Context, operator Operator, passwordHash string) error
}

// SessionRepository captures the persistence interactions for issued sessions.
type SessionRepository interface {
	CreateSession(ctx context.Context, session Session) (Session, error)
	GetSession(ctx context.Context, token string) (Session, error)
	UpdateSession(ctx context.Context, session Session) (Session, error)
	RevokeSession(ctx context.Context, token string, revokedAt time.Time) (Session, error)
	DeleteExpiredSessions(ctx context.Context, reference time.Time) error
}

// PasswordVerifier compares a stored hash with a candidate password.
type PasswordVerifier func(hashedPassword, password string) error

// AuthService coordinates operator login, session validation and revocation.
type AuthService struct {
	credentials    CredentialStore
	sessions       SessionRepository
	verifyPassword PasswordVerifier
	tokenGenerator func() string
	now            func() time.Time
	sessionTTL     time.Duration
	logger         *slog.Logger
}

// NewAuthService constructs an AuthService with the provided dependencies.
func NewAuthService(credentials CredentialStore, sessions SessionRepository, verify PasswordVerifier, tokenGenerator func() string, now func() time.Time, sessionTTL time.Duration) *AuthService {
	return NewAuthServiceWithLogger(credentials, sessions, verify, tokenGenerator, now, sessionTTL, nil)
}

// NewAuthServiceWithLogger constructs an AuthService with a specified logger.
func NewAuthServiceWithLogger(credentials CredentialStore, sessions SessionRepository, verify PasswordVerifier, tokenGenerator func() string, now func() time.Time, sessionTTL time.Duration, logger *slog.Logger) *AuthService {
	if verify == nil {
		verify = VerifyPassword
	}
	if tokenGenerator == nil {
		tokenGenerator = func() string { return "" }
	}
	if now == nil {
		now = time.Now
	}
	if sessionTTL <= 0 {
		sessionTTL = 24 * time.Hour
	}
	return &AuthService{
		credentials:    credentials,
		sessions:       sessions,
		verifyPassword: verify,
		tokenGenerator: tokenGenerator,
		now:            now,
		sessionTTL:     sessionTTL,
		logger:         defaultLogger(logger),
	}
}

func (s *AuthService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "AuthService", operation, attrs...)
}

// BootstrapAdmin seeds an admin operator when the store holds no operators at
// all, so a fresh deployment can log in. It is a no-op otherwise.
func (s *AuthService) BootstrapAdmin(ctx context.Context, email, password, displayName, operatorID string) error {
	if s == nil || s.credentials == nil {
		return fmt.Errorf("credential store not configured")
	}
	if strings.TrimSpace(email) == "" || password == "" {
		return nil
	}

	count, err := s.credentials.CountOperators(ctx)
	if err != nil {
		return mapAuthRepoError(err)
	}
	if count > 0 {
		return nil
	}

	hash, err := CreatePasswordHash(password, DefaultArgon2idParams)
	if err != nil {
		return err
	}

	now := s.now()
	operator := Operator{
		ID:          operatorID,
		Email:       strings.ToLower(strings.TrimSpace(email)),
		DisplayName: strings.TrimSpace(displayName),
		IsAdmin:     true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if operator.DisplayName == "" {
		operator.DisplayName = "Administrator"
	}

	if err := s.credentials.CreateOperator(ctx, operator, hash); err != nil {
		return mapAuthRepoError(err)
	}
	s.loggerWith(ctx, "BootstrapAdmin").With("operator_id", operator.ID).InfoContext(ctx, "admin operator bootstrapped")
	return nil
}

// Authenticate validates credentials and issues a new session token. Repeated
// failures within the lockout window lock the account until the window passes.
func (s *AuthService) Authenticate(ctx context.Context, params AuthenticateParams) (result AuthenticateResult, err error) {
	if s == nil {
		err = fmt.Errorf("AuthService is nil")
		return
	}
	if s.credentials == nil {
		err = fmt.Errorf("credential store not configured")
		return
	}

	email := strings.TrimSpace(strings.ToLower(params.Email))
	password := params.Password

	logger := s.loggerWith(ctx, "Authenticate", "email", email)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "authentication failed", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With(
			"operator_id", result.Operator.ID,
			"session_id", result.Session.ID,
		).InfoContext(ctx, "authentication succeeded")
	}()

	if email == "" || password == "" {
		err = ErrInvalidCredentials
		return
	}

	var creds OperatorCredentials
	creds, err = s.credentials.GetOperatorCredentialsByEmail(ctx, email)
	if err != nil {
		err = mapAuthRepoError(err)
		if errors.Is(err, ErrNotFound) {
			err = ErrInvalidCredentials
		}
		return
	}

	if creds.Disabled {
		err = ErrAccountDisabled
		return
	}

	now := s.now()
	if s.isLockedOut(creds, now) {
		err = ErrAccountLocked
		return
	}

	if err = s.verifyPassword(creds.PasswordHash, password); err != nil {
		failedAt := now
		_ = s.credentials.RecordAuthAttempt(ctx, creds.Operator.ID, creds.FailedAttempts+1, &failedAt)
		err = ErrInvalidCredentials
		return
	}

	if creds.FailedAttempts > 0 {
		if err = s.credentials.RecordAuthAttempt(ctx, creds.Operator.ID, 0, nil); err != nil {
			err = mapAuthRepoError(err)
			return
		}
	}

	id := s.tokenGenerator()
	token := s.tokenGenerator()
	if token == "" {
		token = id
	}

	session := Session{
		ID:         id,
		OperatorID: creds.Operator.ID,
		Token:      token,
		CreatedAt:  now,
		UpdatedAt:  now,
		ExpiresAt:  now.Add(s.sessionTTL),
	}

	if s.sessions != nil {
		if err = s.sessions.DeleteExpiredSessions(ctx, now); err != nil {
			err = mapAuthRepoError(err)
			return
		}

		var persisted Session
		persisted, err = s.sessions.CreateSession(ctx, session)
		if err != nil {
			err = mapAuthRepoError(err)
			return
		}
		session = persisted
	}

	result = AuthenticateResult{Operator: creds.Operator, Session: session}
	return
}

// RevokeSession invalidates an existing session token.
func (s *AuthService) RevokeSession(ctx context.Context, token string) error {
	if s == nil {
		return fmt.Errorf("AuthService is nil")
	}
	if s.sessions == nil {
		return fmt.Errorf("session repository not configured")
	}

	trimmed := strings.TrimSpace(token)
	if trimmed == "" {
		return ErrInvalidCredentials
	}

	logger := s.loggerWith(ctx, "RevokeSession")

	if _, err := s.sessions.RevokeSession(ctx, trimmed, s.now()); err != nil {
		err = mapAuthRepoError(err)
		if errors.Is(err, ErrNotFound) {
			logger.ErrorContext(ctx, "failed to revoke session", "error", ErrInvalidCredentials, "error_kind", ErrorKind(ErrInvalidCredentials))
			return ErrInvalidCredentials
		}
		logger.ErrorContext(ctx, "failed to revoke session", "error", err, "error_kind", ErrorKind(err))
		return err
	}

	if err := s.sessions.DeleteExpiredSessions(ctx, s.now()); err != nil {
		err = mapAuthRepoError(err)
		logger.ErrorContext(ctx, "failed to prune expired sessions", "error", err, "error_kind", ErrorKind(err))
		return err
	}
	logger.InfoContext(ctx, "session revoked")
	return nil
}

// ValidateSession verifies that the provided token corresponds to an active
// session and returns its principal.
func (s *AuthService) ValidateSession(ctx context.Context, token string) (principal Principal, err error) {
	if s == nil {
		err = fmt.Errorf("AuthService is nil")
		return
	}
	if s.sessions == nil {
		err = fmt.Errorf("session repository not configured")
		return
	}
	if s.credentials == nil {
		err = fmt.Errorf("credential store not configured")
		return
	}

	trimmed := strings.TrimSpace(token)
	if trimmed == "" {
		err = ErrInvalidCredentials
		return
	}

	var session Session
	session, err = s.sessions.GetSession(ctx, trimmed)
	if err != nil {
		err = mapAuthRepoError(err)
		if errors.Is(err, ErrNotFound) {
			err = ErrUnauthorized
		}
		return
	}

	now := s.now()
	if session.RevokedAt != nil && !session.RevokedAt.IsZero() {
		err = ErrSessionRevoked
		return
	}
	if !session.ExpiresAt.IsZero() && !session.ExpiresAt.After(now) {
		err = ErrSessionExpired
		return
	}

	var operator Operator
	operator, err = s.credentials.GetOperator(ctx, session.OperatorID)
	if err != nil {
		err = mapAuthRepoError(err)
		if errors.Is(err, ErrNotFound) {
			err = ErrUnauthorized
		}
		return
	}

	principal = Principal{OperatorID: operator.ID, IsAdmin: operator.IsAdmin}
	return
}

// mapAuthRepoError converts persistence sentinels into their application
// counterparts so storage errors never cross the service boundary raw.
func mapAuthRepoError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrNotFound) || errors.Is(err, persistence.ErrNotFound) {
		return ErrNotFound
	}
	if errors.Is(err, persistence.ErrDuplicate) {
		return ErrAlreadyExists
	}
	return err
}

func (s *AuthService) isLockedOut(creds OperatorCredentials, now time.Time) bool {
	if creds.FailedAttempts < maxFailedAttempts {
		return false
	}
	if creds.LastFailedAt == nil {
		return false
	}
	return now.Sub(*creds.LastFailedAt) < failedAttemptsWindow
}
