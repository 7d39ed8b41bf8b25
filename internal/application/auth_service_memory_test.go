package application

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/example/rental-booking/internal/persistence"
	"github.com/example/rental-booking/internal/persistence/memory"
)

// The adapters below mirror the production wiring: repository errors reach the
// service raw, exactly as the binary's adapters pass them through.

type memoryCredentialStore struct {
	store *memory.Store
}

func (a *memoryCredentialStore) GetOperatorCredentialsByEmail(ctx context.Context, email string) (OperatorCredentials, error) {
	stored, err := a.store.GetOperatorByEmail(ctx, email)
	if err != nil {
		return OperatorCredentials{}, err
	}
	return OperatorCredentials{
		Operator:       memoryOperator(stored),
		PasswordHash:   stored.PasswordHash,
		Disabled:       stored.Disabled,
		FailedAttempts: stored.FailedAttempts,
		LastFailedAt:   stored.LastFailedAt,
	}, nil
}

func (a *memoryCredentialStore) GetOperator(ctx context.Context, id string) (Operator, error) {
	stored, err := a.store.GetOperator(ctx, id)
	if err != nil {
		return Operator{}, err
	}
	return memoryOperator(stored), nil
}

func (a *memoryCredentialStore) RecordAuthAttempt(ctx context.Context, operatorID string, failedAttempts int, lastFailedAt *time.Time) error {
	stored, err := a.store.GetOperator(ctx, operatorID)
	if err != nil {
		return err
	}
	stored.FailedAttempts = failedAttempts
	stored.LastFailedAt = lastFailedAt
	return a.store.UpdateOperator(ctx, stored)
}

func (a *memoryCredentialStore) CountOperators(ctx context.Context) (int, error) {
	return a.store.CountOperators(ctx)
}

func (a *memoryCredentialStore) CreateOperator(ctx context.Context, operator Operator, passwordHash string) error {
	return a.store.CreateOperator(ctx, persistence.Operator{
		ID:           operator.ID,
		Email:        operator.Email,
		DisplayName:  operator.DisplayName,
		IsAdmin:      operator.IsAdmin,
		PasswordHash: passwordHash,
		CreatedAt:    operator.CreatedAt,
		UpdatedAt:    operator.UpdatedAt,
	})
}

type memorySessionRepository struct {
	store *memory.Store
}

func (a *memorySessionRepository) CreateSession(ctx context.Context, session Session) (Session, error) {
	stored, err := a.store.CreateSession(ctx, memoryPersistenceSession(session))
	if err != nil {
		return Session{}, err
	}
	return memorySession(stored), nil
}

func (a *memorySessionRepository) GetSession(ctx context.Context, token string) (Session, error) {
	stored, err := a.store.GetSession(ctx, token)
	if err != nil {
		return Session{}, err
	}
	return memorySession(stored), nil
}

func (a *memorySessionRepository) UpdateSession(ctx context.Context, session Session) (Session, error) {
	stored, err := a.store.UpdateSession(ctx, memoryPersistenceSession(session))
	if err != nil {
		return Session{}, err
	}
	return memorySession(stored), nil
}

func (a *memorySessionRepository) RevokeSession(ctx context.Context, token string, revokedAt time.Time) (Session, error) {
	stored, err := a.store.RevokeSession(ctx, token, revokedAt)
	if err != nil {
		return Session{}, err
	}
	return memorySession(stored), nil
}

func (a *memorySessionRepository) DeleteExpiredSessions(ctx context.Context, reference time.Time) error {
	return a.store.DeleteExpiredSessions(ctx, reference)
}

func memoryOperator(stored persistence.Operator) Operator {
	return Operator{
		ID:          stored.ID,
		Email:       stored.Email,
		DisplayName: stored.DisplayName,
		IsAdmin:     stored.IsAdmin,
		CreatedAt:   stored.CreatedAt,
		UpdatedAt:   stored.UpdatedAt,
	}
}

func memorySession(stored persistence.Session) Session {
	return Session{
		ID:         stored.ID,
		OperatorID: stored.OperatorID,
		Token:      stored.Token,
		ExpiresAt:  stored.ExpiresAt,
		CreatedAt:  stored.CreatedAt,
		UpdatedAt:  stored.UpdatedAt,
		RevokedAt:  stored.RevokedAt,
	}
}

func memoryPersistenceSession(session Session) persistence.Session {
	return persistence.Session{
		ID:         session.ID,
		OperatorID: session.OperatorID,
		Token:      session.Token,
		ExpiresAt:  session.ExpiresAt,
		CreatedAt:  session.CreatedAt,
		UpdatedAt:  session.UpdatedAt,
		RevokedAt:  session.RevokedAt,
	}
}

func newMemoryAuthService(t *testing.T, store *memory.Store) *AuthService {
	t.Helper()
	tokens := sequentialIDs("token")
	now := func() time.Time { return time.Date(2025, time.July, 1, 9, 0, 0, 0, time.UTC) }
	return NewAuthService(&memoryCredentialStore{store: store}, &memorySessionRepository{store: store}, matchPassword, tokens, now, time.Hour)
}

func TestAuthService_MapsStoreSentinels(t *testing.T) {
	t.Parallel()

	store := memory.NewStore()
	if err := store.CreateOperator(context.Background(), persistence.Operator{
		ID:           "operator-1",
		Email:        "ops@example.com",
		PasswordHash: "hash:secret",
	}); err != nil {
		t.Fatalf("CreateOperator returned error: %v", err)
	}
	svc := newMemoryAuthService(t, store)

	// Unknown email must be indistinguishable from a wrong password, not leak
	// the storage sentinel.
	_, err := svc.Authenticate(context.Background(), AuthenticateParams{Email: "nobody@example.com", Password: "secret"})
	if !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("Authenticate with unknown email = %v, want ErrInvalidCredentials", err)
	}
	if errors.Is(err, persistence.ErrNotFound) {
		t.Fatalf("storage sentinel leaked through the service boundary")
	}

	_, err = svc.ValidateSession(context.Background(), "no-such-token")
	if !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("ValidateSession with unknown token = %v, want ErrUnauthorized", err)
	}

	if err := svc.RevokeSession(context.Background(), "no-such-token"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("RevokeSession with unknown token = %v, want ErrInvalidCredentials", err)
	}
}

func TestAuthService_SessionLifecycleAgainstMemoryStore(t *testing.T) {
	t.Parallel()

	store := memory.NewStore()
	if err := store.CreateOperator(context.Background(), persistence.Operator{
		ID:           "operator-1",
		Email:        "ops@example.com",
		PasswordHash: "hash:secret",
		IsAdmin:      true,
	}); err != nil {
		t.Fatalf("CreateOperator returned error: %v", err)
	}
	svc := newMemoryAuthService(t, store)

	result, err := svc.Authenticate(context.Background(), AuthenticateParams{Email: "Ops@Example.com", Password: "secret"})
	if err != nil {
		t.Fatalf("Authenticate returned error: %v", err)
	}

	principal, err := svc.ValidateSession(context.Background(), result.Session.Token)
	if err != nil {
		t.Fatalf("ValidateSession returned error: %v", err)
	}
	if principal.OperatorID != "operator-1" || !principal.IsAdmin {
		t.Fatalf("unexpected principal: %+v", principal)
	}

	if err := svc.RevokeSession(context.Background(), result.Session.Token); err != nil {
		t.Fatalf("RevokeSession returned error: %v", err)
	}
	if _, err := svc.ValidateSession(context.Background(), result.Session.Token); !errors.Is(err, ErrSessionRevoked) {
		t.Fatalf("ValidateSession after revoke = %v, want ErrSessionRevoked", err)
	}
}
