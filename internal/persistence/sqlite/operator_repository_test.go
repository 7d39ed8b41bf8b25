package sqlite_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/example/rental-booking/internal/persistence"
	"github.com/example/rental-booking/internal/testfixtures"
)

func TestOperatorRepository_CreateAndGetByEmail(t *testing.T) {
	t.Parallel()

	harness := testfixtures.NewSQLiteHarness(t)
	fixture := testfixtures.NewOperatorFixture(
		testfixtures.WithOperatorEmail("Mixed.Case@Example.com"),
		testfixtures.WithOperatorAdmin(true),
	)

	if err := harness.Operators.CreateOperator(context.Background(), fixture.Persistence()); err != nil {
		t.Fatalf("CreateOperator returned error: %v", err)
	}

	// Emails are stored and looked up case-insensitively.
	got, err := harness.Operators.GetOperatorByEmail(context.Background(), "  mixed.case@example.COM ")
	if err != nil {
		t.Fatalf("GetOperatorByEmail returned error: %v", err)
	}
	if got.ID != fixture.ID {
		t.Fatalf("expected operator %q, got %q", fixture.ID, got.ID)
	}
	if !got.IsAdmin {
		t.Fatalf("admin flag did not round trip")
	}
	if got.LastFailedAt != nil {
		t.Fatalf("expected no failure timestamp, got %v", got.LastFailedAt)
	}
}

func TestOperatorRepository_EmailUniqueness(t *testing.T) {
	t.Parallel()

	harness := testfixtures.NewSQLiteHarness(t)
	first := testfixtures.NewOperatorFixture(testfixtures.WithOperatorEmail("shared@example.com"))
	second := testfixtures.NewOperatorFixture(testfixtures.WithOperatorEmail("SHARED@example.com"))

	if err := harness.Operators.CreateOperator(context.Background(), first.Persistence()); err != nil {
		t.Fatalf("CreateOperator returned error: %v", err)
	}
	err := harness.Operators.CreateOperator(context.Background(), second.Persistence())
	if !errors.Is(err, persistence.ErrDuplicate) {
		t.Fatalf("expected ErrDuplicate for reused email, got %v", err)
	}
}

func TestOperatorRepository_UpdateFailureCounters(t *testing.T) {
	t.Parallel()

	harness := testfixtures.NewSQLiteHarness(t)
	fixture := testfixtures.NewOperatorFixture()

	if err := harness.Operators.CreateOperator(context.Background(), fixture.Persistence()); err != nil {
		t.Fatalf("CreateOperator returned error: %v", err)
	}

	failedAt := testfixtures.ReferenceTime()
	updated := fixture.Persistence()
	updated.FailedAttempts = 3
	updated.LastFailedAt = &failedAt
	if err := harness.Operators.UpdateOperator(context.Background(), updated); err != nil {
		t.Fatalf("UpdateOperator returned error: %v", err)
	}

	got, err := harness.Operators.GetOperator(context.Background(), fixture.ID)
	if err != nil {
		t.Fatalf("GetOperator returned error: %v", err)
	}
	if got.FailedAttempts != 3 {
		t.Fatalf("expected 3 failed attempts, got %d", got.FailedAttempts)
	}
	if got.LastFailedAt == nil || !got.LastFailedAt.Equal(failedAt) {
		t.Fatalf("expected failure timestamp %v, got %v", failedAt, got.LastFailedAt)
	}
}

func TestOperatorRepository_CountOperators(t *testing.T) {
	t.Parallel()

	harness := testfixtures.NewSQLiteHarness(t)

	count, err := harness.Operators.CountOperators(context.Background())
	if err != nil {
		t.Fatalf("CountOperators returned error: %v", err)
	}
	if count != 0 {
		t.Fatalf("expected empty store, got %d", count)
	}

	for i := 0; i < 2; i++ {
		fixture := testfixtures.NewOperatorFixture()
		if err := harness.Operators.CreateOperator(context.Background(), fixture.Persistence()); err != nil {
			t.Fatalf("CreateOperator returned error: %v", err)
		}
	}

	count, err = harness.Operators.CountOperators(context.Background())
	if err != nil {
		t.Fatalf("CountOperators returned error: %v", err)
	}
	if count != 2 {
		t.Fatalf("expected two operators, got %d", count)
	}
}

func TestSessionRepository_Lifecycle(t *testing.T) {
	t.Parallel()

	harness := testfixtures.NewSQLiteHarness(t)
	operator := testfixtures.NewOperatorFixture()
	if err := harness.Operators.CreateOperator(context.Background(), operator.Persistence()); err != nil {
		t.Fatalf("CreateOperator returned error: %v", err)
	}

	fixture := testfixtures.NewSessionFixture(testfixtures.WithSessionOperatorID(operator.ID))
	if _, err := harness.Sessions.CreateSession(context.Background(), fixture.Persistence()); err != nil {
		t.Fatalf("CreateSession returned error: %v", err)
	}

	got, err := harness.Sessions.GetSession(context.Background(), fixture.Token)
	if err != nil {
		t.Fatalf("GetSession returned error: %v", err)
	}
	if got.OperatorID != operator.ID {
		t.Fatalf("expected operator %q, got %q", operator.ID, got.OperatorID)
	}
	if got.RevokedAt != nil {
		t.Fatalf("fresh sessions must not be revoked")
	}

	revokedAt := testfixtures.ReferenceTime().Add(time.Hour)
	revoked, err := harness.Sessions.RevokeSession(context.Background(), fixture.Token, revokedAt)
	if err != nil {
		t.Fatalf("RevokeSession returned error: %v", err)
	}
	if revoked.RevokedAt == nil || !revoked.RevokedAt.Equal(revokedAt) {
		t.Fatalf("expected revocation at %v, got %v", revokedAt, revoked.RevokedAt)
	}

	// Revocation is recorded once; a second call reports the stored state.
	again, err := harness.Sessions.RevokeSession(context.Background(), fixture.Token, revokedAt.Add(time.Hour))
	if err != nil {
		t.Fatalf("repeat RevokeSession returned error: %v", err)
	}
	if !again.RevokedAt.Equal(revokedAt) {
		t.Fatalf("revocation timestamp must not move, got %v", again.RevokedAt)
	}
}

func TestSessionRepository_TokenRotation(t *testing.T) {
	t.Parallel()

	harness := testfixtures.NewSQLiteHarness(t)
	operator := testfixtures.NewOperatorFixture()
	if err := harness.Operators.CreateOperator(context.Background(), operator.Persistence()); err != nil {
		t.Fatalf("CreateOperator returned error: %v", err)
	}

	fixture := testfixtures.NewSessionFixture(testfixtures.WithSessionOperatorID(operator.ID))
	if _, err := harness.Sessions.CreateSession(context.Background(), fixture.Persistence()); err != nil {
		t.Fatalf("CreateSession returned error: %v", err)
	}

	rotated := fixture.Persistence()
	rotated.Token = fixture.Token + "-rotated"
	if _, err := harness.Sessions.UpdateSession(context.Background(), rotated); err != nil {
		t.Fatalf("UpdateSession returned error: %v", err)
	}

	if _, err := harness.Sessions.GetSession(context.Background(), fixture.Token); !errors.Is(err, persistence.ErrNotFound) {
		t.Fatalf("old token must no longer resolve, got %v", err)
	}
	got, err := harness.Sessions.GetSession(context.Background(), rotated.Token)
	if err != nil {
		t.Fatalf("GetSession returned error: %v", err)
	}
	if got.ID != fixture.ID {
		t.Fatalf("expected session %q, got %q", fixture.ID, got.ID)
	}
}

func TestSessionRepository_DeleteExpiredSessions(t *testing.T) {
	t.Parallel()

	harness := testfixtures.NewSQLiteHarness(t)
	operator := testfixtures.NewOperatorFixture()
	if err := harness.Operators.CreateOperator(context.Background(), operator.Persistence()); err != nil {
		t.Fatalf("CreateOperator returned error: %v", err)
	}

	now := testfixtures.ReferenceTime()
	expired := testfixtures.NewSessionFixture(
		testfixtures.WithSessionOperatorID(operator.ID),
		testfixtures.WithSessionExpiresAt(now.Add(-time.Hour)),
	)
	live := testfixtures.NewSessionFixture(
		testfixtures.WithSessionOperatorID(operator.ID),
		testfixtures.WithSessionExpiresAt(now.Add(time.Hour)),
	)
	for _, fixture := range []testfixtures.SessionFixture{expired, live} {
		if _, err := harness.Sessions.CreateSession(context.Background(), fixture.Persistence()); err != nil {
			t.Fatalf("CreateSession returned error: %v", err)
		}
	}

	if err := harness.Sessions.DeleteExpiredSessions(context.Background(), now); err != nil {
		t.Fatalf("DeleteExpiredSessions returned error: %v", err)
	}

	if _, err := harness.Sessions.GetSession(context.Background(), expired.Token); !errors.Is(err, persistence.ErrNotFound) {
		t.Fatalf("expected expired session to be pruned, got %v", err)
	}
	if _, err := harness.Sessions.GetSession(context.Background(), live.Token); err != nil {
		t.Fatalf("live session must survive pruning, got %v", err)
	}
}
