package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/example/rental-booking/internal/persistence"
)

// SessionRepository implements persistence.SessionRepository using SQLite.
type SessionRepository struct {
	pool *ConnectionPool
}

// NewSessionRepository creates a new SQLite session repository.
func NewSessionRepository(pool *ConnectionPool) *SessionRepository {
	return &SessionRepository{pool: pool}
}

// CreateSession inserts a new session row.
func (r *SessionRepository) CreateSession(ctx context.Context, session persistence.Session) (persistence.Session, error) {
	if session.ID == "" || session.Token == "" {
		return persistence.Session{}, persistence.ErrConstraintViolation
	}

	_, err := r.pool.DB().ExecContext(ctx, `
		INSERT INTO sessions (id, operator_id, token, expires_at, created_at, updated_at, revoked_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		session.ID,
		session.OperatorID,
		session.Token,
		formatTime(session.ExpiresAt),
		formatTime(session.CreatedAt),
		formatTime(session.UpdatedAt),
		formatOptionalTime(session.RevokedAt),
	)
	if err != nil {
		return persistence.Session{}, mapSQLiteError(err)
	}
	return session, nil
}

// GetSession retrieves a session by its token.
func (r *SessionRepository) GetSession(ctx context.Context, token string) (persistence.Session, error) {
	row := r.pool.DB().QueryRowContext(ctx, `
		SELECT id, operator_id, token, expires_at, created_at, updated_at, revoked_at
		FROM sessions WHERE token = ?`, token)
	return scanSessionRow(row)
}

// UpdateSession rewrites a session row, keyed by session id so token rotation
// is possible.
func (r *SessionRepository) UpdateSession(ctx context.Context, session persistence.Session) (persistence.Session, error) {
	result, err := r.pool.DB().ExecContext(ctx, `
		UPDATE sessions
		SET token = ?, expires_at = ?, updated_at = ?, revoked_at = ?
		WHERE id = ?`,
		session.Token,
		formatTime(session.ExpiresAt),
		formatTime(session.UpdatedAt),
		formatOptionalTime(session.RevokedAt),
		session.ID,
	)
	if err != nil {
		return persistence.Session{}, mapSQLiteError(err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return persistence.Session{}, err
	}
	if affected == 0 {
		return persistence.Session{}, persistence.ErrNotFound
	}
	return session, nil
}

// RevokeSession marks a session revoked at the provided instant.
func (r *SessionRepository) RevokeSession(ctx context.Context, token string, revokedAt time.Time) (persistence.Session, error) {
	result, err := r.pool.DB().ExecContext(ctx, `
		UPDATE sessions SET revoked_at = ?, updated_at = ? WHERE token = ? AND revoked_at IS NULL`,
		formatTime(revokedAt), formatTime(revokedAt), token)
	if err != nil {
		return persistence.Session{}, mapSQLiteError(err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return persistence.Session{}, err
	}
	if affected == 0 {
		// Either unknown token or already revoked; report the stored state.
		return r.GetSession(ctx, token)
	}
	return r.GetSession(ctx, token)
}

// DeleteExpiredSessions prunes sessions whose expiry has passed.
func (r *SessionRepository) DeleteExpiredSessions(ctx context.Context, reference time.Time) error {
	_, err := r.pool.DB().ExecContext(ctx, `DELETE FROM sessions WHERE expires_at < ?`, formatTime(reference))
	return mapSQLiteError(err)
}

func scanSessionRow(row *sql.Row) (persistence.Session, error) {
	var session persistence.Session
	var revokedAt sql.NullString
	var expiresAt, createdAt, updatedAt string

	err := row.Scan(
		&session.ID,
		&session.OperatorID,
		&session.Token,
		&expiresAt,
		&createdAt,
		&updatedAt,
		&revokedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return persistence.Session{}, persistence.ErrNotFound
		}
		return persistence.Session{}, mapSQLiteError(err)
	}

	if session.ExpiresAt, err = parseTime(expiresAt); err != nil {
		return persistence.Session{}, err
	}
	if session.CreatedAt, err = parseTime(createdAt); err != nil {
		return persistence.Session{}, err
	}
	if session.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return persistence.Session{}, err
	}
	if revokedAt.Valid && revokedAt.String != "" {
		parsed, err := parseTime(revokedAt.String)
		if err != nil {
			return persistence.Session{}, err
		}
		session.RevokedAt = &parsed
	}
	return session, nil
}
