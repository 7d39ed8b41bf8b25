package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/example/rental-booking/internal/persistence"
)

// OperatorRepository implements persistence.OperatorRepository using SQLite.
type OperatorRepository struct {
	pool *ConnectionPool
}

// NewOperatorRepository creates a new SQLite operator repository.
func NewOperatorRepository(pool *ConnectionPool) *OperatorRepository {
	return &OperatorRepository{pool: pool}
}

// CreateOperator inserts a new operator account.
func (r *OperatorRepository) CreateOperator(ctx context.Context, operator persistence.Operator) error {
	if operator.ID == "" {
		return persistence.ErrConstraintViolation
	}

	_, err := r.pool.DB().ExecContext(ctx, `
		INSERT INTO operators (id, email, display_name, is_admin, password_hash, disabled, failed_attempts, last_failed_at, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		operator.ID,
		strings.ToLower(operator.Email),
		operator.DisplayName,
		boolToInt(operator.IsAdmin),
		operator.PasswordHash,
		boolToInt(operator.Disabled),
		operator.FailedAttempts,
		formatOptionalTime(operator.LastFailedAt),
		formatTime(operator.CreatedAt),
		formatTime(operator.UpdatedAt),
	)
	return mapSQLiteError(err)
}

// UpdateOperator rewrites an existing operator account.
func (r *OperatorRepository) UpdateOperator(ctx context.Context, operator persistence.Operator) error {
	result, err := r.pool.DB().ExecContext(ctx, `
		UPDATE operators
		SET email = ?, display_name = ?, is_admin = ?, password_hash = ?, disabled = ?, failed_attempts = ?, last_failed_at = ?, updated_at = ?
		WHERE id = ?`,
		strings.ToLower(operator.Email),
		operator.DisplayName,
		boolToInt(operator.IsAdmin),
		operator.PasswordHash,
		boolToInt(operator.Disabled),
		operator.FailedAttempts,
		formatOptionalTime(operator.LastFailedAt),
		formatTime(operator.UpdatedAt),
		operator.ID,
	)
	if err != nil {
		return mapSQLiteError(err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return persistence.ErrNotFound
	}
	return nil
}

// GetOperator retrieves an operator by id.
func (r *OperatorRepository) GetOperator(ctx context.Context, id string) (persistence.Operator, error) {
	row := r.pool.DB().QueryRowContext(ctx, selectOperator+` WHERE id = ?`, id)
	return scanOperatorRow(row)
}

// GetOperatorByEmail retrieves an operator by email address.
func (r *OperatorRepository) GetOperatorByEmail(ctx context.Context, email string) (persistence.Operator, error) {
	row := r.pool.DB().QueryRowContext(ctx, selectOperator+` WHERE email = ?`, strings.ToLower(strings.TrimSpace(email)))
	return scanOperatorRow(row)
}

// CountOperators reports the number of operator accounts.
func (r *OperatorRepository) CountOperators(ctx context.Context) (int, error) {
	var count int
	if err := r.pool.DB().QueryRowContext(ctx, `SELECT COUNT(1) FROM operators`).Scan(&count); err != nil {
		return 0, mapSQLiteError(err)
	}
	return count, nil
}

const selectOperator = `
	SELECT id, email, display_name, is_admin, password_hash, disabled, failed_attempts, last_failed_at, created_at, updated_at
	FROM operators`

func scanOperatorRow(row *sql.Row) (persistence.Operator, error) {
	var operator persistence.Operator
	var isAdmin, disabled int
	var lastFailedAt sql.NullString
	var createdAt, updatedAt string

	err := row.Scan(
		&operator.ID,
		&operator.Email,
		&operator.DisplayName,
		&isAdmin,
		&operator.PasswordHash,
		&disabled,
		&operator.FailedAttempts,
		&lastFailedAt,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return persistence.Operator{}, persistence.ErrNotFound
		}
		return persistence.Operator{}, mapSQLiteError(err)
	}

	operator.IsAdmin = isAdmin != 0
	operator.Disabled = disabled != 0
	if lastFailedAt.Valid && lastFailedAt.String != "" {
		parsed, err := parseTime(lastFailedAt.String)
		if err != nil {
			return persistence.Operator{}, err
		}
		operator.LastFailedAt = &parsed
	}
	if operator.CreatedAt, err = parseTime(createdAt); err != nil {
		return persistence.Operator{}, err
	}
	if operator.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return persistence.Operator{}, err
	}
	return operator, nil
}

func boolToInt(value bool) int {
	if value {
		return 1
	}
	return 0
}

func formatOptionalTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return formatTime(*t)
}
