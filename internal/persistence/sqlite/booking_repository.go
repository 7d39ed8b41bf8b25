package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/example/rental-booking/internal/persistence"
)

// BookingRepository implements persistence.BookingRepository using SQLite.
// Booking rows and their assignment lines are written in one transaction, and
// updates carry an optimistic version guard.
type BookingRepository struct {
	pool *ConnectionPool
}

// NewBookingRepository creates a new SQLite booking repository.
func NewBookingRepository(pool *ConnectionPool) *BookingRepository {
	return &BookingRepository{pool: pool}
}

// CreateBooking inserts a new booking with its assignments and operators.
func (r *BookingRepository) CreateBooking(ctx context.Context, booking persistence.Booking) error {
	if booking.ID == "" {
		return persistence.ErrConstraintViolation
	}

	return r.pool.WithTransaction(ctx, func(tx *sql.Tx) error {
		_, err := tx.Exec(`
			INSERT INTO bookings (id, client_id, status, start_date, end_date, total_price_cents, notes, version, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, 1, ?, ?)`,
			booking.ID,
			booking.ClientID,
			booking.Status,
			formatTime(booking.Start),
			formatTime(booking.End),
			booking.TotalPriceCents,
			booking.Notes,
			formatTime(booking.CreatedAt),
			formatTime(booking.UpdatedAt),
		)
		if err != nil {
			return mapSQLiteError(err)
		}

		if err := insertAssignments(tx, booking.ID, booking.Assignments); err != nil {
			return err
		}
		return insertOperators(tx, booking.ID, booking.OperatorIDs)
	})
}

// UpdateBooking rewrites a booking and its child rows. The stored version must
// match the version recorded on the input; a stale write fails with
// persistence.ErrVersionMismatch so callers re-run their availability check.
func (r *BookingRepository) UpdateBooking(ctx context.Context, booking persistence.Booking) error {
	if booking.ID == "" {
		return persistence.ErrConstraintViolation
	}

	return r.pool.WithTransaction(ctx, func(tx *sql.Tx) error {
		result, err := tx.Exec(`
			UPDATE bookings
			SET client_id = ?, status = ?, start_date = ?, end_date = ?, total_price_cents = ?, notes = ?, version = version + 1, updated_at = ?
			WHERE id = ? AND version = ?`,
			booking.ClientID,
			booking.Status,
			formatTime(booking.Start),
			formatTime(booking.End),
			booking.TotalPriceCents,
			booking.Notes,
			formatTime(booking.UpdatedAt),
			booking.ID,
			booking.Version,
		)
		if err != nil {
			return mapSQLiteError(err)
		}

		affected, err := result.RowsAffected()
		if err != nil {
			return err
		}
		if affected == 0 {
			var exists int
			err := tx.QueryRow(`SELECT COUNT(1) FROM bookings WHERE id = ?`, booking.ID).Scan(&exists)
			if err != nil {
				return mapSQLiteError(err)
			}
			if exists == 0 {
				return persistence.ErrNotFound
			}
			return persistence.ErrVersionMismatch
		}

		if _, err := tx.Exec(`DELETE FROM booking_assignments WHERE booking_id = ?`, booking.ID); err != nil {
			return mapSQLiteError(err)
		}
		if _, err := tx.Exec(`DELETE FROM booking_operators WHERE booking_id = ?`, booking.ID); err != nil {
			return mapSQLiteError(err)
		}
		if err := insertAssignments(tx, booking.ID, booking.Assignments); err != nil {
			return err
		}
		return insertOperators(tx, booking.ID, booking.OperatorIDs)
	})
}

// GetBooking retrieves a booking by id together with its child rows.
func (r *BookingRepository) GetBooking(ctx context.Context, id string) (persistence.Booking, error) {
	row := r.pool.DB().QueryRowContext(ctx, `
		SELECT id, client_id, status, start_date, end_date, total_price_cents, notes, version, created_at, updated_at
		FROM bookings WHERE id = ?`, id)

	booking, err := scanBooking(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return persistence.Booking{}, persistence.ErrNotFound
		}
		return persistence.Booking{}, mapSQLiteError(err)
	}

	if err := r.loadChildren(ctx, &booking); err != nil {
		return persistence.Booking{}, err
	}
	return booking, nil
}

// ListBookings returns bookings matching the filter ordered by start date.
func (r *BookingRepository) ListBookings(ctx context.Context, filter persistence.BookingFilter) ([]persistence.Booking, error) {
	query := strings.Builder{}
	query.WriteString(`
		SELECT DISTINCT b.id, b.client_id, b.status, b.start_date, b.end_date, b.total_price_cents, b.notes, b.version, b.created_at, b.updated_at
		FROM bookings b`)

	var args []any
	var clauses []string

	if filter.ResourceID != "" {
		query.WriteString(` JOIN booking_assignments ba ON ba.booking_id = b.id`)
		clauses = append(clauses, `ba.resource_id = ?`)
		args = append(args, filter.ResourceID)
	}
	if filter.ClientID != "" {
		clauses = append(clauses, `b.client_id = ?`)
		args = append(args, filter.ClientID)
	}
	if len(filter.Statuses) > 0 {
		placeholders := make([]string, len(filter.Statuses))
		for i, status := range filter.Statuses {
			placeholders[i] = "?"
			args = append(args, status)
		}
		clauses = append(clauses, fmt.Sprintf(`b.status IN (%s)`, strings.Join(placeholders, ", ")))
	}
	if filter.StartsAfter != nil {
		clauses = append(clauses, `b.end_date >= ?`)
		args = append(args, formatTime(*filter.StartsAfter))
	}
	if filter.EndsBefore != nil {
		clauses = append(clauses, `b.start_date <= ?`)
		args = append(args, formatTime(*filter.EndsBefore))
	}

	if len(clauses) > 0 {
		query.WriteString(` WHERE ` + strings.Join(clauses, ` AND `))
	}
	query.WriteString(` ORDER BY b.start_date ASC, b.id ASC`)

	rows, err := r.pool.DB().QueryContext(ctx, query.String(), args...)
	if err != nil {
		return nil, mapSQLiteError(err)
	}
	defer rows.Close()

	var bookings []persistence.Booking
	for rows.Next() {
		booking, err := scanBooking(rows)
		if err != nil {
			return nil, mapSQLiteError(err)
		}
		bookings = append(bookings, booking)
	}
	if err := rows.Err(); err != nil {
		return nil, mapSQLiteError(err)
	}

	for i := range bookings {
		if err := r.loadChildren(ctx, &bookings[i]); err != nil {
			return nil, err
		}
	}
	return bookings, nil
}

// DeleteBooking removes a booking; child rows cascade.
func (r *BookingRepository) DeleteBooking(ctx context.Context, id string) error {
	result, err := r.pool.DB().ExecContext(ctx, `DELETE FROM bookings WHERE id = ?`, id)
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

func (r *BookingRepository) loadChildren(ctx context.Context, booking *persistence.Booking) error {
	rows, err := r.pool.DB().QueryContext(ctx, `
		SELECT resource_id, quantity FROM booking_assignments
		WHERE booking_id = ? ORDER BY position ASC`, booking.ID)
	if err != nil {
		return mapSQLiteError(err)
	}
	defer rows.Close()

	for rows.Next() {
		var assignment persistence.Assignment
		if err := rows.Scan(&assignment.ResourceID, &assignment.Quantity); err != nil {
			return err
		}
		booking.Assignments = append(booking.Assignments, assignment)
	}
	if err := rows.Err(); err != nil {
		return err
	}

	operatorRows, err := r.pool.DB().QueryContext(ctx, `
		SELECT operator_id FROM booking_operators
		WHERE booking_id = ? ORDER BY operator_id ASC`, booking.ID)
	if err != nil {
		return mapSQLiteError(err)
	}
	defer operatorRows.Close()

	for operatorRows.Next() {
		var operatorID string
		if err := operatorRows.Scan(&operatorID); err != nil {
			return err
		}
		booking.OperatorIDs = append(booking.OperatorIDs, operatorID)
	}
	return operatorRows.Err()
}

func insertAssignments(tx *sql.Tx, bookingID string, assignments []persistence.Assignment) error {
	for i, assignment := range assignments {
		_, err := tx.Exec(`
			INSERT INTO booking_assignments (booking_id, resource_id, quantity, position)
			VALUES (?, ?, ?, ?)`,
			bookingID, assignment.ResourceID, assignment.Quantity, i,
		)
		if err != nil {
			return mapSQLiteError(err)
		}
	}
	return nil
}

func insertOperators(tx *sql.Tx, bookingID string, operatorIDs []string) error {
	for _, operatorID := range operatorIDs {
		_, err := tx.Exec(`
			INSERT INTO booking_operators (booking_id, operator_id)
			VALUES (?, ?)`,
			bookingID, operatorID,
		)
		if err != nil {
			return mapSQLiteError(err)
		}
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanBooking(row rowScanner) (persistence.Booking, error) {
	var booking persistence.Booking
	var start, end, createdAt, updatedAt string
	err := row.Scan(
		&booking.ID,
		&booking.ClientID,
		&booking.Status,
		&start,
		&end,
		&booking.TotalPriceCents,
		&booking.Notes,
		&booking.Version,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return persistence.Booking{}, err
	}

	if booking.Start, err = parseTime(start); err != nil {
		return persistence.Booking{}, err
	}
	if booking.End, err = parseTime(end); err != nil {
		return persistence.Booking{}, err
	}
	if booking.CreatedAt, err = parseTime(createdAt); err != nil {
		return persistence.Booking{}, err
	}
	if booking.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return persistence.Booking{}, err
	}
	return booking, nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

func parseTime(value string) (time.Time, error) {
	return time.Parse(time.RFC3339, value)
}
