package persistence

import (
	"context"
	"time"
)

// ResourceRepository exposes CRUD operations for catalog resources.
type ResourceRepository interface {
	CreateResource(ctx context.Context, resource Resource) error
	UpdateResource(ctx context.Context, resource Resource) error
	GetResource(ctx context.Context, id string) (Resource, error)
	ListResources(ctx context.Context) ([]Resource, error)
	DeleteResource(ctx context.Context, id string) error
}

// BookingFilter narrows booking queries.
type BookingFilter struct {
	ClientID    string
	Statuses    []string
	StartsAfter *time.Time
	EndsBefore  *time.Time
	ResourceID  string
}

// BookingRepository stores bookings together with their assignment lines.
// UpdateBooking performs an optimistic write: it matches the stored version
// recorded on the input and fails with ErrVersionMismatch when another commit
// got there first.
type BookingRepository interface {
	CreateBooking(ctx context.Context, booking Booking) error
	UpdateBooking(ctx context.Context, booking Booking) error
	GetBooking(ctx context.Context, id string) (Booking, error)
	ListBookings(ctx context.Context, filter BookingFilter) ([]Booking, error)
	DeleteBooking(ctx context.Context, id string) error
}

// OperatorRepository exposes the operator lookups needed for authentication.
type OperatorRepository interface {
	CreateOperator(ctx context.Context, operator Operator) error
	UpdateOperator(ctx context.Context, operator Operator) error
	GetOperator(ctx context.Context, id string) (Operator, error)
	GetOperatorByEmail(ctx context.Context, email string) (Operator, error)
	CountOperators(ctx context.Context) (int, error)
}

// SessionRepository stores authentication session state.
type SessionRepository interface {
	CreateSession(ctx context.Context, session Session) (Session, error)
	GetSession(ctx context.Context, token string) (Session, error)
	UpdateSession(ctx context.Context, session Session) (Session, error)
	RevokeSession(ctx context.Context, token string, revokedAt time.Time) (Session, error)
	DeleteExpiredSessions(ctx context.Context, reference time.Time) error
}
