package application

import "time"

// Principal represents the authenticated operator invoking a service method.
type Principal struct {
	OperatorID string
	IsAdmin    bool
}

// Assignment associates one catalog resource with a booking. Quantity
// multiplies the price line only; the conflict engine treats the resource as a
// single indivisible unit regardless of quantity.
type Assignment struct {
	ResourceID string
	Quantity   int
}

// Booking represents a persisted reservation.
type Booking struct {
	ID              string
	ClientID        string
	Assignments     []Assignment
	Status          Status
	Start           time.Time
	End             time.Time
	TotalPriceCents int64
	Notes           string
	OperatorIDs     []string
	Version         int64
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// BookingInput captures caller provided fields for creating a booking.
type BookingInput struct {
	ClientID    string
	Assignments []Assignment
	Start       time.Time
	End         time.Time
	Notes       string
	OperatorIDs []string
}

// BookingPatch carries the optional fields of an update; nil fields keep the
// stored value.
type BookingPatch struct {
	Assignments *[]Assignment
	Start       *time.Time
	End         *time.Time
	Notes       *string
	Status      *Status
	OperatorIDs *[]string
}

// CreateBookingParams wraps the data required to create a booking.
type CreateBookingParams struct {
	Principal Principal
	Input     BookingInput
}

// UpdateBookingParams wraps the data required to update an existing booking.
type UpdateBookingParams struct {
	Principal Principal
	BookingID string
	Patch     BookingPatch
}

// ListBookingsParams wraps the data required to list bookings.
type ListBookingsParams struct {
	Principal   Principal
	ClientID    string
	Statuses    []Status
	ResourceID  string
	StartsAfter *time.Time
	EndsBefore  *time.Time
}

// AvailabilityQuery describes a candidate assignment set to test.
type AvailabilityQuery struct {
	ResourceIDs      []string
	Start            time.Time
	End              time.Time
	ExcludeBookingID string
}

// AvailabilityResult reports the outcome of an availability check. Conflicts
// is empty exactly when Available is true.
type AvailabilityResult struct {
	Available bool
	Conflicts []ResourceConflict
}

// Resource represents a catalog entry for one physical bookable unit.
type Resource struct {
	ID                   string
	Name                 string
	UnitPriceCents       int64
	WidthMeters          float64
	DepthMeters          float64
	HeightMeters         float64
	WeightKilograms      float64
	SetupDurationMinutes int
	CreatedAt            time.Time
	UpdatedAt            time.Time
}

// ResourceInput captures caller provided resource fields.
type ResourceInput struct {
	Name                 string
	UnitPriceCents       int64
	WidthMeters          float64
	DepthMeters          float64
	HeightMeters         float64
	WeightKilograms      float64
	SetupDurationMinutes int
}

// CreateResourceParams wraps the data required to create a resource.
type CreateResourceParams struct {
	Principal Principal
	Input     ResourceInput
}

// UpdateResourceParams wraps the data required to update a resource.
type UpdateResourceParams struct {
	Principal  Principal
	ResourceID string
	Input      ResourceInput
}

// Operator represents a staff account exposed by the application services.
type Operator struct {
	ID          string
	Email       string
	DisplayName string
	IsAdmin     bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// OperatorCredentials models the authentication attributes persisted for an operator.
type OperatorCredentials struct {
	Operator       Operator
	PasswordHash   string
	Disabled       bool
	FailedAttempts int
	LastFailedAt   *time.Time
}

// Session represents an authenticated session issued to an operator.
type Session struct {
	ID         string
	OperatorID string
	Token      string
	ExpiresAt  time.Time
	CreatedAt  time.Time
	UpdatedAt  time.Time
	RevokedAt  *time.Time
}

// AuthenticateParams captures the data required to authenticate an operator.
type AuthenticateParams struct {
	Email    string
	Password string
}

// AuthenticateResult captures the outcome of a successful authentication attempt.
type AuthenticateResult struct {
	Operator Operator
	Session  Session
}
