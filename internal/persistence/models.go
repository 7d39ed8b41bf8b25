package persistence

import "time"

// Resource represents a single physical bookable unit in the catalog.
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

// Assignment associates one resource with a booking. Quantity multiplies the
// price line only; availability is tracked per resource id.
type Assignment struct {
	ResourceID string
	Quantity   int
}

// Booking represents a reservation of resources for a closed date interval.
type Booking struct {
	ID              string
	ClientID        string
	Assignments     []Assignment
	Status          string
	Start           time.Time
	End             time.Time
	TotalPriceCents int64
	Notes           string
	OperatorIDs     []string
	Version         int64
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Operator represents a staff account that can hold sessions.
type Operator struct {
	ID             string
	Email          string
	DisplayName    string
	IsAdmin        bool
	PasswordHash   string
	Disabled       bool
	FailedAttempts int
	LastFailedAt   *time.Time
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Session represents an authentication session persisted for an operator.
type Session struct {
	ID         string
	OperatorID string
	Token      string
	ExpiresAt  time.Time
	CreatedAt  time.Time
	UpdatedAt  time.Time
	RevokedAt  *time.Time
}
