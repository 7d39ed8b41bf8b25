package testfixtures

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/example/rental-booking/internal/application"
	"github.com/example/rental-booking/internal/persistence"
)

var (
	resourceCounter uint64
	bookingCounter  uint64
	operatorCounter uint64
	sessionCounter  uint64
)

var referenceTime = time.Date(2025, time.July, 1, 9, 0, 0, 0, time.UTC)

// ReferenceTime returns the canonical baseline timestamp used by fixtures.
func ReferenceTime() time.Time {
	return referenceTime
}

// --------------------------- Resource fixtures ---------------------------

// ResourceFixture represents a deterministic catalog entry that can be
// materialised for application or persistence tests.
type ResourceFixture struct {
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

// ResourceOption configures the generated resource fixture.
type ResourceOption func(*ResourceFixture)

// NewResourceFixture returns a deterministic resource fixture with optional overrides.
func NewResourceFixture(opts ...ResourceOption) ResourceFixture {
	idx := atomic.AddUint64(&resourceCounter, 1)
	id := fmt.Sprintf("resource-%03d", idx)
	created := referenceTime.Add(time.Duration(idx) * time.Minute)
	fixture := ResourceFixture{
		ID:                   id,
		Name:                 fmt.Sprintf("Bounce Castle %03d", idx),
		UnitPriceCents:       10000 + int64(idx)*500,
		WidthMeters:          4,
		DepthMeters:          4,
		HeightMeters:         3,
		WeightKilograms:      80,
		SetupDurationMinutes: 30,
		CreatedAt:            created,
		UpdatedAt:            created,
	}
	for _, opt := range opts {
		opt(&fixture)
	}
	return fixture
}

// WithResourceID overrides the generated resource ID.
func WithResourceID(id string) ResourceOption {
	return func(f *ResourceFixture) {
		f.ID = id
	}
}

// WithResourceName overrides the generated resource name.
func WithResourceName(name string) ResourceOption {
	return func(f *ResourceFixture) {
		f.Name = name
	}
}

// WithResourcePrice overrides the generated unit price.
func WithResourcePrice(cents int64) ResourceOption {
	return func(f *ResourceFixture) {
		f.UnitPriceCents = cents
	}
}

// WithResourceDimensions sets the physical dimensions on the fixture.
func WithResourceDimensions(width, depth, height float64) ResourceOption {
	return func(f *ResourceFixture) {
		f.WidthMeters = width
		f.DepthMeters = depth
		f.HeightMeters = height
	}
}

// WithResourceTimestamps sets both created and updated timestamps.
func WithResourceTimestamps(created, updated time.Time) ResourceOption {
	return func(f *ResourceFixture) {
		f.CreatedAt = created
		f.UpdatedAt = updated
	}
}

// Application returns the fixture as an application.Resource value.
func (f ResourceFixture) Application() application.Resource {
	return application.Resource{
		ID:                   f.ID,
		Name:                 f.Name,
		UnitPriceCents:       f.UnitPriceCents,
		WidthMeters:          f.WidthMeters,
		DepthMeters:          f.DepthMeters,
		HeightMeters:         f.HeightMeters,
		WeightKilograms:      f.WeightKilograms,
		SetupDurationMinutes: f.SetupDurationMinutes,
		CreatedAt:            f.CreatedAt,
		UpdatedAt:            f.UpdatedAt,
	}
}

// Persistence returns the fixture as a persistence.Resource value.
func (f ResourceFixture) Persistence() persistence.Resource {
	return persistence.Resource{
		ID:                   f.ID,
		Name:                 f.Name,
		UnitPriceCents:       f.UnitPriceCents,
		WidthMeters:          f.WidthMeters,
		DepthMeters:          f.DepthMeters,
		HeightMeters:         f.HeightMeters,
		WeightKilograms:      f.WeightKilograms,
		SetupDurationMinutes: f.SetupDurationMinutes,
		CreatedAt:            f.CreatedAt,
		UpdatedAt:            f.UpdatedAt,
	}
}

// Input returns the fixture as an application.ResourceInput.
func (f ResourceFixture) Input() application.ResourceInput {
	return application.ResourceInput{
		Name:                 f.Name,
		UnitPriceCents:       f.UnitPriceCents,
		WidthMeters:          f.WidthMeters,
		DepthMeters:          f.DepthMeters,
		HeightMeters:         f.HeightMeters,
		WeightKilograms:      f.WeightKilograms,
		SetupDurationMinutes: f.SetupDurationMinutes,
	}
}

// ---------------------------- Booking fixtures ---------------------------

// BookingFixture represents a deterministic booking record.
type BookingFixture struct {
	ID              string
	ClientID        string
	Assignments     []application.Assignment
	Status          application.Status
	Start           time.Time
	End             time.Time
	TotalPriceCents int64
	Notes           string
	OperatorIDs     []string
	Version         int64
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// BookingOption configures the generated booking fixture.
type BookingOption func(*BookingFixture)

// NewBookingFixture returns a deterministic booking fixture with optional overrides.
// Each fixture occupies its own day so two plain fixtures never overlap.
func NewBookingFixture(opts ...BookingOption) BookingFixture {
	idx := atomic.AddUint64(&bookingCounter, 1)
	id := fmt.Sprintf("booking-%03d", idx)
	start := referenceTime.AddDate(0, 0, int(idx)*2)
	fixture := BookingFixture{
		ID:       id,
		ClientID: fmt.Sprintf("client-%03d", idx),
		Assignments: []application.Assignment{
			{ResourceID: fmt.Sprintf("resource-%03d", idx), Quantity: 1},
		},
		Status:          application.StatusPending,
		Start:           start,
		End:             start.AddDate(0, 0, 1),
		TotalPriceCents: 10000,
		Version:         1,
		CreatedAt:       referenceTime,
		UpdatedAt:       referenceTime,
	}
	for _, opt := range opts {
		opt(&fixture)
	}
	return fixture
}

// WithBookingID overrides the booking ID.
func WithBookingID(id string) BookingOption {
	return func(f *BookingFixture) {
		f.ID = id
	}
}

// WithBookingClient sets the client ID.
func WithBookingClient(id string) BookingOption {
	return func(f *BookingFixture) {
		f.ClientID = id
	}
}

// WithBookingAssignments sets the resource assignments.
func WithBookingAssignments(assignments ...application.Assignment) BookingOption {
	return func(f *BookingFixture) {
		f.Assignments = append([]application.Assignment(nil), assignments...)
	}
}

// WithBookingResources assigns the given resource ids with quantity one each.
func WithBookingResources(resourceIDs ...string) BookingOption {
	return func(f *BookingFixture) {
		f.Assignments = f.Assignments[:0]
		for _, id := range resourceIDs {
			f.Assignments = append(f.Assignments, application.Assignment{ResourceID: id, Quantity: 1})
		}
	}
}

// WithBookingStatus sets the lifecycle status.
func WithBookingStatus(status application.Status) BookingOption {
	return func(f *BookingFixture) {
		f.Status = status
	}
}

// WithBookingDates sets the start and end dates.
func WithBookingDates(start, end time.Time) BookingOption {
	return func(f *BookingFixture) {
		f.Start = start
		f.End = end
	}
}

// WithBookingPrice sets the total price.
func WithBookingPrice(cents int64) BookingOption {
	return func(f *BookingFixture) {
		f.TotalPriceCents = cents
	}
}

// WithBookingNotes sets the notes field.
func WithBookingNotes(notes string) BookingOption {
	return func(f *BookingFixture) {
		f.Notes = notes
	}
}

// WithBookingOperators sets the handling operator ids.
func WithBookingOperators(operatorIDs ...string) BookingOption {
	return func(f *BookingFixture) {
		f.OperatorIDs = append([]string(nil), operatorIDs...)
	}
}

// WithBookingVersion sets the optimistic concurrency version.
func WithBookingVersion(version int64) BookingOption {
	return func(f *BookingFixture) {
		f.Version = version
	}
}

// WithBookingTimestamps sets both created and updated timestamps.
func WithBookingTimestamps(created, updated time.Time) BookingOption {
	return func(f *BookingFixture) {
		f.CreatedAt = created
		f.UpdatedAt = updated
	}
}

// Application returns the fixture as an application.Booking value.
func (f BookingFixture) Application() application.Booking {
	return application.Booking{
		ID:              f.ID,
		ClientID:        f.ClientID,
		Assignments:     append([]application.Assignment(nil), f.Assignments...),
		Status:          f.Status,
		Start:           f.Start,
		End:             f.End,
		TotalPriceCents: f.TotalPriceCents,
		Notes:           f.Notes,
		OperatorIDs:     append([]string(nil), f.OperatorIDs...),
		Version:         f.Version,
		CreatedAt:       f.CreatedAt,
		UpdatedAt:       f.UpdatedAt,
	}
}

// Persistence returns the fixture as a persistence.Booking value.
func (f BookingFixture) Persistence() persistence.Booking {
	assignments := make([]persistence.Assignment, 0, len(f.Assignments))
	for _, assignment := range f.Assignments {
		assignments = append(assignments, persistence.Assignment{
			ResourceID: assignment.ResourceID,
			Quantity:   assignment.Quantity,
		})
	}
	return persistence.Booking{
		ID:              f.ID,
		ClientID:        f.ClientID,
		Assignments:     assignments,
		Status:          string(f.Status),
		Start:           f.Start,
		End:             f.End,
		TotalPriceCents: f.TotalPriceCents,
		Notes:           f.Notes,
		OperatorIDs:     append([]string(nil), f.OperatorIDs...),
		Version:         f.Version,
		CreatedAt:       f.CreatedAt,
		UpdatedAt:       f.UpdatedAt,
	}
}

// Input returns the fixture as an application.BookingInput.
func (f BookingFixture) Input() application.BookingInput {
	return application.BookingInput{
		ClientID:    f.ClientID,
		Assignments: append([]application.Assignment(nil), f.Assignments...),
		Start:       f.Start,
		End:         f.End,
		Notes:       f.Notes,
		OperatorIDs: append([]string(nil), f.OperatorIDs...),
	}
}

// --------------------------- Operator fixtures ---------------------------

// OperatorFixture represents a deterministic operator account record.
type OperatorFixture struct {
	ID             string
	Email          string
	DisplayName    string
	PasswordHash   string
	IsAdmin        bool
	Disabled       bool
	FailedAttempts int
	LastFailedAt   *time.Time
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// OperatorOption configures the generated operator fixture.
type OperatorOption func(*OperatorFixture)

// NewOperatorFixture returns a deterministic operator fixture with optional overrides.
func NewOperatorFixture(opts ...OperatorOption) OperatorFixture {
	idx := atomic.AddUint64(&operatorCounter, 1)
	id := fmt.Sprintf("operator-%03d", idx)
	created := referenceTime.Add(time.Duration(idx) * time.Minute)
	fixture := OperatorFixture{
		ID:           id,
		Email:        fmt.Sprintf("%s@example.com", id),
		DisplayName:  fmt.Sprintf("Operator %03d", idx),
		PasswordHash: fmt.Sprintf("hash-%03d", idx),
		CreatedAt:    created,
		UpdatedAt:    created,
	}
	for _, opt := range opts {
		opt(&fixture)
	}
	return fixture
}

// WithOperatorID overrides the generated operator ID.
func WithOperatorID(id string) OperatorOption {
	return func(f *OperatorFixture) {
		f.ID = id
	}
}

// WithOperatorEmail overrides the generated email address.
func WithOperatorEmail(email string) OperatorOption {
	return func(f *OperatorFixture) {
		f.Email = email
	}
}

// WithOperatorPasswordHash overrides the generated password hash.
func WithOperatorPasswordHash(hash string) OperatorOption {
	return func(f *OperatorFixture) {
		f.PasswordHash = hash
	}
}

// WithOperatorAdmin sets the admin flag on the generated fixture.
func WithOperatorAdmin(isAdmin bool) OperatorOption {
	return func(f *OperatorFixture) {
		f.IsAdmin = isAdmin
	}
}

// WithOperatorDisabled marks the account disabled.
func WithOperatorDisabled() OperatorOption {
	return func(f *OperatorFixture) {
		f.Disabled = true
	}
}

// WithOperatorFailedAttempts sets the lockout counters.
func WithOperatorFailedAttempts(attempts int, lastFailedAt time.Time) OperatorOption {
	return func(f *OperatorFixture) {
		f.FailedAttempts = attempts
		at := lastFailedAt
		f.LastFailedAt = &at
	}
}

// Application returns the fixture as an application.Operator value.
func (f OperatorFixture) Application() application.Operator {
	return application.Operator{
		ID:          f.ID,
		Email:       f.Email,
		DisplayName: f.DisplayName,
		IsAdmin:     f.IsAdmin,
		CreatedAt:   f.CreatedAt,
		UpdatedAt:   f.UpdatedAt,
	}
}

// Credentials returns the fixture as application.OperatorCredentials.
func (f OperatorFixture) Credentials() application.OperatorCredentials {
	return application.OperatorCredentials{
		Operator:       f.Application(),
		PasswordHash:   f.PasswordHash,
		Disabled:       f.Disabled,
		FailedAttempts: f.FailedAttempts,
		LastFailedAt:   cloneTime(f.LastFailedAt),
	}
}

// Principal returns an application.Principal derived from the fixture.
func (f OperatorFixture) Principal() application.Principal {
	return application.Principal{OperatorID: f.ID, IsAdmin: f.IsAdmin}
}

// Persistence returns the fixture as a persistence.Operator value.
func (f OperatorFixture) Persistence() persistence.Operator {
	return persistence.Operator{
		ID:             f.ID,
		Email:          f.Email,
		DisplayName:    f.DisplayName,
		IsAdmin:        f.IsAdmin,
		PasswordHash:   f.PasswordHash,
		Disabled:       f.Disabled,
		FailedAttempts: f.FailedAttempts,
		LastFailedAt:   cloneTime(f.LastFailedAt),
		CreatedAt:      f.CreatedAt,
		UpdatedAt:      f.UpdatedAt,
	}
}

// ---------------------------- Session fixtures ---------------------------

// SessionFixture represents a deterministic session record.
type SessionFixture struct {
	ID         string
	OperatorID string
	Token      string
	ExpiresAt  time.Time
	CreatedAt  time.Time
	UpdatedAt  time.Time
	RevokedAt  *time.Time
}

// SessionOption configures the generated session fixture.
type SessionOption func(*SessionFixture)

// NewSessionFixture returns a deterministic session fixture with optional overrides.
func NewSessionFixture(opts ...SessionOption) SessionFixture {
	idx := atomic.AddUint64(&sessionCounter, 1)
	id := fmt.Sprintf("session-%03d", idx)
	fixture := SessionFixture{
		ID:         id,
		OperatorID: fmt.Sprintf("operator-%03d", idx),
		Token:      fmt.Sprintf("token-%03d", idx),
		ExpiresAt:  referenceTime.Add(8 * time.Hour),
		CreatedAt:  referenceTime,
		UpdatedAt:  referenceTime,
	}
	for _, opt := range opts {
		opt(&fixture)
	}
	return fixture
}

// WithSessionID overrides the session ID.
func WithSessionID(id string) SessionOption {
	return func(f *SessionFixture) {
		f.ID = id
	}
}

// WithSessionOperatorID sets the operator ID.
func WithSessionOperatorID(id string) SessionOption {
	return func(f *SessionFixture) {
		f.OperatorID = id
	}
}

// WithSessionToken overrides the token value.
func WithSessionToken(token string) SessionOption {
	return func(f *SessionFixture) {
		f.Token = token
	}
}

// WithSessionExpiresAt sets the expiration timestamp.
func WithSessionExpiresAt(t time.Time) SessionOption {
	return func(f *SessionFixture) {
		f.ExpiresAt = t
	}
}

// WithSessionRevokedAt sets the optional revoked timestamp.
func WithSessionRevokedAt(t time.Time) SessionOption {
	return func(f *SessionFixture) {
		revoked := t
		f.RevokedAt = &revoked
	}
}

// Application returns the fixture as an application.Session value.
func (f SessionFixture) Application() application.Session {
	return application.Session{
		ID:         f.ID,
		OperatorID: f.OperatorID,
		Token:      f.Token,
		ExpiresAt:  f.ExpiresAt,
		CreatedAt:  f.CreatedAt,
		UpdatedAt:  f.UpdatedAt,
		RevokedAt:  cloneTime(f.RevokedAt),
	}
}

// Persistence returns the fixture as a persistence.Session value.
func (f SessionFixture) Persistence() persistence.Session {
	return persistence.Session{
		ID:         f.ID,
		OperatorID: f.OperatorID,
		Token:      f.Token,
		ExpiresAt:  f.ExpiresAt,
		CreatedAt:  f.CreatedAt,
		UpdatedAt:  f.UpdatedAt,
		RevokedAt:  cloneTime(f.RevokedAt),
	}
}

// helper to deep copy optional timestamps.
func cloneTime(src *time.Time) *time.Time {
	if src == nil {
		return nil
	}
	value := *src
	return &value
}
