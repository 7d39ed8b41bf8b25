// Package memory provides a map-backed implementation of the persistence
// repositories. It backs the test harness and DSN-less local runs; the
// semantics mirror the SQLite implementation, including the optimistic
// version guard on booking updates.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/example/rental-booking/internal/persistence"
)

// Store holds every repository's state behind one lock so cross-entity reads
// observe a consistent snapshot.
type Store struct {
	mu        sync.RWMutex
	resources map[string]persistence.Resource
	bookings  map[string]persistence.Booking
	operators map[string]persistence.Operator
	sessions  map[string]persistence.Session
}

// NewStore returns an empty in-memory store.
func NewStore() *Store {
	return &Store{
		resources: make(map[string]persistence.Resource),
		bookings:  make(map[string]persistence.Booking),
		operators: make(map[string]persistence.Operator),
		sessions:  make(map[string]persistence.Session),
	}
}

// --- ResourceRepository implementation ---

// CreateResource stores a new catalog entry.
func (s *Store) CreateResource(ctx context.Context, resource persistence.Resource) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.resources[resource.ID]; ok {
		return persistence.ErrDuplicate
	}
	if resource.UnitPriceCents < 0 {
		return persistence.ErrConstraintViolation
	}
	s.resources[resource.ID] = resource
	return nil
}

// UpdateResource updates an existing catalog entry.
func (s *Store) UpdateResource(ctx context.Context, resource persistence.Resource) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.resources[resource.ID]; !ok {
		return persistence.ErrNotFound
	}
	if resource.UnitPriceCents < 0 {
		return persistence.ErrConstraintViolation
	}
	s.resources[resource.ID] = resource
	return nil
}

// GetResource retrieves a catalog entry by id.
func (s *Store) GetResource(ctx context.Context, id string) (persistence.Resource, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	resource, ok := s.resources[id]
	if !ok {
		return persistence.Resource{}, persistence.ErrNotFound
	}
	return resource, nil
}

// ListResources returns all catalog entries ordered by name and then id.
func (s *Store) ListResources(ctx context.Context) ([]persistence.Resource, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	resources := make([]persistence.Resource, 0, len(s.resources))
	for _, resource := range s.resources {
		resources = append(resources, resource)
	}
	sort.Slice(resources, func(i, j int) bool {
		if resources[i].Name == resources[j].Name {
			return resources[i].ID < resources[j].ID
		}
		return resources[i].Name < resources[j].Name
	})
	return resources, nil
}

// DeleteResource removes a catalog entry unless bookings still reference it.
func (s *Store) DeleteResource(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.resources[id]; !ok {
		return persistence.ErrNotFound
	}
	for _, booking := range s.bookings {
		for _, assignment := range booking.Assignments {
			if assignment.ResourceID == id {
				return persistence.ErrForeignKeyViolation
			}
		}
	}
	delete(s.resources, id)
	return nil
}

// --- BookingRepository implementation ---

// CreateBooking stores a new booking with version 1.
func (s *Store) CreateBooking(ctx context.Context, booking persistence.Booking) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.bookings[booking.ID]; ok {
		return persistence.ErrDuplicate
	}
	if booking.Start.After(booking.End) {
		return persistence.ErrConstraintViolation
	}
	for _, assignment := range booking.Assignments {
		if _, ok := s.resources[assignment.ResourceID]; !ok {
			return persistence.ErrForeignKeyViolation
		}
	}
	booking.Version = 1
	s.bookings[booking.ID] = cloneBooking(booking)
	return nil
}

// UpdateBooking rewrites a booking when the caller holds the current version.
func (s *Store) UpdateBooking(ctx context.Context, booking persistence.Booking) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.bookings[booking.ID]
	if !ok {
		return persistence.ErrNotFound
	}
	if existing.Version != booking.Version {
		return persistence.ErrVersionMismatch
	}
	if booking.Start.After(booking.End) {
		return persistence.ErrConstraintViolation
	}
	for _, assignment := range booking.Assignments {
		if _, ok := s.resources[assignment.ResourceID]; !ok {
			return persistence.ErrForeignKeyViolation
		}
	}
	booking.Version = existing.Version + 1
	s.bookings[booking.ID] = cloneBooking(booking)
	return nil
}

// GetBooking retrieves a booking by id.
func (s *Store) GetBooking(ctx context.Context, id string) (persistence.Booking, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	booking, ok := s.bookings[id]
	if !ok {
		return persistence.Booking{}, persistence.ErrNotFound
	}
	return cloneBooking(booking), nil
}

// ListBookings returns bookings matching the filter ordered by start date and
// then id.
func (s *Store) ListBookings(ctx context.Context, filter persistence.BookingFilter) ([]persistence.Booking, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	bookings := make([]persistence.Booking, 0, len(s.bookings))
	for _, booking := range s.bookings {
		if !matchesFilter(booking, filter) {
			continue
		}
		bookings = append(bookings, cloneBooking(booking))
	}
	sort.Slice(bookings, func(i, j int) bool {
		if bookings[i].Start.Equal(bookings[j].Start) {
			return bookings[i].ID < bookings[j].ID
		}
		return bookings[i].Start.Before(bookings[j].Start)
	})
	return bookings, nil
}

// DeleteBooking removes a booking by id.
func (s *Store) DeleteBooking(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.bookings[id]; !ok {
		return persistence.ErrNotFound
	}
	delete(s.bookings, id)
	return nil
}

// --- OperatorRepository implementation ---

// CreateOperator stores a new operator account.
func (s *Store) CreateOperator(ctx context.Context, operator persistence.Operator) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.operators[operator.ID]; ok {
		return persistence.ErrDuplicate
	}
	lower := strings.ToLower(operator.Email)
	for _, existing := range s.operators {
		if strings.ToLower(existing.Email) == lower {
			return persistence.ErrDuplicate
		}
	}
	operator.Email = lower
	s.operators[operator.ID] = operator
	return nil
}

// UpdateOperator rewrites an existing operator account.
func (s *Store) UpdateOperator(ctx context.Context, operator persistence.Operator) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.operators[operator.ID]; !ok {
		return persistence.ErrNotFound
	}
	operator.Email = strings.ToLower(operator.Email)
	s.operators[operator.ID] = operator
	return nil
}

// GetOperator retrieves an operator by id.
func (s *Store) GetOperator(ctx context.Context, id string) (persistence.Operator, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	operator, ok := s.operators[id]
	if !ok {
		return persistence.Operator{}, persistence.ErrNotFound
	}
	return operator, nil
}

// GetOperatorByEmail retrieves an operator by email address.
func (s *Store) GetOperatorByEmail(ctx context.Context, email string) (persistence.Operator, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	lower := strings.ToLower(strings.TrimSpace(email))
	for _, operator := range s.operators {
		if strings.ToLower(operator.Email) == lower {
			return operator, nil
		}
	}
	return persistence.Operator{}, persistence.ErrNotFound
}

// CountOperators reports the number of operator accounts.
func (s *Store) CountOperators(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.operators), nil
}

// --- SessionRepository implementation ---

// CreateSession stores a new session keyed by token.
func (s *Store) CreateSession(ctx context.Context, session persistence.Session) (persistence.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.sessions[session.Token]; ok {
		return persistence.Session{}, persistence.ErrDuplicate
	}
	s.sessions[session.Token] = session
	return session, nil
}

// GetSession retrieves a session by token.
func (s *Store) GetSession(ctx context.Context, token string) (persistence.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	session, ok := s.sessions[token]
	if !ok {
		return persistence.Session{}, persistence.ErrNotFound
	}
	return session, nil
}

// UpdateSession rewrites a session, reindexing when the token rotated.
func (s *Store) UpdateSession(ctx context.Context, session persistence.Session) (persistence.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for token, existing := range s.sessions {
		if existing.ID == session.ID {
			delete(s.sessions, token)
			s.sessions[session.Token] = session
			return session, nil
		}
	}
	return persistence.Session{}, persistence.ErrNotFound
}

// RevokeSession marks a session revoked at the provided instant.
func (s *Store) RevokeSession(ctx context.Context, token string, revokedAt time.Time) (persistence.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, ok := s.sessions[token]
	if !ok {
		return persistence.Session{}, persistence.ErrNotFound
	}
	if session.RevokedAt == nil {
		at := revokedAt
		session.RevokedAt = &at
		session.UpdatedAt = revokedAt
		s.sessions[token] = session
	}
	return session, nil
}

// DeleteExpiredSessions prunes sessions whose expiry has passed.
func (s *Store) DeleteExpiredSessions(ctx context.Context, reference time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for token, session := range s.sessions {
		if session.ExpiresAt.Before(reference) {
			delete(s.sessions, token)
		}
	}
	return nil
}

func matchesFilter(booking persistence.Booking, filter persistence.BookingFilter) bool {
	if filter.ClientID != "" && booking.ClientID != filter.ClientID {
		return false
	}
	if len(filter.Statuses) > 0 {
		found := false
		for _, status := range filter.Statuses {
			if booking.Status == status {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if filter.ResourceID != "" {
		found := false
		for _, assignment := range booking.Assignments {
			if assignment.ResourceID == filter.ResourceID {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if filter.StartsAfter != nil && booking.End.Before(*filter.StartsAfter) {
		return false
	}
	if filter.EndsBefore != nil && booking.Start.After(*filter.EndsBefore) {
		return false
	}
	return true
}

func cloneBooking(booking persistence.Booking) persistence.Booking {
	out := booking
	if len(booking.Assignments) > 0 {
		out.Assignments = make([]persistence.Assignment, len(booking.Assignments))
		copy(out.Assignments, booking.Assignments)
	}
	if len(booking.OperatorIDs) > 0 {
		out.OperatorIDs = make([]string, len(booking.OperatorIDs))
		copy(out.OperatorIDs, booking.OperatorIDs)
	}
	return out
}
