package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/example/rental-booking/internal/conflict"
	"github.com/example/rental-booking/internal/persistence"
)

// BookingRepository captures the persistence interactions needed by the service.
type BookingRepository interface {
	CreateBooking(ctx context.Context, booking Booking) (Booking, error)
	GetBooking(ctx context.Context, id string) (Booking, error)
	UpdateBooking(ctx context.Context, booking Booking) (Booking, error)
	DeleteBooking(ctx context.Context, id string) error
	ListBookings(ctx context.Context, filter BookingRepositoryFilter) ([]Booking, error)
}

// BookingRepositoryFilter narrows queries issued to the booking repository.
type BookingRepositoryFilter struct {
	ClientID    string
	Statuses    []Status
	ResourceID  string
	StartsAfter *time.Time
	EndsBefore  *time.Time
}

// ResourceCatalog exposes the read-only catalog lookups the booking core needs.
type ResourceCatalog interface {
	GetResource(ctx context.Context, id string) (Resource, error)
	ListResources(ctx context.Context) ([]Resource, error)
}

// BookingService is the booking lifecycle controller. Every mutation routes
// through the conflict engine and the pricing aggregator before committing.
//
// Mutations serialize on a writer mutex so that the availability check and the
// subsequent write form one atomic unit against the booking store: two
// operators can never both observe "available" and then both commit. Reads
// run without the lock against a consistent repository snapshot.
type BookingService struct {
	bookings    BookingRepository
	resources   ResourceCatalog
	cache       *availabilityCache
	idGenerator func() string
	now         func() time.Time
	logger      *slog.Logger

	writeMu       sync.Mutex
	commitRetries int
}

// NewBookingService wires dependencies for booking operations.
func NewBookingService(bookings BookingRepository, resources ResourceCatalog, idGenerator func() string, now func() time.Time) *BookingService {
	return NewBookingServiceWithLogger(bookings, resources, idGenerator, now, nil)
}

// NewBookingServiceWithLogger constructs a BookingService with a specified logger.
func NewBookingServiceWithLogger(bookings BookingRepository, resources ResourceCatalog, idGenerator func() string, now func() time.Time, logger *slog.Logger) *BookingService {
	if idGenerator == nil {
		idGenerator = func() string { return "" }
	}
	if now == nil {
		now = time.Now
	}
	return &BookingService{
		bookings:      bookings,
		resources:     resources,
		cache:         newAvailabilityCache(0, 0, now),
		idGenerator:   idGenerator,
		now:           now,
		logger:        defaultLogger(logger),
		commitRetries: 3,
	}
}

// SetAvailabilityCacheTTL reconfigures the read-path cache. A zero or negative
// ttl keeps the built-in default.
func (s *BookingService) SetAvailabilityCacheTTL(ttl time.Duration, maxEntries int) {
	if s == nil {
		return
	}
	s.cache = newAvailabilityCache(ttl, maxEntries, s.now)
}

func (s *BookingService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "BookingService", operation, attrs...)
}

// CheckAvailability reports whether the candidate assignment set can hold the
// requested interval. It never mutates state and may run concurrently with
// other reads; results are cached briefly and invalidated on every commit.
func (s *BookingService) CheckAvailability(ctx context.Context, query AvailabilityQuery) (AvailabilityResult, error) {
	if s == nil || s.bookings == nil {
		return AvailabilityResult{}, fmt.Errorf("booking repository not configured")
	}

	vErr := &ValidationError{}
	validateInterval(query.Start, query.End, vErr)
	if vErr.HasErrors() {
		return AvailabilityResult{}, vErr
	}

	ids := uniqueStrings(query.ResourceIDs)
	if len(ids) == 0 {
		return AvailabilityResult{Available: true}, nil
	}

	if err := s.ensureResourcesExist(ctx, ids); err != nil {
		return AvailabilityResult{}, err
	}

	key := buildAvailabilityCacheKey(query)
	if cached, ok := s.cache.Get(key); ok {
		return cached, nil
	}

	generation := s.cache.Generation()
	conflicts, err := s.collectConflicts(ctx, ids, query.Start, query.End, query.ExcludeBookingID)
	if err != nil {
		return AvailabilityResult{}, err
	}

	result := AvailabilityResult{Available: len(conflicts) == 0, Conflicts: conflicts}
	s.cache.Store(key, result, generation)
	return result, nil
}

// CreateBooking validates the request, runs the conflict check and commits the
// new booking as one atomic unit. New bookings start in StatusPending.
func (s *BookingService) CreateBooking(ctx context.Context, params CreateBookingParams) (Booking, error) {
	if s == nil {
		return Booking{}, fmt.Errorf("BookingService is nil")
	}
	if s.bookings == nil {
		return Booking{}, fmt.Errorf("booking repository not configured")
	}

	input := params.Input
	logger := s.loggerWith(ctx, "CreateBooking", "client_id", input.ClientID)

	vErr := &ValidationError{}
	if strings.TrimSpace(input.ClientID) == "" {
		vErr.add("client_id", "client is required")
	}
	validateInterval(input.Start, input.End, vErr)
	assignments := normalizeAssignments(input.Assignments, vErr)
	if vErr.HasErrors() {
		return Booking{}, vErr
	}

	if err := s.ensureResourcesExist(ctx, assignmentResourceIDs(assignments)); err != nil {
		return Booking{}, err
	}

	total, err := RecomputeTotal(assignments, s.resourceLookup(ctx))
	if err != nil {
		return Booking{}, err
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	var persisted Booking
	err = s.commitWithRetry(ctx, func() error {
		conflicts, err := s.collectConflicts(ctx, assignmentResourceIDs(assignments), input.Start, input.End, "")
		if err != nil {
			return err
		}
		if len(conflicts) > 0 {
			return &ConflictError{Conflicts: conflicts}
		}

		createdAt := s.now()
		booking := Booking{
			ID:              s.idGenerator(),
			ClientID:        strings.TrimSpace(input.ClientID),
			Assignments:     assignments,
			Status:          StatusPending,
			Start:           input.Start,
			End:             input.End,
			TotalPriceCents: total,
			Notes:           input.Notes,
			OperatorIDs:     sortStrings(uniqueStrings(input.OperatorIDs)),
			CreatedAt:       createdAt,
			UpdatedAt:       createdAt,
		}

		persisted, err = s.bookings.CreateBooking(ctx, booking)
		if err != nil {
			return mapBookingRepoError(err)
		}
		return nil
	})
	if err != nil {
		logger.ErrorContext(ctx, "create booking failed", "error", err, "error_kind", ErrorKind(err))
		return Booking{}, err
	}

	s.cache.Invalidate()
	logger.With("booking_id", persisted.ID).InfoContext(ctx, "booking created")
	return persisted, nil
}

// UpdateBooking merges the patch over the stored booking, re-runs the full
// conflict check against the merged state (excluding the booking's own prior
// holds) and commits atomically. On any failure the stored booking is left in
// its prior committed state.
func (s *BookingService) UpdateBooking(ctx context.Context, params UpdateBookingParams) (Booking, error) {
	if s == nil {
		return Booking{}, fmt.Errorf("BookingService is nil")
	}
	if s.bookings == nil {
		return Booking{}, fmt.Errorf("booking repository not configured")
	}

	logger := s.loggerWith(ctx, "UpdateBooking", "booking_id", params.BookingID)

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	var persisted Booking
	err := s.commitWithRetry(ctx, func() error {
		existing, err := s.bookings.GetBooking(ctx, params.BookingID)
		if err != nil {
			return mapBookingRepoError(err)
		}

		merged, err := s.mergePatch(existing, params.Patch)
		if err != nil {
			return err
		}

		if err := s.ensureResourcesExist(ctx, assignmentResourceIDs(merged.Assignments)); err != nil {
			return err
		}

		// Transitioning to cancelled frees holds; freeing cannot conflict.
		if merged.Status.IsActive() {
			conflicts, err := s.collectConflicts(ctx, assignmentResourceIDs(merged.Assignments), merged.Start, merged.End, existing.ID)
			if err != nil {
				return err
			}
			if len(conflicts) > 0 {
				return &ConflictError{Conflicts: conflicts}
			}
		}

		total, err := RecomputeTotal(merged.Assignments, s.resourceLookup(ctx))
		if err != nil {
			return err
		}
		merged.TotalPriceCents = total
		merged.UpdatedAt = s.now()

		persisted, err = s.bookings.UpdateBooking(ctx, merged)
		if err != nil {
			return mapBookingRepoError(err)
		}
		return nil
	})
	if err != nil {
		logger.ErrorContext(ctx, "update booking failed", "error", err, "error_kind", ErrorKind(err))
		return Booking{}, err
	}

	s.cache.Invalidate()
	logger.InfoContext(ctx, "booking updated")
	return persisted, nil
}

// CancelBooking transitions the booking to StatusCancelled, releasing its
// resource holds. No conflict check runs: freeing resources cannot itself
// create a conflict. Cancelling an already cancelled booking is a no-op success.
func (s *BookingService) CancelBooking(ctx context.Context, principal Principal, bookingID string) (Booking, error) {
	if s == nil {
		return Booking{}, fmt.Errorf("BookingService is nil")
	}
	if s.bookings == nil {
		return Booking{}, fmt.Errorf("booking repository not configured")
	}

	logger := s.loggerWith(ctx, "CancelBooking", "booking_id", bookingID)

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	var persisted Booking
	err := s.commitWithRetry(ctx, func() error {
		existing, err := s.bookings.GetBooking(ctx, bookingID)
		if err != nil {
			return mapBookingRepoError(err)
		}
		if existing.Status == StatusCancelled {
			persisted = existing
			return nil
		}

		existing.Status = StatusCancelled
		existing.UpdatedAt = s.now()

		persisted, err = s.bookings.UpdateBooking(ctx, existing)
		if err != nil {
			return mapBookingRepoError(err)
		}
		return nil
	})
	if err != nil {
		logger.ErrorContext(ctx, "cancel booking failed", "error", err, "error_kind", ErrorKind(err))
		return Booking{}, err
	}

	s.cache.Invalidate()
	logger.InfoContext(ctx, "booking cancelled")
	return persisted, nil
}

// DeleteBooking removes the booking permanently.
func (s *BookingService) DeleteBooking(ctx context.Context, principal Principal, bookingID string) error {
	if s == nil {
		return fmt.Errorf("BookingService is nil")
	}
	if s.bookings == nil {
		return fmt.Errorf("booking repository not configured")
	}

	logger := s.loggerWith(ctx, "DeleteBooking", "booking_id", bookingID)

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if _, err := s.bookings.GetBooking(ctx, bookingID); err != nil {
		return mapBookingRepoError(err)
	}
	if err := s.bookings.DeleteBooking(ctx, bookingID); err != nil {
		logger.ErrorContext(ctx, "delete booking failed", "error", err, "error_kind", ErrorKind(err))
		return mapBookingRepoError(err)
	}

	s.cache.Invalidate()
	logger.InfoContext(ctx, "booking deleted")
	return nil
}

// GetBooking retrieves a single booking by id.
func (s *BookingService) GetBooking(ctx context.Context, bookingID string) (Booking, error) {
	if s == nil || s.bookings == nil {
		return Booking{}, fmt.Errorf("booking repository not configured")
	}
	booking, err := s.bookings.GetBooking(ctx, bookingID)
	if err != nil {
		return Booking{}, mapBookingRepoError(err)
	}
	return booking, nil
}

// ListBookings enumerates bookings matching the filter, ordered by start date
// and then id for stable output.
func (s *BookingService) ListBookings(ctx context.Context, params ListBookingsParams) ([]Booking, error) {
	if s == nil || s.bookings == nil {
		return nil, fmt.Errorf("booking repository not configured")
	}

	bookings, err := s.bookings.ListBookings(ctx, BookingRepositoryFilter{
		ClientID:    params.ClientID,
		Statuses:    params.Statuses,
		ResourceID:  params.ResourceID,
		StartsAfter: params.StartsAfter,
		EndsBefore:  params.EndsBefore,
	})
	if err != nil {
		if isNotFoundError(err) {
			return nil, nil
		}
		return nil, mapBookingRepoError(err)
	}

	ordered := make([]Booking, len(bookings))
	copy(ordered, bookings)
	sort.SliceStable(ordered, func(i, j int) bool {
		if ordered[i].Start.Equal(ordered[j].Start) {
			return ordered[i].ID < ordered[j].ID
		}
		return ordered[i].Start.Before(ordered[j].Start)
	})
	return ordered, nil
}

// commitWithRetry re-runs the whole check-and-commit closure when the
// repository reports a lost optimistic write. Availability may have changed
// in between, so the closure always re-checks from scratch.
func (s *BookingService) commitWithRetry(ctx context.Context, attempt func() error) error {
	retries := s.commitRetries
	if retries < 1 {
		retries = 1
	}
	var err error
	for i := 0; i < retries; i++ {
		err = attempt()
		if !errors.Is(err, ErrConcurrencyConflict) {
			return err
		}
	}
	return ErrConcurrencyConflict
}

func (s *BookingService) mergePatch(existing Booking, patch BookingPatch) (Booking, error) {
	merged := existing

	if patch.Status != nil && *patch.Status != existing.Status {
		if !patch.Status.IsValid() {
			vErr := &ValidationError{}
			vErr.add("status", "unknown status")
			return Booking{}, vErr
		}
		if !existing.Status.CanTransitionTo(*patch.Status) {
			return Booking{}, &InvalidTransitionError{From: existing.Status, To: *patch.Status}
		}
		merged.Status = *patch.Status
	}

	vErr := &ValidationError{}
	mutatesReservation := patch.Assignments != nil || patch.Start != nil || patch.End != nil
	if existing.Status == StatusCancelled && mutatesReservation {
		vErr.add("status", "cancelled bookings cannot be modified")
	}

	// Field issues are collected separately and merged so a single failed
	// update reports every problem at once.
	fieldErr := &ValidationError{}
	if patch.Assignments != nil {
		merged.Assignments = normalizeAssignments(*patch.Assignments, fieldErr)
	}
	if patch.Start != nil {
		merged.Start = *patch.Start
	}
	if patch.End != nil {
		merged.End = *patch.End
	}
	if patch.Notes != nil {
		merged.Notes = *patch.Notes
	}
	if patch.OperatorIDs != nil {
		merged.OperatorIDs = sortStrings(uniqueStrings(*patch.OperatorIDs))
	}
	validateInterval(merged.Start, merged.End, fieldErr)
	vErr.merge(fieldErr)
	if vErr.HasErrors() {
		return Booking{}, vErr
	}

	return merged, nil
}

// collectConflicts loads every active booking holding one of the requested
// resources and runs the conflict engine over their holds.
func (s *BookingService) collectConflicts(ctx context.Context, resourceIDs []string, start, end time.Time, excludeBookingID string) ([]ResourceConflict, error) {
	if len(resourceIDs) == 0 {
		return nil, nil
	}

	bookings, err := s.bookings.ListBookings(ctx, BookingRepositoryFilter{Statuses: activeStatuses()})
	if err != nil {
		if isNotFoundError(err) {
			return nil, nil
		}
		return nil, mapBookingRepoError(err)
	}

	holds := make([]conflict.Hold, 0, len(bookings))
	for _, booking := range bookings {
		if !booking.Status.IsActive() {
			continue
		}
		for _, assignment := range booking.Assignments {
			holds = append(holds, conflict.Hold{
				BookingID:  booking.ID,
				ResourceID: assignment.ResourceID,
				Start:      booking.Start,
				End:        booking.End,
			})
		}
	}

	detected := conflict.Detect(holds, conflict.Candidate{
		ResourceIDs:      resourceIDs,
		Start:            start,
		End:              end,
		ExcludeBookingID: excludeBookingID,
	})
	if len(detected) == 0 {
		return nil, nil
	}

	conflicts := make([]ResourceConflict, 0, len(detected))
	for _, c := range detected {
		conflicts = append(conflicts, ResourceConflict{ResourceID: c.ResourceID, BookingID: c.BookingID})
	}
	return conflicts, nil
}

func (s *BookingService) ensureResourcesExist(ctx context.Context, ids []string) error {
	if s.resources == nil {
		return nil
	}
	for _, id := range ids {
		if _, err := s.resources.GetResource(ctx, id); err != nil {
			if isNotFoundError(err) {
				return &ResourceNotFoundError{ResourceID: id}
			}
			return err
		}
	}
	return nil
}

func (s *BookingService) resourceLookup(ctx context.Context) ResourceLookup {
	return func(resourceID string) (Resource, error) {
		if s.resources == nil {
			return Resource{}, &ResourceNotFoundError{ResourceID: resourceID}
		}
		resource, err := s.resources.GetResource(ctx, resourceID)
		if err != nil {
			if isNotFoundError(err) {
				return Resource{}, &ResourceNotFoundError{ResourceID: resourceID}
			}
			return Resource{}, err
		}
		return resource, nil
	}
}

// normalizeAssignments merges duplicate resource lines by summing quantity,
// defaults quantity to 1 and records validation issues for malformed lines.
func normalizeAssignments(assignments []Assignment, vErr *ValidationError) []Assignment {
	if len(assignments) == 0 {
		return nil
	}

	index := make(map[string]int, len(assignments))
	out := make([]Assignment, 0, len(assignments))
	for _, assignment := range assignments {
		id := strings.TrimSpace(assignment.ResourceID)
		if id == "" {
			vErr.add("assignments", "resource id is required")
			continue
		}
		quantity := assignment.Quantity
		if quantity == 0 {
			quantity = 1
		}
		if quantity < 0 {
			vErr.add("assignments", "quantity must be positive")
			continue
		}
		if at, ok := index[id]; ok {
			out[at].Quantity += quantity
			continue
		}
		index[id] = len(out)
		out = append(out, Assignment{ResourceID: id, Quantity: quantity})
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func assignmentResourceIDs(assignments []Assignment) []string {
	ids := make([]string, 0, len(assignments))
	for _, assignment := range assignments {
		ids = append(ids, assignment.ResourceID)
	}
	return ids
}

func validateInterval(start, end time.Time, vErr *ValidationError) {
	if start.IsZero() {
		vErr.add("start", "start date is required")
	}
	if end.IsZero() {
		vErr.add("end", "end date is required")
	}
	if !start.IsZero() && !end.IsZero() && start.After(end) {
		vErr.add("dates", "start must not be after end")
	}
}

func uniqueStrings(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	result := make([]string, 0, len(values))
	for _, value := range values {
		if value == "" {
			continue
		}
		if _, ok := seen[value]; ok {
			continue
		}
		seen[value] = struct{}{}
		result = append(result, value)
	}
	return result
}

func sortStrings(values []string) []string {
	out := make([]string, len(values))
	copy(out, values)
	sort.Strings(out)
	return out
}

func mapBookingRepoError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrNotFound) {
		return ErrNotFound
	}
	if errors.Is(err, persistence.ErrNotFound) {
		return ErrNotFound
	}
	if errors.Is(err, persistence.ErrDuplicate) {
		return ErrAlreadyExists
	}
	if errors.Is(err, persistence.ErrVersionMismatch) {
		return ErrConcurrencyConflict
	}
	if errors.Is(err, persistence.ErrConstraintViolation) {
		vErr := &ValidationError{}
		vErr.add("dates", "start must not be after end")
		return vErr
	}
	if errors.Is(err, persistence.ErrForeignKeyViolation) {
		vErr := &ValidationError{}
		vErr.add("assignments", "related records are missing")
		return vErr
	}
	return err
}

func isNotFoundError(err error) bool {
	return errors.Is(err, ErrNotFound) || errors.Is(err, persistence.ErrNotFound)
}
