package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/example/rental-booking/internal/application"
)

type bookingService interface {
	CreateBooking(ctx context.Context, params application.CreateBookingParams) (application.Booking, error)
	UpdateBooking(ctx context.Context, params application.UpdateBookingParams) (application.Booking, error)
	CancelBooking(ctx context.Context, principal application.Principal, bookingID string) (application.Booking, error)
	DeleteBooking(ctx context.Context, principal application.Principal, bookingID string) error
	GetBooking(ctx context.Context, bookingID string) (application.Booking, error)
	ListBookings(ctx context.Context, params application.ListBookingsParams) ([]application.Booking, error)
	CheckAvailability(ctx context.Context, query application.AvailabilityQuery) (application.AvailabilityResult, error)
}

type BookingHandler struct {
	service   bookingService
	responder responder
	logger    *slog.Logger
}

func NewBookingHandler(service bookingService, logger *slog.Logger) *BookingHandler {
	base := defaultLogger(logger)
	return &BookingHandler{service: service, responder: newResponder(base), logger: base}
}

func (h *BookingHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	if h == nil {
		return slog.Default()
	}
	return handlerLogger(ctx, h.logger, "BookingHandler", operation, attrs...)
}

func (h *BookingHandler) Create(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())

	var req bookingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log(r.Context(), "Create", "principal_id", principal.OperatorID, "error_kind", "bad_request").ErrorContext(r.Context(), "failed to decode booking request", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	logger := h.log(r.Context(), "Create", "principal_id", principal.OperatorID)

	booking, err := h.service.CreateBooking(r.Context(), application.CreateBookingParams{
		Principal: principal,
		Input:     req.toInput(),
	})
	if err != nil {
		logger.ErrorContext(r.Context(), "booking creation failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.With("booking_id", booking.ID).InfoContext(r.Context(), "booking created")
	h.responder.writeJSON(r.Context(), w, http.StatusCreated, bookingResponse{Booking: toBookingDTO(booking)})
}

func (h *BookingHandler) Update(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	bookingID, ok := BookingIDFromContext(r.Context())
	if !ok || strings.TrimSpace(bookingID) == "" {
		h.log(r.Context(), "Update", "error_kind", "bad_request").ErrorContext(r.Context(), "missing booking id for update")
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidBookingID)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())

	var req bookingPatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log(r.Context(), "Update", "principal_id", principal.OperatorID, "booking_id", bookingID, "error_kind", "bad_request").ErrorContext(r.Context(), "failed to decode booking update", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	logger := h.log(r.Context(), "Update", "principal_id", principal.OperatorID, "booking_id", bookingID)

	booking, err := h.service.UpdateBooking(r.Context(), application.UpdateBookingParams{
		Principal: principal,
		BookingID: bookingID,
		Patch:     req.toPatch(),
	})
	if err != nil {
		logger.ErrorContext(r.Context(), "booking update failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.InfoContext(r.Context(), "booking updated")
	h.responder.writeJSON(r.Context(), w, http.StatusOK, bookingResponse{Booking: toBookingDTO(booking)})
}

func (h *BookingHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	bookingID, ok := BookingIDFromContext(r.Context())
	if !ok || strings.TrimSpace(bookingID) == "" {
		h.log(r.Context(), "Cancel", "error_kind", "bad_request").ErrorContext(r.Context(), "missing booking id for cancel")
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidBookingID)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	logger := h.log(r.Context(), "Cancel", "principal_id", principal.OperatorID, "booking_id", bookingID)

	booking, err := h.service.CancelBooking(r.Context(), principal, bookingID)
	if err != nil {
		logger.ErrorContext(r.Context(), "booking cancel failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.InfoContext(r.Context(), "booking cancelled")
	h.responder.writeJSON(r.Context(), w, http.StatusOK, bookingResponse{Booking: toBookingDTO(booking)})
}

func (h *BookingHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	bookingID, ok := BookingIDFromContext(r.Context())
	if !ok || strings.TrimSpace(bookingID) == "" {
		h.log(r.Context(), "Delete", "error_kind", "bad_request").ErrorContext(r.Context(), "missing booking id for delete")
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidBookingID)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	logger := h.log(r.Context(), "Delete", "principal_id", principal.OperatorID, "booking_id", bookingID)
	if err := h.service.DeleteBooking(r.Context(), principal, bookingID); err != nil {
		logger.ErrorContext(r.Context(), "booking delete failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.InfoContext(r.Context(), "booking deleted")
	h.responder.writeJSON(r.Context(), w, http.StatusNoContent, nil)
}

func (h *BookingHandler) Get(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	bookingID, ok := BookingIDFromContext(r.Context())
	if !ok || strings.TrimSpace(bookingID) == "" {
		h.log(r.Context(), "Get", "error_kind", "bad_request").ErrorContext(r.Context(), "missing booking id for get")
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidBookingID)
		return
	}

	booking, err := h.service.GetBooking(r.Context(), bookingID)
	if err != nil {
		h.log(r.Context(), "Get", "booking_id", bookingID).ErrorContext(r.Context(), "booking get failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, bookingResponse{Booking: toBookingDTO(booking)})
}

func (h *BookingHandler) List(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	params := buildListParams(r.URL.Query(), principal)

	logger := h.log(r.Context(), "List", "principal_id", principal.OperatorID)

	bookings, err := h.service.ListBookings(r.Context(), params)
	if err != nil {
		logger.ErrorContext(r.Context(), "booking list failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.With("result_count", len(bookings)).InfoContext(r.Context(), "bookings listed")
	h.responder.writeJSON(r.Context(), w, http.StatusOK, listBookingsResponse{Bookings: toBookingDTOs(bookings)})
}

func (h *BookingHandler) Availability(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	values := r.URL.Query()
	query := application.AvailabilityQuery{
		ResourceIDs:      parseCSV(values.Get("resources")),
		Start:            parseDate(values.Get("start")),
		End:              parseDate(values.Get("end")),
		ExcludeBookingID: strings.TrimSpace(values.Get("exclude_booking_id")),
	}

	logger := h.log(r.Context(), "Availability", "resource_count", len(query.ResourceIDs))

	result, err := h.service.CheckAvailability(r.Context(), query)
	if err != nil {
		logger.ErrorContext(r.Context(), "availability check failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, availabilityResponse{
		Available: result.Available,
		Conflicts: result.Conflicts,
	})
}

type assignmentDTO struct {
	ResourceID string `json:"resource_id"`
	Quantity   int    `json:"quantity,omitempty"`
}

type bookingRequest struct {
	ClientID    string          `json:"client_id"`
	Assignments []assignmentDTO `json:"assignments"`
	StartDate   string          `json:"start_date"`
	EndDate     string          `json:"end_date"`
	Notes       string          `json:"notes"`
	OperatorIDs []string        `json:"operator_ids"`
}

func (r bookingRequest) toInput() application.BookingInput {
	return application.BookingInput{
		ClientID:    strings.TrimSpace(r.ClientID),
		Assignments: toAssignments(r.Assignments),
		Start:       parseDate(r.StartDate),
		End:         parseDate(r.EndDate),
		Notes:       r.Notes,
		OperatorIDs: append([]string(nil), r.OperatorIDs...),
	}
}

type bookingPatchRequest struct {
	Assignments *[]assignmentDTO `json:"assignments"`
	StartDate   *string          `json:"start_date"`
	EndDate     *string          `json:"end_date"`
	Notes       *string          `json:"notes"`
	Status      *string          `json:"status"`
	OperatorIDs *[]string        `json:"operator_ids"`
}

func (r bookingPatchRequest) toPatch() application.BookingPatch {
	patch := application.BookingPatch{
		Notes: r.Notes,
	}
	if r.Assignments != nil {
		assignments := toAssignments(*r.Assignments)
		patch.Assignments = &assignments
	}
	if r.StartDate != nil {
		start := parseDate(*r.StartDate)
		patch.Start = &start
	}
	if r.EndDate != nil {
		end := parseDate(*r.EndDate)
		patch.End = &end
	}
	if r.Status != nil {
		status := application.Status(strings.TrimSpace(*r.Status))
		patch.Status = &status
	}
	if r.OperatorIDs != nil {
		ids := append([]string(nil), (*r.OperatorIDs)...)
		patch.OperatorIDs = &ids
	}
	return patch
}

func toAssignments(dtos []assignmentDTO) []application.Assignment {
	if len(dtos) == 0 {
		return nil
	}
	out := make([]application.Assignment, 0, len(dtos))
	for _, dto := range dtos {
		out = append(out, application.Assignment{
			ResourceID: strings.TrimSpace(dto.ResourceID),
			Quantity:   dto.Quantity,
		})
	}
	return out
}

// parseDate accepts a calendar date or a full timestamp. Bookings are day
// granular, so a bare date is the common form.
func parseDate(value string) time.Time {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}
	}
	if ts, err := time.Parse("2006-01-02", value); err == nil {
		return ts
	}
	if ts, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return ts
	}
	if ts, err := time.Parse(time.RFC3339, value); err == nil {
		return ts
	}
	return time.Time{}
}

type bookingResponse struct {
	Booking bookingDTO `json:"booking"`
}

type listBookingsResponse struct {
	Bookings []bookingDTO `json:"bookings"`
}

type availabilityResponse struct {
	Available bool                           `json:"available"`
	Conflicts []application.ResourceConflict `json:"conflicts,omitempty"`
}

type bookingDTO struct {
	ID              string          `json:"id"`
	ClientID        string          `json:"client_id"`
	Assignments     []assignmentDTO `json:"assignments"`
	Status          string          `json:"status"`
	StartDate       string          `json:"start_date"`
	EndDate         string          `json:"end_date"`
	TotalPriceCents int64           `json:"total_price_cents"`
	Notes           string          `json:"notes,omitempty"`
	OperatorIDs     []string        `json:"operator_ids,omitempty"`
	CreatedAt       string          `json:"created_at"`
	UpdatedAt       string          `json:"updated_at"`
}

func toBookingDTO(booking application.Booking) bookingDTO {
	assignments := make([]assignmentDTO, 0, len(booking.Assignments))
	for _, assignment := range booking.Assignments {
		assignments = append(assignments, assignmentDTO{
			ResourceID: assignment.ResourceID,
			Quantity:   assignment.Quantity,
		})
	}
	return bookingDTO{
		ID:              booking.ID,
		ClientID:        booking.ClientID,
		Assignments:     assignments,
		Status:          string(booking.Status),
		StartDate:       booking.Start.UTC().Format("2006-01-02"),
		EndDate:         booking.End.UTC().Format("2006-01-02"),
		TotalPriceCents: booking.TotalPriceCents,
		Notes:           booking.Notes,
		OperatorIDs:     append([]string(nil), booking.OperatorIDs...),
		CreatedAt:       booking.CreatedAt.UTC().Format(time.RFC3339Nano),
		UpdatedAt:       booking.UpdatedAt.UTC().Format(time.RFC3339Nano),
	}
}

func toBookingDTOs(bookings []application.Booking) []bookingDTO {
	if len(bookings) == 0 {
		return nil
	}
	out := make([]bookingDTO, 0, len(bookings))
	for _, booking := range bookings {
		out = append(out, toBookingDTO(booking))
	}
	return out
}

func buildListParams(values url.Values, principal application.Principal) application.ListBookingsParams {
	params := application.ListBookingsParams{Principal: principal}

	if clientID := strings.TrimSpace(values.Get("client_id")); clientID != "" {
		params.ClientID = clientID
	}
	if resourceID := strings.TrimSpace(values.Get("resource_id")); resourceID != "" {
		params.ResourceID = resourceID
	}
	for _, raw := range parseCSV(values.Get("status")) {
		status := application.Status(raw)
		if status.IsValid() {
			params.Statuses = append(params.Statuses, status)
		}
	}
	if after := strings.TrimSpace(values.Get("starts_after")); after != "" {
		if ts := parseDate(after); !ts.IsZero() {
			params.StartsAfter = &ts
		}
	}
	if before := strings.TrimSpace(values.Get("ends_before")); before != "" {
		if ts := parseDate(before); !ts.IsZero() {
			params.EndsBefore = &ts
		}
	}

	return params
}

func parseCSV(value string) []string {
	parts := strings.Split(value, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			result = append(result, trimmed)
		}
	}
	if len(result) == 0 {
		return nil
	}
	return result
}
