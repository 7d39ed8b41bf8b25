package application

import (
	"strings"
	"time"
)

// Draft accumulates the reservation wizard's step-by-step state. The booking
// UI fills the client step, the schedule step and the resources step in any
// order; the lifecycle controller only ever sees the fully-formed request
// produced by BuildCreateParams.
type Draft struct {
	ClientID    string
	Start       time.Time
	End         time.Time
	Assignments []Assignment
	Notes       string
	OperatorIDs []string
}

// WithClient records the client step.
func (d Draft) WithClient(clientID string) Draft {
	d.ClientID = strings.TrimSpace(clientID)
	return d
}

// WithDates records the schedule step.
func (d Draft) WithDates(start, end time.Time) Draft {
	d.Start = start
	d.End = end
	return d
}

// WithAssignments records the resources step. A draft with zero assignments
// remains buildable: a booking without resources is a degenerate but legal draft.
func (d Draft) WithAssignments(assignments []Assignment) Draft {
	d.Assignments = append([]Assignment(nil), assignments...)
	return d
}

// WithNotes records free-text notes.
func (d Draft) WithNotes(notes string) Draft {
	d.Notes = notes
	return d
}

// WithOperators records the assigned operator set.
func (d Draft) WithOperators(operatorIDs []string) Draft {
	d.OperatorIDs = append([]string(nil), operatorIDs...)
	return d
}

// ClientComplete reports whether the client step is filled.
func (d Draft) ClientComplete() bool {
	return strings.TrimSpace(d.ClientID) != ""
}

// ScheduleComplete reports whether the schedule step is filled with an
// ordered interval.
func (d Draft) ScheduleComplete() bool {
	return !d.Start.IsZero() && !d.End.IsZero() && !d.Start.After(d.End)
}

// ResourcesComplete reports whether every assignment line is well-formed.
// An empty assignment set counts as complete.
func (d Draft) ResourcesComplete() bool {
	for _, assignment := range d.Assignments {
		if strings.TrimSpace(assignment.ResourceID) == "" {
			return false
		}
		if assignment.Quantity < 0 {
			return false
		}
	}
	return true
}

// Complete reports whether every wizard step is filled.
func (d Draft) Complete() bool {
	return d.ClientComplete() && d.ScheduleComplete() && d.ResourcesComplete()
}

// BuildCreateParams emits a fully-formed create request, or a ValidationError
// naming the incomplete steps.
func (d Draft) BuildCreateParams(principal Principal) (CreateBookingParams, error) {
	vErr := &ValidationError{}
	if !d.ClientComplete() {
		vErr.add("client_id", "client step is incomplete")
	}
	if !d.ScheduleComplete() {
		vErr.add("dates", "schedule step is incomplete")
	}
	if !d.ResourcesComplete() {
		vErr.add("assignments", "resources step is incomplete")
	}
	if vErr.HasErrors() {
		return CreateBookingParams{}, vErr
	}

	return CreateBookingParams{
		Principal: principal,
		Input: BookingInput{
			ClientID:    d.ClientID,
			Assignments: append([]Assignment(nil), d.Assignments...),
			Start:       d.Start,
			End:         d.End,
			Notes:       d.Notes,
			OperatorIDs: append([]string(nil), d.OperatorIDs...),
		},
	}, nil
}
