package application

// Status represents a booking's position in its lifecycle.
type Status string

const (
	// StatusPending is the initial state of every booking.
	StatusPending Status = "pending"
	// StatusInProgress marks a booking whose rental is underway.
	StatusInProgress Status = "in_progress"
	// StatusCompleted marks a finished booking. Terminal.
	StatusCompleted Status = "completed"
	// StatusCancelled releases the booking's resource holds. Terminal.
	StatusCancelled Status = "cancelled"
)

// validTransitions defines the booking status state machine. Direct
// pending -> completed is permitted for walk-in rentals.
var validTransitions = map[Status][]Status{
	StatusPending:    {StatusInProgress, StatusCompleted, StatusCancelled},
	StatusInProgress: {StatusCompleted, StatusCancelled},
	StatusCompleted:  {},
	StatusCancelled:  {},
}

// IsValid reports whether the status is a recognized lifecycle state.
func (s Status) IsValid() bool {
	_, ok := validTransitions[s]
	return ok
}

// IsTerminal reports whether no further transitions are possible.
func (s Status) IsTerminal() bool {
	allowed, ok := validTransitions[s]
	return ok && len(allowed) == 0
}

// CanTransitionTo reports whether moving from s to target is allowed.
func (s Status) CanTransitionTo(target Status) bool {
	for _, allowed := range validTransitions[s] {
		if allowed == target {
			return true
		}
	}
	return false
}

// IsActive reports whether a booking in this status occupies its resource
// holds for conflict purposes. Only cancellation releases holds.
func (s Status) IsActive() bool {
	return s.IsValid() && s != StatusCancelled
}

// activeStatuses lists every status considered by the conflict engine.
func activeStatuses() []Status {
	return []Status{StatusPending, StatusInProgress, StatusCompleted}
}
