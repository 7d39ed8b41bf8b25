package application

import "testing"

func TestStatus_IsValid(t *testing.T) {
	t.Parallel()

	for _, status := range []Status{StatusPending, StatusInProgress, StatusCompleted, StatusCancelled} {
		if !status.IsValid() {
			t.Fatalf("expected %q to be valid", status)
		}
	}
	for _, status := range []Status{"", "archived", "PENDING"} {
		if status.IsValid() {
			t.Fatalf("expected %q to be invalid", status)
		}
	}
}

func TestStatus_IsTerminal(t *testing.T) {
	t.Parallel()

	terminal := map[Status]bool{
		StatusPending:    false,
		StatusInProgress: false,
		StatusCompleted:  true,
		StatusCancelled:  true,
	}
	for status, want := range terminal {
		if got := status.IsTerminal(); got != want {
			t.Fatalf("IsTerminal(%q) = %v, want %v", status, got, want)
		}
	}
	if Status("archived").IsTerminal() {
		t.Fatalf("unknown status must not report terminal")
	}
}

func TestStatus_CanTransitionTo(t *testing.T) {
	t.Parallel()

	allowed := map[Status][]Status{
		StatusPending:    {StatusInProgress, StatusCompleted, StatusCancelled},
		StatusInProgress: {StatusCompleted, StatusCancelled},
		StatusCompleted:  {},
		StatusCancelled:  {},
	}
	all := []Status{StatusPending, StatusInProgress, StatusCompleted, StatusCancelled}

	for from, targets := range allowed {
		permitted := make(map[Status]bool, len(targets))
		for _, target := range targets {
			permitted[target] = true
		}
		for _, to := range all {
			if got := from.CanTransitionTo(to); got != permitted[to] {
				t.Fatalf("CanTransitionTo(%q -> %q) = %v, want %v", from, to, got, permitted[to])
			}
		}
	}
}

func TestStatus_IsActive(t *testing.T) {
	t.Parallel()

	active := map[Status]bool{
		StatusPending:    true,
		StatusInProgress: true,
		StatusCompleted:  true,
		StatusCancelled:  false,
	}
	for status, want := range active {
		if got := status.IsActive(); got != want {
			t.Fatalf("IsActive(%q) = %v, want %v", status, got, want)
		}
	}
	if Status("archived").IsActive() {
		t.Fatalf("unknown status must not hold resources")
	}
}

func TestActiveStatuses_ExcludesOnlyCancelled(t *testing.T) {
	t.Parallel()

	statuses := activeStatuses()
	if len(statuses) != 3 {
		t.Fatalf("expected three active statuses, got %v", statuses)
	}
	for _, status := range statuses {
		if status == StatusCancelled {
			t.Fatalf("cancelled must not appear in the active set")
		}
		if !status.IsActive() {
			t.Fatalf("%q listed as active but IsActive is false", status)
		}
	}
}
