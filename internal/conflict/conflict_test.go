package conflict

import (
	"reflect"
	"testing"
	"time"
)

func day(t *testing.T, dayOfMonth int) time.Time {
	t.Helper()
	return time.Date(2024, time.June, dayOfMonth, 0, 0, 0, 0, time.UTC)
}

func TestOverlaps(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name                       string
		aStart, aEnd, bStart, bEnd int
		want                       bool
	}{
		{name: "disjoint before", aStart: 1, aEnd: 3, bStart: 5, bEnd: 7, want: false},
		{name: "disjoint after", aStart: 10, aEnd: 12, bStart: 5, bEnd: 7, want: false},
		{name: "shared boundary day conflicts", aStart: 10, aEnd: 12, bStart: 12, bEnd: 14, want: true},
		{name: "adjacent days do not conflict", aStart: 10, aEnd: 12, bStart: 13, bEnd: 14, want: false},
		{name: "contained", aStart: 10, aEnd: 20, bStart: 12, bEnd: 14, want: true},
		{name: "identical", aStart: 10, aEnd: 12, bStart: 10, bEnd: 12, want: true},
		{name: "zero length inside", aStart: 10, aEnd: 12, bStart: 11, bEnd: 11, want: true},
		{name: "zero length outside", aStart: 10, aEnd: 12, bStart: 13, bEnd: 13, want: false},
		{name: "zero length on boundary", aStart: 10, aEnd: 12, bStart: 10, bEnd: 10, want: true},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			got := Overlaps(day(t, tc.aStart), day(t, tc.aEnd), day(t, tc.bStart), day(t, tc.bEnd))
			if got != tc.want {
				t.Fatalf("Overlaps([%d,%d],[%d,%d]) = %v, want %v", tc.aStart, tc.aEnd, tc.bStart, tc.bEnd, got, tc.want)
			}
		})
	}
}

func TestOverlaps_IgnoresTimeOfDay(t *testing.T) {
	t.Parallel()

	aEnd := time.Date(2024, time.June, 12, 8, 0, 0, 0, time.UTC)
	bStart := time.Date(2024, time.June, 12, 18, 30, 0, 0, time.UTC)
	if !Overlaps(day(t, 10), aEnd, bStart, day(t, 14)) {
		t.Fatal("expected same calendar day to conflict regardless of clock time")
	}
}

func TestDetect_ReportsEveryBlockingPair(t *testing.T) {
	t.Parallel()

	existing := []Hold{
		{BookingID: "booking-b", ResourceID: "res-2", Start: day(t, 11), End: day(t, 13)},
		{BookingID: "booking-a", ResourceID: "res-1", Start: day(t, 10), End: day(t, 12)},
		{BookingID: "booking-c", ResourceID: "res-1", Start: day(t, 12), End: day(t, 15)},
		{BookingID: "booking-d", ResourceID: "res-3", Start: day(t, 10), End: day(t, 20)},
	}

	got := Detect(existing, Candidate{
		ResourceIDs: []string{"res-1", "res-2"},
		Start:       day(t, 12),
		End:         day(t, 14),
	})

	want := []Conflict{
		{ResourceID: "res-1", BookingID: "booking-a"},
		{ResourceID: "res-1", BookingID: "booking-c"},
		{ResourceID: "res-2", BookingID: "booking-b"},
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("Detect returned %v, want %v", got, want)
	}
}

func TestDetect_SelfExclusion(t *testing.T) {
	t.Parallel()

	existing := []Hold{
		{BookingID: "booking-a", ResourceID: "res-1", Start: day(t, 10), End: day(t, 12)},
	}

	got := Detect(existing, Candidate{
		ResourceIDs:      []string{"res-1"},
		Start:            day(t, 11),
		End:              day(t, 13),
		ExcludeBookingID: "booking-a",
	})
	if len(got) != 0 {
		t.Fatalf("expected no conflicts against own prior hold, got %v", got)
	}
}

func TestDetect_EmptyCandidateIsAvailable(t *testing.T) {
	t.Parallel()

	existing := []Hold{
		{BookingID: "booking-a", ResourceID: "res-1", Start: day(t, 10), End: day(t, 12)},
	}

	if got := Detect(existing, Candidate{Start: day(t, 10), End: day(t, 12)}); len(got) != 0 {
		t.Fatalf("empty candidate set must be trivially available, got %v", got)
	}
}

func TestDetect_DeterministicOrder(t *testing.T) {
	t.Parallel()

	existing := []Hold{
		{BookingID: "booking-z", ResourceID: "res-9", Start: day(t, 10), End: day(t, 12)},
		{BookingID: "booking-a", ResourceID: "res-9", Start: day(t, 11), End: day(t, 13)},
		{BookingID: "booking-m", ResourceID: "res-1", Start: day(t, 10), End: day(t, 12)},
	}
	candidate := Candidate{ResourceIDs: []string{"res-9", "res-1"}, Start: day(t, 10), End: day(t, 14)}

	first := Detect(existing, candidate)
	for i := 0; i < 10; i++ {
		if got := Detect(existing, candidate); !reflect.DeepEqual(got, first) {
			t.Fatalf("Detect order not stable: %v vs %v", got, first)
		}
	}

	want := []Conflict{
		{ResourceID: "res-1", BookingID: "booking-m"},
		{ResourceID: "res-9", BookingID: "booking-a"},
		{ResourceID: "res-9", BookingID: "booking-z"},
	}
	if !reflect.DeepEqual(first, want) {
		t.Fatalf("Detect returned %v, want %v", first, want)
	}
}

func TestDetect_DuplicateCandidateResourceIDs(t *testing.T) {
	t.Parallel()

	existing := []Hold{
		{BookingID: "booking-a", ResourceID: "res-1", Start: day(t, 10), End: day(t, 12)},
	}
	got := Detect(existing, Candidate{
		ResourceIDs: []string{"res-1", "res-1", ""},
		Start:       day(t, 12),
		End:         day(t, 12),
	})

	want := []Conflict{{ResourceID: "res-1", BookingID: "booking-a"}}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("Detect returned %v, want %v", got, want)
	}
}
