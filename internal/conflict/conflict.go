package conflict

import (
	"sort"
	"time"
)

// Hold represents one active booking's claim on a single physical resource
// for a closed date interval.
type Hold struct {
	BookingID  string
	ResourceID string
	Start      time.Time
	End        time.Time
}

// Candidate describes a proposed resource assignment to test against existing
// holds. ExcludeBookingID removes a booking's own holds from the collision
// set so that editing a booking never conflicts with its prior state.
type Candidate struct {
	ResourceIDs      []string
	Start            time.Time
	End              time.Time
	ExcludeBookingID string
}

// Conflict identifies one resource/booking pair that blocks the candidate.
type Conflict struct {
	ResourceID string
	BookingID  string
}

// Overlaps reports whether two closed date intervals share at least one
// calendar day. Comparison is day-granular and inclusive of boundary days: a
// hold ending on day D collides with one starting on day D, because setup and
// teardown consume the whole day.
func Overlaps(aStart, aEnd, bStart, bEnd time.Time) bool {
	as, ae := dayOf(aStart), dayOf(aEnd)
	bs, be := dayOf(bStart), dayOf(bEnd)
	return !as.After(be) && !ae.Before(bs)
}

// Detect returns every hold that collides with the candidate interval on a
// requested resource. All blocking pairs are reported, not just the first,
// ordered by resource id and then booking id so results are deterministic for
// identical input.
func Detect(existing []Hold, candidate Candidate) []Conflict {
	if len(candidate.ResourceIDs) == 0 {
		return nil
	}

	requested := make(map[string]struct{}, len(candidate.ResourceIDs))
	for _, id := range candidate.ResourceIDs {
		if id == "" {
			continue
		}
		requested[id] = struct{}{}
	}

	var conflicts []Conflict
	for _, hold := range existing {
		if candidate.ExcludeBookingID != "" && hold.BookingID == candidate.ExcludeBookingID {
			continue
		}
		if _, ok := requested[hold.ResourceID]; !ok {
			continue
		}
		if !Overlaps(hold.Start, hold.End, candidate.Start, candidate.End) {
			continue
		}
		conflicts = append(conflicts, Conflict{ResourceID: hold.ResourceID, BookingID: hold.BookingID})
	}

	sort.Slice(conflicts, func(i, j int) bool {
		if conflicts[i].ResourceID == conflicts[j].ResourceID {
			return conflicts[i].BookingID < conflicts[j].BookingID
		}
		return conflicts[i].ResourceID < conflicts[j].ResourceID
	})

	return dedupe(conflicts)
}

func dedupe(conflicts []Conflict) []Conflict {
	if len(conflicts) < 2 {
		return conflicts
	}
	out := conflicts[:1]
	for _, c := range conflicts[1:] {
		last := out[len(out)-1]
		if c.ResourceID == last.ResourceID && c.BookingID == last.BookingID {
			continue
		}
		out = append(out, c)
	}
	return out
}

func dayOf(t time.Time) time.Time {
	utc := t.UTC()
	return time.Date(utc.Year(), utc.Month(), utc.Day(), 0, 0, 0, 0, time.UTC)
}
