// Package resources implements the worker and equipment resource managers,
// component C5: interval-based reservation with the flexible
// ceil(min*factor) acceleration policy, and the two-stage min_cost ->
// balanced equipment allocation strategy.
package resources

import "time"

// reservation is one committed allocation record: task taskID holds units
// of a resource for the half-open interval [Start, End).
type reservation struct {
	taskID string
	units  int
	start  time.Time
	end    time.Time
}

// overlaps reports whether [start, end) intersects [s, e), using the
// standard half-open interval test: not (end <= s || start >= e).
func overlaps(start, end, s, e time.Time) bool {
	return !(!end.After(s) || !start.Before(e))
}

func usedUnits(reservations []reservation, start, end time.Time) int {
	used := 0
	for _, r := range reservations {
		if overlaps(start, end, r.start, r.end) {
			used += r.units
		}
	}
	return used
}

func releaseTask(reservations []reservation, taskID string) []reservation {
	out := reservations[:0]
	for _, r := range reservations {
		if r.taskID != taskID {
			out = append(out, r)
		}
	}
	return out
}
