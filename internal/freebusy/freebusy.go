// Package freebusy computes busy intervals and overlap conflicts from
// expanded event occurrences.
package freebusy

import (
	"sort"
	"time"

	"calendar-service/internal/recurrence"
)

// Interval is a half-open [Start, End) span of busy time.
type Interval struct {
	Start time.Time `json:"busyStart"`
	End   time.Time `json:"busyEnd"`
}

// Overlaps reports whether two half-open intervals intersect.
func Overlaps(aStart, aEnd, bStart, bEnd time.Time) bool {
	return aStart.Before(bEnd) && aEnd.After(bStart)
}

// BusyIntervals returns the merged union of the occurrences' spans.
// Overlapping and adjacent intervals are coalesced, so the result is a
// minimal sorted set of disjoint busy intervals.
func BusyIntervals(occurrences []recurrence.Occurrence) []Interval {
	if len(occurrences) == 0 {
		return nil
	}

	intervals := make([]Interval, 0, len(occurrences))
	for _, occ := range occurrences {
		if !occ.End.After(occ.Start) {
			continue
		}
		intervals = append(intervals, Interval{Start: occ.Start, End: occ.End})
	}
	if len(intervals) == 0 {
		return nil
	}

	sort.Slice(intervals, func(i, j int) bool {
		return intervals[i].Start.Before(intervals[j].Start)
	})

	merged := []Interval{intervals[0]}
	for _, iv := range intervals[1:] {
		last := &merged[len(merged)-1]
		if !iv.Start.After(last.End) {
			if iv.End.After(last.End) {
				last.End = iv.End
			}
			continue
		}
		merged = append(merged, iv)
	}

	return merged
}

// Conflicts returns every occurrence whose span overlaps the candidate
// window. Covers all three overlap shapes: candidate contains the
// occurrence, occurrence contains the candidate, and partial overlap on
// either edge.
func Conflicts(occurrences []recurrence.Occurrence, candidateStart, candidateEnd time.Time) []recurrence.Occurrence {
	var out []recurrence.Occurrence
	for _, occ := range occurrences {
		if Overlaps(occ.Start, occ.End, candidateStart, candidateEnd) {
			out = append(out, occ)
		}
	}
	return out
}
