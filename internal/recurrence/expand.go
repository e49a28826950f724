// Package recurrence expands series base events into concrete occurrences
// within a query window, applying detached exceptions (cancellations and
// per-occurrence overrides) along the way.
package recurrence

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/teambition/rrule-go"

	"calendar-service/internal/storage"
)

// DefaultMaxOccurrences caps expansion per series to guard against runaway
// rules (e.g. FREQ=MINUTELY over a year).
const DefaultMaxOccurrences = 5000

// Occurrence is one concrete instance of an event. Event is the series base
// for computed occurrences, or the detached exception row when one overrides
// this instance. Start/End are the instance's own span, distinct from the
// base row's start/end.
type Occurrence struct {
	Event storage.Event `json:"event"`
	Start time.Time     `json:"occurrenceStartAt"`
	End   time.Time     `json:"occurrenceEndAt"`
}

// parseRule parses the textual recurrence rule with DTSTART anchored at the
// base event's own start, interpreted in the timezone the event was authored
// in. Expanding in the authored zone keeps clock times stable across DST
// transitions.
func parseRule(base storage.Event, loc *time.Location) (*rrule.RRule, error) {
	ruleStr := strings.TrimPrefix(*base.RecurrenceRule, "RRULE:")

	opt, err := rrule.StrToROption(ruleStr)
	if err != nil {
		return nil, fmt.Errorf("failed to parse recurrence rule %q: %w", ruleStr, err)
	}
	opt.Dtstart = base.StartAt.In(loc)

	return rrule.NewRRule(*opt)
}

// ValidateRule checks that a textual recurrence rule parses, without
// expanding it.
func ValidateRule(rule string) error {
	_, err := rrule.StrToROption(strings.TrimPrefix(rule, "RRULE:"))
	return err
}

func eventLocation(ev storage.Event) *time.Location {
	if ev.Timezone != "" {
		if loc, err := time.LoadLocation(ev.Timezone); err == nil {
			return loc
		}
	}
	return time.UTC
}

// allDaySpan is the base event's length in whole calendar days, at least one.
func allDaySpan(base storage.Event) int {
	days := int(base.EndAt.Sub(base.StartAt).Round(24*time.Hour) / (24 * time.Hour))
	if days < 1 {
		days = 1
	}
	return days
}

// occurrenceEnd computes the end of an occurrence starting at occStart,
// preserving the base event's duration. All-day events use calendar-day
// arithmetic so a one-day event stays one day across DST boundaries.
func occurrenceEnd(base storage.Event, occStart time.Time) time.Time {
	if base.AllDay {
		return occStart.AddDate(0, 0, allDaySpan(base))
	}
	return occStart.Add(base.EndAt.Sub(base.StartAt))
}

func overlaps(aStart, aEnd, bStart, bEnd time.Time) bool {
	return aStart.Before(bEnd) && aEnd.After(bStart)
}

// Expand produces the occurrences of base intersecting [windowStart,
// windowEnd), bounded by the series' recurrence end. Non-recurring events
// yield at most one occurrence. Exceptions must be the detached exception
// rows of this series; a cancelled exception suppresses its occurrence, a
// modified one replaces the computed fields.
func Expand(base storage.Event, exceptions []storage.Event, windowStart, windowEnd time.Time, maxOccurrences int) ([]Occurrence, error) {
	if maxOccurrences <= 0 {
		maxOccurrences = DefaultMaxOccurrences
	}

	if !base.IsSeriesBase() {
		if overlaps(base.StartAt, base.EndAt, windowStart, windowEnd) {
			return []Occurrence{{Event: base, Start: base.StartAt, End: base.EndAt}}, nil
		}
		return nil, nil
	}

	loc := eventLocation(base)
	rule, err := parseRule(base, loc)
	if err != nil {
		return nil, err
	}

	// Bound rule iteration by the series end when it falls inside the
	// window. The recurrence end is inclusive, an occurrence starting
	// exactly at it still yields, so it caps the inclusive Between call
	// below while the window end stays strict.
	expandEnd := windowEnd
	if base.RecurrenceEndAt != nil && base.RecurrenceEndAt.Before(expandEnd) {
		expandEnd = *base.RecurrenceEndAt
	}

	// Seek back by one duration so occurrences that start before the window
	// but run into it are caught.
	duration := base.EndAt.Sub(base.StartAt)
	searchStart := windowStart.Add(-duration).In(loc)
	if base.AllDay {
		searchStart = windowStart.AddDate(0, 0, -allDaySpan(base)).In(loc)
	}

	byOriginalStart := make(map[int64]storage.Event, len(exceptions))
	for _, ex := range exceptions {
		if ex.OccurrenceStartAt != nil {
			byOriginalStart[ex.OccurrenceStartAt.UTC().Unix()] = ex
		}
	}

	var out []Occurrence
	for _, occStart := range rule.Between(searchStart, expandEnd.In(loc), true) {
		if !occStart.Before(windowEnd) {
			break
		}
		occEnd := occurrenceEnd(base, occStart)
		if !overlaps(occStart, occEnd, windowStart, windowEnd) {
			continue
		}

		if ex, ok := byOriginalStart[occStart.UTC().Unix()]; ok {
			if ex.Cancelled {
				continue
			}
			out = append(out, Occurrence{Event: ex, Start: ex.StartAt, End: ex.EndAt})
		} else {
			out = append(out, Occurrence{Event: base, Start: occStart, End: occEnd})
		}

		if len(out) >= maxOccurrences {
			break
		}
	}

	return out, nil
}

// ExpandAll expands every base event against its exceptions and returns the
// merged occurrence list sorted by start time.
func ExpandAll(bases []storage.Event, exceptionsByParent map[int64][]storage.Event, windowStart, windowEnd time.Time, maxOccurrences int) ([]Occurrence, error) {
	var all []Occurrence
	for _, base := range bases {
		occurrences, err := Expand(base, exceptionsByParent[base.ID], windowStart, windowEnd, maxOccurrences)
		if err != nil {
			return nil, err
		}
		all = append(all, occurrences...)
	}

	sort.Slice(all, func(i, j int) bool {
		if all[i].Start.Equal(all[j].Start) {
			return all[i].Event.ID < all[j].Event.ID
		}
		return all[i].Start.Before(all[j].Start)
	})
	return all, nil
}
