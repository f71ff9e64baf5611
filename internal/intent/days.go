package intent

import (
	"fmt"
	"strings"
	"time"
)

// DateLayout is the calendar date format used for resolved days.
const DateLayout = "2006-01-02"

var weekdays = map[string]time.Weekday{
	"sunday":    time.Sunday,
	"sun":       time.Sunday,
	"monday":    time.Monday,
	"mon":       time.Monday,
	"tuesday":   time.Tuesday,
	"tue":       time.Tuesday,
	"tues":      time.Tuesday,
	"wednesday": time.Wednesday,
	"wed":       time.Wednesday,
	"thursday":  time.Thursday,
	"thu":       time.Thursday,
	"thur":      time.Thursday,
	"thurs":     time.Thursday,
	"friday":    time.Friday,
	"fri":       time.Friday,
	"saturday":  time.Saturday,
	"sat":       time.Saturday,
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// ResolveDay turns a day reference into a calendar date relative to now.
//
// A weekday name resolves to its next occurrence on or after today, so
// naming today's weekday means today. "tomorrow" is always today plus one.
// "next <weekday>" skips today. ISO dates pass through unchanged.
func ResolveDay(ref string, now time.Time) (time.Time, error) {
	today := startOfDay(now)
	r := strings.ToLower(strings.TrimSpace(ref))
	r = strings.TrimPrefix(r, "on ")

	switch r {
	case "", "today", "tonight":
		return today, nil
	case "tomorrow":
		return today.AddDate(0, 0, 1), nil
	case "yesterday":
		return today.AddDate(0, 0, -1), nil
	}

	if rest, ok := strings.CutPrefix(r, "next "); ok {
		wd, ok := weekdays[rest]
		if !ok {
			return time.Time{}, fmt.Errorf("unrecognized day %q", ref)
		}
		ahead := daysUntil(today.Weekday(), wd)
		if ahead == 0 {
			ahead = 7
		}
		return today.AddDate(0, 0, ahead), nil
	}
	r = strings.TrimPrefix(r, "this ")

	if wd, ok := weekdays[r]; ok {
		return today.AddDate(0, 0, daysUntil(today.Weekday(), wd)), nil
	}
	if d, err := time.ParseInLocation(DateLayout, r, now.Location()); err == nil {
		return d, nil
	}
	return time.Time{}, fmt.Errorf("unrecognized day %q", ref)
}

func daysUntil(from, to time.Weekday) int {
	return (int(to) - int(from) + 7) % 7
}

// ResolveRange turns a time range reference into inclusive start and end
// dates. Anything ResolveDay accepts is a one-day range; "this week" is
// today plus six days, "next week" runs Monday through Sunday after the
// current week, "weekend" is the coming Saturday and Sunday, and
// "<day> to <day>" spans two day references.
func ResolveRange(ref string, now time.Time) (start, end time.Time, err error) {
	today := startOfDay(now)
	r := strings.ToLower(strings.TrimSpace(ref))

	switch r {
	case "week", "this week", "the week", "this_week":
		return today, today.AddDate(0, 0, 6), nil
	case "next week", "next_week":
		ahead := daysUntil(today.Weekday(), time.Monday)
		if ahead == 0 {
			ahead = 7
		}
		start = today.AddDate(0, 0, ahead)
		return start, start.AddDate(0, 0, 6), nil
	case "weekend", "this weekend":
		if today.Weekday() == time.Sunday {
			return today, today, nil
		}
		start = today.AddDate(0, 0, daysUntil(today.Weekday(), time.Saturday))
		return start, start.AddDate(0, 0, 1), nil
	}

	for _, sep := range []string{" to ", " through ", ".."} {
		if a, b, ok := strings.Cut(r, sep); ok {
			if start, err = ResolveDay(a, now); err != nil {
				return time.Time{}, time.Time{}, err
			}
			// The end is read relative to the start, so "monday to wednesday"
			// spans forward from Monday.
			if end, err = ResolveDay(b, start); err != nil {
				return time.Time{}, time.Time{}, err
			}
			if end.Before(start) {
				return time.Time{}, time.Time{}, fmt.Errorf("range %q ends before it starts", ref)
			}
			return start, end, nil
		}
	}

	day, err := ResolveDay(r, now)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("unrecognized time range %q", ref)
	}
	return day, day, nil
}
