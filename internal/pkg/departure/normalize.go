// Package departure turns user-supplied departure times into absolute
// instants the route-weather backend accepts.
package departure

import (
	"regexp"
	"strings"
	"time"

	"github.com/samirrijal/routeweather/internal/core/domain"
)

// UTCLayout is the canonical form sent for naive inputs.
const UTCLayout = "2006-01-02T15:04:05.000Z"

// awareSuffix decides whether a value already carries its own zone. The
// boundary is a trailing Z or a ±HH:MM offset, nothing else.
var awareSuffix = regexp.MustCompile(`(?i)(Z|[+-]\d{2}:\d{2})$`)

// Layouts tried in order. Fractional seconds are accepted after any
// seconds field without being spelled out.
var layouts = []string{
	"2006-01-02T15:04:05Z07:00",
	"2006-01-02T15:04Z07:00",
	"2006-01-02T15:04:05-0700",
	"2006-01-02T15:04-0700",
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02",
}

// IsAware reports whether value ends in Z or a ±HH:MM offset.
func IsAware(value string) bool {
	return awareSuffix.MatchString(value)
}

// endOfDay matches a 24:00 clock reading, which denotes midnight of the
// following day.
var endOfDay = regexp.MustCompile(`^(\d{4}-\d{2}-\d{2})T24:00(:00(\.0+)?)?(Z|[+-]\d{2}:?\d{2})?$`)

// Parse parses value as a calendar date-time. Values without an offset are
// read as wall-clock time in loc (time.Local when nil).
func Parse(value string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.Local
	}

	candidate := strings.ToUpper(strings.TrimSpace(value))
	if len(candidate) > 10 && candidate[10] == ' ' {
		candidate = candidate[:10] + "T" + candidate[11:]
	}

	nextDay := endOfDay.MatchString(candidate)
	if nextDay {
		candidate = endOfDay.ReplaceAllString(candidate, "${1}T00:00${2}${4}")
	}

	for _, layout := range layouts {
		t, err := time.ParseInLocation(layout, candidate, loc)
		if err != nil {
			continue
		}
		t = resolveGap(t, layout, candidate)
		if nextDay {
			t = t.AddDate(0, 0, 1)
		}
		return t, nil
	}
	return time.Time{}, domain.ErrInvalidFormat
}

// resolveGap reads a wall clock skipped by a forward transition with the
// offset in force before the transition, so 02:30 on a spring-forward night
// lands at 03:30 of the new offset.
func resolveGap(t time.Time, layout, value string) time.Time {
	wall, err := time.Parse(layout, value)
	if err != nil || sameWallClock(t, wall) {
		return t
	}

	// t lies just before the transition, so its zone is the old one.
	_, before := t.Zone()
	naive := time.Date(wall.Year(), wall.Month(), wall.Day(),
		wall.Hour(), wall.Minute(), wall.Second(), wall.Nanosecond(), time.UTC)
	return naive.Add(-time.Duration(before) * time.Second).In(t.Location())
}

func sameWallClock(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd &&
		a.Hour() == b.Hour() && a.Minute() == b.Minute() &&
		a.Second() == b.Second() && a.Nanosecond() == b.Nanosecond()
}

// Normalize returns nil for blank input. Aware values are returned trimmed
// but otherwise unchanged; naive values are read in loc and returned as a
// UTC timestamp with millisecond precision.
func Normalize(input string, loc *time.Location) (*string, error) {
	value := strings.TrimSpace(input)
	if value == "" {
		return nil, nil
	}

	t, err := Parse(value, loc)
	if err != nil {
		return nil, err
	}

	if IsAware(value) {
		return &value, nil
	}

	out := t.UTC().Format(UTCLayout)
	return &out, nil
}
