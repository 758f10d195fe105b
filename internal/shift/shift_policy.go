package shift

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"go-presence/internal/shared/config"
)

// Clock is a wall-clock time of day.
type Clock struct {
	Hour   int
	Minute int
}

// ParseClock accepts "HH:MM" and "HH:MM:SS"; seconds are dropped.
func ParseClock(s string) (Clock, error) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) < 2 || len(parts) > 3 {
		return Clock{}, fmt.Errorf("invalid clock %q, expected HH:MM", s)
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil || h < 0 || h > 23 {
		return Clock{}, fmt.Errorf("invalid hour in clock %q", s)
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil || m < 0 || m > 59 {
		return Clock{}, fmt.Errorf("invalid minute in clock %q", s)
	}
	return Clock{Hour: h, Minute: m}, nil
}

func (c Clock) minutes() int {
	return c.Hour*60 + c.Minute
}

func (c Clock) String() string {
	return fmt.Sprintf("%02d:%02d", c.Hour, c.Minute)
}

// On anchors the clock on the calendar day of day, in loc.
func (c Clock) On(day time.Time, loc *time.Location) time.Time {
	d := day.In(loc)
	return time.Date(d.Year(), d.Month(), d.Day(), c.Hour, c.Minute, 0, 0, loc)
}

// Policy is the effective shift of one employee.
type Policy struct {
	Start        Clock
	Closing      Clock
	GraceMinutes int
	Location     *time.Location
}

func (p Policy) location() *time.Location {
	if p.Location == nil {
		return time.UTC
	}
	return p.Location
}

// LocalDate is the calendar date of t in the policy timezone, as midnight UTC
// so it round-trips through a DATE column unchanged.
func (p Policy) LocalDate(t time.Time) time.Time {
	l := t.In(p.location())
	return time.Date(l.Year(), l.Month(), l.Day(), 0, 0, 0, 0, time.UTC)
}

func (p Policy) StartOn(t time.Time) time.Time {
	return p.Start.On(t, p.location())
}

func (p Policy) ClosingOn(t time.Time) time.Time {
	return p.Closing.On(t, p.location())
}

// GraceDeadline is the last instant on t's day that still counts as on time.
func (p Policy) GraceDeadline(t time.Time) time.Time {
	return p.StartOn(t).Add(time.Duration(p.GraceMinutes) * time.Minute)
}

// ParseTimestamp reads a device wall-clock timestamp in the policy timezone.
func (p Policy) ParseTimestamp(raw string) (time.Time, error) {
	for _, layout := range []string{"2006-01-02 15:04:05", "2006-01-02 15:04"} {
		if t, err := time.ParseInLocation(layout, raw, p.location()); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid punch timestamp %q", raw)
}

func NewPolicy(start, closing string, graceMinutes int, timezone string) (Policy, error) {
	s, err := ParseClock(start)
	if err != nil {
		return Policy{}, err
	}
	c, err := ParseClock(closing)
	if err != nil {
		return Policy{}, err
	}
	// Overnight shifts would put check-out on the next calendar day.
	if c.minutes() <= s.minutes() {
		return Policy{}, fmt.Errorf("closing time %s must be after start time %s", c, s)
	}
	if graceMinutes < 0 {
		return Policy{}, fmt.Errorf("grace minutes must not be negative, got %d", graceMinutes)
	}
	if timezone == "" {
		timezone = "UTC"
	}
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		return Policy{}, fmt.Errorf("invalid timezone %q: %w", timezone, err)
	}
	return Policy{Start: s, Closing: c, GraceMinutes: graceMinutes, Location: loc}, nil
}

func PolicyFromDefaults(d config.ShiftDefaults) (Policy, error) {
	return NewPolicy(d.Start, d.End, d.GraceMinutes, d.Timezone)
}
