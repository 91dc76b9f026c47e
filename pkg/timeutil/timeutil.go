// Package timeutil provides the ledger's day arithmetic. Days are counted in
// UTC as whole 86400-second periods since the Unix epoch, so every node
// agrees on the day boundary regardless of its local timezone.
package timeutil

import "time"

// SecondsPerDay is the length of a ledger day.
const SecondsPerDay = 86400

// Clock abstracts time.Now for deterministic tests.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the wall clock in UTC.
type SystemClock struct{}

// Now implements Clock.
func (SystemClock) Now() time.Time { return time.Now().UTC() }

// FixedClock always returns the same instant until moved.
type FixedClock struct {
	T time.Time
}

// Now implements Clock.
func (c *FixedClock) Now() time.Time { return c.T }

// Advance moves the clock forward.
func (c *FixedClock) Advance(d time.Duration) { c.T = c.T.Add(d) }

// DayIndex returns floor(unix / 86400). Times before the epoch map to
// negative indices.
func DayIndex(t time.Time) int64 {
	s := t.Unix()
	if s < 0 {
		return (s - SecondsPerDay + 1) / SecondsPerDay
	}
	return s / SecondsPerDay
}

// StartOfDay returns the first second of t's ledger day.
func StartOfDay(t time.Time) time.Time {
	return time.Unix(DayIndex(t)*SecondsPerDay, 0).UTC()
}

// IsSameDay reports whether two instants share a ledger day.
func IsSameDay(t1, t2 time.Time) bool {
	return DayIndex(t1) == DayIndex(t2)
}

// IsConsecutiveDay reports whether t2 falls on the day after t1.
func IsConsecutiveDay(t1, t2 time.Time) bool {
	return DayIndex(t2) == DayIndex(t1)+1
}

// DaysBetween returns the absolute number of day boundaries between t1 and t2.
func DaysBetween(t1, t2 time.Time) int64 {
	d := DayIndex(t2) - DayIndex(t1)
	if d < 0 {
		return -d
	}
	return d
}
