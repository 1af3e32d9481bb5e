// Package expiry decides whether a donation is past its expiry date.
// Everything here is a pure function of its arguments; callers pass the
// current time explicitly.
package expiry

import "time"

// UrgentWithinDays is the window in which an available donation is shown as urgent
const UrgentWithinDays = 2

// DateOf returns midnight UTC of t's calendar date, read in t's own location.
func DateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// IsExpired reports whether expiryDate falls on a calendar day before now's.
// A donation expiring today is still valid today.
func IsExpired(expiryDate, now time.Time) bool {
	return DateOf(expiryDate).Before(DateOf(now))
}

// DaysUntil returns whole days from now's date to expiryDate; negative once expired.
func DaysUntil(expiryDate, now time.Time) int {
	return int(DateOf(expiryDate).Sub(DateOf(now)).Hours() / 24)
}

// IsUrgent reports whether the donation expires within UrgentWithinDays
func IsUrgent(expiryDate, now time.Time) bool {
	return DaysUntil(expiryDate, now) <= UrgentWithinDays
}

// Clock supplies the current time in the business time zone
type Clock func() time.Time

// NewClock returns a Clock reading wall time in loc
func NewClock(loc *time.Location) Clock {
	if loc == nil {
		loc = time.UTC
	}
	return func() time.Time {
		return time.Now().In(loc)
	}
}

// FixedClock always returns t; used by tests and one-off sweeps
func FixedClock(t time.Time) Clock {
	return func() time.Time {
		return t
	}
}
