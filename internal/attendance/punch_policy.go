package attendance

import (
	"time"

	"go-presence/internal/shift"
)

type decision int

const (
	decideCheckIn decision = iota
	decideCheckOut
	// decideClosed is a punch against a day that already has both ends.
	decideClosed
	// decideNotAfterCheckIn is a punch at or before the recorded check-in,
	// typically a replayed or out-of-order device line.
	decideNotAfterCheckIn
)

// decide maps the current record of the day and the punch time to a transition.
// A day without a record always opens with a check-in, whatever the hour.
func decide(existing *Attendance, at time.Time) decision {
	switch {
	case existing == nil:
		return decideCheckIn
	case !existing.IsOpen():
		return decideClosed
	case !at.After(existing.ClockIn):
		return decideNotAfterCheckIn
	default:
		return decideCheckOut
	}
}

// DeriveStatus classifies a check-in. The grace deadline itself is on time.
func DeriveStatus(checkIn time.Time, policy shift.Policy) string {
	if checkIn.After(policy.GraceDeadline(checkIn)) {
		return StatusLate
	}
	return StatusPresent
}

type Guard string

const (
	GuardCooldown      Guard = "cooldown"
	GuardEarlyCheckout Guard = "early_checkout"
)

const cooldownReason = "punch ignored: a punch was recorded moments ago"

// webCheckOutGuard returns the guard that blocks a web check-out, if any.
func webCheckOutGuard(open Attendance, at time.Time, policy shift.Policy, cooldown time.Duration) (Guard, string, bool) {
	if cooldown > 0 && at.Sub(open.ClockIn) < cooldown {
		return GuardCooldown, cooldownReason, true
	}
	closing := policy.ClosingOn(at)
	if at.Before(closing) {
		return GuardEarlyCheckout, "punch ignored: check-out is allowed from " + policy.Closing.String(), true
	}
	return "", "", false
}
