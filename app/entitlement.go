// Package app enforces the daily free-scan limit and paid unlocks.
package app

import (
	"time"

	"github.com/trilakes/ghostradar/app/models"
)

// FreeDailyLimit is the number of free scans per device per calendar day.
const FreeDailyLimit = 1

// IsUnlocked reports whether a user has paid access at the given instant.
// A lifetime plan never expires; a monthly plan lapses once now reaches
// unlocked_until, with no stored state change.
func IsUnlocked(u models.User, now time.Time) bool {
	switch u.Plan {
	case models.PlanLifetime:
		return true
	case models.PlanMonthly:
		return u.UnlockedUntil != nil && u.UnlockedUntil.After(now)
	}
	return false
}

func startOfDay(t time.Time, loc *time.Location) time.Time {
	t = t.In(loc)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
}

func sameCalendarDay(a, b time.Time, loc *time.Location) bool {
	ay, am, ad := a.In(loc).Date()
	by, bm, bd := b.In(loc).Date()
	return ay == by && am == bm && ad == bd
}

// NeedsDailyReset reports whether the free-scan counter is stale for the
// calendar day containing now. Dates are compared in loc.
func NeedsDailyReset(u models.User, now time.Time, loc *time.Location) bool {
	if u.FreeScansDay.IsZero() {
		return true
	}
	return !sameCalendarDay(u.FreeScansDay, now, loc)
}

// ApplyDailyReset zeroes the counter and stamps the current calendar day.
// Applying it twice within the same day is a no-op the second time.
func ApplyDailyReset(u models.User, now time.Time, loc *time.Location) models.User {
	u.FreeScansUsedToday = 0
	u.FreeScansDay = startOfDay(now, loc)
	return u
}

// ScanGate is the outcome of gating one scan attempt.
type ScanGate struct {
	Unlocked bool
	Allowed  bool
	// Consumed is true when a free-scan slot was spent for this attempt.
	Consumed bool
}

// GateScan runs the full entitlement sequence for one scan attempt: daily
// reset if due, unlocked check, then the free-quota gate. The returned user
// carries any counter mutation and must be persisted by the caller within the
// same critical section that loaded it.
func GateScan(u models.User, now time.Time, loc *time.Location) (models.User, ScanGate) {
	if NeedsDailyReset(u, now, loc) {
		u = ApplyDailyReset(u, now, loc)
	}

	gate := ScanGate{Unlocked: IsUnlocked(u, now)}
	if gate.Unlocked {
		gate.Allowed = true
		return u, gate
	}

	if u.FreeScansUsedToday < FreeDailyLimit {
		u.FreeScansUsedToday++
		gate.Allowed = true
		gate.Consumed = true
	}
	return u, gate
}

// RemainingFreeScans reports how many free scans are left today, viewing the
// counter through the reset rule without persisting anything.
func RemainingFreeScans(u models.User, now time.Time, loc *time.Location) int {
	if NeedsDailyReset(u, now, loc) {
		return FreeDailyLimit
	}
	remaining := FreeDailyLimit - u.FreeScansUsedToday
	if remaining < 0 {
		remaining = 0
	}
	return remaining
}
