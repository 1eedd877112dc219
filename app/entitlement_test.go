package app

import (
	"testing"
	"time"

	"github.com/trilakes/ghostradar/app/models"
)

func ptrTime(t time.Time) *time.Time { return &t }

func TestIsUnlockedLifetimePermanent(t *testing.T) {
	user := models.User{Plan: models.PlanLifetime}
	nows := []time.Time{
		time.Now(),
		time.Now().AddDate(10, 0, 0),
		time.Now().AddDate(100, 0, 0),
	}
	for _, now := range nows {
		if !IsUnlocked(user, now) {
			t.Fatalf("lifetime plan should be unlocked at %v", now)
		}
	}

	// A stale unlocked_until must not matter for lifetime.
	user.UnlockedUntil = ptrTime(time.Now().Add(-time.Hour))
	if !IsUnlocked(user, time.Now()) {
		t.Fatalf("lifetime plan should ignore unlocked_until")
	}
}

func TestIsUnlockedMonthlyLapses(t *testing.T) {
	until := time.Date(2026, time.March, 15, 12, 0, 0, 0, time.UTC)
	user := models.User{Plan: models.PlanMonthly, UnlockedUntil: &until}

	if !IsUnlocked(user, until.Add(-time.Minute)) {
		t.Fatalf("monthly should be unlocked before expiry")
	}
	if IsUnlocked(user, until) {
		t.Fatalf("monthly should be locked at the expiry instant")
	}
	if IsUnlocked(user, until.Add(time.Minute)) {
		t.Fatalf("monthly should be locked after expiry")
	}

	user.UnlockedUntil = nil
	if IsUnlocked(user, until) {
		t.Fatalf("monthly without unlocked_until should be locked")
	}
}

func TestIsUnlockedNonePlan(t *testing.T) {
	until := time.Now().Add(time.Hour)
	user := models.User{Plan: models.PlanNone, UnlockedUntil: &until}
	if IsUnlocked(user, time.Now()) {
		t.Fatalf("plan none should never be unlocked")
	}
}

func TestUnlockedMonotonicInExpiry(t *testing.T) {
	now := time.Date(2026, time.June, 1, 9, 0, 0, 0, time.UTC)
	user := models.User{Plan: models.PlanMonthly}

	wasUnlocked := false
	for hours := -48; hours <= 48; hours += 6 {
		user.UnlockedUntil = ptrTime(now.Add(time.Duration(hours) * time.Hour))
		unlocked := IsUnlocked(user, now)
		if wasUnlocked && !unlocked {
			t.Fatalf("increasing unlocked_until flipped unlocked true->false at offset %dh", hours)
		}
		wasUnlocked = unlocked
	}
}

func TestNeedsDailyReset(t *testing.T) {
	loc := time.UTC
	now := time.Date(2026, time.April, 10, 15, 30, 0, 0, loc)

	t.Run("fresh account", func(t *testing.T) {
		if !NeedsDailyReset(models.User{}, now, loc) {
			t.Fatalf("zero free_scans_day should need a reset")
		}
	})

	t.Run("stale day", func(t *testing.T) {
		user := models.User{FreeScansDay: now.AddDate(0, 0, -1), FreeScansUsedToday: 1}
		if !NeedsDailyReset(user, now, loc) {
			t.Fatalf("yesterday's counter should need a reset")
		}
	})

	t.Run("same day idempotent", func(t *testing.T) {
		user := models.User{FreeScansUsedToday: 1}
		user = ApplyDailyReset(user, now, loc)
		if user.FreeScansUsedToday != 0 {
			t.Fatalf("reset should zero the counter")
		}
		user.FreeScansUsedToday = 1
		if NeedsDailyReset(user, now.Add(8*time.Hour), loc) {
			t.Fatalf("reset-check later the same day should be a no-op")
		}
		if user.FreeScansUsedToday != 1 {
			t.Fatalf("counter changed by a same-day reset check")
		}
	})
}

func TestDailyResetTimezoneBoundary(t *testing.T) {
	loc := time.FixedZone("UTC-5", -5*60*60)
	// 23:30 local on April 10.
	evening := time.Date(2026, time.April, 11, 4, 30, 0, 0, time.UTC)
	// 00:30 local on April 11.
	afterMidnight := evening.Add(time.Hour)

	user := ApplyDailyReset(models.User{}, evening, loc)
	if NeedsDailyReset(user, evening.Add(10*time.Minute), loc) {
		t.Fatalf("same local day should not need a reset")
	}
	if !NeedsDailyReset(user, afterMidnight, loc) {
		t.Fatalf("crossing local midnight should need a reset")
	}
}

func TestGateScanDailyScenario(t *testing.T) {
	loc := time.UTC
	day1 := time.Date(2026, time.May, 3, 10, 0, 0, 0, loc)
	day2 := day1.AddDate(0, 0, 1)

	user := models.User{Plan: models.PlanNone}

	user, gate := GateScan(user, day1, loc)
	if !gate.Allowed || !gate.Consumed || gate.Unlocked {
		t.Fatalf("first scan of the day should consume the free slot: %+v", gate)
	}
	if user.FreeScansUsedToday != 1 {
		t.Fatalf("free_scans_used_today = %d, want 1", user.FreeScansUsedToday)
	}

	user, gate = GateScan(user, day1.Add(2*time.Hour), loc)
	if gate.Allowed || gate.Consumed {
		t.Fatalf("second scan the same day should be paywalled: %+v", gate)
	}
	if user.FreeScansUsedToday != 1 {
		t.Fatalf("denied scan must not change the counter, got %d", user.FreeScansUsedToday)
	}

	user, gate = GateScan(user, day2, loc)
	if !gate.Allowed || !gate.Consumed {
		t.Fatalf("next calendar day should allow again: %+v", gate)
	}
	if user.FreeScansUsedToday != 1 {
		t.Fatalf("counter after next-day scan = %d, want 1", user.FreeScansUsedToday)
	}
}

func TestGateScanUnlockedSkipsQuota(t *testing.T) {
	loc := time.UTC
	now := time.Date(2026, time.May, 3, 10, 0, 0, 0, loc)
	user := models.User{Plan: models.PlanLifetime, FreeScansUsedToday: 1, FreeScansDay: startOfDay(now, loc)}

	for i := 0; i < 5; i++ {
		var gate ScanGate
		user, gate = GateScan(user, now, loc)
		if !gate.Allowed || !gate.Unlocked || gate.Consumed {
			t.Fatalf("unlocked scan %d should bypass the quota: %+v", i, gate)
		}
	}
	if user.FreeScansUsedToday != 1 {
		t.Fatalf("unlocked scans must not touch the counter, got %d", user.FreeScansUsedToday)
	}
}

func TestRemainingFreeScans(t *testing.T) {
	loc := time.UTC
	now := time.Date(2026, time.May, 3, 10, 0, 0, 0, loc)

	fresh := models.User{}
	if got := RemainingFreeScans(fresh, now, loc); got != FreeDailyLimit {
		t.Fatalf("fresh account remaining = %d, want %d", got, FreeDailyLimit)
	}

	spent := models.User{FreeScansUsedToday: 1, FreeScansDay: startOfDay(now, loc)}
	if got := RemainingFreeScans(spent, now, loc); got != 0 {
		t.Fatalf("spent account remaining = %d, want 0", got)
	}
	if got := RemainingFreeScans(spent, now.AddDate(0, 0, 1), loc); got != FreeDailyLimit {
		t.Fatalf("next-day remaining = %d, want %d", got, FreeDailyLimit)
	}
}
