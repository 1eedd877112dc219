// Package models defines user plan and daily usage tracking fields.
package models

import "time"

type Plan string

const (
	PlanNone     Plan = "none"
	PlanMonthly  Plan = "monthly"
	PlanLifetime Plan = "lifetime"
)

// ValidPurchasePlan reports whether a plan can be bought through checkout.
func ValidPurchasePlan(p Plan) bool {
	return p == PlanMonthly || p == PlanLifetime
}

type User struct {
	ID                 string     `db:"id"`
	DeviceID           string     `db:"device_id"`
	Plan               Plan       `db:"plan"`
	UnlockedUntil      *time.Time `db:"unlocked_until"`
	FreeScansUsedToday int        `db:"free_scans_used_today"`
	FreeScansDay       time.Time  `db:"free_scans_day"`
	LastSeen           time.Time  `db:"last_seen"`
	CreatedAt          time.Time  `db:"created_at"`
}
