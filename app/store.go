package app

import (
	"context"
	"time"

	"github.com/trilakes/ghostradar/app/models"
)

// Authorization is the result of gating one scan attempt against a user's
// account, including the post-decision state of the user row.
type Authorization struct {
	User models.User
	ScanGate
}

// CheckoutFinalization reports whether a checkout session transition
// pending -> completed was applied by this call. Applied is false when the
// session was already completed (duplicate delivery) or unknown.
type CheckoutFinalization struct {
	Applied bool
	UserID  string
	Plan    models.Plan
}

// Store is the durable account, scan and event storage. Implementations must
// serialize AuthorizeScan per device and make FinalizeCheckout an atomic
// check-and-set, so concurrent requests for the same account cannot double
// spend a free scan or double apply an unlock.
type Store interface {
	// GetOrCreateUser resolves a device id to its account, creating the
	// account on first contact and touching last_seen either way.
	GetOrCreateUser(ctx context.Context, deviceID string) (models.User, error)

	// AuthorizeScan runs the daily reset, unlocked check and free-quota gate
	// as one atomic unit for the device's account.
	AuthorizeScan(ctx context.Context, deviceID string, now time.Time) (Authorization, error)

	// RefundFreeScan returns a previously consumed free-scan slot, used when
	// the analysis engine fails after the slot was reserved.
	RefundFreeScan(ctx context.Context, userID string) error

	SaveScan(ctx context.Context, userID, messageText, direction string, result models.ScanResult) (models.Scan, error)

	// GetHistory returns up to limit scans for a user, newest first.
	GetHistory(ctx context.Context, userID string, limit int) ([]models.Scan, error)

	// SavePendingCheckout records a checkout attempt keyed by the provider
	// session id.
	SavePendingCheckout(ctx context.Context, userID, sessionID string, plan models.Plan) error

	// FinalizeCheckout atomically completes a pending checkout session and,
	// only on the first completion, applies the unlock mutation and writes
	// the purchase audit event.
	FinalizeCheckout(ctx context.Context, sessionID, via string, now time.Time) (CheckoutFinalization, error)

	// LogEvent appends to the audit trail. userID may be empty.
	LogEvent(ctx context.Context, userID, name string, meta map[string]any) error
}
