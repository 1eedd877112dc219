package app

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/trilakes/ghostradar/app/models"
)

// memStore is an in-memory Store for handler tests. A single mutex stands in
// for the row locks the Postgres implementation takes, which is exactly the
// serialization contract the interface requires.
type memStore struct {
	mu        sync.Mutex
	loc       *time.Location
	users     map[string]models.User // by device id
	scans     map[string][]models.Scan
	checkouts map[string]*memCheckout
	events    []memEvent
}

type memCheckout struct {
	userID string
	plan   models.Plan
	status string
}

type memEvent struct {
	userID string
	name   string
	meta   map[string]any
}

func newMemStore(loc *time.Location) *memStore {
	return &memStore{
		loc:       loc,
		users:     map[string]models.User{},
		scans:     map[string][]models.Scan{},
		checkouts: map[string]*memCheckout{},
	}
}

func (m *memStore) getOrCreateLocked(deviceID string, now time.Time) models.User {
	user, ok := m.users[deviceID]
	if !ok {
		user = models.User{
			ID:        uuid.NewString(),
			DeviceID:  deviceID,
			Plan:      models.PlanNone,
			CreatedAt: now,
		}
	}
	user.LastSeen = now
	m.users[deviceID] = user
	return user
}

func (m *memStore) userByIDLocked(userID string) (string, models.User, bool) {
	for deviceID, user := range m.users {
		if user.ID == userID {
			return deviceID, user, true
		}
	}
	return "", models.User{}, false
}

func (m *memStore) GetOrCreateUser(_ context.Context, deviceID string) (models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.getOrCreateLocked(deviceID, time.Now()), nil
}

func (m *memStore) AuthorizeScan(_ context.Context, deviceID string, now time.Time) (Authorization, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	user := m.getOrCreateLocked(deviceID, now)
	user, gate := GateScan(user, now, m.loc)
	m.users[deviceID] = user
	return Authorization{User: user, ScanGate: gate}, nil
}

func (m *memStore) RefundFreeScan(_ context.Context, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	deviceID, user, ok := m.userByIDLocked(userID)
	if !ok {
		return errors.New("user not found")
	}
	if user.FreeScansUsedToday > 0 {
		user.FreeScansUsedToday--
	}
	m.users[deviceID] = user
	return nil
}

func (m *memStore) SaveScan(_ context.Context, userID, messageText, direction string, result models.ScanResult) (models.Scan, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	scan := models.Scan{
		ID:          uuid.NewString(),
		UserID:      userID,
		MessageText: messageText,
		Direction:   direction,
		CreatedAt:   time.Now(),
		ScanResult:  result,
	}
	m.scans[userID] = append(m.scans[userID], scan)
	return scan, nil
}

func (m *memStore) GetHistory(_ context.Context, userID string, limit int) ([]models.Scan, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	stored := m.scans[userID]
	out := make([]models.Scan, 0, len(stored))
	for i := len(stored) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, stored[i])
	}
	return out, nil
}

func (m *memStore) SavePendingCheckout(_ context.Context, userID, sessionID string, plan models.Plan) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.checkouts[sessionID]; exists {
		return errors.New("duplicate session id")
	}
	m.checkouts[sessionID] = &memCheckout{userID: userID, plan: plan, status: "pending"}
	return nil
}

func (m *memStore) FinalizeCheckout(_ context.Context, sessionID, via string, now time.Time) (CheckoutFinalization, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	checkout, ok := m.checkouts[sessionID]
	if !ok || checkout.status != "pending" {
		return CheckoutFinalization{}, nil
	}
	checkout.status = "completed"

	deviceID, user, ok := m.userByIDLocked(checkout.userID)
	if !ok {
		return CheckoutFinalization{}, errors.New("user not found")
	}
	if checkout.plan == models.PlanLifetime {
		user.Plan = models.PlanLifetime
		user.UnlockedUntil = nil
	} else {
		until := now.Add(30 * 24 * time.Hour)
		user.Plan = models.PlanMonthly
		user.UnlockedUntil = &until
	}
	m.users[deviceID] = user

	m.events = append(m.events, memEvent{
		userID: user.ID,
		name:   "purchase_completed",
		meta:   map[string]any{"plan": checkout.plan, "via": via},
	})
	return CheckoutFinalization{Applied: true, UserID: user.ID, Plan: checkout.plan}, nil
}

func (m *memStore) LogEvent(_ context.Context, userID, name string, meta map[string]any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, memEvent{userID: userID, name: name, meta: meta})
	return nil
}

func (m *memStore) eventCount(name string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, e := range m.events {
		if e.name == name {
			n++
		}
	}
	return n
}

func (m *memStore) userByDevice(deviceID string) (models.User, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	user, ok := m.users[deviceID]
	return user, ok
}

func (m *memStore) seedUser(deviceID string, user models.User) models.User {
	m.mu.Lock()
	defer m.mu.Unlock()
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	user.DeviceID = deviceID
	m.users[deviceID] = user
	return user
}
