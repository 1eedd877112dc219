package app

import (
	"fmt"
	"time"

	"github.com/trilakes/ghostradar/app/config"
)

// Server holds the injected collaborators for all HTTP handlers. There is no
// package-global state; everything a handler touches hangs off the Server.
type Server struct {
	store         Store
	analyzer      Analyzer
	payments      Payments
	loc           *time.Location
	webhookSecret string
}

// NewServer wires handlers to their collaborators. loc is the fixed timezone
// used for all calendar-day comparisons.
func NewServer(store Store, analyzer Analyzer, payments Payments, loc *time.Location, webhookSecret string) *Server {
	return &Server{
		store:         store,
		analyzer:      analyzer,
		payments:      payments,
		loc:           loc,
		webhookSecret: webhookSecret,
	}
}

// LoadResetLocation resolves the configured daily-reset timezone.
func LoadResetLocation(cfg *config.Config) (*time.Location, error) {
	loc, err := time.LoadLocation(cfg.ResetTimezone)
	if err != nil {
		return nil, fmt.Errorf("invalid RESET_TIMEZONE %q: %w", cfg.ResetTimezone, err)
	}
	return loc, nil
}
