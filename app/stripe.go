package app

import (
	"context"
	"errors"

	"github.com/stripe/stripe-go/v79"
	"github.com/stripe/stripe-go/v79/checkout/session"

	"github.com/trilakes/ghostradar/app/config"
	"github.com/trilakes/ghostradar/app/models"
)

// InitStripe wires the Stripe API key from config.
func InitStripe(cfg *config.Config) {
	stripe.Key = cfg.Stripe.SecretKey
}

// SessionStatus classifies a provider-side session verification outcome.
type SessionStatus int

const (
	// SessionPaid means the provider confirms payment completed.
	SessionPaid SessionStatus = iota
	// SessionNotPaid means the session exists but payment has not completed.
	SessionNotPaid
	// SessionInvalid means the session is unknown or the lookup was rejected.
	SessionInvalid
)

// SessionVerification is the result of retrieving a checkout session from the
// payment provider.
type SessionVerification struct {
	Status SessionStatus
	UserID string
	Plan   models.Plan
}

// Payments creates and verifies provider checkout sessions.
type Payments interface {
	CreateCheckout(ctx context.Context, userID string, plan models.Plan) (url, sessionID string, err error)
	VerifySession(ctx context.Context, sessionID string) (SessionVerification, error)
}

// StripePayments implements Payments against Stripe Checkout.
type StripePayments struct {
	cfg *config.Config
}

func NewStripePayments(cfg *config.Config) *StripePayments {
	return &StripePayments{cfg: cfg}
}

func (p *StripePayments) CreateCheckout(ctx context.Context, userID string, plan models.Plan) (string, string, error) {
	priceID := p.cfg.Stripe.PriceMonthly
	mode := stripe.CheckoutSessionModeSubscription
	if plan == models.PlanLifetime {
		priceID = p.cfg.Stripe.PriceLifetime
		mode = stripe.CheckoutSessionModePayment
	}
	if priceID == "" {
		return "", "", errors.New("stripe price not configured for plan " + string(plan))
	}

	params := &stripe.CheckoutSessionParams{
		Mode: stripe.String(string(mode)),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				Price:    stripe.String(priceID),
				Quantity: stripe.Int64(1),
			},
		},
		SuccessURL: stripe.String(p.cfg.AppURL + "/success?session_id={CHECKOUT_SESSION_ID}"),
		CancelURL:  stripe.String(p.cfg.AppURL + "/cancel"),
		Metadata: map[string]string{
			"user_id": userID,
			"plan":    string(plan),
		},
	}
	params.Context = ctx

	sess, err := session.New(params)
	if err != nil {
		return "", "", err
	}
	return sess.URL, sess.ID, nil
}

func (p *StripePayments) VerifySession(ctx context.Context, sessionID string) (SessionVerification, error) {
	params := &stripe.CheckoutSessionParams{}
	params.Context = ctx

	sess, err := session.Get(sessionID, params)
	if err != nil {
		var stripeErr *stripe.Error
		if errors.As(err, &stripeErr) {
			// Unknown or rejected session is a verification result, not an
			// internal failure.
			return SessionVerification{Status: SessionInvalid}, nil
		}
		return SessionVerification{}, err
	}

	if sess.PaymentStatus != stripe.CheckoutSessionPaymentStatusPaid {
		return SessionVerification{Status: SessionNotPaid}, nil
	}
	return SessionVerification{
		Status: SessionPaid,
		UserID: sess.Metadata["user_id"],
		Plan:   models.Plan(sess.Metadata["plan"]),
	}, nil
}
