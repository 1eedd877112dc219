package app

import (
	"encoding/json"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stripe/stripe-go/v79"
	"github.com/stripe/stripe-go/v79/webhook"

	"github.com/trilakes/ghostradar/app/models"
	"github.com/trilakes/ghostradar/device"
)

// CreateCheckout starts a provider checkout session for the calling device
// and records the pending purchase intent.
func (s *Server) CreateCheckout(c *gin.Context) {
	deviceID, ok := device.IDFromContext(c.Request.Context())
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "missing device context"})
		return
	}

	var req models.CheckoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}
	plan := req.Plan
	if plan == "" {
		plan = models.PlanMonthly
	}
	if !models.ValidPurchasePlan(plan) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid plan"})
		return
	}

	ctx := c.Request.Context()
	user, err := s.store.GetOrCreateUser(ctx, deviceID)
	if err != nil {
		log.Printf("load user failed device=%s err=%v", deviceID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load account"})
		return
	}

	url, sessionID, err := s.payments.CreateCheckout(ctx, user.ID, plan)
	if err != nil {
		log.Printf("create checkout failed user=%s plan=%s err=%v", user.ID, plan, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create checkout session"})
		return
	}

	if err := s.store.SavePendingCheckout(ctx, user.ID, sessionID, plan); err != nil {
		log.Printf("save checkout failed user=%s session=%s err=%v", user.ID, sessionID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to record checkout session"})
		return
	}

	if err := s.store.LogEvent(ctx, user.ID, "checkout_clicked_"+string(plan), nil); err != nil {
		log.Printf("log event failed user=%s err=%v", user.ID, err)
	}

	c.JSON(http.StatusOK, gin.H{"url": url})
}

// ConfirmCheckout is the synchronous confirmation path: the client returns
// from checkout with a session reference and we verify payment with the
// provider before applying the unlock.
func (s *Server) ConfirmCheckout(c *gin.Context) {
	sessionID := c.Query("session_id")
	if sessionID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing session_id"})
		return
	}

	ctx := c.Request.Context()
	verification, err := s.payments.VerifySession(ctx, sessionID)
	if err != nil {
		log.Printf("verify session failed session=%s err=%v", sessionID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to verify session"})
		return
	}
	if verification.Status != SessionPaid {
		c.JSON(http.StatusBadRequest, gin.H{"unlocked": false})
		return
	}

	fin, err := s.store.FinalizeCheckout(ctx, sessionID, "confirm", time.Now())
	if err != nil {
		log.Printf("finalize checkout failed session=%s err=%v", sessionID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to apply unlock"})
		return
	}
	if !fin.Applied {
		log.Printf("checkout already finalized session=%s", sessionID)
	}

	c.JSON(http.StatusOK, gin.H{"unlocked": true, "plan": verification.Plan})
}

// StripeWebhook is the asynchronous confirmation path: a signed provider
// event asserting session completion. A bad signature is rejected outright
// and never retried here; the provider handles its own redelivery.
func (s *Server) StripeWebhook(c *gin.Context) {
	const maxBodyBytes = int64(65536)
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxBodyBytes))
	if err != nil {
		log.Printf("stripe webhook read failed: %v", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}

	if s.webhookSecret == "" {
		log.Printf("stripe webhook secret missing")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "webhook not configured"})
		return
	}

	event, err := webhook.ConstructEventWithOptions(
		body,
		c.GetHeader("Stripe-Signature"),
		s.webhookSecret,
		webhook.ConstructEventOptions{
			IgnoreAPIVersionMismatch: true,
		},
	)
	if err != nil {
		log.Printf("stripe webhook signature failed: %v", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "signature verification failed"})
		return
	}

	switch event.Type {
	case "checkout.session.completed":
		var sess stripe.CheckoutSession
		if err := json.Unmarshal(event.Data.Raw, &sess); err != nil {
			log.Printf("stripe session unmarshal failed: %v", err)
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid session payload"})
			return
		}
		fin, err := s.store.FinalizeCheckout(c.Request.Context(), sess.ID, "webhook", time.Now())
		if err != nil {
			log.Printf("finalize checkout failed session=%s err=%v", sess.ID, err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to apply unlock"})
			return
		}
		if !fin.Applied {
			log.Printf("checkout already finalized session=%s", sess.ID)
		}
	default:
		// Intentionally ignore unhandled events.
	}

	c.JSON(http.StatusOK, gin.H{"received": true})
}
