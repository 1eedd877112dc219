package app

import (
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/trilakes/ghostradar/app/models"
	"github.com/trilakes/ghostradar/device"
)

// Health is a public health check endpoint.
func (s *Server) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
	})
}

// Scan gates, runs and records one message analysis.
func (s *Server) Scan(c *gin.Context) {
	deviceID, ok := device.IDFromContext(c.Request.Context())
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "missing device context"})
		return
	}

	var req models.ScanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}
	messageText := strings.TrimSpace(req.MessageText)
	if messageText == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Message text is required."})
		return
	}
	direction := req.Direction
	if direction != "me" {
		direction = "they"
	}

	ctx := c.Request.Context()
	now := time.Now()

	auth, err := s.store.AuthorizeScan(ctx, deviceID, now)
	if err != nil {
		log.Printf("authorize scan failed device=%s err=%v", deviceID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load account"})
		return
	}

	if !auth.Allowed {
		if err := s.store.LogEvent(ctx, auth.User.ID, "paywall_shown", nil); err != nil {
			log.Printf("log event failed user=%s err=%v", auth.User.ID, err)
		}
		c.JSON(http.StatusPaymentRequired, gin.H{"paywall": true})
		return
	}

	result, err := s.analyzer.Analyze(ctx, messageText, direction)
	if err != nil {
		// Give the reserved free slot back so the caller can safely retry.
		if auth.Consumed {
			if rerr := s.store.RefundFreeScan(ctx, auth.User.ID); rerr != nil {
				log.Printf("refund free scan failed user=%s err=%v", auth.User.ID, rerr)
			}
		}
		log.Printf("analysis failed user=%s err=%v", auth.User.ID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Analysis failed: " + err.Error()})
		return
	}

	scan, err := s.store.SaveScan(ctx, auth.User.ID, messageText, direction, result)
	if err != nil {
		if auth.Consumed {
			if rerr := s.store.RefundFreeScan(ctx, auth.User.ID); rerr != nil {
				log.Printf("refund free scan failed user=%s err=%v", auth.User.ID, rerr)
			}
		}
		log.Printf("save scan failed user=%s err=%v", auth.User.ID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to save scan"})
		return
	}

	if err := s.store.LogEvent(ctx, auth.User.ID, "scan_completed", nil); err != nil {
		log.Printf("log event failed user=%s err=%v", auth.User.ID, err)
	}

	c.JSON(http.StatusOK, models.Redact(scan, auth.Unlocked))
}

// History returns recent scans with trend annotations, redacted the same way
// as the scan endpoint when the account is locked.
func (s *Server) History(c *gin.Context) {
	deviceID, ok := device.IDFromContext(c.Request.Context())
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "missing device context"})
		return
	}

	ctx := c.Request.Context()
	user, err := s.store.GetOrCreateUser(ctx, deviceID)
	if err != nil {
		log.Printf("load user failed device=%s err=%v", deviceID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load account"})
		return
	}
	unlocked := IsUnlocked(user, time.Now())

	scans, err := s.store.GetHistory(ctx, user.ID, 10)
	if err != nil {
		log.Printf("load history failed user=%s err=%v", user.ID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load history"})
		return
	}

	results := make([]models.PublicScan, 0, len(scans))
	for _, scan := range scans {
		results = append(results, models.Redact(scan, unlocked))
	}

	c.JSON(http.StatusOK, gin.H{
		"scans":  results,
		"trends": ComputeTrends(scans),
		"locked": !unlocked,
	})
}

// Me returns plan and remaining free quota for the calling device.
func (s *Server) Me(c *gin.Context) {
	deviceID, ok := device.IDFromContext(c.Request.Context())
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "missing device context"})
		return
	}

	user, err := s.store.GetOrCreateUser(c.Request.Context(), deviceID)
	if err != nil {
		log.Printf("load user failed device=%s err=%v", deviceID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load account"})
		return
	}

	now := time.Now()
	unlocked := IsUnlocked(user, now)

	var remaining any
	if !unlocked {
		remaining = RemainingFreeScans(user, now, s.loc)
	}

	c.JSON(http.StatusOK, gin.H{
		"plan":      user.Plan,
		"unlocked":  unlocked,
		"remaining": remaining,
	})
}

// Event accepts a client telemetry event and appends it to the audit trail.
func (s *Server) Event(c *gin.Context) {
	deviceID, ok := device.IDFromContext(c.Request.Context())
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "missing device context"})
		return
	}

	var req models.EventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}
	name := strings.TrimSpace(req.EventName)
	if name == "" {
		name = "unknown"
	}

	ctx := c.Request.Context()
	user, err := s.store.GetOrCreateUser(ctx, deviceID)
	if err != nil {
		log.Printf("load user failed device=%s err=%v", deviceID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load account"})
		return
	}

	if err := s.store.LogEvent(ctx, user.ID, name, req.Meta); err != nil {
		log.Printf("log event failed user=%s err=%v", user.ID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to record event"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"ok": true})
}
