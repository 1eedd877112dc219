// Package app wires the shared HTTP routes.
package app

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/trilakes/ghostradar/device"
)

// Router builds the HTTP router. The webhook endpoint sits outside the device
// middleware; everything under /api resolves a device identity first.
func (s *Server) Router() *gin.Engine {
	router := gin.Default()
	router.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept"},
		AllowCredentials: false,
		MaxAge:           12 * time.Hour,
	}))

	router.GET("/health", s.Health)
	router.POST("/webhook/stripe", s.StripeWebhook)

	api := router.Group("/api")
	api.Use(device.Middleware())
	api.POST("/scan", s.Scan)
	api.GET("/history", s.History)
	api.GET("/me", s.Me)
	api.POST("/event", s.Event)
	api.POST("/create-checkout", s.CreateCheckout)
	api.GET("/confirm", s.ConfirmCheckout)

	return router
}
