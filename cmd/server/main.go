package main

import (
	"context"
	"log"

	"github.com/trilakes/ghostradar/app"
	"github.com/trilakes/ghostradar/app/config"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	loc, err := app.LoadResetLocation(cfg)
	if err != nil {
		log.Fatalf("failed to load reset timezone: %v", err)
	}

	store, err := app.NewPostgresStore(context.Background(), cfg.DatabaseURL, loc)
	if err != nil {
		log.Fatalf("failed to open store: %v", err)
	}
	defer store.Close()
	log.Println("Connected to Postgres")

	app.InitStripe(cfg)

	srv := app.NewServer(
		store,
		app.NewOpenAIAnalyzer(cfg.OpenAI),
		app.NewStripePayments(cfg),
		loc,
		cfg.Stripe.WebhookSecret,
	)

	router := srv.Router()
	if err := router.Run("0.0.0.0:" + cfg.Port); err != nil {
		log.Fatalf("server stopped: %v", err)
	}
}
