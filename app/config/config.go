package config

import (
	"errors"
	"os"
	"strings"

	// this will automatically load your .env file:
	_ "github.com/joho/godotenv/autoload"
)

type Config struct {
	DatabaseURL   string
	Port          string
	AppURL        string
	ResetTimezone string
	Stripe        StripeConfig
	OpenAI        OpenAIConfig
}

type StripeConfig struct {
	SecretKey     string
	WebhookSecret string
	PriceMonthly  string
	PriceLifetime string
}

type OpenAIConfig struct {
	APIKey string
	Model  string
}

func LoadConfig() (*Config, error) {
	cfg := &Config{
		DatabaseURL:   os.Getenv("DATABASE_URL"),
		Port:          envOr("PORT", "8080"),
		AppURL:        strings.TrimRight(envOr("APP_URL", "http://localhost:8080"), "/"),
		ResetTimezone: envOr("RESET_TIMEZONE", "UTC"),
		Stripe: StripeConfig{
			SecretKey:     os.Getenv("STRIPE_SECRET_KEY"),
			WebhookSecret: os.Getenv("STRIPE_WEBHOOK_SECRET"),
			PriceMonthly:  os.Getenv("STRIPE_PRICE_MONTHLY"),
			PriceLifetime: os.Getenv("STRIPE_PRICE_LIFETIME"),
		},
		OpenAI: OpenAIConfig{
			APIKey: os.Getenv("OPENAI_API_KEY"),
			Model:  envOr("OPENAI_MODEL", "gpt-4o-mini"),
		},
	}

	if cfg.DatabaseURL == "" {
		return nil, errors.New("DATABASE_URL must be set")
	}

	return cfg, nil
}

func envOr(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}
