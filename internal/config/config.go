package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/caarlos0/env"
	"github.com/joho/godotenv"
)

// Config contains runtime configuration required by the service. It is
// loaded once at startup and passed by reference everywhere; business logic
// never reads the environment on its own.
type Config struct {
	Address string `env:"ADDRESS" envDefault:":8080"`

	// Destination (Meta Conversions API). PixelID and AccessToken are
	// jointly required for any outbound dispatch; when either is missing
	// the dispatcher returns a skip result instead of calling out.
	PixelID       string `env:"META_PIXEL_ID"`
	AccessToken   string `env:"META_ACCESS_TOKEN"`
	TestEventCode string `env:"META_TEST_EVENT_CODE"`
	GraphVersion  string `env:"META_GRAPH_VERSION" envDefault:"v17.0"`
	GraphBaseURL  string `env:"META_GRAPH_BASE_URL" envDefault:"https://graph.facebook.com"`

	// Shared secret for storefront webhook signatures. Optional: when
	// empty, verification is skipped (insecure mode, logged loudly).
	WebhookSecret string `env:"SHOPIFY_WEBHOOK_SECRET"`

	// Optional Postgres URL for the dispatch audit log. Empty disables it.
	DBURL string `env:"DB_URL"`

	// Operator key for the dispatch-log read endpoint. Empty disables
	// the endpoint entirely.
	AdminAPIKey string `env:"ADMIN_API_KEY"`

	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`
}

// Load reads an optional .env file, then parses the environment into Config.
func Load() (Config, error) {
	// Best-effort: a missing .env is normal outside local dev.
	_ = godotenv.Load()

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse environment: %w", err)
	}

	if cfg.GraphVersion == "" {
		return Config{}, errors.New("META_GRAPH_VERSION must not be empty")
	}

	return cfg, nil
}

// DispatchConfigured reports whether the destination identity and credential
// are both present, i.e. whether outbound dispatch can happen at all.
func (c Config) DispatchConfigured() bool {
	return c.PixelID != "" && c.AccessToken != ""
}

// EndpointURL returns the destination ingestion URL for the configured pixel.
// The base URL is overridable so tests can stand in for the destination.
func (c Config) EndpointURL() string {
	return fmt.Sprintf("%s/%s/%s/events", strings.TrimRight(c.GraphBaseURL, "/"), c.GraphVersion, c.PixelID)
}
