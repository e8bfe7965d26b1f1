package main

import (
	"github.com/adsops/capi-bridge/internal/config"
	"github.com/adsops/capi-bridge/internal/httpserver"
	"github.com/adsops/capi-bridge/internal/logging"
	"github.com/adsops/capi-bridge/internal/store"
)

// main boots the service: config → optional audit DB → HTTP server.
func main() {
	// Load runtime config from environment (destination identity,
	// credentials, webhook secret, optional DB).
	cfg, err := config.Load()
	if err != nil {
		// Logger config comes from the config itself, so this one failure
		// is reported through a default logger.
		logging.New("info").Fatal(err)
	}

	log := logging.New(cfg.LogLevel)

	if !cfg.DispatchConfigured() {
		log.Warn("destination not configured: events will be accepted but dispatch is skipped")
	}

	// The dispatch audit log is optional; the forwarding path never
	// depends on it.
	var st *store.PostgresStore
	if cfg.DBURL != "" {
		st, err = store.NewPostgresStore(cfg.DBURL)
		if err != nil {
			log.Fatal(err)
		}
		defer st.Close()

		// Ensure required tables/indexes exist so `docker compose up --build`
		// is enough.
		if err := st.EnsureSchema(); err != nil {
			log.Fatal(err)
		}
	} else {
		log.Info("DB_URL not set: dispatch audit log disabled")
	}

	router := httpserver.NewRouter(cfg, log, st)

	log.WithField("address", cfg.Address).Info("server started")
	log.Fatal(router.Run(cfg.Address))
}
