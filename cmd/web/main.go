package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/rb-om1999/ensofinal/internal/adapter/repo"
	"github.com/rb-om1999/ensofinal/internal/api"
	"github.com/rb-om1999/ensofinal/internal/http/handlers"
	"github.com/rb-om1999/ensofinal/internal/http/httpapi"
	"github.com/rb-om1999/ensofinal/internal/infra"
	"github.com/rb-om1999/ensofinal/internal/infra/geoip"
	"github.com/rb-om1999/ensofinal/internal/middleware"
	"github.com/rb-om1999/ensofinal/internal/pages"
	"github.com/rb-om1999/ensofinal/internal/session"
)

func main() {
	// .env is optional
	_ = godotenv.Load()

	cfg, err := infra.LoadConfig()
	if err != nil {
		panic(err)
	}
	logger := infra.NewLogger(cfg.AppEnv)
	if err := cfg.RequireSessionSecret(); err != nil {
		logger.Fatal().Err(err).Msg("invalid configuration")
	}

	ctx := context.Background()
	store, closeStore, err := repo.OpenSessionStore(ctx, cfg.SessionStoreURL, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to open session store")
	}
	defer closeStore()

	resolver, err := geoip.Open(cfg.GeoIPDBPath)
	if err != nil {
		logger.Warn().Err(err).Msg("geoip disabled")
	}
	defer resolver.Close()
	var lookup middleware.CountryLookup
	if resolver != nil {
		lookup = resolver.Country
	}

	client, err := api.NewClient(api.Options{
		BaseURL:        cfg.BackendURL,
		Logger:         &logger,
		RequestTimeout: cfg.APITimeout,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to build backend client")
	}

	app, err := handlers.NewApp(handlers.Options{
		API:       client,
		Store:     store,
		Admins:    session.AdminPolicy{Emails: cfg.AdminEmails},
		Providers: cfg.Providers(),
		Payment:   pages.Payment{Delay: cfg.PaymentDelay},
		Logger:    logger,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to build app")
	}

	sweeper, err := session.NewSweeper(store, cfg.SessionSweepCron, cfg.SessionIdleTTL, &logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to schedule session sweep")
	}
	sweeper.OnSweep(func(cutoff time.Time) {
		if n := app.Visitors.Prune(cutoff); n > 0 {
			logger.Debug().Int("visitors", n).Msg("pruned idle visitors")
		}
	})
	sweeper.Start()

	router := httpapi.NewRouter(app, httpapi.Options{
		VisitorSecret:   []byte(cfg.SessionSecret),
		SecureCookies:   cfg.AppEnv == "production",
		RateLimitPerMin: cfg.RateLimitPerMin,
		CountryLookup:   lookup,
	})
	server := infra.NewHTTPServer(cfg, router)

	go func() {
		logger.Info().Str("backend", cfg.BackendURL).Msgf("web listening on :%s", cfg.Port)
		if err := server.Start(); err != nil {
			logger.Fatal().Err(err).Msg("http server failed")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTPIdleTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("failed to shutdown server")
	}
	sweeper.Stop(shutdownCtx)
	logger.Info().Msg("server stopped")
}
