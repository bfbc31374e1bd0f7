// cmd/server/main.go
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/adhikaar-ai/adhikaar/internal/config"
	"github.com/adhikaar-ai/adhikaar/internal/db"
	"github.com/adhikaar-ai/adhikaar/internal/ratelimit"
	"github.com/adhikaar-ai/adhikaar/internal/scheduler"
	"github.com/adhikaar-ai/adhikaar/internal/store"
)

const configPathEnv = "ADHIKAAR_CONFIG"

func setupLogger(environment string) {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	if environment == config.EnvironmentDevelopment {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}
}

// openStorage returns the configured Storage and a function releasing it.
func openStorage(cfg *config.Config) (store.Storage, func() error, error) {
	if cfg.Database.Driver == config.DriverMemory {
		log.Warn().Msg("Using in-memory theme storage; changes are lost on restart")
		return store.NewMemoryStorage(), func() error { return nil }, nil
	}
	database, err := db.NewFromConfig(cfg)
	if err != nil {
		return nil, nil, err
	}
	return database, database.Close, nil
}

func newThemeStore(cfg *config.Config, storage store.Storage) (*store.Store, error) {
	presets, err := db.ParseThemesFile()
	if err != nil {
		return nil, fmt.Errorf("load theme presets: %w", err)
	}
	return store.New(storage, presets,
		store.WithDefaultID(db.DefaultPresetID()),
		store.WithDefaultMode(cfg.DefaultMode()),
	)
}

func main() {
	cfg, err := config.Load(os.Getenv(configPathEnv))
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	setupLogger(cfg.App.Environment)

	storage, closeStorage, err := openStorage(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open theme storage")
	}
	defer closeStorage()

	themes, err := newThemeStore(cfg, storage)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create theme store")
	}

	if err := scheduler.Init(); err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize scheduler")
	}
	svc, err := scheduler.ServiceInstance()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load scheduler")
	}
	if cfg.Themes.PurgeEnabled {
		if _, err := scheduler.RegisterThemePurge(svc, cfg.Themes.PurgeCron, themes, cfg.Retention(), time.Now); err != nil {
			log.Fatal().Err(err).Msg("Failed to schedule theme purge")
		}
	}

	var limiter *ratelimit.Limiter
	if cfg.RateLimit.Enabled {
		limiter = ratelimit.New(&ratelimit.Config{
			WritesPerMinute: cfg.RateLimit.WritesPerMinute,
			ImportsPerHour:  cfg.RateLimit.ImportsPerHour,
			TrustProxy:      cfg.RateLimit.TrustProxy,
		})
		defer limiter.Close()
	}

	// Create server instance
	server := newServer(cfg, themes, limiter)

	// Setup graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)

	svc.Start()

	// Run server
	g.Go(func() error {
		log.Info().Int("port", cfg.App.Port).Msg("Starting server")
		if err := server.ListenAndServe(); err != http.ErrServerClosed {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	// Wait for interrupt signal
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout())
		defer cancel()

		if err := scheduler.Stop(); err != nil {
			log.Error().Err(err).Msg("Scheduler shutdown failed")
		}

		log.Info().Msg("Shutting down server")
		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown error: %w", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		log.Error().Err(err).Msg("Server terminated with error")
		os.Exit(1)
	}
}
