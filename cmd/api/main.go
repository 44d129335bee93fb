package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"traipulse/internal/coach"
	"traipulse/internal/config"
	"traipulse/internal/database"
	"traipulse/internal/geminiservice"
	"traipulse/internal/scheduler"
	"traipulse/internal/server"
	"traipulse/internal/utility"
)

func gracefulShutdown(apiServer *http.Server, sched *scheduler.Scheduler, done chan bool) {
	// Create context that listens for the interrupt signal from the OS.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Listen for the interrupt signal.
	<-ctx.Done()

	log.Info().Msg("shutting down gracefully, press Ctrl+C again to force")
	stop() // Allow Ctrl+C to force shutdown

	if err := sched.Stop(); err != nil {
		log.Error().Err(err).Msg("scheduler shutdown failed")
	}

	// The server has 5 seconds to finish the requests it is currently handling
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := apiServer.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server exiting")

	// Notify the main goroutine that the shutdown is complete
	done <- true
}

func main() {
	zerolog.TimeFieldFormat = time.RFC3339
	log.Logger = zerolog.New(os.Stdout).With().Timestamp().Str("service", "traipulse").Logger()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}

	// Initialize the store first; it also backs the policy cooldown.
	repo, err := database.Open(context.Background(), cfg.StoreDriver, cfg.DSN())
	if err != nil {
		log.Fatal().Err(err).Str("driver", cfg.StoreDriver).Msg("could not open store")
	}
	defer repo.Close()

	hub := utility.NewHub()
	gemini := geminiservice.NewClient(cfg.GeminiAPIKey, cfg.GeminiRPS)
	if !gemini.Enabled() {
		log.Info().Msg("GEMINI_API_KEY not set, serving deterministic briefs only")
	}

	svc := coach.NewService(repo, cfg.ProfileCacheSize, cfg.ProfileCacheTTL,
		coach.WithLocation(cfg.Location()),
		coach.WithGenerator(gemini),
		coach.WithNotifier(hub),
	)

	sched, err := scheduler.New(svc, scheduler.Config{Location: cfg.Location(), WarmupHour: cfg.WarmupHour})
	if err != nil {
		log.Fatal().Err(err).Msg("could not create scheduler")
	}
	if err := sched.Start(); err != nil {
		log.Fatal().Err(err).Msg("could not start scheduler")
	}

	apiServer := server.NewServer(server.Deps{
		Port:   cfg.Port,
		DB:     repo,
		Coach:  svc,
		Hub:    hub,
		Secret: []byte(cfg.SessionSecret),
	})

	// Create a done channel to signal when the shutdown is complete
	done := make(chan bool, 1)

	// Run graceful shutdown in a separate goroutine
	go gracefulShutdown(apiServer, sched, done)

	log.Info().Str("addr", apiServer.Addr).Str("store", cfg.StoreDriver).Msg("listening")
	err = apiServer.ListenAndServe()
	if err != nil && err != http.ErrServerClosed {
		log.Fatal().Err(err).Msg("http server error")
	}

	// Wait for the graceful shutdown to complete
	<-done
	log.Info().Msg("Graceful shutdown complete.")
}
