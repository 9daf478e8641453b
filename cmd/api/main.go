package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/dvloznov/momo-tracker/internal/api/handlers"
	"github.com/dvloznov/momo-tracker/internal/api/router"
	"github.com/dvloznov/momo-tracker/internal/auth"
	"github.com/dvloznov/momo-tracker/internal/config"
	"github.com/dvloznov/momo-tracker/internal/events"
	"github.com/dvloznov/momo-tracker/internal/export"
	"github.com/dvloznov/momo-tracker/internal/loader"
	"github.com/dvloznov/momo-tracker/internal/logger"
	"github.com/dvloznov/momo-tracker/internal/store/inmemory"
)

// devPasswords are used only when auth.users is empty.
var devPasswords = map[string]string{
	"admin": "password123",
	"user1": "securepass",
}

func main() {
	// Parse command-line flags
	var (
		configPath = flag.String("config", os.Getenv("MOMO_CONFIG"), "Path to YAML config file (or set MOMO_CONFIG env)")
		port       = flag.String("port", "", "HTTP server port, overrides server.address")
		data       = flag.String("data", "", "XML or JSON source to load at startup, overrides data.source")
	)
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		bootLog := logger.New()
		bootLog.Fatal().Err(err).Msg("Failed to load configuration")
	}
	if *port != "" {
		cfg.Server.Address = ":" + *port
	}
	if *data != "" {
		cfg.Data.Source = *data
	}

	// Initialize logger
	log, err := logger.NewWithConfig(os.Stdout, logger.Config{Level: cfg.Log.Level, Console: cfg.Log.Console})
	if err != nil {
		bootLog := logger.New()
		bootLog.Fatal().Err(err).Msg("Invalid log configuration")
	}

	gate, err := newGate(cfg.Auth, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize authentication")
	}

	// Seed the store before accepting traffic
	log.Info().Str("source", cfg.Data.Source).Msg("Loading transactions")
	records, err := loader.LoadFile(cfg.Data.Source)
	if err != nil {
		log.Fatal().Err(err).Str("source", cfg.Data.Source).Msg("Failed to load transactions")
	}

	ctx := context.Background()
	txStore := inmemory.NewStore()
	if err := txStore.Load(ctx, records); err != nil {
		log.Fatal().Err(err).Msg("Failed to seed store")
	}
	log.Info().Int("count", txStore.Len()).Msg("Transactions loaded")

	// Start event delivery in background
	publisher, err := newPublisher(cfg.Events, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create event publisher")
	}
	eventQueue := events.NewQueue(events.QueueConfig{
		BufferSize: cfg.Events.Buffer,
		Workers:    cfg.Events.Workers,
		MaxRetries: cfg.Events.MaxRetries,
	}, publisher, log)

	workerCtx, cancelWorkers := context.WithCancel(ctx)
	defer cancelWorkers()
	if err := eventQueue.Start(workerCtx); err != nil {
		log.Fatal().Err(err).Msg("Failed to start event queue")
	}

	handler := router.New(router.Deps{
		Gate:         gate,
		Transactions: handlers.NewTransactionsHandler(txStore, eventQueue, cfg.Store.StrictSchema),
		Health:       handlers.NewHealthHandler(txStore),
		Log:          log,
	})

	// Create HTTP server
	server := &http.Server{
		Addr:         cfg.Server.Address,
		Handler:      handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Start server in a goroutine
	go func() {
		log.Info().
			Str("address", cfg.Server.Address).
			Bool("strict_schema", cfg.Store.StrictSchema).
			Str("realm", gate.Realm()).
			Msg("Starting MoMo API server")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	// Deliver buffered events within the deadline, then release the publisher
	if err := eventQueue.Stop(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Error stopping event queue")
	}
	cancelWorkers()
	if err := eventQueue.Close(); err != nil {
		log.Error().Err(err).Msg("Failed to close event queue")
	}

	if cfg.Export.OnShutdown != "" {
		if err := writeSnapshot(shutdownCtx, txStore, cfg.Export.OnShutdown, log); err != nil {
			log.Error().Err(err).Str("sink", cfg.Export.OnShutdown).Msg("Failed to export snapshot")
		}
	}

	log.Info().Msg("Server exited")
}

// newGate builds the auth gate. Without configured users it falls back to
// the development credentials and says so loudly.
func newGate(cfg config.AuthSection, log zerolog.Logger) (*auth.Gate, error) {
	if len(cfg.Users) > 0 {
		return auth.NewGate(cfg.Realm, cfg.Users)
	}

	log.Warn().Msg("No auth.users configured - using built-in development credentials; configure bcrypt hashes before deploying")
	return auth.NewGateFromPasswords(cfg.Realm, devPasswords, bcrypt.DefaultCost)
}

func newPublisher(cfg config.EventsSection, log zerolog.Logger) (events.Publisher, error) {
	if cfg.NATSURL == "" {
		return events.NewLogPublisher(log), nil
	}
	log.Info().Str("url", cfg.NATSURL).Str("subject", cfg.Subject).Msg("Publishing events to NATS")
	p, err := events.NewNATSPublisher(cfg.NATSURL, cfg.Subject)
	if err != nil {
		return nil, err
	}
	return p, nil
}

func writeSnapshot(ctx context.Context, s *inmemory.Store, dest string, log zerolog.Logger) error {
	sink, err := export.Open(dest, export.Options{
		GCPCredentialsFile: os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"),
		Log:                log,
	})
	if err != nil {
		return err
	}

	txns, err := s.List(ctx)
	if err != nil {
		return err
	}

	start := time.Now()
	if err := sink.Write(ctx, txns); err != nil {
		return err
	}

	log.Info().Str("sink", dest).Int("count", len(txns)).Dur("duration", time.Since(start)).Msg("Snapshot exported")
	return nil
}
