package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/skyfleet/takeoff-tracker/internal/api"
	"github.com/skyfleet/takeoff-tracker/internal/compose"
	"github.com/skyfleet/takeoff-tracker/internal/config"
	"github.com/skyfleet/takeoff-tracker/internal/eta"
	"github.com/skyfleet/takeoff-tracker/internal/feed"
	"github.com/skyfleet/takeoff-tracker/internal/geo"
	"github.com/skyfleet/takeoff-tracker/internal/notify"
	"github.com/skyfleet/takeoff-tracker/internal/storage/sqlite"
	"github.com/skyfleet/takeoff-tracker/internal/tracker"
	"github.com/skyfleet/takeoff-tracker/internal/websocket"
	"github.com/skyfleet/takeoff-tracker/pkg/logger"
)

var (
	// Version is injected at build time
	Version = "dev"
)

func main() {
	// Parse command line flags
	configPath := flag.String("config", "", "Path to configuration file (optional - will search in configs/ and root directory)")
	flag.Parse()

	// Load configuration with fallback logic
	cfg, err := config.LoadWithFallback(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading configuration: %v\n", err)
		os.Exit(1)
	}

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Invalid configuration: %v\n", err)
		os.Exit(1)
	}

	// Create logger
	log, err := logger.New(logger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error creating logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	log.Info("Starting takeoff tracker",
		logger.String("version", Version),
		logger.String("config_path", *configPath),
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Create SQLite flight ledger
	flightStorage, err := sqlite.NewFlightStorage(cfg.Storage.SQLitePath, log)
	if err != nil {
		log.Error("Failed to create SQLite storage", logger.Error(err))
		os.Exit(1)
	}
	defer flightStorage.Close()
	log.Info("Using SQLite storage", logger.String("path", cfg.Storage.SQLitePath))

	// Load airport reference data
	geoIndex, err := geo.LoadIndex(cfg.Airports.DBPath, log)
	if err != nil {
		log.Error("Failed to load airport database", logger.Error(err))
		os.Exit(1)
	}
	// Load the tracked fleet
	fleet, err := feed.LoadFleet(cfg.Feed.FleetPath, log)
	if err != nil {
		log.Error("Failed to load fleet", logger.Error(err))
		os.Exit(1)
	}

	// Create the position feed client
	feedClient := feed.NewClient(
		cfg.Feed.BaseURL,
		cfg.Feed.CredentialsPath,
		fleet,
		cfg.Feed.Timeout(),
		log,
	)

	// Create the notifier if enabled
	var notifier tracker.Notifier
	if cfg.Notifier.Enabled {
		statusClient := notify.NewStatusClient(
			cfg.Notifier.PostURL,
			cfg.Notifier.BearerToken,
			cfg.Notifier.Timeout(),
			log,
		)

		var composer notify.Composer
		if cfg.Composer.Enabled {
			geminiComposer, err := compose.NewGeminiComposer(ctx, cfg.Composer.APIKey, cfg.Composer.Model, log)
			if err != nil {
				log.Error("Failed to create message composer", logger.Error(err))
				os.Exit(1)
			}
			composer = geminiComposer
			log.Info("Message composer enabled", logger.String("model", cfg.Composer.Model))
		}

		notifier = notify.NewService(
			statusClient,
			composer,
			cfg.Notifier.MaxRetries,
			cfg.Notifier.RetryBackoff(),
			log,
		)
	} else {
		log.Info("Notifier disabled in configuration")
	}

	// Create WebSocket hub
	wsServer := websocket.NewServer(log)
	go wsServer.Run()

	// Create the detector and polling service
	estimator := eta.NewEstimator(cfg.Tracker.CruiseSpeedKmh)
	detector := tracker.NewDetector(
		geoIndex,
		estimator,
		flightStorage,
		notifier,
		wsServer,
		cfg.Tracker.AircraftType,
		cfg.Tracker.StaleThreshold(),
		log,
	)
	trackerService := tracker.NewService(feedClient, detector, cfg.Tracker.PollInterval(), log)

	if err := trackerService.Start(ctx); err != nil {
		log.Error("Failed to start tracker service", logger.Error(err))
		os.Exit(1)
	}

	// Create API router and HTTP server
	handler := api.NewHandler(trackerService, flightStorage, geoIndex, log)
	router := api.NewRouter(handler, wsServer)

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	server := &http.Server{
		Addr:         addr,
		Handler:      router.Routes(),
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeoutSecs) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeoutSecs) * time.Second,
		IdleTimeout:  time.Duration(cfg.Server.IdleTimeoutSecs) * time.Second,
	}

	go func() {
		log.Info("Starting HTTP server", logger.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("HTTP server error on startup", logger.String("addr", server.Addr), logger.Error(err))
		}
	}()

	// Wait for interrupt signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	log.Info("Shutting down...")

	// Stop the polling loop first; the in-flight cycle runs to completion so
	// no event is left half-committed.
	log.Info("Stopping tracker service...")
	trackerService.Stop()
	log.Info("Tracker service stopped.")

	// Cancel the main context
	cancel()

	// Shutdown the HTTP server
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("HTTP server shutdown error", logger.Error(err))
	} else {
		log.Info("HTTP server shutdown complete")
	}

	log.Info("Tracker fully stopped")
}
