// Command notifyd is the Tuntasin notification dispatch server.
//
// Usage:
//
//	notifyd
//	API_PORT=8080 notifyd
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/joho/godotenv"

	"github.com/tuntasinaja/notify/internal/api"
	"github.com/tuntasinaja/notify/internal/clock"
	"github.com/tuntasinaja/notify/internal/config"
	"github.com/tuntasinaja/notify/internal/db"
	"github.com/tuntasinaja/notify/internal/dispatch"
	"github.com/tuntasinaja/notify/internal/maintenance"
	"github.com/tuntasinaja/notify/internal/push"
)

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	// Load .env if present
	_ = godotenv.Load(".env")

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logger.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	// Context with signal handling
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	// Connect to database
	logger.Info("Connecting to database...")
	pool, err := db.New(ctx, cfg)
	if err != nil {
		logger.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()
	logger.Info("Database connected",
		"min_conns", cfg.DBPoolMinConns,
		"max_conns", cfg.DBPoolMaxConns)

	// Push channels. A misconfigured channel disables that channel only;
	// the other channel and the HTTP surface keep running.
	var native push.Sender
	if cfg.FirebaseCredentials != "" {
		s, err := push.NewFCMSender(ctx, cfg.FirebaseCredentials, logger)
		if err != nil {
			logger.Warn("FCM channel disabled", "error", err)
		} else {
			native = s
			logger.Info("FCM channel ready")
		}
	} else {
		logger.Info("FCM channel disabled (no FIREBASE_SERVICE_ACCOUNT_KEY)")
	}

	var web push.Sender
	if cfg.VAPIDPrivateKey != "" {
		s, err := push.NewWebPushSender(cfg.VAPIDPublicKey, cfg.VAPIDPrivateKey, cfg.VAPIDSubscriber, logger)
		if err != nil {
			logger.Warn("Web Push channel disabled", "error", err)
		} else {
			web = s
			logger.Info("Web Push channel ready")
		}
	} else {
		logger.Info("Web Push channel disabled (no VAPID_PRIVATE_KEY)")
	}

	// Dispatch pipeline
	ledger := dispatch.NewPGLedger(pool.Pool)
	orch := dispatch.New(dispatch.NewPGStore(pool.Pool), ledger, native, web,
		clock.System(), logger, cfg.DispatchWorkers)

	// Maintenance tickers (ledger purge, endpoint sweep)
	go maintenance.Start(ctx, pool.Pool, ledger, maintenance.Config{
		LedgerPurgeInterval:   cfg.LedgerPurgeInterval,
		EndpointSweepInterval: cfg.EndpointSweepInterval,
	}, logger)

	// Create router
	router := api.NewRouter(orch, pool.Pool, cfg, logger)

	// Create HTTP server
	addr := fmt.Sprintf("%s:%d", cfg.APIHost, cfg.APIPort)
	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in background
	go func() {
		logger.Info("Starting Tuntasin Notify",
			"addr", addr,
			"environment", cfg.Environment)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("Server failed", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt
	<-ctx.Done()
	logger.Info("Shutting down...")

	// Graceful shutdown with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Shutdown error", "error", err)
	}
	logger.Info("Server stopped")
}
