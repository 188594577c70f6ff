// Command notifyctl runs dispatch jobs and maintenance tasks from the
// command line, bypassing the HTTP trigger surface.
//
// Usage:
//
//	notifyctl run deadline
//	notifyctl run schedule --detail full
//	notifyctl run personal
//	notifyctl ledger purge
//	notifyctl vapid generate
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/tuntasinaja/notify/internal/clock"
	"github.com/tuntasinaja/notify/internal/config"
	"github.com/tuntasinaja/notify/internal/db"
	"github.com/tuntasinaja/notify/internal/dispatch"
	"github.com/tuntasinaja/notify/internal/push"
)

var logger = slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))

func main() {
	// Load .env if present
	_ = godotenv.Load(".env")

	root := &cobra.Command{
		Use:   "notifyctl",
		Short: "Tuntasin notification dispatch CLI",
	}

	root.AddCommand(runCmd())
	root.AddCommand(ledgerCmd())
	root.AddCommand(vapidCmd())

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

// --------------------------------------------------------------------------
// run command
// --------------------------------------------------------------------------

func runCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run a dispatch job once",
	}
	cmd.AddCommand(runDeadlineCmd())
	cmd.AddCommand(runScheduleCmd())
	cmd.AddCommand(runPersonalCmd())
	return cmd
}

func runDeadlineCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "deadline",
		Short: "Dispatch deadline reminders for items inside a threshold window",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withOrchestrator(func(ctx context.Context, orch *dispatch.Orchestrator) dispatch.Summary {
				return orch.RunDeadline(ctx)
			})
		},
	}
}

func runScheduleCmd() *cobra.Command {
	var detail string
	cmd := &cobra.Command{
		Use:   "schedule",
		Short: "Dispatch next-day schedule reminders",
		RunE: func(cmd *cobra.Command, args []string) error {
			level := dispatch.LevelSummary
			if detail == "full" {
				level = dispatch.LevelDetailed
			}
			return withOrchestrator(func(ctx context.Context, orch *dispatch.Orchestrator) dispatch.Summary {
				return orch.RunSchedule(ctx, level)
			})
		},
	}
	cmd.Flags().StringVar(&detail, "detail", "summary", "Message detail level (summary, full)")
	return cmd
}

func runPersonalCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "personal",
		Short: "Dispatch personal reminders for users at their preferred time",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withOrchestrator(func(ctx context.Context, orch *dispatch.Orchestrator) dispatch.Summary {
				return orch.RunPersonal(ctx)
			})
		},
	}
}

// --------------------------------------------------------------------------
// ledger command
// --------------------------------------------------------------------------

func ledgerCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ledger",
		Short: "Dispatch ledger maintenance",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "purge",
		Short: "Remove ledger entries past the retention margin",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withPool(func(ctx context.Context, cfg *config.Config, pool *db.Pool) error {
				start := time.Now()
				n, err := dispatch.NewPGLedger(pool.Pool).Purge(ctx)
				if err != nil {
					return fmt.Errorf("purge ledger: %w", err)
				}
				logger.Info("Ledger purge finished",
					"removed", n, "duration", time.Since(start).Round(time.Millisecond))
				return nil
			})
		},
	})
	return cmd
}

// --------------------------------------------------------------------------
// vapid command
// --------------------------------------------------------------------------

func vapidCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "vapid",
		Short: "VAPID keypair utilities",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "generate",
		Short: "Generate a new VAPID keypair for Web Push",
		RunE: func(cmd *cobra.Command, args []string) error {
			private, public, err := push.GenerateVAPIDKeys()
			if err != nil {
				return fmt.Errorf("generate keys: %w", err)
			}
			fmt.Printf("VAPID_PUBLIC_KEY=%s\nVAPID_PRIVATE_KEY=%s\n", public, private)
			return nil
		},
	})
	return cmd
}

// --------------------------------------------------------------------------
// Shared setup
// --------------------------------------------------------------------------

// withPool handles config loading, DB connection, and context cancellation.
func withPool(fn func(ctx context.Context, cfg *config.Config, pool *db.Pool) error) error {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	pool, err := db.New(ctx, cfg)
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer pool.Close()

	return fn(ctx, cfg, pool)
}

// withOrchestrator builds the full dispatch pipeline, runs one job, and
// logs its summary. A job that reported per-class errors exits non-zero.
func withOrchestrator(fn func(ctx context.Context, orch *dispatch.Orchestrator) dispatch.Summary) error {
	return withPool(func(ctx context.Context, cfg *config.Config, pool *db.Pool) error {
		var native push.Sender
		if cfg.FirebaseCredentials != "" {
			s, err := push.NewFCMSender(ctx, cfg.FirebaseCredentials, logger)
			if err != nil {
				logger.Warn("FCM channel disabled", "error", err)
			} else {
				native = s
			}
		}

		var web push.Sender
		if cfg.VAPIDPrivateKey != "" {
			s, err := push.NewWebPushSender(cfg.VAPIDPublicKey, cfg.VAPIDPrivateKey, cfg.VAPIDSubscriber, logger)
			if err != nil {
				logger.Warn("Web Push channel disabled", "error", err)
			} else {
				web = s
			}
		}

		orch := dispatch.New(dispatch.NewPGStore(pool.Pool), dispatch.NewPGLedger(pool.Pool),
			native, web, clock.System(), logger, cfg.DispatchWorkers)

		start := time.Now()
		summary := fn(ctx, orch)
		logger.Info("Dispatch finished",
			"sent", summary.Sent,
			"failed", summary.Failed,
			"classes", summary.ClassesProcessed,
			"marked", summary.LedgerMarked,
			"endpoints_deleted", summary.EndpointsDeleted,
			"duration", time.Since(start).Round(time.Millisecond))
		for _, e := range summary.Errors {
			logger.Error("dispatch error", "error", e)
		}
		if len(summary.Errors) > 0 {
			return fmt.Errorf("%d class(es) failed", len(summary.Errors))
		}
		return nil
	})
}
