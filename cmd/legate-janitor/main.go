// The janitor runs scheduled maintenance against the database:
// deleting expired sessions so the sessions table stays bounded.
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/legatepro/legate/pkg/auth"
	"github.com/legatepro/legate/pkg/config"
	"github.com/legatepro/legate/pkg/observability"
	"github.com/legatepro/legate/pkg/storage"
)

func main() {
	schedule := flag.String("schedule", "@every 1h", "Cron schedule for session cleanup")
	runOnce := flag.Bool("once", false, "Run one cleanup pass and exit")
	flag.Parse()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger := observability.NewLogger(cfg.Observability.LogLevel, os.Stdout)

	db, err := storage.OpenPostgres(cfg.Storage)
	if err != nil {
		logger.WithError(err).Error("failed to connect to postgres")
		os.Exit(1)
	}
	defer db.Close()

	sessions := auth.NewPostgresService(db)

	cleanup := func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		deleted, err := sessions.CleanupExpiredSessions(ctx)
		if err != nil {
			logger.WithError(err).Error("session cleanup failed")
			return
		}
		logger.WithField("deleted", deleted).Info("session cleanup complete")
	}

	if *runOnce {
		cleanup()
		return
	}

	scheduler := cron.New()
	if _, err := scheduler.AddFunc(*schedule, cleanup); err != nil {
		logger.WithError(err).Error("invalid schedule")
		os.Exit(1)
	}

	logger.WithField("schedule", *schedule).Info("janitor started")
	scheduler.Start()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	ctx := scheduler.Stop()
	<-ctx.Done()
	logger.Info("janitor stopped")
}
