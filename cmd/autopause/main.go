// Command autopause runs a single inactivity sweep: every item whose live
// work session has seen no activity past the configured threshold is paused
// and flagged. It is intended to be invoked by an external cron job when the
// in-process sweeper is disabled.
//
// Exit codes: 0 = success, 1 = error.
package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/vmakarov/flowtrack-backend/internal/adapter/postgres"
	outboxrepo "github.com/vmakarov/flowtrack-backend/internal/adapter/postgres/outbox"
	userrepo "github.com/vmakarov/flowtrack-backend/internal/adapter/postgres/user"
	"github.com/vmakarov/flowtrack-backend/internal/adapter/postgres/workitem"
	"github.com/vmakarov/flowtrack-backend/internal/adapter/postgres/worksession"
	"github.com/vmakarov/flowtrack-backend/internal/app"
	"github.com/vmakarov/flowtrack-backend/internal/config"
	"github.com/vmakarov/flowtrack-backend/internal/domain"
	"github.com/vmakarov/flowtrack-backend/internal/service/tracking"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	logger := app.NewLogger(cfg.Log)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	pool, err := postgres.NewPool(ctx, cfg.Database)
	if err != nil {
		logger.Error("connect to database", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer pool.Close()

	policy := domain.TrackingPolicy{
		MaxActiveItems:      cfg.Tracking.MaxActiveItems,
		InactivityThreshold: cfg.Tracking.InactivityThreshold,
		ReworkFallbackRatio: cfg.Tracking.ReworkFallbackRatio,
	}

	svc := tracking.NewService(
		logger,
		workitem.New(pool),
		worksession.New(pool),
		userrepo.New(pool),
		outboxrepo.New(pool),
		postgres.NewTxManager(pool),
		clockwork.NewRealClock(),
		policy,
	)

	paused, err := svc.RunAutoPauseSweep(ctx)
	if err != nil {
		logger.Error("auto-pause sweep failed",
			slog.String("error", err.Error()),
			slog.Duration("threshold", cfg.Tracking.InactivityThreshold),
		)
		os.Exit(1)
	}

	logger.Info("auto-pause sweep completed",
		slog.Int("paused", paused),
		slog.Duration("threshold", cfg.Tracking.InactivityThreshold),
	)
}
