package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/vmakarov/flowtrack-backend/internal/adapter/postgres"
	outboxrepo "github.com/vmakarov/flowtrack-backend/internal/adapter/postgres/outbox"
	userrepo "github.com/vmakarov/flowtrack-backend/internal/adapter/postgres/user"
	"github.com/vmakarov/flowtrack-backend/internal/adapter/postgres/workitem"
	"github.com/vmakarov/flowtrack-backend/internal/adapter/postgres/worksession"
	"github.com/vmakarov/flowtrack-backend/internal/auth"
	"github.com/vmakarov/flowtrack-backend/internal/config"
	"github.com/vmakarov/flowtrack-backend/internal/domain"
	"github.com/vmakarov/flowtrack-backend/internal/service/approval"
	outboxsvc "github.com/vmakarov/flowtrack-backend/internal/service/outbox"
	"github.com/vmakarov/flowtrack-backend/internal/service/tracking"
	"github.com/vmakarov/flowtrack-backend/internal/transport/middleware"
	"github.com/vmakarov/flowtrack-backend/internal/transport/rest"
)

// Run is the application entry point. It loads configuration, wires the
// repositories, services and HTTP transport, starts the outbox dispatcher
// and the in-process auto-pause sweeper, and serves until the context is
// cancelled. Shutdown is graceful within the configured timeout.
func Run(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logger := NewLogger(cfg.Log)

	logger.Info("starting application",
		slog.String("version", BuildVersion()),
		slog.String("log_level", cfg.Log.Level),
	)

	pool, err := postgres.NewPool(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer pool.Close()

	// Repositories and transaction manager.
	txManager := postgres.NewTxManager(pool)
	itemRepo := workitem.New(pool)
	sessionRepo := worksession.New(pool)
	userRepo := userrepo.New(pool)
	eventRepo := outboxrepo.New(pool)

	clock := clockwork.NewRealClock()
	policy := domain.TrackingPolicy{
		MaxActiveItems:      cfg.Tracking.MaxActiveItems,
		InactivityThreshold: cfg.Tracking.InactivityThreshold,
		ReworkFallbackRatio: cfg.Tracking.ReworkFallbackRatio,
	}

	// Services.
	trackingSvc := tracking.NewService(logger, itemRepo, sessionRepo, userRepo, eventRepo, txManager, clock, policy)
	approvalSvc := approval.NewService(logger, itemRepo, userRepo, eventRepo, txManager, clock)
	dispatcher := outboxsvc.NewDispatcher(logger, eventRepo, outboxsvc.NewLogNotifier(logger), txManager,
		clock, cfg.Outbox.PollInterval, cfg.Outbox.BatchSize)

	jwtManager := auth.NewJWTManager(cfg.Auth.JWTSecret, cfg.Auth.JWTIssuer, cfg.Auth.AccessTokenTTL)

	// Background workers.
	workerCtx, stopWorkers := context.WithCancel(context.Background())
	defer stopWorkers()

	go dispatcher.Run(workerCtx)
	if cfg.Tracking.SweepInterval > 0 {
		go runSweeper(workerCtx, logger, trackingSvc, cfg.Tracking.SweepInterval)
	}

	healthHandler := rest.NewHealthHandler(pool, BuildVersion())
	itemHandler := rest.NewWorkItemHandler(trackingSvc, logger)
	reviewHandler := rest.NewReviewHandler(approvalSvc, logger)

	rateLimiter := middleware.NewRateLimiter(time.Minute)
	defer rateLimiter.Stop()

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      newRouter(cfg, logger, jwtManager, rateLimiter, healthHandler, itemHandler, reviewHandler),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("http server listening", slog.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	stopWorkers()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown http server: %w", err)
	}

	return nil
}

// newRouter builds the HTTP mux with the shared middleware chain applied.
func newRouter(
	cfg *config.Config,
	logger *slog.Logger,
	jwtManager *auth.JWTManager,
	rateLimiter *middleware.RateLimiter,
	healthHandler *rest.HealthHandler,
	itemHandler *rest.WorkItemHandler,
	reviewHandler *rest.ReviewHandler,
) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /live", healthHandler.Live)
	mux.HandleFunc("GET /ready", healthHandler.Ready)
	mux.HandleFunc("GET /health", healthHandler.Health)

	mux.HandleFunc("POST /api/v1/items", itemHandler.Create)
	mux.HandleFunc("GET /api/v1/items", itemHandler.List)
	mux.HandleFunc("GET /api/v1/items/{id}", itemHandler.Get)
	mux.HandleFunc("POST /api/v1/items/{id}/start", itemHandler.Start)
	mux.HandleFunc("POST /api/v1/items/{id}/pause", itemHandler.Pause)
	mux.HandleFunc("POST /api/v1/items/{id}/resume", itemHandler.Resume)
	mux.HandleFunc("POST /api/v1/items/{id}/resume-auto-paused", itemHandler.ResumeAutoPaused)
	mux.HandleFunc("POST /api/v1/items/{id}/finish", itemHandler.Finish)
	mux.HandleFunc("GET /api/v1/items/{id}/time", itemHandler.Time)
	mux.HandleFunc("GET /api/v1/items/{id}/sessions", itemHandler.Sessions)
	mux.HandleFunc("POST /api/v1/items/{id}/review", reviewHandler.TeamLeadReview)
	mux.HandleFunc("POST /api/v1/items/{id}/qa-review", reviewHandler.QAReview)
	mux.HandleFunc("POST /api/v1/items/{id}/final-review", reviewHandler.TeamLeadFinalReview)
	mux.HandleFunc("GET /api/v1/users/me/active-count", itemHandler.ActiveCount)

	mws := []middleware.Middleware{
		middleware.RequestID,
		middleware.Logger(logger),
		middleware.Recovery(logger),
		middleware.CORS(cfg.CORS),
	}
	if cfg.Server.RateLimitPerMinute > 0 {
		mws = append(mws, rateLimiter.Limit(cfg.Server.RateLimitPerMinute))
	}
	mws = append(mws, middleware.Auth(jwtManager))

	return middleware.Chain(mws...)(mux)
}

// runSweeper runs the inactivity auto-pause sweep on a fixed interval. Cron
// deployments disable it and invoke cmd/autopause instead.
func runSweeper(ctx context.Context, logger *slog.Logger, svc *tracking.Service, interval time.Duration) {
	logger.Info("auto-pause sweeper started", slog.Duration("interval", interval))

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info("auto-pause sweeper stopped")
			return
		case <-ticker.C:
			if _, err := svc.RunAutoPauseSweep(ctx); err != nil {
				logger.Error("auto-pause sweep failed", slog.Any("error", err))
			}
		}
	}
}
