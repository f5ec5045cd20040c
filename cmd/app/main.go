package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"agrolease-billing/internal/config"
	"agrolease-billing/internal/domain/ports/adapter"
	pg "agrolease-billing/internal/infra/db/postgres"
	gw "agrolease-billing/internal/infra/gateway"
	"agrolease-billing/internal/infra/logging"
	"agrolease-billing/internal/infra/metrics"
	red "agrolease-billing/internal/infra/redis"
	"agrolease-billing/internal/infra/sched"
	"agrolease-billing/internal/infra/web"
	"agrolease-billing/internal/infra/worker"
	"agrolease-billing/internal/usecase"
)

// poolScheduler adapts the worker pool to the use-case Scheduler port.
type poolScheduler struct{ pool *worker.Pool }

func (s poolScheduler) Submit(task func(ctx context.Context) error) error {
	return s.pool.Submit(worker.Task(task))
}

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger := logging.New(cfg.Log, cfg.Runtime.Dev)
	if cfg.Runtime.Dev {
		logger.Info().Msg("developer mode enabled")
	}

	metrics.MustRegister()

	// ---- Postgres ----
	pool := pg.MustConnect(cfg.Database.URL)
	defer pool.Close()

	// ---- Redis ----
	redisClient, err := red.NewClient(ctx, &cfg.Redis)
	if err != nil {
		logger.Fatal().Err(err).Msg("redis")
	}
	defer redisClient.Close()
	locker := red.NewLocker(redisClient)

	// ---- Repositories ----
	subscriberRepo := pg.NewSubscriberRepo(pool)
	offerRepo := pg.NewOfferRepo(pool)
	parcelRepo := pg.NewParcelRepo(pool)
	paymentRepo := pg.NewPaymentRepo(pool)
	transferRepo := pg.NewTransferRepo(pool)
	refundRepo := pg.NewRefundRepo(pool)
	eventRepo := pg.NewWebhookEventRepo(pool)
	txManager := pg.NewTxManager(pool)

	// ---- Gateway ----
	var paymentGateway adapter.PaymentGateway
	if cfg.Runtime.Dev && cfg.Gateway.BaseURL == "" {
		paymentGateway = gw.NewNoOpGateway()
		logger.Warn().Msg("no gateway base_url in dev mode, using noop gateway")
	} else {
		paymentGateway = gw.NewRestGateway(&cfg.Gateway)
	}

	// ---- Background pool ----
	taskPool := worker.NewPool(cfg.Sweep.Workers, logger)
	taskPool.Start(ctx)
	defer taskPool.Stop()

	// ---- Use cases ----
	accrualUC := usecase.NewAccrualUseCase(subscriberRepo, offerRepo, parcelRepo, paymentRepo, logger)
	activationUC := usecase.NewActivationUseCase(parcelRepo, time.Now, logger)
	reconcileUC := usecase.NewReconcileUseCase(paymentRepo, eventRepo, activationUC, poolScheduler{pool: taskPool}, time.Now, logger)
	paymentUC := usecase.NewPaymentUseCase(paymentRepo, parcelRepo, accrualUC, reconcileUC, paymentGateway, cfg.Gateway.CallbackURL, time.Now, logger)
	ledgerUC := usecase.NewLedgerUseCase(subscriberRepo, paymentRepo, parcelRepo, transferRepo, refundRepo, accrualUC, txManager, locker, time.Now, logger)

	// ---- HTTP server ----
	auth := web.NewAuthManager(cfg.API.JWTSecret, !cfg.Runtime.Dev, "", 30*time.Minute)
	srv := web.NewServer(paymentUC, accrualUC, ledgerUC, reconcileUC, auth, cfg.Gateway.WebhookSecret, logger)
	server := &http.Server{Addr: fmt.Sprintf(":%d", cfg.API.Port), Handler: srv.Router()}
	go func() {
		logger.Info().Str("addr", server.Addr).Msg("http listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error().Err(err).Msg("http server stopped")
		}
	}()

	// ---- Sweepers ----
	poller := sched.NewPendingPoller(paymentUC, paymentRepo, cfg.Sweep.PendingInterval, cfg.Sweep.PendingStaleAfter, logger)
	go poller.Start(ctx)
	sweeper := sched.NewActivationSweeper(activationUC, paymentRepo, cfg.Sweep.ActivationInterval, logger)
	go sweeper.Start(ctx)

	// ---- Graceful shutdown ----
	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)
	<-sigc
	logger.Info().Msg("shutdown requested")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("http shutdown")
	}
	cancel()
}
