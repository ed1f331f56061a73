package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"paypal-billing-orchestrator/internal/config"
	pg "paypal-billing-orchestrator/internal/infra/db/postgres"
	"paypal-billing-orchestrator/internal/infra/logging"
	"paypal-billing-orchestrator/internal/infra/metrics"
	"paypal-billing-orchestrator/internal/infra/paypal"
	"paypal-billing-orchestrator/internal/infra/queue"
	red "paypal-billing-orchestrator/internal/infra/redis"
	"paypal-billing-orchestrator/internal/infra/sched"
	"paypal-billing-orchestrator/internal/infra/wallet"
	"paypal-billing-orchestrator/internal/infra/web"
	"paypal-billing-orchestrator/internal/infra/worker"
	"paypal-billing-orchestrator/internal/usecase"
)

var (
	version = "dev"
	commit  = "none"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ---- CLI flags ----
	cfgPath := flag.String("config", "config.yaml", "path to YAML config file")
	devMode := flag.Bool("dev", false, "enable developer mode")
	flag.Parse()

	cfg, err := config.LoadConfig(*cfgPath, *devMode)
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger := logging.New(cfg.Log, cfg.Runtime.Dev)
	if cfg.Runtime.Dev {
		logger.Info().Msg("developer mode enabled")
	}

	metrics.MustRegister()
	metrics.SetBuildInfo(version, commit)

	// ---- Postgres ----
	pool, err := pg.NewPgxPool(ctx, cfg.Database.URL, cfg.Database.PoolSize)
	if err != nil {
		logger.Fatal().Err(err).Msg("postgres connect failed")
	}
	defer pool.Close()

	// ---- Redis ----
	redisClient, err := red.NewClient(ctx, &cfg.Redis)
	if err != nil {
		logger.Fatal().Err(err).Msg("redis connect failed")
	}
	defer redisClient.Close()
	priceCache := red.NewPriceCache(redisClient, cfg.Redis.PriceTTL)

	// ---- Repositories ----
	txManager := pg.NewTxManager(pool)
	mandateRepo := pg.NewMandateRepo(pool)
	paymentRepo := pg.NewPaymentRepo(pool)
	provisionRepo := pg.NewProvisioningErrorRepo(pool)
	notifLogRepo := pg.NewNotificationLogRepo(pool)

	// ---- Gateways ----
	processor, err := paypal.NewNVPClient(&cfg.PayPal, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("paypal gateway init failed")
	}
	walletGW, err := wallet.NewClient(&cfg.Wallet, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("wallet gateway init failed")
	}
	rewardQueue := queue.NewBeanstalkQueue(&cfg.Beanstalk, logger)
	defer rewardQueue.Close()
	verifier := paypal.NewIPNVerifier(&cfg.PayPal)

	// ---- Use cases ----
	pricingUC := usecase.NewPricingUseCase(walletGW, priceCache, logger)
	mandateUC := usecase.NewMandateUseCase(
		usecase.MandateConfig{
			CurrencyCode:     cfg.PayPal.CurrencyCode,
			RedirectBaseURL:  cfg.PayPal.RedirectURL,
			MandateNotifyURL: cfg.PayPal.IPN.MandateURL,
			ChargeNotifyURL:  cfg.PayPal.IPN.ChargeURL,
			MultipleMandates: cfg.PayPal.MultipleMandates,
		},
		txManager, mandateRepo, paymentRepo, provisionRepo,
		processor, walletGW, rewardQueue, pricingUC, logger,
	)
	webhookUC := usecase.NewWebhookUseCase(mandateRepo, paymentRepo, notifLogRepo, logger)

	// ---- Reconciliation monitor ----
	monitor := sched.NewReconciliationMonitor(5*time.Minute, mandateRepo, provisionRepo, logger)
	go func() { _ = monitor.Run(ctx) }()

	// ---- Notification dispatch workers ----
	dispatchPool := worker.NewPool(cfg.Worker.Count, logger)
	dispatchPool.Start(ctx)
	defer dispatchPool.Stop()

	// ---- Pool stats gauge ----
	go func() {
		t := time.NewTicker(15 * time.Second)
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				st := pool.Stat()
				metrics.SetDBPoolStats(st.TotalConns(), st.IdleConns(), st.AcquiredConns())
			}
		}
	}()

	// ---- HTTP server ----
	srv := web.NewServer(mandateUC, webhookUC, verifier, dispatchPool, cfg.PayPal.Sandbox, cfg.PayPal.IPN.Verify, logger)
	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: srv.Router(),
	}
	go func() {
		logger.Info().Str("addr", server.Addr).Msg("http server listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error().Err(err).Msg("http server stopped")
		}
	}()

	<-ctx.Done()
	logger.Info().Msg("shutdown requested")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("http shutdown failed")
	}
}
