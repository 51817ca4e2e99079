package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"blessbox/internal/config"
	"blessbox/internal/domain/ports/adapter"
	emailAdapters "blessbox/internal/infra/adapters/email"
	payAdapters "blessbox/internal/infra/adapters/payment"
	pg "blessbox/internal/infra/db/postgres"
	"blessbox/internal/infra/logging"
	"blessbox/internal/infra/metrics"
	red "blessbox/internal/infra/redis"
	"blessbox/internal/infra/sched"
	"blessbox/internal/infra/web"
	"blessbox/internal/usecase"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfgPath := flag.String("config", "config.yaml", "path to YAML config file")
	devMode := flag.Bool("dev", false, "enable developer mode (noop email and payment adapters)")
	flag.Parse()

	cfg, err := config.LoadConfig(*cfgPath, *devMode)
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger := logging.New(cfg.Log, cfg.Runtime.Dev)
	if cfg.Runtime.Dev {
		logger.Warn().Msg("dev mode enabled")
	}
	metrics.MustRegister()

	// ---- Postgres ----
	pool, err := pg.NewPgxPool(ctx, cfg.Database.URL, cfg.Database.MaxConns)
	if err != nil {
		logger.Fatal().Err(err).Msg("postgres")
	}
	defer pool.Close()

	// ---- Redis ----
	redisClient, err := red.NewClient(ctx, &cfg.Redis)
	if err != nil {
		logger.Fatal().Err(err).Msg("redis")
	}
	defer redisClient.Close()
	rateLimiter := red.NewRateLimiter(redisClient)
	locker := red.NewLocker(redisClient)

	// ---- Repositories ----
	orgRepo := pg.NewOrganizationRepo(pool)
	subRepo := pg.NewSubscriptionRepo(pool)
	couponRepo := pg.NewCouponRepo(pool)
	setRepo := pg.NewQRCodeSetRepo(pool)
	regRepo := pg.NewRegistrationRepo(pool)
	codeRepo := pg.NewVerificationCodeRepo(pool)
	txManager := pg.NewTxManager(pool)

	// ---- Adapters ----
	var mailer adapter.EmailSender
	if cfg.Runtime.Dev || cfg.Email.APIKey == "" {
		mailer = emailAdapters.NewNoopSender(logger)
	} else {
		mailer, err = emailAdapters.NewHTTPSender(cfg.Email.BaseURL, cfg.Email.APIKey, cfg.Email.From)
		if err != nil {
			logger.Fatal().Err(err).Msg("email sender")
		}
	}
	var gateway adapter.PaymentGateway
	if cfg.Runtime.Dev || cfg.Payment.Stripe.SecretKey == "" {
		gateway = payAdapters.NewNoopGateway()
	} else {
		gateway, err = payAdapters.NewStripeGateway(cfg.Payment.Stripe.SecretKey, cfg.Payment.Stripe.WebhookSecret)
		if err != nil {
			logger.Fatal().Err(err).Msg("stripe gateway")
		}
	}
	logger.Info().Str("payment", gateway.Name()).Msg("adapters ready")

	// ---- Use cases ----
	couponUC := usecase.NewCouponUseCase(couponRepo, txManager)
	usageUC := usecase.NewUsageUseCase(subRepo, setRepo, logger)
	subUC := usecase.NewSubscriptionUseCase(subRepo, couponUC, gateway, logger)
	regUC := usecase.NewRegistrationUseCase(orgRepo, setRepo, regRepo, usageUC, mailer, logger)
	verifyUC := usecase.NewVerificationUseCase(codeRepo, orgRepo, rateLimiter, mailer, logger)
	setUC := usecase.NewQRCodeSetUseCase(setRepo, regRepo, usageUC, logger)

	// ---- Finalizer worker ----
	finalizer := sched.NewFinalizerWorker(cfg.Scheduler.FinalizerInterval, subUC, locker, logger)
	go func() { _ = finalizer.Run(ctx) }()

	// ---- HTTP server ----
	sessions := web.NewSessionManager(cfg.Session.Secret, cfg.Session.CookieName, cfg.Session.TTL)
	srv := web.NewServer(
		couponUC, regUC, subUC, usageUC, verifyUC, setUC,
		gateway, sessions, finalizer,
		cfg.Server.CronToken,
		cfg.Payment.Stripe.SuccessURL, cfg.Payment.Stripe.CancelURL,
		logger,
	)
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      srv.Router(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	go func() {
		logger.Info().Str("addr", server.Addr).Msg("http server listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error().Err(err).Msg("http server stopped")
		}
	}()

	// ---- Graceful shutdown ----
	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)
	<-sigc
	logger.Info().Msg("shutdown requested")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("http shutdown")
	}
}
