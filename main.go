package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"payouts/config"
	"payouts/controllers"
	"payouts/jobs"
	"payouts/routes"
	"payouts/services"
	"payouts/services/audit"
	"payouts/services/events"
	"payouts/services/notification"
)

// @title                       Payouts API
// @version                     1.0
// @description                 Provider earnings ledger and withdrawal settlement.
// @BasePath                    /api/v1
// @securityDefinitions.apikey  BearerAuth
// @in                          header
// @name                        Authorization
func main() {
	config.LoadEnv()
	cfg := config.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := config.InitApp(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to initialize app: %v", err)
	}
	defer app.Close()
	logger := app.Logger

	runner := services.NewTxRunner(services.TxRunnerOptions{
		DB:          app.DB,
		Logger:      logger,
		MaxAttempts: cfg.TxMaxAttempts,
		Backoff:     cfg.TxBackoff,
	})

	var auditor audit.Recorder
	if app.Mongo != nil {
		auditor = audit.NewMongoRecorder(app.Mongo, cfg.MongoDB)
	}

	var publisher events.Publisher
	if app.Rabbit != nil {
		ch, err := app.Rabbit.Channel()
		if err != nil {
			log.Fatalf("Failed to open RabbitMQ channel: %v", err)
		}
		p, err := events.NewRabbitMQPublisher(ch, cfg.EventsExchange)
		if err != nil {
			log.Fatalf("Failed to initialize event publisher: %v", err)
		}
		publisher = p
	}

	var receipts services.ReceiptUploader
	if app.Cloudinary != nil {
		receipts = services.NewCloudinaryReceiptUploader(app.Cloudinary, cfg.ReceiptsFolder)
	}

	var idempotency services.IdempotencyStore
	if app.Redis != nil {
		idempotency = services.NewRedisIdempotencyStore(app.Redis)
	}

	store := services.NewWithdrawalStore(app.DB)
	balance := services.NewBalanceCalculator()
	ledger := services.NewLedgerService(services.LedgerServiceOptions{
		Runner:  runner,
		Logger:  logger,
		Auditor: auditor,
	})
	workflow := services.NewWithdrawalWorkflow(services.WithdrawalWorkflowOptions{
		Runner:    runner,
		Store:     store,
		Balance:   balance,
		Logger:    logger,
		Publisher: publisher,
		Auditor:   auditor,
		Notifier:  notification.NewMelodyService(app.Melody),
	})
	authority := services.NewSettlementAuthority(services.SettlementAuthorityOptions{
		Workflow: workflow,
		Ledger:   ledger,
		Store:    store,
		Balance:  balance,
		Runner:   runner,
		Receipts: receipts,
		Auditor:  auditor,
		Logger:   logger,
	})

	reconciler := jobs.NewReconciler(app.DB, logger, cfg.StaleAfter)
	if err := jobs.InitCronJobs(app.Cron, cfg.ReconcileCron, reconciler, logger); err != nil {
		log.Fatalf("Failed to initialize cron jobs: %v", err)
	}

	if app.Rabbit != nil {
		consumer, err := jobs.NewOrderCompletedConsumer(app.Rabbit, cfg.EventsExchange, cfg.OrderEventsQueue, ledger, logger)
		if err != nil {
			log.Fatalf("Failed to initialize order consumer: %v", err)
		}
		defer consumer.Close()
		go func() {
			if err := consumer.Run(ctx); err != nil {
				logger.Error("order consumer stopped: %v", err)
			}
		}()
	}

	tokens := services.NewTokenService(cfg.JWTSecret)
	routes.SetupRoutes(app.Router, routes.Dependencies{
		Withdrawals:    controllers.NewWithdrawalController(authority, logger),
		Tokens:         tokens,
		Idempotency:    idempotency,
		IdempotencyTTL: cfg.IdempotencyTTL,
		Logger:         logger,
		Zap:            logger.Zap(),
	})
	config.InitWebSocket(app.Router, app.Melody, tokens, logger)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           app.Router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		logger.Info("Server starting on port %s...", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server failed: %v", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed: %v", err)
	}
}
