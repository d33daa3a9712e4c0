package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"gopkg.in/telebot.v3"

	"trackmed/internal/app"
	"trackmed/internal/domain/delivery"
	"trackmed/internal/infra/config"
	idb "trackmed/internal/infra/database"
	idelivery "trackmed/internal/infra/delivery"
	ihttp "trackmed/internal/infra/http"
	"trackmed/internal/infra/logger"
	"trackmed/internal/infra/queue"
	"trackmed/internal/infra/scheduler"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: could not load application configuration: %v\n", err)
		os.Exit(1)
	}

	logger.Init(cfg)
	mainLog := logger.Component("main")
	mainLog.WithFields(map[string]interface{}{
		"environment": cfg.Environment,
		"timezone":    cfg.ReminderTimezone.String(),
	}).Info("Configuration loaded")

	db, err := idb.NewPostgresConnection(cfg.DatabaseURL, idb.PoolConfig{
		MaxOpenConns:    cfg.DBMaxOpenConns,
		MaxIdleConns:    cfg.DBMaxIdleConns,
		ConnMaxLifetime: cfg.DBConnMaxLifetime,
	})
	if err != nil {
		mainLog.WithError(err).Fatal("Could not connect to database")
	}
	defer db.Close()
	mainLog.Info("Database connection established")

	userRepo := idb.NewPostgresUserRepository(db)
	medRepo := idb.NewPostgresMedicationRepository(db)
	remRepo := idb.NewPostgresReminderRepository(db)

	senders := buildSenders(cfg, mainLog)

	medService := app.NewMedicationService(medRepo, remRepo, userRepo, cfg.ReminderTimezone, logger.Component("medication_service"))
	remService := app.NewReminderService(remRepo, cfg.ReminderTimezone, cfg.SnoozeGrace, logger.Component("reminder_service"))
	reportService := app.NewReportService(medService, remRepo, cfg.ReminderTimezone, logger.Component("report_service"))
	dispatchService := app.NewDispatchService(remRepo, medRepo, userRepo, senders, cfg.PublicHost, cfg.DeliveryTimeout, logger.Component("dispatch_service"))

	dispatchQueue, err := queue.NewRedisQueue(queue.Config{
		Addr:        cfg.RedisAddr,
		Password:    cfg.RedisPassword,
		DB:          cfg.RedisDB,
		MaxAttempts: cfg.QueueMaxAttempts,
		RetryDelay:  cfg.QueueRetryDelay,
		Workers:     cfg.QueueWorkers,
	}, logger.Component("queue"))
	if err != nil {
		mainLog.WithError(err).Fatal("Could not connect to Redis")
	}
	defer dispatchQueue.Close()
	mainLog.Info("Redis dispatch queue initialized")

	workerCtx, stopWorkers := context.WithCancel(context.Background())
	dispatchQueue.Start(workerCtx, func(ctx context.Context, task *queue.Task) error {
		if task.Type != queue.TaskTypeDispatch {
			return fmt.Errorf("unknown task type %q", task.Type)
		}
		var job app.DispatchJob
		if err := json.Unmarshal(task.Payload, &job); err != nil {
			return fmt.Errorf("failed to decode dispatch job: %w", err)
		}
		return dispatchService.Process(ctx, job)
	})

	remScheduler := scheduler.NewReminderScheduler(remRepo, dispatchQueue, logger.Component("scheduler"))
	remScheduler.Start()

	medHandler := ihttp.NewMedicationHandler(medService, reportService)
	remHandler := ihttp.NewReminderHandler(remService)
	router := ihttp.InitRoutes(medHandler, remHandler, logger.Component("http"))
	router.GET("/health", func(c *gin.Context) {
		dlq, err := dispatchQueue.DLQLength(c.Request.Context())
		if err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok", "dead_letter_tasks": dlq})
	})

	srv := &http.Server{
		Addr:    ":" + cfg.HTTPPort,
		Handler: router,
	}
	go func() {
		mainLog.WithField("addr", srv.Addr).Info("HTTP server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			mainLog.WithError(err).Fatal("HTTP server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	mainLog.Info("Shutting down application...")
	remScheduler.Stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		mainLog.WithError(err).Error("HTTP server shutdown failed")
	}

	stopWorkers()
	mainLog.Info("Application shut down gracefully")
}

// buildSenders wires one sender per configured channel. A channel whose
// credentials are absent stays unwired; dispatch reports it as a
// delivery failure instead of crashing at startup.
func buildSenders(cfg *config.AppConfig, log *logrus.Entry) map[delivery.Channel]delivery.Sender {
	senders := make(map[delivery.Channel]delivery.Sender)

	if cfg.SMTPHost != "" && cfg.EmailAddress != "" {
		senders[delivery.ChannelEmail] = idelivery.NewEmailSender(cfg.SMTPHost, cfg.SMTPPort, cfg.EmailAddress, cfg.EmailPassword)
		log.Info("Email sender initialized")
	}

	if cfg.WhapiToken != "" {
		senders[delivery.ChannelWhatsApp] = idelivery.NewWhatsAppSender(cfg.WhapiToken)
		log.Info("WhatsApp sender initialized")
	}

	if cfg.TelegramToken != "" {
		bot, err := telebot.NewBot(telebot.Settings{
			Token:  cfg.TelegramToken,
			Poller: &telebot.LongPoller{Timeout: 10 * time.Second},
		})
		if err != nil {
			log.WithError(err).Fatal("Could not create Telegram bot")
		}
		senders[delivery.ChannelTelegram] = idelivery.NewTelegramSender(bot)
		log.Info("Telegram sender initialized")
	}

	if len(senders) == 0 {
		log.Warn("No delivery channels configured; reminders will fail to send")
	}

	return senders
}
