package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"portal-notification-service/internal/api"
	"portal-notification-service/internal/audit"
	"portal-notification-service/internal/config"
	"portal-notification-service/internal/db"
	"portal-notification-service/internal/kafka"
	"portal-notification-service/internal/logging"
	"portal-notification-service/internal/models"
	"portal-notification-service/internal/notification"
	"portal-notification-service/internal/providers"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := logging.New(cfg.Logging.Dir, cfg.Logging.Level)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	logger.Info("Starting notification service")

	database, err := db.New(cfg.DB.DSN)
	if err != nil {
		logger.Fatalf("Failed to connect to database: %v", err)
	}
	defer database.Close()

	templates := notification.NewTemplateStore()
	stored, err := database.LoadTemplates(context.Background())
	if err != nil {
		logger.Fatalf("Failed to load templates: %v", err)
	}
	for _, t := range stored {
		if err := templates.Register(t); err != nil {
			logger.Errorf("Skipping template %s: %v", t.Type, err)
		}
	}
	logger.Infof("Loaded %d notification templates", len(stored))

	hub := providers.NewHub(logger)
	senders := map[models.Channel]notification.Sender{
		models.ChannelInApp:    providers.NewInAppSender(hub),
		models.ChannelEmail:    providers.NewEmailSender(cfg, database),
		models.ChannelSMS:      providers.NewSMSSender(cfg, database),
		models.ChannelPush:     providers.NewPushSender(cfg, database),
		models.ChannelWebhook:  providers.NewWebhookSender(database),
		models.ChannelTelegram: providers.NewTelegramSender(cfg, database),
	}

	router := notification.NewRouter(database, templates, senders, cfg.Notification.SendTimeout, logger)
	router.SetDefaultRetryPolicy(notification.RetryPolicy{
		MaxAttempts:    cfg.Notification.MaxAttempts,
		InitialBackoff: cfg.Notification.RetryBackoff,
		MaxBackoff:     notification.DefaultRetryPolicy.MaxBackoff,
	})
	router.SetRetryPolicy(models.ChannelInApp, notification.RetryPolicy{MaxAttempts: 1})

	recorder := audit.NewKafkaRecorder(cfg.Kafka.Broker, cfg.Kafka.AuditTopic, logger)
	defer recorder.Close()

	digest := notification.NewDigestScheduler()
	svc := notification.New(database, database, templates, database, router, digest, recorder, logger, cfg)

	var wg sync.WaitGroup
	svc.Start(&wg)

	ctx, cancel := context.WithCancel(context.Background())
	consumer := kafka.NewConsumer(cfg, svc)
	consumer.Start(ctx, &wg)

	engine := api.NewRouter(logger, cfg, api.NewHandler(database, svc, hub, logger))
	go func() {
		if err := engine.Run(cfg.API.Port); err != nil {
			logger.Fatalf("API server failed: %v", err)
		}
	}()
	logger.Infof("API listening on %s", cfg.API.Port)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down")
	cancel()
	consumer.Close()
	svc.Close()
	wg.Wait()
	logger.Info("Shutdown complete")
}
