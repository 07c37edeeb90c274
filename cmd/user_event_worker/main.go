package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/oksasatya/medrecords-users/config"
	"github.com/oksasatya/medrecords-users/internal/infrastructure/archive"
	"github.com/oksasatya/medrecords-users/internal/infrastructure/messaging"
	"github.com/oksasatya/medrecords-users/internal/infrastructure/search"
	"github.com/oksasatya/medrecords-users/internal/worker"
	"github.com/oksasatya/medrecords-users/pkg/helpers"
	"github.com/oksasatya/medrecords-users/pkg/mailer"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()
	logger := helpers.NewLogger(cfg.AppName+"-worker", cfg.Env)

	if !cfg.EventsEnabled || cfg.RabbitMQURL == "" {
		logger.Info("EVENTS_ENABLED=false or RABBITMQ_URL empty; user event worker disabled")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	h := &worker.UserEventHandler{Logger: logger}

	if addrs := cfg.ESAddrs(); len(addrs) > 0 {
		es, err := search.NewESClient(addrs, cfg.ElasticsearchUser, cfg.ElasticsearchPass)
		if err != nil {
			log.Fatalf("elasticsearch: %v", err)
		}
		h.Index = search.NewUserIndex(es, cfg.ESUsersIndex)
	}

	if cfg.GCSBucket != "" {
		gcs, err := archive.NewGCSClient(ctx, cfg.GCSCredentialsJSONPath)
		if err != nil {
			log.Fatalf("gcs: %v", err)
		}
		defer func() { _ = gcs.Close() }()
		h.Archive = archive.NewDeletedUserArchive(gcs, cfg.GCSBucket)
	}

	if cfg.MailConfigured() {
		mg := mailer.NewMailgun(cfg.MailgunDomain, cfg.MailgunAPIKey, cfg.MailgunSender)
		h.Notify = mailer.NewAuditNotifier(mg, cfg.AuditNotifyEmail, cfg.AppName)
	} else {
		logger.Info("mail not configured; audit notifications disabled")
	}

	consumer, err := messaging.NewConsumer(cfg.RabbitMQURL, cfg.RabbitMQUserEventsQueue, 16)
	if err != nil {
		log.Fatalf("amqp: %v", err)
	}
	defer consumer.Close()

	deliveries, err := consumer.Deliveries()
	if err != nil {
		log.Fatalf("consume: %v", err)
	}

	done := make(chan struct{})
	go func() {
		h.Run(ctx, deliveries)
		close(done)
	}()

	logger.Infof("user event worker listening on queue=%s", cfg.RabbitMQUserEventsQueue)
	select {
	case <-ctx.Done():
		logger.Info("shutting down...")
	case <-done:
		logger.Warn("delivery channel closed")
	}
	select {
	case <-done:
	case <-time.After(5 * time.Second):
	}
}
