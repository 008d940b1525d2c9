package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/sirupsen/logrus"

	"portal-notification-service/internal/config"
	"portal-notification-service/internal/models"
	"portal-notification-service/internal/notification"
)

// Consumer reads notification events from Kafka and feeds them to the
// engine.
type Consumer struct {
	reader *kafka.Reader
	svc    *notification.Service
	logger *logrus.Logger
}

// NewConsumer constructs a consumer on the configured topic.
func NewConsumer(cfg config.Config, svc *notification.Service) *Consumer {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:           []string{cfg.Kafka.Broker},
		GroupID:           cfg.Kafka.GroupID,
		Topic:             cfg.Kafka.Topic,
		MinBytes:          1e3,
		MaxBytes:          10e6,
		SessionTimeout:    10 * time.Second,
		HeartbeatInterval: 3 * time.Second,
	})
	return &Consumer{reader: reader, svc: svc, logger: svc.Logger()}
}

// Start runs the consume loop until the context is cancelled. Fetch errors
// back off exponentially; handler errors are logged and the message is
// committed so a malformed event cannot wedge the partition.
func (c *Consumer) Start(ctx context.Context, wg *sync.WaitGroup) {
	wg.Add(1)
	go func() {
		defer wg.Done()
		c.logger.Info("Kafka consumer started")

		backoff := 200 * time.Millisecond
		const maxBackoff = 5 * time.Second

		for {
			select {
			case <-ctx.Done():
				c.logger.Info("Kafka consumer stopped")
				return
			default:
			}

			msg, err := c.reader.FetchMessage(ctx)
			if err != nil {
				if ctx.Err() != nil {
					c.logger.Info("Kafka consumer stopped")
					return
				}
				if !errors.Is(err, io.EOF) {
					c.logger.Errorf("Fetch message failed: %v", err)
				}
				time.Sleep(backoff)
				if backoff < maxBackoff {
					backoff *= 2
				}
				continue
			}
			backoff = 200 * time.Millisecond

			c.handleMessage(ctx, msg.Value)

			if err := c.reader.CommitMessages(ctx, msg); err != nil && ctx.Err() == nil {
				c.logger.Errorf("Commit failed: %v", err)
			}
		}
	}()
}

// handleMessage decodes and submits one event. Structurally invalid events
// are logged and dropped, never retried.
func (c *Consumer) handleMessage(ctx context.Context, value []byte) {
	var ev models.Event
	if err := json.Unmarshal(value, &ev); err != nil {
		c.logger.Errorf("Unmarshal event failed: %v", err)
		return
	}

	if err := c.svc.Submit(ctx, ev.ToNotification()); err != nil {
		if notification.IsValidationError(err) {
			c.logger.Errorf("Rejected event from %s: %v", ev.Source, err)
			return
		}
		c.logger.Errorf("Submit failed for event from %s: %v", ev.Source, err)
	}
}

// Close shuts the underlying reader down.
func (c *Consumer) Close() {
	if err := c.reader.Close(); err != nil {
		c.logger.Errorf("Kafka reader close failed: %v", err)
	}
}
