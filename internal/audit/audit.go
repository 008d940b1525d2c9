package audit

import (
	"context"
	"encoding/json"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/sirupsen/logrus"

	"portal-notification-service/internal/models"
)

// Event is a fire-and-forget record of one delivery decision.
type Event struct {
	NotificationID string           `json:"notification_id"`
	RecipientID    string           `json:"recipient_id,omitempty"`
	Decision       string           `json:"decision"` // dispatched, digested, suppressed, expired
	Reason         string           `json:"reason,omitempty"`
	Channels       []models.Channel `json:"channels,omitempty"`
	Timestamp      time.Time        `json:"timestamp"`
}

// Recorder receives delivery decisions. Implementations are best-effort;
// failures must never block delivery.
type Recorder interface {
	Record(ctx context.Context, ev Event)
}

// LogRecorder writes audit events to the service log.
type LogRecorder struct {
	Log *logrus.Logger
}

func (r *LogRecorder) Record(_ context.Context, ev Event) {
	r.Log.WithFields(logrus.Fields{
		"notification_id": ev.NotificationID,
		"recipient_id":    ev.RecipientID,
		"decision":        ev.Decision,
		"reason":          ev.Reason,
		"channels":        ev.Channels,
	}).Info("Audit event")
}

// KafkaRecorder publishes audit events to a Kafka topic. Publish failures
// are logged and dropped.
type KafkaRecorder struct {
	writer *kafka.Writer
	log    *logrus.Logger
}

// NewKafkaRecorder constructs a recorder publishing to the given topic.
func NewKafkaRecorder(broker, topic string, log *logrus.Logger) *KafkaRecorder {
	return &KafkaRecorder{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(broker),
			Topic:        topic,
			Balancer:     &kafka.LeastBytes{},
			RequiredAcks: kafka.RequireOne,
			Async:        true,
		},
		log: log,
	}
}

func (r *KafkaRecorder) Record(ctx context.Context, ev Event) {
	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now()
	}
	payload, err := json.Marshal(ev)
	if err != nil {
		r.log.Errorf("Audit marshal failed: %v", err)
		return
	}
	msg := kafka.Message{Key: []byte(ev.NotificationID), Value: payload}
	if err := r.writer.WriteMessages(ctx, msg); err != nil {
		r.log.Errorf("Audit publish failed: %v", err)
	}
}

// Close flushes and closes the underlying writer.
func (r *KafkaRecorder) Close() error {
	return r.writer.Close()
}
