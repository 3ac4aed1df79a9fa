package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"ms-queueskip/internal/models"

	"github.com/segmentio/kafka-go"
)

// messageSource is the slice of *kafka.Reader the consumer loop uses.
type messageSource interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type Consumer struct {
	reader messageSource
}

// NewConsumer creates a new Kafka consumer for the given topic and group
func NewConsumer(brokers []string, topic, groupID string) *Consumer {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  brokers,
		Topic:    topic,
		GroupID:  groupID,
		MinBytes: 10e3, // 10KB
		MaxBytes: 10e6, // 10MB
	})
	return &Consumer{reader: reader}
}

// Start consumes payment outcomes until ctx is cancelled. Offsets are
// committed only after the handler succeeds: the webhook already ACKed the
// provider once the outcome was enqueued, so a transiently failed outcome
// must stay uncommitted and be redelivered. Reconciliation is idempotent, so
// redelivery after a partial failure is safe. Malformed messages are
// committed and skipped; retrying cannot fix them.
func (c *Consumer) Start(ctx context.Context, handler func(ctx context.Context, outcome models.PaymentOutcome) error) {
	fmt.Println("🔄 Kafka payment outcome consumer started...")

	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				log.Println("Kafka consumer stopping: context cancelled")
				return
			}
			log.Printf("❌ Error reading message: %v\n", err)
			continue
		}

		var outcome models.PaymentOutcome
		if err := json.Unmarshal(msg.Value, &outcome); err != nil {
			log.Printf("⚠️ Failed to unmarshal message, skipping: %v\n", err)
			c.commit(ctx, msg)
			continue
		}

		log.Printf("📩 Received payment outcome: session=%s status=%s", outcome.SessionID, outcome.Status)
		if err := handler(ctx, outcome); err != nil {
			// Left uncommitted so the group redelivers it.
			log.Printf("❌ Failed to process payment outcome for session %s: %v", outcome.SessionID, err)
			continue
		}
		c.commit(ctx, msg)
	}
}

func (c *Consumer) commit(ctx context.Context, msg kafka.Message) {
	if err := c.reader.CommitMessages(ctx, msg); err != nil {
		log.Printf("⚠️ Failed to commit offset %d: %v", msg.Offset, err)
	}
}

// Close gracefully shuts down the Kafka reader
func (c *Consumer) Close() error {
	return c.reader.Close()
}
