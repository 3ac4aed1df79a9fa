package kafka

import (
	"context"
	"encoding/json"
	"fmt"

	"ms-queueskip/internal/models"

	"github.com/segmentio/kafka-go"
)

type Producer struct {
	Writer *kafka.Writer
}

func NewProducer(brokers []string, topic string) *Producer {
	writer := kafka.NewWriter(kafka.WriterConfig{
		Brokers: brokers,
		Topic:   topic,
	})
	return &Producer{Writer: writer}
}

// PublishPaymentOutcome streams a payment result onto the outcome topic for
// the reconciler to consume. Keyed by session id so redeliveries for the
// same checkout land on the same partition in order.
func (p *Producer) PublishPaymentOutcome(ctx context.Context, outcome models.PaymentOutcome) error {
	msgBytes, err := json.Marshal(outcome)
	if err != nil {
		return err
	}

	fmt.Printf("Publishing to Kafka [payment_outcome]: %s\n", string(msgBytes))

	return p.Writer.WriteMessages(ctx,
		kafka.Message{
			Key:   []byte(outcome.SessionID),
			Value: msgBytes,
		},
	)
}

// PublishSaleConfirmed streams a confirmed sale event for downstream
// consumers such as email dispatch and reporting.
func (p *Producer) PublishSaleConfirmed(ctx context.Context, event models.SaleConfirmedEvent) error {
	msgBytes, err := json.Marshal(event)
	if err != nil {
		return err
	}

	fmt.Printf("Publishing to Kafka [sale_confirmed]: %s\n", string(msgBytes))

	return p.Writer.WriteMessages(ctx,
		kafka.Message{
			Key:   []byte(event.SessionID),
			Value: msgBytes,
		},
	)
}

func (p *Producer) Close() error {
	return p.Writer.Close()
}
