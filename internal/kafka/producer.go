package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"ms-invites/internal/models"

	"github.com/segmentio/kafka-go"
)

// MessageWriter is the part of *kafka.Writer the producer relies on.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type Producer struct {
	Writer MessageWriter
}

// NewProducer returns a producer whose writer routes each message to the
// topic set on it, hashing keys so one ticket always lands on one partition.
func NewProducer(brokers []string) *Producer {
	writer := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireOne,
		AllowAutoTopicCreation: true,
		BatchTimeout:           50 * time.Millisecond,
	}
	return &Producer{Writer: writer}
}

// Publish sends a single message.
func (p *Producer) Publish(ctx context.Context, topic, key string, value []byte) error {
	return p.Writer.WriteMessages(ctx, kafka.Message{
		Topic: topic,
		Key:   []byte(key),
		Value: value,
	})
}

// PublishTicketIssued streams a ticket issuance event keyed by ticket id.
func (p *Producer) PublishTicketIssued(ctx context.Context, event models.TicketIssuedEvent) error {
	value, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal ticket issued event: %w", err)
	}
	return p.Publish(ctx, models.TopicTicketIssued, strconv.FormatInt(event.TicketID, 10), value)
}

// PublishTicketsPurged streams the delete-all event.
func (p *Producer) PublishTicketsPurged(ctx context.Context, event models.TicketsPurgedEvent) error {
	value, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal tickets purged event: %w", err)
	}
	return p.Publish(ctx, models.TopicTicketsPurged, "purge", value)
}

func (p *Producer) Close() error {
	return p.Writer.Close()
}
