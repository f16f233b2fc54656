package publisher

import (
	"context"
	"encoding/json"
	"log"

	"github.com/segmentio/kafka-go"
)

// EventPublisher is fire-and-forget: a lost event never fails the cart
// operation that produced it.
type EventPublisher interface {
	Publish(ctx context.Context, eventType, cartID string, payload any)
}

type KafkaPublisher struct {
	writer *kafka.Writer
}

func NewKafkaPublisher(topic string, brokers ...string) *KafkaPublisher {
	w := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.LeastBytes{},
		AllowAutoTopicCreation: true,
	}
	return &KafkaPublisher{writer: w}
}

func (p *KafkaPublisher) Publish(ctx context.Context, eventType, cartID string, payload any) {
	value, err := json.Marshal(payload)
	if err != nil {
		log.Printf("failed to marshal event %s for cart %s: %v", eventType, cartID, err)
		return
	}

	msg := kafka.Message{
		Key:   []byte(cartID), // cart id for ordering
		Value: value,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(eventType)},
		},
	}

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		log.Printf("failed to publish event %s for cart %s: %v", eventType, cartID, err)
	}
}

func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}
