package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/elevatespaces/staging-api/internal/models"
	amqp "github.com/rabbitmq/amqp091-go"
)

const usageQueue = "usage.recorded"

// Publisher sends usage events to RabbitMQ for downstream consumers
// (analytics, billing exports). Delivery is best effort: the ledger has
// already committed, and a broker outage must never fail a request. Each
// publish dials its own connection so a dead broker only costs one attempt.
type Publisher struct {
	url string
}

func NewPublisher(url string) *Publisher {
	if url == "" {
		return nil
	}
	return &Publisher{url: url}
}

func (p *Publisher) PublishUsageRecorded(ctx context.Context, event *models.UsageEvent) error {
	if p == nil {
		return nil
	}

	conn, err := amqp.Dial(p.url)
	if err != nil {
		return fmt.Errorf("failed to connect to broker: %w", err)
	}
	defer conn.Close()

	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("failed to open channel: %w", err)
	}
	defer ch.Close()

	if _, err := ch.QueueDeclare(usageQueue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("failed to declare queue: %w", err)
	}

	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	err = ch.PublishWithContext(ctx, "", usageQueue, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    event.ID.String(),
		Body:         body,
	})
	if err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}

	log.Printf("published usage event %s to %s", event.ID, usageQueue)
	return nil
}
