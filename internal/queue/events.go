package queue

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/quangtm-dev/dirsubmit-be/internal/queue/domain"
	"github.com/quangtm-dev/dirsubmit-be/shared/rabbitmq"
)

// RabbitEventPublisher publishes job lifecycle events to the RabbitMQ topic
// exchange, routed by event type (job.created, job.claimed, ...).
type RabbitEventPublisher struct {
	client *rabbitmq.Client
}

// NewRabbitEventPublisher creates a publisher over an established client
func NewRabbitEventPublisher(client *rabbitmq.Client) *RabbitEventPublisher {
	return &RabbitEventPublisher{client: client}
}

// PublishJobEvent implements EventPublisher
func (p *RabbitEventPublisher) PublishJobEvent(ctx context.Context, event *domain.JobEvent) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal job event: %w", err)
	}
	return p.client.Publish(ctx, event.Type, body)
}
