package service

import (
	"context"
	"time"

	"github.com/commercium-dev/storefront/internal/logging"
)

const (
	TopicCartEvents = "cart_events"
	TopicUserEvents = "user_events"
)

// EventPublisher is satisfied by mykafka.Producer. Publishing is best-effort:
// a broker outage must never fail a request that already committed.
type EventPublisher interface {
	PublishEvent(ctx context.Context, topic, key string, event any) error
}

func publish(ctx context.Context, p EventPublisher, topic, key string, event map[string]any) {
	if p == nil {
		return
	}
	pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := p.PublishEvent(pubCtx, topic, key, event); err != nil {
		logging.FromContext(ctx).Error("kafka publish error", "topic", topic, "error", err)
	}
}
