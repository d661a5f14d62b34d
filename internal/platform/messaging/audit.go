package messaging

import (
	"context"
	"log/slog"

	"artix/internal/platform/metrics"
	"artix/internal/shared/events"
)

// AuditConsumer logs and counts every domain event on the contest, auction
// and allowance topics.
type AuditConsumer struct {
	Bus    *Bus
	Logger *slog.Logger
}

const auditConsumerName = "artix-audit"

func (c AuditConsumer) Start(ctx context.Context) error {
	logger := c.Logger
	if logger == nil {
		logger = slog.Default()
	}
	for _, topic := range []string{events.TopicContest, events.TopicAuction, events.TopicAllowance} {
		if err := c.Bus.Subscribe(ctx, topic, auditConsumerName, func(_ context.Context, event events.Envelope) error {
			metrics.EventsObserved.WithLabelValues(event.EventType).Inc()
			logger.Info("domain event observed",
				"event", "audit_event_observed",
				"module", "internal/platform/messaging",
				"layer", "platform",
				"topic", topic,
				"event_id", event.EventID,
				"event_type", event.EventType,
				"entity_type", event.EntityType,
				"entity_id", event.EntityID,
				"correlation_id", event.CorrelationID,
			)
			return nil
		}); err != nil {
			return err
		}
	}
	return nil
}
