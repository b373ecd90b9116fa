package service

import (
	"context"

	"github.com/richardliu001/event-stream-service/internal/model"
	"github.com/richardliu001/event-stream-service/internal/repo"
	"go.uber.org/zap"
)

// Publisher appends domain-change events to the durable log. The write is
// synchronous: once Publish returns true, a stream connection polling
// immediately after will observe the event.
type Publisher struct {
	repo repo.RepositoryInterface
	log  *zap.SugaredLogger
}

// NewPublisher returns Publisher.
func NewPublisher(r repo.RepositoryInterface, logger *zap.SugaredLogger) *Publisher {
	return &Publisher{repo: r, log: logger}
}

// Publish appends one event. It never returns an error: a persistence
// failure is logged and reported as false so the business operation that
// triggered the event is not aborted by a broken notification path.
func (p *Publisher) Publish(ctx context.Context, channel, eventType string, payload map[string]interface{}, actorID *uint64) bool {
	if channel == "" || eventType == "" {
		p.log.Warnw("publish rejected", "channel", channel, "event_type", eventType)
		return false
	}
	evt := &model.Event{
		Channel:   channel,
		EventType: eventType,
		Payload:   payload,
		ActorID:   actorID,
	}
	if err := p.repo.AppendEvent(ctx, evt); err != nil {
		p.log.Errorf("append event channel=%s type=%s: %v", channel, eventType, err)
		return false
	}
	return true
}
