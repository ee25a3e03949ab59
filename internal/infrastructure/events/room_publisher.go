package events

import (
	"context"
	"encoding/json"
	"sync/atomic"
	"time"

	"github.com/hilthontt/kickroom/internal/domain"
	"github.com/hilthontt/kickroom/internal/infrastructure/contracts"
	"github.com/hilthontt/kickroom/internal/infrastructure/logging"
)

const publishTimeout = 5 * time.Second

type Publisher interface {
	PublishMessage(ctx context.Context, routingKey string, message contracts.AmqpMessage) error
}

// RoomPublisher forwards room audit events to the broker from its own
// goroutine. Publish never blocks the room: when the buffer is full the event
// is dropped and counted.
type RoomPublisher struct {
	publisher Publisher
	logger    logging.Logger
	queue     chan domain.AuditEvent
	dropped   atomic.Int64
}

func NewRoomPublisher(publisher Publisher, buffer int, logger logging.Logger) *RoomPublisher {
	return &RoomPublisher{
		publisher: publisher,
		logger:    logger,
		queue:     make(chan domain.AuditEvent, buffer),
	}
}

func (p *RoomPublisher) Publish(ev domain.AuditEvent) {
	select {
	case p.queue <- ev:
	default:
		p.dropped.Add(1)
	}
}

// Dropped reports how many events were lost to a full buffer.
func (p *RoomPublisher) Dropped() int64 {
	return p.dropped.Load()
}

// Run publishes queued events until ctx is done.
func (p *RoomPublisher) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-p.queue:
			p.publish(ctx, ev)
		}
	}
}

func (p *RoomPublisher) publish(ctx context.Context, ev domain.AuditEvent) {
	data, err := json.Marshal(ev)
	if err != nil {
		p.logger.Error(logging.RabbitMQ, logging.Publish, "failed to marshal audit event", map[logging.ExtraKey]any{
			logging.EventType:    string(ev.Kind),
			logging.ErrorMessage: err.Error(),
		})
		return
	}

	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	err = p.publisher.PublishMessage(ctx, string(ev.Kind), contracts.AmqpMessage{
		MemberID: ev.MemberID,
		Data:     data,
	})
	if err != nil {
		p.logger.Warn(logging.RabbitMQ, logging.Publish, "failed to publish audit event", map[logging.ExtraKey]any{
			logging.EventType:    string(ev.Kind),
			logging.MemberID:     ev.MemberID,
			logging.ErrorMessage: err.Error(),
		})
	}
}
