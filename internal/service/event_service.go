package service

import (
	"context"
	"encoding/json"

	"github.com/itqanpos/ITQN/internal/clock"
	"github.com/itqanpos/ITQN/internal/logger"
	"github.com/itqanpos/ITQN/internal/model"
	"github.com/itqanpos/ITQN/internal/repository"

	"github.com/google/uuid"
	"github.com/samber/lo"
)

// Broadcaster pushes a message to every realtime client of a tenant.
type Broadcaster interface {
	BroadcastToTenant(tenantID uuid.UUID, message []byte)
}

// Websocket payload
type RealtimeEvent struct {
	ID    string                 `json:"id"`
	Event string                 `json:"event"`
	Data  map[string]interface{} `json:"data"`
}

// EventPublisher writes outbox events inside a transaction and pushes them
// to realtime clients once the transaction has committed.
type EventPublisher struct {
	eventRepo   repository.EventRepository
	broadcaster Broadcaster
	clock       clock.Clock
	log         *logger.Logger
}

// NewEventPublisher accepts a nil broadcaster; events then stay unpublished
// in the outbox for another relay.
func NewEventPublisher(eventRepo repository.EventRepository, broadcaster Broadcaster, clk clock.Clock, log *logger.Logger) *EventPublisher {
	return &EventPublisher{
		eventRepo:   eventRepo,
		broadcaster: broadcaster,
		clock:       clk,
		log:         log,
	}
}

// Record stores an event in the outbox using the transaction in ctx.
func (p *EventPublisher) Record(ctx context.Context, tenantID uuid.UUID, eventType string, payload map[string]interface{}) (model.OutboxEvent, error) {
	ev := model.OutboxEvent{
		TenantID: tenantID,
		Type:     eventType,
		Payload:  payload,
	}
	if err := p.eventRepo.Create(ctx, &ev); err != nil {
		return model.OutboxEvent{}, err
	}
	return ev, nil
}

// Flush broadcasts committed events and marks them published. Delivery is
// best effort; failures are logged and the events stay in the outbox.
func (p *EventPublisher) Flush(ctx context.Context, events []model.OutboxEvent) {
	if len(events) == 0 || p.broadcaster == nil {
		return
	}

	published := make([]uuid.UUID, 0, len(events))
	for _, ev := range events {
		msg, err := json.Marshal(RealtimeEvent{
			ID:    ev.ID.String(),
			Event: ev.Type,
			Data:  ev.Payload,
		})
		if err != nil {
			p.log.Errorw("failed to encode realtime event", "event_id", ev.ID, "error", err)
			continue
		}
		p.broadcaster.BroadcastToTenant(ev.TenantID, msg)
		published = append(published, ev.ID)
	}

	if err := p.eventRepo.MarkPublished(ctx, published, p.clock.Now()); err != nil {
		p.log.Warnw("failed to mark outbox events published", "count", len(published), "error", err)
	}
}

// RelayPending republishes events that committed but were never flushed,
// e.g. because the process stopped right after commit.
func (p *EventPublisher) RelayPending(ctx context.Context, batch int) (int, error) {
	events, err := p.eventRepo.ListUnpublished(ctx, batch)
	if err != nil {
		return 0, err
	}
	p.Flush(ctx, events)
	p.log.Infow("relayed pending outbox events", "count", len(events), "types", lo.Uniq(lo.Map(events, func(e model.OutboxEvent, _ int) string {
		return e.Type
	})))
	return len(events), nil
}
