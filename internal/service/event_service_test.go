package service

import (
	"context"
	"testing"

	ierr "github.com/itqanpos/ITQN/internal/errors"
	"github.com/itqanpos/ITQN/internal/logger"
	"github.com/itqanpos/ITQN/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOutboxRelayPublishesUnflushedEvents(t *testing.T) {
	f := newFixture(t)

	// no broadcaster: events stay in the outbox
	offline := NewEventPublisher(f.eventRepo, nil, f.clock, logger.NewNop())
	err := f.runner.Run(f.ctx, "record", func(txCtx context.Context) error {
		for _, typ := range []string{model.EventStockLow, model.EventSaleCompleted} {
			ev, err := offline.Record(txCtx, f.tenantID, typ, map[string]interface{}{"reference": "INV-2024-000001"})
			if err != nil {
				return err
			}
			offline.Flush(txCtx, []model.OutboxEvent{ev})
		}
		return nil
	})
	require.NoError(t, err)

	pending, err := f.eventRepo.ListUnpublished(f.ctx, 10)
	require.NoError(t, err)
	require.Len(t, pending, 2)

	n, err := f.events.RelayPending(f.ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.ElementsMatch(t, []string{model.EventStockLow, model.EventSaleCompleted}, f.hub.eventTypes())

	f.hub.mu.Lock()
	assert.Equal(t, "INV-2024-000001", f.hub.messages[0].Data["reference"])
	f.hub.mu.Unlock()

	pending, err = f.eventRepo.ListUnpublished(f.ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, pending)

	n, err = f.events.RelayPending(f.ctx, 10)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestRolledBackEventsAreNeverPublished(t *testing.T) {
	f := newFixture(t)

	err := f.runner.Run(f.ctx, "record", func(txCtx context.Context) error {
		if _, err := f.events.Record(txCtx, f.tenantID, model.EventSaleCompleted, nil); err != nil {
			return err
		}
		return ierr.NewError("boom").Mark(ierr.ErrInternal)
	})
	require.Error(t, err)

	n, err := f.events.RelayPending(f.ctx, 10)
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Empty(t, f.hub.eventTypes())
}
