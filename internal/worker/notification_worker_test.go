package worker

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deskflow/request-portal/internal/config"
	"github.com/deskflow/request-portal/internal/events"
	"github.com/deskflow/request-portal/internal/observability"
	"github.com/deskflow/request-portal/internal/service"
)

func TestWorkerCountsEvents(t *testing.T) {
	dispatcher := events.NewInMemoryDispatcher()
	metrics := observability.NewMetrics()
	notifications := service.NewNotificationService(dispatcher, nil, nil, config.NotificationConfig{})

	StartNotificationWorker(dispatcher, notifications, metrics, nil)

	ctx := context.Background()
	require.NoError(t, dispatcher.Publish(ctx, events.Event{Type: events.EventProjectPaused}))
	require.NoError(t, dispatcher.Publish(ctx, events.Event{Type: events.EventProjectPaused}))
	require.NoError(t, dispatcher.Publish(ctx, events.Event{Type: events.EventTransferred}))

	snap := metrics.Snapshot()
	assert.Equal(t, int64(2), snap.Events[string(events.EventProjectPaused)])
	assert.Equal(t, int64(1), snap.Events[string(events.EventTransferred)])
}

func TestWorkerWithoutDispatcher(t *testing.T) {
	assert.NotPanics(t, func() { StartNotificationWorker(nil, nil, nil, nil) })
}
