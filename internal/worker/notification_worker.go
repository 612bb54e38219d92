package worker

import (
	"context"

	"go.uber.org/zap"

	"github.com/deskflow/request-portal/internal/events"
	"github.com/deskflow/request-portal/internal/observability"
	"github.com/deskflow/request-portal/internal/service"
)

// StartNotificationWorker attaches the post-commit subscribers to the dispatcher
// the lifecycle services publish to: event counting first, then outbound
// notifications. Either may be nil.
func StartNotificationWorker(dispatcher events.Dispatcher, notifications *service.NotificationService, metrics *observability.Metrics, logger *zap.Logger) {
	if dispatcher == nil {
		return
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if metrics != nil {
		dispatcher.SubscribeAll(func(_ context.Context, event events.Event) error {
			metrics.RecordEvent(string(event.Type))
			return nil
		})
	}
	if notifications != nil {
		notifications.RegisterHandlers()
	}
	logger.Info("notification worker started",
		zap.Int("event_types", len(events.AllEventTypes)),
		zap.Bool("notifications", notifications != nil))
}
