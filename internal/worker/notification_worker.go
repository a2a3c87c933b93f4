package worker

import (
	"context"

	"go.uber.org/zap"

	"github.com/equiply/workflow-service/internal/service"
)

// StartNotificationWorker registers notification handlers and drains queued
// events until ctx is cancelled. The returned channel closes once the worker
// has exited.
func StartNotificationWorker(ctx context.Context, notificationService *service.NotificationService, logger *zap.Logger) <-chan struct{} {
	done := make(chan struct{})
	if notificationService == nil {
		close(done)
		return done
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	notificationService.RegisterHandlers()

	go func() {
		defer close(done)
		queue := notificationService.Queue()
		for {
			select {
			case <-ctx.Done():
				return
			case event := <-queue:
				if err := notificationService.Deliver(ctx, event); err != nil {
					logger.Warn("notification delivery failed",
						zap.String("event_type", string(event.Type)),
						zap.String("request_id", event.RequestID),
						zap.Error(err))
				}
			}
		}
	}()
	return done
}
