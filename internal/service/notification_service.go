package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/equiply/workflow-service/internal/config"
	"github.com/equiply/workflow-service/internal/events"
)

const notificationQueueSize = 256

// EventPublisher is the slice of the Redis client used for fan-out.
type EventPublisher interface {
	Publish(ctx context.Context, channel string, message any) *redis.IntCmd
}

// NotificationService forwards workflow events to external subscribers.
// Handlers only enqueue; Deliver does the I/O and is driven by the
// notification worker.
type NotificationService struct {
	dispatcher events.Dispatcher
	publisher  EventPublisher
	logger     *zap.Logger
	cfg        config.NotificationConfig
	channel    string
	queue      chan events.Event
}

// NotificationDependencies bundles collaborators.
type NotificationDependencies struct {
	Dispatcher events.Dispatcher
	Publisher  EventPublisher
	Logger     *zap.Logger
	Config     config.NotificationConfig
	Channel    string
}

// NewNotificationService creates the service.
func NewNotificationService(deps NotificationDependencies) *NotificationService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NotificationService{
		dispatcher: deps.Dispatcher,
		publisher:  deps.Publisher,
		logger:     logger,
		cfg:        deps.Config,
		channel:    deps.Channel,
		queue:      make(chan events.Event, notificationQueueSize),
	}
}

// RegisterHandlers subscribes to events.
func (n *NotificationService) RegisterHandlers() {
	if n.dispatcher == nil {
		return
	}
	n.dispatcher.Subscribe(events.EventServiceRequestCreated, n.handleServiceRequestCreated)
	n.dispatcher.Subscribe(events.EventStatusChanged, n.handleStatusChanged)
	n.dispatcher.Subscribe(events.EventOperatorAssigned, n.handleOperatorAssigned)
	n.dispatcher.Subscribe(events.EventAssignmentCancelled, n.handleAssignmentCancelled)
}

// Queue exposes pending events to the worker.
func (n *NotificationService) Queue() <-chan events.Event {
	return n.queue
}

func (n *NotificationService) handleServiceRequestCreated(_ context.Context, event events.Event) error {
	n.logger.Info("ServiceRequestCreated", zap.String("request_id", event.RequestID), zap.Any("payload", event.Payload))
	return n.enqueue(event)
}

func (n *NotificationService) handleStatusChanged(_ context.Context, event events.Event) error {
	n.logger.Info("StatusChanged", zap.String("request_id", event.RequestID), zap.Any("payload", event.Payload))
	return n.enqueue(event)
}

func (n *NotificationService) handleOperatorAssigned(_ context.Context, event events.Event) error {
	n.logger.Info("OperatorAssigned", zap.String("request_id", event.RequestID), zap.Any("payload", event.Payload))
	return n.enqueue(event)
}

func (n *NotificationService) handleAssignmentCancelled(_ context.Context, event events.Event) error {
	n.logger.Info("AssignmentCancelled", zap.String("request_id", event.RequestID), zap.Any("payload", event.Payload))
	return n.enqueue(event)
}

func (n *NotificationService) enqueue(event events.Event) error {
	select {
	case n.queue <- event:
		return nil
	default:
		return fmt.Errorf("notification queue full, dropping %s", event.Type)
	}
}

// Deliver publishes event to the configured Redis channel and runs the
// email and webhook hooks.
func (n *NotificationService) Deliver(ctx context.Context, event events.Event) error {
	if n.publisher != nil && n.channel != "" {
		body, err := json.Marshal(event)
		if err != nil {
			return fmt.Errorf("encode event: %w", err)
		}
		if err := n.publisher.Publish(ctx, n.channel, body).Err(); err != nil {
			return fmt.Errorf("publish event: %w", err)
		}
	}
	switch event.Type {
	case events.EventServiceRequestCreated, events.EventOperatorAssigned:
		n.sendEmailNotificationStub(event)
	}
	n.sendWebhookNotificationStub(event)
	return nil
}

func (n *NotificationService) sendEmailNotificationStub(event events.Event) {
	if strings.TrimSpace(n.cfg.EmailFrom) == "" {
		return
	}
	n.logger.Debug("sendEmailNotificationStub",
		zap.String("from", n.cfg.EmailFrom),
		zap.String("request_id", event.RequestID),
		zap.String("event_type", string(event.Type)))
}

func (n *NotificationService) sendWebhookNotificationStub(event events.Event) {
	if strings.TrimSpace(n.cfg.WebhookURL) == "" {
		return
	}
	n.logger.Debug("sendWebhookNotificationStub",
		zap.String("url", n.cfg.WebhookURL),
		zap.String("request_id", event.RequestID),
		zap.String("event_type", string(event.Type)))
}

// publish hands a committed change to the dispatcher. Delivery failures are
// logged; the change itself already succeeded.
func publish(ctx context.Context, dispatcher events.Dispatcher, logger *zap.Logger, event events.Event) {
	if dispatcher == nil {
		return
	}
	if err := dispatcher.Publish(ctx, event); err != nil {
		logger.Warn("event delivery failed",
			zap.String("event_type", string(event.Type)),
			zap.String("request_id", event.RequestID),
			zap.Error(err))
	}
}
