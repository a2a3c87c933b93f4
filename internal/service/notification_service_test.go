package service

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/equiply/workflow-service/internal/config"
	"github.com/equiply/workflow-service/internal/domain"
	"github.com/equiply/workflow-service/internal/events"
)

type mockPublisher struct {
	mock.Mock
}

func (m *mockPublisher) Publish(ctx context.Context, channel string, message any) *redis.IntCmd {
	args := m.Called(ctx, channel, message)
	return args.Get(0).(*redis.IntCmd)
}

func intCmd(err error) *redis.IntCmd {
	cmd := redis.NewIntCmd(context.Background())
	if err != nil {
		cmd.SetErr(err)
		return cmd
	}
	cmd.SetVal(1)
	return cmd
}

func TestDeliverPublishesJSONToChannel(t *testing.T) {
	publisher := new(mockPublisher)
	n := NewNotificationService(NotificationDependencies{Publisher: publisher, Channel: "workflow.events"})
	event := events.New(events.EventStatusChanged, "req-1", events.Actor{ID: "m1", Role: domain.RoleManager},
		events.StatusChangedPayload{FromStatus: domain.StatusSubmitted, ToStatus: domain.StatusUnderReview})

	publisher.On("Publish", mock.Anything, "workflow.events", mock.MatchedBy(func(body []byte) bool {
		var decoded map[string]any
		if err := json.Unmarshal(body, &decoded); err != nil {
			return false
		}
		payload, _ := decoded["payload"].(map[string]any)
		return decoded["type"] == string(events.EventStatusChanged) &&
			decoded["service_request_id"] == "req-1" &&
			payload["to_status"] == string(domain.StatusUnderReview)
	})).Return(intCmd(nil)).Once()

	require.NoError(t, n.Deliver(context.Background(), event))
	publisher.AssertExpectations(t)
}

func TestDeliverReportsPublishFailure(t *testing.T) {
	publisher := new(mockPublisher)
	n := NewNotificationService(NotificationDependencies{Publisher: publisher, Channel: "workflow.events"})
	down := errors.New("connection refused")
	publisher.On("Publish", mock.Anything, "workflow.events", mock.Anything).Return(intCmd(down))

	err := n.Deliver(context.Background(), events.New(events.EventOperatorAssigned, "req-1", events.Actor{}, nil))
	assert.ErrorIs(t, err, down)
}

func TestDeliverWithoutPublisherRunsHooksOnly(t *testing.T) {
	n := NewNotificationService(NotificationDependencies{Config: config.NotificationConfig{WebhookURL: "https://hooks.example.com"}})
	assert.NoError(t, n.Deliver(context.Background(), events.New(events.EventServiceRequestCreated, "req-1", events.Actor{}, nil)))
}

func TestRegisteredHandlersQueueEvents(t *testing.T) {
	dispatcher := events.NewInMemoryDispatcher()
	n := NewNotificationService(NotificationDependencies{Dispatcher: dispatcher})
	n.RegisterHandlers()

	for _, eventType := range []events.EventType{
		events.EventServiceRequestCreated,
		events.EventStatusChanged,
		events.EventOperatorAssigned,
		events.EventAssignmentCancelled,
	} {
		require.NoError(t, dispatcher.Publish(context.Background(), events.New(eventType, "req-1", events.Actor{}, nil)))
		queued := <-n.Queue()
		assert.Equal(t, eventType, queued.Type)
	}
}

func TestQueueOverflowIsReported(t *testing.T) {
	dispatcher := events.NewInMemoryDispatcher()
	n := NewNotificationService(NotificationDependencies{Dispatcher: dispatcher})
	n.RegisterHandlers()

	event := events.New(events.EventStatusChanged, "req-1", events.Actor{}, nil)
	for i := 0; i < notificationQueueSize; i++ {
		require.NoError(t, dispatcher.Publish(context.Background(), event))
	}
	assert.Error(t, dispatcher.Publish(context.Background(), event))
}
