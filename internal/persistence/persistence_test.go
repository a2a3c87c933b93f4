package persistence

import (
	"context"
	"errors"
	"testing"
	"testing/fstest"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/equiply/workflow-service/internal/config"
	"github.com/equiply/workflow-service/internal/events"
	"github.com/equiply/workflow-service/migrations"
)

func TestMigrationFilesSortedSQLOnly(t *testing.T) {
	fsys := fstest.MapFS{
		"002_indexes.sql": {Data: []byte("SELECT 1;")},
		"001_init.sql":    {Data: []byte("SELECT 1;")},
		"README.md":       {Data: []byte("notes")},
		"archive/old.sql": {Data: []byte("SELECT 1;")},
	}

	names, err := MigrationFiles(fsys)
	require.NoError(t, err)
	assert.Equal(t, []string{"001_init.sql", "002_indexes.sql"}, names)
}

func TestEmbeddedSchemaDeclaresWorkflowTables(t *testing.T) {
	names, err := MigrationFiles(migrations.FS)
	require.NoError(t, err)
	require.NotEmpty(t, names)

	body, err := migrations.FS.ReadFile(names[0])
	require.NoError(t, err)
	for _, table := range []string{"users", "service_requests", "service_request_status_history", "assignments"} {
		assert.Contains(t, string(body), "CREATE TABLE IF NOT EXISTS "+table+" ")
	}
	assert.Contains(t, string(body), "uq_assignments_current")
}

func TestRunMigrationsWithoutPoolIsNoop(t *testing.T) {
	assert.NoError(t, RunMigrations(context.Background(), nil, migrations.FS, zap.NewNop()))
}

func TestPostgresWithoutDSN(t *testing.T) {
	pg, err := NewPostgres(context.Background(), config.PostgresConfig{}, zap.NewNop())
	require.NoError(t, err)
	assert.Nil(t, pg.PoolHandle())
	assert.Error(t, pg.Ping(context.Background()))
	pg.Close()

	var missing *Redis
	assert.Error(t, missing.Ping(context.Background()))
}

func TestRelayEventsDecodesAndSkipsForeignMessages(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	messages := make(chan *redis.Message, 3)
	messages <- &redis.Message{Channel: "workflow.events", Payload: `{"id":"e1","type":"service_request_status_changed","service_request_id":"r1","payload":{"from_status":"SUBMITTED","to_status":"UNDER_REVIEW"}}`}
	messages <- &redis.Message{Channel: "workflow.events", Payload: "ping"}
	messages <- &redis.Message{Channel: "workflow.events", Payload: `{"id":"e2","type":"operator_assigned","service_request_id":"r1"}`}
	close(messages)

	var got []events.Event
	err := relayEvents(context.Background(), messages, zap.New(core), func(e events.Event) error {
		got = append(got, e)
		return nil
	})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, events.EventStatusChanged, got[0].Type)
	assert.Equal(t, "r1", got[0].RequestID)
	assert.Equal(t, "UNDER_REVIEW", got[0].Payload.(map[string]any)["to_status"])
	assert.Equal(t, events.EventOperatorAssigned, got[1].Type)
	assert.Equal(t, 1, logs.FilterMessage("skipping message that is not a workflow event").Len())
}

func TestRelayEventsStopsOnHandlerErrorOrCancel(t *testing.T) {
	messages := make(chan *redis.Message, 1)
	messages <- &redis.Message{Payload: `{"id":"e1","type":"assignment_cancelled"}`}
	stop := errors.New("stop")
	err := relayEvents(context.Background(), messages, nil, func(events.Event) error { return stop })
	assert.ErrorIs(t, err, stop)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.NoError(t, relayEvents(ctx, make(chan *redis.Message), nil, func(events.Event) error { return nil }))

	var missing *Redis
	assert.Error(t, missing.WatchEvents(context.Background(), "workflow.events", nil, func(events.Event) error { return nil }))
}
