// internal/cache/redis_test.go
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueueNameFromEnv(t *testing.T) {
	t.Setenv("HISTORIAN_QUEUE_NAME", "")
	assert.Equal(t, DefaultQueueName, QueueName())

	t.Setenv("HISTORIAN_QUEUE_NAME", "custom_queue")
	assert.Equal(t, "custom_queue", QueueName())
}

func TestGetEnvInt(t *testing.T) {
	t.Setenv("SKETCHCHAIN_TEST_INT", "12")
	assert.Equal(t, 12, getEnvInt("SKETCHCHAIN_TEST_INT", 3))

	t.Setenv("SKETCHCHAIN_TEST_INT", "twelve")
	assert.Equal(t, 3, getEnvInt("SKETCHCHAIN_TEST_INT", 3))
}

func TestPublishWithoutClient(t *testing.T) {
	saved := Rdb
	Rdb = nil
	defer func() { Rdb = saved }()

	err := (&Publisher{}).LogAction(context.Background(), SessionActionRecord{})
	assert.True(t, errors.Is(err, ErrNotConnected))
}

// Needs a local Redis; skipped otherwise.
func TestPublisherPushesJSON(t *testing.T) {
	rdb := redis.NewClient(&redis.Options{Addr: "localhost:6379"})
	defer rdb.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		t.Skipf("redis not reachable: %v", err)
	}

	queue := "sketchchain_actions_test_" + uuid.NewString()
	defer rdb.Del(context.Background(), queue)

	rec := SessionActionRecord{
		GameID:        uuid.New(),
		SessionID:     uuid.New(),
		ActionIndex:   1,
		ActionType:    "phase_countdown",
		ActionPayload: map[string]interface{}{"from": "lobby"},
		Timestamp:     time.Now().UnixMilli(),
	}
	p := &Publisher{Client: rdb, Queue: queue}
	require.NoError(t, p.LogAction(ctx, rec))

	raw, err := rdb.LPop(ctx, queue).Bytes()
	require.NoError(t, err)
	var got SessionActionRecord
	require.NoError(t, json.Unmarshal(raw, &got))
	assert.Equal(t, rec.GameID, got.GameID)
	assert.Equal(t, "phase_countdown", got.ActionType)
	assert.Equal(t, "lobby", got.ActionPayload["from"])
}
