// internal/cache/redis.go
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Rdb is the global Redis client. Connect it once at application startup.
var Rdb *redis.Client

// DefaultQueueName is the Redis list (queue) name for session action logs.
var DefaultQueueName = "sketchchain_actions"

// ErrNotConnected is returned when publishing before ConnectRedis succeeded.
var ErrNotConnected = errors.New("redis client not connected")

// SessionActionRecord holds the minimal info needed by the historian.
type SessionActionRecord struct {
	GameID        uuid.UUID              `json:"game_id"`
	SessionID     uuid.UUID              `json:"session_id"`
	ActionIndex   int                    `json:"action_index"`
	PlayerIndex   int                    `json:"player_index"`
	ActionType    string                 `json:"action_type"`
	ActionPayload map[string]interface{} `json:"action_payload"`
	Timestamp     int64                  `json:"timestamp"`
}

// ConnectRedis initializes the global Redis client with environment variables:
//   - REDIS_ADDR (default "localhost:6379")
//   - REDIS_DB (optional, default 0)
func ConnectRedis() error {
	addr := getEnv("REDIS_ADDR", "localhost:6379")
	dbIdx := getEnvInt("REDIS_DB", 0)

	client := redis.NewClient(&redis.Options{
		Addr: addr,
		DB:   dbIdx,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return fmt.Errorf("failed to connect to Redis at %s: %w", addr, err)
	}
	Rdb = client
	return nil
}

// QueueName is the historian queue, overridable with HISTORIAN_QUEUE_NAME.
func QueueName() string {
	return getEnv("HISTORIAN_QUEUE_NAME", DefaultQueueName)
}

// PublishSessionAction serializes the given record to JSON, then pushes it to the Redis queue.
func PublishSessionAction(ctx context.Context, rdb *redis.Client, queue string, record SessionActionRecord) error {
	if rdb == nil {
		return ErrNotConnected
	}
	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to marshal SessionActionRecord: %w", err)
	}
	if err := rdb.RPush(ctx, queue, data).Err(); err != nil {
		return fmt.Errorf("failed to RPush to Redis list '%s': %w", queue, err)
	}
	return nil
}

// Publisher pushes session actions onto a queue. A nil Client uses the global Rdb.
type Publisher struct {
	Client *redis.Client
	Queue  string
}

// NewPublisher publishes to the configured queue through the global client.
func NewPublisher() *Publisher {
	return &Publisher{Queue: QueueName()}
}

// LogAction implements game.ActionLogger.
func (p *Publisher) LogAction(ctx context.Context, rec SessionActionRecord) error {
	client := p.Client
	if client == nil {
		client = Rdb
	}
	queue := p.Queue
	if queue == "" {
		queue = DefaultQueueName
	}
	return PublishSessionAction(ctx, client, queue, rec)
}

// getEnv is a helper to read an environment variable or return a default value.
func getEnv(key, def string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return def
}

// getEnvInt is a helper to parse an environment variable as integer, else a default value.
func getEnvInt(key string, def int) int {
	s := os.Getenv(key)
	if s == "" {
		return def
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return v
}
