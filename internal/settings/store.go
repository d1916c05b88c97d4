// internal/settings/store.go
package settings

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/redis/go-redis/v9"
)

// Store persists a single settings document.
type Store interface {
	Load(ctx context.Context) (Settings, error)
	Save(ctx context.Context, s Settings) error
}

// MemoryStore keeps settings in process memory.
type MemoryStore struct {
	mu    sync.Mutex
	saved *Settings
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (m *MemoryStore) Load(context.Context) (Settings, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saved == nil {
		return Settings{}, ErrNotFound
	}
	return *m.saved, nil
}

func (m *MemoryStore) Save(_ context.Context, s Settings) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saved = &s
	return nil
}

// RedisStore keeps the settings document as JSON under a single key.
type RedisStore struct {
	rdb *redis.Client
	key string
}

// NewRedisStore stores under key, or StorageKey when key is empty.
func NewRedisStore(rdb *redis.Client, key string) *RedisStore {
	if key == "" {
		key = StorageKey
	}
	return &RedisStore{rdb: rdb, key: key}
}

// Load overlays the stored document on Defaults, so fields missing from an
// older document keep their default values.
func (r *RedisStore) Load(ctx context.Context) (Settings, error) {
	data, err := r.rdb.Get(ctx, r.key).Bytes()
	if errors.Is(err, redis.Nil) {
		return Settings{}, ErrNotFound
	}
	if err != nil {
		return Settings{}, fmt.Errorf("failed to GET settings key '%s': %w", r.key, err)
	}
	s := Defaults()
	if err := json.Unmarshal(data, &s); err != nil {
		return Settings{}, fmt.Errorf("failed to unmarshal settings: %w", err)
	}
	return s, nil
}

func (r *RedisStore) Save(ctx context.Context, s Settings) error {
	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("failed to marshal settings: %w", err)
	}
	if err := r.rdb.Set(ctx, r.key, data, 0).Err(); err != nil {
		return fmt.Errorf("failed to SET settings key '%s': %w", r.key, err)
	}
	return nil
}
