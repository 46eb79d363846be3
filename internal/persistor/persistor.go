// Package persistor keeps admin form posts between a failed save and the
// edit page that shows them again.
package persistor

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// ContentFormKey is the slot used by the content save controller.
const ContentFormKey = "pagebuilder_content"

// DataPersistor stores one form payload per editor and slot.
// Get returns (nil, nil) when nothing is stored.
type DataPersistor interface {
	Set(ctx context.Context, sub, key string, data map[string]any) error
	Get(ctx context.Context, sub, key string) (map[string]any, error)
	Clear(ctx context.Context, sub, key string) error
}

const defaultTTL = time.Hour

// RedisPersistor stores payloads as JSON under "persistor:<sub>:<key>".
type RedisPersistor struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewRedisPersistor creates a Redis-backed persistor. Prefix may be empty;
// a non-positive ttl means one hour.
func NewRedisPersistor(client *redis.Client, prefix string, ttl time.Duration) *RedisPersistor {
	if prefix == "" {
		prefix = "persistor:"
	}
	if ttl <= 0 {
		ttl = defaultTTL
	}
	return &RedisPersistor{client: client, prefix: prefix, ttl: ttl}
}

func (r *RedisPersistor) key(sub, key string) string {
	return r.prefix + sub + ":" + key
}

func (r *RedisPersistor) Set(ctx context.Context, sub, key string, data map[string]any) error {
	b, err := json.Marshal(data)
	if err != nil {
		return err
	}
	return r.client.Set(ctx, r.key(sub, key), b, r.ttl).Err()
}

func (r *RedisPersistor) Get(ctx context.Context, sub, key string) (map[string]any, error) {
	b, err := r.client.Get(ctx, r.key(sub, key)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, err
	}
	var data map[string]any
	if err := json.Unmarshal(b, &data); err != nil {
		return nil, err
	}
	return data, nil
}

func (r *RedisPersistor) Clear(ctx context.Context, sub, key string) error {
	return r.client.Del(ctx, r.key(sub, key)).Err()
}

type memoryEntry struct {
	data    map[string]any
	expires time.Time
}

// MemoryPersistor is the in-process DataPersistor used without Redis.
type MemoryPersistor struct {
	mu   sync.Mutex
	data map[string]memoryEntry
	ttl  time.Duration
	now  func() time.Time
}

func NewMemoryPersistor(ttl time.Duration) *MemoryPersistor {
	if ttl <= 0 {
		ttl = defaultTTL
	}
	return &MemoryPersistor{data: make(map[string]memoryEntry), ttl: ttl, now: time.Now}
}

func (m *MemoryPersistor) Set(_ context.Context, sub, key string, data map[string]any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := make(map[string]any, len(data))
	for k, v := range data {
		cp[k] = v
	}
	m.data[sub+":"+key] = memoryEntry{data: cp, expires: m.now().Add(m.ttl)}
	return nil
}

func (m *MemoryPersistor) Get(_ context.Context, sub, key string) (map[string]any, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.data[sub+":"+key]
	if !ok {
		return nil, nil
	}
	if m.now().After(e.expires) {
		delete(m.data, sub+":"+key)
		return nil, nil
	}
	return e.data, nil
}

func (m *MemoryPersistor) Clear(_ context.Context, sub, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, sub+":"+key)
	return nil
}
