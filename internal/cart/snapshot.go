package cart

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"storefront/internal/model"

	"github.com/redis/go-redis/v9"
)

// ErrSnapshotMiss is returned when no snapshot exists for a session.
var ErrSnapshotMiss = errors.New("cart snapshot miss")

// SnapshotStore keeps a copy of each session's cart lines so the cart can be
// restored for as long as the session lives.
type SnapshotStore interface {
	Load(ctx context.Context, sessionID string) ([]model.CartLineItem, error)
	Save(ctx context.Context, sessionID string, items []model.CartLineItem) error
	Delete(ctx context.Context, sessionID string) error
}

// MemorySnapshots is a process-local SnapshotStore.
type MemorySnapshots struct {
	mu    sync.RWMutex
	carts map[string][]model.CartLineItem
}

// NewMemorySnapshots creates an empty in-memory snapshot store.
func NewMemorySnapshots() *MemorySnapshots {
	return &MemorySnapshots{carts: make(map[string][]model.CartLineItem)}
}

func (m *MemorySnapshots) Load(_ context.Context, sessionID string) ([]model.CartLineItem, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	items, ok := m.carts[sessionID]
	if !ok {
		return nil, ErrSnapshotMiss
	}
	out := make([]model.CartLineItem, len(items))
	copy(out, items)
	return out, nil
}

func (m *MemorySnapshots) Save(_ context.Context, sessionID string, items []model.CartLineItem) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	stored := make([]model.CartLineItem, len(items))
	copy(stored, items)
	m.carts[sessionID] = stored
	return nil
}

func (m *MemorySnapshots) Delete(_ context.Context, sessionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.carts, sessionID)
	return nil
}

// RedisSnapshots stores cart snapshots as JSON with a sliding TTL.
type RedisSnapshots struct {
	client  *redis.Client
	baseTTL time.Duration
}

// NewRedisSnapshots creates a Redis-backed snapshot store. Each save extends
// the session lifetime by ttl plus up to a minute of jitter.
func NewRedisSnapshots(client *redis.Client, ttl time.Duration) *RedisSnapshots {
	return &RedisSnapshots{
		client:  client,
		baseTTL: ttl,
	}
}

func (r *RedisSnapshots) Load(ctx context.Context, sessionID string) ([]model.CartLineItem, error) {
	data, err := r.client.Get(ctx, snapshotKey(sessionID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrSnapshotMiss
	}
	if err != nil {
		return nil, fmt.Errorf("redis get failed: %w", err)
	}

	var items []model.CartLineItem
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, fmt.Errorf("unmarshal cart snapshot failed: %w", err)
	}
	return items, nil
}

func (r *RedisSnapshots) Save(ctx context.Context, sessionID string, items []model.CartLineItem) error {
	data, err := json.Marshal(items)
	if err != nil {
		return fmt.Errorf("marshal cart snapshot failed: %w", err)
	}

	ttl := r.baseTTL + time.Duration(rand.Intn(60))*time.Second
	if err := r.client.Set(ctx, snapshotKey(sessionID), data, ttl).Err(); err != nil {
		return fmt.Errorf("redis set failed: %w", err)
	}
	return nil
}

func (r *RedisSnapshots) Delete(ctx context.Context, sessionID string) error {
	if err := r.client.Del(ctx, snapshotKey(sessionID)).Err(); err != nil {
		return fmt.Errorf("redis delete failed: %w", err)
	}
	return nil
}

func snapshotKey(sessionID string) string {
	return fmt.Sprintf("cart:%s", sessionID)
}
