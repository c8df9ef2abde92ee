package registry

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/weiawesome/wes-io-relay/internal/config"
	"github.com/weiawesome/wes-io-relay/internal/domain"
	"github.com/weiawesome/wes-io-relay/pkg/log"
)

// RedisRegistry stores each live session as JSON under <prefix><connID>.
// Keys expire unless this process keeps refreshing them, so sessions of a
// crashed process disappear on their own.
type RedisRegistry struct {
	client            *redis.Client
	prefix            string
	keyTTL            time.Duration
	heartbeatInterval time.Duration
	cancel            context.CancelFunc

	mu    sync.RWMutex
	owned map[string][]byte // key -> session JSON for keys this process owns
}

func NewRedisRegistry(cfg config.RegistryConfig) (*RedisRegistry, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Address,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return newRedisRegistry(client, cfg), nil
}

func newRedisRegistry(client *redis.Client, cfg config.RegistryConfig) *RedisRegistry {
	ttl := cfg.KeyTTL
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	interval := cfg.HeartbeatInterval
	if interval <= 0 || interval >= ttl {
		interval = ttl / 3
	}
	return &RedisRegistry{
		client:            client,
		prefix:            cfg.Redis.Prefix,
		keyTTL:            ttl,
		heartbeatInterval: interval,
		owned:             make(map[string][]byte),
	}
}

func (r *RedisRegistry) key(connID string) string {
	return r.prefix + connID
}

func (r *RedisRegistry) Register(ctx context.Context, connID string) (*domain.LiveSession, error) {
	session := domain.NewLiveSession(connID)
	data, err := json.Marshal(session)
	if err != nil {
		return nil, err
	}

	key := r.key(connID)
	created, err := r.client.SetNX(ctx, key, data, r.keyTTL).Result()
	if err != nil {
		return nil, fmt.Errorf("register %s: %w", connID, err)
	}

	if !created {
		existing, err := r.client.Get(ctx, key).Bytes()
		switch {
		case errors.Is(err, redis.Nil):
			// expired between SETNX and GET; ours is written on the next refresh
		case err != nil:
			return nil, fmt.Errorf("load session %s: %w", connID, err)
		default:
			var prev domain.LiveSession
			if err := json.Unmarshal(existing, &prev); err != nil {
				return nil, fmt.Errorf("decode session %s: %w", connID, err)
			}
			session, data = &prev, existing
		}
	}

	r.mu.Lock()
	r.owned[key] = data
	r.mu.Unlock()

	return session, nil
}

func (r *RedisRegistry) Unregister(ctx context.Context, connID string) error {
	key := r.key(connID)

	r.mu.Lock()
	delete(r.owned, key)
	r.mu.Unlock()

	if err := r.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("failed to unregister session: %w", err)
	}
	return nil
}

func (r *RedisRegistry) List(ctx context.Context) ([]domain.LiveSession, error) {
	var keys []string
	iter := r.client.Scan(ctx, 0, r.prefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("failed to scan sessions: %w", err)
	}

	sessions := make([]domain.LiveSession, 0, len(keys))
	if len(keys) == 0 {
		return sessions, nil
	}

	values, err := r.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to load sessions: %w", err)
	}

	for _, v := range values {
		s, ok := v.(string)
		if !ok {
			continue // expired between SCAN and MGET
		}
		var session domain.LiveSession
		if err := json.Unmarshal([]byte(s), &session); err != nil {
			continue
		}
		sessions = append(sessions, session)
	}
	return sessions, nil
}

// StartHeartbeat keeps this process's sessions alive until ctx is done or
// Close is called.
func (r *RedisRegistry) StartHeartbeat(ctx context.Context) {
	ctx, r.cancel = context.WithCancel(ctx)

	go func() {
		tick := time.NewTicker(r.heartbeatInterval)
		defer tick.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-tick.C:
				if err := r.refresh(ctx); err != nil && ctx.Err() == nil {
					l := log.L()
					l.Error().Err(err).Msg("registry refresh failed")
				}
			}
		}
	}()
}

// refresh extends the TTL of every owned key in one round trip. A key that
// vanished (flushed, or evicted during a stall) is written back.
func (r *RedisRegistry) refresh(ctx context.Context) error {
	r.mu.RLock()
	owned := make([]string, 0, len(r.owned))
	for k := range r.owned {
		owned = append(owned, k)
	}
	r.mu.RUnlock()
	if len(owned) == 0 {
		return nil
	}

	pipe := r.client.Pipeline()
	results := make([]*redis.BoolCmd, len(owned))
	for i, key := range owned {
		results[i] = pipe.Expire(ctx, key, r.keyTTL)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return err
	}

	var missing []string
	for i, cmd := range results {
		if !cmd.Val() {
			missing = append(missing, owned[i])
		}
	}
	return r.restore(ctx, missing)
}

// restore writes back keys this process still owns. The read lock is held
// across the writes so a concurrent Unregister deletes after them, never
// before.
func (r *RedisRegistry) restore(ctx context.Context, keys []string) error {
	if len(keys) == 0 {
		return nil
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, key := range keys {
		data, ok := r.owned[key]
		if !ok {
			continue
		}
		if err := r.client.SetNX(ctx, key, data, r.keyTTL).Err(); err != nil {
			return fmt.Errorf("failed to restore session: %w", err)
		}
	}
	return nil
}

func (r *RedisRegistry) Close() error {
	if r.cancel != nil {
		r.cancel()
	}
	return r.client.Close()
}
