package registry

import (
	"context"
	"os"
	"sort"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/weiawesome/wes-io-relay/internal/config"
)

func exerciseRegistry(t *testing.T, r Registry) {
	ctx := context.Background()

	first, err := r.Register(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, "a", first.ConnectionID)
	assert.NotZero(t, first.StartedAt)

	again, err := r.Register(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, first.StartedAt, again.StartedAt, "register is idempotent")

	_, err = r.Register(ctx, "b")
	require.NoError(t, err)

	list, err := r.List(ctx)
	require.NoError(t, err)
	ids := make([]string, 0, len(list))
	for _, s := range list {
		ids = append(ids, s.ConnectionID)
	}
	sort.Strings(ids)
	assert.Equal(t, []string{"a", "b"}, ids)

	require.NoError(t, r.Unregister(ctx, "a"))
	require.NoError(t, r.Unregister(ctx, "a"))
	require.NoError(t, r.Unregister(ctx, "never-seen"))

	list, err = r.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "b", list[0].ConnectionID)
}

func TestMemoryRegistry(t *testing.T) {
	exerciseRegistry(t, NewMemoryRegistry())
}

func TestRedisRegistry(t *testing.T) {
	addr := os.Getenv("REDIS_ADDRESS")
	if addr == "" {
		t.Skip("REDIS_ADDRESS not set")
	}

	client := redis.NewClient(&redis.Options{Addr: addr})
	cfg := config.RegistryConfig{
		Redis:  config.RedisConfig{Prefix: "relay-test:" + uuid.NewString() + ":"},
		KeyTTL: 10 * time.Second,
	}
	r := newRedisRegistry(client, cfg)
	t.Cleanup(func() {
		r.Unregister(context.Background(), "b")
		r.Close()
	})

	exerciseRegistry(t, r)

	t.Run("refresh restores evicted keys", func(t *testing.T) {
		ctx := context.Background()
		s, err := r.Register(ctx, "c")
		require.NoError(t, err)
		t.Cleanup(func() { r.Unregister(ctx, "c") })

		require.NoError(t, client.Del(ctx, r.key("c")).Err())
		require.NoError(t, r.refresh(ctx))

		list, err := r.List(ctx)
		require.NoError(t, err)
		var found bool
		for _, got := range list {
			if got.ConnectionID == "c" {
				found = true
				assert.Equal(t, s.StartedAt, got.StartedAt)
			}
		}
		assert.True(t, found)
	})

	t.Run("unregistered keys are not restored", func(t *testing.T) {
		ctx := context.Background()
		_, err := r.Register(ctx, "d")
		require.NoError(t, err)
		key := r.key("d")

		// Unregister lands between the heartbeat's EXPIRE and its write-back.
		require.NoError(t, r.Unregister(ctx, "d"))
		require.NoError(t, r.restore(ctx, []string{key}))

		n, err := client.Exists(ctx, key).Result()
		require.NoError(t, err)
		assert.Zero(t, n)
	})
}

func TestNewRejectsUnknownType(t *testing.T) {
	_, err := New(context.Background(), config.RegistryConfig{Type: "etcd"})
	assert.Error(t, err)
}
