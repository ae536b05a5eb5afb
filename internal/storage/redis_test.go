package storage_test

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	infralogger "github.com/jonesrussell/north-cloud/saga-gateway/infrastructure/logger"
	"github.com/jonesrussell/north-cloud/saga-gateway/internal/storage"
)

func newRedisStore(t *testing.T) (*storage.RedisStore, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return storage.NewRedisStore(client, "saga:", fixedClock(), infralogger.NewNop()), mr
}

func TestRedisStore(t *testing.T) {
	t.Parallel()
	store, _ := newRedisStore(t)
	exerciseStore(t, store)
}

func TestRedisStore_ConcurrentWrites(t *testing.T) {
	t.Parallel()
	store, _ := newRedisStore(t)
	exerciseConcurrentWrites(t, store)
}

func TestRedisStore_Layout(t *testing.T) {
	t.Parallel()

	store, mr := newRedisStore(t)
	_, err := store.Write(context.Background(), "u42", json.RawMessage(`{"k":"v"}`))
	require.NoError(t, err)

	assert.Equal(t, `{"k":"v"}`, mr.HGet("saga:user:u42", "data"))
	assert.Equal(t, "1", mr.HGet("saga:user:u42", "version"))
	assert.Equal(t, fixedStamp, mr.HGet("saga:user:u42", "last_updated"))

	members, err := mr.Members("saga:users")
	require.NoError(t, err)
	assert.Equal(t, []string{"u42"}, members)
}

func TestRedisStore_Unavailable(t *testing.T) {
	t.Parallel()

	client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1", MaxRetries: -1})
	t.Cleanup(func() { _ = client.Close() })
	store := storage.NewRedisStore(client, "saga:", fixedClock(), infralogger.NewNop())

	_, err := store.Write(context.Background(), "u42", json.RawMessage(`{}`))
	require.Error(t, err)

	_, _, err = store.Read(context.Background(), "u42")
	require.Error(t, err)

	require.Error(t, store.Ping(context.Background()))
}
