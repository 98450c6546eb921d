package storage

import (
	"os"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedisStorage(t *testing.T) {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		t.Skip("REDIS_ADDR not set")
	}
	s := NewRedisStorageFromClient(redis.NewClient(&redis.Options{Addr: addr}))
	t.Cleanup(func() { _ = s.Close() })
	require.NoError(t, s.Reset())

	got, err := s.Get("missing")
	require.NoError(t, err)
	assert.Nil(t, got)

	require.NoError(t, s.Set("submit:1.2.3.4", []byte("3"), time.Minute))
	got, err = s.Get("submit:1.2.3.4")
	require.NoError(t, err)
	assert.Equal(t, []byte("3"), got)

	require.NoError(t, s.Delete("submit:1.2.3.4"))
	got, err = s.Get("submit:1.2.3.4")
	require.NoError(t, err)
	assert.Nil(t, got)

	require.NoError(t, s.Set("a", []byte("1"), time.Minute))
	require.NoError(t, s.Reset())
	got, err = s.Get("a")
	require.NoError(t, err)
	assert.Nil(t, got)
}
