package redis

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestRedis(t *testing.T) (*Redis, *miniredis.Miniredis) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	return NewRedis(client, time.Minute), mr
}

func TestMarkUpdateSeen(t *testing.T) {
	r, mr := setupTestRedis(t)
	ctx := context.Background()

	first, err := r.MarkUpdateSeen(ctx, 100)
	require.NoError(t, err)
	assert.True(t, first)

	again, err := r.MarkUpdateSeen(ctx, 100)
	require.NoError(t, err)
	assert.False(t, again, "redelivered update must be reported as seen")

	other, err := r.MarkUpdateSeen(ctx, 101)
	require.NoError(t, err)
	assert.True(t, other)

	assert.True(t, mr.Exists("tg_update:100"))
	assert.Equal(t, time.Minute, mr.TTL("tg_update:100"))
}

func TestMarkUpdateSeenExpires(t *testing.T) {
	r, mr := setupTestRedis(t)
	ctx := context.Background()

	_, err := r.MarkUpdateSeen(ctx, 7)
	require.NoError(t, err)

	mr.FastForward(2 * time.Minute)

	first, err := r.MarkUpdateSeen(ctx, 7)
	require.NoError(t, err)
	assert.True(t, first)
}

func TestMarkUpdateSeenConcurrent(t *testing.T) {
	r, _ := setupTestRedis(t)
	ctx := context.Background()

	var wins int32
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := r.MarkUpdateSeen(ctx, 555)
			if err == nil && ok {
				atomic.AddInt32(&wins, 1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), wins, "exactly one delivery wins")
}

func TestDefaultTTL(t *testing.T) {
	assert.Equal(t, time.Hour, NewRedis(nil, 0).TTL)
}

func TestMarkUpdateSeenServerDown(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	defer client.Close()
	r := NewRedis(client, time.Minute)
	mr.Close()

	_, err = r.MarkUpdateSeen(context.Background(), 1)
	assert.Error(t, err)
}

func TestConnect(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)

	client, err := Connect(context.Background(), mr.Addr())
	require.NoError(t, err)
	client.Close()

	mr.Close()
	_, err = Connect(context.Background(), mr.Addr())
	assert.Error(t, err)
}
