//go:build integration
// +build integration

package redis

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func testRedisURL() string {
	if url := os.Getenv("TEST_REDIS_URL"); url != "" {
		return url
	}
	return "redis://localhost:6379/15"
}

func newTestClient(t *testing.T) *Client {
	t.Helper()
	client, err := NewRedisClient(testRedisURL())
	require.NoError(t, err)
	require.NoError(t, client.Ping(context.Background()), "redis not reachable")
	t.Cleanup(func() { client.Close() })
	return client
}

func TestLockerExcludesSecondHolder(t *testing.T) {
	client := newTestClient(t)
	locker := NewLocker(client, "lucro:test:lock", 5*time.Second, zap.NewNop())
	key := uuid.NewString()

	unlock, err := locker.Lock(context.Background(), key)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()
	_, err = locker.Lock(ctx, key)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	unlock()

	unlock, err = locker.Lock(context.Background(), key)
	require.NoError(t, err)
	unlock()
}

func TestLockerExpiredLockIsNotReleasedByOldHolder(t *testing.T) {
	client := newTestClient(t)
	locker := NewLocker(client, "lucro:test:lock", 100*time.Millisecond, zap.NewNop())
	key := uuid.NewString()

	staleUnlock, err := locker.Lock(context.Background(), key)
	require.NoError(t, err)
	time.Sleep(150 * time.Millisecond)

	unlock, err := locker.Lock(context.Background(), key)
	require.NoError(t, err)
	defer unlock()

	staleUnlock()

	value, err := client.Get(context.Background(), "lucro:test:lock:"+key)
	require.NoError(t, err)
	assert.NotEmpty(t, value)
}

func TestPublishReachesPatternSubscriber(t *testing.T) {
	client := newTestClient(t)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	pubsub := client.PSubscribe(ctx, "lucro:test:rooms:*")
	defer pubsub.Close()
	_, err := pubsub.Receive(ctx)
	require.NoError(t, err)

	require.NoError(t, client.Publish(ctx, "lucro:test:rooms:doc-1", `{"event":"ping"}`))

	msg, err := pubsub.ReceiveMessage(ctx)
	require.NoError(t, err)
	assert.Equal(t, "lucro:test:rooms:doc-1", msg.Channel)
	assert.Equal(t, `{"event":"ping"}`, msg.Payload)
}
