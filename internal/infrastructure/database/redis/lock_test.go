package redis

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/ClauseIQ-Intelligence/internal/infrastructure/monitoring/logging"
)

func TestMutex_LockUnlock(t *testing.T) {
	client, _ := newTestClient(t)
	factory := NewLockFactory(client, logging.NewNopLogger())
	ctx := context.Background()

	lock := factory.NewMutex("distill", WithLockTTL(time.Second))
	require.NoError(t, lock.Lock(ctx))

	exists, err := client.Exists(ctx, "clauseiq:lock:mutex:distill").Result()
	require.NoError(t, err)
	assert.EqualValues(t, 1, exists)

	require.NoError(t, lock.Unlock(ctx))

	exists, err = client.Exists(ctx, "clauseiq:lock:mutex:distill").Result()
	require.NoError(t, err)
	assert.EqualValues(t, 0, exists)
}

func TestMutex_TryLock_Contention(t *testing.T) {
	client, _ := newTestClient(t)
	factory := NewLockFactory(client, logging.NewNopLogger())
	ctx := context.Background()

	first := factory.NewMutex("distill", WithLockTTL(time.Second))
	second := factory.NewMutex("distill", WithLockTTL(time.Second))

	ok, err := first.TryLock(ctx)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = second.TryLock(ctx)
	require.NoError(t, err)
	assert.False(t, ok, "held lock must not be acquirable")

	require.NoError(t, first.Unlock(ctx))

	ok, err = second.TryLock(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestMutex_Unlock_NotHeld(t *testing.T) {
	client, _ := newTestClient(t)
	factory := NewLockFactory(client, logging.NewNopLogger())
	ctx := context.Background()

	holder := factory.NewMutex("distill", WithLockTTL(time.Second))
	intruder := factory.NewMutex("distill", WithLockTTL(time.Second))

	require.NoError(t, holder.Lock(ctx))
	assert.ErrorIs(t, intruder.Unlock(ctx), ErrLockNotHeld)

	// The holder's lock survives the failed unlock.
	exists, err := client.Exists(ctx, "clauseiq:lock:mutex:distill").Result()
	require.NoError(t, err)
	assert.EqualValues(t, 1, exists)
}

func TestMutex_Extend(t *testing.T) {
	client, _ := newTestClient(t)
	factory := NewLockFactory(client, logging.NewNopLogger())
	ctx := context.Background()

	lock := factory.NewMutex("distill", WithLockTTL(time.Second))
	require.NoError(t, lock.Lock(ctx))

	ok, err := lock.Extend(ctx, 5*time.Second)
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, lock.Unlock(ctx))

	ok, err = lock.Extend(ctx, 5*time.Second)
	require.NoError(t, err)
	assert.False(t, ok, "released lock cannot be extended")
}

func TestMutex_Lock_RetriesThenFails(t *testing.T) {
	client, _ := newTestClient(t)
	factory := NewLockFactory(client, logging.NewNopLogger())
	ctx := context.Background()

	holder := factory.NewMutex("distill", WithLockTTL(time.Minute))
	require.NoError(t, holder.Lock(ctx))

	waiter := factory.NewMutex("distill",
		WithLockTTL(time.Minute), WithRetryCount(2), WithRetryDelay(time.Millisecond))
	assert.ErrorIs(t, waiter.Lock(ctx), ErrLockNotAcquired)
}
