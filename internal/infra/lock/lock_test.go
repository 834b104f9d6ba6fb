package lock_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	backend "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"splforge/internal/application/usecase"
	"splforge/internal/infra/lock"
)

func runLockerContract(t *testing.T, l usecase.Locker) {
	ctx := context.Background()

	unlock, err := l.TryLock(ctx, "wallet-a", time.Minute)
	require.NoError(t, err)

	_, err = l.TryLock(ctx, "wallet-a", time.Minute)
	assert.ErrorIs(t, err, usecase.ErrLockHeld)

	other, err := l.TryLock(ctx, "wallet-b", time.Minute)
	require.NoError(t, err, "keys are independent")
	require.NoError(t, other(ctx))

	require.NoError(t, unlock(ctx))
	again, err := l.TryLock(ctx, "wallet-a", time.Minute)
	require.NoError(t, err)
	require.NoError(t, again(ctx))
}

func TestMemoryLocker_Contract(t *testing.T) {
	runLockerContract(t, lock.NewMemoryLocker())
}

func TestRedisLocker_Contract(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("Failed to start miniredis: %v", err)
	}
	defer mr.Close()

	client := backend.NewClient(&backend.Options{Addr: mr.Addr()})
	runLockerContract(t, lock.NewRedisLocker(client, "splforge:"))
}

func TestRedisLocker_StaleUnlockDoesNotReleaseNewHolder(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	ctx := context.Background()
	client := backend.NewClient(&backend.Options{Addr: mr.Addr()})
	l := lock.NewRedisLocker(client, "splforge:")

	first, err := l.TryLock(ctx, "w", time.Second)
	require.NoError(t, err)

	mr.FastForward(2 * time.Second)

	second, err := l.TryLock(ctx, "w", time.Minute)
	require.NoError(t, err, "expired lock is free again")

	require.NoError(t, first(ctx))
	assert.True(t, mr.Exists("splforge:lock:w"), "old holder must not delete the new lock")

	require.NoError(t, second(ctx))
	assert.False(t, mr.Exists("splforge:lock:w"))
}
