package keylock_test

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrJamesThe3rd/bnpl/internal/keylock"
)

func TestLocker_SerializesSameKey(t *testing.T) {
	locker := keylock.New()
	key := uuid.New()

	var (
		inside  atomic.Int32
		maxSeen atomic.Int32
		wg      sync.WaitGroup
	)

	for range 20 {
		wg.Add(1)

		go func() {
			defer wg.Done()

			unlock, err := locker.Lock(context.Background(), key)
			if !assert.NoError(t, err) {
				return
			}
			defer unlock()

			n := inside.Add(1)
			if n > maxSeen.Load() {
				maxSeen.Store(n)
			}

			time.Sleep(time.Millisecond)
			inside.Add(-1)
		}()
	}

	wg.Wait()

	assert.Equal(t, int32(1), maxSeen.Load())
	assert.Zero(t, locker.Held())
}

func TestLocker_DifferentKeysDoNotContend(t *testing.T) {
	locker := keylock.New()

	unlockA, err := locker.Lock(context.Background(), uuid.New())
	require.NoError(t, err)
	defer unlockA()

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	unlockB, err := locker.Lock(ctx, uuid.New())
	require.NoError(t, err)
	unlockB()

	assert.Equal(t, 1, locker.Held())
}

func TestLocker_HonorsContext(t *testing.T) {
	locker := keylock.New()
	key := uuid.New()

	unlock, err := locker.Lock(context.Background(), key)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err = locker.Lock(ctx, key)
	require.ErrorIs(t, err, context.DeadlineExceeded)

	unlock()
	unlock() // releasing twice is a no-op

	assert.Zero(t, locker.Held())

	again, err := locker.Lock(context.Background(), key)
	require.NoError(t, err)
	again()
}
