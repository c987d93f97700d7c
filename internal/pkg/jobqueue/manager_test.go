package jobqueue

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewManager(t *testing.T) {
	q := NewQueue(nil, 2)
	manager := NewManager(q, nil)

	assert.Same(t, q, manager.GetQueue())
	assert.NotNil(t, manager.stopCh)
	assert.False(t, manager.IsRunning())
	assert.Equal(t, DefaultCounterFlushInterval, manager.flushInterval)
}

func TestManager_StopWithoutStart(t *testing.T) {
	manager := NewManager(NewQueue(nil, 1), nil)

	// Stop without starting should be safe
	assert.False(t, manager.IsRunning())
	manager.Stop()
	assert.False(t, manager.IsRunning())
}

func TestManager_FlushCountersOnce(t *testing.T) {
	assert.NoError(t, NewManager(NewQueue(nil, 1), nil).FlushCountersOnce(context.Background()))

	boom := errors.New("flush failed")
	manager := NewManager(NewQueue(nil, 1), func(ctx context.Context) error { return boom })
	assert.ErrorIs(t, manager.FlushCountersOnce(context.Background()), boom)
}

func TestManager_SetFlushInterval(t *testing.T) {
	manager := NewManager(NewQueue(nil, 1), nil)
	manager.SetFlushInterval(-time.Second)
	assert.Equal(t, DefaultCounterFlushInterval, manager.flushInterval)
	manager.SetFlushInterval(time.Second)
	assert.Equal(t, time.Second, manager.flushInterval)
}

func TestManager_StartFlushesPeriodicallyAndOnStop(t *testing.T) {
	client := newIsolatedRedisClient(t, isolatedJobQueueTestRedisDB)

	var flushes int32
	manager := NewManager(NewQueue(client, 1), func(ctx context.Context) error {
		atomic.AddInt32(&flushes, 1)
		return nil
	})
	manager.SetFlushInterval(20 * time.Millisecond)

	manager.Start()
	manager.Start() // second start is a no-op
	assert.True(t, manager.IsRunning())

	require.Eventually(t, func() bool {
		return atomic.LoadInt32(&flushes) >= 2
	}, 3*time.Second, 10*time.Millisecond)

	manager.Stop()
	assert.False(t, manager.IsRunning())
	afterStop := atomic.LoadInt32(&flushes)

	time.Sleep(60 * time.Millisecond)
	assert.Equal(t, afterStop, atomic.LoadInt32(&flushes))

	// Restart after stop works.
	manager.Start()
	assert.True(t, manager.IsRunning())
	manager.Stop()
}
