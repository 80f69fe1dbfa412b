package ratelimit

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBackendLimiter_BurstThenWait(t *testing.T) {
	l := NewBackendLimiter(50*time.Millisecond, 2)
	ctx := context.Background()

	start := time.Now()
	require.NoError(t, l.Acquire(ctx))
	require.NoError(t, l.Acquire(ctx))
	assert.Less(t, time.Since(start), 40*time.Millisecond, "burst permits are immediate")

	require.NoError(t, l.Acquire(ctx))
	assert.GreaterOrEqual(t, time.Since(start), 40*time.Millisecond, "third permit waits for refill")
}

func TestBackendLimiter_CancelledWaitConsumesNothing(t *testing.T) {
	l := NewBackendLimiter(200*time.Millisecond, 1)
	require.NoError(t, l.Acquire(context.Background()))

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- l.Acquire(ctx) }()
	time.Sleep(20 * time.Millisecond)
	cancel()

	err := <-errCh
	assert.ErrorIs(t, err, context.Canceled)

	// The abandoned reservation is returned: the next permit arrives on the
	// original schedule rather than one interval later.
	start := time.Now()
	require.NoError(t, l.Acquire(context.Background()))
	assert.Less(t, time.Since(start), 300*time.Millisecond)
}

func TestBackendLimiter_DeadlineTooShort(t *testing.T) {
	l := NewBackendLimiter(time.Hour, 1)
	require.NoError(t, l.Acquire(context.Background()))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, l.Acquire(ctx), context.DeadlineExceeded)
}

func TestBackendLimiter_Unlimited(t *testing.T) {
	l := NewBackendLimiter(0, 1)
	for i := 0; i < 100; i++ {
		require.NoError(t, l.Acquire(context.Background()))
	}

	var nilLimiter *BackendLimiter
	assert.NoError(t, nilLimiter.Acquire(context.Background()))
}

func TestBackendLimiter_ConcurrentAcquire(t *testing.T) {
	l := NewBackendLimiter(time.Millisecond, 1)
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, l.Acquire(context.Background()))
		}()
	}
	wg.Wait()
}

func TestCallerLimiter_SlidingWindow(t *testing.T) {
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	l := NewCallerLimiter(2, time.Minute).WithClock(func() time.Time { return now })

	ok, _ := l.Allow("alice")
	assert.True(t, ok)
	now = now.Add(10 * time.Second)
	ok, _ = l.Allow("alice")
	assert.True(t, ok)

	now = now.Add(10 * time.Second)
	ok, retry := l.Allow("alice")
	assert.False(t, ok)
	assert.Equal(t, 40*time.Second, retry)

	ok, _ = l.Allow("bob")
	assert.True(t, ok, "keys are independent")

	now = now.Add(40 * time.Second)
	ok, _ = l.Allow("alice")
	assert.True(t, ok, "oldest hit aged out")
}

func TestCallerLimiter_PrunesIdleKeys(t *testing.T) {
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	l := NewCallerLimiter(5, time.Minute).WithClock(func() time.Time { return now })

	l.Allow("a")
	l.Allow("b")
	assert.Equal(t, 2, l.Keys())

	now = now.Add(2 * time.Minute)
	l.Allow("c")
	assert.Equal(t, 1, l.Keys())
}

func TestCallerLimiter_Disabled(t *testing.T) {
	l := NewCallerLimiter(0, time.Minute)
	for i := 0; i < 10; i++ {
		ok, _ := l.Allow("x")
		assert.True(t, ok)
	}
}

func TestParseRate(t *testing.T) {
	tests := []struct {
		spec    string
		count   int
		window  time.Duration
		wantErr bool
	}{
		{spec: "10/minute", count: 10, window: time.Minute},
		{spec: "5/second", count: 5, window: time.Second},
		{spec: "100/hours", count: 100, window: time.Hour},
		{spec: " 3 / Day ", count: 3, window: 24 * time.Hour},
		{spec: "7/s", count: 7, window: time.Second},
		{spec: "10", wantErr: true},
		{spec: "0/minute", wantErr: true},
		{spec: "ten/minute", wantErr: true},
		{spec: "10/fortnight", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.spec, func(t *testing.T) {
			count, window, err := ParseRate(tt.spec)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.count, count)
			assert.Equal(t, tt.window, window)
		})
	}

	l, err := NewCallerLimiterFromSpec("10/minute")
	require.NoError(t, err)
	assert.Equal(t, "10/1m0s", l.String())
}
