package rslimiter

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type scriptedSampler struct {
	mu    sync.Mutex
	usage Usage
	err   error
	calls int
}

func (s *scriptedSampler) set(u Usage) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.usage = u
}

func (s *scriptedSampler) sample(ctx context.Context) (Usage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	return s.usage, s.err
}

func (s *scriptedSampler) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

func newTestLimiter(s *scriptedSampler) *ResourceLimiter {
	return New(DefaultConfig(), zerolog.Nop()).WithSampler(s.sample)
}

func TestResourceLimiter_AdmitsUnderLimits(t *testing.T) {
	s := &scriptedSampler{usage: Usage{AllocMB: 100, Goroutines: 50, SystemMemUsedPercent: 40, CPUUsagePercent: 10}}
	rl := newTestLimiter(s)

	rl.Check(context.Background())

	assert.NoError(t, rl.Admit())
	assert.Equal(t, int64(100), rl.Usage().AllocMB)
}

func TestResourceLimiter_RefusesOverLimits(t *testing.T) {
	tests := []struct {
		name   string
		usage  Usage
		reason string
	}{
		{"app memory", Usage{AllocMB: 2048}, "memory 2048MB > limit 1024MB"},
		{"goroutines", Usage{Goroutines: 20000}, "goroutines 20000 > limit 10000"},
		{"system memory", Usage{SystemMemUsedPercent: 97}, "system memory 97.0% > 90.0%"},
		{"cpu", Usage{CPUUsagePercent: 99.5}, "cpu 99.5% > 95.0%"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rl := newTestLimiter(&scriptedSampler{usage: tt.usage})
			rl.Check(context.Background())

			err := rl.Admit()
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrOverloaded)
			assert.Contains(t, err.Error(), tt.reason)
		})
	}
}

func TestResourceLimiter_Recovers(t *testing.T) {
	s := &scriptedSampler{usage: Usage{AllocMB: 4096}}
	rl := newTestLimiter(s)

	rl.Check(context.Background())
	require.Error(t, rl.Admit())

	s.set(Usage{AllocMB: 10})
	rl.Check(context.Background())
	assert.NoError(t, rl.Admit())
}

func TestResourceLimiter_SampleErrorKeepsState(t *testing.T) {
	s := &scriptedSampler{usage: Usage{AllocMB: 4096}}
	rl := newTestLimiter(s)
	rl.Check(context.Background())

	s.err = errors.New("procfs unavailable")
	rl.Check(context.Background())

	assert.ErrorIs(t, rl.Admit(), ErrOverloaded)
}

func TestResourceLimiter_DisabledAndNil(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Enabled = false
	rl := New(cfg, zerolog.Nop()).WithSampler((&scriptedSampler{usage: Usage{AllocMB: 1 << 20}}).sample)
	rl.Check(context.Background())
	assert.NoError(t, rl.Admit())

	var none *ResourceLimiter
	assert.NoError(t, none.Admit())
	assert.Zero(t, none.Usage())
}

func TestResourceLimiter_RunSamplesUntilCancelled(t *testing.T) {
	s := &scriptedSampler{}
	cfg := DefaultConfig()
	cfg.CheckInterval = 5 * time.Millisecond
	rl := New(cfg, zerolog.Nop()).WithSampler(s.sample)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- rl.Run(ctx) }()

	assert.Eventually(t, func() bool { return s.callCount() >= 3 }, time.Second, 5*time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestSampleUsage(t *testing.T) {
	usage, err := SampleUsage(context.Background())
	require.NoError(t, err)

	assert.NotZero(t, usage.SysMB)
	assert.NotZero(t, usage.Goroutines)
	assert.False(t, usage.SampledAt.IsZero())
}
