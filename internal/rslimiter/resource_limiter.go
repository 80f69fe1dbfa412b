// Package rslimiter sheds load when the process or host runs short of
// memory or CPU.
package rslimiter

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// ErrOverloaded is returned by Admit while a threshold is exceeded.
var ErrOverloaded = errors.New("service overloaded")

// ResourceLimiter samples usage periodically and refuses new work while the
// last sample is over a threshold. It is safe for concurrent use.
type ResourceLimiter struct {
	config Config
	logger zerolog.Logger
	sample Sampler

	mu         sync.RWMutex
	usage      Usage
	overloaded bool
	reason     string
}

// New creates a ResourceLimiter. Zero thresholds disable the matching check.
func New(config Config, logger zerolog.Logger) *ResourceLimiter {
	if config.CheckInterval <= 0 {
		config.CheckInterval = DefaultConfig().CheckInterval
	}
	return &ResourceLimiter{
		config: config,
		logger: logger.With().Str("component", "ResourceLimiter").Logger(),
		sample: SampleUsage,
	}
}

// WithSampler replaces the usage source.
func (rl *ResourceLimiter) WithSampler(s Sampler) *ResourceLimiter {
	rl.sample = s
	return rl
}

// Run samples usage until ctx is cancelled. It returns nil on cancellation.
func (rl *ResourceLimiter) Run(ctx context.Context) error {
	if rl == nil || !rl.config.Enabled {
		<-ctx.Done()
		return nil
	}

	rl.logger.Info().
		Int64("max_memory_mb", rl.config.MaxMemoryMB).
		Int("max_goroutines", rl.config.MaxGoroutines).
		Float64("system_mem_threshold", rl.config.SystemMemThreshold).
		Float64("cpu_threshold", rl.config.CPUThreshold).
		Dur("check_interval", rl.config.CheckInterval).
		Msg("Resource limiter started")

	rl.Check(ctx)

	ticker := time.NewTicker(rl.config.CheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			rl.logger.Info().Msg("Resource limiter stopped")
			return nil
		case <-ticker.C:
			rl.Check(ctx)
		}
	}
}

// Check takes one sample and updates the admission state.
func (rl *ResourceLimiter) Check(ctx context.Context) {
	usage, err := rl.sample(ctx)
	if err != nil {
		if ctx.Err() == nil {
			rl.logger.Error().Err(err).Msg("Failed to sample resource usage")
		}
		return
	}

	exceeded, reason := rl.evaluate(usage)

	rl.mu.Lock()
	was := rl.overloaded
	rl.usage = usage
	rl.overloaded = exceeded
	rl.reason = reason
	rl.mu.Unlock()

	switch {
	case exceeded && !was:
		rl.logger.Warn().
			Str("reason", reason).
			Int64("alloc_mb", usage.AllocMB).
			Int("goroutines", usage.Goroutines).
			Float64("system_mem_percent", usage.SystemMemUsedPercent).
			Float64("cpu_percent", usage.CPUUsagePercent).
			Msg("Resource limits exceeded, refusing new crawls")
	case !exceeded && was:
		rl.logger.Info().Msg("Resource usage back under limits")
	default:
		rl.logger.Debug().
			Int64("alloc_mb", usage.AllocMB).
			Int("goroutines", usage.Goroutines).
			Float64("system_mem_percent", usage.SystemMemUsedPercent).
			Float64("cpu_percent", usage.CPUUsagePercent).
			Msg("Current resource usage")
	}
}

func (rl *ResourceLimiter) evaluate(u Usage) (bool, string) {
	c := rl.config
	switch {
	case c.MaxMemoryMB > 0 && u.AllocMB > c.MaxMemoryMB:
		return true, fmt.Sprintf("memory %dMB > limit %dMB", u.AllocMB, c.MaxMemoryMB)
	case c.MaxGoroutines > 0 && u.Goroutines > c.MaxGoroutines:
		return true, fmt.Sprintf("goroutines %d > limit %d", u.Goroutines, c.MaxGoroutines)
	case c.SystemMemThreshold > 0 && u.SystemMemUsedPercent/100 > c.SystemMemThreshold:
		return true, fmt.Sprintf("system memory %.1f%% > %.1f%%", u.SystemMemUsedPercent, c.SystemMemThreshold*100)
	case c.CPUThreshold > 0 && u.CPUUsagePercent/100 > c.CPUThreshold:
		return true, fmt.Sprintf("cpu %.1f%% > %.1f%%", u.CPUUsagePercent, c.CPUThreshold*100)
	}
	return false, ""
}

// Admit returns ErrOverloaded while the last sample exceeded a threshold.
// A nil or disabled limiter admits everything.
func (rl *ResourceLimiter) Admit() error {
	if rl == nil || !rl.config.Enabled {
		return nil
	}
	rl.mu.RLock()
	defer rl.mu.RUnlock()
	if rl.overloaded {
		return fmt.Errorf("%w: %s", ErrOverloaded, rl.reason)
	}
	return nil
}

// Usage returns the last sample, or the zero value before the first one.
func (rl *ResourceLimiter) Usage() Usage {
	if rl == nil {
		return Usage{}
	}
	rl.mu.RLock()
	defer rl.mu.RUnlock()
	return rl.usage
}
