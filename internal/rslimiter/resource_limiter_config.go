package rslimiter

import "time"

// Config holds the thresholds above which new crawl runs are refused.
type Config struct {
	Enabled            bool
	CheckInterval      time.Duration // How often usage is sampled
	MaxMemoryMB        int64         // Heap allocated by this process
	MaxGoroutines      int
	SystemMemThreshold float64 // Fraction of host memory in use (0.9 = 90%)
	CPUThreshold       float64 // Fraction of host CPU in use
}

// DefaultConfig returns the limits used when none are configured.
func DefaultConfig() Config {
	return Config{
		Enabled:            true,
		CheckInterval:      15 * time.Second,
		MaxMemoryMB:        1024,
		MaxGoroutines:      10000,
		SystemMemThreshold: 0.9,
		CPUThreshold:       0.95,
	}
}
