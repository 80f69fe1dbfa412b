package config

import "time"

// ResourceLimiterConfig sets the usage levels above which new crawls are refused
type ResourceLimiterConfig struct {
	Enabled            bool     `json:"enabled" yaml:"enabled"`
	CheckInterval      Duration `json:"check_interval,omitempty" yaml:"check_interval,omitempty" validate:"min=0"`
	MaxMemoryMB        int64    `json:"max_memory_mb,omitempty" yaml:"max_memory_mb,omitempty" validate:"min=0"`
	MaxGoroutines      int      `json:"max_goroutines,omitempty" yaml:"max_goroutines,omitempty" validate:"min=0"`
	SystemMemThreshold float64  `json:"system_mem_threshold,omitempty" yaml:"system_mem_threshold,omitempty" validate:"min=0,max=1"`
	CPUThreshold       float64  `json:"cpu_threshold,omitempty" yaml:"cpu_threshold,omitempty" validate:"min=0,max=1"`
}

// NewDefaultResourceLimiterConfig creates default resource limiter configuration
func NewDefaultResourceLimiterConfig() ResourceLimiterConfig {
	return ResourceLimiterConfig{
		Enabled:            true,
		CheckInterval:      Duration(15 * time.Second),
		MaxMemoryMB:        1024,
		MaxGoroutines:      10000,
		SystemMemThreshold: 0.9,
		CPUThreshold:       0.95,
	}
}
