package rslimiter

import (
	"context"
	"runtime"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"
)

// Usage is one sample of process and host resource usage.
type Usage struct {
	AllocMB              int64     `json:"alloc_mb"`
	SysMB                int64     `json:"sys_mb"`
	Goroutines           int       `json:"goroutines"`
	GCCount              int64     `json:"gc_count"`
	SystemMemUsedMB      int64     `json:"system_mem_used_mb"`
	SystemMemTotalMB     int64     `json:"system_mem_total_mb"`
	SystemMemUsedPercent float64   `json:"system_mem_used_percent"`
	CPUUsagePercent      float64   `json:"cpu_usage_percent"`
	SampledAt            time.Time `json:"sampled_at"`
}

// Sampler reads current usage. SampleUsage is the production implementation.
type Sampler func(ctx context.Context) (Usage, error)

// SampleUsage reads runtime stats and host memory and CPU. Host figures are
// left at zero when gopsutil cannot read them.
func SampleUsage(ctx context.Context) (Usage, error) {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	usage := Usage{
		AllocMB:    int64(m.Alloc / 1024 / 1024),
		SysMB:      int64(m.Sys / 1024 / 1024),
		Goroutines: runtime.NumGoroutine(),
		GCCount:    int64(m.NumGC),
		SampledAt:  time.Now(),
	}

	if vmStat, err := mem.VirtualMemoryWithContext(ctx); err == nil {
		usage.SystemMemUsedMB = int64(vmStat.Used / 1024 / 1024)
		usage.SystemMemTotalMB = int64(vmStat.Total / 1024 / 1024)
		usage.SystemMemUsedPercent = vmStat.UsedPercent
	}

	// Interval 0 compares against the previous call instead of blocking.
	if percents, err := cpu.PercentWithContext(ctx, 0, false); err == nil && len(percents) > 0 {
		usage.CPUUsagePercent = percents[0]
	}

	return usage, ctx.Err()
}
