package metrics

import (
	"runtime"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"
)

// SystemSnapshot 系统资源快照，用于 stats 接口
type SystemSnapshot struct {
	CPUPercent    float64 `json:"cpu_percent"`
	MemoryPercent float64 `json:"memory_percent"`
	MemoryUsedMB  uint64  `json:"memory_used_mb"`
	Goroutines    int     `json:"goroutines"`
	Timestamp     int64   `json:"timestamp"`
}

// Snapshot collects a point-in-time view of process and host resources.
// Failures fall back to zero values rather than erroring the stats call.
func Snapshot() SystemSnapshot {
	s := SystemSnapshot{
		Goroutines: runtime.NumGoroutine(),
		Timestamp:  time.Now().Unix(),
	}
	if percents, err := cpu.Percent(0, false); err == nil && len(percents) > 0 {
		s.CPUPercent = percents[0]
	}
	if vm, err := mem.VirtualMemory(); err == nil {
		s.MemoryPercent = vm.UsedPercent
		s.MemoryUsedMB = vm.Used / 1024 / 1024
	}
	return s
}
