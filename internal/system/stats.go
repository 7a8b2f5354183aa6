package system

import (
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"
	log "github.com/sirupsen/logrus"
)

var (
	lastCPUTime        time.Time
	lastCPUUsage       float64
	cpuUsageMutex      sync.Mutex
	cpuUsageSampleRate = 500 * time.Millisecond
)

// Stats holds a snapshot of host and process statistics for the status
// endpoint.
type Stats struct {
	NumCPU        int     `json:"num_cpu"`
	GoRoutines    int     `json:"go_routines"`
	CPUUsage      float64 `json:"cpu_usage"`
	MemoryUsedPct float64 `json:"memory_used_pct"`
	MemoryAlloc   uint64  `json:"memory_alloc"`
	MemorySys     uint64  `json:"memory_sys"`

	Timestamp time.Time `json:"timestamp"`
}

// FormatBytes renders a byte count in human-readable units.
func FormatBytes(bytes uint64) string {
	const (
		KB = 1024
		MB = KB * 1024
		GB = MB * 1024
	)

	switch {
	case bytes >= GB:
		return fmt.Sprintf("%.2f GB", float64(bytes)/float64(GB))
	case bytes >= MB:
		return fmt.Sprintf("%.2f MB", float64(bytes)/float64(MB))
	case bytes >= KB:
		return fmt.Sprintf("%.2f KB", float64(bytes)/float64(KB))
	default:
		return fmt.Sprintf("%d Bytes", bytes)
	}
}

// CPUUsage samples overall CPU utilisation via gopsutil. Samples are
// cached for 500ms so frequent status polling stays cheap.
func CPUUsage() float64 {
	cpuUsageMutex.Lock()
	defer cpuUsageMutex.Unlock()

	if time.Since(lastCPUTime) < cpuUsageSampleRate && lastCPUTime.Unix() > 0 {
		return lastCPUUsage
	}

	percentages, err := cpu.Percent(200*time.Millisecond, false)
	if err != nil {
		log.Warnf("CPU usage sampling failed: %v", err)
		return 0.0
	}

	var usage float64
	if len(percentages) > 0 {
		usage = percentages[0]
	}

	lastCPUTime = time.Now()
	lastCPUUsage = usage

	return usage
}

// Snapshot collects current host and runtime statistics.
func Snapshot() *Stats {
	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)

	stats := &Stats{
		NumCPU:      runtime.NumCPU(),
		GoRoutines:  runtime.NumGoroutine(),
		CPUUsage:    CPUUsage(),
		MemoryAlloc: memStats.Alloc,
		MemorySys:   memStats.Sys,
		Timestamp:   time.Now(),
	}

	if vm, err := mem.VirtualMemory(); err != nil {
		log.Warnf("memory sampling failed: %v", err)
	} else {
		stats.MemoryUsedPct = vm.UsedPercent
	}

	return stats
}
