package system

import (
	"fmt"
	"runtime"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"
)

// HostStats is a snapshot of the machine the render ran on.
type HostStats struct {
	LogicalCPUs  int
	TotalMemory  uint64
	UsedMemory   uint64
	UsedPercent  float64
	HeapInUse    uint64
	NumGoroutine int
}

// CollectHostStats reads CPU and memory figures. Missing host figures are
// left zero; the Go runtime figures are always filled.
func CollectHostStats() (HostStats, error) {
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)
	st := HostStats{
		HeapInUse:    ms.HeapInuse,
		NumGoroutine: runtime.NumGoroutine(),
	}

	n, err := cpu.Counts(true)
	if err != nil {
		return st, fmt.Errorf("cpu counts: %w", err)
	}
	st.LogicalCPUs = n

	vm, err := mem.VirtualMemory()
	if err != nil {
		return st, fmt.Errorf("virtual memory: %w", err)
	}
	st.TotalMemory = vm.Total
	st.UsedMemory = vm.Used
	st.UsedPercent = vm.UsedPercent
	return st, nil
}

// String renders the stats for the performance report.
func (s HostStats) String() string {
	return fmt.Sprintf("CPUs: %d | RAM: %s / %s (%.1f%%) | Heap: %s | Goroutines: %d",
		s.LogicalCPUs, humanBytes(s.UsedMemory), humanBytes(s.TotalMemory), s.UsedPercent,
		humanBytes(s.HeapInUse), s.NumGoroutine)
}

func humanBytes(b uint64) string {
	const unit = 1024
	if b < unit {
		return fmt.Sprintf("%dB", b)
	}
	div, exp := uint64(unit), 0
	for n := b / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f%ciB", float64(b)/float64(div), "KMGTPE"[exp])
}
