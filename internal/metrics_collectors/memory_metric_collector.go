package metrics_collectors

import (
	"context"

	"github.com/benmeehan/signage-hub/internal/models"
	"github.com/rs/zerolog"
	"github.com/shirou/gopsutil/mem"
)

// MemoryMetricCollector collects total and used virtual memory in bytes.
type MemoryMetricCollector struct {
	Logger zerolog.Logger
}

// Name returns the identifier for the memory metric collector.
func (m *MemoryMetricCollector) Name() string {
	return "memory"
}

// Collect retrieves virtual memory usage.
func (m *MemoryMetricCollector) Collect(ctx context.Context, status *models.DeviceStatus) error {
	memStats, err := mem.VirtualMemoryWithContext(ctx)
	if err != nil {
		return err
	}

	m.Logger.Debug().
		Float64("memory_usage_percent", memStats.UsedPercent).
		Msg("Memory usage collected successfully")

	status.SystemInfo.Memory = models.Usage{
		Total: float64(memStats.Total),
		Used:  float64(memStats.Used),
	}
	return nil
}
