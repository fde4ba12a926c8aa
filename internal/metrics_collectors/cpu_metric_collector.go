package metrics_collectors

import (
	"context"
	"errors"

	"github.com/benmeehan/signage-hub/internal/models"
	"github.com/rs/zerolog"
	"github.com/shirou/gopsutil/cpu"
)

// CPUMetricCollector collects CPU usage metrics.
type CPUMetricCollector struct {
	Logger zerolog.Logger
}

func (c *CPUMetricCollector) Name() string {
	return "cpu"
}

func (c *CPUMetricCollector) Collect(ctx context.Context, status *models.DeviceStatus) error {
	cpuPercentages, err := cpu.PercentWithContext(ctx, 0, false)
	if err != nil {
		return err
	}

	if len(cpuPercentages) == 0 {
		return errors.New("cpu usage data is empty")
	}

	c.Logger.Debug().Float64("cpu_usage", cpuPercentages[0]).Msg("CPU usage collected successfully")
	status.SystemInfo.CPU = cpuPercentages[0]
	return nil
}
