package metrics_collectors

import (
	"context"

	"github.com/benmeehan/signage-hub/internal/models"
	"github.com/rs/zerolog"
	"github.com/shirou/gopsutil/disk"
)

// DiskMetricCollector collects storage usage of the filesystem holding Path.
type DiskMetricCollector struct {
	Logger zerolog.Logger
	Path   string
}

func (d *DiskMetricCollector) Name() string {
	return "disk"
}

func (d *DiskMetricCollector) Collect(ctx context.Context, status *models.DeviceStatus) error {
	path := d.Path
	if path == "" {
		path = "/"
	}

	diskStats, err := disk.UsageWithContext(ctx, path)
	if err != nil {
		return err
	}

	status.SystemInfo.Storage = models.Usage{
		Total: float64(diskStats.Total),
		Used:  float64(diskStats.Used),
	}
	return nil
}
