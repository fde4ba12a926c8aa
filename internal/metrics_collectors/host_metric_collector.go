package metrics_collectors

import (
	"context"
	"strings"

	"github.com/benmeehan/signage-hub/internal/models"
	"github.com/rs/zerolog"
	"github.com/shirou/gopsutil/host"
)

// HostMetricCollector reports the operating system of the player.
type HostMetricCollector struct {
	Logger zerolog.Logger
}

func (h *HostMetricCollector) Name() string {
	return "host"
}

func (h *HostMetricCollector) Collect(ctx context.Context, status *models.DeviceStatus) error {
	info, err := host.InfoWithContext(ctx)
	if err != nil {
		return err
	}

	parts := []string{info.OS}
	if info.Platform != "" {
		parts = append(parts, info.Platform)
	}
	if info.PlatformVersion != "" {
		parts = append(parts, info.PlatformVersion)
	}
	status.SystemInfo.OS = strings.Join(parts, " ")
	return nil
}
