package metrics_collectors

import (
	"context"

	"github.com/benmeehan/signage-hub/internal/models"
)

// MetricCollector fills one part of a device status report.
type MetricCollector interface {
	Name() string                                                   // Name of the collector (e.g., "cpu", "memory")
	Collect(ctx context.Context, status *models.DeviceStatus) error // Collect writes its fields into status
}
