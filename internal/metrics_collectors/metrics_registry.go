package metrics_collectors

import (
	"context"

	"github.com/benmeehan/signage-hub/internal/models"
	"github.com/rs/zerolog"
)

// MetricsRegistry runs its collectors in registration order to build a status report.
type MetricsRegistry struct {
	collectors []MetricCollector
	logger     zerolog.Logger
}

// NewMetricsRegistry creates a new MetricsRegistry instance.
func NewMetricsRegistry(logger zerolog.Logger) *MetricsRegistry {
	return &MetricsRegistry{logger: logger}
}

// NewDefaultRegistry registers the host, network, cpu, memory and disk collectors.
func NewDefaultRegistry(diskPath string, logger zerolog.Logger) *MetricsRegistry {
	r := NewMetricsRegistry(logger)
	r.Register(&HostMetricCollector{Logger: logger})
	r.Register(&NetworkMetricCollector{Logger: logger})
	r.Register(&CPUMetricCollector{Logger: logger})
	r.Register(&MemoryMetricCollector{Logger: logger})
	r.Register(&DiskMetricCollector{Logger: logger, Path: diskPath})
	return r
}

// Register adds a new metric collector to the registry.
func (r *MetricsRegistry) Register(collector MetricCollector) {
	r.collectors = append(r.collectors, collector)
}

// GetCollectors returns all the metric collectors registered in the registry.
func (r *MetricsRegistry) GetCollectors() []MetricCollector {
	return r.collectors
}

// Collect builds a status report. A failing collector leaves its fields
// empty and does not stop the others.
func (r *MetricsRegistry) Collect(ctx context.Context) models.DeviceStatus {
	status := models.DeviceStatus{Online: true}
	for _, collector := range r.collectors {
		if err := collector.Collect(ctx, &status); err != nil {
			r.logger.Warn().Err(err).Str("collector", collector.Name()).Msg("Metric collection failed")
		}
	}
	return status
}
