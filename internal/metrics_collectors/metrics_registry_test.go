package metrics_collectors

import (
	"context"
	"errors"
	"testing"

	"github.com/benmeehan/signage-hub/internal/models"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

type stubCollector struct {
	name string
	fill func(*models.DeviceStatus)
	err  error
}

func (s *stubCollector) Name() string { return s.name }

func (s *stubCollector) Collect(_ context.Context, status *models.DeviceStatus) error {
	if s.err != nil {
		return s.err
	}
	s.fill(status)
	return nil
}

func TestMetricsRegistry_Collect(t *testing.T) {
	// Setup
	r := NewMetricsRegistry(zerolog.Nop())
	r.Register(&stubCollector{name: "cpu", fill: func(s *models.DeviceStatus) { s.SystemInfo.CPU = 42 }})
	r.Register(&stubCollector{name: "network", err: errors.New("no IPv4 address found")})
	r.Register(&stubCollector{name: "memory", fill: func(s *models.DeviceStatus) {
		s.SystemInfo.Memory = models.Usage{Total: 8, Used: 2}
	}})

	// Execute
	status := r.Collect(context.Background())

	// Assert
	assert.True(t, status.Online)
	assert.Equal(t, 42.0, status.SystemInfo.CPU)
	assert.Equal(t, models.Usage{Total: 8, Used: 2}, status.SystemInfo.Memory)
	assert.Empty(t, status.IP)
	assert.Len(t, r.GetCollectors(), 3)
}

func TestNewDefaultRegistry(t *testing.T) {
	// Setup & Execute
	r := NewDefaultRegistry("/", zerolog.Nop())

	// Assert
	var names []string
	for _, c := range r.GetCollectors() {
		names = append(names, c.Name())
	}
	assert.Equal(t, []string{"host", "network", "cpu", "memory", "disk"}, names)
}

func TestHasFlag(t *testing.T) {
	assert.True(t, hasFlag([]string{"up", "broadcast"}, "up"))
	assert.False(t, hasFlag([]string{"up"}, "loopback"))
}
