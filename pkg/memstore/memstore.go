// Package memstore keeps metric samples and alerts in memory.
package memstore

import (
	"context"
	"sync"
	"time"

	"github.com/benmeehan/signage-hub/internal/constants"
	"github.com/benmeehan/signage-hub/internal/models"
	cmap "github.com/orcaman/concurrent-map/v2"
)

type series struct {
	mu      sync.Mutex
	samples []models.MetricSample // oldest first
}

// prune drops samples older than cutoff. Must be called with mu held.
func (s *series) prune(cutoff time.Time) {
	i := 0
	for i < len(s.samples) && s.samples[i].Timestamp.Before(cutoff) {
		i++
	}
	if i > 0 {
		s.samples = append(s.samples[:0], s.samples[i:]...)
	}
}

type alertLog struct {
	mu     sync.Mutex
	alerts []models.Alert // oldest first
}

// Store is a MetricsStore with a retention window for samples and a capped
// alert history per device.
type Store struct {
	retention    time.Duration
	historyLimit int
	metrics      cmap.ConcurrentMap[string, *series]
	alerts       cmap.ConcurrentMap[string, *alertLog]
	now          func() time.Time
}

// New creates a Store. Zero values select the defaults.
func New(retention time.Duration, historyLimit int) *Store {
	if retention <= 0 {
		retention = constants.DefaultMetricRetention
	}
	if historyLimit <= 0 {
		historyLimit = constants.DefaultAlertHistoryLimit
	}

	return &Store{
		retention:    retention,
		historyLimit: historyLimit,
		metrics:      cmap.New[*series](),
		alerts:       cmap.New[*alertLog](),
		now:          time.Now,
	}
}

// AppendMetric records a sample and expires old ones.
func (s *Store) AppendMetric(_ context.Context, sample models.MetricSample) error {
	ser := s.metrics.Upsert(sample.DeviceID, nil, func(exists bool, current, _ *series) *series {
		if exists {
			return current
		}
		return &series{}
	})

	ser.mu.Lock()
	defer ser.mu.Unlock()

	ser.prune(s.now().Add(-s.retention))
	ser.samples = append(ser.samples, sample)
	return nil
}

// ReadMetrics returns the unexpired samples of deviceID taken at or after since.
func (s *Store) ReadMetrics(_ context.Context, deviceID string, since time.Time) ([]models.MetricSample, error) {
	ser, ok := s.metrics.Get(deviceID)
	if !ok {
		return nil, nil
	}

	ser.mu.Lock()
	defer ser.mu.Unlock()

	ser.prune(s.now().Add(-s.retention))

	var out []models.MetricSample
	for _, sample := range ser.samples {
		if !sample.Timestamp.Before(since) {
			out = append(out, sample)
		}
	}
	return out, nil
}

// AppendAlert records an alert, evicting the oldest beyond the history limit.
func (s *Store) AppendAlert(_ context.Context, deviceID string, alert models.Alert) error {
	log := s.alerts.Upsert(deviceID, nil, func(exists bool, current, _ *alertLog) *alertLog {
		if exists {
			return current
		}
		return &alertLog{}
	})

	log.mu.Lock()
	defer log.mu.Unlock()

	log.alerts = append(log.alerts, alert)
	if over := len(log.alerts) - s.historyLimit; over > 0 {
		log.alerts = append(log.alerts[:0], log.alerts[over:]...)
	}
	return nil
}

// ReadAlerts returns up to limit alerts of deviceID, newest first. A limit
// of zero or less returns the whole history.
func (s *Store) ReadAlerts(_ context.Context, deviceID string, limit int) ([]models.Alert, error) {
	log, ok := s.alerts.Get(deviceID)
	if !ok {
		return nil, nil
	}

	log.mu.Lock()
	defer log.mu.Unlock()

	n := len(log.alerts)
	if limit > 0 && limit < n {
		n = limit
	}

	out := make([]models.Alert, 0, n)
	for i := len(log.alerts) - 1; i >= 0 && len(out) < n; i-- {
		out = append(out, log.alerts[i])
	}
	return out, nil
}

// ClearAlerts drops the alert history of deviceID.
func (s *Store) ClearAlerts(_ context.Context, deviceID string) error {
	s.alerts.Remove(deviceID)
	return nil
}
