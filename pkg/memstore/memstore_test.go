package memstore

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/benmeehan/signage-hub/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore_MetricRetention(t *testing.T) {
	// Setup
	ctx := context.Background()
	now := time.Date(2024, 5, 15, 12, 0, 0, 0, time.UTC)
	store := New(24*time.Hour, 0)
	store.now = func() time.Time { return now }

	for _, age := range []time.Duration{25 * time.Hour, 23 * time.Hour, time.Hour} {
		require.NoError(t, store.AppendMetric(ctx, models.MetricSample{DeviceID: "dev-1", Timestamp: now.Add(-age)}))
	}

	// Execute
	all, err := store.ReadMetrics(ctx, "dev-1", time.Time{})
	require.NoError(t, err)
	recent, err := store.ReadMetrics(ctx, "dev-1", now.Add(-2*time.Hour))
	require.NoError(t, err)

	// Assert
	assert.Len(t, all, 2)
	assert.Len(t, recent, 1)

	// Samples expire while they sit in the store too.
	now = now.Add(22 * time.Hour)
	all, err = store.ReadMetrics(ctx, "dev-1", time.Time{})
	require.NoError(t, err)
	assert.Len(t, all, 1)

	none, err := store.ReadMetrics(ctx, "unknown", time.Time{})
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestStore_AlertHistoryIsCapped(t *testing.T) {
	ctx := context.Background()
	store := New(0, 3)

	for i := 1; i <= 5; i++ {
		require.NoError(t, store.AppendAlert(ctx, "dev-1", models.Alert{ID: fmt.Sprintf("a%d", i)}))
	}

	alerts, err := store.ReadAlerts(ctx, "dev-1", 0)
	require.NoError(t, err)
	require.Len(t, alerts, 3)
	assert.Equal(t, "a5", alerts[0].ID)
	assert.Equal(t, "a3", alerts[2].ID)

	limited, err := store.ReadAlerts(ctx, "dev-1", 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"a5", "a4"}, []string{limited[0].ID, limited[1].ID})

	require.NoError(t, store.ClearAlerts(ctx, "dev-1"))
	alerts, err = store.ReadAlerts(ctx, "dev-1", 0)
	require.NoError(t, err)
	assert.Empty(t, alerts)
}

func TestStore_ConcurrentAppends(t *testing.T) {
	ctx := context.Background()
	store := New(time.Hour, 1000)
	now := time.Now()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 25; j++ {
				_ = store.AppendMetric(ctx, models.MetricSample{DeviceID: "dev-1", Timestamp: now})
				_ = store.AppendAlert(ctx, "dev-1", models.Alert{ID: fmt.Sprintf("%d-%d", i, j)})
			}
		}(i)
	}
	wg.Wait()

	samples, err := store.ReadMetrics(ctx, "dev-1", time.Time{})
	require.NoError(t, err)
	assert.Len(t, samples, 500)

	alerts, err := store.ReadAlerts(ctx, "dev-1", 0)
	require.NoError(t, err)
	assert.Len(t, alerts, 500)
}
