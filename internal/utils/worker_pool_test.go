package utils

import (
	"context"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWorkerPool_RunsAllTasks(t *testing.T) {
	// Setup
	pool := NewWorkerPool(3)
	var done atomic.Int32

	// Execute
	for i := 0; i < 20; i++ {
		pool.Submit(func() { done.Add(1) })
	}
	pool.Shutdown()

	// Assert
	assert.Equal(t, int32(20), done.Load())
}

func TestWorkerPool_PanicDoesNotStopOthers(t *testing.T) {
	// Setup
	pool := NewWorkerPool(1)
	var recovered atomic.Value
	pool.OnPanic = func(r any) { recovered.Store(r) }
	var done atomic.Int32

	// Execute
	pool.Submit(func() { panic("boom") })
	pool.Submit(func() { done.Add(1) })
	pool.Shutdown()

	// Assert
	assert.Equal(t, "boom", recovered.Load())
	assert.Equal(t, int32(1), done.Load())
}

func TestWorkerPool_SubmitContextCanceled(t *testing.T) {
	// Setup
	pool := NewWorkerPool(0)
	block := make(chan struct{})
	pool.Submit(func() { <-block })
	pool.Submit(func() {})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	// Execute
	err := pool.SubmitContext(ctx, func() {})

	// Assert
	require.ErrorIs(t, err, context.Canceled)
	close(block)
	pool.Shutdown()
}

func TestSortedKeys(t *testing.T) {
	assert.Equal(t, []string{"a", "b", "c"}, SortedKeys(map[string]int{"c": 3, "a": 1, "b": 2}))
	assert.Empty(t, SortedKeys(map[string]int{}))
}
