package utils

import (
	"context"
	"sync"
)

// Job represents a task to be executed by a worker.
type Job struct {
	Task func()
}

// WorkerPool runs submitted tasks on a fixed number of goroutines. A task
// that panics is reported to OnPanic and does not take its worker down.
type WorkerPool struct {
	workers   int
	jobQueue  chan Job
	waitGroup sync.WaitGroup

	// OnPanic receives the recovered value of a panicking task. It must be
	// set before the first Submit.
	OnPanic func(recovered any)
}

// NewWorkerPool creates a new WorkerPool with the specified number of workers.
// Fewer than one worker is treated as one.
func NewWorkerPool(workers int) *WorkerPool {
	if workers < 1 {
		workers = 1
	}

	pool := &WorkerPool{
		workers:  workers,
		jobQueue: make(chan Job, workers),
	}

	pool.waitGroup.Add(workers)
	for i := 0; i < workers; i++ {
		go pool.worker()
	}

	return pool
}

// worker processes jobs from the jobQueue.
func (wp *WorkerPool) worker() {
	defer wp.waitGroup.Done()
	for job := range wp.jobQueue {
		wp.run(job)
	}
}

func (wp *WorkerPool) run(job Job) {
	defer func() {
		if r := recover(); r != nil && wp.OnPanic != nil {
			wp.OnPanic(r)
		}
	}()
	job.Task()
}

// Submit adds a new job to the worker pool, blocking while every worker is busy.
func (wp *WorkerPool) Submit(task func()) {
	wp.jobQueue <- Job{Task: task}
}

// SubmitContext is Submit that gives up when ctx is done.
func (wp *WorkerPool) SubmitContext(ctx context.Context, task func()) error {
	select {
	case wp.jobQueue <- Job{Task: task}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Shutdown waits for all workers to finish and then closes the worker pool.
func (wp *WorkerPool) Shutdown() {
	close(wp.jobQueue)
	wp.waitGroup.Wait()
}
