package stt_gateway

import (
	"context"
	"errors"
	"sync"

	"github.com/agnivade/stt_gateway/logger"
	"github.com/agnivade/stt_gateway/metrics"
	"github.com/agnivade/stt_gateway/queue"
)

// Dispatcher takes jobs off the queue in arrival order and runs them on the
// worker. With a positive worker count it runs a fixed pool; with zero it
// starts one goroutine per job and never blocks on a busy worker.
type Dispatcher struct {
	queue   *queue.Queue[Job]
	worker  *Worker
	workers int
	log     *logger.Logger
	metrics *metrics.Metrics

	wg sync.WaitGroup
}

// NewDispatcher creates a dispatcher. workers < 0 is treated as 0.
func NewDispatcher(q *queue.Queue[Job], w *Worker, workers int, log *logger.Logger, m *metrics.Metrics) *Dispatcher {
	if workers < 0 {
		workers = 0
	}
	return &Dispatcher{
		queue:   q,
		worker:  w,
		workers: workers,
		log:     log,
		metrics: m,
	}
}

// Run dispatches jobs until ctx is cancelled or the queue is closed, then
// waits for in-flight jobs to return.
func (d *Dispatcher) Run(ctx context.Context) error {
	defer d.wg.Wait()

	if d.workers == 0 {
		d.log.Infow("Dispatcher started", "mode", "per-job")
		d.spawnLoop(ctx)
		return nil
	}

	d.log.Infow("Dispatcher started", "mode", "pool", "workers", d.workers)
	for i := 0; i < d.workers; i++ {
		d.wg.Add(1)
		go func(id int) {
			defer d.wg.Done()
			d.poolLoop(ctx, id)
		}(i)
	}
	return nil
}

func (d *Dispatcher) poolLoop(ctx context.Context, id int) {
	for {
		job, ok := d.next(ctx)
		if !ok {
			d.log.Debugw("Worker stopped", "worker", id)
			return
		}
		_ = d.worker.Process(ctx, job)
	}
}

func (d *Dispatcher) spawnLoop(ctx context.Context) {
	for {
		job, ok := d.next(ctx)
		if !ok {
			return
		}
		d.wg.Add(1)
		go func() {
			defer d.wg.Done()
			_ = d.worker.Process(ctx, job)
		}()
	}
}

func (d *Dispatcher) next(ctx context.Context) (Job, bool) {
	// Pop hands out queued items even after cancellation.
	if ctx.Err() != nil {
		return Job{}, false
	}
	job, err := d.queue.Pop(ctx)
	if err != nil {
		if !errors.Is(err, queue.ErrClosed) && !errors.Is(err, context.Canceled) {
			d.log.Warnw("Queue pop failed", "err", err)
		}
		return Job{}, false
	}
	d.metrics.QueueDepth.Set(float64(d.queue.Len()))
	return job, true
}
