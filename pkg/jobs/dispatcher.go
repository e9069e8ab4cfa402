package jobs

import (
	"context"
	"sync"
	"time"
)

// Dispatcher pulls jobs from a queue and hands each one to an idle worker, at
// most maxWorkers jobs of the queue run at a time.
type Dispatcher struct {
	pool chan chan *Job
	quit chan bool
	once sync.Once

	maxWorkers int
	workers    []*Worker

	config *Config
	wg     *sync.WaitGroup
}

func NewDispatcher(maxWorkers int, config *Config) *Dispatcher {
	if config.PollInterval <= 0 {
		config.PollInterval = 250 * time.Millisecond
	}

	if config.StallTimeout <= 0 {
		config.StallTimeout = 30 * time.Second
	}

	return &Dispatcher{
		pool:       make(chan chan *Job),
		quit:       make(chan bool),
		maxWorkers: maxWorkers,
		config:     config,
		wg:         &sync.WaitGroup{},
	}
}

func (d *Dispatcher) Run(ctx context.Context) {
	// starting n number of workers
	for i := 0; i < d.maxWorkers; i++ {
		worker := NewWorker(d.pool, d.config, d.wg.Done)
		worker.Start(ctx)
		d.workers = append(d.workers, worker)
	}

	go d.dispatch(ctx)
}

// Stop stops pulling jobs, jobs already handed to a worker run to completion.
func (d *Dispatcher) Stop() {
	d.once.Do(func() {
		close(d.quit)

		for _, w := range d.workers {
			w.Stop()
		}
	})
}

// Wait blocks until every job handed to a worker has finished.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}

func (d *Dispatcher) dispatch(ctx context.Context) {
	for {
		var jobs chan *Job

		// wait for an idle worker before reserving, a reserved job holds a lease.
		select {
		case jobs = <-d.pool:
		case <-d.quit:
			return
		case <-ctx.Done():
			return
		}

		job := d.next(ctx)
		if job == nil {
			return
		}

		d.wg.Add(1)

		select {
		case jobs <- job:
		case <-d.quit:
			// the lease lapses and the job is handed out again.
			d.wg.Done()
			return
		case <-ctx.Done():
			d.wg.Done()
			return
		}
	}
}

// next blocks until a job is reserved, it returns nil once stopped.
func (d *Dispatcher) next(ctx context.Context) *Job {
	queue := d.config.Queue
	log := d.config.Logger.WithField("queue", queue.Name())

	ticker := time.NewTicker(d.config.PollInterval)
	defer ticker.Stop()

	for {
		now := time.Now()

		_, err := queue.Promote(ctx, now)
		if err != nil {
			log.WithError(err).Error("queue.Promote failed")
		}

		stalled, err := queue.RequeueStalled(ctx, now)
		if err != nil {
			log.WithError(err).Error("queue.RequeueStalled failed")
		}

		if stalled > 0 {
			log.WithField("stalled", stalled).Warn("requeued stalled jobs")

			if d.config.Metrics != nil {
				d.config.Metrics.Stalled.WithLabelValues(queue.Name()).Add(float64(stalled))
			}
		}

		job, err := queue.Reserve(ctx, d.config.StallTimeout)
		if err != nil {
			log.WithError(err).Error("queue.Reserve failed")
		}

		if job != nil {
			return job
		}

		select {
		case <-ticker.C:
		case <-d.quit:
			return nil
		case <-ctx.Done():
			return nil
		}
	}
}
