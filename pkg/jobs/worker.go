package jobs

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
)

// Handler executes a job. A nil error completes the job, any other error
// fails the attempt.
type Handler interface {
	Handle(ctx context.Context, job *Job) error
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(ctx context.Context, job *Job) error

func (f HandlerFunc) Handle(ctx context.Context, job *Job) error {
	return f(ctx, job)
}

// Config is shared by the dispatcher and its workers.
type Config struct {
	Queue   *Queue
	Handler Handler
	Logger  logrus.FieldLogger
	Metrics *Metrics

	PollInterval time.Duration
	StallTimeout time.Duration
}

type Worker struct {
	jobs    chan *Job
	workers chan<- chan *Job
	quit    chan bool

	config *Config
	done   func()
}

func NewWorker(pool chan<- chan *Job, config *Config, done func()) *Worker {
	return &Worker{
		workers: pool,
		jobs:    make(chan *Job),
		quit:    make(chan bool),
		config:  config,
		done:    done,
	}
}

func (w *Worker) Start(ctx context.Context) {
	go func() {
		for {
			select {
			case w.workers <- w.jobs:
			case <-w.quit:
				return
			case <-ctx.Done():
				return
			}

			select {
			case job := <-w.jobs:
				// Receive a work request.
				w.handle(ctx, job)
			case <-w.quit:
				// We have been asked to stop.
				return
			case <-ctx.Done():
				return
			}
		}
	}()
}

func (w *Worker) Stop() {
	close(w.quit)
}

func (w *Worker) handle(ctx context.Context, job *Job) {
	if w.done != nil {
		defer w.done()
	}

	queue := w.config.Queue
	log := w.config.Logger.WithFields(logrus.Fields{
		"queue":   queue.Name(),
		"job":     job.ID,
		"name":    job.Name,
		"attempt": job.Attempts + 1,
	})

	stop := make(chan bool)
	renewed := make(chan bool)
	go func() {
		w.renew(ctx, job, log, stop)
		close(renewed)
	}()

	start := time.Now()
	err := w.config.Handler.Handle(ctx, job)
	w.observe(func(m *Metrics) {
		m.Duration.WithLabelValues(queue.Name()).Observe(time.Since(start).Seconds())
	})

	close(stop)
	<-renewed

	if err == nil {
		cerr := queue.Complete(ctx, job)
		if cerr == ErrLeaseLost {
			log.Warn("job was handed out again before it completed")
			return
		}

		if cerr != nil {
			log.WithError(cerr).Error("queue.Complete failed")
		}

		w.observe(func(m *Metrics) { m.Jobs.WithLabelValues(queue.Name(), "completed").Inc() })
		log.Debug("job completed")
		return
	}

	retry, ferr := queue.Fail(ctx, job, err)
	if ferr == ErrLeaseLost {
		log.WithError(err).Warn("job was handed out again before it failed")
		return
	}

	if ferr != nil {
		log.WithError(ferr).Error("queue.Fail failed")
	}

	if retry {
		w.observe(func(m *Metrics) { m.Jobs.WithLabelValues(queue.Name(), "retried").Inc() })
		log.WithError(err).Warn("job failed, retrying")
		return
	}

	w.observe(func(m *Metrics) { m.Jobs.WithLabelValues(queue.Name(), "failed").Inc() })
	log.WithError(err).Error("job failed")
}

// renew extends the lease of job every third of the stall timeout until stop
// is closed, so a long running job is not handed out again.
func (w *Worker) renew(ctx context.Context, job *Job, log logrus.FieldLogger, stop <-chan bool) {
	lease := w.config.StallTimeout
	if lease <= 0 {
		return
	}

	ticker := time.NewTicker(lease / 3)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
		case <-stop:
			return
		case <-ctx.Done():
			return
		}

		err := w.config.Queue.Extend(ctx, job, lease)
		if err == ErrLeaseLost {
			log.Warn("job lease lost while running")
			return
		}

		if err != nil {
			log.WithError(err).Error("queue.Extend failed")
		}
	}
}

func (w *Worker) observe(fn func(m *Metrics)) {
	if w.config.Metrics == nil {
		return
	}

	fn(w.config.Metrics)
}
