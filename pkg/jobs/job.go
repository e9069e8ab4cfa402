package jobs

import (
	"encoding/json"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// BackoffType selects how retry delays grow.
type BackoffType string

const (
	BackoffNone        BackoffType = ""
	BackoffFixed       BackoffType = "fixed"
	BackoffExponential BackoffType = "exponential"
)

const maxBackoff = 10 * time.Minute

// Backoff describes the delay before a failed job is retried.
type Backoff struct {
	Type  BackoffType   `json:"type,omitempty"`
	Delay time.Duration `json:"delay,omitempty"`
}

// Next returns the delay before retrying after the given attempt, attempts
// start at 1.
func (b Backoff) Next(attempt int) time.Duration {
	var policy backoff.BackOff

	switch b.Type {
	case BackoffFixed:
		policy = backoff.NewConstantBackOff(b.Delay)
	case BackoffExponential:
		policy = &backoff.ExponentialBackOff{
			InitialInterval:     b.Delay,
			RandomizationFactor: 0,
			Multiplier:          2,
			MaxInterval:         maxBackoff,
			MaxElapsedTime:      0,
			Stop:                backoff.Stop,
			Clock:               backoff.SystemClock,
		}
	default:
		return 0
	}

	policy.Reset()

	delay := policy.NextBackOff()
	for i := 1; i < attempt; i++ {
		delay = policy.NextBackOff()
	}

	if delay == backoff.Stop {
		return maxBackoff
	}

	return delay
}

// Retention describes what is kept of a finished job. The zero value keeps
// every finished job, enqueueing its id again replaces it.
type Retention struct {
	Remove bool          `json:"remove,omitempty"`
	Count  int           `json:"count,omitempty"`
	Age    time.Duration `json:"age,omitempty"`
}

// Options are set by the producer when enqueueing.
type Options struct {
	// JobID makes the job unique, enqueueing an id that still exists is a no-op.
	JobID string `json:"job_id,omitempty"`

	// Priority orders waiting jobs, lower runs first.
	Priority int `json:"priority,omitempty"`

	// LIFO runs the newest job of a priority first.
	LIFO bool `json:"lifo,omitempty"`

	Delay            time.Duration `json:"delay,omitempty"`
	Attempts         int           `json:"attempts,omitempty"`
	Backoff          Backoff       `json:"backoff"`
	RemoveOnComplete Retention     `json:"remove_on_complete"`
	RemoveOnFail     Retention     `json:"remove_on_fail"`
}

func (o Options) maxAttempts() int {
	if o.Attempts < 1 {
		return 1
	}

	return o.Attempts
}

// Job is the envelope stored in redis for every enqueued unit of work.
type Job struct {
	ID           string          `json:"id"`
	Queue        string          `json:"queue"`
	Name         string          `json:"name"`
	Data         json.RawMessage `json:"data"`
	Options      Options         `json:"options"`
	Attempts     int             `json:"attempts"`
	Score        float64         `json:"score"`
	CreatedAt    int64           `json:"created_at"`
	FailedReason string          `json:"failed_reason,omitempty"`

	// Token identifies the lease held by the worker that reserved the job.
	Token string `json:"-"`
}

// Decode unmarshals the job data into v.
func (j *Job) Decode(v interface{}) error {
	return json.Unmarshal(j.Data, v)
}

const (
	orderBase   = float64(1 << 41)
	priorityMul = float64(1 << 42)
	maxPriority = 2048
)

// score orders waiting jobs by priority then by insertion order.
func score(priority int, lifo bool, seq int64) float64 {
	if priority < 0 {
		priority = 0
	}

	if priority > maxPriority {
		priority = maxPriority
	}

	order := orderBase + float64(seq)
	if lifo {
		order = orderBase - float64(seq)
	}

	return float64(priority)*priorityMul + order
}
