package jobs

import (
	"github.com/cenkalti/backoff/v4"
	"github.com/pkg/errors"
)

var (
	// ErrDuplicateJob is returned when a job with the same id already exists.
	ErrDuplicateJob = errors.New("job already exists")

	// ErrLeaseLost is returned when a job is extended or finished after its
	// lease lapsed and it was handed out again.
	ErrLeaseLost = errors.New("job lease lost")

	// ErrUnknownQueue is returned for a queue name that is not served.
	ErrUnknownQueue = errors.New("unknown queue")
)

// Permanent marks err as not retryable, the job fails on its current attempt.
func Permanent(err error) error {
	return backoff.Permanent(err)
}

// IsPermanent reports whether err was marked with Permanent.
func IsPermanent(err error) bool {
	var perm *backoff.PermanentError
	return errors.As(err, &perm)
}
