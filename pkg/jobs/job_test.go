package jobs_test

import (
	"testing"
	"time"

	"github.com/soapboxsocial/fanout/pkg/jobs"
)

func TestBackoff_Next(t *testing.T) {
	var tests = []struct {
		name     string
		backoff  jobs.Backoff
		attempt  int
		expected time.Duration
	}{
		{"none", jobs.Backoff{}, 1, 0},
		{"fixed first", jobs.Backoff{Type: jobs.BackoffFixed, Delay: time.Second}, 1, time.Second},
		{"fixed third", jobs.Backoff{Type: jobs.BackoffFixed, Delay: time.Second}, 3, time.Second},
		{"exponential first", jobs.Backoff{Type: jobs.BackoffExponential, Delay: time.Second}, 1, time.Second},
		{"exponential third", jobs.Backoff{Type: jobs.BackoffExponential, Delay: time.Second}, 3, 4 * time.Second},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			delay := tt.backoff.Next(tt.attempt)
			if delay != tt.expected {
				t.Fatalf("expected %s actual %s", tt.expected, delay)
			}
		})
	}
}
