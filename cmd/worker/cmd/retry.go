package cmd

import (
	"context"
	"fmt"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/soapboxsocial/fanout/pkg/jobs"
	"github.com/soapboxsocial/fanout/pkg/redis"
	"github.com/soapboxsocial/fanout/pkg/tasks"
)

var limit int

var retryCmd = &cobra.Command{
	Use:   "retry <queue>",
	Short: "moves failed jobs of a queue back to waiting",
	Args:  cobra.ExactArgs(1),
	RunE:  runRetry,
}

func init() {
	retryCmd.Flags().IntVarP(&limit, "limit", "l", 100, "maximum number of jobs to retry")
}

func runRetry(_ *cobra.Command, args []string) error {
	queue, err := queueNamed(args[0])
	if err != nil {
		return err
	}

	retried, err := queue.RetryFailed(context.Background(), limit)
	if err != nil {
		return errors.Wrapf(err, "failed to retry %s", queue.Name())
	}

	fmt.Printf("retried %d jobs on %s\n", retried, queue.Name())
	return nil
}

func queueNamed(name string) (*jobs.Queue, error) {
	queue := tasks.NewProducer(redis.NewRedis(config.Redis)).Queue(name)
	if queue == nil {
		return nil, errors.Wrap(jobs.ErrUnknownQueue, name)
	}

	return queue, nil
}
