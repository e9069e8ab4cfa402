package cmd

import (
	"context"
	"fmt"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/soapboxsocial/fanout/pkg/jobs"
	"github.com/soapboxsocial/fanout/pkg/tasks"
)

var countsCmd = &cobra.Command{
	Use:   "counts [queue]",
	Short: "prints the number of jobs per state",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runCounts,
}

func runCounts(_ *cobra.Command, args []string) error {
	names := tasks.Queues
	if len(args) == 1 {
		names = args
	}

	for _, name := range names {
		queue, err := queueNamed(name)
		if err != nil {
			return err
		}

		counts, err := queue.Counts(context.Background())
		if err != nil {
			return errors.Wrapf(err, "failed to count %s", name)
		}

		fmt.Printf(
			"%-14s waiting=%d delayed=%d active=%d completed=%d failed=%d\n",
			name,
			counts[jobs.Waiting],
			counts[jobs.Delayed],
			counts[jobs.Active],
			counts[jobs.Completed],
			counts[jobs.Failed],
		)
	}

	return nil
}
