// Package feeds maintains the home feed of every user, new posts are pushed
// to the feed of the author and all of their followers.
package feeds

import (
	"context"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/soapboxsocial/fanout/pkg/jobs"
	"github.com/soapboxsocial/fanout/pkg/tasks"
)

type FollowerStore interface {
	FollowerIDs(ctx context.Context, user int) ([]int, error)
}

type PostStore interface {
	Exists(ctx context.Context, id string, author int) (bool, error)
}

type FeedStore interface {
	Push(ctx context.Context, post string, users []int) error
}

// Engine consumes the home feed queue.
type Engine struct {
	followers FollowerStore
	posts     PostStore
	feeds     FeedStore

	log     logrus.FieldLogger
	metrics *jobs.Metrics
}

func NewEngine(followers FollowerStore, posts PostStore, feeds FeedStore, log logrus.FieldLogger, metrics *jobs.Metrics) *Engine {
	return &Engine{
		followers: followers,
		posts:     posts,
		feeds:     feeds,
		log:       log,
		metrics:   metrics,
	}
}

func (e *Engine) Handle(ctx context.Context, job *jobs.Job) error {
	task, err := tasks.DecodeHomeFeedTask(job)
	if err != nil {
		e.log.WithError(err).WithField("job", job.ID).Error("failed to decode job")
		return jobs.Permanent(err)
	}

	switch t := task.(type) {
	case tasks.PostFanout:
		return e.fanout(ctx, t)
	default:
		return jobs.Permanent(errors.Wrapf(tasks.ErrUnknownTask, "%T", task))
	}
}

func (e *Engine) fanout(ctx context.Context, task tasks.PostFanout) error {
	log := e.log.WithFields(logrus.Fields{"post": task.PostID, "author": task.AuthorID})

	exists, err := e.posts.Exists(ctx, task.PostID, task.AuthorID)
	if err != nil {
		return errors.Wrap(err, "failed to find post")
	}

	if !exists {
		log.Warn("post no longer exists, skipping fan-out")
		return nil
	}

	followers, err := e.followers.FollowerIDs(ctx, task.AuthorID)
	if err != nil {
		return errors.Wrap(err, "failed to get followers")
	}

	recipients := unique(append([]int{task.AuthorID}, followers...))

	err = e.feeds.Push(ctx, task.PostID, recipients)
	if err != nil {
		return errors.Wrap(err, "failed to push to feeds")
	}

	e.metrics.ObserveRecipients(tasks.HomeFeedQueue, len(recipients))
	log.WithField("recipients", len(recipients)).Info("post fanned out")

	return nil
}

func unique(ids []int) []int {
	seen := make(map[int]bool, len(ids))
	result := make([]int, 0, len(ids))

	for _, id := range ids {
		if seen[id] {
			continue
		}

		seen[id] = true
		result = append(result, id)
	}

	return result
}
