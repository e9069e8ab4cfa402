package storyfeed

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/soapboxsocial/fanout/pkg/batch"
	"github.com/soapboxsocial/fanout/pkg/jobs"
	"github.com/soapboxsocial/fanout/pkg/stories"
	"github.com/soapboxsocial/fanout/pkg/tasks"
	"github.com/soapboxsocial/fanout/pkg/users"
)

// Strategy is the way a story reaches followers.
type Strategy string

const (
	StrategyNone Strategy = ""
	StrategyPull Strategy = "pull"
	StrategyPush Strategy = "push"
)

// Distribution is the outcome of distributing a story.
type Distribution struct {
	Strategy  Strategy
	Followers int
}

// Distributor consumes the story queue.
type Distributor struct {
	cache  *Cache
	stores Stores
	config Config

	log     logrus.FieldLogger
	metrics *jobs.Metrics
}

func NewDistributor(cache *Cache, stores Stores, config Config, log logrus.FieldLogger, metrics *jobs.Metrics) *Distributor {
	return &Distributor{
		cache:   cache,
		stores:  stores,
		config:  config,
		log:     log,
		metrics: metrics,
	}
}

func (d *Distributor) Handle(ctx context.Context, job *jobs.Job) error {
	task, err := tasks.DecodeStoryTask(job)
	if err != nil {
		d.log.WithError(err).WithField("job", job.ID).Error("failed to decode job")
		return jobs.Permanent(err)
	}

	switch t := task.(type) {
	case tasks.StoryDistribute:
		_, err := d.Distribute(ctx, t)
		return err
	default:
		return jobs.Permanent(errors.Wrapf(tasks.ErrUnknownTask, "%T", task))
	}
}

// Distribute places a new story where the followers of its creator will
// read it from. The popularity recorded when the creator was last updated
// decides the strategy, the flag carried by the task is only used while no
// such record can be read.
func (d *Distributor) Distribute(ctx context.Context, task tasks.StoryDistribute) (Distribution, error) {
	log := d.log.WithFields(logrus.Fields{"story": task.StoryID, "creator": task.Creator})

	if !task.Expiry().After(time.Now()) {
		log.Info("story already expired, skipping distribution")
		return Distribution{}, nil
	}

	_, err := d.stores.Stories.GetStory(ctx, task.StoryID)
	if err == stories.ErrNotFound {
		log.Warn("story no longer exists, skipping distribution")
		return Distribution{}, nil
	}

	if err != nil {
		return Distribution{}, errors.Wrap(err, "failed to get story")
	}

	popular, err := d.stores.Users.IsPopular(ctx, task.Creator)
	if err == users.ErrNotFound {
		log.Warn("creator no longer exists, skipping distribution")
		return Distribution{}, nil
	}

	if err != nil {
		return Distribution{}, errors.Wrap(err, "failed to get creator popularity")
	}

	if popular != task.IsPopular {
		log.WithField("popular", popular).Info("creator popularity changed since enqueue")
	}

	// only the id and expiry are written to the cache
	story := &stories.Story{ID: task.StoryID, UserID: task.Creator, ExpiresAt: task.ExpiresAt}

	if popular {
		tx := d.cache.Begin()
		tx.Shelve(ctx, task.Creator, []*stories.Story{story})

		err := tx.Exec(ctx)
		if err != nil {
			return Distribution{}, errors.Wrap(err, "failed to shelve story")
		}

		log.WithField("strategy", StrategyPull).Info("story distributed")
		return Distribution{Strategy: StrategyPull}, nil
	}

	size := d.config.batchSize()
	tx := d.cache.Begin()

	processed, err := batch.ForEachBatch(
		ctx,
		d.stores.Graph.Followers(task.Creator, size),
		size,
		func(follower int) error {
			tx.PushStories(ctx, follower, task.Creator, []*stories.Story{story})
			return nil
		},
		func(ctx context.Context, processed int) error {
			err := tx.Exec(ctx)
			if err != nil {
				return errors.Wrap(err, "failed to push story")
			}

			log.WithField("processed", processed).Debug("pushed story batch")
			return nil
		},
	)
	if err != nil {
		return Distribution{}, err
	}

	d.metrics.ObserveRecipients(tasks.StoryQueue, processed)
	log.WithFields(logrus.Fields{"strategy": StrategyPush, "followers": processed}).Info("story distributed")

	return Distribution{Strategy: StrategyPush, Followers: processed}, nil
}
