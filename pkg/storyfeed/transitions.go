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

// Transitions reconciles the story indices with follow edge changes and
// popularity changes. Both handlers act on the state of the durable stores
// at execution time, a task that no longer matches that state is completed
// without effect.
type Transitions struct {
	cache  *Cache
	stores Stores
	config Config

	log     logrus.FieldLogger
	metrics *jobs.Metrics
}

func NewTransitions(cache *Cache, stores Stores, config Config, log logrus.FieldLogger, metrics *jobs.Metrics) *Transitions {
	return &Transitions{
		cache:   cache,
		stores:  stores,
		config:  config,
		log:     log,
		metrics: metrics,
	}
}

// HandleFollow consumes the story follow queue.
func (t *Transitions) HandleFollow(ctx context.Context, job *jobs.Job) error {
	task, err := tasks.DecodeStoryFollowTask(job)
	if err != nil {
		t.log.WithError(err).WithField("job", job.ID).Error("failed to decode job")
		return jobs.Permanent(err)
	}

	switch task := task.(type) {
	case tasks.Follow:
		return t.Follow(ctx, task.Follower, task.Creator)
	case tasks.Unfollow:
		return t.Unfollow(ctx, task.Follower, task.Creator)
	default:
		return jobs.Permanent(errors.Wrapf(tasks.ErrUnknownTask, "%T", task))
	}
}

// HandlePopularity consumes the popularity queue.
func (t *Transitions) HandlePopularity(ctx context.Context, job *jobs.Job) error {
	task, err := tasks.DecodePopularityTask(job)
	if err != nil {
		t.log.WithError(err).WithField("job", job.ID).Error("failed to decode job")
		return jobs.Permanent(err)
	}

	switch task := task.(type) {
	case tasks.Upgrade:
		return t.Upgrade(ctx, task.Creator)
	case tasks.Downgrade:
		return t.Downgrade(ctx, task.Creator)
	default:
		return jobs.Permanent(errors.Wrapf(tasks.ErrUnknownTask, "%T", task))
	}
}

// Follow makes the stories of creator reachable for follower. Popular
// creators are pulled at read time, unexpired stories of regular creators
// are backfilled into the feed of follower.
func (t *Transitions) Follow(ctx context.Context, follower, creator int) error {
	log := t.log.WithFields(logrus.Fields{"follower": follower, "creator": creator})

	following, err := t.stores.Graph.IsFollowing(ctx, follower, creator)
	if err != nil {
		return errors.Wrap(err, "failed to check follow edge")
	}

	if !following {
		// the edge was removed again before this ran
		log.Info("follow edge no longer exists, reconciling as unfollow")
		return t.unfollow(ctx, follower, creator)
	}

	popular, err := t.stores.Users.IsPopular(ctx, creator)
	if err == users.ErrNotFound {
		log.Warn("creator no longer exists, skipping follow")
		return nil
	}

	if err != nil {
		return errors.Wrap(err, "failed to get creator popularity")
	}

	tx := t.cache.Begin()

	if popular {
		tx.FollowPopular(ctx, follower, creator)
	} else {
		active, err := t.unexpiredStories(ctx, creator)
		if err != nil {
			return err
		}

		tx.PushStories(ctx, follower, creator, active)
	}

	err = tx.Exec(ctx)
	if err != nil {
		return errors.Wrap(err, "failed to reconcile follow")
	}

	log.WithField("popular", popular).Debug("follow reconciled")
	return nil
}

// Unfollow removes everything of creator from the story indices of follower.
func (t *Transitions) Unfollow(ctx context.Context, follower, creator int) error {
	following, err := t.stores.Graph.IsFollowing(ctx, follower, creator)
	if err != nil {
		return errors.Wrap(err, "failed to check follow edge")
	}

	if following {
		// followed again before this ran
		t.log.WithFields(logrus.Fields{"follower": follower, "creator": creator}).
			Info("follow edge exists again, reconciling as follow")
		return t.Follow(ctx, follower, creator)
	}

	return t.unfollow(ctx, follower, creator)
}

func (t *Transitions) unfollow(ctx context.Context, follower, creator int) error {
	active, err := t.unexpiredStories(ctx, creator)
	if err != nil {
		return err
	}

	tx := t.cache.Begin()
	tx.UnfollowPopular(ctx, follower, creator)
	tx.StripStories(ctx, follower, creator, storyIDs(active))

	err = tx.Exec(ctx)
	if err != nil {
		return errors.Wrap(err, "failed to reconcile unfollow")
	}

	return nil
}

// Upgrade moves creator from push to pull. Every follower starts pulling the
// shelf of creator and loses the pushed copies of its unexpired stories,
// then those stories are placed on the shelf.
func (t *Transitions) Upgrade(ctx context.Context, creator int) error {
	log := t.log.WithFields(logrus.Fields{"creator": creator, "status": tasks.StatusUpgrade})

	ok, err := t.isPopular(ctx, creator, true)
	if !ok || err != nil {
		return err
	}

	active, err := t.unexpiredStories(ctx, creator)
	if err != nil {
		return err
	}

	ids := storyIDs(active)

	tx := t.cache.Begin()
	tx.MarkPopular(ctx, creator)

	err = tx.Exec(ctx)
	if err != nil {
		return errors.Wrap(err, "failed to mark creator popular")
	}

	processed, err := t.eachFollower(ctx, creator, log, func(tx *Tx, follower int) {
		tx.FollowPopular(ctx, follower, creator)
		tx.StripStories(ctx, follower, creator, ids)
	})
	if err != nil {
		return err
	}

	tx.Shelve(ctx, creator, active)

	err = tx.Exec(ctx)
	if err != nil {
		return errors.Wrap(err, "failed to shelve stories")
	}

	t.metrics.ObserveRecipients(tasks.PopularityQueue, processed)
	log.WithFields(logrus.Fields{"followers": processed, "stories": len(active)}).Info("creator upgraded")
	return nil
}

// Downgrade moves creator from pull to push. Every follower stops pulling
// the shelf of creator and gets the unexpired stories pushed, then the shelf is
// deleted.
func (t *Transitions) Downgrade(ctx context.Context, creator int) error {
	log := t.log.WithFields(logrus.Fields{"creator": creator, "status": tasks.StatusDowngrade})

	ok, err := t.isPopular(ctx, creator, false)
	if !ok || err != nil {
		return err
	}

	active, err := t.unexpiredStories(ctx, creator)
	if err != nil {
		return err
	}

	tx := t.cache.Begin()
	tx.UnmarkPopular(ctx, creator)

	err = tx.Exec(ctx)
	if err != nil {
		return errors.Wrap(err, "failed to unmark creator popular")
	}

	processed, err := t.eachFollower(ctx, creator, log, func(tx *Tx, follower int) {
		tx.UnfollowPopular(ctx, follower, creator)
		tx.PushStories(ctx, follower, creator, active)
	})
	if err != nil {
		return err
	}

	tx.DropShelf(ctx, creator)

	err = tx.Exec(ctx)
	if err != nil {
		return errors.Wrap(err, "failed to drop shelf")
	}

	t.metrics.ObserveRecipients(tasks.PopularityQueue, processed)
	log.WithFields(logrus.Fields{"followers": processed, "stories": len(active)}).Info("creator downgraded")
	return nil
}

// isPopular reports whether the stored popularity of creator matches want.
// A mismatch means a later transition superseded this one.
func (t *Transitions) isPopular(ctx context.Context, creator int, want bool) (bool, error) {
	popular, err := t.stores.Users.IsPopular(ctx, creator)
	if err == users.ErrNotFound {
		t.log.WithField("creator", creator).Warn("creator no longer exists, skipping transition")
		return false, nil
	}

	if err != nil {
		return false, errors.Wrap(err, "failed to get creator popularity")
	}

	if popular != want {
		t.log.WithField("creator", creator).Info("popularity changed again, skipping superseded transition")
		return false, nil
	}

	return true, nil
}

// eachFollower stages fn for every follower of creator and flushes the staged
// writes every batch.
func (t *Transitions) eachFollower(ctx context.Context, creator int, log logrus.FieldLogger, fn func(tx *Tx, follower int)) (int, error) {
	size := t.config.batchSize()
	tx := t.cache.Begin()

	return batch.ForEachBatch(
		ctx,
		t.stores.Graph.Followers(creator, size),
		size,
		func(follower int) error {
			fn(tx, follower)
			return nil
		},
		func(ctx context.Context, processed int) error {
			err := tx.Exec(ctx)
			if err != nil {
				return errors.Wrap(err, "failed to flush batch")
			}

			log.WithField("processed", processed).Debug("flushed follower batch")
			return nil
		},
	)
}

// unexpiredStories includes stories still being processed, they were
// distributed when created and readiness is only checked when reading.
func (t *Transitions) unexpiredStories(ctx context.Context, creator int) ([]*stories.Story, error) {
	active, err := t.stores.Stories.GetUnexpiredStoriesForUser(ctx, creator, millis(time.Now()))
	if err != nil {
		return nil, errors.Wrap(err, "failed to get unexpired stories")
	}

	return active, nil
}
