// Package socialgraph mutates follow edges and keeps the derived state of a
// user in step: the follower count, the popularity projection and the jobs
// that reconcile the story indices.
package socialgraph

import (
	"context"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/soapboxsocial/fanout/pkg/followers"
	"github.com/soapboxsocial/fanout/pkg/jobs"
	"github.com/soapboxsocial/fanout/pkg/tasks"
	"github.com/soapboxsocial/fanout/pkg/users"
)

// DefaultPopularityThreshold is the follower count from which a user is popular.
const DefaultPopularityThreshold = 10000

var ErrSelfFollow = errors.New("users can not follow themselves")

// Outcome is the result of a follow.
type Outcome string

const (
	Followed  Outcome = "followed"
	Requested Outcome = "requested"
	Unchanged Outcome = "unchanged"
)

type Service struct {
	followers *followers.Backend
	users     *users.Backend
	producer  *tasks.Producer

	threshold int
	log       logrus.FieldLogger
}

func NewService(followers *followers.Backend, users *users.Backend, producer *tasks.Producer, threshold int, log logrus.FieldLogger) *Service {
	if threshold <= 0 {
		threshold = DefaultPopularityThreshold
	}

	return &Service{
		followers: followers,
		users:     users,
		producer:  producer,
		threshold: threshold,
		log:       log,
	}
}

// Follow makes follower follow user, or files a follow request when user is
// private.
func (s *Service) Follow(ctx context.Context, follower, user int) (Outcome, error) {
	if follower == user {
		return Unchanged, ErrSelfFollow
	}

	target, err := s.users.FindByID(ctx, user)
	if err != nil {
		return Unchanged, err
	}

	if target.IsPrivate {
		created, err := s.followers.RequestFollow(ctx, follower, user)
		if err != nil {
			return Unchanged, errors.Wrap(err, "failed to request follow")
		}

		if !created {
			return Unchanged, nil
		}

		return Requested, nil
	}

	created, err := s.followers.Follow(ctx, follower, user)
	if err != nil {
		return Unchanged, errors.Wrap(err, "failed to follow")
	}

	if !created {
		return Unchanged, nil
	}

	err = s.followed(ctx, user, []int{follower}, 1)
	if err != nil {
		return Followed, err
	}

	return Followed, nil
}

// Unfollow removes the follow edge, a pending request is withdrawn instead
// when there is no edge.
func (s *Service) Unfollow(ctx context.Context, follower, user int) error {
	removed, err := s.followers.Unfollow(ctx, follower, user)
	if err != nil {
		return errors.Wrap(err, "failed to unfollow")
	}

	if !removed {
		_, err := s.followers.RemoveRequest(ctx, follower, user)
		if err != nil {
			return errors.Wrap(err, "failed to remove follow request")
		}

		return nil
	}

	count, err := s.users.AdjustFollowerCount(ctx, user, -1)
	if err != nil {
		return errors.Wrap(err, "failed to update follower count")
	}

	popular, err := s.project(ctx, user, count)
	if err != nil {
		return err
	}

	return s.producer.StoryFollow(ctx, tasks.ActionUnfollow, follower, user, popular)
}

// AcceptRequest turns the pending request of requester into a follow edge.
func (s *Service) AcceptRequest(ctx context.Context, user, requester int) (bool, error) {
	accepted, err := s.followers.AcceptRequest(ctx, requester, user)
	if err != nil {
		return false, errors.Wrap(err, "failed to accept follow request")
	}

	if !accepted {
		return false, nil
	}

	return true, s.followed(ctx, user, []int{requester}, 1)
}

// RejectRequest drops the pending request of requester.
func (s *Service) RejectRequest(ctx context.Context, user, requester int) (bool, error) {
	return s.followers.RemoveRequest(ctx, requester, user)
}

// SetPrivate changes the visibility of user. Turning an account public
// accepts every pending follow request in the background.
func (s *Service) SetPrivate(ctx context.Context, user int, private bool) error {
	changed, err := s.users.SetPrivate(ctx, user, private)
	if err != nil {
		return errors.Wrap(err, "failed to set visibility")
	}

	if !changed || private {
		return nil
	}

	return s.producer.AcceptFollowRequests(ctx, user)
}

// Handle consumes the account queue.
func (s *Service) Handle(ctx context.Context, job *jobs.Job) error {
	task, err := tasks.DecodeAccountTask(job)
	if err != nil {
		s.log.WithError(err).WithField("job", job.ID).Error("failed to decode job")
		return jobs.Permanent(err)
	}

	switch t := task.(type) {
	case tasks.AcceptFollowRequests:
		return s.acceptAll(ctx, t.UserID)
	default:
		return jobs.Permanent(errors.Wrapf(tasks.ErrUnknownTask, "%T", task))
	}
}

func (s *Service) acceptAll(ctx context.Context, user int) error {
	log := s.log.WithField("user", user)

	target, err := s.users.FindByID(ctx, user)
	if err == users.ErrNotFound {
		log.Warn("user no longer exists, skipping follow requests")
		return nil
	}

	if err != nil {
		return errors.Wrap(err, "failed to get user")
	}

	if target.IsPrivate {
		log.Info("account is private again, keeping follow requests")
		return nil
	}

	accepted, err := s.followers.AcceptPendingRequests(ctx, user)
	if err != nil {
		return errors.Wrap(err, "failed to accept follow requests")
	}

	if len(accepted) == 0 {
		return nil
	}

	// the count was refreshed in the same transaction
	err = s.followed(ctx, user, accepted, 0)
	if err != nil {
		return err
	}

	log.WithField("accepted", len(accepted)).Info("accepted follow requests")
	return nil
}

// followed updates the derived state of user after new followers were added.
func (s *Service) followed(ctx context.Context, user int, added []int, delta int) error {
	var count int
	if delta != 0 {
		c, err := s.users.AdjustFollowerCount(ctx, user, delta)
		if err != nil {
			return errors.Wrap(err, "failed to update follower count")
		}

		count = c
	} else {
		target, err := s.users.FindByID(ctx, user)
		if err != nil {
			return errors.Wrap(err, "failed to get user")
		}

		count = target.FollowerCount
	}

	popular, err := s.project(ctx, user, count)
	if err != nil {
		return err
	}

	for _, follower := range added {
		err := s.producer.StoryFollow(ctx, tasks.ActionFollow, follower, user, popular)
		if err != nil {
			return errors.Wrap(err, "failed to enqueue story follow")
		}
	}

	return nil
}

// project stores whether user is popular at count followers and enqueues the
// popularity transition when the stored value flips.
func (s *Service) project(ctx context.Context, user, count int) (bool, error) {
	popular := count >= s.threshold

	changed, err := s.users.SetPopular(ctx, user, popular)
	if err != nil {
		return false, errors.Wrap(err, "failed to set popularity")
	}

	if !changed {
		return popular, nil
	}

	status := tasks.StatusDowngrade
	if popular {
		status = tasks.StatusUpgrade
	}

	s.log.WithFields(logrus.Fields{"user": user, "followers": count, "status": status}).Info("popularity changed")

	err = s.producer.PopularityTransition(ctx, user, status)
	if err != nil {
		return false, errors.Wrap(err, "failed to enqueue popularity transition")
	}

	return popular, nil
}
