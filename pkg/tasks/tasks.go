// Package tasks defines the payload contract of every job the workers consume.
// Each queue accepts a closed set of task types, decoders turn a raw job into
// that set so handlers can switch over it exhaustively.
package tasks

import (
	"time"

	"github.com/pkg/errors"

	"github.com/soapboxsocial/fanout/pkg/jobs"
)

// Queue names.
const (
	HomeFeedQueue    = "home_feed"
	StoryQueue       = "story"
	StoryFollowQueue = "story_follow"
	PopularityQueue  = "popularity"
	AccountQueue     = "account"
)

// Job names.
const (
	PostFanoutJob           = "post-fanout"
	StoryDistributeJob      = "story-distribute"
	StoryFollowJob          = "story-follow-transition"
	PopularityJob           = "popularity-transition"
	AcceptFollowRequestsJob = "accept-follow-requests"
)

var (
	ErrUnknownTask = errors.New("unknown task")
	ErrInvalidTask = errors.New("invalid task")
)

type Action string

const (
	ActionFollow   Action = "follow"
	ActionUnfollow Action = "unfollow"
)

type Status string

const (
	StatusUpgrade   Status = "upgrade"
	StatusDowngrade Status = "downgrade"
)

// PostFanout pushes a new post onto the home feed of its author and followers.
type PostFanout struct {
	PostID   string `json:"postId"`
	AuthorID int    `json:"authorId"`
}

// StoryDistribute distributes a new story, ExpiresAt is in unix milliseconds.
type StoryDistribute struct {
	StoryID   string `json:"storyId"`
	Creator   int    `json:"storyCreator"`
	ExpiresAt int64  `json:"expiresAt"`
	IsPopular bool   `json:"isPopularUser"`
}

// Expiry returns ExpiresAt as a time.
func (s StoryDistribute) Expiry() time.Time {
	return time.Unix(0, s.ExpiresAt*int64(time.Millisecond))
}

// StoryFollowTransition is the wire shape of the story follow queue.
type StoryFollowTransition struct {
	Action    Action `json:"action"`
	Follower  int    `json:"loggedInUser"`
	Creator   int    `json:"storyCreator"`
	IsPopular bool   `json:"isPopularUser"`
}

// PopularityTransition is the wire shape of the popularity queue.
type PopularityTransition struct {
	Creator int    `json:"storyCreator"`
	Status  Status `json:"status"`
}

// AcceptFollowRequests converts the pending follow requests of a user that
// switched to a public account into follows.
type AcceptFollowRequests struct {
	UserID int `json:"userId"`
}

// Follow and Unfollow are the story follow queue variants.
type Follow struct {
	Follower  int
	Creator   int
	IsPopular bool
}

type Unfollow struct {
	Follower  int
	Creator   int
	IsPopular bool
}

// Upgrade and Downgrade are the popularity queue variants.
type Upgrade struct {
	Creator int
}

type Downgrade struct {
	Creator int
}

// HomeFeedTask is implemented by the tasks of the home feed queue.
type HomeFeedTask interface{ homeFeedTask() }

// StoryTask is implemented by the tasks of the story queue.
type StoryTask interface{ storyTask() }

// StoryFollowTask is implemented by the tasks of the story follow queue.
type StoryFollowTask interface{ storyFollowTask() }

// PopularityTask is implemented by the tasks of the popularity queue.
type PopularityTask interface{ popularityTask() }

// AccountTask is implemented by the tasks of the account queue.
type AccountTask interface{ accountTask() }

func (PostFanout) homeFeedTask()          {}
func (StoryDistribute) storyTask()        {}
func (Follow) storyFollowTask()           {}
func (Unfollow) storyFollowTask()         {}
func (Upgrade) popularityTask()           {}
func (Downgrade) popularityTask()         {}
func (AcceptFollowRequests) accountTask() {}

func DecodeHomeFeedTask(job *jobs.Job) (HomeFeedTask, error) {
	switch job.Name {
	case PostFanoutJob:
		t := PostFanout{}
		err := decode(job, &t)
		if err != nil {
			return nil, err
		}

		if t.PostID == "" || t.AuthorID == 0 {
			return nil, errors.Wrap(ErrInvalidTask, job.Name)
		}

		return t, nil
	default:
		return nil, errors.Wrap(ErrUnknownTask, job.Name)
	}
}

func DecodeStoryTask(job *jobs.Job) (StoryTask, error) {
	switch job.Name {
	case StoryDistributeJob:
		t := StoryDistribute{}
		err := decode(job, &t)
		if err != nil {
			return nil, err
		}

		if t.StoryID == "" || t.Creator == 0 || t.ExpiresAt == 0 {
			return nil, errors.Wrap(ErrInvalidTask, job.Name)
		}

		return t, nil
	default:
		return nil, errors.Wrap(ErrUnknownTask, job.Name)
	}
}

func DecodeStoryFollowTask(job *jobs.Job) (StoryFollowTask, error) {
	if job.Name != StoryFollowJob {
		return nil, errors.Wrap(ErrUnknownTask, job.Name)
	}

	t := StoryFollowTransition{}
	err := decode(job, &t)
	if err != nil {
		return nil, err
	}

	if t.Follower == 0 || t.Creator == 0 {
		return nil, errors.Wrap(ErrInvalidTask, job.Name)
	}

	switch t.Action {
	case ActionFollow:
		return Follow{Follower: t.Follower, Creator: t.Creator, IsPopular: t.IsPopular}, nil
	case ActionUnfollow:
		return Unfollow{Follower: t.Follower, Creator: t.Creator, IsPopular: t.IsPopular}, nil
	default:
		return nil, errors.Wrapf(ErrUnknownTask, "%s action %q", job.Name, t.Action)
	}
}

func DecodePopularityTask(job *jobs.Job) (PopularityTask, error) {
	if job.Name != PopularityJob {
		return nil, errors.Wrap(ErrUnknownTask, job.Name)
	}

	t := PopularityTransition{}
	err := decode(job, &t)
	if err != nil {
		return nil, err
	}

	if t.Creator == 0 {
		return nil, errors.Wrap(ErrInvalidTask, job.Name)
	}

	switch t.Status {
	case StatusUpgrade:
		return Upgrade{Creator: t.Creator}, nil
	case StatusDowngrade:
		return Downgrade{Creator: t.Creator}, nil
	default:
		return nil, errors.Wrapf(ErrUnknownTask, "%s status %q", job.Name, t.Status)
	}
}

func DecodeAccountTask(job *jobs.Job) (AccountTask, error) {
	switch job.Name {
	case AcceptFollowRequestsJob:
		t := AcceptFollowRequests{}
		err := decode(job, &t)
		if err != nil {
			return nil, err
		}

		if t.UserID == 0 {
			return nil, errors.Wrap(ErrInvalidTask, job.Name)
		}

		return t, nil
	default:
		return nil, errors.Wrap(ErrUnknownTask, job.Name)
	}
}

func decode(job *jobs.Job, v interface{}) error {
	err := job.Decode(v)
	if err != nil {
		return errors.Wrapf(ErrInvalidTask, "%s: %s", job.Name, err)
	}

	return nil
}
