package tasks

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/soapboxsocial/fanout/pkg/jobs"
)

// Queues lists every queue a worker process consumes.
var Queues = []string{HomeFeedQueue, StoryQueue, StoryFollowQueue, PopularityQueue, AccountQueue}

func PostFanoutKey(postID string, authorID int) string {
	return fmt.Sprintf("post-fanout:%s:%d", postID, authorID)
}

func StoryFollowKey(follower, creator int) string {
	return fmt.Sprintf("story-follow:%d:%d", follower, creator)
}

func AcceptFollowRequestsKey(user int) string {
	return fmt.Sprintf("accept-follow-requests:%d", user)
}

var (
	postFanoutOptions = jobs.Options{
		Priority:         2,
		Attempts:         3,
		Backoff:          jobs.Backoff{Type: jobs.BackoffFixed, Delay: time.Second},
		RemoveOnComplete: jobs.Retention{Remove: true},
	}

	storyDistributeOptions = jobs.Options{
		Priority:         3,
		LIFO:             true,
		Attempts:         2,
		RemoveOnComplete: jobs.Retention{Remove: true},
	}

	storyFollowOptions = jobs.Options{
		Priority:         2,
		Attempts:         3,
		Backoff:          jobs.Backoff{Type: jobs.BackoffFixed, Delay: time.Second},
		RemoveOnComplete: jobs.Retention{Remove: true},
		RemoveOnFail:     jobs.Retention{Count: 50},
	}

	popularityOptions = jobs.Options{
		Priority:         3,
		LIFO:             true,
		Attempts:         2,
		RemoveOnComplete: jobs.Retention{Remove: true},
	}

	acceptFollowRequestsOptions = jobs.Options{
		Attempts:         3,
		Backoff:          jobs.Backoff{Type: jobs.BackoffExponential, Delay: time.Second},
		RemoveOnComplete: jobs.Retention{Remove: true},
	}
)

// Producer enqueues tasks with the options and idempotency key of their kind.
// Enqueueing a task whose key is still held by an unfinished job is a no-op.
type Producer struct {
	queues map[string]*jobs.Queue
}

func NewProducer(rdb *redis.Client) *Producer {
	queues := make(map[string]*jobs.Queue)
	for _, name := range Queues {
		queues[name] = jobs.NewQueue(rdb, name)
	}

	return &Producer{queues: queues}
}

// Queue returns the queue named name, nil if no such queue exists.
func (p *Producer) Queue(name string) *jobs.Queue {
	return p.queues[name]
}

func (p *Producer) PostFanout(ctx context.Context, postID string, authorID int) error {
	opts := postFanoutOptions
	opts.JobID = PostFanoutKey(postID, authorID)

	return p.enqueue(ctx, HomeFeedQueue, PostFanoutJob, PostFanout{PostID: postID, AuthorID: authorID}, opts)
}

func (p *Producer) StoryDistribute(ctx context.Context, task StoryDistribute) error {
	return p.enqueue(ctx, StoryQueue, StoryDistributeJob, task, storyDistributeOptions)
}

func (p *Producer) StoryFollow(ctx context.Context, action Action, follower, creator int, isPopular bool) error {
	opts := storyFollowOptions
	opts.JobID = StoryFollowKey(follower, creator)

	task := StoryFollowTransition{
		Action:    action,
		Follower:  follower,
		Creator:   creator,
		IsPopular: isPopular,
	}

	return p.enqueue(ctx, StoryFollowQueue, StoryFollowJob, task, opts)
}

func (p *Producer) PopularityTransition(ctx context.Context, creator int, status Status) error {
	task := PopularityTransition{Creator: creator, Status: status}
	return p.enqueue(ctx, PopularityQueue, PopularityJob, task, popularityOptions)
}

func (p *Producer) AcceptFollowRequests(ctx context.Context, user int) error {
	opts := acceptFollowRequestsOptions
	opts.JobID = AcceptFollowRequestsKey(user)

	return p.enqueue(ctx, AccountQueue, AcceptFollowRequestsJob, AcceptFollowRequests{UserID: user}, opts)
}

func (p *Producer) enqueue(ctx context.Context, queue, name string, data interface{}, opts jobs.Options) error {
	_, err := p.queues[queue].Enqueue(ctx, name, data, opts)
	if err == jobs.ErrDuplicateJob {
		return nil
	}

	return err
}
