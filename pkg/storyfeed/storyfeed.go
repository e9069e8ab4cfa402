// Package storyfeed distributes ephemeral stories to followers and keeps the
// cached story indices consistent with the social graph.
//
// Stories of regular creators are pushed into the feed of every follower when
// they are created. Stories of popular creators are kept once on the
// creator's shelf and pulled by followers at read time, so creating one costs
// the same regardless of follower count.
package storyfeed

import (
	"context"
	"time"

	"github.com/soapboxsocial/fanout/pkg/batch"
	"github.com/soapboxsocial/fanout/pkg/stories"
)

//go:generate mockgen -destination=../../mocks/storyfeed.go -package=mocks . Graph,StoryStore,PopularityStore

const (
	DefaultBatchSize   = 1000
	DefaultMaxFeedSize = 200
	DefaultGrace       = time.Hour
)

// Graph is the follower side of the social graph.
type Graph interface {
	Followers(user, size int) batch.Cursor[int]
	IsFollowing(ctx context.Context, follower, user int) (bool, error)
}

type StoryStore interface {
	GetStory(ctx context.Context, id string) (*stories.Story, error)
	GetActiveStoriesForUser(ctx context.Context, user int, now int64) ([]*stories.Story, error)
	GetUnexpiredStoriesForUser(ctx context.Context, user int, now int64) ([]*stories.Story, error)
	GetReadyStories(ctx context.Context, ids []string, now int64) ([]*stories.Story, error)
}

// PopularityStore reads the durable popularity projection of a user.
type PopularityStore interface {
	IsPopular(ctx context.Context, user int) (bool, error)
}

// Stores are the durable stores the engines read from.
type Stores struct {
	Graph   Graph
	Stories StoryStore
	Users   PopularityStore
}

type Config struct {
	BatchSize int
}

func (c Config) batchSize() int {
	if c.BatchSize <= 0 {
		return DefaultBatchSize
	}

	return c.BatchSize
}
