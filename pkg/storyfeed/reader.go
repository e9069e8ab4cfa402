package storyfeed

import (
	"context"
	"sort"
	"strconv"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/pkg/errors"

	"github.com/soapboxsocial/fanout/pkg/cache"
	"github.com/soapboxsocial/fanout/pkg/stories"
)

// CreatorStories are the stories of one creator in a story feed.
type CreatorStories struct {
	UserID      int              `json:"user_id"`
	IsSelf      bool             `json:"is_self"`
	LastUpdated int64            `json:"last_updated"`
	Stories     []*stories.Story `json:"stories"`
}

// Reader composes the story feed of a user from the pushed feed, the shelves
// of the popular creators the user follows and the user's own stories.
type Reader struct {
	rdb     *redis.Client
	stories StoryStore
}

func NewReader(rdb *redis.Client, stories StoryStore) *Reader {
	return &Reader{rdb: rdb, stories: stories}
}

// Read returns the stories visible to user at now grouped by creator. The
// stories of user come first, other creators follow by their most recent
// story.
func (r *Reader) Read(ctx context.Context, user int, now time.Time) ([]*CreatorStories, error) {
	ids, err := r.storyIDs(ctx, user, millis(now))
	if err != nil {
		return nil, err
	}

	ready, err := r.stories.GetReadyStories(ctx, ids, millis(now))
	if err != nil {
		return nil, errors.Wrap(err, "failed to resolve stories")
	}

	own, err := r.stories.GetActiveStoriesForUser(ctx, user, millis(now))
	if err != nil {
		return nil, errors.Wrap(err, "failed to get own stories")
	}

	return group(user, millis(now), append(own, ready...)), nil
}

func (r *Reader) storyIDs(ctx context.Context, user int, now int64) ([]string, error) {
	feed := cache.UserKey(cache.StoryFeed, user)
	expired := strconv.FormatInt(now, 10)

	pipe := r.rdb.TxPipeline()
	pipe.ZRemRangeByScore(ctx, feed, "-inf", expired)
	pipe.ZRemRangeByScore(ctx, cache.UserKey(cache.ActiveRegularCreators, user), "-inf", expired)
	pushed := pipe.ZRange(ctx, feed, 0, -1)
	popular := pipe.SMembers(ctx, cache.UserKey(cache.PopularFollowing, user))

	_, err := pipe.Exec(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read story feed")
	}

	ids := pushed.Val()

	creators := popular.Val()
	if len(creators) == 0 {
		return ids, nil
	}

	shelves := r.rdb.Pipeline()
	cmds := make([]*redis.StringSliceCmd, len(creators))
	for i, creator := range creators {
		cmds[i] = shelves.ZRangeByScore(ctx, cache.Key(cache.Shelf, creator), &redis.ZRangeBy{
			Min: "(" + expired,
			Max: "+inf",
		})
	}

	_, err = shelves.Exec(ctx)
	if err != nil && err != redis.Nil {
		return nil, errors.Wrap(err, "failed to read shelves")
	}

	for _, cmd := range cmds {
		ids = append(ids, cmd.Val()...)
	}

	return ids, nil
}

// group drops stories that are not active at now, the shelves and the push
// feed also index stories still being processed.
func group(user int, now int64, all []*stories.Story) []*CreatorStories {
	seen := make(map[string]bool)
	creators := make(map[int]*CreatorStories)
	result := make([]*CreatorStories, 0)

	for _, story := range all {
		if seen[story.ID] || !story.IsActive(now) {
			continue
		}

		seen[story.ID] = true

		c, ok := creators[story.UserID]
		if !ok {
			c = &CreatorStories{UserID: story.UserID, IsSelf: story.UserID == user}
			creators[story.UserID] = c
			result = append(result, c)
		}

		c.Stories = append(c.Stories, story)
		if story.DeviceTimestamp > c.LastUpdated {
			c.LastUpdated = story.DeviceTimestamp
		}
	}

	for _, c := range result {
		sort.SliceStable(c.Stories, func(i, j int) bool {
			return c.Stories[i].DeviceTimestamp > c.Stories[j].DeviceTimestamp
		})
	}

	sort.SliceStable(result, func(i, j int) bool {
		if result[i].IsSelf != result[j].IsSelf {
			return result[i].IsSelf
		}

		if result[i].LastUpdated != result[j].LastUpdated {
			return result[i].LastUpdated > result[j].LastUpdated
		}

		return result[i].UserID < result[j].UserID
	})

	return result
}
