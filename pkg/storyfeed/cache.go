package storyfeed

import (
	"context"
	"strconv"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/soapboxsocial/fanout/pkg/cache"
	"github.com/soapboxsocial/fanout/pkg/stories"
)

// extendScript moves the expiry of KEYS[1] to ARGV[1] (unix ms) unless the key
// already lives longer. ARGV[2] is the current time in unix ms.
var extendScript = redis.NewScript(`
local ttl = redis.call('PTTL', KEYS[1])
if ttl == -2 then
	return 0
end
local target = tonumber(ARGV[1])
if ttl >= 0 and tonumber(ARGV[2]) + ttl >= target then
	return 0
end
redis.call('PEXPIREAT', KEYS[1], target)
return 1
`)

// Cache holds the story indices of every user.
type Cache struct {
	rdb     *redis.Client
	grace   time.Duration
	maxFeed int
}

func NewCache(rdb *redis.Client, grace time.Duration, maxFeed int) *Cache {
	if grace <= 0 {
		grace = DefaultGrace
	}

	if maxFeed <= 0 {
		maxFeed = DefaultMaxFeedSize
	}

	return &Cache{rdb: rdb, grace: grace, maxFeed: maxFeed}
}

// Begin starts staging writes that are executed as one MULTI/EXEC block.
func (c *Cache) Begin() *Tx {
	return &Tx{
		cache: c,
		pipe:  c.rdb.TxPipeline(),
		now:   millis(time.Now()),
	}
}

// Tx stages cache writes.
type Tx struct {
	cache *Cache
	pipe  redis.Pipeliner
	now   int64
}

// Exec executes the staged writes and starts a new stage.
func (t *Tx) Exec(ctx context.Context) error {
	_, err := t.pipe.Exec(ctx)
	t.pipe = t.cache.rdb.TxPipeline()
	t.now = millis(time.Now())
	return err
}

// PushStories adds the stories of a regular creator to the push feed of
// follower and marks the creator active for follower.
func (t *Tx) PushStories(ctx context.Context, follower, creator int, entries []*stories.Story) {
	if len(entries) == 0 {
		return
	}

	feed := cache.UserKey(cache.StoryFeed, follower)
	active := cache.UserKey(cache.ActiveRegularCreators, follower)

	latest := latestExpiry(entries)

	t.pipe.ZAdd(ctx, feed, members(entries)...)
	t.pipe.ZRemRangeByRank(ctx, feed, 0, int64(-t.cache.maxFeed-1))
	t.pipe.ZAdd(ctx, active, &redis.Z{Score: float64(latest), Member: strconv.Itoa(creator)})

	t.extend(ctx, feed, latest)
	t.extend(ctx, active, latest)
}

// StripStories removes ids from the push feed of follower and the creator
// from the active creators of follower. Other creators are left untouched.
func (t *Tx) StripStories(ctx context.Context, follower, creator int, ids []string) {
	if len(ids) > 0 {
		values := make([]interface{}, len(ids))
		for i, id := range ids {
			values[i] = id
		}

		t.pipe.ZRem(ctx, cache.UserKey(cache.StoryFeed, follower), values...)
	}

	t.pipe.ZRem(ctx, cache.UserKey(cache.ActiveRegularCreators, follower), strconv.Itoa(creator))
}

func (t *Tx) FollowPopular(ctx context.Context, follower, creator int) {
	t.pipe.SAdd(ctx, cache.UserKey(cache.PopularFollowing, follower), strconv.Itoa(creator))
}

func (t *Tx) UnfollowPopular(ctx context.Context, follower, creator int) {
	t.pipe.SRem(ctx, cache.UserKey(cache.PopularFollowing, follower), strconv.Itoa(creator))
}

// Shelve places stories on the shelf of a popular creator and marks the
// creator as an active popular creator.
func (t *Tx) Shelve(ctx context.Context, creator int, entries []*stories.Story) {
	if len(entries) == 0 {
		return
	}

	shelf := cache.UserKey(cache.Shelf, creator)

	t.pipe.ZAdd(ctx, shelf, members(entries)...)
	t.MarkPopular(ctx, creator)
	t.extend(ctx, shelf, latestExpiry(entries))
}

func (t *Tx) MarkPopular(ctx context.Context, creator int) {
	t.pipe.SAdd(ctx, cache.Key(cache.ActivePopularCreators, ""), strconv.Itoa(creator))
}

func (t *Tx) UnmarkPopular(ctx context.Context, creator int) {
	t.pipe.SRem(ctx, cache.Key(cache.ActivePopularCreators, ""), strconv.Itoa(creator))
}

func (t *Tx) DropShelf(ctx context.Context, creator int) {
	t.pipe.Del(ctx, cache.UserKey(cache.Shelf, creator))
}

// extend keeps key alive until expiry plus the grace period.
func (t *Tx) extend(ctx context.Context, key string, expiry int64) {
	target := expiry + t.cache.grace.Milliseconds()
	extendScript.Eval(ctx, t.pipe, []string{key}, target, t.now)
}

func members(entries []*stories.Story) []*redis.Z {
	result := make([]*redis.Z, len(entries))
	for i, s := range entries {
		result[i] = &redis.Z{Score: float64(s.ExpiresAt), Member: s.ID}
	}

	return result
}

func latestExpiry(entries []*stories.Story) int64 {
	var latest int64
	for _, s := range entries {
		if s.ExpiresAt > latest {
			latest = s.ExpiresAt
		}
	}

	return latest
}

func storyIDs(entries []*stories.Story) []string {
	ids := make([]string, len(entries))
	for i, s := range entries {
		ids[i] = s.ID
	}

	return ids
}

func millis(t time.Time) int64 {
	return t.UnixNano() / int64(time.Millisecond)
}
