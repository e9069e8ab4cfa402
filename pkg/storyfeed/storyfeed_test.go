package storyfeed_test

import (
	"sort"
	"strconv"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/golang/mock/gomock"
	"github.com/sirupsen/logrus/hooks/test"

	"github.com/soapboxsocial/fanout/mocks"
	"github.com/soapboxsocial/fanout/pkg/batch"
	"github.com/soapboxsocial/fanout/pkg/cache"
	"github.com/soapboxsocial/fanout/pkg/stories"
	"github.com/soapboxsocial/fanout/pkg/storyfeed"
)

type fixture struct {
	mr  *miniredis.Miniredis
	rdb *redis.Client

	graph   *mocks.MockGraph
	stories *mocks.MockStoryStore
	users   *mocks.MockPopularityStore

	cache *storyfeed.Cache
}

func newFixture(t *testing.T, maxFeed int) *fixture {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatal(err)
	}

	t.Cleanup(mr.Close)

	rdb := redis.NewClient(&redis.Options{
		Addr: mr.Addr(),
	})

	ctrl := gomock.NewController(t)
	t.Cleanup(ctrl.Finish)

	return &fixture{
		mr:      mr,
		rdb:     rdb,
		graph:   mocks.NewMockGraph(ctrl),
		stories: mocks.NewMockStoryStore(ctrl),
		users:   mocks.NewMockPopularityStore(ctrl),
		cache:   storyfeed.NewCache(rdb, time.Hour, maxFeed),
	}
}

func (f *fixture) stores() storyfeed.Stores {
	return storyfeed.Stores{Graph: f.graph, Stories: f.stories, Users: f.users}
}

func (f *fixture) distributor(batchSize int) *storyfeed.Distributor {
	logger, _ := test.NewNullLogger()
	return storyfeed.NewDistributor(f.cache, f.stores(), storyfeed.Config{BatchSize: batchSize}, logger, nil)
}

func (f *fixture) transitions(batchSize int) *storyfeed.Transitions {
	logger, _ := test.NewNullLogger()
	return storyfeed.NewTransitions(f.cache, f.stores(), storyfeed.Config{BatchSize: batchSize}, logger, nil)
}

// withFollowers serves ids as the followers of creator.
func (f *fixture) withFollowers(creator int, ids []int) {
	f.graph.EXPECT().
		Followers(creator, gomock.Any()).
		DoAndReturn(func(user, size int) batch.Cursor[int] {
			return batch.NewSliceCursor(ids, size)
		}).
		AnyTimes()
}

func (f *fixture) withPopularity(creator int, popular bool) *gomock.Call {
	return f.users.EXPECT().IsPopular(gomock.Any(), creator).Return(popular, nil)
}

// withUnexpiredStories serves active as every unexpired story of creator.
func (f *fixture) withUnexpiredStories(creator int, active []*stories.Story) {
	f.stories.EXPECT().
		GetUnexpiredStoriesForUser(gomock.Any(), creator, gomock.Any()).
		Return(active, nil).
		AnyTimes()
}

// zset returns the members of a sorted set, an empty map when it does not exist.
func (f *fixture) zset(t *testing.T, key string) map[string]float64 {
	if !f.mr.Exists(key) {
		return map[string]float64{}
	}

	members, err := f.mr.SortedSet(key)
	if err != nil {
		t.Fatal(err)
	}

	return members
}

// set returns the sorted members of a set, nil when it is empty.
func (f *fixture) set(t *testing.T, key string) []string {
	if !f.mr.Exists(key) {
		return nil
	}

	members, err := f.mr.Members(key)
	if err != nil {
		t.Fatal(err)
	}

	if len(members) == 0 {
		return nil
	}

	sort.Strings(members)
	return members
}

func feedKey(user int) string {
	return cache.UserKey(cache.StoryFeed, user)
}

func activeKey(user int) string {
	return cache.UserKey(cache.ActiveRegularCreators, user)
}

func popularKey(user int) string {
	return cache.UserKey(cache.PopularFollowing, user)
}

func shelfKey(user int) string {
	return cache.UserKey(cache.Shelf, user)
}

var globalKey = cache.Key(cache.ActivePopularCreators, "")

func userIDs(from, n int) []int {
	ids := make([]int, n)
	for i := range ids {
		ids[i] = from + i
	}

	return ids
}

func story(id string, creator int, expiresAt time.Time) *stories.Story {
	return &stories.Story{
		ID:        id,
		UserID:    creator,
		Status:    stories.StatusReady,
		ExpiresAt: expiresAt.UnixNano() / int64(time.Millisecond),
	}
}

func score(s *stories.Story) float64 {
	return float64(s.ExpiresAt)
}

func itoa(i int) string {
	return strconv.Itoa(i)
}
