package storyfeed_test

import (
	"context"
	"sort"
	"testing"
	"time"

	"github.com/golang/mock/gomock"

	"github.com/soapboxsocial/fanout/pkg/stories"
	"github.com/soapboxsocial/fanout/pkg/storyfeed"
)

func TestReader_Read(t *testing.T) {
	f := newFixture(t, 0)

	user, regular, popular := 10, 1, 3
	now := time.Now()

	pushed := story("s1", regular, now.Add(time.Hour))
	pushed.DeviceTimestamp = 100

	expired := story("e1", regular, now.Add(-time.Minute))

	pulled := story("p1", popular, now.Add(time.Hour))
	pulled.DeviceTimestamp = 200

	stale := story("p0", popular, now.Add(-time.Minute))

	own := story("o1", user, now.Add(time.Hour))
	own.DeviceTimestamp = 50

	f.mr.ZAdd(feedKey(user), score(pushed), pushed.ID)
	f.mr.ZAdd(feedKey(user), score(expired), expired.ID)
	f.mr.SetAdd(popularKey(user), itoa(popular))
	f.mr.ZAdd(shelfKey(popular), score(pulled), pulled.ID)
	f.mr.ZAdd(shelfKey(popular), score(stale), stale.ID)

	f.stories.EXPECT().
		GetReadyStories(gomock.Any(), gomock.Any(), gomock.Any()).
		DoAndReturn(func(ctx context.Context, ids []string, now int64) ([]*stories.Story, error) {
			sort.Strings(ids)
			if len(ids) != 2 || ids[0] != "p1" || ids[1] != "s1" {
				t.Errorf("unexpected ids %v", ids)
			}

			return []*stories.Story{pushed, pulled}, nil
		})

	f.stories.EXPECT().
		GetActiveStoriesForUser(gomock.Any(), user, gomock.Any()).
		Return([]*stories.Story{own}, nil)

	result, err := storyfeed.NewReader(f.rdb, f.stories).Read(context.Background(), user, now)
	if err != nil {
		t.Fatal(err)
	}

	order := make([]int, 0)
	for _, c := range result {
		order = append(order, c.UserID)
	}

	if len(order) != 3 || order[0] != user || order[1] != popular || order[2] != regular {
		t.Fatalf("unexpected order %v", order)
	}

	if !result[0].IsSelf || result[0].Stories[0].ID != "o1" {
		t.Fatalf("expected own stories first, got %+v", result[0])
	}

	if _, ok := f.zset(t, feedKey(user))[expired.ID]; ok {
		t.Fatal("expected expired entry trimmed from feed")
	}
}

func TestReader_ReadEmpty(t *testing.T) {
	f := newFixture(t, 0)

	f.stories.EXPECT().
		GetReadyStories(gomock.Any(), gomock.Any(), gomock.Any()).
		Return([]*stories.Story{}, nil)

	f.stories.EXPECT().
		GetActiveStoriesForUser(gomock.Any(), 1, gomock.Any()).
		Return([]*stories.Story{}, nil)

	result, err := storyfeed.NewReader(f.rdb, f.stories).Read(context.Background(), 1, time.Now())
	if err != nil {
		t.Fatal(err)
	}

	if len(result) != 0 {
		t.Fatalf("unexpected result %v", result)
	}
}

func TestReader_ReadSkipsInactiveStories(t *testing.T) {
	f := newFixture(t, 0)

	user, creator := 10, 1
	now := time.Now()

	ready := story("s1", creator, now.Add(time.Hour))
	pending := story("s2", creator, now.Add(time.Hour))
	pending.Status = stories.StatusPending

	f.mr.ZAdd(feedKey(user), score(ready), ready.ID)
	f.mr.ZAdd(feedKey(user), score(pending), pending.ID)

	f.stories.EXPECT().
		GetReadyStories(gomock.Any(), gomock.Any(), gomock.Any()).
		Return([]*stories.Story{ready, pending}, nil)

	f.stories.EXPECT().
		GetActiveStoriesForUser(gomock.Any(), user, gomock.Any()).
		Return(nil, nil)

	result, err := storyfeed.NewReader(f.rdb, f.stories).Read(context.Background(), user, now)
	if err != nil {
		t.Fatal(err)
	}

	if len(result) != 1 || len(result[0].Stories) != 1 || result[0].Stories[0].ID != "s1" {
		t.Fatalf("expected only the ready story, got %+v", result)
	}
}
