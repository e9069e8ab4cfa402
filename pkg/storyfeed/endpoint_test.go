package storyfeed_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang/mock/gomock"

	"github.com/soapboxsocial/fanout/pkg/stories"
	"github.com/soapboxsocial/fanout/pkg/storyfeed"
)

func TestEndpoint_GetFeed(t *testing.T) {
	f := newFixture(t, 0)

	user, creator := 10, 1
	pushed := story("s1", creator, time.Now().Add(time.Hour))

	f.mr.ZAdd(feedKey(user), score(pushed), pushed.ID)

	f.stories.EXPECT().
		GetReadyStories(gomock.Any(), []string{"s1"}, gomock.Any()).
		Return([]*stories.Story{pushed}, nil)

	f.stories.EXPECT().
		GetActiveStoriesForUser(gomock.Any(), user, gomock.Any()).
		Return(nil, nil)

	endpoint := storyfeed.NewEndpoint(storyfeed.NewReader(f.rdb, f.stories))

	rr := httptest.NewRecorder()
	req, err := http.NewRequest("GET", "/users/10/stories", nil)
	if err != nil {
		t.Fatal(err)
	}

	endpoint.Router().ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("unexpected status %d", rr.Code)
	}

	feed := make([]*storyfeed.CreatorStories, 0)
	err = json.Unmarshal(rr.Body.Bytes(), &feed)
	if err != nil {
		t.Fatal(err)
	}

	if len(feed) != 1 || feed[0].UserID != creator || feed[0].Stories[0].ID != "s1" {
		t.Fatalf("unexpected feed %+v", feed)
	}
}

func TestEndpoint_GetFeedInvalidID(t *testing.T) {
	f := newFixture(t, 0)

	endpoint := storyfeed.NewEndpoint(storyfeed.NewReader(f.rdb, f.stories))

	rr := httptest.NewRecorder()
	req, err := http.NewRequest("GET", "/users/abc/stories", nil)
	if err != nil {
		t.Fatal(err)
	}

	endpoint.Router().ServeHTTP(rr, req)

	if rr.Code != http.StatusNotFound {
		t.Fatalf("unexpected status %d", rr.Code)
	}
}
