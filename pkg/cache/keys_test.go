package cache_test

import (
	"testing"

	"github.com/soapboxsocial/fanout/pkg/cache"
)

func TestKey(t *testing.T) {
	var tests = []struct {
		ns       cache.Namespace
		id       string
		expected string
	}{
		{cache.StoryFeed, "12", "user_story_feed:12"},
		{cache.ActiveRegularCreators, "12", "active_regular_story_creators:12"},
		{cache.PopularFollowing, "12", "popular_users_following:12"},
		{cache.Shelf, "7", "mega_story_user:7"},
		{cache.ActivePopularCreators, "7", "active_mega_story_creators"},
		{cache.Lease, "sweep", "lease:sweep"},
		{cache.Queue, "story:waiting", "jobs:story:waiting"},
	}

	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			key := cache.Key(tt.ns, tt.id)
			if key != tt.expected {
				t.Fatalf("expected %s actual %s", tt.expected, key)
			}
		})
	}
}

func TestKey_PrefixesAreDistinct(t *testing.T) {
	namespaces := []cache.Namespace{
		cache.StoryFeed,
		cache.ActiveRegularCreators,
		cache.PopularFollowing,
		cache.Shelf,
		cache.ActivePopularCreators,
		cache.Lease,
		cache.Queue,
	}

	seen := make(map[string]bool)
	for _, ns := range namespaces {
		if seen[ns.Prefix()] {
			t.Fatalf("duplicate prefix %s", ns.Prefix())
		}

		seen[ns.Prefix()] = true
	}
}

func TestUserKey(t *testing.T) {
	if cache.UserKey(cache.StoryFeed, 42) != "user_story_feed:42" {
		t.Fatal("unexpected key")
	}
}
