// Package cache defines the key schema of every derived structure the
// workers keep in redis. Keys are only ever built through Key so two
// namespaces can never produce the same key.
//
//	StoryFeed              user_story_feed:{follower}                zset story id -> expires at (ms)
//	ActiveRegularCreators  active_regular_story_creators:{follower}  zset creator id -> latest expires at (ms)
//	PopularFollowing       popular_users_following:{follower}        set of popular creator ids
//	Shelf                  mega_story_user:{creator}                 zset story id -> expires at (ms)
//	ActivePopularCreators  active_mega_story_creators                set of popular creator ids
//	Lease                  lease:{name}                              string, expiring window
//	Queue                  jobs:{queue}:{part}                       job queue internals
package cache

import (
	"fmt"
	"strconv"
)

// Namespace identifies the shape of a cached value.
type Namespace int

const (
	StoryFeed Namespace = iota
	ActiveRegularCreators
	PopularFollowing
	Shelf
	ActivePopularCreators
	Lease
	Queue
)

var prefixes = map[Namespace]string{
	StoryFeed:             "user_story_feed",
	ActiveRegularCreators: "active_regular_story_creators",
	PopularFollowing:      "popular_users_following",
	Shelf:                 "mega_story_user",
	ActivePopularCreators: "active_mega_story_creators",
	Lease:                 "lease",
	Queue:                 "jobs",
}

// Prefix returns the key prefix of a namespace.
func (n Namespace) Prefix() string {
	p, ok := prefixes[n]
	if !ok {
		panic(fmt.Sprintf("cache: unknown namespace %d", int(n)))
	}

	return p
}

// Key returns the key for id within the namespace. Singleton namespaces
// ignore id.
func Key(n Namespace, id string) string {
	if n == ActivePopularCreators {
		return n.Prefix()
	}

	return n.Prefix() + ":" + id
}

// UserKey is Key for integer user ids.
func UserKey(n Namespace, user int) string {
	return Key(n, strconv.Itoa(user))
}
