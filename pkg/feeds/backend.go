package feeds

import (
	"context"
	"database/sql"

	"github.com/lib/pq"
)

// MaxPostsInHomeFeed is the default length of a home feed.
const MaxPostsInHomeFeed = 500

// Backend stores the home feed of every user as a newest first list of post
// ids without duplicates.
type Backend struct {
	db  *sql.DB
	max int
}

func NewBackend(db *sql.DB, max int) *Backend {
	if max <= 0 {
		max = MaxPostsInHomeFeed
	}

	return &Backend{db: db, max: max}
}

// Push places post at the head of the feed of every user in a single
// statement. A post already in a feed is moved to the head instead of being
// repeated, so pushing the same post twice leaves the feeds unchanged.
func (b *Backend) Push(ctx context.Context, post string, users []int) error {
	if len(users) == 0 {
		return nil
	}

	stmt, err := b.db.PrepareContext(ctx, `INSERT INTO user_feeds (user_id, posts)
		SELECT recipient, ARRAY[$1]::text[] FROM unnest($2::int[]) AS recipient
		ON CONFLICT (user_id) DO UPDATE SET posts = (ARRAY[$1]::text[] || array_remove(user_feeds.posts, $1))[1:$3];`)
	if err != nil {
		return err
	}

	defer stmt.Close()

	_, err = stmt.ExecContext(ctx, post, pq.Array(users), b.max)
	return err
}

// GetFeed returns the post ids in the home feed of user, newest first.
func (b *Backend) GetFeed(ctx context.Context, user int) ([]string, error) {
	stmt, err := b.db.PrepareContext(ctx, "SELECT posts FROM user_feeds WHERE user_id = $1;")
	if err != nil {
		return nil, err
	}

	defer stmt.Close()

	posts := make([]string, 0)
	err = stmt.QueryRowContext(ctx, user).Scan(pq.Array(&posts))
	if err == sql.ErrNoRows {
		return []string{}, nil
	}

	if err != nil {
		return nil, err
	}

	return posts, nil
}
