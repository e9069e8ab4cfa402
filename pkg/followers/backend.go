package followers

import (
	"context"
	"database/sql"

	"github.com/lib/pq"

	"github.com/soapboxsocial/fanout/pkg/batch"
)

// DefaultPageSize is the page size of a follower cursor created with size 0.
const DefaultPageSize = 1000

type Backend struct {
	db *sql.DB
}

func NewBackend(db *sql.DB) *Backend {
	return &Backend{
		db: db,
	}
}

// Follow creates the edge follower -> user, created is false when it already existed.
func (b *Backend) Follow(ctx context.Context, follower, user int) (created bool, err error) {
	stmt, err := b.db.PrepareContext(ctx, "INSERT INTO followers (follower, user_id) VALUES ($1, $2) ON CONFLICT DO NOTHING;")
	if err != nil {
		return false, err
	}

	defer stmt.Close()

	return execAffected(ctx, stmt, follower, user)
}

// Unfollow removes the edge follower -> user, removed is false when it did not exist.
func (b *Backend) Unfollow(ctx context.Context, follower, user int) (removed bool, err error) {
	stmt, err := b.db.PrepareContext(ctx, "DELETE FROM followers WHERE follower = $1 AND user_id = $2;")
	if err != nil {
		return false, err
	}

	defer stmt.Close()

	return execAffected(ctx, stmt, follower, user)
}

func (b *Backend) IsFollowing(ctx context.Context, follower, user int) (bool, error) {
	stmt, err := b.db.PrepareContext(ctx, "SELECT EXISTS (SELECT 1 FROM followers WHERE follower = $1 AND user_id = $2);")
	if err != nil {
		return false, err
	}

	defer stmt.Close()

	var exists bool
	err = stmt.QueryRowContext(ctx, follower, user).Scan(&exists)
	if err != nil {
		return false, err
	}

	return exists, nil
}

// RequestFollow records a pending follow request against a private user,
// created is false when it was already pending.
func (b *Backend) RequestFollow(ctx context.Context, requester, user int) (created bool, err error) {
	stmt, err := b.db.PrepareContext(ctx, "INSERT INTO follow_requests (requester, user_id) VALUES ($1, $2) ON CONFLICT DO NOTHING;")
	if err != nil {
		return false, err
	}

	defer stmt.Close()

	return execAffected(ctx, stmt, requester, user)
}

// RemoveRequest deletes a pending follow request without following.
func (b *Backend) RemoveRequest(ctx context.Context, requester, user int) (removed bool, err error) {
	stmt, err := b.db.PrepareContext(ctx, "DELETE FROM follow_requests WHERE requester = $1 AND user_id = $2;")
	if err != nil {
		return false, err
	}

	defer stmt.Close()

	return execAffected(ctx, stmt, requester, user)
}

// AcceptRequest turns a pending follow request into a follow edge in one
// transaction, accepted is false when no such request was pending.
func (b *Backend) AcceptRequest(ctx context.Context, requester, user int) (accepted bool, err error) {
	tx, err := b.db.BeginTx(ctx, nil)
	if err != nil {
		return false, err
	}

	res, err := tx.ExecContext(ctx, "DELETE FROM follow_requests WHERE requester = $1 AND user_id = $2;", requester, user)
	if err != nil {
		_ = tx.Rollback()
		return false, err
	}

	affected, err := res.RowsAffected()
	if err != nil || affected == 0 {
		_ = tx.Rollback()
		return false, err
	}

	_, err = tx.ExecContext(ctx, "INSERT INTO followers (follower, user_id) VALUES ($1, $2) ON CONFLICT DO NOTHING;", requester, user)
	if err != nil {
		_ = tx.Rollback()
		return false, err
	}

	err = tx.Commit()
	if err != nil {
		_ = tx.Rollback()
		return false, err
	}

	return true, nil
}

// FollowerIDs returns the ids of every user following user.
func (b *Backend) FollowerIDs(ctx context.Context, user int) ([]int, error) {
	stmt, err := b.db.PrepareContext(ctx, "SELECT follower FROM followers WHERE user_id = $1;")
	if err != nil {
		return nil, err
	}

	defer stmt.Close()

	return queryIDs(ctx, stmt, user)
}

// Followers returns a cursor over the followers of user in ascending id order,
// size followers at a time.
func (b *Backend) Followers(user, size int) batch.Cursor[int] {
	if size <= 0 {
		size = DefaultPageSize
	}

	return &Cursor{backend: b, user: user, size: size}
}

// AcceptPendingRequests turns every pending follow request against user into
// a follow edge and refreshes the follower count of user, all in one
// transaction. It returns the ids of the new followers.
func (b *Backend) AcceptPendingRequests(ctx context.Context, user int) ([]int, error) {
	tx, err := b.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}

	stmt, err := tx.PrepareContext(ctx, "DELETE FROM follow_requests WHERE user_id = $1 RETURNING requester;")
	if err != nil {
		_ = tx.Rollback()
		return nil, err
	}

	defer stmt.Close()

	requesters, err := queryIDs(ctx, stmt, user)
	if err != nil {
		_ = tx.Rollback()
		return nil, err
	}

	if len(requesters) == 0 {
		return requesters, tx.Commit()
	}

	_, err = tx.ExecContext(
		ctx,
		"INSERT INTO followers (follower, user_id) SELECT follower, $1 FROM unnest($2::int[]) AS follower ON CONFLICT DO NOTHING;",
		user, pq.Array(requesters),
	)
	if err != nil {
		_ = tx.Rollback()
		return nil, err
	}

	_, err = tx.ExecContext(
		ctx,
		"UPDATE users SET follower_count = (SELECT COUNT(*) FROM followers WHERE user_id = $1) WHERE id = $1;",
		user,
	)
	if err != nil {
		_ = tx.Rollback()
		return nil, err
	}

	err = tx.Commit()
	if err != nil {
		_ = tx.Rollback()
		return nil, err
	}

	return requesters, nil
}

// Cursor pages through the followers of a user using the last seen id, so
// followers added or removed while paging never shift a page.
type Cursor struct {
	backend *Backend
	user    int
	size    int
	after   int
	done    bool
}

// Next returns the next page of follower ids, an empty page once exhausted.
func (c *Cursor) Next(ctx context.Context) ([]int, error) {
	if c.done {
		return []int{}, nil
	}

	rows, err := c.backend.db.QueryContext(ctx, "SELECT follower FROM followers WHERE user_id = $1 AND follower > $2 ORDER BY follower LIMIT $3;", c.user, c.after, c.size)
	if err != nil {
		return nil, err
	}

	ids, err := scanIDs(rows)
	if err != nil {
		return nil, err
	}

	if len(ids) < c.size {
		c.done = true
	}

	if len(ids) > 0 {
		c.after = ids[len(ids)-1]
	}

	return ids, nil
}

func execAffected(ctx context.Context, stmt *sql.Stmt, args ...interface{}) (bool, error) {
	res, err := stmt.ExecContext(ctx, args...)
	if err != nil {
		return false, err
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}

	return affected > 0, nil
}

func queryIDs(ctx context.Context, stmt *sql.Stmt, args ...interface{}) ([]int, error) {
	rows, err := stmt.QueryContext(ctx, args...)
	if err != nil {
		return nil, err
	}

	return scanIDs(rows)
}

func scanIDs(rows *sql.Rows) ([]int, error) {
	defer rows.Close()

	result := make([]int, 0)

	for rows.Next() {
		var id int

		err := rows.Scan(&id)
		if err != nil {
			return nil, err
		}

		result = append(result, id)
	}

	return result, rows.Err()
}
