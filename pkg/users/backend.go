package users

import (
	"context"
	"database/sql"

	"github.com/pkg/errors"
)

var ErrNotFound = errors.New("user not found")

// User is the part of a user account the feed workers depend on.
type User struct {
	ID            int
	FollowerCount int
	IsPopular     bool
	IsPrivate     bool
}

type Backend struct {
	db *sql.DB
}

func NewBackend(db *sql.DB) *Backend {
	return &Backend{
		db: db,
	}
}

func (b *Backend) FindByID(ctx context.Context, id int) (*User, error) {
	stmt, err := b.db.PrepareContext(ctx, "SELECT id, follower_count, is_popular, is_private FROM users WHERE id = $1;")
	if err != nil {
		return nil, err
	}

	defer stmt.Close()

	user := &User{}
	err = stmt.QueryRowContext(ctx, id).Scan(&user.ID, &user.FollowerCount, &user.IsPopular, &user.IsPrivate)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}

	if err != nil {
		return nil, err
	}

	return user, nil
}

// IsPopular reads the popularity projection of a user.
func (b *Backend) IsPopular(ctx context.Context, id int) (bool, error) {
	stmt, err := b.db.PrepareContext(ctx, "SELECT is_popular FROM users WHERE id = $1;")
	if err != nil {
		return false, err
	}

	defer stmt.Close()

	var popular bool
	err = stmt.QueryRowContext(ctx, id).Scan(&popular)
	if err == sql.ErrNoRows {
		return false, ErrNotFound
	}

	return popular, err
}

// AdjustFollowerCount adds delta to the follower count of a user and returns
// the new count, the count never drops below zero.
func (b *Backend) AdjustFollowerCount(ctx context.Context, id, delta int) (int, error) {
	stmt, err := b.db.PrepareContext(ctx, "UPDATE users SET follower_count = GREATEST(follower_count + $2, 0) WHERE id = $1 RETURNING follower_count;")
	if err != nil {
		return 0, err
	}

	defer stmt.Close()

	var count int
	err = stmt.QueryRowContext(ctx, id, delta).Scan(&count)
	if err == sql.ErrNoRows {
		return 0, ErrNotFound
	}

	return count, err
}

// SetPopular stores the popularity projection, changed reports whether the
// stored value flipped.
func (b *Backend) SetPopular(ctx context.Context, id int, popular bool) (changed bool, err error) {
	stmt, err := b.db.PrepareContext(ctx, "UPDATE users SET is_popular = $2 WHERE id = $1 AND is_popular <> $2;")
	if err != nil {
		return false, err
	}

	defer stmt.Close()

	res, err := stmt.ExecContext(ctx, id, popular)
	if err != nil {
		return false, err
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}

	return affected > 0, nil
}

// SetPrivate stores the account visibility, changed reports whether it flipped.
func (b *Backend) SetPrivate(ctx context.Context, id int, private bool) (changed bool, err error) {
	stmt, err := b.db.PrepareContext(ctx, "UPDATE users SET is_private = $2 WHERE id = $1 AND is_private <> $2;")
	if err != nil {
		return false, err
	}

	defer stmt.Close()

	res, err := stmt.ExecContext(ctx, id, private)
	if err != nil {
		return false, err
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}

	return affected > 0, nil
}
