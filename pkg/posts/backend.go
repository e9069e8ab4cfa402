package posts

import (
	"context"
	"database/sql"
)

type Backend struct {
	db *sql.DB
}

func NewBackend(db *sql.DB) *Backend {
	return &Backend{db: db}
}

// Exists reports whether the post id written by author is still stored.
func (b *Backend) Exists(ctx context.Context, id string, author int) (bool, error) {
	stmt, err := b.db.PrepareContext(ctx, "SELECT EXISTS (SELECT 1 FROM posts WHERE id = $1 AND user_id = $2);")
	if err != nil {
		return false, err
	}

	defer stmt.Close()

	var exists bool
	err = stmt.QueryRowContext(ctx, id, author).Scan(&exists)
	if err != nil {
		return false, err
	}

	return exists, nil
}
