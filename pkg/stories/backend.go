package stories

import (
	"context"
	"database/sql"

	"github.com/lib/pq"
	"github.com/pkg/errors"
)

var ErrNotFound = errors.New("story not found")

const columns = "id, user_id, media, processing_status, expires_at, device_timestamp"

type Backend struct {
	db *sql.DB
}

func NewBackend(db *sql.DB) *Backend {
	return &Backend{db}
}

// DeleteExpired deletes all stories where the expire_at time has passed and returns them.
func (b *Backend) DeleteExpired(ctx context.Context, now int64) ([]*Story, error) {
	stmt, err := b.db.PrepareContext(ctx, "DELETE FROM stories WHERE expires_at <= $1 RETURNING "+columns+";")
	if err != nil {
		return nil, err
	}

	defer stmt.Close()

	return queryStories(ctx, stmt, now)
}

func (b *Backend) GetStory(ctx context.Context, id string) (*Story, error) {
	stmt, err := b.db.PrepareContext(ctx, "SELECT "+columns+" FROM stories WHERE id = $1;")
	if err != nil {
		return nil, err
	}

	defer stmt.Close()

	result, err := queryStories(ctx, stmt, id)
	if err != nil {
		return nil, err
	}

	if len(result) == 0 {
		return nil, ErrNotFound
	}

	return result[0], nil
}

// GetActiveStoriesForUser returns the ready stories of user that have not
// expired at now, ordered by expiry.
func (b *Backend) GetActiveStoriesForUser(ctx context.Context, user int, now int64) ([]*Story, error) {
	stmt, err := b.db.PrepareContext(ctx, "SELECT "+columns+" FROM stories WHERE user_id = $1 AND processing_status = $2 AND expires_at > $3 ORDER BY expires_at;")
	if err != nil {
		return nil, err
	}

	defer stmt.Close()

	return queryStories(ctx, stmt, user, string(StatusReady), now)
}

// GetUnexpiredStoriesForUser returns every story of user that has not expired
// at now whatever its processing status, ordered by expiry.
func (b *Backend) GetUnexpiredStoriesForUser(ctx context.Context, user int, now int64) ([]*Story, error) {
	stmt, err := b.db.PrepareContext(ctx, "SELECT "+columns+" FROM stories WHERE user_id = $1 AND expires_at > $2 ORDER BY expires_at;")
	if err != nil {
		return nil, err
	}

	defer stmt.Close()

	return queryStories(ctx, stmt, user, now)
}

// GetReadyStories resolves ids to the stories that are ready and have not
// expired at now, unknown ids are skipped.
func (b *Backend) GetReadyStories(ctx context.Context, ids []string, now int64) ([]*Story, error) {
	if len(ids) == 0 {
		return []*Story{}, nil
	}

	stmt, err := b.db.PrepareContext(ctx, "SELECT "+columns+" FROM stories WHERE id = ANY($1) AND processing_status = $2 AND expires_at > $3 ORDER BY expires_at;")
	if err != nil {
		return nil, err
	}

	defer stmt.Close()

	return queryStories(ctx, stmt, pq.Array(ids), string(StatusReady), now)
}

func (b *Backend) AddStory(ctx context.Context, story *Story) error {
	stmt, err := b.db.PrepareContext(ctx, "INSERT INTO stories ("+columns+") VALUES ($1, $2, $3, $4, $5, $6);")
	if err != nil {
		return err
	}

	defer stmt.Close()

	_, err = stmt.ExecContext(ctx, story.ID, story.UserID, story.Media, string(story.Status), story.ExpiresAt, story.DeviceTimestamp)
	return err
}

func (b *Backend) SetProcessingStatus(ctx context.Context, id string, status ProcessingStatus) error {
	stmt, err := b.db.PrepareContext(ctx, "UPDATE stories SET processing_status = $2 WHERE id = $1;")
	if err != nil {
		return err
	}

	defer stmt.Close()

	res, err := stmt.ExecContext(ctx, id, string(status))
	if err != nil {
		return err
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}

	if affected == 0 {
		return ErrNotFound
	}

	return nil
}

func (b *Backend) DeleteStory(ctx context.Context, story string, user int) error {
	stmt, err := b.db.PrepareContext(ctx, "DELETE FROM stories WHERE id = $1 AND user_id = $2;")
	if err != nil {
		return err
	}

	defer stmt.Close()

	_, err = stmt.ExecContext(ctx, story, user)
	return err
}

func queryStories(ctx context.Context, stmt *sql.Stmt, args ...interface{}) ([]*Story, error) {
	rows, err := stmt.QueryContext(ctx, args...)
	if err != nil {
		return nil, err
	}

	defer rows.Close()

	result := make([]*Story, 0)

	for rows.Next() {
		story := &Story{}

		var status string
		err := rows.Scan(&story.ID, &story.UserID, &story.Media, &status, &story.ExpiresAt, &story.DeviceTimestamp)
		if err != nil {
			return nil, err
		}

		story.Status = ProcessingStatus(status)
		result = append(result, story)
	}

	return result, rows.Err()
}
