package repository

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"time"

	"github.com/lib/pq"
	"github.com/maheshrc27/socialflow/internal/models"
)

// PostRepository persists scheduled posts. Every status change is a
// conditional single-row update on the expected prior status, so concurrent
// workers never act on the same post twice.
type PostRepository interface {
	Create(ctx context.Context, tx *sql.Tx, post *models.Post) (int64, error)
	GetByID(ctx context.Context, id int64) (*models.Post, error)
	GetByUserID(ctx context.Context, userID int64) ([]*models.Post, error)
	CheckByUserID(ctx context.Context, postID, userID int64) (bool, error)
	ListDue(ctx context.Context, now time.Time, limit int) ([]*models.Post, error)
	ListRetryable(ctx context.Context, maxRetries int, kinds []string, limit int) ([]*models.Post, error)
	Claim(ctx context.Context, id int64, from string) (bool, error)
	ReapStale(ctx context.Context, claimedBefore time.Time, kind, message string) (int64, error)
	MarkPublished(ctx context.Context, id int64, platformPostID, permalink string, at time.Time) error
	MarkFailed(ctx context.Context, id int64, retryCount int, kind, message string) error
	Reschedule(ctx context.Context, id int64, retryCount int, at time.Time, kind, message string) error
	Cancel(ctx context.Context, id, userID int64) (bool, error)
	UserReschedule(ctx context.Context, id, userID int64, at time.Time) (bool, error)
	ListPublishedByAccount(ctx context.Context, accountID int64, since time.Time, limit int) ([]*models.Post, error)
	Remove(ctx context.Context, id, userID int64) (bool, error)
}

type postRepository struct {
	db *sql.DB
}

func NewPostRepository(db *sql.DB) PostRepository {
	return &postRepository{db: db}
}

const postColumns = `id, user_id, account_id, group_id, caption, title, hashtags, mentions,
	scheduled_for, status, retry_count, error_message, error_kind,
	COALESCE(platform_post_id, ''), permalink, published_at, created_at, updated_at`

func scanPost(row scanner) (*models.Post, error) {
	var p models.Post
	err := row.Scan(&p.ID, &p.UserID, &p.AccountID, &p.GroupID, &p.Caption, &p.Title, &p.Hashtags, &p.Mentions,
		&p.ScheduledFor, &p.Status, &p.RetryCount, &p.ErrorMessage, &p.ErrorKind,
		&p.PlatformPostID, &p.Permalink, &p.PublishedAt, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *postRepository) listPosts(ctx context.Context, query string, args ...any) ([]*models.Post, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	defer rows.Close()

	var posts []*models.Post
	for rows.Next() {
		post, err := scanPost(rows)
		if err != nil {
			slog.Info(err.Error())
			return nil, err
		}
		posts = append(posts, post)
	}

	if err := rows.Err(); err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	return posts, nil
}

// execTransition runs a conditional update and reports ErrInvalidTransition
// when no row matched.
func (r *postRepository) execTransition(ctx context.Context, query string, args ...any) error {
	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	if affected != 1 {
		return ErrInvalidTransition
	}
	return nil
}

func (r *postRepository) Create(ctx context.Context, tx *sql.Tx, post *models.Post) (int64, error) {
	query := `
		INSERT INTO posts (user_id, account_id, group_id, caption, title, hashtags, mentions, scheduled_for, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id
	`

	var id int64
	var err error

	args := []any{post.UserID, post.AccountID, post.GroupID, post.Caption, post.Title,
		post.Hashtags, post.Mentions, post.ScheduledFor, post.Status}
	if tx != nil {
		err = tx.QueryRowContext(ctx, query, args...).Scan(&id)
	} else {
		err = r.db.QueryRowContext(ctx, query, args...).Scan(&id)
	}
	if err != nil {
		slog.Info(err.Error())
		return 0, err
	}

	return id, nil
}

func (r *postRepository) GetByID(ctx context.Context, id int64) (*models.Post, error) {
	query := `SELECT ` + postColumns + ` FROM posts WHERE id = $1`

	post, err := scanPost(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		slog.Info(err.Error())
		return nil, err
	}

	return post, nil
}

func (r *postRepository) GetByUserID(ctx context.Context, userID int64) ([]*models.Post, error) {
	query := `SELECT ` + postColumns + ` FROM posts WHERE user_id = $1 ORDER BY created_at DESC`
	return r.listPosts(ctx, query, userID)
}

func (r *postRepository) CheckByUserID(ctx context.Context, postID, userID int64) (bool, error) {
	query := "SELECT 1 FROM posts WHERE id = $1 AND user_id = $2"

	var result int
	err := r.db.QueryRowContext(ctx, query, postID, userID).Scan(&result)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		slog.Info(err.Error())
		return false, err
	}

	return result == 1, nil
}

func (r *postRepository) ListDue(ctx context.Context, now time.Time, limit int) ([]*models.Post, error) {
	query := `SELECT ` + postColumns + `
		FROM posts
		WHERE status = 'scheduled' AND scheduled_for <= $1
		ORDER BY scheduled_for ASC
		LIMIT $2`
	return r.listPosts(ctx, query, now, limit)
}

// ListRetryable returns failed posts that still have retry budget, were not
// failed manually, and failed with one of kinds.
func (r *postRepository) ListRetryable(ctx context.Context, maxRetries int, kinds []string, limit int) ([]*models.Post, error) {
	query := `SELECT ` + postColumns + `
		FROM posts
		WHERE status = 'failed'
			AND retry_count < $1
			AND scheduled_for IS NOT NULL
			AND error_kind = ANY($2)
		ORDER BY scheduled_for ASC
		LIMIT $3`
	return r.listPosts(ctx, query, maxRetries, pq.Array(kinds), limit)
}

// Claim moves a post from the given status to pending. It returns false
// when another worker changed the row first.
func (r *postRepository) Claim(ctx context.Context, id int64, from string) (bool, error) {
	query := `UPDATE posts SET status = 'pending', updated_at = CURRENT_TIMESTAMP WHERE id = $1 AND status = $2`
	err := r.execTransition(ctx, query, id, from)
	if errors.Is(err, ErrInvalidTransition) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// ReapStale fails pending posts claimed before claimedBefore. The attempt
// counts against the retry budget so the retry sweep can pick them up.
func (r *postRepository) ReapStale(ctx context.Context, claimedBefore time.Time, kind, message string) (int64, error) {
	query := `
		UPDATE posts
		SET status = 'failed',
			retry_count = retry_count + 1,
			error_kind = $2,
			error_message = $3,
			updated_at = CURRENT_TIMESTAMP
		WHERE status = 'pending' AND updated_at < $1
	`
	result, err := r.db.ExecContext(ctx, query, claimedBefore, kind, message)
	if err != nil {
		slog.Info(err.Error())
		return 0, err
	}
	return result.RowsAffected()
}

func (r *postRepository) MarkPublished(ctx context.Context, id int64, platformPostID, permalink string, at time.Time) error {
	query := `
		UPDATE posts
		SET status = 'published',
			platform_post_id = $2,
			permalink = $3,
			published_at = $4,
			error_message = '',
			error_kind = '',
			updated_at = CURRENT_TIMESTAMP
		WHERE id = $1 AND status = 'pending'
	`
	return r.execTransition(ctx, query, id, platformPostID, permalink, at)
}

func (r *postRepository) MarkFailed(ctx context.Context, id int64, retryCount int, kind, message string) error {
	query := `
		UPDATE posts
		SET status = 'failed',
			retry_count = $2,
			error_kind = $3,
			error_message = $4,
			updated_at = CURRENT_TIMESTAMP
		WHERE id = $1 AND status = 'pending'
	`
	return r.execTransition(ctx, query, id, retryCount, kind, message)
}

func (r *postRepository) Reschedule(ctx context.Context, id int64, retryCount int, at time.Time, kind, message string) error {
	query := `
		UPDATE posts
		SET status = 'scheduled',
			retry_count = $2,
			scheduled_for = $3,
			error_kind = $4,
			error_message = $5,
			updated_at = CURRENT_TIMESTAMP
		WHERE id = $1 AND status = 'pending'
	`
	return r.execTransition(ctx, query, id, retryCount, at, kind, message)
}

// Cancel returns a scheduled post to draft. Posts already claimed by a
// worker cannot be cancelled.
func (r *postRepository) Cancel(ctx context.Context, id, userID int64) (bool, error) {
	query := `
		UPDATE posts
		SET status = 'draft', scheduled_for = NULL, updated_at = CURRENT_TIMESTAMP
		WHERE id = $1 AND user_id = $2 AND status = 'scheduled'
	`
	err := r.execTransition(ctx, query, id, userID)
	if errors.Is(err, ErrInvalidTransition) {
		return false, nil
	}
	return err == nil, err
}

func (r *postRepository) UserReschedule(ctx context.Context, id, userID int64, at time.Time) (bool, error) {
	query := `
		UPDATE posts
		SET status = 'scheduled',
			scheduled_for = $3,
			retry_count = 0,
			error_message = '',
			error_kind = '',
			updated_at = CURRENT_TIMESTAMP
		WHERE id = $1 AND user_id = $2 AND status IN ('draft', 'scheduled', 'failed')
	`
	err := r.execTransition(ctx, query, id, userID, at)
	if errors.Is(err, ErrInvalidTransition) {
		return false, nil
	}
	return err == nil, err
}

func (r *postRepository) ListPublishedByAccount(ctx context.Context, accountID int64, since time.Time, limit int) ([]*models.Post, error) {
	query := `SELECT ` + postColumns + `
		FROM posts
		WHERE account_id = $1 AND status = 'published' AND published_at >= $2
		ORDER BY published_at DESC
		LIMIT $3`
	return r.listPosts(ctx, query, accountID, since, limit)
}

func (r *postRepository) Remove(ctx context.Context, id, userID int64) (bool, error) {
	query := `DELETE FROM posts WHERE id = $1 AND user_id = $2 AND status <> 'pending'`
	err := r.execTransition(ctx, query, id, userID)
	if errors.Is(err, ErrInvalidTransition) {
		return false, nil
	}
	return err == nil, err
}
