package repository

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"

	"github.com/maheshrc27/socialflow/internal/models"
)

// MetricsRepository keeps the latest metrics per account and post plus an
// append-only history. Both writes happen in one transaction.
type MetricsRepository interface {
	RecordAccountSnapshot(ctx context.Context, m *models.AccountMetrics) error
	RecordPostMetrics(ctx context.Context, m *models.PostMetrics) error
	GetPostMetrics(ctx context.Context, postID int64) (*models.PostMetrics, error)
}

type metricsRepository struct {
	db *sql.DB
}

func NewMetricsRepository(db *sql.DB) MetricsRepository {
	return &metricsRepository{db: db}
}

func (r *metricsRepository) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		slog.Info(err.Error())
		return err
	}

	if err := tx.Commit(); err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}

func (r *metricsRepository) RecordAccountSnapshot(ctx context.Context, m *models.AccountMetrics) error {
	return r.inTx(ctx, func(tx *sql.Tx) error {
		upsert := `
			INSERT INTO account_metrics (account_id, followers_count, following_count, posts_count, captured_at)
			VALUES ($1, $2, $3, $4, $5)
			ON CONFLICT (account_id) DO UPDATE SET
				followers_count = EXCLUDED.followers_count,
				following_count = EXCLUDED.following_count,
				posts_count = EXCLUDED.posts_count,
				captured_at = EXCLUDED.captured_at
		`
		if _, err := tx.ExecContext(ctx, upsert, m.AccountID, m.FollowersCount, m.FollowingCount, m.PostsCount, m.CapturedAt); err != nil {
			return err
		}

		history := `
			INSERT INTO account_metrics_history (account_id, followers_count, following_count, posts_count, captured_at)
			VALUES ($1, $2, $3, $4, $5)
		`
		_, err := tx.ExecContext(ctx, history, m.AccountID, m.FollowersCount, m.FollowingCount, m.PostsCount, m.CapturedAt)
		return err
	})
}

func (r *metricsRepository) RecordPostMetrics(ctx context.Context, m *models.PostMetrics) error {
	return r.inTx(ctx, func(tx *sql.Tx) error {
		upsert := `
			INSERT INTO post_metrics (post_id, platform_post_id, likes, comments, shares, saves, views, reach, impressions, captured_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
			ON CONFLICT (post_id) DO UPDATE SET
				likes = EXCLUDED.likes,
				comments = EXCLUDED.comments,
				shares = EXCLUDED.shares,
				saves = EXCLUDED.saves,
				views = EXCLUDED.views,
				reach = EXCLUDED.reach,
				impressions = EXCLUDED.impressions,
				captured_at = EXCLUDED.captured_at
		`
		_, err := tx.ExecContext(ctx, upsert, m.PostID, m.PlatformPostID, m.Likes, m.Comments, m.Shares,
			m.Saves, m.Views, m.Reach, m.Impressions, m.CapturedAt)
		if err != nil {
			return err
		}

		history := `
			INSERT INTO post_metrics_history (post_id, likes, comments, shares, saves, views, reach, impressions, captured_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		`
		_, err = tx.ExecContext(ctx, history, m.PostID, m.Likes, m.Comments, m.Shares,
			m.Saves, m.Views, m.Reach, m.Impressions, m.CapturedAt)
		return err
	})
}

func (r *metricsRepository) GetPostMetrics(ctx context.Context, postID int64) (*models.PostMetrics, error) {
	query := `
		SELECT post_id, platform_post_id, likes, comments, shares, saves, views, reach, impressions, captured_at
		FROM post_metrics
		WHERE post_id = $1
	`
	var m models.PostMetrics
	err := r.db.QueryRowContext(ctx, query, postID).Scan(&m.PostID, &m.PlatformPostID, &m.Likes, &m.Comments,
		&m.Shares, &m.Saves, &m.Views, &m.Reach, &m.Impressions, &m.CapturedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		slog.Info(err.Error())
		return nil, err
	}
	return &m, nil
}
