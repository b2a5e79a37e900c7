package repository

import (
	"context"
	"database/sql"
	"log/slog"

	"github.com/lib/pq"
)

// PostMediaRepository links uploaded assets to posts. The order of assetIDs
// is the carousel order.
type PostMediaRepository interface {
	Attach(ctx context.Context, tx *sql.Tx, postID int64, assetIDs []int64) error
}

type postMediaRepository struct {
	db *sql.DB
}

func NewPostMediaRepository(db *sql.DB) PostMediaRepository {
	return &postMediaRepository{db: db}
}

func (r *postMediaRepository) Attach(ctx context.Context, tx *sql.Tx, postID int64, assetIDs []int64) error {
	if len(assetIDs) == 0 {
		return nil
	}

	query := `
		INSERT INTO post_media (post_id, asset_id, display_order)
		SELECT $1, a.asset_id, a.ord - 1
		FROM unnest($2::bigint[]) WITH ORDINALITY AS a(asset_id, ord)
	`
	exec := r.db.ExecContext
	if tx != nil {
		exec = tx.ExecContext
	}
	if _, err := exec(ctx, query, postID, pq.Array(assetIDs)); err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}
