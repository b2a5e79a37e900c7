package repository

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"

	"github.com/lib/pq"
	"github.com/maheshrc27/socialflow/internal/models"
)

type MediaAssetRepository interface {
	Create(ctx context.Context, tx *sql.Tx, ma *models.MediaAsset) (int64, error)
	GetByID(ctx context.Context, id int64) (*models.MediaAsset, error)
	ListByIDs(ctx context.Context, userID int64, ids []int64) ([]*models.MediaAsset, error)
	ListByPostID(ctx context.Context, postID int64) ([]*models.MediaAsset, error)
}

type mediaAssetRepository struct {
	db *sql.DB
}

func NewMediaAssetRepository(db *sql.DB) MediaAssetRepository {
	return &mediaAssetRepository{db: db}
}

const assetColumns = `ma.id, ma.user_id, ma.file_name, ma.file_type, ma.media_type, ma.file_size,
	ma.file_url, ma.width, ma.height, ma.duration_seconds, ma.created_at`

func scanAsset(row scanner) (*models.MediaAsset, error) {
	var ma models.MediaAsset
	err := row.Scan(&ma.ID, &ma.UserID, &ma.FileName, &ma.FileType, &ma.MediaType, &ma.FileSize,
		&ma.FileURL, &ma.Width, &ma.Height, &ma.DurationSeconds, &ma.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &ma, nil
}

func (r *mediaAssetRepository) Create(ctx context.Context, tx *sql.Tx, ma *models.MediaAsset) (int64, error) {
	var id int64
	var err error

	query := `
		INSERT INTO media_assets (user_id, file_name, file_type, media_type, file_size, file_url, width, height, duration_seconds)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id
	`
	args := []any{ma.UserID, ma.FileName, ma.FileType, ma.MediaType, ma.FileSize, ma.FileURL, ma.Width, ma.Height, ma.DurationSeconds}
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

func (r *mediaAssetRepository) GetByID(ctx context.Context, id int64) (*models.MediaAsset, error) {
	query := `SELECT ` + assetColumns + ` FROM media_assets ma WHERE ma.id = $1`

	ma, err := scanAsset(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		slog.Info(err.Error())
		return nil, err
	}

	return ma, nil
}

func (r *mediaAssetRepository) list(ctx context.Context, query string, args ...any) ([]*models.MediaAsset, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	defer rows.Close()

	var assets []*models.MediaAsset
	for rows.Next() {
		ma, err := scanAsset(rows)
		if err != nil {
			slog.Info(err.Error())
			return nil, err
		}
		assets = append(assets, ma)
	}

	if err := rows.Err(); err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	return assets, nil
}

// ListByIDs returns the user's assets among ids. Missing or foreign ids are
// silently absent from the result.
func (r *mediaAssetRepository) ListByIDs(ctx context.Context, userID int64, ids []int64) ([]*models.MediaAsset, error) {
	query := `SELECT ` + assetColumns + ` FROM media_assets ma WHERE ma.user_id = $1 AND ma.id = ANY($2)`
	return r.list(ctx, query, userID, pq.Array(ids))
}

// ListByPostID returns the post's media in display order.
func (r *mediaAssetRepository) ListByPostID(ctx context.Context, postID int64) ([]*models.MediaAsset, error) {
	query := `SELECT ` + assetColumns + `
		FROM post_media pm
		JOIN media_assets ma ON ma.id = pm.asset_id
		WHERE pm.post_id = $1
		ORDER BY pm.display_order`
	return r.list(ctx, query, postID)
}
