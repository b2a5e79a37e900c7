package repository

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"time"

	"github.com/maheshrc27/socialflow/internal/models"
)

type SocialAccountRepository interface {
	Create(ctx context.Context, tx *sql.Tx, sa *models.SocialAccount) (int64, error)
	GetByID(ctx context.Context, id int64) (*models.SocialAccount, error)
	ListInfoByUserID(ctx context.Context, userID int64) ([]*models.SocialAccount, error)
	CheckByUserID(ctx context.Context, accountID, userID int64) (bool, error)
	ListExpiring(ctx context.Context, before time.Time) ([]*models.SocialAccount, error)
	ListDueForSync(ctx context.Context, attemptedBefore time.Time, limit int) ([]*models.SocialAccount, error)
	ListDueForAnalytics(ctx context.Context, attemptedBefore time.Time, limit int) ([]*models.SocialAccount, error)
	SetToken(ctx context.Context, id int64, oldAccessToken string, sa *models.SocialAccount) error
	Deactivate(ctx context.Context, id int64, reason string) error
	RecordError(ctx context.Context, id int64, message string) error
	UpdateProfile(ctx context.Context, sa *models.SocialAccount, syncedAt time.Time) error
	MarkMetricsSynced(ctx context.Context, id int64, at time.Time) error
	RecordSyncFailure(ctx context.Context, id int64, message string, at time.Time) error
	RecordMetricsFailure(ctx context.Context, id int64, message string, at time.Time) error
	Remove(ctx context.Context, id, userID int64) (bool, error)
}

type socialAccountRepository struct {
	db *sql.DB
}

func NewSocialAccountRepository(db *sql.DB) SocialAccountRepository {
	return &socialAccountRepository{db: db}
}

const accountColumns = `id, user_id, platform, account_id, account_name, account_username,
	profile_picture_url, access_token, refresh_token, token_expires_at, is_active,
	last_synced_at, metrics_synced_at, sync_attempted_at, metrics_attempted_at, last_error, last_error_at,
	followers_count, following_count, posts_count, created_at, updated_at`

func scanAccount(row scanner) (*models.SocialAccount, error) {
	var sa models.SocialAccount
	err := row.Scan(&sa.ID, &sa.UserID, &sa.Platform, &sa.AccountID, &sa.AccountName, &sa.AccountUsername,
		&sa.ProfilePicture, &sa.AccessToken, &sa.RefreshToken, &sa.TokenExpiresAt, &sa.IsActive,
		&sa.LastSyncedAt, &sa.MetricsSyncedAt, &sa.SyncTriedAt, &sa.MetricsTriedAt, &sa.LastError, &sa.LastErrorAt,
		&sa.FollowersCount, &sa.FollowingCount, &sa.PostsCount, &sa.CreatedAt, &sa.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &sa, nil
}

func (r *socialAccountRepository) listAccounts(ctx context.Context, query string, args ...any) ([]*models.SocialAccount, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	defer rows.Close()

	var accounts []*models.SocialAccount
	for rows.Next() {
		sa, err := scanAccount(rows)
		if err != nil {
			slog.Info(err.Error())
			return nil, err
		}
		accounts = append(accounts, sa)
	}

	if err := rows.Err(); err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	return accounts, nil
}

// Create inserts the account or, when the same identity is connected again,
// replaces its tokens and reactivates it.
func (r *socialAccountRepository) Create(ctx context.Context, tx *sql.Tx, sa *models.SocialAccount) (int64, error) {
	var err error
	var id int64

	var insertQuery = `
			INSERT INTO social_accounts(
				user_id,
				platform,
				account_id,
				account_name,
				account_username,
				profile_picture_url,
				access_token,
				refresh_token,
				token_expires_at,
				followers_count,
				following_count,
				posts_count
			)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
			ON CONFLICT (user_id, platform, account_id) DO UPDATE SET
				account_name = EXCLUDED.account_name,
				account_username = EXCLUDED.account_username,
				profile_picture_url = EXCLUDED.profile_picture_url,
				access_token = EXCLUDED.access_token,
				refresh_token = EXCLUDED.refresh_token,
				token_expires_at = EXCLUDED.token_expires_at,
				followers_count = EXCLUDED.followers_count,
				following_count = EXCLUDED.following_count,
				posts_count = EXCLUDED.posts_count,
				is_active = TRUE,
				last_error = '',
				last_error_at = NULL,
				updated_at = CURRENT_TIMESTAMP
			RETURNING id
		`

	args := []any{
		sa.UserID,
		sa.Platform,
		sa.AccountID,
		sa.AccountName,
		sa.AccountUsername,
		sa.ProfilePicture,
		sa.AccessToken,
		sa.RefreshToken,
		sa.TokenExpiresAt,
		sa.FollowersCount,
		sa.FollowingCount,
		sa.PostsCount,
	}

	if tx != nil {
		err = tx.QueryRowContext(ctx, insertQuery, args...).Scan(&id)
	} else {
		err = r.db.QueryRowContext(ctx, insertQuery, args...).Scan(&id)
	}

	if err != nil {
		slog.Info(err.Error())
		return 0, err
	}

	return id, nil
}

func (r *socialAccountRepository) GetByID(ctx context.Context, id int64) (*models.SocialAccount, error) {
	query := `SELECT ` + accountColumns + ` FROM social_accounts WHERE id = $1`

	sa, err := scanAccount(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		slog.Info(err.Error())
		return nil, err
	}

	return sa, nil
}

func (r *socialAccountRepository) ListInfoByUserID(ctx context.Context, userID int64) ([]*models.SocialAccount, error) {
	query := `SELECT ` + accountColumns + ` FROM social_accounts WHERE user_id = $1 ORDER BY id`
	return r.listAccounts(ctx, query, userID)
}

func (r *socialAccountRepository) CheckByUserID(ctx context.Context, accountID, userID int64) (bool, error) {
	query := "SELECT 1 FROM social_accounts WHERE id = $1 AND user_id = $2"

	var result int
	err := r.db.QueryRowContext(ctx, query, accountID, userID).Scan(&result)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		slog.Info(err.Error())
		return false, err
	}

	return result == 1, nil
}

// ListExpiring returns active accounts whose tokens expire at or before the
// given time, soonest first.
func (r *socialAccountRepository) ListExpiring(ctx context.Context, before time.Time) ([]*models.SocialAccount, error) {
	query := `SELECT ` + accountColumns + `
		FROM social_accounts
		WHERE is_active AND token_expires_at IS NOT NULL AND token_expires_at <= $1
		ORDER BY token_expires_at`
	return r.listAccounts(ctx, query, before)
}

// ListDueForSync returns active accounts whose last sync attempt, successful
// or not, is older than attemptedBefore. Least recently attempted first, so
// failing accounts rotate with healthy ones.
func (r *socialAccountRepository) ListDueForSync(ctx context.Context, attemptedBefore time.Time, limit int) ([]*models.SocialAccount, error) {
	query := `SELECT ` + accountColumns + `
		FROM social_accounts
		WHERE is_active AND (sync_attempted_at IS NULL OR sync_attempted_at < $1)
		ORDER BY sync_attempted_at NULLS FIRST, id
		LIMIT $2`
	return r.listAccounts(ctx, query, attemptedBefore, limit)
}

func (r *socialAccountRepository) ListDueForAnalytics(ctx context.Context, attemptedBefore time.Time, limit int) ([]*models.SocialAccount, error) {
	query := `SELECT ` + accountColumns + `
		FROM social_accounts
		WHERE is_active AND (metrics_attempted_at IS NULL OR metrics_attempted_at < $1)
		ORDER BY metrics_attempted_at NULLS FIRST, id
		LIMIT $2`
	return r.listAccounts(ctx, query, attemptedBefore, limit)
}

// SetToken stores a refreshed credential only if the access token is still
// the one the refresh started from.
func (r *socialAccountRepository) SetToken(ctx context.Context, id int64, oldAccessToken string, sa *models.SocialAccount) error {
	tx, err := r.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	defer tx.Rollback()

	updateTokenQuery := `
		UPDATE social_accounts
		SET
			access_token = COALESCE(NULLIF($3, ''), access_token),
			refresh_token = COALESCE(NULLIF($4, ''), refresh_token),
			token_expires_at = COALESCE($5, token_expires_at),
			last_error = '',
			last_error_at = NULL,
			updated_at = CURRENT_TIMESTAMP
		WHERE id = $1 AND access_token = $2;
	`
	result, err := tx.ExecContext(ctx, updateTokenQuery, id, oldAccessToken, sa.AccessToken, sa.RefreshToken, sa.TokenExpiresAt)
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
		return ErrStaleToken
	}

	if err = tx.Commit(); err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}

func (r *socialAccountRepository) Deactivate(ctx context.Context, id int64, reason string) error {
	query := `
		UPDATE social_accounts
		SET is_active = FALSE, last_error = $2, last_error_at = CURRENT_TIMESTAMP, updated_at = CURRENT_TIMESTAMP
		WHERE id = $1
	`
	if _, err := r.db.ExecContext(ctx, query, id, reason); err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}

func (r *socialAccountRepository) RecordError(ctx context.Context, id int64, message string) error {
	query := `
		UPDATE social_accounts
		SET last_error = $2, last_error_at = CURRENT_TIMESTAMP, updated_at = CURRENT_TIMESTAMP
		WHERE id = $1
	`
	if _, err := r.db.ExecContext(ctx, query, id, message); err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}

func (r *socialAccountRepository) UpdateProfile(ctx context.Context, sa *models.SocialAccount, syncedAt time.Time) error {
	query := `
		UPDATE social_accounts
		SET
			account_name = COALESCE(NULLIF($2, ''), account_name),
			account_username = COALESCE(NULLIF($3, ''), account_username),
			profile_picture_url = COALESCE(NULLIF($4, ''), profile_picture_url),
			followers_count = $5,
			following_count = $6,
			posts_count = $7,
			last_synced_at = $8,
			sync_attempted_at = $8,
			last_error = '',
			last_error_at = NULL,
			updated_at = CURRENT_TIMESTAMP
		WHERE id = $1
	`
	_, err := r.db.ExecContext(ctx, query, sa.ID, sa.AccountName, sa.AccountUsername, sa.ProfilePicture,
		sa.FollowersCount, sa.FollowingCount, sa.PostsCount, syncedAt)
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}

func (r *socialAccountRepository) MarkMetricsSynced(ctx context.Context, id int64, at time.Time) error {
	query := `UPDATE social_accounts SET metrics_synced_at = $2, metrics_attempted_at = $2 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, at); err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}

// RecordSyncFailure stores the error of a failed profile sync and stamps the
// attempt without touching last_synced_at.
func (r *socialAccountRepository) RecordSyncFailure(ctx context.Context, id int64, message string, at time.Time) error {
	query := `
		UPDATE social_accounts
		SET last_error = $2, last_error_at = $3, sync_attempted_at = $3, updated_at = CURRENT_TIMESTAMP
		WHERE id = $1
	`
	if _, err := r.db.ExecContext(ctx, query, id, message, at); err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}

func (r *socialAccountRepository) RecordMetricsFailure(ctx context.Context, id int64, message string, at time.Time) error {
	query := `
		UPDATE social_accounts
		SET last_error = $2, last_error_at = $3, metrics_attempted_at = $3, updated_at = CURRENT_TIMESTAMP
		WHERE id = $1
	`
	if _, err := r.db.ExecContext(ctx, query, id, message, at); err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}

func (r *socialAccountRepository) Remove(ctx context.Context, id, userID int64) (bool, error) {
	query := `DELETE FROM social_accounts WHERE id = $1 AND user_id = $2`
	result, err := r.db.ExecContext(ctx, query, id, userID)
	if err != nil {
		slog.Info(err.Error())
		return false, err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		slog.Info(err.Error())
		return false, err
	}
	return affected == 1, nil
}
