package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/maheshrc27/socialflow/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var accountRowColumns = []string{"id", "user_id", "platform", "account_id", "account_name", "account_username",
	"profile_picture_url", "access_token", "refresh_token", "token_expires_at", "is_active",
	"last_synced_at", "metrics_synced_at", "sync_attempted_at", "metrics_attempted_at", "last_error", "last_error_at",
	"followers_count", "following_count", "posts_count", "created_at", "updated_at"}

func TestSocialAccountRepositoryCreateUpserts(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewSocialAccountRepository(db)
	sa := &models.SocialAccount{UserID: 1, Platform: "instagram", AccountID: "1784", AccountName: "Cafe", AccessToken: "enc"}

	mock.ExpectQuery("ON CONFLICT \\(user_id, platform, account_id\\) DO UPDATE").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(12))

	id, err := repo.Create(context.Background(), nil, sa)
	require.NoError(t, err)
	assert.Equal(t, int64(12), id)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSocialAccountRepositorySetToken(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewSocialAccountRepository(db)
	expires := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	sa := &models.SocialAccount{AccessToken: "new", TokenExpiresAt: &expires}

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE social_accounts").
		WithArgs(int64(5), "old", "new", "", &expires).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, repo.SetToken(context.Background(), 5, "old", sa))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSocialAccountRepositorySetTokenStale(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewSocialAccountRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE social_accounts").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	err = repo.SetToken(context.Background(), 5, "old", &models.SocialAccount{AccessToken: "new"})
	assert.ErrorIs(t, err, ErrStaleToken)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSocialAccountRepositoryListExpiring(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewSocialAccountRepository(db)
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	expires := now.Add(12 * time.Hour)

	rows := sqlmock.NewRows(accountRowColumns).
		AddRow(1, 10, "tiktok", "open-1", "Maker", "maker", "", "enc-a", "enc-r", expires, true,
			nil, nil, nil, nil, "", nil, 10, 2, 5, now, now)

	mock.ExpectQuery("WHERE is_active AND token_expires_at IS NOT NULL").
		WithArgs(now.Add(7 * 24 * time.Hour)).
		WillReturnRows(rows)

	accounts, err := repo.ListExpiring(context.Background(), now.Add(7*24*time.Hour))
	require.NoError(t, err)
	require.Len(t, accounts, 1)
	assert.Equal(t, "tiktok", accounts[0].Platform)
	assert.Equal(t, &expires, accounts[0].TokenExpiresAt)
	assert.True(t, accounts[0].IsActive)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSocialAccountRepositoryGetByID(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewSocialAccountRepository(db)

	mock.ExpectQuery("FROM social_accounts WHERE id = \\$1").
		WithArgs(int64(2)).
		WillReturnRows(sqlmock.NewRows(accountRowColumns))
	mock.ExpectQuery("FROM social_accounts WHERE id = \\$1").
		WithArgs(int64(3)).
		WillReturnError(errors.New("connection refused"))

	_, err = repo.GetByID(context.Background(), 2)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = repo.GetByID(context.Background(), 3)
	assert.EqualError(t, err, "connection refused")
}

func TestSocialAccountRepositoryDeactivate(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewSocialAccountRepository(db)

	mock.ExpectExec("SET is_active = FALSE").
		WithArgs(int64(8), "token revoked").
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.Deactivate(context.Background(), 8, "token revoked"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSocialAccountRepositoryListDueForSyncOrdersByAttempt(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewSocialAccountRepository(db)
	before := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery("sync_attempted_at IS NULL OR sync_attempted_at < \\$1\\)\\s+ORDER BY sync_attempted_at NULLS FIRST, id").
		WithArgs(before, 2).
		WillReturnRows(sqlmock.NewRows(accountRowColumns))
	mock.ExpectQuery("metrics_attempted_at IS NULL OR metrics_attempted_at < \\$1\\)\\s+ORDER BY metrics_attempted_at NULLS FIRST, id").
		WithArgs(before, 2).
		WillReturnRows(sqlmock.NewRows(accountRowColumns))

	_, err = repo.ListDueForSync(context.Background(), before, 2)
	require.NoError(t, err)
	_, err = repo.ListDueForAnalytics(context.Background(), before, 2)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSocialAccountRepositoryRecordSyncFailureStampsAttempt(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewSocialAccountRepository(db)
	at := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	mock.ExpectExec("SET last_error = \\$2, last_error_at = \\$3, sync_attempted_at = \\$3").
		WithArgs(int64(4), "rate limited", at).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("SET last_error = \\$2, last_error_at = \\$3, metrics_attempted_at = \\$3").
		WithArgs(int64(4), "unsupported", at).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.RecordSyncFailure(context.Background(), 4, "rate limited", at))
	require.NoError(t, repo.RecordMetricsFailure(context.Background(), 4, "unsupported", at))
	assert.NoError(t, mock.ExpectationsWereMet())
}
