package models

import (
	"time"
)

// SocialAccount is one authorized identity on one external network.
// AccessToken and RefreshToken are stored encrypted.
type SocialAccount struct {
	ID              int64      `db:"id" json:"id"`
	UserID          int64      `db:"user_id" json:"user_id"`
	Platform        string     `db:"platform" json:"platform"`
	AccountID       string     `db:"account_id" json:"account_id"`
	AccountName     string     `db:"account_name" json:"account_name"`
	AccountUsername string     `db:"account_username" json:"account_username"`
	ProfilePicture  string     `db:"profile_picture_url" json:"profile_picture"`
	AccessToken     string     `db:"access_token" json:"-"`
	RefreshToken    string     `db:"refresh_token" json:"-"`
	TokenExpiresAt  *time.Time `db:"token_expires_at" json:"token_expires_at"`
	IsActive        bool       `db:"is_active" json:"is_active"`
	LastSyncedAt    *time.Time `db:"last_synced_at" json:"last_synced_at"`
	MetricsSyncedAt *time.Time `db:"metrics_synced_at" json:"metrics_synced_at"`
	SyncTriedAt     *time.Time `db:"sync_attempted_at" json:"-"`
	MetricsTriedAt  *time.Time `db:"metrics_attempted_at" json:"-"`
	LastError       string     `db:"last_error" json:"last_error,omitempty"`
	LastErrorAt     *time.Time `db:"last_error_at" json:"last_error_at,omitempty"`
	FollowersCount  int64      `db:"followers_count" json:"followers_count"`
	FollowingCount  int64      `db:"following_count" json:"following_count"`
	PostsCount      int64      `db:"posts_count" json:"posts_count"`
	CreatedAt       time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time  `db:"updated_at" json:"updated_at"`
}

func (sa *SocialAccount) HasCredential() bool {
	return sa.AccessToken != ""
}
