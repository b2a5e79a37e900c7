package models

import "time"

type AccountMetrics struct {
	AccountID      int64     `db:"account_id" json:"account_id"`
	FollowersCount int64     `db:"followers_count" json:"followers_count"`
	FollowingCount int64     `db:"following_count" json:"following_count"`
	PostsCount     int64     `db:"posts_count" json:"posts_count"`
	CapturedAt     time.Time `db:"captured_at" json:"captured_at"`
}

type PostMetrics struct {
	PostID         int64     `db:"post_id" json:"post_id"`
	PlatformPostID string    `db:"platform_post_id" json:"platform_post_id"`
	Likes          int64     `db:"likes" json:"likes"`
	Comments       int64     `db:"comments" json:"comments"`
	Shares         int64     `db:"shares" json:"shares"`
	Saves          int64     `db:"saves" json:"saves"`
	Views          int64     `db:"views" json:"views"`
	Reach          int64     `db:"reach" json:"reach"`
	Impressions    int64     `db:"impressions" json:"impressions"`
	CapturedAt     time.Time `db:"captured_at" json:"captured_at"`
}
