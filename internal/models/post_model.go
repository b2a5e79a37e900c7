package models

import (
	"time"

	"github.com/lib/pq"
)

// Post is one unit of publishing intent owned by exactly one social account.
// Cross-posting to N accounts creates N posts sharing a GroupID.
type Post struct {
	ID             int64          `db:"id" json:"id"`
	UserID         int64          `db:"user_id" json:"user_id"`
	AccountID      int64          `db:"account_id" json:"account_id"`
	GroupID        string         `db:"group_id" json:"group_id"`
	Caption        string         `db:"caption" json:"caption"`
	Title          string         `db:"title" json:"title"`
	Hashtags       pq.StringArray `db:"hashtags" json:"hashtags"`
	Mentions       pq.StringArray `db:"mentions" json:"mentions"`
	ScheduledFor   *time.Time     `db:"scheduled_for" json:"scheduled_for"`
	Status         string         `db:"status" json:"status"`
	RetryCount     int            `db:"retry_count" json:"retry_count"`
	ErrorMessage   string         `db:"error_message" json:"error_message,omitempty"`
	ErrorKind      string         `db:"error_kind" json:"error_kind,omitempty"`
	PlatformPostID string         `db:"platform_post_id" json:"platform_post_id,omitempty"`
	Permalink      string         `db:"permalink" json:"permalink,omitempty"`
	PublishedAt    *time.Time     `db:"published_at" json:"published_at,omitempty"`
	CreatedAt      time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time      `db:"updated_at" json:"updated_at"`
}

type MediaAsset struct {
	ID              int64     `db:"id" json:"id"`
	UserID          int64     `db:"user_id" json:"user_id"`
	FileName        string    `db:"file_name" json:"file_name"`
	FileType        string    `db:"file_type" json:"file_type"`
	MediaType       string    `db:"media_type" json:"media_type"`
	FileSize        int64     `db:"file_size" json:"file_size"`
	FileURL         string    `db:"file_url" json:"file_url"`
	Width           int       `db:"width" json:"width"`
	Height          int       `db:"height" json:"height"`
	DurationSeconds float64   `db:"duration_seconds" json:"duration_seconds"`
	CreatedAt       time.Time `db:"created_at" json:"created_at"`
}

const (
	PostStatusDraft     = "draft"
	PostStatusScheduled = "scheduled"
	PostStatusPending   = "pending"
	PostStatusPublished = "published"
	PostStatusFailed    = "failed"
)

const (
	MediaTypeImage = "image"
	MediaTypeVideo = "video"
)

var postTransitions = map[string][]string{
	PostStatusDraft:     {PostStatusScheduled},
	PostStatusScheduled: {PostStatusPending, PostStatusDraft},
	PostStatusPending:   {PostStatusPublished, PostStatusFailed, PostStatusScheduled},
	PostStatusFailed:    {PostStatusPending, PostStatusScheduled},
}

// CanTransition reports whether a post may move from one status to another.
// pending -> scheduled is the retry-with-backoff edge.
func CanTransition(from, to string) bool {
	for _, s := range postTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}
