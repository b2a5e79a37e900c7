package models

import "time"

// PostingHistory is an append-only record of one publish attempt.
type PostingHistory struct {
	ID           int64     `db:"id" json:"id"`
	UserID       int64     `db:"user_id" json:"user_id"`
	PostID       int64     `db:"post_id" json:"post_id"`
	AccountID    int64     `db:"account_id" json:"account_id"`
	Status       string    `db:"status" json:"status"`
	ErrorMessage string    `db:"error_message" json:"error_message"`
	ErrorKind    string    `db:"error_kind" json:"error_kind"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}
