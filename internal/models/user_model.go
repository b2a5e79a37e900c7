package models

import "time"

// User is someone signed in with Google. Social accounts, media and posts
// all belong to a User; the Google subject is never exposed over the API.
type User struct {
	ID            int64     `db:"id" json:"id"`
	GoogleSubject string    `db:"google_id" json:"-"`
	Email         string    `db:"email" json:"email"`
	Name          string    `db:"name" json:"name"`
	AvatarURL     string    `db:"profile_picture" json:"avatar_url,omitempty"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time `db:"updated_at" json:"-"`
}
