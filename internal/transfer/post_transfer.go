package transfer

import (
	"errors"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

const (
	maxAccountsPerRequest = 20
	maxMediaPerRequest    = 35
)

// ScheduleRequest asks for one post per selected account. Without
// ScheduledFor the posts are saved as drafts.
type ScheduleRequest struct {
	AccountIDs   []int64    `json:"account_ids"`
	Caption      string     `json:"caption"`
	Title        string     `json:"title"`
	Hashtags     []string   `json:"hashtags"`
	Mentions     []string   `json:"mentions"`
	MediaIDs     []int64    `json:"media_ids"`
	ScheduledFor *time.Time `json:"scheduled_for"`
}

func (r *ScheduleRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.AccountIDs, validation.Required, validation.Length(1, maxAccountsPerRequest),
			validation.Each(validation.Required, validation.Min(int64(1))), validation.By(distinctIDs)),
		validation.Field(&r.MediaIDs, validation.Required, validation.Length(1, maxMediaPerRequest),
			validation.Each(validation.Required, validation.Min(int64(1))), validation.By(distinctIDs)),
		validation.Field(&r.Title, validation.RuneLength(0, 100)),
		validation.Field(&r.Hashtags, validation.Each(validation.Required, validation.RuneLength(1, 100))),
		validation.Field(&r.Mentions, validation.Each(validation.Required, validation.RuneLength(1, 100))),
	)
}

func distinctIDs(value interface{}) error {
	ids, _ := value.([]int64)
	seen := make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			return errors.New("must not contain duplicates")
		}
		seen[id] = struct{}{}
	}
	return nil
}

type RescheduleRequest struct {
	ScheduledFor time.Time `json:"scheduled_for"`
}

func (r *RescheduleRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.ScheduledFor, validation.Required),
	)
}

// ScheduledPost is the response to a schedule request.
type ScheduledPost struct {
	GroupID string  `json:"group_id"`
	PostIDs []int64 `json:"post_ids"`
	Status  string  `json:"status"`
}
