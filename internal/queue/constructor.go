package queue

import (
	job "github.com/maheshrc27/socialflow/internal/jobs"
)

// Queue handles the asynq tasks that nudge the periodic workers outside of
// their cron interval.
type Queue struct {
	publish *job.PublishJob
	sync    *job.AccountSyncJob
}

func NewQueue(publish *job.PublishJob, sync *job.AccountSyncJob) *Queue {
	return &Queue{
		publish: publish,
		sync:    sync,
	}
}

const (
	TaskTypePublishDue  = "post:publish_due"
	TaskTypeAccountSync = "account:sync"
	TaskTypeRetryFailed = "posts:retry_failed"
)

type PublishDuePayload struct {
	PostID int64 `json:"post_id"`
}

type AccountSyncPayload struct {
	AccountID int64 `json:"account_id"`
}
