package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/hibiken/asynq"
	"github.com/maheshrc27/socialflow/internal/network"
	"github.com/maheshrc27/socialflow/internal/repository"
)

func (q *Queue) Register(mux *asynq.ServeMux) {
	mux.HandleFunc(TaskTypePublishDue, q.HandlePublishDueTask)
	mux.HandleFunc(TaskTypeAccountSync, q.HandleAccountSyncTask)
	mux.HandleFunc(TaskTypeRetryFailed, q.HandleRetryFailedTask)
}

// HandlePublishDueTask runs a scheduler tick. The tick claims the post
// through the same conditional update as the cron-driven tick, so a post
// is published once however many triggers fire.
func (q *Queue) HandlePublishDueTask(ctx context.Context, task *asynq.Task) error {
	var payload PublishDuePayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return fmt.Errorf("invalid payload: %v: %w", err, asynq.SkipRetry)
	}

	_, err := q.publish.Tick(ctx)
	return err
}

func (q *Queue) HandleAccountSyncTask(ctx context.Context, task *asynq.Task) error {
	var payload AccountSyncPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return fmt.Errorf("invalid payload: %v: %w", err, asynq.SkipRetry)
	}
	if payload.AccountID <= 0 {
		return fmt.Errorf("invalid account id %d: %w", payload.AccountID, asynq.SkipRetry)
	}

	err := q.sync.SyncAccount(ctx, payload.AccountID)
	if errors.Is(err, repository.ErrNotFound) || network.KindOf(err).Precondition() {
		return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
	}
	return err
}

func (q *Queue) HandleRetryFailedTask(ctx context.Context, task *asynq.Task) error {
	_, err := q.publish.RetryFailedPosts(ctx)
	return err
}
