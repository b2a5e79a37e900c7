package queue

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"
)

// Enqueuer schedules nudges. Nudges never carry state: the worker that
// handles one re-reads the store, so a lost or duplicated task is harmless.
type Enqueuer struct {
	client *asynq.Client
}

func NewEnqueuer(client *asynq.Client) *Enqueuer {
	return &Enqueuer{client: client}
}

func (e *Enqueuer) enqueue(taskType string, payload any, opts ...asynq.Option) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	info, err := e.client.Enqueue(asynq.NewTask(taskType, data), opts...)
	if errors.Is(err, asynq.ErrTaskIDConflict) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("error enqueuing %s: %w", taskType, err)
	}

	slog.Info("task enqueued", "type", taskType, "id", info.ID, "process_at", info.NextProcessAt)
	return nil
}

// EnqueuePublishDue runs a scheduler tick at the moment a post becomes due.
func (e *Enqueuer) EnqueuePublishDue(postID int64, at time.Time) error {
	return e.enqueue(TaskTypePublishDue, PublishDuePayload{PostID: postID},
		asynq.ProcessAt(at),
		asynq.TaskID(fmt.Sprintf("publish:%d:%d", postID, at.Unix())),
		asynq.MaxRetry(0),
	)
}

func (e *Enqueuer) EnqueueAccountSync(accountID int64) error {
	return e.enqueue(TaskTypeAccountSync, AccountSyncPayload{AccountID: accountID},
		asynq.MaxRetry(1),
		asynq.Timeout(2*time.Minute),
	)
}

func (e *Enqueuer) EnqueueRetrySweep() error {
	return e.enqueue(TaskTypeRetryFailed, struct{}{}, asynq.MaxRetry(0))
}
