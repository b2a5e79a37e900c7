package job

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	config "github.com/maheshrc27/socialflow/configs"
	"github.com/maheshrc27/socialflow/internal/clock"
	"github.com/maheshrc27/socialflow/internal/models"
	"github.com/maheshrc27/socialflow/internal/network"
	"github.com/maheshrc27/socialflow/internal/publisher"
	"github.com/maheshrc27/socialflow/internal/repository"
)

// AccountPublisher is the part of the universal publisher the scheduler
// depends on.
type AccountPublisher interface {
	PublishToAccount(ctx context.Context, acc *models.SocialAccount, intent publisher.Intent) publisher.Result
}

// PublishReport summarizes one scheduler or retry pass.
type PublishReport struct {
	Selected    int `json:"selected"`
	Claimed     int `json:"claimed"`
	Skipped     int `json:"skipped"`
	Published   int `json:"published"`
	Rescheduled int `json:"rescheduled"`
	Failed      int `json:"failed"`
	Reaped      int `json:"reaped"`
}

func (r PublishReport) log(pass string) {
	slog.Info(pass+" finished",
		"selected", r.Selected,
		"claimed", r.Claimed,
		"skipped", r.Skipped,
		"published", r.Published,
		"rescheduled", r.Rescheduled,
		"failed", r.Failed,
		"reaped", r.Reaped,
	)
}

// retryableKinds are the error kinds the retry sweep may pick up again.
var retryableKinds = []string{
	string(network.KindTransient),
	string(network.KindTimeout),
	string(network.KindPublish),
	string(network.KindRefreshRecoverable),
}

type PublishJob struct {
	posts    repository.PostRepository
	accounts repository.SocialAccountRepository
	media    repository.MediaAssetRepository
	history  repository.PostingHistoryRepository
	pub      AccountPublisher
	clock    clock.Clock
	cfg      config.Workers
}

func NewPublishJob(
	posts repository.PostRepository,
	accounts repository.SocialAccountRepository,
	media repository.MediaAssetRepository,
	history repository.PostingHistoryRepository,
	pub AccountPublisher,
	clk clock.Clock,
	cfg config.Workers) *PublishJob {
	return &PublishJob{
		posts:    posts,
		accounts: accounts,
		media:    media,
		history:  history,
		pub:      pub,
		clock:    clk,
		cfg:      cfg,
	}
}

// Tick publishes every scheduled post that is due. Per-post publish
// failures are recorded on the post; store errors abort the pass.
func (j *PublishJob) Tick(ctx context.Context) (PublishReport, error) {
	posts, err := j.posts.ListDue(ctx, j.clock.Now(), j.cfg.BatchSize)
	if err != nil {
		return PublishReport{}, fmt.Errorf("error listing due posts: %w", err)
	}

	report, err := j.run(ctx, posts, models.PostStatusScheduled)
	report.log("scheduler tick")
	return report, err
}

// RetryFailedPosts re-attempts failed posts that still have retry budget
// and failed for a retryable reason. Posts left pending by a worker that
// died mid-attempt are failed first so the same sweep can retry them.
func (j *PublishJob) RetryFailedPosts(ctx context.Context) (PublishReport, error) {
	reaped, err := j.ReapStale(ctx)
	if err != nil {
		return PublishReport{}, err
	}

	posts, err := j.posts.ListRetryable(ctx, j.cfg.MaxRetries, retryableKinds, j.cfg.BatchSize)
	if err != nil {
		return PublishReport{Reaped: reaped}, fmt.Errorf("error listing retryable posts: %w", err)
	}

	report, err := j.run(ctx, posts, models.PostStatusFailed)
	report.Reaped = reaped
	report.log("retry sweep")
	return report, err
}

// ReapStale fails posts that have been pending for longer than any pass
// can take.
func (j *PublishJob) ReapStale(ctx context.Context) (int, error) {
	before := j.clock.Now().Add(-j.cfg.PassTimeout())
	n, err := j.posts.ReapStale(ctx, before, string(network.KindTransient), "publish attempt abandoned while pending")
	if err != nil {
		return 0, fmt.Errorf("error reaping stale pending posts: %w", err)
	}
	if n > 0 {
		slog.Warn("stale pending posts failed", "count", n, "claimed_before", before)
	}
	return int(n), nil
}

func (j *PublishJob) run(ctx context.Context, posts []*models.Post, from string) (PublishReport, error) {
	report := PublishReport{Selected: len(posts)}

	for i, post := range posts {
		if i > 0 {
			if err := j.clock.Sleep(ctx, j.cfg.PostDelay); err != nil {
				return report, err
			}
		}
		if err := j.process(ctx, post, from, &report); err != nil {
			return report, err
		}
	}
	return report, nil
}

func (j *PublishJob) process(ctx context.Context, post *models.Post, from string, report *PublishReport) error {
	claimed, err := j.posts.Claim(ctx, post.ID, from)
	if err != nil {
		return fmt.Errorf("error claiming post %d: %w", post.ID, err)
	}
	if !claimed {
		report.Skipped++
		slog.Info("post already claimed", "post_id", post.ID)
		return nil
	}
	report.Claimed++

	// A claimed post must leave pending, so the attempt and its settling
	// write outlive the pass context.
	actx, cancel := context.WithTimeout(context.WithoutCancel(ctx), j.cfg.AttemptTimeout())
	defer cancel()

	res, err := j.attempt(actx, post)
	if err != nil {
		return err
	}

	status, err := j.settle(actx, post, res)
	if err != nil {
		return err
	}
	switch status {
	case models.PostStatusPublished:
		report.Published++
	case models.PostStatusScheduled:
		report.Rescheduled++
	default:
		report.Failed++
	}
	return nil
}

// attempt resolves the account and media of a claimed post and publishes
// it. The returned error is only set for store failures.
func (j *PublishJob) attempt(ctx context.Context, post *models.Post) (publisher.Result, error) {
	res := publisher.Result{AccountID: post.AccountID}

	acc, err := j.accounts.GetByID(ctx, post.AccountID)
	if errors.Is(err, repository.ErrNotFound) {
		res.Err = network.Errorf(network.KindAccountInactive, "", "resolve_account", "account %d no longer exists", post.AccountID)
		return res, nil
	}
	if err != nil {
		return res, fmt.Errorf("error loading account %d: %w", post.AccountID, err)
	}

	n := network.Network(acc.Platform)
	res.Network = n
	if !acc.IsActive {
		reason := "account is inactive"
		if acc.LastError != "" {
			reason = fmt.Sprintf("account is inactive: %s", acc.LastError)
		}
		res.Err = network.Errorf(network.KindAccountInactive, n, "resolve_account", "%s", reason)
		return res, nil
	}
	if !acc.HasCredential() {
		res.Err = network.Errorf(network.KindNoCredential, n, "resolve_account", "account has no access token")
		return res, nil
	}

	assets, err := j.media.ListByPostID(ctx, post.ID)
	if err != nil {
		return res, fmt.Errorf("error loading media for post %d: %w", post.ID, err)
	}

	return j.pub.PublishToAccount(ctx, acc, publisher.Intent{
		Caption:  post.Caption,
		Title:    post.Title,
		Hashtags: post.Hashtags,
		Mentions: post.Mentions,
		Media:    assets,
	}), nil
}

// settle records the outcome of an attempt on a pending post and returns
// the status it ended in.
func (j *PublishJob) settle(ctx context.Context, post *models.Post, res publisher.Result) (string, error) {
	now := j.clock.Now()

	if res.Success {
		if err := j.posts.MarkPublished(ctx, post.ID, res.PlatformPostID, res.Permalink, now); err != nil {
			return "", fmt.Errorf("error marking post %d published: %w", post.ID, err)
		}
		j.recordHistory(ctx, post, models.PostStatusPublished, res)
		return models.PostStatusPublished, nil
	}

	kind, msg := res.ErrorKind(), res.Err.Error()
	status := NextStatus(kind, post.RetryCount, j.cfg.MaxRetries)

	switch status {
	case models.PostStatusScheduled:
		count := post.RetryCount + 1
		at := now.Add(j.cfg.RetryDelay)
		if err := j.posts.Reschedule(ctx, post.ID, count, at, string(kind), msg); err != nil {
			return "", fmt.Errorf("error rescheduling post %d: %w", post.ID, err)
		}
		slog.Info("post rescheduled", "post_id", post.ID, "attempt", count, "at", at, "kind", kind)
	default:
		count := post.RetryCount
		if !kind.Precondition() {
			count++
		}
		if err := j.posts.MarkFailed(ctx, post.ID, count, string(kind), msg); err != nil {
			return "", fmt.Errorf("error marking post %d failed: %w", post.ID, err)
		}
		slog.Warn("post failed", "post_id", post.ID, "attempts", count, "kind", kind, "error", msg)
	}

	j.recordHistory(ctx, post, status, res)
	return status, nil
}

// NextStatus decides where a pending post goes after a failed attempt.
// retryCount is the count before this attempt. The ceiling is inclusive:
// the attempt that brings the count to maxRetries is terminal.
func NextStatus(kind network.Kind, retryCount, maxRetries int) string {
	if kind.Retryable() && retryCount+1 < maxRetries {
		return models.PostStatusScheduled
	}
	return models.PostStatusFailed
}

// recordHistory appends the attempt to posting history. History is for
// operators; a write failure is logged and does not affect the post.
func (j *PublishJob) recordHistory(ctx context.Context, post *models.Post, status string, res publisher.Result) {
	ph := &models.PostingHistory{
		UserID:    post.UserID,
		PostID:    post.ID,
		AccountID: post.AccountID,
		Status:    status,
	}
	if res.Err != nil {
		ph.ErrorMessage = res.Err.Error()
		ph.ErrorKind = string(res.Err.Kind)
	}
	if _, err := j.history.Create(ctx, ph); err != nil {
		slog.Info(err.Error())
	}
}

// RunTick adapts Tick to a cron callback.
func (j *PublishJob) RunTick() {
	ctx, cancel := context.WithTimeout(context.Background(), j.cfg.PassTimeout())
	defer cancel()
	if _, err := j.Tick(ctx); err != nil {
		slog.Error("scheduler tick aborted", "error", err)
	}
}

func (j *PublishJob) RunRetry() {
	ctx, cancel := context.WithTimeout(context.Background(), j.cfg.PassTimeout())
	defer cancel()
	if _, err := j.RetryFailedPosts(ctx); err != nil {
		slog.Error("retry sweep aborted", "error", err)
	}
}
