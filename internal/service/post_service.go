package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	config "github.com/maheshrc27/socialflow/configs"
	"github.com/maheshrc27/socialflow/internal/clock"
	"github.com/maheshrc27/socialflow/internal/models"
	"github.com/maheshrc27/socialflow/internal/publisher"
	"github.com/maheshrc27/socialflow/internal/repository"
	"github.com/maheshrc27/socialflow/internal/transfer"
)

// Nudger schedules out-of-band worker runs. Implemented by queue.Enqueuer.
type Nudger interface {
	EnqueuePublishDue(postID int64, at time.Time) error
	EnqueueAccountSync(accountID int64) error
	EnqueueRetrySweep() error
}

type CrossPoster interface {
	CrossPost(ctx context.Context, accounts []*models.SocialAccount, intent publisher.Intent) publisher.CrossPostResult
}

type PostService interface {
	Schedule(ctx context.Context, userID int64, req *transfer.ScheduleRequest) (*transfer.ScheduledPost, error)
	PublishNow(ctx context.Context, userID int64, req *transfer.ScheduleRequest) (*publisher.CrossPostResult, error)
	Cancel(ctx context.Context, userID, postID int64) error
	Reschedule(ctx context.Context, userID, postID int64, at time.Time) error
	List(ctx context.Context, userID int64) ([]*models.Post, error)
	PostInfo(ctx context.Context, postID, userID int64) (*models.Post, error)
	History(ctx context.Context, postID, userID int64) ([]*models.PostingHistory, error)
	Remove(ctx context.Context, userID, postID int64) error
	RetryFailed(ctx context.Context) error
}

type postService struct {
	db     *sql.DB
	pr     repository.PostRepository
	ac     repository.SocialAccountRepository
	ma     repository.MediaAssetRepository
	pm     repository.PostMediaRepository
	ph     repository.PostingHistoryRepository
	pub    CrossPoster
	nudger Nudger
	clock  clock.Clock
	cfg    config.Workers
}

func NewPostService(
	db *sql.DB,
	pr repository.PostRepository,
	ac repository.SocialAccountRepository,
	ma repository.MediaAssetRepository,
	pm repository.PostMediaRepository,
	ph repository.PostingHistoryRepository,
	pub CrossPoster,
	nudger Nudger,
	clk clock.Clock,
	cfg config.Workers) PostService {
	return &postService{
		db:     db,
		pr:     pr,
		ac:     ac,
		ma:     ma,
		pm:     pm,
		ph:     ph,
		pub:    pub,
		nudger: nudger,
		clock:  clk,
		cfg:    cfg,
	}
}

// loadAccounts returns the requested accounts in request order, failing if
// any of them is not owned by userID.
func (s *postService) loadAccounts(ctx context.Context, userID int64, ids []int64) ([]*models.SocialAccount, error) {
	accounts := make([]*models.SocialAccount, 0, len(ids))
	for _, id := range ids {
		acc, err := s.ac.GetByID(ctx, id)
		if errors.Is(err, repository.ErrNotFound) || (err == nil && acc.UserID != userID) {
			return nil, fmt.Errorf("social account %d: %w", id, ErrNotFound)
		}
		if err != nil {
			return nil, err
		}
		accounts = append(accounts, acc)
	}
	return accounts, nil
}

// loadMedia returns the requested media in request order.
func (s *postService) loadMedia(ctx context.Context, userID int64, ids []int64) ([]*models.MediaAsset, error) {
	assets, err := s.ma.ListByIDs(ctx, userID, ids)
	if err != nil {
		return nil, err
	}

	byID := make(map[int64]*models.MediaAsset, len(assets))
	for _, a := range assets {
		byID[a.ID] = a
	}

	ordered := make([]*models.MediaAsset, 0, len(ids))
	for _, id := range ids {
		a, ok := byID[id]
		if !ok {
			return nil, fmt.Errorf("media %d: %w", id, ErrNotFound)
		}
		ordered = append(ordered, a)
	}
	return ordered, nil
}

// createPosts stores one post per account, all sharing a group id, with the
// given media attached in order.
func (s *postService) createPosts(ctx context.Context, userID int64, req *transfer.ScheduleRequest, accounts []*models.SocialAccount, media []*models.MediaAsset, status string, at *time.Time) (_ string, _ []int64, err error) {
	groupID := uuid.NewString()

	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		return "", nil, fmt.Errorf("failed to start transaction: %w", err)
	}
	defer func() {
		if p := recover(); p != nil {
			tx.Rollback()
			panic(p)
		} else if err != nil {
			tx.Rollback()
		}
	}()

	assetIDs := make([]int64, len(media))
	for i, m := range media {
		assetIDs[i] = m.ID
	}

	ids := make([]int64, 0, len(accounts))
	for _, acc := range accounts {
		post := models.Post{
			UserID:       userID,
			AccountID:    acc.ID,
			GroupID:      groupID,
			Caption:      req.Caption,
			Title:        req.Title,
			Hashtags:     req.Hashtags,
			Mentions:     req.Mentions,
			ScheduledFor: at,
			Status:       status,
		}

		postID, err := s.pr.Create(ctx, tx, &post)
		if err != nil {
			return "", nil, fmt.Errorf("error creating post: %w", err)
		}

		if err := s.pm.Attach(ctx, tx, postID, assetIDs); err != nil {
			return "", nil, fmt.Errorf("error attaching media to post %d: %w", postID, err)
		}
		ids = append(ids, postID)
	}

	if err := tx.Commit(); err != nil {
		return "", nil, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return groupID, ids, nil
}

func (s *postService) Schedule(ctx context.Context, userID int64, req *transfer.ScheduleRequest) (*transfer.ScheduledPost, error) {
	if userID == 0 {
		return nil, ErrInvalidUserID
	}
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	accounts, err := s.loadAccounts(ctx, userID, req.AccountIDs)
	if err != nil {
		return nil, err
	}
	media, err := s.loadMedia(ctx, userID, req.MediaIDs)
	if err != nil {
		return nil, err
	}

	status := models.PostStatusDraft
	if req.ScheduledFor != nil {
		status = models.PostStatusScheduled
	}

	groupID, ids, err := s.createPosts(ctx, userID, req, accounts, media, status, req.ScheduledFor)
	if err != nil {
		return nil, err
	}

	if status == models.PostStatusScheduled {
		for _, id := range ids {
			// The periodic tick still picks the post up if the nudge is lost.
			if err := s.nudger.EnqueuePublishDue(id, *req.ScheduledFor); err != nil {
				slog.Warn("unable to enqueue publish nudge", "post_id", id, "error", err)
			}
		}
	}

	slog.Info("posts created", "user_id", userID, "group_id", groupID, "count", len(ids), "status", status)
	return &transfer.ScheduledPost{GroupID: groupID, PostIDs: ids, Status: status}, nil
}

// PublishNow publishes to every selected account immediately. Each post is
// stored as pending first so the outcome goes through the same transitions
// as a scheduled publish.
func (s *postService) PublishNow(ctx context.Context, userID int64, req *transfer.ScheduleRequest) (*publisher.CrossPostResult, error) {
	if userID == 0 {
		return nil, ErrInvalidUserID
	}
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	accounts, err := s.loadAccounts(ctx, userID, req.AccountIDs)
	if err != nil {
		return nil, err
	}
	media, err := s.loadMedia(ctx, userID, req.MediaIDs)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	_, ids, err := s.createPosts(ctx, userID, req, accounts, media, models.PostStatusPending, &now)
	if err != nil {
		return nil, err
	}

	// The posts are pending from here on; a dropped request must not strand
	// them, so publishing and settling run detached with their own bound.
	bound := time.Duration(len(accounts)) * (s.cfg.AttemptTimeout() + s.cfg.CrossPostDelay)
	pctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), bound)
	defer cancel()

	result := s.pub.CrossPost(pctx, accounts, publisher.Intent{
		Caption:  req.Caption,
		Title:    req.Title,
		Hashtags: req.Hashtags,
		Mentions: req.Mentions,
		Media:    media,
	})

	for i, res := range result.Results {
		if err := s.record(pctx, userID, ids[i], res); err != nil {
			return &result, err
		}
	}
	return &result, nil
}

// record settles a pending post created by PublishNow. A retryable failure
// counts as the first attempt and stays eligible for the retry sweep.
func (s *postService) record(ctx context.Context, userID, postID int64, res publisher.Result) error {
	ph := &models.PostingHistory{UserID: userID, PostID: postID, AccountID: res.AccountID}

	if res.Success {
		ph.Status = models.PostStatusPublished
		if err := s.pr.MarkPublished(ctx, postID, res.PlatformPostID, res.Permalink, s.clock.Now()); err != nil {
			return fmt.Errorf("error marking post %d published: %w", postID, err)
		}
	} else {
		kind := res.ErrorKind()
		count := 1
		if kind.Precondition() {
			count = 0
		}
		ph.Status = models.PostStatusFailed
		ph.ErrorKind = string(kind)
		ph.ErrorMessage = res.Err.Error()
		if err := s.pr.MarkFailed(ctx, postID, count, string(kind), res.Err.Error()); err != nil {
			return fmt.Errorf("error marking post %d failed: %w", postID, err)
		}
	}

	if _, err := s.ph.Create(ctx, ph); err != nil {
		slog.Info(err.Error())
	}
	return nil
}

// missingOr distinguishes a post the user does not own from one in the
// wrong state after a conditional update matched no row.
func (s *postService) missingOr(ctx context.Context, userID, postID int64, err error) error {
	owned, cerr := s.pr.CheckByUserID(ctx, postID, userID)
	if cerr != nil {
		return cerr
	}
	if !owned {
		return fmt.Errorf("post %d: %w", postID, ErrNotFound)
	}
	return fmt.Errorf("post %d: %w", postID, err)
}

func (s *postService) Cancel(ctx context.Context, userID, postID int64) error {
	if userID == 0 {
		return ErrInvalidUserID
	}

	ok, err := s.pr.Cancel(ctx, postID, userID)
	if err != nil {
		return err
	}
	if !ok {
		return s.missingOr(ctx, userID, postID, ErrInvalidState)
	}
	slog.Info("post cancelled", "post_id", postID)
	return nil
}

func (s *postService) Reschedule(ctx context.Context, userID, postID int64, at time.Time) error {
	if userID == 0 {
		return ErrInvalidUserID
	}
	if at.IsZero() {
		return fmt.Errorf("%w: scheduled_for is required", ErrInvalidInput)
	}

	ok, err := s.pr.UserReschedule(ctx, postID, userID, at)
	if err != nil {
		return err
	}
	if !ok {
		return s.missingOr(ctx, userID, postID, ErrInvalidState)
	}

	if err := s.nudger.EnqueuePublishDue(postID, at); err != nil {
		slog.Warn("unable to enqueue publish nudge", "post_id", postID, "error", err)
	}
	return nil
}

func (s *postService) List(ctx context.Context, userID int64) ([]*models.Post, error) {
	if userID == 0 {
		return nil, ErrInvalidUserID
	}
	posts, err := s.pr.GetByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("error listing posts: %w", err)
	}
	return posts, nil
}

func (s *postService) PostInfo(ctx context.Context, postID, userID int64) (*models.Post, error) {
	if userID == 0 {
		return nil, ErrInvalidUserID
	}

	post, err := s.pr.GetByID(ctx, postID)
	if errors.Is(err, repository.ErrNotFound) || (err == nil && post.UserID != userID) {
		return nil, fmt.Errorf("post %d: %w", postID, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return post, nil
}

func (s *postService) History(ctx context.Context, postID, userID int64) ([]*models.PostingHistory, error) {
	if _, err := s.PostInfo(ctx, postID, userID); err != nil {
		return nil, err
	}
	return s.ph.ListByPostID(ctx, postID)
}

func (s *postService) Remove(ctx context.Context, userID, postID int64) error {
	if userID == 0 {
		return ErrInvalidUserID
	}

	ok, err := s.pr.Remove(ctx, postID, userID)
	if err != nil {
		return err
	}
	if !ok {
		return s.missingOr(ctx, userID, postID, ErrInvalidState)
	}
	return nil
}

func (s *postService) RetryFailed(ctx context.Context) error {
	return s.nudger.EnqueueRetrySweep()
}
