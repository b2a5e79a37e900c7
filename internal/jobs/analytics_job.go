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
	"github.com/maheshrc27/socialflow/internal/repository"
	"github.com/maheshrc27/socialflow/pkg/utils"
)

type AnalyticsReport struct {
	Accounts       int `json:"accounts"`
	AccountsFailed int `json:"accounts_failed"`
	Posts          int `json:"posts"`
	PostsFailed    int `json:"posts_failed"`
}

// AnalyticsJob pulls per-post metrics for recently published posts.
type AnalyticsJob struct {
	sr        repository.SocialAccountRepository
	posts     repository.PostRepository
	metrics   repository.MetricsRepository
	registry  *network.Registry
	clock     clock.Clock
	secretKey []byte
	cfg       config.Workers
}

func NewAnalyticsJob(
	sr repository.SocialAccountRepository,
	posts repository.PostRepository,
	metrics repository.MetricsRepository,
	registry *network.Registry,
	clk clock.Clock,
	secretKey string,
	cfg config.Workers) *AnalyticsJob {
	return &AnalyticsJob{
		sr:        sr,
		posts:     posts,
		metrics:   metrics,
		registry:  registry,
		clock:     clk,
		secretKey: []byte(secretKey),
		cfg:       cfg,
	}
}

func (j *AnalyticsJob) FetchMetrics(ctx context.Context) (AnalyticsReport, error) {
	now := j.clock.Now()
	accounts, err := j.sr.ListDueForAnalytics(ctx, now.Add(-j.cfg.AnalyticsInterval), j.cfg.SyncBatchSize)
	if err != nil {
		return AnalyticsReport{}, fmt.Errorf("error listing accounts for analytics: %w", err)
	}

	report := AnalyticsReport{Accounts: len(accounts)}
	for i, acc := range accounts {
		if i > 0 {
			if err := j.clock.Sleep(ctx, j.cfg.AccountDelay); err != nil {
				return report, err
			}
		}
		if err := j.fetchAccount(ctx, acc, &report); err != nil {
			return report, err
		}
	}

	slog.Info("analytics fetch finished",
		"accounts", report.Accounts,
		"accounts_failed", report.AccountsFailed,
		"posts", report.Posts,
		"posts_failed", report.PostsFailed,
	)
	return report, nil
}

func (j *AnalyticsJob) fetchAccount(ctx context.Context, acc *models.SocialAccount, report *AnalyticsReport) error {
	n := network.Network(acc.Platform)

	now := j.clock.Now()
	fetcher, cred, err := j.open(acc)
	if errors.Is(err, utils.ErrInvalidKey) {
		return fmt.Errorf("error opening credential for account %d: %w", acc.ID, err)
	}
	if err != nil {
		report.AccountsFailed++
		slog.Warn("analytics skipped", "account_id", acc.ID, "network", n, "error", err)
		return j.sr.RecordMetricsFailure(ctx, acc.ID, err.Error(), now)
	}

	posts, err := j.posts.ListPublishedByAccount(ctx, acc.ID, now.Add(-j.cfg.AnalyticsWindow), j.cfg.AnalyticsPostLimit)
	if err != nil {
		return fmt.Errorf("error listing posts of account %d: %w", acc.ID, err)
	}

	var firstErr error
	for _, post := range posts {
		pm, err := fetcher.FetchPostMetrics(ctx, cred, post.PlatformPostID)
		if err != nil {
			report.PostsFailed++
			slog.Warn("post metrics failed", "post_id", post.ID, "network", n, "error", err)
			if firstErr == nil {
				firstErr = err
			}
			continue
		}

		err = j.metrics.RecordPostMetrics(ctx, &models.PostMetrics{
			PostID:         post.ID,
			PlatformPostID: post.PlatformPostID,
			Likes:          pm.Likes,
			Comments:       pm.Comments,
			Shares:         pm.Shares,
			Saves:          pm.Saves,
			Views:          pm.Views,
			Reach:          pm.Reach,
			Impressions:    pm.Impressions,
			CapturedAt:     now,
		})
		if err != nil {
			return fmt.Errorf("error recording metrics for post %d: %w", post.ID, err)
		}
		report.Posts++
	}

	if firstErr != nil {
		if err := j.sr.RecordError(ctx, acc.ID, firstErr.Error()); err != nil {
			return err
		}
	}
	return j.sr.MarkMetricsSynced(ctx, acc.ID, now)
}

func (j *AnalyticsJob) open(acc *models.SocialAccount) (network.MetricsFetcher, network.Credential, error) {
	n := network.Network(acc.Platform)
	adapter, err := j.registry.Configured(n)
	if err != nil {
		return nil, network.Credential{}, err
	}
	fetcher, ok := adapter.(network.MetricsFetcher)
	if !ok {
		return nil, network.Credential{}, network.Errorf(network.KindUnsupported, n, "fetch_post_metrics", "%s does not expose post metrics", n)
	}
	cred, err := network.OpenCredential(acc, j.secretKey)
	if err != nil {
		return nil, network.Credential{}, err
	}
	return fetcher, cred, nil
}

func (j *AnalyticsJob) Run() {
	if _, err := j.FetchMetrics(context.Background()); err != nil {
		slog.Error("analytics fetch aborted", "error", err)
	}
}
