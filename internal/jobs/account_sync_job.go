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

type SyncReport struct {
	Selected int `json:"selected"`
	Synced   int `json:"synced"`
	Failed   int `json:"failed"`
}

// AccountSyncJob pulls profile snapshots for connected accounts.
type AccountSyncJob struct {
	sr        repository.SocialAccountRepository
	metrics   repository.MetricsRepository
	registry  *network.Registry
	clock     clock.Clock
	secretKey []byte
	cfg       config.Workers
}

func NewAccountSyncJob(
	sr repository.SocialAccountRepository,
	metrics repository.MetricsRepository,
	registry *network.Registry,
	clk clock.Clock,
	secretKey string,
	cfg config.Workers) *AccountSyncJob {
	return &AccountSyncJob{
		sr:        sr,
		metrics:   metrics,
		registry:  registry,
		clock:     clk,
		secretKey: []byte(secretKey),
		cfg:       cfg,
	}
}

// SyncAccounts syncs active accounts not attempted within the sync interval.
func (j *AccountSyncJob) SyncAccounts(ctx context.Context) (SyncReport, error) {
	accounts, err := j.sr.ListDueForSync(ctx, j.clock.Now().Add(-j.cfg.SyncInterval), j.cfg.SyncBatchSize)
	if err != nil {
		return SyncReport{}, fmt.Errorf("error listing accounts to sync: %w", err)
	}

	report := SyncReport{Selected: len(accounts)}
	for i, acc := range accounts {
		if i > 0 {
			if err := j.clock.Sleep(ctx, j.cfg.AccountDelay); err != nil {
				return report, err
			}
		}

		ok, err := j.sync(ctx, acc)
		if err != nil {
			return report, err
		}
		if ok {
			report.Synced++
		} else {
			report.Failed++
		}
	}

	slog.Info("account sync finished", "selected", report.Selected, "synced", report.Synced, "failed", report.Failed)
	return report, nil
}

// SyncAccount syncs one account immediately, ignoring the sync interval.
func (j *AccountSyncJob) SyncAccount(ctx context.Context, accountID int64) error {
	acc, err := j.sr.GetByID(ctx, accountID)
	if err != nil {
		return fmt.Errorf("error loading account %d: %w", accountID, err)
	}
	if !acc.IsActive {
		return network.Errorf(network.KindAccountInactive, network.Network(acc.Platform), "sync_account", "account %d is inactive", acc.ID)
	}

	ok, err := j.sync(ctx, acc)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("account %d could not be synced", acc.ID)
	}
	return nil
}

// sync reports false when the provider call failed; the reason and the
// attempt time are stored on the account. The returned error is set for
// store failures and an unusable sealing key.
func (j *AccountSyncJob) sync(ctx context.Context, acc *models.SocialAccount) (bool, error) {
	snap, err := j.fetch(ctx, acc)
	if errors.Is(err, utils.ErrInvalidKey) {
		return false, fmt.Errorf("error opening credential for account %d: %w", acc.ID, err)
	}
	if err != nil {
		slog.Warn("account sync failed", "account_id", acc.ID, "network", acc.Platform, "error", err)
		if err := j.sr.RecordSyncFailure(ctx, acc.ID, err.Error(), j.clock.Now()); err != nil {
			return false, err
		}
		return false, nil
	}

	now := j.clock.Now()
	acc.AccountName = snap.DisplayName
	acc.AccountUsername = snap.Username
	acc.ProfilePicture = snap.ProfilePicture
	acc.FollowersCount = snap.Followers
	acc.FollowingCount = snap.Following
	acc.PostsCount = snap.Posts

	if err := j.sr.UpdateProfile(ctx, acc, now); err != nil {
		return false, fmt.Errorf("error updating account %d: %w", acc.ID, err)
	}
	err = j.metrics.RecordAccountSnapshot(ctx, &models.AccountMetrics{
		AccountID:      acc.ID,
		FollowersCount: snap.Followers,
		FollowingCount: snap.Following,
		PostsCount:     snap.Posts,
		CapturedAt:     now,
	})
	if err != nil {
		return false, fmt.Errorf("error recording snapshot for account %d: %w", acc.ID, err)
	}
	return true, nil
}

func (j *AccountSyncJob) fetch(ctx context.Context, acc *models.SocialAccount) (*network.AccountSnapshot, error) {
	adapter, err := j.registry.Configured(network.Network(acc.Platform))
	if err != nil {
		return nil, err
	}
	cred, err := network.OpenCredential(acc, j.secretKey)
	if err != nil {
		return nil, err
	}
	return adapter.FetchAccountInfo(ctx, cred)
}

func (j *AccountSyncJob) Run() {
	if _, err := j.SyncAccounts(context.Background()); err != nil {
		slog.Error("account sync aborted", "error", err)
	}
}
