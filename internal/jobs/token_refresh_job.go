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

type TokenReport struct {
	Candidates     int `json:"candidates"`
	Refreshed      int `json:"refreshed"`
	NotDue         int `json:"not_due"`
	Stale          int `json:"stale"`
	NotRefreshable int `json:"not_refreshable"`
	Deactivated    int `json:"deactivated"`
	Failed         int `json:"failed"`
}

type TokenRefreshJob struct {
	sr        repository.SocialAccountRepository
	registry  *network.Registry
	clock     clock.Clock
	secretKey []byte
	cfg       config.Workers
}

func NewTokenRefreshJob(
	sr repository.SocialAccountRepository,
	registry *network.Registry,
	clk clock.Clock,
	secretKey string,
	cfg config.Workers) *TokenRefreshJob {
	return &TokenRefreshJob{
		sr:        sr,
		registry:  registry,
		clock:     clk,
		secretKey: []byte(secretKey),
		cfg:       cfg,
	}
}

// RefreshTokens renews the credentials of active accounts that expire
// within the lookahead window. Accounts still further out than the refresh
// threshold are left alone.
func (c *TokenRefreshJob) RefreshTokens(ctx context.Context) (TokenReport, error) {
	now := c.clock.Now()

	accounts, err := c.sr.ListExpiring(ctx, now.Add(c.cfg.TokenLookahead))
	if err != nil {
		return TokenReport{}, fmt.Errorf("error listing expiring accounts: %w", err)
	}

	report := TokenReport{Candidates: len(accounts)}
	attempted := 0
	for _, acc := range accounts {
		if acc.TokenExpiresAt != nil && acc.TokenExpiresAt.After(now.Add(c.cfg.TokenRefreshThreshold)) {
			report.NotDue++
			continue
		}

		if attempted > 0 {
			if err := c.clock.Sleep(ctx, c.cfg.AccountDelay); err != nil {
				return report, err
			}
		}
		attempted++

		if err := c.refreshAccount(ctx, acc, &report); err != nil {
			return report, err
		}
	}

	slog.Info("token refresh finished",
		"candidates", report.Candidates,
		"refreshed", report.Refreshed,
		"not_due", report.NotDue,
		"stale", report.Stale,
		"not_refreshable", report.NotRefreshable,
		"deactivated", report.Deactivated,
		"failed", report.Failed,
	)
	return report, nil
}

// refreshAccount handles one account. Provider failures are recorded on the
// account; store failures and an unusable sealing key are returned.
func (c *TokenRefreshJob) refreshAccount(ctx context.Context, acc *models.SocialAccount, report *TokenReport) error {
	n := network.Network(acc.Platform)

	adapter, err := c.registry.Configured(n)
	if err != nil {
		report.Failed++
		return c.sr.RecordError(ctx, acc.ID, err.Error())
	}

	// A decrypt failure is a server-side problem and never deactivates.
	cred, err := network.OpenCredential(acc, c.secretKey)
	if errors.Is(err, utils.ErrInvalidKey) {
		return fmt.Errorf("error opening credential for account %d: %w", acc.ID, err)
	}
	if err != nil {
		report.Failed++
		slog.Error("stored credential is unreadable", "account_id", acc.ID, "network", n, "error", err)
		return c.sr.RecordError(ctx, acc.ID, "stored credential could not be decrypted")
	}

	var fresh *network.Credential
	refresher, canRefresh := adapter.(network.CredentialRefresher)
	renewer, canRenew := adapter.(network.SelfRenewer)
	switch {
	case cred.RefreshToken != "" && canRefresh:
		fresh, err = refresher.RefreshCredential(ctx, cred)
	case canRenew:
		fresh, err = renewer.RenewCredential(ctx, cred)
	default:
		report.NotRefreshable++
		slog.Info("credential cannot be refreshed", "account_id", acc.ID, "network", n)
		return c.sr.RecordError(ctx, acc.ID, fmt.Sprintf("%s credential cannot be refreshed automatically, please reconnect before it expires", n))
	}

	if err != nil {
		if network.IsPermanentRefresh(err) {
			report.Deactivated++
			slog.Warn("deactivating account", "account_id", acc.ID, "network", n, "error", err)
			return c.sr.Deactivate(ctx, acc.ID, fmt.Sprintf("access was revoked or expired, please reconnect: %v", err))
		}
		report.Failed++
		slog.Warn("token refresh failed", "account_id", acc.ID, "network", n, "error", err)
		return c.sr.RecordError(ctx, acc.ID, err.Error())
	}

	updated := &models.SocialAccount{ID: acc.ID, Platform: acc.Platform}
	if err := network.SealCredential(updated, *fresh, c.secretKey); err != nil {
		return fmt.Errorf("error encrypting token for account %d: %w", acc.ID, err)
	}

	err = c.sr.SetToken(ctx, acc.ID, acc.AccessToken, updated)
	if errors.Is(err, repository.ErrStaleToken) {
		report.Stale++
		slog.Info("token changed during refresh", "account_id", acc.ID)
		return nil
	}
	if err != nil {
		return fmt.Errorf("error saving token for account %d: %w", acc.ID, err)
	}

	report.Refreshed++
	slog.Info("token refreshed", "account_id", acc.ID, "network", n)
	return nil
}

// Run adapts RefreshTokens to a cron callback.
func (c *TokenRefreshJob) Run() {
	if _, err := c.RefreshTokens(context.Background()); err != nil {
		slog.Error("token refresh aborted", "error", err)
	}
}
