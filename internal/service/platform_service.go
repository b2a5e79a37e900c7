package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/maheshrc27/socialflow/internal/models"
	"github.com/maheshrc27/socialflow/internal/network"
	"github.com/maheshrc27/socialflow/internal/repository"
	"github.com/maheshrc27/socialflow/pkg/utils"
)

const stateTTL = 15 * time.Minute

type PlatformService interface {
	AuthURL(ctx context.Context, userID int64, platform string) (string, error)
	Connect(ctx context.Context, platform, code, state string) (*models.SocialAccount, error)
	List(ctx context.Context, userID int64) ([]*models.SocialAccount, error)
	Networks() []network.Network
	Sync(ctx context.Context, userID, accountID int64) error
	Delete(ctx context.Context, userID, accountID int64) error
}

type platformService struct {
	secretKey string
	registry  *network.Registry
	sa        repository.SocialAccountRepository
	metrics   repository.MetricsRepository
	nudger    Nudger
}

func NewPlatformService(
	secretKey string,
	registry *network.Registry,
	sa repository.SocialAccountRepository,
	metrics repository.MetricsRepository,
	nudger Nudger) PlatformService {
	return &platformService{
		secretKey: secretKey,
		registry:  registry,
		sa:        sa,
		metrics:   metrics,
		nudger:    nudger,
	}
}

func (s *platformService) AuthURL(ctx context.Context, userID int64, platform string) (string, error) {
	if userID == 0 {
		return "", ErrInvalidUserID
	}

	n, err := network.ParseNetwork(platform)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	adapter, err := s.registry.Configured(n)
	if err != nil {
		return "", err
	}

	state, err := utils.GenerateState(s.secretKey, userID, platform, stateTTL)
	if err != nil {
		return "", err
	}
	return adapter.AuthURL(state), nil
}

// Connect completes an authorization flow. Connecting an account that is
// already stored refreshes its credential and reactivates it.
func (s *platformService) Connect(ctx context.Context, platform, code, state string) (*models.SocialAccount, error) {
	n, err := network.ParseNetwork(platform)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	claims, err := utils.ValidateState(s.secretKey, state, platform)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid state: %v", ErrInvalidInput, err)
	}

	adapter, err := s.registry.Configured(n)
	if err != nil {
		return nil, err
	}

	cred, err := adapter.Authorize(ctx, code)
	if err != nil {
		return nil, err
	}

	snap, err := adapter.FetchAccountInfo(ctx, *cred)
	if err != nil {
		return nil, err
	}

	acc := &models.SocialAccount{
		UserID:          claims.UserID,
		Platform:        platform,
		AccountID:       cred.AccountID,
		AccountName:     snap.DisplayName,
		AccountUsername: snap.Username,
		ProfilePicture:  snap.ProfilePicture,
		FollowersCount:  snap.Followers,
		FollowingCount:  snap.Following,
		PostsCount:      snap.Posts,
		IsActive:        true,
	}
	if acc.AccountID == "" {
		acc.AccountID = snap.PlatformID
	}
	if err := network.SealCredential(acc, *cred, []byte(s.secretKey)); err != nil {
		return nil, fmt.Errorf("error encrypting credential: %w", err)
	}

	id, err := s.sa.Create(ctx, nil, acc)
	if err != nil {
		return nil, fmt.Errorf("error saving social account: %w", err)
	}
	acc.ID = id

	err = s.metrics.RecordAccountSnapshot(ctx, &models.AccountMetrics{
		AccountID:      id,
		FollowersCount: snap.Followers,
		FollowingCount: snap.Following,
		PostsCount:     snap.Posts,
		CapturedAt:     time.Now(),
	})
	if err != nil {
		slog.Info(err.Error())
	}

	slog.Info("social account connected", "user_id", acc.UserID, "network", n, "account_id", id)
	return acc, nil
}

func (s *platformService) List(ctx context.Context, userID int64) ([]*models.SocialAccount, error) {
	if userID == 0 {
		return nil, ErrInvalidUserID
	}

	accounts, err := s.sa.ListInfoByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("error listing social accounts: %w", err)
	}
	return accounts, nil
}

func (s *platformService) Networks() []network.Network {
	return s.registry.Available()
}

func (s *platformService) owned(ctx context.Context, userID, accountID int64) error {
	if userID == 0 {
		return ErrInvalidUserID
	}
	ok, err := s.sa.CheckByUserID(ctx, accountID, userID)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("social account %d: %w", accountID, ErrNotFound)
	}
	return nil
}

// Sync requests an immediate profile sync, bypassing the sync interval.
func (s *platformService) Sync(ctx context.Context, userID, accountID int64) error {
	if err := s.owned(ctx, userID, accountID); err != nil {
		return err
	}
	return s.nudger.EnqueueAccountSync(accountID)
}

func (s *platformService) Delete(ctx context.Context, userID, accountID int64) error {
	if err := s.owned(ctx, userID, accountID); err != nil {
		return err
	}

	ok, err := s.sa.Remove(ctx, accountID, userID)
	if err != nil {
		return err
	}
	if !ok {
		return errors.New("social account was already removed")
	}
	return nil
}
