package service

import (
	"context"
	"database/sql"
	"net/url"
	"testing"

	"github.com/maheshrc27/socialflow/internal/models"
	"github.com/maheshrc27/socialflow/internal/network"
	"github.com/maheshrc27/socialflow/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "0123456789abcdef0123456789abcdef"

type connectAdapter struct {
	network.Adapter
	configured bool
	codes      []string
}

func (a *connectAdapter) Network() network.Network { return network.Instagram }
func (a *connectAdapter) Configured() bool { return a.configured }

func (a *connectAdapter) AuthURL(state string) string {
	return "https://consent.test/authorize?state=" + url.QueryEscape(state)
}

func (a *connectAdapter) Authorize(ctx context.Context, code string) (*network.Credential, error) {
	a.codes = append(a.codes, code)
	return &network.Credential{AccountID: "ig-77", AccessToken: "long-lived"}, nil
}

func (a *connectAdapter) FetchAccountInfo(ctx context.Context, cred network.Credential) (*network.AccountSnapshot, error) {
	return &network.AccountSnapshot{PlatformID: "ig-77", Username: "shop", DisplayName: "Shop", Followers: 120}, nil
}

type connectAccounts struct {
	repository.SocialAccountRepository
	saved []*models.SocialAccount
	owner map[int64]int64
}

func (f *connectAccounts) Create(ctx context.Context, tx *sql.Tx, sa *models.SocialAccount) (int64, error) {
	f.saved = append(f.saved, sa)
	return 31, nil
}

func (f *connectAccounts) CheckByUserID(ctx context.Context, accountID, userID int64) (bool, error) {
	return f.owner[accountID] == userID, nil
}

func (f *connectAccounts) Remove(ctx context.Context, id, userID int64) (bool, error) {
	return true, nil
}

type snapshotMetrics struct {
	repository.MetricsRepository
	snapshots []*models.AccountMetrics
}

func (f *snapshotMetrics) RecordAccountSnapshot(ctx context.Context, m *models.AccountMetrics) error {
	f.snapshots = append(f.snapshots, m)
	return nil
}

func newPlatformService(adapter *connectAdapter) (PlatformService, *connectAccounts, *snapshotMetrics, *MockNudger) {
	accounts := &connectAccounts{owner: map[int64]int64{31: 9}}
	metrics := &snapshotMetrics{}
	nudger := &MockNudger{}
	svc := NewPlatformService(testSecret, network.NewRegistryWith(adapter), accounts, metrics, nudger)
	return svc, accounts, metrics, nudger
}

func TestConnectStoresSealedCredential(t *testing.T) {
	adapter := &connectAdapter{configured: true}
	svc, accounts, metrics, _ := newPlatformService(adapter)

	authURL, err := svc.AuthURL(context.Background(), 9, "instagram")
	require.NoError(t, err)
	u, err := url.Parse(authURL)
	require.NoError(t, err)
	state := u.Query().Get("state")

	acc, err := svc.Connect(context.Background(), "instagram", "the-code", state)
	require.NoError(t, err)

	assert.Equal(t, []string{"the-code"}, adapter.codes)
	assert.Equal(t, int64(31), acc.ID)
	assert.Equal(t, int64(9), acc.UserID)
	assert.Equal(t, "ig-77", acc.AccountID)
	assert.True(t, acc.IsActive)

	require.Len(t, accounts.saved, 1)
	assert.NotEqual(t, "long-lived", accounts.saved[0].AccessToken)
	cred, err := network.OpenCredential(accounts.saved[0], []byte(testSecret))
	require.NoError(t, err)
	assert.Equal(t, "long-lived", cred.AccessToken)

	require.Len(t, metrics.snapshots, 1)
	assert.Equal(t, int64(120), metrics.snapshots[0].FollowersCount)
}

func TestConnectRejectsStateForAnotherNetwork(t *testing.T) {
	adapter := &connectAdapter{configured: true}
	svc, _, _, _ := newPlatformService(adapter)

	authURL, err := svc.AuthURL(context.Background(), 9, "instagram")
	require.NoError(t, err)
	u, _ := url.Parse(authURL)

	_, err = svc.Connect(context.Background(), "tiktok", "code", u.Query().Get("state"))
	assert.ErrorIs(t, err, ErrInvalidInput)
	assert.Empty(t, adapter.codes)
}

func TestAuthURLUnconfiguredNetwork(t *testing.T) {
	svc, _, _, _ := newPlatformService(&connectAdapter{})

	_, err := svc.AuthURL(context.Background(), 9, "instagram")
	assert.Equal(t, network.KindNotConfigured, network.KindOf(err))
	assert.Empty(t, svc.Networks())
}

func TestSyncRequiresOwnership(t *testing.T) {
	svc, _, _, nudger := newPlatformService(&connectAdapter{configured: true})
	nudger.On("EnqueueAccountSync", int64(31)).Return(nil)

	require.NoError(t, svc.Sync(context.Background(), 9, 31))
	assert.ErrorIs(t, svc.Sync(context.Background(), 5, 31), ErrNotFound)
	nudger.AssertNumberOfCalls(t, "EnqueueAccountSync", 1)
}
