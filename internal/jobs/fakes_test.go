package job

import (
	"context"
	"database/sql"
	"sort"
	"sync"
	"time"

	"github.com/maheshrc27/socialflow/internal/models"
	"github.com/maheshrc27/socialflow/internal/network"
	"github.com/maheshrc27/socialflow/internal/publisher"
	"github.com/maheshrc27/socialflow/internal/repository"
)

// memPosts is an in-memory PostRepository with the same conditional
// transition rules as the SQL implementation.
type memPosts struct {
	mu    sync.Mutex
	posts map[int64]*models.Post
	now   func() time.Time
}

func newMemPosts(posts ...*models.Post) *memPosts {
	m := &memPosts{posts: map[int64]*models.Post{}, now: time.Now}
	for _, p := range posts {
		m.posts[p.ID] = p
	}
	return m
}

func (m *memPosts) get(id int64) models.Post {
	m.mu.Lock()
	defer m.mu.Unlock()
	return *m.posts[id]
}

func (m *memPosts) Create(ctx context.Context, tx *sql.Tx, post *models.Post) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	post.ID = int64(len(m.posts) + 1)
	m.posts[post.ID] = post
	return post.ID, nil
}

func (m *memPosts) GetByID(ctx context.Context, id int64) (*models.Post, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.posts[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (m *memPosts) GetByUserID(ctx context.Context, userID int64) ([]*models.Post, error) {
	return m.list(func(p *models.Post) bool { return p.UserID == userID }, 0), nil
}

func (m *memPosts) CheckByUserID(ctx context.Context, postID, userID int64) (bool, error) {
	p, err := m.GetByID(ctx, postID)
	return err == nil && p.UserID == userID, nil
}

func (m *memPosts) list(match func(*models.Post) bool, limit int) []*models.Post {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.Post
	for _, p := range m.posts {
		if match(p) {
			cp := *p
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

func (m *memPosts) ListDue(ctx context.Context, now time.Time, limit int) ([]*models.Post, error) {
	return m.list(func(p *models.Post) bool {
		return p.Status == models.PostStatusScheduled && p.ScheduledFor != nil && !p.ScheduledFor.After(now)
	}, limit), nil
}

func (m *memPosts) ListRetryable(ctx context.Context, maxRetries int, kinds []string, limit int) ([]*models.Post, error) {
	return m.list(func(p *models.Post) bool {
		if p.Status != models.PostStatusFailed || p.RetryCount >= maxRetries || p.ScheduledFor == nil {
			return false
		}
		for _, k := range kinds {
			if p.ErrorKind == k {
				return true
			}
		}
		return false
	}, limit), nil
}

func (m *memPosts) transition(id int64, from string, apply func(p *models.Post)) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.posts[id]
	if !ok || p.Status != from {
		return repository.ErrInvalidTransition
	}
	apply(p)
	p.UpdatedAt = m.now()
	return nil
}

func (m *memPosts) Claim(ctx context.Context, id int64, from string) (bool, error) {
	err := m.transition(id, from, func(p *models.Post) { p.Status = models.PostStatusPending })
	return err == nil, nil
}

func (m *memPosts) ReapStale(ctx context.Context, claimedBefore time.Time, kind, message string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for _, p := range m.posts {
		if p.Status == models.PostStatusPending && p.UpdatedAt.Before(claimedBefore) {
			p.Status = models.PostStatusFailed
			p.RetryCount++
			p.ErrorKind, p.ErrorMessage = kind, message
			p.UpdatedAt = m.now()
			n++
		}
	}
	return n, nil
}

// ctxPosts fails every write whose context is done, as database/sql does.
type ctxPosts struct {
	*memPosts
}

func (c ctxPosts) Claim(ctx context.Context, id int64, from string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	return c.memPosts.Claim(ctx, id, from)
}

func (c ctxPosts) MarkPublished(ctx context.Context, id int64, platformPostID, permalink string, at time.Time) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return c.memPosts.MarkPublished(ctx, id, platformPostID, permalink, at)
}

func (c ctxPosts) MarkFailed(ctx context.Context, id int64, retryCount int, kind, message string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return c.memPosts.MarkFailed(ctx, id, retryCount, kind, message)
}

func (c ctxPosts) Reschedule(ctx context.Context, id int64, retryCount int, at time.Time, kind, message string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return c.memPosts.Reschedule(ctx, id, retryCount, at, kind, message)
}

func (m *memPosts) MarkPublished(ctx context.Context, id int64, platformPostID, permalink string, at time.Time) error {
	return m.transition(id, models.PostStatusPending, func(p *models.Post) {
		p.Status = models.PostStatusPublished
		p.PlatformPostID = platformPostID
		p.Permalink = permalink
		p.PublishedAt = &at
		p.ErrorKind, p.ErrorMessage = "", ""
	})
}

func (m *memPosts) MarkFailed(ctx context.Context, id int64, retryCount int, kind, message string) error {
	return m.transition(id, models.PostStatusPending, func(p *models.Post) {
		p.Status = models.PostStatusFailed
		p.RetryCount = retryCount
		p.ErrorKind, p.ErrorMessage = kind, message
	})
}

func (m *memPosts) Reschedule(ctx context.Context, id int64, retryCount int, at time.Time, kind, message string) error {
	return m.transition(id, models.PostStatusPending, func(p *models.Post) {
		p.Status = models.PostStatusScheduled
		p.RetryCount = retryCount
		p.ScheduledFor = &at
		p.ErrorKind, p.ErrorMessage = kind, message
	})
}

func (m *memPosts) Cancel(ctx context.Context, id, userID int64) (bool, error) {
	err := m.transition(id, models.PostStatusScheduled, func(p *models.Post) {
		p.Status = models.PostStatusDraft
		p.ScheduledFor = nil
	})
	return err == nil, nil
}

func (m *memPosts) UserReschedule(ctx context.Context, id, userID int64, at time.Time) (bool, error) {
	return false, nil
}

func (m *memPosts) ListPublishedByAccount(ctx context.Context, accountID int64, since time.Time, limit int) ([]*models.Post, error) {
	return m.list(func(p *models.Post) bool {
		return p.AccountID == accountID && p.Status == models.PostStatusPublished &&
			p.PublishedAt != nil && !p.PublishedAt.Before(since)
	}, limit), nil
}

func (m *memPosts) Remove(ctx context.Context, id, userID int64) (bool, error) {
	return false, nil
}

type memAccounts struct {
	mu       sync.Mutex
	accounts map[int64]*models.SocialAccount
}

func newMemAccounts(accounts ...*models.SocialAccount) *memAccounts {
	m := &memAccounts{accounts: map[int64]*models.SocialAccount{}}
	for _, a := range accounts {
		m.accounts[a.ID] = a
	}
	return m
}

func (m *memAccounts) get(id int64) models.SocialAccount {
	m.mu.Lock()
	defer m.mu.Unlock()
	return *m.accounts[id]
}

func (m *memAccounts) list(match func(*models.SocialAccount) bool, limit int) []*models.SocialAccount {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.SocialAccount
	for _, a := range m.accounts {
		if match(a) {
			cp := *a
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

func (m *memAccounts) Create(ctx context.Context, tx *sql.Tx, sa *models.SocialAccount) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	sa.ID = int64(len(m.accounts) + 1)
	m.accounts[sa.ID] = sa
	return sa.ID, nil
}

func (m *memAccounts) GetByID(ctx context.Context, id int64) (*models.SocialAccount, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.accounts[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *a
	return &cp, nil
}

func (m *memAccounts) ListInfoByUserID(ctx context.Context, userID int64) ([]*models.SocialAccount, error) {
	return m.list(func(a *models.SocialAccount) bool { return a.UserID == userID }, 0), nil
}

func (m *memAccounts) CheckByUserID(ctx context.Context, accountID, userID int64) (bool, error) {
	a, err := m.GetByID(ctx, accountID)
	return err == nil && a.UserID == userID, nil
}

func (m *memAccounts) ListExpiring(ctx context.Context, before time.Time) ([]*models.SocialAccount, error) {
	return m.list(func(a *models.SocialAccount) bool {
		return a.IsActive && a.TokenExpiresAt != nil && !a.TokenExpiresAt.After(before)
	}, 0), nil
}

// byAttempt mirrors the ORDER BY attempt NULLS FIRST, id of the SQL
// implementation.
func (m *memAccounts) byAttempt(attempt func(*models.SocialAccount) *time.Time, before time.Time, limit int) []*models.SocialAccount {
	out := m.list(func(a *models.SocialAccount) bool {
		at := attempt(a)
		return a.IsActive && (at == nil || at.Before(before))
	}, 0)
	sort.SliceStable(out, func(i, j int) bool {
		ai, aj := attempt(out[i]), attempt(out[j])
		switch {
		case ai == nil || aj == nil:
			return ai == nil && aj != nil
		default:
			return ai.Before(*aj)
		}
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

func (m *memAccounts) ListDueForSync(ctx context.Context, attemptedBefore time.Time, limit int) ([]*models.SocialAccount, error) {
	return m.byAttempt(func(a *models.SocialAccount) *time.Time { return a.SyncTriedAt }, attemptedBefore, limit), nil
}

func (m *memAccounts) ListDueForAnalytics(ctx context.Context, attemptedBefore time.Time, limit int) ([]*models.SocialAccount, error) {
	return m.byAttempt(func(a *models.SocialAccount) *time.Time { return a.MetricsTriedAt }, attemptedBefore, limit), nil
}

func (m *memAccounts) RecordSyncFailure(ctx context.Context, id int64, message string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.accounts[id].LastError = message
	m.accounts[id].SyncTriedAt = &at
	return nil
}

func (m *memAccounts) RecordMetricsFailure(ctx context.Context, id int64, message string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.accounts[id].LastError = message
	m.accounts[id].MetricsTriedAt = &at
	return nil
}

func (m *memAccounts) SetToken(ctx context.Context, id int64, oldAccessToken string, sa *models.SocialAccount) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	a := m.accounts[id]
	if a.AccessToken != oldAccessToken {
		return repository.ErrStaleToken
	}
	a.AccessToken = sa.AccessToken
	if sa.RefreshToken != "" {
		a.RefreshToken = sa.RefreshToken
	}
	if sa.TokenExpiresAt != nil {
		a.TokenExpiresAt = sa.TokenExpiresAt
	}
	a.LastError = ""
	return nil
}

func (m *memAccounts) Deactivate(ctx context.Context, id int64, reason string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.accounts[id].IsActive = false
	m.accounts[id].LastError = reason
	return nil
}

func (m *memAccounts) RecordError(ctx context.Context, id int64, message string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.accounts[id].LastError = message
	return nil
}

func (m *memAccounts) UpdateProfile(ctx context.Context, sa *models.SocialAccount, syncedAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	a := m.accounts[sa.ID]
	a.AccountName = sa.AccountName
	a.AccountUsername = sa.AccountUsername
	a.FollowersCount = sa.FollowersCount
	a.FollowingCount = sa.FollowingCount
	a.PostsCount = sa.PostsCount
	a.LastSyncedAt = &syncedAt
	a.SyncTriedAt = &syncedAt
	a.LastError = ""
	return nil
}

func (m *memAccounts) MarkMetricsSynced(ctx context.Context, id int64, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.accounts[id].MetricsSyncedAt = &at
	m.accounts[id].MetricsTriedAt = &at
	return nil
}

func (m *memAccounts) Remove(ctx context.Context, id, userID int64) (bool, error) {
	return false, nil
}

type memMedia struct {
	byPost map[int64][]*models.MediaAsset
}

func (m *memMedia) Create(ctx context.Context, tx *sql.Tx, ma *models.MediaAsset) (int64, error) {
	return 0, nil
}

func (m *memMedia) GetByID(ctx context.Context, id int64) (*models.MediaAsset, error) {
	return nil, repository.ErrNotFound
}

func (m *memMedia) ListByIDs(ctx context.Context, userID int64, ids []int64) ([]*models.MediaAsset, error) {
	return nil, nil
}

func (m *memMedia) ListByPostID(ctx context.Context, postID int64) ([]*models.MediaAsset, error) {
	return m.byPost[postID], nil
}

type memHistory struct {
	mu      sync.Mutex
	entries []*models.PostingHistory
}

func (m *memHistory) Create(ctx context.Context, ph *models.PostingHistory) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append(m.entries, ph)
	return int64(len(m.entries)), nil
}

func (m *memHistory) ListByPostID(ctx context.Context, postID int64) ([]*models.PostingHistory, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.PostingHistory
	for _, e := range m.entries {
		if e.PostID == postID {
			out = append(out, e)
		}
	}
	return out, nil
}

type memMetrics struct {
	mu       sync.Mutex
	accounts []*models.AccountMetrics
	posts    []*models.PostMetrics
}

func (m *memMetrics) RecordAccountSnapshot(ctx context.Context, am *models.AccountMetrics) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.accounts = append(m.accounts, am)
	return nil
}

func (m *memMetrics) RecordPostMetrics(ctx context.Context, pm *models.PostMetrics) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.posts = append(m.posts, pm)
	return nil
}

func (m *memMetrics) GetPostMetrics(ctx context.Context, postID int64) (*models.PostMetrics, error) {
	return nil, repository.ErrNotFound
}

// scriptedPublisher returns the queued results in order and succeeds once
// the queue is empty.
type scriptedPublisher struct {
	mu      sync.Mutex
	results []publisher.Result
	calls   int
}

func (s *scriptedPublisher) PublishToAccount(ctx context.Context, acc *models.SocialAccount, intent publisher.Intent) publisher.Result {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if len(s.results) > 0 {
		res := s.results[0]
		s.results = s.results[1:]
		res.AccountID = acc.ID
		return res
	}
	return publisher.Result{
		Network:        network.Network(acc.Platform),
		AccountID:      acc.ID,
		Success:        true,
		PlatformPostID: "remote-1",
		Permalink:      "https://social.test/remote-1",
	}
}

// cancellingPublisher cancels the pass while the provider call is in
// flight and reports whether the call saw the cancellation.
type cancellingPublisher struct {
	cancel   context.CancelFunc
	inner    AccountPublisher
	ctxErr   error
	deadline bool
}

func (c *cancellingPublisher) PublishToAccount(ctx context.Context, acc *models.SocialAccount, intent publisher.Intent) publisher.Result {
	c.cancel()
	c.ctxErr = ctx.Err()
	_, c.deadline = ctx.Deadline()
	return c.inner.PublishToAccount(ctx, acc, intent)
}

func failure(kind network.Kind, msg string) publisher.Result {
	return publisher.Result{
		Network: network.Instagram,
		Err:     network.Errorf(kind, network.Instagram, "publish_container", "%s", msg),
	}
}

// stubAdapter is a network adapter for the worker tests. It optionally
// supports refresh, renewal and post metrics.
type stubAdapter struct {
	net        network.Network
	configured bool

	refresh    func(network.Credential) (*network.Credential, error)
	renew      func(network.Credential) (*network.Credential, error)
	info       func(network.Credential) (*network.AccountSnapshot, error)
	postMetric func(id string) (*network.PostMetrics, error)
}

func (s *stubAdapter) Network() network.Network { return s.net }
func (s *stubAdapter) Configured() bool         { return s.configured }
func (s *stubAdapter) Limits() network.Limits   { return network.Limits{} }
func (s *stubAdapter) AuthURL(state string) string {
	return ""
}

func (s *stubAdapter) Authorize(ctx context.Context, code string) (*network.Credential, error) {
	return nil, network.Errorf(network.KindValidation, s.net, "authorize", "not supported")
}

func (s *stubAdapter) FetchAccountInfo(ctx context.Context, cred network.Credential) (*network.AccountSnapshot, error) {
	return s.info(cred)
}

func (s *stubAdapter) CreateContainer(ctx context.Context, cred network.Credential, req network.ContainerRequest) (network.ContainerHandle, error) {
	return network.ContainerHandle{}, nil
}

func (s *stubAdapter) PollContainer(ctx context.Context, cred network.Credential, h network.ContainerHandle) (network.ContainerStatus, error) {
	return network.ContainerStatus{State: network.PollReady}, nil
}

func (s *stubAdapter) PublishContainer(ctx context.Context, cred network.Credential, h network.ContainerHandle) (*network.Published, error) {
	return &network.Published{}, nil
}

type refreshingAdapter struct{ *stubAdapter }

func (r refreshingAdapter) RefreshCredential(ctx context.Context, cred network.Credential) (*network.Credential, error) {
	return r.refresh(cred)
}

func (r refreshingAdapter) FetchPostMetrics(ctx context.Context, cred network.Credential, id string) (*network.PostMetrics, error) {
	return r.postMetric(id)
}

type renewingAdapter struct{ *stubAdapter }

func (r renewingAdapter) RenewCredential(ctx context.Context, cred network.Credential) (*network.Credential, error) {
	return r.renew(cred)
}
