// Package network defines the per-network adapter contract and its
// implementations for Instagram, Facebook Pages, TikTok and YouTube.
//
// Every supported network is a value of the closed Network type and has
// exactly one Adapter registered in a Registry. Whether a network has
// credentials wired up is decided once, when the adapter is constructed,
// and exposed through Configured so call sites never have to recover from
// errors raised deep inside a request path.
package network

import (
	"context"
	"fmt"
	"time"
)

type Network string

const (
	Instagram Network = "instagram"
	Facebook  Network = "facebook"
	TikTok    Network = "tiktok"
	YouTube   Network = "youtube"
)

// Networks lists every supported network in a stable order.
var Networks = []Network{Instagram, Facebook, TikTok, YouTube}

func ParseNetwork(s string) (Network, error) {
	for _, n := range Networks {
		if string(n) == s {
			return n, nil
		}
	}
	return "", fmt.Errorf("unsupported network %q", s)
}

type MediaType string

const (
	MediaImage MediaType = "image"
	MediaVideo MediaType = "video"
)

// Credential is a decrypted access grant for one account.
type Credential struct {
	AccountID    string
	AccessToken  string
	RefreshToken string
	ExpiresAt    *time.Time
}

type AccountSnapshot struct {
	PlatformID     string
	Username       string
	DisplayName    string
	ProfilePicture string
	Followers      int64
	Following      int64
	Posts          int64
}

// Media is a publish-ready media item with a public URL.
type Media struct {
	URL      string
	Type     MediaType
	Width    int
	Height   int
	Duration time.Duration
	Size     int64
}

type ContainerKind int

const (
	// KindSingle is a standalone post with one media item.
	KindSingle ContainerKind = iota
	// KindCarouselItem is one child of a carousel or album.
	KindCarouselItem
	// KindCarousel aggregates previously created carousel items.
	KindCarousel
)

type ContainerRequest struct {
	Kind     ContainerKind
	Media    *Media
	Caption  string
	Title    string
	Children []ContainerHandle
}

// ContainerHandle is the provider-side handle of a publish container.
// Adapters that have no remote container for a kind keep what they need
// in the local fields and leave ID empty.
type ContainerHandle struct {
	ID        string
	Kind      ContainerKind
	MediaType MediaType
	MediaURL  string
	Caption   string
	Title     string
	Children  []ContainerHandle
}

type PollState int

const (
	PollPending PollState = iota
	PollReady
	PollFailed
)

type ContainerStatus struct {
	State  PollState
	Reason string
}

type Published struct {
	PlatformPostID string
	Permalink      string
}

type PostMetrics struct {
	Likes       int64
	Comments    int64
	Shares      int64
	Saves       int64
	Views       int64
	Reach       int64
	Impressions int64
}

// Limits are the per-network media constraints enforced before any call
// reaches the provider. Zero values disable the corresponding check.
type Limits struct {
	MaxCaptionLength    int
	MaxItems            int
	MinCarouselItems    int
	SupportsImage       bool
	SupportsVideo       bool
	CarouselAllowsVideo bool
	MaxImageBytes       int64
	MaxVideoBytes       int64
	MinVideoDuration    time.Duration
	MaxVideoDuration    time.Duration
	MinImageAspect      float64
	MaxImageAspect      float64
	MinVideoAspect      float64
	MaxVideoAspect      float64
}

// Adapter is the capability set every network implements.
type Adapter interface {
	Network() Network
	Configured() bool
	Limits() Limits
	AuthURL(state string) string
	Authorize(ctx context.Context, code string) (*Credential, error)
	FetchAccountInfo(ctx context.Context, cred Credential) (*AccountSnapshot, error)
	CreateContainer(ctx context.Context, cred Credential, req ContainerRequest) (ContainerHandle, error)
	PollContainer(ctx context.Context, cred Credential, h ContainerHandle) (ContainerStatus, error)
	PublishContainer(ctx context.Context, cred Credential, h ContainerHandle) (*Published, error)
}

// CredentialRefresher is implemented by networks that issue refresh tokens.
type CredentialRefresher interface {
	RefreshCredential(ctx context.Context, cred Credential) (*Credential, error)
}

// SelfRenewer is implemented by networks whose long-lived access tokens can
// be exchanged for a fresh one without a separate refresh token.
type SelfRenewer interface {
	RenewCredential(ctx context.Context, cred Credential) (*Credential, error)
}

type MetricsFetcher interface {
	FetchPostMetrics(ctx context.Context, cred Credential, platformPostID string) (*PostMetrics, error)
}

func expiresIn(now time.Time, seconds int64) *time.Time {
	if seconds <= 0 {
		return nil
	}
	t := now.Add(time.Duration(seconds) * time.Second)
	return &t
}
