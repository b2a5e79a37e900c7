// Package publisher turns a publishing intent into calls against a network
// adapter: validation, caption composition, the container lifecycle, and
// sequential fan-out across accounts.
package publisher

import (
	"context"
	"log/slog"
	"time"

	config "github.com/maheshrc27/socialflow/configs"
	"github.com/maheshrc27/socialflow/internal/clock"
	"github.com/maheshrc27/socialflow/internal/models"
	"github.com/maheshrc27/socialflow/internal/network"
)

// Intent is what the user wants published, independent of any network.
type Intent struct {
	Caption  string
	Title    string
	Hashtags []string
	Mentions []string
	Media    []*models.MediaAsset
}

type Result struct {
	Network        network.Network `json:"network"`
	AccountID      int64           `json:"account_id"`
	Success        bool            `json:"success"`
	PlatformPostID string          `json:"platform_post_id,omitempty"`
	Permalink      string          `json:"permalink,omitempty"`
	Err            *network.Error  `json:"-"`
}

func (r Result) ErrorKind() network.Kind {
	if r.Err == nil {
		return ""
	}
	return r.Err.Kind
}

type CrossPostResult struct {
	SuccessCount int      `json:"success_count"`
	FailCount    int      `json:"fail_count"`
	Results      []Result `json:"results"`
}

type Options struct {
	PollInterval   time.Duration
	MaxWait        time.Duration
	CrossPostDelay time.Duration
}

func OptionsFrom(w config.Workers) Options {
	return Options{
		PollInterval:   w.ContainerPollInterval,
		MaxWait:        w.ContainerMaxWait,
		CrossPostDelay: w.CrossPostDelay,
	}
}

type Publisher struct {
	registry  *network.Registry
	clock     clock.Clock
	secretKey []byte
	opts      Options
}

func New(registry *network.Registry, clk clock.Clock, secretKey string, opts Options) *Publisher {
	return &Publisher{
		registry:  registry,
		clock:     clk,
		secretKey: []byte(secretKey),
		opts:      opts,
	}
}

func toMedia(assets []*models.MediaAsset) []network.Media {
	media := make([]network.Media, 0, len(assets))
	for _, a := range assets {
		media = append(media, network.Media{
			URL:      a.FileURL,
			Type:     network.MediaType(a.MediaType),
			Width:    a.Width,
			Height:   a.Height,
			Duration: time.Duration(a.DurationSeconds * float64(time.Second)),
			Size:     a.FileSize,
		})
	}
	return media
}

// PublishToAccount publishes intent to a single account. Expected failures
// are reported in the result, never as a panic or a separate error.
func (p *Publisher) PublishToAccount(ctx context.Context, acc *models.SocialAccount, intent Intent) Result {
	n := network.Network(acc.Platform)
	res := Result{Network: n, AccountID: acc.ID}

	published, err := p.publish(ctx, acc, intent)
	if err != nil {
		res.Err = network.AsError(n, "publish", err)
		slog.Warn("publish failed",
			"network", n,
			"account_id", acc.ID,
			"kind", res.Err.Kind,
			"error", res.Err.Error(),
		)
		return res
	}

	res.Success = true
	res.PlatformPostID = published.PlatformPostID
	res.Permalink = published.Permalink
	slog.Info("published",
		"network", n,
		"account_id", acc.ID,
		"platform_post_id", published.PlatformPostID,
	)
	return res
}

func (p *Publisher) publish(ctx context.Context, acc *models.SocialAccount, intent Intent) (*network.Published, error) {
	n := network.Network(acc.Platform)

	adapter, err := p.registry.Adapter(n)
	if err != nil {
		return nil, err
	}
	if !adapter.Configured() {
		return nil, network.Errorf(network.KindNotConfigured, n, "publish", "%s is not configured", n)
	}
	if !acc.IsActive {
		return nil, network.Errorf(network.KindAccountInactive, n, "publish", "account %d is inactive", acc.ID)
	}

	limits := adapter.Limits()
	media := toMedia(intent.Media)
	if err := Validate(n, limits, media); err != nil {
		return nil, err
	}

	cred, err := network.OpenCredential(acc, p.secretKey)
	if err != nil {
		return nil, err
	}

	caption := ComposeCaption(intent.Caption, intent.Hashtags, intent.Mentions, limits.MaxCaptionLength)

	var c *network.Container
	if len(media) == 1 {
		c, err = p.single(ctx, adapter, cred, media[0], caption, intent.Title)
	} else {
		c, err = p.carousel(ctx, adapter, cred, media, caption, intent.Title)
	}
	if err != nil {
		return nil, err
	}

	published, err := adapter.PublishContainer(ctx, cred, c.Handle)
	if err != nil {
		_ = c.Transition(network.ContainerFailed)
		return nil, err
	}
	if published == nil || published.PlatformPostID == "" {
		_ = c.Transition(network.ContainerFailed)
		return nil, network.Errorf(network.KindPublish, n, "publish_container", "%s returned no post id", n)
	}
	if err := c.Transition(network.ContainerPublished); err != nil {
		return nil, network.Errorf(network.KindPublish, n, "publish", "%v", err)
	}
	return published, nil
}

// single creates the container for one item. Images are ready as soon as
// they are created; videos are polled.
func (p *Publisher) single(ctx context.Context, adapter network.Adapter, cred network.Credential, m network.Media, caption, title string) (*network.Container, error) {
	h, err := adapter.CreateContainer(ctx, cred, network.ContainerRequest{
		Kind:    network.KindSingle,
		Media:   &m,
		Caption: caption,
		Title:   title,
	})
	if err != nil {
		return nil, err
	}

	c := network.NewContainer(h)
	if m.Type != network.MediaVideo {
		return c, c.Transition(network.ContainerReady)
	}
	return c, p.awaitReady(ctx, adapter, cred, c)
}

// carousel creates one container per item, polling video items, then the
// aggregate container.
func (p *Publisher) carousel(ctx context.Context, adapter network.Adapter, cred network.Credential, media []network.Media, caption, title string) (*network.Container, error) {
	children := make([]network.ContainerHandle, 0, len(media))
	hasVideo := false

	for i := range media {
		m := media[i]
		h, err := adapter.CreateContainer(ctx, cred, network.ContainerRequest{
			Kind:  network.KindCarouselItem,
			Media: &m,
		})
		if err != nil {
			return nil, err
		}

		if m.Type == network.MediaVideo {
			hasVideo = true
			if err := p.awaitReady(ctx, adapter, cred, network.NewContainer(h)); err != nil {
				return nil, err
			}
		}
		children = append(children, h)
	}

	h, err := adapter.CreateContainer(ctx, cred, network.ContainerRequest{
		Kind:     network.KindCarousel,
		Caption:  caption,
		Title:    title,
		Children: children,
	})
	if err != nil {
		return nil, err
	}

	c := network.NewContainer(h)
	if !hasVideo {
		return c, c.Transition(network.ContainerReady)
	}
	return c, p.awaitReady(ctx, adapter, cred, c)
}

// awaitReady polls c at a fixed interval until it is ready, failed, or the
// maximum wait has elapsed.
func (p *Publisher) awaitReady(ctx context.Context, adapter network.Adapter, cred network.Credential, c *network.Container) error {
	n := adapter.Network()
	deadline := p.clock.Now().Add(p.opts.MaxWait)

	for {
		if err := c.Transition(network.ContainerPolling); err != nil {
			return network.Errorf(network.KindPublish, n, "poll_container", "%v", err)
		}

		st, err := adapter.PollContainer(ctx, cred, c.Handle)
		c.Polls++
		if err != nil {
			return err
		}

		switch st.State {
		case network.PollReady:
			return c.Transition(network.ContainerReady)
		case network.PollFailed:
			c.Reason = st.Reason
			_ = c.Transition(network.ContainerFailed)
			return network.Errorf(network.KindPublish, n, "poll_container", "container %s failed: %s", c.Handle.ID, st.Reason)
		}

		if !p.clock.Now().Add(p.opts.PollInterval).Before(deadline) {
			_ = c.Transition(network.ContainerTimedOut)
			return network.Errorf(network.KindTimeout, n, "poll_container",
				"container %s not ready after %d polls in %s", c.Handle.ID, c.Polls, p.opts.MaxWait)
		}
		if err := p.clock.Sleep(ctx, p.opts.PollInterval); err != nil {
			return network.AsError(n, "poll_container", err)
		}
	}
}

// CrossPost publishes intent to each account in order, waiting between
// calls to stay within shared per-app rate limits.
func (p *Publisher) CrossPost(ctx context.Context, accounts []*models.SocialAccount, intent Intent) CrossPostResult {
	out := CrossPostResult{Results: make([]Result, 0, len(accounts))}

	for i, acc := range accounts {
		if i > 0 {
			if err := p.clock.Sleep(ctx, p.opts.CrossPostDelay); err != nil {
				for _, rest := range accounts[i:] {
					n := network.Network(rest.Platform)
					out.Results = append(out.Results, Result{
						Network:   n,
						AccountID: rest.ID,
						Err:       network.AsError(n, "cross_post", err),
					})
					out.FailCount++
				}
				break
			}
		}

		res := p.PublishToAccount(ctx, acc, intent)
		if res.Success {
			out.SuccessCount++
		} else {
			out.FailCount++
		}
		out.Results = append(out.Results, res)
	}

	slog.Info("cross-post finished",
		"accounts", len(accounts),
		"succeeded", out.SuccessCount,
		"failed", out.FailCount,
	)
	return out
}
