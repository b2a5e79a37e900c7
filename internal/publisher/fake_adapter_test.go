package publisher

import (
	"context"
	"fmt"
	"sync"

	"github.com/maheshrc27/socialflow/internal/network"
)

type fakeAdapter struct {
	mu         sync.Mutex
	net        network.Network
	configured bool
	limits     network.Limits

	// polls is consumed in order; the last state repeats.
	polls      []network.PollState
	createErr  error
	publishErr error
	noPostID   bool

	calls    map[string]int
	requests []network.ContainerRequest
	nextID   int
}

func newFakeAdapter(n network.Network) *fakeAdapter {
	return &fakeAdapter{
		net:        n,
		configured: true,
		limits: network.Limits{
			MaxCaptionLength:    2200,
			MaxItems:            10,
			MinCarouselItems:    2,
			SupportsImage:       true,
			SupportsVideo:       true,
			CarouselAllowsVideo: true,
		},
		polls: []network.PollState{network.PollReady},
		calls: map[string]int{},
	}
}

func (f *fakeAdapter) record(op string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[op]++
}

func (f *fakeAdapter) count(op string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[op]
}

func (f *fakeAdapter) total() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		n += c
	}
	return n
}

func (f *fakeAdapter) Network() network.Network { return f.net }
func (f *fakeAdapter) Configured() bool         { return f.configured }
func (f *fakeAdapter) Limits() network.Limits   { return f.limits }
func (f *fakeAdapter) AuthURL(state string) string {
	return "https://auth.test/" + string(f.net) + "?state=" + state
}

func (f *fakeAdapter) Authorize(ctx context.Context, code string) (*network.Credential, error) {
	f.record("authorize")
	return &network.Credential{AccountID: "acct", AccessToken: "token"}, nil
}

func (f *fakeAdapter) FetchAccountInfo(ctx context.Context, cred network.Credential) (*network.AccountSnapshot, error) {
	f.record("fetch_account_info")
	return &network.AccountSnapshot{PlatformID: cred.AccountID}, nil
}

func (f *fakeAdapter) CreateContainer(ctx context.Context, cred network.Credential, req network.ContainerRequest) (network.ContainerHandle, error) {
	f.record("create_container")
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, req)
	if f.createErr != nil {
		return network.ContainerHandle{}, f.createErr
	}
	f.nextID++
	h := network.ContainerHandle{ID: fmt.Sprintf("c%d", f.nextID), Kind: req.Kind, Caption: req.Caption, Children: req.Children}
	if req.Media != nil {
		h.MediaType = req.Media.Type
		h.MediaURL = req.Media.URL
	}
	return h, nil
}

func (f *fakeAdapter) PollContainer(ctx context.Context, cred network.Credential, h network.ContainerHandle) (network.ContainerStatus, error) {
	f.record("poll_container")
	f.mu.Lock()
	defer f.mu.Unlock()
	state := f.polls[0]
	if len(f.polls) > 1 {
		f.polls = f.polls[1:]
	}
	if state == network.PollFailed {
		return network.ContainerStatus{State: state, Reason: "transcode error"}, nil
	}
	return network.ContainerStatus{State: state}, nil
}

func (f *fakeAdapter) PublishContainer(ctx context.Context, cred network.Credential, h network.ContainerHandle) (*network.Published, error) {
	f.record("publish_container")
	if f.publishErr != nil {
		return nil, f.publishErr
	}
	if f.noPostID {
		return &network.Published{}, nil
	}
	return &network.Published{PlatformPostID: "post-" + h.ID, Permalink: "https://social.test/" + h.ID}, nil
}
