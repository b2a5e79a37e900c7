package network

import (
	"fmt"
	"net/http"

	config "github.com/maheshrc27/socialflow/configs"
)

// Registry maps every supported network to its adapter.
type Registry struct {
	adapters map[Network]Adapter
}

// NewRegistry builds one adapter per network from cfg. Networks without
// credentials are still registered and report Configured() == false.
func NewRegistry(cfg *config.Config, hc *http.Client) *Registry {
	return NewRegistryWith(
		NewInstagram(cfg.InstagramClientID, cfg.InstagramClientSecret, cfg.InstagramRedirectURI, hc),
		NewFacebook(cfg.FacebookAppID, cfg.FacebookAppSecret, cfg.FacebookRedirectURI, hc),
		NewTiktok(cfg.TiktokClientKey, cfg.TiktokClientSecret, cfg.TiktokRedirectURI, hc),
		NewYoutube(cfg.GoogleClientID, cfg.GoogleClientSecret, cfg.GoogleRedirectURI, hc),
	)
}

func NewRegistryWith(adapters ...Adapter) *Registry {
	r := &Registry{adapters: make(map[Network]Adapter, len(adapters))}
	for _, a := range adapters {
		r.adapters[a.Network()] = a
	}
	return r
}

// Adapter returns the adapter for n. It fails only for networks that were
// never registered; an unconfigured adapter is returned as is.
func (r *Registry) Adapter(n Network) (Adapter, error) {
	a, ok := r.adapters[n]
	if !ok {
		return nil, Errorf(KindUnsupported, n, "lookup", "network %q is not supported", string(n))
	}
	return a, nil
}

// Configured returns the adapter for n only if it is ready for use.
func (r *Registry) Configured(n Network) (Adapter, error) {
	a, err := r.Adapter(n)
	if err != nil {
		return nil, err
	}
	if !a.Configured() {
		return nil, Errorf(KindNotConfigured, n, "lookup", "%s credentials are not configured", n)
	}
	return a, nil
}

// Available lists the networks with configured adapters in stable order.
func (r *Registry) Available() []Network {
	var out []Network
	for _, n := range Networks {
		if a, ok := r.adapters[n]; ok && a.Configured() {
			out = append(out, n)
		}
	}
	return out
}

func (r *Registry) String() string {
	return fmt.Sprintf("registry%v", r.Available())
}
