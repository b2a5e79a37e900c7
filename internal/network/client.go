package network

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
)

const maxErrorBody = 4096

// statusError is a non-2xx provider response. Adapters classify it with
// their own error decoding.
type statusError struct {
	StatusCode int
	Body       []byte
}

func (e *statusError) Error() string {
	return fmt.Sprintf("unexpected status code %d: %s", e.StatusCode, strings.TrimSpace(string(e.Body)))
}

func (e *statusError) transient() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= 500
}

type apiClient struct {
	http       *http.Client
	newBackOff func() backoff.BackOff
}

func newAPIClient(hc *http.Client) *apiClient {
	if hc == nil {
		hc = &http.Client{Timeout: 60 * time.Second}
	}
	return &apiClient{
		http: hc,
		newBackOff: func() backoff.BackOff {
			b := backoff.NewExponentialBackOff()
			b.InitialInterval = 500 * time.Millisecond
			b.MaxElapsedTime = 10 * time.Second
			return backoff.WithMaxRetries(b, 2)
		},
	}
}

// do sends req once and decodes a 2xx JSON body into out.
func (c *apiClient) do(req *http.Request, out any) error {
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("HTTP request error: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &statusError{StatusCode: resp.StatusCode, Body: body}
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("error parsing response: %w", err)
	}
	return nil
}

// get performs an idempotent GET, retrying transport failures, 429s and 5xx
// with exponential backoff.
func (c *apiClient) get(ctx context.Context, rawURL string, header http.Header, out any) error {
	op := func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
		if err != nil {
			return backoff.Permanent(fmt.Errorf("error creating request: %w", err))
		}
		for k, v := range header {
			req.Header[k] = v
		}
		err = c.do(req, out)
		if err == nil {
			return nil
		}
		if se, ok := err.(*statusError); ok && !se.transient() {
			return backoff.Permanent(err)
		}
		if isContextErr(err) {
			return backoff.Permanent(err)
		}
		return err
	}
	return backoff.Retry(op, backoff.WithContext(c.newBackOff(), ctx))
}

func (c *apiClient) postForm(ctx context.Context, rawURL string, form url.Values, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, rawURL, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("error creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return c.do(req, out)
}

func (c *apiClient) postJSON(ctx context.Context, rawURL string, header http.Header, payload, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("error marshalling payload: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, rawURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("error creating request: %w", err)
	}
	for k, v := range header {
		req.Header[k] = v
	}
	req.Header.Set("Content-Type", "application/json; charset=UTF-8")
	return c.do(req, out)
}

func bearer(token string) http.Header {
	h := http.Header{}
	h.Set("Authorization", "Bearer "+token)
	return h
}
