package network

import (
	"context"
	"net/http"
	"testing"

	"github.com/jarcoal/httpmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestInstagram(t *testing.T) *InstagramAdapter {
	t.Helper()
	httpmock.Activate()
	t.Cleanup(httpmock.DeactivateAndReset)

	ig := NewInstagram("client", "secret", "https://app.test/auth/instagram/callback", nil)
	fastRetry(ig.api)
	return ig
}

var igCred = Credential{AccountID: "17841400000", AccessToken: "ig-token"}

func TestInstagramConfigured(t *testing.T) {
	assert.True(t, NewInstagram("a", "b", "", nil).Configured())
	assert.False(t, NewInstagram("", "b", "", nil).Configured())
}

func TestInstagramAuthURL(t *testing.T) {
	u := NewInstagram("client", "secret", "https://app.test/cb", nil).AuthURL("state-1")
	assert.Contains(t, u, "client_id=client")
	assert.Contains(t, u, "state=state-1")
	assert.Contains(t, u, "instagram_business_content_publish")
}

func TestInstagramAuthorize(t *testing.T) {
	ig := newTestInstagram(t)

	httpmock.RegisterResponder(http.MethodPost, "https://api.instagram.com/oauth/access_token",
		httpmock.NewStringResponder(200, `{"access_token":"short","user_id":17841400000}`))
	httpmock.RegisterResponder(http.MethodGet, "https://graph.instagram.com/access_token",
		httpmock.NewStringResponder(200, `{"access_token":"long","token_type":"bearer","expires_in":5184000}`))

	cred, err := ig.Authorize(context.Background(), "code-1")
	require.NoError(t, err)
	assert.Equal(t, "17841400000", cred.AccountID)
	assert.Equal(t, "long", cred.AccessToken)
	require.NotNil(t, cred.ExpiresAt)
}

func TestInstagramAuthorizeEmptyCode(t *testing.T) {
	ig := newTestInstagram(t)

	_, err := ig.Authorize(context.Background(), "")
	assert.Equal(t, KindValidation, KindOf(err))
	assert.Zero(t, httpmock.GetTotalCallCount())
}

func TestInstagramPublishSingleImage(t *testing.T) {
	ig := newTestInstagram(t)

	httpmock.RegisterResponder(http.MethodPost, "https://graph.instagram.com/v21.0/17841400000/media",
		func(req *http.Request) (*http.Response, error) {
			require.NoError(t, req.ParseForm())
			assert.Equal(t, "https://cdn.test/a.jpg", req.PostForm.Get("image_url"))
			assert.Equal(t, "hello", req.PostForm.Get("caption"))
			return httpmock.NewStringResponse(200, `{"id":"c1"}`), nil
		})
	httpmock.RegisterResponder(http.MethodPost, "https://graph.instagram.com/v21.0/17841400000/media_publish",
		httpmock.NewStringResponder(200, `{"id":"m1"}`))
	httpmock.RegisterResponder(http.MethodGet, "https://graph.instagram.com/v21.0/m1",
		httpmock.NewStringResponder(200, `{"id":"m1","permalink":"https://www.instagram.com/p/abc/"}`))

	ctx := context.Background()
	h, err := ig.CreateContainer(ctx, igCred, ContainerRequest{
		Kind:    KindSingle,
		Media:   &Media{URL: "https://cdn.test/a.jpg", Type: MediaImage},
		Caption: "hello",
	})
	require.NoError(t, err)
	assert.Equal(t, "c1", h.ID)

	pub, err := ig.PublishContainer(ctx, igCred, h)
	require.NoError(t, err)
	assert.Equal(t, "m1", pub.PlatformPostID)
	assert.Equal(t, "https://www.instagram.com/p/abc/", pub.Permalink)
}

func TestInstagramCarouselContainer(t *testing.T) {
	ig := newTestInstagram(t)

	httpmock.RegisterResponder(http.MethodPost, "https://graph.instagram.com/v21.0/17841400000/media",
		func(req *http.Request) (*http.Response, error) {
			require.NoError(t, req.ParseForm())
			assert.Equal(t, "CAROUSEL", req.PostForm.Get("media_type"))
			assert.Equal(t, "k1,k2", req.PostForm.Get("children"))
			return httpmock.NewStringResponse(200, `{"id":"parent"}`), nil
		})

	h, err := ig.CreateContainer(context.Background(), igCred, ContainerRequest{
		Kind:     KindCarousel,
		Caption:  "album",
		Children: []ContainerHandle{{ID: "k1"}, {ID: "k2"}},
	})
	require.NoError(t, err)
	assert.Equal(t, "parent", h.ID)
}

func TestInstagramPollContainer(t *testing.T) {
	tests := []struct {
		body  string
		state PollState
	}{
		{`{"status_code":"IN_PROGRESS"}`, PollPending},
		{`{"status_code":"FINISHED"}`, PollReady},
		{`{"status_code":"ERROR","status":"Error: 2207026"}`, PollFailed},
		{`{"status_code":"EXPIRED"}`, PollFailed},
	}
	for _, tt := range tests {
		t.Run(tt.body, func(t *testing.T) {
			ig := newTestInstagram(t)
			httpmock.RegisterResponder(http.MethodGet, "https://graph.instagram.com/v21.0/c1",
				httpmock.NewStringResponder(200, tt.body))

			st, err := ig.PollContainer(context.Background(), igCred, ContainerHandle{ID: "c1"})
			require.NoError(t, err)
			assert.Equal(t, tt.state, st.State)
		})
	}
}

func TestInstagramGetRetriesTransientFailures(t *testing.T) {
	ig := newTestInstagram(t)

	httpmock.RegisterResponder(http.MethodGet, "https://graph.instagram.com/v21.0/c1",
		httpmock.ResponderFromMultipleResponses([]*http.Response{
			httpmock.NewStringResponse(503, `{}`),
			httpmock.NewStringResponse(200, `{"status_code":"FINISHED"}`),
		}))

	st, err := ig.PollContainer(context.Background(), igCred, ContainerHandle{ID: "c1"})
	require.NoError(t, err)
	assert.Equal(t, PollReady, st.State)
	assert.Equal(t, 2, httpmock.GetTotalCallCount())
}

func TestInstagramCreateContainerErrors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		kind   Kind
	}{
		{"invalid parameter", 400, `{"error":{"message":"Invalid parameter","code":100}}`, KindValidation},
		{"rate limited", 400, `{"error":{"message":"Application request limit reached","code":4}}`, KindTransient},
		{"server error", 500, `{}`, KindTransient},
		{"other rejection", 403, `{"error":{"message":"Permissions error","code":10}}`, KindPublish},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ig := newTestInstagram(t)
			httpmock.RegisterResponder(http.MethodPost, "https://graph.instagram.com/v21.0/17841400000/media",
				httpmock.NewStringResponder(tt.status, tt.body))

			_, err := ig.CreateContainer(context.Background(), igCred, ContainerRequest{
				Kind:  KindSingle,
				Media: &Media{URL: "https://cdn.test/a.jpg", Type: MediaImage},
			})
			assert.Equal(t, tt.kind, KindOf(err))
		})
	}
}

func TestInstagramRenewCredential(t *testing.T) {
	ig := newTestInstagram(t)
	httpmock.RegisterResponder(http.MethodGet, "https://graph.instagram.com/refresh_access_token",
		httpmock.NewStringResponder(200, `{"access_token":"renewed","expires_in":5184000}`))

	cred, err := ig.RenewCredential(context.Background(), igCred)
	require.NoError(t, err)
	assert.Equal(t, "renewed", cred.AccessToken)
	assert.Equal(t, igCred.AccountID, cred.AccountID)
}

func TestInstagramRenewCredentialRevoked(t *testing.T) {
	ig := newTestInstagram(t)
	httpmock.RegisterResponder(http.MethodGet, "https://graph.instagram.com/refresh_access_token",
		httpmock.NewStringResponder(400, `{"error":{"message":"Error validating access token","type":"OAuthException","code":190}}`))

	_, err := ig.RenewCredential(context.Background(), igCred)
	assert.Equal(t, KindRefreshPermanent, KindOf(err))
	assert.Equal(t, 1, httpmock.GetTotalCallCount())
}

func TestInstagramFetchPostMetrics(t *testing.T) {
	ig := newTestInstagram(t)
	httpmock.RegisterResponder(http.MethodGet, "https://graph.instagram.com/v21.0/m1/insights",
		httpmock.NewStringResponder(200, `{"data":[
			{"name":"likes","values":[{"value":12}]},
			{"name":"comments","values":[{"value":3}]},
			{"name":"saved","values":[{"value":2}]},
			{"name":"reach","values":[{"value":140}]}
		]}`))

	m, err := ig.FetchPostMetrics(context.Background(), igCred, "m1")
	require.NoError(t, err)
	assert.Equal(t, &PostMetrics{Likes: 12, Comments: 3, Saves: 2, Reach: 140}, m)
}
