package network

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/maheshrc27/socialflow/internal/transfer"
)

const (
	facebookAuthURL  = "https://www.facebook.com/" + graphAPIVersion + "/dialog/oauth"
	facebookGraphURL = "https://graph.facebook.com"
)

// FacebookAdapter publishes to a Facebook Page. The stored access token is
// the page token; the refresh token is the long-lived user token the page
// token was derived from.
type FacebookAdapter struct {
	appID       string
	appSecret   string
	redirectURI string
	graphURL    string
	api         *apiClient
	now         func() time.Time
}

func NewFacebook(appID, appSecret, redirectURI string, hc *http.Client) *FacebookAdapter {
	return &FacebookAdapter{
		appID:       appID,
		appSecret:   appSecret,
		redirectURI: redirectURI,
		graphURL:    facebookGraphURL,
		api:         newAPIClient(hc),
		now:         time.Now,
	}
}

func (fb *FacebookAdapter) Network() Network { return Facebook }

func (fb *FacebookAdapter) Configured() bool {
	return fb.appID != "" && fb.appSecret != ""
}

func (fb *FacebookAdapter) Limits() Limits {
	return Limits{
		MaxCaptionLength: 63206,
		MaxItems:         10,
		MinCarouselItems: 2,
		SupportsImage:    true,
		SupportsVideo:    true,
		MaxImageBytes:    10 << 20,
		MaxVideoBytes:    10 << 30,
		MinVideoDuration: time.Second,
		MaxVideoDuration: 240 * time.Minute,
	}
}

func (fb *FacebookAdapter) AuthURL(state string) string {
	params := url.Values{}
	params.Add("client_id", fb.appID)
	params.Add("redirect_uri", fb.redirectURI)
	params.Add("scope", "pages_show_list,pages_manage_posts,pages_read_engagement,read_insights")
	params.Add("response_type", "code")
	params.Add("state", state)
	return fmt.Sprintf("%s?%s", facebookAuthURL, params.Encode())
}

func (fb *FacebookAdapter) versioned(path string) string {
	return fmt.Sprintf("%s/%s/%s", fb.graphURL, graphAPIVersion, path)
}

func (fb *FacebookAdapter) exchange(ctx context.Context, op string, params url.Values, fallback Kind) (*transfer.GraphToken, error) {
	params.Set("client_id", fb.appID)
	params.Set("client_secret", fb.appSecret)

	var tok transfer.GraphToken
	if err := fb.api.get(ctx, fb.versioned("oauth/access_token")+"?"+params.Encode(), nil, &tok); err != nil {
		return nil, classifyGraph(Facebook, op, err, fallback)
	}
	return &tok, nil
}

// pageCredential resolves the page token for pageID, or the first managed
// page when pageID is empty.
func (fb *FacebookAdapter) pageCredential(ctx context.Context, op string, userToken *transfer.GraphToken, pageID string, fallback Kind) (*Credential, error) {
	params := url.Values{}
	params.Set("fields", "id,name,access_token")
	params.Set("access_token", userToken.AccessToken)

	var pages transfer.FacebookPages
	if err := fb.api.get(ctx, fb.versioned("me/accounts")+"?"+params.Encode(), nil, &pages); err != nil {
		return nil, classifyGraph(Facebook, op, err, fallback)
	}

	for _, p := range pages.Data {
		if pageID == "" || p.ID == pageID {
			return &Credential{
				AccountID:    p.ID,
				AccessToken:  p.AccessToken,
				RefreshToken: userToken.AccessToken,
				ExpiresAt:    expiresIn(fb.now(), userToken.ExpiresIn),
			}, nil
		}
	}

	if pageID == "" {
		return nil, Errorf(fallback, Facebook, op, "no managed pages granted")
	}
	kind := fallback
	if fallback == KindRefreshRecoverable {
		kind = KindRefreshPermanent
	}
	return nil, Errorf(kind, Facebook, op, "page %s is no longer granted", pageID)
}

func (fb *FacebookAdapter) Authorize(ctx context.Context, code string) (*Credential, error) {
	if code == "" {
		return nil, Errorf(KindValidation, Facebook, "authorize", "authorization code is empty")
	}

	params := url.Values{}
	params.Set("redirect_uri", fb.redirectURI)
	params.Set("code", code)
	short, err := fb.exchange(ctx, "authorize", params, KindValidation)
	if err != nil {
		return nil, err
	}

	long, err := fb.exchange(ctx, "authorize", url.Values{
		"grant_type":        {"fb_exchange_token"},
		"fb_exchange_token": {short.AccessToken},
	}, KindValidation)
	if err != nil {
		return nil, err
	}

	return fb.pageCredential(ctx, "authorize", long, "", KindValidation)
}

// RefreshCredential renews the long-lived user token and re-derives the
// page token from it.
func (fb *FacebookAdapter) RefreshCredential(ctx context.Context, cred Credential) (*Credential, error) {
	long, err := fb.exchange(ctx, "refresh_credential", url.Values{
		"grant_type":        {"fb_exchange_token"},
		"fb_exchange_token": {cred.RefreshToken},
	}, KindRefreshRecoverable)
	if err != nil {
		return nil, err
	}
	return fb.pageCredential(ctx, "refresh_credential", long, cred.AccountID, KindRefreshRecoverable)
}

func (fb *FacebookAdapter) FetchAccountInfo(ctx context.Context, cred Credential) (*AccountSnapshot, error) {
	params := url.Values{}
	params.Set("fields", "id,name,username,followers_count,fan_count,picture")
	params.Set("access_token", cred.AccessToken)

	var page transfer.FacebookPage
	if err := fb.api.get(ctx, fb.versioned(cred.AccountID)+"?"+params.Encode(), nil, &page); err != nil {
		return nil, classifyGraph(Facebook, "fetch_account_info", err, KindTransient)
	}

	followers := page.FollowersCount
	if followers == 0 {
		followers = page.FanCount
	}
	return &AccountSnapshot{
		PlatformID:     page.ID,
		Username:       page.Username,
		DisplayName:    page.Name,
		ProfilePicture: page.Picture.Data.URL,
		Followers:      followers,
	}, nil
}

func (fb *FacebookAdapter) CreateContainer(ctx context.Context, cred Credential, req ContainerRequest) (ContainerHandle, error) {
	h := ContainerHandle{Kind: req.Kind, Caption: req.Caption, Title: req.Title}

	if req.Kind == KindCarousel {
		// Albums are assembled at publish time from the unpublished photos.
		h.Children = req.Children
		return h, nil
	}
	if req.Media == nil {
		return h, Errorf(KindValidation, Facebook, "create_container", "media is required")
	}
	h.MediaType = req.Media.Type
	h.MediaURL = req.Media.URL

	data := url.Values{}
	data.Set("access_token", cred.AccessToken)
	data.Set("published", "false")

	endpoint := fb.versioned(cred.AccountID + "/photos")
	if req.Media.Type == MediaVideo {
		endpoint = fb.versioned(cred.AccountID + "/videos")
		data.Set("file_url", req.Media.URL)
		data.Set("description", req.Caption)
		data.Set("title", req.Title)
	} else {
		data.Set("url", req.Media.URL)
		if req.Kind == KindCarouselItem {
			data.Set("temporary", "true")
		}
	}

	var result transfer.GraphID
	if err := fb.api.postForm(ctx, endpoint, data, &result); err != nil {
		return h, classifyGraph(Facebook, "create_container", err, KindPublish)
	}
	if result.ID == "" {
		return h, Errorf(KindPublish, Facebook, "create_container", "no media ID returned from Facebook")
	}
	h.ID = result.ID
	return h, nil
}

func (fb *FacebookAdapter) PollContainer(ctx context.Context, cred Credential, h ContainerHandle) (ContainerStatus, error) {
	if h.MediaType != MediaVideo {
		return ContainerStatus{State: PollReady}, nil
	}

	params := url.Values{}
	params.Set("fields", "status")
	params.Set("access_token", cred.AccessToken)

	var st transfer.FacebookVideoStatus
	if err := fb.api.get(ctx, fb.versioned(h.ID)+"?"+params.Encode(), nil, &st); err != nil {
		return ContainerStatus{}, classifyGraph(Facebook, "poll_container", err, KindTransient)
	}

	switch st.Status.VideoStatus {
	case "ready":
		return ContainerStatus{State: PollReady}, nil
	case "error":
		return ContainerStatus{State: PollFailed, Reason: "video processing failed"}, nil
	default:
		return ContainerStatus{State: PollPending}, nil
	}
}

func (fb *FacebookAdapter) PublishContainer(ctx context.Context, cred Credential, h ContainerHandle) (*Published, error) {
	data := url.Values{}
	data.Set("access_token", cred.AccessToken)

	var postID string
	if h.Kind == KindSingle && h.MediaType == MediaVideo {
		data.Set("published", "true")
		if err := fb.api.postForm(ctx, fb.versioned(h.ID), data, nil); err != nil {
			return nil, classifyGraph(Facebook, "publish_container", err, KindPublish)
		}
		postID = h.ID
	} else {
		photos := []ContainerHandle{h}
		if h.Kind == KindCarousel {
			photos = h.Children
		}
		data.Set("message", h.Caption)
		for i, p := range photos {
			data.Set(fmt.Sprintf("attached_media[%d]", i), fmt.Sprintf(`{"media_fbid":"%s"}`, p.ID))
		}

		var result transfer.GraphID
		if err := fb.api.postForm(ctx, fb.versioned(cred.AccountID+"/feed"), data, &result); err != nil {
			return nil, classifyGraph(Facebook, "publish_container", err, KindPublish)
		}
		if result.ID == "" {
			return nil, Errorf(KindPublish, Facebook, "publish_container", "no post ID returned from Facebook")
		}
		postID = result.ID
	}

	published := &Published{PlatformPostID: postID}
	params := url.Values{}
	params.Set("fields", "permalink_url")
	params.Set("access_token", cred.AccessToken)
	var link transfer.GraphPermalink
	if err := fb.api.get(ctx, fb.versioned(postID)+"?"+params.Encode(), nil, &link); err == nil {
		published.Permalink = link.PermalinkURL
	}
	return published, nil
}

func (fb *FacebookAdapter) FetchPostMetrics(ctx context.Context, cred Credential, platformPostID string) (*PostMetrics, error) {
	params := url.Values{}
	params.Set("fields", "shares,reactions.summary(total_count).limit(0),comments.summary(total_count).limit(0)")
	params.Set("access_token", cred.AccessToken)

	var stats transfer.FacebookPostStats
	if err := fb.api.get(ctx, fb.versioned(platformPostID)+"?"+params.Encode(), nil, &stats); err != nil {
		return nil, classifyGraph(Facebook, "fetch_post_metrics", err, KindTransient)
	}
	return &PostMetrics{
		Likes:    stats.Reactions.Summary.TotalCount,
		Comments: stats.Comments.Summary.TotalCount,
		Shares:   stats.Shares.Count,
	}, nil
}
