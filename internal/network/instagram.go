package network

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/maheshrc27/socialflow/internal/transfer"
)

const (
	instagramAuthURL  = "https://www.instagram.com/oauth/authorize"
	instagramOAuthURL = "https://api.instagram.com"
	instagramGraphURL = "https://graph.instagram.com"
)

type InstagramAdapter struct {
	clientID     string
	clientSecret string
	redirectURI  string
	oauthURL     string
	graphURL     string
	api          *apiClient
	now          func() time.Time
}

func NewInstagram(clientID, clientSecret, redirectURI string, hc *http.Client) *InstagramAdapter {
	return &InstagramAdapter{
		clientID:     clientID,
		clientSecret: clientSecret,
		redirectURI:  redirectURI,
		oauthURL:     instagramOAuthURL,
		graphURL:     instagramGraphURL,
		api:          newAPIClient(hc),
		now:          time.Now,
	}
}

func (ig *InstagramAdapter) Network() Network { return Instagram }

func (ig *InstagramAdapter) Configured() bool {
	return ig.clientID != "" && ig.clientSecret != ""
}

func (ig *InstagramAdapter) Limits() Limits {
	return Limits{
		MaxCaptionLength:    2200,
		MaxItems:            10,
		MinCarouselItems:    2,
		SupportsImage:       true,
		SupportsVideo:       true,
		CarouselAllowsVideo: true,
		MaxImageBytes:       8 << 20,
		MaxVideoBytes:       1 << 30,
		MinVideoDuration:    3 * time.Second,
		MaxVideoDuration:    15 * time.Minute,
		MinImageAspect:      0.8,
		MaxImageAspect:      1.91,
		MinVideoAspect:      0.01,
		MaxVideoAspect:      10,
	}
}

func (ig *InstagramAdapter) AuthURL(state string) string {
	params := url.Values{}
	params.Add("client_id", ig.clientID)
	params.Add("scope", "instagram_business_basic,instagram_business_content_publish,instagram_business_manage_insights")
	params.Add("response_type", "code")
	params.Add("redirect_uri", ig.redirectURI)
	params.Add("state", state)
	return fmt.Sprintf("%s?%s", instagramAuthURL, params.Encode())
}

func (ig *InstagramAdapter) versioned(path string) string {
	return fmt.Sprintf("%s/%s/%s", ig.graphURL, graphAPIVersion, path)
}

// Authorize exchanges the code for a short-lived token and immediately
// upgrades it to a long-lived one.
func (ig *InstagramAdapter) Authorize(ctx context.Context, code string) (*Credential, error) {
	if code == "" {
		return nil, Errorf(KindValidation, Instagram, "authorize", "authorization code is empty")
	}

	data := url.Values{}
	data.Set("client_id", ig.clientID)
	data.Set("client_secret", ig.clientSecret)
	data.Set("grant_type", "authorization_code")
	data.Set("redirect_uri", ig.redirectURI)
	data.Set("code", code)

	var short transfer.GraphToken
	if err := ig.api.postForm(ctx, ig.oauthURL+"/oauth/access_token", data, &short); err != nil {
		return nil, classifyGraph(Instagram, "authorize", err, KindValidation)
	}

	params := url.Values{}
	params.Set("grant_type", "ig_exchange_token")
	params.Set("client_secret", ig.clientSecret)
	params.Set("access_token", short.AccessToken)

	var long transfer.GraphToken
	if err := ig.api.get(ctx, ig.graphURL+"/access_token?"+params.Encode(), nil, &long); err != nil {
		return nil, classifyGraph(Instagram, "authorize", err, KindValidation)
	}

	return &Credential{
		AccountID:   short.UserID.String(),
		AccessToken: long.AccessToken,
		ExpiresAt:   expiresIn(ig.now(), long.ExpiresIn),
	}, nil
}

// RenewCredential extends a long-lived token. Instagram issues no refresh
// tokens; the access token renews itself.
func (ig *InstagramAdapter) RenewCredential(ctx context.Context, cred Credential) (*Credential, error) {
	params := url.Values{}
	params.Set("grant_type", "ig_refresh_token")
	params.Set("access_token", cred.AccessToken)

	var tok transfer.GraphToken
	if err := ig.api.get(ctx, ig.graphURL+"/refresh_access_token?"+params.Encode(), nil, &tok); err != nil {
		return nil, classifyGraph(Instagram, "renew_credential", err, KindRefreshRecoverable)
	}
	if tok.AccessToken == "" {
		return nil, Errorf(KindRefreshRecoverable, Instagram, "renew_credential", "no access token returned")
	}

	return &Credential{
		AccountID:   cred.AccountID,
		AccessToken: tok.AccessToken,
		ExpiresAt:   expiresIn(ig.now(), tok.ExpiresIn),
	}, nil
}

func (ig *InstagramAdapter) FetchAccountInfo(ctx context.Context, cred Credential) (*AccountSnapshot, error) {
	params := url.Values{}
	params.Set("fields", "user_id,username,name,profile_picture_url,followers_count,follows_count,media_count")
	params.Set("access_token", cred.AccessToken)

	var info transfer.InstagramUserInfo
	if err := ig.api.get(ctx, ig.versioned("me")+"?"+params.Encode(), nil, &info); err != nil {
		return nil, classifyGraph(Instagram, "fetch_account_info", err, KindTransient)
	}

	id := info.UserID
	if id == "" {
		id = info.ID
	}
	return &AccountSnapshot{
		PlatformID:     id,
		Username:       info.Username,
		DisplayName:    info.Name,
		ProfilePicture: info.ProfilePicture,
		Followers:      info.FollowersCount,
		Following:      info.FollowsCount,
		Posts:          info.MediaCount,
	}, nil
}

func (ig *InstagramAdapter) CreateContainer(ctx context.Context, cred Credential, req ContainerRequest) (ContainerHandle, error) {
	data := url.Values{}
	data.Set("access_token", cred.AccessToken)

	h := ContainerHandle{Kind: req.Kind, Caption: req.Caption}
	switch req.Kind {
	case KindSingle, KindCarouselItem:
		if req.Media == nil {
			return h, Errorf(KindValidation, Instagram, "create_container", "media is required")
		}
		h.MediaType = req.Media.Type
		h.MediaURL = req.Media.URL
		if req.Media.Type == MediaVideo {
			data.Set("video_url", req.Media.URL)
			if req.Kind == KindSingle {
				data.Set("media_type", "REELS")
			} else {
				data.Set("media_type", "VIDEO")
			}
		} else {
			data.Set("image_url", req.Media.URL)
		}
		if req.Kind == KindCarouselItem {
			data.Set("is_carousel_item", "true")
		} else {
			data.Set("caption", req.Caption)
		}
	case KindCarousel:
		ids := make([]string, 0, len(req.Children))
		for _, child := range req.Children {
			ids = append(ids, child.ID)
		}
		data.Set("media_type", "CAROUSEL")
		data.Set("children", strings.Join(ids, ","))
		data.Set("caption", req.Caption)
		h.Children = req.Children
	}

	var result transfer.GraphID
	if err := ig.api.postForm(ctx, ig.versioned(cred.AccountID+"/media"), data, &result); err != nil {
		return h, classifyGraph(Instagram, "create_container", err, KindPublish)
	}
	if result.ID == "" {
		return h, Errorf(KindPublish, Instagram, "create_container", "no media ID returned from Instagram")
	}
	h.ID = result.ID
	return h, nil
}

func (ig *InstagramAdapter) PollContainer(ctx context.Context, cred Credential, h ContainerHandle) (ContainerStatus, error) {
	params := url.Values{}
	params.Set("fields", "status_code,status")
	params.Set("access_token", cred.AccessToken)

	var st transfer.InstagramContainerStatus
	if err := ig.api.get(ctx, ig.versioned(h.ID)+"?"+params.Encode(), nil, &st); err != nil {
		return ContainerStatus{}, classifyGraph(Instagram, "poll_container", err, KindTransient)
	}

	switch st.StatusCode {
	case "FINISHED", "PUBLISHED":
		return ContainerStatus{State: PollReady}, nil
	case "ERROR", "EXPIRED":
		return ContainerStatus{State: PollFailed, Reason: fmt.Sprintf("container %s: %s", strings.ToLower(st.StatusCode), st.Status)}, nil
	default:
		return ContainerStatus{State: PollPending}, nil
	}
}

func (ig *InstagramAdapter) PublishContainer(ctx context.Context, cred Credential, h ContainerHandle) (*Published, error) {
	data := url.Values{}
	data.Set("creation_id", h.ID)
	data.Set("access_token", cred.AccessToken)

	var result transfer.GraphID
	if err := ig.api.postForm(ctx, ig.versioned(cred.AccountID+"/media_publish"), data, &result); err != nil {
		return nil, classifyGraph(Instagram, "publish_container", err, KindPublish)
	}
	if result.ID == "" {
		return nil, Errorf(KindPublish, Instagram, "publish_container", "no media ID returned from Instagram")
	}

	published := &Published{PlatformPostID: result.ID}

	// The post is live at this point; a missing permalink is not a failure.
	params := url.Values{}
	params.Set("fields", "permalink")
	params.Set("access_token", cred.AccessToken)
	var link transfer.GraphPermalink
	if err := ig.api.get(ctx, ig.versioned(result.ID)+"?"+params.Encode(), nil, &link); err == nil {
		published.Permalink = link.Permalink
	}
	return published, nil
}

func (ig *InstagramAdapter) FetchPostMetrics(ctx context.Context, cred Credential, platformPostID string) (*PostMetrics, error) {
	params := url.Values{}
	params.Set("metric", "likes,comments,shares,saved,reach,views")
	params.Set("access_token", cred.AccessToken)

	var insights transfer.GraphInsights
	if err := ig.api.get(ctx, ig.versioned(platformPostID+"/insights")+"?"+params.Encode(), nil, &insights); err != nil {
		return nil, classifyGraph(Instagram, "fetch_post_metrics", err, KindTransient)
	}
	return insightsToMetrics(insights), nil
}
