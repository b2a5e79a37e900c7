package network

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	"google.golang.org/api/youtube/v3"
)

const maxYoutubeTitle = 100

type YoutubeAdapter struct {
	oauth  *oauth2.Config
	hc     *http.Client
	apiURL string
}

func NewYoutube(clientID, clientSecret, redirectURI string, hc *http.Client) *YoutubeAdapter {
	if hc == nil {
		hc = &http.Client{Timeout: 30 * time.Minute}
	}
	return &YoutubeAdapter{
		oauth: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  redirectURI,
			Scopes: []string{
				"https://www.googleapis.com/auth/youtube.upload",
				"https://www.googleapis.com/auth/youtube.readonly",
			},
			Endpoint: google.Endpoint,
		},
		hc: hc,
	}
}

func (y *YoutubeAdapter) Network() Network { return YouTube }

func (y *YoutubeAdapter) Configured() bool {
	return y.oauth.ClientID != "" && y.oauth.ClientSecret != ""
}

func (y *YoutubeAdapter) Limits() Limits {
	return Limits{
		MaxCaptionLength: 5000,
		MaxItems:         1,
		SupportsVideo:    true,
		MaxVideoBytes:    256 << 30,
		MinVideoDuration: time.Second,
		MaxVideoDuration: 12 * time.Hour,
	}
}

func (y *YoutubeAdapter) AuthURL(state string) string {
	return y.oauth.AuthCodeURL(state, oauth2.AccessTypeOffline, oauth2.ApprovalForce)
}

func (y *YoutubeAdapter) oauthContext(ctx context.Context) context.Context {
	return context.WithValue(ctx, oauth2.HTTPClient, y.hc)
}

func (y *YoutubeAdapter) service(ctx context.Context, cred Credential) (*youtube.Service, error) {
	client := oauth2.NewClient(y.oauthContext(ctx), oauth2.StaticTokenSource(&oauth2.Token{AccessToken: cred.AccessToken}))
	opts := []option.ClientOption{option.WithHTTPClient(client)}
	if y.apiURL != "" {
		opts = append(opts, option.WithEndpoint(y.apiURL))
	}
	return youtube.NewService(ctx, opts...)
}

func classifyGoogle(op string, err error, fallback Kind) error {
	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		kind := fallback
		if gerr.Code == http.StatusTooManyRequests || gerr.Code >= 500 {
			kind = KindTransient
		} else if gerr.Code == http.StatusBadRequest && op == "publish_container" {
			kind = KindValidation
		}
		msg := gerr.Message
		if msg == "" {
			msg = gerr.Error()
		}
		return &Error{Kind: kind, Network: YouTube, Op: op, Message: msg, Err: err}
	}

	var rerr *oauth2.RetrieveError
	if errors.As(err, &rerr) {
		kind := fallback
		switch {
		case rerr.Response != nil && (rerr.Response.StatusCode == http.StatusTooManyRequests || rerr.Response.StatusCode >= 500):
			kind = KindTransient
			if fallback == KindRefreshRecoverable {
				kind = KindRefreshRecoverable
			}
		case rerr.ErrorCode == "invalid_grant" && fallback == KindRefreshRecoverable:
			kind = KindRefreshPermanent
		}
		msg := rerr.ErrorDescription
		if msg == "" {
			msg = rerr.ErrorCode
		}
		return &Error{Kind: kind, Network: YouTube, Op: op, Message: msg, Err: err}
	}

	if fallback == KindRefreshRecoverable {
		return wrap(KindRefreshRecoverable, YouTube, op, err)
	}
	return wrap(KindTransient, YouTube, op, err)
}

func (y *YoutubeAdapter) Authorize(ctx context.Context, code string) (*Credential, error) {
	if code == "" {
		return nil, Errorf(KindValidation, YouTube, "authorize", "authorization code is empty")
	}

	token, err := y.oauth.Exchange(y.oauthContext(ctx), code)
	if err != nil {
		return nil, classifyGoogle("authorize", err, KindValidation)
	}
	if token.RefreshToken == "" {
		return nil, Errorf(KindValidation, YouTube, "authorize", "refresh token is empty")
	}

	cred := &Credential{
		AccessToken:  token.AccessToken,
		RefreshToken: token.RefreshToken,
	}
	if !token.Expiry.IsZero() {
		expiry := token.Expiry
		cred.ExpiresAt = &expiry
	}

	snap, err := y.FetchAccountInfo(ctx, *cred)
	if err != nil {
		return nil, err
	}
	cred.AccountID = snap.PlatformID
	return cred, nil
}

func (y *YoutubeAdapter) RefreshCredential(ctx context.Context, cred Credential) (*Credential, error) {
	ts := y.oauth.TokenSource(y.oauthContext(ctx), &oauth2.Token{RefreshToken: cred.RefreshToken})
	token, err := ts.Token()
	if err != nil {
		return nil, classifyGoogle("refresh_credential", err, KindRefreshRecoverable)
	}

	refreshed := &Credential{
		AccountID:    cred.AccountID,
		AccessToken:  token.AccessToken,
		RefreshToken: cred.RefreshToken,
	}
	if token.RefreshToken != "" {
		refreshed.RefreshToken = token.RefreshToken
	}
	if !token.Expiry.IsZero() {
		expiry := token.Expiry
		refreshed.ExpiresAt = &expiry
	}
	return refreshed, nil
}

func (y *YoutubeAdapter) FetchAccountInfo(ctx context.Context, cred Credential) (*AccountSnapshot, error) {
	svc, err := y.service(ctx, cred)
	if err != nil {
		return nil, wrap(KindTransient, YouTube, "fetch_account_info", err)
	}

	resp, err := svc.Channels.List([]string{"snippet", "statistics"}).Mine(true).Context(ctx).Do()
	if err != nil {
		return nil, classifyGoogle("fetch_account_info", err, KindTransient)
	}
	if len(resp.Items) == 0 {
		return nil, Errorf(KindValidation, YouTube, "fetch_account_info", "no channel found for this account")
	}

	ch := resp.Items[0]
	snap := &AccountSnapshot{PlatformID: ch.Id}
	if ch.Snippet != nil {
		snap.Username = ch.Snippet.CustomUrl
		snap.DisplayName = ch.Snippet.Title
		if ch.Snippet.Thumbnails != nil && ch.Snippet.Thumbnails.Default != nil {
			snap.ProfilePicture = ch.Snippet.Thumbnails.Default.Url
		}
	}
	if ch.Statistics != nil {
		snap.Followers = int64(ch.Statistics.SubscriberCount)
		snap.Posts = int64(ch.Statistics.VideoCount)
	}
	return snap, nil
}

// CreateContainer keeps the upload local. YouTube has no container step; the
// upload happens in PublishContainer.
func (y *YoutubeAdapter) CreateContainer(ctx context.Context, cred Credential, req ContainerRequest) (ContainerHandle, error) {
	h := ContainerHandle{Kind: req.Kind, Caption: req.Caption, Title: req.Title}
	if req.Kind != KindSingle || req.Media == nil || req.Media.Type != MediaVideo {
		return h, Errorf(KindValidation, YouTube, "create_container", "youtube accepts a single video only")
	}
	h.MediaType = req.Media.Type
	h.MediaURL = req.Media.URL
	return h, nil
}

func (y *YoutubeAdapter) PollContainer(ctx context.Context, cred Credential, h ContainerHandle) (ContainerStatus, error) {
	return ContainerStatus{State: PollReady}, nil
}

func youtubeTitle(title, caption string) string {
	if title == "" {
		title = strings.TrimSpace(strings.SplitN(caption, "\n", 2)[0])
	}
	if title == "" {
		title = "Untitled"
	}
	if r := []rune(title); len(r) > maxYoutubeTitle {
		title = string(r[:maxYoutubeTitle])
	}
	return title
}

// PublishContainer streams the stored media into a resumable upload.
func (y *YoutubeAdapter) PublishContainer(ctx context.Context, cred Credential, h ContainerHandle) (*Published, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, h.MediaURL, nil)
	if err != nil {
		return nil, wrap(KindValidation, YouTube, "publish_container", err)
	}
	resp, err := y.hc.Do(req)
	if err != nil {
		return nil, wrap(KindTransient, YouTube, "publish_container", fmt.Errorf("error downloading video: %w", err))
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, io.LimitReader(resp.Body, maxErrorBody))
		return nil, Errorf(KindPublish, YouTube, "publish_container", "unexpected response status downloading video: %d", resp.StatusCode)
	}

	svc, err := y.service(ctx, cred)
	if err != nil {
		return nil, wrap(KindTransient, YouTube, "publish_container", err)
	}

	video := &youtube.Video{
		Snippet: &youtube.VideoSnippet{
			Description: h.Caption,
			Title:       youtubeTitle(h.Title, h.Caption),
			CategoryId:  "22",
		},
		Status: &youtube.VideoStatus{
			PrivacyStatus: "public",
		},
	}

	uploaded, err := svc.Videos.Insert([]string{"snippet", "status"}, video).Media(resp.Body).Context(ctx).Do()
	if err != nil {
		return nil, classifyGoogle("publish_container", err, KindPublish)
	}
	return &Published{
		PlatformPostID: uploaded.Id,
		Permalink:      "https://youtu.be/" + uploaded.Id,
	}, nil
}

func (y *YoutubeAdapter) FetchPostMetrics(ctx context.Context, cred Credential, platformPostID string) (*PostMetrics, error) {
	svc, err := y.service(ctx, cred)
	if err != nil {
		return nil, wrap(KindTransient, YouTube, "fetch_post_metrics", err)
	}

	resp, err := svc.Videos.List([]string{"statistics"}).Id(platformPostID).Context(ctx).Do()
	if err != nil {
		return nil, classifyGoogle("fetch_post_metrics", err, KindTransient)
	}
	if len(resp.Items) == 0 || resp.Items[0].Statistics == nil {
		return nil, Errorf(KindTransient, YouTube, "fetch_post_metrics", "video %s not found", platformPostID)
	}

	st := resp.Items[0].Statistics
	return &PostMetrics{
		Likes:    int64(st.LikeCount),
		Comments: int64(st.CommentCount),
		Views:    int64(st.ViewCount),
	}, nil
}
