package network

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/maheshrc27/socialflow/internal/transfer"
)

const (
	tiktokAuthURL = "https://www.tiktok.com/v2/auth/authorize"
	tiktokAPIURL  = "https://open.tiktokapis.com"
	tiktokScopes  = "user.info.basic,user.info.profile,user.info.stats,video.publish,video.upload,video.list"
)

type TiktokAdapter struct {
	clientKey    string
	clientSecret string
	redirectURI  string
	apiURL       string
	api          *apiClient
	now          func() time.Time
}

func NewTiktok(clientKey, clientSecret, redirectURI string, hc *http.Client) *TiktokAdapter {
	return &TiktokAdapter{
		clientKey:    clientKey,
		clientSecret: clientSecret,
		redirectURI:  redirectURI,
		apiURL:       tiktokAPIURL,
		api:          newAPIClient(hc),
		now:          time.Now,
	}
}

func (s *TiktokAdapter) Network() Network { return TikTok }

func (s *TiktokAdapter) Configured() bool {
	return s.clientKey != "" && s.clientSecret != ""
}

func (s *TiktokAdapter) Limits() Limits {
	return Limits{
		MaxCaptionLength: 2200,
		MaxItems:         35,
		MinCarouselItems: 2,
		SupportsImage:    true,
		SupportsVideo:    true,
		MaxImageBytes:    20 << 20,
		MaxVideoBytes:    4 << 30,
		MinVideoDuration: 3 * time.Second,
		MaxVideoDuration: 10 * time.Minute,
	}
}

func (s *TiktokAdapter) AuthURL(state string) string {
	params := url.Values{}
	params.Add("client_key", s.clientKey)
	params.Add("scope", tiktokScopes)
	params.Add("response_type", "code")
	params.Add("redirect_uri", s.redirectURI)
	params.Add("state", state)
	return fmt.Sprintf("%s?%s", tiktokAuthURL, params.Encode())
}

func tiktokErrorCode(body []byte) (code, msg string) {
	var env struct {
		Error            json.RawMessage `json:"error"`
		ErrorDescription string          `json:"error_description"`
	}
	if err := json.Unmarshal(body, &env); err != nil || len(env.Error) == 0 {
		return "", ""
	}
	var te transfer.TiktokError
	if err := json.Unmarshal(env.Error, &te); err == nil {
		return te.Code, te.Message
	}
	var code2 string
	if err := json.Unmarshal(env.Error, &code2); err == nil {
		return code2, env.ErrorDescription
	}
	return "", ""
}

func classifyTiktokCode(op, code, msg string, transient bool, fallback Kind) error {
	kind := fallback
	switch {
	case transient || code == "rate_limit_exceeded" || code == "internal_error":
		kind = KindTransient
	case fallback == KindRefreshRecoverable && (code == "invalid_grant" || code == "access_token_invalid"):
		kind = KindRefreshPermanent
	case code == "invalid_params" && op == "create_container":
		kind = KindValidation
	}
	if msg == "" {
		msg = code
	}
	return Errorf(kind, TikTok, op, "%s", msg)
}

func classifyTiktok(op string, err error, fallback Kind) error {
	var se *statusError
	if !errors.As(err, &se) {
		return wrap(KindTransient, TikTok, op, err)
	}
	code, msg := tiktokErrorCode(se.Body)
	if msg == "" {
		msg = se.Error()
	}
	return classifyTiktokCode(op, code, msg, se.transient(), fallback)
}

func apiFailed(e transfer.TiktokError) bool {
	return e.Code != "" && e.Code != "ok"
}

func (s *TiktokAdapter) token(ctx context.Context, op string, data url.Values, fallback Kind) (*transfer.TiktokTokenResponse, error) {
	data.Set("client_key", s.clientKey)
	data.Set("client_secret", s.clientSecret)

	var tok transfer.TiktokTokenResponse
	if err := s.api.postForm(ctx, s.apiURL+"/v2/oauth/token/", data, &tok); err != nil {
		return nil, classifyTiktok(op, err, fallback)
	}
	if tok.Error != "" {
		return nil, classifyTiktokCode(op, tok.Error, tok.ErrorDescription, false, fallback)
	}
	if tok.AccessToken == "" {
		return nil, Errorf(fallback, TikTok, op, "no access token returned")
	}
	return &tok, nil
}

func (s *TiktokAdapter) Authorize(ctx context.Context, code string) (*Credential, error) {
	if code == "" {
		return nil, Errorf(KindValidation, TikTok, "authorize", "authorization code is empty")
	}

	data := url.Values{}
	data.Add("code", code)
	data.Add("grant_type", "authorization_code")
	data.Add("redirect_uri", s.redirectURI)

	tok, err := s.token(ctx, "authorize", data, KindValidation)
	if err != nil {
		return nil, err
	}
	return &Credential{
		AccountID:    tok.OpenID,
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
		ExpiresAt:    expiresIn(s.now(), tok.ExpiresIn),
	}, nil
}

func (s *TiktokAdapter) RefreshCredential(ctx context.Context, cred Credential) (*Credential, error) {
	data := url.Values{}
	data.Set("grant_type", "refresh_token")
	data.Set("refresh_token", cred.RefreshToken)

	tok, err := s.token(ctx, "refresh_credential", data, KindRefreshRecoverable)
	if err != nil {
		return nil, err
	}

	refresh := tok.RefreshToken
	if refresh == "" {
		refresh = cred.RefreshToken
	}
	return &Credential{
		AccountID:    cred.AccountID,
		AccessToken:  tok.AccessToken,
		RefreshToken: refresh,
		ExpiresAt:    expiresIn(s.now(), tok.ExpiresIn),
	}, nil
}

func (s *TiktokAdapter) FetchAccountInfo(ctx context.Context, cred Credential) (*AccountSnapshot, error) {
	endpoint := s.apiURL + "/v2/user/info/?fields=open_id,avatar_url,display_name,username,follower_count,following_count,video_count"

	var result transfer.TikTokResponse
	if err := s.api.get(ctx, endpoint, bearer(cred.AccessToken), &result); err != nil {
		return nil, classifyTiktok("fetch_account_info", err, KindTransient)
	}
	if apiFailed(result.Error) {
		return nil, classifyTiktokCode("fetch_account_info", result.Error.Code, result.Error.Message, false, KindTransient)
	}

	u := result.Data.User
	return &AccountSnapshot{
		PlatformID:     u.OpenID,
		Username:       u.Username,
		DisplayName:    u.DisplayName,
		ProfilePicture: u.AvatarURL,
		Followers:      u.FollowerCount,
		Following:      u.FollowingCount,
		Posts:          u.VideoCount,
	}, nil
}

// privacyLevel queries the creator's allowed privacy levels, preferring public.
func (s *TiktokAdapter) privacyLevel(ctx context.Context, cred Credential) (string, error) {
	var info transfer.TiktokCreatorInfoResponse
	if err := s.api.postJSON(ctx, s.apiURL+"/v2/post/publish/creator_info/query/", bearer(cred.AccessToken), struct{}{}, &info); err != nil {
		return "", classifyTiktok("create_container", err, KindPublish)
	}
	if apiFailed(info.Error) {
		return "", classifyTiktokCode("create_container", info.Error.Code, info.Error.Message, false, KindPublish)
	}

	for _, opt := range info.Data.PrivacyLevelOptions {
		if opt == "PUBLIC_TO_EVERYONE" {
			return opt, nil
		}
	}
	if len(info.Data.PrivacyLevelOptions) > 0 {
		return info.Data.PrivacyLevelOptions[0], nil
	}
	return "SELF_ONLY", nil
}

// CreateContainer starts a direct post. TikTok publishes automatically once
// processing completes, so the publish id doubles as the container id.
// Carousel items have no remote counterpart and only carry their URL.
func (s *TiktokAdapter) CreateContainer(ctx context.Context, cred Credential, req ContainerRequest) (ContainerHandle, error) {
	h := ContainerHandle{Kind: req.Kind, Caption: req.Caption, Children: req.Children}
	if req.Media != nil {
		h.MediaType = req.Media.Type
		h.MediaURL = req.Media.URL
	}
	if req.Kind == KindCarouselItem {
		return h, nil
	}
	if req.Kind == KindSingle && req.Media == nil {
		return h, Errorf(KindValidation, TikTok, "create_container", "media is required")
	}

	privacy, err := s.privacyLevel(ctx, cred)
	if err != nil {
		return h, err
	}

	var endpoint string
	var payload any
	if req.Kind == KindSingle && req.Media.Type == MediaVideo {
		endpoint = s.apiURL + "/v2/post/publish/video/init/"
		payload = transfer.VideoUploadRequest{
			PostInfo: transfer.VideoPostInfo{
				Title:                 req.Caption,
				PrivacyLevel:          privacy,
				VideoCoverTimestampMs: 1000,
			},
			SourceInfo: transfer.VideoSourceInfo{Source: "PULL_FROM_URL", VideoURL: req.Media.URL},
		}
	} else {
		photos := []string{h.MediaURL}
		if req.Kind == KindCarousel {
			photos = make([]string, 0, len(req.Children))
			for _, c := range req.Children {
				photos = append(photos, c.MediaURL)
			}
		}
		endpoint = s.apiURL + "/v2/post/publish/content/init/"
		payload = transfer.PhotoUploadRequest{
			PostInfo: transfer.PhotoPostInfo{
				Title:        req.Title,
				Description:  req.Caption,
				PrivacyLevel: privacy,
				AutoAddMusic: true,
			},
			SourceInfo: transfer.PhotoSourceInfo{Source: "PULL_FROM_URL", PhotoImages: photos},
			PostMode:   "DIRECT_POST",
			MediaType:  "PHOTO",
		}
	}

	var result transfer.TikTokUploadResponse
	if err := s.api.postJSON(ctx, endpoint, bearer(cred.AccessToken), payload, &result); err != nil {
		return h, classifyTiktok("create_container", err, KindPublish)
	}
	if apiFailed(result.Error) {
		return h, classifyTiktokCode("create_container", result.Error.Code, result.Error.Message, false, KindPublish)
	}
	if result.Data.PublishID == "" {
		return h, Errorf(KindPublish, TikTok, "create_container", "no publish ID returned from TikTok")
	}
	h.ID = result.Data.PublishID
	return h, nil
}

func (s *TiktokAdapter) fetchStatus(ctx context.Context, op string, cred Credential, publishID string) (*transfer.TiktokStatusResponse, error) {
	var st transfer.TiktokStatusResponse
	payload := map[string]string{"publish_id": publishID}
	if err := s.api.postJSON(ctx, s.apiURL+"/v2/post/publish/status/fetch/", bearer(cred.AccessToken), payload, &st); err != nil {
		return nil, classifyTiktok(op, err, KindTransient)
	}
	if apiFailed(st.Error) {
		return nil, classifyTiktokCode(op, st.Error.Code, st.Error.Message, false, KindTransient)
	}
	return &st, nil
}

func (s *TiktokAdapter) PollContainer(ctx context.Context, cred Credential, h ContainerHandle) (ContainerStatus, error) {
	if h.ID == "" {
		return ContainerStatus{State: PollReady}, nil
	}

	st, err := s.fetchStatus(ctx, "poll_container", cred, h.ID)
	if err != nil {
		return ContainerStatus{}, err
	}
	switch st.Data.Status {
	case "PUBLISH_COMPLETE":
		return ContainerStatus{State: PollReady}, nil
	case "FAILED":
		return ContainerStatus{State: PollFailed, Reason: st.Data.FailReason}, nil
	default:
		return ContainerStatus{State: PollPending}, nil
	}
}

// PublishContainer confirms the outcome of a direct post. Photo posts may
// still be processing; TikTok has accepted them, so the publish id is
// returned until a public post id exists.
func (s *TiktokAdapter) PublishContainer(ctx context.Context, cred Credential, h ContainerHandle) (*Published, error) {
	if h.ID == "" {
		return nil, Errorf(KindPublish, TikTok, "publish_container", "container was never submitted")
	}

	st, err := s.fetchStatus(ctx, "publish_container", cred, h.ID)
	if err != nil {
		return nil, err
	}
	if st.Data.Status == "FAILED" {
		return nil, Errorf(KindPublish, TikTok, "publish_container", "%s", st.Data.FailReason)
	}
	if len(st.Data.PubliclyAvailablePostIDs) > 0 {
		return &Published{PlatformPostID: strconv.FormatInt(st.Data.PubliclyAvailablePostIDs[0], 10)}, nil
	}
	return &Published{PlatformPostID: h.ID}, nil
}

func (s *TiktokAdapter) FetchPostMetrics(ctx context.Context, cred Credential, platformPostID string) (*PostMetrics, error) {
	endpoint := s.apiURL + "/v2/video/query/?fields=id,like_count,comment_count,share_count,view_count"
	payload := map[string]any{"filters": map[string]any{"video_ids": []string{platformPostID}}}

	var result transfer.TiktokVideoQueryResponse
	if err := s.api.postJSON(ctx, endpoint, bearer(cred.AccessToken), payload, &result); err != nil {
		return nil, classifyTiktok("fetch_post_metrics", err, KindTransient)
	}
	if apiFailed(result.Error) {
		return nil, classifyTiktokCode("fetch_post_metrics", result.Error.Code, result.Error.Message, false, KindTransient)
	}
	if len(result.Data.Videos) == 0 {
		return nil, Errorf(KindTransient, TikTok, "fetch_post_metrics", "video %s not found", platformPostID)
	}

	v := result.Data.Videos[0]
	return &PostMetrics{
		Likes:    v.LikeCount,
		Comments: v.CommentCount,
		Shares:   v.ShareCount,
		Views:    v.ViewCount,
	}, nil
}
