package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	config "github.com/maheshrc27/socialflow/configs"
	"github.com/maheshrc27/socialflow/internal/models"
	"github.com/maheshrc27/socialflow/internal/repository"
	"github.com/maheshrc27/socialflow/internal/transfer"
	"github.com/maheshrc27/socialflow/pkg/utils"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

const (
	googleUserInfoURL = "https://www.googleapis.com/oauth2/v1/userinfo"
	loginStatePurpose = "login"
)

// AuthService signs users in with Google. Social accounts are connected
// separately through PlatformService.
type AuthService interface {
	LoginURL() (string, error)
	Login(ctx context.Context, code, state string) (int64, error)
	User(ctx context.Context, userID int64) (*models.User, error)
}

type authService struct {
	secretKey string
	oauth     *oauth2.Config
	hc        *http.Client
	u         repository.UserRepository
}

func NewAuthService(cfg config.Config, u repository.UserRepository, hc *http.Client) AuthService {
	if hc == nil {
		hc = &http.Client{Timeout: 30 * time.Second}
	}
	return &authService{
		secretKey: cfg.SecretKey,
		oauth: &oauth2.Config{
			ClientID:     cfg.GoogleClientID,
			ClientSecret: cfg.GoogleClientSecret,
			RedirectURL:  cfg.LoginRedirectURI,
			Scopes:       []string{"https://www.googleapis.com/auth/userinfo.email", "https://www.googleapis.com/auth/userinfo.profile"},
			Endpoint:     google.Endpoint,
		},
		hc: hc,
		u:  u,
	}
}

func (s *authService) LoginURL() (string, error) {
	if s.oauth.ClientID == "" || s.oauth.ClientSecret == "" {
		return "", errors.New("OAuth2 configuration is incomplete")
	}
	state, err := utils.GenerateState(s.secretKey, 0, loginStatePurpose, stateTTL)
	if err != nil {
		return "", err
	}
	return s.oauth.AuthCodeURL(state, oauth2.AccessTypeOnline), nil
}

func (s *authService) Login(ctx context.Context, code, state string) (int64, error) {
	if code == "" {
		return 0, fmt.Errorf("%w: code is empty", ErrInvalidInput)
	}
	if _, err := utils.ValidateState(s.secretKey, state, loginStatePurpose); err != nil {
		return 0, fmt.Errorf("%w: invalid state: %v", ErrInvalidInput, err)
	}

	ctx = context.WithValue(ctx, oauth2.HTTPClient, s.hc)
	token, err := s.oauth.Exchange(ctx, code)
	if err != nil {
		slog.Info(err.Error())
		return 0, err
	}

	info, err := fetchGoogleUser(s.oauth.Client(ctx, token))
	if err != nil {
		return 0, err
	}
	if info.Email == "" {
		return 0, errors.New("google account has no email")
	}

	userID, err := s.u.Upsert(ctx, &models.User{
		GoogleSubject: info.ID,
		Email:         info.Email,
		Name:          info.Name,
		AvatarURL:     info.Picture,
	})
	if err != nil {
		return 0, fmt.Errorf("error saving user: %w", err)
	}
	return userID, nil
}

func (s *authService) User(ctx context.Context, userID int64) (*models.User, error) {
	if userID == 0 {
		return nil, ErrInvalidUserID
	}
	user, err := s.u.GetByID(ctx, userID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("user %d: %w", userID, ErrNotFound)
	}
	return user, err
}

func fetchGoogleUser(client *http.Client) (*transfer.GoogleUserInfo, error) {
	response, err := client.Get(googleUserInfoURL)
	if err != nil {
		slog.Info(err.Error())
		return nil, fmt.Errorf("error fetching user info: %w", err)
	}
	defer response.Body.Close()

	if response.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected response status: %d", response.StatusCode)
	}

	var userInfo transfer.GoogleUserInfo
	if err := json.NewDecoder(response.Body).Decode(&userInfo); err != nil {
		slog.Info(err.Error())
		return nil, fmt.Errorf("error decoding user info: %w", err)
	}
	return &userInfo, nil
}
