package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type R2 struct {
	AccountID  string
	AccessKey  string
	SecretKey  string
	BucketName string
	PublicURL  string
}

// Workers holds the tunables shared by the scheduler and the background workers.
type Workers struct {
	SchedulerInterval     time.Duration `envconfig:"SCHEDULER_INTERVAL" default:"1m"`
	BatchSize             int           `envconfig:"SCHEDULER_BATCH_SIZE" default:"10"`
	MaxRetries            int           `envconfig:"MAX_RETRIES" default:"3"`
	RetryDelay            time.Duration `envconfig:"RETRY_DELAY" default:"60s"`
	RetryInterval         time.Duration `envconfig:"RETRY_INTERVAL" default:"5m"`
	PostDelay             time.Duration `envconfig:"POST_DELAY" default:"2s"`
	CrossPostDelay        time.Duration `envconfig:"CROSS_POST_DELAY" default:"2s"`
	ContainerPollInterval time.Duration `envconfig:"CONTAINER_POLL_INTERVAL" default:"5s"`
	ContainerMaxWait      time.Duration `envconfig:"CONTAINER_MAX_WAIT" default:"5m"`

	TokenRefreshInterval  time.Duration `envconfig:"TOKEN_REFRESH_INTERVAL" default:"6h"`
	TokenLookahead        time.Duration `envconfig:"TOKEN_LOOKAHEAD" default:"168h"`
	TokenRefreshThreshold time.Duration `envconfig:"TOKEN_REFRESH_THRESHOLD" default:"24h"`
	AccountDelay          time.Duration `envconfig:"ACCOUNT_DELAY" default:"1s"`

	SyncInterval  time.Duration `envconfig:"SYNC_INTERVAL" default:"30m"`
	SyncBatchSize int           `envconfig:"SYNC_BATCH_SIZE" default:"50"`

	AnalyticsInterval  time.Duration `envconfig:"ANALYTICS_INTERVAL" default:"30m"`
	AnalyticsWindow    time.Duration `envconfig:"ANALYTICS_WINDOW" default:"720h"`
	AnalyticsPostLimit int           `envconfig:"ANALYTICS_POST_LIMIT" default:"25"`
}

type Config struct {
	InstagramClientID     string
	InstagramClientSecret string
	InstagramRedirectURI  string
	FacebookAppID         string
	FacebookAppSecret     string
	FacebookRedirectURI   string
	TiktokClientKey       string
	TiktokClientSecret    string
	TiktokRedirectURI     string
	GoogleClientID        string
	GoogleClientSecret    string
	GoogleRedirectURI     string
	LoginRedirectURI      string
	PostgresURI           string
	RedisURI              string
	FrontendURL           string
	Port                  string
	R2                    R2
	SecretKey             string
	CookieName            string
	Workers               Workers
}

func LoadConfig() (*Config, error) {
	cfg := &Config{
		InstagramClientID:     getEnv("INSTAGRAM_CLIENT_ID", ""),
		InstagramClientSecret: getEnv("INSTAGRAM_CLIENT_SECRET", ""),
		InstagramRedirectURI:  getEnv("INSTAGRAM_REDIRECT_URI", ""),
		FacebookAppID:         getEnv("FACEBOOK_APP_ID", ""),
		FacebookAppSecret:     getEnv("FACEBOOK_APP_SECRET", ""),
		FacebookRedirectURI:   getEnv("FACEBOOK_REDIRECT_URI", ""),
		TiktokClientKey:       getEnv("TIKTOK_CLIENT_KEY", ""),
		TiktokClientSecret:    getEnv("TIKTOK_CLIENT_SECRET", ""),
		TiktokRedirectURI:     getEnv("TIKTOK_REDIRECT_URI", ""),
		GoogleClientID:        getEnv("GOOGLE_CLIENT_ID", ""),
		GoogleClientSecret:    getEnv("GOOGLE_CLIENT_SECRET", ""),
		GoogleRedirectURI:     getEnv("GOOGLE_REDIRECT_URI", ""),
		LoginRedirectURI:      getEnv("LOGIN_REDIRECT_URI", "http://localhost:3000/login/callback"),
		PostgresURI:           getEnv("POSTGRES_URI", ""),
		RedisURI:              getEnv("REDIS_URI", "localhost:6379"),
		FrontendURL:           getEnv("FRONTEND_URL", "http://localhost:5173"),
		Port:                  getEnv("PORT", "3000"),
		R2: R2{
			AccountID:  getEnv("R2_ACCOUNT_ID", ""),
			AccessKey:  getEnv("R2_ACCESS_KEY", ""),
			SecretKey:  getEnv("R2_SECRET_KEY", ""),
			BucketName: getEnv("R2_BUCKET_NAME", ""),
			PublicURL:  getEnv("R2_PUBLIC_URL", ""),
		},
		SecretKey:  getEnv("SECRET_KEY", ""),
		CookieName: getEnv("COOKIE_NAME", "socialflow_session"),
	}

	switch len(cfg.SecretKey) {
	case 16, 24, 32:
	default:
		return nil, fmt.Errorf("SECRET_KEY must be 16, 24 or 32 bytes, got %d", len(cfg.SecretKey))
	}

	if err := envconfig.Process("socialflow", &cfg.Workers); err != nil {
		return nil, fmt.Errorf("failed to load worker settings: %w", err)
	}
	if err := cfg.Workers.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (w Workers) Validate() error {
	switch {
	case w.BatchSize <= 0:
		return errors.New("scheduler batch size must be positive")
	case w.MaxRetries <= 0:
		return errors.New("max retries must be positive")
	case w.ContainerPollInterval <= 0 || w.ContainerMaxWait < w.ContainerPollInterval:
		return errors.New("container max wait must be at least one poll interval")
	case w.SyncBatchSize <= 0:
		return errors.New("sync batch size must be positive")
	}
	return nil
}

// AttemptTimeout bounds one publish attempt on a claimed post, including
// container processing and the writes that settle it.
func (w Workers) AttemptTimeout() time.Duration {
	return w.ContainerMaxWait*2 + time.Minute
}

// PassTimeout bounds a scheduler or retry pass over a full batch. A post
// pending for longer than this was abandoned by its worker.
func (w Workers) PassTimeout() time.Duration {
	return time.Duration(w.BatchSize) * (w.AttemptTimeout() + w.PostDelay)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
