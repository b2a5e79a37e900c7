package main

import (
	"database/sql"
	"fmt"
	"log"
	"os"

	"github.com/hibiken/asynq"
	_ "github.com/lib/pq"
	config "github.com/maheshrc27/socialflow/configs"
	"github.com/maheshrc27/socialflow/internal/clock"
	job "github.com/maheshrc27/socialflow/internal/jobs"
	"github.com/maheshrc27/socialflow/internal/network"
	"github.com/maheshrc27/socialflow/internal/publisher"
	"github.com/maheshrc27/socialflow/internal/repository"
)

// app holds what every subcommand shares: configuration, the database and
// the background jobs built on top of it.
type app struct {
	cfg      *config.Config
	db       *sql.DB
	registry *network.Registry
	clock    clock.Clock

	posts    repository.PostRepository
	accounts repository.SocialAccountRepository
	media    repository.MediaAssetRepository
	links    repository.PostMediaRepository
	history  repository.PostingHistoryRepository
	metrics  repository.MetricsRepository
	users    repository.UserRepository

	publisher *publisher.Publisher
	publish   *job.PublishJob
	tokens    *job.TokenRefreshJob
	sync      *job.AccountSyncJob
	analytics *job.AnalyticsJob
}

func openDB(cfg *config.Config) (*sql.DB, error) {
	db, err := sql.Open("postgres", cfg.PostgresURI)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("database is unreachable: %w", err)
	}
	return db, nil
}

func newApp() (*app, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, err
	}

	db, err := openDB(cfg)
	if err != nil {
		return nil, err
	}

	a := &app{
		cfg:      cfg,
		db:       db,
		registry: network.NewRegistry(cfg, nil),
		clock:    clock.Real{},
		posts:    repository.NewPostRepository(db),
		accounts: repository.NewSocialAccountRepository(db),
		media:    repository.NewMediaAssetRepository(db),
		links:    repository.NewPostMediaRepository(db),
		history:  repository.NewPostingHistoryRepository(db),
		metrics:  repository.NewMetricsRepository(db),
		users:    repository.NewUserRepository(db),
	}
	log.Printf("Networks available: %s", a.registry)

	a.publisher = publisher.New(a.registry, a.clock, cfg.SecretKey, publisher.OptionsFrom(cfg.Workers))
	a.publish = job.NewPublishJob(a.posts, a.accounts, a.media, a.history, a.publisher, a.clock, cfg.Workers)
	a.tokens = job.NewTokenRefreshJob(a.accounts, a.registry, a.clock, cfg.SecretKey, cfg.Workers)
	a.sync = job.NewAccountSyncJob(a.accounts, a.metrics, a.registry, a.clock, cfg.SecretKey, cfg.Workers)
	a.analytics = job.NewAnalyticsJob(a.accounts, a.posts, a.metrics, a.registry, a.clock, cfg.SecretKey, cfg.Workers)
	return a, nil
}

func (a *app) redisOpt() asynq.RedisClientOpt {
	return asynq.RedisClientOpt{Addr: a.cfg.RedisURI}
}

func (a *app) close() {
	fmt.Fprint(os.Stdout, "Closing database connection... ")
	if err := a.db.Close(); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to close database: %v", err)
		return
	}
	fmt.Fprintln(os.Stdout, "Done")
}
