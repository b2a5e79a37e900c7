package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/hibiken/asynq"
	"github.com/maheshrc27/socialflow/internal/api/handlers"
	"github.com/maheshrc27/socialflow/internal/api/middleware"
	"github.com/maheshrc27/socialflow/internal/queue"
	"github.com/maheshrc27/socialflow/internal/service"
	"github.com/robfig/cron"
	"github.com/spf13/cobra"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API, the task queue worker and the periodic jobs",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.close()
			return a.serve(cmd.Context())
		},
	}
}

func (a *app) serve(ctx context.Context) error {
	client := asynq.NewClient(a.redisOpt())
	defer client.Close()
	nudger := queue.NewEnqueuer(client)

	r2Service, err := service.NewR2Service(ctx, a.cfg.R2)
	if err != nil {
		return err
	}

	postService := service.NewPostService(a.db, a.posts, a.accounts, a.media, a.links, a.history, a.publisher, nudger, a.clock, a.cfg.Workers)
	platformService := service.NewPlatformService(a.cfg.SecretKey, a.registry, a.accounts, a.metrics, nudger)
	mediaService := service.NewMediaService(a.media, r2Service)
	authService := service.NewAuthService(*a.cfg, a.users, nil)

	app := fiber.New(fiber.Config{
		ReadTimeout:  10 * time.Minute,
		WriteTimeout: 10 * time.Minute,
		BodyLimit:    1024 * 1024 * 1024, // 1 GB
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			log.Printf("Error: %v", err)
			code := fiber.StatusInternalServerError
			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
			}
			return c.Status(code).JSON(fiber.Map{"error": err.Error()})
		},
	})

	app.Use(logger.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins:     a.cfg.FrontendURL,
		AllowMethods:     "GET,POST,PUT,DELETE,OPTIONS",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization",
		AllowCredentials: true,
		MaxAge:           3600,
	}))

	authMiddleware := middleware.NewAuthMiddleware(*a.cfg)

	auth := handlers.NewAuthHandler(*a.cfg, authService)
	app.Get("/login", auth.Login)
	app.Get("/login/callback", auth.LoginCallbackHandler)
	app.Post("/logout", auth.Logout)

	platform := handlers.NewPlatformHandler(platformService, *a.cfg)
	app.Get("/auth/:platform", authMiddleware.AuthMiddleware(), platform.AddSocialAccount)
	app.Get("/auth/:platform/callback", platform.CallbackHandler)

	api := app.Group("/api")
	api.Use(authMiddleware.AuthMiddleware())

	api.Get("/me", auth.Me)

	post := handlers.NewPostHandler(postService)
	api.Post("/posts", post.CreatePost)
	api.Post("/posts/publish-now", post.PublishNow)
	api.Post("/posts/retry", post.RetryFailed)
	api.Get("/posts", post.ListPosts)
	api.Get("/posts/:id", post.GetPost)
	api.Get("/posts/:id/history", post.PostHistory)
	api.Post("/posts/:id/cancel", post.CancelPost)
	api.Post("/posts/:id/reschedule", post.ReschedulePost)
	api.Delete("/posts/:id", post.RemovePost)

	media := handlers.NewMediaHandler(mediaService)
	api.Post("/media", media.Upload)
	api.Get("/media/:id", media.GetMedia)

	// social accounts api routes
	api.Get("/networks", platform.ListNetworks)
	api.Get("/accounts", platform.ListSocialAccounts)
	api.Post("/accounts/:id/sync", platform.SyncSocialAccount)
	api.Delete("/accounts/:id", platform.DeleteSocialAccount)

	w := a.cfg.Workers
	c := cron.New()
	for _, j := range []struct {
		every time.Duration
		run   func()
	}{
		{w.SchedulerInterval, a.publish.RunTick},
		{w.RetryInterval, a.publish.RunRetry},
		{w.TokenRefreshInterval, a.tokens.Run},
		{w.SyncInterval, a.sync.Run},
		{w.AnalyticsInterval, a.analytics.Run},
	} {
		if err := c.AddFunc(fmt.Sprintf("@every %s", j.every), j.run); err != nil {
			return fmt.Errorf("invalid job interval %s: %w", j.every, err)
		}
	}
	c.Start()
	defer c.Stop()

	server := asynq.NewServer(a.redisOpt(), asynq.Config{
		Concurrency: 10,
	})
	mux := asynq.NewServeMux()
	queue.NewQueue(a.publish, a.sync).Register(mux)

	go func() {
		log.Println("Starting the Asynq server...")
		if err := server.Run(mux); err != nil {
			log.Fatalf("Could not start Asynq server: %v", err)
		}
	}()

	go func() {
		if err := app.Listen(":" + a.cfg.Port); err != nil {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()
	log.Printf("Server is running on http://localhost:%s", a.cfg.Port)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	server.Shutdown()
	if err := app.Shutdown(); err != nil {
		return fmt.Errorf("failed to shut down server: %w", err)
	}
	log.Println("Server shutdown complete.")
	return nil
}
