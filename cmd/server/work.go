package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

// newWorkCmd runs a single pass of one worker, for deployments that trigger
// the workers from an external scheduler instead of `serve`.
func newWorkCmd() *cobra.Command {
	return &cobra.Command{
		Use:       "work scheduler|retry|tokens|sync|analytics",
		Short:     "Run one pass of a background worker and exit",
		Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		ValidArgs: []string{"scheduler", "retry", "tokens", "sync", "analytics"},
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.close()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			report, err := a.runOnce(ctx, args[0])
			if err != nil {
				return err
			}
			slog.Info("worker pass finished", "worker", args[0], "report", fmt.Sprintf("%+v", report))
			return nil
		},
	}
}

func (a *app) runOnce(ctx context.Context, worker string) (any, error) {
	switch worker {
	case "scheduler":
		return a.publish.Tick(ctx)
	case "retry":
		return a.publish.RetryFailedPosts(ctx)
	case "tokens":
		return a.tokens.RefreshTokens(ctx)
	case "sync":
		return a.sync.SyncAccounts(ctx)
	case "analytics":
		return a.analytics.FetchMetrics(ctx)
	}
	return nil, fmt.Errorf("unknown worker %q", worker)
}
