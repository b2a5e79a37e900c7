package main

import (
	"context"
	"log"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: Failed to load environment variables", err)
	}

	root := &cobra.Command{
		Use:           "server",
		Short:         "Schedules and publishes posts to connected social networks",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newServeCmd(), newMigrateCmd(), newWorkCmd())

	if err := root.ExecuteContext(context.Background()); err != nil {
		log.Println(err)
		os.Exit(1)
	}
}
