package main

import (
	"context"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/uptrace/bun"

	"ms-invites/internal/config"
	"ms-invites/internal/database"
	"ms-invites/internal/logger"
)

var verbose bool

var rootCmd = &cobra.Command{
	Use:   "invitectl",
	Short: "Operator tool for the invite bot database",
	Long: `invitectl manages the invite bot outside the chat.

It applies schema migrations, issues tickets to disk and reports or
purges what has been issued. Connection settings come from the same
environment variables (or .env file) the bot reads.`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		_ = godotenv.Load()
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log connection attempts and progress")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newLogger() *logger.Logger {
	if verbose {
		return logger.New(os.Stderr, nil)
	}
	return logger.Discard()
}

// connect opens the database described by the environment. Only the database
// settings are validated so that the tool works without bot credentials.
func connect(ctx context.Context, log *logger.Logger) (*bun.DB, *config.Config, error) {
	cfg := config.Load()
	if err := cfg.Database.Validate(); err != nil {
		return nil, nil, fmt.Errorf("invalid database configuration: %w", err)
	}
	bunDB, err := database.Open(ctx, cfg.Database, log)
	if err != nil {
		return nil, nil, err
	}
	return bunDB, cfg, nil
}
