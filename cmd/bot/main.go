package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/jollyunion/unionkeeper/internal/config"
	"github.com/jollyunion/unionkeeper/internal/storage"

	"github.com/fatih/color"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

// Set by ldflags
var (
	version = "dev"
	commit  = "none"
)

func main() {
	// Create context for graceful shutdown
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := rootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		cancel()
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "unionkeeper",
		Short:         "Keeps the group index channel pointing at live groups",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(_ *cobra.Command, _ []string) {
			// Load .env file (ignore error if file doesn't exist)
			_ = godotenv.Load()
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd.Context())
		},
	}
	root.AddCommand(runCmd(), seedCmd(), versionCmd())
	return root
}

func runCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run the bot and both user sessions (default)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd.Context())
		},
	}
}

func seedCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "seed <file.yaml>",
		Short: "Import templates and groups from a YAML file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer func() { _ = f.Close() }()

			path := config.DatabasePath()
			db, queue, err := storage.Open(path)
			if err != nil {
				return err
			}
			defer func() { _ = db.Close() }()
			defer queue.Close()

			result, err := storage.Seed(cmd.Context(), queue, f)
			if err != nil {
				return fmt.Errorf("failed to import %s: %w", args[0], err)
			}

			color.New(color.FgGreen).Fprintf(cmd.OutOrStdout(),
				"Imported %d templates and %d groups into %s\n", result.Templates, result.Groups, path)
			return nil
		},
	}
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "unionkeeper %s (commit: %s)\n", version, commit)
		},
	}
}
