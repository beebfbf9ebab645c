package main

import (
	"context"
	"encoding/json"
	"os"

	"github.com/spf13/cobra"

	"github.com/repolens/repolens/infrastructure/api/v1/dto"
	"github.com/repolens/repolens/infrastructure/git"
	"github.com/repolens/repolens/infrastructure/history"
)

func historyCmd() *cobra.Command {
	var envFile string

	cmd := &cobra.Command{
		Use:   "history <path>",
		Short: "Compute the bus factor of a local clone and print it",
		Long: `Compute the bus-factor metric of an already-cloned repository and print
it as JSON. Nothing is persisted; this reads the local git history only.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHistory(cmd.Context(), envFile, args[0])
		},
	}

	cmd.Flags().StringVar(&envFile, "env-file", "", "Path to .env file (default: .env in current directory)")

	return cmd
}

func runHistory(ctx context.Context, envFile, path string) error {
	cfg, err := loadConfig(envFile)
	if err != nil {
		return err
	}
	logger := newLogger(cfg).Slog()

	adapter := git.NewGoGitAdapter(logger)
	commitLog, err := adapter.CommitLog(ctx, path)
	if err != nil {
		return err
	}

	metric := history.NewAnalyzer(logger).Analyze(0, commitLog)

	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(dto.FromBusFactor(metric))
}
