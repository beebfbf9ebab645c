package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/repolens/repolens"
	"github.com/repolens/repolens/application/service"
	"github.com/repolens/repolens/domain/repository"
	"github.com/repolens/repolens/infrastructure/api/v1/dto"
)

// analyzePollInterval is how often the one-shot command checks for queue
// drain; it doubles as the worker poll period so tasks start promptly.
const analyzePollInterval = 100 * time.Millisecond

func analyzeCmd() *cobra.Command {
	var envFile string

	cmd := &cobra.Command{
		Use:   "analyze <remote-url>",
		Short: "Run a full analysis of one repository and print the report",
		Long: `Run a full analysis of one repository and print the risk report as JSON.

The repository is cloned, scanned, and parsed; the command exits when the
run is finished. Results are persisted to the configured database so later
runs and the API see them too.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAnalyze(cmd.Context(), envFile, args[0])
		},
	}

	cmd.Flags().StringVar(&envFile, "env-file", "", "Path to .env file (default: .env in current directory)")

	return cmd
}

func runAnalyze(ctx context.Context, envFile, remoteURL string) error {
	cfg, err := loadConfig(envFile)
	if err != nil {
		return err
	}
	logger := newLogger(cfg)

	opts := append(clientOptions(cfg),
		repolens.WithLogger(logger.Slog()),
		repolens.WithWorkerPollPeriod(analyzePollInterval),
	)
	client, err := repolens.New(opts...)
	if err != nil {
		return err
	}
	defer func() { _ = client.Close() }()

	owner, name, err := service.ParseRemoteURL(remoteURL)
	if err != nil {
		return err
	}

	repo, err := client.Repositories.Submit(ctx, owner, name, remoteURL)
	if err != nil {
		return err
	}

	if err := waitForTasks(ctx, client); err != nil {
		return err
	}

	repo, err = client.Repositories.Get(ctx, repo.ID())
	if err != nil {
		return err
	}
	if repo.Status() == repository.StatusFailed {
		return fmt.Errorf("analysis failed: %s", repo.LastError())
	}

	report, err := client.Risk.Report(ctx, repo.ID())
	if err != nil {
		return err
	}

	output := struct {
		Repository dto.Repository `json:"repository"`
		Report     dto.RiskReport `json:"report"`
	}{
		Repository: dto.FromRepository(repo),
		Report:     dto.FromRiskReport(report),
	}

	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(output)
}

// waitForTasks blocks until the queue is drained and no task is executing.
// A task is only deleted after its handler returns, but the claim happens a
// moment before the worker registers as busy, so several consecutive idle
// polls are required before declaring the run finished.
func waitForTasks(ctx context.Context, client *repolens.Client) error {
	const stableRequired = 3

	ticker := time.NewTicker(analyzePollInterval)
	defer ticker.Stop()

	stable := 0
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}

		pending, err := client.Tasks.Pending(ctx)
		if err != nil {
			return err
		}
		if pending == 0 && client.WorkerIdle() {
			stable++
			if stable >= stableRequired {
				return nil
			}
		} else {
			stable = 0
		}
	}
}
