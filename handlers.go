package repolens

import (
	"fmt"
	"log/slog"

	"github.com/repolens/repolens/application/handler"
	"github.com/repolens/repolens/domain/task"
	"github.com/repolens/repolens/infrastructure/scanning"
	"github.com/repolens/repolens/internal/config"
)

// registerHandlers binds each queue operation to its handler. Every
// operation in the analysis sequence must have a handler or the worker
// drops its tasks.
func (c *Client) registerHandlers() {
	c.registry.Register(task.OperationCloneRepository, handler.NewCloneHandler(
		c.repos, c.cloner, c.logger,
	))
	c.registry.Register(task.OperationAnalyzeRepository, handler.NewAnalyzeHandler(
		c.repos, c.pipeline, c.logger,
	))
	c.registry.Register(task.OperationHistoryRepository, handler.NewHistoryHandler(
		c.repos, c.cloner, c.analyzer, c.busFactors, c.logger,
	))
}

// buildScanner creates the security scanner, loading any extra rules file.
func buildScanner(cfg config.AppConfig, logger *slog.Logger) (*scanning.Scanner, error) {
	var opts []scanning.ScannerOption
	if path := cfg.RulesFile(); path != "" {
		rules, errs := scanning.LoadRulesFile(path)
		for _, err := range errs {
			logger.Warn("skipping invalid security rule", slog.String("error", err.Error()))
		}
		if len(rules) == 0 && len(errs) > 0 {
			return nil, fmt.Errorf("rules file %s yielded no usable rules", path)
		}
		opts = append(opts, scanning.WithExtraRules(rules))
	}
	return scanning.NewScanner(logger, opts...), nil
}
