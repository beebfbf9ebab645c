package service

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/repolens/repolens/domain/analysis"
	"github.com/repolens/repolens/domain/repository"
	"github.com/repolens/repolens/infrastructure/parsing"
	"github.com/repolens/repolens/infrastructure/scanning"
	"github.com/repolens/repolens/internal/config"
)

// fileParallelism bounds how many files one analysis run processes at once.
const fileParallelism = 8

// Pipeline ingests a cloned repository: it discovers candidate files,
// scans, parses, and extracts each one, persists the results, and updates
// the repository's aggregate fields.
type Pipeline struct {
	repos     repository.Store
	files     analysis.FileStore
	entities  analysis.EntityStore
	findings  analysis.FindingStore
	parser    *parsing.Parser
	extractor *parsing.Extractor
	scanner   *scanning.Scanner
	limits    config.Limits
	logger    *slog.Logger
}

// NewPipeline creates a Pipeline.
func NewPipeline(
	repos repository.Store,
	files analysis.FileStore,
	entities analysis.EntityStore,
	findings analysis.FindingStore,
	parser *parsing.Parser,
	extractor *parsing.Extractor,
	scanner *scanning.Scanner,
	limits config.Limits,
	logger *slog.Logger,
) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{
		repos:     repos,
		files:     files,
		entities:  entities,
		findings:  findings,
		parser:    parser,
		extractor: extractor,
		scanner:   scanner,
		limits:    limits,
		logger:    logger,
	}
}

// fileResult is what one file contributed to the run.
type fileResult struct {
	entities []analysis.CodeEntity
	findings []analysis.SecurityFinding
	language analysis.LanguageTag
	size     int64
}

// Run analyzes the repository's clone and persists everything it yields.
// Prior entities and findings are cleared first so a re-run replaces the
// previous pass instead of accumulating onto it. Per-file failures are
// logged and skipped; only storage and discovery errors fail the run.
func (p *Pipeline) Run(ctx context.Context, repo repository.Repository) (repository.Repository, error) {
	clonePath := repo.ClonePath()
	if clonePath == "" {
		return repo, fmt.Errorf("repository %s has no clone path", repo.FullName())
	}

	discovered, err := DiscoverFiles(clonePath, p.limits)
	if err != nil {
		return repo, err
	}
	p.logger.Info("ingestion started",
		slog.String("repository", repo.FullName()),
		slog.Int("files", len(discovered)),
	)

	if err := p.entities.DeleteByRepository(ctx, repo.ID()); err != nil {
		return repo, err
	}
	if err := p.findings.DeleteByRepository(ctx, repo.ID()); err != nil {
		return repo, err
	}

	var (
		mu      sync.Mutex
		results []fileResult
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(fileParallelism)
	for _, file := range discovered {
		file := file
		g.Go(func() error {
			if gctx.Err() != nil {
				return gctx.Err()
			}
			result, err := p.processFile(gctx, repo.ID(), file)
			if err != nil {
				p.logger.Warn("file analysis failed",
					slog.String("repository", repo.FullName()),
					slog.String("path", file.RelPath),
					slog.String("error", err.Error()),
				)
				return nil
			}
			mu.Lock()
			results = append(results, result)
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return repo, err
	}

	entities, findings, language, totalSize := collectResults(results, p.limits)

	savedEntities, err := p.entities.SaveAll(ctx, entities)
	if err != nil {
		return repo, err
	}
	savedFindings, err := p.findings.SaveAll(ctx, findings)
	if err != nil {
		return repo, err
	}

	score := analysis.RiskScore(analysis.CountFindings(savedFindings))
	if err := p.repos.RecordAnalysis(ctx, repo.ID(), string(language), totalSize, score); err != nil {
		return repo, err
	}
	repo = repo.WithLanguage(string(language)).
		WithSizeBytes(totalSize).
		WithRiskScore(score)

	p.logger.Info("ingestion finished",
		slog.String("repository", repo.FullName()),
		slog.Int("entities", len(savedEntities)),
		slog.Int("findings", len(savedFindings)),
		slog.Int("risk_score", score),
	)
	return repo, nil
}

// processFile handles one file: read once, scan the original buffer,
// parse and extract, then persist the (truncated) file record. Entities
// and findings come back bound to the stored file's ID.
func (p *Pipeline) processFile(ctx context.Context, repositoryID int64, file DiscoveredFile) (fileResult, error) {
	raw, err := os.ReadFile(file.AbsPath)
	if err != nil {
		return fileResult{}, fmt.Errorf("read %s: %w", file.RelPath, err)
	}

	content := string(raw)
	tag := analysis.DetectLanguage(file.RelPath)

	// The scanner always sees the full buffer, never the stored truncation.
	findings := p.scanner.Scan(repositoryID, file.RelPath, content)

	tree := p.parser.Parse(ctx, raw, tag)
	if tree != nil {
		defer tree.Close()
	}
	extraction := p.extractor.Extract(tree, raw, tag, repositoryID, file.RelPath)

	record := analysis.NewSourceFile(repositoryID, file.RelPath, content, tag, file.SizeBytes, file.ModifiedAt).
		WithImports(extraction.Imports())
	saved, err := p.files.Save(ctx, record)
	if err != nil {
		return fileResult{}, err
	}

	entities := extraction.Entities()
	for i := range entities {
		entities[i] = entities[i].WithFileID(saved.ID())
	}
	for i := range findings {
		findings[i] = findings[i].WithFileID(saved.ID())
	}

	return fileResult{
		entities: entities,
		findings: findings,
		language: tag,
		size:     file.SizeBytes,
	}, nil
}

// collectResults merges per-file results into deterministically ordered,
// capped slices plus the dominant language and total stored size. Files
// finish in arbitrary order under the errgroup, so results are sorted by
// path and line before the accumulation caps apply.
func collectResults(results []fileResult, limits config.Limits) ([]analysis.CodeEntity, []analysis.SecurityFinding, analysis.LanguageTag, int64) {
	var (
		entities  []analysis.CodeEntity
		findings  []analysis.SecurityFinding
		langBytes = make(map[analysis.LanguageTag]int64)
		totalSize int64
	)
	for _, r := range results {
		entities = append(entities, r.entities...)
		findings = append(findings, r.findings...)
		langBytes[r.language] += r.size
		totalSize += r.size
	}

	sort.SliceStable(entities, func(i, j int) bool {
		if entities[i].FilePath() != entities[j].FilePath() {
			return entities[i].FilePath() < entities[j].FilePath()
		}
		return entities[i].StartLine() < entities[j].StartLine()
	})
	sort.SliceStable(findings, func(i, j int) bool {
		if findings[i].FilePath() != findings[j].FilePath() {
			return findings[i].FilePath() < findings[j].FilePath()
		}
		return findings[i].LineNumber() < findings[j].LineNumber()
	})

	if len(entities) > limits.MaxEntitiesPerRepo() {
		entities = entities[:limits.MaxEntitiesPerRepo()]
	}
	if len(findings) > limits.MaxFindingsPerRepo() {
		findings = findings[:limits.MaxFindingsPerRepo()]
	}

	return entities, findings, dominantLanguage(langBytes), totalSize
}

// dominantLanguage picks the tag with the most bytes, smaller tag on ties.
func dominantLanguage(langBytes map[analysis.LanguageTag]int64) analysis.LanguageTag {
	best := analysis.LangUnknown
	var bestBytes int64 = -1
	for tag, n := range langBytes {
		if n > bestBytes || (n == bestBytes && tag < best) {
			best = tag
			bestBytes = n
		}
	}
	return best
}
