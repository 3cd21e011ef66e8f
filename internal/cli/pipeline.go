package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/mvp-joe/logsift/internal/batch"
	"github.com/mvp-joe/logsift/internal/config"
	"github.com/mvp-joe/logsift/internal/extractor"
)

// pipeline wires discovery, the shared extractor and the result cache for
// one command invocation.
type pipeline struct {
	cfg         *config.Config
	extractor   *extractor.Extractor
	cache       *batch.ResultCache
	logger      *slog.Logger
	roots       []string
	discoveries []*batch.Discovery
}

// newPipeline resolves roots to absolute paths and compiles the path
// patterns for each of them.
func newPipeline(cfg *config.Config, roots []string, logger *slog.Logger) (*pipeline, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if len(roots) == 0 {
		roots = []string{"."}
	}

	includes := cfg.Paths.Include
	if len(includes) == 0 {
		includes = batch.DefaultIncludes
	}

	p := &pipeline{
		cfg:       cfg,
		extractor: extractor.New(cfg.ExtractorConfig(), extractor.WithLogger(logger)),
		logger:    logger,
	}
	for _, root := range roots {
		abs, err := filepath.Abs(root)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve %s: %w", root, err)
		}
		d, err := batch.NewDiscovery(abs, includes, cfg.Paths.Ignore)
		if err != nil {
			return nil, err
		}
		p.roots = append(p.roots, abs)
		p.discoveries = append(p.discoveries, d)
	}

	if cfg.Cache.Size > 0 {
		cache, err := batch.NewResultCache(cfg.Cache.Size)
		if err != nil {
			return nil, err
		}
		p.cache = cache
	}
	return p, nil
}

// discover lists matching files under every root, without duplicates.
func (p *pipeline) discover() ([]string, error) {
	seen := make(map[string]bool)
	var files []string
	for i, d := range p.discoveries {
		found, err := d.Discover()
		if err != nil {
			return nil, fmt.Errorf("failed to discover files in %s: %w", p.roots[i], err)
		}
		for _, f := range found {
			if !seen[f] {
				seen[f] = true
				files = append(files, f)
			}
		}
	}
	return files, nil
}

// matches reports whether an absolute path would be discovered.
func (p *pipeline) matches(path string) bool {
	for i, root := range p.roots {
		if path == root {
			return true
		}
		rel, err := filepath.Rel(root, path)
		if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
			continue
		}
		if p.discoveries[i].Matches(filepath.ToSlash(rel)) {
			return true
		}
	}
	return false
}

// watchDirs returns the directories to watch: each root, or the parent of a
// file root.
func (p *pipeline) watchDirs() []string {
	seen := make(map[string]bool)
	var dirs []string
	for _, root := range p.roots {
		dir := root
		if info, err := os.Stat(root); err == nil && !info.IsDir() {
			dir = filepath.Dir(root)
		}
		if !seen[dir] {
			seen[dir] = true
			dirs = append(dirs, dir)
		}
	}
	return dirs
}

// run extracts paths with the configured worker count.
func (p *pipeline) run(ctx context.Context, paths []string, progress batch.ProgressReporter) ([]batch.FileResult, error) {
	opts := []batch.RunnerOption{
		batch.WithWorkers(p.cfg.Workers),
		batch.WithLogger(p.logger),
	}
	if progress != nil {
		opts = append(opts, batch.WithProgress(progress))
	}
	if p.cache != nil {
		opts = append(opts, batch.WithCache(p.cache))
	}
	return batch.NewRunner(p.extractor, opts...).Run(ctx, paths)
}

func (p *pipeline) placeholder() string {
	return p.extractor.Config().Placeholder
}

// rootLabel names the run in stored output.
func (p *pipeline) rootLabel() string {
	return strings.Join(p.roots, string(filepath.ListSeparator))
}

func (p *pipeline) Close() {
	if p.cache != nil {
		p.logger.Debug("result cache", "hit_ratio", p.cache.HitRatio())
		p.cache.Close()
	}
}
