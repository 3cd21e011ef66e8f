// Package batch runs the extractor over many files: discovery, a bounded
// worker pool, a content-hash result cache and progress reporting.
package batch

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/mvp-joe/logsift/internal/extractor"
)

// FileResult is the outcome of extracting one file. Err is set when the
// file could not be read or parsed; the file then has no records.
type FileResult struct {
	Path        string
	Hash        string
	Records     []extractor.Record
	Diagnostics []extractor.Diagnostic
	Err         error
	// Cached is true when the result came from the cache.
	Cached bool
}

// HasRecords reports whether the file contains any extracted logging call.
func (r FileResult) HasRecords() bool {
	return r.Err == nil && len(r.Records) > 0
}

// RunnerOption configures a Runner.
type RunnerOption func(*Runner)

// WithWorkers bounds the number of files processed at once. Values below
// one mean runtime.NumCPU().
func WithWorkers(n int) RunnerOption {
	return func(r *Runner) { r.workers = n }
}

// WithCache reuses results of files whose content has not changed.
func WithCache(c *ResultCache) RunnerOption {
	return func(r *Runner) { r.cache = c }
}

// WithProgress reports per-file progress.
func WithProgress(p ProgressReporter) RunnerOption {
	return func(r *Runner) {
		if p != nil {
			r.progress = p
		}
	}
}

// WithLogger sets the logger for file-level failures.
func WithLogger(l *slog.Logger) RunnerOption {
	return func(r *Runner) {
		if l != nil {
			r.logger = l
		}
	}
}

// Runner extracts many files concurrently with one shared Extractor.
type Runner struct {
	extractor *extractor.Extractor
	workers   int
	cache     *ResultCache
	progress  ProgressReporter
	logger    *slog.Logger
}

// NewRunner creates a Runner.
func NewRunner(ex *extractor.Extractor, opts ...RunnerOption) *Runner {
	r := &Runner{
		extractor: ex,
		progress:  NoOpProgressReporter{},
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.workers < 1 {
		r.workers = runtime.NumCPU()
	}
	return r
}

// Run extracts every path. Results are indexed like paths. A file that
// fails is reported in its FileResult and does not stop the others; only
// context cancellation makes Run return an error, together with the results
// completed so far.
func (r *Runner) Run(ctx context.Context, paths []string) ([]FileResult, error) {
	results := make([]FileResult, len(paths))
	if len(paths) == 0 {
		r.progress.OnComplete(Summarize(results, r.extractor.Config().Placeholder))
		return results, nil
	}

	// Each goroutine writes only its own index, so results needs no lock.
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(min(r.workers, len(paths)))

	for i, path := range paths {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			results[i] = r.processFile(gctx, path)
			r.progress.OnFileProcessed(path, len(results[i].Records))
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return results, err
	}
	if err := ctx.Err(); err != nil {
		return results, err
	}

	r.progress.OnComplete(Summarize(results, r.extractor.Config().Placeholder))
	return results, nil
}

func (r *Runner) processFile(ctx context.Context, path string) FileResult {
	data, err := os.ReadFile(path)
	if err != nil {
		r.logger.Warn("failed to read file", "file", path, "error", err)
		return FileResult{Path: path, Err: fmt.Errorf("failed to read %s: %w", path, err)}
	}

	hash := ContentHash(data)
	if r.cache != nil {
		if res, ok := r.cache.Get(path, hash); ok {
			return newFileResult(path, hash, res, true)
		}
	}

	res, err := r.extractor.Extract(ctx, path, data)
	if err != nil {
		r.logger.Warn("failed to extract file", "file", path, "error", err)
		return FileResult{Path: path, Hash: hash, Err: err}
	}
	if r.cache != nil {
		r.cache.Set(path, hash, res)
	}
	return newFileResult(path, hash, res, false)
}

func newFileResult(path, hash string, res *extractor.Result, cached bool) FileResult {
	return FileResult{
		Path:        path,
		Hash:        hash,
		Records:     res.Records,
		Diagnostics: res.Diagnostics,
		Cached:      cached,
	}
}
