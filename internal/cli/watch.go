package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"os/signal"
	"sort"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/mvp-joe/logsift/internal/batch"
	"github.com/mvp-joe/logsift/internal/config"
	"github.com/mvp-joe/logsift/internal/watcher"
)

var debounceFlag time.Duration

// watchCmd represents the watch command
var watchCmd = &cobra.Command{
	Use:   "watch [paths...]",
	Short: "Extract logging calls and re-extract files as they change",
	Long: `Watch performs a full extraction, then keeps the output up to date as
Python files are created, modified or removed. CSV files are rewritten,
SQLite runs are updated in place and CSV on stdout receives the rows of
each changed file.

Stop with Ctrl+C.`,
	RunE: runWatch,
}

func init() {
	rootCmd.AddCommand(watchCmd)
	addOutputFlags(watchCmd)
	watchCmd.Flags().DurationVar(&debounceFlag, "debounce", watcher.DefaultDebounce, "quiet period before changed files are processed")
}

func runWatch(cmd *cobra.Command, args []string) error {
	ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	cfg, err := commandConfig(cmd)
	if err != nil {
		return err
	}

	return watch(ctx, watchRequest{
		Config:   cfg,
		Roots:    args,
		Debounce: debounceFlag,
		Stdout:   cmd.OutOrStdout(),
		Stderr:   cmd.ErrOrStderr(),
		Quiet:    quiet,
		Logger:   slog.Default(),
	})
}

type watchRequest struct {
	Config   *config.Config
	Roots    []string
	Debounce time.Duration
	Stdout   io.Writer
	Stderr   io.Writer
	Quiet    bool
	Logger   *slog.Logger
}

// watch blocks until ctx is done.
func watch(ctx context.Context, req watchRequest) error {
	session, err := newWatchSession(req)
	if err != nil {
		return err
	}
	defer session.Close()

	if err := session.initial(ctx); err != nil {
		return err
	}

	fw, err := watcher.NewFileWatcher(session.pipeline.watchDirs(),
		watcher.WithFilter(session.pipeline.matches),
		watcher.WithDebounce(req.Debounce),
		watcher.WithLogger(session.logger),
	)
	if err != nil {
		return fmt.Errorf("failed to start watcher: %w", err)
	}
	defer fw.Stop()

	err = fw.Start(ctx, func(files []string) {
		// Changes arriving meanwhile are replayed on Resume.
		fw.Pause()
		defer fw.Resume()

		if err := session.handleChanges(ctx, files); err != nil && ctx.Err() == nil {
			session.logger.Error("failed to process changes", "error", err)
		}
	})
	if err != nil {
		return fmt.Errorf("failed to start watcher: %w", err)
	}

	if !req.Quiet {
		fmt.Fprintln(req.Stderr, "Watching for changes...")
	}
	<-ctx.Done()
	if !req.Quiet {
		fmt.Fprintln(req.Stderr, "Watch mode stopped")
	}
	return nil
}

// watchSession holds the current result set between change batches.
type watchSession struct {
	pipeline *pipeline
	sink     resultSink
	results  map[string]batch.FileResult
	stderr   io.Writer
	quiet    bool
	logger   *slog.Logger
}

func newWatchSession(req watchRequest) (*watchSession, error) {
	logger := req.Logger
	if logger == nil {
		logger = slog.Default()
	}
	p, err := newPipeline(req.Config, req.Roots, logger)
	if err != nil {
		return nil, err
	}
	sink, err := newResultSink(req.Config.Output, p.rootLabel(), p.placeholder(), req.Stdout)
	if err != nil {
		p.Close()
		return nil, err
	}
	return &watchSession{
		pipeline: p,
		sink:     sink,
		results:  make(map[string]batch.FileResult),
		stderr:   req.Stderr,
		quiet:    req.Quiet,
		logger:   logger,
	}, nil
}

// initial extracts every discovered file.
func (s *watchSession) initial(ctx context.Context) error {
	paths, err := s.pipeline.discover()
	if err != nil {
		return err
	}

	var progress batch.ProgressReporter = batch.NoOpProgressReporter{}
	if !s.quiet && s.stderr != nil {
		progress = NewCLIProgressReporter(s.stderr)
	}
	progress.OnDiscoveryComplete(len(paths))

	results, err := s.pipeline.run(ctx, paths, progress)
	if err != nil {
		return fmt.Errorf("initial extraction cancelled: %w", err)
	}
	for _, res := range results {
		s.results[res.Path] = res
	}
	if err := s.sink.Update(results, nil, s.all()); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

// handleChanges re-extracts files that still exist and drops the rest.
func (s *watchSession) handleChanges(ctx context.Context, files []string) error {
	var existing, removed []string
	for _, f := range files {
		info, err := os.Stat(f)
		switch {
		case errors.Is(err, fs.ErrNotExist):
			if _, ok := s.results[f]; ok {
				removed = append(removed, f)
				delete(s.results, f)
			}
		case err != nil:
			s.logger.Warn("failed to stat changed file", "file", f, "error", err)
		case !info.IsDir():
			existing = append(existing, f)
		}
	}
	if len(existing) == 0 && len(removed) == 0 {
		return nil
	}

	changed, err := s.pipeline.run(ctx, existing, nil)
	if err != nil {
		return err
	}
	for _, res := range changed {
		s.results[res.Path] = res
	}

	if err := s.sink.Update(changed, removed, s.all()); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}

	summary := batch.Summarize(changed, s.pipeline.placeholder())
	s.logger.Info("processed changes",
		"changed", len(changed),
		"removed", len(removed),
		"records", summary.Records,
		"failed", summary.FilesFailed)
	if !s.quiet && s.stderr != nil {
		fmt.Fprintf(s.stderr, "✓ %d changed, %d removed: %s records\n",
			len(changed), len(removed), formatNumber(summary.Records))
	}
	return nil
}

// all returns the current results ordered by path.
func (s *watchSession) all() []batch.FileResult {
	out := make([]batch.FileResult, 0, len(s.results))
	for _, res := range s.results {
		out = append(out, res)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out
}

func (s *watchSession) Close() error {
	defer s.pipeline.Close()
	return s.sink.Close()
}
