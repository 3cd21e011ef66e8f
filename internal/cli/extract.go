package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/mvp-joe/logsift/internal/batch"
	"github.com/mvp-joe/logsift/internal/config"
)

var (
	outputFlag      string
	formatFlag      string
	noHeaderFlag    bool
	workersFlag     int
	placeholderFlag string
)

// extractCmd represents the extract command
var extractCmd = &cobra.Command{
	Use:   "extract [paths...]",
	Short: "Extract logging calls from Python files",
	Long: `Extract walks the given files and directories (default: the current
directory), finds every Python logging call and writes one row per call:
line number, level, reconstructed message and absolute file path.

Examples:
  # Write CSV to stdout
  logsift extract ./src

  # Write CSV to a file without a header row
  logsift extract ./src -o logs.csv --no-header

  # Store the run in SQLite
  logsift extract ./src --format sqlite -o .logsift/logs.db
`,
	RunE: runExtract,
}

func init() {
	rootCmd.AddCommand(extractCmd)
	addOutputFlags(extractCmd)
}

// addOutputFlags registers the flags shared by extract and watch.
func addOutputFlags(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&outputFlag, "output", "o", "", "output path (csv defaults to stdout)")
	cmd.Flags().StringVarP(&formatFlag, "format", "f", "", "output format: csv or sqlite")
	cmd.Flags().BoolVar(&noHeaderFlag, "no-header", false, "omit the csv header row")
	cmd.Flags().IntVarP(&workersFlag, "workers", "j", 0, "files processed concurrently (default: one per CPU)")
	cmd.Flags().StringVar(&placeholderFlag, "placeholder", "", "token for unresolvable message parts")
}

// commandConfig loads the config and applies the flags that were set.
func commandConfig(cmd *cobra.Command) (*config.Config, error) {
	wd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("failed to get working directory: %w", err)
	}
	cfg, err := loadConfig(wd)
	if err != nil {
		return nil, err
	}

	flags := cmd.Flags()
	if flags.Changed("output") {
		cfg.Output.Path = outputFlag
	}
	if flags.Changed("format") {
		cfg.Output.Format = formatFlag
	}
	if flags.Changed("no-header") {
		cfg.Output.Header = !noHeaderFlag
	}
	if flags.Changed("workers") {
		cfg.Workers = workersFlag
	}
	if flags.Changed("placeholder") {
		cfg.Extraction.Placeholder = placeholderFlag
	}

	if err := config.Validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func runExtract(cmd *cobra.Command, args []string) error {
	ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	cfg, err := commandConfig(cmd)
	if err != nil {
		return err
	}

	var progress batch.ProgressReporter = batch.NoOpProgressReporter{}
	if !quiet {
		progress = NewCLIProgressReporter(cmd.ErrOrStderr())
	}

	_, err = extract(ctx, extractRequest{
		Config:   cfg,
		Roots:    args,
		Progress: progress,
		Stdout:   cmd.OutOrStdout(),
		Logger:   slog.Default(),
	})
	return err
}

type extractRequest struct {
	Config   *config.Config
	Roots    []string
	Progress batch.ProgressReporter
	Stdout   io.Writer
	Logger   *slog.Logger
}

// extract runs one batch over the roots and writes the configured output.
func extract(ctx context.Context, req extractRequest) (batch.Summary, error) {
	p, err := newPipeline(req.Config, req.Roots, req.Logger)
	if err != nil {
		return batch.Summary{}, err
	}
	defer p.Close()

	paths, err := p.discover()
	if err != nil {
		return batch.Summary{}, err
	}
	if req.Progress != nil {
		req.Progress.OnDiscoveryComplete(len(paths))
	}

	results, err := p.run(ctx, paths, req.Progress)
	if err != nil {
		return batch.Summary{}, fmt.Errorf("extraction cancelled: %w", err)
	}

	sink, err := newResultSink(req.Config.Output, p.rootLabel(), p.placeholder(), req.Stdout)
	if err != nil {
		return batch.Summary{}, err
	}
	if err := sink.Update(results, nil, results); err != nil {
		sink.Close()
		return batch.Summary{}, fmt.Errorf("failed to write output: %w", err)
	}
	if err := sink.Close(); err != nil {
		return batch.Summary{}, fmt.Errorf("failed to write output: %w", err)
	}

	return batch.Summarize(results, p.placeholder()), nil
}
