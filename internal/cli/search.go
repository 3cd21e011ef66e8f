package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"slices"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/mvp-joe/logsift/internal/batch"
	"github.com/mvp-joe/logsift/internal/config"
	"github.com/mvp-joe/logsift/internal/extractor"
	"github.com/mvp-joe/logsift/internal/search"
	"github.com/mvp-joe/logsift/internal/storage"
)

var (
	dbFlag    string
	runFlag   string
	levelFlag string
	fileFlag  string
	limitFlag int
	jsonFlag  bool
)

// searchCmd represents the search command
var searchCmd = &cobra.Command{
	Use:   "search QUERY [paths...]",
	Short: "Full-text search over extracted log messages",
	Long: `Search indexes extracted log messages and runs a query against them.
Records come from a fresh extraction of the given paths, or from a stored
SQLite run with --db. An empty query lists every record.

The query uses bleve query-string syntax: terms, "phrases", +required,
-excluded and wildcards.

Examples:
  logsift search "connection refused" ./src
  logsift search timeout --level error --file '*/handlers/*'
  logsift search "" --db .logsift/logs.db --limit 100
`,
	Args: cobra.MinimumNArgs(1),
	RunE: runSearch,
}

func init() {
	rootCmd.AddCommand(searchCmd)
	searchCmd.Flags().StringVar(&dbFlag, "db", "", "search a stored SQLite run instead of extracting")
	searchCmd.Flags().StringVar(&runFlag, "run", "", "run id to search (default: latest run)")
	searchCmd.Flags().StringVarP(&levelFlag, "level", "l", "", "only records at this level")
	searchCmd.Flags().StringVar(&fileFlag, "file", "", "only files matching this wildcard")
	searchCmd.Flags().IntVarP(&limitFlag, "limit", "n", 20, "maximum number of results")
	searchCmd.Flags().BoolVar(&jsonFlag, "json", false, "print results as JSON")
}

func runSearch(cmd *cobra.Command, args []string) error {
	ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	severity, err := parseSeverity(levelFlag)
	if err != nil {
		return err
	}

	req := searchRequest{
		Query:  args[0],
		Roots:  args[1:],
		DBPath: dbFlag,
		RunID:  runFlag,
		Options: search.Options{
			Severity: severity,
			FilePath: fileFlag,
			Limit:    limitFlag,
		},
		Logger: slog.Default(),
	}
	if req.DBPath == "" {
		if req.Config, err = commandConfig(cmd); err != nil {
			return err
		}
	}

	hits, err := searchRecords(ctx, req)
	if err != nil {
		return err
	}
	return printHits(cmd.OutOrStdout(), hits, jsonFlag)
}

func parseSeverity(s string) (extractor.Severity, error) {
	if s == "" {
		return "", nil
	}
	sev := extractor.Severity(strings.ToLower(s))
	if !slices.Contains(extractor.Severities, sev) {
		return "", fmt.Errorf("unknown level %q (valid: debug, info, warning, error, critical)", s)
	}
	return sev, nil
}

type searchRequest struct {
	Config  *config.Config
	Roots   []string
	DBPath  string
	RunID   string
	Query   string
	Options search.Options
	Logger  *slog.Logger
}

// searchRecords builds a throwaway index over the requested records and
// queries it.
func searchRecords(ctx context.Context, req searchRequest) ([]search.Hit, error) {
	var (
		results []batch.FileResult
		err     error
	)
	if req.DBPath != "" {
		results, err = loadRun(req.DBPath, req.RunID)
	} else {
		results, err = extractForSearch(ctx, req)
	}
	if err != nil {
		return nil, err
	}

	idx, err := search.NewIndex()
	if err != nil {
		return nil, err
	}
	defer idx.Close()

	if err := idx.IndexResults(ctx, results); err != nil {
		return nil, fmt.Errorf("failed to index records: %w", err)
	}
	return idx.Search(ctx, req.Query, req.Options)
}

func extractForSearch(ctx context.Context, req searchRequest) ([]batch.FileResult, error) {
	p, err := newPipeline(req.Config, req.Roots, req.Logger)
	if err != nil {
		return nil, err
	}
	defer p.Close()

	paths, err := p.discover()
	if err != nil {
		return nil, err
	}
	results, err := p.run(ctx, paths, nil)
	if err != nil {
		return nil, fmt.Errorf("extraction cancelled: %w", err)
	}
	return results, nil
}

// loadRun reads a stored run back into per-file results.
func loadRun(dbPath, runID string) ([]batch.FileResult, error) {
	if _, err := os.Stat(dbPath); err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db, err := storage.Open(dbPath)
	if err != nil {
		return nil, err
	}
	defer db.Close()

	reader := storage.NewRecordReader(db)
	if runID == "" {
		run, err := reader.LatestRun()
		if err != nil {
			return nil, err
		}
		runID = run.ID
	} else if _, err := reader.GetRun(runID); err != nil {
		return nil, err
	}

	records, err := reader.ReadRecords(runID, storage.RecordFilter{})
	if err != nil {
		return nil, err
	}

	// Records arrive ordered by file.
	var results []batch.FileResult
	for _, rec := range records {
		if n := len(results); n == 0 || results[n-1].Path != rec.FilePath {
			results = append(results, batch.FileResult{Path: rec.FilePath})
		}
		last := &results[len(results)-1]
		last.Records = append(last.Records, extractor.Record{
			Line:     rec.Line,
			Severity: rec.Severity,
			Message:  rec.Message,
		})
	}
	return results, nil
}

func printHits(out io.Writer, hits []search.Hit, asJSON bool) error {
	if asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(hits)
	}
	if len(hits) == 0 {
		fmt.Fprintln(out, "No matching log records")
		return nil
	}
	for _, h := range hits {
		fmt.Fprintf(out, "%s:%d [%s] %s\n", h.FilePath, h.Line, h.Severity, h.Message)
	}
	return nil
}
