package cli

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mvp-joe/logsift/internal/batch"
	"github.com/mvp-joe/logsift/internal/config"
	"github.com/mvp-joe/logsift/internal/extractor"
	"github.com/mvp-joe/logsift/internal/storage"
)

// Test Plan for extract:
// - CSV goes to stdout with a header and one row per call, in path order
// - CSV files are written without a header when disabled
// - SQLite output stores a finished run that loadRun reads back
// - Broken files are counted as failed and do not stop the batch
// - Several roots are discovered without duplicates
// - A canceled context aborts the run
// - Unknown output formats are rejected

func TestExtract_CSVStdout(t *testing.T) {
	t.Parallel()

	root := newProject(t)
	var stdout bytes.Buffer

	summary, err := extract(context.Background(), extractRequest{
		Config: testConfig(),
		Roots:  []string{root},
		Stdout: &stdout,
		Logger: discardLogger(),
	})
	require.NoError(t, err)

	assert.Equal(t, 4, summary.Files)
	assert.Equal(t, 1, summary.FilesFailed)
	assert.Equal(t, 2, summary.FilesWithLogs)
	assert.Equal(t, 2, summary.Records)
	assert.Equal(t, 1, summary.Resolved)

	lines := strings.Split(strings.TrimSuffix(stdout.String(), "\n"), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, `"line_number","log_level","log_message","file"`, lines[0])
	assert.Equal(t, `3,"info","hello world","`+filepath.Join(root, "app", "greeting.py")+`"`, lines[1])
	assert.Equal(t, `6,"warning","retrying for *","`+filepath.Join(root, "app", "worker.py")+`"`, lines[2])
}

func TestExtract_CSVFile(t *testing.T) {
	t.Parallel()

	root := newProject(t)
	cfg := testConfig()
	cfg.Output.Path = filepath.Join(t.TempDir(), "out", "logs.csv")
	cfg.Output.Header = false
	cfg.Extraction.Placeholder = "<?>"

	_, err := extract(context.Background(), extractRequest{
		Config: cfg,
		Roots:  []string{filepath.Join(root, "app")},
		Logger: discardLogger(),
	})
	require.NoError(t, err)

	data, err := os.ReadFile(cfg.Output.Path)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "line_number")

	rows, err := storage.ReadCSV(bytes.NewReader(data))
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, extractor.Record{Line: 6, Severity: extractor.Warning, Message: "retrying for <?>"}, rows[1].Record)
}

func TestExtract_SQLite(t *testing.T) {
	t.Parallel()

	root := newProject(t)
	cfg := testConfig()
	cfg.Output.Format = config.FormatSQLite
	cfg.Output.Path = filepath.Join(t.TempDir(), "logs.db")

	_, err := extract(context.Background(), extractRequest{
		Config: cfg,
		Roots:  []string{root},
		Logger: discardLogger(),
	})
	require.NoError(t, err)

	results, err := loadRun(cfg.Output.Path, "")
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, filepath.Join(root, "app", "greeting.py"), results[0].Path)
	assert.Equal(t, []extractor.Record{{Line: 3, Severity: extractor.Info, Message: "hello world"}}, results[0].Records)

	db, err := storage.Open(cfg.Output.Path)
	require.NoError(t, err)
	defer db.Close()

	run, err := storage.NewRecordReader(db).LatestRun()
	require.NoError(t, err)
	assert.Equal(t, root, run.RootPath)
	assert.Equal(t, 4, run.FilesTotal)
	assert.Equal(t, 1, run.FilesFailed)
	assert.Equal(t, 2, run.RecordsTotal)
	assert.False(t, run.FinishedAt.IsZero())

	failed, err := storage.NewRecordReader(db).FailedFiles(run.ID)
	require.NoError(t, err)
	assert.Contains(t, failed, filepath.Join(root, "broken.py"))
}

func TestExtract_MultipleRoots(t *testing.T) {
	t.Parallel()

	root := newProject(t)
	var stdout bytes.Buffer

	summary, err := extract(context.Background(), extractRequest{
		Config: testConfig(),
		Roots:  []string{root, filepath.Join(root, "app"), filepath.Join(root, "app", "greeting.py")},
		Stdout: &stdout,
		Logger: discardLogger(),
	})
	require.NoError(t, err)
	assert.Equal(t, 4, summary.Files)
	assert.Equal(t, 1, strings.Count(stdout.String(), "hello world"))
}

func TestExtract_Canceled(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := extract(ctx, extractRequest{
		Config: testConfig(),
		Roots:  []string{newProject(t)},
		Stdout: &bytes.Buffer{},
		Logger: discardLogger(),
	})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestExtract_UnknownFormat(t *testing.T) {
	t.Parallel()

	cfg := testConfig()
	cfg.Output.Format = "xml"

	_, err := extract(context.Background(), extractRequest{
		Config: cfg,
		Roots:  []string{newProject(t)},
		Logger: discardLogger(),
	})
	assert.ErrorIs(t, err, config.ErrInvalidFormat)
}

func TestPipeline_Matches(t *testing.T) {
	t.Parallel()

	root := newProject(t)
	p, err := newPipeline(testConfig(), []string{root}, discardLogger())
	require.NoError(t, err)
	defer p.Close()

	assert.True(t, p.matches(filepath.Join(root, "app", "new.py")))
	assert.False(t, p.matches(filepath.Join(root, "README.md")))
	assert.False(t, p.matches(filepath.Join(root, "__pycache__", "x.py")))
	assert.False(t, p.matches(filepath.Join(filepath.Dir(root), "outside.py")))
	assert.Equal(t, []string{root}, p.watchDirs())

	var _ batch.ProgressReporter = NewCLIProgressReporter(&bytes.Buffer{})
}
