package cli

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mvp-joe/logsift/internal/config"
	"github.com/mvp-joe/logsift/internal/storage"
)

// Test Plan for watch:
// - The initial pass writes every discovered file
// - Changed files are re-extracted and replace their rows
// - New files are added; removed files are dropped from CSV files and SQLite runs
// - CSV on stdout receives only the rows of changed files
// - watch() reacts to real file system events and stops with its context

func readCSVFile(t *testing.T, path string) []storage.CSVRow {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	rows, err := storage.ReadCSV(f)
	require.NoError(t, err)
	return rows
}

func newTestSession(t *testing.T, cfg *config.Config, root string, stdout *bytes.Buffer) *watchSession {
	t.Helper()
	s, err := newWatchSession(watchRequest{
		Config: cfg,
		Roots:  []string{root},
		Stdout: stdout,
		Quiet:  true,
		Logger: discardLogger(),
	})
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	require.NoError(t, s.initial(context.Background()))
	return s
}

func TestWatchSession_CSVFile(t *testing.T) {
	t.Parallel()

	root := newProject(t)
	cfg := testConfig()
	cfg.Output.Path = filepath.Join(t.TempDir(), "logs.csv")
	s := newTestSession(t, cfg, root, nil)

	rows := readCSVFile(t, cfg.Output.Path)
	require.Len(t, rows, 2)

	greeting := filepath.Join(root, "app", "greeting.py")
	worker := filepath.Join(root, "app", "worker.py")
	added := filepath.Join(root, "added.py")
	writeFiles(t, root, map[string]string{
		"app/greeting.py": "import logging\nlogging.error('changed')\n",
		"added.py":        "import logging\nlogging.debug('new file')\n",
	})
	require.NoError(t, os.Remove(worker))

	require.NoError(t, s.handleChanges(context.Background(), []string{added, greeting, worker}))

	rows = readCSVFile(t, cfg.Output.Path)
	require.Len(t, rows, 2)
	assert.Equal(t, added, rows[0].FilePath)
	assert.Equal(t, "new file", rows[0].Message)
	assert.Equal(t, greeting, rows[1].FilePath)
	assert.Equal(t, "changed", rows[1].Message)
	assert.Equal(t, 2, rows[1].Line)
}

func TestWatchSession_SQLite(t *testing.T) {
	t.Parallel()

	root := newProject(t)
	cfg := testConfig()
	cfg.Output.Format = config.FormatSQLite
	cfg.Output.Path = filepath.Join(t.TempDir(), "logs.db")
	s := newTestSession(t, cfg, root, nil)

	worker := filepath.Join(root, "app", "worker.py")
	require.NoError(t, os.Remove(worker))
	require.NoError(t, s.handleChanges(context.Background(), []string{worker}))

	results, err := loadRun(cfg.Output.Path, "")
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, filepath.Join(root, "app", "greeting.py"), results[0].Path)

	db, err := storage.Open(cfg.Output.Path)
	require.NoError(t, err)
	defer db.Close()
	run, err := storage.NewRecordReader(db).LatestRun()
	require.NoError(t, err)
	assert.Equal(t, 3, run.FilesTotal)
	assert.Equal(t, 1, run.RecordsTotal)
}

func TestWatchSession_CSVStream(t *testing.T) {
	t.Parallel()

	root := newProject(t)
	var stdout bytes.Buffer
	s := newTestSession(t, testConfig(), root, &stdout)
	require.Contains(t, stdout.String(), "hello world")

	stdout.Reset()
	writeFiles(t, root, map[string]string{"quiet.py": "import logging\nlogging.info('now loud')\n"})
	require.NoError(t, s.handleChanges(context.Background(), []string{filepath.Join(root, "quiet.py")}))

	assert.Equal(t, `2,"info","now loud","`+filepath.Join(root, "quiet.py")+`"`+"\n", stdout.String())

	// Unknown removed files and directories are ignored.
	stdout.Reset()
	require.NoError(t, s.handleChanges(context.Background(), []string{filepath.Join(root, "gone.py"), filepath.Join(root, "app")}))
	assert.Empty(t, stdout.String())
}

func TestWatch_FileEvents(t *testing.T) {
	t.Parallel()

	root := newProject(t)
	cfg := testConfig()
	cfg.Output.Path = filepath.Join(t.TempDir(), "logs.csv")

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- watch(ctx, watchRequest{
			Config:   cfg,
			Roots:    []string{root},
			Debounce: 100 * time.Millisecond,
			Quiet:    true,
			Logger:   discardLogger(),
		})
	}()

	require.Eventually(t, func() bool {
		data, err := os.ReadFile(cfg.Output.Path)
		return err == nil && strings.Contains(string(data), "hello world")
	}, 5*time.Second, 50*time.Millisecond)

	// Give the watcher time to register before changing files.
	time.Sleep(200 * time.Millisecond)
	writeFiles(t, root, map[string]string{"app/late.py": "import logging\nlogging.critical('late arrival')\n"})

	require.Eventually(t, func() bool {
		data, err := os.ReadFile(cfg.Output.Path)
		return err == nil && strings.Contains(string(data), "late arrival")
	}, 5*time.Second, 50*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("watch did not stop")
	}
}
