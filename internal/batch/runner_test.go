package batch

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mvp-joe/logsift/internal/extractor"
)

// Test Plan for Runner:
// - Results are indexed like the input paths, regardless of worker count
// - Parse and read failures stay in their FileResult
// - Unchanged files are served from the cache, changed files are re-extracted
// - Progress sees every file and a final summary
// - A canceled context stops the run with an error
// - Summarize counts resolved records, severities and failures

func newTestRunner(opts ...RunnerOption) *Runner {
	logger := slog.New(slog.DiscardHandler)
	ex := extractor.New(extractor.DefaultConfig(), extractor.WithLogger(logger))
	return NewRunner(ex, append([]RunnerOption{WithLogger(logger)}, opts...)...)
}

// recordingProgress collects progress callbacks.
type recordingProgress struct {
	mu        sync.Mutex
	processed []string
	summary   *Summary
}

func (p *recordingProgress) OnDiscoveryComplete(int) {}

func (p *recordingProgress) OnFileProcessed(path string, records int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.processed = append(p.processed, path)
}

func (p *recordingProgress) OnComplete(s Summary) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.summary = &s
}

func TestRunner_Run(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"a.py":      "import logging\nlogging.info(\"a %s\", x)\nlogging.error(\"b\")\n",
		"b.py":      "print('no logs')\n",
		"broken.py": "def broken(:\n",
		"c.py":      "import logging as log\nlog.log(99, \"bad\")\nlog.warning(\"w\")\n",
	})
	paths := []string{
		filepath.Join(root, "a.py"),
		filepath.Join(root, "b.py"),
		filepath.Join(root, "broken.py"),
		filepath.Join(root, "c.py"),
		filepath.Join(root, "missing.py"),
	}

	progress := &recordingProgress{}
	results, err := newTestRunner(WithWorkers(2), WithProgress(progress)).Run(context.Background(), paths)
	require.NoError(t, err)
	require.Len(t, results, len(paths))

	for i, r := range results {
		assert.Equal(t, paths[i], r.Path)
	}

	assert.Equal(t, []extractor.Record{
		{Line: 2, Severity: extractor.Info, Message: "a *"},
		{Line: 3, Severity: extractor.Error, Message: "b"},
	}, results[0].Records)
	assert.True(t, results[0].HasRecords())
	assert.NotEmpty(t, results[0].Hash)

	assert.NoError(t, results[1].Err)
	assert.False(t, results[1].HasRecords())

	assert.ErrorIs(t, results[2].Err, extractor.ErrParse)
	assert.Empty(t, results[2].Records)

	require.Len(t, results[3].Records, 1)
	require.Len(t, results[3].Diagnostics, 1)
	assert.ErrorIs(t, results[3].Diagnostics[0].Err, extractor.ErrUnknownLevel)

	assert.ErrorIs(t, results[4].Err, os.ErrNotExist)

	assert.ElementsMatch(t, paths, progress.processed)
	require.NotNil(t, progress.summary)
	assert.Equal(t, Summary{
		Files:         5,
		FilesFailed:   2,
		FilesWithLogs: 2,
		Records:       3,
		Resolved:      2,
		Diagnostics:   1,
		BySeverity: map[extractor.Severity]int{
			extractor.Info:    1,
			extractor.Error:   1,
			extractor.Warning: 1,
		},
	}, *progress.summary)
	assert.InDelta(t, 2.0/3.0, progress.summary.ResolvedRatio(), 1e-9)
}

func TestRunner_Cache(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	path := filepath.Join(root, "app.py")
	writeTree(t, root, map[string]string{"app.py": "import logging\nlogging.info(\"one\")\n"})

	cache, err := NewResultCache(16)
	require.NoError(t, err)
	t.Cleanup(cache.Close)

	runner := newTestRunner(WithCache(cache), WithWorkers(1))
	ctx := context.Background()

	first, err := runner.Run(ctx, []string{path})
	require.NoError(t, err)
	assert.False(t, first[0].Cached)

	second, err := runner.Run(ctx, []string{path})
	require.NoError(t, err)
	assert.True(t, second[0].Cached)
	assert.Equal(t, first[0].Records, second[0].Records)

	require.NoError(t, os.WriteFile(path, []byte("import logging\nlogging.info(\"two\")\n"), 0o644))
	third, err := runner.Run(ctx, []string{path})
	require.NoError(t, err)
	assert.False(t, third[0].Cached)
	require.Len(t, third[0].Records, 1)
	assert.Equal(t, "two", third[0].Records[0].Message)
}

func TestRunner_Canceled(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	writeTree(t, root, map[string]string{"a.py": "import logging\n"})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newTestRunner().Run(ctx, []string{filepath.Join(root, "a.py")})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRunner_NoPaths(t *testing.T) {
	t.Parallel()

	progress := &recordingProgress{}
	results, err := newTestRunner(WithProgress(progress)).Run(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, results)
	require.NotNil(t, progress.summary)
	assert.Zero(t, progress.summary.Files)
	assert.Zero(t, progress.summary.ResolvedRatio())
}

func TestContentHash(t *testing.T) {
	t.Parallel()

	assert.Equal(t,
		"e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855",
		ContentHash(nil))
	assert.NotEqual(t, ContentHash([]byte("a")), ContentHash([]byte("b")))
}
