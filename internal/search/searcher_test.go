package search

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mvp-joe/logsift/internal/batch"
	"github.com/mvp-joe/logsift/internal/extractor"
)

// Test Plan for Index:
// - Indexed records are found by message terms and phrases, with highlights
// - Severity and file path filters narrow results
// - An empty query lists records ordered by file and line
// - Re-indexing a file replaces its documents; failed files are removed
// - RemoveFile drops a file's documents
// - A canceled context aborts indexing

func newTestIndex(t *testing.T) *Index {
	t.Helper()
	idx, err := NewIndex()
	require.NoError(t, err)
	t.Cleanup(func() { idx.Close() })

	require.NoError(t, idx.IndexResults(context.Background(), []batch.FileResult{
		{
			Path: "/src/app/server.py",
			Records: []extractor.Record{
				{Line: 10, Severity: extractor.Info, Message: "server listening on port *"},
				{Line: 42, Severity: extractor.Error, Message: "connection refused by database"},
			},
		},
		{
			Path: "/src/lib/db.py",
			Records: []extractor.Record{
				{Line: 5, Severity: extractor.Warning, Message: "database connection slow"},
			},
		},
	}))
	return idx
}

func TestIndex_Search(t *testing.T) {
	t.Parallel()

	idx := newTestIndex(t)
	ctx := context.Background()

	count, err := idx.Count()
	require.NoError(t, err)
	assert.Equal(t, uint64(3), count)

	hits, err := idx.Search(ctx, "database", Options{})
	require.NoError(t, err)
	require.Len(t, hits, 2)
	for _, h := range hits {
		assert.Contains(t, h.Message, "database")
		assert.NotEmpty(t, h.Highlights)
		assert.Positive(t, h.Score)
	}

	hits, err = idx.Search(ctx, `"server listening"`, Options{})
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, Hit{
		FilePath:   "/src/app/server.py",
		Line:       10,
		Severity:   extractor.Info,
		Message:    "server listening on port *",
		Score:      hits[0].Score,
		Highlights: hits[0].Highlights,
	}, hits[0])
}

func TestIndex_Filters(t *testing.T) {
	t.Parallel()

	idx := newTestIndex(t)
	ctx := context.Background()

	hits, err := idx.Search(ctx, "database", Options{Severity: extractor.Warning})
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "/src/lib/db.py", hits[0].FilePath)

	hits, err = idx.Search(ctx, "connection", Options{FilePath: "/src/app/*"})
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, 42, hits[0].Line)

	hits, err = idx.Search(ctx, "database", Options{Limit: 1})
	require.NoError(t, err)
	assert.Len(t, hits, 1)
}

func TestIndex_ListAll(t *testing.T) {
	t.Parallel()

	hits, err := newTestIndex(t).Search(context.Background(), "", Options{})
	require.NoError(t, err)

	require.Len(t, hits, 3)
	assert.Equal(t, []int{10, 42, 5}, []int{hits[0].Line, hits[1].Line, hits[2].Line})
	assert.Empty(t, hits[0].Highlights)
}

func TestIndex_Reindex(t *testing.T) {
	t.Parallel()

	idx := newTestIndex(t)
	ctx := context.Background()

	require.NoError(t, idx.IndexResults(ctx, []batch.FileResult{
		{
			Path:    "/src/app/server.py",
			Records: []extractor.Record{{Line: 11, Severity: extractor.Debug, Message: "server ready"}},
		},
		{Path: "/src/lib/db.py", Err: errors.New("parse error")},
	}))

	count, err := idx.Count()
	require.NoError(t, err)
	assert.Equal(t, uint64(1), count)

	hits, err := idx.Search(ctx, "database", Options{})
	require.NoError(t, err)
	assert.Empty(t, hits)

	require.NoError(t, idx.RemoveFile("/src/app/server.py"))
	count, err = idx.Count()
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestIndex_Canceled(t *testing.T) {
	t.Parallel()

	idx, err := NewIndex()
	require.NoError(t, err)
	t.Cleanup(func() { idx.Close() })

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err = idx.IndexResults(ctx, []batch.FileResult{{Path: "/a.py"}})
	assert.ErrorIs(t, err, context.Canceled)
}
