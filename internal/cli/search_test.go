package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mvp-joe/logsift/internal/config"
	"github.com/mvp-joe/logsift/internal/extractor"
	"github.com/mvp-joe/logsift/internal/search"
	"github.com/mvp-joe/logsift/internal/storage"
)

// Test Plan for search:
// - Fresh extraction results are searchable by message terms
// - Stored runs are searchable by latest run or explicit run id
// - Unknown run ids and missing databases fail
// - Level filters parse case-insensitively and reject unknown levels
// - Hits print as text lines or JSON

func TestSearchRecords_Extract(t *testing.T) {
	t.Parallel()

	root := newProject(t)
	hits, err := searchRecords(context.Background(), searchRequest{
		Config: testConfig(),
		Roots:  []string{root},
		Query:  "world",
		Logger: discardLogger(),
	})
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, filepath.Join(root, "app", "greeting.py"), hits[0].FilePath)
	assert.Equal(t, 3, hits[0].Line)
	assert.Equal(t, extractor.Info, hits[0].Severity)

	hits, err = searchRecords(context.Background(), searchRequest{
		Config:  testConfig(),
		Roots:   []string{root},
		Options: search.Options{Severity: extractor.Warning},
		Logger:  discardLogger(),
	})
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "retrying for *", hits[0].Message)
}

func TestSearchRecords_StoredRun(t *testing.T) {
	t.Parallel()

	root := newProject(t)
	cfg := testConfig()
	cfg.Output.Format = config.FormatSQLite
	cfg.Output.Path = filepath.Join(t.TempDir(), "logs.db")

	_, err := extract(context.Background(), extractRequest{Config: cfg, Roots: []string{root}, Logger: discardLogger()})
	require.NoError(t, err)

	hits, err := searchRecords(context.Background(), searchRequest{DBPath: cfg.Output.Path, Query: "retrying"})
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, 6, hits[0].Line)

	db, err := storage.Open(cfg.Output.Path)
	require.NoError(t, err)
	run, err := storage.NewRecordReader(db).LatestRun()
	require.NoError(t, err)
	require.NoError(t, db.Close())

	hits, err = searchRecords(context.Background(), searchRequest{DBPath: cfg.Output.Path, RunID: run.ID})
	require.NoError(t, err)
	assert.Len(t, hits, 2)

	_, err = searchRecords(context.Background(), searchRequest{DBPath: cfg.Output.Path, RunID: "nope"})
	assert.ErrorIs(t, err, storage.ErrRunNotFound)

	_, err = searchRecords(context.Background(), searchRequest{DBPath: filepath.Join(t.TempDir(), "missing.db")})
	assert.Error(t, err)

	var out bytes.Buffer
	require.NoError(t, listRuns(&out, cfg.Output.Path))
	assert.Contains(t, out.String(), run.ID)
	assert.Contains(t, out.String(), "RESOLVED")
}

func TestParseSeverity(t *testing.T) {
	t.Parallel()

	tests := []struct {
		input   string
		want    extractor.Severity
		wantErr bool
	}{
		{"", "", false},
		{"error", extractor.Error, false},
		{"WARNING", extractor.Warning, false},
		{"warn", "", true},
		{"fatal", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			t.Parallel()
			got, err := parseSeverity(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestPrintHits(t *testing.T) {
	t.Parallel()

	hits := []search.Hit{{FilePath: "/src/a.py", Line: 4, Severity: extractor.Error, Message: "boom"}}

	var text bytes.Buffer
	require.NoError(t, printHits(&text, hits, false))
	assert.Equal(t, "/src/a.py:4 [error] boom\n", text.String())

	var empty bytes.Buffer
	require.NoError(t, printHits(&empty, nil, false))
	assert.Equal(t, "No matching log records\n", empty.String())

	var js bytes.Buffer
	require.NoError(t, printHits(&js, hits, true))
	var decoded []map[string]any
	require.NoError(t, json.Unmarshal(js.Bytes(), &decoded))
	require.Len(t, decoded, 1)
	assert.Equal(t, "boom", decoded[0]["log_message"])
	assert.Equal(t, float64(4), decoded[0]["line_number"])
}
