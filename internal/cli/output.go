package cli

import (
	"database/sql"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/mvp-joe/logsift/internal/batch"
	"github.com/mvp-joe/logsift/internal/config"
	"github.com/mvp-joe/logsift/internal/storage"
)

// resultSink receives extraction results. Update is called once per batch
// with the files that changed, the files that disappeared and the complete
// current result set.
type resultSink interface {
	Update(changed []batch.FileResult, removed []string, all []batch.FileResult) error
	Close() error
}

// newResultSink opens the sink described by the output config. CSV with no
// path streams to stdout.
func newResultSink(out config.OutputConfig, rootLabel, placeholder string, stdout io.Writer) (resultSink, error) {
	switch out.Format {
	case config.FormatSQLite:
		return newSQLiteSink(out.Path, rootLabel, placeholder)
	case config.FormatCSV:
		if out.Path == "" {
			return &csvStreamSink{w: storage.NewCSVWriter(stdout, out.Header)}, nil
		}
		return &csvFileSink{path: out.Path, header: out.Header}, nil
	default:
		return nil, fmt.Errorf("%w: %q", config.ErrInvalidFormat, out.Format)
	}
}

// csvStreamSink appends the rows of changed files.
type csvStreamSink struct {
	w *storage.CSVWriter
}

func (s *csvStreamSink) Update(changed []batch.FileResult, _ []string, _ []batch.FileResult) error {
	if err := s.w.WriteResults(changed); err != nil {
		return err
	}
	return s.w.Flush()
}

func (s *csvStreamSink) Close() error { return s.w.Flush() }

// csvFileSink rewrites the whole file on every update.
type csvFileSink struct {
	path   string
	header bool
}

func (s *csvFileSink) Update(_ []batch.FileResult, _ []string, all []batch.FileResult) error {
	return storage.WriteCSVFile(s.path, s.header, all)
}

func (s *csvFileSink) Close() error { return nil }

// sqliteSink stores everything under one run and refreshes its summary
// after each update.
type sqliteSink struct {
	db          *sql.DB
	writer      *storage.RecordWriter
	runID       string
	placeholder string
}

func newSQLiteSink(path, rootLabel, placeholder string) (*sqliteSink, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}
	db, err := storage.Open(path)
	if err != nil {
		return nil, err
	}
	writer := storage.NewRecordWriter(db)
	runID, err := writer.BeginRun(rootLabel, placeholder)
	if err != nil {
		db.Close()
		return nil, err
	}
	return &sqliteSink{db: db, writer: writer, runID: runID, placeholder: placeholder}, nil
}

func (s *sqliteSink) Update(changed []batch.FileResult, removed []string, all []batch.FileResult) error {
	for _, path := range removed {
		if err := s.writer.DeleteFile(s.runID, path); err != nil {
			return err
		}
	}
	if err := s.writer.WriteResults(s.runID, s.placeholder, changed); err != nil {
		return err
	}
	return s.writer.FinishRun(s.runID, batch.Summarize(all, s.placeholder))
}

func (s *sqliteSink) Close() error { return s.db.Close() }
