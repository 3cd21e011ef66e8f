package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"

	"github.com/mvp-joe/logsift/internal/extractor"
)

// ErrRunNotFound is returned for an unknown run id.
var ErrRunNotFound = errors.New("run not found")

// StoredRecord is a persisted log record with its file.
type StoredRecord struct {
	FilePath string
	Line     int
	Severity extractor.Severity
	Message  string
	Resolved bool
}

// RecordFilter narrows ReadRecords. Zero fields match everything.
type RecordFilter struct {
	Severity       extractor.Severity
	PathPrefix     string
	UnresolvedOnly bool
}

// RecordReader reads extraction runs from SQLite.
type RecordReader struct {
	db *sql.DB
}

// NewRecordReader creates a RecordReader instance.
// DB should have schema already created.
func NewRecordReader(db *sql.DB) *RecordReader {
	return &RecordReader{db: db}
}

var runColumns = []string{
	"run_id", "root_path", "placeholder", "started_at", "COALESCE(finished_at, '')",
	"files_total", "files_failed", "records_total", "records_resolved",
}

func scanRun(row sq.RowScanner) (*Run, error) {
	run := &Run{}
	var startedAt, finishedAt string
	err := row.Scan(
		&run.ID, &run.RootPath, &run.Placeholder, &startedAt, &finishedAt,
		&run.FilesTotal, &run.FilesFailed, &run.RecordsTotal, &run.RecordsResolved,
	)
	if err != nil {
		return nil, err
	}
	run.StartedAt, _ = time.Parse(time.RFC3339Nano, startedAt)
	if finishedAt != "" {
		run.FinishedAt, _ = time.Parse(time.RFC3339Nano, finishedAt)
	}
	return run, nil
}

// GetRun returns one run.
func (r *RecordReader) GetRun(runID string) (*Run, error) {
	run, err := scanRun(sq.Select(runColumns...).
		From("runs").
		Where(sq.Eq{"run_id": runID}).
		RunWith(r.db).
		QueryRow())
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get run %s: %w", runID, err)
	}
	return run, nil
}

// LatestRun returns the most recently started run.
func (r *RecordReader) LatestRun() (*Run, error) {
	run, err := scanRun(sq.Select(runColumns...).
		From("runs").
		OrderBy("started_at DESC", "rowid DESC").
		Limit(1).
		RunWith(r.db).
		QueryRow())
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrRunNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get latest run: %w", err)
	}
	return run, nil
}

// ListRuns returns all runs, newest first.
func (r *RecordReader) ListRuns() ([]*Run, error) {
	rows, err := sq.Select(runColumns...).
		From("runs").
		OrderBy("started_at DESC", "rowid DESC").
		RunWith(r.db).
		Query()
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	var runs []*Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// ReadRecords returns a run's records ordered by file and line.
func (r *RecordReader) ReadRecords(runID string, filter RecordFilter) ([]StoredRecord, error) {
	query := sq.Select("file_path", "line_number", "log_level", "log_message", "resolved").
		From("log_records").
		Where(sq.Eq{"run_id": runID}).
		OrderBy("file_path", "line_number", "record_id")

	if filter.Severity != "" {
		query = query.Where(sq.Eq{"log_level": string(filter.Severity)})
	}
	if filter.PathPrefix != "" {
		query = query.Where(sq.Like{"file_path": filter.PathPrefix + "%"})
	}
	if filter.UnresolvedOnly {
		query = query.Where(sq.Eq{"resolved": false})
	}

	rows, err := query.RunWith(r.db).Query()
	if err != nil {
		return nil, fmt.Errorf("failed to query records: %w", err)
	}
	defer rows.Close()

	records := []StoredRecord{}
	for rows.Next() {
		var rec StoredRecord
		var level string
		if err := rows.Scan(&rec.FilePath, &rec.Line, &level, &rec.Message, &rec.Resolved); err != nil {
			return nil, fmt.Errorf("failed to scan record: %w", err)
		}
		rec.Severity = extractor.Severity(level)
		records = append(records, rec)
	}
	return records, rows.Err()
}

// ReadDiagnostics returns a run's diagnostics keyed by file path.
func (r *RecordReader) ReadDiagnostics(runID string) (map[string][]extractor.Diagnostic, error) {
	rows, err := sq.Select("file_path", "line_number", "reason").
		From("diagnostics").
		Where(sq.Eq{"run_id": runID}).
		OrderBy("file_path", "line_number", "diagnostic_id").
		RunWith(r.db).
		Query()
	if err != nil {
		return nil, fmt.Errorf("failed to query diagnostics: %w", err)
	}
	defer rows.Close()

	out := make(map[string][]extractor.Diagnostic)
	for rows.Next() {
		var path string
		var d extractor.Diagnostic
		if err := rows.Scan(&path, &d.Line, &d.Reason); err != nil {
			return nil, fmt.Errorf("failed to scan diagnostic: %w", err)
		}
		out[path] = append(out[path], d)
	}
	return out, rows.Err()
}

// FailedFiles returns the files of a run that could not be extracted, with
// their error text.
func (r *RecordReader) FailedFiles(runID string) (map[string]string, error) {
	rows, err := sq.Select("file_path", "error").
		From("files").
		Where(sq.And{sq.Eq{"run_id": runID}, sq.NotEq{"error": nil}}).
		RunWith(r.db).
		Query()
	if err != nil {
		return nil, fmt.Errorf("failed to query files: %w", err)
	}
	defer rows.Close()

	out := make(map[string]string)
	for rows.Next() {
		var path, msg string
		if err := rows.Scan(&path, &msg); err != nil {
			return nil, fmt.Errorf("failed to scan file: %w", err)
		}
		out[path] = msg
	}
	return out, rows.Err()
}
