package storage

import (
	"database/sql"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"

	"github.com/mvp-joe/logsift/internal/batch"
)

// Run describes one extraction run.
type Run struct {
	ID              string
	RootPath        string
	Placeholder     string
	StartedAt       time.Time
	FinishedAt      time.Time
	FilesTotal      int
	FilesFailed     int
	RecordsTotal    int
	RecordsResolved int
}

// RecordWriter writes extraction runs to SQLite.
type RecordWriter struct {
	db  *sql.DB
	now func() time.Time
}

// NewRecordWriter creates a RecordWriter instance.
// DB must have schema already created via CreateSchema().
func NewRecordWriter(db *sql.DB) *RecordWriter {
	return &RecordWriter{db: db, now: time.Now}
}

// BeginRun registers a new run and returns its id.
func (w *RecordWriter) BeginRun(rootPath, placeholder string) (string, error) {
	runID := uuid.NewString()

	_, err := sq.Insert("runs").
		Columns("run_id", "root_path", "placeholder", "started_at").
		Values(runID, rootPath, placeholder, w.now().UTC().Format(time.RFC3339Nano)).
		RunWith(w.db).
		Exec()
	if err != nil {
		return "", fmt.Errorf("failed to begin run: %w", err)
	}
	return runID, nil
}

// WriteResults stores the files, records and diagnostics of a run in a
// single transaction. Writing a file twice replaces its earlier rows.
func (w *RecordWriter) WriteResults(runID, placeholder string, results []batch.FileResult) error {
	if len(results) == 0 {
		return nil
	}

	tx, err := w.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback() // Safe to call even after commit

	fileSQL, _, err := sq.Insert("files").
		Columns("run_id", "file_path", "file_hash", "error").
		Values("", "", "", nil).
		Options("OR REPLACE").
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build SQL: %w", err)
	}
	recordSQL, _, err := sq.Insert("log_records").
		Columns("run_id", "file_path", "line_number", "log_level", "log_message", "resolved").
		Values("", "", 0, "", "", false).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build SQL: %w", err)
	}
	diagSQL, _, err := sq.Insert("diagnostics").
		Columns("run_id", "file_path", "line_number", "reason").
		Values("", "", 0, "").
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build SQL: %w", err)
	}

	fileStmt, err := tx.Prepare(fileSQL)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer fileStmt.Close()
	recordStmt, err := tx.Prepare(recordSQL)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer recordStmt.Close()
	diagStmt, err := tx.Prepare(diagSQL)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer diagStmt.Close()

	for _, res := range results {
		if err := deleteFileRows(tx, runID, res.Path); err != nil {
			return err
		}

		var errText any
		if res.Err != nil {
			errText = res.Err.Error()
		}
		if _, err := fileStmt.Exec(runID, res.Path, res.Hash, errText); err != nil {
			return fmt.Errorf("failed to write file %s: %w", res.Path, err)
		}

		for _, rec := range res.Records {
			if _, err := recordStmt.Exec(runID, res.Path, rec.Line, string(rec.Severity), rec.Message, rec.Resolved(placeholder)); err != nil {
				return fmt.Errorf("failed to write record %s:%d: %w", res.Path, rec.Line, err)
			}
		}
		for _, d := range res.Diagnostics {
			if _, err := diagStmt.Exec(runID, res.Path, d.Line, d.Reason); err != nil {
				return fmt.Errorf("failed to write diagnostic %s:%d: %w", res.Path, d.Line, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func deleteFileRows(tx *sql.Tx, runID, path string) error {
	for _, table := range []string{"log_records", "diagnostics"} {
		_, err := sq.Delete(table).
			Where(sq.Eq{"run_id": runID, "file_path": path}).
			RunWith(tx).
			Exec()
		if err != nil {
			return fmt.Errorf("failed to clear %s for %s: %w", table, path, err)
		}
	}
	return nil
}

// FinishRun stores the run's summary counts and finish time.
func (w *RecordWriter) FinishRun(runID string, summary batch.Summary) error {
	res, err := sq.Update("runs").
		Set("finished_at", w.now().UTC().Format(time.RFC3339Nano)).
		Set("files_total", summary.Files).
		Set("files_failed", summary.FilesFailed).
		Set("records_total", summary.Records).
		Set("records_resolved", summary.Resolved).
		Where(sq.Eq{"run_id": runID}).
		RunWith(w.db).
		Exec()
	if err != nil {
		return fmt.Errorf("failed to finish run %s: %w", runID, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}
	return nil
}

// DeleteRun removes a run and, by cascade, everything it recorded.
func (w *RecordWriter) DeleteRun(runID string) error {
	_, err := sq.Delete("runs").
		Where(sq.Eq{"run_id": runID}).
		RunWith(w.db).
		Exec()
	if err != nil {
		return fmt.Errorf("failed to delete run %s: %w", runID, err)
	}
	return nil
}

// DeleteFile removes one file and its rows from a run.
func (w *RecordWriter) DeleteFile(runID, path string) error {
	tx, err := w.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := deleteFileRows(tx, runID, path); err != nil {
		return err
	}
	_, err = sq.Delete("files").
		Where(sq.Eq{"run_id": runID, "file_path": path}).
		RunWith(tx).
		Exec()
	if err != nil {
		return fmt.Errorf("failed to delete file %s: %w", path, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}
