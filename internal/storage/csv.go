package storage

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/mvp-joe/logsift/internal/batch"
	"github.com/mvp-joe/logsift/internal/extractor"
)

// CSVHeader names the columns of the hand-off table.
var CSVHeader = []string{"line_number", "log_level", "log_message", "file"}

// ErrCSVFormat is returned for rows that do not match CSVHeader.
var ErrCSVFormat = errors.New("malformed csv row")

// CSVWriter writes records as CSV with every non-numeric field quoted.
type CSVWriter struct {
	w           *bufio.Writer
	header      bool
	wroteHeader bool
}

// NewCSVWriter creates a writer. header adds a column-name row before the
// first record.
func NewCSVWriter(w io.Writer, header bool) *CSVWriter {
	return &CSVWriter{w: bufio.NewWriter(w), header: header}
}

// WriteFile writes the records of one file. The file column holds the
// absolute path.
func (c *CSVWriter) WriteFile(path string, records []extractor.Record) error {
	if err := c.writeHeader(); err != nil {
		return err
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("failed to resolve %s: %w", path, err)
	}
	for _, rec := range records {
		row := strconv.Itoa(rec.Line) + "," +
			quote(string(rec.Severity)) + "," +
			quote(rec.Message) + "," +
			quote(abs) + "\n"
		if _, err := c.w.WriteString(row); err != nil {
			return fmt.Errorf("failed to write csv row: %w", err)
		}
	}
	return nil
}

// WriteResults writes every successful file result in order.
func (c *CSVWriter) WriteResults(results []batch.FileResult) error {
	if err := c.writeHeader(); err != nil {
		return err
	}
	for _, res := range results {
		if res.Err != nil {
			continue
		}
		if err := c.WriteFile(res.Path, res.Records); err != nil {
			return err
		}
	}
	return nil
}

func (c *CSVWriter) writeHeader() error {
	if !c.header || c.wroteHeader {
		return nil
	}
	c.wroteHeader = true
	quoted := make([]string, len(CSVHeader))
	for i, h := range CSVHeader {
		quoted[i] = quote(h)
	}
	if _, err := c.w.WriteString(strings.Join(quoted, ",") + "\n"); err != nil {
		return fmt.Errorf("failed to write csv header: %w", err)
	}
	return nil
}

// Flush writes buffered rows to the underlying writer.
func (c *CSVWriter) Flush() error {
	return c.w.Flush()
}

func quote(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}

// WriteCSVFile writes results to path, creating parent directories.
func WriteCSVFile(path string, header bool, results []batch.FileResult) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer f.Close()

	w := NewCSVWriter(f, header)
	if err := w.WriteResults(results); err != nil {
		return err
	}
	if err := w.Flush(); err != nil {
		return fmt.Errorf("failed to flush %s: %w", path, err)
	}
	return f.Close()
}

// CSVRow is one parsed row of the hand-off table.
type CSVRow struct {
	FilePath string
	extractor.Record
}

// ReadCSV parses a hand-off table. A leading header row is skipped.
func ReadCSV(r io.Reader) ([]CSVRow, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = len(CSVHeader)

	rows := []CSVRow{}
	for n := 1; ; n++ {
		fields, err := reader.Read()
		if errors.Is(err, io.EOF) {
			return rows, nil
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrCSVFormat, err)
		}
		if n == 1 && fields[0] == CSVHeader[0] {
			continue
		}
		line, err := strconv.Atoi(fields[0])
		if err != nil {
			return nil, fmt.Errorf("%w: row %d: line number %q", ErrCSVFormat, n, fields[0])
		}
		rows = append(rows, CSVRow{
			FilePath: fields[3],
			Record: extractor.Record{
				Line:     line,
				Severity: extractor.Severity(fields[1]),
				Message:  fields[2],
			},
		})
	}
}
