package cli

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/schollz/progressbar/v3"

	"github.com/mvp-joe/logsift/internal/batch"
	"github.com/mvp-joe/logsift/internal/extractor"
)

// CLIProgressReporter implements batch.ProgressReporter with a progress bar.
// Files are reported from worker goroutines, so every callback locks.
type CLIProgressReporter struct {
	out       io.Writer
	mu        sync.Mutex
	fileBar   *progressbar.ProgressBar
	startTime time.Time
}

// NewCLIProgressReporter creates a reporter writing to out.
func NewCLIProgressReporter(out io.Writer) *CLIProgressReporter {
	return &CLIProgressReporter{
		out:       out,
		startTime: time.Now(),
	}
}

func (c *CLIProgressReporter) OnDiscoveryComplete(totalFiles int) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.startTime = time.Now()
	fmt.Fprintf(c.out, "Extracting logging calls from %s Python files\n", formatNumber(totalFiles))
	if totalFiles == 0 {
		return
	}

	out := c.out
	c.fileBar = progressbar.NewOptions(totalFiles,
		progressbar.OptionSetWriter(out),
		progressbar.OptionSetDescription("Extracting"),
		progressbar.OptionSetWidth(40),
		progressbar.OptionShowCount(),
		progressbar.OptionShowIts(),
		progressbar.OptionSetItsString("files/s"),
		progressbar.OptionThrottle(65*time.Millisecond),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionOnCompletion(func() {
			fmt.Fprintln(out)
		}),
	)
}

func (c *CLIProgressReporter) OnFileProcessed(path string, records int) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.fileBar != nil {
		c.fileBar.Add(1)
	}
}

func (c *CLIProgressReporter) OnComplete(summary batch.Summary) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.fileBar != nil {
		c.fileBar.Finish()
		c.fileBar = nil
	}
	printSummary(c.out, summary, time.Since(c.startTime))
}

// printSummary reports how much was found and how much of it resolved
// without placeholders.
func printSummary(out io.Writer, s batch.Summary, elapsed time.Duration) {
	fmt.Fprintln(out)
	fmt.Fprintf(out, "✓ Extraction complete: %s records from %s files in %.1fs\n",
		formatNumber(s.Records), formatNumber(s.Files), elapsed.Seconds())
	fmt.Fprintf(out, "  Files with logs: %s\n", formatNumber(s.FilesWithLogs))
	if s.FilesFailed > 0 {
		fmt.Fprintf(out, "  Failed files:    %s\n", formatNumber(s.FilesFailed))
	}
	fmt.Fprintf(out, "  Fully resolved:  %s (%.1f%%)\n", formatNumber(s.Resolved), s.ResolvedRatio()*100)
	fmt.Fprintf(out, "  Skipped calls:   %s\n", formatNumber(s.Diagnostics))

	var parts []string
	for _, sev := range extractor.Severities {
		if n := s.BySeverity[sev]; n > 0 {
			parts = append(parts, fmt.Sprintf("%s %s", sev, formatNumber(n)))
		}
	}
	if len(parts) > 0 {
		fmt.Fprintf(out, "  By level:        %s\n", strings.Join(parts, ", "))
	}
}

func formatNumber(n int) string {
	if n < 1000 {
		return fmt.Sprintf("%d", n)
	}

	str := fmt.Sprintf("%d", n)
	var result string
	for i, c := range str {
		if i > 0 && (len(str)-i)%3 == 0 {
			result += ","
		}
		result += string(c)
	}
	return result
}
