package batch

import "github.com/mvp-joe/logsift/internal/extractor"

// Summary aggregates a batch run.
type Summary struct {
	Files       int
	FilesFailed int
	// FilesWithLogs counts files with at least one record.
	FilesWithLogs int
	Records       int
	// Resolved counts records whose message contains no placeholder.
	Resolved    int
	Diagnostics int
	BySeverity  map[extractor.Severity]int
}

// Summarize tallies results. placeholder identifies partially resolved
// messages.
func Summarize(results []FileResult, placeholder string) Summary {
	s := Summary{
		Files:      len(results),
		BySeverity: make(map[extractor.Severity]int, len(extractor.Severities)),
	}
	for _, r := range results {
		if r.Err != nil {
			s.FilesFailed++
			continue
		}
		if r.HasRecords() {
			s.FilesWithLogs++
		}
		s.Diagnostics += len(r.Diagnostics)
		for _, rec := range r.Records {
			s.Records++
			s.BySeverity[rec.Severity]++
			if rec.Resolved(placeholder) {
				s.Resolved++
			}
		}
	}
	return s
}

// ResolvedRatio is the fraction of records resolved without placeholders.
func (s Summary) ResolvedRatio() float64 {
	if s.Records == 0 {
		return 0
	}
	return float64(s.Resolved) / float64(s.Records)
}
