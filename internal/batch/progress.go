package batch

// ProgressReporter provides callbacks for reporting extraction progress.
// Implementations can display progress bars, log messages, or remain silent.
type ProgressReporter interface {
	// OnDiscoveryComplete is called once the file list is known.
	OnDiscoveryComplete(totalFiles int)

	// OnFileProcessed is called after each file, in completion order.
	OnFileProcessed(path string, records int)

	// OnComplete is called when every file has been processed.
	OnComplete(summary Summary)
}

// NoOpProgressReporter is a progress reporter that does nothing.
// Used when progress reporting is disabled (e.g., --quiet flag).
type NoOpProgressReporter struct{}

func (NoOpProgressReporter) OnDiscoveryComplete(totalFiles int)       {}
func (NoOpProgressReporter) OnFileProcessed(path string, records int) {}
func (NoOpProgressReporter) OnComplete(summary Summary)               {}
