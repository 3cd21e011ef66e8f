package extractor

import "strings"

// Severity is the canonical level of a log call.
type Severity string

const (
	Debug    Severity = "debug"
	Info     Severity = "info"
	Warning  Severity = "warning"
	Error    Severity = "error"
	Critical Severity = "critical"
)

// Severities lists the canonical severities from least to most severe.
var Severities = []Severity{Debug, Info, Warning, Error, Critical}

// defaultLevelAliases maps each canonical severity to the method names that
// log at it.
var defaultLevelAliases = map[Severity][]string{
	Debug:    {"debug"},
	Info:     {"info"},
	Warning:  {"warning", "warn"},
	Error:    {"error", "exception"},
	Critical: {"critical"},
}

// numericLevels is the standard severity-number table.
var numericLevels = map[int64]string{
	10: "debug",
	20: "info",
	30: "warning",
	40: "error",
	50: "critical",
}

// Record is one extracted logging call.
type Record struct {
	Line     int      `json:"line_number"`
	Severity Severity `json:"log_level"`
	Message  string   `json:"log_message"`
}

// Diagnostic describes a logging call that could not be extracted.
type Diagnostic struct {
	Line   int    `json:"line"`
	Reason string `json:"reason"`
	Err    error  `json:"-"`
}

// Result holds everything extracted from one file, in traversal order.
type Result struct {
	Path        string
	Records     []Record
	Diagnostics []Diagnostic
}

// HasRecords reports whether any logging call was extracted.
func (r *Result) HasRecords() bool {
	return r != nil && len(r.Records) > 0
}

// Config controls what the extractor recognizes as logging.
type Config struct {
	// Namespaces are the module names treated as the logging module.
	Namespaces []string
	// Factories are the module attributes that create loggers.
	Factories []string
	// LogMethod is the generic entry point that takes the level as its
	// first argument.
	LogMethod string
	// Placeholder replaces every part of a message that cannot be resolved.
	Placeholder string
	// MaxDepth bounds recursion while resolving a message.
	MaxDepth int
}

// DefaultConfig returns the configuration used when none is given.
func DefaultConfig() Config {
	return Config{
		Namespaces:  []string{"logging", "oslo_log"},
		Factories:   []string{"getLogger"},
		LogMethod:   "log",
		Placeholder: "*",
		MaxDepth:    64,
	}
}

// Resolved reports whether the record's message has no placeholder parts.
func (r Record) Resolved(placeholder string) bool {
	return placeholder == "" || !strings.Contains(r.Message, placeholder)
}
