package extractor

import (
	"strings"

	"github.com/mvp-joe/logsift/internal/pyast"
)

// AliasState tracks, for one file, which local names refer to the logging
// namespace, to the generic log entry point and to severity methods.
type AliasState struct {
	modules    map[string]bool
	factories  map[string]bool
	logMethod  string
	namespaces map[string]bool
	logMethods map[string]bool
	levels     map[string]Severity

	// pending holds the most recently visited plain assignment target. It
	// is consumed by an immediately following getLogger-style call and
	// cleared by every other node, so "LOG = logging.getLogger(...)" only
	// registers LOG when the call directly follows the target in
	// pre-order.
	pending    string
	hasPending bool
}

// NewAliasState returns the initial alias state for cfg.
func NewAliasState(cfg Config) *AliasState {
	s := &AliasState{
		modules:    toSet(cfg.Namespaces),
		factories:  toSet(cfg.Factories),
		logMethod:  cfg.LogMethod,
		namespaces: make(map[string]bool),
		logMethods: map[string]bool{cfg.LogMethod: true},
		levels:     make(map[string]Severity),
	}
	for sev, aliases := range defaultLevelAliases {
		for _, a := range aliases {
			s.levels[a] = sev
		}
	}
	return s
}

func toSet(items []string) map[string]bool {
	out := make(map[string]bool, len(items))
	for _, it := range items {
		out[it] = true
	}
	return out
}

// IsNamespace reports whether name currently refers to the logging
// namespace or a logger.
func (s *AliasState) IsNamespace(name string) bool { return s.namespaces[name] }

// IsLogMethod reports whether name refers to the generic log entry point.
func (s *AliasState) IsLogMethod(name string) bool { return s.logMethods[name] }

// Level returns the canonical severity name maps to.
func (s *AliasState) Level(name string) (Severity, bool) {
	sev, ok := s.levels[name]
	return sev, ok
}

// IsFactory reports whether attr creates loggers, e.g. getLogger.
func (s *AliasState) IsFactory(attr string) bool { return s.factories[attr] }

// TrackImport records "import logging [as x]". A dotted import without an
// alias binds its first component, so "import logging.config" makes
// "logging" available.
func (s *AliasState) TrackImport(imp *pyast.Import) {
	for _, a := range imp.Names {
		if s.modules[a.Name] {
			s.namespaces[a.Bound()] = true
			continue
		}
		if a.AsName == "" {
			if top, _, dotted := strings.Cut(a.Name, "."); dotted && s.modules[top] {
				s.namespaces[top] = true
			}
		}
	}
}

// TrackImportFrom records "from logging import warning as w" and
// "from logging import log as l". Imports without "as" need no tracking:
// the member name is already known.
func (s *AliasState) TrackImportFrom(imp *pyast.ImportFrom) {
	if imp.Level > 0 || !s.modules[imp.Module] {
		return
	}
	for _, a := range imp.Names {
		if a.AsName == "" {
			continue
		}
		if sev, ok := s.levels[a.Name]; ok {
			s.levels[a.AsName] = sev
		} else if a.Name == s.logMethod {
			s.logMethods[a.AsName] = true
		}
	}
}

// SetPending remembers a plain assignment target.
func (s *AliasState) SetPending(name string) {
	s.pending = name
	s.hasPending = true
}

// ClearPending forgets the pending assignment target.
func (s *AliasState) ClearPending() {
	s.pending = ""
	s.hasPending = false
}

// Pending returns the pending assignment target, if any.
func (s *AliasState) Pending() (string, bool) {
	return s.pending, s.hasPending
}

// AddNamespace registers name as referring to a logger.
func (s *AliasState) AddNamespace(name string) {
	s.namespaces[name] = true
}
