package config

import (
	"github.com/mvp-joe/logsift/internal/batch"
	"github.com/mvp-joe/logsift/internal/extractor"
)

// Config represents the complete logsift configuration.
// It can be loaded from .logsift/config.yml with environment variable overrides.
type Config struct {
	Extraction ExtractionConfig `yaml:"extraction" mapstructure:"extraction"`
	Paths      PathsConfig      `yaml:"paths" mapstructure:"paths"`
	Workers    int              `yaml:"workers" mapstructure:"workers"` // 0 means one per CPU
	Output     OutputConfig     `yaml:"output" mapstructure:"output"`
	Cache      CacheConfig      `yaml:"cache" mapstructure:"cache"`
}

// ExtractionConfig configures how logging calls are recognized and resolved.
type ExtractionConfig struct {
	Namespaces  []string `yaml:"namespaces" mapstructure:"namespaces"`   // modules treated as the logging module
	Factories   []string `yaml:"factories" mapstructure:"factories"`     // module attributes that create loggers
	LogMethod   string   `yaml:"log_method" mapstructure:"log_method"`   // generic entry point taking the level first
	Placeholder string   `yaml:"placeholder" mapstructure:"placeholder"` // replaces unresolvable message parts
	MaxDepth    int      `yaml:"max_depth" mapstructure:"max_depth"`     // recursion bound while resolving messages
}

// PathsConfig defines which files to extract from and which to ignore.
type PathsConfig struct {
	Include []string `yaml:"include" mapstructure:"include"` // glob patterns for source files
	Ignore  []string `yaml:"ignore" mapstructure:"ignore"`   // glob patterns to skip
}

// OutputConfig defines where extracted records go.
type OutputConfig struct {
	Format string `yaml:"format" mapstructure:"format"` // "csv" or "sqlite"
	Path   string `yaml:"path" mapstructure:"path"`     // empty writes csv to stdout
	Header bool   `yaml:"header" mapstructure:"header"` // csv header row
}

// CacheConfig sizes the per-file result cache.
type CacheConfig struct {
	Size int `yaml:"size" mapstructure:"size"` // 0 disables caching
}

// Output formats.
const (
	FormatCSV    = "csv"
	FormatSQLite = "sqlite"
)

// Default returns a configuration with sensible defaults.
func Default() *Config {
	ex := extractor.DefaultConfig()
	return &Config{
		Extraction: ExtractionConfig{
			Namespaces:  ex.Namespaces,
			Factories:   ex.Factories,
			LogMethod:   ex.LogMethod,
			Placeholder: ex.Placeholder,
			MaxDepth:    ex.MaxDepth,
		},
		Paths: PathsConfig{
			Include: append([]string(nil), batch.DefaultIncludes...),
			Ignore:  append([]string(nil), batch.DefaultIgnores...),
		},
		Workers: 0,
		Output: OutputConfig{
			Format: FormatCSV,
			Path:   "",
			Header: true,
		},
		Cache: CacheConfig{
			Size: batch.DefaultCacheSize,
		},
	}
}

// ExtractorConfig converts the extraction section into the engine's config.
func (c *Config) ExtractorConfig() extractor.Config {
	return extractor.Config{
		Namespaces:  c.Extraction.Namespaces,
		Factories:   c.Extraction.Factories,
		LogMethod:   c.Extraction.LogMethod,
		Placeholder: c.Extraction.Placeholder,
		MaxDepth:    c.Extraction.MaxDepth,
	}
}
