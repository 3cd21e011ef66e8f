package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/gobwas/glob"
)

var (
	// ErrEmptyPlaceholder indicates a missing placeholder token
	ErrEmptyPlaceholder = errors.New("empty placeholder")

	// ErrInvalidDepth indicates a non-positive recursion bound
	ErrInvalidDepth = errors.New("invalid max depth")

	// ErrEmptyNamespaces indicates no logging namespace was configured
	ErrEmptyNamespaces = errors.New("empty logging namespaces")

	// ErrEmptyLogMethod indicates a missing generic log method name
	ErrEmptyLogMethod = errors.New("empty log method")

	// ErrInvalidPattern indicates a glob that does not compile
	ErrInvalidPattern = errors.New("invalid glob pattern")

	// ErrInvalidWorkers indicates a negative worker count
	ErrInvalidWorkers = errors.New("invalid worker count")

	// ErrInvalidFormat indicates an unsupported output format
	ErrInvalidFormat = errors.New("invalid output format")

	// ErrInvalidCacheSettings indicates invalid cache configuration
	ErrInvalidCacheSettings = errors.New("invalid cache settings")
)

// Validate checks that the configuration is valid and complete.
func Validate(cfg *Config) error {
	var errs []error

	if err := validateExtraction(&cfg.Extraction); err != nil {
		errs = append(errs, err)
	}

	if err := validatePaths(&cfg.Paths); err != nil {
		errs = append(errs, err)
	}

	if cfg.Workers < 0 {
		errs = append(errs, fmt.Errorf("%w: workers cannot be negative, got %d", ErrInvalidWorkers, cfg.Workers))
	}

	if err := validateOutput(&cfg.Output); err != nil {
		errs = append(errs, err)
	}

	// Zero disables the cache.
	if cfg.Cache.Size < 0 {
		errs = append(errs, fmt.Errorf("%w: size cannot be negative, got %d", ErrInvalidCacheSettings, cfg.Cache.Size))
	}

	if len(errs) > 0 {
		return joinErrors(errs)
	}

	return nil
}

func validateExtraction(cfg *ExtractionConfig) error {
	var errs []error

	if cfg.Placeholder == "" {
		errs = append(errs, fmt.Errorf("%w: placeholder is required", ErrEmptyPlaceholder))
	}

	if cfg.MaxDepth <= 0 {
		errs = append(errs, fmt.Errorf("%w: max_depth must be positive, got %d", ErrInvalidDepth, cfg.MaxDepth))
	}

	if len(cfg.Namespaces) == 0 {
		errs = append(errs, fmt.Errorf("%w: at least one namespace required", ErrEmptyNamespaces))
	}
	for _, ns := range cfg.Namespaces {
		if strings.TrimSpace(ns) == "" {
			errs = append(errs, fmt.Errorf("%w: blank namespace", ErrEmptyNamespaces))
		}
	}

	if strings.TrimSpace(cfg.LogMethod) == "" {
		errs = append(errs, fmt.Errorf("%w: log_method is required", ErrEmptyLogMethod))
	}

	if len(errs) > 0 {
		return joinErrors(errs)
	}

	return nil
}

func validatePaths(cfg *PathsConfig) error {
	var errs []error

	// An empty include list falls back to the defaults at discovery time.
	for _, pattern := range append(append([]string(nil), cfg.Include...), cfg.Ignore...) {
		if _, err := glob.Compile(pattern, '/'); err != nil {
			errs = append(errs, fmt.Errorf("%w: %q: %v", ErrInvalidPattern, pattern, err))
		}
	}

	if len(errs) > 0 {
		return joinErrors(errs)
	}

	return nil
}

func validateOutput(cfg *OutputConfig) error {
	switch cfg.Format {
	case FormatCSV:
		return nil
	case FormatSQLite:
		if strings.TrimSpace(cfg.Path) == "" {
			return fmt.Errorf("%w: sqlite output requires a path", ErrInvalidFormat)
		}
		return nil
	default:
		return fmt.Errorf("%w: must be '%s' or '%s', got '%s'", ErrInvalidFormat, FormatCSV, FormatSQLite, cfg.Format)
	}
}

// joinErrors combines multiple errors into a single error with clear formatting.
func joinErrors(errs []error) error {
	if len(errs) == 0 {
		return nil
	}

	if len(errs) == 1 {
		return errs[0]
	}

	var msgs []string
	for _, err := range errs {
		msgs = append(msgs, err.Error())
	}

	return fmt.Errorf("validation failed:\n  - %s", strings.Join(msgs, "\n  - "))
}
