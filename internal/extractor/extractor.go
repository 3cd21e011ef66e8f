// Package extractor finds logging calls in Python modules and reconstructs
// their severity and message text.
//
// Extraction walks the syntax tree in pre-order. Imports and assignments
// update a per-file alias state, calls are classified against it, and the
// message argument of every logging call is folded into a literal string.
// Anything that cannot be folded is replaced with a placeholder token.
package extractor

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/mvp-joe/logsift/internal/pyast"
	"github.com/mvp-joe/logsift/internal/pyast/infer"
)

// Parser parses Python source into a module.
type Parser interface {
	Parse(ctx context.Context, source []byte) (*pyast.Module, error)
}

// Inferrer infers the possible values of an expression. More than one
// distinct type tag among the candidates means the value is ambiguous.
type Inferrer interface {
	Infer(n pyast.Node) ([]pyast.Candidate, error)
}

// InferrerFactory builds the Inferrer for one module.
type InferrerFactory func(mod *pyast.Module, cfg Config) Inferrer

// Option configures an Extractor.
type Option func(*Extractor)

// WithParser replaces the tree-sitter parser.
func WithParser(p Parser) Option {
	return func(e *Extractor) { e.parser = p }
}

// WithInferrer replaces the inferencer. A nil factory disables inference.
func WithInferrer(f InferrerFactory) Option {
	return func(e *Extractor) { e.newInferrer = f }
}

// WithLogger sets the logger for skipped calls.
func WithLogger(l *slog.Logger) Option {
	return func(e *Extractor) {
		if l != nil {
			e.logger = l
		}
	}
}

// Extractor extracts logging calls from Python source. It holds no
// per-file state, so one Extractor can serve concurrent Extract calls as
// long as its Parser can.
type Extractor struct {
	cfg         Config
	parser      Parser
	newInferrer InferrerFactory
	logger      *slog.Logger
}

// New creates an Extractor. Zero values in cfg fall back to DefaultConfig.
func New(cfg Config, opts ...Option) *Extractor {
	e := &Extractor{
		cfg:         withDefaults(cfg),
		parser:      pyast.NewParser(),
		newInferrer: defaultInferrer,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func withDefaults(cfg Config) Config {
	def := DefaultConfig()
	if cfg.Namespaces == nil {
		cfg.Namespaces = def.Namespaces
	}
	if cfg.Factories == nil {
		cfg.Factories = def.Factories
	}
	if cfg.LogMethod == "" {
		cfg.LogMethod = def.LogMethod
	}
	if cfg.Placeholder == "" {
		cfg.Placeholder = def.Placeholder
	}
	if cfg.MaxDepth <= 0 {
		cfg.MaxDepth = def.MaxDepth
	}
	return cfg
}

func defaultInferrer(mod *pyast.Module, cfg Config) Inferrer {
	return infer.New(mod,
		infer.WithLoggingModules(cfg.Namespaces...),
		infer.WithMaxDepth(cfg.MaxDepth),
	)
}

// Config returns the effective configuration.
func (e *Extractor) Config() Config {
	return e.cfg
}

// Extract parses source and extracts its logging calls. path only labels
// diagnostics. A parse failure is returned as ErrParse.
func (e *Extractor) Extract(ctx context.Context, path string, source []byte) (*Result, error) {
	mod, err := e.parser.Parse(ctx, source)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, fmt.Errorf("%w: %s: %w", ErrParse, path, err)
	}
	return e.ExtractModule(path, mod), nil
}

// ExtractModule extracts the logging calls of an already parsed module.
func (e *Extractor) ExtractModule(path string, mod *pyast.Module) *Result {
	var inferrer Inferrer
	if e.newInferrer != nil {
		inferrer = e.newInferrer(mod, e.cfg)
	}
	w := newWalker(e.cfg, path, inferrer, e.logger)
	w.walk(mod)
	return w.result
}
