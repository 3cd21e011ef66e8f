package extractor

import (
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"

	"github.com/mvp-joe/logsift/internal/pyast"
)

// walker extracts the logging calls of one module. It owns the alias state
// and the records for the duration of a single walk.
type walker struct {
	cfg      Config
	path     string
	state    *AliasState
	inferrer Inferrer
	resolver *resolver
	logger   *slog.Logger
	result   *Result
}

func newWalker(cfg Config, path string, inferrer Inferrer, logger *slog.Logger) *walker {
	w := &walker{
		cfg:      cfg,
		path:     path,
		state:    NewAliasState(cfg),
		inferrer: inferrer,
		logger:   logger,
		result:   &Result{Path: path},
	}
	w.resolver = &resolver{
		placeholder: cfg.Placeholder,
		maxDepth:    cfg.MaxDepth,
		infer:       w.safeInfer,
	}
	return w
}

// walk visits n and then its children in source order.
func (w *walker) walk(n pyast.Node) {
	w.visit(n)
	for _, child := range n.Children() {
		if child != nil {
			w.walk(child)
		}
	}
}

func (w *walker) visit(n pyast.Node) {
	switch v := n.(type) {
	case *pyast.Import:
		w.state.TrackImport(v)
	case *pyast.ImportFrom:
		w.state.TrackImportFrom(v)
	case *pyast.Call:
		w.visitCall(v)
	case *pyast.Name:
		if v.Ctx == pyast.Store {
			w.state.SetPending(v.ID)
			return
		}
	}
	w.state.ClearPending()
}

// visitCall extracts one call. Failures, panics included, stay local to
// the call.
func (w *walker) visitCall(call *pyast.Call) {
	defer func() {
		if r := recover(); r != nil {
			w.skip(call, fmt.Errorf("panic: %v", r))
			w.logger.Debug("recovered while extracting call",
				"file", w.path, "line", call.Line(), "stack", string(debug.Stack()))
		}
	}()

	if target, ok := w.state.Pending(); ok && w.isFactoryCall(call) {
		w.state.AddNamespace(target)
		return
	}

	callee, ok := w.classify(call)
	if !ok {
		return
	}

	sev, msgPos, err := w.resolveLevel(call, callee)
	if errors.Is(err, errNotLogging) {
		return
	}
	if err != nil {
		w.skip(call, err)
		return
	}

	text := w.resolver.Resolve(call.Args[msgPos])
	if !text.Resolved {
		w.logger.Debug("unable to resolve log message", "file", w.path, "line", call.Line())
	}
	message := w.resolver.applyExtras(text.Or(w.cfg.Placeholder), call.Args[msgPos+1:])

	w.result.Records = append(w.result.Records, Record{
		Line:     call.Line(),
		Severity: sev,
		Message:  message,
	})
}

func (w *walker) skip(call *pyast.Call, err error) {
	w.result.Diagnostics = append(w.result.Diagnostics, Diagnostic{
		Line:   call.Line(),
		Reason: err.Error(),
		Err:    fmt.Errorf("%s:%d: %w", w.path, call.Line(), err),
	})
	w.logger.Info("skipping logging call", "file", w.path, "line", call.Line(), "reason", err.Error())
}
