package extractor

import "github.com/mvp-joe/logsift/internal/pyast"

// classify decides whether call is a logging call and returns the callee
// name that selects its level. Rules, first match wins:
//  1. an attribute call on a receiver chain rooted at a logging alias
//  2. a bare call of a log method alias or a severity alias
//  3. a callee that infers to a method of logging.Logger or a subclass
func (w *walker) classify(call *pyast.Call) (string, bool) {
	switch fn := call.Func.(type) {
	case *pyast.Attribute:
		if w.rootedInLogging(fn.Value) {
			return fn.Attr, true
		}
	case *pyast.Name:
		if w.state.IsLogMethod(fn.ID) {
			return fn.ID, true
		}
		if _, ok := w.state.Level(fn.ID); ok {
			return fn.ID, true
		}
	}

	if m, ok := w.safeInfer(call.Func).(*pyast.BoundMethod); ok {
		if m.Class != nil && m.Class.IsSubclassOf(pyast.LoggerQName) {
			return m.Name, true
		}
	}
	return "", false
}

// rootedInLogging follows attribute receivers down to a name and reports
// whether that name is a namespace or log method alias.
func (w *walker) rootedInLogging(n pyast.Node) bool {
	switch v := n.(type) {
	case *pyast.Name:
		return w.state.IsNamespace(v.ID) || w.state.IsLogMethod(v.ID)
	case *pyast.Attribute:
		return w.rootedInLogging(v.Value)
	}
	return false
}

// isFactoryCall reports whether call is "<namespace>.getLogger(...)" or
// another configured logger factory.
func (w *walker) isFactoryCall(call *pyast.Call) bool {
	attr, ok := call.Func.(*pyast.Attribute)
	return ok && w.state.IsFactory(attr.Attr) && w.rootedInLogging(attr.Value)
}

// safeInfer returns the single value of n, or nil when inference fails or
// the candidates disagree on their type.
func (w *walker) safeInfer(n pyast.Node) pyast.Node {
	if w.inferrer == nil || n == nil {
		return nil
	}
	cands, err := w.inferrer.Infer(n)
	if err != nil || len(cands) == 0 || pyast.Ambiguous(cands) {
		return nil
	}
	return cands[0].Node
}
