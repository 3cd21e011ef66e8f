package extractor

import (
	"errors"
	"fmt"
	"strings"

	"github.com/mvp-joe/logsift/internal/pyast"
)

// errNotLogging marks a classified call whose callee turns out not to name
// a severity. It is never reported.
var errNotLogging = errors.New("not a logging call")

// resolveLevel returns the severity of a classified call and the position
// of its message argument.
func (w *walker) resolveLevel(call *pyast.Call, callee string) (Severity, int, error) {
	if w.state.IsLogMethod(callee) {
		if hasUnpacking(call) || len(call.Args) < 2 {
			return "", 0, fmt.Errorf("%w: %s() needs a level and a message", ErrMalformedCall, callee)
		}
		sev, err := w.levelOf(call.Args[0])
		return sev, 1, err
	}

	sev, ok := w.state.Level(callee)
	if !ok {
		return "", 0, errNotLogging
	}
	if hasUnpacking(call) || len(call.Args) < 1 {
		return "", 0, fmt.Errorf("%w: %s() needs a message", ErrMalformedCall, callee)
	}
	return sev, 0, nil
}

// hasUnpacking reports "*args" or "**kwargs" in a call.
func hasUnpacking(call *pyast.Call) bool {
	for _, a := range call.Args {
		if a.Kind() == pyast.KindStarred {
			return true
		}
	}
	for _, kw := range call.Keywords {
		if kw.Arg == "" {
			return true
		}
	}
	return false
}

// levelOf resolves the level argument of a generic log call.
func (w *walker) levelOf(arg pyast.Node) (Severity, error) {
	var token string
	switch v := arg.(type) {
	case *pyast.Const:
		t, err := levelToken(v)
		if err != nil {
			return "", err
		}
		token = t
	case *pyast.Attribute:
		token = strings.ToLower(v.Attr)
		if _, ok := w.state.Level(token); !ok {
			if k, ok := w.safeInfer(v).(*pyast.Const); ok {
				if t, err := levelToken(k); err == nil {
					token = t
				}
			}
		}
	case *pyast.Name, *pyast.Call:
		k, ok := w.safeInfer(v).(*pyast.Const)
		if !ok {
			return "", fmt.Errorf("%w: %s is not a constant", ErrUnresolvedLevel, v.Kind())
		}
		t, err := levelToken(k)
		if err != nil {
			return "", err
		}
		token = t
	default:
		return "", fmt.Errorf("%w: unsupported %s", ErrUnresolvedLevel, arg.Kind())
	}

	sev, ok := w.state.Level(token)
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownLevel, token)
	}
	return sev, nil
}

// levelToken maps a numeric level through the standard table and
// lower-cases a level name.
func levelToken(k *pyast.Const) (string, error) {
	switch v := k.Value.(type) {
	case int64:
		if name, ok := numericLevels[v]; ok {
			return name, nil
		}
		return "", fmt.Errorf("%w: Level %d", ErrUnknownLevel, v)
	case string:
		return strings.ToLower(v), nil
	}
	return "", fmt.Errorf("%w: %s", ErrUnknownLevel, constString(k))
}
