package extractor

import (
	"strings"

	"github.com/mvp-joe/logsift/internal/pyast"
)

// Text is the outcome of resolving an expression: a literal string, or
// unresolved.
type Text struct {
	Value    string
	Resolved bool
}

// Literal returns a resolved Text.
func Literal(s string) Text { return Text{Value: s, Resolved: true} }

// Unresolved is the Text of an expression with no literal form.
var Unresolved = Text{}

// Or returns the literal, or placeholder when t is unresolved.
func (t Text) Or(placeholder string) string {
	if t.Resolved {
		return t.Value
	}
	return placeholder
}

// resolver folds message expressions into literal text without executing
// anything. It is not safe for concurrent use.
type resolver struct {
	placeholder string
	maxDepth    int
	// infer returns the single unambiguous value of n, or nil.
	infer func(n pyast.Node) pyast.Node

	depth int
}

// Resolve folds n into text. Parts that cannot be folded become the
// placeholder; only a bad template or exhausted depth leaves the whole
// result unresolved.
func (r *resolver) Resolve(n pyast.Node) Text {
	if n == nil || r.depth >= r.maxDepth {
		return Unresolved
	}
	r.depth++
	defer func() { r.depth-- }()

	switch v := n.(type) {
	case *pyast.Const:
		return Literal(constString(v))
	case *pyast.FormattedValue:
		return r.Resolve(v.Value)
	case *pyast.Call:
		if attr, ok := v.Func.(*pyast.Attribute); ok && attr.Attr == "format" {
			return r.format(attr, v.Args)
		}
	case *pyast.JoinedStr:
		return r.joined(v)
	case *pyast.BinOp:
		switch v.Op {
		case "%":
			return r.percent(v)
		case "+":
			return r.concat(v)
		}
	case *pyast.Dict, *pyast.FunctionDef, *pyast.ClassDef, *pyast.Lambda:
		return Literal(r.placeholder)
	}

	inferred := r.infer(n)
	if inferred == nil || inferred == n {
		return Literal(r.placeholder)
	}
	return r.Resolve(inferred)
}

// format handles "template.format(args...)". Keyword arguments are ignored.
func (r *resolver) format(attr *pyast.Attribute, args []pyast.Node) Text {
	tmpl := r.Resolve(attr.Value)
	if !tmpl.Resolved {
		return Unresolved
	}
	return Literal(substituteBraces(tmpl.Value, r.args(args), r.placeholder))
}

func (r *resolver) joined(j *pyast.JoinedStr) Text {
	var b strings.Builder
	for _, part := range j.Values {
		b.WriteString(r.Resolve(part).Or(r.placeholder))
	}
	return Literal(b.String())
}

// percent handles "template % args". A tuple operand supplies one argument
// per element, a dict literal supplies keyed values, anything else is a
// single argument.
func (r *resolver) percent(b *pyast.BinOp) Text {
	tmpl := r.Resolve(b.Left)
	if !tmpl.Resolved {
		return Unresolved
	}
	switch right := b.Right.(type) {
	case *pyast.Tuple:
		return Literal(substitutePercent(tmpl.Value, r.args(right.Elts), nil, r.placeholder))
	case *pyast.Dict:
		values, named := r.mapping(right)
		return Literal(substitutePercent(tmpl.Value, values, named, r.placeholder))
	}
	return Literal(substitutePercent(tmpl.Value, r.args([]pyast.Node{b.Right}), nil, r.placeholder))
}

func (r *resolver) concat(b *pyast.BinOp) Text {
	left := r.Resolve(b.Left).Or(r.placeholder)
	right := r.Resolve(b.Right).Or(r.placeholder)
	return Literal(left + right)
}

// args resolves argument expressions; empty or unresolved arguments become
// the placeholder.
func (r *resolver) args(nodes []pyast.Node) []string {
	out := make([]string, 0, len(nodes))
	for _, n := range nodes {
		s := r.Resolve(n).Or(r.placeholder)
		if s == "" {
			s = r.placeholder
		}
		out = append(out, s)
	}
	return out
}

// mapping resolves the values of a dict literal in order, and by key where
// the key is a string constant.
func (r *resolver) mapping(d *pyast.Dict) ([]string, map[string]string) {
	values := r.args(d.Values)
	named := make(map[string]string, len(values))
	for i, key := range d.Keys {
		if k, ok := key.(*pyast.Const); ok {
			if s, ok := k.Value.(string); ok {
				named[s] = values[i]
			}
		}
	}
	return values, named
}

// applyExtras substitutes the call arguments that follow the message into
// its remaining percent specifiers, the way logging formats msg % args. A
// single call argument is inferred first; a single dict argument supplies
// keyed values.
func (r *resolver) applyExtras(message string, extras []pyast.Node) string {
	if len(extras) == 0 {
		return message
	}
	if len(extras) == 1 {
		if call, ok := extras[0].(*pyast.Call); ok {
			if inferred := r.infer(call); inferred != nil {
				extras = []pyast.Node{inferred}
			} else {
				extras = []pyast.Node{pyast.NewConst(r.placeholder, call.Line())}
			}
		}
		if d, ok := extras[0].(*pyast.Dict); ok {
			values, named := r.mapping(d)
			return substitutePercent(message, values, named, r.placeholder)
		}
	}
	return substitutePercent(message, r.args(extras), nil, r.placeholder)
}
