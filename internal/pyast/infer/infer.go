// Package infer implements best-effort static inference over a pyast.Module.
//
// Inference never executes code. It follows name bindings through the
// enclosing scopes, calls into functions defined in the same file, resolves
// attributes on instances of classes defined in the file, and models the
// parts of the logging module that matter for finding logger objects. Any
// step it cannot follow makes the whole expression uninferable.
package infer

import (
	"errors"

	"github.com/mvp-joe/logsift/internal/pyast"
)

var (
	// ErrUninferable means the expression has no statically known value.
	ErrUninferable = errors.New("expression is uninferable")

	// ErrDepth means inference gave up after too many nested steps.
	ErrDepth = errors.New("inference depth exceeded")
)

// DefaultMaxDepth bounds nested inference steps.
const DefaultMaxDepth = 64

// Option configures an Inferencer.
type Option func(*Inferencer)

// WithLoggingModules sets the module names that behave like the standard
// logging module.
func WithLoggingModules(names ...string) Option {
	return func(e *Inferencer) {
		e.loggingModules = make(map[string]bool, len(names))
		for _, n := range names {
			e.loggingModules[n] = true
		}
	}
}

// WithMaxDepth overrides DefaultMaxDepth.
func WithMaxDepth(depth int) Option {
	return func(e *Inferencer) {
		if depth > 0 {
			e.maxDepth = depth
		}
	}
}

// WithModuleName sets the name used to qualify classes defined in the file.
func WithModuleName(name string) Option {
	return func(e *Inferencer) {
		if name != "" {
			e.moduleName = name
		}
	}
}

type result struct {
	nodes []pyast.Node
	err   error
}

// Inferencer infers values for nodes of a single module. It caches results
// and is not safe for concurrent use.
type Inferencer struct {
	module         *pyast.Module
	loggingModules map[string]bool
	moduleName     string
	maxDepth       int

	depth   int
	memo    map[pyast.Node]result
	active  map[pyast.Node]bool
	scopes  map[pyast.Node]map[string][]*binding
	classes map[*pyast.ClassDef]*pyast.Class

	logger     *pyast.Class
	rootLogger *pyast.Class
}

// New creates an Inferencer for mod.
func New(mod *pyast.Module, opts ...Option) *Inferencer {
	logger := &pyast.Class{QName: pyast.LoggerQName}
	e := &Inferencer{
		module:         mod,
		loggingModules: map[string]bool{"logging": true},
		moduleName:     "__main__",
		maxDepth:       DefaultMaxDepth,
		memo:           make(map[pyast.Node]result),
		active:         make(map[pyast.Node]bool),
		scopes:         make(map[pyast.Node]map[string][]*binding),
		classes:        make(map[*pyast.ClassDef]*pyast.Class),
		logger:         logger,
		rootLogger:     &pyast.Class{QName: "logging.RootLogger", Bases: []*pyast.Class{logger}},
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Infer returns the possible values of n with their type tags. Callers
// treat candidates with differing tags as ambiguous.
func (e *Inferencer) Infer(n pyast.Node) ([]pyast.Candidate, error) {
	nodes, err := e.infer(n)
	if err != nil {
		return nil, err
	}
	out := make([]pyast.Candidate, 0, len(nodes))
	for _, v := range nodes {
		out = append(out, pyast.Candidate{Node: v, Type: pyast.TypeOf(v)})
	}
	return out, nil
}

// ClassOf returns the class model of a class defined in the module.
func (e *Inferencer) ClassOf(def *pyast.ClassDef) *pyast.Class {
	return e.classOf(def)
}

func (e *Inferencer) infer(n pyast.Node) ([]pyast.Node, error) {
	if n == nil {
		return nil, ErrUninferable
	}
	if r, ok := e.memo[n]; ok {
		return r.nodes, r.err
	}
	if e.active[n] {
		return nil, ErrUninferable
	}
	if e.depth >= e.maxDepth {
		return nil, ErrDepth
	}

	e.active[n] = true
	e.depth++
	nodes, err := e.dispatch(n)
	e.depth--
	delete(e.active, n)

	if err == nil && len(nodes) == 0 {
		err = ErrUninferable
	}
	if err != nil {
		nodes = nil
	}
	if !errors.Is(err, ErrDepth) {
		e.memo[n] = result{nodes: nodes, err: err}
	}
	return nodes, err
}

func (e *Inferencer) dispatch(n pyast.Node) ([]pyast.Node, error) {
	switch v := n.(type) {
	case *pyast.Const, *pyast.JoinedStr, *pyast.Tuple, *pyast.List, *pyast.Dict,
		*pyast.FunctionDef, *pyast.ClassDef, *pyast.Lambda,
		*pyast.Instance, *pyast.BoundMethod, *pyast.ModuleRef, *pyast.Builtin:
		return []pyast.Node{n}, nil
	case *pyast.BinOp:
		return e.inferBinOp(v)
	case *pyast.Name:
		if v.Ctx == pyast.Store {
			return nil, ErrUninferable
		}
		return e.inferName(v)
	case *pyast.Attribute:
		return e.inferAttribute(v)
	case *pyast.Call:
		return e.inferCall(v)
	case *pyast.FormattedValue:
		return e.infer(v.Value)
	}
	return nil, ErrUninferable
}

// inferBinOp keeps string building expressions as they are and folds
// integer arithmetic on constants.
func (e *Inferencer) inferBinOp(b *pyast.BinOp) ([]pyast.Node, error) {
	if b.Op == "+" || b.Op == "%" {
		if folded, ok := e.foldInts(b); ok {
			return []pyast.Node{folded}, nil
		}
		return []pyast.Node{b}, nil
	}
	if folded, ok := e.foldInts(b); ok {
		return []pyast.Node{folded}, nil
	}
	return nil, ErrUninferable
}

func (e *Inferencer) foldInts(b *pyast.BinOp) (pyast.Node, bool) {
	left, ok := e.intConst(b.Left)
	if !ok {
		return nil, false
	}
	right, ok := e.intConst(b.Right)
	if !ok {
		return nil, false
	}
	var v int64
	switch b.Op {
	case "+":
		v = left + right
	case "-":
		v = left - right
	case "*":
		v = left * right
	case "//":
		if right == 0 {
			return nil, false
		}
		v = left / right
		if (left%right != 0) && ((left < 0) != (right < 0)) {
			v--
		}
	case "|":
		v = left | right
	default:
		return nil, false
	}
	return pyast.NewConst(v, b.Line()), true
}

func (e *Inferencer) intConst(n pyast.Node) (int64, bool) {
	nodes, err := e.infer(n)
	if err != nil || len(nodes) != 1 {
		return 0, false
	}
	k, ok := nodes[0].(*pyast.Const)
	if !ok {
		return 0, false
	}
	v, ok := k.Value.(int64)
	return v, ok
}

func (e *Inferencer) inferCall(c *pyast.Call) ([]pyast.Node, error) {
	callees, err := e.infer(c.Func)
	if err != nil {
		return nil, err
	}

	var out []pyast.Node
	for _, callee := range callees {
		var nodes []pyast.Node
		switch v := callee.(type) {
		case *pyast.FunctionDef:
			nodes, err = e.returnsOf(v)
		case *pyast.Lambda:
			nodes, err = e.infer(v.Body)
		case *pyast.ClassDef:
			nodes = []pyast.Node{pyast.NewInstance(e.classOf(v), c.Line())}
		case *pyast.Builtin:
			nodes, err = e.callBuiltin(v, c)
		case *pyast.BoundMethod:
			nodes, err = e.callMethod(v, c)
		default:
			err = ErrUninferable
		}
		if err != nil {
			return nil, err
		}
		out = append(out, nodes...)
	}
	return out, nil
}

func (e *Inferencer) callMethod(m *pyast.BoundMethod, c *pyast.Call) ([]pyast.Node, error) {
	if m.Def != nil {
		return e.returnsOf(m.Def)
	}
	if m.Class != nil && m.Class.IsSubclassOf(pyast.LoggerQName) && m.Name == "getChild" {
		return []pyast.Node{pyast.NewInstance(e.logger, c.Line())}, nil
	}
	return nil, ErrUninferable
}

// returnsOf infers every value fn can return. A function without return
// statements returns None; generators are not followed.
func (e *Inferencer) returnsOf(fn *pyast.FunctionDef) ([]pyast.Node, error) {
	var returns []*pyast.Return
	generator := false
	var visit func(n pyast.Node)
	visit = func(n pyast.Node) {
		switch v := n.(type) {
		case *pyast.FunctionDef, *pyast.ClassDef, *pyast.Lambda:
			return
		case *pyast.Return:
			returns = append(returns, v)
		case *pyast.Block:
			if v.Type == "yield" {
				generator = true
			}
		}
		for _, child := range n.Children() {
			if child != nil {
				visit(child)
			}
		}
	}
	for _, stmt := range fn.Body {
		visit(stmt)
	}

	if generator {
		return nil, ErrUninferable
	}
	if len(returns) == 0 {
		return []pyast.Node{pyast.NewConst(nil, fn.Line())}, nil
	}

	var out []pyast.Node
	for _, r := range returns {
		if r.Value == nil {
			out = append(out, pyast.NewConst(nil, r.Line()))
			continue
		}
		nodes, err := e.infer(r.Value)
		if err != nil {
			return nil, err
		}
		out = append(out, nodes...)
	}
	return out, nil
}
