package infer

import (
	"strings"

	"github.com/mvp-joe/logsift/internal/pyast"
)

type bindingKind int

const (
	bindValue bindingKind = iota
	bindImport
	bindImportFrom
	bindParam
	bindUnknown
)

// binding is one place where a scope binds a name.
type binding struct {
	kind bindingKind
	// stmt introduces the binding; nil for parameters.
	stmt pyast.Node
	// value is the bound expression for bindValue; nil when the value
	// cannot be matched to the target.
	value  pyast.Node
	module string
	member string
	fn     pyast.Node
	param  *pyast.Param
	index  int
}

func (b *binding) end() int {
	if b.stmt == nil {
		return -1
	}
	return pyast.SpanOf(b.stmt).End
}

func (b *binding) unconditional(scope pyast.Node) bool {
	return b.stmt == nil || b.stmt.Parent() == scope
}

// bindings returns every name bound directly in scope, in source order.
func (e *Inferencer) bindings(scope pyast.Node) map[string][]*binding {
	if m, ok := e.scopes[scope]; ok {
		return m
	}

	m := make(map[string][]*binding)
	add := func(name string, b *binding) {
		if name != "" {
			m[name] = append(m[name], b)
		}
	}

	var params []*pyast.Param
	var body []pyast.Node
	switch s := scope.(type) {
	case *pyast.Module:
		body = s.Body
	case *pyast.FunctionDef:
		params, body = s.Params, s.Body
	case *pyast.Lambda:
		params, body = s.Params, []pyast.Node{s.Body}
	case *pyast.ClassDef:
		body = s.Body
	}
	for i, p := range params {
		add(p.Name, &binding{kind: bindParam, fn: scope, param: p, index: i})
	}

	var visit func(n pyast.Node)
	visit = func(n pyast.Node) {
		switch v := n.(type) {
		case *pyast.FunctionDef:
			add(v.Name, &binding{kind: bindValue, stmt: v, value: v})
			return
		case *pyast.ClassDef:
			add(v.Name, &binding{kind: bindValue, stmt: v, value: v})
			return
		case *pyast.Lambda:
			return
		case *pyast.Import:
			for _, a := range v.Names {
				if a.AsName != "" {
					add(a.AsName, &binding{kind: bindImport, stmt: v, module: a.Name})
					continue
				}
				top, _, _ := strings.Cut(a.Name, ".")
				add(top, &binding{kind: bindImport, stmt: v, module: top})
			}
			return
		case *pyast.ImportFrom:
			module := v.Module
			if v.Level > 0 {
				module = ""
			}
			for _, a := range v.Names {
				if a.Name == "*" {
					continue
				}
				add(a.Bound(), &binding{kind: bindImportFrom, stmt: v, module: module, member: a.Name})
			}
			return
		case *pyast.Assign:
			for _, target := range v.Targets {
				bindTarget(add, target, v.Value, v)
			}
			if v.Value != nil {
				visit(v.Value)
			}
			return
		case *pyast.Name:
			if v.Ctx == pyast.Store {
				add(v.ID, &binding{kind: bindUnknown, stmt: v})
			}
			return
		}
		for _, child := range n.Children() {
			if child != nil {
				visit(child)
			}
		}
	}
	for _, stmt := range body {
		if stmt != nil {
			visit(stmt)
		}
	}

	e.scopes[scope] = m
	return m
}

// bindTarget binds the names of an assignment target. Tuple targets are
// matched element-wise against tuple or list displays of the same length.
func bindTarget(add func(string, *binding), target, value pyast.Node, stmt pyast.Node) {
	switch t := target.(type) {
	case *pyast.Name:
		add(t.ID, &binding{kind: bindValue, stmt: stmt, value: value})
	case *pyast.Starred:
		bindTarget(add, t.Value, nil, stmt)
	case *pyast.Tuple:
		bindElements(add, t.Elts, value, stmt)
	case *pyast.List:
		bindElements(add, t.Elts, value, stmt)
	}
}

func bindElements(add func(string, *binding), targets []pyast.Node, value pyast.Node, stmt pyast.Node) {
	var values []pyast.Node
	switch v := value.(type) {
	case *pyast.Tuple:
		values = v.Elts
	case *pyast.List:
		values = v.Elts
	}
	matched := len(values) == len(targets)
	for _, t := range targets {
		if _, starred := t.(*pyast.Starred); starred {
			matched = false
		}
	}
	for i, t := range targets {
		if matched {
			bindTarget(add, t, values[i], stmt)
			continue
		}
		bindTarget(add, t, nil, stmt)
	}
}

// inferName resolves a name through the enclosing scopes. Class scopes are
// only visible to code directly in the class body.
func (e *Inferencer) inferName(n *pyast.Name) ([]pyast.Node, error) {
	nested := false
	for scope := pyast.ScopeOf(n); scope != nil; scope = pyast.ScopeOf(scope) {
		if _, isClass := scope.(*pyast.ClassDef); isClass && nested {
			continue
		}
		if bs := e.bindings(scope)[n.ID]; len(bs) > 0 {
			return e.inferBindings(visible(bs, scope, n, nested), n.Line())
		}
		nested = true
	}
	return nil, ErrUninferable
}

// visible narrows the bindings of a name to those that can reach the use.
// Uses in an inner scope see every binding; uses in the binding scope see
// the preceding bindings back to the last unconditional one.
func visible(bs []*binding, scope pyast.Node, use pyast.Node, nested bool) []*binding {
	if nested {
		return bs
	}
	pos := pyast.SpanOf(use).Start
	var preceding []*binding
	for _, b := range bs {
		if b.end() <= pos {
			preceding = append(preceding, b)
		}
	}
	start := 0
	for i, b := range preceding {
		if b.unconditional(scope) {
			start = i
		}
	}
	if len(preceding) == 0 {
		return nil
	}
	return preceding[start:]
}

func (e *Inferencer) inferBindings(bs []*binding, line int) ([]pyast.Node, error) {
	if len(bs) == 0 {
		return nil, ErrUninferable
	}
	var out []pyast.Node
	for _, b := range bs {
		nodes, err := e.inferBinding(b, line)
		if err != nil {
			return nil, err
		}
		out = append(out, nodes...)
	}
	return out, nil
}

func (e *Inferencer) inferBinding(b *binding, line int) ([]pyast.Node, error) {
	switch b.kind {
	case bindValue:
		if b.value == nil {
			return nil, ErrUninferable
		}
		return e.infer(b.value)
	case bindImport:
		return []pyast.Node{pyast.NewModuleRef(b.module, line)}, nil
	case bindImportFrom:
		if e.loggingModules[b.module] {
			return e.loggingMember(b.module, b.member, line)
		}
	case bindParam:
		return e.inferParam(b, line)
	}
	return nil, ErrUninferable
}

// inferParam infers a parameter without a call site: the first parameter of
// a method is the instance (or the class for classmethods), and a parameter
// annotated with a known class is an instance of it.
func (e *Inferencer) inferParam(b *binding, line int) ([]pyast.Node, error) {
	if fn, ok := b.fn.(*pyast.FunctionDef); ok && b.index == 0 && b.param.Kind == pyast.ParamPlain {
		if cd, ok := fn.Parent().(*pyast.ClassDef); ok && !fn.HasDecorator("staticmethod") {
			if fn.HasDecorator("classmethod") {
				return []pyast.Node{cd}, nil
			}
			return []pyast.Node{pyast.NewInstance(e.classOf(cd), line)}, nil
		}
	}
	if b.param.Annotation != nil && b.param.Kind == pyast.ParamPlain {
		if cls := e.resolveClass(b.param.Annotation); cls != nil {
			return []pyast.Node{pyast.NewInstance(cls, line)}, nil
		}
	}
	return nil, ErrUninferable
}

// resolveClass returns the class an expression unambiguously names.
func (e *Inferencer) resolveClass(n pyast.Node) *pyast.Class {
	nodes, err := e.infer(n)
	if err != nil || len(nodes) != 1 {
		return nil
	}
	switch v := nodes[0].(type) {
	case *pyast.ClassDef:
		return e.classOf(v)
	case *pyast.Builtin:
		return v.Class
	}
	return nil
}

func (e *Inferencer) classOf(def *pyast.ClassDef) *pyast.Class {
	if c, ok := e.classes[def]; ok {
		return c
	}
	c := &pyast.Class{QName: e.qualName(def), Def: def}
	e.classes[def] = c

	for _, base := range def.Bases {
		nodes, err := e.infer(base)
		if err != nil {
			continue
		}
		for _, n := range nodes {
			switch v := n.(type) {
			case *pyast.ClassDef:
				c.Bases = append(c.Bases, e.classOf(v))
			case *pyast.Builtin:
				if v.Class != nil {
					c.Bases = append(c.Bases, v.Class)
				}
			}
		}
	}
	return c
}

func (e *Inferencer) qualName(def *pyast.ClassDef) string {
	names := []string{def.Name}
	for p := def.Parent(); p != nil; p = p.Parent() {
		switch v := p.(type) {
		case *pyast.ClassDef:
			names = append(names, v.Name)
		case *pyast.FunctionDef:
			names = append(names, v.Name)
		}
	}
	var b strings.Builder
	b.WriteString(e.moduleName)
	for i := len(names) - 1; i >= 0; i-- {
		b.WriteByte('.')
		b.WriteString(names[i])
	}
	return b.String()
}
