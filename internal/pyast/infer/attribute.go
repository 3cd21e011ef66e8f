package infer

import "github.com/mvp-joe/logsift/internal/pyast"

func (e *Inferencer) inferAttribute(a *pyast.Attribute) ([]pyast.Node, error) {
	receivers, err := e.infer(a.Value)
	if err != nil {
		return nil, err
	}

	var out []pyast.Node
	for _, r := range receivers {
		nodes, err := e.attributeOf(r, a.Attr, a.Line())
		if err != nil {
			return nil, err
		}
		out = append(out, nodes...)
	}
	return out, nil
}

func (e *Inferencer) attributeOf(obj pyast.Node, attr string, line int) ([]pyast.Node, error) {
	switch v := obj.(type) {
	case *pyast.ModuleRef:
		if e.loggingModules[v.Name] {
			return e.loggingMember(v.Name, attr, line)
		}
	case *pyast.Instance:
		return e.instanceAttr(v.Class, attr, line)
	case *pyast.ClassDef:
		return e.classAttr(e.classOf(v), attr)
	}
	return nil, ErrUninferable
}

// mro returns c followed by its ancestors.
func mro(c *pyast.Class) []*pyast.Class {
	return append([]*pyast.Class{c}, c.Ancestors()...)
}

// instanceAttr looks attr up on an instance: methods first, then values
// assigned through self in any method, then class-level values, then the
// methods of a builtin Logger ancestor.
func (e *Inferencer) instanceAttr(cls *pyast.Class, attr string, line int) ([]pyast.Node, error) {
	if cls == nil {
		return nil, ErrUninferable
	}
	chain := mro(cls)

	for _, c := range chain {
		if c.Def == nil {
			continue
		}
		if def := methodIn(c.Def, attr); def != nil {
			if def.HasDecorator("property") {
				return e.returnsOf(def)
			}
			return []pyast.Node{pyast.NewBoundMethod(attr, c, def, line)}, nil
		}
	}

	if values, found := selfAssignments(chain, attr); found {
		return e.inferValues(values)
	}

	for _, c := range chain {
		if c.Def == nil {
			continue
		}
		if values, found := classAssignments(c.Def, attr); found {
			return e.inferValues(values)
		}
	}

	for _, c := range chain {
		if c.Def == nil && c.IsSubclassOf(pyast.LoggerQName) && loggerMethods[attr] {
			return []pyast.Node{pyast.NewBoundMethod(attr, c, nil, line)}, nil
		}
	}
	return nil, ErrUninferable
}

// classAttr looks attr up on a class object.
func (e *Inferencer) classAttr(cls *pyast.Class, attr string) ([]pyast.Node, error) {
	for _, c := range mro(cls) {
		if c.Def == nil {
			continue
		}
		if def := methodIn(c.Def, attr); def != nil {
			return []pyast.Node{def}, nil
		}
		if values, found := classAssignments(c.Def, attr); found {
			return e.inferValues(values)
		}
	}
	return nil, ErrUninferable
}

func (e *Inferencer) inferValues(values []pyast.Node) ([]pyast.Node, error) {
	var out []pyast.Node
	for _, v := range values {
		if v == nil {
			return nil, ErrUninferable
		}
		nodes, err := e.infer(v)
		if err != nil {
			return nil, err
		}
		out = append(out, nodes...)
	}
	return out, nil
}

// methodIn returns the last method named name defined directly in def.
func methodIn(def *pyast.ClassDef, name string) *pyast.FunctionDef {
	var found *pyast.FunctionDef
	for _, stmt := range def.Body {
		if fn, ok := stmt.(*pyast.FunctionDef); ok && fn.Name == name {
			found = fn
		}
	}
	return found
}

// classAssignments collects the values bound to name directly in a class
// body. A nil value marks a binding whose value is unknown.
func classAssignments(def *pyast.ClassDef, name string) ([]pyast.Node, bool) {
	var values []pyast.Node
	found := false
	for _, stmt := range def.Body {
		assign, ok := stmt.(*pyast.Assign)
		if !ok {
			continue
		}
		for _, target := range assign.Targets {
			if n, ok := target.(*pyast.Name); ok && n.ID == name {
				values = append(values, assign.Value)
				found = true
			}
		}
	}
	return values, found
}

// selfAssignments collects the values assigned to self.<name> in the
// methods of every class in chain.
func selfAssignments(chain []*pyast.Class, name string) ([]pyast.Node, bool) {
	var values []pyast.Node
	found := false

	for _, c := range chain {
		if c.Def == nil {
			continue
		}
		for _, stmt := range c.Def.Body {
			fn, ok := stmt.(*pyast.FunctionDef)
			if !ok || len(fn.Params) == 0 || fn.HasDecorator("staticmethod") || fn.HasDecorator("classmethod") {
				continue
			}
			self := fn.Params[0].Name

			var visit func(n pyast.Node)
			visit = func(n pyast.Node) {
				switch v := n.(type) {
				case *pyast.FunctionDef, *pyast.ClassDef, *pyast.Lambda:
					return
				case *pyast.Assign:
					for _, target := range v.Targets {
						if isSelfAttr(target, self, name) {
							values = append(values, v.Value)
							found = true
						} else if containsSelfAttr(target, self, name) {
							values = append(values, nil)
							found = true
						}
					}
				}
				for _, child := range n.Children() {
					if child != nil {
						visit(child)
					}
				}
			}
			for _, s := range fn.Body {
				visit(s)
			}
		}
	}
	return values, found
}

func isSelfAttr(n pyast.Node, self, name string) bool {
	a, ok := n.(*pyast.Attribute)
	if !ok || a.Attr != name {
		return false
	}
	recv, ok := a.Value.(*pyast.Name)
	return ok && recv.ID == self
}

func containsSelfAttr(n pyast.Node, self, name string) bool {
	switch v := n.(type) {
	case *pyast.Tuple:
		for _, elt := range v.Elts {
			if isSelfAttr(elt, self, name) || containsSelfAttr(elt, self, name) {
				return true
			}
		}
	case *pyast.List:
		for _, elt := range v.Elts {
			if isSelfAttr(elt, self, name) || containsSelfAttr(elt, self, name) {
				return true
			}
		}
	case *pyast.Starred:
		return isSelfAttr(v.Value, self, name)
	}
	return false
}
