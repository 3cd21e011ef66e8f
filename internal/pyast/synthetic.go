package pyast

// LoggerQName is the qualified name of the standard library Logger class.
const LoggerQName = "logging.Logger"

// Candidate is one possible value of an inferred expression together with
// its static type tag.
type Candidate struct {
	Node Node
	Type string
}

// Ambiguous reports whether the candidates carry more than one distinct
// type tag.
func Ambiguous(cands []Candidate) bool {
	for _, c := range cands[min(1, len(cands)):] {
		if c.Type != cands[0].Type {
			return true
		}
	}
	return false
}

// Class describes a class for ancestry queries. Def is nil for classes that
// are known to the inferencer but not defined in the analyzed file.
type Class struct {
	QName string
	Def   *ClassDef
	Bases []*Class
}

// Ancestors returns every base class reachable from c, nearest first, each
// class once.
func (c *Class) Ancestors() []*Class {
	var out []*Class
	seen := map[*Class]bool{c: true}
	queue := append([]*Class{}, c.Bases...)
	for len(queue) > 0 {
		next := queue[0]
		queue = queue[1:]
		if next == nil || seen[next] {
			continue
		}
		seen[next] = true
		out = append(out, next)
		queue = append(queue, next.Bases...)
	}
	return out
}

// IsSubclassOf reports whether c is, or inherits from, the class named qname.
func (c *Class) IsSubclassOf(qname string) bool {
	if c == nil {
		return false
	}
	if c.QName == qname {
		return true
	}
	for _, a := range c.Ancestors() {
		if a.QName == qname {
			return true
		}
	}
	return false
}

// Instance is an inferred instance of Class.
type Instance struct {
	nodeBase
	Class *Class
}

func (n *Instance) Kind() Kind       { return KindInstance }
func (n *Instance) Children() []Node { return nil }

// BoundMethod is an inferred method bound to an instance. Class is the class
// that declares the method; Def is nil for methods of classes without source.
type BoundMethod struct {
	nodeBase
	Name  string
	Class *Class
	Def   *FunctionDef
}

func (n *BoundMethod) Kind() Kind       { return KindBoundMethod }
func (n *BoundMethod) Children() []Node { return nil }

// ModuleRef is an inferred reference to an imported module.
type ModuleRef struct {
	nodeBase
	Name string
}

func (n *ModuleRef) Kind() Kind       { return KindModuleRef }
func (n *ModuleRef) Children() []Node { return nil }

// Builtin is an inferred object that lives outside the analyzed file, such
// as logging.getLogger or logging.Logger. Class is set when the object is
// itself a class.
type Builtin struct {
	nodeBase
	QName string
	Class *Class
}

func (n *Builtin) Kind() Kind       { return KindBuiltin }
func (n *Builtin) Children() []Node { return nil }

// NewInstance returns an instance of c attributed to line.
func NewInstance(c *Class, line int) *Instance {
	return &Instance{nodeBase: nodeBase{line: line}, Class: c}
}

// NewBoundMethod returns a method named name declared by c.
func NewBoundMethod(name string, c *Class, def *FunctionDef, line int) *BoundMethod {
	return &BoundMethod{nodeBase: nodeBase{line: line}, Name: name, Class: c, Def: def}
}

// NewModuleRef returns a reference to module name.
func NewModuleRef(name string, line int) *ModuleRef {
	return &ModuleRef{nodeBase: nodeBase{line: line}, Name: name}
}

// NewBuiltin returns a reference to an object outside the file.
func NewBuiltin(qname string, c *Class, line int) *Builtin {
	return &Builtin{nodeBase: nodeBase{line: line}, QName: qname, Class: c}
}

// TypeOf returns the static type tag of a value node, the way Python's
// type() would name it. Two inference candidates with different tags are
// ambiguous. The empty tag means the type is not known.
func TypeOf(n Node) string {
	switch v := n.(type) {
	case *Const:
		switch v.Value.(type) {
		case string:
			return "builtins.str"
		case int64:
			return "builtins.int"
		case float64:
			return "builtins.float"
		case bool:
			return "builtins.bool"
		case nil:
			return "builtins.NoneType"
		}
	case *JoinedStr:
		return "builtins.str"
	case *BinOp:
		if v.Op == "%" {
			return "builtins.str"
		}
		return TypeOf(v.Left)
	case *Tuple:
		return "builtins.tuple"
	case *List:
		return "builtins.list"
	case *Dict:
		return "builtins.dict"
	case *FunctionDef, *Lambda:
		return "builtins.function"
	case *ClassDef:
		return "builtins.type"
	case *Instance:
		if v.Class != nil {
			return v.Class.QName
		}
	case *BoundMethod:
		return "builtins.instancemethod"
	case *ModuleRef:
		return "builtins.module"
	case *Builtin:
		if v.Class != nil {
			return "builtins.type"
		}
		return "builtins.builtin_function_or_method"
	}
	return ""
}

// ScopeOf returns the nearest enclosing Module, FunctionDef, Lambda or
// ClassDef of n, not counting n itself.
func ScopeOf(n Node) Node {
	for p := n.Parent(); p != nil; p = p.Parent() {
		switch p.Kind() {
		case KindModule, KindFunctionDef, KindLambda, KindClassDef:
			return p
		}
	}
	return nil
}
