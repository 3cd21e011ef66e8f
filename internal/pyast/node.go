package pyast

import "sort"

// Kind discriminates the closed set of node variants produced by Parse and by
// the inferencer. Code that dispatches on nodes switches on Kind.
type Kind int

const (
	KindModule Kind = iota
	KindImport
	KindImportFrom
	KindAssign
	KindCall
	KindKeyword
	KindStarred
	KindName
	KindAttribute
	KindConst
	KindBinOp
	KindTuple
	KindList
	KindDict
	KindJoinedStr
	KindFormattedValue
	KindFunctionDef
	KindClassDef
	KindLambda
	KindReturn
	KindBlock

	// Synthetic kinds. These never appear in a parsed tree; they are
	// produced by inference.
	KindInstance
	KindBoundMethod
	KindModuleRef
	KindBuiltin
)

var kindNames = [...]string{
	KindModule:         "Module",
	KindImport:         "Import",
	KindImportFrom:     "ImportFrom",
	KindAssign:         "Assign",
	KindCall:           "Call",
	KindKeyword:        "Keyword",
	KindStarred:        "Starred",
	KindName:           "Name",
	KindAttribute:      "Attribute",
	KindConst:          "Const",
	KindBinOp:          "BinOp",
	KindTuple:          "Tuple",
	KindList:           "List",
	KindDict:           "Dict",
	KindJoinedStr:      "JoinedStr",
	KindFormattedValue: "FormattedValue",
	KindFunctionDef:    "FunctionDef",
	KindClassDef:       "ClassDef",
	KindLambda:         "Lambda",
	KindReturn:         "Return",
	KindBlock:          "Block",
	KindInstance:       "Instance",
	KindBoundMethod:    "BoundMethod",
	KindModuleRef:      "ModuleRef",
	KindBuiltin:        "Builtin",
}

func (k Kind) String() string {
	if k >= 0 && int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "Unknown"
}

// Node is a Python syntax tree node.
type Node interface {
	Kind() Kind
	// Line is the 1-based source line of the node's first character.
	Line() int
	Parent() Node
	// Children returns the child nodes in source order.
	Children() []Node

	base() *nodeBase
}

// Span is the byte range of a node in the source.
type Span struct {
	Start int
	End   int
}

type nodeBase struct {
	line   int
	span   Span
	parent Node
}

func (b *nodeBase) Line() int       { return b.line }
func (b *nodeBase) Parent() Node    { return b.parent }
func (b *nodeBase) base() *nodeBase { return b }

// SpanOf returns the byte range of n. Synthetic nodes have an empty span.
func SpanOf(n Node) Span {
	return n.base().span
}

// Context tells whether a Name or Attribute is read or bound.
type Context int

const (
	Load Context = iota
	Store
)

// Module is the root of a parsed file.
type Module struct {
	nodeBase
	Body []Node
}

func (n *Module) Kind() Kind       { return KindModule }
func (n *Module) Children() []Node { return n.Body }

// Alias is one imported name, e.g. "logging" in "import logging as l" with
// AsName "l".
type Alias struct {
	Name   string
	AsName string
}

// Bound returns the local name the alias introduces.
func (a Alias) Bound() string {
	if a.AsName != "" {
		return a.AsName
	}
	return a.Name
}

// Import is "import a.b as c, d".
type Import struct {
	nodeBase
	Names []Alias
}

func (n *Import) Kind() Kind       { return KindImport }
func (n *Import) Children() []Node { return nil }

// ImportFrom is "from module import a as b". Level counts leading dots of a
// relative import.
type ImportFrom struct {
	nodeBase
	Module string
	Names  []Alias
	Level  int
}

func (n *ImportFrom) Kind() Kind       { return KindImportFrom }
func (n *ImportFrom) Children() []Node { return nil }

// Assign binds Value to every target. "a = b = v" has two targets.
type Assign struct {
	nodeBase
	Targets    []Node
	Annotation Node
	Value      Node
}

func (n *Assign) Kind() Kind { return KindAssign }
func (n *Assign) Children() []Node {
	out := make([]Node, 0, len(n.Targets)+2)
	out = append(out, n.Targets...)
	if n.Annotation != nil {
		out = append(out, n.Annotation)
	}
	if n.Value != nil {
		out = append(out, n.Value)
	}
	return out
}

// Call is a call expression. Args holds positional arguments (Starred for
// "*x"), Keywords the keyword arguments (Arg is empty for "**x").
type Call struct {
	nodeBase
	Func     Node
	Args     []Node
	Keywords []*Keyword
}

func (n *Call) Kind() Kind { return KindCall }
func (n *Call) Children() []Node {
	rest := make([]Node, 0, len(n.Args)+len(n.Keywords))
	rest = append(rest, n.Args...)
	for _, kw := range n.Keywords {
		rest = append(rest, kw)
	}
	sortBySpan(rest)
	return append([]Node{n.Func}, rest...)
}

// Keyword is "name=value" inside a call, or "**value" when Arg is empty.
type Keyword struct {
	nodeBase
	Arg   string
	Value Node
}

func (n *Keyword) Kind() Kind       { return KindKeyword }
func (n *Keyword) Children() []Node { return []Node{n.Value} }

// Starred is "*value".
type Starred struct {
	nodeBase
	Value Node
}

func (n *Starred) Kind() Kind       { return KindStarred }
func (n *Starred) Children() []Node { return []Node{n.Value} }

// Name is an identifier reference or binding.
type Name struct {
	nodeBase
	ID  string
	Ctx Context
}

func (n *Name) Kind() Kind       { return KindName }
func (n *Name) Children() []Node { return nil }

// Attribute is "value.attr".
type Attribute struct {
	nodeBase
	Value Node
	Attr  string
	Ctx   Context
}

func (n *Attribute) Kind() Kind       { return KindAttribute }
func (n *Attribute) Children() []Node { return []Node{n.Value} }

// Const is a literal. Value is one of string, int64, float64, bool or nil
// (None).
type Const struct {
	nodeBase
	Value any
}

func (n *Const) Kind() Kind       { return KindConst }
func (n *Const) Children() []Node { return nil }

// NewConst returns a detached constant, used when folding produces a value
// that has no place in the source.
func NewConst(v any, line int) *Const {
	return &Const{nodeBase: nodeBase{line: line}, Value: v}
}

// BinOp is "left op right". Op is the operator's source text.
type BinOp struct {
	nodeBase
	Left  Node
	Op    string
	Right Node
}

func (n *BinOp) Kind() Kind       { return KindBinOp }
func (n *BinOp) Children() []Node { return []Node{n.Left, n.Right} }

// Tuple is a tuple display, with or without parentheses.
type Tuple struct {
	nodeBase
	Elts []Node
	Ctx  Context
}

func (n *Tuple) Kind() Kind       { return KindTuple }
func (n *Tuple) Children() []Node { return n.Elts }

// List is a list display.
type List struct {
	nodeBase
	Elts []Node
	Ctx  Context
}

func (n *List) Kind() Kind       { return KindList }
func (n *List) Children() []Node { return n.Elts }

// Dict is a dict display. A nil key marks a "**value" entry.
type Dict struct {
	nodeBase
	Keys   []Node
	Values []Node
}

func (n *Dict) Kind() Kind { return KindDict }
func (n *Dict) Children() []Node {
	out := make([]Node, 0, len(n.Keys)+len(n.Values))
	for i, v := range n.Values {
		if n.Keys[i] != nil {
			out = append(out, n.Keys[i])
		}
		out = append(out, v)
	}
	return out
}

// JoinedStr is an f-string: literal Const parts interleaved with
// FormattedValue parts.
type JoinedStr struct {
	nodeBase
	Values []Node
}

func (n *JoinedStr) Kind() Kind       { return KindJoinedStr }
func (n *JoinedStr) Children() []Node { return n.Values }

// FormattedValue is one "{expr!conv:spec}" segment of an f-string.
type FormattedValue struct {
	nodeBase
	Value      Node
	Conversion string
	FormatSpec string
}

func (n *FormattedValue) Kind() Kind       { return KindFormattedValue }
func (n *FormattedValue) Children() []Node { return []Node{n.Value} }

// ParamKind distinguishes plain parameters from "*args" and "**kwargs".
type ParamKind int

const (
	ParamPlain ParamKind = iota
	ParamVarArgs
	ParamKwArgs
)

// Param is one function parameter. Annotation and Default may be nil.
type Param struct {
	Name       string
	Kind       ParamKind
	Annotation Node
	Default    Node
}

// FunctionDef is a "def" statement, decorators included.
type FunctionDef struct {
	nodeBase
	Name       string
	Decorators []Node
	Params     []*Param
	Returns    Node
	Body       []Node
}

func (n *FunctionDef) Kind() Kind { return KindFunctionDef }
func (n *FunctionDef) Children() []Node {
	out := append([]Node{}, n.Decorators...)
	for _, p := range n.Params {
		if p.Annotation != nil {
			out = append(out, p.Annotation)
		}
		if p.Default != nil {
			out = append(out, p.Default)
		}
	}
	if n.Returns != nil {
		out = append(out, n.Returns)
	}
	return append(out, n.Body...)
}

// HasDecorator reports whether the function is decorated with a plain name,
// e.g. "staticmethod".
func (n *FunctionDef) HasDecorator(name string) bool {
	for _, d := range n.Decorators {
		if nm, ok := d.(*Name); ok && nm.ID == name {
			return true
		}
	}
	return false
}

// ClassDef is a "class" statement.
type ClassDef struct {
	nodeBase
	Name       string
	Decorators []Node
	Bases      []Node
	Keywords   []*Keyword
	Body       []Node
}

func (n *ClassDef) Kind() Kind { return KindClassDef }
func (n *ClassDef) Children() []Node {
	out := append([]Node{}, n.Decorators...)
	out = append(out, n.Bases...)
	for _, kw := range n.Keywords {
		out = append(out, kw)
	}
	return append(out, n.Body...)
}

// Lambda is "lambda params: body".
type Lambda struct {
	nodeBase
	Params []*Param
	Body   Node
}

func (n *Lambda) Kind() Kind { return KindLambda }
func (n *Lambda) Children() []Node {
	var out []Node
	for _, p := range n.Params {
		if p.Default != nil {
			out = append(out, p.Default)
		}
	}
	return append(out, n.Body)
}

// Return is a "return" statement. Value is nil for a bare return.
type Return struct {
	nodeBase
	Value Node
}

func (n *Return) Kind() Kind { return KindReturn }
func (n *Return) Children() []Node {
	if n.Value == nil {
		return nil
	}
	return []Node{n.Value}
}

// Block is any statement or expression without a dedicated variant: if/for/
// while/try/with statements, comprehensions, subscripts, comparisons and so
// on. Type is the grammar's name for the construct.
type Block struct {
	nodeBase
	Type  string
	Items []Node
}

func (n *Block) Kind() Kind       { return KindBlock }
func (n *Block) Children() []Node { return n.Items }

func sortBySpan(nodes []Node) {
	sort.SliceStable(nodes, func(i, j int) bool {
		return nodes[i].base().span.Start < nodes[j].base().span.Start
	})
}
