package pyast

import (
	"strconv"
	"strings"

	sitter "github.com/tree-sitter/go-tree-sitter"
)

// converter maps tree-sitter-python nodes onto pyast variants.
type converter struct {
	src []byte
}

func (c *converter) base(n *sitter.Node) nodeBase {
	return nodeBase{
		line: int(n.StartPosition().Row) + 1,
		span: Span{Start: int(n.StartByte()), End: int(n.EndByte())},
	}
}

func (c *converter) text(n *sitter.Node) string {
	if n == nil {
		return ""
	}
	return string(c.src[n.StartByte():n.EndByte()])
}

// named returns the named children of n, comments excluded.
func named(n *sitter.Node) []*sitter.Node {
	if n == nil {
		return nil
	}
	count := int(n.NamedChildCount())
	out := make([]*sitter.Node, 0, count)
	for i := 0; i < count; i++ {
		child := n.NamedChild(uint(i))
		if child == nil || child.Kind() == "comment" {
			continue
		}
		out = append(out, child)
	}
	return out
}

func firstNamed(n *sitter.Node) *sitter.Node {
	if kids := named(n); len(kids) > 0 {
		return kids[0]
	}
	return nil
}

func sameNode(a, b *sitter.Node) bool {
	return a != nil && b != nil && a.StartByte() == b.StartByte() && a.EndByte() == b.EndByte() && a.Kind() == b.Kind()
}

func (c *converter) module(n *sitter.Node) *Module {
	return &Module{nodeBase: c.base(n), Body: c.all(named(n), Load)}
}

func (c *converter) all(nodes []*sitter.Node, ctx Context) []Node {
	out := make([]Node, 0, len(nodes))
	for _, n := range nodes {
		if x := c.convert(n, ctx); x != nil {
			out = append(out, x)
		}
	}
	return out
}

func (c *converter) block(n *sitter.Node, ctx Context) *Block {
	return &Block{nodeBase: c.base(n), Type: n.Kind(), Items: c.all(named(n), ctx)}
}

func (c *converter) convert(n *sitter.Node, ctx Context) Node {
	if n == nil {
		return nil
	}

	switch n.Kind() {
	case "comment":
		return nil

	case "expression_statement":
		items := c.all(named(n), Load)
		if len(items) == 1 {
			return items[0]
		}
		return &Tuple{nodeBase: c.base(n), Elts: items}

	case "assignment":
		return c.assignment(n)

	case "augmented_assignment":
		return &Block{
			nodeBase: c.base(n),
			Type:     n.Kind(),
			Items: []Node{
				c.convert(n.ChildByFieldName("left"), Store),
				c.convert(n.ChildByFieldName("right"), Load),
			},
		}

	case "named_expression":
		return &Assign{
			nodeBase: c.base(n),
			Targets:  []Node{c.convert(n.ChildByFieldName("name"), Store)},
			Value:    c.convert(n.ChildByFieldName("value"), Load),
		}

	case "import_statement":
		return &Import{nodeBase: c.base(n), Names: c.aliases(named(n))}

	case "import_from_statement":
		return c.importFrom(n)

	case "future_import_statement":
		return &ImportFrom{nodeBase: c.base(n), Module: "__future__", Names: c.aliases(named(n))}

	case "function_definition":
		return c.functionDef(n, nil)

	case "class_definition":
		return c.classDef(n, nil)

	case "decorated_definition":
		var decorators []Node
		for _, child := range named(n) {
			if child.Kind() == "decorator" {
				decorators = append(decorators, c.convert(firstNamed(child), Load))
			}
		}
		def := n.ChildByFieldName("definition")
		if def == nil {
			return c.block(n, Load)
		}
		if def.Kind() == "class_definition" {
			return c.classDef(def, decorators)
		}
		return c.functionDef(def, decorators)

	case "return_statement":
		ret := &Return{nodeBase: c.base(n)}
		if value := firstNamed(n); value != nil {
			ret.Value = c.convert(value, Load)
		}
		return ret

	case "for_statement":
		left := n.ChildByFieldName("left")
		items := []Node{c.convert(left, Store)}
		for _, child := range named(n) {
			if !sameNode(child, left) {
				items = append(items, c.convert(child, Load))
			}
		}
		return &Block{nodeBase: c.base(n), Type: n.Kind(), Items: items}

	case "for_in_clause":
		left := n.ChildByFieldName("left")
		items := []Node{c.convert(left, Store)}
		for _, child := range named(n) {
			if !sameNode(child, left) {
				items = append(items, c.convert(child, Load))
			}
		}
		return &Block{nodeBase: c.base(n), Type: n.Kind(), Items: items}

	case "except_clause":
		alias := n.ChildByFieldName("alias")
		var items []Node
		for _, child := range named(n) {
			if sameNode(child, alias) {
				items = append(items, c.convert(child, Store))
				continue
			}
			items = append(items, c.convert(child, Load))
		}
		return &Block{nodeBase: c.base(n), Type: n.Kind(), Items: items}

	case "as_pattern_target":
		return c.convert(firstNamed(n), Store)

	case "identifier":
		return &Name{nodeBase: c.base(n), ID: c.text(n), Ctx: ctx}

	case "attribute":
		return &Attribute{
			nodeBase: c.base(n),
			Value:    c.convert(n.ChildByFieldName("object"), Load),
			Attr:     c.text(n.ChildByFieldName("attribute")),
			Ctx:      ctx,
		}

	case "call":
		return c.call(n)

	case "string":
		parts, isFormat := c.stringParts(n)
		if isFormat {
			return &JoinedStr{nodeBase: c.base(n), Values: parts}
		}
		return &Const{nodeBase: c.base(n), Value: joinConsts(parts)}

	case "concatenated_string":
		var parts []Node
		anyFormat := false
		for _, child := range named(n) {
			p, isFormat := c.stringParts(child)
			parts = append(parts, p...)
			anyFormat = anyFormat || isFormat
		}
		if anyFormat {
			return &JoinedStr{nodeBase: c.base(n), Values: parts}
		}
		return &Const{nodeBase: c.base(n), Value: joinConsts(parts)}

	case "integer":
		return c.integer(n)

	case "float":
		text := strings.ReplaceAll(c.text(n), "_", "")
		if strings.ContainsAny(text, "jJ") {
			return c.block(n, Load)
		}
		f, err := strconv.ParseFloat(text, 64)
		if err != nil {
			return c.block(n, Load)
		}
		return &Const{nodeBase: c.base(n), Value: f}

	case "true":
		return &Const{nodeBase: c.base(n), Value: true}
	case "false":
		return &Const{nodeBase: c.base(n), Value: false}
	case "none":
		return &Const{nodeBase: c.base(n), Value: nil}

	case "binary_operator":
		return &BinOp{
			nodeBase: c.base(n),
			Left:     c.convert(n.ChildByFieldName("left"), Load),
			Op:       c.text(n.ChildByFieldName("operator")),
			Right:    c.convert(n.ChildByFieldName("right"), Load),
		}

	case "parenthesized_expression":
		inner := firstNamed(n)
		if inner == nil {
			return &Tuple{nodeBase: c.base(n), Ctx: ctx}
		}
		return c.convert(inner, ctx)

	case "tuple", "expression_list", "pattern_list", "tuple_pattern":
		return &Tuple{nodeBase: c.base(n), Elts: c.all(named(n), ctx), Ctx: ctx}

	case "list", "list_pattern":
		return &List{nodeBase: c.base(n), Elts: c.all(named(n), ctx), Ctx: ctx}

	case "dictionary":
		return c.dict(n)

	case "lambda":
		l := &Lambda{nodeBase: c.base(n)}
		l.Params = c.params(n.ChildByFieldName("parameters"))
		l.Body = c.convert(n.ChildByFieldName("body"), Load)
		return l

	case "type", "decorator":
		return c.convert(firstNamed(n), Load)

	case "list_splat", "list_splat_pattern":
		return &Starred{nodeBase: c.base(n), Value: c.convert(firstNamed(n), ctx)}

	case "keyword_argument":
		return &Keyword{
			nodeBase: c.base(n),
			Arg:      c.text(n.ChildByFieldName("name")),
			Value:    c.convert(n.ChildByFieldName("value"), Load),
		}
	}

	return c.block(n, Load)
}

func (c *converter) assignment(n *sitter.Node) Node {
	assign := &Assign{nodeBase: c.base(n)}
	cur := n
	for {
		assign.Targets = append(assign.Targets, c.convert(cur.ChildByFieldName("left"), Store))
		if t := cur.ChildByFieldName("type"); t != nil && assign.Annotation == nil {
			assign.Annotation = c.convert(t, Load)
		}
		right := cur.ChildByFieldName("right")
		if right != nil && right.Kind() == "assignment" {
			cur = right
			continue
		}
		if right != nil {
			assign.Value = c.convert(right, Load)
		}
		return assign
	}
}

func (c *converter) aliases(nodes []*sitter.Node) []Alias {
	var out []Alias
	for _, child := range nodes {
		switch child.Kind() {
		case "dotted_name":
			out = append(out, Alias{Name: c.text(child)})
		case "aliased_import":
			out = append(out, Alias{
				Name:   c.text(child.ChildByFieldName("name")),
				AsName: c.text(child.ChildByFieldName("alias")),
			})
		case "wildcard_import":
			out = append(out, Alias{Name: "*"})
		}
	}
	return out
}

func (c *converter) importFrom(n *sitter.Node) *ImportFrom {
	imp := &ImportFrom{nodeBase: c.base(n)}
	moduleNode := n.ChildByFieldName("module_name")
	if moduleNode != nil {
		name := c.text(moduleNode)
		trimmed := strings.TrimLeft(name, ".")
		imp.Level = len(name) - len(trimmed)
		imp.Module = trimmed
	}

	var rest []*sitter.Node
	for _, child := range named(n) {
		if !sameNode(child, moduleNode) {
			rest = append(rest, child)
		}
	}
	imp.Names = c.aliases(rest)
	return imp
}

func (c *converter) functionDef(n *sitter.Node, decorators []Node) *FunctionDef {
	fd := &FunctionDef{
		nodeBase:   c.base(n),
		Name:       c.text(n.ChildByFieldName("name")),
		Decorators: decorators,
	}
	fd.Params = c.params(n.ChildByFieldName("parameters"))
	if rt := n.ChildByFieldName("return_type"); rt != nil {
		fd.Returns = c.convert(rt, Load)
	}
	if body := n.ChildByFieldName("body"); body != nil {
		fd.Body = c.all(named(body), Load)
	}
	return fd
}

func (c *converter) classDef(n *sitter.Node, decorators []Node) *ClassDef {
	cd := &ClassDef{
		nodeBase:   c.base(n),
		Name:       c.text(n.ChildByFieldName("name")),
		Decorators: decorators,
	}
	if supers := n.ChildByFieldName("superclasses"); supers != nil {
		cd.Bases, cd.Keywords = c.arguments(supers)
	}
	if body := n.ChildByFieldName("body"); body != nil {
		cd.Body = c.all(named(body), Load)
	}
	return cd
}

func (c *converter) params(n *sitter.Node) []*Param {
	var out []*Param
	for _, child := range named(n) {
		switch child.Kind() {
		case "identifier":
			out = append(out, &Param{Name: c.text(child)})

		case "typed_parameter":
			p := c.splatParam(firstNamed(child))
			p.Annotation = c.convert(child.ChildByFieldName("type"), Load)
			out = append(out, p)

		case "default_parameter":
			out = append(out, &Param{
				Name:    c.text(child.ChildByFieldName("name")),
				Default: c.convert(child.ChildByFieldName("value"), Load),
			})

		case "typed_default_parameter":
			out = append(out, &Param{
				Name:       c.text(child.ChildByFieldName("name")),
				Annotation: c.convert(child.ChildByFieldName("type"), Load),
				Default:    c.convert(child.ChildByFieldName("value"), Load),
			})

		case "list_splat_pattern", "dictionary_splat_pattern":
			out = append(out, c.splatParam(child))
		}
	}
	return out
}

func (c *converter) splatParam(n *sitter.Node) *Param {
	if n == nil {
		return &Param{}
	}
	switch n.Kind() {
	case "list_splat_pattern":
		return &Param{Name: c.text(firstNamed(n)), Kind: ParamVarArgs}
	case "dictionary_splat_pattern":
		return &Param{Name: c.text(firstNamed(n)), Kind: ParamKwArgs}
	}
	return &Param{Name: c.text(n)}
}

func (c *converter) call(n *sitter.Node) *Call {
	call := &Call{
		nodeBase: c.base(n),
		Func:     c.convert(n.ChildByFieldName("function"), Load),
	}
	args := n.ChildByFieldName("arguments")
	if args == nil {
		return call
	}
	if args.Kind() == "generator_expression" {
		call.Args = []Node{c.convert(args, Load)}
		return call
	}
	call.Args, call.Keywords = c.arguments(args)
	return call
}

func (c *converter) arguments(n *sitter.Node) ([]Node, []*Keyword) {
	var args []Node
	var keywords []*Keyword
	for _, child := range named(n) {
		switch child.Kind() {
		case "keyword_argument":
			keywords = append(keywords, c.convert(child, Load).(*Keyword))
		case "dictionary_splat":
			keywords = append(keywords, &Keyword{
				nodeBase: c.base(child),
				Value:    c.convert(firstNamed(child), Load),
			})
		default:
			if x := c.convert(child, Load); x != nil {
				args = append(args, x)
			}
		}
	}
	return args, keywords
}

func (c *converter) dict(n *sitter.Node) *Dict {
	d := &Dict{nodeBase: c.base(n)}
	for _, child := range named(n) {
		switch child.Kind() {
		case "pair":
			d.Keys = append(d.Keys, c.convert(child.ChildByFieldName("key"), Load))
			d.Values = append(d.Values, c.convert(child.ChildByFieldName("value"), Load))
		case "dictionary_splat":
			d.Keys = append(d.Keys, nil)
			d.Values = append(d.Values, c.convert(firstNamed(child), Load))
		}
	}
	return d
}

func (c *converter) integer(n *sitter.Node) Node {
	text := strings.ToLower(strings.ReplaceAll(c.text(n), "_", ""))
	if strings.HasSuffix(text, "j") {
		return c.block(n, Load)
	}
	text = strings.TrimSuffix(text, "l")
	// Python 3 has no implicit octal; "0" and runs of zeros stay decimal.
	if len(text) > 1 && text[0] == '0' && strings.Trim(text, "0") == "" {
		text = "0"
	}
	v, err := strconv.ParseInt(text, 0, 64)
	if err != nil {
		return c.block(n, Load)
	}
	return &Const{nodeBase: c.base(n), Value: v}
}

// stringParts splits one string literal into literal Const parts and, for
// f-strings, FormattedValue parts. It reports whether the literal is an
// f-string.
func (c *converter) stringParts(n *sitter.Node) ([]Node, bool) {
	text := c.text(n)
	prefixLen := strings.IndexAny(text, `'"`)
	if prefixLen < 0 {
		return []Node{&Const{nodeBase: c.base(n), Value: ""}}, false
	}
	prefix := strings.ToLower(text[:prefixLen])
	raw := strings.Contains(prefix, "r")
	isFormat := strings.Contains(prefix, "f")

	quote := 1
	if rest := text[prefixLen:]; strings.HasPrefix(rest, `"""`) || strings.HasPrefix(rest, `'''`) {
		quote = 3
	}
	start := int(n.StartByte()) + prefixLen + quote
	end := int(n.EndByte()) - quote
	if end < start {
		end = start
	}

	line := int(n.StartPosition().Row) + 1
	literal := func(from, to int) Node {
		s := string(c.src[from:to])
		if !raw {
			s = decodeEscapes(s)
		}
		if isFormat {
			s = strings.ReplaceAll(s, "{{", "{")
			s = strings.ReplaceAll(s, "}}", "}")
		}
		return &Const{nodeBase: nodeBase{line: line, span: Span{Start: from, End: to}}, Value: s}
	}

	var parts []Node
	pos := start
	for i := 0; i < int(n.ChildCount()); i++ {
		child := n.Child(uint(i))
		if child == nil || child.Kind() != "interpolation" {
			continue
		}
		if from := int(child.StartByte()); from > pos {
			parts = append(parts, literal(pos, from))
		}
		parts = append(parts, c.interpolation(child))
		pos = int(child.EndByte())
	}
	if end > pos {
		parts = append(parts, literal(pos, end))
	}
	if len(parts) == 0 {
		parts = append(parts, &Const{nodeBase: nodeBase{line: line, span: Span{Start: start, End: start}}, Value: ""})
	}
	return parts, isFormat
}

func (c *converter) interpolation(n *sitter.Node) *FormattedValue {
	fv := &FormattedValue{nodeBase: c.base(n)}
	expr := n.ChildByFieldName("expression")
	if expr == nil {
		expr = firstNamed(n)
	}
	fv.Value = c.convert(expr, Load)
	if conv := n.ChildByFieldName("type_conversion"); conv != nil {
		fv.Conversion = strings.TrimPrefix(c.text(conv), "!")
	}
	if spec := n.ChildByFieldName("format_specifier"); spec != nil {
		fv.FormatSpec = strings.TrimPrefix(c.text(spec), ":")
	}
	if fv.Value == nil {
		fv.Value = &Block{nodeBase: c.base(n), Type: "interpolation"}
	}
	return fv
}

func joinConsts(parts []Node) string {
	var b strings.Builder
	for _, p := range parts {
		if k, ok := p.(*Const); ok {
			if s, ok := k.Value.(string); ok {
				b.WriteString(s)
			}
		}
	}
	return b.String()
}

var escapeWidth = map[byte]int{'x': 2, 'u': 4, 'U': 8}

// decodeEscapes interprets backslash escapes of a non-raw string literal.
// Unknown escapes keep their backslash.
func decodeEscapes(s string) string {
	if !strings.Contains(s, `\`) {
		return s
	}

	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		ch := s[i]
		if ch != '\\' || i+1 >= len(s) {
			b.WriteByte(ch)
			continue
		}
		i++
		switch esc := s[i]; esc {
		case '\n':
		case '\r':
			if i+1 < len(s) && s[i+1] == '\n' {
				i++
			}
		case '\\', '\'', '"':
			b.WriteByte(esc)
		case 'a':
			b.WriteByte('\a')
		case 'b':
			b.WriteByte('\b')
		case 'f':
			b.WriteByte('\f')
		case 'n':
			b.WriteByte('\n')
		case 'r':
			b.WriteByte('\r')
		case 't':
			b.WriteByte('\t')
		case 'v':
			b.WriteByte('\v')
		case '0', '1', '2', '3', '4', '5', '6', '7':
			j := i
			for j < len(s) && j < i+3 && s[j] >= '0' && s[j] <= '7' {
				j++
			}
			v, _ := strconv.ParseUint(s[i:j], 8, 32)
			b.WriteRune(rune(v))
			i = j - 1
		case 'x', 'u', 'U':
			width := escapeWidth[esc]
			if i+1+width > len(s) {
				b.WriteByte('\\')
				b.WriteByte(esc)
				continue
			}
			v, err := strconv.ParseUint(s[i+1:i+1+width], 16, 32)
			if err != nil {
				b.WriteByte('\\')
				b.WriteByte(esc)
				continue
			}
			b.WriteRune(rune(v))
			i += width
		default:
			b.WriteByte('\\')
			b.WriteByte(esc)
		}
	}
	return b.String()
}
