package extractor

import (
	"testing"

	"github.com/mvp-joe/logsift/internal/pyast"
	"github.com/stretchr/testify/assert"
)

// Test Plan for resolver:
// - Names resolve through the infer hook, and nil results fold to placeholders
// - An unresolved .format or % template leaves the whole text unresolved
// - Exhausted depth leaves the text unresolved
// - applyExtras prefers inferred calls and keyed dict values

func newTestResolver(values map[string]pyast.Node) *resolver {
	return &resolver{
		placeholder: "*",
		maxDepth:    16,
		infer: func(n pyast.Node) pyast.Node {
			if name, ok := n.(*pyast.Name); ok {
				return values[name.ID]
			}
			return nil
		},
	}
}

func nameRef(id string) *pyast.Name { return &pyast.Name{ID: id} }

func strConst(s string) *pyast.Const { return pyast.NewConst(s, 1) }

func TestResolver_Names(t *testing.T) {
	t.Parallel()

	r := newTestResolver(map[string]pyast.Node{"greeting": strConst("hello")})

	assert.Equal(t, Literal("hello"), r.Resolve(nameRef("greeting")))
	assert.Equal(t, Literal("*"), r.Resolve(nameRef("missing")))
	assert.Equal(t, Literal("hello *"), r.Resolve(&pyast.BinOp{
		Left:  &pyast.BinOp{Left: nameRef("greeting"), Op: "+", Right: strConst(" ")},
		Op:    "+",
		Right: nameRef("missing"),
	}))
}

func TestResolver_UnresolvedTemplates(t *testing.T) {
	t.Parallel()

	r := newTestResolver(nil)
	r.maxDepth = 1

	format := &pyast.Call{
		Func: &pyast.Attribute{Value: &pyast.BinOp{Left: strConst("a"), Op: "+", Right: strConst("b")}, Attr: "format"},
	}
	assert.Equal(t, Unresolved, r.Resolve(format))

	percent := &pyast.BinOp{Left: &pyast.BinOp{Left: strConst("%s"), Op: "+", Right: strConst("")}, Op: "%", Right: strConst("x")}
	assert.Equal(t, Unresolved, r.Resolve(percent))
	assert.Equal(t, "*", r.Resolve(percent).Or("*"))
	assert.Equal(t, 0, r.depth)
}

func TestResolver_SelfInferenceIsPlaceholder(t *testing.T) {
	t.Parallel()

	list := &pyast.List{}
	r := &resolver{placeholder: "?", maxDepth: 8, infer: func(n pyast.Node) pyast.Node { return n }}
	assert.Equal(t, Literal("?"), r.Resolve(list))
}

func TestResolver_ApplyExtras(t *testing.T) {
	t.Parallel()

	r := newTestResolver(map[string]pyast.Node{"user": strConst("bob")})

	assert.Equal(t, "hi bob", r.applyExtras("hi %s", []pyast.Node{nameRef("user")}))
	assert.Equal(t, "hi *", r.applyExtras("hi %s", []pyast.Node{&pyast.Call{Func: nameRef("f")}}))
	assert.Equal(t, "no specs", r.applyExtras("no specs", []pyast.Node{strConst("x")}))

	dict := &pyast.Dict{
		Keys:   []pyast.Node{strConst("who"), strConst("n")},
		Values: []pyast.Node{nameRef("user"), pyast.NewConst(int64(3), 1)},
	}
	assert.Equal(t, "bob x3", r.applyExtras("%(who)s x%(n)d", []pyast.Node{dict}))
	assert.Equal(t, "a b", r.applyExtras("%s %s", []pyast.Node{strConst("a"), strConst("b")}))
}
