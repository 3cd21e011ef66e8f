package pyast

import (
	"context"
	"errors"
	"fmt"

	sitter "github.com/tree-sitter/go-tree-sitter"
	python "github.com/tree-sitter/tree-sitter-python/bindings/go"
)

// ErrSyntax is returned when the source cannot be parsed as Python.
var ErrSyntax = errors.New("python syntax error")

// Parser turns Python source into a Module. A Parser is safe for concurrent
// use; every Parse call creates its own tree-sitter parser.
type Parser struct {
	language *sitter.Language
}

// NewParser creates a Python parser backed by tree-sitter-python.
func NewParser() *Parser {
	return &Parser{
		language: sitter.NewLanguage(python.Language()),
	}
}

// Parse parses source and converts the tree-sitter tree into pyast nodes.
// Source with syntax errors is rejected with ErrSyntax rather than
// returned as a partial tree.
func (p *Parser) Parse(ctx context.Context, source []byte) (*Module, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	parser := sitter.NewParser()
	defer parser.Close()

	if err := parser.SetLanguage(p.language); err != nil {
		return nil, fmt.Errorf("failed to set python language: %w", err)
	}

	tree := parser.Parse(source, nil)
	if tree == nil {
		return nil, fmt.Errorf("%w: no tree produced", ErrSyntax)
	}
	defer tree.Close()

	root := tree.RootNode()
	if root.HasError() {
		return nil, fmt.Errorf("%w at line %d", ErrSyntax, firstErrorLine(root))
	}

	c := &converter{src: source}
	mod := c.module(root)
	link(mod, nil)
	return mod, nil
}

// firstErrorLine finds the first ERROR or MISSING node under n.
func firstErrorLine(n *sitter.Node) int {
	if n.IsError() || n.IsMissing() {
		return int(n.StartPosition().Row) + 1
	}
	for i := 0; i < int(n.ChildCount()); i++ {
		child := n.Child(uint(i))
		if child == nil || !child.HasError() && !child.IsMissing() {
			continue
		}
		return firstErrorLine(child)
	}
	return int(n.StartPosition().Row) + 1
}

// link sets parent pointers for the subtree rooted at n.
func link(n Node, parent Node) {
	n.base().parent = parent
	for _, child := range n.Children() {
		if child != nil {
			link(child, n)
		}
	}
}
