package infer

import (
	"context"
	"strconv"
	"testing"

	"github.com/mvp-joe/logsift/internal/pyast"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Test Plan for Inferencer:
// - Constants, names and chained names infer to their literal values
// - Only bindings preceding a use in the same scope are visible
// - Conditional rebinding with differing types is ambiguous
// - Function calls infer to their return values; unknown calls fail
// - logging module attributes give level constants and Logger classes
// - getLogger() results and subclasses of logging.Logger expose bound methods
// - self.<attr> assignments and annotated parameters reach Logger instances
// - Recursion and cycles terminate with an error instead of looping

func parseModule(t *testing.T, src string) *pyast.Module {
	t.Helper()
	mod, err := pyast.NewParser().Parse(context.Background(), []byte(src))
	require.NoError(t, err)
	return mod
}

// probeArg returns the first argument of the probe(...) call in mod.
func probeArg(t *testing.T, mod *pyast.Module) pyast.Node {
	t.Helper()
	var probe pyast.Node
	var visit func(n pyast.Node)
	visit = func(n pyast.Node) {
		if c, ok := n.(*pyast.Call); ok {
			if name, ok := c.Func.(*pyast.Name); ok && name.ID == "probe" && len(c.Args) > 0 {
				probe = c.Args[0]
			}
		}
		for _, child := range n.Children() {
			if child != nil {
				visit(child)
			}
		}
	}
	visit(mod)
	require.NotNil(t, probe, "source must contain probe(<expr>)")
	return probe
}

func inferProbe(t *testing.T, src string, opts ...Option) ([]pyast.Candidate, error) {
	t.Helper()
	mod := parseModule(t, src)
	return New(mod, opts...).Infer(probeArg(t, mod))
}

func TestInfer_Names(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		src  string
		want any
	}{
		{"constant", "x = 'a'\nprobe(x)\n", "a"},
		{"chain", "x = 5\ny = x\nprobe(y)\n", int64(5)},
		{"latest binding wins", "x = 'a'\nx = 'b'\nprobe(x)\n", "b"},
		{"tuple unpacking", "a, b = 'one', 2\nprobe(b)\n", int64(2)},
		{"function return", "def f():\n    return 'W'\nprobe(f())\n", "W"},
		{"lambda", "g = lambda: 'L'\nprobe(g())\n", "L"},
		{"global from function", "def f():\n    return v\nv = 'late'\nprobe(f())\n", "late"},
		{"int arithmetic", "x = 10 * 3\nprobe(x)\n", int64(30)},
		{"class attribute", "class C:\n    level = 20\nprobe(C.level)\n", int64(20)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cands, err := inferProbe(t, tt.src)
			require.NoError(t, err)
			require.Len(t, cands, 1)
			k, ok := cands[0].Node.(*pyast.Const)
			require.True(t, ok, "got %s", cands[0].Node.Kind())
			assert.Equal(t, tt.want, k.Value)
		})
	}
}

func TestInfer_Uninferable(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		src  string
	}{
		{"unknown name", "probe(missing)\n"},
		{"builtin call", "x = input('name')\nprobe(x)\n"},
		{"use before binding", "probe(x)\nx = 1\n"},
		{"parameter without annotation", "def f(a):\n    probe(a)\n"},
		{"parameter with default", "def f(a='d'):\n    probe(a)\n"},
		{"loop variable", "for i in range(3):\n    probe(i)\n"},
		{"augmented assignment", "x = 1\nx += 1\nprobe(x)\n"},
		{"recursive function", "def f():\n    return f()\nprobe(f())\n"},
		{"self reference", "x = x\nprobe(x)\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := inferProbe(t, tt.src)
			require.Error(t, err)
		})
	}
}

func TestInfer_ConditionalBindingsAreAmbiguous(t *testing.T) {
	t.Parallel()

	cands, err := inferProbe(t, "x = 'text'\nif cond:\n    x = 5\nprobe(x)\n")
	require.NoError(t, err)
	require.Len(t, cands, 2)
	assert.True(t, pyast.Ambiguous(cands))

	cands, err = inferProbe(t, "x = 'a'\nif cond:\n    x = 'b'\nprobe(x)\n")
	require.NoError(t, err)
	require.Len(t, cands, 2)
	assert.False(t, pyast.Ambiguous(cands))
}

func TestInfer_LoggingModule(t *testing.T) {
	t.Parallel()

	cands, err := inferProbe(t, "import logging\nlevel = logging.WARNING\nprobe(level)\n")
	require.NoError(t, err)
	require.Len(t, cands, 1)
	assert.Equal(t, int64(30), cands[0].Node.(*pyast.Const).Value)

	cands, err = inferProbe(t, "from logging import ERROR as E\nprobe(E)\n")
	require.NoError(t, err)
	assert.Equal(t, int64(40), cands[0].Node.(*pyast.Const).Value)

	cands, err = inferProbe(t, "import logging\ndef get_level():\n    return logging.WARNING\nprobe(get_level())\n")
	require.NoError(t, err)
	assert.Equal(t, int64(30), cands[0].Node.(*pyast.Const).Value)

	_, err = inferProbe(t, "import mylogging\nprobe(mylogging.WARNING)\n")
	assert.ErrorIs(t, err, ErrUninferable)

	cands, err = inferProbe(t, "import mylogging\nprobe(mylogging.WARNING)\n", WithLoggingModules("mylogging"))
	require.NoError(t, err)
	assert.Equal(t, int64(30), cands[0].Node.(*pyast.Const).Value)
}

func requireLoggerMethod(t *testing.T, cands []pyast.Candidate, name string) *pyast.BoundMethod {
	t.Helper()
	require.Len(t, cands, 1)
	m, ok := cands[0].Node.(*pyast.BoundMethod)
	require.True(t, ok, "got %s", cands[0].Node.Kind())
	assert.Equal(t, name, m.Name)
	assert.True(t, m.Class.IsSubclassOf(pyast.LoggerQName))
	return m
}

func TestInfer_LoggerInstances(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		src  string
	}{
		{"getLogger", "import logging\nlog = logging.getLogger(__name__)\nprobe(log.info)\n"},
		{"from import getLogger", "from logging import getLogger\nlog = getLogger('x')\nprobe(log.info)\n"},
		{"root logger", "import logging\nprobe(logging.root.info)\n"},
		{"getChild", "import logging\nlog = logging.getLogger('a').getChild('b')\nprobe(log.info)\n"},
		{"annotated parameter", "import logging\ndef f(log: logging.Logger):\n    probe(log.info)\n"},
		{"self attribute", `import logging
class Service:
    def __init__(self):
        self.log = logging.getLogger('svc')
    def run(self):
        probe(self.log.info)
`},
		{"logger subclass", `import logging
class AppLogger(logging.Logger):
    pass
def f(log: AppLogger):
    probe(log.info)
`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cands, err := inferProbe(t, tt.src)
			require.NoError(t, err)
			requireLoggerMethod(t, cands, "info")
		})
	}
}

func TestInfer_OverriddenLoggerMethod(t *testing.T) {
	t.Parallel()

	cands, err := inferProbe(t, `import logging
class Base(logging.Logger):
    def info(self, msg):
        return 'custom'
class Child(Base):
    pass
probe(Child('c').info)
`)
	require.NoError(t, err)
	m := requireLoggerMethod(t, cands, "info")
	require.NotNil(t, m.Def)
	assert.Equal(t, "__main__.Base", m.Class.QName)
}

func TestInfer_PlainClassIsNotLogger(t *testing.T) {
	t.Parallel()

	cands, err := inferProbe(t, `class Printer:
    def info(self, msg):
        pass
probe(Printer().info)
`)
	require.NoError(t, err)
	require.Len(t, cands, 1)
	m := cands[0].Node.(*pyast.BoundMethod)
	assert.False(t, m.Class.IsSubclassOf(pyast.LoggerQName))
}

func TestInfer_DepthLimit(t *testing.T) {
	t.Parallel()

	src := "a0 = 'x'\n"
	for i := 1; i <= 20; i++ {
		src += "a" + strconv.Itoa(i) + " = a" + strconv.Itoa(i-1) + "\n"
	}
	src += "probe(a20)\n"

	_, err := inferProbe(t, src, WithMaxDepth(5))
	assert.ErrorIs(t, err, ErrDepth)

	cands, err := inferProbe(t, src)
	require.NoError(t, err)
	assert.Equal(t, "x", cands[0].Node.(*pyast.Const).Value)
}
