package batch

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Test Plan for Discovery:
// - Default patterns find Python files at the root and in subdirectories
// - Ignored directories are pruned, including root-level virtualenvs
// - Custom include patterns narrow the result
// - A file root is returned as is
// - Invalid patterns are rejected

func writeTree(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for rel, content := range files {
		path := filepath.Join(root, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
}

func relPaths(t *testing.T, root string, paths []string) []string {
	t.Helper()
	out := []string{}
	for _, p := range paths {
		rel, err := filepath.Rel(root, p)
		require.NoError(t, err)
		out = append(out, filepath.ToSlash(rel))
	}
	return out
}

func TestDiscovery_DefaultPatterns(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"app.py":                     "",
		"pkg/service.py":             "",
		"pkg/deep/util.py":           "",
		"README.md":                  "",
		"venv/lib/site.py":           "",
		"pkg/__pycache__/service.py": "",
		".git/hooks/pre.py":          "",
		"nested/.venv/x.py":          "",
	})

	d, err := NewDiscovery(root, DefaultIncludes, DefaultIgnores)
	require.NoError(t, err)

	files, err := d.Discover()
	require.NoError(t, err)
	assert.Equal(t, []string{"app.py", "pkg/deep/util.py", "pkg/service.py"}, relPaths(t, root, files))
}

func TestDiscovery_CustomIncludes(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"src/a.py":   "",
		"tests/b.py": "",
		"c.py":       "",
	})

	d, err := NewDiscovery(root, []string{"src/**"}, []string{"tests/**"})
	require.NoError(t, err)

	files, err := d.Discover()
	require.NoError(t, err)
	assert.Equal(t, []string{"src/a.py"}, relPaths(t, root, files))

	assert.True(t, d.Matches("src/x/y.py"))
	assert.False(t, d.Matches("tests/b.py"))
}

func TestDiscovery_FileRoot(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	writeTree(t, root, map[string]string{"only.py": ""})
	path := filepath.Join(root, "only.py")

	d, err := NewDiscovery(path, DefaultIncludes, DefaultIgnores)
	require.NoError(t, err)

	files, err := d.Discover()
	require.NoError(t, err)
	assert.Equal(t, []string{path}, files)
}

func TestDiscovery_InvalidPattern(t *testing.T) {
	t.Parallel()

	_, err := NewDiscovery(t.TempDir(), []string{"[unclosed"}, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "[unclosed")
}

func TestDiscovery_MissingRoot(t *testing.T) {
	t.Parallel()

	d, err := NewDiscovery(filepath.Join(t.TempDir(), "missing"), DefaultIncludes, nil)
	require.NoError(t, err)

	_, err = d.Discover()
	assert.ErrorIs(t, err, os.ErrNotExist)
}
