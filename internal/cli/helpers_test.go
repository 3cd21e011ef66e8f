package cli

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mvp-joe/logsift/internal/config"
)

const (
	greetingSource = `import logging

logging.info("hello %s", "world")
`
	warningSource = `import logging

log = logging.getLogger(__name__)

def run(user):
    log.warning("retrying for " + user)
`
	quietSource  = "x = 1\n"
	brokenSource = "def broken(:\n"
)

// writeFiles writes files relative to root.
func writeFiles(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for rel, content := range files {
		path := filepath.Join(root, rel)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	}
}

// newProject creates a project with one file per outcome.
func newProject(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	writeFiles(t, root, map[string]string{
		"app/greeting.py": greetingSource,
		"app/worker.py":   warningSource,
		"quiet.py":        quietSource,
		"broken.py":       brokenSource,
		"README.md":       "# not python\n",
	})
	return root
}

func testConfig() *config.Config {
	cfg := config.Default()
	cfg.Workers = 2
	cfg.Cache.Size = 100
	return cfg
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
