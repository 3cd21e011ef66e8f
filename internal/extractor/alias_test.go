package extractor

import (
	"testing"

	"github.com/mvp-joe/logsift/internal/pyast"
	"github.com/stretchr/testify/assert"
)

// Test Plan for AliasState:
// - A fresh state knows the level table and the log method, no namespaces
// - import tracking honors aliases and dotted imports
// - from-imports add level and log method aliases only when aliased
// - Relative and foreign from-imports are ignored
// - The pending slot holds one target and is cleared explicitly

func aliases(pairs ...string) []pyast.Alias {
	var out []pyast.Alias
	for i := 0; i+1 < len(pairs); i += 2 {
		out = append(out, pyast.Alias{Name: pairs[i], AsName: pairs[i+1]})
	}
	return out
}

func TestAliasState_Initial(t *testing.T) {
	t.Parallel()

	s := NewAliasState(DefaultConfig())
	assert.False(t, s.IsNamespace("logging"))
	assert.True(t, s.IsLogMethod("log"))
	assert.True(t, s.IsFactory("getLogger"))

	for name, want := range map[string]Severity{
		"debug": Debug, "info": Info, "warn": Warning, "warning": Warning,
		"error": Error, "exception": Error, "critical": Critical,
	} {
		got, ok := s.Level(name)
		assert.True(t, ok, name)
		assert.Equal(t, want, got, name)
	}
	_, ok := s.Level("fatal")
	assert.False(t, ok)
}

func TestAliasState_TrackImport(t *testing.T) {
	t.Parallel()

	s := NewAliasState(DefaultConfig())
	s.TrackImport(&pyast.Import{Names: aliases("logging", "l", "os", "", "oslo_log", "")})
	assert.True(t, s.IsNamespace("l"))
	assert.False(t, s.IsNamespace("logging"))
	assert.True(t, s.IsNamespace("oslo_log"))
	assert.False(t, s.IsNamespace("os"))

	s.TrackImport(&pyast.Import{Names: aliases("logging.handlers", "", "logging.config", "cfg")})
	assert.True(t, s.IsNamespace("logging"))
	assert.False(t, s.IsNamespace("cfg"))
}

func TestAliasState_TrackImportFrom(t *testing.T) {
	t.Parallel()

	s := NewAliasState(DefaultConfig())
	s.TrackImportFrom(&pyast.ImportFrom{
		Module: "logging",
		Names:  aliases("warning", "w", "log", "emit", "getLogger", "gl", "info", ""),
	})

	sev, ok := s.Level("w")
	assert.True(t, ok)
	assert.Equal(t, Warning, sev)
	assert.True(t, s.IsLogMethod("emit"))
	assert.False(t, s.IsLogMethod("gl"))
	_, ok = s.Level("gl")
	assert.False(t, ok)

	s.TrackImportFrom(&pyast.ImportFrom{Module: "logging", Level: 1, Names: aliases("debug", "d")})
	s.TrackImportFrom(&pyast.ImportFrom{Module: "mylog", Names: aliases("error", "e")})
	_, ok = s.Level("d")
	assert.False(t, ok)
	_, ok = s.Level("e")
	assert.False(t, ok)
}

func TestAliasState_Pending(t *testing.T) {
	t.Parallel()

	s := NewAliasState(DefaultConfig())
	_, ok := s.Pending()
	assert.False(t, ok)

	s.SetPending("a")
	s.SetPending("b")
	name, ok := s.Pending()
	assert.True(t, ok)
	assert.Equal(t, "b", name)

	s.ClearPending()
	_, ok = s.Pending()
	assert.False(t, ok)

	s.AddNamespace("LOG")
	assert.True(t, s.IsNamespace("LOG"))
}
