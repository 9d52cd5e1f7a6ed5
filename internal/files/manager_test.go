package files

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Pittuba/dash-mercado/internal/config"
)

func testPaths(t *testing.T) *config.Paths {
	t.Helper()
	base := t.TempDir()
	return &config.Paths{
		BaseDir:    base,
		ReportsDir: filepath.Join(base, "out", "reports"),
		LogsDir:    filepath.Join(base, "out", "logs"),
	}
}

func TestResolvePath(t *testing.T) {
	paths := testPaths(t)
	m := NewManager(paths, nil)

	tests := []struct {
		name string
		in   string
		want string
	}{
		{"reports prefix", "reports/a.md", filepath.Join(paths.ReportsDir, "a.md")},
		{"reports dir", "reports", paths.ReportsDir},
		{"logs prefix", "logs/app.log", filepath.Join(paths.LogsDir, "app.log")},
		{"base relative", "x/y.csv", filepath.Join(paths.BaseDir, "x", "y.csv")},
		{"absolute", "/tmp/z.md", "/tmp/z.md"},
		{"reportsfoo is not the reports dir", "reportsfoo.md", filepath.Join(paths.BaseDir, "reportsfoo.md")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := m.resolvePath(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestResolvePath_Escape(t *testing.T) {
	m := NewManager(testPaths(t), nil)

	for _, in := range []string{"../secret", "reports/../../x", "logs/../../../etc/passwd"} {
		_, err := m.resolvePath(in)
		assert.ErrorIs(t, err, ErrOutsideBase, in)
	}
}

func TestWriteAtomic(t *testing.T) {
	paths := testPaths(t)
	m := NewManager(paths, nil)

	err := m.WriteAtomic("reports/relatorio_2024_03.md", func(w io.Writer) error {
		_, err := io.WriteString(w, "# report\n")
		return err
	})
	require.NoError(t, err)

	content, err := os.ReadFile(filepath.Join(paths.ReportsDir, "relatorio_2024_03.md"))
	require.NoError(t, err)
	assert.Equal(t, "# report\n", string(content))

	leftovers, err := filepath.Glob(filepath.Join(paths.ReportsDir, ".tmp-*"))
	require.NoError(t, err)
	assert.Empty(t, leftovers)
}

func TestWriteAtomic_RenderFailureKeepsPrevious(t *testing.T) {
	paths := testPaths(t)
	m := NewManager(paths, nil)

	require.NoError(t, m.WriteAtomic("reports/r.csv", func(w io.Writer) error {
		_, err := io.WriteString(w, "old")
		return err
	}))

	boom := errors.New("boom")
	err := m.WriteAtomic("reports/r.csv", func(w io.Writer) error {
		_, _ = io.WriteString(w, "partial")
		return boom
	})
	assert.ErrorIs(t, err, boom)

	content, err := os.ReadFile(filepath.Join(paths.ReportsDir, "r.csv"))
	require.NoError(t, err)
	assert.Equal(t, "old", string(content))

	entries, err := os.ReadDir(paths.ReportsDir)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

