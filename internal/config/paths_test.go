package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolvePaths(t *testing.T) {
	base := t.TempDir()
	cfg := Default()
	cfg.Data.CategoriesFile = "categorias.yaml"

	paths, err := ResolvePaths(cfg, base)
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(base, "Data", "Base - Indicadores.xlsx"), paths.WorkbookPath)
	assert.Equal(t, filepath.Join(base, "categorias.yaml"), paths.CategoriesFile)
	assert.Equal(t, filepath.Join(base, "reports"), paths.ReportsDir)
	assert.Equal(t, filepath.Join(base, "logs"), paths.LogsDir)
	assert.Equal(t, filepath.Join(base, "reports", "relatorio_2024_03.md"), paths.GetMonthlyReportPath(2024, 3, "markdown"))
	assert.Equal(t, filepath.Join(base, "reports", "relatorio_2024_03.csv"), paths.GetMonthlyReportPath(2024, 3, "csv"))
}

func TestResolvePathsKeepsAbsolute(t *testing.T) {
	abs := filepath.Join(t.TempDir(), "base.xlsx")
	cfg := Default()
	cfg.Data.WorkbookPath = abs

	paths, err := ResolvePaths(cfg, t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, abs, paths.WorkbookPath)
	assert.Empty(t, paths.CategoriesFile)
}

func TestEnsureDirectoriesAndRequiredFiles(t *testing.T) {
	base := t.TempDir()
	paths, err := ResolvePaths(Default(), base)
	require.NoError(t, err)

	require.NoError(t, paths.EnsureDirectories())
	assert.DirExists(t, paths.ReportsDir)
	assert.DirExists(t, paths.LogsDir)

	err = paths.ValidateRequiredFiles()
	assert.ErrorContains(t, err, "Workbook")

	require.NoError(t, os.MkdirAll(filepath.Dir(paths.WorkbookPath), 0755))
	require.NoError(t, os.WriteFile(paths.WorkbookPath, []byte("x"), 0644))
	assert.NoError(t, paths.ValidateRequiredFiles())

	mod, err := paths.WorkbookModTime()
	require.NoError(t, err)
	assert.False(t, mod.IsZero())

	assert.NotPanics(t, func() { paths.LogPathResolution(nil) })
}
