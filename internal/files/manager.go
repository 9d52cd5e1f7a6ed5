package files

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/Pittuba/dash-mercado/internal/config"
)

// ErrOutsideBase is returned for paths that escape the base directory
var ErrOutsideBase = fmt.Errorf("path escapes the base directory")

// Manager writes the files the application produces below the configured
// directories
type Manager struct {
	paths  *config.Paths
	logger *slog.Logger
}

// NewManager creates a new file manager instance
func NewManager(paths *config.Paths, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{paths: paths, logger: logger.With(slog.String("component", "files"))}
}

// WriteAtomic renders into a temporary file next to path and renames it into
// place. A failed render leaves any previous file untouched.
func (m *Manager) WriteAtomic(path string, render func(io.Writer) error) error {
	fullPath, err := m.resolvePath(path)
	if err != nil {
		return err
	}

	dir := filepath.Dir(fullPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".tmp-"+filepath.Base(fullPath)+"-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := render(tmp); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write %s: %w", fullPath, err)
	}
	if err := os.Rename(tmp.Name(), fullPath); err != nil {
		return fmt.Errorf("failed to move %s into place: %w", fullPath, err)
	}

	m.logger.Info("File written", slog.String("path", fullPath))
	return nil
}

// resolvePath maps "reports/" and "logs/" prefixes to their configured
// directories and everything else to the base directory. Absolute paths
// pass through.
func (m *Manager) resolvePath(path string) (string, error) {
	if filepath.IsAbs(path) {
		return filepath.Clean(path), nil
	}

	base, rel := m.paths.BaseDir, path
	switch {
	case path == "reports" || strings.HasPrefix(path, "reports/"):
		base, rel = m.paths.ReportsDir, strings.TrimPrefix(strings.TrimPrefix(path, "reports"), "/")
	case path == "logs" || strings.HasPrefix(path, "logs/"):
		base, rel = m.paths.LogsDir, strings.TrimPrefix(strings.TrimPrefix(path, "logs"), "/")
	}

	full := filepath.Join(base, rel)
	if r, err := filepath.Rel(base, full); err != nil || r == ".." || strings.HasPrefix(r, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%s: %w", path, ErrOutsideBase)
	}
	return full, nil
}
