package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Paths holds every file system location the application touches, resolved
// to absolute paths.
type Paths struct {
	BaseDir        string
	WorkbookPath   string
	CategoriesFile string
	ReportsDir     string
	LogsDir        string
}

// ResolvePaths resolves the relative locations of cfg against baseDir. An
// empty baseDir means the working directory.
func ResolvePaths(cfg *Config, baseDir string) (*Paths, error) {
	if baseDir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to get working directory: %w", err)
		}
		baseDir = wd
	}

	abs, err := filepath.Abs(baseDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve base directory %s: %w", baseDir, err)
	}

	resolve := func(p string) string {
		if p == "" || filepath.IsAbs(p) {
			return p
		}
		return filepath.Join(abs, p)
	}

	return &Paths{
		BaseDir:        abs,
		WorkbookPath:   resolve(cfg.Data.WorkbookPath),
		CategoriesFile: resolve(cfg.Data.CategoriesFile),
		ReportsDir:     resolve(cfg.Data.ReportsDir),
		LogsDir:        resolve(filepath.Dir(cfg.Logging.FilePath)),
	}, nil
}

// EnsureDirectories creates the directories the application writes into
func (p *Paths) EnsureDirectories() error {
	for _, dir := range []string{p.ReportsDir, p.LogsDir} {
		if dir == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
		slog.Debug("Ensured directory exists", slog.String("directory", dir))
	}
	return nil
}

// FileExists checks if a file exists
func FileExists(path string) bool {
	_, err := os.Stat(path)
	return !os.IsNotExist(err)
}

// GetReportPath returns the path for a report file
func (p *Paths) GetReportPath(filename string) string {
	return filepath.Join(p.ReportsDir, filename)
}

// GetMonthlyReportPath returns the path of the exported report for a month,
// e.g. relatorio_2024_03.md
func (p *Paths) GetMonthlyReportPath(year, month int, format string) string {
	ext := strings.ToLower(format)
	if ext == "markdown" || ext == "" {
		ext = "md"
	}
	return p.GetReportPath(fmt.Sprintf("relatorio_%04d_%02d.%s", year, month, ext))
}

// WorkbookModTime returns the modification time of the workbook
func (p *Paths) WorkbookModTime() (time.Time, error) {
	info, err := os.Stat(p.WorkbookPath)
	if err != nil {
		return time.Time{}, err
	}
	return info.ModTime(), nil
}

// ValidateRequiredFiles checks that the workbook and, when configured, the
// category file exist
func (p *Paths) ValidateRequiredFiles() error {
	requiredFiles := map[string]string{
		"Workbook": p.WorkbookPath,
	}
	if p.CategoriesFile != "" {
		requiredFiles["Categories"] = p.CategoriesFile
	}

	var missingFiles []string
	for name, path := range requiredFiles {
		if !FileExists(path) {
			missingFiles = append(missingFiles, fmt.Sprintf("%s (%s)", name, path))
		}
	}

	if len(missingFiles) > 0 {
		return fmt.Errorf("required files missing: %s", strings.Join(missingFiles, ", "))
	}

	return nil
}

// LogPathResolution logs the resolved locations
func (p *Paths) LogPathResolution(logger *slog.Logger) {
	if logger == nil {
		logger = slog.Default()
	}

	logger.Info("Path resolution summary",
		slog.String("base", p.BaseDir),
		slog.Group("data",
			slog.String("workbook", p.WorkbookPath),
			slog.Bool("workbook_exists", FileExists(p.WorkbookPath)),
			slog.String("categories", p.CategoriesFile),
		),
		slog.Group("directories",
			slog.String("reports", p.ReportsDir),
			slog.String("logs", p.LogsDir),
		))
}
