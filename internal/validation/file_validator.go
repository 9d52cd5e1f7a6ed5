package validation

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// workbookExtensions lists the OOXML formats excelize can open
var workbookExtensions = map[string]bool{".xlsx": true, ".xlsm": true}

// FileValidator checks the inputs the application reads and the directories
// it writes to
type FileValidator struct {
	logger *slog.Logger
}

func NewFileValidator(logger *slog.Logger) *FileValidator {
	if logger == nil {
		logger = slog.Default()
	}
	return &FileValidator{logger: logger.With(slog.String("component", "file_validator"))}
}

// fail logs the rejection of path and returns err unchanged
func (v *FileValidator) fail(msg, path string, err error) error {
	v.logger.Warn(msg, slog.String("path", path), slog.String("error", err.Error()))
	return err
}

// ValidateOutputDirectory creates dir when needed and probes it with a
// temporary file
func (v *FileValidator) ValidateOutputDirectory(dir string) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return v.fail("output directory unusable", dir,
			fmt.Errorf("failed to create output directory %s: %w", dir, err))
	}

	probe, err := os.CreateTemp(dir, ".write_test-*")
	if err != nil {
		return v.fail("output directory unusable", dir,
			fmt.Errorf("output directory %s is not writable: %w", dir, err))
	}
	probe.Close()
	os.Remove(probe.Name())
	return nil
}

// ValidateFile requires path to be a readable regular file
func (v *FileValidator) ValidateFile(path string) error {
	info, err := os.Stat(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return v.fail("input missing", path, fmt.Errorf("file %s does not exist", path))
	case err != nil:
		return v.fail("input unusable", path, fmt.Errorf("failed to stat file %s: %w", path, err))
	case info.IsDir():
		return v.fail("input unusable", path, fmt.Errorf("%s is a directory, not a file", path))
	}

	f, err := os.Open(path)
	if err != nil {
		return v.fail("input unusable", path, fmt.Errorf("file %s is not readable: %w", path, err))
	}
	return f.Close()
}

// ValidateWorkbook additionally rejects formats excelize cannot open and the
// "~$" lock files Excel leaves next to an open workbook
func (v *FileValidator) ValidateWorkbook(path string) error {
	if err := v.ValidateFile(path); err != nil {
		return err
	}

	if ext := strings.ToLower(filepath.Ext(path)); !workbookExtensions[ext] {
		return v.fail("input rejected", path,
			fmt.Errorf("file %s is not an xlsx workbook (extension: %s)", path, ext))
	}
	if strings.HasPrefix(filepath.Base(path), "~$") {
		return v.fail("input rejected", path, fmt.Errorf("file %s is a temporary Excel file", path))
	}
	return nil
}
