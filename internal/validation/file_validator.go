package validation

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
)

var (
	// SettingsExtensions are the accepted settings file formats
	SettingsExtensions = []string{".json", ".yaml", ".yml"}
	// TableExtensions are the accepted protein groups file formats
	TableExtensions = []string{".txt", ".tsv"}
)

// FileValidator checks the input files of a run before any of them is parsed
type FileValidator struct {
	logger *slog.Logger
}

// NewFileValidator creates a new file validator
func NewFileValidator(logger *slog.Logger) *FileValidator {
	if logger == nil {
		logger = slog.Default()
	}
	return &FileValidator{
		logger: logger,
	}
}

// ValidateInputs checks the settings and protein groups paths together and
// reports every problem found
func (v *FileValidator) ValidateInputs(settingsPath, tablePath string) error {
	var problems []error
	if err := v.ValidateSettingsFile(settingsPath); err != nil {
		problems = append(problems, fmt.Errorf("-settings: %w", err))
	}
	if err := v.ValidateTableFile(tablePath); err != nil {
		problems = append(problems, fmt.Errorf("-table: %w", err))
	}
	return errors.Join(problems...)
}

// ValidateSettingsFile checks a JSON or YAML settings file
func (v *FileValidator) ValidateSettingsFile(path string) error {
	return v.validateTyped(path, "settings", SettingsExtensions)
}

// ValidateTableFile checks a tab separated protein groups file
func (v *FileValidator) ValidateTableFile(path string) error {
	return v.validateTyped(path, "protein groups", TableExtensions)
}

func (v *FileValidator) validateTyped(path, kind string, extensions []string) error {
	if path == "" {
		return fmt.Errorf("a %s file is required", kind)
	}

	ext := strings.ToLower(filepath.Ext(path))
	if !slices.Contains(extensions, ext) {
		v.logger.Error("Unsupported file extension",
			slog.String("file", path),
			slog.String("kind", kind),
			slog.String("extension", ext))
		return fmt.Errorf("file %s has extension %q, expected one of %s",
			path, ext, strings.Join(extensions, ", "))
	}

	return v.ValidateFile(path)
}

// ValidateFile checks if a specific file exists and is readable
func (v *FileValidator) ValidateFile(path string) error {
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		v.logger.Error("File does not exist",
			slog.String("file", path))
		return fmt.Errorf("file %s does not exist", path)
	}
	if err != nil {
		v.logger.Error("Failed to stat file",
			slog.String("file", path),
			slog.String("error", err.Error()))
		return fmt.Errorf("failed to stat file %s: %w", path, err)
	}
	if info.IsDir() {
		v.logger.Error("Path is a directory, not a file",
			slog.String("path", path))
		return fmt.Errorf("%s is a directory, not a file", path)
	}

	file, err := os.Open(path)
	if err != nil {
		v.logger.Error("File is not readable",
			slog.String("file", path),
			slog.String("error", err.Error()))
		return fmt.Errorf("file %s is not readable: %w", path, err)
	}
	file.Close()

	v.logger.Debug("File validated",
		slog.String("file", path),
		slog.Int64("size", info.Size()))
	return nil
}
