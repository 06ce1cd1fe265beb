package home

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

const (
	// DefaultDirName is the default name for the sheetmark home directory.
	DefaultDirName = ".sheetmark"

	// LibraryDirName is the subdirectory for saved rubrics.
	LibraryDirName = "library"

	// ReportsDirName is the subdirectory for downloaded grading reports.
	ReportsDirName = "reports"

	// WorkDirName is the subdirectory mounted into a managed grader container.
	WorkDirName = "work"

	// ConfigFileName is the default config file name.
	ConfigFileName = "config.yaml"
)

// Dir represents the sheetmark home directory structure.
type Dir struct {
	path       string
	libraryDir string
}

// New creates a new Dir with the given path.
// If path is empty, uses the default (~/.sheetmark).
func New(path string) (*Dir, error) {
	if path == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get user home directory: %w", err)
		}
		path = filepath.Join(home, DefaultDirName)
	}

	return &Dir{path: path}, nil
}

// Path returns the root path of the home directory.
func (d *Dir) Path() string {
	return d.path
}

// LibraryPath returns the path to the saved-rubric library.
func (d *Dir) LibraryPath() string {
	if d.libraryDir != "" {
		return d.libraryDir
	}
	return filepath.Join(d.path, LibraryDirName)
}

// SetLibraryDir overrides the library location. Used when the config
// sets library.dir.
func (d *Dir) SetLibraryDir(dir string) {
	d.libraryDir = dir
}

// ReportsPath returns the path to the reports directory.
func (d *Dir) ReportsPath() string {
	return filepath.Join(d.path, ReportsDirName)
}

// WorkPath returns the path mounted into a managed grader container.
func (d *Dir) WorkPath() string {
	return filepath.Join(d.path, WorkDirName)
}

// ConfigPath returns the path to the default config file.
func (d *Dir) ConfigPath() string {
	return filepath.Join(d.path, ConfigFileName)
}

// EnsureExists creates the home directory and subdirectories if they don't exist.
func (d *Dir) EnsureExists() error {
	for _, p := range []string{d.LibraryPath(), d.ReportsPath(), d.WorkPath()} {
		if err := os.MkdirAll(p, 0o755); err != nil {
			return fmt.Errorf("failed to create %s: %w", p, err)
		}
	}
	return nil
}

// Exists returns true if the home directory exists.
func (d *Dir) Exists() bool {
	_, err := os.Stat(d.path)
	return err == nil
}

// ConfigExists returns true if the config file exists in the home directory.
func (d *Dir) ConfigExists() bool {
	_, err := os.Stat(d.ConfigPath())
	return err == nil
}

// RubricPath returns the library path for a named rubric. The name is
// sanitized to a single path element.
func (d *Dir) RubricPath(name string) string {
	return filepath.Join(d.LibraryPath(), SanitizeName(name)+".json")
}

// ReportPath returns the reports path for a named report file.
func (d *Dir) ReportPath(name string) string {
	return filepath.Join(d.ReportsPath(), SanitizeName(name)+".json")
}

// SanitizeName reduces a user-supplied name to a safe file stem:
// path separators and dots are replaced, whitespace trimmed.
func SanitizeName(name string) string {
	name = strings.TrimSpace(name)
	replacer := strings.NewReplacer("/", "_", "\\", "_", "..", "_", string(filepath.Separator), "_")
	name = replacer.Replace(name)
	name = strings.Trim(name, ". ")
	if name == "" {
		name = "untitled"
	}
	return name
}
