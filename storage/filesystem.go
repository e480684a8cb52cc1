package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// seriesSubdir is the fixed directory under base_path that holds all
// series directories.
const seriesSubdir = "series"

// FileSystem resolves per-series directories under one base_path.
type FileSystem struct {
	basePath string
}

// NewFileSystem roots a FileSystem at basePath, creating the series
// subdirectory if it does not already exist.
func NewFileSystem(basePath string) (*FileSystem, error) {
	root := filepath.Join(basePath, seriesSubdir)
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create series root: %w", err)
	}
	return &FileSystem{basePath: basePath}, nil
}

// IsValidName reports whether name is path-safe: non-empty, no path
// separators, and not a "." or ".." traversal component.
func IsValidName(name string) bool {
	if name == "" || name == "." || name == ".." {
		return false
	}
	return !strings.ContainsAny(name, `/\`)
}

// SeriesDir resolves the on-disk directory for a series name. It does
// not itself validate the name or touch the filesystem.
func (fs *FileSystem) SeriesDir(name string) SeriesDir {
	return SeriesDir{
		name: name,
		path: filepath.Join(fs.basePath, seriesSubdir, name),
	}
}

// ListSeriesNames enumerates the names of series directories present
// on disk.
func (fs *FileSystem) ListSeriesNames() ([]string, error) {
	root := filepath.Join(fs.basePath, seriesSubdir)
	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, fmt.Errorf("read series root: %w", err)
	}

	var names []string
	for _, e := range entries {
		if e.IsDir() {
			names = append(names, e.Name())
		}
	}
	return names, nil
}

// SeriesDir names the directory containing one series' data, index,
// and commit-log segments: series.dat, series.idx, series.log.<seq>.
type SeriesDir struct {
	name string
	path string
}

func (d SeriesDir) Name() string { return d.name }
func (d SeriesDir) Path() string { return d.path }

func (d SeriesDir) DataPath() string  { return filepath.Join(d.path, "series.dat") }
func (d SeriesDir) IndexPath() string { return filepath.Join(d.path, "series.idx") }

// Ensure creates the series directory if it doesn't already exist.
func (d SeriesDir) Ensure() error {
	if err := os.MkdirAll(d.path, 0o755); err != nil {
		return fmt.Errorf("create series dir %q: %w", d.name, err)
	}
	return nil
}

// Exists reports whether the series directory is present on disk.
func (d SeriesDir) Exists() bool {
	info, err := os.Stat(d.path)
	return err == nil && info.IsDir()
}

// RenameTo atomically renames this series directory onto dst's path.
func (d SeriesDir) RenameTo(dst SeriesDir) error {
	if err := os.Rename(d.path, dst.path); err != nil {
		return fmt.Errorf("rename series dir %q to %q: %w", d.name, dst.name, err)
	}
	return nil
}
