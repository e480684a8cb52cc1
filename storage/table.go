package storage

import (
	"fmt"
	"sync"
	"time"
)

// tableEntry is one series' opened reader/writer pair sharing a
// SeriesEnv.
type tableEntry struct {
	env    *SeriesEnv
	writer *SeriesWriter
	reader *SeriesReader
}

// SeriesTable is the process-wide registry mapping series name to its
// opened (reader, writer) pair, guarded by a single mutex. Critical
// sections are short: open files, insert into the map.
type SeriesTable struct {
	mu     sync.Mutex
	fs     *FileSystem
	series map[string]*tableEntry
}

// NewSeriesTable opens an empty registry rooted at fs. Series already
// present on disk are not auto-opened; callers resolve them via
// Create, which is idempotent.
func NewSeriesTable(fs *FileSystem) *SeriesTable {
	return &SeriesTable{fs: fs, series: make(map[string]*tableEntry)}
}

// Create idempotently opens (or creates) the series directory and its
// writer/reader pair.
func (t *SeriesTable) Create(name string) error {
	if !IsValidName(name) {
		return fmt.Errorf("storage: invalid series name %q", name)
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if _, ok := t.series[name]; ok {
		return nil
	}

	entry, err := t.openEntry(name)
	if err != nil {
		return err
	}
	t.series[name] = entry
	return nil
}

func (t *SeriesTable) openEntry(name string) (*tableEntry, error) {
	env, err := OpenSeriesEnv(t.fs.SeriesDir(name))
	if err != nil {
		return nil, fmt.Errorf("open series %q: %w", name, err)
	}
	writer, err := OpenSeriesWriter(env)
	if err != nil {
		env.Close()
		return nil, fmt.Errorf("open writer for %q: %w", name, err)
	}
	reader := OpenSeriesReader(env)
	return &tableEntry{env: env, writer: writer, reader: reader}, nil
}

// Reader returns the series' reader, or ErrNotFound.
func (t *SeriesTable) Reader(name string) (*SeriesReader, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	e, ok := t.series[name]
	if !ok {
		return nil, ErrNotFound
	}
	return e.reader, nil
}

// Writer returns the series' writer, or ErrNotFound.
func (t *SeriesTable) Writer(name string) (*SeriesWriter, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	e, ok := t.series[name]
	if !ok {
		return nil, ErrNotFound
	}
	return e.writer, nil
}

// CreateTemp creates a fresh series with a name derived from the
// current time, used by restore to stage data before an atomic
// rename into place.
func (t *SeriesTable) CreateTemp() (string, error) {
	name := fmt.Sprintf("restore-%d", time.Now().UnixNano())
	if err := t.Create(name); err != nil {
		return "", err
	}
	return name, nil
}

// Rename atomically moves src to dst: if src is present and dst
// is absent, the directory is renamed on disk, the map entry is
// swapped, and the writer/reader pair is reopened under the new name.
// It returns false without touching anything if src is absent or dst
// is already present — this never implicitly replaces an existing
// series; a caller wanting replace-semantics must remove dst first.
func (t *SeriesTable) Rename(src, dst string) (bool, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	entry, ok := t.series[src]
	if !ok {
		return false, nil
	}
	if _, exists := t.series[dst]; exists {
		return false, nil
	}

	if err := entry.env.Close(); err != nil {
		return false, fmt.Errorf("close series %q before rename: %w", src, err)
	}
	if err := entry.writer.Close(); err != nil {
		return false, fmt.Errorf("close writer %q before rename: %w", src, err)
	}

	if err := t.fs.SeriesDir(src).RenameTo(t.fs.SeriesDir(dst)); err != nil {
		return false, err
	}

	newEntry, err := t.openEntry(dst)
	if err != nil {
		return false, fmt.Errorf("reopen %q as %q: %w", src, dst, err)
	}

	delete(t.series, src)
	t.series[dst] = newEntry

	return true, nil
}
