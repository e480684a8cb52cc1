package storage

import "fmt"

// SeriesEnv bundles one series' directory, commit log, and index. It
// is shared between the series' writer and every reader iterator it
// hands out; the writer additionally owns the data file tail
// exclusively (see SeriesWriter).
type SeriesEnv struct {
	Dir       SeriesDir
	CommitLog *CommitLog
	Index     *IndexFile
}

// OpenSeriesEnv creates dir if needed and opens its commit log and
// index, recovering them to their last consistent state.
func OpenSeriesEnv(dir SeriesDir) (*SeriesEnv, error) {
	if err := dir.Ensure(); err != nil {
		return nil, err
	}

	commitLog, err := OpenCommitLog(dir.Path())
	if err != nil {
		return nil, fmt.Errorf("open commit log for %q: %w", dir.Name(), err)
	}

	index, err := OpenIndexFile(dir.IndexPath())
	if err != nil {
		commitLog.Close()
		return nil, fmt.Errorf("open index for %q: %w", dir.Name(), err)
	}

	return &SeriesEnv{Dir: dir, CommitLog: commitLog, Index: index}, nil
}

func (e *SeriesEnv) Close() error {
	if err := e.Index.Close(); err != nil {
		return err
	}
	return e.CommitLog.Close()
}
