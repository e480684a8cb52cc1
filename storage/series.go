package storage

import (
	"fmt"
	"io"
	"iter"
	"sort"
	"sync"
)

// appenderState tracks whether an Appender can still accept writes.
type appenderState int

const (
	appenderOpen appenderState = iota
	appenderCommitted
	appenderAborted
)

// SeriesWriter holds exclusive ownership of one series' DataFile
// writer tail; the IndexFile and CommitLog it shares live in the
// SeriesEnv. Only one Appender may be open at a time, enforced by
// writeLock.
type SeriesWriter struct {
	env       *SeriesEnv
	writeLock sync.Mutex
	data      *DataWriter
}

// OpenSeriesWriter positions a DataWriter at the current commit's
// data_offset.
func OpenSeriesWriter(env *SeriesEnv) (*SeriesWriter, error) {
	commit := env.CommitLog.Current()
	data, err := OpenDataWriter(env.Dir.DataPath(), commit.DataOffset)
	if err != nil {
		return nil, err
	}
	return &SeriesWriter{env: env, data: data}, nil
}

func (w *SeriesWriter) Close() error {
	return w.data.Close()
}

// Appender is a short-lived transactional scope bound to a single
// producer: append one or more batches, then Done to publish them
// atomically, or Abort to discard the attempt.
type Appender struct {
	w        *SeriesWriter
	snapshot Commit
	state    appenderState
	unlocked bool
}

// NewAppender snapshots the current commit and takes the series'
// write lock for the lifetime of the appender.
func (w *SeriesWriter) NewAppender() *Appender {
	w.writeLock.Lock()
	return &Appender{
		w:        w,
		snapshot: w.env.CommitLog.Current(),
		state:    appenderOpen,
	}
}

func (a *Appender) unlock() {
	if !a.unlocked {
		a.w.writeLock.Unlock()
		a.unlocked = true
	}
}

// Append drops entries strictly below the current monotone floor,
// stable-sorts the remainder, chunks into blocks of at most
// MaxEntriesPerBlock, and writes each chunk's index entry then data
// block, advancing the appender's local snapshot. It does not commit;
// call Done to publish.
func (a *Appender) Append(batch []Entry, compression Compression) error {
	if a.state != appenderOpen {
		return fmt.Errorf("storage: append on a %v appender", a.state)
	}

	filtered := make([]Entry, 0, len(batch))
	for _, e := range batch {
		if e.Ts >= a.snapshot.HighestTs {
			filtered = append(filtered, e)
		}
	}
	if len(filtered) == 0 {
		return nil
	}

	sort.SliceStable(filtered, func(i, j int) bool {
		return filtered[i].Ts < filtered[j].Ts
	})

	// Write from the snapshot's data offset, so bytes left past it by an
	// aborted or failed earlier attempt are overwritten.
	if _, err := a.w.data.f.Seek(int64(a.snapshot.DataOffset), io.SeekStart); err != nil {
		a.state = appenderAborted
		a.unlock()
		return fmt.Errorf("seek data file: %w", err)
	}
	a.w.data.offset = a.snapshot.DataOffset

	for len(filtered) > 0 {
		n := MaxEntriesPerBlock
		if n > len(filtered) {
			n = len(filtered)
		}
		chunk := filtered[:n]
		filtered = filtered[n:]

		lastTs := chunk[len(chunk)-1].Ts

		indexOffset, err := a.w.env.Index.Set(a.snapshot.IndexOffset, lastTs, a.snapshot.DataOffset)
		if err != nil {
			a.state = appenderAborted
			a.unlock()
			return fmt.Errorf("append index entry: %w", err)
		}

		dataOffset, err := a.w.data.WriteBlock(chunk, compression)
		if err != nil {
			a.state = appenderAborted
			a.unlock()
			return fmt.Errorf("append data block: %w", err)
		}

		a.snapshot = Commit{DataOffset: dataOffset, IndexOffset: indexOffset, HighestTs: lastTs}
	}

	return nil
}

// Done fsyncs the data file, flushes the index, and durably commits
// the appender's accumulated snapshot, making it visible to new
// readers.
func (a *Appender) Done() error {
	defer a.unlock()

	if a.state != appenderOpen {
		return fmt.Errorf("storage: done on a %v appender", a.state)
	}

	if err := a.w.data.Sync(); err != nil {
		a.state = appenderAborted
		return err
	}
	if err := a.w.env.Index.Sync(); err != nil {
		a.state = appenderAborted
		return err
	}
	if err := a.w.env.CommitLog.Commit(a.snapshot); err != nil {
		a.state = appenderAborted
		return fmt.Errorf("commit: %w", err)
	}

	a.state = appenderCommitted
	return nil
}

// Abort discards the appender without publishing its writes. The
// on-disk torn tail, if any, is overwritten or ignored by the next
// successful commit.
func (a *Appender) Abort() {
	if a.state == appenderOpen {
		a.state = appenderAborted
	}
	a.unlock()
}

func (s appenderState) String() string {
	switch s {
	case appenderOpen:
		return "open"
	case appenderCommitted:
		return "committed"
	case appenderAborted:
		return "aborted"
	default:
		return "unknown"
	}
}

// Append is the convenience single-batch form of NewAppender/Append/Done
// using the default delta compression.
func (w *SeriesWriter) Append(batch []Entry) error {
	return w.AppendOpt(batch, Delta)
}

// AppendOpt is Append with an explicit compression.
func (w *SeriesWriter) AppendOpt(batch []Entry, compression Compression) error {
	a := w.NewAppender()
	if err := a.Append(batch, compression); err != nil {
		return err
	}
	return a.Done()
}

// SeriesReader resolves start offsets via the shared IndexFile and
// streams decoded blocks forward from the series' data file.
type SeriesReader struct {
	env      *SeriesEnv
	dataPath string
}

// OpenSeriesReader builds a reader bound to a series' environment.
func OpenSeriesReader(env *SeriesEnv) *SeriesReader {
	return &SeriesReader{env: env, dataPath: env.Dir.DataPath()}
}

// Iterator produces a fresh, independent sequence of entries with
// ts >= fromTs, bound to a snapshot of the commit log taken at call
// time. Errors from block decoding terminate the sequence.
func (r *SeriesReader) Iterator(fromTs int64) iter.Seq2[Entry, error] {
	return func(yield func(Entry, error) bool) {
		commit := r.env.CommitLog.Current()

		start, found, err := r.env.Index.CeilingOffset(fromTs, commit.IndexOffset)
		if err != nil {
			yield(Entry{}, err)
			return
		}
		if !found {
			start = commit.DataOffset
		}

		dr, err := OpenDataReader(r.dataPath, start, commit.DataOffset)
		if err != nil {
			yield(Entry{}, err)
			return
		}
		defer dr.Close()

		for !dr.Done() {
			entries, err := dr.ReadBlock()
			if err != nil {
				yield(Entry{}, err)
				return
			}
			for _, e := range entries {
				if e.Ts < fromTs {
					continue
				}
				if !yield(e, nil) {
					return
				}
			}
		}
	}
}
