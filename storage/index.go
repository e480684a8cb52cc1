package storage

import (
	"encoding/binary"
	"fmt"
	"os"
	"sync"

	"github.com/edsrzf/mmap-go"
)

// indexEntrySize is highest_ts(8) + data_offset(4), tightly packed.
const indexEntrySize = 12

// indexGrowthChunk is the fixed size new mmap growth is rounded up to.
const indexGrowthChunk = 12 * 1024

// DefaultIndexFileCap is the recommended index file size cap: 2 GiB,
// good for roughly 178M entries.
const DefaultIndexFileCap = uint32(2 << 30)

// IndexFile is a memory-mapped sparse sorted map of
// highest-ts-per-block -> data offset. The mapping grows in fixed
// chunks as entries are written past its current size.
//
// set holds an exclusive lock; ceiling_offset holds a shared lock, so
// concurrent readers may search while a writer grows and appends,
// provided they only ever search a prefix the writer has already
// committed.
type IndexFile struct {
	mu  sync.RWMutex
	f   *os.File
	mm  mmap.MMap
	cap uint32
}

// OpenIndexFile opens or creates path and maps at least one growth
// chunk of it.
func OpenIndexFile(path string) (*IndexFile, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open index file: %w", err)
	}

	idx := &IndexFile{f: f, cap: DefaultIndexFileCap}
	if err := idx.ensureMapped(indexGrowthChunk); err != nil {
		f.Close()
		return nil, err
	}
	return idx, nil
}

// ensureMapped grows (or creates) the backing file and remaps it so
// that at least minSize bytes are addressable.
func (idx *IndexFile) ensureMapped(minSize int64) error {
	info, err := idx.f.Stat()
	if err != nil {
		return fmt.Errorf("stat index file: %w", err)
	}

	size := info.Size()
	if size >= minSize && idx.mm != nil {
		return nil
	}

	newSize := size
	for newSize < minSize {
		newSize += indexGrowthChunk
	}

	if idx.mm != nil {
		if err := idx.mm.Unmap(); err != nil {
			return fmt.Errorf("unmap index file: %w", err)
		}
		idx.mm = nil
	}

	if newSize > size {
		if err := idx.f.Truncate(newSize); err != nil {
			return fmt.Errorf("grow index file: %w", err)
		}
	}

	m, err := mmap.Map(idx.f, mmap.RDWR, 0)
	if err != nil {
		return fmt.Errorf("mmap index file: %w", err)
	}
	idx.mm = m
	return nil
}

// Set writes (ts, dataOffset) at the given 12-byte-aligned byte
// offset, growing the mapping if needed, and returns offset+12.
func (idx *IndexFile) Set(offset uint32, ts int64, dataOffset uint32) (uint32, error) {
	if offset%indexEntrySize != 0 {
		return 0, ErrOffsetNotAligned
	}

	idx.mu.Lock()
	defer idx.mu.Unlock()

	newOffset := uint64(offset) + indexEntrySize
	if newOffset > uint64(idx.cap) {
		return 0, ErrIndexFileTooBig
	}

	if err := idx.ensureMapped(int64(newOffset)); err != nil {
		return 0, err
	}

	entry := idx.mm[offset : offset+indexEntrySize]
	binary.BigEndian.PutUint64(entry[0:8], uint64(ts))
	binary.BigEndian.PutUint32(entry[8:12], dataOffset)

	return uint32(newOffset), nil
}

// CeilingOffset binary-searches the prefix [0, upperOffset) for the
// smallest entry with ts >= target and returns its data_offset. The
// second return is false when no such entry exists (target exceeds
// every timestamp written so far).
func (idx *IndexFile) CeilingOffset(target int64, upperOffset uint32) (uint32, bool, error) {
	if upperOffset%indexEntrySize != 0 {
		return 0, false, ErrOffsetNotAligned
	}

	idx.mu.RLock()
	defer idx.mu.RUnlock()

	n := int(upperOffset / indexEntrySize)
	if n == 0 {
		return 0, false, nil
	}
	if uint32(n)*indexEntrySize > uint32(len(idx.mm)) {
		return 0, false, ErrOffsetOutsideRange
	}

	tsAt := func(i int) int64 {
		off := i * indexEntrySize
		return int64(binary.BigEndian.Uint64(idx.mm[off : off+8]))
	}

	lo, hi := 0, n
	for lo < hi {
		mid := lo + (hi-lo)/2
		if tsAt(mid) >= target {
			hi = mid
		} else {
			lo = mid + 1
		}
	}

	if lo == n {
		return 0, false, nil
	}

	off := lo * indexEntrySize
	return binary.BigEndian.Uint32(idx.mm[off+8 : off+12]), true, nil
}

// Sync flushes the mmap to disk.
func (idx *IndexFile) Sync() error {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	if idx.mm == nil {
		return nil
	}
	if err := idx.mm.Flush(); err != nil {
		return fmt.Errorf("flush index mmap: %w", err)
	}
	return nil
}

func (idx *IndexFile) Close() error {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	if idx.mm != nil {
		if err := idx.mm.Unmap(); err != nil {
			return err
		}
		idx.mm = nil
	}
	return idx.f.Close()
}
