package storage

import (
	"path/filepath"
	"testing"
)

func TestIndexFileCeilingLookup(t *testing.T) {
	dir := t.TempDir()
	idx, err := OpenIndexFile(filepath.Join(dir, "series.idx"))
	if err != nil {
		t.Fatalf("OpenIndexFile: %v", err)
	}
	defer idx.Close()

	// Build index from (1,11), (4,44), (9,99) and check ceiling lookups
	// land on the right data offset at and between each entry.
	entries := []struct {
		ts         int64
		dataOffset uint32
	}{
		{1, 11},
		{4, 44},
		{9, 99},
	}

	var offset uint32
	for _, e := range entries {
		offset, err = idx.Set(offset, e.ts, e.dataOffset)
		if err != nil {
			t.Fatalf("Set: %v", err)
		}
	}

	cases := []struct {
		target    int64
		want      uint32
		wantFound bool
	}{
		{0, 11, true},
		{1, 11, true},
		{3, 44, true},
		{5, 99, true},
		{9, 99, true},
		{10, 0, false},
	}

	for _, c := range cases {
		got, found, err := idx.CeilingOffset(c.target, offset)
		if err != nil {
			t.Fatalf("CeilingOffset(%d): %v", c.target, err)
		}
		if found != c.wantFound {
			t.Fatalf("CeilingOffset(%d): found=%v, want %v", c.target, found, c.wantFound)
		}
		if found && got != c.want {
			t.Fatalf("CeilingOffset(%d) = %d, want %d", c.target, got, c.want)
		}
	}
}

func TestIndexFileGrowsAcrossChunks(t *testing.T) {
	dir := t.TempDir()
	idx, err := OpenIndexFile(filepath.Join(dir, "series.idx"))
	if err != nil {
		t.Fatalf("OpenIndexFile: %v", err)
	}
	defer idx.Close()

	// Force at least one remap: indexGrowthChunk / indexEntrySize + a few more.
	n := indexGrowthChunk/indexEntrySize + 10
	var offset uint32
	for i := 0; i < n; i++ {
		offset, err = idx.Set(offset, int64(i), uint32(i*2))
		if err != nil {
			t.Fatalf("Set(%d): %v", i, err)
		}
	}

	got, found, err := idx.CeilingOffset(int64(n-1), offset)
	if err != nil {
		t.Fatalf("CeilingOffset: %v", err)
	}
	if !found || got != uint32((n-1)*2) {
		t.Fatalf("CeilingOffset(last) = (%d, %v), want (%d, true)", got, found, (n-1)*2)
	}
}

func TestIndexFileUnalignedOffset(t *testing.T) {
	dir := t.TempDir()
	idx, err := OpenIndexFile(filepath.Join(dir, "series.idx"))
	if err != nil {
		t.Fatalf("OpenIndexFile: %v", err)
	}
	defer idx.Close()

	if _, err := idx.Set(5, 1, 1); err != ErrOffsetNotAligned {
		t.Fatalf("got %v, want ErrOffsetNotAligned", err)
	}
}
