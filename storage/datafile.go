package storage

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"os"
)

// blockHeaderSize is entries_count(2) + compression(1) + payload_size(4) + crc16(2).
const blockHeaderSize = 9

// readAheadBufferSize is the DataReader buffer size, chosen to keep
// block reads to a handful of syscalls.
const readAheadBufferSize = 2 << 20 // 2 MiB

// DefaultDataFileCap is the recommended data file size cap: offsets
// are stored as u32, so this is the largest addressable size anyway.
const DefaultDataFileCap = uint32(0xFFFFFFFF)

// DataWriter appends self-describing blocks to a series' data file,
// starting at the byte offset of the last durable commit.
type DataWriter struct {
	f      *os.File
	offset uint32
	cap    uint32
}

// OpenDataWriter opens path for append, positioned logically at offset
// (the committed data_offset; bytes beyond it, if any, are a torn tail
// from an aborted write and are simply overwritten).
func OpenDataWriter(path string, offset uint32) (*DataWriter, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open data file: %w", err)
	}
	if _, err := f.Seek(int64(offset), io.SeekStart); err != nil {
		f.Close()
		return nil, fmt.Errorf("seek data file: %w", err)
	}
	return &DataWriter{f: f, offset: offset, cap: DefaultDataFileCap}, nil
}

// WriteBlock encodes entries under compression and appends the
// resulting block, returning the new data_offset.
func (w *DataWriter) WriteBlock(entries []Entry, c Compression) (uint32, error) {
	if len(entries) == 0 || len(entries) > MaxEntriesPerBlock {
		return 0, ErrTooManyEntries
	}

	payload, err := encodeBlock(entries, c)
	if err != nil {
		return 0, err
	}

	blockSize := uint64(blockHeaderSize) + uint64(len(payload))
	newOffset := uint64(w.offset) + blockSize
	if newOffset > uint64(w.cap) {
		return 0, ErrDataFileTooBig
	}

	header := make([]byte, blockHeaderSize)
	binary.BigEndian.PutUint16(header[0:2], uint16(len(entries)))
	header[2] = byte(c)
	binary.BigEndian.PutUint32(header[3:7], uint32(len(payload)))
	binary.BigEndian.PutUint16(header[7:9], crc16USB(header[0:7]))

	if _, err := w.f.Write(header); err != nil {
		return 0, fmt.Errorf("write block header: %w", err)
	}
	if _, err := w.f.Write(payload); err != nil {
		return 0, fmt.Errorf("write block payload: %w", err)
	}

	w.offset = uint32(newOffset)
	return w.offset, nil
}

// Sync fsyncs the underlying file.
func (w *DataWriter) Sync() error {
	if err := w.f.Sync(); err != nil {
		return fmt.Errorf("sync data file: %w", err)
	}
	return nil
}

func (w *DataWriter) Close() error {
	return w.f.Close()
}

// DataReader streams blocks forward from a start offset, bounded by a
// snapshot limit taken at construction time.
type DataReader struct {
	f      *os.File
	br     *bufio.Reader
	offset uint32
	limit  uint32
}

// OpenDataReader opens path read-only, seeks to start, and bounds
// reads to [start, limit).
func OpenDataReader(path string, start, limit uint32) (*DataReader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open data file: %w", err)
	}
	if _, err := f.Seek(int64(start), io.SeekStart); err != nil {
		f.Close()
		return nil, fmt.Errorf("seek data file: %w", err)
	}
	return &DataReader{
		f:      f,
		br:     bufio.NewReaderSize(f, readAheadBufferSize),
		offset: start,
		limit:  limit,
	}, nil
}

// Offset reports the reader's current logical position.
func (r *DataReader) Offset() uint32 {
	return r.offset
}

// Done reports whether the reader has reached its snapshot limit.
func (r *DataReader) Done() bool {
	return r.offset >= r.limit
}

// ReadBlock decodes the next block and advances past it. Callers must
// check Done() first; ReadBlock never reads past the snapshot limit.
func (r *DataReader) ReadBlock() ([]Entry, error) {
	header := make([]byte, blockHeaderSize)
	if _, err := io.ReadFull(r.br, header); err != nil {
		return nil, fmt.Errorf("read block header: %w", err)
	}

	if crc16USB(header[0:7]) != binary.BigEndian.Uint16(header[7:9]) {
		return nil, ErrCrc16Mismatch
	}

	count := int(binary.BigEndian.Uint16(header[0:2]))
	compression := Compression(header[2])
	payloadSize := binary.BigEndian.Uint32(header[3:7])

	payload := make([]byte, payloadSize)
	if _, err := io.ReadFull(r.br, payload); err != nil {
		return nil, fmt.Errorf("read block payload: %w", err)
	}

	entries, err := decodeBlock(payload, count, compression)
	if err != nil {
		return nil, err
	}

	r.offset += uint32(blockHeaderSize) + payloadSize
	return entries, nil
}

func (r *DataReader) Close() error {
	return r.f.Close()
}
