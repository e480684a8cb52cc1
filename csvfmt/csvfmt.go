// Package csvfmt implements the CSV line framing used by series
// export and restore: "<ts>; <value>\n", semicolon-separated, with
// optional whitespace around each field.
package csvfmt

import (
	"bufio"
	"fmt"
	"io"
	"iter"
	"strconv"
	"strings"

	"github.com/whiter4bbit/milliseriesdb/buffering"
	"github.com/whiter4bbit/milliseriesdb/storage"
)

// DefaultChunkSize is the entry count a ChunkedReader batches restore
// writes into.
const DefaultChunkSize = 1024

// FormatLine renders one entry for export: two fractional digits on
// the value, regardless of how it was originally stored.
func FormatLine(e storage.Entry) string {
	return fmt.Sprintf("%d; %.2f\n", e.Ts, e.Value)
}

// ParseLine parses one CSV line on import. Any parseable float is
// accepted, not just two-decimal ones.
func ParseLine(line string) (storage.Entry, error) {
	line = strings.TrimRight(line, "\r\n")

	idx := strings.IndexByte(line, ';')
	if idx < 0 {
		return storage.Entry{}, fmt.Errorf("csvfmt: malformed line %q", line)
	}

	tsField := strings.TrimSpace(line[:idx])
	valueField := strings.TrimSpace(line[idx+1:])

	ts, err := strconv.ParseInt(tsField, 10, 64)
	if err != nil {
		return storage.Entry{}, fmt.Errorf("csvfmt: invalid timestamp %q: %w", tsField, err)
	}
	value, err := strconv.ParseFloat(valueField, 64)
	if err != nil {
		return storage.Entry{}, fmt.Errorf("csvfmt: invalid value %q: %w", valueField, err)
	}

	return storage.Entry{Ts: ts, Value: value}, nil
}

// WriteAll streams entries as CSV lines to w, stopping and returning
// the first error seen from either entries or the writer.
func WriteAll(w io.Writer, entries iter.Seq2[storage.Entry, error]) error {
	bw := bufio.NewWriter(w)
	for e, err := range entries {
		if err != nil {
			return err
		}
		if _, err := bw.WriteString(FormatLine(e)); err != nil {
			return fmt.Errorf("csvfmt: write line: %w", err)
		}
	}
	return bw.Flush()
}

// ReadAll lazily parses r line by line, skipping blank lines. Parse
// failures are surfaced as a failing item that terminates the
// sequence.
func ReadAll(r io.Reader) iter.Seq2[storage.Entry, error] {
	return func(yield func(storage.Entry, error) bool) {
		scanner := bufio.NewScanner(r)
		for scanner.Scan() {
			line := scanner.Text()
			if strings.TrimSpace(line) == "" {
				continue
			}
			e, err := ParseLine(line)
			if err != nil {
				yield(storage.Entry{}, err)
				return
			}
			if !yield(e, nil) {
				return
			}
		}
		if err := scanner.Err(); err != nil {
			yield(storage.Entry{}, fmt.Errorf("csvfmt: scan: %w", err))
		}
	}
}

// ChunkedReader incrementally parses a CSV body into fixed-size
// entry batches, so a restore can write them in chunks instead of
// materializing the whole body in memory.
type ChunkedReader struct {
	chunks iter.Seq2[[]storage.Entry, error]
}

// NewChunkedReader wraps r, batching parsed entries into groups of up
// to chunkSize.
func NewChunkedReader(r io.Reader, chunkSize int) *ChunkedReader {
	return &ChunkedReader{chunks: buffering.Batch(ReadAll(r), chunkSize)}
}

// Chunks returns the lazy sequence of entry batches.
func (c *ChunkedReader) Chunks() iter.Seq2[[]storage.Entry, error] {
	return c.chunks
}
