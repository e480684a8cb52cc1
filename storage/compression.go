package storage

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"math"

	"github.com/klauspost/compress/flate"
)

// Compression is the stable on-disk marker for a block's payload
// encoding.
type Compression byte

const (
	Raw     Compression = 0
	Deflate Compression = 1
	Delta   Compression = 2
)

func (c Compression) String() string {
	switch c {
	case Raw:
		return "raw"
	case Deflate:
		return "deflate"
	case Delta:
		return "delta"
	default:
		return fmt.Sprintf("Compression(%d)", byte(c))
	}
}

// encodeBlock encodes entries (already sorted and non-empty) into a
// payload using the given compression. It is a pure function of the
// entry slice.
func encodeBlock(entries []Entry, c Compression) ([]byte, error) {
	switch c {
	case Raw:
		return encodeRaw(entries), nil
	case Deflate:
		raw := encodeRaw(entries)
		var buf bytes.Buffer
		w, err := flate.NewWriter(&buf, flate.DefaultCompression)
		if err != nil {
			return nil, err
		}
		if _, err := w.Write(raw); err != nil {
			return nil, err
		}
		if err := w.Close(); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	case Delta:
		return encodeDelta(entries), nil
	default:
		return nil, ErrUnknownCompression
	}
}

// decodeBlock decodes count entries from payload, reversing
// encodeBlock.
func decodeBlock(payload []byte, count int, c Compression) ([]Entry, error) {
	switch c {
	case Raw:
		return decodeRaw(payload, count)
	case Deflate:
		r := flate.NewReader(bytes.NewReader(payload))
		defer r.Close()
		raw, err := io.ReadAll(r)
		if err != nil {
			return nil, err
		}
		return decodeRaw(raw, count)
	case Delta:
		return decodeDelta(payload, count)
	default:
		return nil, ErrUnknownCompression
	}
}

func encodeRaw(entries []Entry) []byte {
	buf := make([]byte, 0, len(entries)*16)
	for _, e := range entries {
		buf = binary.BigEndian.AppendUint64(buf, uint64(e.Ts))
		buf = binary.BigEndian.AppendUint64(buf, math.Float64bits(e.Value))
	}
	return buf
}

func decodeRaw(payload []byte, count int) ([]Entry, error) {
	if len(payload) != count*16 {
		return nil, fmt.Errorf("raw payload has %d bytes, expected %d for %d entries", len(payload), count*16, count)
	}
	entries := make([]Entry, count)
	for i := 0; i < count; i++ {
		off := i * 16
		ts := int64(binary.BigEndian.Uint64(payload[off : off+8]))
		value := math.Float64frombits(binary.BigEndian.Uint64(payload[off+8 : off+16]))
		entries[i] = Entry{Ts: ts, Value: value}
	}
	return entries, nil
}

// encodeDelta writes the first entry fixed-width, then for each
// subsequent entry a signed-zigzag-varint ts delta and an
// unsigned-varint XOR of the raw value bits against the previous
// entry's bits.
func encodeDelta(entries []Entry) []byte {
	buf := make([]byte, 0, 16+len(entries)*4)
	buf = binary.BigEndian.AppendUint64(buf, uint64(entries[0].Ts))
	buf = binary.BigEndian.AppendUint64(buf, math.Float64bits(entries[0].Value))

	prevTs := entries[0].Ts
	prevBits := math.Float64bits(entries[0].Value)

	var scratch [binary.MaxVarintLen64]byte
	for _, e := range entries[1:] {
		n := binary.PutVarint(scratch[:], e.Ts-prevTs)
		buf = append(buf, scratch[:n]...)

		bits := math.Float64bits(e.Value)
		n = binary.PutUvarint(scratch[:], bits^prevBits)
		buf = append(buf, scratch[:n]...)

		prevTs = e.Ts
		prevBits = bits
	}
	return buf
}

func decodeDelta(payload []byte, count int) ([]Entry, error) {
	if len(payload) < 16 {
		return nil, fmt.Errorf("delta payload too short: %d bytes", len(payload))
	}
	entries := make([]Entry, count)
	firstTs := int64(binary.BigEndian.Uint64(payload[0:8]))
	firstValue := math.Float64frombits(binary.BigEndian.Uint64(payload[8:16]))
	entries[0] = Entry{Ts: firstTs, Value: firstValue}

	prevTs := firstTs
	prevBits := math.Float64bits(firstValue)

	r := bytes.NewReader(payload[16:])
	for i := 1; i < count; i++ {
		dts, err := binary.ReadVarint(r)
		if err != nil {
			return nil, fmt.Errorf("delta ts varint: %w", err)
		}
		dbits, err := binary.ReadUvarint(r)
		if err != nil {
			return nil, fmt.Errorf("delta value varint: %w", err)
		}

		ts := prevTs + dts
		bits := prevBits ^ dbits

		entries[i] = Entry{Ts: ts, Value: math.Float64frombits(bits)}

		prevTs = ts
		prevBits = bits
	}
	return entries, nil
}
