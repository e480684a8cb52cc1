package storage

import "testing"

func TestCodecRoundTrip(t *testing.T) {
	entries := []Entry{
		{Ts: 1, Value: 10.0},
		{Ts: 2, Value: 20.0},
		{Ts: 10, Value: 30.5},
		{Ts: 10_000_000, Value: -0.125},
	}

	for _, c := range []Compression{Raw, Deflate, Delta} {
		t.Run(c.String(), func(t *testing.T) {
			payload, err := encodeBlock(entries, c)
			if err != nil {
				t.Fatalf("encodeBlock: %v", err)
			}
			got, err := decodeBlock(payload, len(entries), c)
			if err != nil {
				t.Fatalf("decodeBlock: %v", err)
			}
			if len(got) != len(entries) {
				t.Fatalf("got %d entries, want %d", len(got), len(entries))
			}
			for i := range entries {
				if !entriesEqual(got[i], entries[i]) {
					t.Fatalf("entry %d: got %+v, want %+v", i, got[i], entries[i])
				}
			}
		})
	}
}

func TestCodecSingleEntry(t *testing.T) {
	entries := []Entry{{Ts: -5, Value: 3.5}}
	for _, c := range []Compression{Raw, Deflate, Delta} {
		payload, err := encodeBlock(entries, c)
		if err != nil {
			t.Fatalf("%s: encodeBlock: %v", c, err)
		}
		got, err := decodeBlock(payload, 1, c)
		if err != nil {
			t.Fatalf("%s: decodeBlock: %v", c, err)
		}
		if !entriesEqual(got[0], entries[0]) {
			t.Fatalf("%s: got %+v, want %+v", c, got[0], entries[0])
		}
	}
}

func TestCodecUnknownCompression(t *testing.T) {
	_, err := encodeBlock([]Entry{{Ts: 1, Value: 1}}, Compression(99))
	if err != ErrUnknownCompression {
		t.Fatalf("got %v, want ErrUnknownCompression", err)
	}

	_, err = decodeBlock(nil, 0, Compression(99))
	if err != ErrUnknownCompression {
		t.Fatalf("got %v, want ErrUnknownCompression", err)
	}
}

func TestCRC16USBKnownVector(t *testing.T) {
	// CRC-16/USB check value for the ASCII string "123456789" is 0xB4C8.
	got := crc16USB([]byte("123456789"))
	if got != 0xB4C8 {
		t.Fatalf("crc16USB(\"123456789\") = %#x, want 0xb4c8", got)
	}
}

func TestCRC16USBDetectsFlip(t *testing.T) {
	data := []byte{0x01, 0x02, 0x03, 0x04, 0x05}
	want := crc16USB(data)
	for i := range data {
		flipped := append([]byte(nil), data...)
		flipped[i] ^= 0xFF
		if crc16USB(flipped) == want {
			t.Fatalf("flipping byte %d did not change the checksum", i)
		}
	}
}
