package query

import (
	"iter"
	"testing"
	"time"

	"github.com/whiter4bbit/milliseriesdb/storage"
)

func sliceSeq(entries []storage.Entry) iter.Seq2[storage.Entry, error] {
	return func(yield func(storage.Entry, error) bool) {
		for _, e := range entries {
			if !yield(e, nil) {
				return
			}
		}
	}
}

func collectRows(t *testing.T, seq iter.Seq2[Row, error]) []Row {
	t.Helper()
	var rows []Row
	for r, err := range seq {
		if err != nil {
			t.Fatalf("groupby error: %v", err)
		}
		rows = append(rows, r)
	}
	return rows
}

func utcMillis(y int, m time.Month, d, hh, mm int) int64 {
	return time.Date(y, m, d, hh, mm, 0, 0, time.UTC).UnixMilli()
}

// Entries sharing an hour bucket fold together, including duplicate
// timestamps within the same bucket.
func TestGroupByHourlyMean(t *testing.T) {
	entries := []storage.Entry{
		{Ts: utcMillis(1961, 1, 2, 11, 0), Value: 3.0},
		{Ts: utcMillis(1961, 1, 2, 11, 2), Value: 2.0},
		{Ts: utcMillis(1961, 1, 2, 11, 4), Value: 4.0},
		{Ts: utcMillis(1961, 1, 2, 12, 2), Value: 5.0},
		{Ts: utcMillis(1961, 1, 2, 12, 4), Value: 7.0},
		{Ts: utcMillis(1961, 1, 2, 12, 2), Value: 5.0},
		{Ts: utcMillis(1961, 1, 2, 12, 4), Value: 7.0},
		{Ts: utcMillis(1971, 1, 2, 12, 2), Value: 5.0},
		{Ts: utcMillis(1971, 1, 2, 12, 4), Value: 7.0},
	}

	folder := NewAggregatorsFolder([]Aggregator{Mean})
	rows := collectRows(t, GroupBy(sliceSeq(entries), Hour, folder))

	want := []Row{
		{Ts: utcMillis(1961, 1, 2, 11, 0), Values: []Aggregation{{Kind: Mean, Value: 3.0}}},
		{Ts: utcMillis(1961, 1, 2, 12, 0), Values: []Aggregation{{Kind: Mean, Value: 6.0}}},
		{Ts: utcMillis(1971, 1, 2, 12, 0), Values: []Aggregation{{Kind: Mean, Value: 6.0}}},
	}

	if len(rows) != len(want) {
		t.Fatalf("got %d rows, want %d: %+v", len(rows), len(want), rows)
	}
	for i := range want {
		if rows[i].Ts != want[i].Ts {
			t.Fatalf("row %d ts: got %d, want %d", i, rows[i].Ts, want[i].Ts)
		}
		if len(rows[i].Values) != 1 || rows[i].Values[0].Kind != Mean {
			t.Fatalf("row %d: got %+v, want one Mean aggregation", i, rows[i])
		}
		if diff := rows[i].Values[0].Value - want[i].Values[0].Value; diff > 1e-6 || diff < -1e-6 {
			t.Fatalf("row %d mean: got %v, want %v", i, rows[i].Values[0].Value, want[i].Values[0].Value)
		}
	}
}

func TestGroupByRoundToNegativeTimestamps(t *testing.T) {
	cases := []struct {
		ts, g, want int64
	}{
		{0, 1000, 0},
		{999, 1000, 0},
		{1000, 1000, 1000},
		{-1, 1000, -1000},
		{-1000, 1000, -1000},
		{-1001, 1000, -2000},
	}
	for _, c := range cases {
		if got := roundTo(c.ts, c.g); got != c.want {
			t.Fatalf("roundTo(%d, %d) = %d, want %d", c.ts, c.g, got, c.want)
		}
	}
}

func TestGroupByEmptyYieldsNoRows(t *testing.T) {
	folder := NewAggregatorsFolder([]Aggregator{Mean})
	rows := collectRows(t, GroupBy(sliceSeq(nil), Minute, folder))
	if len(rows) != 0 {
		t.Fatalf("got %d rows, want 0", len(rows))
	}
}

func TestGroupByMinMax(t *testing.T) {
	entries := []storage.Entry{
		{Ts: 0, Value: 5},
		{Ts: 1, Value: -2},
		{Ts: 2, Value: 9},
	}
	folder := NewAggregatorsFolder([]Aggregator{Min, Max})
	rows := collectRows(t, GroupBy(sliceSeq(entries), Minute, folder))
	if len(rows) != 1 {
		t.Fatalf("got %d rows, want 1", len(rows))
	}
	values := rows[0].Values
	if values[0].Kind != Min || values[0].Value != -2 {
		t.Fatalf("min: got %+v, want -2", values[0])
	}
	if values[1].Kind != Max || values[1].Value != 9 {
		t.Fatalf("max: got %+v, want 9", values[1])
	}
}

// Running GroupBy twice over the same entries produces identical rows.
func TestGroupByIdempotent(t *testing.T) {
	entries := []storage.Entry{
		{Ts: 0, Value: 1}, {Ts: 1, Value: 2}, {Ts: 2000, Value: 3},
	}

	run := func() []Row {
		folder := NewAggregatorsFolder([]Aggregator{Mean})
		return collectRows(t, GroupBy(sliceSeq(entries), Minute, folder))
	}

	first := run()
	second := run()
	if len(first) != len(second) {
		t.Fatalf("got %d vs %d rows", len(first), len(second))
	}
	for i := range first {
		if first[i].Ts != second[i].Ts || first[i].Values[0].Value != second[i].Values[0].Value {
			t.Fatalf("row %d differs: %+v vs %+v", i, first[i], second[i])
		}
	}
}
