package query

import (
	"iter"

	"github.com/whiter4bbit/milliseriesdb/storage"
)

// Row is one grouped-aggregation result: the bucket's key timestamp
// and one Aggregation per requested aggregator, in request order.
type Row struct {
	Ts     int64
	Values []Aggregation
}

// roundTo computes the bucket key for ts under granularity g using
// Euclidean division, which stays correct for negative timestamps
// (ordinary truncating division would round toward zero instead of
// toward negative infinity).
func roundTo(ts, g int64) int64 {
	q := ts / g
	r := ts % g
	if r < 0 {
		q--
	}
	return q * g
}

// GroupBy wraps an entry sequence and a folder, emitting one Row per
// contiguous run of entries sharing a bucket key. Pulls lazily from
// entries; an error from the upstream sequence is surfaced as a
// failing item and terminates the sequence without emitting a
// partial row for the bucket in progress.
func GroupBy(entries iter.Seq2[storage.Entry, error], groupBy Granularity, folder *AggregatorsFolder) iter.Seq2[Row, error] {
	return func(yield func(Row, error) bool) {
		var currentKey int64
		haveCurrent := false

		for e, err := range entries {
			if err != nil {
				yield(Row{}, err)
				return
			}

			key := roundTo(e.Ts, int64(groupBy))

			if haveCurrent && key != currentKey {
				if !yield(Row{Ts: currentKey, Values: folder.Complete()}, nil) {
					return
				}
			}
			if !haveCurrent || key != currentKey {
				currentKey = key
				haveCurrent = true
			}

			folder.Fold(e.Value)
		}

		if haveCurrent {
			yield(Row{Ts: currentKey, Values: folder.Complete()}, nil)
		}
	}
}
