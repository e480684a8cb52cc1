// Package buffering re-batches any entry stream into fixed-size
// groups, used by export (batching entries for transport) and import
// (batching parsed entries for writes).
package buffering

import "iter"

// Batch re-groups seq into successive slices of up to n items; the
// final slice may be shorter. An error from seq is surfaced
// immediately — any partially filled batch in progress is dropped,
// since it may be missing entries the caller would otherwise assume
// are complete.
//
// Generic over T the way a typed in-memory table is generic over its
// entry type.
func Batch[T any](seq iter.Seq2[T, error], n int) iter.Seq2[[]T, error] {
	if n < 1 {
		n = 1
	}
	return func(yield func([]T, error) bool) {
		batch := make([]T, 0, n)
		for v, err := range seq {
			if err != nil {
				yield(nil, err)
				return
			}
			batch = append(batch, v)
			if len(batch) == n {
				if !yield(batch, nil) {
					return
				}
				batch = make([]T, 0, n)
			}
		}
		if len(batch) > 0 {
			yield(batch, nil)
		}
	}
}
