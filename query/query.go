package query

import "github.com/whiter4bbit/milliseriesdb/storage"

// Execute builds a GroupBy over reader.Iterator(stmt.From), folding
// with one AggregatorsFolder over all of stmt.Aggregators, and collects at
// most stmt.Limit rows. Any error from the underlying iterator is
// surfaced and aborts the collection.
func Execute(reader *storage.SeriesReader, stmt Statement) ([]Row, error) {
	if stmt.Limit == 0 {
		return nil, nil
	}

	folder := NewAggregatorsFolder(stmt.Aggregators)
	rows := make([]Row, 0, stmt.Limit)

	for r, err := range GroupBy(reader.Iterator(stmt.From), stmt.GroupBy, folder) {
		if err != nil {
			return nil, err
		}
		rows = append(rows, r)
		if len(rows) >= stmt.Limit {
			break
		}
	}

	return rows, nil
}
