package tracing

import (
	"context"

	"github.com/sarchlab/dvbenc/datarecording"
)

// ReadAccesses returns the accesses that a DBTracer stored, and the number
// of rows that match params.Where.
func ReadAccesses(
	ctx context.Context,
	reader datarecording.DataReader,
	params datarecording.QueryParams,
) ([]AccessEntry, int, error) {
	reader.MapTable(AccessTableName, AccessEntry{})

	rows, total, err := reader.Query(ctx, AccessTableName, params)
	if err != nil {
		return nil, 0, err
	}

	entries := make([]AccessEntry, 0, len(rows))
	for _, row := range rows {
		entries = append(entries, *row.(*AccessEntry))
	}

	return entries, total, nil
}
