package core

import (
	"context"
	"fmt"
	"slices"

	"github.com/JonMunkholm/csvdatasets/internal/csv"
	"github.com/google/uuid"
)

// RowInserter is the single storage call PersistRows needs.
type RowInserter interface {
	InsertRows(ctx context.Context, datasetID uuid.UUID, rows []csv.Row) error
}

// BatchError reports the batch that stopped PersistRows. Batches before
// Index were stored and stay stored.
type BatchError struct {
	Index    int // zero-based batch index
	FirstRow int // row_number of the first row in the batch
	Err      error
}

func (e *BatchError) Error() string {
	return fmt.Sprintf("insert batch %d (from row %d): %v", e.Index+1, e.FirstRow, e.Err)
}

func (e *BatchError) Unwrap() error { return e.Err }

// PersistRows inserts rows in consecutive chunks of at most size, one at
// a time and in slice order. It stops at the first failing chunk and
// returns how many chunks were stored.
func PersistRows(ctx context.Context, ins RowInserter, datasetID uuid.UUID, rows []csv.Row, size int) (int, error) {
	if size <= 0 {
		size = DefaultBatchSize
	}

	stored := 0
	for batch := range slices.Chunk(rows, size) {
		if err := ins.InsertRows(ctx, datasetID, batch); err != nil {
			return stored, &BatchError{Index: stored, FirstRow: batch[0].Number, Err: err}
		}
		stored++
	}
	return stored, nil
}
